package controllers

import (
	"net/http"

	"github.com/velvethaus/storefront-backend/api/responses"
	"github.com/velvethaus/storefront-backend/pkg/db"
	pkgerrors "github.com/velvethaus/storefront-backend/pkg/errors"
	"github.com/velvethaus/storefront-backend/pkg/logger"
	"github.com/velvethaus/storefront-backend/pkg/redis"
)

// HealthLive reports process liveness only. No dependency checks.
func HealthLive(env string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{
			"status":      "ok",
			"environment": env,
		})
	}
}

// HealthReady verifies the datastore and cache are reachable.
func HealthReady(database db.Pinger, cache redis.Pinger, env string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		checks := map[string]string{}
		healthy := true

		if err := database.Ping(ctx); err != nil {
			checks["database"] = err.Error()
			healthy = false
		} else {
			checks["database"] = "ok"
		}

		if err := cache.Ping(ctx); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		} else {
			checks["redis"] = "ok"
		}

		if !healthy {
			if logg != nil {
				lctx := logg.WithFields(ctx, map[string]any{"checks": checks})
				logg.Warn(lctx, "readiness check failed")
			}
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable"))
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"status":      "ok",
			"environment": env,
			"checks":      checks,
		})
	}
}
