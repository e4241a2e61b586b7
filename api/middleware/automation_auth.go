package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/velvethaus/storefront-backend/api/responses"
	pkgerrors "github.com/velvethaus/storefront-backend/pkg/errors"
	"github.com/velvethaus/storefront-backend/pkg/logger"
)

const automationSecretHeader = "X-Automation-Secret"

// AutomationAuth guards the automation-triggered endpoints with a shared
// secret. A missing server-side secret fails closed.
func AutomationAuth(sharedSecret string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if sharedSecret == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "automation secret not configured"))
				return
			}

			provided := r.Header.Get(automationSecretHeader)
			if subtle.ConstantTimeCompare([]byte(provided), []byte(sharedSecret)) != 1 {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid automation secret"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
