package webhooks

import (
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/velvethaus/storefront-backend/api/responses"
	stripewebhook "github.com/velvethaus/storefront-backend/internal/webhooks/stripe"
	pkgerrors "github.com/velvethaus/storefront-backend/pkg/errors"
	"github.com/velvethaus/storefront-backend/pkg/logger"
	"github.com/velvethaus/storefront-backend/pkg/redis"
	pkgstripe "github.com/velvethaus/storefront-backend/pkg/stripe"
)

const maxWebhookBodyBytes = 1 << 16

// HandleStripe verifies the event signature, short-circuits replays through
// the redis guard and hands verified events to the reconciliation service.
func HandleStripe(client *pkgstripe.Client, guard *redis.IdempotencyGuard, svc *stripewebhook.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read webhook body"))
			return
		}

		sig := r.Header.Get("Stripe-Signature")
		if sig == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing stripe signature"))
			return
		}

		event, err := webhook.ConstructEvent(payload, sig, client.SigningSecret())
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid stripe signature"))
			return
		}

		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{
				"event_id":   event.ID,
				"event_type": string(event.Type),
			})
		}

		seen, err := guard.CheckAndMark(ctx, event.ID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency check"))
			return
		}
		if seen {
			if logg != nil {
				logg.Info(ctx, "event already processed, acknowledging")
			}
			responses.WriteSuccess(w, map[string]any{"received": true, "duplicate": true})
			return
		}

		if err := svc.HandleEvent(ctx, &event); err != nil {
			// Clear the mark so the provider's retry can reprocess the event.
			if delErr := guard.Delete(ctx, event.ID); delErr != nil && logg != nil {
				logg.Warn(ctx, "failed to release event idempotency mark")
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"received": true})
	}
}
