package controllers

import (
	"net/http"

	"github.com/velvethaus/storefront-backend/api/responses"
	"github.com/velvethaus/storefront-backend/api/validators"
	"github.com/velvethaus/storefront-backend/internal/checkout"
	"github.com/velvethaus/storefront-backend/pkg/logger"
)

// CreatePaymentIntent revalidates the submitted cart server-side and returns
// the client secret with the computed totals.
func CreatePaymentIntent(svc *checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req checkout.PaymentIntentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp, err := svc.CreatePaymentIntent(ctx, req)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, resp)
	}
}
