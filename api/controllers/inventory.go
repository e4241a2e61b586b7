package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/velvethaus/storefront-backend/api/responses"
	"github.com/velvethaus/storefront-backend/api/validators"
	"github.com/velvethaus/storefront-backend/internal/inventory"
	"github.com/velvethaus/storefront-backend/internal/orders"
	pkgerrors "github.com/velvethaus/storefront-backend/pkg/errors"
	"github.com/velvethaus/storefront-backend/pkg/logger"
	"github.com/velvethaus/storefront-backend/pkg/redis"
)

type deductRequest struct {
	OrderID string `json:"orderId" validate:"required,uuid"`
}

type deductResponse struct {
	OrderID          string                   `json:"orderId"`
	AlreadyProcessed bool                     `json:"alreadyProcessed"`
	Results          []inventory.DeductResult `json:"results,omitempty"`
	PartialFailure   bool                     `json:"partialFailure,omitempty"`
}

// DeductInventory runs the stock deduction for a paid order. A redis guard
// keyed by order id keeps retried triggers from deducting twice.
func DeductInventory(ordersSvc *orders.Service, invSvc *inventory.Service, guard *redis.IdempotencyGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req deductRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		orderID, err := uuid.Parse(req.OrderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "orderId must be a valid uuid"))
			return
		}

		seen, err := guard.CheckAndMark(ctx, orderID.String())
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency check"))
			return
		}
		if seen {
			if logg != nil {
				lctx := logg.WithOrderID(ctx, orderID.String())
				logg.Info(lctx, "deduction already processed, skipping")
			}
			responses.WriteSuccess(w, deductResponse{OrderID: orderID.String(), AlreadyProcessed: true})
			return
		}

		order, err := ordersSvc.GetByID(ctx, orderID)
		if err != nil {
			// Nothing was deducted; let a later trigger retry.
			if delErr := guard.Delete(ctx, orderID.String()); delErr != nil && logg != nil {
				logg.Warn(ctx, "failed to release deduction guard")
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		results, deductErr := invSvc.DeductForOrder(ctx, order.Items)
		if deductErr != nil && logg != nil {
			lctx := logg.WithOrderID(ctx, orderID.String())
			logg.Error(lctx, "deduction finished with failed lines", deductErr)
		}

		// The guard stays set even on partial failure: successful lines are
		// already applied and a blanket retry would deduct them again.
		responses.WriteSuccess(w, deductResponse{
			OrderID:        orderID.String(),
			Results:        results,
			PartialFailure: deductErr != nil,
		})
	}
}
