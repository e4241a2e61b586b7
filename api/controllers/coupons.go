package controllers

import (
	"net/http"

	"github.com/velvethaus/storefront-backend/api/responses"
	"github.com/velvethaus/storefront-backend/api/validators"
	"github.com/velvethaus/storefront-backend/internal/coupons"
	pkgerrors "github.com/velvethaus/storefront-backend/pkg/errors"
	"github.com/velvethaus/storefront-backend/pkg/logger"
)

type couponVerifyRequest struct {
	Code        string `json:"code" validate:"required"`
	AmountCents int64  `json:"amountCents"`
}

type couponVerifyResponse struct {
	Valid         bool   `json:"valid"`
	Issue         string `json:"issue,omitempty"`
	Code          string `json:"code"`
	DiscountCents int64  `json:"discountCents"`
}

type couponIncrementRequest struct {
	Code string `json:"code" validate:"required"`
}

// VerifyCoupon reports whether a coupon applies to the given subtotal. It
// never mutates the coupon; usage moves only on the increment path.
func VerifyCoupon(svc *coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req couponVerifyRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if req.AmountCents < 0 {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "amountCents must be non-negative"))
			return
		}

		code := coupons.NormalizeCode(req.Code)
		result, err := svc.Verify(ctx, code, req.AmountCents)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, couponVerifyResponse{
			Valid:         result.Valid,
			Issue:         string(result.Issue),
			Code:          code,
			DiscountCents: result.DiscountCents,
		})
	}
}

// IncrementCoupon records one redemption. Reached only through the
// automation-authenticated route group.
func IncrementCoupon(svc *coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req couponIncrementRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		code := coupons.NormalizeCode(req.Code)
		if err := svc.IncrementUsage(ctx, code); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"code":        code,
			"incremented": true,
		})
	}
}
