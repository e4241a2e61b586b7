package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/velvethaus/storefront-backend/api/responses"
	"github.com/velvethaus/storefront-backend/api/validators"
	"github.com/velvethaus/storefront-backend/internal/orders"
	"github.com/velvethaus/storefront-backend/pkg/enums"
	pkgerrors "github.com/velvethaus/storefront-backend/pkg/errors"
	"github.com/velvethaus/storefront-backend/pkg/logger"
	"github.com/velvethaus/storefront-backend/pkg/pagination"
)

type orderListResponse struct {
	Orders     []*orders.OrderDTO `json:"orders"`
	NextCursor string             `json:"nextCursor,omitempty"`
}

type orderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// GetOrder returns one order by id.
func GetOrder(svc *orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := uuid.Parse(chi.URLParam(r, "orderID"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order id must be a valid uuid"))
			return
		}

		order, err := svc.GetByID(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, orders.NewOrderDTO(order))
	}
}

// ListOrders returns one page of a user's order history.
func ListOrders(svc *orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := uuid.Parse(r.URL.Query().Get("userId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "userId must be a valid uuid"))
			return
		}

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			limit, err = strconv.Atoi(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "limit must be an integer"))
				return
			}
		}

		page, next, err := svc.ListByUser(ctx, userID, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		dtos := make([]*orders.OrderDTO, 0, len(page))
		for i := range page {
			dtos = append(dtos, orders.NewOrderDTO(&page[i]))
		}

		responses.WriteSuccess(w, orderListResponse{Orders: dtos, NextCursor: next})
	}
}

// UpdateOrderStatus advances an order through the fulfillment state machine.
func UpdateOrderStatus(svc *orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := uuid.Parse(chi.URLParam(r, "orderID"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order id must be a valid uuid"))
			return
		}

		var req orderStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		target, err := enums.ParseOrderStatus(req.Status)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		order, err := svc.UpdateStatus(ctx, id, target)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, orders.NewOrderDTO(order))
	}
}
