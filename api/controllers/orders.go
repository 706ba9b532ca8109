package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/veloxcommerce/velox-backend/api/middleware"
	"github.com/veloxcommerce/velox-backend/api/responses"
	"github.com/veloxcommerce/velox-backend/api/validators"
	ordersvc "github.com/veloxcommerce/velox-backend/internal/orders"
	"github.com/veloxcommerce/velox-backend/pkg/db/models"
	"github.com/veloxcommerce/velox-backend/pkg/enums"
	pkgerrors "github.com/veloxcommerce/velox-backend/pkg/errors"
	"github.com/veloxcommerce/velox-backend/pkg/logger"
	"github.com/veloxcommerce/velox-backend/pkg/pagination"
)

type checkoutRequest struct {
	RecipientName  string `json:"recipient_name" validate:"required"`
	RecipientPhone string `json:"recipient_phone"`
	Address        string `json:"address" validate:"required"`
	WalletAmount   string `json:"wallet_amount"`
}

type updateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type orderItemResponse struct {
	ProductID  *uuid.UUID      `json:"product_id,omitempty"`
	Name       string          `json:"name"`
	SKU        string          `json:"sku"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

type orderResponse struct {
	ID              uuid.UUID           `json:"id"`
	OrderNumber     string              `json:"order_number"`
	Status          string              `json:"status"`
	RecipientName   string              `json:"recipient_name"`
	RecipientPhone  string              `json:"recipient_phone,omitempty"`
	DeliveryAddress string              `json:"delivery_address"`
	Subtotal        decimal.Decimal     `json:"subtotal"`
	PromoDiscount   *decimal.Decimal    `json:"promo_discount,omitempty"`
	WalletDiscount  *decimal.Decimal    `json:"wallet_discount,omitempty"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	BonusAwarded    bool                `json:"bonus_awarded"`
	BonusAmount     *decimal.Decimal    `json:"bonus_amount,omitempty"`
	ConfirmedAt     *time.Time          `json:"confirmed_at,omitempty"`
	DeliveredAt     *time.Time          `json:"delivered_at,omitempty"`
	CancelledAt     *time.Time          `json:"cancelled_at,omitempty"`
	Items           []orderItemResponse `json:"items"`
	CreatedAt       time.Time           `json:"created_at"`
}

type orderListResponse struct {
	Orders     []orderResponse `json:"orders"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

func toOrderResponse(order *models.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			ProductID:  item.ProductID,
			Name:       item.Name,
			SKU:        item.SKU,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.TotalPrice,
		})
	}
	return orderResponse{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		Status:          order.Status.String(),
		RecipientName:   order.RecipientName,
		RecipientPhone:  order.RecipientPhone,
		DeliveryAddress: order.DeliveryAddress,
		Subtotal:        order.Subtotal,
		PromoDiscount:   order.PromoDiscount,
		WalletDiscount:  order.WalletDiscount,
		TotalAmount:     order.TotalAmount,
		BonusAwarded:    order.BonusAwarded,
		BonusAmount:     order.BonusAmount,
		ConfirmedAt:     order.ConfirmedAt,
		DeliveredAt:     order.DeliveredAt,
		CancelledAt:     order.CancelledAt,
		Items:           items,
		CreatedAt:       order.CreatedAt,
	}
}

// Checkout freezes the caller's cart into an order.
func Checkout(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID := middleware.CustomerIDFromContext(r.Context())

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		walletAmount := decimal.Zero
		if payload.WalletAmount != "" {
			parsed, err := decimal.NewFromString(payload.WalletAmount)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid wallet amount"))
				return
			}
			walletAmount = parsed
		}

		order, err := svc.CreateFromCart(r.Context(), ordersvc.CreateFromCartInput{
			CustomerID: customerID,
			Delivery: ordersvc.DeliveryDetails{
				RecipientName:  payload.RecipientName,
				RecipientPhone: payload.RecipientPhone,
				Address:        payload.Address,
			},
			WalletAmount: walletAmount,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toOrderResponse(order))
	}
}

func OrderGet(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID := middleware.CustomerIDFromContext(r.Context())

		orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		order, err := svc.GetByID(r.Context(), customerID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toOrderResponse(order))
	}
}

func OrderList(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID := middleware.CustomerIDFromContext(r.Context())

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orders, next, err := svc.ListByCustomer(r.Context(), customerID, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := orderListResponse{Orders: make([]orderResponse, 0, len(orders)), NextCursor: next}
		for i := range orders {
			payload.Orders = append(payload.Orders, toOrderResponse(&orders[i]))
		}
		responses.WriteSuccess(w, payload)
	}
}

// OrderUpdateStatus applies a lifecycle transition, awarding the delivery
// bonus when the order lands on delivered.
func OrderUpdateStatus(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		var payload updateOrderStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status"))
			return
		}

		order, err := svc.UpdateStatus(r.Context(), orderID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toOrderResponse(order))
	}
}
