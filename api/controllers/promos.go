package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/veloxcommerce/velox-backend/api/responses"
	"github.com/veloxcommerce/velox-backend/api/validators"
	promosvc "github.com/veloxcommerce/velox-backend/internal/promo"
	"github.com/veloxcommerce/velox-backend/pkg/db/models"
	pkgerrors "github.com/veloxcommerce/velox-backend/pkg/errors"
	"github.com/veloxcommerce/velox-backend/pkg/logger"
)

type createPromoRequest struct {
	Code       string     `json:"code" validate:"required"`
	Percent    string     `json:"percent" validate:"required"`
	ExpiresAt  *time.Time `json:"expires_at"`
	IsActive   *bool      `json:"is_active"`
	UsageLimit *int       `json:"usage_limit" validate:"omitempty,min=1"`
}

type updatePromoRequest struct {
	Percent    *string    `json:"percent"`
	ExpiresAt  *time.Time `json:"expires_at"`
	IsActive   *bool      `json:"is_active"`
	UsageLimit *int       `json:"usage_limit" validate:"omitempty,min=1"`
}

type promoResponse struct {
	ID         uuid.UUID       `json:"id"`
	Code       string          `json:"code"`
	Percent    decimal.Decimal `json:"percent"`
	ExpiresAt  *time.Time      `json:"expires_at,omitempty"`
	IsActive   bool            `json:"is_active"`
	UsageLimit *int            `json:"usage_limit,omitempty"`
	UsageCount int             `json:"usage_count"`
	CreatedAt  time.Time       `json:"created_at"`
}

type promoListResponse struct {
	PromoCodes []promoResponse `json:"promo_codes"`
}

func toPromoResponse(promo *models.PromoCode) promoResponse {
	return promoResponse{
		ID:         promo.ID,
		Code:       promo.Code,
		Percent:    promo.Percent,
		ExpiresAt:  promo.ExpiresAt,
		IsActive:   promo.IsActive,
		UsageLimit: promo.UsageLimit,
		UsageCount: promo.UsageCount,
		CreatedAt:  promo.CreatedAt,
	}
}

func parsePercent(raw string) (decimal.Decimal, error) {
	percent, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid percent")
	}
	return percent, nil
}

// PromoValidate checks a code without consuming a usage slot.
func PromoValidate(svc promosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		promo, err := svc.Validate(r.Context(), r.URL.Query().Get("code"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toPromoResponse(promo))
	}
}

func PromoCreate(svc promosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createPromoRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		percent, err := parsePercent(payload.Percent)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		promo, err := svc.Create(r.Context(), promosvc.CreateInput{
			Code:       payload.Code,
			Percent:    percent,
			ExpiresAt:  payload.ExpiresAt,
			IsActive:   payload.IsActive,
			UsageLimit: payload.UsageLimit,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toPromoResponse(promo))
	}
}

func PromoList(svc promosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		promos, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := promoListResponse{PromoCodes: make([]promoResponse, 0, len(promos))}
		for i := range promos {
			payload.PromoCodes = append(payload.PromoCodes, toPromoResponse(&promos[i]))
		}
		responses.WriteSuccess(w, payload)
	}
}

func PromoUpdate(svc promosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		promoID, err := uuid.Parse(chi.URLParam(r, "promoID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid promo code id"))
			return
		}

		var payload updatePromoRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := promosvc.UpdateInput{
			ExpiresAt:  payload.ExpiresAt,
			IsActive:   payload.IsActive,
			UsageLimit: payload.UsageLimit,
		}
		if payload.Percent != nil {
			percent, err := parsePercent(*payload.Percent)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.Percent = &percent
		}

		promo, err := svc.Update(r.Context(), promoID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toPromoResponse(promo))
	}
}

func PromoDelete(svc promosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		promoID, err := uuid.Parse(chi.URLParam(r, "promoID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid promo code id"))
			return
		}

		if err := svc.Delete(r.Context(), promoID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
