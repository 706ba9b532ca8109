package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/veloxcommerce/velox-backend/api/middleware"
	"github.com/veloxcommerce/velox-backend/api/responses"
	"github.com/veloxcommerce/velox-backend/api/validators"
	walletsvc "github.com/veloxcommerce/velox-backend/internal/wallet"
	"github.com/veloxcommerce/velox-backend/pkg/db/models"
	"github.com/veloxcommerce/velox-backend/pkg/logger"
	"github.com/veloxcommerce/velox-backend/pkg/pagination"
)

type walletResponse struct {
	ID        uuid.UUID       `json:"id"`
	Balance   decimal.Decimal `json:"balance"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type walletTransactionResponse struct {
	ID            uuid.UUID       `json:"id"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Description   string          `json:"description,omitempty"`
	OrderID       *uuid.UUID      `json:"order_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

type walletTransactionListResponse struct {
	Transactions []walletTransactionResponse `json:"transactions"`
	NextCursor   string                      `json:"next_cursor,omitempty"`
}

func toWalletTransactionResponse(entry *models.WalletTransaction) walletTransactionResponse {
	return walletTransactionResponse{
		ID:            entry.ID,
		Type:          entry.Type.String(),
		Amount:        entry.Amount,
		BalanceBefore: entry.BalanceBefore,
		BalanceAfter:  entry.BalanceAfter,
		Description:   entry.Description,
		OrderID:       entry.OrderID,
		CreatedAt:     entry.CreatedAt,
	}
}

func WalletGet(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID := middleware.CustomerIDFromContext(r.Context())

		wallet, err := svc.GetOrCreateWallet(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, walletResponse{
			ID:        wallet.ID,
			Balance:   wallet.Balance,
			UpdatedAt: wallet.UpdatedAt,
		})
	}
}

func WalletTransactions(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID := middleware.CustomerIDFromContext(r.Context())

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, next, err := svc.GetTransactionHistory(r.Context(), customerID, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := walletTransactionListResponse{
			Transactions: make([]walletTransactionResponse, 0, len(entries)),
			NextCursor:   next,
		}
		for i := range entries {
			payload.Transactions = append(payload.Transactions, toWalletTransactionResponse(&entries[i]))
		}
		responses.WriteSuccess(w, payload)
	}
}
