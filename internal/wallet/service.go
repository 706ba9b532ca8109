package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/veloxcommerce/velox-backend/internal/customers"
	"github.com/veloxcommerce/velox-backend/pkg/db/models"
	"github.com/veloxcommerce/velox-backend/pkg/enums"
	pkgerrors "github.com/veloxcommerce/velox-backend/pkg/errors"
	"github.com/veloxcommerce/velox-backend/pkg/pagination"
)

// Service exposes wallet balances and the ledger behind them.
type Service interface {
	GetOrCreateWallet(ctx context.Context, customerID uuid.UUID) (*models.UserWallet, error)
	CreditBonus(ctx context.Context, input CreditInput) (*models.WalletTransaction, error)
	DebitWallet(ctx context.Context, input DebitInput) (*models.WalletTransaction, error)
	GetTransactionHistory(ctx context.Context, customerID uuid.UUID, params pagination.Params) ([]models.WalletTransaction, string, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	db        txRunner
	repo      Repository
	customers customers.Repository
}

// CreditInput describes a wallet credit, usually a delivery bonus.
type CreditInput struct {
	CustomerID  uuid.UUID
	Amount      decimal.Decimal
	Description string
	OrderID     *uuid.UUID
}

// DebitInput describes a wallet spend against an order.
type DebitInput struct {
	CustomerID  uuid.UUID
	Amount      decimal.Decimal
	Description string
	OrderID     *uuid.UUID
}

// NewService wires a wallet service with its dependencies.
func NewService(db txRunner, repo Repository, customerRepo customers.Repository) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("wallet service requires a transaction runner")
	}
	if repo == nil {
		return nil, fmt.Errorf("wallet service requires a repository")
	}
	if customerRepo == nil {
		return nil, fmt.Errorf("wallet service requires a customer repository")
	}
	return &service{db: db, repo: repo, customers: customerRepo}, nil
}

func (s *service) GetOrCreateWallet(ctx context.Context, customerID uuid.UUID) (*models.UserWallet, error) {
	wallet, err := s.repo.FindByCustomer(ctx, customerID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		wallet, err = ensureWallet(ctx, s.repo.WithTx(tx), s.customers.WithTx(tx), customerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

func (s *service) CreditBonus(ctx context.Context, input CreditInput) (*models.WalletTransaction, error) {
	var entry *models.WalletTransaction
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.customers.WithTx(tx).Ensure(ctx, input.CustomerID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ensure customer")
		}
		var applyErr error
		entry, applyErr = ApplyCredit(ctx, s.repo.WithTx(tx), input)
		return applyErr
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) DebitWallet(ctx context.Context, input DebitInput) (*models.WalletTransaction, error) {
	var entry *models.WalletTransaction
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var applyErr error
		entry, applyErr = ApplyDebit(ctx, s.repo.WithTx(tx), input)
		return applyErr
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) GetTransactionHistory(ctx context.Context, customerID uuid.UUID, params pagination.Params) ([]models.WalletTransaction, string, error) {
	wallet, err := s.repo.FindByCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", nil
		}
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}

	entries, err := s.repo.ListTransactions(ctx, wallet.ID, params)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wallet transactions")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	next := ""
	if len(entries) > limit {
		entries = entries[:limit]
		last := entries[len(entries)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return entries, next, nil
}

// ApplyCredit appends a credit entry inside the caller's transaction, creating
// the wallet on first use. The checkout and delivery flows call this with
// their own transaction-scoped repository so the ledger math lives in one place.
func ApplyCredit(ctx context.Context, repo Repository, input CreditInput) (*models.WalletTransaction, error) {
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "credit amount must be positive")
	}

	wallet, err := repo.FindByCustomerForUpdate(ctx, input.CustomerID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
		}
		wallet = &models.UserWallet{CustomerID: input.CustomerID, Balance: decimal.Zero}
		if err := repo.Create(ctx, wallet); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create wallet")
		}
	}

	return appendEntry(ctx, repo, wallet, enums.WalletTransactionTypeCredit, input.Amount, input.Description, input.OrderID)
}

// ApplyDebit spends from the wallet inside the caller's transaction. The
// balance can never go negative; an oversized debit fails with the available
// and requested amounts in the error details.
func ApplyDebit(ctx context.Context, repo Repository, input DebitInput) (*models.WalletTransaction, error) {
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "debit amount must be positive")
	}

	wallet, err := repo.FindByCustomerForUpdate(ctx, input.CustomerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, insufficientBalance(decimal.Zero, input.Amount)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	if wallet.Balance.LessThan(input.Amount) {
		return nil, insufficientBalance(wallet.Balance, input.Amount)
	}

	return appendEntry(ctx, repo, wallet, enums.WalletTransactionTypeDebit, input.Amount, input.Description, input.OrderID)
}

func appendEntry(ctx context.Context, repo Repository, wallet *models.UserWallet, entryType enums.WalletTransactionType, amount decimal.Decimal, description string, orderID *uuid.UUID) (*models.WalletTransaction, error) {
	before := wallet.Balance
	after := before.Add(amount)
	if entryType == enums.WalletTransactionTypeDebit {
		after = before.Sub(amount)
	}

	if err := repo.UpdateBalance(ctx, wallet.ID, after); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update wallet balance")
	}

	entry := &models.WalletTransaction{
		WalletID:      wallet.ID,
		Type:          entryType,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		Description:   description,
		OrderID:       orderID,
	}
	if err := repo.CreateTransaction(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record wallet transaction")
	}
	wallet.Balance = after
	return entry, nil
}

func ensureWallet(ctx context.Context, repo Repository, customerRepo customers.Repository, customerID uuid.UUID) (*models.UserWallet, error) {
	if err := customerRepo.Ensure(ctx, customerID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ensure customer")
	}
	wallet, err := repo.FindByCustomer(ctx, customerID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	wallet = &models.UserWallet{CustomerID: customerID, Balance: decimal.Zero}
	if err := repo.Create(ctx, wallet); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create wallet")
	}
	return wallet, nil
}

func insufficientBalance(available, requested decimal.Decimal) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "insufficient wallet balance").WithDetails(map[string]any{
		"available": available.StringFixed(2),
		"requested": requested.StringFixed(2),
	})
}
