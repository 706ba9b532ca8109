package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/veloxcommerce/velox-backend/internal/cart"
	"github.com/veloxcommerce/velox-backend/internal/products"
	"github.com/veloxcommerce/velox-backend/internal/promo"
	"github.com/veloxcommerce/velox-backend/internal/wallet"
	"github.com/veloxcommerce/velox-backend/pkg/config"
	"github.com/veloxcommerce/velox-backend/pkg/db/models"
	"github.com/veloxcommerce/velox-backend/pkg/enums"
	pkgerrors "github.com/veloxcommerce/velox-backend/pkg/errors"
	"github.com/veloxcommerce/velox-backend/pkg/logger"
	"github.com/veloxcommerce/velox-backend/pkg/metrics"
	"github.com/veloxcommerce/velox-backend/pkg/pagination"
)

// Service turns carts into orders and walks orders through their lifecycle.
type Service interface {
	CreateFromCart(ctx context.Context, input CreateFromCartInput) (*models.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*models.Order, error)
	GetByID(ctx context.Context, customerID, orderID uuid.UUID) (*models.Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) ([]models.Order, string, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	db         txRunner
	repo       Repository
	cartRepo   cart.Repository
	products   products.Repository
	walletRepo wallet.Repository
	promoRepo  promo.Repository
	rewards    config.RewardsConfig
	metrics    *metrics.CommerceMetrics
	logg       *logger.Logger
	now        func() time.Time
}

// CreateFromCartInput carries everything checkout needs beyond the cart itself.
type CreateFromCartInput struct {
	CustomerID   uuid.UUID
	Delivery     DeliveryDetails
	WalletAmount decimal.Decimal
}

// DeliveryDetails is where and to whom the order ships.
type DeliveryDetails struct {
	RecipientName  string
	RecipientPhone string
	Address        string
}

// NewService wires an order service with its dependencies.
func NewService(db txRunner, repo Repository, cartRepo cart.Repository, productRepo products.Repository, walletRepo wallet.Repository, promoRepo promo.Repository, rewards config.RewardsConfig, commerceMetrics *metrics.CommerceMetrics, logg *logger.Logger) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("order service requires a transaction runner")
	}
	if repo == nil {
		return nil, fmt.Errorf("order service requires a repository")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("order service requires a cart repository")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("order service requires a product repository")
	}
	if walletRepo == nil {
		return nil, fmt.Errorf("order service requires a wallet repository")
	}
	if promoRepo == nil {
		return nil, fmt.Errorf("order service requires a promo repository")
	}
	if logg == nil {
		return nil, fmt.Errorf("order service requires a logger")
	}
	return &service{
		db:         db,
		repo:       repo,
		cartRepo:   cartRepo,
		products:   productRepo,
		walletRepo: walletRepo,
		promoRepo:  promoRepo,
		rewards:    rewards,
		metrics:    commerceMetrics,
		logg:       logg,
		now:        time.Now,
	}, nil
}

// CreateFromCart freezes the cart into an order. Snapshotting, promo
// redemption, the wallet debit, the order insert and the cart clear all commit
// or roll back together.
func (s *service) CreateFromCart(ctx context.Context, input CreateFromCartInput) (*models.Order, error) {
	if err := validateDelivery(input.Delivery); err != nil {
		s.metrics.IncCheckoutFailed("invalid_delivery")
		return nil, err
	}
	if input.WalletAmount.IsNegative() {
		s.metrics.IncCheckoutFailed("invalid_wallet_amount")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wallet amount cannot be negative")
	}

	var order *models.Order
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)

		basket, err := cartRepo.FindByCustomer(ctx, input.CustomerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if len(basket.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		items, subtotal, err := s.snapshotLines(ctx, tx, basket)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		now := s.now()
		order = &models.Order{
			ID:              uuid.New(),
			OrderNumber:     newOrderNumber(now),
			CustomerID:      input.CustomerID,
			RecipientName:   strings.TrimSpace(input.Delivery.RecipientName),
			RecipientPhone:  strings.TrimSpace(input.Delivery.RecipientPhone),
			DeliveryAddress: strings.TrimSpace(input.Delivery.Address),
			Subtotal:        subtotal,
			Status:          enums.OrderStatusPending,
			Items:           items,
		}

		total := subtotal
		var promoDiscount decimal.Decimal
		if basket.AppliedPromoID != nil && basket.PromoPercent != nil {
			promoDiscount = cart.PromoDiscount(subtotal, *basket.PromoPercent)
			order.PromoCodeID = basket.AppliedPromoID
			order.PromoDiscount = &promoDiscount
			total = total.Sub(promoDiscount)
		}

		if input.WalletAmount.IsPositive() {
			if input.WalletAmount.GreaterThan(total) {
				return pkgerrors.New(pkgerrors.CodeValidation, "wallet amount exceeds order total").WithDetails(map[string]any{
					"order_total": total.StringFixed(2),
					"requested":   input.WalletAmount.StringFixed(2),
				})
			}
			walletAmount := input.WalletAmount
			order.WalletDiscount = &walletAmount
			total = total.Sub(walletAmount)
		}
		order.TotalAmount = total

		// the order row goes in first so the usage and ledger rows below can
		// reference it; any later failure rolls the whole unit back
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		if order.PromoCodeID != nil {
			customerID := input.CustomerID
			if _, err := promo.Redeem(ctx, s.promoRepo.WithTx(tx), now, *order.PromoCodeID, &models.PromoCodeUsage{
				CustomerID:     &customerID,
				OrderID:        &order.ID,
				DiscountAmount: promoDiscount,
				OrderTotal:     subtotal.Sub(promoDiscount),
			}); err != nil {
				return err
			}
		}

		if order.WalletDiscount != nil {
			if _, err := wallet.ApplyDebit(ctx, s.walletRepo.WithTx(tx), wallet.DebitInput{
				CustomerID:  input.CustomerID,
				Amount:      *order.WalletDiscount,
				Description: fmt.Sprintf("Payment for order %s", order.OrderNumber),
				OrderID:     &order.ID,
			}); err != nil {
				return err
			}
		}

		return cart.ClearCart(ctx, cartRepo, basket.ID)
	})
	if err != nil {
		s.metrics.IncCheckoutFailed(failureReason(err))
		return nil, err
	}

	s.metrics.IncOrderCreated(order.PromoCodeID != nil, order.WalletDiscount != nil)
	s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "order created")
	return order, nil
}

// UpdateStatus applies a lifecycle transition. Any transition is accepted;
// Delivered additionally awards the wallet bonus exactly once per order.
func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*models.Order, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", status))
	}

	var order *models.Order
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var err error
		order, err = repo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		now := s.now()
		switch status {
		case enums.OrderStatusConfirmed:
			if order.ConfirmedAt == nil {
				order.ConfirmedAt = &now
			}
		case enums.OrderStatusDelivered:
			if order.DeliveredAt == nil {
				order.DeliveredAt = &now
			}
			if !order.BonusAwarded {
				if err := s.awardBonus(ctx, tx, order); err != nil {
					return err
				}
			}
		case enums.OrderStatusCancelled:
			if order.CancelledAt == nil {
				order.CancelledAt = &now
			}
		}
		order.Status = status

		if err := repo.Save(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) GetByID(ctx context.Context, customerID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) ([]models.Order, string, error) {
	orders, err := s.repo.ListByCustomer(ctx, customerID, params)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	next := ""
	if len(orders) > limit {
		orders = orders[:limit]
		last := orders[len(orders)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return orders, next, nil
}

// snapshotLines freezes cart lines into order items. Lines whose product has
// been deleted since they were added are skipped rather than failing checkout.
func (s *service) snapshotLines(ctx context.Context, tx *gorm.DB, basket *models.Cart) ([]models.OrderItem, decimal.Decimal, error) {
	productRepo := s.products.WithTx(tx)

	items := make([]models.OrderItem, 0, len(basket.Items))
	subtotal := decimal.Zero
	for _, line := range basket.Items {
		product, err := productRepo.FindByID(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				fields := map[string]any{"product_id": line.ProductID.String(), "cart_id": basket.ID.String()}
				s.logg.Warn(s.logg.WithFields(ctx, fields), "skipping cart line for deleted product")
				continue
			}
			return nil, decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}

		productID := product.ID
		lineTotal := line.LineTotal()
		items = append(items, models.OrderItem{
			ProductID:  &productID,
			Name:       product.Name,
			SKU:        product.SKU,
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice,
			TotalPrice: lineTotal,
		})
		subtotal = subtotal.Add(lineTotal)
	}
	return items, subtotal, nil
}

// awardBonus credits the delivery bonus when the order total meets the
// configured threshold. Guarded by BonusAwarded so re-delivery never pays twice.
func (s *service) awardBonus(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	if order.BonusAwarded {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "bonus already awarded")
	}
	if order.TotalAmount.LessThan(s.rewards.MinOrderAmountDecimal()) {
		return nil
	}

	bonus := order.TotalAmount.
		Mul(s.rewards.BonusPercentDecimal()).
		Div(decimal.NewFromInt(100)).
		Round(2)
	if !bonus.IsPositive() {
		return nil
	}

	orderID := order.ID
	if _, err := wallet.ApplyCredit(ctx, s.walletRepo.WithTx(tx), wallet.CreditInput{
		CustomerID:  order.CustomerID,
		Amount:      bonus,
		Description: fmt.Sprintf("Delivery bonus for order %s", order.OrderNumber),
		OrderID:     &orderID,
	}); err != nil {
		return err
	}

	order.BonusAwarded = true
	order.BonusAmount = &bonus
	s.metrics.ObserveBonus(bonus.InexactFloat64())
	return nil
}

func validateDelivery(delivery DeliveryDetails) error {
	if strings.TrimSpace(delivery.RecipientName) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient name is required")
	}
	if strings.TrimSpace(delivery.Address) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery address is required")
	}
	return nil
}

func failureReason(err error) string {
	appErr := pkgerrors.As(err)
	if appErr == nil {
		return "internal"
	}
	switch appErr.Code() {
	case pkgerrors.CodeValidation:
		return "validation"
	case pkgerrors.CodeNotFound:
		return "not_found"
	case pkgerrors.CodeConflict:
		return "conflict"
	default:
		return "dependency"
	}
}

func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix)
}
