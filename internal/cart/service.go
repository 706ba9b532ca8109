package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veloxcommerce/velox-backend/internal/customers"
	"github.com/veloxcommerce/velox-backend/internal/products"
	"github.com/veloxcommerce/velox-backend/internal/promo"
	"github.com/veloxcommerce/velox-backend/pkg/db/models"
	pkgerrors "github.com/veloxcommerce/velox-backend/pkg/errors"
)

// Service exposes basket mutations and the derived pricing view.
type Service interface {
	GetCart(ctx context.Context, customerID uuid.UUID) (*Quote, error)
	AddItem(ctx context.Context, customerID uuid.UUID, productID uuid.UUID, quantity int) (*Quote, error)
	UpdateItem(ctx context.Context, customerID uuid.UUID, itemID uuid.UUID, quantity int) (*Quote, error)
	RemoveItem(ctx context.Context, customerID uuid.UUID, itemID uuid.UUID) (*Quote, error)
	Clear(ctx context.Context, customerID uuid.UUID) error
	ApplyPromoCode(ctx context.Context, customerID uuid.UUID, code string) (*Quote, error)
	RemovePromoCode(ctx context.Context, customerID uuid.UUID) (*Quote, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	db        txRunner
	repo      Repository
	products  products.Repository
	promos    promo.Service
	promoRepo promo.Repository
	customers customers.Repository
}

// NewService wires a cart service with its dependencies.
func NewService(db txRunner, repo Repository, productRepo products.Repository, promoSvc promo.Service, promoRepo promo.Repository, customerRepo customers.Repository) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("cart service requires a transaction runner")
	}
	if repo == nil {
		return nil, fmt.Errorf("cart service requires a repository")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("cart service requires a product repository")
	}
	if promoSvc == nil {
		return nil, fmt.Errorf("cart service requires a promo service")
	}
	if promoRepo == nil {
		return nil, fmt.Errorf("cart service requires a promo repository")
	}
	if customerRepo == nil {
		return nil, fmt.Errorf("cart service requires a customer repository")
	}
	return &service{
		db:        db,
		repo:      repo,
		products:  productRepo,
		promos:    promoSvc,
		promoRepo: promoRepo,
		customers: customerRepo,
	}, nil
}

func (s *service) GetCart(ctx context.Context, customerID uuid.UUID) (*Quote, error) {
	cart, err := s.getOrCreate(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return s.quote(ctx, cart)
}

func (s *service) AddItem(ctx context.Context, customerID uuid.UUID, productID uuid.UUID, quantity int) (*Quote, error) {
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	var cart *models.Cart
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		product, err := s.loadProduct(ctx, s.products.WithTx(tx), productID)
		if err != nil {
			return err
		}

		cart, err = getOrCreate(ctx, repo, s.customers.WithTx(tx), customerID)
		if err != nil {
			return err
		}

		existing, err := repo.FindItemByProduct(ctx, cart.ID, productID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
		}

		newQty := quantity
		if existing != nil {
			newQty += existing.Quantity
		}
		if err := checkStock(product, newQty); err != nil {
			return err
		}

		if existing != nil {
			// merging refreshes the captured price to the current catalog price
			existing.Quantity = newQty
			existing.UnitPrice = product.EffectivePrice()
			if err := repo.SaveItem(ctx, existing); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
			}
			return nil
		}

		item := &models.CartItem{
			CartID:    cart.ID,
			ProductID: product.ID,
			Quantity:  quantity,
			UnitPrice: product.EffectivePrice(),
		}
		if err := repo.CreateItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add cart item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.refreshQuote(ctx, customerID)
}

func (s *service) UpdateItem(ctx context.Context, customerID uuid.UUID, itemID uuid.UUID, quantity int) (*Quote, error) {
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cart, err := repo.FindByCustomer(ctx, customerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}

		item, err := repo.FindItem(ctx, cart.ID, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
		}

		// zero or negative means remove the line
		if quantity <= 0 {
			if err := repo.DeleteItem(ctx, item.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
			}
			return nil
		}

		if quantity <= item.Quantity {
			item.Quantity = quantity
			if err := repo.SaveItem(ctx, item); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
			}
			return nil
		}

		// increases revalidate stock and refresh the captured price
		product, err := s.loadProduct(ctx, s.products.WithTx(tx), item.ProductID)
		if err != nil {
			return err
		}
		if err := checkStock(product, quantity); err != nil {
			return err
		}
		item.Quantity = quantity
		item.UnitPrice = product.EffectivePrice()
		if err := repo.SaveItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.refreshQuote(ctx, customerID)
}

func (s *service) RemoveItem(ctx context.Context, customerID uuid.UUID, itemID uuid.UUID) (*Quote, error) {
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cart, err := repo.FindByCustomer(ctx, customerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		item, err := repo.FindItem(ctx, cart.ID, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
		}
		if err := repo.DeleteItem(ctx, item.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.refreshQuote(ctx, customerID)
}

func (s *service) Clear(ctx context.Context, customerID uuid.UUID) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cart, err := repo.FindByCustomer(ctx, customerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		return ClearCart(ctx, repo, cart.ID)
	})
}

func (s *service) ApplyPromoCode(ctx context.Context, customerID uuid.UUID, code string) (*Quote, error) {
	promoCode, err := s.promos.Validate(ctx, code)
	if err != nil {
		return nil, err
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cart, err := getOrCreate(ctx, repo, s.customers.WithTx(tx), customerID)
		if err != nil {
			return err
		}
		percent := promoCode.Percent
		cart.AppliedPromoID = &promoCode.ID
		cart.PromoPercent = &percent
		if err := repo.Save(ctx, cart); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply promo code")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.refreshQuote(ctx, customerID)
}

func (s *service) RemovePromoCode(ctx context.Context, customerID uuid.UUID) (*Quote, error) {
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cart, err := repo.FindByCustomer(ctx, customerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if err := repo.ClearPromo(ctx, cart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove promo code")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.refreshQuote(ctx, customerID)
}

// ClearCart empties a cart and drops its promo inside the caller's
// transaction. Checkout reuses this after the order row is written.
func ClearCart(ctx context.Context, repo Repository, cartID uuid.UUID) error {
	if err := repo.DeleteItems(ctx, cartID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart items")
	}
	if err := repo.ClearPromo(ctx, cartID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart promo")
	}
	return nil
}

func (s *service) getOrCreate(ctx context.Context, customerID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindByCustomer(ctx, customerID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		cart, err = getOrCreate(ctx, s.repo.WithTx(tx), s.customers.WithTx(tx), customerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func getOrCreate(ctx context.Context, repo Repository, customerRepo customers.Repository, customerID uuid.UUID) (*models.Cart, error) {
	cart, err := repo.FindByCustomer(ctx, customerID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	if err := customerRepo.Ensure(ctx, customerID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ensure customer")
	}
	cart = &models.Cart{CustomerID: customerID}
	if err := repo.Create(ctx, cart); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	return cart, nil
}

func (s *service) refreshQuote(ctx context.Context, customerID uuid.UUID) (*Quote, error) {
	cart, err := s.repo.FindByCustomer(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return s.quote(ctx, cart)
}

func (s *service) quote(ctx context.Context, cart *models.Cart) (*Quote, error) {
	ids := make([]uuid.UUID, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.ProductID)
	}
	rows, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	catalog := make(map[uuid.UUID]models.Product, len(rows))
	for _, product := range rows {
		catalog[product.ID] = product
	}

	promoCode := ""
	if cart.AppliedPromoID != nil {
		applied, err := s.promoRepo.FindByID(ctx, *cart.AppliedPromoID)
		if err == nil {
			promoCode = applied.Code
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promo code")
		}
	}

	quote := BuildQuote(cart, catalog, promoCode)
	return &quote, nil
}

func (s *service) loadProduct(ctx context.Context, repo products.Repository, productID uuid.UUID) (*models.Product, error) {
	product, err := repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
	}
	return product, nil
}

func checkStock(product *models.Product, requested int) error {
	if requested > product.StockQty {
		return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").WithDetails(map[string]any{
			"product_id": product.ID,
			"available":  product.StockQty,
			"requested":  requested,
		})
	}
	return nil
}
