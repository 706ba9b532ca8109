package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/veloxcommerce/velox-backend/internal/customers"
	"github.com/veloxcommerce/velox-backend/internal/products"
	"github.com/veloxcommerce/velox-backend/internal/promo"
	"github.com/veloxcommerce/velox-backend/pkg/db/models"
	pkgerrors "github.com/veloxcommerce/velox-backend/pkg/errors"
)

func setupCartTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS customers (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL DEFAULT '',
  email TEXT,
  phone TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  sku TEXT NOT NULL,
  price NUMERIC NOT NULL,
  discount_price NUMERIC,
  stock_qty INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  deleted_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS carts (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL UNIQUE,
  applied_promo_id TEXT,
  promo_percent NUMERIC,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price NUMERIC NOT NULL,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (cart_id, product_id)
);`,
		`CREATE TABLE IF NOT EXISTS promo_codes (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL,
  percent NUMERIC NOT NULL,
  expires_at DATETIME,
  is_active INTEGER NOT NULL DEFAULT 1,
  usage_limit INTEGER,
  usage_count INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS promo_code_usages (
  id TEXT PRIMARY KEY,
  promo_code_id TEXT NOT NULL,
  customer_id TEXT,
  order_id TEXT,
  discount_amount NUMERIC NOT NULL,
  order_total NUMERIC NOT NULL,
  used_at DATETIME
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r *gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newCartService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	promoRepo := promo.NewRepository(db)
	promoSvc, err := promo.NewService(promoRepo)
	require.NoError(t, err)
	svc, err := NewService(
		&gormTxRunner{db: db},
		NewRepository(db),
		products.NewRepository(db),
		promoSvc,
		promoRepo,
		customers.NewRepository(db),
	)
	require.NoError(t, err)
	return svc
}

func seedProduct(t *testing.T, db *gorm.DB, product *models.Product) *models.Product {
	t.Helper()
	require.NoError(t, db.Create(product).Error)
	return product
}

func TestAddItemCreatesCartAndLine(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	customerID := uuid.New()

	product := seedProduct(t, db, &models.Product{
		Name: "Mug", SKU: "MUG-" + uuid.NewString()[:8],
		Price: decimal.RequireFromString("10.00"), StockQty: 5, IsActive: true,
	})

	quote, err := svc.AddItem(context.Background(), customerID, product.ID, 2)
	require.NoError(t, err)

	require.Len(t, quote.Lines, 1)
	assert.Equal(t, 2, quote.Lines[0].Quantity)
	assert.True(t, quote.Subtotal.Equal(decimal.RequireFromString("20.00")))
	assert.Equal(t, customerID, quote.CustomerID)
}

func TestAddItemMergesAndRefreshesPrice(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	customerID := uuid.New()

	product := seedProduct(t, db, &models.Product{
		Name: "Teapot", SKU: "TEA-" + uuid.NewString()[:8],
		Price: decimal.RequireFromString("10.00"), StockQty: 10, IsActive: true,
	})

	_, err := svc.AddItem(context.Background(), customerID, product.ID, 1)
	require.NoError(t, err)

	// catalog markdown lands between the two adds
	markdown := decimal.RequireFromString("8.00")
	require.NoError(t, db.Model(&models.Product{}).
		Where("id = ?", product.ID).
		Update("discount_price", markdown).Error)

	quote, err := svc.AddItem(context.Background(), customerID, product.ID, 2)
	require.NoError(t, err)

	require.Len(t, quote.Lines, 1)
	assert.Equal(t, 3, quote.Lines[0].Quantity)
	assert.True(t, quote.Lines[0].UnitPrice.Equal(markdown))
	assert.True(t, quote.Subtotal.Equal(decimal.RequireFromString("24.00")))
}

func TestAddItemRejectsInsufficientStock(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	customerID := uuid.New()

	product := seedProduct(t, db, &models.Product{
		Name: "Vase", SKU: "VAS-" + uuid.NewString()[:8],
		Price: decimal.RequireFromString("15.00"), StockQty: 2, IsActive: true,
	})

	_, err := svc.AddItem(context.Background(), customerID, product.ID, 2)
	require.NoError(t, err)

	// merged quantity would exceed stock
	_, err = svc.AddItem(context.Background(), customerID, product.ID, 1)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	details, ok := appErr.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 2, details["available"])
	assert.Equal(t, 3, details["requested"])
}

func TestAddItemRejectsInactiveOrMissingProduct(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)

	inactive := seedProduct(t, db, &models.Product{
		Name: "Retired", SKU: "RET-" + uuid.NewString()[:8],
		Price: decimal.RequireFromString("5.00"), StockQty: 5, IsActive: false,
	})

	_, err := svc.AddItem(context.Background(), uuid.New(), inactive.ID, 1)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.AddItem(context.Background(), uuid.New(), uuid.New(), 1)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.AddItem(context.Background(), uuid.New(), inactive.ID, 0)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUpdateItemZeroQuantityRemovesLine(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	customerID := uuid.New()

	product := seedProduct(t, db, &models.Product{
		Name: "Bowl", SKU: "BWL-" + uuid.NewString()[:8],
		Price: decimal.RequireFromString("4.00"), StockQty: 9, IsActive: true,
	})

	quote, err := svc.AddItem(context.Background(), customerID, product.ID, 3)
	require.NoError(t, err)
	itemID := quote.Lines[0].ItemID

	quote, err = svc.UpdateItem(context.Background(), customerID, itemID, 0)
	require.NoError(t, err)
	assert.Empty(t, quote.Lines)
	assert.True(t, quote.Subtotal.IsZero())
}

func TestUpdateItemIncreaseRevalidatesStock(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	customerID := uuid.New()

	product := seedProduct(t, db, &models.Product{
		Name: "Plate", SKU: "PLT-" + uuid.NewString()[:8],
		Price: decimal.RequireFromString("6.00"), StockQty: 4, IsActive: true,
	})

	quote, err := svc.AddItem(context.Background(), customerID, product.ID, 2)
	require.NoError(t, err)
	itemID := quote.Lines[0].ItemID

	_, err = svc.UpdateItem(context.Background(), customerID, itemID, 5)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	quote, err = svc.UpdateItem(context.Background(), customerID, itemID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, quote.Lines[0].Quantity)
}

func TestRemoveItemUnknownLineIsNotFound(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	customerID := uuid.New()

	product := seedProduct(t, db, &models.Product{
		Name: "Tray", SKU: "TRY-" + uuid.NewString()[:8],
		Price: decimal.RequireFromString("3.00"), StockQty: 5, IsActive: true,
	})
	_, err := svc.AddItem(context.Background(), customerID, product.ID, 1)
	require.NoError(t, err)

	_, err = svc.RemoveItem(context.Background(), customerID, uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestClearIsIdempotent(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	customerID := uuid.New()

	// no cart yet
	require.NoError(t, svc.Clear(context.Background(), customerID))

	product := seedProduct(t, db, &models.Product{
		Name: "Jar", SKU: "JAR-" + uuid.NewString()[:8],
		Price: decimal.RequireFromString("2.00"), StockQty: 5, IsActive: true,
	})
	_, err := svc.AddItem(context.Background(), customerID, product.ID, 2)
	require.NoError(t, err)

	require.NoError(t, svc.Clear(context.Background(), customerID))
	require.NoError(t, svc.Clear(context.Background(), customerID))

	quote, err := svc.GetCart(context.Background(), customerID)
	require.NoError(t, err)
	assert.Empty(t, quote.Lines)
}

func TestApplyPromoCodeSnapshotsPercent(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	customerID := uuid.New()

	product := seedProduct(t, db, &models.Product{
		Name: "Kettle", SKU: "KTL-" + uuid.NewString()[:8],
		Price: decimal.RequireFromString("10.00"), StockQty: 5, IsActive: true,
	})
	_, err := svc.AddItem(context.Background(), customerID, product.ID, 2)
	require.NoError(t, err)

	code := "SAVE10-" + uuid.NewString()[:8]
	require.NoError(t, db.Create(&models.PromoCode{
		Code: code, Percent: decimal.NewFromInt(10), IsActive: true,
	}).Error)

	quote, err := svc.ApplyPromoCode(context.Background(), customerID, code)
	require.NoError(t, err)

	assert.Equal(t, code, quote.PromoCode)
	require.NotNil(t, quote.PromoPercent)
	assert.True(t, quote.PromoPercent.Equal(decimal.NewFromInt(10)))
	assert.True(t, quote.PromoDiscount.Equal(decimal.RequireFromString("2.00")))
	assert.True(t, quote.EstimatedTotal.Equal(decimal.RequireFromString("18.00")))
}

func TestApplyPromoCodeExhaustedLeavesCartUntouched(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	customerID := uuid.New()

	product := seedProduct(t, db, &models.Product{
		Name: "Pan", SKU: "PAN-" + uuid.NewString()[:8],
		Price: decimal.RequireFromString("20.00"), StockQty: 5, IsActive: true,
	})
	_, err := svc.AddItem(context.Background(), customerID, product.ID, 1)
	require.NoError(t, err)

	limit := 3
	code := "GONE-" + uuid.NewString()[:8]
	require.NoError(t, db.Create(&models.PromoCode{
		Code: code, Percent: decimal.NewFromInt(10), IsActive: true,
		UsageLimit: &limit, UsageCount: 3,
	}).Error)

	_, err = svc.ApplyPromoCode(context.Background(), customerID, code)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	quote, err := svc.GetCart(context.Background(), customerID)
	require.NoError(t, err)
	assert.Empty(t, quote.PromoCode)
	assert.Nil(t, quote.PromoPercent)
	assert.True(t, quote.PromoDiscount.IsZero())
}

func TestRemovePromoCodeIsIdempotent(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)
	customerID := uuid.New()

	product := seedProduct(t, db, &models.Product{
		Name: "Pot", SKU: "POT-" + uuid.NewString()[:8],
		Price: decimal.RequireFromString("10.00"), StockQty: 5, IsActive: true,
	})
	_, err := svc.AddItem(context.Background(), customerID, product.ID, 1)
	require.NoError(t, err)

	code := "OFF-" + uuid.NewString()[:8]
	require.NoError(t, db.Create(&models.PromoCode{
		Code: code, Percent: decimal.NewFromInt(5), IsActive: true,
	}).Error)

	_, err = svc.ApplyPromoCode(context.Background(), customerID, code)
	require.NoError(t, err)

	quote, err := svc.RemovePromoCode(context.Background(), customerID)
	require.NoError(t, err)
	assert.Empty(t, quote.PromoCode)
	assert.Nil(t, quote.PromoPercent)

	_, err = svc.RemovePromoCode(context.Background(), customerID)
	require.NoError(t, err)
}
