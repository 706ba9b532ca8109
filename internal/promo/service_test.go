package promo

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/veloxcommerce/velox-backend/pkg/db/models"
	pkgerrors "github.com/veloxcommerce/velox-backend/pkg/errors"
)

func setupPromoTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
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
		`CREATE UNIQUE INDEX IF NOT EXISTS promo_codes_code_ci_uniq ON promo_codes (lower(code));`,
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

func newPromoService(t *testing.T, db *gorm.DB, now time.Time) (Service, Repository) {
	t.Helper()
	repo := NewRepository(db)
	svc, err := NewService(repo)
	require.NoError(t, err)
	svc.(*service).now = func() time.Time { return now }
	return svc, repo
}

func seedPromo(t *testing.T, repo Repository, promo *models.PromoCode) *models.PromoCode {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), promo))
	return promo
}

func TestValidateIsCaseInsensitive(t *testing.T) {
	db := setupPromoTestDB(t)
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	svc, repo := newPromoService(t, db, now)

	seedPromo(t, repo, &models.PromoCode{
		Code:     "SPRING" + uuid.NewString()[:8],
		Percent:  decimal.NewFromInt(10),
		IsActive: true,
	})

	promos, err := repo.List(context.Background())
	require.NoError(t, err)
	code := promos[0].Code

	found, err := svc.Validate(context.Background(), "  "+code+"  ")
	require.NoError(t, err)
	assert.Equal(t, code, found.Code)

	lower, err := svc.Validate(context.Background(), strings.ToLower(code))
	require.NoError(t, err)
	assert.Equal(t, found.ID, lower.ID)
}

func TestValidateDistinguishesFailureModes(t *testing.T) {
	db := setupPromoTestDB(t)
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	svc, repo := newPromoService(t, db, now)

	past := now.Add(-time.Hour)
	limit := 1

	inactive := seedPromo(t, repo, &models.PromoCode{
		Code: "INACTIVE-" + uuid.NewString()[:8], Percent: decimal.NewFromInt(5),
	})
	expired := seedPromo(t, repo, &models.PromoCode{
		Code: "EXPIRED-" + uuid.NewString()[:8], Percent: decimal.NewFromInt(5),
		IsActive: true, ExpiresAt: &past,
	})
	exhausted := seedPromo(t, repo, &models.PromoCode{
		Code: "USED-" + uuid.NewString()[:8], Percent: decimal.NewFromInt(5),
		IsActive: true, UsageLimit: &limit, UsageCount: 1,
	})

	_, err := svc.Validate(context.Background(), "NO-SUCH-CODE")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.Validate(context.Background(), inactive.Code)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Contains(t, err.Error(), "not active")

	_, err = svc.Validate(context.Background(), expired.Code)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")

	_, err = svc.Validate(context.Background(), exhausted.Code)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "usage limit")
}

func TestCreateRejectsDuplicateCodeIgnoringCase(t *testing.T) {
	db := setupPromoTestDB(t)
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	svc, _ := newPromoService(t, db, now)

	code := "DUP-" + uuid.NewString()[:8]
	_, err := svc.Create(context.Background(), CreateInput{Code: code, Percent: decimal.NewFromInt(15)})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateInput{Code: strings.ToLower(code), Percent: decimal.NewFromInt(20)})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestCreateValidatesPercentRange(t *testing.T) {
	db := setupPromoTestDB(t)
	svc, _ := newPromoService(t, db, time.Now())

	for _, percent := range []string{"0", "-5", "100.01"} {
		_, err := svc.Create(context.Background(), CreateInput{
			Code:    "PCT-" + uuid.NewString()[:8],
			Percent: decimal.RequireFromString(percent),
		})
		require.Error(t, err, "percent %s", percent)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	}

	_, err := svc.Create(context.Background(), CreateInput{
		Code:    "PCT-" + uuid.NewString()[:8],
		Percent: decimal.NewFromInt(100),
	})
	require.NoError(t, err)
}

func TestUpdateCannotLowerLimitBelowUsage(t *testing.T) {
	db := setupPromoTestDB(t)
	svc, repo := newPromoService(t, db, time.Now())

	promo := seedPromo(t, repo, &models.PromoCode{
		Code: "LIMIT-" + uuid.NewString()[:8], Percent: decimal.NewFromInt(10),
		IsActive: true, UsageCount: 3,
	})

	lower := 2
	_, err := svc.Update(context.Background(), promo.ID, UpdateInput{UsageLimit: &lower})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	higher := 5
	updated, err := svc.Update(context.Background(), promo.ID, UpdateInput{UsageLimit: &higher})
	require.NoError(t, err)
	require.NotNil(t, updated.UsageLimit)
	assert.Equal(t, 5, *updated.UsageLimit)
}

func TestRedeemClaimsSlotAndRecordsUsage(t *testing.T) {
	db := setupPromoTestDB(t)
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	_, repo := newPromoService(t, db, now)

	limit := 1
	promo := seedPromo(t, repo, &models.PromoCode{
		Code: "ONCE-" + uuid.NewString()[:8], Percent: decimal.NewFromInt(10),
		IsActive: true, UsageLimit: &limit,
	})

	customerID := uuid.New()
	redeemed, err := Redeem(context.Background(), repo, now, promo.ID, &models.PromoCodeUsage{
		CustomerID:     &customerID,
		DiscountAmount: decimal.RequireFromString("4.00"),
		OrderTotal:     decimal.RequireFromString("36.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, promo.ID, redeemed.ID)

	reloaded, err := repo.FindByID(context.Background(), promo.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.UsageCount)

	// the single slot is gone
	_, err = Redeem(context.Background(), repo, now, promo.ID, &models.PromoCodeUsage{
		DiscountAmount: decimal.Zero,
		OrderTotal:     decimal.Zero,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Contains(t, err.Error(), "usage limit")
}

func TestClaimUsageStopsAtLimit(t *testing.T) {
	db := setupPromoTestDB(t)
	_, repo := newPromoService(t, db, time.Now())

	limit := 2
	promo := seedPromo(t, repo, &models.PromoCode{
		Code: "TWICE-" + uuid.NewString()[:8], Percent: decimal.NewFromInt(10),
		IsActive: true, UsageLimit: &limit,
	})

	for i := 0; i < 2; i++ {
		claimed, err := repo.ClaimUsage(context.Background(), promo.ID)
		require.NoError(t, err)
		assert.True(t, claimed)
	}
	claimed, err := repo.ClaimUsage(context.Background(), promo.ID)
	require.NoError(t, err)
	assert.False(t, claimed)
}


func TestCreateDisabledCodePersistsInactive(t *testing.T) {
	db := setupPromoTestDB(t)
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	svc, repo := newPromoService(t, db, now)

	disabled := false
	code := "PAUSED" + uuid.NewString()[:8]
	created, err := svc.Create(context.Background(), CreateInput{
		Code:     code,
		Percent:  decimal.NewFromInt(10),
		IsActive: &disabled,
	})
	require.NoError(t, err)
	assert.False(t, created.IsActive)

	stored, err := repo.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	_, err = svc.Validate(context.Background(), code)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Contains(t, err.Error(), "not active")
}
