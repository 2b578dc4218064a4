package supports

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/coffeeworth/coffeeworth-backend/internal/fees"
	"github.com/coffeeworth/coffeeworth-backend/pkg/db/models"
	"github.com/coffeeworth/coffeeworth-backend/pkg/enums"
	"github.com/coffeeworth/coffeeworth-backend/pkg/pagination"
)

func setupSupportsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	users := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL,
  name TEXT,
  username TEXT,
  image TEXT,
  bio TEXT,
  coffee_price INTEGER NOT NULL DEFAULT 3000,
  theme_color TEXT NOT NULL DEFAULT '#FFDD00',
  social_links TEXT,
  bank_code TEXT,
  bank_account TEXT,
  bank_holder TEXT,
  email_notify INTEGER NOT NULL DEFAULT 1,
  is_public INTEGER NOT NULL DEFAULT 1,
  is_verified INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	supports := `
CREATE TABLE IF NOT EXISTS supports (
  id TEXT PRIMARY KEY,
  creator_id TEXT NOT NULL,
  coffee_count INTEGER NOT NULL,
  unit_price INTEGER NOT NULL,
  amount INTEGER NOT NULL,
  message TEXT,
  supporter_name TEXT,
  supporter_email TEXT,
  is_anonymous INTEGER NOT NULL DEFAULT 0,
  order_id TEXT NOT NULL UNIQUE,
  payment_key TEXT,
  payment_method TEXT,
  status TEXT NOT NULL DEFAULT 'PENDING',
  paid_at DATETIME,
  platform_fee INTEGER,
  pg_fee INTEGER,
  net_amount INTEGER,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(users).Error)
	require.NoError(t, db.Exec(supports).Error)
	return db
}

func newCreator(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	name := "Test Creator"
	user := &models.User{
		ID:          uuid.New(),
		Email:       username + "@example.com",
		Name:        &name,
		Username:    &username,
		CoffeePrice: 3000,
		ThemeColor:  "#FFDD00",
		IsPublic:    true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func newPendingSupport(t *testing.T, db *gorm.DB, creatorID uuid.UUID, orderID string, amount int) *models.Support {
	t.Helper()

	support := &models.Support{
		ID:          uuid.New(),
		CreatorID:   creatorID,
		CoffeeCount: amount / 3000,
		UnitPrice:   3000,
		Amount:      amount,
		OrderID:     orderID,
		Status:      enums.SupportStatusPending,
	}
	require.NoError(t, db.Create(support).Error)
	return support
}

func TestRepositoryFindByOrderID(t *testing.T) {
	db := setupSupportsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	creator := newCreator(t, db, "latte")
	created := newPendingSupport(t, db, creator.ID, "ORD_1712000000000_abcd1234", 9000)

	found, err := repo.FindByOrderID(ctx, created.OrderID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	require.NotNil(t, found.Creator)
	assert.Equal(t, creator.ID, found.Creator.ID)

	_, err = repo.FindByOrderID(ctx, "ORD_0_missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryCompletePayment(t *testing.T) {
	db := setupSupportsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	creator := newCreator(t, db, "mocha")
	support := newPendingSupport(t, db, creator.ID, "ORD_1712000000001_efgh5678", 9000)

	paidAt := time.Now().UTC().Truncate(time.Second)
	params := CompletePaymentParams{
		SupportID:     support.ID,
		PaymentKey:    "pay_key_123",
		PaymentMethod: "카드",
		PaidAt:        paidAt,
		Fees:          fees.Breakdown{Amount: 9000, PlatformFee: 450, PGFee: 252, NetAmount: 8298},
	}

	updated, err := repo.CompletePayment(ctx, params)
	require.NoError(t, err)
	assert.True(t, updated)

	reloaded, err := repo.FindByID(ctx, support.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.SupportStatusCompleted, reloaded.Status)
	require.NotNil(t, reloaded.PaymentKey)
	assert.Equal(t, "pay_key_123", *reloaded.PaymentKey)
	require.NotNil(t, reloaded.NetAmount)
	assert.Equal(t, 8298, *reloaded.NetAmount)
	require.NotNil(t, reloaded.PaidAt)

	// second confirmation loses the guarded update and must not rewrite
	// the settled row, even with different params
	rival := CompletePaymentParams{
		SupportID:     support.ID,
		PaymentKey:    "pay_key_999",
		PaymentMethod: "가상계좌",
		PaidAt:        paidAt.Add(time.Hour),
		Fees:          fees.Breakdown{Amount: 9000, PlatformFee: 900, PGFee: 500, NetAmount: 7600},
	}
	updated, err = repo.CompletePayment(ctx, rival)
	require.NoError(t, err)
	assert.False(t, updated)

	untouched, err := repo.FindByID(ctx, support.ID)
	require.NoError(t, err)
	require.NotNil(t, untouched.PaymentKey)
	assert.Equal(t, "pay_key_123", *untouched.PaymentKey)
	require.NotNil(t, untouched.PlatformFee)
	assert.Equal(t, 450, *untouched.PlatformFee)
	require.NotNil(t, untouched.NetAmount)
	assert.Equal(t, 8298, *untouched.NetAmount)
	require.NotNil(t, untouched.PaidAt)
	assert.Equal(t, paidAt.Unix(), untouched.PaidAt.Unix())
}

func TestRepositoryCompletePaymentRetriesFailed(t *testing.T) {
	db := setupSupportsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	creator := newCreator(t, db, "espresso")
	support := newPendingSupport(t, db, creator.ID, "ORD_1712000000002_ijkl9012", 3000)

	moved, err := repo.MarkFailed(ctx, support.ID)
	require.NoError(t, err)
	assert.True(t, moved)

	// a failed support may be confirmed on a fresh payment attempt
	updated, err := repo.CompletePayment(ctx, CompletePaymentParams{
		SupportID:     support.ID,
		PaymentKey:    "pay_key_retry",
		PaymentMethod: "카드",
		PaidAt:        time.Now(),
		Fees:          fees.Breakdown{Amount: 3000, PlatformFee: 150, PGFee: 84, NetAmount: 2766},
	})
	require.NoError(t, err)
	assert.True(t, updated)

	// MarkFailed never regresses a completed support
	moved, err = repo.MarkFailed(ctx, support.ID)
	require.NoError(t, err)
	assert.False(t, moved)
}

func TestRepositoryMarkRefunded(t *testing.T) {
	db := setupSupportsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	creator := newCreator(t, db, "americano")
	support := newPendingSupport(t, db, creator.ID, "ORD_1712000000003_mnop3456", 3000)

	moved, err := repo.MarkRefunded(ctx, support.ID)
	require.NoError(t, err)
	assert.False(t, moved, "pending supports cannot be refunded")

	_, err = repo.CompletePayment(ctx, CompletePaymentParams{
		SupportID:  support.ID,
		PaymentKey: "pay_key_refund",
		PaidAt:     time.Now(),
		Fees:       fees.Breakdown{Amount: 3000, PlatformFee: 150, PGFee: 84, NetAmount: 2766},
	})
	require.NoError(t, err)

	moved, err = repo.MarkRefunded(ctx, support.ID)
	require.NoError(t, err)
	assert.True(t, moved)
}

func TestRepositoryListByCreatorPaginates(t *testing.T) {
	db := setupSupportsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	creator := newCreator(t, db, "cappuccino")
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		support := &models.Support{
			ID:          uuid.New(),
			CreatorID:   creator.ID,
			CoffeeCount: 1,
			UnitPrice:   3000,
			Amount:      3000,
			OrderID:     uuid.NewString(),
			Status:      enums.SupportStatusPending,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(support).Error)
	}

	first, err := repo.ListByCreator(ctx, creator.ID, nil, 3)
	require.NoError(t, err)
	require.Len(t, first, 3)
	assert.True(t, first[0].CreatedAt.After(first[1].CreatedAt))

	cursor := &pagination.Cursor{CreatedAt: first[2].CreatedAt, ID: first[2].ID}
	second, err := repo.ListByCreator(ctx, creator.ID, cursor, 3)
	require.NoError(t, err)
	require.Len(t, second, 2)
	for _, row := range second {
		assert.True(t, row.CreatedAt.Before(first[2].CreatedAt))
	}
}

func TestRepositoryStatsByCreator(t *testing.T) {
	db := setupSupportsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	creator := newCreator(t, db, "flatwhite")
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	complete := func(orderID string, amount, net int, paidAt time.Time) {
		support := newPendingSupport(t, db, creator.ID, orderID, amount)
		_, err := repo.CompletePayment(ctx, CompletePaymentParams{
			SupportID:  support.ID,
			PaymentKey: "pay_" + orderID,
			PaidAt:     paidAt,
			Fees:       fees.Breakdown{Amount: amount, PlatformFee: amount / 20, PGFee: amount - net - amount/20, NetAmount: net},
		})
		require.NoError(t, err)
	}

	complete("ORD_1_a", 9000, 8298, monthStart.Add(24*time.Hour))
	complete("ORD_2_b", 3000, 2766, monthStart.Add(-24*time.Hour))
	// pending rows never count
	newPendingSupport(t, db, creator.ID, "ORD_3_c", 6000)

	stats, err := repo.StatsByCreator(ctx, creator.ID, monthStart)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalCount)
	assert.Equal(t, int64(12000), stats.TotalAmount)
	assert.Equal(t, int64(11064), stats.TotalNet)
	assert.Equal(t, int64(1), stats.MonthCount)
	assert.Equal(t, int64(9000), stats.MonthAmount)
	assert.Equal(t, int64(8298), stats.MonthNet)

	net, err := repo.SumCompletedNet(ctx, creator.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(11064), net)
}

func TestRepositoryFindStalePending(t *testing.T) {
	db := setupSupportsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	creator := newCreator(t, db, "macchiato")
	old := &models.Support{
		ID:          uuid.New(),
		CreatorID:   creator.ID,
		CoffeeCount: 1,
		UnitPrice:   3000,
		Amount:      3000,
		OrderID:     "ORD_4_old",
		Status:      enums.SupportStatusPending,
		CreatedAt:   time.Now().Add(-2 * time.Hour),
	}
	require.NoError(t, db.Create(old).Error)
	newPendingSupport(t, db, creator.ID, "ORD_5_fresh", 3000)

	stale, err := repo.FindStalePending(ctx, time.Now().Add(-30*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, old.ID, stale[0].ID)
}
