package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coffeeworth/coffeeworth-backend/internal/fees"
	"github.com/coffeeworth/coffeeworth-backend/internal/supports"
	"github.com/coffeeworth/coffeeworth-backend/pkg/config"
	"github.com/coffeeworth/coffeeworth-backend/pkg/db/models"
	"github.com/coffeeworth/coffeeworth-backend/pkg/enums"
	"github.com/coffeeworth/coffeeworth-backend/pkg/logger"
	"github.com/coffeeworth/coffeeworth-backend/pkg/toss"
)

type fakeRepo struct {
	supports.Repository

	stale     []models.Support
	completed map[uuid.UUID]supports.CompletePaymentParams
	failed    map[uuid.UUID]bool
}

func newFakeRepo(stale ...models.Support) *fakeRepo {
	return &fakeRepo{
		stale:     stale,
		completed: map[uuid.UUID]supports.CompletePaymentParams{},
		failed:    map[uuid.UUID]bool{},
	}
}

func (f *fakeRepo) FindStalePending(ctx context.Context, before time.Time, limit int) ([]models.Support, error) {
	return f.stale, nil
}

func (f *fakeRepo) CompletePayment(ctx context.Context, params supports.CompletePaymentParams) (bool, error) {
	f.completed[params.SupportID] = params
	return true, nil
}

func (f *fakeRepo) MarkFailed(ctx context.Context, id uuid.UUID) (bool, error) {
	f.failed[id] = true
	return true, nil
}

type fakeGatewayReader struct {
	payments map[string]*toss.Payment
	errs     map[string]error
}

func (f *fakeGatewayReader) GetByOrderID(ctx context.Context, orderID string) (*toss.Payment, error) {
	if err, ok := f.errs[orderID]; ok {
		return nil, err
	}
	return f.payments[orderID], nil
}

type noopLock struct{}

func (noopLock) Acquire(ctx context.Context) (bool, error) { return true, nil }
func (noopLock) Release(ctx context.Context) error         { return nil }

func staleSupport(orderID string, amount int) models.Support {
	return models.Support{
		ID:          uuid.New(),
		CreatorID:   uuid.New(),
		CoffeeCount: amount / 3000,
		UnitPrice:   3000,
		Amount:      amount,
		OrderID:     orderID,
		Status:      enums.SupportStatusPending,
		CreatedAt:   time.Now().Add(-time.Hour),
	}
}

func newSweeper(t *testing.T, repo *fakeRepo, gateway *fakeGatewayReader) *Service {
	t.Helper()

	calc, err := fees.NewCalculator(decimal.RequireFromString("0.05"), decimal.RequireFromString("0.028"))
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Logger:  logger.New(logger.Options{ServiceName: "reconcile-test", Level: logger.ParseLevel("error")}),
		Repo:    repo,
		Gateway: gateway,
		Calc:    calc,
		Lock:    noopLock{},
		Config: config.ReconcilerConfig{
			PollInterval: time.Minute,
			StaleAfter:   30 * time.Minute,
			BatchSize:    50,
		},
	})
	require.NoError(t, err)
	return svc
}

func TestSweepSettlesCapturedPayment(t *testing.T) {
	support := staleSupport("ORD_1_captured", 9000)
	repo := newFakeRepo(support)
	approved := time.Now()
	gateway := &fakeGatewayReader{payments: map[string]*toss.Payment{
		"ORD_1_captured": {
			PaymentKey:  "pay_key_1",
			OrderID:     "ORD_1_captured",
			Status:      toss.StatusDone,
			Method:      "카드",
			TotalAmount: 9000,
			ApprovedAt:  &approved,
		},
	}}

	result, err := newSweeper(t, repo, gateway).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Scanned)
	assert.Equal(t, 1, result.Completed)

	params, ok := repo.completed[support.ID]
	require.True(t, ok)
	assert.Equal(t, "pay_key_1", params.PaymentKey)
	assert.Equal(t, 8298, params.Fees.NetAmount)
}

func TestSweepFailsTerminalPayment(t *testing.T) {
	support := staleSupport("ORD_2_expired", 3000)
	repo := newFakeRepo(support)
	gateway := &fakeGatewayReader{payments: map[string]*toss.Payment{
		"ORD_2_expired": {OrderID: "ORD_2_expired", Status: toss.StatusExpired},
	}}

	result, err := newSweeper(t, repo, gateway).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.True(t, repo.failed[support.ID])
}

func TestSweepFailsAbandonedCheckout(t *testing.T) {
	support := staleSupport("ORD_3_abandoned", 3000)
	repo := newFakeRepo(support)
	gateway := &fakeGatewayReader{errs: map[string]error{
		"ORD_3_abandoned": &toss.Error{Code: "NOT_FOUND_PAYMENT", Message: "존재하지 않는 결제", HTTPStatus: 404},
	}}

	result, err := newSweeper(t, repo, gateway).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.True(t, repo.failed[support.ID])
}

func TestSweepSkipsIndeterminateAndInFlight(t *testing.T) {
	unreachable := staleSupport("ORD_4_unreachable", 3000)
	inProgress := staleSupport("ORD_5_inprogress", 3000)
	repo := newFakeRepo(unreachable, inProgress)
	gateway := &fakeGatewayReader{
		errs: map[string]error{
			"ORD_4_unreachable": toss.NewIndeterminateError("gateway timeout"),
		},
		payments: map[string]*toss.Payment{
			"ORD_5_inprogress": {OrderID: "ORD_5_inprogress", Status: toss.StatusInProgress},
		},
	}

	result, err := newSweeper(t, repo, gateway).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Scanned)
	assert.Equal(t, 2, result.Skipped)
	assert.Empty(t, repo.failed)
	assert.Empty(t, repo.completed)
}

func TestSweepSkipsAmountMismatch(t *testing.T) {
	support := staleSupport("ORD_6_mismatch", 9000)
	repo := newFakeRepo(support)
	gateway := &fakeGatewayReader{payments: map[string]*toss.Payment{
		"ORD_6_mismatch": {OrderID: "ORD_6_mismatch", Status: toss.StatusDone, TotalAmount: 100},
	}}

	result, err := newSweeper(t, repo, gateway).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.Empty(t, repo.completed)
}
