package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/coffeeworth/coffeeworth-backend/internal/fees"
	"github.com/coffeeworth/coffeeworth-backend/internal/supports"
	"github.com/coffeeworth/coffeeworth-backend/pkg/config"
	"github.com/coffeeworth/coffeeworth-backend/pkg/db/models"
	"github.com/coffeeworth/coffeeworth-backend/pkg/logger"
	"github.com/coffeeworth/coffeeworth-backend/pkg/metrics"
	"github.com/coffeeworth/coffeeworth-backend/pkg/toss"
)

const jobName = "reconcile"

// GatewayReader is the read side of the payment gateway the sweep consults.
type GatewayReader interface {
	GetByOrderID(ctx context.Context, orderID string) (*toss.Payment, error)
}

// ServiceParams configure the reconciler.
type ServiceParams struct {
	Logger   *logger.Logger
	Repo     supports.Repository
	Gateway  GatewayReader
	Calc     *fees.Calculator
	Lock     Lock
	Metrics  *metrics.JobMetrics
	Config   config.ReconcilerConfig
	Interval time.Duration
}

// SweepResult summarizes one reconciliation pass.
type SweepResult struct {
	Scanned   int
	Completed int
	Failed    int
	Skipped   int
}

// Service resolves supports whose payment confirmation never finished.
// A confirmation that timed out or crashed leaves the row PENDING; the sweep
// asks the gateway what actually happened and settles the row accordingly.
type Service struct {
	logg     *logger.Logger
	repo     supports.Repository
	gateway  GatewayReader
	calc     *fees.Calculator
	lock     Lock
	metrics  *metrics.JobMetrics
	cfg      config.ReconcilerConfig
	interval time.Duration
	now      func() time.Time
}

// NewService builds a reconciler service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("supports repository required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("gateway reader required")
	}
	if params.Calc == nil {
		return nil, fmt.Errorf("fee calculator required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = params.Config.PollInterval
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Service{
		logg:     params.Logger,
		repo:     params.Repo,
		gateway:  params.Gateway,
		calc:     params.Calc,
		lock:     params.Lock,
		metrics:  params.Metrics,
		cfg:      params.Config,
		interval: interval,
		now:      time.Now,
	}, nil
}

// Run starts the sweep loop until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.runCycle(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "reconciler context canceled")
			return ctx.Err()
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

func (s *Service) runCycle(ctx context.Context) {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		s.logg.Error(ctx, "reconcile lock acquire failed", err)
		return
	}
	if !locked {
		s.logg.Info(ctx, "another reconciler instance is running; skipping this cycle")
		return
	}
	defer func() {
		if relErr := s.lock.Release(ctx); relErr != nil {
			s.logg.Error(ctx, "failed to release reconcile lock", relErr)
		}
	}()

	start := s.now()
	result, err := s.Sweep(ctx)
	duration := s.now().Sub(start)
	if err != nil {
		s.metrics.ObserveRun(jobName, metrics.JobResultFailure, duration)
		s.logg.Error(ctx, "reconcile sweep failed", err)
		return
	}
	s.metrics.ObserveRun(jobName, metrics.JobResultSuccess, duration)

	ctx = s.logg.WithFields(ctx, map[string]any{
		"scanned":   result.Scanned,
		"completed": result.Completed,
		"failed":    result.Failed,
		"skipped":   result.Skipped,
	})
	s.logg.Info(ctx, "reconcile sweep complete")
}

// Sweep runs one reconciliation pass over stale pending supports.
func (s *Service) Sweep(ctx context.Context) (*SweepResult, error) {
	cutoff := s.now().Add(-s.cfg.StaleAfter)
	stale, err := s.repo.FindStalePending(ctx, cutoff, s.cfg.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("find stale pending: %w", err)
	}

	result := &SweepResult{Scanned: len(stale)}
	for i := range stale {
		s.resolve(ctx, &stale[i], result)
	}
	return result, nil
}

func (s *Service) resolve(ctx context.Context, support *models.Support, result *SweepResult) {
	ctx = s.logg.WithOrderID(ctx, support.OrderID)

	payment, err := s.gateway.GetByOrderID(ctx, support.OrderID)
	if err != nil {
		gwErr := toss.AsError(err)
		if gwErr != nil && gwErr.Rejected() {
			// the gateway has no payment for this order; the supporter
			// abandoned checkout before paying
			s.failSupport(ctx, support, result)
			return
		}
		result.Skipped++
		s.logg.Warn(ctx, "gateway lookup indeterminate, retrying next sweep")
		return
	}

	switch {
	case payment.Done():
		s.completeSupport(ctx, support, payment, result)
	case payment.Terminal():
		s.failSupport(ctx, support, result)
	default:
		// READY or IN_PROGRESS: the payment may still complete
		result.Skipped++
	}
}

func (s *Service) completeSupport(ctx context.Context, support *models.Support, payment *toss.Payment, result *SweepResult) {
	if payment.TotalAmount != support.Amount {
		s.logg.Error(ctx, "reconciled payment amount mismatch, leaving pending", nil)
		result.Skipped++
		return
	}

	breakdown, err := s.calc.Calculate(support.Amount)
	if err != nil {
		s.logg.Error(ctx, "fee calculation failed during reconcile", err)
		result.Skipped++
		return
	}

	paidAt := s.now()
	if payment.ApprovedAt != nil {
		paidAt = *payment.ApprovedAt
	}

	updated, err := s.repo.CompletePayment(ctx, supports.CompletePaymentParams{
		SupportID:     support.ID,
		PaymentKey:    payment.PaymentKey,
		PaymentMethod: payment.Method,
		PaidAt:        paidAt,
		Fees:          breakdown,
	})
	if err != nil {
		s.logg.Error(ctx, "reconcile settle failed", err)
		result.Skipped++
		return
	}
	if !updated {
		result.Skipped++
		return
	}

	result.Completed++
	s.metrics.IncResolution("completed")
	s.logg.Info(ctx, "stale support settled from gateway state")
}

func (s *Service) failSupport(ctx context.Context, support *models.Support, result *SweepResult) {
	moved, err := s.repo.MarkFailed(ctx, support.ID)
	if err != nil {
		s.logg.Error(ctx, "reconcile mark failed errored", err)
		result.Skipped++
		return
	}
	if !moved {
		result.Skipped++
		return
	}
	result.Failed++
	s.metrics.IncResolution("failed")
	s.logg.Info(ctx, "stale support marked failed from gateway state")
}
