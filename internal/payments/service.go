package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coffeeworth/coffeeworth-backend/internal/fees"
	"github.com/coffeeworth/coffeeworth-backend/internal/supports"
	"github.com/coffeeworth/coffeeworth-backend/pkg/enums"
	pkgerrors "github.com/coffeeworth/coffeeworth-backend/pkg/errors"
	"github.com/coffeeworth/coffeeworth-backend/pkg/logger"
	"github.com/coffeeworth/coffeeworth-backend/pkg/metrics"
	"github.com/coffeeworth/coffeeworth-backend/pkg/orderid"
	"github.com/coffeeworth/coffeeworth-backend/pkg/toss"
)

// Gateway is the slice of the payment gateway the orchestrator needs.
type Gateway interface {
	Confirm(ctx context.Context, paymentKey, orderID string, amount int) (*toss.Payment, error)
	Cancel(ctx context.Context, paymentKey, reason string) (*toss.Payment, error)
}

// ConfirmInput mirrors the gateway redirect parameters the client posts back.
type ConfirmInput struct {
	PaymentKey string
	OrderID    string
	Amount     int
}

// ConfirmResult tells the success page which support settled and whose page
// to send the supporter back to.
type ConfirmResult struct {
	SupportID       uuid.UUID `json:"support_id"`
	CreatorUsername string    `json:"creator_username"`
}

// Service orchestrates payment confirmation and refunds for supports.
type Service interface {
	Confirm(ctx context.Context, input ConfirmInput) (*ConfirmResult, error)
	Refund(ctx context.Context, supportID uuid.UUID, reason string) (*supports.SupportDTO, error)
}

type service struct {
	repo    supports.Repository
	gateway Gateway
	calc    *fees.Calculator
	metrics *metrics.PaymentMetrics
	log     *logger.Logger
	now     func() time.Time
}

// NewService wires the payment orchestrator with its dependencies.
func NewService(repo supports.Repository, gateway Gateway, calc *fees.Calculator, m *metrics.PaymentMetrics, log *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("supports repository required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if calc == nil {
		return nil, fmt.Errorf("fee calculator required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    repo,
		gateway: gateway,
		calc:    calc,
		metrics: m,
		log:     log,
		now:     time.Now,
	}, nil
}

// Confirm validates the redirect parameters, captures the payment at the
// gateway and settles fees onto the support row.
//
// The support only moves to COMPLETED through a guarded update, so two
// concurrent confirmations cannot both settle. A definitive gateway rejection
// marks the support FAILED and stays retryable; an indeterminate gateway
// outcome leaves the row PENDING for the reconciler to resolve.
func (s *service) Confirm(ctx context.Context, input ConfirmInput) (*ConfirmResult, error) {
	if input.PaymentKey == "" {
		s.metrics.IncOutcome(metrics.OutcomeRejectedInput)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment key is required")
	}
	if !orderid.Valid(input.OrderID) {
		s.metrics.IncOutcome(metrics.OutcomeRejectedInput)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id")
	}
	if input.Amount <= 0 {
		s.metrics.IncOutcome(metrics.OutcomeRejectedInput)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	ctx = s.log.WithOrderID(ctx, input.OrderID)

	support, err := s.repo.FindByOrderID(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.metrics.IncOutcome(metrics.OutcomeRejectedInput)
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "support not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load support")
	}

	switch support.Status {
	case enums.SupportStatusCompleted:
		// already settled, the repeat confirmation must not touch the row
		s.metrics.IncOutcome(metrics.OutcomeRejectedInput)
		s.log.Info(ctx, "confirmation replay on completed support")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "support already completed")
	case enums.SupportStatusRefunded:
		s.metrics.IncOutcome(metrics.OutcomeRejectedInput)
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "support already refunded")
	}

	if support.Amount != input.Amount {
		s.metrics.IncOutcome(metrics.OutcomeRejectedInput)
		s.log.Warn(ctx, "confirmation amount mismatch")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount does not match support").
			WithDetails(map[string]any{"expected": support.Amount, "got": input.Amount})
	}

	start := s.now()
	payment, err := s.gateway.Confirm(ctx, input.PaymentKey, input.OrderID, input.Amount)
	s.metrics.ObserveGateway("confirm", s.now().Sub(start))
	if err != nil {
		return nil, s.handleGatewayError(ctx, support.ID, err)
	}

	if !payment.Done() {
		s.metrics.IncOutcome(metrics.OutcomeFailed)
		if _, err := s.repo.MarkFailed(ctx, support.ID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark support failed")
		}
		return nil, pkgerrors.New(pkgerrors.CodePaymentFailed, "payment not captured").
			WithDetails(map[string]any{"gateway_status": payment.Status})
	}

	if payment.TotalAmount != support.Amount {
		// captured an unexpected amount; release the charge and fail the support
		s.log.Error(ctx, "gateway captured unexpected amount", nil)
		if _, cancelErr := s.gateway.Cancel(ctx, input.PaymentKey, "결제 금액 불일치"); cancelErr != nil {
			s.log.Error(ctx, "cancel after amount mismatch failed", cancelErr)
		}
		s.metrics.IncOutcome(metrics.OutcomeFailed)
		if _, err := s.repo.MarkFailed(ctx, support.ID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark support failed")
		}
		return nil, pkgerrors.New(pkgerrors.CodePaymentFailed, "captured amount does not match")
	}

	breakdown, err := s.calc.Calculate(support.Amount)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "calculate fees")
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete payment")
	}
	if !updated {
		// another confirmation won the guarded update between our read and write
		s.log.Warn(ctx, "confirmation lost settle race")
		s.metrics.IncOutcome(metrics.OutcomeRejectedInput)
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "support already settled")
	}

	s.metrics.IncOutcome(metrics.OutcomeCompleted)
	s.log.Info(ctx, "payment confirmed")

	result := &ConfirmResult{SupportID: support.ID}
	if support.Creator != nil && support.Creator.Username != nil {
		result.CreatorUsername = *support.Creator.Username
	}
	return result, nil
}

// Refund releases a completed payment back through the gateway and marks the
// support REFUNDED.
func (s *service) Refund(ctx context.Context, supportID uuid.UUID, reason string) (*supports.SupportDTO, error) {
	if supportID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "support id is required")
	}
	if reason == "" {
		reason = "고객 요청 환불"
	}

	support, err := s.repo.FindByID(ctx, supportID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "support not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load support")
	}
	ctx = s.log.WithOrderID(ctx, support.OrderID)

	if support.Status != enums.SupportStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only completed supports can be refunded")
	}
	if support.PaymentKey == nil || *support.PaymentKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "completed support missing payment key")
	}

	start := s.now()
	_, err = s.gateway.Cancel(ctx, *support.PaymentKey, reason)
	s.metrics.ObserveGateway("cancel", s.now().Sub(start))
	if err != nil {
		gwErr := toss.AsError(err)
		if gwErr != nil && gwErr.Rejected() {
			return nil, pkgerrors.Wrap(pkgerrors.CodePaymentFailed, err, "gateway rejected refund").
				WithDetails(map[string]any{"gateway_code": gwErr.Code})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refund at gateway")
	}

	moved, err := s.repo.MarkRefunded(ctx, support.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark support refunded")
	}
	if !moved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "support state changed during refund")
	}

	s.log.Info(ctx, "payment refunded")

	refunded, err := s.repo.FindByID(ctx, support.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload support")
	}
	return supports.FromModel(refunded), nil
}

// handleGatewayError maps a gateway failure onto the support row. Only a
// definitive rejection moves the row to FAILED; anything indeterminate leaves
// it PENDING because the charge may still have gone through.
func (s *service) handleGatewayError(ctx context.Context, supportID uuid.UUID, err error) error {
	gwErr := toss.AsError(err)
	if gwErr != nil && gwErr.Rejected() {
		s.metrics.IncOutcome(metrics.OutcomeFailed)
		if _, markErr := s.repo.MarkFailed(ctx, supportID); markErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, markErr, "mark support failed")
		}
		s.log.Warn(ctx, "gateway rejected payment")
		return pkgerrors.Wrap(pkgerrors.CodePaymentFailed, err, "gateway rejected payment").
			WithDetails(map[string]any{"gateway_code": gwErr.Code})
	}

	s.metrics.IncOutcome(metrics.OutcomeIndeterminate)
	s.log.Error(ctx, "gateway outcome indeterminate, leaving support pending", err)
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment gateway unavailable")
}
