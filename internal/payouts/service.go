package payouts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coffeeworth/coffeeworth-backend/internal/creators"
	"github.com/coffeeworth/coffeeworth-backend/internal/supports"
	"github.com/coffeeworth/coffeeworth-backend/pkg/config"
	"github.com/coffeeworth/coffeeworth-backend/pkg/db/models"
	"github.com/coffeeworth/coffeeworth-backend/pkg/enums"
	pkgerrors "github.com/coffeeworth/coffeeworth-backend/pkg/errors"
	"github.com/coffeeworth/coffeeworth-backend/pkg/logger"
)

// payoutHistoryLimit caps how many past payouts the balance view returns.
const payoutHistoryLimit = 50

// PayoutDTO is the API shape of a payout request.
type PayoutDTO struct {
	ID          uuid.UUID          `json:"id"`
	Amount      int                `json:"amount"`
	BankCode    string             `json:"bank_code"`
	BankAccount string             `json:"bank_account"`
	BankHolder  string             `json:"bank_holder"`
	Status      enums.PayoutStatus `json:"status"`
	ProcessedAt *time.Time         `json:"processed_at,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

// BalanceDTO is a creator's settlement overview.
type BalanceDTO struct {
	TotalNet      int64       `json:"total_net"`
	PaidOut       int64       `json:"paid_out"`
	PendingAmount int64       `json:"pending_amount"`
	MinPayout     int         `json:"min_payout"`
	Payouts       []PayoutDTO `json:"payouts"`
}

// Service defines creator payout operations.
type Service interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (*BalanceDTO, error)
	Request(ctx context.Context, userID uuid.UUID) (*PayoutDTO, error)
}

type service struct {
	repo     Repository
	supports supports.Repository
	creators creators.Repository
	cfg      config.PayoutConfig
	log      *logger.Logger
}

// NewService wires a payouts service with its dependencies.
func NewService(repo Repository, supportsRepo supports.Repository, creatorsRepo creators.Repository, cfg config.PayoutConfig, log *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payouts repository required")
	}
	if supportsRepo == nil {
		return nil, fmt.Errorf("supports repository required")
	}
	if creatorsRepo == nil {
		return nil, fmt.Errorf("creators repository required")
	}
	if cfg.MinAmount <= 0 {
		return nil, fmt.Errorf("minimum payout amount must be positive")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		supports: supportsRepo,
		creators: creatorsRepo,
		cfg:      cfg,
		log:      log,
	}, nil
}

func (s *service) GetBalance(ctx context.Context, userID uuid.UUID) (*BalanceDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	totalNet, requested, err := s.balances(ctx, userID)
	if err != nil {
		return nil, err
	}

	history, err := s.repo.ListByUser(ctx, userID, payoutHistoryLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payouts")
	}

	balance := &BalanceDTO{
		TotalNet:      totalNet,
		PaidOut:       requested,
		PendingAmount: totalNet - requested,
		MinPayout:     s.cfg.MinAmount,
		Payouts:       make([]PayoutDTO, 0, len(history)),
	}
	for i := range history {
		balance.Payouts = append(balance.Payouts, fromModel(&history[i]))
	}
	return balance, nil
}

// Request turns the creator's full pending balance into one payout row.
// Bank details are snapshotted so later profile edits cannot touch it.
func (s *service) Request(ctx context.Context, userID uuid.UUID) (*PayoutDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	creator, err := s.creators.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}
	if creator.BankCode == nil || creator.BankAccount == nil || creator.BankHolder == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bank account details required before requesting a payout")
	}

	totalNet, requested, err := s.balances(ctx, userID)
	if err != nil {
		return nil, err
	}
	pending := totalNet - requested
	if pending < int64(s.cfg.MinAmount) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("pending amount must be at least %d", s.cfg.MinAmount)).
			WithDetails(map[string]any{"pending_amount": pending, "min_payout": s.cfg.MinAmount})
	}

	payout := &models.Payout{
		ID:          uuid.New(),
		UserID:      userID,
		Amount:      int(pending),
		BankCode:    *creator.BankCode,
		BankAccount: *creator.BankAccount,
		BankHolder:  *creator.BankHolder,
		Status:      enums.PayoutStatusPending,
	}
	if err := s.repo.Create(ctx, payout); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payout")
	}

	ctx = s.log.WithUserID(ctx, userID.String())
	s.log.Info(ctx, "payout requested")

	dto := fromModel(payout)
	return &dto, nil
}

func (s *service) balances(ctx context.Context, userID uuid.UUID) (totalNet, requested int64, err error) {
	totalNet, err = s.supports.SumCompletedNet(ctx, userID)
	if err != nil {
		return 0, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum completed net")
	}
	requested, err = s.repo.SumRequested(ctx, userID)
	if err != nil {
		return 0, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum requested payouts")
	}
	return totalNet, requested, nil
}

func fromModel(payout *models.Payout) PayoutDTO {
	return PayoutDTO{
		ID:          payout.ID,
		Amount:      payout.Amount,
		BankCode:    payout.BankCode,
		BankAccount: payout.BankAccount,
		BankHolder:  payout.BankHolder,
		Status:      payout.Status,
		ProcessedAt: payout.ProcessedAt,
		CreatedAt:   payout.CreatedAt,
	}
}
