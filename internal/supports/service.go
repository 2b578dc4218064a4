package supports

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coffeeworth/coffeeworth-backend/pkg/db/models"
	"github.com/coffeeworth/coffeeworth-backend/pkg/enums"
	pkgerrors "github.com/coffeeworth/coffeeworth-backend/pkg/errors"
	"github.com/coffeeworth/coffeeworth-backend/pkg/logger"
	"github.com/coffeeworth/coffeeworth-backend/pkg/orderid"
	"github.com/coffeeworth/coffeeworth-backend/pkg/pagination"
)

const (
	// MinCoffeeCount and MaxCoffeeCount bound a single support.
	MinCoffeeCount = 1
	MaxCoffeeCount = 100
	// MaxMessageLength bounds the supporter message in runes.
	MaxMessageLength = 200
	// MaxSupporterNameLength bounds the supporter display name in runes.
	MaxSupporterNameLength = 50
)

// CreatorFinder resolves the creator a support targets.
type CreatorFinder interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// CreateSupportInput captures a new support before payment.
type CreateSupportInput struct {
	CreatorUsername string
	CoffeeCount     int
	Message         *string
	SupporterName   *string
	SupporterEmail  *string
	IsAnonymous     bool
}

// Service defines operations on supports outside the payment flow.
type Service interface {
	Create(ctx context.Context, input CreateSupportInput) (*SupportDTO, error)
	GetByID(ctx context.Context, id uuid.UUID) (*SupportDTO, error)
	ListForCreator(ctx context.Context, creatorID uuid.UUID, params pagination.Params) (*SupportPage, error)
	StatsForCreator(ctx context.Context, creatorID uuid.UUID, now time.Time) (*StatsDTO, error)
}

type service struct {
	repo     Repository
	creators CreatorFinder
	log      *logger.Logger
}

// NewService wires a supports service with its dependencies.
func NewService(repo Repository, creators CreatorFinder, log *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("supports repository required")
	}
	if creators == nil {
		return nil, fmt.Errorf("creator finder required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, creators: creators, log: log}, nil
}

func (s *service) Create(ctx context.Context, input CreateSupportInput) (*SupportDTO, error) {
	if strings.TrimSpace(input.CreatorUsername) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "creator username is required")
	}
	if input.CoffeeCount < MinCoffeeCount || input.CoffeeCount > MaxCoffeeCount {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("coffee count must be between %d and %d", MinCoffeeCount, MaxCoffeeCount))
	}
	if input.Message != nil && utf8.RuneCountInString(*input.Message) > MaxMessageLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("message must be at most %d characters", MaxMessageLength))
	}
	if input.SupporterName != nil && utf8.RuneCountInString(*input.SupporterName) > MaxSupporterNameLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("supporter name must be at most %d characters", MaxSupporterNameLength))
	}
	if email := normalizeOptional(input.SupporterEmail); email != nil {
		if _, err := mail.ParseAddress(*email); err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "supporter email is invalid")
		}
	}

	creator, err := s.creators.FindByUsername(ctx, input.CreatorUsername)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "creator not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load creator")
	}
	if !creator.IsPublic {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "creator page is not public")
	}

	orderID, err := orderid.New()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint order id")
	}

	support := &models.Support{
		ID:             uuid.New(),
		CreatorID:      creator.ID,
		CoffeeCount:    input.CoffeeCount,
		UnitPrice:      creator.CoffeePrice,
		Amount:         creator.CoffeePrice * input.CoffeeCount,
		Message:        normalizeOptional(input.Message),
		SupporterName:  normalizeOptional(input.SupporterName),
		SupporterEmail: normalizeOptional(input.SupporterEmail),
		IsAnonymous:    input.IsAnonymous,
		OrderID:        orderID,
		Status:         enums.SupportStatusPending,
	}

	if err := s.repo.Create(ctx, support); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create support")
	}

	ctx = s.log.WithOrderID(ctx, support.OrderID)
	s.log.Info(ctx, "support created")

	support.Creator = creator
	return FromModel(support), nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*SupportDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "support id is required")
	}

	support, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "support not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load support")
	}
	if support.Status != enums.SupportStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "support is not completed")
	}
	return FromModelAnonymized(support), nil
}

func (s *service) ListForCreator(ctx context.Context, creatorID uuid.UUID, params pagination.Params) (*SupportPage, error) {
	if creatorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "creator id is required")
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListByCreator(ctx, creatorID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list supports")
	}

	page := &SupportPage{Items: make([]SupportDTO, 0, limit)}
	if pagination.HasMore(len(rows), params.Limit) {
		rows = rows[:limit]
		page.HasMore = true
		last := rows[len(rows)-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	for i := range rows {
		page.Items = append(page.Items, *FromModelAnonymized(&rows[i]))
	}
	return page, nil
}

func (s *service) StatsForCreator(ctx context.Context, creatorID uuid.UUID, now time.Time) (*StatsDTO, error) {
	if creatorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "creator id is required")
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	stats, err := s.repo.StatsByCreator(ctx, creatorID, monthStart)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load support stats")
	}

	return &StatsDTO{
		TotalCount:  stats.TotalCount,
		TotalAmount: stats.TotalAmount,
		TotalNet:    stats.TotalNet,
		MonthCount:  stats.MonthCount,
		MonthAmount: stats.MonthAmount,
		MonthNet:    stats.MonthNet,
	}, nil
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
