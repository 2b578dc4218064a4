package payouts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coffeeworth/coffeeworth-backend/pkg/db/models"
	"github.com/coffeeworth/coffeeworth-backend/pkg/enums"
)

// Repository manages persistence for payout requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payout *models.Payout) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payout, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Payout, error)
	SumRequested(ctx context.Context, userID uuid.UUID) (int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.PayoutStatus) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payouts repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payout *models.Payout) error {
	return r.db.WithContext(ctx).Create(payout).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	var payout models.Payout
	if err := r.db.WithContext(ctx).First(&payout, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Payout, error) {
	var rows []models.Payout
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// SumRequested totals every payout that still holds funds: failed payouts
// release their amount back to the pending balance.
func (r *repository) SumRequested(ctx context.Context, userID uuid.UUID) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.Payout{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ? AND status <> ?", userID, string(enums.PayoutStatusFailed)).
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// UpdateStatus moves a payout between states with a guard on the current state.
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.PayoutStatus) (bool, error) {
	updates := map[string]any{"status": string(to)}
	if to == enums.PayoutStatusCompleted || to == enums.PayoutStatusFailed {
		updates["processed_at"] = gorm.Expr("CURRENT_TIMESTAMP")
	}
	res := r.db.WithContext(ctx).
		Model(&models.Payout{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
