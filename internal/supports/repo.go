package supports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coffeeworth/coffeeworth-backend/internal/fees"
	"github.com/coffeeworth/coffeeworth-backend/pkg/db/models"
	"github.com/coffeeworth/coffeeworth-backend/pkg/enums"
	"github.com/coffeeworth/coffeeworth-backend/pkg/pagination"
)

// CompletePaymentParams carries everything a confirmation writes in one update.
type CompletePaymentParams struct {
	SupportID     uuid.UUID
	PaymentKey    string
	PaymentMethod string
	PaidAt        time.Time
	Fees          fees.Breakdown
}

// Stats is the raw aggregate a creator dashboard reads.
type Stats struct {
	TotalCount  int64
	TotalAmount int64
	TotalNet    int64
	MonthCount  int64
	MonthAmount int64
	MonthNet    int64
}

// Repository manages persistence for supports.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, support *models.Support) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Support, error)
	FindByOrderID(ctx context.Context, orderID string) (*models.Support, error)
	CompletePayment(ctx context.Context, params CompletePaymentParams) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID) (bool, error)
	MarkRefunded(ctx context.Context, id uuid.UUID) (bool, error)
	ListByCreator(ctx context.Context, creatorID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Support, error)
	ListRecentCompleted(ctx context.Context, creatorID uuid.UUID, limit int) ([]models.Support, error)
	StatsByCreator(ctx context.Context, creatorID uuid.UUID, monthStart time.Time) (*Stats, error)
	SumCompletedNet(ctx context.Context, creatorID uuid.UUID) (int64, error)
	CountCompleted(ctx context.Context, creatorID uuid.UUID) (int64, error)
	FindStalePending(ctx context.Context, before time.Time, limit int) ([]models.Support, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a supports repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, support *models.Support) error {
	return r.db.WithContext(ctx).Create(support).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Support, error) {
	var support models.Support
	if err := r.db.WithContext(ctx).
		Preload("Creator").
		First(&support, "supports.id = ?", id).Error; err != nil {
		return nil, err
	}
	return &support, nil
}

func (r *repository) FindByOrderID(ctx context.Context, orderID string) (*models.Support, error) {
	var support models.Support
	if err := r.db.WithContext(ctx).
		Preload("Creator").
		First(&support, "order_id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &support, nil
}

// CompletePayment flips a support to COMPLETED in a single guarded update.
// The status predicate closes the window between two concurrent confirmations:
// only one of them sees an affected row.
func (r *repository) CompletePayment(ctx context.Context, params CompletePaymentParams) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Support{}).
		Where("id = ? AND status IN ?", params.SupportID, []string{
			string(enums.SupportStatusPending),
			string(enums.SupportStatusFailed),
		}).
		Updates(map[string]any{
			"status":         string(enums.SupportStatusCompleted),
			"payment_key":    params.PaymentKey,
			"payment_method": params.PaymentMethod,
			"paid_at":        params.PaidAt,
			"platform_fee":   params.Fees.PlatformFee,
			"pg_fee":         params.Fees.PGFee,
			"net_amount":     params.Fees.NetAmount,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkFailed records a definitive gateway rejection. Only pending rows move,
// so a completed support can never regress.
func (r *repository) MarkFailed(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Support{}).
		Where("id = ? AND status = ?", id, string(enums.SupportStatusPending)).
		Update("status", string(enums.SupportStatusFailed))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) MarkRefunded(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Support{}).
		Where("id = ? AND status = ?", id, string(enums.SupportStatusCompleted)).
		Update("status", string(enums.SupportStatusRefunded))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ListByCreator(ctx context.Context, creatorID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Support, error) {
	query := r.db.WithContext(ctx).
		Where("creator_id = ?", creatorID).
		Order("created_at DESC, id DESC").
		Limit(limit)

	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Support
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListRecentCompleted(ctx context.Context, creatorID uuid.UUID, limit int) ([]models.Support, error) {
	var rows []models.Support
	if err := r.db.WithContext(ctx).
		Where("creator_id = ? AND status = ?", creatorID, string(enums.SupportStatusCompleted)).
		Order("paid_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) StatsByCreator(ctx context.Context, creatorID uuid.UUID, monthStart time.Time) (*Stats, error) {
	type row struct {
		TotalCount  int64
		TotalAmount int64
		TotalNet    int64
		MonthCount  int64
		MonthAmount int64
		MonthNet    int64
	}

	var out row
	if err := r.db.WithContext(ctx).
		Model(&models.Support{}).
		Select(`
COUNT(*) AS total_count,
COALESCE(SUM(amount), 0) AS total_amount,
COALESCE(SUM(net_amount), 0) AS total_net,
COALESCE(SUM(CASE WHEN paid_at >= ? THEN 1 ELSE 0 END), 0) AS month_count,
COALESCE(SUM(CASE WHEN paid_at >= ? THEN amount ELSE 0 END), 0) AS month_amount,
COALESCE(SUM(CASE WHEN paid_at >= ? THEN net_amount ELSE 0 END), 0) AS month_net`,
			monthStart, monthStart, monthStart).
		Where("creator_id = ? AND status = ?", creatorID, string(enums.SupportStatusCompleted)).
		Scan(&out).Error; err != nil {
		return nil, err
	}

	return &Stats{
		TotalCount:  out.TotalCount,
		TotalAmount: out.TotalAmount,
		TotalNet:    out.TotalNet,
		MonthCount:  out.MonthCount,
		MonthAmount: out.MonthAmount,
		MonthNet:    out.MonthNet,
	}, nil
}

func (r *repository) SumCompletedNet(ctx context.Context, creatorID uuid.UUID) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.Support{}).
		Select("COALESCE(SUM(net_amount), 0)").
		Where("creator_id = ? AND status = ?", creatorID, string(enums.SupportStatusCompleted)).
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (r *repository) CountCompleted(ctx context.Context, creatorID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Support{}).
		Where("creator_id = ? AND status = ?", creatorID, string(enums.SupportStatusCompleted)).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindStalePending returns pending supports older than the cutoff so the
// reconciler can ask the gateway what actually happened to them.
func (r *repository) FindStalePending(ctx context.Context, before time.Time, limit int) ([]models.Support, error) {
	var rows []models.Support
	if err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", string(enums.SupportStatusPending), before).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
