package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/coffeeworth/coffeeworth-backend/pkg/enums"
)

// Support is one paid unit of creator support. Amount and unit price are
// snapshotted at creation; confirmation only adds gateway/fee metadata and
// flips the status.
type Support struct {
	ID             uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CreatorID      uuid.UUID           `gorm:"column:creator_id;type:uuid;not null;index"`
	Creator        *User               `gorm:"foreignKey:CreatorID"`
	CoffeeCount    int                 `gorm:"column:coffee_count;not null"`
	UnitPrice      int                 `gorm:"column:unit_price;not null"`
	Amount         int                 `gorm:"column:amount;not null"`
	Message        *string             `gorm:"column:message"`
	SupporterName  *string             `gorm:"column:supporter_name"`
	SupporterEmail *string             `gorm:"column:supporter_email"`
	IsAnonymous    bool                `gorm:"column:is_anonymous;not null;default:false"`
	OrderID        string              `gorm:"column:order_id;not null;uniqueIndex"`
	PaymentKey     *string             `gorm:"column:payment_key"`
	PaymentMethod  *string             `gorm:"column:payment_method"`
	Status         enums.SupportStatus `gorm:"column:status;not null;default:'PENDING'"`
	PaidAt         *time.Time          `gorm:"column:paid_at"`
	PlatformFee    *int                `gorm:"column:platform_fee"`
	PGFee          *int                `gorm:"column:pg_fee"`
	NetAmount      *int                `gorm:"column:net_amount"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
