package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/coffeeworth/coffeeworth-backend/pkg/enums"
)

// Payout records a settlement of accumulated net amounts to a creator's
// bank account. Bank fields are copied from the user at request time so
// later profile edits cannot redirect an in-flight payout.
type Payout struct {
	ID          uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID          `gorm:"column:user_id;type:uuid;not null;index"`
	Amount      int                `gorm:"column:amount;not null"`
	BankCode    string             `gorm:"column:bank_code;not null"`
	BankAccount string             `gorm:"column:bank_account;not null"`
	BankHolder  string             `gorm:"column:bank_holder;not null"`
	Status      enums.PayoutStatus `gorm:"column:status;not null;default:'PENDING'"`
	ProcessedAt *time.Time         `gorm:"column:processed_at"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
