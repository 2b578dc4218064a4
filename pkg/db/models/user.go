package models

import (
	"time"

	dbtypes "github.com/coffeeworth/coffeeworth-backend/pkg/db/types"
	"github.com/google/uuid"
)

// User is a creator account. Identity and sessions come from the external
// auth provider; this row carries the public page and settlement settings.
type User struct {
	ID          uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email       string              `gorm:"type:text;not null;uniqueIndex"`
	Name        *string             `gorm:"column:name"`
	Username    *string             `gorm:"column:username;uniqueIndex"`
	Image       *string             `gorm:"column:image"`
	Bio         *string             `gorm:"column:bio"`
	CoffeePrice int                 `gorm:"column:coffee_price;not null;default:3000"`
	ThemeColor  string              `gorm:"column:theme_color;not null;default:'#FFDD00'"`
	SocialLinks dbtypes.SocialLinks `gorm:"column:social_links;type:jsonb"`
	BankCode    *string             `gorm:"column:bank_code"`
	BankAccount *string             `gorm:"column:bank_account"`
	BankHolder  *string             `gorm:"column:bank_holder"`
	EmailNotify bool                `gorm:"column:email_notify;not null;default:true"`
	IsPublic    bool                `gorm:"column:is_public;not null;default:true"`
	IsVerified  bool                `gorm:"column:is_verified;not null;default:false"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// DisplayName is the label shown on public surfaces.
func (u User) DisplayName() string {
	if u.Name != nil && *u.Name != "" {
		return *u.Name
	}
	if u.Username != nil && *u.Username != "" {
		return *u.Username
	}
	return "크리에이터"
}
