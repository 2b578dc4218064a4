package creators

import (
	"time"

	"github.com/google/uuid"

	"github.com/coffeeworth/coffeeworth-backend/internal/supports"
	"github.com/coffeeworth/coffeeworth-backend/pkg/db/models"
	dbtypes "github.com/coffeeworth/coffeeworth-backend/pkg/db/types"
)

// ProfileDTO is a creator's public support page.
type ProfileDTO struct {
	ID             uuid.UUID             `json:"id"`
	Username       string                `json:"username"`
	DisplayName    string                `json:"display_name"`
	Image          *string               `json:"image,omitempty"`
	Bio            *string               `json:"bio,omitempty"`
	CoffeePrice    int                   `json:"coffee_price"`
	ThemeColor     string                `json:"theme_color"`
	SocialLinks    dbtypes.SocialLinks   `json:"social_links,omitempty"`
	SupportCount   int64                 `json:"support_count"`
	RecentSupports []supports.SupportDTO `json:"recent_supports"`
}

// MeDTO is the creator's own account view, bank settlement details included.
type MeDTO struct {
	ID          uuid.UUID           `json:"id"`
	Email       string              `json:"email"`
	Name        *string             `json:"name,omitempty"`
	Username    *string             `json:"username,omitempty"`
	DisplayName string              `json:"display_name"`
	Image       *string             `json:"image,omitempty"`
	Bio         *string             `json:"bio,omitempty"`
	CoffeePrice int                 `json:"coffee_price"`
	ThemeColor  string              `json:"theme_color"`
	SocialLinks dbtypes.SocialLinks `json:"social_links,omitempty"`
	BankCode    *string             `json:"bank_code,omitempty"`
	BankAccount *string             `json:"bank_account,omitempty"`
	BankHolder  *string             `json:"bank_holder,omitempty"`
	EmailNotify bool                `json:"email_notify"`
	IsPublic    bool                `json:"is_public"`
	IsVerified  bool                `json:"is_verified"`
	CreatedAt   time.Time           `json:"created_at"`
}

func meFromModel(user *models.User) *MeDTO {
	if user == nil {
		return nil
	}
	return &MeDTO{
		ID:          user.ID,
		Email:       user.Email,
		Name:        user.Name,
		Username:    user.Username,
		DisplayName: user.DisplayName(),
		Image:       user.Image,
		Bio:         user.Bio,
		CoffeePrice: user.CoffeePrice,
		ThemeColor:  user.ThemeColor,
		SocialLinks: user.SocialLinks,
		BankCode:    user.BankCode,
		BankAccount: user.BankAccount,
		BankHolder:  user.BankHolder,
		EmailNotify: user.EmailNotify,
		IsPublic:    user.IsPublic,
		IsVerified:  user.IsVerified,
		CreatedAt:   user.CreatedAt,
	}
}
