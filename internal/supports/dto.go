package supports

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/coffeeworth/coffeeworth-backend/pkg/db/models"
	"github.com/coffeeworth/coffeeworth-backend/pkg/enums"
)

// AnonymousSupporterName is shown wherever an anonymous supporter appears.
const AnonymousSupporterName = "익명"

// SupportDTO is the API shape of a support row.
type SupportDTO struct {
	ID            uuid.UUID           `json:"id"`
	CreatorID     uuid.UUID           `json:"creator_id"`
	CreatorName   string              `json:"creator_name,omitempty"`
	CoffeeCount   int                 `json:"coffee_count"`
	UnitPrice     int                 `json:"unit_price"`
	Amount        int                 `json:"amount"`
	Message       *string             `json:"message,omitempty"`
	SupporterName string              `json:"supporter_name"`
	IsAnonymous   bool                `json:"is_anonymous"`
	OrderID       string              `json:"order_id"`
	OrderName     string              `json:"order_name"`
	PaymentMethod *string             `json:"payment_method,omitempty"`
	Status        enums.SupportStatus `json:"status"`
	PaidAt        *time.Time          `json:"paid_at,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
}

// StatsDTO aggregates a creator's completed supports.
type StatsDTO struct {
	TotalCount  int64 `json:"total_count"`
	TotalAmount int64 `json:"total_amount"`
	TotalNet    int64 `json:"total_net"`
	MonthCount  int64 `json:"month_count"`
	MonthAmount int64 `json:"month_amount"`
	MonthNet    int64 `json:"month_net"`
}

// SupportPage is one cursor page of supports.
type SupportPage struct {
	Items      []SupportDTO `json:"items"`
	NextCursor string       `json:"next_cursor,omitempty"`
	HasMore    bool         `json:"has_more"`
}

// OrderName builds the gateway-facing order label for a support.
func OrderName(creatorName string, coffeeCount int) string {
	return fmt.Sprintf("%s님에게 커피 %d잔", creatorName, coffeeCount)
}

// FromModel converts a support row without hiding supporter identity.
// Use it on surfaces scoped to the support itself, like the payment result page.
func FromModel(support *models.Support) *SupportDTO {
	if support == nil {
		return nil
	}

	dto := &SupportDTO{
		ID:            support.ID,
		CreatorID:     support.CreatorID,
		CoffeeCount:   support.CoffeeCount,
		UnitPrice:     support.UnitPrice,
		Amount:        support.Amount,
		Message:       support.Message,
		IsAnonymous:   support.IsAnonymous,
		OrderID:       support.OrderID,
		PaymentMethod: support.PaymentMethod,
		Status:        support.Status,
		PaidAt:        support.PaidAt,
		CreatedAt:     support.CreatedAt,
	}
	if support.SupporterName != nil {
		dto.SupporterName = *support.SupporterName
	}
	if support.Creator != nil {
		dto.CreatorName = support.Creator.DisplayName()
		dto.OrderName = OrderName(support.Creator.DisplayName(), support.CoffeeCount)
	}
	return dto
}

// FromModelAnonymized converts a support row for creator-facing and public
// lists. Anonymous supporters read as 익명 and their message is withheld.
func FromModelAnonymized(support *models.Support) *SupportDTO {
	dto := FromModel(support)
	if dto == nil {
		return nil
	}
	if dto.IsAnonymous {
		dto.SupporterName = AnonymousSupporterName
		dto.Message = nil
	} else if dto.SupporterName == "" {
		dto.SupporterName = AnonymousSupporterName
	}
	return dto
}
