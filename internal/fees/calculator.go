package fees

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Breakdown is the fee split for one completed payment. All values are KRW.
// NetAmount is computed by subtraction so the three parts always sum to Amount.
type Breakdown struct {
	Amount      int `json:"amount"`
	PlatformFee int `json:"platform_fee"`
	PGFee       int `json:"pg_fee"`
	NetAmount   int `json:"net_amount"`
}

// Calculator derives fee breakdowns from the configured rates.
type Calculator struct {
	platformRate decimal.Decimal
	pgRate       decimal.Decimal
}

// NewCalculator validates the rates and returns a calculator.
func NewCalculator(platformRate, pgRate decimal.Decimal) (*Calculator, error) {
	one := decimal.NewFromInt(1)
	if platformRate.IsNegative() || platformRate.GreaterThanOrEqual(one) {
		return nil, fmt.Errorf("platform rate %s out of range [0, 1)", platformRate)
	}
	if pgRate.IsNegative() || pgRate.GreaterThanOrEqual(one) {
		return nil, fmt.Errorf("pg rate %s out of range [0, 1)", pgRate)
	}
	if platformRate.Add(pgRate).GreaterThanOrEqual(one) {
		return nil, fmt.Errorf("combined rates %s leave no net amount", platformRate.Add(pgRate))
	}
	return &Calculator{platformRate: platformRate, pgRate: pgRate}, nil
}

// Calculate splits the gross amount into platform fee, gateway fee and creator net.
// Each fee rounds half up to a whole won independently.
func (c *Calculator) Calculate(amount int) (Breakdown, error) {
	if amount <= 0 {
		return Breakdown{}, fmt.Errorf("amount must be positive, got %d", amount)
	}

	gross := decimal.NewFromInt(int64(amount))
	platformFee := int(gross.Mul(c.platformRate).Round(0).IntPart())
	pgFee := int(gross.Mul(c.pgRate).Round(0).IntPart())
	net := amount - platformFee - pgFee
	if net < 0 {
		return Breakdown{}, fmt.Errorf("fees %d exceed amount %d", platformFee+pgFee, amount)
	}

	return Breakdown{
		Amount:      amount,
		PlatformFee: platformFee,
		PGFee:       pgFee,
		NetAmount:   net,
	}, nil
}
