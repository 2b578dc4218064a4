package fees

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func defaultCalculator(t *testing.T) *Calculator {
	t.Helper()
	calc, err := NewCalculator(decimal.RequireFromString("0.05"), decimal.RequireFromString("0.028"))
	require.NoError(t, err)
	return calc
}

func TestCalculateBreakdown(t *testing.T) {
	calc := defaultCalculator(t)

	tests := []struct {
		name     string
		amount   int
		expected Breakdown
	}{
		{
			name:   "three coffees at default price",
			amount: 9000,
			expected: Breakdown{
				Amount:      9000,
				PlatformFee: 450,
				PGFee:       252,
				NetAmount:   8298,
			},
		},
		{
			name:   "rounds each fee half up independently",
			amount: 3333,
			expected: Breakdown{
				Amount:      3333,
				PlatformFee: 167, // 166.65
				PGFee:       93,  // 93.324
				NetAmount:   3073,
			},
		},
		{
			name:   "single cheapest coffee",
			amount: 1000,
			expected: Breakdown{
				Amount:      1000,
				PlatformFee: 50,
				PGFee:       28,
				NetAmount:   922,
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := calc.Calculate(tc.amount)
			require.NoError(t, err)
			require.Equal(t, tc.expected, got)
			require.Equal(t, got.Amount, got.PlatformFee+got.PGFee+got.NetAmount)
		})
	}
}

func TestCalculateRejectsNonPositiveAmount(t *testing.T) {
	calc := defaultCalculator(t)

	_, err := calc.Calculate(0)
	require.Error(t, err)

	_, err = calc.Calculate(-500)
	require.Error(t, err)
}

func TestNewCalculatorValidatesRates(t *testing.T) {
	_, err := NewCalculator(decimal.RequireFromString("-0.01"), decimal.RequireFromString("0.028"))
	require.Error(t, err)

	_, err = NewCalculator(decimal.RequireFromString("0.6"), decimal.RequireFromString("0.5"))
	require.Error(t, err)

	_, err = NewCalculator(decimal.RequireFromString("1"), decimal.Zero)
	require.Error(t, err)
}
