package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value in a specific currency.
// Amount is stored as BIGINT in the currency's smallest unit to avoid
// floating point errors.
type Money struct {
	Amount   int64
	Currency string
}

// NewMoney creates a new Money instance from smallest-unit amounts.
func NewMoney(amount int64, currency string) Money {
	return Money{
		Amount:   amount,
		Currency: currency,
	}
}

// unitScale is the display scale: 10^6 smallest units per whole unit.
const unitScale = 1_000_000

// ToDecimal converts the int64 amount to a shopspring/decimal.Decimal.
func (m Money) ToDecimal() decimal.Decimal {
	return decimal.NewFromInt(m.Amount).Div(decimal.NewFromInt(unitScale))
}

// FromDecimal converts a decimal.Decimal to an int64 smallest-unit amount.
func FromDecimal(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(unitScale)).IntPart()
}

// String returns the display representation of the money.
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.ToDecimal().StringFixed(2), m.Currency)
}
