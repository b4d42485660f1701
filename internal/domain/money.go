package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// The platform settles everything in Egyptian pounds. Amounts are stored
// as BIGINT micros (10^-6 EGP) to avoid floating point errors.
const (
	CurrencyEGP    = "EGP"
	MicrosPerPound = 1_000_000
)

// Money represents an EGP amount in micros.
type Money struct {
	Amount int64 // micros
}

// NewMoney creates a Money instance from micros.
func NewMoney(amount int64) Money {
	return Money{Amount: amount}
}

// FromPounds converts whole pounds to a Money instance.
func FromPounds(pounds int64) Money {
	return Money{Amount: pounds * MicrosPerPound}
}

// ToDecimal converts the int64 micros to a shopspring/decimal.Decimal.
func (m Money) ToDecimal() decimal.Decimal {
	return decimal.NewFromInt(m.Amount).Div(decimal.NewFromInt(MicrosPerPound))
}

// FromDecimal converts a decimal.Decimal in pounds to int64 micros.
func FromDecimal(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(MicrosPerPound)).IntPart()
}

// String renders the amount the way notifications display it, e.g. "250.00 EGP".
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.ToDecimal().StringFixed(2), CurrencyEGP)
}
