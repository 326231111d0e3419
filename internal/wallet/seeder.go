package wallet

import (
	"fmt"
	"math/rand/v2"

	"github.com/shopspring/decimal"
)

// Seeder picks the opening balance of a newly provisioned wallet. It is
// called once per owner, by the caller that wins provisioning.
type Seeder interface {
	OpeningBalance(ownerID string) decimal.Decimal
}

// SeederFunc adapts a function to Seeder.
type SeederFunc func(ownerID string) decimal.Decimal

// OpeningBalance calls f.
func (f SeederFunc) OpeningBalance(ownerID string) decimal.Decimal {
	return f(ownerID)
}

// FixedSeeder opens every wallet with the same amount.
type FixedSeeder struct {
	Amount decimal.Decimal
}

// OpeningBalance returns the fixed amount.
func (s FixedSeeder) OpeningBalance(string) decimal.Decimal {
	return s.Amount
}

// RandomSeeder opens wallets with a uniformly drawn amount in [min, max],
// at cent precision.
type RandomSeeder struct {
	minCents int64
	span     int64
	draw     func(n int64) int64
}

// NewRandomSeeder validates the bounds and returns a seeder safe for
// concurrent use.
func NewRandomSeeder(min, max decimal.Decimal) (*RandomSeeder, error) {
	if min.IsNegative() {
		return nil, fmt.Errorf("seed minimum must not be negative, got %s", min)
	}
	if max.LessThan(min) {
		return nil, fmt.Errorf("seed maximum %s is below minimum %s", max, min)
	}
	minCents := min.Shift(2).Round(0).IntPart()
	maxCents := max.Shift(2).Round(0).IntPart()
	return &RandomSeeder{
		minCents: minCents,
		span:     maxCents - minCents + 1,
		draw:     rand.Int64N,
	}, nil
}

// OpeningBalance draws a fresh amount.
func (s *RandomSeeder) OpeningBalance(string) decimal.Decimal {
	return decimal.New(s.minCents+s.draw(s.span), -2)
}
