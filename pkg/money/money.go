package money

import "github.com/shopspring/decimal"

var (
	upfrontRate = decimal.NewFromFloat(0.30)
	finalRate   = decimal.NewFromFloat(0.70)
)

// UpfrontCents returns the upfront tranche (30% of total) rounded half-up to
// the minor unit.
func UpfrontCents(totalCents int64) int64 {
	return applyRate(totalCents, upfrontRate)
}

// FinalCents returns the final tranche (70% of total) rounded half-up to the
// minor unit.
func FinalCents(totalCents int64) int64 {
	return applyRate(totalCents, finalRate)
}

func applyRate(totalCents int64, rate decimal.Decimal) int64 {
	if totalCents <= 0 {
		return 0
	}
	return decimal.NewFromInt(totalCents).Mul(rate).Round(0).IntPart()
}
