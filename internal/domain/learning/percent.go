package learning

import "github.com/shopspring/decimal"

var (
	hundred    = decimal.NewFromInt(100)
	almostDone = decimal.New(9999, -PercentScale)
)

// PercentScale is the number of fractional digits stored for percentages.
const PercentScale = 2

// Percent returns min(100, completed/total*100) rounded to PercentScale.
// Only completed >= total reaches 100; rounding stops at 99.99 otherwise.
// total <= 0 yields zero; callers skip recomputation in that case.
func Percent(completed, total int64) decimal.Decimal {
	if total <= 0 || completed <= 0 {
		return decimal.Zero
	}
	p := decimal.NewFromInt(completed).Mul(hundred).DivRound(decimal.NewFromInt(total), PercentScale)
	switch {
	case completed < total && p.GreaterThanOrEqual(hundred):
		return almostDone
	case p.GreaterThan(hundred):
		return hundred
	}
	return p
}

// StatusFor applies the three-way status rule to a stored percentage.
func StatusFor(percent decimal.Decimal) EnrollmentStatus {
	switch {
	case percent.GreaterThanOrEqual(hundred):
		return EnrollmentCompleted
	case percent.IsPositive():
		return EnrollmentInProgress
	default:
		return EnrollmentStarted
	}
}

// FormatPercent renders p with exactly two decimals, e.g. "33.33".
func FormatPercent(p decimal.Decimal) string {
	return p.StringFixed(PercentScale)
}
