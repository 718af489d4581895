package pricing

import (
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// ToReference converts an amount in the primary currency (IQD) into the
// reference currency (USD) at rate primary units per reference unit,
// rounded to cents.
func ToReference(amount int64, rate decimal.Decimal) decimal.Decimal {
	if rate.IsZero() {
		return decimal.Zero
	}
	return decimal.NewFromInt(amount).DivRound(rate, 2)
}

// FormatIQD renders an amount like "1,250,000 IQD".
func FormatIQD(amount int64) string {
	return humanize.Comma(amount) + " IQD"
}

// FormatUSD renders a reference amount like "$12.50".
func FormatUSD(amount decimal.Decimal) string {
	return "$" + amount.StringFixed(2)
}
