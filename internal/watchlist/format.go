package watchlist

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

const (
	// Placeholder stands in for a price or change that is unavailable.
	Placeholder = "—"
	// NotAvailable is shown for missing fundamentals.
	NotAvailable = "N/A"
)

var (
	trillion = decimal.New(1, 12)
	billion  = decimal.New(1, 9)
	million  = decimal.New(1, 6)
)

// FormatPrice renders a USD price such as "$1,234.56". Non-positive prices
// are unavailable and render as Placeholder.
func FormatPrice(price float64) string {
	if price <= 0 {
		return Placeholder
	}
	return usd(decimal.NewFromFloat(price))
}

// usd converts a decimal dollar amount into go-money's minor units and
// renders it with the currency's display rules.
func usd(amount decimal.Decimal) string {
	cur := money.GetCurrency(money.USD)
	factor := decimal.New(1, int32(cur.Fraction))
	cents := amount.Mul(factor).Round(0)
	return money.New(cents.IntPart(), money.USD).Display()
}

// FormatChangePercent renders a signed percentage with two decimals, e.g.
// "+1.23%" or "-0.50%". nil renders as Placeholder.
func FormatChangePercent(change *float64) string {
	if change == nil {
		return Placeholder
	}
	d := decimal.NewFromFloat(*change).Round(2)
	s := d.StringFixed(2) + "%"
	if d.IsPositive() {
		return "+" + s
	}
	return s
}

// FormatMarketCap renders a market capitalization given in millions of USD,
// scaled to T, B or M. Missing or non-positive values render as N/A.
func FormatMarketCap(millions *float64) string {
	if millions == nil || *millions <= 0 {
		return NotAvailable
	}
	v := decimal.NewFromFloat(*millions).Mul(million)
	switch {
	case v.GreaterThanOrEqual(trillion):
		return "$" + v.Div(trillion).StringFixed(2) + "T"
	case v.GreaterThanOrEqual(billion):
		return "$" + v.Div(billion).StringFixed(2) + "B"
	case v.GreaterThanOrEqual(million):
		return "$" + v.Div(million).StringFixed(2) + "M"
	default:
		return usd(v)
	}
}

// FormatPERatio renders a P/E ratio with two decimals only when it is
// present and strictly positive.
func FormatPERatio(pe *float64) string {
	if pe == nil || *pe <= 0 {
		return NotAvailable
	}
	return decimal.NewFromFloat(*pe).StringFixed(2)
}
