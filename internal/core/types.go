package core

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// validSymbol matches tickers like AAPL, BRK.B, 0700.HK, BTC-USD, ^GSPC, ES=F,
// EURUSD=X and OANDA:EUR_USD. Anything else, including whitespace and "/", is rejected.
var validSymbol = regexp.MustCompile(`^[A-Z0-9^][A-Z0-9^=_.\-:]{0,31}$`)

// NormalizeSymbol trims and upper-cases a symbol. The result is the only key
// used for watchlist membership, so "aapl" and "AAPL" are the same entry.
func NormalizeSymbol(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return "", WrapError(ErrInvalidSymbol, fmt.Errorf("symbol cannot be empty"))
	}
	if !validSymbol.MatchString(s) {
		return "", WrapError(ErrInvalidSymbol, fmt.Errorf("invalid symbol format: %s", symbol))
	}
	return s, nil
}

// WatchlistEntry is a durable (user, symbol) membership record.
type WatchlistEntry struct {
	ID      string    `json:"id"`
	UserID  string    `json:"user_id"`
	Symbol  string    `json:"symbol"`
	Company string    `json:"company"`
	AddedAt time.Time `json:"added_at"`
}

// Quote is a live price snapshot. A zero CurrentPrice means unavailable.
type Quote struct {
	Symbol        string
	CurrentPrice  float64
	ChangePercent *float64
	Time          time.Time
	Source        string
}

// HasPrice reports whether the quote carries a usable price.
func (q *Quote) HasPrice() bool {
	return q != nil && q.CurrentPrice > 0
}

// Profile holds company fundamentals. Every optional field may be absent
// independently of the others.
type Profile struct {
	Symbol   string
	Name     string
	Exchange string
	// MarketCapitalization is expressed in millions of USD.
	MarketCapitalization *float64
	PERatio              *float64
	Source               string
}

// EnrichedRow is a watchlist entry joined with live market data, ready for display.
type EnrichedRow struct {
	WatchlistEntry
	CurrentPrice    float64  `json:"current_price"`
	ChangePercent   *float64 `json:"change_percent,omitempty"`
	PriceFormatted  string   `json:"price_formatted"`
	ChangeFormatted string   `json:"change_formatted"`
	MarketCap       string   `json:"market_cap"`
	PERatio         string   `json:"pe_ratio"`
}

// SearchResult is one instrument returned by a symbol search.
type SearchResult struct {
	Symbol      string `json:"symbol"`
	Exchange    string `json:"exchange"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	InWatchlist bool   `json:"in_watchlist"`
}

// Key returns the dedup key for the result.
func (r SearchResult) Key() string {
	return r.Symbol + "-" + r.Exchange
}

// ToggleResult reports the outcome of a watchlist mutation to the caller.
type ToggleResult struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	Code        string `json:"code,omitempty"`
	InWatchlist bool   `json:"in_watchlist"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
