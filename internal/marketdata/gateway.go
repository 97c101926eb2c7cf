// Package marketdata defines the quote, profile and instrument-search gateway
// and the plumbing shared by its providers.
package marketdata

import (
	"context"

	"github.com/newthinker/stockwatch/internal/core"
)

// Gateway is the read-only market data surface used by enrichment and search.
type Gateway interface {
	// Quote returns the latest price for symbol. A quote with a zero price
	// means the provider had nothing for it.
	Quote(ctx context.Context, symbol string) (*core.Quote, error)

	// Profile returns company metadata. Market cap and P/E may be absent.
	Profile(ctx context.Context, symbol string) (*core.Profile, error)

	// Search returns instruments matching query. An empty query returns a
	// bounded default set.
	Search(ctx context.Context, query string) ([]core.SearchResult, error)
}

// Provider is a named Gateway implementation.
type Provider interface {
	Gateway
	Name() string
}
