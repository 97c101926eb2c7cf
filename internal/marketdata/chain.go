package marketdata

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/newthinker/stockwatch/internal/core"
	"go.uber.org/zap"
)

// Chain tries providers in order and returns the first usable answer.
type Chain struct {
	providers []Provider
	logger    *zap.Logger
}

// NewChain builds a fallback chain. The first provider is the primary.
func NewChain(logger *zap.Logger, providers ...Provider) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{providers: providers, logger: logger}
}

// Name joins the member names, e.g. "finnhub>yahoo".
func (c *Chain) Name() string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return strings.Join(names, ">")
}

// Quote returns the first quote carrying a positive price.
func (c *Chain) Quote(ctx context.Context, symbol string) (*core.Quote, error) {
	var lastErr error
	for _, p := range c.providers {
		q, err := p.Quote(ctx, symbol)
		if err == nil && q.HasPrice() {
			return q, nil
		}
		if err != nil {
			lastErr = err
			c.logger.Debug("quote provider failed",
				zap.String("provider", p.Name()),
				zap.String("symbol", symbol),
				zap.Error(err))
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, c.exhausted(symbol, lastErr)
}

// Profile returns the first profile any provider yields.
func (c *Chain) Profile(ctx context.Context, symbol string) (*core.Profile, error) {
	var lastErr error
	for _, p := range c.providers {
		prof, err := p.Profile(ctx, symbol)
		if err == nil && prof != nil {
			return prof, nil
		}
		if err != nil {
			lastErr = err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, c.exhausted(symbol, lastErr)
}

// Search returns the first result list a provider answers without error. A
// provider that answers with no matches ends the chain.
func (c *Chain) Search(ctx context.Context, query string) ([]core.SearchResult, error) {
	var lastErr error
	for _, p := range c.providers {
		results, err := p.Search(ctx, query)
		if err == nil {
			return results, nil
		}
		lastErr = err
		c.logger.Debug("search provider failed",
			zap.String("provider", p.Name()),
			zap.String("query", query),
			zap.Error(err))
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	if lastErr == nil {
		return []core.SearchResult{}, nil
	}
	return nil, core.WrapError(core.ErrUpstreamUnavailable, fmt.Errorf("all providers failed for %q: %w", query, lastErr))
}

func (c *Chain) exhausted(symbol string, lastErr error) error {
	if lastErr == nil || errors.Is(lastErr, core.ErrNoData) {
		return core.WrapError(core.ErrNoData, fmt.Errorf("no provider had data for %s", symbol))
	}
	return core.WrapError(core.ErrUpstreamUnavailable, fmt.Errorf("all providers failed for %s: %w", symbol, lastErr))
}
