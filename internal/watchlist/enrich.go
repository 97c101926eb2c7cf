package watchlist

import (
	"context"
	"sync"
	"time"

	"github.com/newthinker/stockwatch/internal/core"
	"github.com/newthinker/stockwatch/internal/identity"
	"go.uber.org/zap"
)

// Watchlist enriches the current user's watchlist. An unresolvable identity
// yields an empty view.
func (s *Service) Watchlist(ctx context.Context) []core.EnrichedRow {
	userID, err := s.resolver.Resolve(ctx)
	if err != nil {
		s.logger.Debug("watchlist requested without identity", zap.Error(err))
		return []core.EnrichedRow{}
	}
	return s.Enrich(ctx, userID)
}

// Enrich joins every stored entry with a live quote and profile.
//
// All entries are fetched concurrently, and each entry's quote and profile
// are fetched concurrently with each other. A failed fetch affects only its
// own row. Rows without a positive price are dropped; the remaining rows
// keep the stored order. A store failure yields an empty result.
func (s *Service) Enrich(ctx context.Context, userID string) []core.EnrichedRow {
	start := time.Now()

	entries, err := s.store.Find(ctx, userID)
	if err != nil {
		s.logger.Error("loading watchlist failed",
			zap.String("user_id", userID),
			zap.Error(err))
		return []core.EnrichedRow{}
	}
	if len(entries) == 0 {
		return []core.EnrichedRow{}
	}

	rows := make([]core.EnrichedRow, len(entries))
	var wg sync.WaitGroup
	for i := range entries {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rows[i] = s.enrichEntry(ctx, entries[i])
		}(i)
	}
	wg.Wait()

	kept := make([]core.EnrichedRow, 0, len(rows))
	for _, row := range rows {
		if row.CurrentPrice > 0 {
			kept = append(kept, row)
		}
	}

	s.recordEnrich(len(entries), len(kept), time.Since(start))
	s.logger.Debug("watchlist enriched",
		zap.String("user_id", userID),
		zap.Int("entries", len(entries)),
		zap.Int("rows", len(kept)))
	return kept
}

func (s *Service) enrichEntry(ctx context.Context, entry core.WatchlistEntry) core.EnrichedRow {
	var (
		quote   *core.Quote
		profile *core.Profile
		wg      sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		q, err := s.gateway.Quote(ctx, entry.Symbol)
		if err != nil {
			s.logger.Warn("quote fetch failed",
				zap.String("symbol", entry.Symbol),
				zap.Error(err))
			return
		}
		quote = q
	}()
	go func() {
		defer wg.Done()
		p, err := s.gateway.Profile(ctx, entry.Symbol)
		if err != nil {
			s.logger.Warn("profile fetch failed",
				zap.String("symbol", entry.Symbol),
				zap.Error(err))
			return
		}
		profile = p
	}()
	wg.Wait()

	return buildRow(entry, quote, profile)
}

// buildRow joins an entry with whatever market data was fetched. quote and
// profile may each be nil.
func buildRow(entry core.WatchlistEntry, quote *core.Quote, profile *core.Profile) core.EnrichedRow {
	row := core.EnrichedRow{
		WatchlistEntry: entry,
		MarketCap:      NotAvailable,
		PERatio:        NotAvailable,
	}
	if quote.HasPrice() {
		row.CurrentPrice = quote.CurrentPrice
		row.ChangePercent = quote.ChangePercent
	}
	row.PriceFormatted = FormatPrice(row.CurrentPrice)
	row.ChangeFormatted = FormatChangePercent(row.ChangePercent)

	if profile != nil {
		row.MarketCap = FormatMarketCap(profile.MarketCapitalization)
		row.PERatio = FormatPERatio(profile.PERatio)
	}
	return row
}

// WatchlistSymbols returns the raw symbols tracked by the user with the given
// e-mail. Any failure yields an empty list.
func (s *Service) WatchlistSymbols(ctx context.Context, email string) []string {
	if s.directory == nil || email == "" {
		return []string{}
	}
	userID, ok := s.directory.Lookup(ctx, email)
	if !ok {
		return []string{}
	}
	entries, err := s.store.Find(ctx, userID)
	if err != nil {
		s.logger.Warn("loading watchlist symbols failed",
			zap.String("user_id", userID),
			zap.Error(err))
		return []string{}
	}

	symbols := make([]string, len(entries))
	for i, e := range entries {
		symbols[i] = e.Symbol
	}
	return symbols
}

// CurrentSymbols is WatchlistSymbols for the principal in ctx.
func (s *Service) CurrentSymbols(ctx context.Context) []string {
	email, ok := identity.PrincipalFrom(ctx)
	if !ok {
		return []string{}
	}
	return s.WatchlistSymbols(ctx, email)
}

// Annotate marks results whose symbol is in symbols. results is modified in place.
func Annotate(results []core.SearchResult, symbols []string) []core.SearchResult {
	set := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		set[sym] = struct{}{}
	}
	for i := range results {
		_, results[i].InWatchlist = set[results[i].Symbol]
	}
	return results
}
