package marketdata

import (
	"context"
	"sync"

	"github.com/newthinker/stockwatch/internal/core"
)

// ProfileFunc fetches one company profile.
type ProfileFunc func(ctx context.Context, symbol string) (*core.Profile, error)

// maxPopularFetches bounds concurrent profile lookups for the default list.
const maxPopularFetches = 4

// Popular resolves a curated symbol list into search results, keeping the
// list order. Symbols whose profile cannot be fetched are skipped.
func Popular(ctx context.Context, symbols []string, fetch ProfileFunc) []core.SearchResult {
	profiles := make([]*core.Profile, len(symbols))
	sem := make(chan struct{}, maxPopularFetches)

	var wg sync.WaitGroup
	for i, sym := range symbols {
		wg.Add(1)
		go func(i int, sym string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()

			p, err := fetch(ctx, sym)
			if err == nil && p != nil {
				profiles[i] = p
			}
		}(i, sym)
	}
	wg.Wait()

	results := make([]core.SearchResult, 0, len(symbols))
	for i, p := range profiles {
		if p == nil {
			continue
		}
		name := p.Name
		if name == "" {
			name = symbols[i]
		}
		results = append(results, core.SearchResult{
			Symbol:   symbols[i],
			Exchange: p.Exchange,
			Name:     name,
			Type:     "Common Stock",
		})
	}
	return results
}
