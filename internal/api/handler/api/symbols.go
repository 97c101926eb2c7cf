package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/newthinker/stockwatch/internal/api/response"
	"github.com/newthinker/stockwatch/internal/core"
	"github.com/newthinker/stockwatch/internal/search"
	"github.com/newthinker/stockwatch/internal/watchlist"
)

// Searcher performs instrument searches.
type Searcher interface {
	Search(ctx context.Context, query string) ([]core.SearchResult, error)
}

// SearchRecorder counts searches by mode.
type SearchRecorder interface {
	RecordSearch(mode string)
}

// SymbolsHandler handles symbol search API requests.
type SymbolsHandler struct {
	searcher    Searcher
	symbols     func(ctx context.Context) []string
	previewSize int
	metrics     SearchRecorder
}

// NewSymbolsHandler creates a new symbols handler. symbols, when non-nil,
// supplies the caller's watchlist for annotating results.
func NewSymbolsHandler(searcher Searcher, symbols func(ctx context.Context) []string, previewSize int, metrics SearchRecorder) *SymbolsHandler {
	if previewSize <= 0 {
		previewSize = search.DefaultPreviewSize
	}
	return &SymbolsHandler{
		searcher:    searcher,
		symbols:     symbols,
		previewSize: previewSize,
		metrics:     metrics,
	}
}

// Search handles GET /api/v1/symbols/search?q=<query>. An empty query
// returns the popular preview.
func (h *SymbolsHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	mode := "query"
	if query == "" {
		mode = "popular"
	}
	if h.metrics != nil {
		h.metrics.RecordSearch(mode)
	}

	results, err := h.searcher.Search(r.Context(), query)
	if err != nil {
		response.Fail(w, core.WrapError(core.ErrUpstreamUnavailable, err))
		return
	}

	if query == "" && len(results) > h.previewSize {
		results = results[:h.previewSize]
	}
	results = search.Dedup(results)
	if h.symbols != nil {
		results = watchlist.Annotate(results, h.symbols(r.Context()))
	}

	heading := "Search results"
	if query == "" {
		heading = "Popular stocks"
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"heading": heading,
		"results": results,
		"count":   len(results),
	})
}
