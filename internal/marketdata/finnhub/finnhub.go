// Package finnhub implements the market data gateway against the Finnhub REST API.
package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/newthinker/stockwatch/internal/core"
	"github.com/newthinker/stockwatch/internal/marketdata"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://finnhub.io/api/v1"

	// maxSearchResults caps a symbol lookup response.
	maxSearchResults = 15
)

// Options configures the Finnhub client.
type Options struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	Popular    []string
	HTTPClient *http.Client
}

// Finnhub is a marketdata.Provider backed by finnhub.io.
type Finnhub struct {
	client  *http.Client
	baseURL string
	apiKey  string
	popular []string
	logger  *zap.Logger
}

// New creates a Finnhub provider.
func New(opts Options, logger *zap.Logger) *Finnhub {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	return &Finnhub{
		client:  client,
		baseURL: base,
		apiKey:  opts.APIKey,
		popular: opts.Popular,
		logger:  logger,
	}
}

func (f *Finnhub) Name() string {
	return "finnhub"
}

// Quote fetches /quote. Finnhub answers unknown symbols with c=0.
func (f *Finnhub) Quote(ctx context.Context, symbol string) (*core.Quote, error) {
	var resp quoteResponse
	if err := f.get(ctx, "/quote", url.Values{"symbol": {symbol}}, &resp); err != nil {
		return nil, fmt.Errorf("fetching quote for %s: %w", symbol, err)
	}

	q := &core.Quote{
		Symbol:        symbol,
		CurrentPrice:  resp.Current,
		ChangePercent: resp.ChangePercent,
		Source:        f.Name(),
	}
	if resp.Timestamp > 0 {
		q.Time = time.Unix(resp.Timestamp, 0)
	}
	return q, nil
}

// Profile combines /stock/profile2 with the P/E from /stock/metric.
// A failed metric lookup leaves PERatio unset.
func (f *Finnhub) Profile(ctx context.Context, symbol string) (*core.Profile, error) {
	var resp profileResponse
	if err := f.get(ctx, "/stock/profile2", url.Values{"symbol": {symbol}}, &resp); err != nil {
		return nil, fmt.Errorf("fetching profile for %s: %w", symbol, err)
	}
	if resp.Name == "" && resp.Ticker == "" {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no profile for %s", symbol))
	}

	p := &core.Profile{
		Symbol:               symbol,
		Name:                 resp.Name,
		Exchange:             resp.Exchange,
		MarketCapitalization: resp.MarketCapitalization,
		Source:               f.Name(),
	}

	pe, err := f.peRatio(ctx, symbol)
	if err != nil {
		f.logger.Debug("metric lookup failed", zap.String("symbol", symbol), zap.Error(err))
	}
	p.PERatio = pe
	return p, nil
}

func (f *Finnhub) peRatio(ctx context.Context, symbol string) (*float64, error) {
	var resp metricResponse
	params := url.Values{"symbol": {symbol}, "metric": {"all"}}
	if err := f.get(ctx, "/stock/metric", params, &resp); err != nil {
		return nil, err
	}
	if resp.Metric.PETTM != nil {
		return resp.Metric.PETTM, nil
	}
	return resp.Metric.PEBasicExclExtraTTM, nil
}

// Search runs /search, or resolves the popular list for an empty query.
func (f *Finnhub) Search(ctx context.Context, query string) ([]core.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return marketdata.Popular(ctx, f.popular, f.Profile), nil
	}

	var resp searchResponse
	if err := f.get(ctx, "/search", url.Values{"q": {query}}, &resp); err != nil {
		return nil, fmt.Errorf("searching %q: %w", query, err)
	}

	results := make([]core.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		if r.Symbol == "" {
			continue
		}
		results = append(results, core.SearchResult{
			Symbol:   strings.ToUpper(r.Symbol),
			Exchange: exchangeOf(r.DisplaySymbol, r.Symbol),
			Name:     r.Description,
			Type:     r.Type,
		})
		if len(results) == maxSearchResults {
			break
		}
	}
	return results, nil
}

// exchangeOf derives an exchange code from a suffixed symbol (0700.HK -> HK).
// Unsuffixed symbols are US listings.
func exchangeOf(display, symbol string) string {
	s := display
	if s == "" {
		s = symbol
	}
	if i := strings.LastIndex(s, "."); i > 0 && i < len(s)-1 {
		return strings.ToUpper(s[i+1:])
	}
	return "US"
}

func (f *Finnhub) get(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Finnhub-Token", f.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return core.WrapError(core.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return core.WrapError(core.ErrUpstreamUnavailable, fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Finnhub API response types
type quoteResponse struct {
	Current       float64  `json:"c"`
	ChangePercent *float64 `json:"dp"`
	Timestamp     int64    `json:"t"`
}

type profileResponse struct {
	Name                 string   `json:"name"`
	Ticker               string   `json:"ticker"`
	Exchange             string   `json:"exchange"`
	MarketCapitalization *float64 `json:"marketCapitalization"`
}

type metricResponse struct {
	Metric struct {
		PETTM               *float64 `json:"peTTM"`
		PEBasicExclExtraTTM *float64 `json:"peBasicExclExtraTTM"`
	} `json:"metric"`
}

type searchResponse struct {
	Count  int `json:"count"`
	Result []struct {
		Description   string `json:"description"`
		DisplaySymbol string `json:"displaySymbol"`
		Symbol        string `json:"symbol"`
		Type          string `json:"type"`
	} `json:"result"`
}
