// Package yahoo implements the market data gateway against Yahoo Finance's
// public chart and search endpoints. It carries no fundamentals, so
// profiles have no market cap or P/E.
package yahoo

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
	defaultChartURL  = "https://query1.finance.yahoo.com/v8/finance/chart"
	defaultSearchURL = "https://query1.finance.yahoo.com/v1/finance/search"
	quotesCount      = 10
)

// Options configures the Yahoo client.
type Options struct {
	ChartURL   string
	SearchURL  string
	Timeout    time.Duration
	Popular    []string
	HTTPClient *http.Client
}

// Yahoo is a marketdata.Provider backed by Yahoo Finance.
type Yahoo struct {
	client    *http.Client
	chartURL  string
	searchURL string
	popular   []string
	logger    *zap.Logger
}

// New creates a Yahoo provider.
func New(opts Options, logger *zap.Logger) *Yahoo {
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
	y := &Yahoo{
		client:    client,
		chartURL:  strings.TrimRight(opts.ChartURL, "/"),
		searchURL: opts.SearchURL,
		popular:   opts.Popular,
		logger:    logger,
	}
	if y.chartURL == "" {
		y.chartURL = defaultChartURL
	}
	if y.searchURL == "" {
		y.searchURL = defaultSearchURL
	}
	return y
}

func (y *Yahoo) Name() string {
	return "yahoo"
}

// toYahooSymbol converts internal symbol format to Yahoo format
func toYahooSymbol(symbol string) string {
	// Shanghai stocks: 600519.SH -> 600519.SS
	if strings.HasSuffix(symbol, ".SH") {
		return strings.TrimSuffix(symbol, ".SH") + ".SS"
	}
	return symbol
}

// Quote derives price and day change from the chart meta block.
func (y *Yahoo) Quote(ctx context.Context, symbol string) (*core.Quote, error) {
	meta, err := y.chart(ctx, symbol)
	if err != nil {
		return nil, err
	}

	q := &core.Quote{
		Symbol:       symbol,
		CurrentPrice: meta.RegularMarketPrice,
		Time:         time.Unix(int64(meta.RegularMarketTime), 0),
		Source:       y.Name(),
	}
	if prev := meta.previousClose(); prev > 0 && meta.RegularMarketPrice > 0 {
		q.ChangePercent = core.Float((meta.RegularMarketPrice - prev) / prev * 100)
	}
	return q, nil
}

// Profile returns name and exchange only.
func (y *Yahoo) Profile(ctx context.Context, symbol string) (*core.Profile, error) {
	meta, err := y.chart(ctx, symbol)
	if err != nil {
		return nil, err
	}
	name := meta.LongName
	if name == "" {
		name = meta.ShortName
	}
	return &core.Profile{
		Symbol:   symbol,
		Name:     name,
		Exchange: meta.ExchangeName,
		Source:   y.Name(),
	}, nil
}

// Search queries the autocomplete endpoint, or resolves the popular list for
// an empty query.
func (y *Yahoo) Search(ctx context.Context, query string) ([]core.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return marketdata.Popular(ctx, y.popular, y.Profile), nil
	}

	apiURL := fmt.Sprintf("%s?q=%s&quotesCount=%d&newsCount=0", y.searchURL, url.QueryEscape(query), quotesCount)
	var resp searchResponse
	if err := y.get(ctx, apiURL, &resp); err != nil {
		return nil, fmt.Errorf("searching %q: %w", query, err)
	}

	results := make([]core.SearchResult, 0, len(resp.Quotes))
	for _, q := range resp.Quotes {
		if q.Symbol == "" {
			continue
		}
		name := q.LongName
		if name == "" {
			name = q.ShortName
		}
		results = append(results, core.SearchResult{
			Symbol:   strings.ToUpper(q.Symbol),
			Exchange: q.Exchange,
			Name:     name,
			Type:     typeFromQuoteType(q.QuoteType),
		})
	}
	return results, nil
}

// typeFromQuoteType maps Yahoo quote types onto display labels.
func typeFromQuoteType(quoteType string) string {
	switch strings.ToUpper(quoteType) {
	case "EQUITY":
		return "Common Stock"
	case "ETF":
		return "ETF"
	case "MUTUALFUND":
		return "Mutual Fund"
	case "INDEX":
		return "Index"
	case "CRYPTOCURRENCY":
		return "Crypto"
	default:
		return quoteType
	}
}

func (y *Yahoo) chart(ctx context.Context, symbol string) (*chartMeta, error) {
	apiURL := fmt.Sprintf("%s/%s?interval=1d&range=1d", y.chartURL, url.PathEscape(toYahooSymbol(symbol)))

	var result chartResponse
	if err := y.get(ctx, apiURL, &result); err != nil {
		return nil, fmt.Errorf("fetching chart for %s: %w", symbol, err)
	}

	if result.Chart.Error != nil {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("yahoo error: %s", result.Chart.Error.Description))
	}
	if len(result.Chart.Result) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no data for symbol: %s", symbol))
	}
	return &result.Chart.Result[0].Meta, nil
}

func (y *Yahoo) get(ctx context.Context, apiURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := y.client.Do(req)
	if err != nil {
		return core.WrapError(core.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	// Yahoo answers unknown chart symbols with 404 and an error body.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		return core.WrapError(core.ErrUpstreamUnavailable, fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Yahoo API response types
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta chartMeta `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartMeta struct {
	Symbol             string  `json:"symbol"`
	ExchangeName       string  `json:"exchangeName"`
	LongName           string  `json:"longName"`
	ShortName          string  `json:"shortName"`
	RegularMarketPrice float64 `json:"regularMarketPrice"`
	RegularMarketTime  int     `json:"regularMarketTime"`
	PreviousClose      float64 `json:"previousClose"`
	ChartPreviousClose float64 `json:"chartPreviousClose"`
}

func (m *chartMeta) previousClose() float64 {
	if m.PreviousClose > 0 {
		return m.PreviousClose
	}
	return m.ChartPreviousClose
}

type searchResponse struct {
	Quotes []struct {
		Symbol    string `json:"symbol"`
		ShortName string `json:"shortname"`
		LongName  string `json:"longname"`
		Exchange  string `json:"exchange"`
		QuoteType string `json:"quoteType"`
	} `json:"quotes"`
}
