package yahoo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/newthinker/stockwatch/internal/core"
	"github.com/newthinker/stockwatch/internal/marketdata"
)

func TestYahoo_ImplementsProvider(t *testing.T) {
	var _ marketdata.Provider = (*Yahoo)(nil)
}

func TestYahoo_Name(t *testing.T) {
	y := New(Options{}, nil)
	if y.Name() != "yahoo" {
		t.Errorf("expected 'yahoo', got '%s'", y.Name())
	}
}

func TestToYahooSymbol(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"AAPL", "AAPL"},
		{"0700.HK", "0700.HK"},
		{"600519.SH", "600519.SS"}, // Shanghai -> SS for Yahoo
		{"000001.SZ", "000001.SZ"},
	}

	for _, tc := range tests {
		got := toYahooSymbol(tc.input)
		if got != tc.expected {
			t.Errorf("toYahooSymbol(%s) = %s, want %s", tc.input, got, tc.expected)
		}
	}
}

const aaplChart = `{"chart":{"result":[{"meta":{"symbol":"AAPL","exchangeName":"NMS","longName":"Apple Inc.","shortName":"Apple","regularMarketPrice":200,"regularMarketTime":1700000000,"chartPreviousClose":160}}],"error":null}}`

const missingChart = `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`

func newServer(t *testing.T) *Yahoo {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/chart/", func(w http.ResponseWriter, r *http.Request) {
		switch strings.TrimPrefix(r.URL.Path, "/chart/") {
		case "AAPL":
			_, _ = w.Write([]byte(aaplChart))
		case "600519.SS":
			_, _ = w.Write([]byte(`{"chart":{"result":[{"meta":{"symbol":"600519.SS","exchangeName":"SHH","shortName":"KWEICHOW MOUTAI","regularMarketPrice":1500,"regularMarketTime":1700000000}}]}}`))
		case "BOOM":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(missingChart))
		}
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "apple" {
			_, _ = w.Write([]byte(`{"quotes":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"quotes":[
			{"symbol":"AAPL","shortname":"Apple Inc.","longname":"Apple Inc.","exchange":"NMS","quoteType":"EQUITY"},
			{"symbol":"APLE","shortname":"Apple Hospitality","exchange":"NYQ","quoteType":"EQUITY"},
			{"symbol":"","shortname":"news","exchange":"","quoteType":""}
		]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return New(Options{
		ChartURL:  srv.URL + "/chart",
		SearchURL: srv.URL + "/search",
		Popular:   []string{"AAPL", "DELISTED"},
	}, nil)
}

func TestYahoo_Quote(t *testing.T) {
	y := newServer(t)

	q, err := y.Quote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Quote() error = %v", err)
	}
	if q.CurrentPrice != 200 {
		t.Errorf("expected price 200, got %v", q.CurrentPrice)
	}
	if q.ChangePercent == nil || *q.ChangePercent != 25 {
		t.Errorf("expected change 25%%, got %v", q.ChangePercent)
	}

	q, err = y.Quote(context.Background(), "600519.SH")
	if err != nil {
		t.Fatalf("Quote() error = %v", err)
	}
	if q.Symbol != "600519.SH" || q.ChangePercent != nil {
		t.Errorf("unexpected quote %+v", q)
	}
}

func TestYahoo_QuoteErrors(t *testing.T) {
	y := newServer(t)

	if _, err := y.Quote(context.Background(), "DELISTED"); !errors.Is(err, core.ErrNoData) {
		t.Errorf("expected NO_DATA, got %v", err)
	}
	if _, err := y.Quote(context.Background(), "BOOM"); !errors.Is(err, core.ErrUpstreamUnavailable) {
		t.Errorf("expected UPSTREAM_UNAVAILABLE, got %v", err)
	}
}

func TestYahoo_Profile(t *testing.T) {
	y := newServer(t)

	p, err := y.Profile(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if p.Name != "Apple Inc." || p.Exchange != "NMS" {
		t.Errorf("unexpected profile %+v", p)
	}
	if p.MarketCapitalization != nil || p.PERatio != nil {
		t.Error("yahoo profiles carry no fundamentals")
	}

	p, err = y.Profile(context.Background(), "600519.SH")
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if p.Name != "KWEICHOW MOUTAI" {
		t.Errorf("expected short name fallback, got %q", p.Name)
	}
}

func TestYahoo_Search(t *testing.T) {
	y := newServer(t)

	results, err := y.Search(context.Background(), "apple")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Key() != "AAPL-NMS" || results[0].Type != "Common Stock" {
		t.Errorf("unexpected first result %+v", results[0])
	}
	if results[1].Name != "Apple Hospitality" {
		t.Errorf("expected short name fallback, got %q", results[1].Name)
	}

	results, err = y.Search(context.Background(), "zzzz")
	if err != nil || len(results) != 0 {
		t.Errorf("expected no results, got %v %v", results, err)
	}
}

func TestYahoo_SearchEmptyQuery(t *testing.T) {
	y := newServer(t)

	results, err := y.Search(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].Symbol != "AAPL" || results[0].Name != "Apple Inc." {
		t.Errorf("unexpected popular results %v", results)
	}
}

func TestTypeFromQuoteType(t *testing.T) {
	tests := map[string]string{
		"EQUITY":     "Common Stock",
		"etf":        "ETF",
		"MUTUALFUND": "Mutual Fund",
		"FUTURE":     "FUTURE",
	}
	for in, want := range tests {
		if got := typeFromQuoteType(in); got != want {
			t.Errorf("typeFromQuoteType(%q) = %q, want %q", in, got, want)
		}
	}
}
