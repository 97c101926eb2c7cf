// Package factory builds the configured market data gateway.
package factory

import (
	"fmt"

	"github.com/newthinker/stockwatch/internal/config"
	"github.com/newthinker/stockwatch/internal/core"
	"github.com/newthinker/stockwatch/internal/marketdata"
	"github.com/newthinker/stockwatch/internal/marketdata/finnhub"
	"github.com/newthinker/stockwatch/internal/marketdata/yahoo"
	"go.uber.org/zap"
)

// New registers every provider the config can support and chains the
// primary with its fallbacks. rec may be nil.
func New(cfg config.MarketDataConfig, rec marketdata.Recorder, logger *zap.Logger) (marketdata.Gateway, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	reg := marketdata.NewRegistry()
	if cfg.Finnhub.APIKey != "" {
		reg.Register(marketdata.Instrument(finnhub.New(finnhub.Options{
			APIKey:  cfg.Finnhub.APIKey,
			BaseURL: cfg.Finnhub.BaseURL,
			Timeout: cfg.Timeout,
			Popular: cfg.Popular,
		}, logger.Named("finnhub")), rec))
	}
	reg.Register(marketdata.Instrument(yahoo.New(yahoo.Options{
		ChartURL:  cfg.Yahoo.ChartURL,
		SearchURL: cfg.Yahoo.SearchURL,
		Timeout:   cfg.Timeout,
		Popular:   cfg.Popular,
	}, logger.Named("yahoo")), rec))

	names := append([]string{cfg.Provider}, cfg.Fallback...)
	providers := make([]marketdata.Provider, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		p, ok := reg.Get(name)
		if !ok {
			return nil, core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("market data provider %q unavailable (registered: %v)", name, reg.Names()))
		}
		providers = append(providers, p)
	}

	if len(providers) == 1 {
		return providers[0], nil
	}
	return marketdata.NewChain(logger, providers...), nil
}
