// Package app wires configuration into the running components.
package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/newthinker/stockwatch/internal/config"
	"github.com/newthinker/stockwatch/internal/identity"
	"github.com/newthinker/stockwatch/internal/marketdata"
	mdfactory "github.com/newthinker/stockwatch/internal/marketdata/factory"
	"github.com/newthinker/stockwatch/internal/metrics"
	"github.com/newthinker/stockwatch/internal/store"
	storefactory "github.com/newthinker/stockwatch/internal/store/factory"
	"github.com/newthinker/stockwatch/internal/watchlist"
	"go.uber.org/zap"
)

// App is the main application orchestrator
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	metrics   *metrics.Registry
	store     store.Store
	gateway   marketdata.Gateway
	directory *identity.StaticDirectory
}

// New builds the store, gateway and identity directory from cfg.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var reg *metrics.Registry
	var rec marketdata.Recorder
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
		rec = reg
	}

	st, err := storefactory.New(cfg.Store, logger.Named("store"))
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	gw, err := mdfactory.New(cfg.MarketData, rec, logger.Named("marketdata"))
	if err != nil {
		closeStore(st)
		return nil, fmt.Errorf("creating market data gateway: %w", err)
	}

	dir := identity.NewStaticDirectory(nil)
	for _, u := range cfg.Identity.Users {
		dir.Add(u.Email, u.ID)
	}

	return &App{
		cfg:       cfg,
		logger:    logger,
		metrics:   reg,
		store:     st,
		gateway:   gw,
		directory: dir,
	}, nil
}

// Config returns the loaded configuration.
func (a *App) Config() *config.Config { return a.cfg }

// Metrics returns the registry, or nil when metrics are disabled.
func (a *App) Metrics() *metrics.Registry { return a.metrics }

// Gateway returns the market data gateway.
func (a *App) Gateway() marketdata.Gateway { return a.gateway }

// Directory returns the e-mail to user ID directory.
func (a *App) Directory() *identity.StaticDirectory { return a.directory }

// Watchlist returns a service resolving users from request principals.
func (a *App) Watchlist() *watchlist.Service {
	return a.newService(identity.NewSessionResolver(a.directory))
}

// WatchlistFor returns a service acting as a fixed user ID, for operator
// tooling that names the user explicitly.
func (a *App) WatchlistFor(userID string) *watchlist.Service {
	return a.newService(identity.Static(userID))
}

func (a *App) newService(r identity.Resolver) *watchlist.Service {
	deps := watchlist.Deps{
		Store:     a.store,
		Gateway:   a.gateway,
		Resolver:  r,
		Directory: a.directory,
		Logger:    a.logger.Named("watchlist"),
	}
	if a.metrics != nil {
		deps.Metrics = a.metrics
	}
	return watchlist.New(deps)
}

// ResolveUser maps a --user flag value to a store user ID. E-mail addresses
// go through the directory; anything else is taken as the ID itself.
func (a *App) ResolveUser(ctx context.Context, user string) (string, error) {
	if id, ok := a.directory.Lookup(ctx, user); ok {
		return id, nil
	}
	switch {
	case user == "":
		return "", fmt.Errorf("user is required")
	case strings.Contains(user, "@"):
		return "", fmt.Errorf("no user record for %s", user)
	}
	return user, nil
}

// Close releases the store's connections.
func (a *App) Close() error {
	return closeStore(a.store)
}

func closeStore(st store.Store) error {
	if c, ok := st.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
