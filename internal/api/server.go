package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	handlerapi "github.com/newthinker/stockwatch/internal/api/handler/api"
	"github.com/newthinker/stockwatch/internal/api/middleware"
	"github.com/newthinker/stockwatch/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP server for stockwatch
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
}

// Config holds server configuration
type Config struct {
	Host           string
	Port           int
	APIKey         string
	IdentityHeader string
	PreviewSize    int
	MetricsPath    string
}

// Dependencies are the components the routes serve.
type Dependencies struct {
	Watchlist handlerapi.WatchlistService
	Searcher  handlerapi.Searcher
	// Metrics is optional; nil disables /metrics and request metrics.
	Metrics *metrics.Registry
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if deps.Watchlist == nil || deps.Searcher == nil {
		return nil, fmt.Errorf("watchlist service and searcher are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	s := &Server{
		logger: logger,
		mux:    mux,
	}
	s.setupRoutes(cfg, deps)

	handler := http.Handler(mux)
	if deps.Metrics != nil {
		handler = metrics.HTTPMiddleware(deps.Metrics)(handler)
	}
	handler = metrics.LoggingMiddleware(logger)(handler)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config, deps Dependencies) {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	protected := func(h http.HandlerFunc) http.Handler {
		return middleware.Chain(h,
			middleware.APIKeyAuth(cfg.APIKey),
			middleware.Principal(cfg.IdentityHeader))
	}

	wl := handlerapi.NewWatchlistHandler(deps.Watchlist)
	s.mux.Handle("GET /api/v1/watchlist", protected(wl.List))
	s.mux.Handle("POST /api/v1/watchlist", protected(wl.Add))
	s.mux.Handle("GET /api/v1/watchlist/symbols", protected(wl.Symbols))
	s.mux.Handle("POST /api/v1/watchlist/toggle", protected(wl.Toggle))
	s.mux.Handle("DELETE /api/v1/watchlist/{symbol}", protected(wl.Remove))

	var rec handlerapi.SearchRecorder
	if deps.Metrics != nil {
		rec = deps.Metrics
	}
	sym := handlerapi.NewSymbolsHandler(deps.Searcher, deps.Watchlist.CurrentSymbols, cfg.PreviewSize, rec)
	s.mux.Handle("GET /api/v1/symbols/search", protected(sym.Search))

	if deps.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		s.mux.Handle("GET "+path, promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}
}

// Handler returns the fully wrapped root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
