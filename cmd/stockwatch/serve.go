package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newthinker/stockwatch/internal/api"
	"github.com/newthinker/stockwatch/internal/app"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the stockwatch HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app.App, log *zap.Logger) error {
		cfg := a.Config()

		log.Info("starting stockwatch server",
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
			zap.String("store", cfg.Store.Type),
			zap.String("provider", cfg.MarketData.Provider),
		)

		server, err := api.NewServer(api.Config{
			Host:           cfg.Server.Host,
			Port:           cfg.Server.Port,
			APIKey:         cfg.Server.APIKey,
			IdentityHeader: cfg.Identity.Header,
			PreviewSize:    cfg.Search.PreviewSize,
			MetricsPath:    cfg.Metrics.Path,
		}, api.Dependencies{
			Watchlist: a.Watchlist(),
			Searcher:  a.Gateway(),
			Metrics:   a.Metrics(),
		}, log)
		if err != nil {
			return fmt.Errorf("creating server: %w", err)
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start()
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
		case err := <-errCh:
			return err
		}

		log.Info("shutting down stockwatch server")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		return server.Shutdown(ctx)
	})
}
