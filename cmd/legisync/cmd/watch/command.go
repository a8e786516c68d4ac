// Package watch provides the watch command, which keeps the catalog current
// by importing the current session periodically.
package watch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/agentstation/legisync"
	"github.com/agentstation/legisync/cmd/application"
	"github.com/agentstation/legisync/pkg/errors"
	"github.com/agentstation/legisync/pkg/logging"
)

// Config holds the watch command configuration.
type Config struct {
	Interval    time.Duration
	MetricsAddr string
	SkipInitial bool
}

// NewCommand creates the watch command with app dependencies.
func NewCommand(app application.Application) *cobra.Command {
	cfg := &Config{}
	cmd := &cobra.Command{
		Use:     "watch",
		GroupID: "core",
		Short:   "Import the current session periodically",
		Long: `Watch imports the current session once, then again every interval until
interrupted. Prometheus metrics are served on /metrics while it runs.`,
		Example: `  legisync watch                         # Import hourly, metrics on :9090
  legisync watch --interval 15m
  legisync watch --metrics-addr ""       # No metrics endpoint`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var opts []legisync.Option
			if cmd.Flags().Changed("interval") {
				opts = append(opts, legisync.WithAutoImportInterval(cfg.Interval))
			}
			return Run(cmd.Context(), app, cfg, opts...)
		},
	}

	cmd.Flags().DurationVar(&cfg.Interval, "interval", time.Hour, "time between imports")
	cmd.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", ":9090", "listen address for /metrics (empty to disable)")
	cmd.Flags().BoolVar(&cfg.SkipInitial, "skip-initial", false, "wait one interval before the first import")

	return cmd
}

// Run imports until ctx is cancelled.
func Run(ctx context.Context, app application.Application, cfg *Config, opts ...legisync.Option) error {
	logger := app.Logger()
	ctx = logging.WithLogger(ctx, logger)

	client, err := app.Client(opts...)
	if err != nil {
		return err
	}

	if !cfg.SkipInitial {
		summary, err := client.ImportCurrent(ctx)
		switch {
		case err == nil:
			logger.Info().Str("summary", summary.String()).Msg("Initial import completed")
		case errors.IsLocked(err):
			logger.Info().Err(err).Msg("Import already running elsewhere")
		case ctx.Err() != nil:
			return nil
		default:
			// Keep watching; the next tick may succeed.
			logger.Error().Err(err).Msg("Initial import failed")
		}
	}

	if err := client.AutoImportsOn(); err != nil {
		return err
	}
	defer func() {
		if err := client.AutoImportsOff(); err != nil {
			logger.Warn().Err(err).Msg("Failed to stop auto-imports")
		}
	}()

	if cfg.MetricsAddr == "" {
		<-ctx.Done()
		logger.Info().Msg("Shutdown signal received")
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", app.Metrics().Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	server := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return serve(ctx, server, logger)
}

// serve runs server until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, server *http.Server, logger *zerolog.Logger) error {
	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("Metrics server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- fmt.Errorf("metrics server failed: %w", err)
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		logger.Info().Msg("Shutdown signal received")

		// The parent context is already cancelled.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics server shutdown failed: %w", err)
		}
		logger.Info().Msg("Metrics server stopped")
		return nil
	}
}
