package main

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run cycles on an interval until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			application, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer application.Close()

			if application.cfg.MetricsAddr != "" {
				go serveMetrics(application.log, application.cfg.MetricsAddr)
			}

			application.log.InfoContext(ctx, "Watch mode started. Press Ctrl+C to stop.",
				"interval", application.cfg.WatchInterval)

			ticker := time.NewTicker(application.cfg.WatchInterval)
			defer ticker.Stop()

			for {
				application.orch.Run(ctx)

				select {
				case <-ctx.Done():
					application.log.Info("Shutdown signal received. Stopping watch loop.")
					return nil
				case <-ticker.C:
				}
			}
		},
	}
}

func serveMetrics(logger *slog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	logger.Info("Metrics endpoint listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Metrics endpoint failed", "error", err)
	}
}
