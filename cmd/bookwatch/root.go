package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Houeta/bookwatch/internal/config"
	"github.com/Houeta/bookwatch/internal/fetcher"
	"github.com/Houeta/bookwatch/internal/metrics"
	"github.com/Houeta/bookwatch/internal/notifier"
	"github.com/Houeta/bookwatch/internal/parser"
	"github.com/Houeta/bookwatch/internal/reports"
	"github.com/Houeta/bookwatch/internal/repository/sqlite"
	"github.com/Houeta/bookwatch/internal/services/cycle"
	"github.com/Houeta/bookwatch/internal/services/detector"
	"github.com/Houeta/bookwatch/internal/services/discoverer"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "bookwatch",
		Short:         "Book catalog crawler with field-level change detection",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newWatchCmd())

	return root
}

// app bundles everything one cycle needs. Built once per command.
type app struct {
	cfg  *config.Config
	log  *slog.Logger
	repo *sqlite.Repository
	orch *cycle.Orchestrator
}

func buildApp(ctx context.Context) (*app, error) {
	cfg := config.MustLoad()
	logger := setupLogger(cfg.Env)

	repo, err := sqlite.NewRepository(ctx, logger, cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("failed to init repository: %w", err)
	}

	mtr := metrics.New(prometheus.DefaultRegisterer)
	bookParser := parser.NewParser(logger)

	sessions := fetcher.NewChromeFactory(logger, fetcher.Options{
		Headless:        cfg.Fetch.Headless,
		PageLoadTimeout: cfg.Fetch.PageLoadTimeout,
		SettleDelay:     cfg.Fetch.SettleDelay,
		RatePerSecond:   cfg.Fetch.RatePerSecond,
		RateBurst:       cfg.Fetch.RateBurst,
		RespectRobots:   cfg.Fetch.RespectRobots,
	})

	disc := discoverer.New(logger, repo, bookParser, mtr, cfg.BaseURL)
	det := detector.New(logger, repo, bookParser, mtr, cfg.AlertThresholdPct)

	orch := cycle.New(logger, sessions, disc, det, repo,
		buildSinks(logger, cfg), reports.NewWriter(logger, cfg.ReportDir), mtr)

	return &app{cfg: cfg, log: logger, repo: repo, orch: orch}, nil
}

// buildSinks wires every notification channel the config enables. A channel
// that fails to initialize is logged and dropped rather than blocking the
// crawl itself.
func buildSinks(logger *slog.Logger, cfg *config.Config) []cycle.Sink {
	var sinks []cycle.Sink

	if cfg.SMTP.Host != "" && cfg.SMTP.To != "" {
		sinks = append(sinks, notifier.NewEmailSink(logger, notifier.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			From:     cfg.SMTP.From,
			Password: cfg.SMTP.Password,
			To:       cfg.SMTP.To,
		}))
	}

	if cfg.Tg.Token != "" && cfg.Tg.ChatID != 0 {
		tg, err := notifier.NewTelegramSink(logger, cfg.Tg.Token, cfg.Tg.ChatID)
		if err != nil {
			logger.Error("Failed to init Telegram sink, continuing without it", "error", err)
		} else {
			sinks = append(sinks, tg)
		}
	}

	return sinks
}

func (a *app) Close() {
	if err := a.repo.Close(); err != nil {
		a.log.Error("Failed to close repository", "error", err)
	}
}
