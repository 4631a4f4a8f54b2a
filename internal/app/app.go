// Package app wires the services together and runs the operational modes:
//
//   - API mode: webhook ingestion, KPI queries, identity and admin routes
//   - Scheduler mode: cron driven report delivery with a health server
//   - All mode: both in one process
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lueurxax/support-kpi/internal/httpapi"
	"github.com/lueurxax/support-kpi/internal/identity"
	"github.com/lueurxax/support-kpi/internal/ingest"
	"github.com/lueurxax/support-kpi/internal/jobs"
	"github.com/lueurxax/support-kpi/internal/kpi"
	"github.com/lueurxax/support-kpi/internal/output/notify"
	"github.com/lueurxax/support-kpi/internal/output/report"
	"github.com/lueurxax/support-kpi/internal/platform/config"
	"github.com/lueurxax/support-kpi/internal/platform/observability"
	db "github.com/lueurxax/support-kpi/internal/storage"
)

const msgSchedulerStopped = "scheduler stopped"

// App holds the application dependencies and provides methods to run different modes.
type App struct {
	cfg      *config.Config
	database *db.DB
	logger   *zerolog.Logger

	aggregator *kpi.Aggregator
	identities *identity.Service
	reports    *report.Service
}

// New builds the services shared by every mode.
func New(cfg *config.Config, database *db.DB, logger *zerolog.Logger) (*App, error) {
	loc := cfg.Location()

	aggregator := kpi.New(database, loc, logger, kpi.WithThresholds(kpi.Thresholds{
		SLAFirstSec:        cfg.Reporting.SLAFirstSec,
		PeriodicHours:      cfg.Reporting.PeriodicWindowHours,
		PeriodicFirstKTSec: cfg.Reporting.PeriodicFirstKTSec,
		PeriodicSLAWarnPct: cfg.Reporting.PeriodicSLAWarnPct,
		CloseTimeMinKT:     cfg.Reporting.CloseTimeMinKT,
	}))

	sender, err := newSender(cfg.Telegram, logger)
	if err != nil {
		return nil, err
	}

	renderer := report.NewRenderer(database, logger)

	return &App{
		cfg:        cfg,
		database:   database,
		logger:     logger,
		aggregator: aggregator,
		identities: identity.New(database, logger),
		reports:    report.NewService(aggregator, database, database, renderer, sender, cfg, logger),
	}, nil
}

// newSender falls back to logging reports when no bot token is configured.
func newSender(cfg config.TelegramConfig, logger *zerolog.Logger) (notify.Sender, error) {
	if cfg.BotToken == "" {
		logger.Warn().Msg("TG_BOT_TOKEN not set, reports will only be logged")

		return notify.NewLogSender(logger), nil
	}

	sender, err := notify.NewTelegramSender(cfg.BotToken, notify.Options{
		Timeout:        cfg.NotifyTimeout,
		ParseMarkdown:  cfg.NotifyParseMarkdown,
		DisablePreview: cfg.NotifyDisablePreview,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("telegram sender init: %w", err)
	}

	return sender, nil
}

// RunAPI serves the HTTP API until ctx is canceled.
func (a *App) RunAPI(ctx context.Context) error {
	a.logger.Info().Msg("Starting API mode")

	pipeline := ingest.NewPipeline(a.database, a.identities, a.cfg.Routing(), a.logger)

	srv := httpapi.NewServer(a.cfg.HTTP, httpapi.Deps{
		Ingester:   pipeline,
		Reports:    a.aggregator,
		Identities: a.identities,
		Dispatcher: a.reports,
		Events:     a.database,
		Settings:   a.database,
		Pinger:     a.database,
		RetroDays:  a.cfg.Reporting.IdentityRetroDays,
	}, a.logger)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("api server: %w", err)
	}

	return nil
}

// RunScheduler runs the report jobs with a standalone health server.
func (a *App) RunScheduler(ctx context.Context) error {
	a.logger.Info().Msg("Starting scheduler mode")

	go func() {
		if err := observability.NewServer(a.database, a.cfg.HTTP.Port, a.logger).Start(ctx); err != nil {
			a.logger.Error().Err(err).Msg("health check server error")
		}
	}()

	return a.newScheduler().Run(ctx)
}

// RunAll runs the scheduler next to the API server.
func (a *App) RunAll(ctx context.Context) error {
	a.logger.Info().Msg("Starting API and scheduler")

	go a.runScheduler(ctx)

	return a.RunAPI(ctx)
}

func (a *App) newScheduler() *jobs.Scheduler {
	return jobs.New(a.reports, a.database, a.cfg.Schedule, a.cfg.Location(), a.logger)
}

func (a *App) runScheduler(ctx context.Context) {
	if err := a.newScheduler().Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			a.logger.Info().Msg(msgSchedulerStopped)

			return
		}

		a.logger.Error().Err(err).Msg(msgSchedulerStopped)
	}
}
