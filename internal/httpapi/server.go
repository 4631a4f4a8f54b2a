// Package httpapi exposes the webhook, KPI queries, identity binding and
// admin report controls over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/lueurxax/support-kpi/internal/core/domain"
	"github.com/lueurxax/support-kpi/internal/core/ports"
	"github.com/lueurxax/support-kpi/internal/identity"
	"github.com/lueurxax/support-kpi/internal/ingest"
	"github.com/lueurxax/support-kpi/internal/kpi"
	"github.com/lueurxax/support-kpi/internal/output/report"
	"github.com/lueurxax/support-kpi/internal/platform/config"
	"github.com/lueurxax/support-kpi/internal/platform/observability"
	"github.com/lueurxax/support-kpi/internal/platform/schedule"
)

const (
	readHeaderTimeout = 10 * time.Second
	maxWebhookBody    = 1 << 20

	logFieldPort      = "port"
	logFieldRoute     = "route"
	logFieldStatus    = "status"
	logFieldLatency   = "latency"
	logFieldRequestID = "request_id"
	logFieldClientIP  = "client_ip"
)

// Ingester stores one webhook update.
type Ingester interface {
	Ingest(ctx context.Context, body []byte) (ingest.Result, error)
}

// Reports computes KPI aggregates on demand.
type Reports interface {
	Daily(ctx context.Context, channel domain.Channel, day schedule.Day, slaFirstSec int) (*kpi.DailyReport, error)
	Periodic(ctx context.Context, channel domain.Channel, end time.Time, hours, firstKTSec int) (*kpi.PeriodicReport, error)
	CloseTime(ctx context.Context, q kpi.CloseTimeQuery) ([]kpi.CloseTimeRow, error)
	Location() *time.Location
	Thresholds() kpi.Thresholds
	Now() time.Time
}

// Identities runs the identity admin operations.
type Identities interface {
	ListPending(ctx context.Context, limit, offset int) ([]domain.EmployeeIdentity, error)
	Bind(ctx context.Context, req identity.BindRequest) (*identity.BindResult, error)
	BackfillFromEvents(ctx context.Context, sinceDays int, autoCreate bool) (*identity.BackfillResult, error)
}

// Events serves the read-only event views.
type Events interface {
	ListEvents(ctx context.Context, q domain.EventQuery) ([]domain.Event, error)
	EventStats(ctx context.Context) (domain.EventStats, error)
}

// Dispatcher renders and sends reports on admin request.
type Dispatcher interface {
	SendDaily(ctx context.Context, channel domain.Channel, day schedule.Day, slaFirstSec int, trigger report.Trigger) (*report.Dispatch, error)
	SendPeriodic(ctx context.Context, channel domain.Channel, end time.Time, hours, firstKTSec int, trigger report.Trigger) (*report.Dispatch, error)
	SendAttendance(ctx context.Context, day schedule.Day, trigger report.Trigger) (*report.Dispatch, error)
}

// Deps are the services behind the routes.
type Deps struct {
	Ingester   Ingester
	Reports    Reports
	Identities Identities
	Dispatcher Dispatcher
	Events     Events
	Settings   ports.SettingsStore
	Pinger     observability.Pinger
	// RetroDays is the bind backfill window when the request does not set one.
	RetroDays int
}

// Server serves the API on one gin engine.
type Server struct {
	cfg     config.HTTPConfig
	deps    Deps
	limiter *ipLimiter
	logger  *zerolog.Logger
}

func NewServer(cfg config.HTTPConfig, deps Deps, logger *zerolog.Logger) *Server {
	return &Server{
		cfg:     cfg,
		deps:    deps,
		limiter: newIPLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		logger:  logger,
	}
}

// Router builds the engine with every route mounted.
func (s *Server) Router() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestID(), s.accessLog(), s.countRequests())

	observability.RegisterRoutes(engine, s.deps.Pinger)

	engine.POST("/telegram/webhook/:secret", s.handleWebhook)

	api := engine.Group("", s.rateLimit(), s.requireAdminToken())

	reports := api.Group("/reports/:channel")
	{
		reports.GET("/close-time", s.handleCloseTime)
		reports.GET("/daily", s.handleDailyReport)
		reports.GET("/periodic", s.handlePeriodicReport)
	}

	identities := api.Group("/identities")
	{
		identities.GET("/pending", s.handlePendingIdentities)
		identities.POST("/bind", s.handleBindIdentity)
		identities.POST("/backfill-from-events", s.handleBackfillIdentities)
	}

	api.GET("/employees/:employee_id/activity", s.handleEmployeeActivity)

	debug := api.Group("/debug/events")
	{
		debug.GET("/stats", s.handleEventStats)
		debug.GET("/last", s.handleLastEvents)
	}

	admin := api.Group("/admin/bot")
	{
		admin.GET("/ping", s.handlePing)
		admin.GET("/status", s.handleStatus)
		admin.GET("/settings", s.handleGetSettings)
		admin.PUT("/settings", s.handlePutSettings)
		admin.POST("/trigger/attendance", s.handleTriggerAttendance)
		admin.POST("/trigger/:channel/daily", s.handleTriggerDaily)
		admin.POST("/trigger/:channel/periodic", s.handleTriggerPeriodic)
	}

	return engine
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		//nolint:errcheck,contextcheck // shutdown in signal handler is best-effort, non-inherited context intentional
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info().Int(logFieldPort, s.cfg.Port).Msg("API server starting")

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}
