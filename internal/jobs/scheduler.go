// Package jobs runs the scheduled report dispatches on cron specs evaluated
// in the reporting timezone. The HTTP trigger endpoints call the same
// dispatcher methods.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/lueurxax/support-kpi/internal/core/domain"
	errs "github.com/lueurxax/support-kpi/internal/core/errors"
	"github.com/lueurxax/support-kpi/internal/core/ports"
	"github.com/lueurxax/support-kpi/internal/output/report"
	"github.com/lueurxax/support-kpi/internal/platform/config"
	"github.com/lueurxax/support-kpi/internal/platform/observability"
	"github.com/lueurxax/support-kpi/internal/platform/schedule"
	"github.com/lueurxax/support-kpi/internal/platform/worker"
)

// Job names, also used as metric labels.
const (
	JobDailyBonus    = "daily_bonus"
	JobDailyFinans   = "daily_finans"
	JobPeriodicBonus = "periodic_bonus"
	JobAttendance    = "attendance"
)

// Advisory lock ids, one per job so different jobs never block each other.
const (
	lockDailyBonus    int64 = 730101
	lockDailyFinans   int64 = 730102
	lockPeriodicBonus int64 = 730103
	lockAttendance    int64 = 730104
)

const (
	statusOK       = "ok"
	statusError    = "error"
	statusSkipped  = "skipped"
	statusDisabled = "disabled"
	statusLocked   = "locked"

	logFieldJob      = "job"
	logFieldSpec     = "spec"
	logFieldDuration = "duration"
	logFieldStatus   = "status"
)

// Dispatcher renders and sends reports.
type Dispatcher interface {
	SendDaily(ctx context.Context, channel domain.Channel, day schedule.Day, slaFirstSec int, trigger report.Trigger) (*report.Dispatch, error)
	SendPeriodic(ctx context.Context, channel domain.Channel, end time.Time, hours, firstKTSec int, trigger report.Trigger) (*report.Dispatch, error)
	SendAttendance(ctx context.Context, day schedule.Day, trigger report.Trigger) (*report.Dispatch, error)
}

// Job is one scheduled dispatch.
type Job struct {
	Name   string
	Spec   string
	LockID int64
	Run    func(ctx context.Context, now time.Time) error
}

// Scheduler owns the cron runner. Overlapping runs of a job are skipped
// locally and across instances through advisory locks.
type Scheduler struct {
	cron       *cron.Cron
	dispatcher Dispatcher
	locker     ports.Locker
	cfg        config.ScheduleConfig
	loc        *time.Location
	logger     *zerolog.Logger
	now        func() time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock overrides the time source passed to jobs.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

func New(dispatcher Dispatcher, locker ports.Locker, cfg config.ScheduleConfig, loc *time.Location, logger *zerolog.Logger, opts ...Option) *Scheduler {
	cl := cronLogger{logger: logger}

	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		dispatcher: dispatcher,
		locker:     locker,
		cfg:        cfg,
		loc:        loc,
		logger:     logger,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Jobs lists every job with its configured spec. An empty spec disables the job.
func (s *Scheduler) Jobs() []Job {
	return []Job{
		{Name: JobDailyBonus, Spec: s.cfg.DailyBonus, LockID: lockDailyBonus, Run: s.dailyJob(domain.ChannelBonus)},
		{Name: JobDailyFinans, Spec: s.cfg.DailyFinans, LockID: lockDailyFinans, Run: s.dailyJob(domain.ChannelFinans)},
		{Name: JobPeriodicBonus, Spec: s.cfg.PeriodicBonus, LockID: lockPeriodicBonus, Run: s.periodicJob(domain.ChannelBonus)},
		{Name: JobAttendance, Spec: s.cfg.Attendance, LockID: lockAttendance, Run: s.attendanceJob},
	}
}

// Register adds the enabled jobs to the cron runner.
func (s *Scheduler) Register(ctx context.Context) error {
	for _, job := range s.Jobs() {
		if job.Spec == "" {
			s.logger.Info().Str(logFieldJob, job.Name).Msg("job disabled")

			continue
		}

		if _, err := s.cron.AddFunc(job.Spec, func() { s.RunJob(ctx, job) }); err != nil {
			return fmt.Errorf("register job %s (%q): %w", job.Name, job.Spec, err)
		}

		s.logger.Info().Str(logFieldJob, job.Name).Str(logFieldSpec, job.Spec).Msg("job scheduled")
	}

	return nil
}

// Run registers the jobs and blocks until ctx is canceled. Running jobs are
// allowed to finish before Run returns.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Register(ctx); err != nil {
		return err
	}

	s.logger.Info().Str("timezone", s.loc.String()).Msg("Starting report scheduler")

	s.cron.Start()

	<-ctx.Done()

	<-s.cron.Stop().Done()

	return fmt.Errorf("scheduler stopped: %w", ctx.Err())
}

// RunJob executes one job under its advisory lock and timeout. Failures are
// logged and counted; they never stop the scheduler.
func (s *Scheduler) RunJob(ctx context.Context, job Job) {
	defer worker.RecoverPanic(s.logger, job.Name)

	start := time.Now()
	status := s.runLocked(ctx, job)

	elapsed := time.Since(start)
	observability.JobDuration.WithLabelValues(job.Name).Observe(elapsed.Seconds())
	observability.JobRuns.WithLabelValues(job.Name, status).Inc()

	s.logger.Info().
		Str(logFieldJob, job.Name).
		Str(logFieldStatus, status).
		Dur(logFieldDuration, elapsed).
		Msg("job finished")
}

func (s *Scheduler) runLocked(ctx context.Context, job Job) string {
	acquired, err := s.locker.TryAcquireAdvisoryLock(ctx, job.LockID)
	if err != nil {
		s.logger.Error().Err(err).Str(logFieldJob, job.Name).Msg("job lock failed")

		return statusError
	}

	if !acquired {
		s.logger.Info().Str(logFieldJob, job.Name).Msg("job lock held by another instance, skipping")

		return statusLocked
	}

	defer func() {
		if err := s.locker.ReleaseAdvisoryLock(ctx, job.LockID); err != nil {
			s.logger.Warn().Err(err).Str(logFieldJob, job.Name).Msg("failed to release advisory lock")
		}
	}()

	err = worker.RunWithTimeout(ctx, s.cfg.JobTimeout, func(ctx context.Context) error {
		return job.Run(ctx, s.now())
	})

	switch {
	case err == nil:
		return statusOK
	case errors.Is(err, errs.ErrAlreadySent):
		return statusSkipped
	case errors.Is(err, errs.ErrReportingDisabled):
		return statusDisabled
	default:
		s.logger.Error().Err(err).Str(logFieldJob, job.Name).Msg("job failed")

		return statusError
	}
}

// dailyJob reports the previous local day.
func (s *Scheduler) dailyJob(channel domain.Channel) func(context.Context, time.Time) error {
	return func(ctx context.Context, now time.Time) error {
		day := schedule.DayOf(now, s.loc).AddDays(-1)

		if _, err := s.dispatcher.SendDaily(ctx, channel, day, 0, report.TriggerScheduled); err != nil {
			return fmt.Errorf("daily %s report for %s: %w", channel, day.Key(), err)
		}

		return nil
	}
}

// periodicJob reports the window ending at the current local hour.
func (s *Scheduler) periodicJob(channel domain.Channel) func(context.Context, time.Time) error {
	return func(ctx context.Context, now time.Time) error {
		end := HourStart(now, s.loc)

		if _, err := s.dispatcher.SendPeriodic(ctx, channel, end, 0, 0, report.TriggerScheduled); err != nil {
			return fmt.Errorf("periodic %s report ending %s: %w", channel, end.Format(schedule.DateTimeLayout), err)
		}

		return nil
	}
}

// attendanceJob checks the current local day.
func (s *Scheduler) attendanceJob(ctx context.Context, now time.Time) error {
	day := schedule.DayOf(now, s.loc)

	if _, err := s.dispatcher.SendAttendance(ctx, day, report.TriggerScheduled); err != nil {
		return fmt.Errorf("attendance report for %s: %w", day.Key(), err)
	}

	return nil
}

// HourStart truncates t to the start of its local hour.
func HourStart(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)

	return time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), 0, 0, 0, loc)
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger *zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
