// Package kpi derives response and close-time metrics from stored events.
//
// Every report runs in three steps: load the window's reply_first and close
// events, group them into threads by reply-chain root (see Walker), then fold
// the thread timings per employee. The root message timestamp is the origin
// of every duration; origin events only mark thread creation.
package kpi

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/support-kpi/internal/core/domain"
	"github.com/lueurxax/support-kpi/internal/platform/observability"
	"github.com/lueurxax/support-kpi/internal/platform/schedule"
)

const (
	baselineDays = 7

	reportDaily     = "daily"
	reportPeriodic  = "periodic"
	reportCloseTime = "close_time"

	logFieldChannel = "channel"
	logFieldReport  = "report"
)

// EventReader lists events for aggregation.
type EventReader interface {
	ListEvents(ctx context.Context, q domain.EventQuery) ([]domain.Event, error)
}

// EmployeeDirectory lists employees by department ("" for all).
type EmployeeDirectory interface {
	ListEmployees(ctx context.Context, department string) ([]domain.Employee, error)
}

// Store is everything the aggregator reads.
type Store interface {
	EventReader
	RawReader
	EmployeeDirectory
}

// Thresholds are the tunable report limits.
type Thresholds struct {
	SLAFirstSec        int
	PeriodicHours      int
	PeriodicFirstKTSec int
	PeriodicSLAWarnPct int
	CloseTimeMinKT     int
}

// DefaultThresholds match the production configuration defaults.
var DefaultThresholds = Thresholds{
	SLAFirstSec:        60,
	PeriodicHours:      2,
	PeriodicFirstKTSec: 30,
	PeriodicSLAWarnPct: 25,
	CloseTimeMinKT:     5,
}

// Aggregator computes KPI reports. Each call reads fresh from the store.
type Aggregator struct {
	store      Store
	loc        *time.Location
	thresholds Thresholds
	logger     *zerolog.Logger
	now        func() time.Time
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// WithThresholds overrides the report limits.
func WithThresholds(t Thresholds) Option {
	return func(a *Aggregator) {
		a.thresholds = t
	}
}

func New(store Store, loc *time.Location, logger *zerolog.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{
		store:      store,
		loc:        loc,
		thresholds: DefaultThresholds,
		logger:     logger,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Location is the timezone that calendar days are cut in.
func (a *Aggregator) Location() *time.Location {
	return a.loc
}

// Thresholds returns the configured limits.
func (a *Aggregator) Thresholds() Thresholds {
	return a.thresholds
}

// Now returns the aggregator clock in the configured location.
func (a *Aggregator) Now() time.Time {
	return a.now().In(a.loc)
}

var threadTypes = append([]domain.EventType{domain.EventReplyFirst}, domain.CloseTypes...)

// threads loads the window's events and groups them.
func (a *Aggregator) threads(ctx context.Context, q domain.EventQuery, walker *Walker) (ThreadSet, error) {
	events, err := a.store.ListEvents(ctx, q)
	if err != nil {
		return ThreadSet{}, fmt.Errorf("list events: %w", err)
	}

	set, err := BuildThreads(ctx, walker, events)
	if err != nil {
		return ThreadSet{}, err
	}

	return set, nil
}

func (a *Aggregator) observe(report string, channel domain.Channel, start time.Time, set ThreadSet) {
	observability.ReportDuration.WithLabelValues(report).Observe(time.Since(start).Seconds())

	if set.Unresolved > 0 {
		observability.UnresolvedThreads.WithLabelValues(string(channel), report).Add(float64(set.Unresolved))
	}

	a.logger.Debug().
		Str(logFieldReport, report).
		Str(logFieldChannel, string(channel)).
		Int("threads", len(set.Threads)).
		Int("unresolved", set.Unresolved).
		Int("negative", set.Negative).
		Msg("threads aggregated")
}

// teamAverageClose is the mean close time over threads closed inside the window.
func (a *Aggregator) teamAverageClose(ctx context.Context, channel domain.Channel, window schedule.Window, employeeIDs []string) (*float64, error) {
	q := domain.EventQuery{
		Channel: channel,
		Types:   domain.CloseTypes,
		From:    window.From,
		To:      window.To,
	}

	if employeeIDs != nil {
		q.AttributedOnly = true
		q.EmployeeIDs = employeeIDs
	}

	set, err := a.threads(ctx, q, NewWalker(a.store))
	if err != nil {
		return nil, fmt.Errorf("team baseline: %w", err)
	}

	secs := make([]float64, 0, len(set.Threads))

	for _, th := range set.Threads {
		if th.CloseSec != nil {
			secs = append(secs, *th.CloseSec)
		}
	}

	return mean(secs), nil
}

func (a *Aggregator) employeeNames(ctx context.Context, department string) (map[string]domain.Employee, error) {
	employees, err := a.store.ListEmployees(ctx, department)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}

	byID := make(map[string]domain.Employee, len(employees))
	for _, emp := range employees {
		byID[emp.EmployeeID] = emp
	}

	return byID, nil
}

func displayName(names map[string]domain.Employee, id string) string {
	if emp, ok := names[id]; ok {
		return emp.DisplayName()
	}

	return id
}

// roundSec rounds half away from zero to whole seconds.
func roundSec(v *float64) *int {
	if v == nil {
		return nil
	}

	r := int(math.Round(*v))

	return &r
}
