package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/support-kpi/internal/core/domain"
	errs "github.com/lueurxax/support-kpi/internal/core/errors"
	"github.com/lueurxax/support-kpi/internal/core/ports/mocks"
	"github.com/lueurxax/support-kpi/internal/output/report"
	"github.com/lueurxax/support-kpi/internal/platform/config"
	"github.com/lueurxax/support-kpi/internal/platform/schedule"
)

var errDispatch = errors.New("dispatch failed")

type call struct {
	kind    string
	channel domain.Channel
	day     schedule.Day
	end     time.Time
	trigger report.Trigger
}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []call
	err   error
}

func (f *fakeDispatcher) record(c call) (*report.Dispatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, c)

	return &report.Dispatch{}, f.err
}

func (f *fakeDispatcher) SendDaily(_ context.Context, channel domain.Channel, day schedule.Day, _ int, trigger report.Trigger) (*report.Dispatch, error) {
	return f.record(call{kind: "daily", channel: channel, day: day, trigger: trigger})
}

func (f *fakeDispatcher) SendPeriodic(_ context.Context, channel domain.Channel, end time.Time, _, _ int, trigger report.Trigger) (*report.Dispatch, error) {
	return f.record(call{kind: "periodic", channel: channel, end: end, trigger: trigger})
}

func (f *fakeDispatcher) SendAttendance(_ context.Context, day schedule.Day, trigger report.Trigger) (*report.Dispatch, error) {
	return f.record(call{kind: "attendance", day: day, trigger: trigger})
}

func istanbul(t *testing.T) *time.Location {
	t.Helper()

	loc, err := schedule.LoadLocation("Europe/Istanbul")
	require.NoError(t, err)

	return loc
}

func defaultSchedule() config.ScheduleConfig {
	return config.ScheduleConfig{
		DailyBonus:    "5 0 * * *",
		DailyFinans:   "10 0 * * *",
		PeriodicBonus: "0 */2 * * *",
		Attendance:    "0 20 * * *",
		JobTimeout:    time.Minute,
	}
}

func newTestScheduler(t *testing.T, cfg config.ScheduleConfig, now time.Time) (*Scheduler, *fakeDispatcher, *mocks.Store) {
	t.Helper()

	logger := zerolog.Nop()
	dispatcher := &fakeDispatcher{}
	store := mocks.NewStore()

	s := New(dispatcher, store, cfg, istanbul(t), &logger, WithClock(func() time.Time { return now }))

	return s, dispatcher, store
}

func jobByName(t *testing.T, s *Scheduler, name string) Job {
	t.Helper()

	for _, j := range s.Jobs() {
		if j.Name == name {
			return j
		}
	}

	t.Fatalf("job %s not found", name)

	return Job{}
}

func TestScheduler_JobTargets(t *testing.T) {
	loc := istanbul(t)
	now := time.Date(2025, 9, 14, 0, 5, 30, 0, loc)
	today := schedule.Day{Year: 2025, Month: time.September, Day: 14}

	tests := []struct {
		job  string
		want call
	}{
		{JobDailyBonus, call{kind: "daily", channel: domain.ChannelBonus, day: today.AddDays(-1)}},
		{JobDailyFinans, call{kind: "daily", channel: domain.ChannelFinans, day: today.AddDays(-1)}},
		{JobPeriodicBonus, call{kind: "periodic", channel: domain.ChannelBonus, end: time.Date(2025, 9, 14, 0, 0, 0, 0, loc)}},
		{JobAttendance, call{kind: "attendance", day: today}},
	}

	for _, tt := range tests {
		t.Run(tt.job, func(t *testing.T) {
			s, dispatcher, _ := newTestScheduler(t, defaultSchedule(), now)

			s.RunJob(context.Background(), jobByName(t, s, tt.job))

			require.Len(t, dispatcher.calls, 1)

			got := dispatcher.calls[0]
			assert.Equal(t, tt.want.kind, got.kind)
			assert.Equal(t, tt.want.channel, got.channel)
			assert.Equal(t, tt.want.day, got.day)
			assert.True(t, tt.want.end.Equal(got.end), "end %s, want %s", got.end, tt.want.end)
			assert.Equal(t, report.TriggerScheduled, got.trigger)
		})
	}
}

func TestScheduler_LockHeldSkipsRun(t *testing.T) {
	s, dispatcher, store := newTestScheduler(t, defaultSchedule(), time.Now())
	job := jobByName(t, s, JobDailyBonus)

	ok, err := store.TryAcquireAdvisoryLock(context.Background(), job.LockID)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, statusLocked, s.runLocked(context.Background(), job))
	assert.Empty(t, dispatcher.calls)
}

func TestScheduler_ReleasesLock(t *testing.T) {
	s, _, store := newTestScheduler(t, defaultSchedule(), time.Now())
	job := jobByName(t, s, JobAttendance)

	assert.Equal(t, statusOK, s.runLocked(context.Background(), job))

	ok, err := store.TryAcquireAdvisoryLock(context.Background(), job.LockID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestScheduler_Statuses(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"ok", nil, statusOK},
		{"already sent", errs.ErrAlreadySent, statusSkipped},
		{"disabled", errs.ErrReportingDisabled, statusDisabled},
		{"failure", errDispatch, statusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, dispatcher, _ := newTestScheduler(t, defaultSchedule(), time.Now())
			dispatcher.err = tt.err

			assert.Equal(t, tt.want, s.runLocked(context.Background(), jobByName(t, s, JobDailyFinans)))
		})
	}
}

func TestScheduler_Register(t *testing.T) {
	t.Run("empty spec disables job", func(t *testing.T) {
		cfg := defaultSchedule()
		cfg.Attendance = ""

		s, _, _ := newTestScheduler(t, cfg, time.Now())
		require.NoError(t, s.Register(context.Background()))
		assert.Len(t, s.cron.Entries(), 3)
	})

	t.Run("invalid spec", func(t *testing.T) {
		cfg := defaultSchedule()
		cfg.DailyBonus = "every day"

		s, _, _ := newTestScheduler(t, cfg, time.Now())
		require.Error(t, s.Register(context.Background()))
	})
}

func TestHourStart(t *testing.T) {
	loc := istanbul(t)

	got := HourStart(time.Date(2025, 9, 13, 9, 59, 59, 0, time.UTC), loc)

	assert.Equal(t, time.Date(2025, 9, 13, 12, 0, 0, 0, loc), got)
}
