package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/support-kpi/internal/core/domain"
	errs "github.com/lueurxax/support-kpi/internal/core/errors"
	"github.com/lueurxax/support-kpi/internal/core/ports"
	"github.com/lueurxax/support-kpi/internal/kpi"
	"github.com/lueurxax/support-kpi/internal/output/notify"
	"github.com/lueurxax/support-kpi/internal/platform/observability"
	"github.com/lueurxax/support-kpi/internal/platform/schedule"
	"github.com/lueurxax/support-kpi/internal/platform/settings"
)

// Dispatch kinds recorded in the sent log.
const (
	KindDaily      = "daily"
	KindAttendance = "attendance"

	kindPeriodicFmt = "periodic_%dh"
)

// ChannelAttendance is the recipient and sent-log channel of the attendance check.
const ChannelAttendance = "attendance"

const (
	statusSent     = "sent"
	statusFailed   = "failed"
	statusDisabled = "disabled"
	statusSkipped  = "skipped"
)

// Trigger tells scheduled runs, which are deduplicated per period, from manual ones.
type Trigger int

const (
	TriggerScheduled Trigger = iota
	TriggerManual
)

// Reports computes the aggregates the service renders.
type Reports interface {
	Daily(ctx context.Context, channel domain.Channel, day schedule.Day, slaFirstSec int) (*kpi.DailyReport, error)
	Periodic(ctx context.Context, channel domain.Channel, end time.Time, hours, firstKTSec int) (*kpi.PeriodicReport, error)
	Attendance(ctx context.Context, day schedule.Day) (*kpi.AttendanceReport, error)
}

// Recipients resolves the chats that receive a channel's reports.
type Recipients interface {
	ReportRecipients(channel string) []int64
}

// SentLog is the notification dedup log.
type SentLog = ports.NotificationLogRepository

// Dispatch describes one rendered and delivered report.
type Dispatch struct {
	Channel   string `json:"channel"`
	Kind      string `json:"kind"`
	PeriodKey string `json:"period_key"`
	Date      string `json:"date"`
	Window    string `json:"window,omitempty"`
	Text      string `json:"-"`
	Delivered int    `json:"delivered"`
	Failed    int    `json:"failed"`
}

// Service renders reports and sends them to the report chats. Scheduled
// jobs and admin triggers share it.
type Service struct {
	reports    Reports
	settings   ports.SettingsStore
	sentLog    SentLog
	renderer   *Renderer
	sender     notify.Sender
	recipients Recipients
	logger     *zerolog.Logger
}

func NewService(reports Reports, settingsStore ports.SettingsStore, sentLog SentLog, renderer *Renderer, sender notify.Sender, recipients Recipients, logger *zerolog.Logger) *Service {
	return &Service{
		reports:    reports,
		settings:   settingsStore,
		sentLog:    sentLog,
		renderer:   renderer,
		sender:     sender,
		recipients: recipients,
		logger:     logger,
	}
}

// SwitchKey returns the admin setting that enables a channel's reports.
func SwitchKey(channel string) (string, bool) {
	switch channel {
	case string(domain.ChannelBonus):
		return settings.KeyBonusEnabled, true
	case string(domain.ChannelFinans):
		return settings.KeyFinanceEnabled, true
	case ChannelAttendance:
		return settings.KeyAttendanceEnabled, true
	default:
		return "", false
	}
}

// Enabled reads the channel switch. Missing switches are off.
func (s *Service) Enabled(ctx context.Context, channel string) (bool, error) {
	key, ok := SwitchKey(channel)
	if !ok {
		return false, fmt.Errorf("%w: %q", errs.ErrUnknownChannel, channel)
	}

	value, found, err := s.settings.GetSetting(ctx, key)
	if err != nil {
		return false, fmt.Errorf("get setting %s: %w", key, err)
	}

	return found && settings.ParseBool(value), nil
}

// SendDaily reports one local day. slaFirstSec <= 0 uses the configured threshold.
func (s *Service) SendDaily(ctx context.Context, channel domain.Channel, day schedule.Day, slaFirstSec int, trigger Trigger) (*Dispatch, error) {
	d := &Dispatch{Channel: string(channel), Kind: KindDaily, PeriodKey: day.Key(), Date: day.Label()}

	return s.dispatch(ctx, d, trigger, func(ctx context.Context) (string, error) {
		r, err := s.reports.Daily(ctx, channel, day, slaFirstSec)
		if err != nil {
			return "", err
		}

		return s.renderer.Render(ctx, d.Channel, DailyTemplate(channel), fallbackDaily, DailyValues(r)), nil
	})
}

// SendPeriodic reports the sliding window ending at end. Kind and period key
// are derived from the window length and the local end hour.
func (s *Service) SendPeriodic(ctx context.Context, channel domain.Channel, end time.Time, hours, firstKTSec int, trigger Trigger) (*Dispatch, error) {
	r, err := s.periodicReport(ctx, channel, end, hours, firstKTSec)
	if err != nil {
		return nil, err
	}

	d := &Dispatch{
		Channel:   string(channel),
		Kind:      fmt.Sprintf(kindPeriodicFmt, r.Hours),
		PeriodKey: r.PeriodKey,
		Date:      r.DateLabel,
		Window:    r.WindowStart + "-" + r.WindowEnd,
	}

	return s.dispatch(ctx, d, trigger, func(ctx context.Context) (string, error) {
		return s.renderer.Render(ctx, d.Channel, PeriodicTemplate(channel), fallbackPeriodic, PeriodicValues(r)), nil
	})
}

// periodicReport is computed before the dedup check because the period key
// depends on the resolved window.
func (s *Service) periodicReport(ctx context.Context, channel domain.Channel, end time.Time, hours, firstKTSec int) (*kpi.PeriodicReport, error) {
	enabled, err := s.Enabled(ctx, string(channel))
	if err != nil {
		return nil, err
	}

	if !enabled {
		observability.DispatchResults.WithLabelValues(string(channel), "periodic", statusDisabled).Inc()

		return nil, disabledError(string(channel))
	}

	r, err := s.reports.Periodic(ctx, channel, end, hours, firstKTSec)
	if err != nil {
		return nil, fmt.Errorf("build periodic report: %w", err)
	}

	return r, nil
}

// SendAttendance reports missing check-ins and check-outs for a local day.
func (s *Service) SendAttendance(ctx context.Context, day schedule.Day, trigger Trigger) (*Dispatch, error) {
	d := &Dispatch{Channel: ChannelAttendance, Kind: KindAttendance, PeriodKey: day.Key(), Date: day.Label()}

	return s.dispatch(ctx, d, trigger, func(ctx context.Context) (string, error) {
		r, err := s.reports.Attendance(ctx, day)
		if err != nil {
			return "", err
		}

		return s.renderer.Render(ctx, string(domain.ChannelMesai), TemplateAttendance, fallbackAttendance, AttendanceValues(r)), nil
	})
}

func (s *Service) dispatch(ctx context.Context, d *Dispatch, trigger Trigger, build func(context.Context) (string, error)) (*Dispatch, error) {
	enabled, err := s.Enabled(ctx, d.Channel)
	if err != nil {
		return nil, err
	}

	if !enabled {
		s.record(d, statusDisabled)

		return nil, disabledError(d.Channel)
	}

	if trigger == TriggerScheduled {
		sent, err := s.sentLog.NotificationSent(ctx, d.Channel, d.Kind, d.PeriodKey)
		if err != nil {
			return nil, fmt.Errorf("check notification log: %w", err)
		}

		if sent {
			s.record(d, statusSkipped)

			return d, errs.ErrAlreadySent
		}
	}

	recipients := s.recipients.ReportRecipients(d.Channel)
	if len(recipients) == 0 {
		s.record(d, statusFailed)

		return nil, fmt.Errorf("%s %s report: %w", d.Channel, d.Kind, errs.ErrNoRecipients)
	}

	text, err := build(ctx)
	if err != nil {
		return nil, fmt.Errorf("build %s %s report: %w", d.Channel, d.Kind, err)
	}

	d.Text = text

	var sendErr error

	for _, chatID := range recipients {
		if err := s.sender.Send(ctx, chatID, text); err != nil {
			d.Failed++
			sendErr = errors.Join(sendErr, err)

			s.logger.Warn().Err(err).
				Str(logFieldChannel, d.Channel).
				Str(logFieldKind, d.Kind).
				Int64(logFieldChatID, chatID).
				Msg("report delivery failed")

			continue
		}

		d.Delivered++
	}

	if d.Delivered == 0 {
		s.record(d, statusFailed)

		return d, fmt.Errorf("%w: %w", errs.ErrSendFailed, sendErr)
	}

	if err := s.sentLog.MarkNotificationSent(ctx, d.Channel, d.Kind, d.PeriodKey); err != nil {
		return d, fmt.Errorf("mark notification sent: %w", err)
	}

	s.record(d, statusSent)

	s.logger.Info().
		Str(logFieldChannel, d.Channel).
		Str(logFieldKind, d.Kind).
		Str(logFieldPeriod, d.PeriodKey).
		Int("delivered", d.Delivered).
		Int("failed", d.Failed).
		Msg("report dispatched")

	return d, nil
}

func (s *Service) record(d *Dispatch, status string) {
	observability.DispatchResults.WithLabelValues(d.Channel, d.Kind, status).Inc()
}

// DisabledError reports a channel whose switch is off. It matches
// errs.ErrReportingDisabled.
type DisabledError struct {
	Channel string
}

func (e *DisabledError) Error() string {
	return e.Channel + " notifications disabled"
}

func (e *DisabledError) Unwrap() error {
	return errs.ErrReportingDisabled
}

func disabledError(channel string) error {
	return &DisabledError{Channel: channel}
}
