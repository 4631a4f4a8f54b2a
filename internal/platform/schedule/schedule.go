// Package schedule holds the calendar arithmetic shared by reports, jobs and
// query parameters: local day windows, sliding windows, period keys and the
// strict date layouts accepted from callers.
package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"
	// Embed tzdata for environments without zoneinfo.
	_ "time/tzdata"
)

// Accepted caller layouts.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02T15:04"
)

// Display layouts used in rendered reports and period keys.
const (
	LabelDateLayout  = "02.01.2006"
	LabelClockLayout = "15:04"
	hourKeyLayout    = "2006-01-02T15:00"
)

// Error messages.
const (
	errFmtInvalidTimezone = "invalid timezone: %w"
)

// Static errors for schedule validation.
var (
	ErrInvalidDate    = errors.New("date must be YYYY-MM-DD or YYYY-MM-DDTHH:MM")
	ErrInvalidWindow  = errors.New("window must be positive")
	ErrEmptyTimezone  = errors.New("timezone is empty")
	ErrInvertedWindow = errors.New("window start is after its end")
)

var timezoneAliases = map[string]string{
	"Asia/Nicosia": "Europe/Nicosia",
	"Turkey":       "Europe/Istanbul",
}

// NormalizeTimezone maps known aliases to canonical IANA names.
func NormalizeTimezone(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}

	if canonical, ok := timezoneAliases[value]; ok {
		return canonical
	}

	return value
}

// LoadLocation resolves a timezone name after alias normalization.
func LoadLocation(name string) (*time.Location, error) {
	name = NormalizeTimezone(name)
	if name == "" {
		return nil, ErrEmptyTimezone
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf(errFmtInvalidTimezone, err)
	}

	return loc, nil
}

// Window is a half-open time range [From, To).
type Window struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.To)
}

// Validate rejects inverted windows.
func (w Window) Validate() error {
	if w.From.After(w.To) {
		return ErrInvertedWindow
	}

	return nil
}

// Day is a calendar date without a timezone.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// DayOf returns the calendar date of t in loc.
func DayOf(t time.Time, loc *time.Location) Day {
	y, m, d := t.In(loc).Date()

	return Day{Year: y, Month: m, Day: d}
}

// Start returns local midnight of the day.
func (d Day) Start(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// Window returns [local midnight, next local midnight). DST days are 23 or 25 hours long.
func (d Day) Window(loc *time.Location) Window {
	start := d.Start(loc)

	return Window{From: start, To: start.AddDate(0, 0, 1)}
}

// AddDays shifts the date by n calendar days.
func (d Day) AddDays(n int) Day {
	t := time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC)

	return Day{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// Key is the daily period key, YYYY-MM-DD.
func (d Day) Key() string {
	return d.Start(time.UTC).Format(DateLayout)
}

// Label is the human readable date, DD.MM.YYYY.
func (d Day) Label() string {
	return d.Start(time.UTC).Format(LabelDateLayout)
}

// ParseDay parses a YYYY-MM-DD value.
func ParseDay(value string) (Day, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return Day{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}

	return Day{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// ParseDateOrDateTime accepts only YYYY-MM-DD or YYYY-MM-DDTHH:MM, interpreted in loc.
// dateOnly reports which layout matched.
func ParseDateOrDateTime(value string, loc *time.Location) (t time.Time, dateOnly bool, err error) {
	value = strings.TrimSpace(value)

	if t, err := time.ParseInLocation(DateLayout, value, loc); err == nil {
		return t, true, nil
	}

	if t, err := time.ParseInLocation(DateTimeLayout, value, loc); err == nil {
		return t, false, nil
	}

	return time.Time{}, false, fmt.Errorf("%w: %q", ErrInvalidDate, value)
}

// ParseDateTime accepts only YYYY-MM-DDTHH:MM, interpreted in loc.
func ParseDateTime(value string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateTimeLayout, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}

	return t, nil
}

// Sliding returns [end - d, end).
func Sliding(end time.Time, d time.Duration) (Window, error) {
	if d <= 0 {
		return Window{}, ErrInvalidWindow
	}

	return Window{From: end.Add(-d), To: end}, nil
}

// TrailingDays returns the n-day window ending at end.
func TrailingDays(end time.Time, n int) Window {
	return Window{From: end.AddDate(0, 0, -n), To: end}
}

// HourKey is the periodic period key of end in loc, YYYY-MM-DDTHH:00.
func HourKey(end time.Time, loc *time.Location) string {
	return end.In(loc).Format(hourKeyLayout)
}

// Clock formats t as HH:MM in loc.
func Clock(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(LabelClockLayout)
}
