package httpapi

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lueurxax/support-kpi/internal/core/domain"
	errs "github.com/lueurxax/support-kpi/internal/core/errors"
	"github.com/lueurxax/support-kpi/internal/platform/schedule"
)

// Accepted parameter ranges.
const (
	minThresholdSec  = 1
	maxThresholdSec  = 3600
	maxMinKT         = 1000
	maxPendingLimit  = 500
	maxPendingOffset = 1_000_000
	maxWindowHours   = 24
	maxSinceDays     = 3650
)

type intRange struct {
	min, max int
}

// intQuery parses an optional integer parameter. Absent values return def.
func intQuery(c *gin.Context, name string, def int, bounds intRange) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errs.ErrInvalidInput, name)
	}

	if v < bounds.min || v > bounds.max {
		return 0, fmt.Errorf("%w: %s must be between %d and %d", errs.ErrInvalidInput, name, bounds.min, bounds.max)
	}

	return v, nil
}

// firstIntQuery reads the first present parameter among names.
func firstIntQuery(c *gin.Context, names []string, def int, bounds intRange) (int, error) {
	for _, name := range names {
		if _, ok := c.GetQuery(name); ok {
			return intQuery(c, name, def, bounds)
		}
	}

	return def, nil
}

func boolQuery(c *gin.Context, name string, def bool) (bool, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, nil
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", errs.ErrInvalidInput, name)
	}

	return v, nil
}

// timeQuery parses YYYY-MM-DD or YYYY-MM-DDTHH:MM in loc. Absent values return the zero time.
func timeQuery(c *gin.Context, name string, loc *time.Location) (time.Time, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return time.Time{}, nil
	}

	t, _, err := schedule.ParseDateOrDateTime(raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", name, err)
	}

	return t, nil
}

// dayQuery parses a YYYY-MM-DD parameter, defaulting to def.
func dayQuery(c *gin.Context, name string, def schedule.Day) (schedule.Day, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, nil
	}

	day, err := schedule.ParseDay(raw)
	if err != nil {
		return schedule.Day{}, fmt.Errorf("%s: %w", name, err)
	}

	return day, nil
}

// endQuery parses a YYYY-MM-DDTHH:MM parameter, defaulting to def.
func endQuery(c *gin.Context, name string, def time.Time, loc *time.Location) (time.Time, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, nil
	}

	t, err := schedule.ParseDateTime(raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", name, err)
	}

	return t, nil
}

func invalidParam(msg string) error {
	return fmt.Errorf("%w: %s", errs.ErrInvalidInput, msg)
}

// queueChannel reads :channel and accepts only the support queues.
func queueChannel(c *gin.Context) (domain.Channel, error) {
	channel, ok := domain.ParseChannel(c.Param("channel"))
	if !ok || !channel.IsSupportQueue() {
		return "", fmt.Errorf("%w: %q", errs.ErrUnknownChannel, c.Param("channel"))
	}

	return channel, nil
}
