package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lueurxax/support-kpi/internal/output/report"
	"github.com/lueurxax/support-kpi/internal/platform/settings"
)

func (s *Server) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "service": "admin-bot"})
}

func (s *Server) readSettings(ctx context.Context) (map[string]bool, error) {
	out := make(map[string]bool, len(settings.Keys))

	for _, key := range settings.Keys {
		value, ok, err := s.deps.Settings.GetSetting(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("read setting %s: %w", key, err)
		}

		out[key] = ok && settings.ParseBool(value)
	}

	return out, nil
}

func (s *Server) handleGetSettings(c *gin.Context) {
	current, err := s.readSettings(c.Request.Context())
	if err != nil {
		s.writeError(c, err)

		return
	}

	c.JSON(http.StatusOK, current)
}

// handlePutSettings updates the switches present in the body and returns
// the full set. Unknown keys are rejected.
func (s *Server) handlePutSettings(c *gin.Context) {
	var body map[string]*bool
	if err := json.NewDecoder(c.Request.Body).Decode(&body); err != nil {
		s.writeError(c, invalidParam("body must be a JSON object of boolean switches"))

		return
	}

	known := make(map[string]bool, len(settings.Keys))
	for _, key := range settings.Keys {
		known[key] = true
	}

	for key := range body {
		if !known[key] {
			s.writeError(c, invalidParam(fmt.Sprintf("unknown setting %q", key)))

			return
		}
	}

	ctx := c.Request.Context()

	for _, key := range settings.Keys {
		v, ok := body[key]
		if !ok || v == nil {
			continue
		}

		if err := s.deps.Settings.SetSetting(ctx, key, settings.FormatBool(*v)); err != nil {
			s.writeError(c, fmt.Errorf("update setting %s: %w", key, err))

			return
		}
	}

	s.handleGetSettings(c)
}

// handleStatus is the short form of the switch set.
func (s *Server) handleStatus(c *gin.Context) {
	current, err := s.readSettings(c.Request.Context())
	if err != nil {
		s.writeError(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{
		"admin_tasks": current[settings.KeyAdminTasksEnabled],
		"bonus":       current[settings.KeyBonusEnabled],
		"finance":     current[settings.KeyFinanceEnabled],
		"attendance":  current[settings.KeyAttendanceEnabled],
	})
}

// handleTriggerDaily sends a daily report now. d defaults to yesterday.
func (s *Server) handleTriggerDaily(c *gin.Context) {
	channel, err := queueChannel(c)
	if err != nil {
		s.writeError(c, err)

		return
	}

	day, err := dayQuery(c, "d", s.yesterday())
	if err != nil {
		s.writeError(c, err)

		return
	}

	sla, err := firstIntQuery(c, []string{"sla_first_sec", "sla"}, s.deps.Reports.Thresholds().SLAFirstSec, intRange{minThresholdSec, maxThresholdSec})
	if err != nil {
		s.writeError(c, err)

		return
	}

	d, err := s.deps.Dispatcher.SendDaily(c.Request.Context(), channel, day, sla, report.TriggerManual)
	if err != nil {
		s.writeError(c, err)

		return
	}

	c.JSON(http.StatusOK, triggerResponse(d))
}

// handleTriggerPeriodic sends a periodic report for the window ending at end (default now).
func (s *Server) handleTriggerPeriodic(c *gin.Context) {
	channel, err := queueChannel(c)
	if err != nil {
		s.writeError(c, err)

		return
	}

	end, hours, kt, err := s.periodicParams(c)
	if err != nil {
		s.writeError(c, err)

		return
	}

	d, err := s.deps.Dispatcher.SendPeriodic(c.Request.Context(), channel, end, hours, kt, report.TriggerManual)
	if err != nil {
		s.writeError(c, err)

		return
	}

	resp := triggerResponse(d)
	resp["window"] = d.Window

	c.JSON(http.StatusOK, resp)
}

// handleTriggerAttendance sends the attendance check. d defaults to today.
func (s *Server) handleTriggerAttendance(c *gin.Context) {
	day, err := dayQuery(c, "d", s.today())
	if err != nil {
		s.writeError(c, err)

		return
	}

	d, err := s.deps.Dispatcher.SendAttendance(c.Request.Context(), day, report.TriggerManual)
	if err != nil {
		s.writeError(c, err)

		return
	}

	c.JSON(http.StatusOK, triggerResponse(d))
}

func triggerResponse(d *report.Dispatch) gin.H {
	return gin.H{
		"ok":        true,
		"date":      d.Date,
		"delivered": d.Delivered,
		"failed":    d.Failed,
	}
}
