package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lueurxax/support-kpi/internal/core/domain"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 500
	defaultLastLimit     = 10
	maxLastLimit         = 100
)

type activityItem struct {
	ID            int64            `json:"id"`
	Timestamp     string           `json:"ts"`
	Channel       domain.Channel   `json:"channel"`
	Type          domain.EventType `json:"type"`
	CorrelationID string           `json:"corr"`
	Payload       json.RawMessage  `json:"payload"`
}

type lastEventItem struct {
	activityItem

	ChatID int64 `json:"chat_id"`
	MsgID  int64 `json:"msg_id"`
	From   any   `json:"from"`
}

func newActivityItem(ev domain.Event) activityItem {
	return activityItem{
		ID:            ev.ID,
		Timestamp:     ev.Timestamp.Format(time.RFC3339),
		Channel:       ev.SourceChannel,
		Type:          ev.Type,
		CorrelationID: ev.CorrelationID,
		Payload:       ev.Payload,
	}
}

// handleEmployeeActivity lists an employee's attributed events, newest first.
func (s *Server) handleEmployeeActivity(c *gin.Context) {
	employeeID := strings.TrimSpace(c.Param("employee_id"))
	if employeeID == "" {
		s.writeError(c, invalidParam("employee id is required"))

		return
	}

	loc := s.deps.Reports.Location()

	from, err := timeQuery(c, "from", loc)
	if err != nil {
		s.writeError(c, err)

		return
	}

	to, err := timeQuery(c, "to", loc)
	if err != nil {
		s.writeError(c, err)

		return
	}

	limit, err := intQuery(c, "limit", defaultActivityLimit, intRange{1, maxActivityLimit})
	if err != nil {
		s.writeError(c, err)

		return
	}

	events, err := s.deps.Events.ListEvents(c.Request.Context(), domain.EventQuery{
		EmployeeIDs: []string{employeeID},
		From:        from,
		To:          to,
		Order:       domain.EventOrderNewest,
		Limit:       limit,
	})
	if err != nil {
		s.writeError(c, err)

		return
	}

	resp := make([]activityItem, 0, len(events))
	for _, ev := range events {
		resp = append(resp, newActivityItem(ev))
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleEventStats(c *gin.Context) {
	stats, err := s.deps.Events.EventStats(c.Request.Context())
	if err != nil {
		s.writeError(c, err)

		return
	}

	c.JSON(http.StatusOK, stats)
}

// handleLastEvents lists the most recently stored events.
func (s *Server) handleLastEvents(c *gin.Context) {
	limit, err := intQuery(c, "limit", defaultLastLimit, intRange{1, maxLastLimit})
	if err != nil {
		s.writeError(c, err)

		return
	}

	events, err := s.deps.Events.ListEvents(c.Request.Context(), domain.EventQuery{
		Order: domain.EventOrderLastInserted,
		Limit: limit,
	})
	if err != nil {
		s.writeError(c, err)

		return
	}

	resp := make([]lastEventItem, 0, len(events))
	for _, ev := range events {
		var from any
		if ev.FromUsername != "" {
			from = ev.FromUsername
		} else if ev.FromUserID != nil {
			from = *ev.FromUserID
		}

		resp = append(resp, lastEventItem{
			activityItem: newActivityItem(ev),
			ChatID:       ev.ChatID,
			MsgID:        ev.MsgID,
			From:         from,
		})
	}

	c.JSON(http.StatusOK, resp)
}
