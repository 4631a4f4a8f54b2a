package httpapi

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	errs "github.com/lueurxax/support-kpi/internal/core/errors"
	"github.com/lueurxax/support-kpi/internal/platform/observability"
)

const (
	rejectSecret  = "secret"
	rejectBody    = "body"
	rejectInvalid = "invalid"
	rejectStore   = "store"
)

// handleWebhook ingests one Telegram update. Updates without a message are
// accepted as no-ops so Telegram does not redeliver them.
func (s *Server) handleWebhook(c *gin.Context) {
	if subtle.ConstantTimeCompare([]byte(c.Param("secret")), []byte(s.cfg.WebhookSecret)) != 1 {
		observability.WebhookRejected.WithLabelValues(rejectSecret).Inc()
		s.writeError(c, errs.ErrForbidden)

		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		observability.WebhookRejected.WithLabelValues(rejectBody).Inc()

		kind := errs.ErrInvalidInput

		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			kind = errs.ErrPayloadTooLarge
		}

		s.writeError(c, fmt.Errorf("%w: read body: %w", kind, err))

		return
	}

	res, err := s.deps.Ingester.Ingest(c.Request.Context(), body)
	if err != nil {
		reason := rejectStore
		if errors.Is(err, errs.ErrInvalidInput) {
			reason = rejectInvalid
		}

		observability.WebhookRejected.WithLabelValues(reason).Inc()
		s.writeError(c, err)

		return
	}

	if !res.HasMessage {
		c.JSON(http.StatusOK, gin.H{"ok": true})

		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"stored":  res.Stored,
		"type":    res.Type,
		"channel": res.Channel,
	})
}
