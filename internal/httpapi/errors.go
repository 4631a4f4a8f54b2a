package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	errs "github.com/lueurxax/support-kpi/internal/core/errors"
	"github.com/lueurxax/support-kpi/internal/output/report"
	"github.com/lueurxax/support-kpi/internal/platform/schedule"
)

const msgInternalError = "internal error"

var badRequestErrors = []error{
	errs.ErrInvalidInput,
	errs.ErrInvalidDate,
	errs.ErrInvalidActorKey,
	errs.ErrUnknownChannel,
	errs.ErrReportingDisabled,
	schedule.ErrInvalidDate,
	schedule.ErrInvalidWindow,
	schedule.ErrInvertedWindow,
}

var notFoundErrors = []error{
	errs.ErrNotFound,
	errs.ErrIdentityNotFound,
	errs.ErrEmployeeNotFound,
}

var badGatewayErrors = []error{
	errs.ErrSendFailed,
	errs.ErrNoRecipients,
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}

// statusOf maps a service error to its HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, errs.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, errs.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case isAny(err, badRequestErrors):
		return http.StatusBadRequest
	case isAny(err, notFoundErrors):
		return http.StatusNotFound
	case isAny(err, badGatewayErrors):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with {"ok":false,"error":...}. Internal errors are
// logged and not echoed.
func (s *Server) writeError(c *gin.Context, err error) {
	status := statusOf(err)

	message := err.Error()

	var disabled *report.DisabledError

	switch {
	case errors.As(err, &disabled):
		message = disabled.Error()
	case status == http.StatusInternalServerError:
		s.logger.Error().Err(err).
			Str(logFieldRequestID, c.GetString(ctxKeyRequestID)).
			Str(logFieldRoute, routeOf(c)).
			Msg("request failed")

		message = msgInternalError
	}

	c.AbortWithStatusJSON(status, gin.H{"ok": false, "error": message})
}
