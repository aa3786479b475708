package api

import (
	"net/http"

	"github.com/platinummonkey/vdjaccounts/pkg/audit"
	"github.com/platinummonkey/vdjaccounts/pkg/middleware"
)

// recordAudit logs an audit event for r. A nil err records success.
// Failures to record are logged and never fail the request.
func (s *Server) recordAudit(r *http.Request, eventType audit.EventType, actor string, err error) {
	status := audit.EventStatusSuccess
	if err != nil {
		status = audit.EventStatusFailure
	}

	event := audit.NewEvent(r, middleware.ClientIP(r, s.trustProxy), eventType, status)
	event.Username = actor
	if err != nil {
		event.StatusCode = statusFor(err)
		event.ErrorMessage = err.Error()
	}

	if logErr := s.audit.Log(r.Context(), event); logErr != nil {
		s.log(r).WithError(logErr).WithField("event_type", eventType).Warn("Failed to record audit event")
	}
}
