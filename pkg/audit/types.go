package audit

import (
	"encoding/json"
	"time"
)

// EventType represents the category of audit event
type EventType string

const (
	// Account lifecycle events
	EventTypeAccountRegister EventType = "account.register"
	EventTypeAccountUpdate   EventType = "account.profile_update"
	EventTypeAccountDelete   EventType = "account.delete"

	// Authentication events
	EventTypeAuthLogin       EventType = "auth.login"
	EventTypeAuthLoginFailed EventType = "auth.login_failed"

	// Password reset events
	EventTypeResetRequest  EventType = "reset.request"
	EventTypeResetComplete EventType = "reset.complete"

	// Token passthrough events
	EventTypeTokenFetch   EventType = "token.fetch"
	EventTypeTokenRefresh EventType = "token.refresh"
)

// EventStatus represents the outcome of an event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// Event represents a single audit log entry
type Event struct {
	ID        int64       `json:"id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	// Actor. For token events this is the client id.
	Username string `json:"username,omitempty"`

	// Request context
	IPAddress  string `json:"ip_address,omitempty"`
	UserAgent  string `json:"user_agent,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
	Method     string `json:"method,omitempty"`
	Path       string `json:"path,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`

	Message      string                 `json:"message,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// ToJSON converts the audit event to JSON
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON parses an audit event from JSON
func FromJSON(data []byte) (*Event, error) {
	var event Event
	err := json.Unmarshal(data, &event)
	return &event, err
}

// SearchFilter narrows an audit log search
type SearchFilter struct {
	Username   string
	EventTypes []EventType
	Status     EventStatus
	Since      *time.Time

	// Limit defaults to 100
	Limit int
}
