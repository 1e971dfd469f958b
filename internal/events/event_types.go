package events

import (
	"time"

	"github.com/spec-kit/mentor-portal/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSessionAuthenticated EventType = "session_authenticated"
	EventSessionCleared       EventType = "session_cleared"
	EventSessionFailed        EventType = "session_failed"
	EventSessionErrorCleared  EventType = "session_error_cleared"
)

// Cause names the session operation that produced an event.
type Cause string

const (
	CauseInitialize Cause = "initialize"
	CauseLogin      Cause = "login"
	CauseRegister   Cause = "register"
	CauseValidate   Cause = "validate"
	CauseLogout     Cause = "logout"
	CauseClearError Cause = "clear_error"
)

// Event is a session transition.
type Event struct {
	ID        string       `json:"id"`
	Type      EventType    `json:"type"`
	Cause     Cause        `json:"cause"`
	User      *domain.User `json:"user,omitempty"`
	Message   string       `json:"message,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}
