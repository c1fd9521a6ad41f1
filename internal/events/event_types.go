package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventLoginSucceeded     EventType = "login_succeeded"
	EventLoginFailed        EventType = "login_failed"
	EventUserRegistered     EventType = "user_registered"
	EventBootstrapCompleted EventType = "bootstrap_completed"
)

// Event represents a security-relevant occurrence emitted by services.
// SubjectID is empty for events without a resolved identity, such as a
// failed login against an unknown email.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SubjectID string      `json:"subject_id,omitempty"`
	Email     string      `json:"email,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// LoginFailedPayload payload.
type LoginFailedPayload struct {
	Reason string `json:"reason"`
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// BootstrapCompletedPayload payload.
type BootstrapCompletedPayload struct {
	RolesEnsured    []string `json:"roles_ensured"`
	AccountsEnsured []string `json:"accounts_ensured"`
}
