package audit

import (
	"context"
	"time"

	id "waypoint/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose so sinks can
// route or retain them differently.
type EventCategory string

const (
	// CategoryCompliance covers account lifecycle changes.
	CategoryCompliance EventCategory = "compliance"
	// CategorySecurity covers authentication failures, replays and throttling.
	CategorySecurity EventCategory = "security"
	// CategoryOperations covers routine activity.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	Action    AuditEvent    `json:"action"`
	UserID    id.UserID     `json:"userId"`
	// ActorID is set when someone other than UserID performed the action,
	// e.g. an admin deleting an account.
	ActorID   string `json:"actorId,omitempty"`
	Email     string `json:"email,omitempty"`
	IP        string `json:"ip,omitempty"`
	Reason    string `json:"reason,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

type AuditEvent string

const (
	EventUserRegistered    AuditEvent = "user_registered"
	EventUserUpdated       AuditEvent = "user_updated"
	EventUserDeleted       AuditEvent = "user_deleted"
	EventLoginSucceeded    AuditEvent = "login_succeeded"
	EventLoginFailed       AuditEvent = "login_failed"
	EventTokenRefreshed    AuditEvent = "token_refreshed"
	EventRefreshReplay     AuditEvent = "refresh_replay_detected"
	EventLogout            AuditEvent = "logout"
	EventRateLimitExceeded AuditEvent = "rate_limit_exceeded"
	EventLocationsPurged   AuditEvent = "locations_purged"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventUserRegistered: CategoryCompliance,
	EventUserUpdated:    CategoryCompliance,
	EventUserDeleted:    CategoryCompliance,

	EventLoginFailed:       CategorySecurity,
	EventRefreshReplay:     CategorySecurity,
	EventRateLimitExceeded: CategorySecurity,

	EventLoginSucceeded:  CategoryOperations,
	EventTokenRefreshed:  CategoryOperations,
	EventLogout:          CategoryOperations,
	EventLocationsPurged: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Sink receives audit events. Implementations must be safe for concurrent use.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Emitter is what domain services depend on.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Emit(context.Context, Event) error { return nil }
