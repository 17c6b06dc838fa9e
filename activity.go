package membership

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventLoginSuccess      ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure      ActivityEventType = "auth.login.failure"
	ActivityEventLogout            ActivityEventType = "auth.logout"
	ActivityEventLogoutAll         ActivityEventType = "auth.logout.all"
	ActivityEventInvitationSent    ActivityEventType = "invitation.sent"
	ActivityEventInvitationRevived ActivityEventType = "invitation.validated"
	ActivityEventStatusChanged     ActivityEventType = "invitation.status.changed"
	ActivityEventUserProvisioned   ActivityEventType = "user.provisioned"
	ActivityEventLeaderReassigned  ActivityEventType = "node.leader.reassigned"

	// ActivityEventPasswordResetSuccess marks a completed password reset.
	ActivityEventPasswordResetSuccess ActivityEventType = "auth.password_reset.success"
)

// ActorRef identifies who/what triggered an event.
type ActorRef struct {
	ID   string
	Type string
}

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	UserID     string
	FromStatus InvitationStatus
	ToStatus   InvitationStatus
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

func actorRefFrom(actor *Actor) ActorRef {
	if actor == nil {
		return ActorRef{Type: "anonymous"}
	}
	return ActorRef{
		ID:   actor.ID.String(),
		Type: "user",
	}
}
