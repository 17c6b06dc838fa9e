package activitymap_test

import (
	"testing"
	"time"

	membership "github.com/goliatone/go-membership"
	"github.com/goliatone/go-membership/activitymap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	occurred := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)

	t.Run("defaults", func(t *testing.T) {
		event := membership.ActivityEvent{
			EventType:  membership.ActivityEventLoginSuccess,
			Actor:      membership.ActorRef{ID: "actor-1", Type: "user"},
			UserID:     "user-1",
			OccurredAt: occurred,
		}

		got := activitymap.Normalize(event)

		assert.Equal(t, "actor-1", got.ActorID)
		assert.Equal(t, string(membership.ActivityEventLoginSuccess), got.Verb)
		assert.Equal(t, "user", got.ObjectType)
		assert.Equal(t, "user-1", got.ObjectID)
		assert.Equal(t, "membership", got.Channel)
		assert.Equal(t, occurred, got.OccurredAt)
		assert.Equal(t, "user", got.Metadata[activitymap.MetadataKeyActorType])
	})

	t.Run("actor id falls back to user id, then system", func(t *testing.T) {
		got := activitymap.Normalize(membership.ActivityEvent{
			EventType:  membership.ActivityEventLogout,
			UserID:     "user-2",
			OccurredAt: occurred,
		})
		assert.Equal(t, "user-2", got.ActorID)

		got = activitymap.Normalize(membership.ActivityEvent{
			EventType:  membership.ActivityEventLogout,
			OccurredAt: occurred,
		})
		assert.Equal(t, "system", got.ActorID)

		got = activitymap.Normalize(membership.ActivityEvent{
			EventType:  membership.ActivityEventLogout,
			OccurredAt: occurred,
		}, activitymap.WithActorFallback("audit-daemon"))
		assert.Equal(t, "audit-daemon", got.ActorID)
	})

	t.Run("status transitions land in metadata", func(t *testing.T) {
		got := activitymap.Normalize(membership.ActivityEvent{
			EventType:  membership.ActivityEventStatusChanged,
			Actor:      membership.ActorRef{ID: "actor-1", Type: "user"},
			FromStatus: membership.InvitationPending,
			ToStatus:   membership.InvitationAccepted,
			OccurredAt: occurred,
		})

		assert.Equal(t, "pending", got.Metadata[activitymap.MetadataKeyFromStatus])
		assert.Equal(t, "accepted", got.Metadata[activitymap.MetadataKeyToStatus])
	})

	t.Run("event metadata is cloned, not aliased", func(t *testing.T) {
		event := membership.ActivityEvent{
			EventType:  membership.ActivityEventInvitationSent,
			Actor:      membership.ActorRef{ID: "actor-1", Type: "user"},
			Metadata:   map[string]any{"invitation_id": "inv-1"},
			OccurredAt: occurred,
		}

		got := activitymap.Normalize(event)
		require.NotNil(t, got.Metadata)
		assert.Equal(t, "inv-1", got.Metadata["invitation_id"])

		got.Metadata["invitation_id"] = "mutated"
		assert.Equal(t, "inv-1", event.Metadata["invitation_id"])
	})

	t.Run("existing actor_type metadata wins", func(t *testing.T) {
		got := activitymap.Normalize(membership.ActivityEvent{
			EventType:  membership.ActivityEventLogout,
			Actor:      membership.ActorRef{ID: "actor-1", Type: "user"},
			Metadata:   map[string]any{activitymap.MetadataKeyActorType: "service"},
			OccurredAt: occurred,
		})
		assert.Equal(t, "service", got.Metadata[activitymap.MetadataKeyActorType])
	})

	t.Run("overrides", func(t *testing.T) {
		got := activitymap.Normalize(membership.ActivityEvent{
			EventType:  membership.ActivityEventInvitationSent,
			Actor:      membership.ActorRef{ID: "actor-1", Type: "user"},
			Metadata:   map[string]any{"invitation_id": "inv-9"},
			OccurredAt: occurred,
		},
			activitymap.WithDefaultChannel("onboarding"),
			activitymap.WithDefaultObjectType("invitation"),
			activitymap.WithObjectIDResolver(func(event membership.ActivityEvent) string {
				id, _ := event.Metadata["invitation_id"].(string)
				return id
			}),
		)

		assert.Equal(t, "onboarding", got.Channel)
		assert.Equal(t, "invitation", got.ObjectType)
		assert.Equal(t, "inv-9", got.ObjectID)
	})

	t.Run("zero occurred-at is backfilled", func(t *testing.T) {
		got := activitymap.Normalize(membership.ActivityEvent{
			EventType: membership.ActivityEventLogout,
			Actor:     membership.ActorRef{ID: "actor-1", Type: "user"},
		})
		assert.False(t, got.OccurredAt.IsZero())
	})
}
