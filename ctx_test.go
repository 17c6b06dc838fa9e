package membership_test

import (
	"context"
	"testing"

	membership "github.com/goliatone/go-membership"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActorContext(t *testing.T) {
	actor := &membership.Actor{
		ID:    uuid.New(),
		Email: "leader@example.com",
		Role:  membership.RoleNodeLeader,
	}

	ctx := membership.WithActor(context.Background(), actor)

	got, ok := membership.ActorFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, actor, got)

	_, ok = membership.ActorFromContext(context.Background())
	assert.False(t, ok)
}

func TestClaimsContext(t *testing.T) {
	claims := &membership.SessionClaims{UID: uuid.NewString()}

	ctx := membership.WithClaimsContext(context.Background(), claims)

	got, ok := membership.ClaimsFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, claims, got)

	_, ok = membership.ClaimsFromContext(context.Background())
	assert.False(t, ok)
}

func TestActorHelpers(t *testing.T) {
	t.Run("IsAdmin", func(t *testing.T) {
		admin := &membership.Actor{ID: uuid.New(), Role: membership.RoleAdmin}
		member := &membership.Actor{ID: uuid.New(), Role: membership.RoleMember}
		assert.True(t, admin.IsAdmin())
		assert.False(t, member.IsAdmin())

		var nilActor *membership.Actor
		assert.False(t, nilActor.IsAdmin())
	})

	t.Run("IsAnonymous", func(t *testing.T) {
		var nilActor *membership.Actor
		assert.True(t, nilActor.IsAnonymous())
		assert.True(t, (&membership.Actor{}).IsAnonymous())
		assert.False(t, (&membership.Actor{ID: uuid.New()}).IsAnonymous())
	})
}

func TestActorFromClaims(t *testing.T) {
	t.Run("maps valid claims", func(t *testing.T) {
		id := uuid.New()
		claims := &membership.SessionClaims{
			UID:      id.String(),
			Email:    "member@example.com",
			UserRole: membership.RoleMember,
		}

		actor, err := membership.ActorFromClaims(claims)
		require.NoError(t, err)
		assert.Equal(t, id, actor.ID)
		assert.Equal(t, "member@example.com", actor.Email)
		assert.Equal(t, membership.RoleMember, actor.Role)
	})

	t.Run("nil claims", func(t *testing.T) {
		_, err := membership.ActorFromClaims(nil)
		assert.ErrorIs(t, err, membership.ErrUnableToMapClaims)
	})

	t.Run("invalid user id", func(t *testing.T) {
		claims := &membership.SessionClaims{UID: "not-a-uuid", UserRole: membership.RoleMember}
		_, err := membership.ActorFromClaims(claims)
		assert.ErrorIs(t, err, membership.ErrUnableToMapClaims)
	})

	t.Run("invalid role", func(t *testing.T) {
		claims := &membership.SessionClaims{UID: uuid.NewString(), UserRole: membership.Role("ghost")}
		_, err := membership.ActorFromClaims(claims)
		assert.ErrorIs(t, err, membership.ErrInvalidRole)
	})
}
