package membership_test

import (
	"context"
	"testing"

	membership "github.com/goliatone/go-membership"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuther(repo *fakeRepo, sink membership.ActivitySink) *membership.Auther {
	provider := membership.NewUserProvider(repo.users)
	tokens := newTestTokenService()
	sessions := membership.NewSessionStore(repo)
	return membership.NewAuthenticator(provider, repo, tokens, sessions).
		WithLogger(testLogger{}).
		WithActivitySink(sink)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	fp := membership.Fingerprint{IP: "10.0.0.1", UserAgent: "laptop"}

	t.Run("admin login has no node code", func(t *testing.T) {
		repo := newFakeRepo()
		sink := &captureSink{}
		admin := seedUser(t, repo.users, membership.RoleAdmin, membership.StatusActive)
		auther := newTestAuther(repo, sink)

		result, err := auther.Login(ctx, admin.Email, "pass-word-123", fp)
		require.NoError(t, err)
		assert.NotEmpty(t, result.Token)
		assert.Equal(t, membership.RoleAdmin, result.Role)
		assert.Empty(t, result.NodeCode)
		assert.True(t, sink.has(membership.ActivityEventLoginSuccess))

		claims, err := auther.TokenService().ValidateSession(result.Token)
		require.NoError(t, err)
		assert.Equal(t, admin.ID.String(), claims.UserID())
	})

	t.Run("leader login carries the node code", func(t *testing.T) {
		repo := newFakeRepo()
		sink := &captureSink{}
		leader := seedUser(t, repo.users, membership.RoleNodeLeader, membership.StatusActive)
		repo.nodes.add(&membership.Node{
			ID:       uuid.New(),
			Code:     "C01",
			Type:     membership.NodeTypeScientific,
			LeaderID: leader.ID,
			Name:     "Scientific Node One",
			Status:   membership.StatusActive,
		})
		auther := newTestAuther(repo, sink)

		result, err := auther.Login(ctx, leader.Email, "pass-word-123", fp)
		require.NoError(t, err)
		assert.Equal(t, membership.RoleNodeLeader, result.Role)
		assert.Equal(t, "C01", result.NodeCode)
	})

	t.Run("member login resolves the node from the member code", func(t *testing.T) {
		repo := newFakeRepo()
		sink := &captureSink{}
		member := seedUser(t, repo.users, membership.RoleMember, membership.StatusActive)
		repo.members.add(&membership.Member{
			ID:         uuid.New(),
			UserID:     member.ID,
			NodeID:     uuid.New(),
			MemberCode: "C01.04",
			Role:       membership.RoleMember,
			Status:     membership.StatusActive,
		})
		auther := newTestAuther(repo, sink)

		result, err := auther.Login(ctx, member.Email, "pass-word-123", fp)
		require.NoError(t, err)
		assert.Equal(t, "C01", result.NodeCode)
	})

	t.Run("login replaces the device session", func(t *testing.T) {
		repo := newFakeRepo()
		admin := seedUser(t, repo.users, membership.RoleAdmin, membership.StatusActive)
		auther := newTestAuther(repo, &captureSink{})
		sessions := membership.NewSessionStore(repo)

		first, err := auther.Login(ctx, admin.Email, "pass-word-123", fp)
		require.NoError(t, err)
		second, err := auther.Login(ctx, admin.Email, "pass-word-123", fp)
		require.NoError(t, err)

		live, err := sessions.IsLive(ctx, first.Token)
		require.NoError(t, err)
		assert.False(t, live)

		live, err = sessions.IsLive(ctx, second.Token)
		require.NoError(t, err)
		assert.True(t, live)
	})

	t.Run("bad credentials emit a failure event", func(t *testing.T) {
		repo := newFakeRepo()
		sink := &captureSink{}
		admin := seedUser(t, repo.users, membership.RoleAdmin, membership.StatusActive)
		auther := newTestAuther(repo, sink)

		_, err := auther.Login(ctx, admin.Email, "wrong-password", fp)
		assert.ErrorIs(t, err, membership.ErrInvalidCredentials)
		assert.True(t, sink.has(membership.ActivityEventLoginFailure))
		assert.False(t, sink.has(membership.ActivityEventLoginSuccess))
	})

	t.Run("unknown identifier emits a failure event", func(t *testing.T) {
		repo := newFakeRepo()
		sink := &captureSink{}
		auther := newTestAuther(repo, sink)

		_, err := auther.Login(ctx, "nobody@example.com", "pass-word-123", fp)
		assert.ErrorIs(t, err, membership.ErrInvalidCredentials)
		assert.True(t, sink.has(membership.ActivityEventLoginFailure))
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	fp := membership.Fingerprint{IP: "10.0.0.1", UserAgent: "laptop"}

	t.Run("revokes the session", func(t *testing.T) {
		repo := newFakeRepo()
		sink := &captureSink{}
		admin := seedUser(t, repo.users, membership.RoleAdmin, membership.StatusActive)
		auther := newTestAuther(repo, sink)
		sessions := membership.NewSessionStore(repo)

		result, err := auther.Login(ctx, admin.Email, "pass-word-123", fp)
		require.NoError(t, err)

		require.NoError(t, auther.Logout(ctx, result.Token))
		assert.True(t, sink.has(membership.ActivityEventLogout))

		live, err := sessions.IsLive(ctx, result.Token)
		require.NoError(t, err)
		assert.False(t, live)
	})

	t.Run("logout twice is a no-op", func(t *testing.T) {
		repo := newFakeRepo()
		admin := seedUser(t, repo.users, membership.RoleAdmin, membership.StatusActive)
		auther := newTestAuther(repo, &captureSink{})

		result, err := auther.Login(ctx, admin.Email, "pass-word-123", fp)
		require.NoError(t, err)

		require.NoError(t, auther.Logout(ctx, result.Token))
		require.NoError(t, auther.Logout(ctx, result.Token))
	})

	t.Run("missing token is an error", func(t *testing.T) {
		repo := newFakeRepo()
		auther := newTestAuther(repo, &captureSink{})
		assert.ErrorIs(t, auther.Logout(ctx, ""), membership.ErrTokenMissing)
	})
}

func TestLogoutAll(t *testing.T) {
	ctx := context.Background()

	repo := newFakeRepo()
	sink := &captureSink{}
	admin := seedUser(t, repo.users, membership.RoleAdmin, membership.StatusActive)
	auther := newTestAuther(repo, sink)
	sessions := membership.NewSessionStore(repo)

	laptop, err := auther.Login(ctx, admin.Email, "pass-word-123", membership.Fingerprint{IP: "10.0.0.1", UserAgent: "laptop"})
	require.NoError(t, err)
	phone, err := auther.Login(ctx, admin.Email, "pass-word-123", membership.Fingerprint{IP: "10.0.0.2", UserAgent: "phone"})
	require.NoError(t, err)

	require.NoError(t, auther.LogoutAll(ctx, admin.ID))
	assert.True(t, sink.has(membership.ActivityEventLogoutAll))

	for _, token := range []string{laptop.Token, phone.Token} {
		live, err := sessions.IsLive(ctx, token)
		require.NoError(t, err)
		assert.False(t, live)
	}
}
