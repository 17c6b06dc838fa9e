package membership_test

import (
	"context"
	"fmt"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	membership "github.com/goliatone/go-membership"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type httpFixture struct {
	auth     *membership.RouteAuthenticator
	tokens   *membership.TokenServiceImpl
	sessions *membership.SessionStore
	repo     *fakeRepo
}

func newHTTPFixture(t *testing.T, cfg membership.Config) *httpFixture {
	t.Helper()

	repo := newFakeRepo()
	tokens := newTestTokenService()
	sessions := membership.NewSessionStore(repo)
	auther := newTestAuther(repo, &captureSink{})

	httpAuth, err := membership.NewHTTPAuthenticator(auther, tokens, sessions, cfg)
	require.NoError(t, err)

	return &httpFixture{auth: httpAuth, tokens: tokens, sessions: sessions, repo: repo}
}

// liveSession issues a session token and registers it so the revocation
// check passes.
func (f *httpFixture) liveSession(t *testing.T) (string, uuid.UUID) {
	t.Helper()

	identity := newTestIdentity()
	token, err := f.tokens.IssueSession(identity)
	require.NoError(t, err)

	userID, err := uuid.Parse(identity.id)
	require.NoError(t, err)

	_, err = f.sessions.Create(context.Background(), userID, token, membership.Fingerprint{
		IP:        "10.0.0.1",
		UserAgent: "laptop",
	})
	require.NoError(t, err)

	return token, userID
}

func TestNewHTTPAuthenticator(t *testing.T) {
	fixture := newHTTPFixture(t, testConfig())
	assert.NotNil(t, fixture.auth)
	assert.NotNil(t, fixture.auth.ErrorHandler)
	assert.NotNil(t, fixture.auth.AuthErrorHandler)
}

func TestProtectedMiddleware(t *testing.T) {
	t.Run("valid live session decorates the request", func(t *testing.T) {
		fixture := newHTTPFixture(t, testConfig())
		token, userID := fixture.liveSession(t)

		mockCtx := new(MockContext)
		mockCtx.On("GetString", "Authorization", "").Return("Bearer " + token)
		mockCtx.On("Context").Return(context.Background())
		mockCtx.On("Locals", "user", mock.MatchedBy(func(claims *membership.SessionClaims) bool {
			return claims.UserID() == userID.String()
		}))
		mockCtx.On("SetContext", mock.MatchedBy(func(ctx context.Context) bool {
			actor, ok := membership.ActorFromContext(ctx)
			if !ok || actor.ID != userID {
				return false
			}
			_, ok = membership.ClaimsFromContext(ctx)
			return ok
		}))

		handlerCalled := false
		handler := fixture.auth.Protected(nil)(func(c router.Context) error {
			handlerCalled = true
			return nil
		})

		err := handler(mockCtx)
		require.NoError(t, err)
		assert.True(t, handlerCalled)

		mockCtx.AssertExpectations(t)
	})

	t.Run("missing token rejects before the handler", func(t *testing.T) {
		fixture := newHTTPFixture(t, testConfig())

		mockCtx := new(MockContext)
		mockCtx.On("GetString", "Authorization", "").Return("")

		var captured error
		handlerCalled := false
		handler := fixture.auth.Protected(func(c router.Context, err error) error {
			captured = err
			return nil
		})(func(c router.Context) error {
			handlerCalled = true
			return nil
		})

		require.NoError(t, handler(mockCtx))
		assert.ErrorIs(t, captured, membership.ErrTokenMissing)
		assert.False(t, handlerCalled)
	})

	t.Run("malformed token rejects", func(t *testing.T) {
		fixture := newHTTPFixture(t, testConfig())

		mockCtx := new(MockContext)
		mockCtx.On("GetString", "Authorization", "").Return("Bearer not.a.jwt")

		var captured error
		handler := fixture.auth.Protected(func(c router.Context, err error) error {
			captured = err
			return nil
		})(func(c router.Context) error { return nil })

		require.NoError(t, handler(mockCtx))
		require.Error(t, captured)
		assert.True(t, membership.IsMalformedError(captured))
	})

	t.Run("revoked session rejects a still valid token", func(t *testing.T) {
		fixture := newHTTPFixture(t, testConfig())
		token, _ := fixture.liveSession(t)

		require.NoError(t, fixture.sessions.Revoke(context.Background(), token))

		mockCtx := new(MockContext)
		mockCtx.On("GetString", "Authorization", "").Return("Bearer " + token)
		mockCtx.On("Context").Return(context.Background())

		var captured error
		handlerCalled := false
		handler := fixture.auth.Protected(func(c router.Context, err error) error {
			captured = err
			return nil
		})(func(c router.Context) error {
			handlerCalled = true
			return nil
		})

		require.NoError(t, handler(mockCtx))
		assert.ErrorIs(t, captured, membership.ErrSessionRevoked)
		assert.False(t, handlerCalled)
	})

	t.Run("default error handler writes the text code", func(t *testing.T) {
		fixture := newHTTPFixture(t, testConfig())

		mockCtx := new(MockContext)
		mockCtx.On("GetString", "Authorization", "").Return("")
		mockCtx.On("JSON", mock.Anything, mock.MatchedBy(func(body map[string]any) bool {
			return body["text_code"] == membership.TextCodeTokenMissing
		})).Return(nil)

		handler := fixture.auth.Protected(nil)(func(c router.Context) error { return nil })

		require.NoError(t, handler(mockCtx))
		mockCtx.AssertExpectations(t)
	})
}

func TestOptionalMiddleware(t *testing.T) {
	t.Run("missing token proceeds anonymously", func(t *testing.T) {
		fixture := newHTTPFixture(t, testConfig())

		mockCtx := new(MockContext)
		mockCtx.On("GetString", "Authorization", "").Return("")

		handlerCalled := false
		handler := fixture.auth.Optional()(func(c router.Context) error {
			handlerCalled = true
			return nil
		})

		require.NoError(t, handler(mockCtx))
		assert.True(t, handlerCalled)
		mockCtx.AssertNotCalled(t, "Locals", mock.Anything, mock.Anything)
	})

	t.Run("revoked session proceeds anonymously", func(t *testing.T) {
		fixture := newHTTPFixture(t, testConfig())

		identity := newTestIdentity()
		token, err := fixture.tokens.IssueSession(identity)
		require.NoError(t, err)

		mockCtx := new(MockContext)
		mockCtx.On("GetString", "Authorization", "").Return("Bearer " + token)
		mockCtx.On("Context").Return(context.Background())

		handlerCalled := false
		handler := fixture.auth.Optional()(func(c router.Context) error {
			handlerCalled = true
			return nil
		})

		require.NoError(t, handler(mockCtx))
		assert.True(t, handlerCalled)
		mockCtx.AssertNotCalled(t, "Locals", mock.Anything, mock.Anything)
	})

	t.Run("live session decorates the request", func(t *testing.T) {
		fixture := newHTTPFixture(t, testConfig())
		token, userID := fixture.liveSession(t)

		mockCtx := new(MockContext)
		mockCtx.On("GetString", "Authorization", "").Return("Bearer " + token)
		mockCtx.On("Context").Return(context.Background())
		mockCtx.On("Locals", "user", mock.Anything)
		mockCtx.On("SetContext", mock.MatchedBy(func(ctx context.Context) bool {
			actor, ok := membership.ActorFromContext(ctx)
			return ok && actor.ID == userID
		}))

		handlerCalled := false
		handler := fixture.auth.Optional()(func(c router.Context) error {
			handlerCalled = true
			return nil
		})

		require.NoError(t, handler(mockCtx))
		assert.True(t, handlerCalled)
		mockCtx.AssertExpectations(t)
	})
}

func TestTokenLookup(t *testing.T) {
	t.Run("query parameter", func(t *testing.T) {
		cfg := testConfig()
		cfg.TokenLookup = "query:auth_token"
		fixture := newHTTPFixture(t, cfg)
		token, _ := fixture.liveSession(t)

		mockCtx := new(MockContext)
		mockCtx.On("Query", "auth_token", "").Return(token)
		mockCtx.On("Context").Return(context.Background())
		mockCtx.On("Locals", "user", mock.Anything)
		mockCtx.On("SetContext", mock.Anything)

		handlerCalled := false
		handler := fixture.auth.Protected(nil)(func(c router.Context) error {
			handlerCalled = true
			return nil
		})

		require.NoError(t, handler(mockCtx))
		assert.True(t, handlerCalled)
	})

	t.Run("cookie", func(t *testing.T) {
		cfg := testConfig()
		cfg.TokenLookup = "cookie:jwt"
		fixture := newHTTPFixture(t, cfg)
		token, _ := fixture.liveSession(t)

		mockCtx := new(MockContext)
		mockCtx.On("Cookies", "jwt").Return(token)
		mockCtx.On("Context").Return(context.Background())
		mockCtx.On("Locals", "user", mock.Anything)
		mockCtx.On("SetContext", mock.Anything)

		handlerCalled := false
		handler := fixture.auth.Protected(nil)(func(c router.Context) error {
			handlerCalled = true
			return nil
		})

		require.NoError(t, handler(mockCtx))
		assert.True(t, handlerCalled)
	})

	t.Run("header scheme must match", func(t *testing.T) {
		fixture := newHTTPFixture(t, testConfig())
		token, _ := fixture.liveSession(t)

		mockCtx := new(MockContext)
		mockCtx.On("GetString", "Authorization", "").Return("Basic " + token)

		var captured error
		handler := fixture.auth.Protected(func(c router.Context, err error) error {
			captured = err
			return nil
		})(func(c router.Context) error { return nil })

		require.NoError(t, handler(mockCtx))
		assert.ErrorIs(t, captured, membership.ErrTokenMissing)
	})

	t.Run("chained lookup falls through to the next source", func(t *testing.T) {
		cfg := testConfig()
		cfg.TokenLookup = "header:Authorization,query:auth_token"
		fixture := newHTTPFixture(t, cfg)
		token, _ := fixture.liveSession(t)

		mockCtx := new(MockContext)
		mockCtx.On("GetString", "Authorization", "").Return("")
		mockCtx.On("Query", "auth_token", "").Return(token)
		mockCtx.On("Context").Return(context.Background())
		mockCtx.On("Locals", "user", mock.Anything)
		mockCtx.On("SetContext", mock.Anything)

		handlerCalled := false
		handler := fixture.auth.Protected(nil)(func(c router.Context) error {
			handlerCalled = true
			return nil
		})

		require.NoError(t, handler(mockCtx))
		assert.True(t, handlerCalled)
	})
}

func TestMakeClientRouteAuthErrorHandler(t *testing.T) {
	t.Run("optional routes proceed on failure", func(t *testing.T) {
		fixture := newHTTPFixture(t, testConfig())
		mockCtx := new(MockContext)

		handler := fixture.auth.MakeClientRouteAuthErrorHandler(true)

		err := handler(mockCtx, fmt.Errorf("missing or malformed JWT"))
		require.NoError(t, err)
		assert.True(t, mockCtx.NextCalled)
	})

	t.Run("expired tokens are normalized", func(t *testing.T) {
		fixture := newHTTPFixture(t, testConfig())
		mockCtx := new(MockContext)

		var captured error
		fixture.auth.ErrorHandler = func(c router.Context, err error) error {
			captured = err
			return nil
		}

		handler := fixture.auth.MakeClientRouteAuthErrorHandler(false)

		require.NoError(t, handler(mockCtx, fmt.Errorf("request failed: token is expired")))
		assert.ErrorIs(t, captured, membership.ErrTokenExpired)
		assert.False(t, mockCtx.NextCalled)
	})

	t.Run("malformed tokens are normalized", func(t *testing.T) {
		fixture := newHTTPFixture(t, testConfig())
		mockCtx := new(MockContext)

		var captured error
		fixture.auth.ErrorHandler = func(c router.Context, err error) error {
			captured = err
			return nil
		}

		handler := fixture.auth.MakeClientRouteAuthErrorHandler(false)

		require.NoError(t, handler(mockCtx, fmt.Errorf("missing or malformed JWT")))
		assert.ErrorIs(t, captured, membership.ErrTokenMalformed)
	})

	t.Run("unknown errors are wrapped as auth failures", func(t *testing.T) {
		fixture := newHTTPFixture(t, testConfig())
		mockCtx := new(MockContext)

		var captured error
		fixture.auth.ErrorHandler = func(c router.Context, err error) error {
			captured = err
			return nil
		}

		handler := fixture.auth.MakeClientRouteAuthErrorHandler(false)

		require.NoError(t, handler(mockCtx, assert.AnError))

		var richErr *goerrors.Error
		require.True(t, goerrors.As(captured, &richErr))
		assert.Equal(t, goerrors.CategoryAuth, richErr.Category)
	})
}
