package membership

import (
	"context"
	"reflect"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Auther is the login/logout gateway. It verifies credentials, mints the
// session token, and keeps the session store in step with it.
type Auther struct {
	provider     IdentityProvider
	repo         RepositoryManager
	tokenService TokenService
	sessions     *SessionStore
	logger       Logger
	activitySink ActivitySink
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityProvider, repo RepositoryManager, tokens TokenService, sessions *SessionStore) *Auther {
	return &Auther{
		provider:     provider,
		repo:         repo,
		tokenService: tokens,
		sessions:     sessions,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login verifies the credentials, issues a session token, and replaces the
// session row for this device fingerprint. The response carries the role
// and the caller's node code so clients can route without a second request.
func (s *Auther) Login(ctx context.Context, identifier, password string, fp Fingerprint) (*LoginResult, error) {
	identity, err := s.provider.VerifyIdentity(ctx, identifier, password)
	if err != nil {
		s.logger.Error("Login verify identity error", "error", err)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return nil, err
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		s.logger.Error("Login identity is nil or zero value")
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"identifier": identifier,
			"error":      ErrInvalidCredentials.Error(),
		})
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokenService.IssueSession(identity)
	if err != nil {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, s.actorFromIdentity(identity), identity.ID(), map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return nil, err
	}

	userID, err := uuid.Parse(identity.ID())
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "identity has a malformed id")
	}

	if _, err := s.sessions.Create(ctx, userID, token, fp); err != nil {
		s.logger.Error("Login failed to persist session", "error", err)
		return nil, err
	}

	role := Role(identity.Role())
	nodeCode, err := s.resolveNodeCode(ctx, userID, role)
	if err != nil {
		s.logger.Warn("Login could not resolve node code", "error", err)
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, s.actorFromIdentity(identity), identity.ID(), map[string]any{
		"identifier": identifier,
	})

	return &LoginResult{
		Token:    token,
		Role:     role,
		NodeCode: nodeCode,
	}, nil
}

// Logout revokes the session behind the token. An already revoked token is
// a no-op; a missing token is a validation error.
func (s *Auther) Logout(ctx context.Context, token string) error {
	if token == "" {
		return ErrTokenMissing
	}

	if err := s.sessions.Revoke(ctx, token); err != nil {
		return err
	}

	s.emitAuthEvent(ctx, ActivityEventLogout, ActorRef{Type: "user"}, "", nil)
	return nil
}

// LogoutAll revokes every session the user holds.
func (s *Auther) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	if err := s.sessions.RevokeAll(ctx, userID); err != nil {
		return err
	}

	s.emitAuthEvent(ctx, ActivityEventLogoutAll, ActorRef{ID: userID.String(), Type: "user"}, userID.String(), nil)
	return nil
}

// resolveNodeCode finds the code of the node the user leads or belongs to.
// Admins have no node, they get an empty code.
func (s *Auther) resolveNodeCode(ctx context.Context, userID uuid.UUID, role Role) (string, error) {
	switch role {
	case RoleAdmin:
		return "", nil
	case RoleNodeLeader:
		node, err := s.repo.Nodes().GetByLeaderID(ctx, userID)
		if err != nil {
			return "", err
		}
		return node.Code, nil
	case RoleMember:
		member, err := s.repo.Members().GetByUserID(ctx, userID)
		if err != nil {
			return "", err
		}
		code, err := MemberCodeNode(member.MemberCode)
		if err != nil {
			return "", err
		}
		return code, nil
	default:
		return "", ErrInvalidRole.WithMetadata(map[string]any{"role": string(role)})
	}
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, userID string, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType: eventType,
		Actor:     actor,
		UserID:    userID,
		Metadata:  metadata,
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}

func (s *Auther) actorFromIdentity(identity Identity) ActorRef {
	if identity == nil {
		return ActorRef{Type: "unknown"}
	}

	return ActorRef{
		ID:   identity.ID(),
		Type: "user",
	}
}

var _ Authenticator = (*Auther)(nil)
