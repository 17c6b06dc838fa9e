package membership

import (
	"context"

	"github.com/goliatone/go-router"
)

// WSTokenValidator implements go-router's WSTokenValidator interface using
// the membership TokenService so WebSocket upgrades carry the same session
// semantics as HTTP requests.
type WSTokenValidator struct {
	tokens   TokenService
	sessions *SessionStore
}

// NewWSTokenValidator creates a WebSocket token validator backed by the
// provided TokenService. Pass a SessionStore to also enforce revocation.
func NewWSTokenValidator(tokens TokenService, sessions *SessionStore) *WSTokenValidator {
	return &WSTokenValidator{
		tokens:   tokens,
		sessions: sessions,
	}
}

// Validate validates a session token and returns WebSocket-compatible claims.
func (w *WSTokenValidator) Validate(tokenString string) (router.WSAuthClaims, error) {
	claims, err := w.tokens.ValidateSession(tokenString)
	if err != nil {
		return nil, err
	}

	if w.sessions != nil {
		live, err := w.sessions.IsLive(context.Background(), tokenString)
		if err != nil {
			return nil, err
		}
		if !live {
			return nil, ErrSessionRevoked
		}
	}

	return &WSAuthClaimsAdapter{claims: claims}, nil
}

// WSAuthClaimsAdapter adapts SessionClaims to go-router's WSAuthClaims interface.
type WSAuthClaimsAdapter struct {
	claims *SessionClaims
}

// Subject returns the subject claim
func (w *WSAuthClaimsAdapter) Subject() string {
	return w.claims.RegisteredClaims.Subject
}

// UserID returns the user ID
func (w *WSAuthClaimsAdapter) UserID() string {
	return w.claims.UserID()
}

// Role returns the user's role
func (w *WSAuthClaimsAdapter) Role() string {
	return string(w.claims.Role())
}

// CanRead is true for any authenticated session, reads are open
func (w *WSAuthClaimsAdapter) CanRead(resource string) bool {
	return true
}

// CanEdit checks if the role may mutate the given resource kind
func (w *WSAuthClaimsAdapter) CanEdit(resource string) bool {
	switch resource {
	case string(ResourceNode), string(ResourceMember):
		return w.claims.Role().IsAtLeast(RoleNodeLeader)
	default:
		return w.claims.Role() == RoleAdmin
	}
}

// CanCreate checks if the role may create the given resource kind
func (w *WSAuthClaimsAdapter) CanCreate(resource string) bool {
	if resource == string(ResourceInvitation) {
		return w.claims.Role().IsAtLeast(RoleNodeLeader)
	}
	return w.claims.Role() == RoleAdmin
}

// CanDelete checks if the role may delete the given resource kind
func (w *WSAuthClaimsAdapter) CanDelete(resource string) bool {
	return w.claims.Role() == RoleAdmin
}

// HasRole checks if the user has a specific role
func (w *WSAuthClaimsAdapter) HasRole(role string) bool {
	return string(w.claims.Role()) == role
}

// IsAtLeast checks if the user's role is at least the minimum required role
func (w *WSAuthClaimsAdapter) IsAtLeast(minRole string) bool {
	return w.claims.Role().IsAtLeast(Role(minRole))
}

// NewWSAuthMiddleware creates a WebSocket authentication middleware that
// validates session tokens and enforces revocation.
func (a *RouteAuthenticator) NewWSAuthMiddleware(config ...router.WSAuthConfig) router.WebSocketMiddleware {
	validator := NewWSTokenValidator(a.tokens, a.sessions)

	var cfg router.WSAuthConfig
	if len(config) > 0 {
		cfg = config[0]
	}

	cfg.TokenValidator = validator

	return router.NewWSAuth(cfg)
}

// WSSessionClaimsFromContext retrieves the membership session claims carried
// by an authenticated WebSocket connection.
func WSSessionClaimsFromContext(ctx context.Context) (*SessionClaims, bool) {
	wsAuthClaims, ok := router.WSAuthClaimsFromContext(ctx)
	if !ok {
		return nil, false
	}

	if adapter, ok := wsAuthClaims.(*WSAuthClaimsAdapter); ok {
		return adapter.claims, true
	}

	return nil, false
}
