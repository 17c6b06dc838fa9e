package membership

import (
	"context"

	"github.com/google/uuid"
)

var actorCtxKey = &contextKey{"actor"}
var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// Actor is the authenticated caller of an operation. Handlers receive it
// explicitly through the request context, there is no ambient current-user
// global.
type Actor struct {
	ID    uuid.UUID
	Email string
	Role  Role
}

// IsAdmin reports whether the actor administers the network
func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}

// IsAnonymous reports whether there is no authenticated actor
func (a *Actor) IsAnonymous() bool {
	return a == nil || a.ID == uuid.Nil
}

// WithActor sets the Actor in the given context
func WithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorCtxKey, actor)
}

// ActorFromContext finds the actor from the context.
func ActorFromContext(ctx context.Context) (*Actor, bool) {
	raw, ok := ctx.Value(actorCtxKey).(*Actor)
	return raw, ok
}

// WithClaimsContext sets the SessionClaims in the given context
func WithClaimsContext(ctx context.Context, claims *SessionClaims) context.Context {
	return context.WithValue(ctx, claimsCtxKey, claims)
}

// ClaimsFromContext extracts the SessionClaims from the standard context
func ClaimsFromContext(ctx context.Context) (*SessionClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(*SessionClaims)
	return raw, ok
}

// ActorFromClaims builds an Actor from validated session claims
func ActorFromClaims(claims *SessionClaims) (*Actor, error) {
	if claims == nil {
		return nil, ErrUnableToMapClaims
	}

	id, err := claims.UserUUID()
	if err != nil {
		return nil, ErrUnableToMapClaims.WithMetadata(map[string]any{
			"subject": claims.UserID(),
		})
	}

	role, ok := ParseRole(string(claims.Role()))
	if !ok {
		return nil, ErrInvalidRole.WithMetadata(map[string]any{
			"role": string(claims.Role()),
		})
	}

	return &Actor{
		ID:    id,
		Email: claims.Email,
		Role:  role,
	}, nil
}
