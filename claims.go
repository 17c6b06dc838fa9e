package membership

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionClaims are minted at login and presented on every protected request.
// Metadata is the only field claim decorators may write to.
type SessionClaims struct {
	jwt.RegisteredClaims
	UID      string         `json:"uid,omitempty"`
	Email    string         `json:"email,omitempty"`
	UserRole Role           `json:"role,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// UserID returns the user ID, falling back to the subject claim
func (c *SessionClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// UserUUID parses the user ID into a uuid
func (c *SessionClaims) UserUUID() (uuid.UUID, error) {
	return uuid.Parse(c.UserID())
}

// Role returns the role carried by the token
func (c *SessionClaims) Role() Role {
	return c.UserRole
}

// Expires returns the expiration time
func (c *SessionClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *SessionClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// InvitationClaims ride inside invitation tokens. They carry enough to
// render the acceptance form without a database roundtrip; the accepting
// transaction still re-resolves the invitation row by email.
type InvitationClaims struct {
	jwt.RegisteredClaims
	Name     string    `json:"name,omitempty"`
	Email    string    `json:"email,omitempty"`
	RoleType Role      `json:"role_type,omitempty"`
	NodeType *NodeType `json:"node_type,omitempty"`
	NodeID   *string   `json:"node_id,omitempty"`
}

// NodeUUID parses the optional node reference
func (c *InvitationClaims) NodeUUID() (uuid.UUID, bool) {
	if c.NodeID == nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(*c.NodeID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
