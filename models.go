package membership

import (
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"
)

// RecordStatus marks soft activation state for users, nodes, and members.
type RecordStatus string

const (
	StatusActive   RecordStatus = "active"
	StatusInactive RecordStatus = "inactive"
)

// NodeType is the closed set of node categories. Each type maps to a code
// prefix, see NodeCodePrefix.
type NodeType string

const (
	NodeTypeCivilSociety NodeType = "civil_society"
	NodeTypeBusiness     NodeType = "business"
	NodeTypeScientific   NodeType = "scientific"
	NodeTypePublicSector NodeType = "public_sector"
	NodeTypeIndividual   NodeType = "individual"
)

// IsValid checks the node type against the closed set
func (t NodeType) IsValid() bool {
	switch t {
	case NodeTypeCivilSociety, NodeTypeBusiness, NodeTypeScientific,
		NodeTypePublicSector, NodeTypeIndividual:
		return true
	default:
		return false
	}
}

// InvitationStatus tracks the invitation lifecycle.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationExpired  InvitationStatus = "expired"
)

// User is the user model
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID         `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role           Role              `bun:"role,notnull" json:"role,omitempty"`
	Name           string            `bun:"name,notnull" json:"name,omitempty"`
	Username       string            `bun:"username,notnull,unique" json:"username,omitempty"`
	Email          string            `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash   string            `bun:"password_hash,notnull" json:"-"`
	Status         RecordStatus      `bun:"status,notnull,default:'active'" json:"status,omitempty"`
	About          string            `bun:"about" json:"about,omitempty"`
	Degree         string            `bun:"degree" json:"degree,omitempty"`
	Postgraduate   string            `bun:"postgraduate" json:"postgraduate,omitempty"`
	ExpertiseArea  string            `bun:"expertise_area" json:"expertise_area,omitempty"`
	ResearchWork   string            `bun:"research_work" json:"research_work,omitempty"`
	ProfilePicture string            `bun:"profile_picture" json:"profile_picture,omitempty"`
	Country        string            `bun:"country" json:"country,omitempty"`
	City           string            `bun:"city" json:"city,omitempty"`
	Phone          string            `bun:"phone_number" json:"phone_number,omitempty"`
	SocialMedia    map[string]string `bun:"social_media,type:jsonb" json:"social_media,omitempty"`
	CreatedAt      *time.Time        `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time        `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time        `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// EnsureStatus backfills the zero value with active
func (u *User) EnsureStatus() {
	if u.Status == "" {
		u.Status = StatusActive
	}
}

// IsActive reports whether the account can authenticate
func (u *User) IsActive() bool {
	u.EnsureStatus()
	return u.Status == StatusActive
}

// Node is a chapter of the network run by a single leader
type Node struct {
	bun.BaseModel `bun:"table:nodes,alias:nod"`
	ID            uuid.UUID    `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Code          string       `bun:"code,notnull,unique" json:"code,omitempty"`
	Type          NodeType     `bun:"type,notnull" json:"type,omitempty"`
	LeaderID      uuid.UUID    `bun:"leader_id,nullzero,type:uuid" json:"leader_id,omitempty"`
	Leader        *User        `bun:"rel:belongs-to,join:leader_id=id" json:"leader,omitempty"`
	Name          string       `bun:"name,notnull" json:"name,omitempty"`
	About         string       `bun:"about" json:"about,omitempty"`
	Country       string       `bun:"country" json:"country,omitempty"`
	City          string       `bun:"city" json:"city,omitempty"`
	Coordinates   string       `bun:"coordinates" json:"coordinates,omitempty"`
	JoinedIn      *time.Time   `bun:"joined_in,nullzero" json:"joined_in,omitempty"`
	MembersCount  int          `bun:"members_count,notnull,default:0" json:"members_count"`
	Status        RecordStatus `bun:"status,notnull,default:'active'" json:"status,omitempty"`
	CreatedAt     *time.Time   `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time   `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time   `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// EnsureStatus backfills the zero value with active
func (n *Node) EnsureStatus() {
	if n.Status == "" {
		n.Status = StatusActive
	}
}

// Member links a user to a node. The leader holds the reserved .00 code.
type Member struct {
	bun.BaseModel `bun:"table:members,alias:mbr"`
	ID            uuid.UUID    `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID    `bun:"user_id,notnull,unique,type:uuid" json:"user_id,omitempty"`
	User          *User        `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	NodeID        uuid.UUID    `bun:"node_id,notnull,type:uuid" json:"node_id,omitempty"`
	Node          *Node        `bun:"rel:belongs-to,join:node_id=id" json:"node,omitempty"`
	MemberCode    string       `bun:"member_code,notnull,unique" json:"member_code,omitempty"`
	Role          Role         `bun:"role,notnull" json:"role,omitempty"`
	Status        RecordStatus `bun:"status,notnull,default:'active'" json:"status,omitempty"`
	CreatedAt     *time.Time   `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time   `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time   `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// IsLeader reports whether this row is the node's leader seat
func (m *Member) IsLeader() bool {
	return m.Role == RoleNodeLeader
}

// Invitation is a pending offer to join the network under a given role
type Invitation struct {
	bun.BaseModel `bun:"table:invitations,alias:inv"`
	ID            uuid.UUID        `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string           `bun:"name,notnull" json:"name,omitempty"`
	Email         string           `bun:"email,notnull" json:"email,omitempty"`
	RoleType      Role             `bun:"role_type,notnull" json:"role_type,omitempty"`
	NodeType      *NodeType        `bun:"node_type,nullzero" json:"node_type,omitempty"`
	NodeID        *uuid.UUID       `bun:"node_id,nullzero,type:uuid" json:"node_id,omitempty"`
	Token         string           `bun:"token,notnull" json:"-"`
	Status        InvitationStatus `bun:"status,notnull,default:'pending'" json:"status,omitempty"`
	SentAt        *time.Time       `bun:"sent_at,nullzero" json:"sent_at,omitempty"`
	AcceptedAt    *time.Time       `bun:"accepted_at,nullzero" json:"accepted_at,omitempty"`
	ExpiresAt     *time.Time       `bun:"expires_at,nullzero" json:"expires_at,omitempty"`
	CreatedAt     *time.Time       `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time       `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// EnsureStatus backfills the zero value with pending
func (i *Invitation) EnsureStatus() {
	if i.Status == "" {
		i.Status = InvitationPending
	}
}

// IsExpired evaluates expiry lazily against the given clock. Rows are not
// swept in the background, expiry is derived whenever the invitation is
// inspected.
func (i *Invitation) IsExpired(now time.Time) bool {
	if i.ExpiresAt == nil {
		return false
	}
	return now.After(*i.ExpiresAt)
}

// IsAcceptable reports whether the invitation can still be consumed
func (i *Invitation) IsAcceptable(now time.Time) bool {
	i.EnsureStatus()
	return i.Status == InvitationPending && !i.IsExpired(now)
}

// PasswordResetStep step on password reset
type PasswordResetStep = string

const (
	// ResetUnknown is the unknown status
	ResetUnknown PasswordResetStep = "unknown"
	// ResetInit is the initial step
	ResetInit PasswordResetStep = "show-reset"
	// AccountVerification notification sent
	AccountVerification PasswordResetStep = "email-sent"
	// ChangingPassword user will change password
	ChangingPassword PasswordResetStep = "change-password"
	// ChangeFinalized processing change
	ChangeFinalized PasswordResetStep = "password-changed"
)

const (
	// ResetRequestedStatus is the requested status
	ResetRequestedStatus = "requested"
	// ResetExpiredStatus is the expired status
	ResetExpiredStatus = "expired"
	// ResetChangedStatus is the changed status
	ResetChangedStatus = "changed"
)

// PasswordReset is one reset request. The row id doubles as the session
// token mailed to the user.
type PasswordReset struct {
	bun.BaseModel `bun:"table:password_resets,alias:pwdr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        *uuid.UUID `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	User          *User      `bun:"rel:has-one,join:user_id=id" json:"user,omitempty"`
	Status        string     `bun:"status,notnull" json:"status,omitempty"`
	Email         string     `bun:"email,notnull" json:"email,omitempty"`
	ResetedAt     *time.Time `bun:"reseted_at,nullzero" json:"reseted_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// MarkPasswordAsReseted will create a new instance
func MarkPasswordAsReseted(id uuid.UUID) *PasswordReset {
	r := &PasswordReset{}
	r.ID = id
	r.Status = ResetChangedStatus
	n := time.Now()
	r.ResetedAt = &n
	return r
}

// Session is one device login. The (user, ip, user agent) triple identifies
// the device, the token column backs per-request liveness checks.
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:ses"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	User          *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Token         string     `bun:"token,notnull" json:"-"`
	IPAddress     string     `bun:"ip_address" json:"ip_address,omitempty"`
	UserAgent     string     `bun:"user_agent" json:"user_agent,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// NormalizePhone formats a raw phone number to E.164 for the given region.
// Empty input passes through so the profile field stays optional.
func NormalizePhone(raw, region string) (string, error) {
	if raw == "" {
		return "", nil
	}

	num, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return "", err
	}

	if !phonenumbers.IsValidNumber(num) {
		return "", errors.New("invalid phone number", errors.CategoryValidation).
			WithCode(errors.CodeBadRequest)
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}
