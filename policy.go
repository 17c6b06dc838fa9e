package membership

import "github.com/google/uuid"

// Action is an operation a policy decision covers.
type Action string

const (
	ActionView     Action = "view"
	ActionCreate   Action = "create"
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
	ActionInvite   Action = "invite"
	ActionReassign Action = "reassign_leader"
)

// ResourceKind names what the action targets.
type ResourceKind string

const (
	ResourceUser       ResourceKind = "user"
	ResourceNode       ResourceKind = "node"
	ResourceMember     ResourceKind = "member"
	ResourceInvitation ResourceKind = "invitation"
)

// Resource carries the minimal facts a policy decision needs. Callers fetch
// the record server-side and project it here; ownership is never derived
// from client-supplied identifiers.
type Resource struct {
	Kind ResourceKind
	// OwnerID is the user who owns the record (the user itself, a
	// member's user, an invitation's sender).
	OwnerID uuid.UUID
	// NodeID scopes the record to a node, when it has one.
	NodeID uuid.UUID
	// LeaderID is the leader of the node the record belongs to.
	LeaderID uuid.UUID
	// Active resources are readable anonymously.
	Active bool
}

// Authorize is the single policy decision point: it reports whether actor
// may perform action on res.
//
// Rules:
//   - Admins may do anything; destructive actions still pass through here
//     so the admin check is explicit at every call site.
//   - Node leaders own their node and the members in it.
//   - Members own only their own records.
//   - Anonymous callers get read-only access to active resources.
//
// The switch over roles is exhaustive: a role outside the closed set denies.
func Authorize(actor *Actor, action Action, res Resource) error {
	if actor.IsAnonymous() {
		if action == ActionView && res.Active {
			return nil
		}
		return ErrForbidden.WithMetadata(map[string]any{
			"action":   string(action),
			"resource": string(res.Kind),
			"reason":   "authentication required",
		})
	}

	switch actor.Role {
	case RoleAdmin:
		return nil
	case RoleNodeLeader:
		if res.LeaderID == actor.ID {
			return nil
		}
		if res.OwnerID == actor.ID && action != ActionDelete {
			return nil
		}
		if action == ActionView && res.Active {
			return nil
		}
	case RoleMember:
		if res.OwnerID == actor.ID && action != ActionDelete {
			return nil
		}
		if action == ActionView && res.Active {
			return nil
		}
	default:
		return ErrInvalidRole.WithMetadata(map[string]any{
			"role": string(actor.Role),
		})
	}

	return ErrForbidden.WithMetadata(map[string]any{
		"action":   string(action),
		"resource": string(res.Kind),
	})
}

// AuthorizeInvite gates invitation creation: admins invite admins and node
// leaders, node leaders invite members. Everything else denies.
func AuthorizeInvite(actor *Actor, target Role) error {
	if actor.IsAnonymous() {
		return ErrForbidden.WithMetadata(map[string]any{
			"action": string(ActionInvite),
			"reason": "authentication required",
		})
	}

	if !target.IsValid() {
		return ErrInvalidRole.WithMetadata(map[string]any{
			"role": string(target),
		})
	}

	if !actor.Role.CanInvite(target) {
		return ErrForbidden.WithMetadata(map[string]any{
			"action":      string(ActionInvite),
			"target_role": string(target),
		})
	}

	return nil
}
