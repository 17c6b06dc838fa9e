package membership

// Role is the closed set of roles in the network hierarchy.
type Role string

const (
	// RoleAdmin administers the whole network
	RoleAdmin Role = "admin"
	// RoleNodeLeader runs exactly one node
	RoleNodeLeader Role = "node_leader"
	// RoleMember belongs to a node
	RoleMember Role = "member"
)

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleNodeLeader, RoleMember:
		return true
	default:
		return false
	}
}

// CanInvite reports whether the role may send an invitation for the target
// role. Admins invite admins and node leaders, node leaders invite members.
func (r Role) CanInvite(target Role) bool {
	switch r {
	case RoleAdmin:
		return target == RoleAdmin || target == RoleNodeLeader
	case RoleNodeLeader:
		return target == RoleMember
	case RoleMember:
		return false
	default:
		return false
	}
}

// IsAtLeast reports whether the role sits at or above the given role in the
// hierarchy. Admin outranks node leaders, node leaders outrank members.
func (r Role) IsAtLeast(min Role) bool {
	return r.level() >= min.level()
}

func (r Role) level() int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleNodeLeader:
		return 2
	case RoleMember:
		return 1
	default:
		return 0
	}
}

// AllRoles returns all predefined roles in hierarchical order
func AllRoles() []Role {
	return []Role{
		RoleAdmin,
		RoleNodeLeader,
		RoleMember,
	}
}

// ParseRole safely parses a string into a Role
func ParseRole(roleStr string) (Role, bool) {
	role := Role(roleStr)
	return role, role.IsValid()
}
