package membership

import (
	"github.com/goliatone/go-router"
)

var TemplateUserKey = "current_user"

// TemplateHelpers returns a map of helper functions and data for rendering
// membership-aware views with a template engine's global data option.
//
// In templates you can then use:
//
//	{% if current_user %}
//	{% if current_user|has_role:"admin" %}
//	{% if current_user|is_at_least:"node_leader" %}
func TemplateHelpers() map[string]any {
	return map[string]any{
		"is_authenticated": isAuthenticated,
		"has_role":         hasRole,
		"is_at_least":      isAtLeast,

		"roles": map[string]string{
			"admin":       string(RoleAdmin),
			"node_leader": string(RoleNodeLeader),
			"member":      string(RoleMember),
		},
	}
}

// TemplateHelpersWithUser returns template helpers with a specific user set
// as current_user.
func TemplateHelpersWithUser(user *User) map[string]any {
	helpers := TemplateHelpers()
	helpers[TemplateUserKey] = user
	return helpers
}

// TemplateHelpersWithRouter returns template helpers with the current user
// pulled from the router context, as set by the bearer middleware.
func TemplateHelpersWithRouter(ctx router.Context, userKey string) map[string]any {
	if userKey == "" {
		userKey = TemplateUserKey
	}

	helpers := TemplateHelpers()

	if user := ctx.Locals(userKey); user != nil {
		helpers[TemplateUserKey] = user
	}

	return helpers
}

// isAuthenticated checks if the provided user object is not nil
func isAuthenticated(user any) bool {
	switch u := user.(type) {
	case *User:
		return u != nil
	case User:
		return true
	case *SessionClaims:
		return u != nil && u.UserID() != ""
	case *Actor:
		return u != nil && !u.IsAnonymous()
	case map[string]any:
		return len(u) > 0
	default:
		return false
	}
}

// hasRole checks if the user has the specified role
func hasRole(user any, role string) bool {
	r, ok := roleOf(user)
	return ok && string(r) == role
}

// isAtLeast checks if the user's role is at least the minimum required level
func isAtLeast(user any, minRole string) bool {
	r, ok := roleOf(user)
	return ok && r.IsAtLeast(Role(minRole))
}

func roleOf(user any) (Role, bool) {
	switch u := user.(type) {
	case *User:
		if u == nil {
			return "", false
		}
		return u.Role, true
	case User:
		return u.Role, true
	case *SessionClaims:
		if u == nil {
			return "", false
		}
		return u.Role(), true
	case *Actor:
		if u == nil {
			return "", false
		}
		return u.Role, true
	case map[string]any:
		if roleStr, ok := u["role"].(string); ok {
			return ParseRole(roleStr)
		}
		return "", false
	default:
		return "", false
	}
}
