package rbac

// Role names carried in identity provider tokens.
const (
	RoleAuthenticated = "authenticated"
	RoleServiceRole   = "service_role"
	RoleAnon          = "anon"
)

// IsServiceRole reports backend-to-backend callers that bypass per-user checks such as quota.
func IsServiceRole(role string) bool { return role == RoleServiceRole }

func IsAnonymous(role string) bool { return role == "" || role == RoleAnon }
