package enums

// Role is an authorization role assignable to a user.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleUser    Role = "USER"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleUser:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}

// SelfAssignableRoles are the roles a caller may request at registration.
// ADMIN is deliberately absent.
var SelfAssignableRoles = []Role{RoleUser, RoleManager}

// IsSelfAssignable reports whether the role may be requested at registration.
func (r Role) IsSelfAssignable() bool {
	for _, allowed := range SelfAssignableRoles {
		if r == allowed {
			return true
		}
	}
	return false
}
