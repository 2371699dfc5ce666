package auth

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Principal is the resolved caller of a request. It carries facts only;
// authorization decisions are made by the caller of Resolve.
type Principal struct {
	UserID string
	Role   Role
}

func (p Principal) Authenticated() bool {
	return p.UserID != ""
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
