package domain

// Role names guaranteed to exist after bootstrap. The store may hold
// additional roles beyond these two.
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// Role is a named permission grant attached to users.
type Role struct {
	ID   int64
	Name string
}

// DefaultRoleNames lists the roles the bootstrapper guarantees.
func DefaultRoleNames() []string {
	return []string{RoleAdmin, RoleUser}
}
