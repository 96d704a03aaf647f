package domain

type Role string

const (
	RoleRenter Role = "renter"
	RoleAdmin  Role = "admin"
)

// Identity is the authenticated caller as reported by the identity provider.
type Identity struct {
	UserID string
	Email  string
	Name   string
	Phone  string
	Role   Role
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
