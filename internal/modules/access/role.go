// Package access decides whether a principal may perform an operation on a
// target. It is pure: callers load the target's members before asking.
package access

// Role ids are stable and match the seeded roles table.
type Role int

const (
	RoleSystemAdmin   Role = 1
	RoleStoreAdmin    Role = 2
	RoleStoreEmployee Role = 3
	RoleCustomer      Role = 4
)

func (r Role) String() string {
	switch r {
	case RoleSystemAdmin:
		return "SYSTEM_ADMIN"
	case RoleStoreAdmin:
		return "STORE_ADMIN"
	case RoleStoreEmployee:
		return "STORE_EMPLOYEE"
	case RoleCustomer:
		return "CUSTOMER"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether r is one of the seeded roles.
func (r Role) Valid() bool {
	return r >= RoleSystemAdmin && r <= RoleCustomer
}
