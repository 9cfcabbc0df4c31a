package access

import "github.com/georgemunganga/marketplace-api/internal/apperr"

// ReasonNotAllowed is the denial reason surfaced to clients.
const ReasonNotAllowed = "Operação não permitida!"

type Operation int

const (
	OpCreateUser Operation = iota + 1
	OpCreateCustomer
	OpUpdateUserProfile
	OpUpdateUserPassword
	OpDeleteUser
	OpCreateStore
	OpUpdateStore
	OpDeleteStore
	OpCreateProduct
	OpUpdateProduct
	OpDeleteProduct
	OpReadProfileImage
	OpUpdateStoreImage
	OpLinkStoreUser
	OpManageAddress
	OpManageTaxonomy
	OpUpdateOrderStatus
	OpUpdateUserImage
)

var operationNames = map[Operation]string{
	OpCreateUser:         "CREATE_USER",
	OpCreateCustomer:     "CREATE_CUSTOMER",
	OpUpdateUserProfile:  "UPDATE_USER_PROFILE",
	OpUpdateUserPassword: "UPDATE_USER_PASSWORD",
	OpDeleteUser:         "DELETE_USER",
	OpCreateStore:        "CREATE_STORE",
	OpUpdateStore:        "UPDATE_STORE",
	OpDeleteStore:        "DELETE_STORE",
	OpCreateProduct:      "CREATE_PRODUCT",
	OpUpdateProduct:      "UPDATE_PRODUCT",
	OpDeleteProduct:      "DELETE_PRODUCT",
	OpReadProfileImage:   "READ_PROFILE_IMAGE",
	OpUpdateStoreImage:   "UPDATE_STORE_IMAGE",
	OpLinkStoreUser:      "LINK_STORE_USER",
	OpManageAddress:      "MANAGE_ADDRESS",
	OpManageTaxonomy:     "MANAGE_TAXONOMY",
	OpUpdateOrderStatus:  "UPDATE_ORDER_STATUS",
	OpUpdateUserImage:    "UPDATE_USER_IMAGE",
}

func (o Operation) String() string {
	if name, ok := operationNames[o]; ok {
		return name
	}
	return "UNKNOWN"
}

// Member is a user linked to a store.
type Member struct {
	UserID int64
	Role   Role
}

// Target describes the entity an operation acts on. UserID and Role refer to
// a user target; Members to the store that owns a store or product target.
type Target struct {
	UserID  int64
	Role    Role
	Members []Member
}

type Decision struct {
	Allowed bool
	Reason  string
}

var allow = Decision{Allowed: true}

func deny() Decision { return Decision{Reason: ReasonNotAllowed} }

// Err returns nil for an allowed decision and an Unauthorized error otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return apperr.Unauthorized(d.Reason)
}

// Permit evaluates the rules top to bottom and returns the first match.
func Permit(p Principal, op Operation, t Target) Decision {
	if op == OpCreateCustomer {
		if t.Role == RoleCustomer {
			return allow
		}
		return deny()
	}

	if !p.Authenticated() {
		return deny()
	}

	switch op {
	case OpUpdateUserPassword:
		switch p.Role {
		case RoleStoreAdmin, RoleSystemAdmin:
			return allow
		}
		return when(p.Is(t.UserID))

	case OpDeleteUser:
		return when(p.Is(t.UserID) || p.Role == RoleSystemAdmin)

	case OpUpdateStore, OpDeleteStore:
		// every member must be the caller and a system admin
		for _, m := range t.Members {
			if !p.Is(m.UserID) || m.Role != RoleSystemAdmin {
				return deny()
			}
		}
		return allow

	case OpCreateProduct, OpUpdateProduct, OpDeleteProduct, OpUpdateStoreImage, OpLinkStoreUser:
		return when(isMember(p, t.Members))

	case OpReadProfileImage:
		return when(p.Is(t.UserID))

	case OpManageAddress, OpUpdateUserImage:
		return when(p.Is(t.UserID) || p.Role == RoleSystemAdmin)

	case OpManageTaxonomy:
		return when(p.Role == RoleSystemAdmin)

	case OpUpdateOrderStatus:
		return when(p.Role == RoleSystemAdmin || isMember(p, t.Members))
	}
	return allow
}

func when(ok bool) Decision {
	if ok {
		return allow
	}
	return deny()
}

func isMember(p Principal, members []Member) bool {
	for _, m := range members {
		if p.Is(m.UserID) {
			return true
		}
	}
	return false
}
