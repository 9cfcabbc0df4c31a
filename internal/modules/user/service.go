package user

import (
	"context"

	"github.com/georgemunganga/marketplace-api/internal/modules/access"
	"github.com/georgemunganga/marketplace-api/internal/modules/image"
)

// Service defines the interface for user-related business logic. Every
// operation that acts on behalf of someone receives that principal.
type Service interface {
	// CreateUser registers an account of any role. Requires an authenticated principal.
	CreateUser(ctx context.Context, p access.Principal, req CreateUserRequest) (*User, error)
	// CreateCustomer is self-registration; only the CUSTOMER role is accepted.
	CreateCustomer(ctx context.Context, p access.Principal, req CreateUserRequest) (*User, error)
	CreateProfileImage(ctx context.Context, p access.Principal, userID int64, up *image.Upload) error

	GetAllUsers(ctx context.Context) ([]*User, error)
	GetUsersByRole(ctx context.Context, role access.Role) ([]*User, error)
	GetUsersByStore(ctx context.Context, storeID int64) ([]*User, error)
	// GetUserByID returns the user with its profile image in base64.
	GetUserByID(ctx context.Context, id int64) (*User, error)
	// GetProfile returns the principal's own user with its profile image in base64.
	GetProfile(ctx context.Context, p access.Principal) (*User, error)
	GetProfileImage(ctx context.Context, p access.Principal, userID int64, path string) (string, error)

	UpdateUserProfile(ctx context.Context, p access.Principal, req UpdateProfileRequest) error
	// UpdateUserPassword replaces the password of userID. Unless forceReset
	// is set, store employees and customers may only change their own.
	UpdateUserPassword(ctx context.Context, p access.Principal, forceReset bool, userID int64, password string) error

	SendRecoveryEmail(ctx context.Context, email string) (bool, error)
	CheckRecoveryToken(ctx context.Context, token string) (bool, error)
	RecoverPassword(ctx context.Context, password, token string) error

	DeleteUserProfile(ctx context.Context, p access.Principal, id int64) error
	DeleteUsers(ctx context.Context, p access.Principal, ids []int64) error

	CreateAddress(ctx context.Context, p access.Principal, userID int64, a Address) (*Address, error)
	GetAddresses(ctx context.Context, p access.Principal, userID int64) ([]*Address, error)
	UpdateAddress(ctx context.Context, p access.Principal, userID int64, a Address) error
	DeleteAddress(ctx context.Context, p access.Principal, userID, addressID int64) error
}
