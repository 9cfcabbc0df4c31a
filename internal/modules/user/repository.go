package user

import (
	"context"
	"errors"
	"time"

	"github.com/georgemunganga/marketplace-api/internal/modules/access"
)

// ErrNotFound is returned by repositories when no row matches.
var ErrNotFound = errors.New("user: not found")

// ErrEmailInUse is returned when an active user already owns the e-mail.
var ErrEmailInUse = errors.New("user: email in use")

// Repository defines user and address storage. Reads skip inactive rows
// unless includeInactive is set.
type Repository interface {
	CreateUser(ctx context.Context, u *User) error
	GetUserByID(ctx context.Context, id int64, includeInactive bool) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	CheckUserByEmail(ctx context.Context, email string, includeInactive bool) (bool, error)
	UpdateUser(ctx context.Context, u *User) error
	UpdatePassword(ctx context.Context, id int64, hash string, at time.Time) error
	UpdateProfileImage(ctx context.Context, id int64, path string, at time.Time) error
	// DeleteUsers soft-deletes every id in one statement.
	DeleteUsers(ctx context.Context, ids []int64, at time.Time) error

	ListUsers(ctx context.Context) ([]*User, error)
	ListUsersByRole(ctx context.Context, role access.Role) ([]*User, error)
	ListUsersByStore(ctx context.Context, storeID int64) ([]*User, error)

	CreateAddress(ctx context.Context, a *Address) error
	GetAddress(ctx context.Context, id int64) (*Address, error)
	ListAddresses(ctx context.Context, userID int64) ([]*Address, error)
	UpdateAddress(ctx context.Context, a *Address) error
	DeleteAddress(ctx context.Context, id int64, at time.Time) error
}
