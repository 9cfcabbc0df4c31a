package store

import (
	"context"
	"errors"
	"time"

	"github.com/georgemunganga/marketplace-api/internal/modules/access"
)

// ErrNotFound is returned when no active store matches.
var ErrNotFound = errors.New("store: not found")

// ErrUnknownUser is returned when a membership references a missing user.
var ErrUnknownUser = errors.New("store: unknown user")

// Repository defines store and membership storage.
type Repository interface {
	// CreateStore inserts s and relates ownerID to it in one transaction.
	CreateStore(ctx context.Context, s *Store, ownerID int64) error
	GetStoreByID(ctx context.Context, id int64) (*Store, error)
	GetStoreByProduct(ctx context.Context, productID int64) (*Store, error)
	ListStores(ctx context.Context) ([]*Store, error)
	ListStoresByUser(ctx context.Context, userID int64) ([]*Store, error)
	UpdateStore(ctx context.Context, s *Store) error
	UpdateProfileImage(ctx context.Context, id int64, path string, at time.Time) error
	DeleteStore(ctx context.Context, id int64, at time.Time) error

	RelateUser(ctx context.Context, storeID, userID int64) error
	// GetMembers returns the active users related to storeID.
	GetMembers(ctx context.Context, storeID int64) ([]access.Member, error)
}
