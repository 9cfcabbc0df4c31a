package auth

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by repositories when no row matches.
var ErrNotFound = errors.New("auth: record not found")

// AccountRepository reads and updates credentials on the users table.
type AccountRepository interface {
	GetActiveAccountByEmail(ctx context.Context, email string) (*Account, error)
	UpdatePasswordHash(ctx context.Context, userID int64, hash string, at time.Time) error
}

// RecoveryTokenRepository persists recovery tokens.
type RecoveryTokenRepository interface {
	Create(ctx context.Context, t *RecoveryToken) error
	GetByHash(ctx context.Context, tokenHash string) (*RecoveryToken, error)
	// Consume marks the token consumed and stores passwordHash for its owner
	// in one transaction. It returns ErrNotFound when the token is no longer usable at at.
	Consume(ctx context.Context, tokenHash, passwordHash string, at time.Time) (int64, error)
}
