package auth

import (
	"context"
	"errors"
	"time"

	"github.com/georgemunganga/marketplace-api/internal/modules/access"
)

// ErrNotAuthenticated is returned by Authenticate for unknown e-mails and
// wrong passwords alike.
var ErrNotAuthenticated = errors.New("auth: not authenticated")

// Service defines credential checks and the password recovery flow.
type Service interface {
	// Authenticate verifies the credentials of an active user and issues a bearer token.
	Authenticate(ctx context.Context, email, password string) (*Token, error)

	// SendRecoveryEmail mails a recovery link when an active user owns email.
	// It returns false, without error, when nobody does.
	SendRecoveryEmail(ctx context.Context, email string) (bool, error)

	// CheckRecoveryToken reports whether token exists, is unconsumed and unexpired.
	CheckRecoveryToken(ctx context.Context, token string) (bool, error)

	// ConsumeRecoveryToken spends token and replaces the owner's password.
	ConsumeRecoveryToken(ctx context.Context, token, newPassword string) error
}

// Account is the part of a user row needed to authenticate.
type Account struct {
	ID           int64
	Email        string
	PasswordHash string
	Role         access.Role
}

// RecoveryToken is a stored recovery token. Only the SHA-256 of the mailed
// value is kept.
type RecoveryToken struct {
	TokenHash    string
	UserID       int64
	ExpiresAt    time.Time
	ConsumedAt   *time.Time
	CreationDate time.Time
}

// Usable reports whether t can still be consumed at now.
func (t *RecoveryToken) Usable(now time.Time) bool {
	return t.ConsumedAt == nil && t.ExpiresAt.After(now)
}

// Token is the login response payload.
type Token struct {
	Token     string    `json:"token"`
	Type      string    `json:"type"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
