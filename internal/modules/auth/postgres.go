package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/georgemunganga/marketplace-api/internal/platform/database"
)

type accountRepo struct{ db *sql.DB }

// NewAccountRepository returns a Postgres-backed AccountRepository.
func NewAccountRepository(db *sql.DB) AccountRepository { return &accountRepo{db: db} }

func (r *accountRepo) GetActiveAccountByEmail(ctx context.Context, email string) (*Account, error) {
	a := &Account{}
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, email, password, role_id FROM users WHERE email = $1 AND active`, email,
	).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account by email: %w", err)
	}
	return a, nil
}

func (r *accountRepo) UpdatePasswordHash(ctx context.Context, userID int64, hash string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET password = $1, last_update = $2 WHERE user_id = $3`, hash, at, userID)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	return nil
}

type recoveryRepo struct{ db *sql.DB }

// NewRecoveryTokenRepository returns a Postgres-backed RecoveryTokenRepository.
func NewRecoveryTokenRepository(db *sql.DB) RecoveryTokenRepository { return &recoveryRepo{db: db} }

func (r *recoveryRepo) Create(ctx context.Context, t *RecoveryToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO password_recovery_tokens (token_hash, user_id, expires_at, creation_date)
		 VALUES ($1, $2, $3, $4)`,
		t.TokenHash, t.UserID, t.ExpiresAt, t.CreationDate)
	if err != nil {
		return fmt.Errorf("create recovery token: %w", err)
	}
	return nil
}

func (r *recoveryRepo) GetByHash(ctx context.Context, tokenHash string) (*RecoveryToken, error) {
	t := &RecoveryToken{}
	var consumed sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT token_hash, user_id, expires_at, consumed_at, creation_date
		 FROM password_recovery_tokens WHERE token_hash = $1`, tokenHash,
	).Scan(&t.TokenHash, &t.UserID, &t.ExpiresAt, &consumed, &t.CreationDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get recovery token: %w", err)
	}
	if consumed.Valid {
		t.ConsumedAt = &consumed.Time
	}
	return t, nil
}

func (r *recoveryRepo) Consume(ctx context.Context, tokenHash, passwordHash string, at time.Time) (int64, error) {
	var userID int64
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`UPDATE password_recovery_tokens SET consumed_at = $2
			 WHERE token_hash = $1 AND consumed_at IS NULL AND expires_at > $2
			 RETURNING user_id`, tokenHash, at,
		).Scan(&userID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("consume recovery token: %w", err)
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE users SET password = $1, last_update = $2 WHERE user_id = $3 AND active`,
			passwordHash, at, userID)
		if err != nil {
			return fmt.Errorf("reset password: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
	return userID, err
}
