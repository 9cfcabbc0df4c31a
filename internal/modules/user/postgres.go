package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/georgemunganga/marketplace-api/internal/modules/access"
	"github.com/georgemunganga/marketplace-api/internal/platform/database"
)

type postgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgreSQL user repository.
func NewPostgresRepository(db *sql.DB) Repository {
	return &postgresRepository{db: db}
}

const userColumns = `u.user_id, u.name, u.email, u.password, u.role_id, u.profile_image_path, u.active, u.creation_date, u.last_update`

func scanUser(scan func(...any) error) (*User, error) {
	u := &User{}
	var last sql.NullTime
	err := scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.RoleID,
		&u.ProfileImagePath, &u.Active, &u.CreationDate, &last)
	if err != nil {
		return nil, err
	}
	if last.Valid {
		u.LastUpdate = &last.Time
	}
	return u, nil
}

func (r *postgresRepository) CreateUser(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (name, email, password, role_id, profile_image_path, active, creation_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING user_id
	`
	err := r.db.QueryRowContext(ctx, query,
		u.Name, u.Email, u.PasswordHash, u.RoleID, u.ProfileImagePath, u.Active, u.CreationDate,
	).Scan(&u.ID)
	if database.IsUniqueViolation(err) {
		return ErrEmailInUse
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetUserByID(ctx context.Context, id int64, includeInactive bool) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE u.user_id = $1`
	if !includeInactive {
		query += ` AND u.active`
	}
	return r.one(ctx, query, id)
}

func (r *postgresRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return r.one(ctx, `SELECT `+userColumns+` FROM users u WHERE u.email = $1 AND u.active`, email)
}

func (r *postgresRepository) CheckUserByEmail(ctx context.Context, email string, includeInactive bool) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1`
	if !includeInactive {
		query += ` AND active`
	}
	query += `)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("check user email: %w", err)
	}
	return exists, nil
}

func (r *postgresRepository) UpdateUser(ctx context.Context, u *User) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET name = $1, email = $2, password = $3, role_id = $4, profile_image_path = $5,
		    active = $6, last_update = $7
		WHERE user_id = $8`,
		u.Name, u.Email, u.PasswordHash, u.RoleID, u.ProfileImagePath, u.Active, u.LastUpdate, u.ID)
	if database.IsUniqueViolation(err) {
		return ErrEmailInUse
	}
	return affected(res, err, "update user")
}

func (r *postgresRepository) UpdatePassword(ctx context.Context, id int64, hash string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password = $1, last_update = $2 WHERE user_id = $3 AND active`, hash, at, id)
	return affected(res, err, "update password")
}

func (r *postgresRepository) UpdateProfileImage(ctx context.Context, id int64, path string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET profile_image_path = $1, last_update = $2 WHERE user_id = $3 AND active`, path, at, id)
	return affected(res, err, "update profile image")
}

func (r *postgresRepository) DeleteUsers(ctx context.Context, ids []int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET active = FALSE, last_update = $1 WHERE user_id = ANY($2) AND active`,
		at, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("delete users: %w", err)
	}
	return nil
}

func (r *postgresRepository) ListUsers(ctx context.Context) ([]*User, error) {
	return r.many(ctx, `SELECT `+userColumns+` FROM users u WHERE u.active ORDER BY u.user_id`)
}

func (r *postgresRepository) ListUsersByRole(ctx context.Context, role access.Role) ([]*User, error) {
	return r.many(ctx, `SELECT `+userColumns+` FROM users u WHERE u.role_id = $1 AND u.active ORDER BY u.user_id`, role)
}

func (r *postgresRepository) ListUsersByStore(ctx context.Context, storeID int64) ([]*User, error) {
	return r.many(ctx, `
		SELECT `+userColumns+`
		FROM users u
		JOIN store_user su ON su.user_id = u.user_id
		WHERE su.store_id = $1 AND u.active
		ORDER BY u.user_id`, storeID)
}

func (r *postgresRepository) one(ctx context.Context, query string, args ...any) (*User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, args...).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *postgresRepository) many(ctx context.Context, query string, args ...any) ([]*User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	var users []*User
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ---- Address ----

const addressColumns = `address_id, user_id, country, postal_code, address, number, state_code, city, district, complement, active, creation_date, last_update`

func scanAddress(scan func(...any) error) (*Address, error) {
	a := &Address{}
	var last sql.NullTime
	err := scan(&a.ID, &a.UserID, &a.Country, &a.PostalCode, &a.Address, &a.Number,
		&a.StateCode, &a.City, &a.District, &a.Complement, &a.Active, &a.CreationDate, &last)
	if err != nil {
		return nil, err
	}
	if last.Valid {
		a.LastUpdate = &last.Time
	}
	return a, nil
}

func (r *postgresRepository) CreateAddress(ctx context.Context, a *Address) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO addresses
		  (user_id, country, postal_code, address, number, state_code, city, district, complement, active, creation_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING address_id`,
		a.UserID, a.Country, a.PostalCode, a.Address, a.Number, a.StateCode,
		a.City, a.District, a.Complement, a.Active, a.CreationDate,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("insert address: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetAddress(ctx context.Context, id int64) (*Address, error) {
	a, err := scanAddress(r.db.QueryRowContext(ctx,
		`SELECT `+addressColumns+` FROM addresses WHERE address_id = $1 AND active`, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get address: %w", err)
	}
	return a, nil
}

func (r *postgresRepository) ListAddresses(ctx context.Context, userID int64) ([]*Address, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+addressColumns+` FROM addresses WHERE user_id = $1 AND active ORDER BY address_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	defer rows.Close()
	var out []*Address
	for rows.Next() {
		a, err := scanAddress(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan address: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *postgresRepository) UpdateAddress(ctx context.Context, a *Address) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE addresses
		SET country=$1, postal_code=$2, address=$3, number=$4, state_code=$5,
		    city=$6, district=$7, complement=$8, last_update=$9
		WHERE address_id=$10 AND active`,
		a.Country, a.PostalCode, a.Address, a.Number, a.StateCode,
		a.City, a.District, a.Complement, a.LastUpdate, a.ID)
	return affected(res, err, "update address")
}

func (r *postgresRepository) DeleteAddress(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE addresses SET active = FALSE, last_update = $1 WHERE address_id = $2 AND active`, at, id)
	return affected(res, err, "delete address")
}

func affected(res sql.Result, err error, op string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
