package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/georgemunganga/marketplace-api/internal/modules/access"
	"github.com/georgemunganga/marketplace-api/internal/platform/database"
)

type postgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgreSQL store repository.
func NewPostgresRepository(db *sql.DB) Repository {
	return &postgresRepository{db: db}
}

const storeColumns = `s.store_id, s.name, s.profile_image_path, s.active, s.creation_date, s.last_update`

func scanStore(scan func(...any) error) (*Store, error) {
	s := &Store{}
	var last sql.NullTime
	if err := scan(&s.ID, &s.Name, &s.ProfileImagePath, &s.Active, &s.CreationDate, &last); err != nil {
		return nil, err
	}
	if last.Valid {
		s.LastUpdate = &last.Time
	}
	return s, nil
}

func (r *postgresRepository) CreateStore(ctx context.Context, s *Store, ownerID int64) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO stores (name, profile_image_path, active, creation_date)
			VALUES ($1, $2, $3, $4)
			RETURNING store_id`,
			s.Name, s.ProfileImagePath, s.Active, s.CreationDate,
		).Scan(&s.ID)
		if err != nil {
			return fmt.Errorf("insert store: %w", err)
		}
		return relate(ctx, tx, s.ID, ownerID)
	})
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func relate(ctx context.Context, db execer, storeID, userID int64) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO store_user (store_id, user_id) VALUES ($1, $2)
		ON CONFLICT (store_id, user_id) DO NOTHING`, storeID, userID)
	if database.IsForeignKeyViolation(err) {
		return ErrUnknownUser
	}
	if err != nil {
		return fmt.Errorf("relate store %d and user %d: %w", storeID, userID, err)
	}
	return nil
}

func (r *postgresRepository) GetStoreByID(ctx context.Context, id int64) (*Store, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+storeColumns+` FROM stores s WHERE s.store_id = $1 AND s.active`, id)
	return r.one(row)
}

func (r *postgresRepository) GetStoreByProduct(ctx context.Context, productID int64) (*Store, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+storeColumns+`
		FROM stores s
		JOIN products p ON p.store_id = s.store_id
		WHERE p.product_id = $1 AND p.active AND s.active`, productID)
	return r.one(row)
}

func (r *postgresRepository) one(row *sql.Row) (*Store, error) {
	s, err := scanStore(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get store: %w", err)
	}
	return s, nil
}

func (r *postgresRepository) ListStores(ctx context.Context) ([]*Store, error) {
	return r.list(ctx, `SELECT `+storeColumns+` FROM stores s WHERE s.active ORDER BY s.store_id`)
}

func (r *postgresRepository) ListStoresByUser(ctx context.Context, userID int64) ([]*Store, error) {
	return r.list(ctx, `
		SELECT `+storeColumns+`
		FROM stores s
		JOIN store_user su ON su.store_id = s.store_id
		WHERE su.user_id = $1 AND s.active
		ORDER BY s.store_id`, userID)
}

func (r *postgresRepository) list(ctx context.Context, query string, args ...any) ([]*Store, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	defer rows.Close()

	var stores []*Store
	for rows.Next() {
		s, err := scanStore(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan store: %w", err)
		}
		stores = append(stores, s)
	}
	return stores, rows.Err()
}

func (r *postgresRepository) UpdateStore(ctx context.Context, s *Store) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE stores SET name = $1, last_update = $2
		WHERE store_id = $3 AND active`,
		s.Name, s.LastUpdate, s.ID)
	return affected(res, err, "update store")
}

func (r *postgresRepository) UpdateProfileImage(ctx context.Context, id int64, path string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE stores SET profile_image_path = $1, last_update = $2
		WHERE store_id = $3 AND active`, path, at, id)
	return affected(res, err, "update store image")
}

func (r *postgresRepository) DeleteStore(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE stores SET active = FALSE, last_update = $1
		WHERE store_id = $2 AND active`, at, id)
	return affected(res, err, "delete store")
}

func (r *postgresRepository) RelateUser(ctx context.Context, storeID, userID int64) error {
	return relate(ctx, r.db, storeID, userID)
}

func (r *postgresRepository) GetMembers(ctx context.Context, storeID int64) ([]access.Member, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.user_id, u.role_id
		FROM store_user su
		JOIN users u ON u.user_id = su.user_id
		WHERE su.store_id = $1 AND u.active
		ORDER BY u.user_id`, storeID)
	if err != nil {
		return nil, fmt.Errorf("list store members: %w", err)
	}
	defer rows.Close()

	var members []access.Member
	for rows.Next() {
		var m access.Member
		if err := rows.Scan(&m.UserID, &m.Role); err != nil {
			return nil, fmt.Errorf("scan store member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func affected(res sql.Result, err error, op string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
