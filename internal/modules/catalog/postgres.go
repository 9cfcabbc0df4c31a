package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/georgemunganga/marketplace-api/internal/platform/database"
)

type postgresRepo struct{ db *sql.DB }

// NewPostgresRepository creates the product repository.
func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const productColumns = `p.product_id, p.store_id, p.product_subtype_id, p.name, p.description,
	p.price, p.stock_quantity, p.active, p.creation_date, p.last_update`

func scanProduct(scan func(...any) error) (*Product, error) {
	p := &Product{}
	var last sql.NullTime
	err := scan(&p.ID, &p.StoreID, &p.SubtypeID, &p.Name, &p.Description,
		&p.Price, &p.StockQuantity, &p.Active, &p.CreationDate, &last)
	if err != nil {
		return nil, err
	}
	if last.Valid {
		p.LastUpdate = &last.Time
	}
	return p, nil
}

func (r *postgresRepo) CreateProduct(ctx context.Context, p *Product) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO products
		  (store_id, product_subtype_id, name, description, price, stock_quantity, active, creation_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING product_id`,
		p.StoreID, p.SubtypeID, p.Name, p.Description, p.Price, p.StockQuantity, p.Active, p.CreationDate,
	).Scan(&p.ID)
	if database.IsForeignKeyViolation(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *postgresRepo) GetProductByID(ctx context.Context, id int64) (*Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products p WHERE p.product_id = $1 AND p.active`, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if err := r.loadImages(ctx, []*Product{p}); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *postgresRepo) ListProducts(ctx context.Context, f ProductFilter, limit int) ([]*Product, error) {
	query, args := productListQuery(f, limit)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		p, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadImages(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

// likeEscaper makes user input match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func productListQuery(f ProductFilter, limit int) (string, []any) {
	var (
		where = []string{"p.active"}
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Name != "" {
		where = append(where, `p.name ILIKE '%' || `+arg(likeEscaper.Replace(f.Name))+` || '%' ESCAPE '\'`)
	}
	if f.StoreID != 0 {
		where = append(where, "p.store_id = "+arg(f.StoreID))
	}
	if f.SubtypeID != 0 {
		where = append(where, "p.product_subtype_id = "+arg(f.SubtypeID))
	}
	query := `SELECT ` + productColumns + ` FROM products p
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY p.creation_date DESC, p.product_id ASC
		LIMIT ` + arg(limit)
	return query, args
}

// loadImages fills ImagePaths of every product with one query.
func (r *postgresRepo) loadImages(ctx context.Context, products []*Product) error {
	if len(products) == 0 {
		return nil
	}
	byID := make(map[int64]*Product, len(products))
	ids := make([]int64, 0, len(products))
	for _, p := range products {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, path FROM product_images
		WHERE product_id = ANY($1)
		ORDER BY product_image_id`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("list product images: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   int64
			path string
		)
		if err := rows.Scan(&id, &path); err != nil {
			return fmt.Errorf("scan product image: %w", err)
		}
		byID[id].ImagePaths = append(byID[id].ImagePaths, path)
	}
	return rows.Err()
}

func (r *postgresRepo) UpdateProduct(ctx context.Context, p *Product) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET product_subtype_id = $1, name = $2, description = $3, price = $4,
		    stock_quantity = $5, last_update = $6
		WHERE product_id = $7 AND active`,
		p.SubtypeID, p.Name, p.Description, p.Price, p.StockQuantity, p.LastUpdate, p.ID)
	if database.IsForeignKeyViolation(err) {
		return ErrNotFound
	}
	return affected(res, err, "update product")
}

func (r *postgresRepo) DeleteProduct(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE products SET active = FALSE, last_update = $1 WHERE product_id = $2 AND active`, at, id)
	return affected(res, err, "delete product")
}

func (r *postgresRepo) AddImage(ctx context.Context, productID int64, path string, at time.Time) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE products SET last_update = $1 WHERE product_id = $2 AND active`, at, productID)
		if err := affected(res, err, "touch product"); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO product_images (product_id, path, creation_date) VALUES ($1, $2, $3)`,
			productID, path, at)
		if err != nil {
			return fmt.Errorf("insert product image: %w", err)
		}
		return nil
	})
}

// ---- Taxonomy ----

type taxonomyPostgres struct{ db *sql.DB }

// NewTaxonomyPostgresRepository creates the product type/subtype repository.
func NewTaxonomyPostgresRepository(db *sql.DB) TaxonomyRepository { return &taxonomyPostgres{db: db} }

func scanType(scan func(...any) error) (*ProductType, error) {
	t := &ProductType{}
	var last sql.NullTime
	if err := scan(&t.ID, &t.Name, &t.Active, &t.CreationDate, &last); err != nil {
		return nil, err
	}
	if last.Valid {
		t.LastUpdate = &last.Time
	}
	return t, nil
}

func scanSubtype(scan func(...any) error) (*ProductSubtype, error) {
	st := &ProductSubtype{}
	var last sql.NullTime
	if err := scan(&st.ID, &st.TypeID, &st.Name, &st.Active, &st.CreationDate, &last); err != nil {
		return nil, err
	}
	if last.Valid {
		st.LastUpdate = &last.Time
	}
	return st, nil
}

func (r *taxonomyPostgres) CreateType(ctx context.Context, t *ProductType) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO product_types (name, active, creation_date) VALUES ($1, $2, $3)
		RETURNING product_type_id`, t.Name, t.Active, t.CreationDate).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("insert product type: %w", err)
	}
	return nil
}

func (r *taxonomyPostgres) GetType(ctx context.Context, id int64) (*ProductType, error) {
	t, err := scanType(r.db.QueryRowContext(ctx, `
		SELECT product_type_id, name, active, creation_date, last_update
		FROM product_types WHERE product_type_id = $1 AND active`, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product type: %w", err)
	}
	return t, nil
}

func (r *taxonomyPostgres) ListTypes(ctx context.Context) ([]*ProductType, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT product_type_id, name, active, creation_date, last_update
		FROM product_types WHERE active ORDER BY name, product_type_id`)
	if err != nil {
		return nil, fmt.Errorf("list product types: %w", err)
	}
	defer rows.Close()

	var types []*ProductType
	for rows.Next() {
		t, err := scanType(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan product type: %w", err)
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

func (r *taxonomyPostgres) UpdateType(ctx context.Context, t *ProductType) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE product_types SET name = $1, last_update = $2
		WHERE product_type_id = $3 AND active`, t.Name, t.LastUpdate, t.ID)
	return affected(res, err, "update product type")
}

func (r *taxonomyPostgres) DeleteType(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE product_types SET active = FALSE, last_update = $1
		WHERE product_type_id = $2 AND active`, at, id)
	return affected(res, err, "delete product type")
}

func (r *taxonomyPostgres) CreateSubtype(ctx context.Context, st *ProductSubtype) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO product_subtypes (product_type_id, name, active, creation_date) VALUES ($1, $2, $3, $4)
		RETURNING product_subtype_id`, st.TypeID, st.Name, st.Active, st.CreationDate).Scan(&st.ID)
	if database.IsForeignKeyViolation(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("insert product subtype: %w", err)
	}
	return nil
}

func (r *taxonomyPostgres) GetSubtype(ctx context.Context, id int64) (*ProductSubtype, error) {
	st, err := scanSubtype(r.db.QueryRowContext(ctx, `
		SELECT product_subtype_id, product_type_id, name, active, creation_date, last_update
		FROM product_subtypes WHERE product_subtype_id = $1 AND active`, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product subtype: %w", err)
	}
	return st, nil
}

func (r *taxonomyPostgres) ListSubtypes(ctx context.Context, typeID int64) ([]*ProductSubtype, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT product_subtype_id, product_type_id, name, active, creation_date, last_update
		FROM product_subtypes WHERE product_type_id = $1 AND active
		ORDER BY name, product_subtype_id`, typeID)
	if err != nil {
		return nil, fmt.Errorf("list product subtypes: %w", err)
	}
	defer rows.Close()

	var subtypes []*ProductSubtype
	for rows.Next() {
		st, err := scanSubtype(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan product subtype: %w", err)
		}
		subtypes = append(subtypes, st)
	}
	return subtypes, rows.Err()
}

func (r *taxonomyPostgres) UpdateSubtype(ctx context.Context, st *ProductSubtype) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE product_subtypes SET product_type_id = $1, name = $2, last_update = $3
		WHERE product_subtype_id = $4 AND active`, st.TypeID, st.Name, st.LastUpdate, st.ID)
	if database.IsForeignKeyViolation(err) {
		return ErrNotFound
	}
	return affected(res, err, "update product subtype")
}

func (r *taxonomyPostgres) DeleteSubtype(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE product_subtypes SET active = FALSE, last_update = $1
		WHERE product_subtype_id = $2 AND active`, at, id)
	return affected(res, err, "delete product subtype")
}

func (r *taxonomyPostgres) CountActiveSubtypes(ctx context.Context, typeID int64) (int, error) {
	return count(ctx, r.db, `SELECT count(*) FROM product_subtypes WHERE product_type_id = $1 AND active`, typeID)
}

func (r *taxonomyPostgres) CountActiveProducts(ctx context.Context, subtypeID int64) (int, error) {
	return count(ctx, r.db, `SELECT count(*) FROM products WHERE product_subtype_id = $1 AND active`, subtypeID)
}

func count(ctx context.Context, db *sql.DB, query string, args ...any) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
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
