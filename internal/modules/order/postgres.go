package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/georgemunganga/marketplace-api/internal/platform/database"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const orderColumns = `o.order_id, o.store_id, o.user_id, o.order_status_id, o.total, o.active, o.creation_date, o.last_update`

// CreateOrder inserts the order and all its items inside a single transaction.
func (r *postgresRepo) CreateOrder(ctx context.Context, o *Order) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO orders (store_id, user_id, order_status_id, total, active, creation_date)
			VALUES ($1,$2,$3,$4,$5,$6)
			RETURNING order_id`,
			o.StoreID, o.UserID, o.StatusID, o.Total, o.Active, o.CreationDate,
		).Scan(&o.ID)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for _, item := range o.Items {
			item.OrderID = o.ID
			err = tx.QueryRowContext(ctx, `
				INSERT INTO order_items (order_id, product_id, quantity, unit_price, line_total)
				VALUES ($1,$2,$3,$4,$5)
				RETURNING order_item_id`,
				o.ID, item.ProductID, item.Quantity, item.UnitPrice, item.LineTotal,
			).Scan(&item.ID)
			if err != nil {
				return fmt.Errorf("insert order_item: %w", err)
			}
		}
		return nil
	})
}

func (r *postgresRepo) GetOrderByID(ctx context.Context, id int64) (*Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders o WHERE o.order_id=$1 AND o.active`, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	o.Items, err = r.listItems(ctx, o.ID)
	return o, err
}

func (r *postgresRepo) ListOrdersByStore(ctx context.Context, storeID int64) ([]*Order, error) {
	return r.queryOrders(ctx, `
		SELECT `+orderColumns+` FROM orders o
		WHERE o.store_id=$1 AND o.active
		ORDER BY o.creation_date DESC, o.order_id ASC`, storeID)
}

func (r *postgresRepo) ListOrdersByUser(ctx context.Context, userID int64) ([]*Order, error) {
	return r.queryOrders(ctx, `
		SELECT `+orderColumns+` FROM orders o
		WHERE o.user_id=$1 AND o.active
		ORDER BY o.creation_date DESC, o.order_id ASC`, userID)
}

func (r *postgresRepo) ListOrdersByProduct(ctx context.Context, productID int64) ([]*Order, error) {
	return r.queryOrders(ctx, `
		SELECT `+orderColumns+` FROM orders o
		WHERE o.active AND EXISTS (
			SELECT 1 FROM order_items i WHERE i.order_id = o.order_id AND i.product_id = $1)
		ORDER BY o.creation_date DESC, o.order_id ASC`, productID)
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, id int64, status Status, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET order_status_id=$1, last_update=$2 WHERE order_id=$3 AND active`,
		status, at, id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepo) GetProduct(ctx context.Context, productID int64) (*ProductSnapshot, error) {
	p := &ProductSnapshot{ProductID: productID}
	err := r.db.QueryRowContext(ctx,
		`SELECT store_id, price, active FROM products WHERE product_id=$1`, productID,
	).Scan(&p.StoreID, &p.Price, &p.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product price: %w", err)
	}
	return p, nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

func scanOrder(scan func(...any) error) (*Order, error) {
	o := &Order{}
	var last sql.NullTime
	if err := scan(&o.ID, &o.StoreID, &o.UserID, &o.StatusID, &o.Total, &o.Active, &o.CreationDate, &last); err != nil {
		return nil, err
	}
	if last.Valid {
		o.LastUpdate = &last.Time
	}
	return o, nil
}

func (r *postgresRepo) queryOrders(ctx context.Context, query string, args ...any) ([]*Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()
	var orders []*Order
	for rows.Next() {
		o, err := scanOrder(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *postgresRepo) listItems(ctx context.Context, orderID int64) ([]*Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT order_item_id, order_id, product_id, quantity, unit_price, line_total
		FROM order_items WHERE order_id=$1 ORDER BY order_item_id ASC`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()
	var items []*Item
	for rows.Next() {
		item := &Item{}
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID,
			&item.Quantity, &item.UnitPrice, &item.LineTotal); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
