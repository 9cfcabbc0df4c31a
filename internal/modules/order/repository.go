package order

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no row matches.
var ErrNotFound = errors.New("order: not found")

// Repository defines data access for orders.
type Repository interface {
	// CreateOrder persists a new order and its items atomically in a transaction.
	CreateOrder(ctx context.Context, o *Order) error

	// GetOrderByID retrieves an active order with its items.
	GetOrderByID(ctx context.Context, id int64) (*Order, error)

	// ListOrdersByStore returns the active orders of a store, newest first.
	ListOrdersByStore(ctx context.Context, storeID int64) ([]*Order, error)

	// ListOrdersByUser returns the active orders placed by a user.
	ListOrdersByUser(ctx context.Context, userID int64) ([]*Order, error)

	// ListOrdersByProduct returns the active orders with a line for productID.
	ListOrdersByProduct(ctx context.Context, productID int64) ([]*Order, error)

	// UpdateStatus moves an order to status.
	UpdateStatus(ctx context.Context, id int64, status Status, at time.Time) error

	// GetProduct fetches the store, price and state of a product.
	GetProduct(ctx context.Context, productID int64) (*ProductSnapshot, error)
}
