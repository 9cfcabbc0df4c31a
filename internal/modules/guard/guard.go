// Package guard blocks the deactivation of products and stores that still
// have orders in progress.
package guard

import (
	"context"

	"go.uber.org/zap"

	"github.com/georgemunganga/marketplace-api/internal/apperr"
	"github.com/georgemunganga/marketplace-api/internal/modules/order"
	"github.com/georgemunganga/marketplace-api/internal/platform/logger"
)

const (
	MsgOpenProductOrders = "Não é possível desativar um produto com pedidos em aberto. Caso queira removê-lo da loja antes, mude o quantidade em estoque para zero."
	MsgOpenStoreOrders   = "Não é possível desativar uma loja com pedidos em aberto."
)

// OrderQuery lists the orders related to a product or a store.
type OrderQuery interface {
	ListOrdersByProduct(ctx context.Context, productID int64) ([]*order.Order, error)
	ListOrdersByStore(ctx context.Context, storeID int64) ([]*order.Order, error)
}

type Guard struct {
	orders OrderQuery
}

func New(orders OrderQuery) *Guard { return &Guard{orders: orders} }

// Product returns nil when every order containing productID is finished.
func (g *Guard) Product(ctx context.Context, productID int64) error {
	orders, err := g.orders.ListOrdersByProduct(ctx, productID)
	if err != nil {
		return apperr.Unexpectedf(err, "list orders of product %d", productID)
	}
	return check(ctx, orders, MsgOpenProductOrders, zap.Int64("product_id", productID))
}

// Store returns nil when every order of storeID is finished.
func (g *Guard) Store(ctx context.Context, storeID int64) error {
	orders, err := g.orders.ListOrdersByStore(ctx, storeID)
	if err != nil {
		return apperr.Unexpectedf(err, "list orders of store %d", storeID)
	}
	return check(ctx, orders, MsgOpenStoreOrders, zap.Int64("store_id", storeID))
}

func check(ctx context.Context, orders []*order.Order, msg string, target zap.Field) error {
	for _, o := range orders {
		if o.StatusID != order.StatusFinished {
			logger.From(ctx).Info("deactivation blocked by open order", target, zap.Int64("order_id", o.ID))
			return apperr.Invalid(msg)
		}
	}
	return nil
}
