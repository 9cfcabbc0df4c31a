package order

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/georgemunganga/marketplace-api/internal/apperr"
	"github.com/georgemunganga/marketplace-api/internal/modules/access"
	"github.com/georgemunganga/marketplace-api/internal/platform/logger"
)

const (
	msgOrderNotFound   = "Pedido não encontrado!"
	msgEmptyOrder      = "O pedido deve conter ao menos um item."
	msgInvalidStatus   = "Status de pedido inválido."
	msgFinishedOrder   = "Não é possível alterar o status de um pedido finalizado."
	msgBackwardsStatus = "O status do pedido só pode avançar."
)

// MemberLister resolves the members of a store.
type MemberLister interface {
	Members(ctx context.Context, storeID int64) ([]access.Member, error)
}

// Service defines the order management business logic.
type Service interface {
	// PlaceOrder validates the cart, snapshots prices and persists the order atomically.
	PlaceOrder(ctx context.Context, p access.Principal, req PlaceOrderRequest) (*Order, error)

	// GetOrder retrieves a full order with its items.
	GetOrder(ctx context.Context, id int64) (*Order, error)

	ListStoreOrders(ctx context.Context, storeID int64) ([]*Order, error)
	ListUserOrders(ctx context.Context, userID int64) ([]*Order, error)
	ListProductOrders(ctx context.Context, productID int64) ([]*Order, error)

	// UpdateStatus advances an order. The caller must be a member of the
	// order's store or a system admin.
	UpdateStatus(ctx context.Context, p access.Principal, id int64, req UpdateStatusRequest) (*Order, error)
}

type service struct {
	repo    Repository
	members MemberLister
	now     func() time.Time
}

// NewService creates a new order service.
func NewService(repo Repository, members MemberLister) Service {
	return &service{repo: repo, members: members, now: time.Now}
}

func (s *service) PlaceOrder(ctx context.Context, p access.Principal, req PlaceOrderRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, apperr.Invalid(msgEmptyOrder)
	}

	var items []*Item
	var total float64
	for _, ci := range req.Items {
		if ci.Quantity <= 0 {
			return nil, apperr.Invalid(fmt.Sprintf("Quantidade inválida para o produto %d.", ci.ProductID))
		}
		prod, err := s.repo.GetProduct(ctx, ci.ProductID)
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.Invalid(fmt.Sprintf("Produto %d não encontrado.", ci.ProductID))
		}
		if err != nil {
			return nil, apperr.Unexpected(err)
		}
		if prod.StoreID != req.StoreID {
			return nil, apperr.Invalid(fmt.Sprintf("Produto %d não pertence a esta loja.", ci.ProductID))
		}
		if !prod.Active {
			return nil, apperr.Invalid(fmt.Sprintf("Produto %d indisponível.", ci.ProductID))
		}

		line := round2(prod.Price * float64(ci.Quantity))
		total += line
		items = append(items, &Item{
			ProductID: ci.ProductID,
			Quantity:  ci.Quantity,
			UnitPrice: prod.Price,
			LineTotal: line,
		})
	}

	o := &Order{
		StoreID:      req.StoreID,
		UserID:       p.UserID,
		StatusID:     StatusPending,
		Total:        round2(total),
		Active:       true,
		Items:        items,
		CreationDate: s.now(),
	}
	if err := s.repo.CreateOrder(ctx, o); err != nil {
		return nil, apperr.Unexpectedf(err, "persist order")
	}
	logger.From(ctx).Info("order placed", zap.Int64("order_id", o.ID), zap.Int64("store_id", o.StoreID))
	return o, nil
}

func (s *service) GetOrder(ctx context.Context, id int64) (*Order, error) {
	o, err := s.repo.GetOrderByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound(msgOrderNotFound)
	}
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	return o, nil
}

func (s *service) ListStoreOrders(ctx context.Context, storeID int64) ([]*Order, error) {
	return wrapList(s.repo.ListOrdersByStore(ctx, storeID))
}

func (s *service) ListUserOrders(ctx context.Context, userID int64) ([]*Order, error) {
	return wrapList(s.repo.ListOrdersByUser(ctx, userID))
}

func (s *service) ListProductOrders(ctx context.Context, productID int64) ([]*Order, error) {
	return wrapList(s.repo.ListOrdersByProduct(ctx, productID))
}

func (s *service) UpdateStatus(ctx context.Context, p access.Principal, id int64, req UpdateStatusRequest) (*Order, error) {
	if !req.StatusID.Valid() {
		return nil, apperr.Invalid(msgInvalidStatus)
	}
	o, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	members, err := s.members.Members(ctx, o.StoreID)
	if err != nil {
		return nil, err
	}
	if err := access.Permit(p, access.OpUpdateOrderStatus, access.Target{Members: members}).Err(); err != nil {
		return nil, err
	}

	if o.StatusID.Terminal() {
		return nil, apperr.Invalid(msgFinishedOrder)
	}
	if !o.StatusID.CanTransition(req.StatusID) {
		return nil, apperr.Invalid(msgBackwardsStatus)
	}

	now := s.now()
	err = s.repo.UpdateStatus(ctx, id, req.StatusID, now)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound(msgOrderNotFound)
	}
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	logger.From(ctx).Info("order status changed",
		zap.Int64("order_id", id), zap.Stringer("from", o.StatusID), zap.Stringer("to", req.StatusID))
	o.StatusID = req.StatusID
	o.LastUpdate = &now
	return o, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func wrapList(orders []*Order, err error) ([]*Order, error) {
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	return orders, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
