package order

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/marketplace-api/internal/apperr"
	"github.com/georgemunganga/marketplace-api/internal/modules/access"
)

type memRepo struct {
	orders   map[int64]*Order
	products map[int64]*ProductSnapshot
	nextID   int64
}

func newMemRepo() *memRepo {
	return &memRepo{
		orders: map[int64]*Order{},
		products: map[int64]*ProductSnapshot{
			1: {ProductID: 1, StoreID: 10, Price: 9.99, Active: true},
			2: {ProductID: 2, StoreID: 10, Price: 0.5, Active: false},
			3: {ProductID: 3, StoreID: 20, Price: 3, Active: true},
		},
	}
}

func (m *memRepo) CreateOrder(_ context.Context, o *Order) error {
	m.nextID++
	o.ID = m.nextID
	m.orders[o.ID] = o
	return nil
}

func (m *memRepo) GetOrderByID(_ context.Context, id int64) (*Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memRepo) filter(keep func(*Order) bool) []*Order {
	var out []*Order
	for _, o := range m.orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	return out
}

func (m *memRepo) ListOrdersByStore(_ context.Context, id int64) ([]*Order, error) {
	return m.filter(func(o *Order) bool { return o.StoreID == id }), nil
}

func (m *memRepo) ListOrdersByUser(_ context.Context, id int64) ([]*Order, error) {
	return m.filter(func(o *Order) bool { return o.UserID == id }), nil
}

func (m *memRepo) ListOrdersByProduct(_ context.Context, id int64) ([]*Order, error) {
	return m.filter(func(o *Order) bool {
		for _, it := range o.Items {
			if it.ProductID == id {
				return true
			}
		}
		return false
	}), nil
}

func (m *memRepo) UpdateStatus(_ context.Context, id int64, st Status, at time.Time) error {
	o, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.StatusID = st
	o.LastUpdate = &at
	return nil
}

func (m *memRepo) GetProduct(_ context.Context, id int64) (*ProductSnapshot, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

type staticMembers map[int64][]access.Member

func (s staticMembers) Members(_ context.Context, storeID int64) ([]access.Member, error) {
	return s[storeID], nil
}

var (
	buyer    = access.Principal{UserID: 100, Role: access.RoleCustomer}
	employee = access.Principal{UserID: 200, Role: access.RoleStoreEmployee}
	admin    = access.Principal{UserID: 1, Role: access.RoleSystemAdmin}
)

func newTestService() (*service, *memRepo) {
	repo := newMemRepo()
	svc := NewService(repo, staticMembers{10: {{UserID: employee.UserID, Role: access.RoleStoreEmployee}}}).(*service)
	return svc, repo
}

func TestPlaceOrder(t *testing.T) {
	svc, repo := newTestService()
	o, err := svc.PlaceOrder(context.Background(), buyer, PlaceOrderRequest{
		StoreID: 10,
		Items:   []CartItem{{ProductID: 1, Quantity: 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, o.StatusID)
	assert.Equal(t, buyer.UserID, o.UserID)
	assert.InDelta(t, 29.97, o.Total, 0.001)
	assert.Nil(t, o.LastUpdate)
	assert.Contains(t, repo.orders, o.ID)
}

func TestPlaceOrderRejects(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	cases := map[string]PlaceOrderRequest{
		"empty":         {StoreID: 10},
		"zero quantity": {StoreID: 10, Items: []CartItem{{ProductID: 1}}},
		"unknown":       {StoreID: 10, Items: []CartItem{{ProductID: 99, Quantity: 1}}},
		"inactive":      {StoreID: 10, Items: []CartItem{{ProductID: 2, Quantity: 1}}},
		"other store":   {StoreID: 10, Items: []CartItem{{ProductID: 3, Quantity: 1}}},
	}
	for name, req := range cases {
		_, err := svc.PlaceOrder(ctx, buyer, req)
		assert.True(t, apperr.Is(err, apperr.KindInvalidOperation), name)
	}
}

func TestUpdateStatus(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	o, err := svc.PlaceOrder(ctx, buyer, PlaceOrderRequest{StoreID: 10, Items: []CartItem{{ProductID: 1, Quantity: 1}}})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, buyer, o.ID, UpdateStatusRequest{StatusID: StatusShipped})
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	got, err := svc.UpdateStatus(ctx, employee, o.ID, UpdateStatusRequest{StatusID: StatusShipped})
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, got.StatusID)
	require.NotNil(t, got.LastUpdate)
	assert.False(t, got.LastUpdate.Before(got.CreationDate))

	_, err = svc.UpdateStatus(ctx, employee, o.ID, UpdateStatusRequest{StatusID: StatusProcessing})
	assert.True(t, apperr.Is(err, apperr.KindInvalidOperation))

	_, err = svc.UpdateStatus(ctx, admin, o.ID, UpdateStatusRequest{StatusID: StatusFinished})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, admin, o.ID, UpdateStatusRequest{StatusID: StatusFinished})
	assert.Equal(t, msgFinishedOrder, apperr.MessageOf(err))

	_, err = svc.UpdateStatus(ctx, admin, o.ID, UpdateStatusRequest{StatusID: 9})
	assert.Equal(t, msgInvalidStatus, apperr.MessageOf(err))

	_, err = svc.UpdateStatus(ctx, admin, 404, UpdateStatusRequest{StatusID: StatusFinished})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusPending.CanTransition(StatusFinished))
	assert.False(t, StatusShipped.CanTransition(StatusPending))
	assert.False(t, StatusFinished.CanTransition(StatusFinished))
	assert.False(t, StatusPending.CanTransition(Status(0)))
	assert.Equal(t, "FINISHED", StatusFinished.String())
}
