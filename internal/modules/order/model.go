package order

import "time"

// Status is the lifecycle state of an order. Ids match the seeded
// order_statuses table.
type Status int

const (
	StatusPending    Status = 1
	StatusProcessing Status = 2
	StatusShipped    Status = 3
	StatusFinished   Status = 4
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusProcessing:
		return "PROCESSING"
	case StatusShipped:
		return "SHIPPED"
	case StatusFinished:
		return "FINISHED"
	}
	return "UNKNOWN"
}

func (s Status) Valid() bool { return s >= StatusPending && s <= StatusFinished }

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool { return s == StatusFinished }

// CanTransition reports whether an order may move from s to next. Statuses
// only move forward.
func (s Status) CanTransition(next Status) bool {
	return next.Valid() && !s.Terminal() && next > s
}

// Order is a customer's purchase from one store.
type Order struct {
	ID           int64      `json:"orderId"`
	StoreID      int64      `json:"storeId"`
	UserID       int64      `json:"userId"`
	StatusID     Status     `json:"orderStatusId"`
	Total        float64    `json:"total"`
	Active       bool       `json:"active"`
	Items        []*Item    `json:"items,omitempty"`
	CreationDate time.Time  `json:"creationDate"`
	LastUpdate   *time.Time `json:"lastUpdate,omitempty"`
}

// Item is a single line of an order. UnitPrice is the product price when
// the order was placed.
type Item struct {
	ID        int64   `json:"orderItemId"`
	OrderID   int64   `json:"orderId"`
	ProductID int64   `json:"productId"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	LineTotal float64 `json:"lineTotal"`
}

// CartItem describes what the customer wants during checkout.
type CartItem struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// PlaceOrderRequest is the payload for creating a new order.
type PlaceOrderRequest struct {
	StoreID int64      `json:"storeId"`
	Items   []CartItem `json:"items"`
}

// UpdateStatusRequest is the payload for advancing an order's status.
type UpdateStatusRequest struct {
	StatusID Status `json:"statusId"`
}

// ProductSnapshot is the part of a product an order line needs.
type ProductSnapshot struct {
	ProductID int64
	StoreID   int64
	Price     float64
	Active    bool
}
