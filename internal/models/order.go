package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderKind selects the fulfillment path of an order.
type OrderKind string

const (
	KindProvider        OrderKind = "provider"
	KindManual          OrderKind = "manual"
	KindCode            OrderKind = "code"
	KindCurrencyPackage OrderKind = "currency_package"
)

// Valid reports whether k is a known order kind.
func (k OrderKind) Valid() bool {
	switch k {
	case KindProvider, KindManual, KindCode, KindCurrencyPackage:
		return true
	}
	return false
}

// NeedsLink reports whether orders of this kind carry a target link or account.
func (k OrderKind) NeedsLink() bool {
	return k != KindCode
}

// OrderStatus is a state of the order lifecycle.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusDone       OrderStatus = "done"
	StatusRejected   OrderStatus = "rejected"
	StatusRefunded   OrderStatus = "refunded"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusProcessing, StatusDone, StatusRejected},
	StatusProcessing: {StatusDone, StatusRejected, StatusRefunded},
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusDone, StatusRejected, StatusRefunded:
		return true
	}
	return false
}

// Terminal reports whether no further transition is permitted from s.
func (s OrderStatus) Terminal() bool {
	_, ok := orderTransitions[s]
	return !ok
}

// CanTransition reports whether the lifecycle allows s -> to.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	for _, next := range orderTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Order is one purchase attempt. Price is fixed at creation.
type Order struct {
	ID              string          `json:"id"`
	UID             string          `json:"uid"`
	Kind            OrderKind       `json:"kind"`
	ServiceRef      string          `json:"service_ref"`
	Link            string          `json:"link,omitempty"`
	Quantity        int             `json:"quantity"`
	Price           decimal.Decimal `json:"price" swaggertype:"string"`
	Status          OrderStatus     `json:"status"`
	ProviderOrderID *string         `json:"provider_order_id,omitempty"`
	CodeID          *string         `json:"code_id,omitempty"`
	Note            string          `json:"note,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	// DispatchLeaseUntil is set while an approval is talking to upstream.
	DispatchLeaseUntil *time.Time `json:"-"`
}

// Dispatching reports whether an approval currently holds the order.
func (o *Order) Dispatching(now time.Time) bool {
	return o.DispatchLeaseUntil != nil && o.DispatchLeaseUntil.After(now)
}

// CreateOrderRequest is the body of POST /orders.
type CreateOrderRequest struct {
	Kind       OrderKind `json:"kind" validate:"required,oneof=provider manual code currency_package"`
	ServiceRef string    `json:"service_ref" validate:"required,max=64"`
	Link       string    `json:"link" validate:"max=512"`
	Quantity   int       `json:"quantity" validate:"required,gt=0"`
}

// RejectOrderRequest carries the operator's reason.
type RejectOrderRequest struct {
	Reason string `json:"reason" validate:"max=300"`
}

// RepriceOrderRequest is an explicit operator override of one order.
type RepriceOrderRequest struct {
	Price    decimal.Decimal `json:"price" swaggertype:"string"`
	Quantity int             `json:"quantity" validate:"required,gt=0"`
	Reason   string          `json:"reason" validate:"required,max=300"`
}

// OrderRepricing is the audit row written by a re-price.
type OrderRepricing struct {
	OrderID     string          `json:"order_id"`
	OldPrice    decimal.Decimal `json:"old_price" swaggertype:"string"`
	NewPrice    decimal.Decimal `json:"new_price" swaggertype:"string"`
	OldQuantity int             `json:"old_quantity"`
	NewQuantity int             `json:"new_quantity"`
	Actor       string          `json:"actor"`
	Reason      string          `json:"reason"`
	CreatedAt   time.Time       `json:"created_at"`
}
