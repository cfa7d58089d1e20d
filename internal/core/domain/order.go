package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is a state of the order lifecycle.
type OrderStatus string

const (
	OrderStatusPlaced    OrderStatus = "PLACED"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// PaymentStatus tracks settlement, which happens out of band.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// PaymentMethod is the buyer's payment selection at checkout.
type PaymentMethod string

const (
	PaymentMethodCOD  PaymentMethod = "COD"
	PaymentMethodCard PaymentMethod = "CARD"
	PaymentMethodUPI  PaymentMethod = "UPI"
)

// ErrInvalidTransition is returned when a lifecycle move is not allowed.
var ErrInvalidTransition = errors.New("invalid order status transition")

var nextStatuses = map[OrderStatus][]OrderStatus{
	OrderStatusPlaced:  {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:    {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped: {OrderStatusDelivered, OrderStatusCancelled},
}

// IsTerminal reports whether no further transition is possible.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo reports whether s -> to is an allowed move.
func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	for _, next := range nextStatuses[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPlaced, OrderStatusPaid, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// OrderItem is an immutable line of an order with the catalog data
// snapshotted at purchase time.
type OrderItem struct {
	ProductID       uuid.UUID       `json:"product_id"`
	NameSnapshot    string          `json:"name"`
	ImageSnapshot   string          `json:"image"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
	SellerID        uuid.UUID       `json:"seller_id"`
}

// LineTotal is price times quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.PriceAtPurchase.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// StatusEntry is one element of the append-only status history.
type StatusEntry struct {
	Status    OrderStatus `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	ActorID   uuid.UUID   `json:"actor_id"`
	Note      string      `json:"note,omitempty"`
}

// ShippingAddress is where the order is delivered.
type ShippingAddress struct {
	FullName   string `json:"full_name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone"`
}

// Order is the aggregate created at checkout. Items and totals never change
// after creation; the lifecycle only appends to StatusHistory.
type Order struct {
	ID                uuid.UUID       `json:"id"`
	UserID            uuid.UUID       `json:"user_id"`
	Items             []OrderItem     `json:"items"`
	ShippingAddress   ShippingAddress `json:"shipping_address"`
	PaymentMethod     PaymentMethod   `json:"payment_method"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	ShippingFee       decimal.Decimal `json:"shipping_fee"`
	Tax               decimal.Decimal `json:"tax"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	Status            OrderStatus     `json:"status"`
	StatusHistory     []StatusEntry   `json:"status_history"`
	PaymentStatus     PaymentStatus   `json:"payment_status"`
	TrackingNumber    string          `json:"tracking_number"`
	EstimatedDelivery time.Time       `json:"estimated_delivery"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// NewOrderParams carries everything needed to build a placed order.
type NewOrderParams struct {
	UserID          uuid.UUID
	Items           []OrderItem
	ShippingAddress ShippingAddress
	PaymentMethod   PaymentMethod
	DeliveryWindow  time.Duration
	Now             time.Time
}

// NewOrder prices the items once and returns an order in PLACED state with
// a single history entry.
func NewOrder(p NewOrderParams) *Order {
	totals := PriceOrder(p.Items)
	o := &Order{
		ID:                uuid.New(),
		UserID:            p.UserID,
		Items:             p.Items,
		ShippingAddress:   p.ShippingAddress,
		PaymentMethod:     p.PaymentMethod,
		Subtotal:          totals.Subtotal,
		ShippingFee:       totals.ShippingFee,
		Tax:               totals.Tax,
		TotalAmount:       totals.Total,
		PaymentStatus:     PaymentStatusPending,
		TrackingNumber:    NewTrackingNumber(),
		EstimatedDelivery: p.Now.Add(p.DeliveryWindow),
		CreatedAt:         p.Now,
	}
	o.appendStatus(StatusEntry{
		Status:    OrderStatusPlaced,
		Timestamp: p.Now,
		ActorID:   p.UserID,
		Note:      "Order placed by customer",
	})
	return o
}

// AppendStatus validates and applies a lifecycle transition.
func (o *Order) AppendStatus(e StatusEntry) error {
	if !o.Status.CanTransitionTo(e.Status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, e.Status)
	}
	o.appendStatus(e)
	return nil
}

// appendStatus is the only place that writes Status and StatusHistory, so
// Status always equals the last history entry. Timestamps never go backwards.
func (o *Order) appendStatus(e StatusEntry) {
	if n := len(o.StatusHistory); n > 0 {
		if last := o.StatusHistory[n-1].Timestamp; e.Timestamp.Before(last) {
			e.Timestamp = last
		}
	}
	o.StatusHistory = append(o.StatusHistory, e)
	o.Status = e.Status
	o.UpdatedAt = e.Timestamp
	if e.Status == OrderStatusPaid {
		o.PaymentStatus = PaymentStatusPaid
	}
}

// SellerIDs returns the distinct sellers referenced by the items, in first
// appearance order.
func (o *Order) SellerIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(o.Items))
	out := make([]uuid.UUID, 0, len(o.Items))
	for _, it := range o.Items {
		if _, ok := seen[it.SellerID]; ok {
			continue
		}
		seen[it.SellerID] = struct{}{}
		out = append(out, it.SellerID)
	}
	return out
}
