package domain

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrInvalidTransition = errors.New("invalid order status transition")

// OrderStatus represents the fulfillment status of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusAllocated OrderStatus = "allocated"
	OrderStatusPicking   OrderStatus = "picking"
	OrderStatusPicked    OrderStatus = "picked"
	OrderStatusPacked    OrderStatus = "packed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusFulfilled OrderStatus = "fulfilled"
	OrderStatusBackOrder OrderStatus = "backorder"
)

// orderTransitions is the forward edge set of the order status machine.
// The backorder branch can rejoin at allocated once stock arrives.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusAllocated, OrderStatusBackOrder},
	OrderStatusAllocated: {OrderStatusPicking, OrderStatusBackOrder},
	OrderStatusBackOrder: {OrderStatusAllocated, OrderStatusPicking},
	OrderStatusPicking:   {OrderStatusPicked},
	OrderStatusPicked:    {OrderStatusPacked},
	OrderStatusPacked:    {OrderStatusShipped},
	OrderStatusShipped:   {OrderStatusFulfilled},
}

// OrderLine is one product position on an order. Lines are immutable once
// created; the unit weight and volume feed packing suggestions.
type OrderLine struct {
	SKU           string  `bson:"sku"`
	Quantity      int     `bson:"quantity"`
	UnitPrice     float64 `bson:"unitPrice"`
	UnitWeightKg  float64 `bson:"unitWeightKg"`
	UnitVolumeCm3 float64 `bson:"unitVolumeCm3"`
}

// Order is mutated by the pick list manager and the allocation engine,
// never deleted.
type Order struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	OrderID          string             `bson:"orderId"`
	Status           OrderStatus        `bson:"status"`
	AssignedPickerID string             `bson:"assignedPickerId,omitempty"`
	Lines            []OrderLine        `bson:"lines"`
	CreatedAt        time.Time          `bson:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt"`
}

// NewOrder creates an order aggregate
func NewOrder(orderID string, lines []OrderLine) (*Order, error) {
	if len(lines) == 0 {
		return nil, errors.New("order must have at least one line")
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, errors.New("order line quantity must be positive")
		}
	}
	now := time.Now()
	return &Order{
		OrderID:   orderID,
		Status:    OrderStatusPending,
		Lines:     lines,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Line returns the order line for a SKU, or nil
func (o *Order) Line(sku string) *OrderLine {
	for i := range o.Lines {
		if o.Lines[i].SKU == sku {
			return &o.Lines[i]
		}
	}
	return nil
}

// AssignPicker points the order at the staff member now holding its work
func (o *Order) AssignPicker(staffID string) {
	o.AssignedPickerID = staffID
	o.UpdatedAt = time.Now()
}

// TransitionTo moves the order along the status machine
func (o *Order) TransitionTo(next OrderStatus) error {
	for _, allowed := range orderTransitions[o.Status] {
		if allowed == next {
			o.Status = next
			o.UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrInvalidTransition
}
