package domain

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrAlreadyProcessed  = errors.New("back order has already been processed")
	ErrInsufficientStock = errors.New("insufficient stock to fulfill back order")
)

// BackOrderStatus represents the status of a back order
type BackOrderStatus string

const (
	BackOrderStatusPending   BackOrderStatus = "pending"
	BackOrderStatusAllocated BackOrderStatus = "allocated"
	BackOrderStatusPicking   BackOrderStatus = "picking"
	BackOrderStatusPicked    BackOrderStatus = "picked"
	BackOrderStatusPacked    BackOrderStatus = "packed"
	BackOrderStatusFulfilled BackOrderStatus = "fulfilled"
)

// InProgress reports a back order whose stock is moving through the
// building: allocated stock has been picked up by the floor but not shipped.
func (s BackOrderStatus) InProgress() bool {
	return s == BackOrderStatusPicking || s == BackOrderStatusPicked || s == BackOrderStatusPacked
}

// BackOrder records the unfulfilled portion of an order line. Back orders are
// never deleted, only transitioned. For one SKU the oldest back order holds
// the first claim on newly available stock.
type BackOrder struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty"`
	BackOrderID        string             `bson:"backOrderId"`
	OrderID            string             `bson:"orderId"`
	SKU                string             `bson:"sku"`
	LocationID         string             `bson:"locationId"`
	QuantityBackOrdered int               `bson:"quantityBackOrdered"`
	QuantityFulfilled  int                `bson:"quantityFulfilled"`
	Status             BackOrderStatus    `bson:"status"`
	Reason             string             `bson:"reason,omitempty"`
	CreatedAt          time.Time          `bson:"createdAt"`
	UpdatedAt          time.Time          `bson:"updatedAt"`
	DomainEvents       []DomainEvent      `bson:"-"`
}

// NewBackOrder creates a back order for the shortfall of one order line
func NewBackOrder(backOrderID, orderID, sku, locationID string, quantity int, reason string) (*BackOrder, error) {
	if quantity <= 0 {
		return nil, errors.New("back order quantity must be positive")
	}
	now := time.Now()
	return &BackOrder{
		BackOrderID:         backOrderID,
		OrderID:             orderID,
		SKU:                 sku,
		LocationID:          locationID,
		QuantityBackOrdered: quantity,
		QuantityFulfilled:   0,
		Status:              BackOrderStatusPending,
		Reason:              reason,
		CreatedAt:           now,
		UpdatedAt:           now,
		DomainEvents:        make([]DomainEvent, 0),
	}, nil
}

// Outstanding is the quantity still owed to the order line
func (b *BackOrder) Outstanding() int {
	return b.QuantityBackOrdered - b.QuantityFulfilled
}

// Allocate fulfills the back order against the given available quantity.
// Fulfillment is all or nothing: either the full outstanding quantity is
// covered and the back order moves to allocated, or nothing changes and
// ErrInsufficientStock is returned. A back order that already left pending
// returns ErrAlreadyProcessed.
func (b *BackOrder) Allocate(available int) error {
	if b.Status != BackOrderStatusPending {
		return ErrAlreadyProcessed
	}

	needed := b.Outstanding()
	if available < needed {
		return ErrInsufficientStock
	}

	now := time.Now()
	b.QuantityFulfilled = b.QuantityBackOrdered
	b.Status = BackOrderStatusAllocated
	b.UpdatedAt = now

	b.AddDomainEvent(&BackOrderAllocatedEvent{
		BackOrderID: b.BackOrderID,
		OrderID:     b.OrderID,
		SKU:         b.SKU,
		LocationID:  b.LocationID,
		Quantity:    needed,
		AllocatedAt: now,
	})

	return nil
}

// AddDomainEvent adds a domain event
func (b *BackOrder) AddDomainEvent(event DomainEvent) {
	b.DomainEvents = append(b.DomainEvents, event)
}

// ClearDomainEvents clears all domain events
func (b *BackOrder) ClearDomainEvents() {
	b.DomainEvents = make([]DomainEvent, 0)
}

// GetDomainEvents returns all domain events
func (b *BackOrder) GetDomainEvents() []DomainEvent {
	return b.DomainEvents
}
