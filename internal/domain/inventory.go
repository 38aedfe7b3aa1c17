package domain

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrOverRelease     = errors.New("release exceeds reserved quantity")
)

// InventoryRecord tracks on-hand and reserved stock for one (sku, location)
// pair. The invariant 0 <= quantityReserved <= quantityOnHand holds at all
// times; concurrent writers are serialized by the store, which must perform
// the availability check and the reservation increment in one atomic write.
type InventoryRecord struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	SKU              string             `bson:"sku"`
	LocationID       string             `bson:"locationId"`
	QuantityOnHand   int                `bson:"quantityOnHand"`
	QuantityReserved int                `bson:"quantityReserved"`
	CreatedAt        time.Time          `bson:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt"`
}

// NewInventoryRecord creates an inventory record for a (sku, location) pair
func NewInventoryRecord(sku, locationID string) *InventoryRecord {
	now := time.Now()
	return &InventoryRecord{
		SKU:        sku,
		LocationID: locationID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Available is the quantity not yet claimed by a reservation
func (r *InventoryRecord) Available() int {
	return r.QuantityOnHand - r.QuantityReserved
}

// Receive adds received stock to the on-hand counter
func (r *InventoryRecord) Receive(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	r.QuantityOnHand += quantity
	r.UpdatedAt = time.Now()
	return nil
}

// Reserve claims available stock for an allocation
func (r *InventoryRecord) Reserve(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if r.Available() < quantity {
		return ErrInsufficientStock
	}
	r.QuantityReserved += quantity
	r.UpdatedAt = time.Now()
	return nil
}

// Release returns reserved stock to the available pool
func (r *InventoryRecord) Release(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if quantity > r.QuantityReserved {
		return ErrOverRelease
	}
	r.QuantityReserved -= quantity
	r.UpdatedAt = time.Now()
	return nil
}
