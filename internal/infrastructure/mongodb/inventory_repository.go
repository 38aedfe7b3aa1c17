package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/fulfillment-service/internal/domain"
)

const inventoryCollection = "inventory"

// InventoryRepository implements domain.InventoryRepository for MongoDB.
// Reservations are conditional single-document updates; the availability
// check and the counter increment happen in one atomic write, so the
// invariant quantityReserved <= quantityOnHand cannot be broken by
// concurrent reservations.
type InventoryRepository struct {
	collection *mongo.Collection
}

// NewInventoryRepository creates a new MongoDB inventory repository
func NewInventoryRepository(db *mongo.Database) *InventoryRepository {
	return &InventoryRepository{collection: db.Collection(inventoryCollection)}
}

// FindBySKUAndLocation retrieves the inventory record for a (sku, location) pair
func (r *InventoryRepository) FindBySKUAndLocation(ctx context.Context, sku, locationID string) (*domain.InventoryRecord, error) {
	var record domain.InventoryRecord
	err := r.collection.FindOne(ctx, bson.M{"sku": sku, "locationId": locationID}).Decode(&record)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find inventory record: %w", err)
	}
	return &record, nil
}

// ReserveIfAvailable increments the reservation only when enough unreserved
// stock exists. Returns false without error when availability is short.
func (r *InventoryRepository) ReserveIfAvailable(ctx context.Context, sku, locationID string, quantity int) (bool, error) {
	if quantity <= 0 {
		return false, domain.ErrInvalidQuantity
	}

	filter := bson.M{
		"sku":        sku,
		"locationId": locationID,
		"$expr": bson.M{
			"$lte": bson.A{
				bson.M{"$add": bson.A{"$quantityReserved", quantity}},
				"$quantityOnHand",
			},
		},
	}
	update := bson.M{
		"$inc": bson.M{"quantityReserved": quantity},
		"$set": bson.M{"updatedAt": time.Now()},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to reserve stock: %w", err)
	}
	return result.ModifiedCount == 1, nil
}

// Receive adds received stock to the on-hand counter, creating the record
// for a first-seen (sku, location) pair
func (r *InventoryRepository) Receive(ctx context.Context, sku, locationID string, quantity int) (*domain.InventoryRecord, error) {
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	now := time.Now()
	filter := bson.M{"sku": sku, "locationId": locationID}
	update := bson.M{
		"$inc": bson.M{"quantityOnHand": quantity},
		"$set": bson.M{"updatedAt": now},
		"$setOnInsert": bson.M{
			"sku":              sku,
			"locationId":       locationID,
			"quantityReserved": 0,
			"createdAt":        now,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var record domain.InventoryRecord
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&record); err != nil {
		return nil, fmt.Errorf("failed to receive stock: %w", err)
	}
	return &record, nil
}

// Release returns reserved stock to the available pool. The conditional
// filter rejects a release that exceeds the current reservation.
func (r *InventoryRepository) Release(ctx context.Context, sku, locationID string, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	filter := bson.M{
		"sku":              sku,
		"locationId":       locationID,
		"quantityReserved": bson.M{"$gte": quantity},
	}
	update := bson.M{
		"$inc": bson.M{"quantityReserved": -quantity},
		"$set": bson.M{"updatedAt": time.Now()},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to release stock: %w", err)
	}
	if result.ModifiedCount == 0 {
		return domain.ErrOverRelease
	}
	return nil
}
