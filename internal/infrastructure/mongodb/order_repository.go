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

const orderCollection = "orders"

// OrderRepository implements domain.OrderRepository for MongoDB
type OrderRepository struct {
	collection *mongo.Collection
}

// NewOrderRepository creates a new MongoDB order repository
func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{collection: db.Collection(orderCollection)}
}

// Save upserts the order by its business identifier
func (r *OrderRepository) Save(ctx context.Context, order *domain.Order) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"orderId": order.OrderID}, order, opts)
	if err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	return nil
}

// FindByID retrieves an order by its business identifier
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (*domain.Order, error) {
	var order domain.Order
	err := r.collection.FindOne(ctx, bson.M{"orderId": orderID}).Decode(&order)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find order: %w", err)
	}
	return &order, nil
}

// FindByIDs retrieves the orders matching any of the given identifiers
func (r *OrderRepository) FindByIDs(ctx context.Context, orderIDs []string) ([]*domain.Order, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}

	cursor, err := r.collection.Find(ctx, bson.M{"orderId": bson.M{"$in": orderIDs}})
	if err != nil {
		return nil, fmt.Errorf("failed to find orders: %w", err)
	}
	defer cursor.Close(ctx)

	var orders []*domain.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}
	return orders, nil
}

// UpdateAssignedPicker repoints the order at the staff member now holding
// its open pick work
func (r *OrderRepository) UpdateAssignedPicker(ctx context.Context, orderID, staffID string) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"orderId": orderID},
		bson.M{"$set": bson.M{
			"assignedPickerId": staffID,
			"updatedAt":        time.Now(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to update assigned picker: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("order not found: %s", orderID)
	}
	return nil
}
