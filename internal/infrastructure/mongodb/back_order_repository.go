package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/fulfillment-service/internal/domain"
)

const backOrderCollection = "back_orders"

// BackOrderRepository implements domain.BackOrderRepository for MongoDB
type BackOrderRepository struct {
	collection *mongo.Collection
	client     *mongo.Client
	stager     *OutboxStager
}

// NewBackOrderRepository creates a new MongoDB back order repository
func NewBackOrderRepository(db *mongo.Database, stager *OutboxStager) *BackOrderRepository {
	return &BackOrderRepository{
		collection: db.Collection(backOrderCollection),
		client:     db.Client(),
		stager:     stager,
	}
}

// Save upserts the back order by its business identifier and stages its
// domain events in the outbox within the same transaction
func (r *BackOrderRepository) Save(ctx context.Context, backOrder *domain.BackOrder) error {
	return runWrite(ctx, r.client, func(txCtx context.Context) error {
		opts := options.Replace().SetUpsert(true)
		_, err := r.collection.ReplaceOne(txCtx,
			bson.M{"backOrderId": backOrder.BackOrderID},
			backOrder,
			opts,
		)
		if err != nil {
			return fmt.Errorf("failed to save back order: %w", err)
		}

		if err := r.stager.StageAll(txCtx, backOrder.BackOrderID, "BackOrder", backOrder.GetDomainEvents()); err != nil {
			return fmt.Errorf("failed to stage back order events: %w", err)
		}
		backOrder.ClearDomainEvents()
		return nil
	})
}

// FindByID retrieves a back order by its business identifier
func (r *BackOrderRepository) FindByID(ctx context.Context, backOrderID string) (*domain.BackOrder, error) {
	var backOrder domain.BackOrder
	err := r.collection.FindOne(ctx, bson.M{"backOrderId": backOrderID}).Decode(&backOrder)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find back order: %w", err)
	}
	return &backOrder, nil
}

// FindByOrderID retrieves all back orders raised for an order
func (r *BackOrderRepository) FindByOrderID(ctx context.Context, orderID string) ([]*domain.BackOrder, error) {
	return r.find(ctx, bson.M{"orderId": orderID})
}

// FindByStatus retrieves all back orders in the given status
func (r *BackOrderRepository) FindByStatus(ctx context.Context, status domain.BackOrderStatus) ([]*domain.BackOrder, error) {
	return r.find(ctx, bson.M{"status": status})
}

// FindPendingBySKU retrieves pending back orders for a SKU oldest first.
// The ordering is the FIFO claim on newly received stock.
func (r *BackOrderRepository) FindPendingBySKU(ctx context.Context, sku string) ([]*domain.BackOrder, error) {
	return r.find(ctx, bson.M{"sku": sku, "status": domain.BackOrderStatusPending})
}

func (r *BackOrderRepository) find(ctx context.Context, filter bson.M) ([]*domain.BackOrder, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find back orders: %w", err)
	}
	defer cursor.Close(ctx)

	var backOrders []*domain.BackOrder
	if err := cursor.All(ctx, &backOrders); err != nil {
		return nil, fmt.Errorf("failed to decode back orders: %w", err)
	}
	return backOrders, nil
}
