package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/fulfillment-service/internal/domain"
)

const pickListCollection = "pick_lists"

// PickListRepository implements domain.PickListRepository for MongoDB.
// Save guards on the aggregate version and stages domain events in the
// outbox within the same transaction as the document write.
type PickListRepository struct {
	collection *mongo.Collection
	client     *mongo.Client
	stager     *OutboxStager
}

// NewPickListRepository creates a new MongoDB pick list repository
func NewPickListRepository(db *mongo.Database, stager *OutboxStager) *PickListRepository {
	return &PickListRepository{
		collection: db.Collection(pickListCollection),
		client:     db.Client(),
		stager:     stager,
	}
}

// Save persists the pick list with an optimistic version guard. A new list
// (version 0) is inserted at version 1; an existing list is replaced only
// when the stored version still matches, otherwise ErrVersionConflict is
// returned and nothing is written.
func (r *PickListRepository) Save(ctx context.Context, list *domain.PickList) error {
	return runWrite(ctx, r.client, func(txCtx context.Context) error {
		expected := list.Version
		list.Version = expected + 1

		if expected == 0 {
			if _, err := r.collection.InsertOne(txCtx, list); err != nil {
				list.Version = expected
				if mongo.IsDuplicateKeyError(err) {
					return domain.ErrVersionConflict
				}
				return fmt.Errorf("failed to insert pick list: %w", err)
			}
		} else {
			result, err := r.collection.ReplaceOne(txCtx,
				bson.M{"listId": list.ListID, "version": expected},
				list,
			)
			if err != nil {
				list.Version = expected
				return fmt.Errorf("failed to update pick list: %w", err)
			}
			if result.MatchedCount == 0 {
				list.Version = expected
				return domain.ErrVersionConflict
			}
		}

		if err := r.stager.StageAll(txCtx, list.ListID, "PickList", list.GetDomainEvents()); err != nil {
			return fmt.Errorf("failed to stage pick list events: %w", err)
		}
		list.ClearDomainEvents()
		return nil
	})
}

// FindByID retrieves a pick list by its business identifier
func (r *PickListRepository) FindByID(ctx context.Context, listID string) (*domain.PickList, error) {
	var list domain.PickList
	err := r.collection.FindOne(ctx, bson.M{"listId": listID}).Decode(&list)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find pick list: %w", err)
	}
	return &list, nil
}

// FindByStaff retrieves the lists assigned to a staff member, optionally
// restricted to the given statuses
func (r *PickListRepository) FindByStaff(ctx context.Context, staffID string, statuses []domain.PickListStatus) ([]*domain.PickList, error) {
	filter := bson.M{"assignedStaffId": staffID}
	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statuses}
	}
	return r.find(ctx, filter)
}

// FindByStatuses retrieves all lists in any of the given statuses
func (r *PickListRepository) FindByStatuses(ctx context.Context, statuses []domain.PickListStatus) ([]*domain.PickList, error) {
	return r.find(ctx, bson.M{"status": bson.M{"$in": statuses}})
}

// FindByParentID retrieves the continuation lists spawned from a parent
func (r *PickListRepository) FindByParentID(ctx context.Context, parentListID string) ([]*domain.PickList, error) {
	return r.find(ctx, bson.M{"parentListId": parentListID})
}

func (r *PickListRepository) find(ctx context.Context, filter bson.M) ([]*domain.PickList, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "priority", Value: -1},
		{Key: "createdAt", Value: 1},
	})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find pick lists: %w", err)
	}
	defer cursor.Close(ctx)

	var lists []*domain.PickList
	if err := cursor.All(ctx, &lists); err != nil {
		return nil, fmt.Errorf("failed to decode pick lists: %w", err)
	}
	return lists, nil
}
