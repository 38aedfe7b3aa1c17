package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/fulfillment-service/internal/domain"
)

const auditLogCollection = "audit_log"

// AuditLogRepository implements domain.AuditLogRepository for MongoDB.
// The collection is append-only; nothing updates or deletes audit records.
type AuditLogRepository struct {
	collection *mongo.Collection
}

// NewAuditLogRepository creates a new MongoDB audit log repository
func NewAuditLogRepository(db *mongo.Database) *AuditLogRepository {
	return &AuditLogRepository{collection: db.Collection(auditLogCollection)}
}

// Append inserts an audit record
func (r *AuditLogRepository) Append(ctx context.Context, event *domain.AuditEvent) error {
	if _, err := r.collection.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("failed to append audit event: %w", err)
	}
	return nil
}

// FindBySubjectID retrieves the audit trail for a subject in chronological order
func (r *AuditLogRepository) FindBySubjectID(ctx context.Context, subjectID string) ([]*domain.AuditEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"subjectId": subjectID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find audit events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []*domain.AuditEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode audit events: %w", err)
	}
	return events, nil
}
