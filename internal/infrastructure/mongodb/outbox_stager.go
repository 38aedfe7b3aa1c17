package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/wms-platform/fulfillment-service/internal/domain"
	"github.com/wms-platform/fulfillment-service/pkg/kafka"
	"github.com/wms-platform/fulfillment-service/pkg/outbox"
	outboxMongo "github.com/wms-platform/fulfillment-service/pkg/outbox/mongodb"
)

// OutboxStager stages domain events in the outbox collection for
// post-commit delivery. Implements application.EventStager; the aggregate
// repositories use it to persist events in the same transaction as the
// aggregate write.
type OutboxStager struct {
	repo *outboxMongo.OutboxRepository
}

// NewOutboxStager creates an OutboxStager
func NewOutboxStager(db *mongo.Database) *OutboxStager {
	return &OutboxStager{repo: outboxMongo.NewOutboxRepository(db)}
}

// Stage converts a domain event into an outbox event and saves it. The
// topic is derived from the event type.
func (s *OutboxStager) Stage(ctx context.Context, aggregateID, aggregateType string, event domain.DomainEvent) error {
	outboxEvent, err := outbox.NewOutboxEvent(
		aggregateID,
		aggregateType,
		kafka.TopicForEventType(event.EventType()),
		event,
	)
	if err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return s.repo.Save(ctx, outboxEvent)
}

// StageAll stages a batch of domain events for one aggregate
func (s *OutboxStager) StageAll(ctx context.Context, aggregateID, aggregateType string, events []domain.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	outboxEvents := make([]*outbox.OutboxEvent, 0, len(events))
	for _, event := range events {
		outboxEvent, err := outbox.NewOutboxEvent(
			aggregateID,
			aggregateType,
			kafka.TopicForEventType(event.EventType()),
			event,
		)
		if err != nil {
			return fmt.Errorf("failed to create outbox event: %w", err)
		}
		outboxEvents = append(outboxEvents, outboxEvent)
	}
	return s.repo.SaveAll(ctx, outboxEvents)
}

// Repository exposes the underlying outbox repository for the publisher
func (s *OutboxStager) Repository() outbox.Repository {
	return s.repo
}

// EnsureIndexes creates the outbox indexes
func (s *OutboxStager) EnsureIndexes(ctx context.Context) error {
	return s.repo.EnsureIndexes(ctx)
}
