package outbox

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/fulfillment-service/pkg/kafka"
	"github.com/wms-platform/fulfillment-service/pkg/logging"
)

type memoryRepo struct {
	mu     sync.Mutex
	events map[string]*OutboxEvent
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{events: make(map[string]*OutboxEvent)}
}

func (r *memoryRepo) Save(_ context.Context, event *OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[event.ID] = event
	return nil
}

func (r *memoryRepo) SaveAll(ctx context.Context, events []*OutboxEvent) error {
	for _, event := range events {
		if err := r.Save(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func (r *memoryRepo) FindUnpublished(_ context.Context, limit int) ([]*OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*OutboxEvent
	for _, event := range r.events {
		if event.ShouldRetry() {
			out = append(out, event)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *memoryRepo) MarkPublished(_ context.Context, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[eventID]
	if !ok {
		return errors.New("not found")
	}
	now := time.Now()
	event.PublishedAt = &now
	return nil
}

func (r *memoryRepo) IncrementRetry(_ context.Context, eventID string, errorMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[eventID]
	if !ok {
		return errors.New("not found")
	}
	event.RetryCount++
	event.LastError = errorMsg
	return nil
}

func (r *memoryRepo) FindByAggregateID(_ context.Context, aggregateID string) ([]*OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*OutboxEvent
	for _, event := range r.events {
		if event.AggregateID == aggregateID {
			out = append(out, event)
		}
	}
	return out, nil
}

type capturingProducer struct {
	mu       sync.Mutex
	messages []*kafka.EventMessage
	topics   []string
	err      error
}

func (p *capturingProducer) PublishEvent(_ context.Context, topic string, msg *kafka.EventMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, msg)
	p.topics = append(p.topics, topic)
	return nil
}

func (p *capturingProducer) published() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.messages)
}

type stockEvent struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

func (e *stockEvent) EventType() string     { return "wms.fulfillment.stock-received" }
func (e *stockEvent) OccurredAt() time.Time { return time.Now() }

func testPublisherLogger() *logging.Logger {
	config := logging.DefaultConfig("outbox-test")
	config.Level = logging.LevelError
	config.Output = io.Discard
	return logging.New(config)
}

func TestPublisherDrainsStagedEvents(t *testing.T) {
	repo := newMemoryRepo()
	producer := &capturingProducer{}

	event, err := NewOutboxEvent("SKU-A", "InventoryRecord", "wms.fulfillment.inventory", &stockEvent{SKU: "SKU-A", Quantity: 5})
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), event))

	publisher := NewPublisher(repo, producer, testPublisherLogger(), nil, &PublisherConfig{
		PollInterval: 10 * time.Millisecond,
		BatchSize:    10,
	})
	require.NoError(t, publisher.Start(context.Background()))
	defer publisher.Stop()

	require.Eventually(t, func() bool {
		return producer.published() == 1
	}, 2*time.Second, 10*time.Millisecond)

	producer.mu.Lock()
	defer producer.mu.Unlock()
	assert.Equal(t, "wms.fulfillment.inventory", producer.topics[0])
	assert.Equal(t, event.ID, producer.messages[0].EventID)
	assert.Equal(t, "SKU-A", producer.messages[0].Subject)

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.True(t, repo.events[event.ID].IsPublished())
}

func TestPublisherRetriesFailedEvents(t *testing.T) {
	repo := newMemoryRepo()
	producer := &capturingProducer{err: errors.New("broker unavailable")}

	event, err := NewOutboxEvent("SKU-B", "InventoryRecord", "wms.fulfillment.inventory", &stockEvent{SKU: "SKU-B", Quantity: 2})
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), event))

	publisher := NewPublisher(repo, producer, testPublisherLogger(), nil, &PublisherConfig{
		PollInterval: 10 * time.Millisecond,
		BatchSize:    10,
	})
	require.NoError(t, publisher.Start(context.Background()))

	require.Eventually(t, func() bool {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		return repo.events[event.ID].RetryCount > 0
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, publisher.Stop())

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.False(t, repo.events[event.ID].IsPublished())
	assert.Contains(t, repo.events[event.ID].LastError, "broker unavailable")
}

func TestPublisherStopsDeadLetteredEvents(t *testing.T) {
	repo := newMemoryRepo()
	event, err := NewOutboxEvent("SKU-C", "InventoryRecord", "wms.fulfillment.inventory", &stockEvent{SKU: "SKU-C", Quantity: 1})
	require.NoError(t, err)
	event.RetryCount = event.MaxRetries
	require.NoError(t, repo.Save(context.Background(), event))

	unpublished, err := repo.FindUnpublished(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, unpublished, "events out of retries must not be picked up again")
	assert.False(t, event.ShouldRetry())
}

func TestPublisherStartTwiceFails(t *testing.T) {
	publisher := NewPublisher(newMemoryRepo(), &capturingProducer{}, testPublisherLogger(), nil, nil)
	require.NoError(t, publisher.Start(context.Background()))
	defer publisher.Stop()

	assert.Error(t, publisher.Start(context.Background()))
	assert.True(t, publisher.IsRunning())
}
