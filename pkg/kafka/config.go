package kafka

import (
	"strings"
	"time"
)

// Config holds Kafka configuration
type Config struct {
	Brokers  []string
	ClientID string

	// Producer settings
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int // 0: no ack, 1: leader ack, -1: all replicas ack
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Brokers:  []string{"localhost:9092"},
		ClientID: "fulfillment-service",

		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: -1, // All replicas
	}
}

// Topics contains the fulfillment Kafka topic names
var Topics = struct {
	PickListEvents  string
	BackOrderEvents string
	InventoryEvents string
	PackingEvents   string
}{
	PickListEvents:  "wms.fulfillment.picklists",
	BackOrderEvents: "wms.fulfillment.backorders",
	InventoryEvents: "wms.fulfillment.inventory",
	PackingEvents:   "wms.fulfillment.packing",
}

// TopicForEventType routes a domain event type to its topic.
// Unknown types fall back to the pick list topic.
func TopicForEventType(eventType string) string {
	switch {
	case strings.HasPrefix(eventType, "wms.fulfillment.backorder"):
		return Topics.BackOrderEvents
	case strings.HasPrefix(eventType, "wms.fulfillment.stock"):
		return Topics.InventoryEvents
	case strings.HasPrefix(eventType, "wms.fulfillment.packing"):
		return Topics.PackingEvents
	default:
		return Topics.PickListEvents
	}
}
