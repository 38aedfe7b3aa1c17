package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Audit event types
const (
	AuditEventPickListReassigned = "picklist.reassigned"
	AuditEventPickListPaused     = "picklist.paused"
	AuditEventShiftEnded         = "staff.shift-ended"
	AuditEventBackOrderAllocated = "backorder.allocated"
	AuditEventStockReceived      = "inventory.received"
)

// AuditEvent is an append-only record of a state transition. Audit events
// are never updated or deleted; writes are best effort and must not fail
// the primary operation.
type AuditEvent struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	AuditID   string             `bson:"auditId"`
	SubjectID string             `bson:"subjectId"`
	EventType string             `bson:"eventType"`
	ActorID   string             `bson:"actorId"`
	Timestamp time.Time          `bson:"timestamp"`
	Payload   map[string]any     `bson:"payload,omitempty"`
	Notes     string             `bson:"notes,omitempty"`
}

// NewAuditEvent creates an audit record for a state transition
func NewAuditEvent(auditID, subjectID, eventType, actorID string, payload map[string]any) *AuditEvent {
	return &AuditEvent{
		AuditID:   auditID,
		SubjectID: subjectID,
		EventType: eventType,
		ActorID:   actorID,
		Timestamp: time.Now(),
		Payload:   payload,
	}
}
