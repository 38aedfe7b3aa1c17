package domain

import "time"

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// PickListSplitEvent is published when open work moves to a continuation list
type PickListSplitEvent struct {
	ListID             string    `json:"listId"`
	ContinuationListID string    `json:"continuationListId"`
	NewStaffID         string    `json:"newStaffId"`
	ItemsMoved         int       `json:"itemsMoved"`
	OutstandingMoved   int       `json:"outstandingMoved"`
	SplitAt            time.Time `json:"splitAt"`
}

func (e *PickListSplitEvent) EventType() string     { return "wms.fulfillment.picklist-split" }
func (e *PickListSplitEvent) OccurredAt() time.Time { return e.SplitAt }

// PickListReassignedEvent is published when a list changes hands in place
type PickListReassignedEvent struct {
	ListID       string    `json:"listId"`
	OldStaffID   string    `json:"oldStaffId"`
	NewStaffID   string    `json:"newStaffId"`
	Strategy     string    `json:"strategy"`
	ReassignedAt time.Time `json:"reassignedAt"`
}

func (e *PickListReassignedEvent) EventType() string     { return "wms.fulfillment.picklist-reassigned" }
func (e *PickListReassignedEvent) OccurredAt() time.Time { return e.ReassignedAt }

// BackOrderAllocatedEvent is published when a back order is fully covered
// by reserved stock
type BackOrderAllocatedEvent struct {
	BackOrderID string    `json:"backOrderId"`
	OrderID     string    `json:"orderId"`
	SKU         string    `json:"sku"`
	LocationID  string    `json:"locationId"`
	Quantity    int       `json:"quantity"`
	AllocatedAt time.Time `json:"allocatedAt"`
}

func (e *BackOrderAllocatedEvent) EventType() string     { return "wms.fulfillment.backorder-allocated" }
func (e *BackOrderAllocatedEvent) OccurredAt() time.Time { return e.AllocatedAt }

// StockReceivedEvent is published when receiving adds on-hand stock
type StockReceivedEvent struct {
	SKU        string    `json:"sku"`
	LocationID string    `json:"locationId"`
	Quantity   int       `json:"quantity"`
	ReceivedAt time.Time `json:"receivedAt"`
}

func (e *StockReceivedEvent) EventType() string     { return "wms.fulfillment.stock-received" }
func (e *StockReceivedEvent) OccurredAt() time.Time { return e.ReceivedAt }
