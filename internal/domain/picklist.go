package domain

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Errors
var (
	ErrNothingToReassign = errors.New("pick list has no open work to reassign")
	ErrListTerminal      = errors.New("pick list is in a terminal state")
	ErrItemTerminal      = errors.New("pick item is terminal and frozen")
	ErrInvalidStrategy   = errors.New("unknown reassignment strategy")
)

// PickListStatus represents the status of a pick list
type PickListStatus string

const (
	PickListStatusPending            PickListStatus = "pending"
	PickListStatusAssigned           PickListStatus = "assigned"
	PickListStatusInProgress         PickListStatus = "in_progress"
	PickListStatusPaused             PickListStatus = "paused"
	PickListStatusPartiallyCompleted PickListStatus = "partially_completed"
	PickListStatusCompleted          PickListStatus = "completed"
	PickListStatusCancelled          PickListStatus = "cancelled"
)

// IsTerminal reports whether the status ends the lifecycle of a list instance.
// A split spawns a continuation list rather than reopening a terminal one.
func (s PickListStatus) IsTerminal() bool {
	return s == PickListStatusPartiallyCompleted ||
		s == PickListStatusCompleted ||
		s == PickListStatusCancelled
}

// PickItemStatus represents the status of a single pick item
type PickItemStatus string

const (
	PickItemStatusPending   PickItemStatus = "pending"
	PickItemStatusPicked    PickItemStatus = "picked"
	PickItemStatusShortPick PickItemStatus = "short_pick"
	PickItemStatusSkipped   PickItemStatus = "skipped"
)

// ReassignStrategy selects how open work is handed to another picker
type ReassignStrategy string

const (
	ReassignStrategySplit   ReassignStrategy = "SPLIT"
	ReassignStrategyInPlace ReassignStrategy = "IN_PLACE"
)

// ParseReassignStrategy validates a strategy string
func ParseReassignStrategy(s string) (ReassignStrategy, error) {
	switch ReassignStrategy(s) {
	case ReassignStrategySplit, ReassignStrategyInPlace:
		return ReassignStrategy(s), nil
	}
	return "", ErrInvalidStrategy
}

// PickListItem is a single location/SKU pick task owned by exactly one list
type PickListItem struct {
	ItemID         string         `bson:"itemId"`
	OrderID        string         `bson:"orderId"`
	SKU            string         `bson:"sku"`
	LocationID     string         `bson:"locationId"`
	QuantityToPick int            `bson:"quantityToPick"`
	QuantityPicked int            `bson:"quantityPicked"`
	Status         PickItemStatus `bson:"status"`
	Sequence       int            `bson:"sequence"`
}

// IsTerminal reports whether the item is frozen. Picked and skipped items
// never change again; their quantityToPick must not be rewritten.
func (i *PickListItem) IsTerminal() bool {
	return i.Status == PickItemStatusPicked || i.Status == PickItemStatusSkipped
}

// Outstanding is the quantity still to be picked for this item
func (i *PickListItem) Outstanding() int {
	if i.IsTerminal() {
		return 0
	}
	if i.QuantityPicked >= i.QuantityToPick {
		return 0
	}
	return i.QuantityToPick - i.QuantityPicked
}

// IsPartial reports an item somebody started but did not finish
func (i *PickListItem) IsPartial() bool {
	return !i.IsTerminal() && i.QuantityPicked > 0 && i.QuantityPicked < i.QuantityToPick
}

// IsUntouched reports an open item with no picks recorded
func (i *PickListItem) IsUntouched() bool {
	return !i.IsTerminal() && i.QuantityPicked == 0
}

// PickList is the aggregate root for the pick list bounded context.
// Continuation lists reference their origin through ParentListID, forming an
// id-linked chain that is traversed by repository lookup, never by pointer.
type PickList struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	ListID          string             `bson:"listId"`
	BatchNumber     string             `bson:"batchNumber"`
	AssignedStaffID string             `bson:"assignedStaffId,omitempty"`
	Status          PickListStatus     `bson:"status"`
	Priority        int                `bson:"priority"`
	ParentListID    string             `bson:"parentListId,omitempty"`
	Version         int64              `bson:"version"`
	Items           []PickListItem     `bson:"items"`
	StartTime       *time.Time         `bson:"startTime,omitempty"`
	EndTime         *time.Time         `bson:"endTime,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt"`
	DomainEvents    []DomainEvent      `bson:"-"`
}

// NewPickList creates a pick list aggregate
func NewPickList(listID, batchNumber, staffID string, priority int, items []PickListItem) (*PickList, error) {
	if len(items) == 0 {
		return nil, errors.New("pick list must have at least one item")
	}
	for i := range items {
		if items[i].QuantityToPick <= 0 {
			return nil, fmt.Errorf("item %s has non-positive quantity", items[i].ItemID)
		}
		if items[i].Status == "" {
			items[i].Status = PickItemStatusPending
		}
		items[i].Sequence = i + 1
	}

	now := time.Now()
	status := PickListStatusPending
	if staffID != "" {
		status = PickListStatusAssigned
	}

	return &PickList{
		ListID:          listID,
		BatchNumber:     batchNumber,
		AssignedStaffID: staffID,
		Status:          status,
		Priority:        priority,
		Items:           items,
		CreatedAt:       now,
		UpdatedAt:       now,
		DomainEvents:    make([]DomainEvent, 0),
	}, nil
}

// HasOpenWork reports whether at least one non-terminal item exists
func (l *PickList) HasOpenWork() bool {
	for i := range l.Items {
		if !l.Items[i].IsTerminal() {
			return true
		}
	}
	return false
}

// OutstandingQuantity is the total quantity still to be picked across items
func (l *PickList) OutstandingQuantity() int {
	total := 0
	for i := range l.Items {
		total += l.Items[i].Outstanding()
	}
	return total
}

// CountPartialItems counts items somebody started but did not finish
func (l *PickList) CountPartialItems() int {
	n := 0
	for i := range l.Items {
		if l.Items[i].IsPartial() {
			n++
		}
	}
	return n
}

// CountUntouchedItems counts open items with no picks recorded
func (l *PickList) CountUntouchedItems() int {
	n := 0
	for i := range l.Items {
		if l.Items[i].IsUntouched() {
			n++
		}
	}
	return n
}

// OpenOrderIDs returns the distinct order ids that still have open work on this list
func (l *PickList) OpenOrderIDs() []string {
	seen := make(map[string]bool)
	ids := make([]string, 0)
	for i := range l.Items {
		if l.Items[i].IsTerminal() {
			continue
		}
		if !seen[l.Items[i].OrderID] {
			seen[l.Items[i].OrderID] = true
			ids = append(ids, l.Items[i].OrderID)
		}
	}
	return ids
}

// SplitSummary describes the outcome of a reassignment
type SplitSummary struct {
	PartialItemsClosed int
	ItemsMoved         int
	ItemsCreated       int
	OutstandingMoved   int
	AffectedOrderIDs   []string
}

// SplitRemainder closes the original list and moves all open work to a new
// continuation list assigned to newStaffID.
//
// Partial items are truncated at their current picked count and marked
// picked; their shortfall becomes a fresh pending item on the continuation.
// Untouched items move wholesale. The original becomes partially completed
// with its end time set. Total outstanding quantity over both lists equals
// the outstanding quantity of the original before the split.
func (l *PickList) SplitRemainder(newStaffID, continuationListID, batchNumber string, newItemID func() string) (*PickList, *SplitSummary, error) {
	if l.Status.IsTerminal() {
		return nil, nil, ErrListTerminal
	}
	if !l.HasOpenWork() {
		return nil, nil, ErrNothingToReassign
	}

	now := time.Now()
	summary := &SplitSummary{}
	kept := make([]PickListItem, 0, len(l.Items))
	moved := make([]PickListItem, 0)

	for _, item := range l.Items {
		switch {
		case item.IsTerminal():
			kept = append(kept, item)

		case item.QuantityPicked > 0:
			shortfall := item.QuantityToPick - item.QuantityPicked
			item.QuantityToPick = item.QuantityPicked
			item.Status = PickItemStatusPicked
			kept = append(kept, item)

			if shortfall <= 0 {
				continue
			}
			moved = append(moved, PickListItem{
				ItemID:         newItemID(),
				OrderID:        item.OrderID,
				SKU:            item.SKU,
				LocationID:     item.LocationID,
				QuantityToPick: shortfall,
				QuantityPicked: 0,
				Status:         PickItemStatusPending,
			})
			summary.PartialItemsClosed++
			summary.ItemsCreated++
			summary.OutstandingMoved += shortfall

		default:
			moved = append(moved, item)
			summary.ItemsMoved++
			summary.OutstandingMoved += item.Outstanding()
		}
	}

	for i := range moved {
		moved[i].Sequence = i + 1
	}

	continuation := &PickList{
		ListID:          continuationListID,
		BatchNumber:     batchNumber,
		AssignedStaffID: newStaffID,
		Status:          PickListStatusAssigned,
		Priority:        l.Priority + 1,
		ParentListID:    l.ListID,
		Items:           moved,
		CreatedAt:       now,
		UpdatedAt:       now,
		DomainEvents:    make([]DomainEvent, 0),
	}
	summary.AffectedOrderIDs = continuation.OpenOrderIDs()

	l.Items = kept
	l.Status = PickListStatusPartiallyCompleted
	l.EndTime = &now
	l.UpdatedAt = now

	l.AddDomainEvent(&PickListSplitEvent{
		ListID:             l.ListID,
		ContinuationListID: continuationListID,
		NewStaffID:         newStaffID,
		ItemsMoved:         summary.ItemsMoved + summary.ItemsCreated,
		OutstandingMoved:   summary.OutstandingMoved,
		SplitAt:            now,
	})

	return continuation, summary, nil
}

// ReassignInPlace hands the whole list to newStaffID without spawning a new
// batch. Partial items are closed at their picked count and a pending sibling
// item carries the shortfall in the same list. Outstanding quantity over the
// list is unchanged.
func (l *PickList) ReassignInPlace(newStaffID string, newItemID func() string) (*SplitSummary, error) {
	if l.Status.IsTerminal() {
		return nil, ErrListTerminal
	}
	if !l.HasOpenWork() {
		return nil, ErrNothingToReassign
	}

	now := time.Now()
	summary := &SplitSummary{AffectedOrderIDs: l.OpenOrderIDs()}
	siblings := make([]PickListItem, 0)

	for i := range l.Items {
		item := &l.Items[i]
		if item.IsTerminal() || item.QuantityPicked == 0 {
			continue
		}
		shortfall := item.QuantityToPick - item.QuantityPicked
		item.QuantityToPick = item.QuantityPicked
		item.Status = PickItemStatusPicked
		if shortfall <= 0 {
			continue
		}

		siblings = append(siblings, PickListItem{
			ItemID:         newItemID(),
			OrderID:        item.OrderID,
			SKU:            item.SKU,
			LocationID:     item.LocationID,
			QuantityToPick: shortfall,
			QuantityPicked: 0,
			Status:         PickItemStatusPending,
		})
		summary.PartialItemsClosed++
		summary.ItemsCreated++
		summary.OutstandingMoved += shortfall
	}

	seq := len(l.Items)
	for i := range siblings {
		seq++
		siblings[i].Sequence = seq
	}
	l.Items = append(l.Items, siblings...)

	oldStaff := l.AssignedStaffID
	l.AssignedStaffID = newStaffID
	l.Status = PickListStatusAssigned
	for i := range l.Items {
		if l.Items[i].IsTerminal() {
			l.Status = PickListStatusInProgress
			break
		}
	}
	l.UpdatedAt = now

	l.AddDomainEvent(&PickListReassignedEvent{
		ListID:       l.ListID,
		OldStaffID:   oldStaff,
		NewStaffID:   newStaffID,
		Strategy:     string(ReassignStrategyInPlace),
		ReassignedAt: now,
	})

	return summary, nil
}

// Pause parks an incomplete list for later manual handling
func (l *PickList) Pause() error {
	if l.Status.IsTerminal() {
		return ErrListTerminal
	}
	l.Status = PickListStatusPaused
	l.UpdatedAt = time.Now()
	return nil
}

// AddDomainEvent adds a domain event
func (l *PickList) AddDomainEvent(event DomainEvent) {
	l.DomainEvents = append(l.DomainEvents, event)
}

// ClearDomainEvents clears all domain events
func (l *PickList) ClearDomainEvents() {
	l.DomainEvents = make([]DomainEvent, 0)
}

// GetDomainEvents returns all domain events
func (l *PickList) GetDomainEvents() []DomainEvent {
	return l.DomainEvents
}
