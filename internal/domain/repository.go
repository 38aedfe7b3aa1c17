package domain

import (
	"context"
	"errors"
)

// ErrVersionConflict is returned when an optimistic-concurrency save loses
// the race against another writer of the same pick list.
var ErrVersionConflict = errors.New("pick list was modified concurrently")

// PickListRepository defines the interface for pick list persistence.
// Save must guard on the aggregate version and return ErrVersionConflict
// when the stored version no longer matches.
type PickListRepository interface {
	Save(ctx context.Context, list *PickList) error
	FindByID(ctx context.Context, listID string) (*PickList, error)
	FindByStaff(ctx context.Context, staffID string, statuses []PickListStatus) ([]*PickList, error)
	FindByStatuses(ctx context.Context, statuses []PickListStatus) ([]*PickList, error)
	FindByParentID(ctx context.Context, parentListID string) ([]*PickList, error)
}

// BackOrderRepository defines the interface for back order persistence.
// FindPendingBySKU returns pending back orders oldest first; createdAt is
// the FIFO key.
type BackOrderRepository interface {
	Save(ctx context.Context, backOrder *BackOrder) error
	FindByID(ctx context.Context, backOrderID string) (*BackOrder, error)
	FindByOrderID(ctx context.Context, orderID string) ([]*BackOrder, error)
	FindByStatus(ctx context.Context, status BackOrderStatus) ([]*BackOrder, error)
	FindPendingBySKU(ctx context.Context, sku string) ([]*BackOrder, error)
}

// InventoryRepository defines the interface for the inventory ledger.
// ReserveIfAvailable must check availability and increment the reservation
// in one atomic write so that two concurrent reservations for the same
// (sku, location) pair cannot both observe stale availability.
type InventoryRepository interface {
	FindBySKUAndLocation(ctx context.Context, sku, locationID string) (*InventoryRecord, error)
	ReserveIfAvailable(ctx context.Context, sku, locationID string, quantity int) (bool, error)
	Receive(ctx context.Context, sku, locationID string, quantity int) (*InventoryRecord, error)
	Release(ctx context.Context, sku, locationID string, quantity int) error
}

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	Save(ctx context.Context, order *Order) error
	FindByID(ctx context.Context, orderID string) (*Order, error)
	FindByIDs(ctx context.Context, orderIDs []string) ([]*Order, error)
	UpdateAssignedPicker(ctx context.Context, orderID, staffID string) error
}

// AuditLogRepository appends state-transition records. The log is
// append-only; there is no update or delete.
type AuditLogRepository interface {
	Append(ctx context.Context, event *AuditEvent) error
	FindBySubjectID(ctx context.Context, subjectID string) ([]*AuditEvent, error)
}

// TransactionManager runs a function inside one storage transaction. The
// callback receives a context that repositories must be called with; the
// transaction commits when the callback returns nil and rolls back fully
// otherwise.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
