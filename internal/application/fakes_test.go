package application

import (
	"context"
	"io"
	"sort"
	"sync"

	"github.com/wms-platform/fulfillment-service/internal/domain"
	"github.com/wms-platform/fulfillment-service/pkg/logging"
)

func testLogger() *logging.Logger {
	config := logging.DefaultConfig("fulfillment-test")
	config.Level = logging.LevelError
	config.Output = io.Discard
	return logging.New(config)
}

type fakePickListRepo struct {
	mu         sync.Mutex
	lists      map[string]*domain.PickList
	saveErrFor map[string]error
}

func newFakePickListRepo(lists ...*domain.PickList) *fakePickListRepo {
	repo := &fakePickListRepo{lists: make(map[string]*domain.PickList)}
	for _, list := range lists {
		repo.lists[list.ListID] = list
	}
	return repo
}

func (r *fakePickListRepo) failSaveOf(listID string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErrFor == nil {
		r.saveErrFor = make(map[string]error)
	}
	r.saveErrFor[listID] = err
}

func (r *fakePickListRepo) Save(_ context.Context, list *domain.PickList) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.saveErrFor[list.ListID]; err != nil {
		return err
	}
	list.Version++
	list.ClearDomainEvents()
	r.lists[list.ListID] = list
	return nil
}

func (r *fakePickListRepo) FindByID(_ context.Context, listID string) (*domain.PickList, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lists[listID], nil
}

func (r *fakePickListRepo) FindByStaff(_ context.Context, staffID string, statuses []domain.PickListStatus) ([]*domain.PickList, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matches := make([]*domain.PickList, 0)
	for _, list := range r.lists {
		if list.AssignedStaffID == staffID && statusIn(list.Status, statuses) {
			matches = append(matches, list)
		}
	}
	sortLists(matches)
	return matches, nil
}

func (r *fakePickListRepo) FindByStatuses(_ context.Context, statuses []domain.PickListStatus) ([]*domain.PickList, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matches := make([]*domain.PickList, 0)
	for _, list := range r.lists {
		if statusIn(list.Status, statuses) {
			matches = append(matches, list)
		}
	}
	sortLists(matches)
	return matches, nil
}

func (r *fakePickListRepo) FindByParentID(_ context.Context, parentListID string) ([]*domain.PickList, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matches := make([]*domain.PickList, 0)
	for _, list := range r.lists {
		if list.ParentListID == parentListID {
			matches = append(matches, list)
		}
	}
	sortLists(matches)
	return matches, nil
}

func statusIn(status domain.PickListStatus, statuses []domain.PickListStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func sortLists(lists []*domain.PickList) {
	sort.Slice(lists, func(i, j int) bool { return lists[i].ListID < lists[j].ListID })
}

type fakeBackOrderRepo struct {
	mu         sync.Mutex
	backOrders map[string]*domain.BackOrder
}

func newFakeBackOrderRepo(backOrders ...*domain.BackOrder) *fakeBackOrderRepo {
	repo := &fakeBackOrderRepo{backOrders: make(map[string]*domain.BackOrder)}
	for _, backOrder := range backOrders {
		repo.backOrders[backOrder.BackOrderID] = backOrder
	}
	return repo
}

func (r *fakeBackOrderRepo) Save(_ context.Context, backOrder *domain.BackOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	backOrder.ClearDomainEvents()
	r.backOrders[backOrder.BackOrderID] = backOrder
	return nil
}

func (r *fakeBackOrderRepo) FindByID(_ context.Context, backOrderID string) (*domain.BackOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backOrders[backOrderID], nil
}

func (r *fakeBackOrderRepo) FindByOrderID(_ context.Context, orderID string) ([]*domain.BackOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matches := make([]*domain.BackOrder, 0)
	for _, backOrder := range r.backOrders {
		if backOrder.OrderID == orderID {
			matches = append(matches, backOrder)
		}
	}
	sortBackOrders(matches)
	return matches, nil
}

func (r *fakeBackOrderRepo) FindByStatus(_ context.Context, status domain.BackOrderStatus) ([]*domain.BackOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matches := make([]*domain.BackOrder, 0)
	for _, backOrder := range r.backOrders {
		if backOrder.Status == status {
			matches = append(matches, backOrder)
		}
	}
	sortBackOrders(matches)
	return matches, nil
}

func (r *fakeBackOrderRepo) FindPendingBySKU(_ context.Context, sku string) ([]*domain.BackOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matches := make([]*domain.BackOrder, 0)
	for _, backOrder := range r.backOrders {
		if backOrder.SKU == sku && backOrder.Status == domain.BackOrderStatusPending {
			matches = append(matches, backOrder)
		}
	}
	sortBackOrders(matches)
	return matches, nil
}

// sortBackOrders orders oldest first, the FIFO key
func sortBackOrders(backOrders []*domain.BackOrder) {
	sort.Slice(backOrders, func(i, j int) bool {
		if backOrders[i].CreatedAt.Equal(backOrders[j].CreatedAt) {
			return backOrders[i].BackOrderID < backOrders[j].BackOrderID
		}
		return backOrders[i].CreatedAt.Before(backOrders[j].CreatedAt)
	})
}

type fakeInventoryRepo struct {
	mu      sync.Mutex
	records map[string]*domain.InventoryRecord
}

func newFakeInventoryRepo(records ...*domain.InventoryRecord) *fakeInventoryRepo {
	repo := &fakeInventoryRepo{records: make(map[string]*domain.InventoryRecord)}
	for _, record := range records {
		repo.records[record.SKU+"/"+record.LocationID] = record
	}
	return repo
}

func (r *fakeInventoryRepo) FindBySKUAndLocation(_ context.Context, sku, locationID string) (*domain.InventoryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[sku+"/"+locationID], nil
}

func (r *fakeInventoryRepo) ReserveIfAvailable(_ context.Context, sku, locationID string, quantity int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[sku+"/"+locationID]
	if !ok {
		return false, nil
	}
	if record.Available() < quantity {
		return false, nil
	}
	record.QuantityReserved += quantity
	return true, nil
}

func (r *fakeInventoryRepo) Receive(_ context.Context, sku, locationID string, quantity int) (*domain.InventoryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := sku + "/" + locationID
	record, ok := r.records[key]
	if !ok {
		record = domain.NewInventoryRecord(sku, locationID)
		r.records[key] = record
	}
	record.QuantityOnHand += quantity
	return record, nil
}

func (r *fakeInventoryRepo) Release(_ context.Context, sku, locationID string, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[sku+"/"+locationID]
	if !ok {
		return domain.ErrOverRelease
	}
	return record.Release(quantity)
}

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
}

func newFakeOrderRepo(orders ...*domain.Order) *fakeOrderRepo {
	repo := &fakeOrderRepo{orders: make(map[string]*domain.Order)}
	for _, order := range orders {
		repo.orders[order.OrderID] = order
	}
	return repo
}

func (r *fakeOrderRepo) Save(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.OrderID] = order
	return nil
}

func (r *fakeOrderRepo) FindByID(_ context.Context, orderID string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.orders[orderID], nil
}

func (r *fakeOrderRepo) FindByIDs(_ context.Context, orderIDs []string) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matches := make([]*domain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		if order, ok := r.orders[id]; ok {
			matches = append(matches, order)
		}
	}
	return matches, nil
}

func (r *fakeOrderRepo) UpdateAssignedPicker(_ context.Context, orderID, staffID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if order, ok := r.orders[orderID]; ok {
		order.AssignPicker(staffID)
	}
	return nil
}

type fakeAuditRepo struct {
	mu     sync.Mutex
	events []*domain.AuditEvent
	err    error
}

func (r *fakeAuditRepo) Append(_ context.Context, event *domain.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

func (r *fakeAuditRepo) FindBySubjectID(_ context.Context, subjectID string) ([]*domain.AuditEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matches := make([]*domain.AuditEvent, 0)
	for _, event := range r.events {
		if event.SubjectID == subjectID {
			matches = append(matches, event)
		}
	}
	return matches, nil
}

func (r *fakeAuditRepo) byType(eventType string) []*domain.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	matches := make([]*domain.AuditEvent, 0)
	for _, event := range r.events {
		if event.EventType == eventType {
			matches = append(matches, event)
		}
	}
	return matches
}

// fakeTxManager runs the callback directly; the fakes are already atomic
// under their own locks
type fakeTxManager struct{}

func (fakeTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeEventStager struct {
	mu     sync.Mutex
	staged []domain.DomainEvent
}

func (s *fakeEventStager) Stage(_ context.Context, _, _ string, event domain.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged = append(s.staged, event)
	return nil
}
