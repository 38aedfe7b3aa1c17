package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/fulfillment-service/internal/domain"
	"github.com/wms-platform/fulfillment-service/pkg/errors"
)

type allocationFixture struct {
	svc        *AllocationApplicationService
	backOrders *fakeBackOrderRepo
	inventory  *fakeInventoryRepo
	orders     *fakeOrderRepo
	audit      *fakeAuditRepo
	events     *fakeEventStager
}

func newAllocationFixture(backOrders *fakeBackOrderRepo, inventory *fakeInventoryRepo, orders *fakeOrderRepo) *allocationFixture {
	audit := &fakeAuditRepo{}
	events := &fakeEventStager{}
	return &allocationFixture{
		svc: NewAllocationApplicationService(
			backOrders, inventory, orders, audit, fakeTxManager{}, events, testLogger(), nil,
		),
		backOrders: backOrders,
		inventory:  inventory,
		orders:     orders,
		audit:      audit,
		events:     events,
	}
}

func pendingBackOrder(t *testing.T, id, orderID, sku string, qty int, age time.Duration) *domain.BackOrder {
	t.Helper()
	backOrder, err := domain.NewBackOrder(id, orderID, sku, "A-01", qty, "stockout")
	require.NoError(t, err)
	backOrder.CreatedAt = time.Now().Add(-age)
	return backOrder
}

func stockedRecord(sku string, onHand, reserved int) *domain.InventoryRecord {
	record := domain.NewInventoryRecord(sku, "A-01")
	record.QuantityOnHand = onHand
	record.QuantityReserved = reserved
	return record
}

func TestFulfillOneReservesAndAllocates(t *testing.T) {
	backOrder := pendingBackOrder(t, "BO-1", "ORD-1", "SKU-A", 4, time.Hour)
	f := newAllocationFixture(
		newFakeBackOrderRepo(backOrder),
		newFakeInventoryRepo(stockedRecord("SKU-A", 10, 2)),
		newFakeOrderRepo(),
	)

	result, err := f.svc.FulfillOne(context.Background(), FulfillBackOrderCommand{BackOrderID: "BO-1"})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 4, result.ReservedQuantity)
	assert.Equal(t, domain.BackOrderStatusAllocated, backOrder.Status)
	assert.Equal(t, 4, backOrder.QuantityFulfilled)

	record, _ := f.inventory.FindBySKUAndLocation(context.Background(), "SKU-A", "A-01")
	assert.Equal(t, 6, record.QuantityReserved)
	assert.Len(t, f.audit.byType(domain.AuditEventBackOrderAllocated), 1)
}

func TestFulfillOneInsufficientStockChangesNothing(t *testing.T) {
	backOrder := pendingBackOrder(t, "BO-1", "ORD-1", "SKU-A", 8, time.Hour)
	f := newAllocationFixture(
		newFakeBackOrderRepo(backOrder),
		newFakeInventoryRepo(stockedRecord("SKU-A", 10, 5)),
		newFakeOrderRepo(),
	)

	result, err := f.svc.FulfillOne(context.Background(), FulfillBackOrderCommand{BackOrderID: "BO-1"})
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, ReasonInsufficientStock, result.Reason)
	assert.Equal(t, domain.BackOrderStatusPending, backOrder.Status)
	assert.Equal(t, 0, backOrder.QuantityFulfilled)

	record, _ := f.inventory.FindBySKUAndLocation(context.Background(), "SKU-A", "A-01")
	assert.Equal(t, 5, record.QuantityReserved)
}

func TestFulfillOneUnknownBackOrder(t *testing.T) {
	f := newAllocationFixture(newFakeBackOrderRepo(), newFakeInventoryRepo(), newFakeOrderRepo())

	_, err := f.svc.FulfillOne(context.Background(), FulfillBackOrderCommand{BackOrderID: "BO-missing"})
	assert.True(t, errors.IsCode(err, errors.CodeBackOrderNotFound))
}

func TestFulfillOneAlreadyProcessed(t *testing.T) {
	backOrder := pendingBackOrder(t, "BO-1", "ORD-1", "SKU-A", 4, time.Hour)
	require.NoError(t, backOrder.Allocate(10))

	f := newAllocationFixture(
		newFakeBackOrderRepo(backOrder),
		newFakeInventoryRepo(stockedRecord("SKU-A", 10, 0)),
		newFakeOrderRepo(),
	)

	_, err := f.svc.FulfillOne(context.Background(), FulfillBackOrderCommand{BackOrderID: "BO-1"})
	assert.True(t, errors.IsCode(err, errors.CodeAlreadyProcessed))
}

func TestFulfillOneAdvancesOrderOffBackOrderBranch(t *testing.T) {
	order, err := domain.NewOrder("ORD-1", []domain.OrderLine{{SKU: "SKU-A", Quantity: 4}})
	require.NoError(t, err)
	require.NoError(t, order.TransitionTo(domain.OrderStatusBackOrder))

	backOrder := pendingBackOrder(t, "BO-1", "ORD-1", "SKU-A", 4, time.Hour)
	f := newAllocationFixture(
		newFakeBackOrderRepo(backOrder),
		newFakeInventoryRepo(stockedRecord("SKU-A", 10, 0)),
		newFakeOrderRepo(order),
	)

	result, err := f.svc.FulfillOne(context.Background(), FulfillBackOrderCommand{BackOrderID: "BO-1"})
	require.NoError(t, err)
	require.True(t, result.Success)

	assert.Equal(t, domain.OrderStatusAllocated, order.Status)
}

func TestConcurrentFulfillmentNeverOverReserves(t *testing.T) {
	// 10 back orders of 6 units against 30 on hand: at most 5 can win
	backOrders := make([]*domain.BackOrder, 0, 10)
	ids := make([]string, 0, 10)
	for i := 0; i < 10; i++ {
		id := "BO-" + string(rune('a'+i))
		backOrders = append(backOrders, pendingBackOrder(t, id, "ORD-1", "SKU-A", 6, time.Hour))
		ids = append(ids, id)
	}

	inventory := newFakeInventoryRepo(stockedRecord("SKU-A", 30, 0))
	f := newAllocationFixture(newFakeBackOrderRepo(backOrders...), inventory, newFakeOrderRepo())

	var wg sync.WaitGroup
	results := make([]*FulfillmentResultDTO, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func(slot int, backOrderID string) {
			defer wg.Done()
			result, err := f.svc.FulfillOne(context.Background(), FulfillBackOrderCommand{BackOrderID: backOrderID})
			if err != nil {
				t.Error(err)
				return
			}
			results[slot] = result
		}(i, id)
	}
	wg.Wait()

	succeeded := 0
	for _, result := range results {
		if result.Success {
			succeeded++
		}
	}
	assert.Equal(t, 5, succeeded)

	record, _ := inventory.FindBySKUAndLocation(context.Background(), "SKU-A", "A-01")
	assert.Equal(t, 30, record.QuantityReserved)
	assert.LessOrEqual(t, record.QuantityReserved, record.QuantityOnHand)
}

func TestFulfillBatchIsolatesFailures(t *testing.T) {
	ok := pendingBackOrder(t, "BO-ok", "ORD-1", "SKU-A", 3, time.Hour)
	starved := pendingBackOrder(t, "BO-starved", "ORD-2", "SKU-A", 50, time.Hour)

	f := newAllocationFixture(
		newFakeBackOrderRepo(ok, starved),
		newFakeInventoryRepo(stockedRecord("SKU-A", 10, 0)),
		newFakeOrderRepo(),
	)

	batch, err := f.svc.FulfillBatch(context.Background(), FulfillBatchCommand{
		BackOrderIDs: []string{"BO-ok", "BO-starved", "BO-missing"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, batch.Fulfilled)
	assert.Equal(t, 2, batch.Failed)
	require.Len(t, batch.Results, 3)
	assert.True(t, batch.Results[0].Success)
	assert.Equal(t, ReasonInsufficientStock, batch.Results[1].Reason)
	assert.Equal(t, errors.CodeBackOrderNotFound, batch.Results[2].Reason)
}

func TestReceiveStockSweepsFIFO(t *testing.T) {
	oldest := pendingBackOrder(t, "BO-old", "ORD-1", "SKU-A", 10, 3*time.Hour)
	middle := pendingBackOrder(t, "BO-mid", "ORD-2", "SKU-A", 4, 2*time.Hour)
	newest := pendingBackOrder(t, "BO-new", "ORD-3", "SKU-A", 2, time.Hour)

	f := newAllocationFixture(
		newFakeBackOrderRepo(oldest, middle, newest),
		newFakeInventoryRepo(),
		newFakeOrderRepo(),
	)

	// 6 units arrive: the oldest (10) does not fit and is skipped, the
	// younger two (4 and 2) are both fulfilled from the same receipt
	result, err := f.svc.ReceiveStock(context.Background(), ReceiveStockCommand{
		SKU: "SKU-A", LocationID: "A-01", Quantity: 6, ActorID: "receiver-1",
	})
	require.NoError(t, err)

	require.Len(t, result.AllocationsTriggered, 3)
	assert.False(t, result.AllocationsTriggered[0].Success)
	assert.True(t, result.AllocationsTriggered[1].Success)
	assert.True(t, result.AllocationsTriggered[2].Success)

	assert.Equal(t, domain.BackOrderStatusPending, oldest.Status)
	assert.Equal(t, domain.BackOrderStatusAllocated, middle.Status)
	assert.Equal(t, domain.BackOrderStatusAllocated, newest.Status)

	assert.Equal(t, 6, result.Inventory.QuantityOnHand)
	assert.Equal(t, 6, result.Inventory.QuantityReserved)
	assert.Equal(t, 0, result.Inventory.Available)

	require.Len(t, f.events.staged, 1)
	assert.Equal(t, "wms.fulfillment.stock-received", f.events.staged[0].EventType())
	assert.Len(t, f.audit.byType(domain.AuditEventStockReceived), 1)
}

func TestReceiveStockValidation(t *testing.T) {
	f := newAllocationFixture(newFakeBackOrderRepo(), newFakeInventoryRepo(), newFakeOrderRepo())

	_, err := f.svc.ReceiveStock(context.Background(), ReceiveStockCommand{SKU: "SKU-A", LocationID: "A-01", Quantity: 0})
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))

	_, err = f.svc.ReceiveStock(context.Background(), ReceiveStockCommand{Quantity: 5})
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func TestGroupByOrder(t *testing.T) {
	bo1 := pendingBackOrder(t, "BO-1", "ORD-1", "SKU-A", 3, 2*time.Hour)
	bo2 := pendingBackOrder(t, "BO-2", "ORD-1", "SKU-B", 2, time.Hour)
	bo3 := pendingBackOrder(t, "BO-3", "ORD-2", "SKU-A", 50, time.Hour)

	f := newAllocationFixture(
		newFakeBackOrderRepo(bo1, bo2, bo3),
		newFakeInventoryRepo(stockedRecord("SKU-A", 10, 0), stockedRecord("SKU-B", 5, 0)),
		newFakeOrderRepo(),
	)

	groups, err := f.svc.GroupByOrder(context.Background(), GroupBackOrdersQuery{})
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, "ORD-1", groups[0].OrderID)
	assert.Equal(t, 5, groups[0].TotalOutstanding)
	assert.True(t, groups[0].FullyAllocatable)

	assert.Equal(t, "ORD-2", groups[1].OrderID)
	assert.False(t, groups[1].FullyAllocatable)
}

func TestGroupByOrderCountsJointDemandPerSKU(t *testing.T) {
	bo1 := pendingBackOrder(t, "BO-1", "ORD-1", "SKU-A", 3, 2*time.Hour)
	bo2 := pendingBackOrder(t, "BO-2", "ORD-1", "SKU-A", 3, time.Hour)

	f := newAllocationFixture(
		newFakeBackOrderRepo(bo1, bo2),
		newFakeInventoryRepo(stockedRecord("SKU-A", 4, 0)),
		newFakeOrderRepo(),
	)

	groups, err := f.svc.GroupByOrder(context.Background(), GroupBackOrdersQuery{})
	require.NoError(t, err)
	require.Len(t, groups, 1)

	// each back order fits the snapshot alone; both together do not
	assert.Equal(t, 6, groups[0].TotalOutstanding)
	assert.False(t, groups[0].FullyAllocatable)
}

func TestGetInventory(t *testing.T) {
	f := newAllocationFixture(
		newFakeBackOrderRepo(),
		newFakeInventoryRepo(stockedRecord("SKU-A", 10, 4)),
		newFakeOrderRepo(),
	)

	dto, err := f.svc.GetInventory(context.Background(), GetInventoryQuery{SKU: "SKU-A", LocationID: "A-01"})
	require.NoError(t, err)
	assert.Equal(t, 6, dto.Available)

	_, err = f.svc.GetInventory(context.Background(), GetInventoryQuery{SKU: "SKU-missing", LocationID: "A-01"})
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}
