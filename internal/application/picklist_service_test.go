package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/fulfillment-service/internal/domain"
	"github.com/wms-platform/fulfillment-service/pkg/errors"
)

func newPickListService(lists *fakePickListRepo, orders *fakeOrderRepo, audit *fakeAuditRepo) *PickListApplicationService {
	return NewPickListApplicationService(lists, orders, audit, fakeTxManager{}, testLogger(), nil)
}

func listWithProgress(t *testing.T, listID, staffID string) *domain.PickList {
	t.Helper()
	list, err := domain.NewPickList(listID, "B-100", staffID, 1, []domain.PickListItem{
		{ItemID: "item-1", OrderID: "ORD-1", SKU: "SKU-A", LocationID: "A-01", QuantityToPick: 5},
		{ItemID: "item-2", OrderID: "ORD-2", SKU: "SKU-B", LocationID: "B-01", QuantityToPick: 4},
	})
	require.NoError(t, err)
	list.Items[0].QuantityPicked = 2
	return list
}

func TestReassignSplit(t *testing.T) {
	list := listWithProgress(t, "PL-1", "staff-1")
	order1, _ := domain.NewOrder("ORD-1", []domain.OrderLine{{SKU: "SKU-A", Quantity: 5}})
	order2, _ := domain.NewOrder("ORD-2", []domain.OrderLine{{SKU: "SKU-B", Quantity: 4}})

	lists := newFakePickListRepo(list)
	orders := newFakeOrderRepo(order1, order2)
	audit := &fakeAuditRepo{}
	svc := newPickListService(lists, orders, audit)

	before := list.OutstandingQuantity()
	result, err := svc.Reassign(context.Background(), ReassignCommand{
		ListID:     "PL-1",
		NewStaffID: "staff-2",
		Strategy:   "SPLIT",
		ActorID:    "supervisor-1",
	})
	require.NoError(t, err)
	require.NotNil(t, result.ContinuationList)

	assert.Equal(t, string(domain.PickListStatusPartiallyCompleted), result.OriginalList.Status)
	assert.Equal(t, "staff-2", result.ContinuationList.AssignedStaffID)
	assert.Equal(t, "PL-1", result.ContinuationList.ParentListID)
	assert.Equal(t, before, result.OriginalList.Outstanding+result.ContinuationList.Outstanding)

	// both orders had open work, both now point at the new picker
	assert.Equal(t, "staff-2", order1.AssignedPickerID)
	assert.Equal(t, "staff-2", order2.AssignedPickerID)

	// continuation was persisted and is findable by parent
	children, err := lists.FindByParentID(context.Background(), "PL-1")
	require.NoError(t, err)
	require.Len(t, children, 1)

	require.Len(t, audit.byType(domain.AuditEventPickListReassigned), 1)
}

func TestReassignInPlace(t *testing.T) {
	list := listWithProgress(t, "PL-1", "staff-1")
	lists := newFakePickListRepo(list)
	svc := newPickListService(lists, newFakeOrderRepo(), &fakeAuditRepo{})

	before := list.OutstandingQuantity()
	result, err := svc.Reassign(context.Background(), ReassignCommand{
		ListID:     "PL-1",
		NewStaffID: "staff-2",
		Strategy:   "IN_PLACE",
	})
	require.NoError(t, err)

	assert.Nil(t, result.ContinuationList)
	assert.Equal(t, "staff-2", result.OriginalList.AssignedStaffID)
	assert.Equal(t, before, result.OriginalList.Outstanding)
	assert.Equal(t, 1, result.Summary.PartialItemsClosed)
}

func TestReassignAuditRecordsStaffAndCounts(t *testing.T) {
	list := listWithProgress(t, "PL-1", "staff-1")
	audit := &fakeAuditRepo{}
	svc := newPickListService(newFakePickListRepo(list), newFakeOrderRepo(), audit)

	result, err := svc.Reassign(context.Background(), ReassignCommand{
		ListID:     "PL-1",
		NewStaffID: "staff-2",
		Strategy:   "SPLIT",
		ActorID:    "supervisor-1",
	})
	require.NoError(t, err)

	events := audit.byType(domain.AuditEventPickListReassigned)
	require.Len(t, events, 1)
	assert.Equal(t, "supervisor-1", events[0].ActorID)

	payload := events[0].Payload
	assert.Equal(t, "SPLIT", payload["strategy"])
	assert.Equal(t, "staff-1", payload["oldStaffId"])
	assert.Equal(t, "staff-2", payload["newStaffId"])
	assert.Equal(t, result.Summary.PartialItemsClosed, payload["partialItemsClosed"])
	assert.Equal(t, result.Summary.ItemsMoved, payload["itemsMoved"])
	assert.Equal(t, result.Summary.ItemsCreated, payload["itemsCreated"])
	assert.Equal(t, result.Summary.OutstandingMoved, payload["outstandingMoved"])
}

func TestReassignUnknownList(t *testing.T) {
	svc := newPickListService(newFakePickListRepo(), newFakeOrderRepo(), &fakeAuditRepo{})

	_, err := svc.Reassign(context.Background(), ReassignCommand{
		ListID:     "PL-missing",
		NewStaffID: "staff-2",
		Strategy:   "SPLIT",
	})
	assert.True(t, errors.IsCode(err, errors.CodePickListNotFound))
}

func TestReassignNothingToReassign(t *testing.T) {
	list, err := domain.NewPickList("PL-done", "B-1", "staff-1", 1, []domain.PickListItem{
		{ItemID: "item-1", OrderID: "ORD-1", SKU: "SKU-A", LocationID: "A-01", QuantityToPick: 3},
	})
	require.NoError(t, err)
	list.Items[0].QuantityPicked = 3
	list.Items[0].Status = domain.PickItemStatusPicked

	svc := newPickListService(newFakePickListRepo(list), newFakeOrderRepo(), &fakeAuditRepo{})

	_, err = svc.Reassign(context.Background(), ReassignCommand{
		ListID:     "PL-done",
		NewStaffID: "staff-2",
		Strategy:   "SPLIT",
	})
	assert.True(t, errors.IsCode(err, errors.CodeNothingToReassign))
}

func TestReassignInvalidStrategy(t *testing.T) {
	svc := newPickListService(newFakePickListRepo(), newFakeOrderRepo(), &fakeAuditRepo{})

	_, err := svc.Reassign(context.Background(), ReassignCommand{
		ListID:     "PL-1",
		NewStaffID: "staff-2",
		Strategy:   "MERGE",
	})
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func TestBulkReassignSplitsAllOpenLists(t *testing.T) {
	list1 := listWithProgress(t, "PL-1", "staff-1")
	list2 := listWithProgress(t, "PL-2", "staff-1")
	done, err := domain.NewPickList("PL-done", "B-2", "staff-1", 1, []domain.PickListItem{
		{ItemID: "item-1", OrderID: "ORD-9", SKU: "SKU-C", LocationID: "C-01", QuantityToPick: 2},
	})
	require.NoError(t, err)
	done.Items[0].QuantityPicked = 2
	done.Items[0].Status = domain.PickItemStatusPicked
	other := listWithProgress(t, "PL-other", "staff-9")

	lists := newFakePickListRepo(list1, list2, done, other)
	svc := newPickListService(lists, newFakeOrderRepo(), &fakeAuditRepo{})

	result, err := svc.BulkReassign(context.Background(), BulkReassignCommand{
		FromStaffID: "staff-1",
		ToStaffID:   "staff-2",
		ActorID:     "supervisor-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "staff-1", result.FromStaffID)
	assert.Equal(t, "staff-2", result.ToStaffID)
	assert.Equal(t, 2, result.Succeeded)
	assert.Zero(t, result.Failed)
	require.Len(t, result.Entries, 2)
	for _, entry := range result.Entries {
		require.NotNil(t, entry.Result)
		assert.Equal(t, string(domain.ReassignStrategySplit), entry.Result.Strategy)
		assert.Equal(t, "staff-2", entry.Result.ContinuationList.AssignedStaffID)
	}

	// the completed list and the other picker's list stay put
	untouched, _ := lists.FindByID(context.Background(), "PL-other")
	assert.Equal(t, "staff-9", untouched.AssignedStaffID)
}

func TestBulkReassignIsolatesFailures(t *testing.T) {
	list1 := listWithProgress(t, "PL-1", "staff-1")
	list2 := listWithProgress(t, "PL-2", "staff-1")

	lists := newFakePickListRepo(list1, list2)
	lists.failSaveOf("PL-2", domain.ErrVersionConflict)
	svc := newPickListService(lists, newFakeOrderRepo(), &fakeAuditRepo{})

	result, err := svc.BulkReassign(context.Background(), BulkReassignCommand{
		FromStaffID: "staff-1",
		ToStaffID:   "staff-2",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Entries, 2)
	for _, entry := range result.Entries {
		if entry.ListID == "PL-2" {
			assert.NotEmpty(t, entry.Error)
		} else {
			assert.Empty(t, entry.Error)
		}
	}
}

func TestBulkReassignRequiresBothStaffIDs(t *testing.T) {
	svc := newPickListService(newFakePickListRepo(), newFakeOrderRepo(), &fakeAuditRepo{})

	_, err := svc.BulkReassign(context.Background(), BulkReassignCommand{ToStaffID: "staff-2"})
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))

	_, err = svc.BulkReassign(context.Background(), BulkReassignCommand{FromStaffID: "staff-1"})
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func TestFindIncompleteWork(t *testing.T) {
	open := listWithProgress(t, "PL-open", "staff-1")
	done, err := domain.NewPickList("PL-done", "B-2", "staff-1", 1, []domain.PickListItem{
		{ItemID: "item-1", OrderID: "ORD-9", SKU: "SKU-C", LocationID: "C-01", QuantityToPick: 2},
	})
	require.NoError(t, err)
	done.Items[0].QuantityPicked = 2
	done.Items[0].Status = domain.PickItemStatusPicked

	svc := newPickListService(newFakePickListRepo(open, done), newFakeOrderRepo(), &fakeAuditRepo{})

	lists, err := svc.FindIncompleteWork(context.Background(), FindIncompleteWorkQuery{StaffID: "staff-1"})
	require.NoError(t, err)
	require.Len(t, lists, 1)
	assert.Equal(t, "PL-open", lists[0].ListID)
}

func TestFindOptimalStaffRanksAscending(t *testing.T) {
	light := listWithProgress(t, "PL-light", "staff-light")   // outstanding 7
	heavy1 := listWithProgress(t, "PL-h1", "staff-heavy")     // outstanding 7
	heavy2 := listWithProgress(t, "PL-h2", "staff-heavy")     // outstanding 7
	excluded := listWithProgress(t, "PL-ex", "staff-excluded")

	svc := newPickListService(newFakePickListRepo(light, heavy1, heavy2, excluded), newFakeOrderRepo(), &fakeAuditRepo{})

	ranked, err := svc.FindOptimalStaff(context.Background(), FindOptimalStaffQuery{ExcludeStaffID: "staff-excluded"})
	require.NoError(t, err)
	require.Len(t, ranked, 2)

	assert.Equal(t, "staff-light", ranked[0].StaffID)
	assert.Equal(t, "staff-heavy", ranked[1].StaffID)
	assert.Less(t, ranked[0].OutstandingUnits, ranked[1].OutstandingUnits)
}

func TestEndOfShiftPausesWithoutFallback(t *testing.T) {
	list := listWithProgress(t, "PL-1", "staff-1")
	lists := newFakePickListRepo(list)
	audit := &fakeAuditRepo{}
	svc := newPickListService(lists, newFakeOrderRepo(), audit)

	result, err := svc.EndOfShift(context.Background(), EndOfShiftCommand{StaffID: "staff-1", ActorID: "supervisor-1"})
	require.NoError(t, err)

	assert.Equal(t, []string{"PL-1"}, result.Paused)
	assert.Nil(t, result.Reassigned)

	saved, _ := lists.FindByID(context.Background(), "PL-1")
	assert.Equal(t, domain.PickListStatusPaused, saved.Status)
	assert.Len(t, audit.byType(domain.AuditEventShiftEnded), 1)
	assert.Len(t, audit.byType(domain.AuditEventPickListPaused), 1)
}

func TestEndOfShiftSplitsOntoFallback(t *testing.T) {
	list := listWithProgress(t, "PL-1", "staff-1")
	lists := newFakePickListRepo(list)
	svc := newPickListService(lists, newFakeOrderRepo(), &fakeAuditRepo{})

	result, err := svc.EndOfShift(context.Background(), EndOfShiftCommand{
		StaffID:         "staff-1",
		FallbackStaffID: "staff-2",
	})
	require.NoError(t, err)

	require.NotNil(t, result.Reassigned)
	assert.Equal(t, 1, result.Reassigned.Succeeded)
	assert.Empty(t, result.Paused)

	children, _ := lists.FindByParentID(context.Background(), "PL-1")
	require.Len(t, children, 1)
	assert.Equal(t, "staff-2", children[0].AssignedStaffID)
}

func TestAuditProgress(t *testing.T) {
	list := listWithProgress(t, "PL-1", "staff-1")
	list.UpdatedAt = time.Now().Add(-5 * time.Hour)

	svc := newPickListService(newFakePickListRepo(list), newFakeOrderRepo(), &fakeAuditRepo{})

	audit, err := svc.AuditProgress(context.Background(), AuditProgressQuery{ListID: "PL-1"})
	require.NoError(t, err)

	assert.Equal(t, 2, audit.TotalItems)
	assert.Equal(t, 0, audit.CompletedItems)
	assert.Equal(t, 1, audit.PartialItems)
	assert.Equal(t, 7, audit.Outstanding)
	assert.True(t, audit.Stale)
	assert.InDelta(t, 22.2, audit.CompletionPct, 0.1)
}

func TestAuditProgressFlagsStalePendingItems(t *testing.T) {
	list, err := domain.NewPickList("PL-1", "B-100", "staff-1", 1, []domain.PickListItem{
		{ItemID: "item-1", OrderID: "ORD-1", SKU: "SKU-A", LocationID: "A-01", QuantityToPick: 3},
		{ItemID: "item-2", OrderID: "ORD-2", SKU: "SKU-B", LocationID: "B-01", QuantityToPick: 2},
	})
	require.NoError(t, err)
	list.Items[0].QuantityPicked = 3
	list.Items[0].Status = domain.PickItemStatusPicked

	// an old list that was touched moments ago: the list itself is not
	// stale, but its untouched pending item is
	list.CreatedAt = time.Now().Add(-10 * time.Hour)
	list.UpdatedAt = time.Now()

	svc := newPickListService(newFakePickListRepo(list), newFakeOrderRepo(), &fakeAuditRepo{})

	audit, err := svc.AuditProgress(context.Background(), AuditProgressQuery{ListID: "PL-1"})
	require.NoError(t, err)

	assert.False(t, audit.Stale)
	assert.Equal(t, 1, audit.StaleItems)
	require.Len(t, audit.Items, 2)
	assert.False(t, audit.Items[0].Stale)
	assert.True(t, audit.Items[1].Stale)
}

func TestGetChainWalksBothDirections(t *testing.T) {
	root := listWithProgress(t, "PL-root", "staff-1")
	lists := newFakePickListRepo(root)
	svc := newPickListService(lists, newFakeOrderRepo(), &fakeAuditRepo{})

	// two generations of splits
	_, err := svc.Reassign(context.Background(), ReassignCommand{
		ListID: "PL-root", NewStaffID: "staff-2", Strategy: "SPLIT",
	})
	require.NoError(t, err)

	children, _ := lists.FindByParentID(context.Background(), "PL-root")
	require.Len(t, children, 1)
	middle := children[0].ListID

	_, err = svc.Reassign(context.Background(), ReassignCommand{
		ListID: middle, NewStaffID: "staff-3", Strategy: "SPLIT",
	})
	require.NoError(t, err)

	chain, err := svc.GetChain(context.Background(), GetChainQuery{ListID: middle})
	require.NoError(t, err)

	require.Len(t, chain.Ancestors, 1)
	assert.Equal(t, "PL-root", chain.Ancestors[0].ListID)
	require.Len(t, chain.Continuations, 1)
	assert.Equal(t, "staff-3", chain.Continuations[0].AssignedStaffID)
}
