package application

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/wms-platform/fulfillment-service/internal/domain"
	"github.com/wms-platform/fulfillment-service/pkg/errors"
	"github.com/wms-platform/fulfillment-service/pkg/logging"
	"github.com/wms-platform/fulfillment-service/pkg/metrics"
)

// openStatuses are the list states that can still carry open work
var openStatuses = []domain.PickListStatus{
	domain.PickListStatusAssigned,
	domain.PickListStatusInProgress,
	domain.PickListStatusPaused,
}

// staleThreshold flags work as stale in progress audits: a list with no
// recent activity, or an item still pending this long after list creation
const staleThreshold = 4 * time.Hour

// PickListApplicationService handles pick list reassignment use cases
type PickListApplicationService struct {
	lists   domain.PickListRepository
	orders  domain.OrderRepository
	audit   domain.AuditLogRepository
	tx      domain.TransactionManager
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewPickListApplicationService creates a new PickListApplicationService
func NewPickListApplicationService(
	lists domain.PickListRepository,
	orders domain.OrderRepository,
	audit domain.AuditLogRepository,
	tx domain.TransactionManager,
	logger *logging.Logger,
	m *metrics.Metrics,
) *PickListApplicationService {
	return &PickListApplicationService{
		lists:   lists,
		orders:  orders,
		audit:   audit,
		tx:      tx,
		logger:  logger,
		metrics: m,
	}
}

// FindIncompleteWork returns the staff member's lists that still carry
// open work
func (s *PickListApplicationService) FindIncompleteWork(ctx context.Context, query FindIncompleteWorkQuery) ([]PickListDTO, error) {
	incomplete, err := s.findOpenLists(ctx, query.StaffID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to find incomplete work", "staffId", query.StaffID)
		return nil, fmt.Errorf("failed to find incomplete work: %w", err)
	}
	return ToPickListDTOs(incomplete), nil
}

// findOpenLists loads the staff member's lists in open statuses and keeps
// only those with outstanding quantity
func (s *PickListApplicationService) findOpenLists(ctx context.Context, staffID string) ([]*domain.PickList, error) {
	lists, err := s.lists.FindByStaff(ctx, staffID, openStatuses)
	if err != nil {
		return nil, err
	}
	open := make([]*domain.PickList, 0, len(lists))
	for _, list := range lists {
		if list.HasOpenWork() {
			open = append(open, list)
		}
	}
	return open, nil
}

// GetPickList retrieves one pick list by business id
func (s *PickListApplicationService) GetPickList(ctx context.Context, query GetPickListQuery) (*PickListDTO, error) {
	list, err := s.lists.FindByID(ctx, query.ListID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pick list: %w", err)
	}
	if list == nil {
		return nil, errors.ErrPickListNotFound(query.ListID)
	}
	return ToPickListDTO(list), nil
}

// Reassign moves the open work of one list to another picker using the
// requested strategy. Total outstanding quantity before and after the
// operation is identical; a violation aborts before anything is saved.
func (s *PickListApplicationService) Reassign(ctx context.Context, cmd ReassignCommand) (*ReassignResultDTO, error) {
	strategy, err := domain.ParseReassignStrategy(cmd.Strategy)
	if err != nil {
		return nil, errors.ErrValidation(fmt.Sprintf("unknown strategy %q", cmd.Strategy))
	}
	if cmd.NewStaffID == "" {
		return nil, errors.ErrValidation("newStaffId is required")
	}

	list, err := s.lists.FindByID(ctx, cmd.ListID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pick list: %w", err)
	}
	if list == nil {
		return nil, errors.ErrPickListNotFound(cmd.ListID)
	}

	outstandingBefore := list.OutstandingQuantity()
	oldStaffID := list.AssignedStaffID

	var result *ReassignResultDTO
	switch strategy {
	case domain.ReassignStrategySplit:
		result, err = s.reassignSplit(ctx, list, cmd, outstandingBefore)
	case domain.ReassignStrategyInPlace:
		result, err = s.reassignInPlace(ctx, list, cmd, outstandingBefore)
	}
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordReassignment(string(strategy))
	}

	s.appendAudit(ctx, domain.NewAuditEvent(
		uuid.New().String(),
		cmd.ListID,
		domain.AuditEventPickListReassigned,
		cmd.ActorID,
		map[string]any{
			"strategy":           string(strategy),
			"oldStaffId":         oldStaffID,
			"newStaffId":         cmd.NewStaffID,
			"partialItemsClosed": result.Summary.PartialItemsClosed,
			"itemsMoved":         result.Summary.ItemsMoved,
			"itemsCreated":       result.Summary.ItemsCreated,
			"outstandingMoved":   result.Summary.OutstandingMoved,
			"reason":             cmd.Reason,
		},
	))

	s.logger.Info("Reassigned pick list",
		"listId", cmd.ListID,
		"strategy", string(strategy),
		"newStaffId", cmd.NewStaffID,
	)

	return result, nil
}

func (s *PickListApplicationService) reassignSplit(ctx context.Context, list *domain.PickList, cmd ReassignCommand, outstandingBefore int) (*ReassignResultDTO, error) {
	continuationID := uuid.New().String()
	batchNumber := fmt.Sprintf("%s-C", list.BatchNumber)

	continuation, summary, err := list.SplitRemainder(cmd.NewStaffID, continuationID, batchNumber, newItemID)
	if err != nil {
		return nil, mapReassignError(err, cmd.ListID)
	}

	outstandingAfter := list.OutstandingQuantity() + continuation.OutstandingQuantity()
	if outstandingAfter != outstandingBefore {
		return nil, errors.ErrInternal(fmt.Sprintf(
			"outstanding quantity not conserved for list %s: %d before, %d after",
			list.ListID, outstandingBefore, outstandingAfter,
		))
	}

	err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.lists.Save(txCtx, list); err != nil {
			return err
		}
		return s.lists.Save(txCtx, continuation)
	})
	if err != nil {
		if err == domain.ErrVersionConflict {
			return nil, errors.ErrConflict(fmt.Sprintf("pick list %s was modified concurrently", list.ListID))
		}
		s.logger.WithError(err).Error("Failed to save split", "listId", list.ListID)
		return nil, fmt.Errorf("failed to save split: %w", err)
	}

	s.repointOrders(ctx, summary.AffectedOrderIDs, cmd.NewStaffID)

	return &ReassignResultDTO{
		Strategy:         string(domain.ReassignStrategySplit),
		OriginalList:     ToPickListDTO(list),
		ContinuationList: ToPickListDTO(continuation),
		Summary:          ToSplitSummaryDTO(summary),
	}, nil
}

func (s *PickListApplicationService) reassignInPlace(ctx context.Context, list *domain.PickList, cmd ReassignCommand, outstandingBefore int) (*ReassignResultDTO, error) {
	summary, err := list.ReassignInPlace(cmd.NewStaffID, newItemID)
	if err != nil {
		return nil, mapReassignError(err, cmd.ListID)
	}

	if list.OutstandingQuantity() != outstandingBefore {
		return nil, errors.ErrInternal(fmt.Sprintf(
			"outstanding quantity not conserved for list %s: %d before, %d after",
			list.ListID, outstandingBefore, list.OutstandingQuantity(),
		))
	}

	if err := s.lists.Save(ctx, list); err != nil {
		if err == domain.ErrVersionConflict {
			return nil, errors.ErrConflict(fmt.Sprintf("pick list %s was modified concurrently", list.ListID))
		}
		s.logger.WithError(err).Error("Failed to save reassignment", "listId", list.ListID)
		return nil, fmt.Errorf("failed to save reassignment: %w", err)
	}

	s.repointOrders(ctx, summary.AffectedOrderIDs, cmd.NewStaffID)

	return &ReassignResultDTO{
		Strategy:     string(domain.ReassignStrategyInPlace),
		OriginalList: ToPickListDTO(list),
		Summary:      ToSplitSummaryDTO(summary),
	}, nil
}

// BulkReassign moves every incomplete list of one picker onto another by
// splitting each list. The source picker's open lists are resolved here;
// a failure on one list does not abort the others.
func (s *PickListApplicationService) BulkReassign(ctx context.Context, cmd BulkReassignCommand) (*BulkReassignResultDTO, error) {
	if cmd.FromStaffID == "" {
		return nil, errors.ErrValidation("fromStaffId is required")
	}
	if cmd.ToStaffID == "" {
		return nil, errors.ErrValidation("toStaffId is required")
	}

	open, err := s.findOpenLists(ctx, cmd.FromStaffID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load lists for bulk reassignment", "fromStaffId", cmd.FromStaffID)
		return nil, fmt.Errorf("failed to load lists for bulk reassignment: %w", err)
	}

	result := &BulkReassignResultDTO{
		FromStaffID: cmd.FromStaffID,
		ToStaffID:   cmd.ToStaffID,
		Entries:     make([]BulkReassignEntryDTO, 0, len(open)),
	}

	for _, list := range open {
		entry := BulkReassignEntryDTO{ListID: list.ListID}

		one, err := s.Reassign(ctx, ReassignCommand{
			ListID:     list.ListID,
			NewStaffID: cmd.ToStaffID,
			Strategy:   string(domain.ReassignStrategySplit),
			ActorID:    cmd.ActorID,
			Reason:     cmd.Reason,
		})
		if err != nil {
			entry.Error = err.Error()
			result.Failed++
		} else {
			entry.Result = one
			result.Succeeded++
		}

		result.Entries = append(result.Entries, entry)
	}

	return result, nil
}

// FindOptimalStaff ranks candidate pickers by how little open work they
// carry. The least loaded picker comes first; ties break on list count,
// then staff id for a stable order.
func (s *PickListApplicationService) FindOptimalStaff(ctx context.Context, query FindOptimalStaffQuery) ([]StaffWorkloadDTO, error) {
	lists, err := s.lists.FindByStatuses(ctx, openStatuses)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load open lists")
		return nil, fmt.Errorf("failed to load open lists: %w", err)
	}

	byStaff := make(map[string]*StaffWorkloadDTO)
	for _, list := range lists {
		if list.AssignedStaffID == "" || list.AssignedStaffID == query.ExcludeStaffID {
			continue
		}
		load, ok := byStaff[list.AssignedStaffID]
		if !ok {
			load = &StaffWorkloadDTO{StaffID: list.AssignedStaffID}
			byStaff[list.AssignedStaffID] = load
		}
		load.OpenLists++
		load.OutstandingUnits += list.OutstandingQuantity()
	}

	ranked := make([]StaffWorkloadDTO, 0, len(byStaff))
	for _, load := range byStaff {
		ranked = append(ranked, *load)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].OutstandingUnits != ranked[j].OutstandingUnits {
			return ranked[i].OutstandingUnits < ranked[j].OutstandingUnits
		}
		if ranked[i].OpenLists != ranked[j].OpenLists {
			return ranked[i].OpenLists < ranked[j].OpenLists
		}
		return ranked[i].StaffID < ranked[j].StaffID
	})

	if query.Limit > 0 && len(ranked) > query.Limit {
		ranked = ranked[:query.Limit]
	}

	return ranked, nil
}

// EndOfShift closes out a picker's shift. With a fallback picker the open
// lists are split onto them; without one the lists are paused for manual
// handling.
func (s *PickListApplicationService) EndOfShift(ctx context.Context, cmd EndOfShiftCommand) (*EndOfShiftResultDTO, error) {
	result := &EndOfShiftResultDTO{StaffID: cmd.StaffID}
	openCount := 0

	if cmd.FallbackStaffID != "" {
		bulk, err := s.BulkReassign(ctx, BulkReassignCommand{
			FromStaffID: cmd.StaffID,
			ToStaffID:   cmd.FallbackStaffID,
			ActorID:     cmd.ActorID,
			Reason:      "end of shift",
		})
		if err != nil {
			return nil, err
		}
		openCount = len(bulk.Entries)
		if openCount > 0 {
			result.Reassigned = bulk
		}
	} else {
		open, err := s.findOpenLists(ctx, cmd.StaffID)
		if err != nil {
			s.logger.WithError(err).Error("Failed to load shift work", "staffId", cmd.StaffID)
			return nil, fmt.Errorf("failed to load shift work: %w", err)
		}
		openCount = len(open)

		for _, list := range open {
			if err := list.Pause(); err != nil {
				continue
			}
			if err := s.lists.Save(ctx, list); err != nil {
				s.logger.WithError(err).Error("Failed to pause list", "listId", list.ListID)
				continue
			}
			result.Paused = append(result.Paused, list.ListID)

			s.appendAudit(ctx, domain.NewAuditEvent(
				uuid.New().String(),
				list.ListID,
				domain.AuditEventPickListPaused,
				cmd.ActorID,
				map[string]any{"staffId": cmd.StaffID},
			))
		}
	}

	s.appendAudit(ctx, domain.NewAuditEvent(
		uuid.New().String(),
		cmd.StaffID,
		domain.AuditEventShiftEnded,
		cmd.ActorID,
		map[string]any{
			"openLists":       openCount,
			"fallbackStaffId": cmd.FallbackStaffID,
		},
	))

	s.logger.Info("Closed out shift", "staffId", cmd.StaffID, "openLists", openCount)
	return result, nil
}

// AuditProgress inspects the per-item progress of one pick list. The list
// is flagged stale when nothing happened on it recently; an item is
// flagged stale when it is still pending long after the list was created,
// even if other items keep the list itself active.
func (s *PickListApplicationService) AuditProgress(ctx context.Context, query AuditProgressQuery) (*ProgressAuditDTO, error) {
	list, err := s.lists.FindByID(ctx, query.ListID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pick list: %w", err)
	}
	if list == nil {
		return nil, errors.ErrPickListNotFound(query.ListID)
	}

	audit := &ProgressAuditDTO{
		ListID:         list.ListID,
		Status:         string(list.Status),
		TotalItems:     len(list.Items),
		PartialItems:   list.CountPartialItems(),
		Outstanding:    list.OutstandingQuantity(),
		LastActivityAt: list.UpdatedAt,
		Stale:          !list.Status.IsTerminal() && time.Since(list.UpdatedAt) > staleThreshold,
		Items:          make([]ItemProgressDTO, 0, len(list.Items)),
	}

	itemAge := time.Since(list.CreatedAt)
	totalToPick := 0
	totalPicked := 0
	for i := range list.Items {
		item := &list.Items[i]
		if item.IsTerminal() {
			audit.CompletedItems++
		}
		totalToPick += item.QuantityToPick
		totalPicked += item.QuantityPicked

		pct := 0.0
		if item.QuantityToPick > 0 {
			pct = float64(item.QuantityPicked) / float64(item.QuantityToPick) * 100
		}
		stale := item.Status == domain.PickItemStatusPending && itemAge > staleThreshold
		if stale {
			audit.StaleItems++
		}
		audit.Items = append(audit.Items, ItemProgressDTO{
			ItemID:         item.ItemID,
			SKU:            item.SKU,
			Status:         string(item.Status),
			QuantityToPick: item.QuantityToPick,
			QuantityPicked: item.QuantityPicked,
			CompletionPct:  pct,
			Stale:          stale,
		})
	}
	if totalToPick > 0 {
		audit.CompletionPct = float64(totalPicked) / float64(totalToPick) * 100
	}

	return audit, nil
}

// GetChain returns a pick list together with its split ancestry and all
// continuation descendants
func (s *PickListApplicationService) GetChain(ctx context.Context, query GetChainQuery) (*PickListChainDTO, error) {
	list, err := s.lists.FindByID(ctx, query.ListID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pick list: %w", err)
	}
	if list == nil {
		return nil, errors.ErrPickListNotFound(query.ListID)
	}

	chain := &PickListChainDTO{
		List:          ToPickListDTO(list),
		Ancestors:     make([]PickListDTO, 0),
		Continuations: make([]PickListDTO, 0),
	}

	seen := map[string]bool{list.ListID: true}

	parentID := list.ParentListID
	for parentID != "" && !seen[parentID] {
		seen[parentID] = true
		parent, err := s.lists.FindByID(ctx, parentID)
		if err != nil {
			return nil, fmt.Errorf("failed to walk chain: %w", err)
		}
		if parent == nil {
			break
		}
		chain.Ancestors = append(chain.Ancestors, *ToPickListDTO(parent))
		parentID = parent.ParentListID
	}

	frontier := []string{list.ListID}
	for len(frontier) > 0 {
		next := make([]string, 0)
		for _, id := range frontier {
			children, err := s.lists.FindByParentID(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("failed to walk chain: %w", err)
			}
			for _, child := range children {
				if seen[child.ListID] {
					continue
				}
				seen[child.ListID] = true
				chain.Continuations = append(chain.Continuations, *ToPickListDTO(child))
				next = append(next, child.ListID)
			}
		}
		frontier = next
	}

	return chain, nil
}

// repointOrders updates the assigned picker on orders whose open work just
// changed hands. Failures are logged and do not fail the reassignment.
func (s *PickListApplicationService) repointOrders(ctx context.Context, orderIDs []string, staffID string) {
	for _, orderID := range orderIDs {
		if err := s.orders.UpdateAssignedPicker(ctx, orderID, staffID); err != nil {
			s.logger.WithError(err).Warn("Failed to repoint order", "orderId", orderID, "staffId", staffID)
		}
	}
}

// appendAudit writes an audit record best effort
func (s *PickListApplicationService) appendAudit(ctx context.Context, event *domain.AuditEvent) {
	if err := s.audit.Append(ctx, event); err != nil {
		s.logger.WithError(err).Warn("Failed to append audit event",
			"subjectId", event.SubjectID,
			"eventType", event.EventType,
		)
	}
}

func mapReassignError(err error, listID string) error {
	switch err {
	case domain.ErrNothingToReassign:
		return errors.ErrNothingToReassign(listID)
	case domain.ErrListTerminal:
		return errors.ErrConflict(fmt.Sprintf("pick list %s is in a terminal state", listID))
	default:
		return errors.ErrValidation(err.Error())
	}
}

func newItemID() string {
	return uuid.New().String()
}
