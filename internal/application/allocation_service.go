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

// Fulfillment outcome reasons reported on FulfillmentResultDTO
const (
	ReasonInsufficientStock = "INSUFFICIENT_STOCK"
	ReasonAlreadyProcessed  = "ALREADY_PROCESSED"
	ReasonNotFound          = "BACKORDER_NOT_FOUND"
)

// EventStager persists a domain event for post-commit delivery. Implemented
// by the transactional outbox.
type EventStager interface {
	Stage(ctx context.Context, aggregateID, aggregateType string, event domain.DomainEvent) error
}

// AllocationApplicationService handles back order fulfillment use cases
type AllocationApplicationService struct {
	backOrders domain.BackOrderRepository
	inventory  domain.InventoryRepository
	orders     domain.OrderRepository
	audit      domain.AuditLogRepository
	tx         domain.TransactionManager
	events     EventStager
	logger     *logging.Logger
	metrics    *metrics.Metrics
}

// NewAllocationApplicationService creates a new AllocationApplicationService
func NewAllocationApplicationService(
	backOrders domain.BackOrderRepository,
	inventory domain.InventoryRepository,
	orders domain.OrderRepository,
	audit domain.AuditLogRepository,
	tx domain.TransactionManager,
	events EventStager,
	logger *logging.Logger,
	m *metrics.Metrics,
) *AllocationApplicationService {
	return &AllocationApplicationService{
		backOrders: backOrders,
		inventory:  inventory,
		orders:     orders,
		audit:      audit,
		tx:         tx,
		events:     events,
		logger:     logger,
		metrics:    m,
	}
}

// FulfillOne attempts to fulfill a single back order. Fulfillment is all or
// nothing: the full outstanding quantity is reserved, or nothing changes.
// The availability check and the reservation increment happen in one atomic
// write inside one transaction, so two concurrent attempts cannot both
// claim the same stock. Insufficient stock is a normal outcome carried in
// the result, not an error.
func (s *AllocationApplicationService) FulfillOne(ctx context.Context, cmd FulfillBackOrderCommand) (*FulfillmentResultDTO, error) {
	result := &FulfillmentResultDTO{BackOrderID: cmd.BackOrderID}

	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		backOrder, err := s.backOrders.FindByID(txCtx, cmd.BackOrderID)
		if err != nil {
			return fmt.Errorf("failed to load back order: %w", err)
		}
		if backOrder == nil {
			return errors.ErrBackOrderNotFound(cmd.BackOrderID)
		}
		if backOrder.Status != domain.BackOrderStatusPending {
			return errors.ErrAlreadyProcessed(cmd.BackOrderID)
		}

		needed := backOrder.Outstanding()
		reserved, err := s.inventory.ReserveIfAvailable(txCtx, backOrder.SKU, backOrder.LocationID, needed)
		if err != nil {
			return fmt.Errorf("failed to reserve stock: %w", err)
		}
		if !reserved {
			result.Success = false
			result.Reason = ReasonInsufficientStock
			return nil
		}

		if err := backOrder.Allocate(needed); err != nil {
			return fmt.Errorf("failed to allocate back order: %w", err)
		}
		if err := s.backOrders.Save(txCtx, backOrder); err != nil {
			return fmt.Errorf("failed to save back order: %w", err)
		}

		s.advanceOrder(txCtx, backOrder.OrderID)

		result.Success = true
		result.ReservedQuantity = needed
		return nil
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordFulfillment("error")
		}
		return nil, err
	}

	if s.metrics != nil {
		if result.Success {
			s.metrics.RecordFulfillment("fulfilled")
		} else {
			s.metrics.RecordFulfillment("insufficient_stock")
		}
	}

	if result.Success {
		s.appendAudit(ctx, domain.NewAuditEvent(
			uuid.New().String(),
			cmd.BackOrderID,
			domain.AuditEventBackOrderAllocated,
			cmd.ActorID,
			map[string]any{"reservedQuantity": result.ReservedQuantity},
		))
		s.logger.Info("Fulfilled back order",
			"backOrderId", cmd.BackOrderID,
			"reservedQuantity", result.ReservedQuantity,
		)
	}

	return result, nil
}

// FulfillBatch attempts fulfillment of several back orders. Each id is
// processed independently; one failure never blocks the rest.
func (s *AllocationApplicationService) FulfillBatch(ctx context.Context, cmd FulfillBatchCommand) (*BatchFulfillmentResultDTO, error) {
	if len(cmd.BackOrderIDs) == 0 {
		return nil, errors.ErrValidation("backOrderIds must not be empty")
	}

	batch := &BatchFulfillmentResultDTO{
		Results: make([]FulfillmentResultDTO, 0, len(cmd.BackOrderIDs)),
	}

	for _, id := range cmd.BackOrderIDs {
		result, err := s.FulfillOne(ctx, FulfillBackOrderCommand{BackOrderID: id, ActorID: cmd.ActorID})
		if err != nil {
			reason := ReasonNotFound
			if appErr, ok := errors.AsAppError(err); ok {
				reason = appErr.Code
			}
			batch.Results = append(batch.Results, FulfillmentResultDTO{
				BackOrderID: id,
				Success:     false,
				Reason:      reason,
			})
			batch.Failed++
			continue
		}

		batch.Results = append(batch.Results, *result)
		if result.Success {
			batch.Fulfilled++
		} else {
			batch.Failed++
		}
	}

	return batch, nil
}

// GroupByOrder projects back orders grouped per order for triage. The
// projection is read-only; fullyAllocatable reports whether the whole
// group would fit the current availability snapshot.
func (s *AllocationApplicationService) GroupByOrder(ctx context.Context, query GroupBackOrdersQuery) ([]OrderGroupDTO, error) {
	status := domain.BackOrderStatusPending
	if query.Status != "" {
		status = domain.BackOrderStatus(query.Status)
	}

	backOrders, err := s.backOrders.FindByStatus(ctx, status)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load back orders", "status", string(status))
		return nil, fmt.Errorf("failed to load back orders: %w", err)
	}

	byOrder := make(map[string][]*domain.BackOrder)
	orderIDs := make([]string, 0)
	for _, backOrder := range backOrders {
		if _, ok := byOrder[backOrder.OrderID]; !ok {
			orderIDs = append(orderIDs, backOrder.OrderID)
		}
		byOrder[backOrder.OrderID] = append(byOrder[backOrder.OrderID], backOrder)
	}
	sort.Strings(orderIDs)

	available := make(map[string]int)
	groups := make([]OrderGroupDTO, 0, len(orderIDs))
	for _, orderID := range orderIDs {
		group := OrderGroupDTO{
			OrderID:          orderID,
			BackOrders:       ToBackOrderDTOs(byOrder[orderID]),
			FullyAllocatable: true,
		}

		// claimed tracks stock already spoken for within this group, so
		// two same-SKU back orders that fit individually but not jointly
		// are not both reported allocatable
		claimed := make(map[string]int)
		for _, backOrder := range byOrder[orderID] {
			group.TotalOutstanding += backOrder.Outstanding()

			key := backOrder.SKU + "/" + backOrder.LocationID
			if _, ok := available[key]; !ok {
				record, err := s.inventory.FindBySKUAndLocation(ctx, backOrder.SKU, backOrder.LocationID)
				if err != nil {
					return nil, fmt.Errorf("failed to read inventory: %w", err)
				}
				if record != nil {
					available[key] = record.Available()
				}
			}
			if available[key]-claimed[key] < backOrder.Outstanding() {
				group.FullyAllocatable = false
			} else {
				claimed[key] += backOrder.Outstanding()
			}
		}

		groups = append(groups, group)
	}

	return groups, nil
}

// ReceiveStock adds received stock to the ledger and sweeps pending back
// orders for the SKU oldest first. A back order that does not fit is
// skipped; a younger, smaller one may still be fulfilled from the same
// receipt.
func (s *AllocationApplicationService) ReceiveStock(ctx context.Context, cmd ReceiveStockCommand) (*ReceiveStockResultDTO, error) {
	if cmd.Quantity <= 0 {
		return nil, errors.ErrValidation("quantity must be positive")
	}
	if cmd.SKU == "" || cmd.LocationID == "" {
		return nil, errors.ErrValidation("sku and locationId are required")
	}

	record, err := s.inventory.Receive(ctx, cmd.SKU, cmd.LocationID, cmd.Quantity)
	if err != nil {
		s.logger.WithError(err).Error("Failed to receive stock", "sku", cmd.SKU)
		return nil, fmt.Errorf("failed to receive stock: %w", err)
	}

	if s.metrics != nil {
		s.metrics.StockReceived.Inc()
	}

	if s.events != nil {
		event := &domain.StockReceivedEvent{
			SKU:        cmd.SKU,
			LocationID: cmd.LocationID,
			Quantity:   cmd.Quantity,
			ReceivedAt: time.Now(),
		}
		if err := s.events.Stage(ctx, cmd.SKU, "inventory", event); err != nil {
			s.logger.WithError(err).Warn("Failed to stage stock received event", "sku", cmd.SKU)
		}
	}

	s.appendAudit(ctx, domain.NewAuditEvent(
		uuid.New().String(),
		cmd.SKU,
		domain.AuditEventStockReceived,
		cmd.ActorID,
		map[string]any{
			"locationId": cmd.LocationID,
			"quantity":   cmd.Quantity,
		},
	))

	triggered := s.allocationScan(ctx, cmd.SKU, cmd.ActorID)

	// Re-read after the sweep so the response reflects the reservations
	// the sweep just made.
	if updated, err := s.inventory.FindBySKUAndLocation(ctx, cmd.SKU, cmd.LocationID); err == nil && updated != nil {
		record = updated
	}

	s.logger.Info("Received stock",
		"sku", cmd.SKU,
		"locationId", cmd.LocationID,
		"quantity", cmd.Quantity,
		"allocationsTriggered", len(triggered),
	)

	return &ReceiveStockResultDTO{
		Inventory:            ToInventoryDTO(record),
		AllocationsTriggered: triggered,
	}, nil
}

// GetInventory reads the ledger for one (sku, location) pair
func (s *AllocationApplicationService) GetInventory(ctx context.Context, query GetInventoryQuery) (*InventoryDTO, error) {
	record, err := s.inventory.FindBySKUAndLocation(ctx, query.SKU, query.LocationID)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory: %w", err)
	}
	if record == nil {
		return nil, errors.ErrNotFound("inventory record")
	}
	return ToInventoryDTO(record), nil
}

// allocationScan attempts fulfillment of pending back orders for a SKU in
// FIFO order. Outcomes are collected; nothing here fails the receipt.
func (s *AllocationApplicationService) allocationScan(ctx context.Context, sku, actorID string) []FulfillmentResultDTO {
	pending, err := s.backOrders.FindPendingBySKU(ctx, sku)
	if err != nil {
		s.logger.WithError(err).Error("Allocation scan failed to load pending back orders", "sku", sku)
		return nil
	}

	results := make([]FulfillmentResultDTO, 0, len(pending))
	for _, backOrder := range pending {
		result, err := s.FulfillOne(ctx, FulfillBackOrderCommand{
			BackOrderID: backOrder.BackOrderID,
			ActorID:     actorID,
		})
		if err != nil {
			s.logger.WithError(err).Warn("Allocation scan attempt failed", "backOrderId", backOrder.BackOrderID)
			continue
		}
		results = append(results, *result)
	}

	return results
}

// advanceOrder moves an order off the backorder branch once none of its
// back orders are pending anymore. Best effort inside the caller's
// transaction.
func (s *AllocationApplicationService) advanceOrder(ctx context.Context, orderID string) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil || order == nil {
		return
	}
	if order.Status != domain.OrderStatusBackOrder {
		return
	}

	siblings, err := s.backOrders.FindByOrderID(ctx, orderID)
	if err != nil {
		return
	}
	for _, sibling := range siblings {
		if sibling.Status == domain.BackOrderStatusPending {
			return
		}
	}

	if err := order.TransitionTo(domain.OrderStatusAllocated); err != nil {
		return
	}
	if err := s.orders.Save(ctx, order); err != nil {
		s.logger.WithError(err).Warn("Failed to advance order", "orderId", orderID)
	}
}

// appendAudit writes an audit record best effort
func (s *AllocationApplicationService) appendAudit(ctx context.Context, event *domain.AuditEvent) {
	if err := s.audit.Append(ctx, event); err != nil {
		s.logger.WithError(err).Warn("Failed to append audit event",
			"subjectId", event.SubjectID,
			"eventType", event.EventType,
		)
	}
}
