package application

import (
	"context"
	"fmt"

	"github.com/wms-platform/fulfillment-service/internal/domain"
	"github.com/wms-platform/fulfillment-service/pkg/errors"
	"github.com/wms-platform/fulfillment-service/pkg/logging"
	"github.com/wms-platform/fulfillment-service/pkg/metrics"
)

// PackingApplicationService computes packing plans. The service only
// reads; computing a plan twice for unchanged state yields the same plan.
type PackingApplicationService struct {
	orders     domain.OrderRepository
	backOrders domain.BackOrderRepository
	logger     *logging.Logger
	metrics    *metrics.Metrics
}

// NewPackingApplicationService creates a new PackingApplicationService
func NewPackingApplicationService(
	orders domain.OrderRepository,
	backOrders domain.BackOrderRepository,
	logger *logging.Logger,
	m *metrics.Metrics,
) *PackingApplicationService {
	return &PackingApplicationService{
		orders:     orders,
		backOrders: backOrders,
		logger:     logger,
		metrics:    m,
	}
}

// ComputePackingPlan reconciles an order's lines against its back orders
// and returns what remains to be packed
func (s *PackingApplicationService) ComputePackingPlan(ctx context.Context, query ComputePackingPlanQuery) (*PackingPlanDTO, error) {
	order, err := s.orders.FindByID(ctx, query.OrderID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load order", "orderId", query.OrderID)
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		return nil, errors.ErrNotFound("order")
	}

	backOrders, err := s.backOrders.FindByOrderID(ctx, query.OrderID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load back orders", "orderId", query.OrderID)
		return nil, fmt.Errorf("failed to load back orders: %w", err)
	}

	plan, err := domain.BuildPackingPlan(order, backOrders)
	if err != nil {
		if err == domain.ErrNothingToPack {
			return nil, errors.ErrNothingToPack(query.OrderID)
		}
		return nil, fmt.Errorf("failed to build packing plan: %w", err)
	}

	if s.metrics != nil {
		s.metrics.PackingPlansComputed.Inc()
	}

	return ToPackingPlanDTO(plan), nil
}
