package application

import "github.com/wms-platform/fulfillment-service/internal/domain"

// ToPickListDTO converts a domain PickList to PickListDTO
func ToPickListDTO(list *domain.PickList) *PickListDTO {
	if list == nil {
		return nil
	}

	items := make([]PickListItemDTO, 0, len(list.Items))
	for i := range list.Items {
		items = append(items, ToPickListItemDTO(&list.Items[i]))
	}

	return &PickListDTO{
		ListID:          list.ListID,
		BatchNumber:     list.BatchNumber,
		AssignedStaffID: list.AssignedStaffID,
		Status:          string(list.Status),
		Priority:        list.Priority,
		ParentListID:    list.ParentListID,
		Items:           items,
		Outstanding:     list.OutstandingQuantity(),
		StartTime:       list.StartTime,
		EndTime:         list.EndTime,
		CreatedAt:       list.CreatedAt,
		UpdatedAt:       list.UpdatedAt,
	}
}

// ToPickListItemDTO converts a domain PickListItem to PickListItemDTO
func ToPickListItemDTO(item *domain.PickListItem) PickListItemDTO {
	return PickListItemDTO{
		ItemID:         item.ItemID,
		OrderID:        item.OrderID,
		SKU:            item.SKU,
		LocationID:     item.LocationID,
		QuantityToPick: item.QuantityToPick,
		QuantityPicked: item.QuantityPicked,
		Outstanding:    item.Outstanding(),
		Status:         string(item.Status),
		Sequence:       item.Sequence,
	}
}

// ToPickListDTOs converts a slice of pick lists
func ToPickListDTOs(lists []*domain.PickList) []PickListDTO {
	dtos := make([]PickListDTO, 0, len(lists))
	for _, list := range lists {
		if dto := ToPickListDTO(list); dto != nil {
			dtos = append(dtos, *dto)
		}
	}
	return dtos
}

// ToSplitSummaryDTO converts a domain SplitSummary to SplitSummaryDTO
func ToSplitSummaryDTO(summary *domain.SplitSummary) *SplitSummaryDTO {
	if summary == nil {
		return nil
	}
	return &SplitSummaryDTO{
		PartialItemsClosed: summary.PartialItemsClosed,
		ItemsMoved:         summary.ItemsMoved,
		ItemsCreated:       summary.ItemsCreated,
		OutstandingMoved:   summary.OutstandingMoved,
		AffectedOrderIDs:   summary.AffectedOrderIDs,
	}
}

// ToBackOrderDTO converts a domain BackOrder to BackOrderDTO
func ToBackOrderDTO(backOrder *domain.BackOrder) *BackOrderDTO {
	if backOrder == nil {
		return nil
	}
	return &BackOrderDTO{
		BackOrderID:         backOrder.BackOrderID,
		OrderID:             backOrder.OrderID,
		SKU:                 backOrder.SKU,
		LocationID:          backOrder.LocationID,
		QuantityBackOrdered: backOrder.QuantityBackOrdered,
		QuantityFulfilled:   backOrder.QuantityFulfilled,
		Outstanding:         backOrder.Outstanding(),
		Status:              string(backOrder.Status),
		Reason:              backOrder.Reason,
		CreatedAt:           backOrder.CreatedAt,
	}
}

// ToBackOrderDTOs converts a slice of back orders
func ToBackOrderDTOs(backOrders []*domain.BackOrder) []BackOrderDTO {
	dtos := make([]BackOrderDTO, 0, len(backOrders))
	for _, backOrder := range backOrders {
		if dto := ToBackOrderDTO(backOrder); dto != nil {
			dtos = append(dtos, *dto)
		}
	}
	return dtos
}

// ToPackingPlanDTO converts a domain PackingPlan to PackingPlanDTO
func ToPackingPlanDTO(plan *domain.PackingPlan) *PackingPlanDTO {
	if plan == nil {
		return nil
	}

	lines := make([]PackingLineDTO, 0, len(plan.Lines))
	for _, line := range plan.Lines {
		lines = append(lines, PackingLineDTO{
			SKU:            line.SKU,
			LineQuantity:   line.LineQuantity,
			QuantityToPack: line.QuantityToPack,
			AlreadyShipped: line.AlreadyShipped,
			UnitPrice:      line.UnitPrice,
		})
	}

	return &PackingPlanDTO{
		OrderID: plan.OrderID,
		Lines:   lines,
		Packing: PackingInfoDTO{
			TotalUnits:    plan.Packing.TotalUnits,
			TotalWeightKg: plan.Packing.TotalWeightKg,
			TotalVolume:   plan.Packing.TotalVolume,
			SuggestedBox:  string(plan.Packing.SuggestedBox),
		},
	}
}

// ToInventoryDTO converts a domain InventoryRecord to InventoryDTO
func ToInventoryDTO(record *domain.InventoryRecord) *InventoryDTO {
	if record == nil {
		return nil
	}
	return &InventoryDTO{
		SKU:              record.SKU,
		LocationID:       record.LocationID,
		QuantityOnHand:   record.QuantityOnHand,
		QuantityReserved: record.QuantityReserved,
		Available:        record.Available(),
		UpdatedAt:        record.UpdatedAt,
	}
}
