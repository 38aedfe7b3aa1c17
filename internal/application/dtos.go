package application

import "time"

// PickListItemDTO represents a single pick item in responses
type PickListItemDTO struct {
	ItemID         string `json:"itemId"`
	OrderID        string `json:"orderId"`
	SKU            string `json:"sku"`
	LocationID     string `json:"locationId"`
	QuantityToPick int    `json:"quantityToPick"`
	QuantityPicked int    `json:"quantityPicked"`
	Outstanding    int    `json:"outstanding"`
	Status         string `json:"status"`
	Sequence       int    `json:"sequence"`
}

// PickListDTO represents a pick list in responses
type PickListDTO struct {
	ListID          string            `json:"listId"`
	BatchNumber     string            `json:"batchNumber"`
	AssignedStaffID string            `json:"assignedStaffId,omitempty"`
	Status          string            `json:"status"`
	Priority        int               `json:"priority"`
	ParentListID    string            `json:"parentListId,omitempty"`
	Items           []PickListItemDTO `json:"items"`
	Outstanding     int               `json:"outstanding"`
	StartTime       *time.Time        `json:"startTime,omitempty"`
	EndTime         *time.Time        `json:"endTime,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// SplitSummaryDTO describes what a reassignment did
type SplitSummaryDTO struct {
	PartialItemsClosed int      `json:"partialItemsClosed"`
	ItemsMoved         int      `json:"itemsMoved"`
	ItemsCreated       int      `json:"itemsCreated"`
	OutstandingMoved   int      `json:"outstandingMoved"`
	AffectedOrderIDs   []string `json:"affectedOrderIds"`
}

// ReassignResultDTO is the outcome of one reassignment
type ReassignResultDTO struct {
	Strategy         string           `json:"strategy"`
	OriginalList     *PickListDTO     `json:"originalList"`
	ContinuationList *PickListDTO     `json:"continuationList,omitempty"`
	Summary          *SplitSummaryDTO `json:"summary"`
}

// BulkReassignEntryDTO is the per-list outcome inside a bulk reassignment
type BulkReassignEntryDTO struct {
	ListID string             `json:"listId"`
	Error  string             `json:"error,omitempty"`
	Result *ReassignResultDTO `json:"result,omitempty"`
}

// BulkReassignResultDTO summarizes a bulk reassignment
type BulkReassignResultDTO struct {
	FromStaffID string                 `json:"fromStaffId"`
	ToStaffID   string                 `json:"toStaffId"`
	Succeeded   int                    `json:"succeeded"`
	Failed      int                    `json:"failed"`
	Entries     []BulkReassignEntryDTO `json:"entries"`
}

// StaffWorkloadDTO ranks one picker's current load
type StaffWorkloadDTO struct {
	StaffID          string `json:"staffId"`
	OpenLists        int    `json:"openLists"`
	OutstandingUnits int    `json:"outstandingUnits"`
}

// EndOfShiftResultDTO summarizes shift close-out handling
type EndOfShiftResultDTO struct {
	StaffID    string                 `json:"staffId"`
	Paused     []string               `json:"paused,omitempty"`
	Reassigned *BulkReassignResultDTO `json:"reassigned,omitempty"`
}

// ItemProgressDTO is the per-item view of a progress audit
type ItemProgressDTO struct {
	ItemID         string  `json:"itemId"`
	SKU            string  `json:"sku"`
	Status         string  `json:"status"`
	QuantityToPick int     `json:"quantityToPick"`
	QuantityPicked int     `json:"quantityPicked"`
	CompletionPct  float64 `json:"completionPct"`
	Stale          bool    `json:"stale"`
}

// ProgressAuditDTO is the audit view of one pick list's progress
type ProgressAuditDTO struct {
	ListID         string            `json:"listId"`
	Status         string            `json:"status"`
	TotalItems     int               `json:"totalItems"`
	CompletedItems int               `json:"completedItems"`
	PartialItems   int               `json:"partialItems"`
	Outstanding    int               `json:"outstanding"`
	CompletionPct  float64           `json:"completionPct"`
	Stale          bool              `json:"stale"`
	StaleItems     int               `json:"staleItems"`
	LastActivityAt time.Time         `json:"lastActivityAt"`
	Items          []ItemProgressDTO `json:"items"`
}

// PickListChainDTO is a pick list with its split ancestry and continuations
type PickListChainDTO struct {
	List          *PickListDTO  `json:"list"`
	Ancestors     []PickListDTO `json:"ancestors"`
	Continuations []PickListDTO `json:"continuations"`
}

// BackOrderDTO represents a back order in responses
type BackOrderDTO struct {
	BackOrderID         string    `json:"backOrderId"`
	OrderID             string    `json:"orderId"`
	SKU                 string    `json:"sku"`
	LocationID          string    `json:"locationId"`
	QuantityBackOrdered int       `json:"quantityBackOrdered"`
	QuantityFulfilled   int       `json:"quantityFulfilled"`
	Outstanding         int       `json:"outstanding"`
	Status              string    `json:"status"`
	Reason              string    `json:"reason,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
}

// FulfillmentResultDTO is the outcome of one fulfillment attempt.
// Insufficient stock is a normal outcome, not an error.
type FulfillmentResultDTO struct {
	BackOrderID      string `json:"backOrderId"`
	Success          bool   `json:"success"`
	ReservedQuantity int    `json:"reservedQuantity"`
	Reason           string `json:"reason,omitempty"`
}

// BatchFulfillmentResultDTO summarizes a batch fulfillment run
type BatchFulfillmentResultDTO struct {
	Fulfilled int                    `json:"fulfilled"`
	Failed    int                    `json:"failed"`
	Results   []FulfillmentResultDTO `json:"results"`
}

// OrderGroupDTO groups an order's back orders for triage
type OrderGroupDTO struct {
	OrderID          string         `json:"orderId"`
	BackOrders       []BackOrderDTO `json:"backOrders"`
	TotalOutstanding int            `json:"totalOutstanding"`
	FullyAllocatable bool           `json:"fullyAllocatable"`
}

// PackingLineDTO is one reconciled line of a packing plan
type PackingLineDTO struct {
	SKU            string  `json:"sku"`
	LineQuantity   int     `json:"lineQuantity"`
	QuantityToPack int     `json:"quantityToPack"`
	AlreadyShipped int     `json:"alreadyShipped"`
	UnitPrice      float64 `json:"unitPrice"`
}

// PackingInfoDTO carries totals and the box suggestion
type PackingInfoDTO struct {
	TotalUnits    int     `json:"totalUnits"`
	TotalWeightKg float64 `json:"totalWeightKg"`
	TotalVolume   float64 `json:"totalVolumeCm3"`
	SuggestedBox  string  `json:"suggestedBox"`
}

// PackingPlanDTO is the packing plan response for one order
type PackingPlanDTO struct {
	OrderID string           `json:"orderId"`
	Lines   []PackingLineDTO `json:"items"`
	Packing PackingInfoDTO   `json:"packingInfo"`
}

// InventoryDTO is the ledger read model for one (sku, location) pair
type InventoryDTO struct {
	SKU              string    `json:"sku"`
	LocationID       string    `json:"locationId"`
	QuantityOnHand   int       `json:"quantityOnHand"`
	QuantityReserved int       `json:"quantityReserved"`
	Available        int       `json:"available"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// ReceiveStockResultDTO is the outcome of a receiving boundary call
type ReceiveStockResultDTO struct {
	Inventory            *InventoryDTO          `json:"inventory"`
	AllocationsTriggered []FulfillmentResultDTO `json:"allocationsTriggered"`
}
