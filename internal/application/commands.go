package application

// ReassignCommand moves the open work of one pick list to another picker
type ReassignCommand struct {
	ListID     string
	NewStaffID string
	Strategy   string
	ActorID    string
	Reason     string
}

// BulkReassignCommand splits every incomplete list of one picker onto
// another in a single call
type BulkReassignCommand struct {
	FromStaffID string
	ToStaffID   string
	ActorID     string
	Reason      string
}

// EndOfShiftCommand closes out a picker's shift. When FallbackStaffID is
// set the open lists are split onto that picker; otherwise they are paused.
type EndOfShiftCommand struct {
	StaffID         string
	FallbackStaffID string
	ActorID         string
}

// FulfillBackOrderCommand attempts fulfillment of a single back order
type FulfillBackOrderCommand struct {
	BackOrderID string
	ActorID     string
}

// FulfillBatchCommand attempts fulfillment of several back orders
type FulfillBatchCommand struct {
	BackOrderIDs []string
	ActorID      string
}

// ReceiveStockCommand adds received stock to the ledger and triggers an
// allocation sweep for the SKU
type ReceiveStockCommand struct {
	SKU        string
	LocationID string
	Quantity   int
	ActorID    string
}

// FindIncompleteWorkQuery finds a picker's lists that still carry open work
type FindIncompleteWorkQuery struct {
	StaffID string
}

// FindOptimalStaffQuery ranks candidate pickers by current workload
type FindOptimalStaffQuery struct {
	ExcludeStaffID string
	Limit          int
}

// GetPickListQuery fetches one pick list by business id
type GetPickListQuery struct {
	ListID string
}

// GetChainQuery fetches a pick list together with its ancestry and
// continuations
type GetChainQuery struct {
	ListID string
}

// AuditProgressQuery inspects per-item progress of one pick list
type AuditProgressQuery struct {
	ListID string
}

// GroupBackOrdersQuery projects back orders grouped per order
type GroupBackOrdersQuery struct {
	Status string
}

// ComputePackingPlanQuery computes the packing plan for one order
type ComputePackingPlanQuery struct {
	OrderID string
}

// GetInventoryQuery reads the ledger for a SKU
type GetInventoryQuery struct {
	SKU        string
	LocationID string
}
