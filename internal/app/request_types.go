package app

// LineItemRequest is the input of Reserve, Unreserve, Issue and ReturnIssued.
type LineItemRequest struct {
	TenantID      string
	WorkOrderID   string
	StockSourceID string
	Quantity      int64
	UnitCost      string // decimal string; empty means "use the line item or catalog price"
	ActorID       string
}

// MovementQuery filters ListMovements. Empty fields are not filtered on.
type MovementQuery struct {
	TenantID      string
	WorkOrderID   string
	PartID        string
	StockSourceID string
	Limit         int
}
