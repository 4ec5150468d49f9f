package dto

// ─── Filter / List ──────────────────────────────────────────────────────────

// InventoryFilter is bound from the query string of GET /v1/inventory.
type InventoryFilter struct {
	ProductID    string `form:"product_id"     validate:"omitempty,uuid"`
	BranchID     string `form:"branch_id"      validate:"omitempty,uuid"`
	LowStockOnly bool   `form:"low_stock_only"`
	Page         int    `form:"page,default=1"   validate:"min=1"`
	Limit        int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type InventoryListResponse struct {
	Data  []InventoryResponse `json:"data"`
	Total int64               `json:"total"`
	Page  int                 `json:"page"`
	Limit int                 `json:"limit"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

// CreateInventoryRequest allocates stock of a product to a branch.
// Quantity is a pointer so that an explicit 0 is accepted while a missing
// field is rejected; negative values are reported as InvalidQuantity.
type CreateInventoryRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	BranchID  string `json:"branch_id"  validate:"required,uuid"`
	Quantity  *int   `json:"quantity"   validate:"required"`
	MinStock  int    `json:"min_stock"`
	Notes     string `json:"notes"      validate:"max=500"`
}

type AdjustInventoryRequest struct {
	Quantity      *int    `json:"quantity"       validate:"required"`
	MinStock      *int    `json:"min_stock"`
	ReservedStock *int    `json:"reserved_stock"`
	Notes         *string `json:"notes"          validate:"omitempty,max=500"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type InventoryResponse struct {
	ID            string `json:"id"`
	ProductID     string `json:"product_id"`
	ProductName   string `json:"product_name,omitempty"`
	BranchID      string `json:"branch_id"`
	BranchCode    string `json:"branch_code,omitempty"`
	StockCurrent  int    `json:"stock_current"`
	StockMinimum  int    `json:"stock_minimum"`
	ReservedStock int    `json:"reserved_stock"`
	Available     int    `json:"available"`
	Status        string `json:"status"` // out_of_stock | low_stock | normal
	Notes         string `json:"notes"`
	State         string `json:"state"`
	UpdatedAt     string `json:"updated_at"`
}

// DeleteInventoryResponse reports whether the record was purged or, because
// sales still reference it, archived.
type DeleteInventoryResponse struct {
	ID     string `json:"id"`
	Result string `json:"result"` // deleted | archived
}

type StockMovementResponse struct {
	ID          string  `json:"id"`
	Kind        string  `json:"kind"`
	Delta       int     `json:"delta"`
	StockBefore int     `json:"stock_before"`
	StockAfter  int     `json:"stock_after"`
	Reason      string  `json:"reason"`
	ReferenceID *string `json:"reference_id"`
	CreatedAt   string  `json:"created_at"`
}

type StockMovementListResponse struct {
	Data  []StockMovementResponse `json:"data"`
	Total int64                   `json:"total"`
	Page  int                     `json:"page"`
	Limit int                     `json:"limit"`
}
