package dto

import "github.com/shopspring/decimal"

// ─── Filter / List ──────────────────────────────────────────────────────────

// SaleFilter is bound from the query string of GET /v1/sales.
type SaleFilter struct {
	BranchID string `form:"branch_id" validate:"omitempty,uuid"`
	Status   string `form:"status"    validate:"omitempty,oneof=pending completed cancelled refunded"`
	Date     string `form:"date"      validate:"omitempty,datetime=2006-01-02"` // empty = any day
	Page     int    `form:"page,default=1"   validate:"min=1"`
	Limit    int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type SaleListResponse struct {
	Data  []SaleResponse `json:"data"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

// MaxItemQuantity caps the units of one sale line.
const MaxItemQuantity = 10000

type SaleItemRequest struct {
	ProductID          string          `json:"product_id"          validate:"required,uuid"`
	Quantity           int             `json:"quantity"            validate:"max=10000"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage" validate:"min=0,max=100"`
}

type CreateSaleRequest struct {
	BranchID      string            `json:"branch_id"      validate:"required,uuid"`
	CustomerID    *string           `json:"customer_id"    validate:"omitempty,uuid"`
	PaymentMethod string            `json:"payment_method" validate:"required,oneof=cash card transfer store_credit"`
	Items         []SaleItemRequest `json:"items"          validate:"required,min=1,dive"`
	// Status is "completed" (default) or "pending"; pending sales do not touch
	// inventory until they are completed.
	Status string `json:"status" validate:"omitempty,oneof=pending completed"`
	// ClientRef makes checkout retries idempotent.
	ClientRef *string `json:"client_ref" validate:"omitempty,max=64"`
}

type ChangeSaleStatusRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SaleItemResponse struct {
	ProductID          string          `json:"product_id"`
	ProductName        string          `json:"product_name"`
	SKU                string          `json:"sku"`
	Quantity           int             `json:"quantity"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	DiscountAmount     decimal.Decimal `json:"discount_amount"`
	TaxAmount          decimal.Decimal `json:"tax_amount"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
}

type SaleResponse struct {
	ID             string             `json:"id"`
	BranchID       string             `json:"branch_id"`
	CustomerID     *string            `json:"customer_id"`
	UserID         string             `json:"user_id"`
	PaymentMethod  string             `json:"payment_method"`
	Items          []SaleItemResponse `json:"items"`
	Subtotal       decimal.Decimal    `json:"subtotal"`
	DiscountAmount decimal.Decimal    `json:"discount_amount"`
	TaxAmount      decimal.Decimal    `json:"tax_amount"`
	TotalAmount    decimal.Decimal    `json:"total_amount"`
	Status         string             `json:"status"`
	ClientRef      *string            `json:"client_ref,omitempty"`
	CancelReason   *string            `json:"cancel_reason,omitempty"`
	CreatedAt      string             `json:"created_at"`
}
