package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CreateProductRequest struct {
	Name      string          `json:"name"       validate:"required,min=2,max=120"`
	SKU       string          `json:"sku"        validate:"required,min=3,max=40"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"required,gt=0"`
	CostPrice decimal.Decimal `json:"cost_price" validate:"min=0"`
	TaxRate   decimal.Decimal `json:"tax_rate"   validate:"min=0,max=1"`
	MinStock  int             `json:"min_stock"  validate:"min=0"`
	MaxStock  int             `json:"max_stock"  validate:"required,min=1"`
	IsActive  *bool           `json:"is_active"`
}

type UpdateProductRequest struct {
	Name      *string          `json:"name"       validate:"omitempty,min=2,max=120"`
	SKU       *string          `json:"sku"        validate:"omitempty,min=3,max=40"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
	CostPrice *decimal.Decimal `json:"cost_price"`
	TaxRate   *decimal.Decimal `json:"tax_rate"`
	MinStock  *int             `json:"min_stock"  validate:"omitempty,min=0"`
	MaxStock  *int             `json:"max_stock"  validate:"omitempty,min=1"`
	IsActive  *bool            `json:"is_active"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type ProductFilter struct {
	Name  string `form:"name"`
	SKU   string `form:"sku"`
	State string `form:"state"` // active (default) | archived | all
	Page  int    `form:"page,default=1"   validate:"min=1"`
	Limit int    `form:"limit,default=20" validate:"min=1,max=100"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ProductResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	CostPrice decimal.Decimal `json:"cost_price"`
	TaxRate   decimal.Decimal `json:"tax_rate"`
	MinStock  int             `json:"min_stock"`
	MaxStock  int             `json:"max_stock"`
	IsActive  bool            `json:"is_active"`
	State     string          `json:"state"`
}

type ProductListResponse struct {
	Data       []ProductResponse `json:"data"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"total_pages"`
}
