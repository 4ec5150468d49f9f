package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecordState is the lifecycle of rows that are logically removed instead of
// purged. Archived rows stay referenced by historical sales but are hidden
// from listings and cannot be sold.
type RecordState string

const (
	StateActive   RecordState = "active"
	StateArchived RecordState = "archived"
)

// Product is the canonical catalog record.
// Invariants: UnitPrice > CostPrice, MinStock < MaxStock, 0 <= TaxRate <= 1.
type Product struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string          `gorm:"uniqueIndex;not null"`
	SKU       string          `gorm:"column:sku;uniqueIndex;not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CostPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	// TaxRate is a fraction, 0.16 = 16%
	TaxRate   decimal.Decimal `gorm:"type:decimal(5,4);not null;default:0"`
	MinStock  int             `gorm:"not null;default:0"`
	MaxStock  int             `gorm:"not null;default:100"`
	IsActive  bool            `gorm:"not null;default:true"`
	State     RecordState     `gorm:"type:varchar(10);not null;default:'active';index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Sellable reports whether the product may appear on a new sale.
func (p *Product) Sellable() bool {
	return p.IsActive && p.State == StateActive
}
