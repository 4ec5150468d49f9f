package model

import (
	"time"

	"gamestore/internal/stock"

	"github.com/google/uuid"
)

// InventoryRecord is the stock ledger entry for one (product, branch) pair.
// Exactly one row exists per pair (uniqueIndex idx_inventory_product_branch).
// Invariants, also enforced by CHECK constraints:
//
//	StockCurrent >= 0, StockMinimum >= 0, 0 <= ReservedStock <= StockCurrent
type InventoryRecord struct {
	ID            uuid.UUID   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID     uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_product_branch"`
	BranchID      uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_product_branch;index"`
	StockCurrent  int         `gorm:"not null;default:0"`
	StockMinimum  int         `gorm:"not null;default:0"`
	ReservedStock int         `gorm:"not null;default:0"`
	Notes         string      `gorm:"type:text"`
	State         RecordState `gorm:"type:varchar(10);not null;default:'active'"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Product *Product `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Branch  *Branch  `gorm:"foreignKey:BranchID;constraint:OnDelete:CASCADE"`
}

// Available is the stock that can still be sold.
func (r *InventoryRecord) Available() int { return r.StockCurrent - r.ReservedStock }

// Status classifies the record for listings and alerts.
func (r *InventoryRecord) Status() stock.Status {
	return stock.Classify(r.StockCurrent, r.StockMinimum)
}
