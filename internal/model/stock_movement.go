package model

import (
	"time"

	"github.com/google/uuid"
)

// MovementKind: "allocation" | "adjustment" | "sale" | "sale_reversal"
type MovementKind string

const (
	MovementAllocation   MovementKind = "allocation"
	MovementAdjustment   MovementKind = "adjustment"
	MovementSale         MovementKind = "sale"
	MovementSaleReversal MovementKind = "sale_reversal"
)

// StockMovement records every change applied to an inventory record.
// Rows are never updated or deleted; corrections create new movements.
type StockMovement struct {
	ID                uuid.UUID    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	InventoryRecordID uuid.UUID    `gorm:"type:uuid;not null;index"`
	ProductID         uuid.UUID    `gorm:"type:uuid;not null"`
	BranchID          uuid.UUID    `gorm:"type:uuid;not null"`
	Kind              MovementKind `gorm:"type:varchar(20);not null"`
	Delta             int          `gorm:"not null"` // positive = in, negative = out
	StockBefore       int          `gorm:"not null"`
	StockAfter        int          `gorm:"not null"`
	Reason            string
	ReferenceID       *uuid.UUID `gorm:"type:uuid;index"` // sale id when applicable
	CreatedAt         time.Time
}

// TableName overrides GORM's default pluralization.
func (StockMovement) TableName() string { return "stock_movements" }
