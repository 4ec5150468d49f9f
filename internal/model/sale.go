package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleStatus: pending -> completed -> cancelled | refunded.
// Inventory is decremented once on entering completed and restored once on
// leaving it.
type SaleStatus string

const (
	SalePending   SaleStatus = "pending"
	SaleCompleted SaleStatus = "completed"
	SaleCancelled SaleStatus = "cancelled"
	SaleRefunded  SaleStatus = "refunded"
)

type PaymentMethod string

const (
	PaymentCash        PaymentMethod = "cash"
	PaymentCard        PaymentMethod = "card"
	PaymentTransfer    PaymentMethod = "transfer"
	PaymentStoreCredit PaymentMethod = "store_credit"
)

// Sale is one checkout at a branch.
// Invariant: TotalAmount = Subtotal - DiscountAmount + TaxAmount (2 decimals).
type Sale struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BranchID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	CustomerID     *uuid.UUID      `gorm:"type:uuid;index"`
	UserID         uuid.UUID       `gorm:"type:uuid;not null"`
	PaymentMethod  PaymentMethod   `gorm:"type:varchar(20);not null"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Status         SaleStatus      `gorm:"type:varchar(20);not null;default:'completed';index"`
	// ClientRef is supplied by the POS so a retried checkout returns the
	// original sale instead of selling twice.
	ClientRef    *string `gorm:"type:varchar(64);uniqueIndex"`
	CancelReason *string `gorm:"type:text"`
	CompletedAt  *time.Time
	CancelledAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Branch *Branch    `gorm:"foreignKey:BranchID"`
	Items  []SaleItem `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
}

// SaleItem is one line of a sale. Name, SKU, price and tax rate are copied
// from the product when the sale is created and never change afterwards.
type SaleItem struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SaleID             uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductName        string          `gorm:"not null"`
	SKU                string          `gorm:"column:sku;not null"`
	Quantity           int             `gorm:"not null"`
	UnitPrice          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TaxRate            decimal.Decimal `gorm:"type:decimal(5,4);not null;default:0"`
	DiscountPercentage decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	Subtotal           decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DiscountAmount     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TaxAmount          decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalAmount        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt          time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
}
