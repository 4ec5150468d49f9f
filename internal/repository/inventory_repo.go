package repository

import (
	"context"

	"gamestore/internal/dto"
	"gamestore/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// lowStockSQL mirrors stock.Classify for the out_of_stock and low_stock cases.
const lowStockSQL = "inventory_records.stock_current <= inventory_records.stock_minimum"

// InventoryRepository is the data access contract for the stock ledger.
// Methods with a Tx suffix must be called with the caller's transaction; a nil
// tx falls back to the base handle.
type InventoryRepository interface {
	CreateTx(ctx context.Context, tx *gorm.DB, rec *model.InventoryRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.InventoryRecord, error)
	// FindByPairTx returns the record for (product, branch) in any state.
	FindByPairTx(ctx context.Context, tx *gorm.DB, productID, branchID uuid.UUID) (*model.InventoryRecord, error)
	// LockByIDTx reads the record with SELECT ... FOR UPDATE.
	LockByIDTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.InventoryRecord, error)
	// LockByPairsTx locks the records of productIDs at branchID in ascending
	// product id order, so concurrent sales acquire row locks in the same order.
	LockByPairsTx(ctx context.Context, tx *gorm.DB, branchID uuid.UUID, productIDs []uuid.UUID) ([]model.InventoryRecord, error)
	SaveTx(ctx context.Context, tx *gorm.DB, rec *model.InventoryRecord) error
	// DecrementTx subtracts qty only if the available stock covers it. It
	// reports false, with no error, when the guard rejected the update.
	DecrementTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int) (bool, error)
	IncrementTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int) error
	DeleteTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	List(ctx context.Context, filter dto.InventoryFilter) ([]model.InventoryRecord, int64, error)
	// ListAlerts returns active records classified out_of_stock or low_stock.
	ListAlerts(ctx context.Context, branchID *uuid.UUID) ([]model.InventoryRecord, error)
	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type inventoryRepo struct{ db *gorm.DB }

func NewInventoryRepository(db *gorm.DB) InventoryRepository { return &inventoryRepo{db: db} }

func (r *inventoryRepo) DB() *gorm.DB { return r.db }

func (r *inventoryRepo) CreateTx(ctx context.Context, tx *gorm.DB, rec *model.InventoryRecord) error {
	return translate(pick(r.db, tx).WithContext(ctx).Create(rec).Error)
}

func (r *inventoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.InventoryRecord, error) {
	var rec model.InventoryRecord
	err := r.db.WithContext(ctx).Preload("Product").Preload("Branch").First(&rec, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *inventoryRepo) FindByPairTx(ctx context.Context, tx *gorm.DB, productID, branchID uuid.UUID) (*model.InventoryRecord, error) {
	var rec model.InventoryRecord
	err := pick(r.db, tx).WithContext(ctx).
		Where("product_id = ? AND branch_id = ?", productID, branchID).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *inventoryRepo) LockByIDTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.InventoryRecord, error) {
	var rec model.InventoryRecord
	err := pick(r.db, tx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&rec, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *inventoryRepo) LockByPairsTx(ctx context.Context, tx *gorm.DB, branchID uuid.UUID, productIDs []uuid.UUID) ([]model.InventoryRecord, error) {
	var recs []model.InventoryRecord
	if len(productIDs) == 0 {
		return recs, nil
	}
	err := pick(r.db, tx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("branch_id = ? AND product_id IN ?", branchID, productIDs).
		Order("product_id ASC").
		Find(&recs).Error
	return recs, err
}

func (r *inventoryRepo) SaveTx(ctx context.Context, tx *gorm.DB, rec *model.InventoryRecord) error {
	return pick(r.db, tx).WithContext(ctx).
		Omit(clause.Associations).
		Save(rec).Error
}

func (r *inventoryRepo) DecrementTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int) (bool, error) {
	res := pick(r.db, tx).WithContext(ctx).Model(&model.InventoryRecord{}).
		Where("id = ? AND stock_current - reserved_stock >= ?", id, qty).
		UpdateColumns(map[string]interface{}{
			"stock_current": gorm.Expr("stock_current - ?", qty),
			"updated_at":    gorm.Expr("NOW()"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *inventoryRepo) IncrementTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int) error {
	res := pick(r.db, tx).WithContext(ctx).Model(&model.InventoryRecord{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"stock_current": gorm.Expr("stock_current + ?", qty),
			"updated_at":    gorm.Expr("NOW()"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *inventoryRepo) DeleteTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return pick(r.db, tx).WithContext(ctx).Delete(&model.InventoryRecord{}, "id = ?", id).Error
}

func (r *inventoryRepo) List(ctx context.Context, filter dto.InventoryFilter) ([]model.InventoryRecord, int64, error) {
	var recs []model.InventoryRecord
	var total int64

	q := r.db.WithContext(ctx).Model(&model.InventoryRecord{}).
		Where("inventory_records.state = ?", model.StateActive)
	if filter.ProductID != "" {
		q = q.Where("inventory_records.product_id = ?", filter.ProductID)
	}
	if filter.BranchID != "" {
		q = q.Where("inventory_records.branch_id = ?", filter.BranchID)
	}
	if filter.LowStockOnly {
		q = q.Where(lowStockSQL)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := paging(filter.Page, filter.Limit, 50, 200)
	err := q.Preload("Product").Preload("Branch").
		Order("inventory_records.updated_at DESC").
		Offset(offset).Limit(limit).
		Find(&recs).Error
	return recs, total, err
}

func (r *inventoryRepo) ListAlerts(ctx context.Context, branchID *uuid.UUID) ([]model.InventoryRecord, error) {
	var recs []model.InventoryRecord
	q := r.db.WithContext(ctx).Model(&model.InventoryRecord{}).
		Where("inventory_records.state = ?", model.StateActive).
		Where(lowStockSQL)
	if branchID != nil {
		q = q.Where("inventory_records.branch_id = ?", *branchID)
	}
	err := q.Preload("Product").Preload("Branch").
		Order("inventory_records.stock_current ASC").
		Find(&recs).Error
	return recs, err
}
