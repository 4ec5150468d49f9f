package repository

import (
	"context"
	"time"

	"gamestore/internal/dto"
	"gamestore/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SaleRepository interface {
	CreateTx(ctx context.Context, tx *gorm.DB, s *model.Sale) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	FindByClientRef(ctx context.Context, ref string) (*model.Sale, error)
	// LockByIDTx locks the sale row and loads its items.
	LockByIDTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Sale, error)
	// TransitionTx moves the sale from one status to another. It reports false
	// when the sale was no longer in the from status.
	TransitionTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to model.SaleStatus, reason *string) (bool, error)
	List(ctx context.Context, filter dto.SaleFilter) ([]model.Sale, int64, error)
	// CountReferencingTx counts sales at branchID with a line for productID.
	CountReferencingTx(ctx context.Context, tx *gorm.DB, productID, branchID uuid.UUID) (int64, error)
	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type saleRepo struct{ db *gorm.DB }

func NewSaleRepository(db *gorm.DB) SaleRepository { return &saleRepo{db: db} }

func (r *saleRepo) DB() *gorm.DB { return r.db }

func (r *saleRepo) CreateTx(ctx context.Context, tx *gorm.DB, s *model.Sale) error {
	return translate(pick(r.db, tx).WithContext(ctx).Omit("Branch", "Items.Product").Create(s).Error)
}

func (r *saleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var s model.Sale
	err := r.db.WithContext(ctx).Preload("Items").First(&s, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *saleRepo) FindByClientRef(ctx context.Context, ref string) (*model.Sale, error) {
	var s model.Sale
	err := r.db.WithContext(ctx).Preload("Items").Where("client_ref = ?", ref).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *saleRepo) LockByIDTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Sale, error) {
	db := pick(r.db, tx).WithContext(ctx)
	var s model.Sale
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if err := db.Where("sale_id = ?", id).Order("product_id ASC").Find(&s.Items).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *saleRepo) TransitionTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to model.SaleStatus, reason *string) (bool, error) {
	now := time.Now()
	updates := map[string]interface{}{"status": to, "updated_at": now}
	switch to {
	case model.SaleCompleted:
		updates["completed_at"] = now
	case model.SaleCancelled, model.SaleRefunded:
		updates["cancelled_at"] = now
		updates["cancel_reason"] = reason
	}
	res := pick(r.db, tx).WithContext(ctx).Model(&model.Sale{}).
		Where("id = ? AND status = ?", id, from).
		UpdateColumns(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *saleRepo) List(ctx context.Context, filter dto.SaleFilter) ([]model.Sale, int64, error) {
	var sales []model.Sale
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Sale{})
	if filter.BranchID != "" {
		q = q.Where("branch_id = ?", filter.BranchID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Date != "" {
		q = q.Where("DATE(created_at) = ?", filter.Date)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := paging(filter.Page, filter.Limit, 50, 200)
	err := q.Preload("Items").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&sales).Error
	return sales, total, err
}

func (r *saleRepo) CountReferencingTx(ctx context.Context, tx *gorm.DB, productID, branchID uuid.UUID) (int64, error) {
	var n int64
	err := pick(r.db, tx).WithContext(ctx).Model(&model.SaleItem{}).
		Joins("JOIN sales ON sales.id = sale_items.sale_id").
		Where("sale_items.product_id = ? AND sales.branch_id = ?", productID, branchID).
		Count(&n).Error
	return n, err
}
