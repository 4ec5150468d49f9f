package repository

import (
	"context"

	"gamestore/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BranchRepository interface {
	Create(ctx context.Context, b *model.Branch) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Branch, error)
	// FindCentral returns the branch carrying RoleCentral, gorm.ErrRecordNotFound if none.
	FindCentral(ctx context.Context) (*model.Branch, error)
	List(ctx context.Context) ([]model.Branch, error)
	Update(ctx context.Context, b *model.Branch) error
}

type branchRepo struct{ db *gorm.DB }

func NewBranchRepository(db *gorm.DB) BranchRepository { return &branchRepo{db: db} }

func (r *branchRepo) Create(ctx context.Context, b *model.Branch) error {
	return translate(r.db.WithContext(ctx).Create(b).Error)
}

func (r *branchRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Branch, error) {
	var b model.Branch
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *branchRepo) FindCentral(ctx context.Context) (*model.Branch, error) {
	var b model.Branch
	if err := r.db.WithContext(ctx).Where("role = ?", model.RoleCentral).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *branchRepo) List(ctx context.Context) ([]model.Branch, error) {
	var branches []model.Branch
	err := r.db.WithContext(ctx).Order("code ASC").Find(&branches).Error
	return branches, err
}

func (r *branchRepo) Update(ctx context.Context, b *model.Branch) error {
	return translate(r.db.WithContext(ctx).Save(b).Error)
}
