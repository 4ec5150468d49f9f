package service

import (
	"context"

	"gamestore/internal/model"
	"gamestore/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DistributionPolicy decides whether a user-initiated allocation to a branch
// is covered by the central warehouse. Sale-driven stock changes never go
// through it.
type DistributionPolicy interface {
	// CheckAllocation returns nil or an ErrExceedsCentralStock error. The read
	// of central stock is not locked.
	CheckAllocation(ctx context.Context, tx *gorm.DB, productID, branchID uuid.UUID, quantity int) error
}

type distributionPolicy struct {
	branches  repository.BranchRepository
	inventory repository.InventoryRepository
}

func NewDistributionPolicy(branches repository.BranchRepository, inventory repository.InventoryRepository) DistributionPolicy {
	return &distributionPolicy{branches: branches, inventory: inventory}
}

func (p *distributionPolicy) CheckAllocation(ctx context.Context, tx *gorm.DB, productID, branchID uuid.UUID, quantity int) error {
	target, err := p.branches.FindByID(ctx, branchID)
	if err != nil {
		if repository.IsNotFound(err) {
			return newError(ErrNotFound, branchID, "branch %s not found", branchID)
		}
		return err
	}
	if target.IsCentral() {
		return nil
	}

	available, err := p.centralAvailable(ctx, tx, productID)
	if err != nil {
		return err
	}
	if quantity > available {
		return newError(ErrExceedsCentralStock, productID,
			"allocation of %d units of product %s to branch %s exceeds central stock (%d)",
			quantity, productID, target.Code, available)
	}
	return nil
}

// centralAvailable is 0 when there is no central branch or it holds no
// active record for the product.
func (p *distributionPolicy) centralAvailable(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (int, error) {
	central, err := p.branches.FindCentral(ctx)
	if err != nil {
		if repository.IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	rec, err := p.inventory.FindByPairTx(ctx, tx, productID, central.ID)
	if err != nil {
		if repository.IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	if rec.State != model.StateActive {
		return 0, nil
	}
	return rec.StockCurrent, nil
}
