package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gamestore/internal/dto"
	"gamestore/internal/model"
	"gamestore/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AllocationLocker serialises user-initiated allocations of one product when
// strict central allocation is enabled. The returned func releases the lock.
type AllocationLocker interface {
	Lock(ctx context.Context, productID uuid.UUID) (func(), error)
}

// Delete results reported to the caller.
const (
	DeleteResultDeleted  = "deleted"
	DeleteResultArchived = "archived"
)

// InventoryService is the stock ledger: allocation, adjustment and removal of
// per-(product, branch) records.
type InventoryService interface {
	Get(ctx context.Context, productID, branchID uuid.UUID) (*dto.InventoryResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*dto.InventoryResponse, error)
	Create(ctx context.Context, req dto.CreateInventoryRequest) (*dto.InventoryResponse, error)
	Adjust(ctx context.Context, id uuid.UUID, req dto.AdjustInventoryRequest) (*dto.InventoryResponse, error)
	// Delete purges the record, or archives it when sales reference it.
	// With hard set, referencing sales make it fail with ErrHasDependentSales.
	Delete(ctx context.Context, id uuid.UUID, hard bool) (*dto.DeleteInventoryResponse, error)
	List(ctx context.Context, filter dto.InventoryFilter) (*dto.InventoryListResponse, error)
	Alerts(ctx context.Context, branchID *uuid.UUID) ([]dto.InventoryResponse, error)
	Movements(ctx context.Context, id uuid.UUID, page, limit int) (*dto.StockMovementListResponse, error)
}

type inventoryService struct {
	repo      repository.InventoryRepository
	movements repository.StockMovementRepository
	products  repository.ProductRepository
	branches  repository.BranchRepository
	sales     repository.SaleRepository
	policy    DistributionPolicy
	locker    AllocationLocker // nil unless STRICT_CENTRAL_ALLOCATION
	alerter   StockAlerter
}

func NewInventoryService(
	repo repository.InventoryRepository,
	movements repository.StockMovementRepository,
	products repository.ProductRepository,
	branches repository.BranchRepository,
	sales repository.SaleRepository,
	policy DistributionPolicy,
	locker AllocationLocker,
	alerter StockAlerter,
) InventoryService {
	return &inventoryService{
		repo:      repo,
		movements: movements,
		products:  products,
		branches:  branches,
		sales:     sales,
		policy:    policy,
		locker:    locker,
		alerter:   alerter,
	}
}

func (s *inventoryService) lock(ctx context.Context, productID uuid.UUID) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	return s.locker.Lock(ctx, productID)
}

func (s *inventoryService) Get(ctx context.Context, productID, branchID uuid.UUID) (*dto.InventoryResponse, error) {
	rec, err := s.repo.FindByPairTx(ctx, nil, productID, branchID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, newError(ErrNotFound, productID, "no inventory for product %s at branch %s", productID, branchID)
		}
		return nil, err
	}
	if rec.State != model.StateActive {
		return nil, newError(ErrNotFound, productID, "no inventory for product %s at branch %s", productID, branchID)
	}
	return recordToResponse(rec), nil
}

func (s *inventoryService) GetByID(ctx context.Context, id uuid.UUID) (*dto.InventoryResponse, error) {
	rec, err := s.findActive(ctx, id)
	if err != nil {
		return nil, err
	}
	return recordToResponse(rec), nil
}

func (s *inventoryService) findActive(ctx context.Context, id uuid.UUID) (*model.InventoryRecord, error) {
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, newError(ErrNotFound, id, "inventory record %s not found", id)
		}
		return nil, err
	}
	if rec.State != model.StateActive {
		return nil, newError(ErrNotFound, id, "inventory record %s not found", id)
	}
	return rec, nil
}

// ── Create ────────────────────────────────────────────────────────────────────
// 1. Validate quantities, product and branch (before any write)
// 2. Reject an active record for the pair with ErrDuplicateRecord
// 3. Distribution policy check
// 4. Insert, or revive an archived record for the pair
// 5. Record an allocation movement

func (s *inventoryService) Create(ctx context.Context, req dto.CreateInventoryRequest) (*dto.InventoryResponse, error) {
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return nil, newError(ErrValidation, nil, "invalid product_id %q", req.ProductID)
	}
	branchID, err := uuid.Parse(req.BranchID)
	if err != nil {
		return nil, newError(ErrValidation, nil, "invalid branch_id %q", req.BranchID)
	}
	if req.Quantity == nil || *req.Quantity < 0 {
		return nil, newError(ErrInvalidQuantity, productID, "quantity must be zero or greater")
	}
	if req.MinStock < 0 {
		return nil, newError(ErrInvalidQuantity, productID, "min_stock must be zero or greater")
	}
	qty := *req.Quantity

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, newError(ErrProductNotFound, productID, "product %s not found", productID)
		}
		return nil, err
	}
	if product.State != model.StateActive {
		return nil, newError(ErrProductNotFound, productID, "product %s is archived", productID)
	}
	branch, err := s.branches.FindByID(ctx, branchID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, newError(ErrNotFound, branchID, "branch %s not found", branchID)
		}
		return nil, err
	}

	unlock, err := s.lock(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("allocation lock: %w", err)
	}
	defer unlock()

	var rec *model.InventoryRecord
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		existing, err := s.repo.FindByPairTx(ctx, tx, productID, branchID)
		if err != nil && !repository.IsNotFound(err) {
			return err
		}
		if existing != nil && existing.State == model.StateActive {
			return newError(ErrDuplicateRecord, existing.ID,
				"inventory for product %s at branch %s already exists (%s)", productID, branch.Code, existing.ID)
		}

		if err := s.policy.CheckAllocation(ctx, tx, productID, branchID, qty); err != nil {
			return err
		}

		before := 0
		if existing != nil {
			before = existing.StockCurrent
			existing.StockCurrent = qty
			existing.StockMinimum = req.MinStock
			existing.ReservedStock = 0
			existing.Notes = req.Notes
			existing.State = model.StateActive
			if err := s.repo.SaveTx(ctx, tx, existing); err != nil {
				return err
			}
			rec = existing
		} else {
			rec = &model.InventoryRecord{
				ID:           uuid.New(),
				ProductID:    productID,
				BranchID:     branchID,
				StockCurrent: qty,
				StockMinimum: req.MinStock,
				Notes:        req.Notes,
				State:        model.StateActive,
			}
			if err := s.repo.CreateTx(ctx, tx, rec); err != nil {
				if errors.Is(err, repository.ErrDuplicate) {
					return newError(ErrDuplicateRecord, productID,
						"inventory for product %s at branch %s already exists", productID, branch.Code).withCause(err)
				}
				return err
			}
		}

		return s.movements.CreateTx(ctx, tx, &model.StockMovement{
			InventoryRecordID: rec.ID,
			ProductID:         productID,
			BranchID:          branchID,
			Kind:              model.MovementAllocation,
			Delta:             qty - before,
			StockBefore:       before,
			StockAfter:        qty,
			Reason:            "initial allocation",
		})
	})
	if txErr != nil {
		return nil, txErr
	}

	rec.Product = product
	rec.Branch = branch
	notifyStock(ctx, s.alerter, []model.InventoryRecord{*rec})
	return recordToResponse(rec), nil
}

// ── Adjust ────────────────────────────────────────────────────────────────────

func (s *inventoryService) Adjust(ctx context.Context, id uuid.UUID, req dto.AdjustInventoryRequest) (*dto.InventoryResponse, error) {
	if req.Quantity == nil || *req.Quantity < 0 {
		return nil, newError(ErrInvalidQuantity, id, "quantity must be zero or greater")
	}
	if req.MinStock != nil && *req.MinStock < 0 {
		return nil, newError(ErrInvalidQuantity, id, "min_stock must be zero or greater")
	}
	if req.ReservedStock != nil && *req.ReservedStock < 0 {
		return nil, newError(ErrInvalidQuantity, id, "reserved_stock must be zero or greater")
	}
	qty := *req.Quantity

	current, err := s.findActive(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock, err := s.lock(ctx, current.ProductID)
	if err != nil {
		return nil, fmt.Errorf("allocation lock: %w", err)
	}
	defer unlock()

	var rec *model.InventoryRecord
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		locked, err := s.repo.LockByIDTx(ctx, tx, id)
		if err != nil {
			if repository.IsNotFound(err) {
				return newError(ErrNotFound, id, "inventory record %s not found", id)
			}
			return err
		}
		if locked.State != model.StateActive {
			return newError(ErrNotFound, id, "inventory record %s not found", id)
		}

		reserved := locked.ReservedStock
		if req.ReservedStock != nil {
			reserved = *req.ReservedStock
		}
		if reserved > qty {
			return newError(ErrInvalidQuantity, id, "reserved_stock %d exceeds quantity %d", reserved, qty)
		}

		if qty > locked.StockCurrent {
			if err := s.policy.CheckAllocation(ctx, tx, locked.ProductID, locked.BranchID, qty); err != nil {
				return err
			}
		}

		before := locked.StockCurrent
		locked.StockCurrent = qty
		locked.ReservedStock = reserved
		if req.MinStock != nil {
			locked.StockMinimum = *req.MinStock
		}
		if req.Notes != nil {
			locked.Notes = *req.Notes
		}
		if err := s.repo.SaveTx(ctx, tx, locked); err != nil {
			return err
		}
		rec = locked

		if qty == before {
			return nil
		}
		return s.movements.CreateTx(ctx, tx, &model.StockMovement{
			InventoryRecordID: locked.ID,
			ProductID:         locked.ProductID,
			BranchID:          locked.BranchID,
			Kind:              model.MovementAdjustment,
			Delta:             qty - before,
			StockBefore:       before,
			StockAfter:        qty,
			Reason:            locked.Notes,
		})
	})
	if txErr != nil {
		return nil, txErr
	}

	rec.Product = current.Product
	rec.Branch = current.Branch
	notifyStock(ctx, s.alerter, []model.InventoryRecord{*rec})
	return recordToResponse(rec), nil
}

// ── Delete ────────────────────────────────────────────────────────────────────

func (s *inventoryService) Delete(ctx context.Context, id uuid.UUID, hard bool) (*dto.DeleteInventoryResponse, error) {
	result := DeleteResultDeleted
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		rec, err := s.repo.LockByIDTx(ctx, tx, id)
		if err != nil {
			if repository.IsNotFound(err) {
				return newError(ErrNotFound, id, "inventory record %s not found", id)
			}
			return err
		}

		refs, err := s.sales.CountReferencingTx(ctx, tx, rec.ProductID, rec.BranchID)
		if err != nil {
			return err
		}
		if refs == 0 {
			return s.repo.DeleteTx(ctx, tx, id)
		}
		if hard {
			return newError(ErrHasDependentSales, id,
				"inventory record %s is referenced by %d sale lines", id, refs)
		}

		result = DeleteResultArchived
		if rec.State == model.StateArchived {
			return nil
		}
		rec.State = model.StateArchived
		return s.repo.SaveTx(ctx, tx, rec)
	})
	if txErr != nil {
		return nil, txErr
	}
	return &dto.DeleteInventoryResponse{ID: id.String(), Result: result}, nil
}

// ── Queries ───────────────────────────────────────────────────────────────────

func (s *inventoryService) List(ctx context.Context, filter dto.InventoryFilter) (*dto.InventoryListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	recs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.InventoryResponse, 0, len(recs))
	for i := range recs {
		data = append(data, *recordToResponse(&recs[i]))
	}
	return &dto.InventoryListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *inventoryService) Alerts(ctx context.Context, branchID *uuid.UUID) ([]dto.InventoryResponse, error) {
	recs, err := s.repo.ListAlerts(ctx, branchID)
	if err != nil {
		return nil, err
	}
	data := make([]dto.InventoryResponse, 0, len(recs))
	for i := range recs {
		data = append(data, *recordToResponse(&recs[i]))
	}
	return data, nil
}

func (s *inventoryService) Movements(ctx context.Context, id uuid.UUID, page, limit int) (*dto.StockMovementListResponse, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if repository.IsNotFound(err) {
			return nil, newError(ErrNotFound, id, "inventory record %s not found", id)
		}
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 100
	}
	movs, total, err := s.movements.ListByRecord(ctx, id, page, limit)
	if err != nil {
		return nil, err
	}
	data := make([]dto.StockMovementResponse, 0, len(movs))
	for _, m := range movs {
		var ref *string
		if m.ReferenceID != nil {
			r := m.ReferenceID.String()
			ref = &r
		}
		data = append(data, dto.StockMovementResponse{
			ID:          m.ID.String(),
			Kind:        string(m.Kind),
			Delta:       m.Delta,
			StockBefore: m.StockBefore,
			StockAfter:  m.StockAfter,
			Reason:      m.Reason,
			ReferenceID: ref,
			CreatedAt:   m.CreatedAt.Format(time.RFC3339),
		})
	}
	return &dto.StockMovementListResponse{Data: data, Total: total, Page: page, Limit: limit}, nil
}

func recordToResponse(r *model.InventoryRecord) *dto.InventoryResponse {
	resp := &dto.InventoryResponse{
		ID:            r.ID.String(),
		ProductID:     r.ProductID.String(),
		BranchID:      r.BranchID.String(),
		StockCurrent:  r.StockCurrent,
		StockMinimum:  r.StockMinimum,
		ReservedStock: r.ReservedStock,
		Available:     r.Available(),
		Status:        string(r.Status()),
		Notes:         r.Notes,
		State:         string(r.State),
		UpdatedAt:     r.UpdatedAt.Format(time.RFC3339),
	}
	if r.Product != nil {
		resp.ProductName = r.Product.Name
	}
	if r.Branch != nil {
		resp.BranchCode = r.Branch.Code
	}
	return resp
}
