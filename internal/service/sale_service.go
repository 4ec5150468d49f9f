package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gamestore/internal/dto"
	"gamestore/internal/model"
	"gamestore/internal/pricing"
	"gamestore/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type SaleService interface {
	CreateSale(ctx context.Context, userID uuid.UUID, req dto.CreateSaleRequest) (*dto.SaleResponse, error)
	CompleteSale(ctx context.Context, id uuid.UUID) (*dto.SaleResponse, error)
	CancelSale(ctx context.Context, id uuid.UUID, reason string) (*dto.SaleResponse, error)
	RefundSale(ctx context.Context, id uuid.UUID, reason string) (*dto.SaleResponse, error)
	GetSale(ctx context.Context, id uuid.UUID) (*dto.SaleResponse, error)
	ListSales(ctx context.Context, filter dto.SaleFilter) (*dto.SaleListResponse, error)
}

type saleService struct {
	repo      repository.SaleRepository
	inventory repository.InventoryRepository
	movements repository.StockMovementRepository
	products  repository.ProductRepository
	branches  repository.BranchRepository
	alerter   StockAlerter
}

func NewSaleService(
	repo repository.SaleRepository,
	inventory repository.InventoryRepository,
	movements repository.StockMovementRepository,
	products repository.ProductRepository,
	branches repository.BranchRepository,
	alerter StockAlerter,
) SaleService {
	return &saleService{
		repo:      repo,
		inventory: inventory,
		movements: movements,
		products:  products,
		branches:  branches,
		alerter:   alerter,
	}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// demand is the aggregated quantity of one product in a sale.
type demand struct {
	productID uuid.UUID
	quantity  int
}

// aggregate sums quantities per product and sorts by product id, the order in
// which inventory rows are locked.
func aggregate(items []model.SaleItem) []demand {
	totals := make(map[uuid.UUID]int, len(items))
	for _, it := range items {
		totals[it.ProductID] += it.Quantity
	}
	out := make([]demand, 0, len(totals))
	for id, q := range totals {
		out = append(out, demand{productID: id, quantity: q})
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].productID[:], out[j].productID[:]) < 0
	})
	return out
}

func demandIDs(ds []demand) []uuid.UUID {
	ids := make([]uuid.UUID, len(ds))
	for i, d := range ds {
		ids[i] = d.productID
	}
	return ids
}

// ── CreateSale ────────────────────────────────────────────────────────────────
// One transaction:
//   1. Resolve products and inventory records (locked FOR UPDATE, id order)
//   2. Check available stock for every aggregated product (all-or-nothing)
//   3. Derive line and sale totals, verify invariants
//   4. Decrement inventory, record movements, insert sale + items
// After commit, low/out-of-stock records are queued for alerting.

func (s *saleService) CreateSale(ctx context.Context, userID uuid.UUID, req dto.CreateSaleRequest) (*dto.SaleResponse, error) {
	branchID, err := uuid.Parse(req.BranchID)
	if err != nil {
		return nil, newError(ErrValidation, nil, "invalid branch_id %q", req.BranchID)
	}
	var customerID *uuid.UUID
	if req.CustomerID != nil && *req.CustomerID != "" {
		cid, err := uuid.Parse(*req.CustomerID)
		if err != nil {
			return nil, newError(ErrValidation, nil, "invalid customer_id %q", *req.CustomerID)
		}
		customerID = &cid
	}
	if len(req.Items) == 0 {
		return nil, newError(ErrValidation, nil, "a sale needs at least one item")
	}

	status := model.SaleCompleted
	switch req.Status {
	case "", string(model.SaleCompleted):
	case string(model.SalePending):
		status = model.SalePending
	default:
		return nil, newError(ErrValidation, nil, "a sale cannot be created as %q", req.Status)
	}

	// Retried checkout: return the stored sale untouched
	if req.ClientRef != nil && *req.ClientRef != "" {
		if existing, err := s.repo.FindByClientRef(ctx, *req.ClientRef); err == nil {
			return saleToResponse(existing), nil
		} else if !repository.IsNotFound(err) {
			return nil, err
		}
	}

	branch, err := s.branches.FindByID(ctx, branchID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, newError(ErrNotFound, branchID, "branch %s not found", branchID)
		}
		return nil, err
	}

	items := make([]model.SaleItem, 0, len(req.Items))
	for _, it := range req.Items {
		pid, err := uuid.Parse(it.ProductID)
		if err != nil {
			return nil, newError(ErrValidation, nil, "invalid product_id %q", it.ProductID)
		}
		if it.Quantity <= 0 {
			return nil, newError(ErrInvalidQuantity, pid, "quantity for product %s must be greater than zero", pid)
		}
		if it.Quantity > dto.MaxItemQuantity {
			return nil, newError(ErrInvalidQuantity, pid, "quantity for product %s exceeds %d", pid, dto.MaxItemQuantity)
		}
		// The stored percentage must reproduce the derived discount.
		if !it.DiscountPercentage.Equal(it.DiscountPercentage.Round(pricing.PercentPlaces)) {
			return nil, newError(ErrValidation, pid, "discount_percentage for product %s allows at most %d decimal places", pid, pricing.PercentPlaces)
		}
		items = append(items, model.SaleItem{
			ProductID:          pid,
			Quantity:           it.Quantity,
			DiscountPercentage: it.DiscountPercentage,
		})
	}
	demands := aggregate(items)

	sale := model.Sale{
		ID:            uuid.New(),
		BranchID:      branchID,
		CustomerID:    customerID,
		UserID:        userID,
		PaymentMethod: model.PaymentMethod(req.PaymentMethod),
		Status:        status,
		ClientRef:     req.ClientRef,
	}

	var touched []model.InventoryRecord
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		products, err := s.loadProducts(ctx, tx, demands)
		if err != nil {
			return err
		}
		recs, err := s.lockRecords(ctx, tx, branch, demands, products)
		if err != nil {
			return err
		}

		if err := priceSale(&sale, items, products); err != nil {
			return err
		}

		if status == model.SaleCompleted {
			if err := checkAvailable(demands, recs, products); err != nil {
				return err
			}
			touched, err = s.decrement(ctx, tx, sale.ID, demands, recs, products)
			if err != nil {
				return err
			}
			now := time.Now()
			sale.CompletedAt = &now
		}

		return s.repo.CreateTx(ctx, tx, &sale)
	})
	if txErr != nil {
		// Lost a race with a concurrent retry of the same checkout
		if errors.Is(txErr, repository.ErrDuplicate) && req.ClientRef != nil {
			if existing, err := s.repo.FindByClientRef(ctx, *req.ClientRef); err == nil {
				return saleToResponse(existing), nil
			}
		}
		return nil, txErr
	}

	log.Info().
		Str("sale_id", sale.ID.String()).
		Str("branch", branch.Code).
		Str("status", string(sale.Status)).
		Str("total", sale.TotalAmount.StringFixed(pricing.Places)).
		Msg("sale created")

	notifyStock(ctx, s.alerter, touched)
	return saleToResponse(&sale), nil
}

// loadProducts reads the products inside the transaction; archived or
// inactive products are reported as not found.
func (s *saleService) loadProducts(ctx context.Context, tx *gorm.DB, demands []demand) (map[uuid.UUID]*model.Product, error) {
	list, err := s.products.FindByIDsTx(ctx, tx, demandIDs(demands))
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*model.Product, len(list))
	for i := range list {
		byID[list[i].ID] = &list[i]
	}
	for _, d := range demands {
		p, ok := byID[d.productID]
		if !ok || !p.Sellable() {
			return nil, newError(ErrProductNotFound, d.productID, "product %s not found", d.productID)
		}
	}
	return byID, nil
}

// lockRecords locks the branch's records for every demanded product.
func (s *saleService) lockRecords(ctx context.Context, tx *gorm.DB, branch *model.Branch, demands []demand, products map[uuid.UUID]*model.Product) (map[uuid.UUID]*model.InventoryRecord, error) {
	list, err := s.inventory.LockByPairsTx(ctx, tx, branch.ID, demandIDs(demands))
	if err != nil {
		return nil, err
	}
	byProduct := make(map[uuid.UUID]*model.InventoryRecord, len(list))
	for i := range list {
		byProduct[list[i].ProductID] = &list[i]
	}
	for _, d := range demands {
		rec, ok := byProduct[d.productID]
		if !ok || rec.State != model.StateActive {
			name := d.productID.String()
			if p := products[d.productID]; p != nil {
				name = p.SKU
			}
			return nil, newError(ErrNoInventoryForBranch, d.productID,
				"product %s has no inventory at branch %s", name, branch.Code)
		}
		rec.Branch = branch
		rec.Product = products[d.productID]
	}
	return byProduct, nil
}

func checkAvailable(demands []demand, recs map[uuid.UUID]*model.InventoryRecord, products map[uuid.UUID]*model.Product) error {
	for _, d := range demands {
		rec := recs[d.productID]
		if rec.Available() < d.quantity {
			return insufficient(products[d.productID], d.quantity, rec.Available())
		}
	}
	return nil
}

func insufficient(p *model.Product, requested, available int) error {
	return newError(ErrInsufficientStock, p.ID,
		"insufficient stock for %s (%s): requested %d, available %d", p.Name, p.SKU, requested, available)
}

// priceSale snapshots product data onto the items, derives every money field
// and verifies the result before anything is written.
func priceSale(sale *model.Sale, items []model.SaleItem, products map[uuid.UUID]*model.Product) error {
	lines := make([]pricing.LineTotals, 0, len(items))
	for i := range items {
		it := &items[i]
		p := products[it.ProductID]
		lt, err := pricing.DeriveLineTotals(it.Quantity, p.UnitPrice, it.DiscountPercentage, p.TaxRate)
		if err != nil {
			if errors.Is(err, pricing.ErrInvalidQuantity) {
				return newError(ErrInvalidQuantity, p.ID, "quantity for product %s must be greater than zero", p.ID)
			}
			return newError(ErrValidation, p.ID, "product %s: %v", p.ID, err).withCause(err)
		}
		if err := pricing.VerifyLine(it.Quantity, p.UnitPrice, it.DiscountPercentage, lt); err != nil {
			return newError(ErrArithmeticInconsistency, p.ID, "line for product %s: %v", p.ID, err).withCause(err)
		}

		it.ID = uuid.New()
		it.SaleID = sale.ID
		it.ProductName = p.Name
		it.SKU = p.SKU
		it.UnitPrice = p.UnitPrice
		it.TaxRate = p.TaxRate
		it.Subtotal = lt.Subtotal
		it.DiscountAmount = lt.DiscountAmount
		it.TaxAmount = lt.TaxAmount
		it.TotalAmount = lt.Total
		lines = append(lines, lt)
	}

	st := pricing.DeriveSaleTotals(lines)
	if err := pricing.VerifySale(st, lines); err != nil {
		return newError(ErrArithmeticInconsistency, sale.ID, "sale %s: %v", sale.ID, err).withCause(err)
	}
	if st.Subtotal.GreaterThanOrEqual(pricing.MaxAmount) || st.Total.GreaterThanOrEqual(pricing.MaxAmount) {
		return newError(ErrInvalidQuantity, sale.ID, "sale amount %s exceeds the maximum of %s",
			st.Total.StringFixed(pricing.Places), pricing.MaxAmount.StringFixed(pricing.Places))
	}
	sale.Subtotal = st.Subtotal
	sale.DiscountAmount = st.DiscountAmount
	sale.TaxAmount = st.TaxAmount
	sale.TotalAmount = st.Total
	sale.Items = items
	return nil
}

// decrement applies one guarded decrement per aggregated product and records
// the movement. It returns the records with their new stock.
func (s *saleService) decrement(ctx context.Context, tx *gorm.DB, saleID uuid.UUID, demands []demand, recs map[uuid.UUID]*model.InventoryRecord, products map[uuid.UUID]*model.Product) ([]model.InventoryRecord, error) {
	touched := make([]model.InventoryRecord, 0, len(demands))
	ref := saleID
	for _, d := range demands {
		rec := recs[d.productID]
		ok, err := s.inventory.DecrementTx(ctx, tx, rec.ID, d.quantity)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, insufficient(products[d.productID], d.quantity, rec.Available())
		}
		before := rec.StockCurrent
		rec.StockCurrent -= d.quantity
		if err := s.movements.CreateTx(ctx, tx, &model.StockMovement{
			InventoryRecordID: rec.ID,
			ProductID:         rec.ProductID,
			BranchID:          rec.BranchID,
			Kind:              model.MovementSale,
			Delta:             -d.quantity,
			StockBefore:       before,
			StockAfter:        rec.StockCurrent,
			Reason:            fmt.Sprintf("sale %s", saleID),
			ReferenceID:       &ref,
		}); err != nil {
			return nil, err
		}
		touched = append(touched, *rec)
	}
	return touched, nil
}

// ── CompleteSale ──────────────────────────────────────────────────────────────

func (s *saleService) CompleteSale(ctx context.Context, id uuid.UUID) (*dto.SaleResponse, error) {
	var sale *model.Sale
	var touched []model.InventoryRecord
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var err error
		sale, err = s.lockSale(ctx, tx, id)
		if err != nil {
			return err
		}
		if sale.Status != model.SalePending {
			return newError(ErrInvalidStateTransition, id, "sale %s is %s and cannot be completed", id, sale.Status)
		}

		branch, err := s.branches.FindByID(ctx, sale.BranchID)
		if err != nil {
			return err
		}
		demands := aggregate(sale.Items)
		products, err := s.loadProducts(ctx, tx, demands)
		if err != nil {
			return err
		}
		recs, err := s.lockRecords(ctx, tx, branch, demands, products)
		if err != nil {
			return err
		}
		if err := checkAvailable(demands, recs, products); err != nil {
			return err
		}

		ok, err := s.repo.TransitionTx(ctx, tx, id, model.SalePending, model.SaleCompleted, nil)
		if err != nil {
			return err
		}
		if !ok {
			return newError(ErrInvalidStateTransition, id, "sale %s is no longer pending", id)
		}
		touched, err = s.decrement(ctx, tx, id, demands, recs, products)
		if err != nil {
			return err
		}

		now := time.Now()
		sale.Status = model.SaleCompleted
		sale.CompletedAt = &now
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	log.Info().Str("sale_id", id.String()).Msg("sale completed")
	notifyStock(ctx, s.alerter, touched)
	return saleToResponse(sale), nil
}

// ── CancelSale / RefundSale ───────────────────────────────────────────────────
// Both are only valid from completed and put every item back into the branch
// inventory. The guarded status update makes the reversal happen at most once.

func (s *saleService) CancelSale(ctx context.Context, id uuid.UUID, reason string) (*dto.SaleResponse, error) {
	return s.reverse(ctx, id, model.SaleCancelled, reason)
}

func (s *saleService) RefundSale(ctx context.Context, id uuid.UUID, reason string) (*dto.SaleResponse, error) {
	return s.reverse(ctx, id, model.SaleRefunded, reason)
}

func (s *saleService) reverse(ctx context.Context, id uuid.UUID, to model.SaleStatus, reason string) (*dto.SaleResponse, error) {
	var sale *model.Sale
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var err error
		sale, err = s.lockSale(ctx, tx, id)
		if err != nil {
			return err
		}
		if sale.Status != model.SaleCompleted {
			return newError(ErrInvalidStateTransition, id, "sale %s is %s and cannot be %s", id, sale.Status, to)
		}

		var why *string
		if reason != "" {
			why = &reason
		}
		ok, err := s.repo.TransitionTx(ctx, tx, id, model.SaleCompleted, to, why)
		if err != nil {
			return err
		}
		if !ok {
			return newError(ErrInvalidStateTransition, id, "sale %s is no longer completed", id)
		}

		demands := aggregate(sale.Items)
		recs, err := s.inventory.LockByPairsTx(ctx, tx, sale.BranchID, demandIDs(demands))
		if err != nil {
			return err
		}
		byProduct := make(map[uuid.UUID]*model.InventoryRecord, len(recs))
		for i := range recs {
			byProduct[recs[i].ProductID] = &recs[i]
		}

		ref := id
		for _, d := range demands {
			rec, ok := byProduct[d.productID]
			if !ok {
				return newError(ErrNoInventoryForBranch, d.productID,
					"product %s has no inventory at branch %s to restore", d.productID, sale.BranchID)
			}
			if err := s.inventory.IncrementTx(ctx, tx, rec.ID, d.quantity); err != nil {
				return err
			}
			if err := s.movements.CreateTx(ctx, tx, &model.StockMovement{
				InventoryRecordID: rec.ID,
				ProductID:         rec.ProductID,
				BranchID:          rec.BranchID,
				Kind:              model.MovementSaleReversal,
				Delta:             d.quantity,
				StockBefore:       rec.StockCurrent,
				StockAfter:        rec.StockCurrent + d.quantity,
				Reason:            fmt.Sprintf("sale %s %s", id, to),
				ReferenceID:       &ref,
			}); err != nil {
				return err
			}
		}

		now := time.Now()
		sale.Status = to
		sale.CancelReason = why
		sale.CancelledAt = &now
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	log.Info().Str("sale_id", id.String()).Str("status", string(to)).Msg("sale reversed")
	return saleToResponse(sale), nil
}

func (s *saleService) lockSale(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Sale, error) {
	sale, err := s.repo.LockByIDTx(ctx, tx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, newError(ErrNotFound, id, "sale %s not found", id)
		}
		return nil, err
	}
	return sale, nil
}

// ── Queries ───────────────────────────────────────────────────────────────────

func (s *saleService) GetSale(ctx context.Context, id uuid.UUID) (*dto.SaleResponse, error) {
	sale, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, newError(ErrNotFound, id, "sale %s not found", id)
		}
		return nil, err
	}
	return saleToResponse(sale), nil
}

func (s *saleService) ListSales(ctx context.Context, filter dto.SaleFilter) (*dto.SaleListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	sales, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.SaleResponse, 0, len(sales))
	for i := range sales {
		data = append(data, *saleToResponse(&sales[i]))
	}
	return &dto.SaleListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func saleToResponse(s *model.Sale) *dto.SaleResponse {
	items := make([]dto.SaleItemResponse, 0, len(s.Items))
	for _, it := range s.Items {
		items = append(items, dto.SaleItemResponse{
			ProductID:          it.ProductID.String(),
			ProductName:        it.ProductName,
			SKU:                it.SKU,
			Quantity:           it.Quantity,
			UnitPrice:          it.UnitPrice,
			DiscountPercentage: it.DiscountPercentage,
			Subtotal:           it.Subtotal,
			DiscountAmount:     it.DiscountAmount,
			TaxAmount:          it.TaxAmount,
			TotalAmount:        it.TotalAmount,
		})
	}
	var customer *string
	if s.CustomerID != nil {
		c := s.CustomerID.String()
		customer = &c
	}
	return &dto.SaleResponse{
		ID:             s.ID.String(),
		BranchID:       s.BranchID.String(),
		CustomerID:     customer,
		UserID:         s.UserID.String(),
		PaymentMethod:  string(s.PaymentMethod),
		Items:          items,
		Subtotal:       s.Subtotal,
		DiscountAmount: s.DiscountAmount,
		TaxAmount:      s.TaxAmount,
		TotalAmount:    s.TotalAmount,
		Status:         string(s.Status),
		ClientRef:      s.ClientRef,
		CancelReason:   s.CancelReason,
		CreatedAt:      s.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
