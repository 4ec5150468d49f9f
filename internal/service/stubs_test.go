package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"

	"gamestore/internal/dto"
	"gamestore/internal/model"
	"gamestore/internal/repository"
	"gamestore/internal/worker"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── In-memory store ───────────────────────────────────────────────────────────

// memStore backs every repository stub. All access goes through mu so the
// guarded updates behave like their SQL counterparts under concurrency.
type memStore struct {
	mu        sync.Mutex
	products  map[uuid.UUID]*model.Product
	branches  map[uuid.UUID]*model.Branch
	records   map[uuid.UUID]*model.InventoryRecord
	sales     map[uuid.UUID]*model.Sale
	movements []model.StockMovement
}

func newMemStore() *memStore {
	return &memStore{
		products: make(map[uuid.UUID]*model.Product),
		branches: make(map[uuid.UUID]*model.Branch),
		records:  make(map[uuid.UUID]*model.InventoryRecord),
		sales:    make(map[uuid.UUID]*model.Sale),
	}
}

func (m *memStore) addProduct(name, sku, unit, cost, tax string) *model.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := &model.Product{
		ID:        uuid.New(),
		Name:      name,
		SKU:       sku,
		UnitPrice: decimal.RequireFromString(unit),
		CostPrice: decimal.RequireFromString(cost),
		TaxRate:   decimal.RequireFromString(tax),
		MinStock:  0,
		MaxStock:  100,
		IsActive:  true,
		State:     model.StateActive,
	}
	m.products[p.ID] = p
	return p
}

func (m *memStore) addBranch(code string, role model.BranchRole) *model.Branch {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := &model.Branch{ID: uuid.New(), Code: code, Name: code, Role: role, IsActive: true}
	m.branches[b.ID] = b
	return b
}

func (m *memStore) addRecord(p *model.Product, b *model.Branch, current, minimum int) *model.InventoryRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := &model.InventoryRecord{
		ID:           uuid.New(),
		ProductID:    p.ID,
		BranchID:     b.ID,
		StockCurrent: current,
		StockMinimum: minimum,
		State:        model.StateActive,
	}
	m.records[r.ID] = r
	return r
}

func (m *memStore) record(id uuid.UUID) model.InventoryRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.records[id]
}

func (m *memStore) movementsOf(recordID uuid.UUID) []model.StockMovement {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.StockMovement
	for _, mv := range m.movements {
		if mv.InventoryRecordID == recordID {
			out = append(out, mv)
		}
	}
	return out
}

func (m *memStore) saleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sales)
}

func cloneSale(s *model.Sale) *model.Sale {
	c := *s
	c.Items = append([]model.SaleItem(nil), s.Items...)
	return &c
}

// ── Product repository ────────────────────────────────────────────────────────

type stubProducts struct{ *memStore }

func (r stubProducts) Create(_ context.Context, p *model.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.products {
		if e.Name == p.Name || e.SKU == p.SKU {
			return errors.Join(repository.ErrDuplicate, gorm.ErrDuplicatedKey)
		}
	}
	c := *p
	r.products[p.ID] = &c
	return nil
}

func (r stubProducts) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *p
	return &c, nil
}

func (r stubProducts) FindByIDsTx(_ context.Context, _ *gorm.DB, ids []uuid.UUID) ([]model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Product
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r stubProducts) List(_ context.Context, f dto.ProductFilter) ([]model.Product, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Product
	for _, p := range r.products {
		if f.State != "all" && p.State != model.StateActive {
			continue
		}
		if f.Name != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Name)) {
			continue
		}
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (r stubProducts) Update(_ context.Context, p *model.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.products {
		if id != p.ID && (e.Name == p.Name || e.SKU == p.SKU) {
			return errors.Join(repository.ErrDuplicate, gorm.ErrDuplicatedKey)
		}
	}
	c := *p
	r.products[p.ID] = &c
	return nil
}

func (r stubProducts) Archive(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.State = model.StateArchived
	return nil
}

var _ repository.ProductRepository = stubProducts{}

// ── Branch repository ─────────────────────────────────────────────────────────

type stubBranches struct{ *memStore }

func (r stubBranches) Create(_ context.Context, b *model.Branch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.branches {
		if e.Code == b.Code || (b.IsCentral() && e.IsCentral()) {
			return errors.Join(repository.ErrDuplicate, gorm.ErrDuplicatedKey)
		}
	}
	c := *b
	r.branches[b.ID] = &c
	return nil
}

func (r stubBranches) FindByID(_ context.Context, id uuid.UUID) (*model.Branch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.branches[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *b
	return &c, nil
}

func (r stubBranches) FindCentral(_ context.Context) (*model.Branch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.branches {
		if b.IsCentral() {
			c := *b
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r stubBranches) List(_ context.Context) ([]model.Branch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Branch, 0, len(r.branches))
	for _, b := range r.branches {
		out = append(out, *b)
	}
	return out, nil
}

func (r stubBranches) Update(_ context.Context, b *model.Branch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *b
	r.branches[b.ID] = &c
	return nil
}

var _ repository.BranchRepository = stubBranches{}

// ── Inventory repository ──────────────────────────────────────────────────────

type stubInventory struct{ *memStore }

func (r stubInventory) CreateTx(_ context.Context, _ *gorm.DB, rec *model.InventoryRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.records {
		if e.ProductID == rec.ProductID && e.BranchID == rec.BranchID {
			return errors.Join(repository.ErrDuplicate, gorm.ErrDuplicatedKey)
		}
	}
	c := *rec
	c.Product, c.Branch = nil, nil
	r.records[rec.ID] = &c
	return nil
}

func (r stubInventory) FindByID(_ context.Context, id uuid.UUID) (*model.InventoryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *rec
	c.Product = r.products[rec.ProductID]
	c.Branch = r.branches[rec.BranchID]
	return &c, nil
}

func (r stubInventory) FindByPairTx(_ context.Context, _ *gorm.DB, productID, branchID uuid.UUID) (*model.InventoryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ProductID == productID && rec.BranchID == branchID {
			c := *rec
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r stubInventory) LockByIDTx(_ context.Context, _ *gorm.DB, id uuid.UUID) (*model.InventoryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *rec
	return &c, nil
}

func (r stubInventory) LockByPairsTx(_ context.Context, _ *gorm.DB, branchID uuid.UUID, productIDs []uuid.UUID) ([]model.InventoryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.InventoryRecord
	for _, pid := range productIDs {
		for _, rec := range r.records {
			if rec.ProductID == pid && rec.BranchID == branchID {
				out = append(out, *rec)
			}
		}
	}
	return out, nil
}

func (r stubInventory) SaveTx(_ context.Context, _ *gorm.DB, rec *model.InventoryRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *rec
	c.Product, c.Branch = nil, nil
	r.records[rec.ID] = &c
	return nil
}

func (r stubInventory) DecrementTx(_ context.Context, _ *gorm.DB, id uuid.UUID, qty int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok || rec.StockCurrent-rec.ReservedStock < qty {
		return false, nil
	}
	rec.StockCurrent -= qty
	return true, nil
}

func (r stubInventory) IncrementTx(_ context.Context, _ *gorm.DB, id uuid.UUID, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	rec.StockCurrent += qty
	return nil
}

func (r stubInventory) DeleteTx(_ context.Context, _ *gorm.DB, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, id)
	return nil
}

func (r stubInventory) List(_ context.Context, f dto.InventoryFilter) ([]model.InventoryRecord, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.InventoryRecord
	for _, rec := range r.records {
		if rec.State != model.StateActive {
			continue
		}
		if f.BranchID != "" && rec.BranchID.String() != f.BranchID {
			continue
		}
		if f.LowStockOnly && !rec.Status().NeedsAttention() {
			continue
		}
		out = append(out, *rec)
	}
	return out, int64(len(out)), nil
}

func (r stubInventory) ListAlerts(_ context.Context, branchID *uuid.UUID) ([]model.InventoryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.InventoryRecord
	for _, rec := range r.records {
		if rec.State != model.StateActive || !rec.Status().NeedsAttention() {
			continue
		}
		if branchID != nil && rec.BranchID != *branchID {
			continue
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (r stubInventory) DB() *gorm.DB { return nil }

var _ repository.InventoryRepository = stubInventory{}

// ── Movement repository ───────────────────────────────────────────────────────

type stubMovements struct{ *memStore }

func (r stubMovements) CreateTx(_ context.Context, _ *gorm.DB, mv *model.StockMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if mv.ID == uuid.Nil {
		mv.ID = uuid.New()
	}
	r.movements = append(r.movements, *mv)
	return nil
}

func (r stubMovements) ListByRecord(_ context.Context, recordID uuid.UUID, _, _ int) ([]model.StockMovement, int64, error) {
	out := r.movementsOf(recordID)
	return out, int64(len(out)), nil
}

var _ repository.StockMovementRepository = stubMovements{}

// ── Sale repository ───────────────────────────────────────────────────────────

type stubSales struct{ *memStore }

func (r stubSales) CreateTx(_ context.Context, _ *gorm.DB, s *model.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ClientRef != nil {
		for _, e := range r.sales {
			if e.ClientRef != nil && *e.ClientRef == *s.ClientRef {
				return errors.Join(repository.ErrDuplicate, gorm.ErrDuplicatedKey)
			}
		}
	}
	r.sales[s.ID] = cloneSale(s)
	return nil
}

func (r stubSales) FindByID(_ context.Context, id uuid.UUID) (*model.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sales[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return cloneSale(s), nil
}

func (r stubSales) FindByClientRef(_ context.Context, ref string) (*model.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sales {
		if s.ClientRef != nil && *s.ClientRef == ref {
			return cloneSale(s), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r stubSales) LockByIDTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Sale, error) {
	return r.FindByID(ctx, id)
}

func (r stubSales) TransitionTx(_ context.Context, _ *gorm.DB, id uuid.UUID, from, to model.SaleStatus, reason *string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sales[id]
	if !ok || s.Status != from {
		return false, nil
	}
	s.Status = to
	if reason != nil {
		s.CancelReason = reason
	}
	return true, nil
}

func (r stubSales) List(_ context.Context, f dto.SaleFilter) ([]model.Sale, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Sale
	for _, s := range r.sales {
		if f.Status != "" && string(s.Status) != f.Status {
			continue
		}
		out = append(out, *cloneSale(s))
	}
	return out, int64(len(out)), nil
}

func (r stubSales) CountReferencingTx(_ context.Context, _ *gorm.DB, productID, branchID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.sales {
		if s.BranchID != branchID {
			continue
		}
		for _, it := range s.Items {
			if it.ProductID == productID {
				n++
			}
		}
	}
	return n, nil
}

func (r stubSales) DB() *gorm.DB { return nil }

var _ repository.SaleRepository = stubSales{}

// ── Collaborators ─────────────────────────────────────────────────────────────

// recordingAlerter captures enqueued stock alerts.
type recordingAlerter struct {
	mu     sync.Mutex
	alerts []worker.StockAlertPayload
}

func (a *recordingAlerter) EnqueueStockAlert(_ context.Context, p worker.StockAlertPayload) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, p)
	return nil
}

func (a *recordingAlerter) statuses() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.alerts))
	for _, p := range a.alerts {
		out = append(out, p.Status)
	}
	return out
}

// countingLocker records every allocation lock taken.
type countingLocker struct {
	mu       sync.Mutex
	locked   []uuid.UUID
	released int
	err      error
}

func (l *countingLocker) Lock(_ context.Context, productID uuid.UUID) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.mu.Lock()
	l.locked = append(l.locked, productID)
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		l.released++
		l.mu.Unlock()
	}, nil
}
