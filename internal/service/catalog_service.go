package service

import (
	"context"
	"errors"

	"gamestore/internal/dto"
	"gamestore/internal/model"
	"gamestore/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CatalogService manages products and branches, the read-mostly reference
// data of the inventory core.
type CatalogService interface {
	CreateProduct(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error)
	ListProducts(ctx context.Context, filter dto.ProductFilter) (*dto.ProductListResponse, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error)
	ArchiveProduct(ctx context.Context, id uuid.UUID) error

	CreateBranch(ctx context.Context, req dto.CreateBranchRequest) (*dto.BranchResponse, error)
	GetBranch(ctx context.Context, id uuid.UUID) (*dto.BranchResponse, error)
	ListBranches(ctx context.Context) ([]dto.BranchResponse, error)
	UpdateBranch(ctx context.Context, id uuid.UUID, req dto.UpdateBranchRequest) (*dto.BranchResponse, error)
}

type catalogService struct {
	products repository.ProductRepository
	branches repository.BranchRepository
}

func NewCatalogService(products repository.ProductRepository, branches repository.BranchRepository) CatalogService {
	return &catalogService{products: products, branches: branches}
}

// validateProduct checks the catalog invariants shared by create and update.
// taxRatePlaces matches the decimal(5,4) tax_rate column.
const taxRatePlaces = 4

func validateProduct(p *model.Product) error {
	if !p.UnitPrice.GreaterThan(p.CostPrice) {
		return newError(ErrValidation, p.ID, "unit_price %s must be greater than cost_price %s",
			p.UnitPrice.StringFixed(2), p.CostPrice.StringFixed(2))
	}
	if p.CostPrice.IsNegative() {
		return newError(ErrValidation, p.ID, "cost_price must not be negative")
	}
	if p.MinStock < 0 || p.MinStock >= p.MaxStock {
		return newError(ErrValidation, p.ID, "min_stock %d must be below max_stock %d", p.MinStock, p.MaxStock)
	}
	if p.TaxRate.IsNegative() || p.TaxRate.GreaterThan(decimal.NewFromInt(1)) {
		return newError(ErrValidation, p.ID, "tax_rate must be between 0 and 1")
	}
	return nil
}

func (s *catalogService) CreateProduct(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	p := &model.Product{
		ID:        uuid.New(),
		Name:      req.Name,
		SKU:       req.SKU,
		UnitPrice: req.UnitPrice.Round(2),
		CostPrice: req.CostPrice.Round(2),
		TaxRate:   req.TaxRate.Round(taxRatePlaces),
		MinStock:  req.MinStock,
		MaxStock:  req.MaxStock,
		IsActive:  true,
		State:     model.StateActive,
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	if err := s.products.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, newError(ErrDuplicateRecord, nil, "a product named %q or with sku %q already exists", p.Name, p.SKU).withCause(err)
		}
		return nil, err
	}
	return productToResponse(p), nil
}

func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error) {
	p, err := s.findProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	return productToResponse(p), nil
}

func (s *catalogService) findProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, newError(ErrProductNotFound, id, "product %s not found", id)
		}
		return nil, err
	}
	return p, nil
}

func (s *catalogService) ListProducts(ctx context.Context, filter dto.ProductFilter) (*dto.ProductListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	products, total, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		data = append(data, *productToResponse(&products[i]))
	}
	pages := int(total) / filter.Limit
	if int(total)%filter.Limit != 0 {
		pages++
	}
	return &dto.ProductListResponse{
		Data:       data,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: pages,
	}, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	p, err := s.findProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.SKU != nil {
		p.SKU = *req.SKU
	}
	if req.UnitPrice != nil {
		p.UnitPrice = req.UnitPrice.Round(2)
	}
	if req.CostPrice != nil {
		p.CostPrice = req.CostPrice.Round(2)
	}
	if req.TaxRate != nil {
		p.TaxRate = req.TaxRate.Round(taxRatePlaces)
	}
	if req.MinStock != nil {
		p.MinStock = *req.MinStock
	}
	if req.MaxStock != nil {
		p.MaxStock = *req.MaxStock
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	if err := s.products.Update(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, newError(ErrDuplicateRecord, id, "a product named %q or with sku %q already exists", p.Name, p.SKU).withCause(err)
		}
		return nil, err
	}
	return productToResponse(p), nil
}

// ArchiveProduct hides the product from listings and sales. Inventory and
// sale history keep referencing it.
func (s *catalogService) ArchiveProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.products.Archive(ctx, id); err != nil {
		if repository.IsNotFound(err) {
			return newError(ErrProductNotFound, id, "product %s not found", id)
		}
		return err
	}
	return nil
}

func (s *catalogService) CreateBranch(ctx context.Context, req dto.CreateBranchRequest) (*dto.BranchResponse, error) {
	role := model.RoleStandard
	if req.Role == string(model.RoleCentral) {
		role = model.RoleCentral
		if central, err := s.branches.FindCentral(ctx); err == nil {
			return nil, newError(ErrDuplicateRecord, central.ID, "branch %s is already the central warehouse", central.Code)
		} else if !repository.IsNotFound(err) {
			return nil, err
		}
	}
	b := &model.Branch{
		ID:       uuid.New(),
		Code:     req.Code,
		Name:     req.Name,
		Role:     role,
		IsActive: true,
	}
	if err := s.branches.Create(ctx, b); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, newError(ErrDuplicateRecord, nil, "branch %q already exists or a central branch is already defined", b.Code).withCause(err)
		}
		return nil, err
	}
	return branchToResponse(b), nil
}

func (s *catalogService) GetBranch(ctx context.Context, id uuid.UUID) (*dto.BranchResponse, error) {
	b, err := s.branches.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, newError(ErrNotFound, id, "branch %s not found", id)
		}
		return nil, err
	}
	return branchToResponse(b), nil
}

func (s *catalogService) ListBranches(ctx context.Context) ([]dto.BranchResponse, error) {
	branches, err := s.branches.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.BranchResponse, 0, len(branches))
	for i := range branches {
		out = append(out, *branchToResponse(&branches[i]))
	}
	return out, nil
}

func (s *catalogService) UpdateBranch(ctx context.Context, id uuid.UUID, req dto.UpdateBranchRequest) (*dto.BranchResponse, error) {
	b, err := s.branches.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, newError(ErrNotFound, id, "branch %s not found", id)
		}
		return nil, err
	}
	if req.Name != nil {
		b.Name = *req.Name
	}
	if req.IsActive != nil {
		b.IsActive = *req.IsActive
	}
	if err := s.branches.Update(ctx, b); err != nil {
		return nil, err
	}
	return branchToResponse(b), nil
}

func productToResponse(p *model.Product) *dto.ProductResponse {
	return &dto.ProductResponse{
		ID:        p.ID.String(),
		Name:      p.Name,
		SKU:       p.SKU,
		UnitPrice: p.UnitPrice,
		CostPrice: p.CostPrice,
		TaxRate:   p.TaxRate,
		MinStock:  p.MinStock,
		MaxStock:  p.MaxStock,
		IsActive:  p.IsActive,
		State:     string(p.State),
	}
}

func branchToResponse(b *model.Branch) *dto.BranchResponse {
	return &dto.BranchResponse{
		ID:       b.ID.String(),
		Code:     b.Code,
		Name:     b.Name,
		Role:     string(b.Role),
		IsActive: b.IsActive,
	}
}
