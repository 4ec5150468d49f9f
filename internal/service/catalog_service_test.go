package service_test

import (
	"context"
	"testing"

	"gamestore/internal/dto"
	"gamestore/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func productReq(name, sku, unit, cost string) dto.CreateProductRequest {
	return dto.CreateProductRequest{
		Name:      name,
		SKU:       sku,
		UnitPrice: decimal.RequireFromString(unit),
		CostPrice: decimal.RequireFromString(cost),
		TaxRate:   decimal.RequireFromString("0.16"),
		MinStock:  2,
		MaxStock:  50,
	}
}

func TestCreateProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.catalog.CreateProduct(ctx, productReq("Starfield", "GAME-STARFIELD", "69.999", "40"))
	require.NoError(t, err)
	assert.Equal(t, "70.00", resp.UnitPrice.StringFixed(2))
	assert.True(t, resp.IsActive)
	assert.Equal(t, "active", resp.State)

	_, err = f.catalog.CreateProduct(ctx, productReq("Starfield", "GAME-OTHER", "69.99", "40"))
	assert.ErrorIs(t, err, service.ErrDuplicateRecord)
}

func TestCreateProduct_CatalogInvariants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*dto.CreateProductRequest)
	}{
		{"price equal to cost", func(r *dto.CreateProductRequest) { r.CostPrice = r.UnitPrice }},
		{"price below cost", func(r *dto.CreateProductRequest) { r.CostPrice = decimal.NewFromInt(100) }},
		{"min equal to max", func(r *dto.CreateProductRequest) { r.MinStock = r.MaxStock }},
		{"tax above one", func(r *dto.CreateProductRequest) { r.TaxRate = decimal.RequireFromString("1.5") }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := productReq("Starfield", "GAME-STARFIELD", "69.99", "40")
			tc.mutate(&req)
			_, err := f.catalog.CreateProduct(ctx, req)
			assert.ErrorIs(t, err, service.ErrValidation)
		})
	}
}

func TestProduct_TaxRateRoundedToStoredPrecision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := productReq("Starfield", "GAME-STARFIELD", "69.99", "40")
	req.TaxRate = decimal.RequireFromString("0.16005")
	created, err := f.catalog.CreateProduct(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "0.1601", created.TaxRate.String())

	rate := decimal.RequireFromString("0.08123456")
	updated, err := f.catalog.UpdateProduct(ctx, uuid.MustParse(created.ID), dto.UpdateProductRequest{TaxRate: &rate})
	require.NoError(t, err)
	assert.Equal(t, "0.0812", updated.TaxRate.String())
}

func TestUpdateAndArchiveProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.catalog.CreateProduct(ctx, productReq("Starfield", "GAME-STARFIELD", "69.99", "40"))
	require.NoError(t, err)
	id := uuid.MustParse(created.ID)

	price := decimal.RequireFromString("59.99")
	updated, err := f.catalog.UpdateProduct(ctx, id, dto.UpdateProductRequest{UnitPrice: &price})
	require.NoError(t, err)
	assert.Equal(t, "59.99", updated.UnitPrice.StringFixed(2))

	cost := decimal.RequireFromString("60")
	_, err = f.catalog.UpdateProduct(ctx, id, dto.UpdateProductRequest{CostPrice: &cost})
	assert.ErrorIs(t, err, service.ErrValidation)

	require.NoError(t, f.catalog.ArchiveProduct(ctx, id))
	list, err := f.catalog.ListProducts(ctx, dto.ProductFilter{})
	require.NoError(t, err)
	assert.Zero(t, list.Total)

	all, err := f.catalog.ListProducts(ctx, dto.ProductFilter{State: "all"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), all.Total)
	assert.Equal(t, 1, all.TotalPages)

	assert.ErrorIs(t, f.catalog.ArchiveProduct(ctx, uuid.New()), service.ErrProductNotFound)
	_, err = f.catalog.GetProduct(ctx, uuid.New())
	assert.ErrorIs(t, err, service.ErrProductNotFound)
}

func TestCreateBranch_SingleCentral(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.catalog.CreateBranch(ctx, dto.CreateBranchRequest{Code: "CEDIS-001", Name: "Second warehouse", Role: "central"})
	assert.ErrorIs(t, err, service.ErrDuplicateRecord)

	b, err := f.catalog.CreateBranch(ctx, dto.CreateBranchRequest{Code: "STORE-002", Name: "Mall"})
	require.NoError(t, err)
	assert.Equal(t, "standard", b.Role)

	_, err = f.catalog.CreateBranch(ctx, dto.CreateBranchRequest{Code: "STORE-002", Name: "Mall again"})
	assert.ErrorIs(t, err, service.ErrDuplicateRecord)

	name := "Mall (north)"
	renamed, err := f.catalog.UpdateBranch(ctx, uuid.MustParse(b.ID), dto.UpdateBranchRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, renamed.Name)

	branches, err := f.catalog.ListBranches(ctx)
	require.NoError(t, err)
	assert.Len(t, branches, 3)

	_, err = f.catalog.GetBranch(ctx, uuid.New())
	assert.ErrorIs(t, err, service.ErrNotFound)
}
