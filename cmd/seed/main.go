// cmd/seed loads the demo catalog: the central warehouse, two stores, a few
// products and their initial allocations. Safe to run repeatedly.
// Usage: go run ./cmd/seed
package main

import (
	"context"
	"os"
	"time"

	"gamestore/internal/config"
	"gamestore/internal/infra"
	"gamestore/internal/model"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type seedProduct struct {
	name, sku        string
	unit, cost, tax  string
	minStock, maxStk int
	central, store   int
}

var products = []seedProduct{
	{"Elden Ring (PS5)", "GAME-ELDEN-PS5", "59.90", "38.00", "0.16", 5, 200, 120, 12},
	{"Zelda: Tears of the Kingdom", "GAME-ZELDA-TOTK", "69.90", "45.00", "0.16", 5, 200, 80, 8},
	{"DualSense Controller", "ACC-DUALSENSE", "74.99", "52.00", "0.16", 3, 100, 40, 4},
	{"Xbox Game Pass 3M", "CARD-GPASS-3M", "29.99", "24.00", "0", 10, 500, 300, 25},
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	ctx := context.Background()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		central, err := upsertBranch(tx, model.CentralBranchCode, "Central distribution warehouse", model.RoleCentral)
		if err != nil {
			return err
		}
		stores := make([]*model.Branch, 0, 2)
		for _, b := range [][2]string{{"STORE-001", "Downtown"}, {"STORE-002", "Mall"}} {
			s, err := upsertBranch(tx, b[0], b[1], model.RoleStandard)
			if err != nil {
				return err
			}
			stores = append(stores, s)
		}

		for _, sp := range products {
			p := &model.Product{
				Name:      sp.name,
				SKU:       sp.sku,
				UnitPrice: decimal.RequireFromString(sp.unit),
				CostPrice: decimal.RequireFromString(sp.cost),
				TaxRate:   decimal.RequireFromString(sp.tax),
				MinStock:  sp.minStock,
				MaxStock:  sp.maxStk,
				IsActive:  true,
				State:     model.StateActive,
			}
			if err := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "sku"}}, DoNothing: true}).Create(p).Error; err != nil {
				return err
			}
			if err := tx.Where("sku = ?", sp.sku).First(p).Error; err != nil {
				return err
			}
			if err := allocate(tx, p, central, sp.central); err != nil {
				return err
			}
			for _, s := range stores {
				if err := allocate(tx, p, s, sp.store); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}
	log.Info().Int("products", len(products)).Msg("seed complete")
}

func upsertBranch(tx *gorm.DB, code, name string, role model.BranchRole) (*model.Branch, error) {
	b := &model.Branch{Code: code, Name: name, Role: role, IsActive: true}
	if err := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "code"}}, DoNothing: true}).Create(b).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("code = ?", code).First(b).Error; err != nil {
		return nil, err
	}
	return b, nil
}

func allocate(tx *gorm.DB, p *model.Product, b *model.Branch, qty int) error {
	rec := &model.InventoryRecord{
		ProductID:    p.ID,
		BranchID:     b.ID,
		StockCurrent: qty,
		StockMinimum: p.MinStock,
		State:        model.StateActive,
	}
	return tx.Omit(clause.Associations).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "product_id"}, {Name: "branch_id"}}, DoNothing: true}).
		Create(rec).Error
}
