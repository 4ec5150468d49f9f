package infra

import (
	"fmt"
	"time"

	"gamestore/internal/model"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewDatabase establishes a GORM connection backed by pgx, installs the
// tracing plugin, then runs RunMigrations.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         NewGormLogger(200 * time.Millisecond),
		TranslateError: false, // unique violations are detected from pgconn.PgError
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Use(otelgorm.NewPlugin()); err != nil {
		log.Warn().Err(err).Msg("db connected but failed to install otelgorm plugin")
	}

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates / updates all tables from the models, then applies
// the idempotent SQL patches GORM cannot express.
func RunMigrations(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`).Error; err != nil {
		return fmt.Errorf("pgcrypto: %w", err)
	}
	if err := db.AutoMigrate(
		&model.Product{},
		&model.Branch{},
		&model.InventoryRecord{},
		&model.Sale{},
		&model.SaleItem{},
		&model.StockMovement{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if err := applySchemaPatches(db); err != nil {
		return fmt.Errorf("schema patches: %w", err)
	}
	return nil
}

// applySchemaPatches adds CHECK constraints and partial indexes. Each
// statement is guarded by an existence check so re-running is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		{"inventory stock bounds", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_inventory_stock_bounds') THEN
    ALTER TABLE inventory_records ADD CONSTRAINT chk_inventory_stock_bounds
      CHECK (stock_current >= 0 AND stock_minimum >= 0
             AND reserved_stock >= 0 AND reserved_stock <= stock_current);
  END IF;
END $$`},
		{"single central branch", `
CREATE UNIQUE INDEX IF NOT EXISTS idx_branches_single_central
    ON branches (role) WHERE role = 'central'`},
		{"sale item quantity", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_sale_items_quantity') THEN
    ALTER TABLE sale_items ADD CONSTRAINT chk_sale_items_quantity
      CHECK (quantity > 0 AND discount_percentage BETWEEN 0 AND 100);
  END IF;
END $$`},
		{"sale status", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_sales_status') THEN
    ALTER TABLE sales ADD CONSTRAINT chk_sales_status
      CHECK (status IN ('pending', 'completed', 'cancelled', 'refunded'));
  END IF;
END $$`},
		{"product prices", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_products_prices') THEN
    ALTER TABLE products ADD CONSTRAINT chk_products_prices
      CHECK (unit_price > cost_price AND min_stock < max_stock
             AND tax_rate >= 0 AND tax_rate <= 1);
  END IF;
END $$`},
		// Low-stock listing scans active records only
		{"active low-stock index", `
CREATE INDEX IF NOT EXISTS idx_inventory_active_branch
    ON inventory_records (branch_id, stock_current) WHERE state = 'active'`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
