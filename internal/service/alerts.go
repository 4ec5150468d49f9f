package service

import (
	"context"

	"gamestore/internal/model"
	"gamestore/internal/worker"

	"github.com/rs/zerolog/log"
)

// StockAlerter queues low/out-of-stock notifications. *worker.Dispatcher
// satisfies it.
type StockAlerter interface {
	EnqueueStockAlert(ctx context.Context, p worker.StockAlertPayload) error
}

// notifyStock enqueues an alert for every record that needs attention. It is
// called after commit and never fails the caller.
func notifyStock(ctx context.Context, alerter StockAlerter, recs []model.InventoryRecord) {
	if alerter == nil {
		return
	}
	for i := range recs {
		rec := &recs[i]
		status := rec.Status()
		if !status.NeedsAttention() {
			continue
		}
		p := worker.StockAlertPayload{
			RecordID:     rec.ID.String(),
			ProductID:    rec.ProductID.String(),
			BranchID:     rec.BranchID.String(),
			StockCurrent: rec.StockCurrent,
			StockMinimum: rec.StockMinimum,
			Status:       string(status),
		}
		if rec.Product != nil {
			p.ProductName = rec.Product.Name
		}
		if rec.Branch != nil {
			p.BranchCode = rec.Branch.Code
		}
		if err := alerter.EnqueueStockAlert(ctx, p); err != nil {
			log.Warn().Err(err).Str("record_id", p.RecordID).Msg("stock alert: enqueue failed")
		}
	}
}
