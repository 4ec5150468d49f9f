package worker

// alert_worker.go
// Processes stock alert jobs from QueueStockAlerts and e-mails them to the
// configured recipient. Sends go through a circuit breaker so an SMTP outage
// fails jobs fast instead of piling up timeouts.

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
)

// AlertSender delivers one alert e-mail. *infra.Mailer satisfies it.
type AlertSender interface {
	SendAlert(to, subject, body string) error
}

// Breaker runs fn unless the circuit is open. *infra.CircuitBreaker satisfies it.
type Breaker interface {
	Execute(fn func() error) error
}

type AlertWorker struct {
	sender    AlertSender
	breaker   Breaker
	recipient string
}

// NewAlertWorker creates an AlertWorker. An empty recipient makes the worker
// log alerts without sending mail.
func NewAlertWorker(sender AlertSender, breaker Breaker, recipient string) *AlertWorker {
	return &AlertWorker{sender: sender, breaker: breaker, recipient: recipient}
}

func (w *AlertWorker) Process(_ context.Context, raw json.RawMessage) error {
	var p StockAlertPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Error().Err(err).Msg("alert_worker: invalid payload")
		return nil // malformed payloads are never retried
	}

	logger := log.With().
		Str("record_id", p.RecordID).
		Str("branch", p.BranchCode).
		Str("status", p.Status).
		Logger()

	if w.recipient == "" || w.sender == nil {
		logger.Warn().Int("stock_current", p.StockCurrent).Msg("alert_worker: no recipient configured, alert logged only")
		return nil
	}

	subject, body := formatAlert(p)
	send := func() error { return w.sender.SendAlert(w.recipient, subject, body) }
	var err error
	if w.breaker != nil {
		err = w.breaker.Execute(send)
	} else {
		err = send()
	}
	if err != nil {
		logger.Error().Err(err).Msg("alert_worker: failed to send alert")
		return err
	}
	logger.Info().Str("to", w.recipient).Msg("alert_worker: alert sent")
	return nil
}

func formatAlert(p StockAlertPayload) (subject, body string) {
	label := "Low stock"
	if p.Status == "out_of_stock" {
		label = "Out of stock"
	}
	name := p.ProductName
	if name == "" {
		name = p.ProductID
	}
	subject = fmt.Sprintf("[%s] %s: %s", p.BranchCode, label, name)
	body = fmt.Sprintf("%s at branch %s\n\nProduct: %s (%s)\nCurrent stock: %d\nMinimum stock: %d\nInventory record: %s\n",
		label, p.BranchCode, name, p.ProductID, p.StockCurrent, p.StockMinimum, p.RecordID)
	return subject, body
}
