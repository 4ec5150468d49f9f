package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueStockAlerts = "jobs:stock_alerts"

	JobStockAlert = "stock_alert"

	// maxAttempts is how many times a job is processed before it is moved
	// to the dead letter queue.
	maxAttempts = 3

	alertDedupPrefix = "alert:"
	alertDedupTTL    = time.Hour

	// popErrorBackoff pauses a worker after a failed BRPOP (Redis unreachable).
	popErrorBackoff = time.Second
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// Handler processes the payload of one job type. A returned error requeues
// the job until maxAttempts is reached.
type Handler interface {
	Process(ctx context.Context, raw json.RawMessage) error
}

// StockAlertPayload describes an inventory record that crossed into
// low_stock or out_of_stock.
type StockAlertPayload struct {
	RecordID     string `json:"record_id"`
	ProductID    string `json:"product_id"`
	ProductName  string `json:"product_name"`
	BranchID     string `json:"branch_id"`
	BranchCode   string `json:"branch_code"`
	StockCurrent int    `json:"stock_current"`
	StockMinimum int    `json:"stock_minimum"`
	Status       string `json:"status"`
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueStockAlert pushes an alert job unless the same record was already
// alerted with the same status within the last hour.
func (d *Dispatcher) EnqueueStockAlert(ctx context.Context, p StockAlertPayload) error {
	key := fmt.Sprintf("%s%s:%s", alertDedupPrefix, p.RecordID, p.Status)
	fresh, err := d.rdb.SetNX(ctx, key, 1, alertDedupTTL).Result()
	if err != nil {
		return err
	}
	if !fresh {
		log.Debug().Str("record_id", p.RecordID).Str("status", p.Status).Msg("stock alert suppressed")
		return nil
	}
	if err := d.enqueue(ctx, QueueStockAlerts, JobStockAlert, p); err != nil {
		// Release the key so the next change of this record alerts again
		if delErr := d.rdb.Del(context.WithoutCancel(ctx), key).Err(); delErr != nil {
			log.Warn().Err(delErr).Str("key", key).Msg("stock alert: dedup key not released")
		}
		return err
	}
	return nil
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return push(ctx, d.rdb, queue, Job{Type: jobType, Payload: data})
}

func push(ctx context.Context, rdb *redis.Client, queue string, job Job) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return rdb.LPush(ctx, queue, encoded).Err()
}

// StartWorkerPool launches numWorkers goroutines consuming the alert queue.
// Each goroutine blocks on BRPOP, zero CPU when idle.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, numWorkers int, handlers map[string]Handler) {
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, i, handlers)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func runWorker(ctx context.Context, rdb *redis.Client, id int, handlers map[string]Handler) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop, waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, QueueStockAlerts).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) || ctx.Err() != nil {
					continue // timeout or context cancelled
				}
				log.Warn().Err(err).Int("worker", id).Msg("queue pop failed")
				select {
				case <-ctx.Done():
				case <-time.After(popErrorBackoff):
				}
				continue
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, rdb, handlers, result[0], result[1])
		}
	}
}

func processJob(ctx context.Context, rdb *redis.Client, handlers map[string]Handler, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return
	}
	h, ok := handlers[job.Type]
	if !ok {
		SendToDLQ(ctx, rdb, queue, job.Type, job.Payload, "no handler registered", job.Attempts)
		return
	}

	err := h.Process(ctx, job.Payload)
	if err == nil {
		return
	}
	job.Attempts++
	if job.Attempts >= maxAttempts {
		SendToDLQ(ctx, rdb, queue, job.Type, job.Payload, err.Error(), job.Attempts)
		return
	}
	log.Warn().Err(err).Str("type", job.Type).Int("attempts", job.Attempts).Msg("job failed, requeueing")
	if pushErr := push(ctx, rdb, queue, job); pushErr != nil {
		log.Error().Err(pushErr).Str("queue", queue).Msg("failed to requeue job")
	}
}
