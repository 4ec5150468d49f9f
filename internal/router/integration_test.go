//go:build integration

package router_test

// Integration tests against real Postgres and Redis via testcontainers.
// Run with: go test -tags integration ./internal/router/... -v
//
// They cover what the in-memory stubs cannot: row locks under concurrent
// checkouts, CHECK constraints, the alert queue and the allocation lock.

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"gamestore/internal/config"
	"gamestore/internal/infra"
	"gamestore/internal/middleware"
	"gamestore/internal/router"
	"gamestore/internal/worker"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// ── Helpers ──────────────────────────────────────────────────────────────────

type testEnv struct {
	server *httptest.Server
	rdb    *redis.Client
	token  string // admin JWT
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("gamestore_test"),
		tcPostgres.WithUsername("gamestore"),
		tcPostgres.WithPassword("gamestore"),
		testcontainers.WithWaitStrategy(tcPostgres.BasicWaitStrategies()...),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })
	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.RunContainer(ctx, testcontainers.WithImage("redis:7-alpine"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })
	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Env:                     "test",
		JWTSecret:               "integration-secret",
		JWTExpirationHours:      1,
		DatabaseURL:             pgURL,
		RedisURL:                rdURL,
		ProductCacheTTL:         time.Minute,
		StrictCentralAllocation: true,
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)
	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)

	srv := httptest.NewServer(router.New(cfg, db, rdb, worker.NewDispatcher(rdb)))
	t.Cleanup(srv.Close)

	tok, err := middleware.SignToken(cfg.JWTSecret, uuid.New(), "admin", middleware.RoleAdmin, nil, time.Hour)
	require.NoError(t, err)
	return &testEnv{server: srv, rdb: rdb, token: tok}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.token)
	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func (e *testEnv) mustCreate(t *testing.T, path string, body any) string {
	t.Helper()
	status, out := e.do(t, http.MethodPost, path, body)
	require.Equal(t, http.StatusCreated, status, "%v", out)
	return out["id"].(string)
}

type catalog struct {
	central, store, product string
}

func (e *testEnv) seed(t *testing.T, unitPrice string) catalog {
	t.Helper()
	c := catalog{
		central: e.mustCreate(t, "/v1/branches", map[string]any{"code": "CEDIS-000", "name": "Central", "role": "central"}),
		store:   e.mustCreate(t, "/v1/branches", map[string]any{"code": "STORE-001", "name": "Downtown"}),
	}
	c.product = e.mustCreate(t, "/v1/products", map[string]any{
		"name": "Elden Ring (PS5)", "sku": "GAME-ELDEN-PS5",
		"unit_price": unitPrice, "cost_price": "60", "tax_rate": "0",
		"min_stock": 2, "max_stock": 200,
	})
	return c
}

func sale(branch string, lines ...map[string]any) map[string]any {
	return map[string]any{"branch_id": branch, "payment_method": "cash", "items": lines}
}

func item(product string, qty int, pct string) map[string]any {
	return map[string]any{"product_id": product, "quantity": qty, "discount_percentage": pct}
}

// money normalises a decimal JSON field, which may be encoded with or
// without trailing zeros.
func money(t *testing.T, v any) string {
	t.Helper()
	s, ok := v.(string)
	require.True(t, ok, "expected decimal string, got %T", v)
	return decimal.RequireFromString(s).StringFixed(2)
}

func stockOf(t *testing.T, e *testEnv, recordID string) int {
	t.Helper()
	status, out := e.do(t, http.MethodGet, "/v1/inventory/"+recordID, nil)
	require.Equal(t, http.StatusOK, status)
	return int(out["stock_current"].(float64))
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestIntegration_AllocationSaleAndReversal(t *testing.T) {
	env := setupTestEnv(t)
	c := env.seed(t, "100")

	env.mustCreate(t, "/v1/inventory", map[string]any{"product_id": c.product, "branch_id": c.central, "quantity": 50})

	status, out := env.do(t, http.MethodPost, "/v1/inventory", map[string]any{"product_id": c.product, "branch_id": c.store, "quantity": 60})
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "exceeds_central_stock", out["code"])

	rec := env.mustCreate(t, "/v1/inventory", map[string]any{"product_id": c.product, "branch_id": c.store, "quantity": 5})

	status, out = env.do(t, http.MethodPost, "/v1/inventory", map[string]any{"product_id": c.product, "branch_id": c.store, "quantity": 3})
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "duplicate_record", out["code"])
	assert.Equal(t, 5, stockOf(t, env, rec))

	status, out = env.do(t, http.MethodPost, "/v1/sales", sale(c.store, item(c.product, 3, "10")))
	require.Equal(t, http.StatusCreated, status, "%v", out)
	assert.Equal(t, "300.00", money(t, out["subtotal"]))
	assert.Equal(t, "30.00", money(t, out["discount_amount"]))
	assert.Equal(t, "270.00", money(t, out["total_amount"]))
	saleID := out["id"].(string)
	assert.Equal(t, 2, stockOf(t, env, rec))

	status, out = env.do(t, http.MethodPost, "/v1/sales", sale(c.store, item(c.product, 6, "0")))
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "insufficient_stock", out["code"])
	assert.Equal(t, 2, stockOf(t, env, rec))

	status, _ = env.do(t, http.MethodPost, "/v1/sales/"+saleID+"/cancel", map[string]string{"reason": "test"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 5, stockOf(t, env, rec))

	status, _ = env.do(t, http.MethodPost, "/v1/sales/"+saleID+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, 5, stockOf(t, env, rec))

	status, out = env.do(t, http.MethodGet, "/v1/inventory/"+rec+"/movements", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, out["data"], 3) // allocation, sale, reversal

	status, out = env.do(t, http.MethodDelete, "/v1/inventory/"+rec+"?hard=true", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "has_dependent_sales", out["code"])

	status, out = env.do(t, http.MethodDelete, "/v1/inventory/"+rec, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "archived", out["result"])

	status, out = env.do(t, http.MethodGet, "/v1/sales/"+saleID, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "cancelled", out["status"])
}

// Two checkouts of 6 against a stock of 10: row locks let exactly one through.
func TestIntegration_ConcurrentSalesNeverOversell(t *testing.T) {
	env := setupTestEnv(t)
	c := env.seed(t, "100")
	env.mustCreate(t, "/v1/inventory", map[string]any{"product_id": c.product, "branch_id": c.central, "quantity": 100})
	rec := env.mustCreate(t, "/v1/inventory", map[string]any{"product_id": c.product, "branch_id": c.store, "quantity": 10})

	statuses := make([]int, 2)
	var wg sync.WaitGroup
	for i := range statuses {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			statuses[i], _ = env.do(t, http.MethodPost, "/v1/sales", sale(c.store, item(c.product, 6, "0")))
		}(i)
	}
	wg.Wait()

	assert.ElementsMatch(t, []int{http.StatusCreated, http.StatusConflict}, statuses)
	assert.Equal(t, 4, stockOf(t, env, rec))

	// Many single-unit checkouts drain the remaining 4 exactly
	results := make([]int, 12)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = env.do(t, http.MethodPost, "/v1/sales", sale(c.store, item(c.product, 1, "0")))
		}(i)
	}
	wg.Wait()

	created := 0
	for _, s := range results {
		if s == http.StatusCreated {
			created++
		}
	}
	assert.Equal(t, 4, created)
	assert.Equal(t, 0, stockOf(t, env, rec))
}

func TestIntegration_StockAlertsAreQueuedOnce(t *testing.T) {
	env := setupTestEnv(t)
	c := env.seed(t, "100")
	env.mustCreate(t, "/v1/inventory", map[string]any{"product_id": c.product, "branch_id": c.central, "quantity": 100})
	env.mustCreate(t, "/v1/inventory", map[string]any{"product_id": c.product, "branch_id": c.store, "quantity": 10, "min_stock": 5})
	ctx := context.Background()

	status, _ := env.do(t, http.MethodPost, "/v1/sales", sale(c.store, item(c.product, 6, "0")))
	require.Equal(t, http.StatusCreated, status)
	status, _ = env.do(t, http.MethodPost, "/v1/sales", sale(c.store, item(c.product, 1, "0")))
	require.Equal(t, http.StatusCreated, status)

	// 4 then 3 units: both low_stock, only the first is queued
	n, err := env.rdb.LLen(ctx, worker.QueueStockAlerts).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	status, _ = env.do(t, http.MethodPost, "/v1/sales", sale(c.store, item(c.product, 3, "0")))
	require.Equal(t, http.StatusCreated, status)
	n, err = env.rdb.LLen(ctx, worker.QueueStockAlerts).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	status, out := env.do(t, http.MethodGet, "/v1/inventory/alerts?branch_id="+c.store, nil)
	require.Equal(t, http.StatusOK, status, "%v", out)
}

func TestIntegration_ProductCacheIsInvalidatedOnUpdate(t *testing.T) {
	env := setupTestEnv(t)
	c := env.seed(t, "100")
	ctx := context.Background()

	status, _ := env.do(t, http.MethodGet, "/v1/products/"+c.product, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = env.do(t, http.MethodPut, "/v1/products/"+c.product, map[string]any{"unit_price": "120"})
	require.Equal(t, http.StatusOK, status)
	exists, err := env.rdb.Exists(ctx, "product:"+c.product).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)

	status, out := env.do(t, http.MethodGet, "/v1/products/"+c.product, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "120.00", money(t, out["unit_price"]))
}

func TestIntegration_AllocationLockSerialisesProduct(t *testing.T) {
	env := setupTestEnv(t)
	locker := infra.NewAllocationLocker(env.rdb)
	ctx := context.Background()
	id := uuid.New()

	release, err := locker.Lock(ctx, id)
	require.NoError(t, err)

	shortCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(shortCtx, id)
	assert.Error(t, err)

	release()
	release2, err := locker.Lock(ctx, id)
	require.NoError(t, err)
	release2()
}

func TestIntegration_Health(t *testing.T) {
	e := setupTestEnv(t)

	status, out := e.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, out["ok"])
	assert.Equal(t, "connected", out["db"])
	assert.Equal(t, "connected", out["redis"])
	assert.Equal(t, float64(0), out["alerts_dlq"])
}
