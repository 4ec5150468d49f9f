package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gamestore/internal/dto"
	"gamestore/internal/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const productCachePrefix = "product:"

// cachedProductRepo is a read-through Redis cache in front of a
// ProductRepository. Only FindByID is cached; writes invalidate the key.
// Redis failures degrade to the wrapped repository.
type cachedProductRepo struct {
	next ProductRepository
	rdb  *redis.Client
	ttl  time.Duration
}

// NewCachedProductRepository wraps next with a Redis cache. A nil client
// returns next unchanged.
func NewCachedProductRepository(next ProductRepository, rdb *redis.Client, ttl time.Duration) ProductRepository {
	if rdb == nil {
		return next
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &cachedProductRepo{next: next, rdb: rdb, ttl: ttl}
}

func cacheKey(id uuid.UUID) string { return productCachePrefix + id.String() }

func (c *cachedProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	raw, err := c.rdb.Get(ctx, cacheKey(id)).Bytes()
	if err == nil {
		var p model.Product
		if jsonErr := json.Unmarshal(raw, &p); jsonErr == nil {
			return &p, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		log.Warn().Err(err).Str("product_id", id.String()).Msg("product cache: get failed")
	}

	p, err := c.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b, jsonErr := json.Marshal(p); jsonErr == nil {
		if setErr := c.rdb.Set(ctx, cacheKey(id), b, c.ttl).Err(); setErr != nil {
			log.Warn().Err(setErr).Str("product_id", id.String()).Msg("product cache: set failed")
		}
	}
	return p, nil
}

func (c *cachedProductRepo) invalidate(ctx context.Context, id uuid.UUID) {
	if err := c.rdb.Del(ctx, cacheKey(id)).Err(); err != nil {
		log.Warn().Err(err).Str("product_id", id.String()).Msg("product cache: invalidate failed")
	}
}

func (c *cachedProductRepo) Create(ctx context.Context, p *model.Product) error {
	return c.next.Create(ctx, p)
}

func (c *cachedProductRepo) FindByIDsTx(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]model.Product, error) {
	return c.next.FindByIDsTx(ctx, tx, ids)
}

func (c *cachedProductRepo) List(ctx context.Context, filter dto.ProductFilter) ([]model.Product, int64, error) {
	return c.next.List(ctx, filter)
}

func (c *cachedProductRepo) Update(ctx context.Context, p *model.Product) error {
	if err := c.next.Update(ctx, p); err != nil {
		return err
	}
	c.invalidate(ctx, p.ID)
	return nil
}

func (c *cachedProductRepo) Archive(ctx context.Context, id uuid.UUID) error {
	if err := c.next.Archive(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}
