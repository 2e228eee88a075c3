package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/fjod/go_bookstore/internal/domain"
	"github.com/redis/go-redis/v9"
)

const catalogKey = "books:all"

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: 15 * time.Minute,
	}
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r RedisCache) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	var product domain.Product
	if err := r.get(ctx, productKey(id), &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (r RedisCache) SetProduct(ctx context.Context, product *domain.Product) error {
	return r.set(ctx, productKey(product.ID), product)
}

func (r RedisCache) GetCatalog(ctx context.Context) ([]*domain.Product, error) {
	var products []*domain.Product
	if err := r.get(ctx, catalogKey, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (r RedisCache) SetCatalog(ctx context.Context, products []*domain.Product) error {
	return r.set(ctx, catalogKey, products)
}

func (r RedisCache) Invalidate(ctx context.Context, id int64) error {
	if err := r.client.Del(ctx, productKey(id), catalogKey).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r RedisCache) get(ctx context.Context, key string, dst any) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("redis get failed: %w", err)
	}

	if err2 := json.Unmarshal(data, dst); err2 != nil {
		return fmt.Errorf("unmarshal %s failed: %w", key, err2)
	}
	return nil
}

func (r RedisCache) set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s failed: %w", key, err)
	}

	jitter := time.Duration(rand.Intn(5)) * time.Minute
	ttl := r.baseTTL + jitter
	if err := r.client.Set(ctx, key, string(data), ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func productKey(id int64) string {
	return fmt.Sprintf("book:%d", id)
}
