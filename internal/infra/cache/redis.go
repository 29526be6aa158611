package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"app/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

const (
	catalogKey        = "catalog:contract_types"
	checkoutKeyPrefix = "checkout:summary:"
)

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:      client,
		baseTTL:     15 * time.Minute,
		checkoutTTL: 30 * time.Minute,
	}
}

type RedisCache struct {
	client      *redis.Client
	baseTTL     time.Duration
	checkoutTTL time.Duration
}

func (r *RedisCache) GetActiveTypes(ctx context.Context) ([]model.ContractType, error) {
	data, err := r.client.Get(ctx, catalogKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var types []model.ContractType
	if err2 := json.Unmarshal(data, &types); err2 != nil {
		return nil, fmt.Errorf("unmarshal contract types failed: %w", err2)
	}

	return types, nil
}

func (r *RedisCache) SetActiveTypes(ctx context.Context, types []model.ContractType) error {
	data, err := json.Marshal(types)
	if err != nil {
		return fmt.Errorf("marshal contract types failed: %w", err)
	}

	// 同時失効を避けるためTTLにジッタを入れる
	jitter := time.Duration(rand.Intn(5)) * time.Minute
	ttl := r.baseTTL + jitter
	if err := r.client.Set(ctx, catalogKey, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Invalidate(ctx context.Context) error {
	if err := r.client.Del(ctx, catalogKey).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Put(ctx context.Context, key string, summary []byte) error {
	if err := r.client.Set(ctx, checkoutKeyPrefix+key, summary, r.checkoutTTL).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// GETDELで取り出しと削除を原子的に行う。2回目はErrCacheMiss。
func (r *RedisCache) Take(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.GetDel(ctx, checkoutKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis getdel failed: %w", err)
	}
	return data, nil
}
