package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/x402labs/x402gate/internal/config"
	"github.com/x402labs/x402gate/internal/model"
)

// QuoteCache is the optional short-TTL cache in front of the quote
// pipeline, keyed by (intent, amount, allocation).
type QuoteCache interface {
	Get(ctx context.Context, key string) (*model.Quote, bool)
	Set(ctx context.Context, key string, quote *model.Quote)
}

// ExecutionLock is the fast-path guard against double execution. The
// store-level compare-and-swap remains authoritative; the lock just
// keeps concurrent callers from both reaching the executor.
type ExecutionLock interface {
	Claim(ctx context.Context, orderID string) (bool, error)
	Release(ctx context.Context, orderID string)
}

// QuoteCacheKey hashes the quote inputs into a cache key.
func QuoteCacheKey(intent string, amount float64, alloc model.Allocation) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%.4f|%.2f|%.2f|%.2f", intent, amount, alloc.Stable, alloc.Liquid, alloc.Growth)))
	return "quote:" + hex.EncodeToString(sum[:])
}

type RedisClient struct {
	Client   *redis.Client
	quoteTTL time.Duration
	claimTTL time.Duration
}

func NewRedisClient(cfg *config.Config) (*RedisClient, error) {
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis address is empty")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisClient{
		Client:   rdb,
		quoteTTL: time.Duration(cfg.Redis.QuoteCacheTTLSeconds) * time.Second,
		claimTTL: time.Duration(cfg.Redis.ClaimTTLSeconds) * time.Second,
	}, nil
}

func (r *RedisClient) Get(ctx context.Context, key string) (*model.Quote, bool) {
	raw, err := r.Client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var quote model.Quote
	if err := json.Unmarshal(raw, &quote); err != nil {
		return nil, false
	}
	return &quote, true
}

func (r *RedisClient) Set(ctx context.Context, key string, quote *model.Quote) {
	raw, err := json.Marshal(quote)
	if err != nil {
		return
	}
	_ = r.Client.Set(ctx, key, raw, r.quoteTTL).Err()
}

func (r *RedisClient) Claim(ctx context.Context, orderID string) (bool, error) {
	ok, err := r.Client.SetNX(ctx, "exec:"+orderID, "1", r.claimTTL).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, err
	}
	return ok, nil
}

func (r *RedisClient) Release(ctx context.Context, orderID string) {
	_ = r.Client.Del(ctx, "exec:"+orderID).Err()
}

// MemoryLock is the in-process ExecutionLock fallback.
type MemoryLock struct {
	mu     sync.Mutex
	claims map[string]struct{}
}

func NewMemoryLock() *MemoryLock {
	return &MemoryLock{claims: make(map[string]struct{})}
}

func (l *MemoryLock) Claim(_ context.Context, orderID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, held := l.claims[orderID]; held {
		return false, nil
	}
	l.claims[orderID] = struct{}{}
	return true, nil
}

func (l *MemoryLock) Release(_ context.Context, orderID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.claims, orderID)
}
