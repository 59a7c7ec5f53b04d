package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// StockCache keeps recently read on-hand quantities per warehouse and item.
// It is a read-through cache; ledger writes invalidate the affected keys so
// stale values never survive a committed movement.
type StockCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStockCache(client *redis.Client, ttl time.Duration) *StockCache {
	return &StockCache{client: client, ttl: ttl}
}

func stockKey(warehouseID int64, itemKind string, itemID int64) string {
	return fmt.Sprintf("stock:%d:%s:%d", warehouseID, itemKind, itemID)
}

// Get returns the cached quantity, or ok=false on a miss.
func (c *StockCache) Get(ctx context.Context, warehouseID int64, itemKind string, itemID int64) (int64, bool) {
	val, err := c.client.Get(ctx, stockKey(warehouseID, itemKind, itemID)).Result()
	if err != nil {
		return 0, false
	}
	qty, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false
	}
	return qty, true
}

// Set stores a quantity with the configured TTL.
func (c *StockCache) Set(ctx context.Context, warehouseID int64, itemKind string, itemID int64, qty int64) {
	_ = c.client.Set(ctx, stockKey(warehouseID, itemKind, itemID), strconv.FormatInt(qty, 10), c.ttl).Err()
}

// Invalidate drops the cached quantity for one item.
func (c *StockCache) Invalidate(ctx context.Context, warehouseID int64, itemKind string, itemID int64) {
	_ = c.client.Del(ctx, stockKey(warehouseID, itemKind, itemID)).Err()
}
