package nameseed

import (
	"context"
	"sync"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/shopspring/decimal"
)

// Cache holds the hot values the jobs keep fresh: the ETH/USD rate the
// oracle converts with and the last chain height the deposit watcher saw.
type Cache struct {
	usdPerEth decimal.Decimal
	updatedAt time.Time
	height    int64
	lock      sync.RWMutex
}

func NewCache(initialRate decimal.Decimal) *Cache {
	return &Cache{usdPerEth: initialRate}
}

// UsdPerEth satisfies RateSource.
func (c *Cache) UsdPerEth() (decimal.Decimal, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	if c.usdPerEth.Sign() <= 0 {
		return decimal.Zero, ErrNotExist
	}
	return c.usdPerEth, nil
}

func (c *Cache) UpdateRate(rate decimal.Decimal) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.usdPerEth = rate
	c.updatedAt = time.Now()
}

func (c *Cache) RateUpdatedAt() time.Time {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.updatedAt
}

func (c *Cache) GetHeight() int64 {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.height
}

func (c *Cache) UpdateHeight(h int64) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.height = h
}

// LocalCache fronts the read-only record lookups served by the API.
type LocalCache struct {
	Cache *bigcache.BigCache
}

func NewLocalCache(duration time.Duration) (*LocalCache, error) {
	cache, err := bigcache.New(context.Background(), bigcache.DefaultConfig(duration))
	if err != nil {
		return nil, err
	}
	return &LocalCache{Cache: cache}, nil
}
