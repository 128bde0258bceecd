package cache

import (
	"sync"
	"time"

	"github.com/prajwalbharadwajbm/pledgeswap/internal/models"
)

// cacheItem represents a cached snapshot with expiration
type cacheItem struct {
	snapshot  models.CampaignSnapshot
	expiresAt time.Time
}

func (ci *cacheItem) isExpired(now time.Time) bool {
	return now.After(ci.expiresAt)
}

// memoryCache implements in-memory caching with TTL
type memoryCache struct {
	items    map[string]*cacheItem
	mu       sync.RWMutex
	maxSize  int
	now      func() time.Time
	stopChan chan struct{}
	stopOnce sync.Once
}

// newMemoryCache creates a new in-memory cache and starts its janitor
func newMemoryCache(maxSize int) *memoryCache {
	mc := &memoryCache{
		items:    make(map[string]*cacheItem),
		maxSize:  maxSize,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	go mc.cleanup(5 * time.Minute)

	return mc
}

func (mc *memoryCache) getCampaign(key string) (models.CampaignSnapshot, bool) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	item, exists := mc.items[key]
	if !exists || item.isExpired(mc.now()) {
		return models.CampaignSnapshot{}, false
	}
	return item.snapshot, true
}

func (mc *memoryCache) setCampaign(key string, snapshot models.CampaignSnapshot, ttl time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.store(key, snapshot, ttl, mc.now())
}

func (mc *memoryCache) addCampaign(key string, snapshot models.CampaignSnapshot, ttl time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := mc.now()
	if item, exists := mc.items[key]; exists && !item.isExpired(now) {
		return
	}
	mc.store(key, snapshot, ttl, now)
}

// store requires mc.mu held
func (mc *memoryCache) store(key string, snapshot models.CampaignSnapshot, ttl time.Duration, now time.Time) {
	if snapshot.ExecutedAt != nil {
		executedAt := *snapshot.ExecutedAt
		snapshot.ExecutedAt = &executedAt
	}
	mc.items[key] = &cacheItem{
		snapshot:  snapshot,
		expiresAt: now.Add(ttl),
	}

	mc.evictIfNeeded(now)
}

func (mc *memoryCache) delete(key string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	delete(mc.items, key)
}

// clear removes all items from memory cache
func (mc *memoryCache) clear() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.items = make(map[string]*cacheItem)
}

// evictIfNeeded removes expired items, then the soonest-expiring ones over maxSize.
// Requires mc.mu held.
func (mc *memoryCache) evictIfNeeded(now time.Time) {
	for key, item := range mc.items {
		if item.isExpired(now) {
			delete(mc.items, key)
		}
	}

	for len(mc.items) > mc.maxSize {
		var victim string
		var earliest time.Time
		for key, item := range mc.items {
			if victim == "" || item.expiresAt.Before(earliest) {
				victim, earliest = key, item.expiresAt
			}
		}
		delete(mc.items, victim)
	}
}

// cleanup periodically removes expired items
func (mc *memoryCache) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			mc.mu.Lock()
			now := mc.now()
			for key, item := range mc.items {
				if item.isExpired(now) {
					delete(mc.items, key)
				}
			}
			mc.mu.Unlock()
		case <-mc.stopChan:
			return
		}
	}
}

// close stops the cleanup goroutine
func (mc *memoryCache) close() {
	mc.stopOnce.Do(func() { close(mc.stopChan) })
}

// size returns the current number of items in cache
func (mc *memoryCache) size() int {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return len(mc.items)
}
