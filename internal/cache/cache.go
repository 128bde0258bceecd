package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prajwalbharadwajbm/pledgeswap/internal/models"
)

// Cache defines the interface for campaign snapshot caching
type Cache interface {
	GetCampaign(ctx context.Context, id uint64) (*models.CampaignSnapshot, error)
	SetCampaign(ctx context.Context, snapshot models.CampaignSnapshot, ttl time.Duration) error
	// AddCampaign stores the snapshot only when the campaign is not cached yet
	AddCampaign(ctx context.Context, snapshot models.CampaignSnapshot, ttl time.Duration) error

	// Cache management
	InvalidateCampaign(ctx context.Context, id uint64) error
	InvalidateAll(ctx context.Context) error
	GetStats() CacheStats
}

// CacheStats holds cache performance statistics
type CacheStats struct {
	Hits        int64     `json:"hits"`
	Misses      int64     `json:"misses"`
	Errors      int64     `json:"errors"`
	HitRatio    float64   `json:"hit_ratio"`
	TotalOps    int64     `json:"total_ops"`
	LastUpdated time.Time `json:"last_updated"`
}

// HybridCache implements both in-memory and Redis caching.
// Memory is consulted first; Redis hits warm the memory layer.
type HybridCache struct {
	memoryCache *memoryCache
	redisCache  *redisCache
	config      CacheConfig
	stats       CacheStats
	mu          sync.RWMutex
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	DefaultTTL      time.Duration
	MemoryCacheSize int
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	EnableMemory    bool
	EnableRedis     bool
}

// NewHybridCache creates a new hybrid cache
func NewHybridCache(config CacheConfig) (*HybridCache, error) {
	hc := &HybridCache{
		config: config,
		stats: CacheStats{
			LastUpdated: time.Now(),
		},
	}

	if config.EnableMemory {
		hc.memoryCache = newMemoryCache(config.MemoryCacheSize)
	}

	if config.EnableRedis {
		var err error
		hc.redisCache, err = newRedisCache(config)
		if err != nil {
			if hc.memoryCache != nil {
				hc.memoryCache.close()
			}
			return nil, fmt.Errorf("failed to initialize Redis cache: %w", err)
		}
	}

	return hc, nil
}

func campaignKey(id uint64) string {
	return fmt.Sprintf("campaign:%d", id)
}

// GetCampaign retrieves a snapshot from cache (memory first, then Redis, then miss)
func (hc *HybridCache) GetCampaign(ctx context.Context, id uint64) (*models.CampaignSnapshot, error) {
	key := campaignKey(id)

	if hc.memoryCache != nil {
		if snapshot, found := hc.memoryCache.getCampaign(key); found {
			hc.recordHit()
			return &snapshot, nil
		}
	}

	if hc.redisCache != nil {
		snapshot, err := hc.redisCache.getCampaign(ctx, key)
		if err == nil {
			hc.recordHit()
			if hc.memoryCache != nil {
				hc.memoryCache.addCampaign(key, *snapshot, hc.config.DefaultTTL)
			}
			return snapshot, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			hc.recordError()
		}
	}

	hc.recordMiss()
	return nil, ErrCacheMiss
}

// SetCampaign stores a snapshot in both caches
func (hc *HybridCache) SetCampaign(ctx context.Context, snapshot models.CampaignSnapshot, ttl time.Duration) error {
	key := campaignKey(snapshot.ID)
	var errs []error

	if hc.memoryCache != nil {
		hc.memoryCache.setCampaign(key, snapshot, ttl)
	}

	if hc.redisCache != nil {
		if err := hc.redisCache.setCampaign(ctx, key, snapshot, ttl); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		hc.recordError()
		return fmt.Errorf("cache store errors: %v", errs)
	}

	return nil
}

// AddCampaign stores a snapshot in each cache that does not hold the campaign yet
func (hc *HybridCache) AddCampaign(ctx context.Context, snapshot models.CampaignSnapshot, ttl time.Duration) error {
	key := campaignKey(snapshot.ID)

	if hc.memoryCache != nil {
		hc.memoryCache.addCampaign(key, snapshot, ttl)
	}

	if hc.redisCache != nil {
		if err := hc.redisCache.addCampaign(ctx, key, snapshot, ttl); err != nil {
			hc.recordError()
			return fmt.Errorf("cache store error: %w", err)
		}
	}

	return nil
}

// InvalidateCampaign drops one campaign from both caches
func (hc *HybridCache) InvalidateCampaign(ctx context.Context, id uint64) error {
	key := campaignKey(id)

	if hc.memoryCache != nil {
		hc.memoryCache.delete(key)
	}

	if hc.redisCache != nil {
		if err := hc.redisCache.delete(ctx, key); err != nil {
			hc.recordError()
			return fmt.Errorf("cache invalidation error: %w", err)
		}
	}

	return nil
}

// InvalidateAll clears all caches
func (hc *HybridCache) InvalidateAll(ctx context.Context) error {
	var errs []error

	if hc.memoryCache != nil {
		hc.memoryCache.clear()
	}

	if hc.redisCache != nil {
		if err := hc.redisCache.clear(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("cache invalidation errors: %v", errs)
	}

	return nil
}

// HealthCheck pings Redis when it is enabled
func (hc *HybridCache) HealthCheck(ctx context.Context) error {
	if hc.redisCache == nil {
		return nil
	}
	return hc.redisCache.healthCheck(ctx)
}

// Close stops the memory janitor and closes the Redis client
func (hc *HybridCache) Close() error {
	if hc.memoryCache != nil {
		hc.memoryCache.close()
	}
	if hc.redisCache != nil {
		return hc.redisCache.close()
	}
	return nil
}

// GetStats returns cache statistics
func (hc *HybridCache) GetStats() CacheStats {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	stats := hc.stats
	if stats.TotalOps > 0 {
		stats.HitRatio = float64(stats.Hits) / float64(stats.TotalOps)
	}
	return stats
}

func (hc *HybridCache) recordHit() {
	hc.mu.Lock()
	hc.stats.Hits++
	hc.stats.TotalOps++
	hc.stats.LastUpdated = time.Now()
	hc.mu.Unlock()
}

func (hc *HybridCache) recordMiss() {
	hc.mu.Lock()
	hc.stats.Misses++
	hc.stats.TotalOps++
	hc.stats.LastUpdated = time.Now()
	hc.mu.Unlock()
}

func (hc *HybridCache) recordError() {
	hc.mu.Lock()
	hc.stats.Errors++
	hc.mu.Unlock()
}

var (
	ErrCacheMiss = errors.New("cache miss")
)
