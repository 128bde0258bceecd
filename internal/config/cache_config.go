package config

import (
	"time"

	"github.com/prajwalbharadwajbm/pledgeswap/internal/cache"
)

// CacheConfig configures the campaign snapshot cache
type CacheConfig struct {
	DefaultTTL      time.Duration `env:"CACHE_DEFAULT_TTL" envDefault:"5m"`
	MemoryCacheSize int           `env:"CACHE_MEMORY_SIZE" envDefault:"1000"`
	RedisAddr       string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	RedisDB         int           `env:"REDIS_DB" envDefault:"0"`
	EnableMemory    bool          `env:"CACHE_ENABLE_MEMORY" envDefault:"true"`
	EnableRedis     bool          `env:"CACHE_ENABLE_REDIS" envDefault:"false"`
}

// GetCacheConfig converts the loaded configuration for the cache package
func GetCacheConfig() cache.CacheConfig {
	c := AppConfigInstance.CacheConfig
	return cache.CacheConfig{
		DefaultTTL:      c.DefaultTTL,
		MemoryCacheSize: c.MemoryCacheSize,
		RedisAddr:       c.RedisAddr,
		RedisPassword:   c.RedisPassword,
		RedisDB:         c.RedisDB,
		EnableMemory:    c.EnableMemory,
		EnableRedis:     c.EnableRedis,
	}
}

// CacheHealthCheck represents cache health status
type CacheHealthCheck struct {
	Memory struct {
		Enabled bool `json:"enabled"`
		Size    int  `json:"size"`
	} `json:"memory"`
	Redis struct {
		Enabled bool   `json:"enabled"`
		Address string `json:"address"`
	} `json:"redis"`
	Stats cache.CacheStats `json:"stats"`
}

// GetCacheHealth returns current cache health status
func GetCacheHealth(c cache.Cache) CacheHealthCheck {
	config := GetCacheConfig()
	health := CacheHealthCheck{}

	health.Memory.Enabled = config.EnableMemory
	health.Memory.Size = config.MemoryCacheSize

	health.Redis.Enabled = config.EnableRedis
	health.Redis.Address = config.RedisAddr

	health.Stats = c.GetStats()

	return health
}
