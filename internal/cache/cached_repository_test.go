package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/cache"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/metrics"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/models"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryOnlyConfig(size int) cache.CacheConfig {
	return cache.CacheConfig{
		DefaultTTL:      time.Minute,
		MemoryCacheSize: size,
		EnableMemory:    true,
		EnableRedis:     false,
	}
}

func testCampaign(id uint64) *models.Campaign {
	c := models.NewCampaign(models.Terms{
		Creator:   "creator",
		VenueID:   "usdc-weth",
		Deadline:  time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		SellAsset: "USDC",
		BuyAsset:  "WETH",
		BuyIndex:  1,
	}, time.Date(2029, 6, 1, 0, 0, 0, 0, time.UTC))
	c.ID = id
	return c
}

func TestCachedRepository_ReadThroughAndWriteThrough(t *testing.T) {
	hc, err := cache.NewHybridCache(memoryOnlyConfig(100))
	require.NoError(t, err)
	defer hc.Close()
	ctx := context.Background()

	repo := cache.NewCachedRepository(repository.NewMemoryRepository(), hc, time.Minute)

	id, err := repo.CreateCampaign(ctx, testCampaign(0))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	campaign, err := repo.GetCampaign(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, campaign.ID)
	assert.Equal(t, int64(1), hc.GetStats().Hits, "create primes the cache")

	campaign.TotalPledged.SetUint64(25)
	campaign.ActivePledgers = 1
	require.NoError(t, repo.SaveCampaign(ctx, campaign,
		models.Contribution{CampaignID: id, Pledger: "alice", Amount: *uint256.NewInt(25)}))

	reloaded, err := repo.GetCampaign(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, campaign, reloaded)

	stake, err := repo.GetStake(ctx, id, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(25), stake.Uint64())

	count, err := repo.CountCampaigns(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestCachedRepository_MissFillsCache(t *testing.T) {
	hc, err := cache.NewHybridCache(memoryOnlyConfig(100))
	require.NoError(t, err)
	defer hc.Close()
	ctx := context.Background()

	inner := repository.NewMemoryRepository()
	id, err := inner.CreateCampaign(ctx, testCampaign(0))
	require.NoError(t, err)

	m := metrics.NewPrometheusMetricsWithRegistry(prometheus.NewRegistry())
	repo := cache.NewCachedRepository(inner, hc, time.Minute, cache.WithMetrics(m))
	_, err = repo.GetCampaign(ctx, id)
	require.NoError(t, err)
	_, err = repo.GetCampaign(ctx, id)
	require.NoError(t, err)

	stats := hc.GetStats()
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Hits)

	_, err = repo.GetCampaign(ctx, 42)
	assert.ErrorIs(t, err, models.ErrNotFound)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheOperations.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheOperations.WithLabelValues("miss")))
}

func TestCachedRepository_LoadCampaignBypassesCache(t *testing.T) {
	hc, err := cache.NewHybridCache(memoryOnlyConfig(100))
	require.NoError(t, err)
	defer hc.Close()
	ctx := context.Background()

	inner := repository.NewMemoryRepository()
	repo := cache.NewCachedRepository(inner, hc, time.Minute)
	id, err := repo.CreateCampaign(ctx, testCampaign(0))
	require.NoError(t, err)

	// the repository moves on without the cache seeing it
	stored, err := inner.LoadCampaign(ctx, id)
	require.NoError(t, err)
	stored.Executed = true
	require.NoError(t, inner.SaveCampaign(ctx, stored))

	cached, err := repo.GetCampaign(ctx, id)
	require.NoError(t, err)
	assert.False(t, cached.Executed, "readers may see the older snapshot")

	loaded, err := repo.LoadCampaign(ctx, id)
	require.NoError(t, err)
	assert.True(t, loaded.Executed)

	stats := hc.GetStats()
	assert.Equal(t, int64(1), stats.Hits, "only GetCampaign consults the cache")
	assert.Zero(t, stats.Misses)
}

func TestCachedRepository_FailedSaveInvalidates(t *testing.T) {
	hc, err := cache.NewHybridCache(memoryOnlyConfig(100))
	require.NoError(t, err)
	defer hc.Close()
	ctx := context.Background()

	repo := cache.NewCachedRepository(repository.NewMemoryRepository(), hc, time.Minute)
	id, err := repo.CreateCampaign(ctx, testCampaign(0))
	require.NoError(t, err)

	// a stake for another campaign makes the save fail
	campaign := testCampaign(id)
	err = repo.SaveCampaign(ctx, campaign, models.Contribution{CampaignID: id + 1, Pledger: "alice", Amount: *uint256.NewInt(1)})
	require.Error(t, err)

	_, err = hc.GetCampaign(ctx, id)
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}
