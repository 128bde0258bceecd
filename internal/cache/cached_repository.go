package cache

import (
	"context"
	"time"

	"github.com/holiman/uint256"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/metrics"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/models"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/service"
)

// CachedRepository wraps a repository with a campaign snapshot cache. Writes go
// through to the cache; reads only fill entries that are still absent, so a slow
// reader never overwrites a newer snapshot.
type CachedRepository struct {
	repo  service.CampaignRepository
	cache Cache
	ttl     time.Duration
	metrics *metrics.Metrics
}

// RepositoryOption configures a CachedRepository
type RepositoryOption func(*CachedRepository)

// WithMetrics records campaign lookups as cache hits or misses
func WithMetrics(m *metrics.Metrics) RepositoryOption {
	return func(cr *CachedRepository) {
		cr.metrics = m
	}
}

// NewCachedRepository creates a new cached repository
func NewCachedRepository(repo service.CampaignRepository, cache Cache, ttl time.Duration, opts ...RepositoryOption) service.CampaignRepository {
	cr := &CachedRepository{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
	}
	for _, opt := range opts {
		opt(cr)
	}
	return cr
}

// CreateCampaign stores the campaign and caches its initial snapshot
func (cr *CachedRepository) CreateCampaign(ctx context.Context, campaign *models.Campaign) (uint64, error) {
	id, err := cr.repo.CreateCampaign(ctx, campaign)
	if err != nil {
		return 0, err
	}

	stored := campaign.Clone()
	stored.ID = id
	cr.write(ctx, stored)
	return id, nil
}

// GetCampaign retrieves the campaign from cache first, then the repository
func (cr *CachedRepository) GetCampaign(ctx context.Context, id uint64) (*models.Campaign, error) {
	if snapshot, err := cr.cache.GetCampaign(ctx, id); err == nil {
		if campaign, err := snapshot.ToCampaign(); err == nil {
			cr.record(true)
			return campaign, nil
		}
		_ = cr.cache.InvalidateCampaign(ctx, id)
	}
	cr.record(false)

	campaign, err := cr.repo.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}

	_ = cr.cache.AddCampaign(ctx, campaign.Snapshot(time.Time{}), cr.ttl)
	return campaign, nil
}

// LoadCampaign bypasses the cache. Only the repository is authoritative for state transitions.
func (cr *CachedRepository) LoadCampaign(ctx context.Context, id uint64) (*models.Campaign, error) {
	return cr.repo.LoadCampaign(ctx, id)
}

// CountCampaigns implements service.CampaignRepository
func (cr *CachedRepository) CountCampaigns(ctx context.Context) (uint64, error) {
	return cr.repo.CountCampaigns(ctx)
}

// GetStake implements service.CampaignRepository
func (cr *CachedRepository) GetStake(ctx context.Context, id uint64, pledger string) (*uint256.Int, error) {
	return cr.repo.GetStake(ctx, id, pledger)
}

// ListContributions implements service.CampaignRepository
func (cr *CachedRepository) ListContributions(ctx context.Context, id uint64) ([]models.Contribution, error) {
	return cr.repo.ListContributions(ctx, id)
}

// SaveCampaign writes through to the repository, then refreshes the cached snapshot
func (cr *CachedRepository) SaveCampaign(ctx context.Context, campaign *models.Campaign, stakes ...models.Contribution) error {
	if err := cr.repo.SaveCampaign(ctx, campaign, stakes...); err != nil {
		_ = cr.cache.InvalidateCampaign(ctx, campaign.ID)
		return err
	}
	cr.write(ctx, campaign)
	return nil
}

// write caches the snapshot, dropping the entry when the cache cannot store it
func (cr *CachedRepository) write(ctx context.Context, campaign *models.Campaign) {
	if err := cr.cache.SetCampaign(ctx, campaign.Snapshot(time.Time{}), cr.ttl); err != nil {
		_ = cr.cache.InvalidateCampaign(ctx, campaign.ID)
	}
}

func (cr *CachedRepository) record(hit bool) {
	if cr.metrics != nil {
		cr.metrics.RecordCacheResult(hit)
	}
}
