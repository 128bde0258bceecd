package repository

import (
	"context"
	"errors"

	"github.com/holiman/uint256"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/metrics"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/models"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/service"
)

// InstrumentedRepository wraps a repository with metrics collection
type InstrumentedRepository struct {
	next    service.CampaignRepository
	metrics *metrics.Metrics
}

// NewInstrumentedRepository creates a new instrumented repository
func NewInstrumentedRepository(repo service.CampaignRepository, metrics *metrics.Metrics) service.CampaignRepository {
	return &InstrumentedRepository{
		next:    repo,
		metrics: metrics,
	}
}

func (r *InstrumentedRepository) record(operation, table string, err error) {
	r.metrics.RecordDatabaseQuery(operation, table)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		r.metrics.RecordDatabaseError(operation, "query_error")
	}
}

// CreateCampaign implements service.CampaignRepository with metrics
func (r *InstrumentedRepository) CreateCampaign(ctx context.Context, campaign *models.Campaign) (id uint64, err error) {
	defer func() { r.record("insert", "campaigns", err) }()
	return r.next.CreateCampaign(ctx, campaign)
}

// GetCampaign implements service.CampaignRepository with metrics
func (r *InstrumentedRepository) GetCampaign(ctx context.Context, id uint64) (campaign *models.Campaign, err error) {
	defer func() { r.record("select", "campaigns", err) }()
	return r.next.GetCampaign(ctx, id)
}

// LoadCampaign implements service.CampaignRepository with metrics
func (r *InstrumentedRepository) LoadCampaign(ctx context.Context, id uint64) (campaign *models.Campaign, err error) {
	defer func() { r.record("select", "campaigns", err) }()
	return r.next.LoadCampaign(ctx, id)
}

// CountCampaigns implements service.CampaignRepository with metrics
func (r *InstrumentedRepository) CountCampaigns(ctx context.Context) (count uint64, err error) {
	defer func() { r.record("count", "campaigns", err) }()
	return r.next.CountCampaigns(ctx)
}

// GetStake implements service.CampaignRepository with metrics
func (r *InstrumentedRepository) GetStake(ctx context.Context, id uint64, pledger string) (stake *uint256.Int, err error) {
	defer func() { r.record("select", "contributions", err) }()
	return r.next.GetStake(ctx, id, pledger)
}

// ListContributions implements service.CampaignRepository with metrics
func (r *InstrumentedRepository) ListContributions(ctx context.Context, id uint64) (contributions []models.Contribution, err error) {
	defer func() { r.record("select", "contributions", err) }()
	return r.next.ListContributions(ctx, id)
}

// SaveCampaign implements service.CampaignRepository with metrics
func (r *InstrumentedRepository) SaveCampaign(ctx context.Context, campaign *models.Campaign, stakes ...models.Contribution) (err error) {
	defer func() {
		r.record("update", "campaigns", err)
		if len(stakes) > 0 {
			r.metrics.RecordDatabaseQuery("upsert", "contributions")
		}
	}()
	return r.next.SaveCampaign(ctx, campaign, stakes...)
}
