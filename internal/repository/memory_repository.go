package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/holiman/uint256"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/models"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/service"
)

// memoryRepository implements service.CampaignRepository in process memory
type memoryRepository struct {
	mu        sync.RWMutex
	campaigns map[uint64]*models.Campaign
	stakes    map[uint64]map[string]uint256.Int
	nextID    uint64
}

// NewMemoryRepository creates an empty in-memory repository. Ids start at 1.
func NewMemoryRepository() service.CampaignRepository {
	return &memoryRepository{
		campaigns: make(map[uint64]*models.Campaign),
		stakes:    make(map[uint64]map[string]uint256.Int),
		nextID:    1,
	}
}

// CreateCampaign implements service.CampaignRepository
func (r *memoryRepository) CreateCampaign(_ context.Context, campaign *models.Campaign) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++

	stored := campaign.Clone()
	stored.ID = id
	r.campaigns[id] = stored
	r.stakes[id] = make(map[string]uint256.Int)
	return id, nil
}

// GetCampaign implements service.CampaignRepository
func (r *memoryRepository) GetCampaign(_ context.Context, id uint64) (*models.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	campaign, ok := r.campaigns[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", models.ErrNotFound, id)
	}
	return campaign.Clone(), nil
}

// LoadCampaign implements service.CampaignRepository. The map is the system of record.
func (r *memoryRepository) LoadCampaign(ctx context.Context, id uint64) (*models.Campaign, error) {
	return r.GetCampaign(ctx, id)
}

// CountCampaigns implements service.CampaignRepository
func (r *memoryRepository) CountCampaigns(_ context.Context) (uint64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return uint64(len(r.campaigns)), nil
}

// GetStake implements service.CampaignRepository
func (r *memoryRepository) GetStake(_ context.Context, id uint64, pledger string) (*uint256.Int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stakes, ok := r.stakes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", models.ErrNotFound, id)
	}
	stake := stakes[pledger]
	return &stake, nil
}

// ListContributions implements service.CampaignRepository, ordered by pledger
func (r *memoryRepository) ListContributions(_ context.Context, id uint64) ([]models.Contribution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stakes, ok := r.stakes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", models.ErrNotFound, id)
	}

	contributions := make([]models.Contribution, 0, len(stakes))
	for pledger, amount := range stakes {
		contributions = append(contributions, models.Contribution{CampaignID: id, Pledger: pledger, Amount: amount})
	}
	sort.Slice(contributions, func(i, j int) bool {
		return contributions[i].Pledger < contributions[j].Pledger
	})
	return contributions, nil
}

// SaveCampaign implements service.CampaignRepository
func (r *memoryRepository) SaveCampaign(_ context.Context, campaign *models.Campaign, stakes ...models.Contribution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.campaigns[campaign.ID]; !ok {
		return fmt.Errorf("%w: %d", models.ErrNotFound, campaign.ID)
	}
	for _, stake := range stakes {
		if stake.CampaignID != campaign.ID {
			return fmt.Errorf("stake for campaign %d saved with campaign %d", stake.CampaignID, campaign.ID)
		}
	}

	r.campaigns[campaign.ID] = campaign.Clone()
	for _, stake := range stakes {
		if stake.Amount.IsZero() {
			delete(r.stakes[campaign.ID], stake.Pledger)
			continue
		}
		r.stakes[campaign.ID][stake.Pledger] = stake.Amount
	}
	return nil
}
