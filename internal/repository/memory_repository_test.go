package repository

import (
	"context"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCampaign() *models.Campaign {
	return models.NewCampaign(models.Terms{
		Creator:   "creator",
		VenueID:   "usdc-weth",
		Deadline:  time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		SellAsset: "USDC",
		BuyAsset:  "WETH",
		SellIndex: 0,
		BuyIndex:  1,
	}, time.Date(2029, 1, 1, 0, 0, 0, 0, time.UTC))
}

func TestNewMemoryRepository(t *testing.T) {
	repo := NewMemoryRepository()

	assert.NotNil(t, repo)
	assert.IsType(t, &memoryRepository{}, repo)

	count, err := repo.CountCampaigns(context.Background())
	assert.NoError(t, err)
	assert.Zero(t, count)
}

func TestMemoryRepository_SequentialIDs(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	for want := uint64(1); want <= 3; want++ {
		id, err := repo.CreateCampaign(ctx, testCampaign())
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}

	count, err := repo.CountCampaigns(ctx)
	assert.NoError(t, err)
	assert.Equal(t, uint64(3), count)
}

func TestMemoryRepository_GetCampaignReturnsCopy(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	id, err := repo.CreateCampaign(ctx, testCampaign())
	require.NoError(t, err)

	first, err := repo.GetCampaign(ctx, id)
	require.NoError(t, err)
	first.TotalPledged.SetUint64(99)
	first.Executed = true

	second, err := repo.GetCampaign(ctx, id)
	require.NoError(t, err)
	assert.True(t, second.TotalPledged.IsZero())
	assert.False(t, second.Executed)
	assert.Equal(t, id, second.ID)
}

func TestMemoryRepository_NotFound(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, err := repo.GetCampaign(ctx, 7)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = repo.GetStake(ctx, 7, "alice")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = repo.ListContributions(ctx, 7)
	assert.ErrorIs(t, err, models.ErrNotFound)

	err = repo.SaveCampaign(ctx, &models.Campaign{ID: 7})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemoryRepository_SaveCampaignWithStakes(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	id, err := repo.CreateCampaign(ctx, testCampaign())
	require.NoError(t, err)

	campaign, err := repo.GetCampaign(ctx, id)
	require.NoError(t, err)
	campaign.TotalPledged.SetUint64(30)
	campaign.ActivePledgers = 2

	err = repo.SaveCampaign(ctx, campaign,
		models.Contribution{CampaignID: id, Pledger: "bob", Amount: *uint256.NewInt(20)},
		models.Contribution{CampaignID: id, Pledger: "alice", Amount: *uint256.NewInt(10)},
	)
	require.NoError(t, err)

	stake, err := repo.GetStake(ctx, id, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), stake.Uint64())

	none, err := repo.GetStake(ctx, id, "carol")
	require.NoError(t, err)
	assert.True(t, none.IsZero())

	contributions, err := repo.ListContributions(ctx, id)
	require.NoError(t, err)
	require.Len(t, contributions, 2)
	assert.Equal(t, "alice", contributions[0].Pledger)
	assert.Equal(t, "bob", contributions[1].Pledger)

	// a zero stake removes the pledger
	campaign.TotalPledged.SetUint64(20)
	campaign.ActivePledgers = 1
	require.NoError(t, repo.SaveCampaign(ctx, campaign, models.Contribution{CampaignID: id, Pledger: "alice"}))

	contributions, err = repo.ListContributions(ctx, id)
	require.NoError(t, err)
	require.Len(t, contributions, 1)
	assert.Equal(t, "bob", contributions[0].Pledger)

	stored, err := repo.GetCampaign(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), stored.TotalPledged.Uint64())
	assert.Equal(t, uint64(1), stored.ActivePledgers)
}

func TestMemoryRepository_SaveCampaignRejectsForeignStake(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	id, err := repo.CreateCampaign(ctx, testCampaign())
	require.NoError(t, err)
	campaign, err := repo.GetCampaign(ctx, id)
	require.NoError(t, err)

	campaign.TotalPledged.SetUint64(5)
	err = repo.SaveCampaign(ctx, campaign, models.Contribution{CampaignID: id + 1, Pledger: "alice", Amount: *uint256.NewInt(5)})
	assert.Error(t, err)

	stored, err := repo.GetCampaign(ctx, id)
	require.NoError(t, err)
	assert.True(t, stored.TotalPledged.IsZero(), "rejected save must not write the campaign")
}
