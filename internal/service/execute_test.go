package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/cache"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/models"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// gatedVenue holds the first swap until release is closed
type gatedVenue struct {
	service.SwapVenue
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (v *gatedVenue) Swap(ctx context.Context, order models.SwapOrder) (*uint256.Int, error) {
	v.once.Do(func() {
		close(v.entered)
		<-v.release
	})
	return v.SwapVenue.Swap(ctx, order)
}

// reportingVenue claims a fixed output without moving any funds
type reportingVenue struct {
	service.SwapVenue
	out *uint256.Int
}

func (v reportingVenue) Swap(context.Context, models.SwapOrder) (*uint256.Int, error) {
	return v.out, nil
}

// revokeFailingLedger rejects allowance resets
type revokeFailingLedger struct {
	service.AssetLedger
}

func (l revokeFailingLedger) Approve(ctx context.Context, asset, spender string, amount *uint256.Int) error {
	if amount.IsZero() {
		return errors.New("ledger offline")
	}
	return l.AssetLedger.Approve(ctx, asset, spender, amount)
}

// proceedsFailingRepository rejects saves that record swap proceeds while failing is set
type proceedsFailingRepository struct {
	service.CampaignRepository
	failing atomic.Bool
}

func (r *proceedsFailingRepository) SaveCampaign(ctx context.Context, campaign *models.Campaign, stakes ...models.Contribution) error {
	if r.failing.Load() && !campaign.TotalBought.IsZero() {
		return errors.New("connection reset")
	}
	return r.CampaignRepository.SaveCampaign(ctx, campaign, stakes...)
}

// unreliableCache drops writes and invalidations while failing is set, but keeps serving reads
type unreliableCache struct {
	cache.Cache
	failing atomic.Bool
}

func (c *unreliableCache) SetCampaign(ctx context.Context, snapshot models.CampaignSnapshot, ttl time.Duration) error {
	if c.failing.Load() {
		return errors.New("redis: connection refused")
	}
	return c.Cache.SetCampaign(ctx, snapshot, ttl)
}

func (c *unreliableCache) InvalidateCampaign(ctx context.Context, id uint64) error {
	if c.failing.Load() {
		return errors.New("redis: connection refused")
	}
	return c.Cache.InvalidateCampaign(ctx, id)
}

func TestEngine_ConcurrentExecutesOnOneVenue(t *testing.T) {
	gate := &gatedVenue{entered: make(chan struct{}), release: make(chan struct{})}
	h := newHarnessWith(t, collaborators{
		venue: func(inner service.SwapVenue) service.SwapVenue {
			gate.SwapVenue = inner
			return gate
		},
	})
	ctx := context.Background()

	first := h.create(t, wethTerms())
	second := h.create(t, wethTerms())
	other := h.create(t, daiTerms())
	h.contribute(t, first, "alice", 100)
	h.contribute(t, second, "bob", 50)
	h.contribute(t, other, "carol", 30)

	type result struct {
		bought *uint256.Int
		err    error
	}
	execute := func(id uint64) <-chan result {
		done := make(chan result, 1)
		go func() {
			bought, err := h.engine.Execute(ctx, id)
			done <- result{bought, err}
		}()
		return done
	}

	firstDone := execute(first)
	<-gate.entered
	secondDone := execute(second)

	// a different venue is not held up by the pending swap
	bought, err := h.engine.Execute(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), bought.Uint64())

	select {
	case r := <-secondDone:
		t.Fatalf("second swap on the venue finished while the first was pending: %v", r.err)
	case <-time.After(50 * time.Millisecond):
	}
	close(gate.release)

	r := <-firstDone
	require.NoError(t, r.err)
	assert.Equal(t, uint64(100), r.bought.Uint64())
	r = <-secondDone
	require.NoError(t, r.err)
	assert.Equal(t, uint64(50), r.bought.Uint64())

	assert.Zero(t, h.balance(t, "USDC", escrow))
	assert.Equal(t, uint64(150), h.balance(t, "WETH", escrow))
	assert.True(t, h.ledger.Allowance("USDC", escrow, "usdc-weth").IsZero())
	h.assertInvariants(t, first)
	h.assertInvariants(t, second)
}

func TestEngine_ExecuteRejectsShortVenueReport(t *testing.T) {
	tests := []struct {
		name string
		out  *uint256.Int
	}{
		{name: "below minimum", out: uint256.NewInt(1)},
		{name: "no amount", out: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarnessWith(t, collaborators{
				venue: func(inner service.SwapVenue) service.SwapVenue {
					return reportingVenue{SwapVenue: inner, out: tt.out}
				},
			})
			ctx := context.Background()
			terms := wethTerms()
			terms.MinBuy.SetUint64(100)
			id := h.create(t, terms)
			h.contribute(t, id, "alice", 100)

			_, err := h.engine.Execute(ctx, id)
			assert.ErrorIs(t, err, models.ErrBelowMinimum)

			campaign := h.campaign(t, id)
			assert.False(t, campaign.Executed)
			assert.True(t, campaign.TotalBought.IsZero())
			assert.True(t, campaign.PledgedAtExecution.IsZero())
			assert.Equal(t, uint64(100), h.balance(t, "USDC", escrow))
			assert.True(t, h.ledger.Allowance("USDC", escrow, "usdc-weth").IsZero(), "venue allowance must be revoked")

			_, err = h.engine.Claim(ctx, id, "alice")
			assert.ErrorIs(t, err, models.ErrNotExecuted)
			h.assertInvariants(t, id)
		})
	}
}

func TestEngine_ExecuteReportsFailedRevoke(t *testing.T) {
	h := newHarnessWithLedger(t, func(inner service.AssetLedger) service.AssetLedger {
		return revokeFailingLedger{AssetLedger: inner}
	})
	ctx := context.Background()
	terms := daiTerms()
	terms.PriceLimit.SetUint64(1_400_000_000_000_000_000)
	id := h.create(t, terms)
	h.contribute(t, id, "alice", 30)

	_, err := h.engine.Execute(ctx, id)
	assert.ErrorIs(t, err, models.ErrPriceLimit)
	assert.ErrorContains(t, err, "revoking venue allowance failed")
	assert.ErrorContains(t, err, "ledger offline")
	assert.False(t, h.campaign(t, id).Executed)
}

func TestEngine_ExecuteStaysExecutedWhenProceedsAreNotRecorded(t *testing.T) {
	repo := &proceedsFailingRepository{}
	h := newHarnessWith(t, collaborators{
		repo: func(inner service.CampaignRepository) service.CampaignRepository {
			repo.CampaignRepository = inner
			return repo
		},
	})
	ctx := context.Background()
	first := h.create(t, wethTerms())
	second := h.create(t, wethTerms())
	h.contribute(t, first, "alice", 100)
	h.contribute(t, second, "bob", 50)

	repo.failing.Store(true)
	_, err := h.engine.Execute(ctx, first)
	assert.ErrorContains(t, err, "connection reset")
	repo.failing.Store(false)

	assert.Equal(t, uint64(50), h.balance(t, "USDC", escrow), "the first pool has been swapped")

	_, err = h.engine.Execute(ctx, first)
	assert.ErrorIs(t, err, models.ErrAlreadyExecuted)

	h.clock.Advance(2 * time.Hour)
	_, err = h.engine.Refund(ctx, first, "alice")
	assert.ErrorIs(t, err, models.ErrAlreadyExecuted)
	assert.Equal(t, uint64(50), h.balance(t, "USDC", escrow), "other pools are never spent")

	refund, err := h.engine.Refund(ctx, second, "bob")
	require.NoError(t, err)
	assert.Equal(t, uint64(50), refund.Uint64())
	assert.Zero(t, h.balance(t, "USDC", escrow))
}

func TestEngine_ExecuteMovesNothingUntilRecorded(t *testing.T) {
	campaign := models.NewCampaign(wethTerms(), t0)
	campaign.ID = 1
	campaign.TotalPledged.SetUint64(100)
	campaign.ActivePledgers = 1

	repo := &MockCampaignRepository{}
	repo.On("LoadCampaign", mock.Anything, uint64(1)).Return(campaign, nil)
	repo.On("SaveCampaign", mock.Anything, mock.MatchedBy(func(c *models.Campaign) bool {
		return c.Executed && c.PledgedAtExecution.Uint64() == 100
	}), mock.Anything).Return(errors.New("disk full"))

	// no ledger or venue calls are expected
	l := &MockAssetLedger{}
	engine := service.NewEngineWithClock(repo, l, nil, escrow, func() time.Time { return t0 })

	_, err := engine.Execute(context.Background(), 1)
	assert.ErrorContains(t, err, "disk full")
	repo.AssertExpectations(t)
	l.AssertExpectations(t)
}

func TestEngine_ExecuteReadsPastStaleCache(t *testing.T) {
	hc, err := cache.NewHybridCache(cache.CacheConfig{
		DefaultTTL:      time.Minute,
		MemoryCacheSize: 100,
		EnableMemory:    true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { hc.Close() })
	flaky := &unreliableCache{Cache: hc}

	h := newHarnessWith(t, collaborators{
		repo: func(inner service.CampaignRepository) service.CampaignRepository {
			return cache.NewCachedRepository(inner, flaky, time.Minute)
		},
	})
	ctx := context.Background()
	first := h.create(t, wethTerms())
	second := h.create(t, wethTerms())
	h.contribute(t, first, "alice", 100)
	h.contribute(t, second, "bob", 100)

	flaky.failing.Store(true)
	bought, err := h.engine.Execute(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), bought.Uint64())
	flaky.failing.Store(false)

	assert.False(t, h.campaign(t, first).Executed, "readers still see the cached snapshot")

	_, err = h.engine.Execute(ctx, first)
	assert.ErrorIs(t, err, models.ErrAlreadyExecuted)
	assert.Equal(t, uint64(100), h.balance(t, "USDC", escrow), "the second pool stays in escrow")

	share, err := h.engine.Claim(ctx, first, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), share.Uint64())

	_, err = h.engine.Claim(ctx, first, "alice")
	assert.ErrorIs(t, err, models.ErrNoStake)
}
