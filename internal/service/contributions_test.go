package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/ledger"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/models"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAssetLedger is a mock implementation of AssetLedger
type MockAssetLedger struct {
	mock.Mock
}

func (m *MockAssetLedger) TransferFrom(ctx context.Context, asset, from, to string, amount *uint256.Int) error {
	args := m.Called(ctx, asset, from, to, amount)
	return args.Error(0)
}

func (m *MockAssetLedger) Transfer(ctx context.Context, asset, to string, amount *uint256.Int) error {
	args := m.Called(ctx, asset, to, amount)
	return args.Error(0)
}

func (m *MockAssetLedger) Approve(ctx context.Context, asset, spender string, amount *uint256.Int) error {
	args := m.Called(ctx, asset, spender, amount)
	return args.Error(0)
}

func (m *MockAssetLedger) BalanceOf(ctx context.Context, asset, holder string) (*uint256.Int, error) {
	args := m.Called(ctx, asset, holder)
	return args.Get(0).(*uint256.Int), args.Error(1)
}

// MockCampaignRepository is a mock implementation of CampaignRepository
type MockCampaignRepository struct {
	mock.Mock
}

func (m *MockCampaignRepository) CreateCampaign(ctx context.Context, campaign *models.Campaign) (uint64, error) {
	args := m.Called(ctx, campaign)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockCampaignRepository) GetCampaign(ctx context.Context, id uint64) (*models.Campaign, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Campaign).Clone(), args.Error(1)
}

func (m *MockCampaignRepository) LoadCampaign(ctx context.Context, id uint64) (*models.Campaign, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Campaign).Clone(), args.Error(1)
}

func (m *MockCampaignRepository) CountCampaigns(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockCampaignRepository) GetStake(ctx context.Context, id uint64, pledger string) (*uint256.Int, error) {
	args := m.Called(ctx, id, pledger)
	return args.Get(0).(*uint256.Int), args.Error(1)
}

func (m *MockCampaignRepository) ListContributions(ctx context.Context, id uint64) ([]models.Contribution, error) {
	args := m.Called(ctx, id)
	return args.Get(0).([]models.Contribution), args.Error(1)
}

func (m *MockCampaignRepository) SaveCampaign(ctx context.Context, campaign *models.Campaign, stakes ...models.Contribution) error {
	args := m.Called(ctx, campaign, stakes)
	return args.Error(0)
}

// hookLedger runs a callback with the engine's context before each outbound transfer
type hookLedger struct {
	service.AssetLedger
	onTransfer func(ctx context.Context)
}

func (l *hookLedger) Transfer(ctx context.Context, asset, to string, amount *uint256.Int) error {
	if l.onTransfer != nil {
		l.onTransfer(ctx)
	}
	return l.AssetLedger.Transfer(ctx, asset, to, amount)
}

func TestEngine_ContributeValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.create(t, wethTerms())
	h.fund(t, "alice", 10)

	tests := []struct {
		name    string
		pledger string
		amount  *uint256.Int
		wantErr error
	}{
		{name: "zero amount", pledger: "alice", amount: uint256.NewInt(0), wantErr: models.ErrInvalidAmount},
		{name: "nil amount", pledger: "alice", amount: nil, wantErr: models.ErrInvalidAmount},
		{name: "missing pledger", pledger: "  ", amount: uint256.NewInt(1), wantErr: models.ErrInvalidPledger},
		{name: "more than approved", pledger: "alice", amount: uint256.NewInt(11), wantErr: models.ErrTransferFailed},
		{name: "no allowance", pledger: "bob", amount: uint256.NewInt(1), wantErr: models.ErrTransferFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.engine.Contribute(ctx, id, tt.pledger, tt.amount)
			assert.ErrorIs(t, err, tt.wantErr)

			campaign := h.campaign(t, id)
			assert.True(t, campaign.TotalPledged.IsZero())
			assert.Zero(t, campaign.ActivePledgers)
		})
	}
	assert.Equal(t, uint64(10), h.balance(t, "USDC", "alice"))
}

func TestEngine_ContributeAccumulatesStake(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.create(t, wethTerms())

	h.contribute(t, id, "alice", 3)
	h.contribute(t, id, "alice", 4)
	h.contribute(t, id, "bob", 5)

	stake, err := h.engine.Stake(ctx, id, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), stake.Uint64())

	none, err := h.engine.Stake(ctx, id, "carol")
	require.NoError(t, err)
	assert.True(t, none.IsZero())

	campaign := h.campaign(t, id)
	assert.Equal(t, uint64(12), campaign.TotalPledged.Uint64())
	assert.Equal(t, uint64(2), campaign.ActivePledgers)
	assert.Equal(t, uint64(12), h.balance(t, "USDC", escrow))
	h.assertInvariants(t, id)
}

func TestEngine_ContributeAfterDeadline(t *testing.T) {
	h := newHarness(t)
	id := h.create(t, wethTerms())
	h.fund(t, "alice", 1)
	h.clock.Advance(time.Hour + time.Nanosecond)

	err := h.engine.Contribute(context.Background(), id, "alice", uint256.NewInt(1))
	assert.ErrorIs(t, err, models.ErrExpired)
	assert.Equal(t, uint64(1), h.balance(t, "USDC", "alice"))
}

func TestEngine_RefundAfterExpiry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.create(t, wethTerms())
	h.contribute(t, id, "alice", 100)

	_, err := h.engine.Refund(ctx, id, "alice")
	assert.ErrorIs(t, err, models.ErrCampaignActive, "no refund before the deadline")

	h.clock.Advance(2 * time.Hour)

	refund, err := h.engine.Refund(ctx, id, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), refund.Uint64())
	assert.Equal(t, uint64(100), h.balance(t, "USDC", "alice"))
	assert.Zero(t, h.balance(t, "USDC", escrow))

	campaign := h.campaign(t, id)
	assert.Zero(t, campaign.ActivePledgers)
	assert.True(t, campaign.TotalPledged.IsZero())
	assert.Equal(t, models.StateExpired, campaign.State(h.clock.Now()))
	h.assertInvariants(t, id)

	_, err = h.engine.Refund(ctx, id, "alice")
	assert.ErrorIs(t, err, models.ErrNoStake)
}

func TestEngine_DustGuardsBeforeExecution(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.create(t, wethTerms())

	_, err := h.engine.Dust(ctx, id)
	assert.ErrorIs(t, err, models.ErrCampaignActive)

	h.clock.Advance(2 * time.Hour)
	_, err = h.engine.Dust(ctx, id)
	assert.ErrorIs(t, err, models.ErrNotExecuted)
}

func TestEngine_RefundTransferFailureRestoresStake(t *testing.T) {
	l := &MockAssetLedger{}
	l.On("TransferFrom", mock.Anything, "USDC", "alice", escrow, mock.AnythingOfType("*uint256.Int")).Return(nil)
	l.On("Transfer", mock.Anything, "USDC", "alice", mock.AnythingOfType("*uint256.Int")).Return(errors.New("ledger offline"))

	h := newHarnessWithLedger(t, func(service.AssetLedger) service.AssetLedger { return l })
	ctx := context.Background()
	id := h.create(t, wethTerms())

	require.NoError(t, h.engine.Contribute(ctx, id, "alice", uint256.NewInt(100)))
	h.clock.Advance(2 * time.Hour)

	_, err := h.engine.Refund(ctx, id, "alice")
	assert.ErrorIs(t, err, models.ErrTransferFailed)
	assert.ErrorContains(t, err, "ledger offline")

	stake, err := h.engine.Stake(ctx, id, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), stake.Uint64())

	campaign := h.campaign(t, id)
	assert.Equal(t, uint64(100), campaign.TotalPledged.Uint64())
	assert.Equal(t, uint64(1), campaign.ActivePledgers)
	l.AssertExpectations(t)
}

func TestEngine_ContributeReturnsFundsWhenSaveFails(t *testing.T) {
	campaign := models.NewCampaign(wethTerms(), t0)
	campaign.ID = 1

	repo := &MockCampaignRepository{}
	repo.On("LoadCampaign", mock.Anything, uint64(1)).Return(campaign, nil)
	repo.On("GetStake", mock.Anything, uint64(1), "alice").Return(new(uint256.Int), nil)
	repo.On("SaveCampaign", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("disk full"))

	l := &MockAssetLedger{}
	l.On("TransferFrom", mock.Anything, "USDC", "alice", escrow, uint256.NewInt(9)).Return(nil)
	l.On("Transfer", mock.Anything, "USDC", "alice", uint256.NewInt(9)).Return(nil)

	engine := service.NewEngineWithClock(repo, l, nil, escrow, func() time.Time { return t0 })

	err := engine.Contribute(context.Background(), 1, "alice", uint256.NewInt(9))
	assert.ErrorContains(t, err, "disk full")
	l.AssertExpectations(t)
	repo.AssertExpectations(t)
}

func TestEngine_ClaimCannotReenter(t *testing.T) {
	var engine *service.Engine
	var reentryErrs []error
	hook := &hookLedger{}

	h := newHarnessWithLedger(t, func(inner service.AssetLedger) service.AssetLedger {
		hook.AssetLedger = inner
		return hook
	})
	engine = h.engine
	ctx := context.Background()
	id := h.create(t, wethTerms())
	h.contribute(t, id, "alice", 10)
	h.contribute(t, id, "bob", 10)
	_, err := engine.Execute(ctx, id)
	require.NoError(t, err)

	hook.onTransfer = func(ctx context.Context) {
		_, err := engine.Claim(ctx, id, "alice")
		reentryErrs = append(reentryErrs, err)
		_, err = engine.Claim(ctx, id, "bob")
		reentryErrs = append(reentryErrs, err)
	}

	share, err := engine.Claim(ctx, id, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), share.Uint64())

	require.Len(t, reentryErrs, 2)
	for _, err := range reentryErrs {
		assert.ErrorIs(t, err, models.ErrReentrant)
	}

	stake, err := engine.Stake(ctx, id, "bob")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), stake.Uint64(), "bob's stake is untouched by the rejected reentry")
	assert.Equal(t, uint64(10), h.balance(t, "WETH", "alice"))
	h.assertInvariants(t, id)
}

func TestEngine_OtherCampaignsStayReachableDuringTransfer(t *testing.T) {
	var engine *service.Engine
	var nestedErr error
	hook := &hookLedger{}

	h := newHarnessWithLedger(t, func(inner service.AssetLedger) service.AssetLedger {
		hook.AssetLedger = inner
		return hook
	})
	engine = h.engine
	ctx := context.Background()
	first := h.create(t, wethTerms())
	second := h.create(t, wethTerms())
	h.contribute(t, first, "alice", 10)
	h.contribute(t, second, "alice", 10)
	h.clock.Advance(2 * time.Hour)

	hook.onTransfer = func(ctx context.Context) {
		hook.onTransfer = nil
		_, nestedErr = engine.Refund(ctx, second, "alice")
	}

	_, err := engine.Refund(ctx, first, "alice")
	require.NoError(t, err)
	assert.NoError(t, nestedErr)
	assert.Equal(t, uint64(20), h.balance(t, "USDC", "alice"))
}

var _ service.AssetLedger = (*ledger.Account)(nil)
