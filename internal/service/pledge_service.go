package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/holiman/uint256"
	reqcontext "github.com/prajwalbharadwajbm/pledgeswap/internal/context"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/models"
)

// PledgeService defines the public operations of the pledge engine
type PledgeService interface {
	Create(ctx context.Context, terms models.Terms) (uint64, error)
	Contribute(ctx context.Context, id uint64, pledger string, amount *uint256.Int) error
	Execute(ctx context.Context, id uint64) (*uint256.Int, error)
	Claim(ctx context.Context, id uint64, pledger string) (*uint256.Int, error)
	Refund(ctx context.Context, id uint64, pledger string) (*uint256.Int, error)
	Dust(ctx context.Context, id uint64) (*uint256.Int, error)

	Campaign(ctx context.Context, id uint64) (*models.Campaign, error)
	Stake(ctx context.Context, id uint64, pledger string) (*uint256.Int, error)
	Contributions(ctx context.Context, id uint64) ([]models.Contribution, error)
	Count(ctx context.Context) (uint64, error)
}

// CampaignRepository interface for data access. Implementations return copies;
// callers own the campaigns they receive.
type CampaignRepository interface {
	// CreateCampaign stores a new campaign and returns its assigned sequential id
	CreateCampaign(ctx context.Context, campaign *models.Campaign) (uint64, error)
	// GetCampaign may be served from a snapshot cache
	GetCampaign(ctx context.Context, id uint64) (*models.Campaign, error)
	// LoadCampaign always reads the system of record. State transitions start from it.
	LoadCampaign(ctx context.Context, id uint64) (*models.Campaign, error)
	CountCampaigns(ctx context.Context) (uint64, error)
	// GetStake returns zero for pledgers without a stake
	GetStake(ctx context.Context, id uint64, pledger string) (*uint256.Int, error)
	ListContributions(ctx context.Context, id uint64) ([]models.Contribution, error)
	// SaveCampaign atomically writes the campaign aggregates together with the
	// given stakes. A zero stake removes the pledger.
	SaveCampaign(ctx context.Context, campaign *models.Campaign, stakes ...models.Contribution) error
}

// AssetLedger is the token ledger holding sell and buy assets. Transfer and
// Approve act on behalf of the engine's escrow account.
//
// Calls made by the engine carry a context marking the campaign being operated
// on. An implementation that calls back into the engine must pass that context
// along: a callback made with an unrelated context waits on the campaign lock
// held by its own caller and never returns.
type AssetLedger interface {
	TransferFrom(ctx context.Context, asset, from, to string, amount *uint256.Int) error
	Transfer(ctx context.Context, asset, to string, amount *uint256.Int) error
	Approve(ctx context.Context, asset, spender string, amount *uint256.Int) error
	BalanceOf(ctx context.Context, asset, holder string) (*uint256.Int, error)
}

// SwapVenue is the external exchange pool performing the campaign swap. The
// context rules of AssetLedger apply to it as well.
type SwapVenue interface {
	// Coins returns the venue's canonical token ordering
	Coins(ctx context.Context, venueID string) ([]string, error)
	// Swap converts AmountIn of the sell coin and returns the amount of buy coin
	// received, failing with ErrBelowMinimum when MinAmountOut cannot be met. A
	// failed swap must leave both balances untouched.
	Swap(ctx context.Context, order models.SwapOrder) (*uint256.Int, error)
}

// Engine implements PledgeService. Operations on one campaign are serialized;
// different campaigns proceed independently, except that swaps selling the same
// asset into the same venue run one at a time because they share the escrow's
// allowance.
type Engine struct {
	repo        CampaignRepository
	ledger      AssetLedger
	venue       SwapVenue
	escrow      string
	now         func() time.Time
	locks       sync.Map
	settleLocks sync.Map
}

// NewEngine creates a pledge engine holding pooled funds in the escrow account
func NewEngine(repo CampaignRepository, ledger AssetLedger, venue SwapVenue, escrow string) *Engine {
	return NewEngineWithClock(repo, ledger, venue, escrow, time.Now)
}

// NewEngineWithClock creates a pledge engine with a custom clock
func NewEngineWithClock(repo CampaignRepository, ledger AssetLedger, venue SwapVenue, escrow string, now func() time.Time) *Engine {
	return &Engine{
		repo:   repo,
		ledger: ledger,
		venue:  venue,
		escrow: escrow,
		now:    now,
	}
}

// Escrow returns the ledger account holding pooled funds
func (s *Engine) Escrow() string {
	return s.escrow
}

// open locks the campaign and loads its current state. The returned context
// carries the campaign guard and must be used for every collaborator call.
func (s *Engine) open(ctx context.Context, id uint64) (context.Context, *models.Campaign, func(), error) {
	if reqcontext.InCampaign(ctx, id) {
		return nil, nil, nil, fmt.Errorf("%w: campaign %d", models.ErrReentrant, id)
	}
	// reject unknown ids before allocating a lock for them
	if _, err := s.repo.LoadCampaign(ctx, id); err != nil {
		return nil, nil, nil, err
	}

	value, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()

	campaign, err := s.repo.LoadCampaign(ctx, id)
	if err != nil {
		mu.Unlock()
		return nil, nil, nil, err
	}
	return reqcontext.EnterCampaign(ctx, id), campaign, mu.Unlock, nil
}

// settle serializes swaps that spend the escrow's allowance for one asset at one venue
func (s *Engine) settle(asset, venueID string) func() {
	value, _ := s.settleLocks.LoadOrStore(asset+"/"+venueID, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// revoke clears the venue's allowance over the escrow after a swap that did not go through
func (s *Engine) revoke(ctx context.Context, cause error, campaign *models.Campaign) error {
	if err := s.ledger.Approve(ctx, campaign.SellAsset, campaign.VenueID, new(uint256.Int)); err != nil {
		return fmt.Errorf("%w (revoking venue allowance failed: %v)", cause, err)
	}
	return cause
}

// restore writes back the state captured before a failed outbound transfer
func (s *Engine) restore(ctx context.Context, cause error, prev *models.Campaign, stakes ...models.Contribution) error {
	if err := s.repo.SaveCampaign(ctx, prev, stakes...); err != nil {
		return fmt.Errorf("%w (restore failed: %v)", cause, err)
	}
	return cause
}

func contribution(id uint64, pledger string, amount *uint256.Int) models.Contribution {
	c := models.Contribution{CampaignID: id, Pledger: pledger}
	if amount != nil {
		c.Amount.Set(amount)
	}
	return c
}

// transferError keeps the ledger's error intact while tagging it ErrTransferFailed
func transferError(err error) error {
	if errors.Is(err, models.ErrTransferFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", models.ErrTransferFailed, err)
}
