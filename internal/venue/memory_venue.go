package venue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/ledger"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/models"
)

// PriceScale is the fixed-point scale of pool prices and swap price limits
const PriceScale = 1_000_000_000_000_000_000

var (
	ErrUnknownPool  = errors.New("unknown pool")
	ErrInvalidPool  = errors.New("invalid pool")
	ErrInvalidIndex = errors.New("coin index out of range")
)

// Pool is a fixed-price exchange pool. Prices[i] is the value of one unit of
// Coins[i] in a common numeraire, scaled by PriceScale.
type Pool struct {
	ID     string
	Coins  []string
	Prices []uint256.Int
}

// MemoryVenue simulates exchange pools on top of a MemoryLedger. Each pool
// holds its liquidity in a ledger account named after the pool id, and trades
// on behalf of a single trader account.
type MemoryVenue struct {
	mu     sync.Mutex
	ledger *ledger.MemoryLedger
	pools  map[string]Pool
	trader string
}

// NewMemoryVenue creates a venue whose swaps settle against trader's balances
func NewMemoryVenue(l *ledger.MemoryLedger, trader string) *MemoryVenue {
	return &MemoryVenue{
		ledger: l,
		pools:  make(map[string]Pool),
		trader: trader,
	}
}

// AddPool registers or replaces a pool
func (v *MemoryVenue) AddPool(p Pool) error {
	if p.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidPool)
	}
	if len(p.Coins) < 2 || len(p.Coins) != len(p.Prices) {
		return fmt.Errorf("%w: %s needs at least two coins with one price each", ErrInvalidPool, p.ID)
	}
	seen := make(map[string]bool, len(p.Coins))
	for i, coin := range p.Coins {
		if coin == "" || seen[coin] {
			return fmt.Errorf("%w: %s has an empty or duplicate coin at %d", ErrInvalidPool, p.ID, i)
		}
		if p.Prices[i].IsZero() {
			return fmt.Errorf("%w: %s has a zero price for %s", ErrInvalidPool, p.ID, coin)
		}
		seen[coin] = true
	}

	pool := Pool{
		ID:     p.ID,
		Coins:  append([]string(nil), p.Coins...),
		Prices: append([]uint256.Int(nil), p.Prices...),
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.pools[p.ID] = pool
	return nil
}

// Coins returns the pool's token ordering
func (v *MemoryVenue) Coins(_ context.Context, poolID string) ([]string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	pool, ok := v.pools[poolID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPool, poolID)
	}
	return append([]string(nil), pool.Coins...), nil
}

// Quote returns the output of selling amountIn of coin sellIndex for coin buyIndex
func (v *MemoryVenue) Quote(_ context.Context, poolID string, sellIndex, buyIndex int, amountIn *uint256.Int) (*uint256.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	pool, ok := v.pools[poolID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPool, poolID)
	}
	return pool.quote(sellIndex, buyIndex, amountIn)
}

// Swap sells AmountIn of the sell coin from the trader's account, which must
// have approved the pool id as spender, and pays the output back to the trader.
func (v *MemoryVenue) Swap(ctx context.Context, order models.SwapOrder) (*uint256.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	pool, ok := v.pools[order.VenueID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPool, order.VenueID)
	}
	out, err := pool.quote(order.SellIndex, order.BuyIndex, &order.AmountIn)
	if err != nil {
		return nil, err
	}

	if out.Lt(&order.MinAmountOut) {
		return nil, fmt.Errorf("%w: quoted %s, wanted at least %s", models.ErrBelowMinimum, out.Dec(), order.MinAmountOut.Dec())
	}
	if !order.PriceLimit.IsZero() {
		if err := checkPriceLimit(&order.AmountIn, out, &order.PriceLimit); err != nil {
			return nil, err
		}
	}

	sellCoin, buyCoin := pool.Coins[order.SellIndex], pool.Coins[order.BuyIndex]
	reserve, err := v.ledger.BalanceOf(ctx, buyCoin, pool.ID)
	if err != nil {
		return nil, err
	}
	if reserve.Lt(out) {
		return nil, fmt.Errorf("%w: pool %s holds %s %s, swap needs %s", models.ErrInsufficientLiquidity,
			pool.ID, reserve.Dec(), buyCoin, out.Dec())
	}

	if err := v.ledger.TransferFrom(ctx, sellCoin, pool.ID, v.trader, pool.ID, &order.AmountIn); err != nil {
		return nil, err
	}
	if err := v.ledger.Transfer(ctx, buyCoin, pool.ID, v.trader, out); err != nil {
		if rerr := v.ledger.Transfer(ctx, sellCoin, pool.ID, v.trader, &order.AmountIn); rerr != nil {
			return nil, fmt.Errorf("%w (returning input failed: %v)", err, rerr)
		}
		return nil, err
	}
	return out, nil
}

func (p Pool) quote(sellIndex, buyIndex int, amountIn *uint256.Int) (*uint256.Int, error) {
	if sellIndex < 0 || sellIndex >= len(p.Coins) || buyIndex < 0 || buyIndex >= len(p.Coins) || sellIndex == buyIndex {
		return nil, fmt.Errorf("%w: pool %s has %d coins, got %d -> %d", ErrInvalidIndex, p.ID, len(p.Coins), sellIndex, buyIndex)
	}
	out, overflow := new(uint256.Int).MulDivOverflow(amountIn, &p.Prices[sellIndex], &p.Prices[buyIndex])
	if overflow {
		return nil, models.ErrOverflow
	}
	return out, nil
}

// checkPriceLimit rejects swaps paying more than limit units of input per unit of
// output, scaled by PriceScale
func checkPriceLimit(amountIn, out, limit *uint256.Int) error {
	if out.IsZero() {
		return fmt.Errorf("%w: swap yields nothing", models.ErrPriceLimit)
	}
	price, overflow := new(uint256.Int).MulDivOverflow(amountIn, uint256.NewInt(PriceScale), out)
	if overflow || price.Gt(limit) {
		return fmt.Errorf("%w: paying %s per unit, limit %s", models.ErrPriceLimit, price.Dec(), limit.Dec())
	}
	return nil
}
