package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/models"
)

var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrInvalidAccount        = errors.New("invalid account")
)

type allowanceKey struct {
	owner   string
	spender string
}

// MemoryLedger is an in-process token ledger with ERC-20 style balances and
// allowances. It backs development deployments and tests.
type MemoryLedger struct {
	mu         sync.Mutex
	balances   map[string]map[string]*uint256.Int
	allowances map[string]map[allowanceKey]*uint256.Int
}

// NewMemoryLedger creates an empty ledger
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances:   make(map[string]map[string]*uint256.Int),
		allowances: make(map[string]map[allowanceKey]*uint256.Int),
	}
}

// Mint credits new units of asset to holder
func (l *MemoryLedger) Mint(_ context.Context, asset, holder string, amount *uint256.Int) error {
	if holder == "" {
		return ErrInvalidAccount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	balance := l.balance(asset, holder)
	sum, overflow := new(uint256.Int).AddOverflow(balance, amount)
	if overflow {
		return models.ErrOverflow
	}
	balance.Set(sum)
	return nil
}

// BalanceOf returns holder's balance of asset
func (l *MemoryLedger) BalanceOf(_ context.Context, asset, holder string) (*uint256.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance(asset, holder).Clone(), nil
}

// Approve sets the amount spender may move out of owner's balance
func (l *MemoryLedger) Approve(_ context.Context, asset, owner, spender string, amount *uint256.Int) error {
	if owner == "" || spender == "" {
		return ErrInvalidAccount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.allowance(asset, owner, spender).Set(amount)
	return nil
}

// Allowance returns what spender may still move out of owner's balance
func (l *MemoryLedger) Allowance(asset, owner, spender string) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.allowance(asset, owner, spender).Clone()
}

// Transfer moves amount of asset from one holder to another
func (l *MemoryLedger) Transfer(_ context.Context, asset, from, to string, amount *uint256.Int) error {
	if to == "" {
		return fmt.Errorf("%w: %w", models.ErrTransferFailed, ErrInvalidAccount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.move(asset, from, to, amount)
}

// TransferFrom moves amount out of from's balance using spender's allowance
func (l *MemoryLedger) TransferFrom(_ context.Context, asset, spender, from, to string, amount *uint256.Int) error {
	if to == "" {
		return fmt.Errorf("%w: %w", models.ErrTransferFailed, ErrInvalidAccount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	allowance := l.allowance(asset, from, spender)
	if allowance.Lt(amount) {
		return fmt.Errorf("%w: %w: %s has %s approved for %s, needs %s", models.ErrTransferFailed,
			ErrInsufficientAllowance, from, allowance.Dec(), spender, amount.Dec())
	}
	if err := l.move(asset, from, to, amount); err != nil {
		return err
	}
	allowance.Sub(allowance, amount)
	return nil
}

// Account binds the ledger to a holder, acting as that holder for transfers and approvals
func (l *MemoryLedger) Account(holder string) *Account {
	return &Account{ledger: l, holder: holder}
}

// move requires l.mu held
func (l *MemoryLedger) move(asset, from, to string, amount *uint256.Int) error {
	source := l.balance(asset, from)
	if source.Lt(amount) {
		return fmt.Errorf("%w: %w: %s holds %s %s, needs %s", models.ErrTransferFailed,
			ErrInsufficientBalance, from, source.Dec(), asset, amount.Dec())
	}
	target := l.balance(asset, to)
	if _, overflow := new(uint256.Int).AddOverflow(target, amount); overflow {
		return fmt.Errorf("%w: %w", models.ErrTransferFailed, models.ErrOverflow)
	}
	source.Sub(source, amount)
	target.Add(target, amount)
	return nil
}

func (l *MemoryLedger) balance(asset, holder string) *uint256.Int {
	holders, ok := l.balances[asset]
	if !ok {
		holders = make(map[string]*uint256.Int)
		l.balances[asset] = holders
	}
	balance, ok := holders[holder]
	if !ok {
		balance = new(uint256.Int)
		holders[holder] = balance
	}
	return balance
}

func (l *MemoryLedger) allowance(asset, owner, spender string) *uint256.Int {
	approvals, ok := l.allowances[asset]
	if !ok {
		approvals = make(map[allowanceKey]*uint256.Int)
		l.allowances[asset] = approvals
	}
	key := allowanceKey{owner: owner, spender: spender}
	allowance, ok := approvals[key]
	if !ok {
		allowance = new(uint256.Int)
		approvals[key] = allowance
	}
	return allowance
}

// Account is a ledger view acting as one holder
type Account struct {
	ledger *MemoryLedger
	holder string
}

// Holder returns the account's identity on the ledger
func (a *Account) Holder() string {
	return a.holder
}

// TransferFrom pulls amount from a third party using the allowance granted to this account
func (a *Account) TransferFrom(ctx context.Context, asset, from, to string, amount *uint256.Int) error {
	return a.ledger.TransferFrom(ctx, asset, a.holder, from, to, amount)
}

// Transfer sends amount out of this account
func (a *Account) Transfer(ctx context.Context, asset, to string, amount *uint256.Int) error {
	return a.ledger.Transfer(ctx, asset, a.holder, to, amount)
}

// Approve lets spender move amount out of this account
func (a *Account) Approve(ctx context.Context, asset, spender string, amount *uint256.Int) error {
	return a.ledger.Approve(ctx, asset, a.holder, spender, amount)
}

// BalanceOf returns any holder's balance
func (a *Account) BalanceOf(ctx context.Context, asset, holder string) (*uint256.Int, error) {
	return a.ledger.BalanceOf(ctx, asset, holder)
}
