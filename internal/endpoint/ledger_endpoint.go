package endpoint

import (
	"context"
	"fmt"

	"github.com/go-kit/kit/endpoint"
	"github.com/holiman/uint256"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/models"
)

// DevLedger is the faucet surface of a development ledger
type DevLedger interface {
	Mint(ctx context.Context, asset, holder string, amount *uint256.Int) error
	Approve(ctx context.Context, asset, owner, spender string, amount *uint256.Int) error
	BalanceOf(ctx context.Context, asset, holder string) (*uint256.Int, error)
}

// LedgerEndpoints exposes a development ledger so pledgers can fund and approve
// the escrow without an external token system
type LedgerEndpoints struct {
	MintEndpoint    endpoint.Endpoint
	ApproveEndpoint endpoint.Endpoint
	BalanceEndpoint endpoint.Endpoint
}

// MakeLedgerEndpoints creates endpoints for the development ledger
func MakeLedgerEndpoints(l DevLedger) LedgerEndpoints {
	return LedgerEndpoints{
		MintEndpoint:    makeMintEndpoint(l),
		ApproveEndpoint: makeApproveEndpoint(l),
		BalanceEndpoint: makeBalanceEndpoint(l),
	}
}

// MintRequest credits Amount of Asset to Holder
type MintRequest struct {
	Asset  string `json:"asset"`
	Holder string `json:"holder"`
	Amount string `json:"amount"`
}

// ApproveRequest lets Spender move up to Amount of Owner's Asset
type ApproveRequest struct {
	Asset   string `json:"asset"`
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}

// BalanceRequest asks for Holder's balance of Asset
type BalanceRequest struct {
	Asset  string
	Holder string
}

// BalanceResponse reports a ledger balance after the call
type BalanceResponse struct {
	Asset  string `json:"asset"`
	Holder string `json:"holder"`
	Amount string `json:"amount"`
	Err    error  `json:"-"`
}

// Failed implements the endpoint.Failer interface
func (r BalanceResponse) Failed() error { return r.Err }

func makeMintEndpoint(l DevLedger) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(MintRequest)
		amount, err := parseLedgerAmount(req.Amount)
		if err != nil {
			return BalanceResponse{Asset: req.Asset, Holder: req.Holder, Err: err}, nil
		}
		if err := l.Mint(ctx, req.Asset, req.Holder, amount); err != nil {
			return BalanceResponse{Asset: req.Asset, Holder: req.Holder, Err: err}, nil
		}
		return balanceResponse(ctx, l, req.Asset, req.Holder), nil
	}
}

func makeApproveEndpoint(l DevLedger) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(ApproveRequest)
		amount, err := models.ParseAmount(req.Amount)
		if err != nil {
			return BalanceResponse{Asset: req.Asset, Holder: req.Owner, Err: fmt.Errorf("%w: %v", models.ErrInvalidAmount, err)}, nil
		}
		if err := l.Approve(ctx, req.Asset, req.Owner, req.Spender, amount); err != nil {
			return BalanceResponse{Asset: req.Asset, Holder: req.Owner, Err: err}, nil
		}
		return balanceResponse(ctx, l, req.Asset, req.Owner), nil
	}
}

func makeBalanceEndpoint(l DevLedger) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(BalanceRequest)
		return balanceResponse(ctx, l, req.Asset, req.Holder), nil
	}
}

// parseLedgerAmount rejects zero so a mint always changes a balance
func parseLedgerAmount(s string) (*uint256.Int, error) {
	amount, err := models.ParseAmount(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidAmount, err)
	}
	if amount.IsZero() {
		return nil, models.ErrInvalidAmount
	}
	return amount, nil
}

func balanceResponse(ctx context.Context, l DevLedger, asset, holder string) BalanceResponse {
	balance, err := l.BalanceOf(ctx, asset, holder)
	resp := BalanceResponse{Asset: asset, Holder: holder, Err: err}
	if err == nil {
		resp.Amount = balance.Dec()
	}
	return resp
}
