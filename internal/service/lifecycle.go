package service

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/models"
)

// Execute swaps the whole pool through the campaign's venue. It succeeds at
// most once; a failed swap leaves the campaign exactly as it was.
//
// The campaign is recorded as executed before any funds move, so no later
// Execute or Refund can spend the pool twice even if recording the proceeds fails.
func (s *Engine) Execute(ctx context.Context, id uint64) (*uint256.Int, error) {
	ctx, campaign, release, err := s.open(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	if campaign.Executed {
		return nil, models.ErrAlreadyExecuted
	}
	now := s.now()
	if now.After(campaign.Deadline) {
		return nil, models.ErrExpired
	}
	if campaign.TotalPledged.IsZero() {
		return nil, models.ErrEmptyPool
	}

	order := models.SwapOrder{
		VenueID:      campaign.VenueID,
		SellIndex:    campaign.SellIndex,
		BuyIndex:     campaign.BuyIndex,
		AmountIn:     campaign.TotalPledged,
		MinAmountOut: campaign.MinBuy,
		PriceLimit:   campaign.PriceLimit,
	}

	prev := campaign.Clone()
	campaign.PledgedAtExecution.Set(&campaign.TotalPledged)
	campaign.Executed = true
	campaign.ExecutedAt = now.UTC()
	if err := s.repo.SaveCampaign(ctx, campaign); err != nil {
		return nil, fmt.Errorf("failed to record execution of campaign %d: %w", id, err)
	}

	unlock := s.settle(campaign.SellAsset, campaign.VenueID)
	defer unlock()

	if err := s.ledger.Approve(ctx, campaign.SellAsset, campaign.VenueID, &order.AmountIn); err != nil {
		return nil, s.restore(ctx, transferError(err), prev)
	}
	bought, err := s.venue.Swap(ctx, order)
	if err == nil && (bought == nil || bought.Lt(&campaign.MinBuy)) {
		err = fmt.Errorf("%w: venue reported %s, minimum is %s", models.ErrBelowMinimum,
			models.FormatAmount(bought), campaign.MinBuy.Dec())
	}
	if err != nil {
		// the pool stays in escrow
		return nil, s.restore(ctx, s.revoke(ctx, err, campaign), prev)
	}

	campaign.TotalBought.Set(bought)
	if err := s.repo.SaveCampaign(ctx, campaign); err != nil {
		return nil, fmt.Errorf("swap settled but failed to record proceeds %s of campaign %d: %w", bought.Dec(), id, err)
	}
	return bought.Clone(), nil
}

// Claim pays the pledger floor(stake * TotalBought / PledgedAtExecution) of the
// buy asset. The divisor is frozen at execution, so claim order never changes a payout.
func (s *Engine) Claim(ctx context.Context, id uint64, pledger string) (*uint256.Int, error) {
	pledger, err := models.ValidatePledger(pledger)
	if err != nil {
		return nil, err
	}

	ctx, campaign, release, err := s.open(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	if !campaign.Executed {
		return nil, models.ErrNotExecuted
	}

	stake, err := s.repo.GetStake(ctx, id, pledger)
	if err != nil {
		return nil, fmt.Errorf("failed to load stake: %w", err)
	}
	if stake.IsZero() {
		return nil, models.ErrNoStake
	}

	share, err := proRataShare(stake, &campaign.TotalBought, &campaign.PledgedAtExecution)
	if err != nil {
		return nil, err
	}

	prev := campaign.Clone()
	campaign.TotalPledged.Sub(&campaign.TotalPledged, stake)
	campaign.TotalClaimed.Add(&campaign.TotalClaimed, share)
	campaign.ActivePledgers--

	if err := s.repo.SaveCampaign(ctx, campaign, contribution(id, pledger, nil)); err != nil {
		return nil, fmt.Errorf("failed to record claim: %w", err)
	}
	if !share.IsZero() {
		if err := s.ledger.Transfer(ctx, campaign.BuyAsset, pledger, share); err != nil {
			return nil, s.restore(ctx, transferError(err), prev, contribution(id, pledger, stake))
		}
	}
	return share, nil
}

// proRataShare computes floor(stake * bought / pledged) with a 512-bit intermediate
func proRataShare(stake, bought, pledged *uint256.Int) (*uint256.Int, error) {
	if pledged.IsZero() || stake.Gt(pledged) {
		return nil, fmt.Errorf("%w: stake %s exceeds pool %s", models.ErrOverflow, stake.Dec(), pledged.Dec())
	}
	share, overflow := new(uint256.Int).MulDivOverflow(stake, bought, pledged)
	if overflow {
		return nil, models.ErrOverflow
	}
	return share, nil
}
