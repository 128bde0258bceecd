package service

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/models"
)

// Contribute pulls amount of the sell asset from the pledger into escrow and
// credits the pledger's stake. Contributions close at execution or after the deadline.
func (s *Engine) Contribute(ctx context.Context, id uint64, pledger string, amount *uint256.Int) error {
	pledger, err := models.ValidatePledger(pledger)
	if err != nil {
		return err
	}
	if amount == nil || amount.IsZero() {
		return models.ErrInvalidAmount
	}

	ctx, campaign, release, err := s.open(ctx, id)
	if err != nil {
		return err
	}
	defer release()

	if campaign.Executed {
		return models.ErrAlreadyExecuted
	}
	if s.now().After(campaign.Deadline) {
		return models.ErrExpired
	}

	stake, err := s.repo.GetStake(ctx, id, pledger)
	if err != nil {
		return fmt.Errorf("failed to load stake: %w", err)
	}
	newStake, overflow := new(uint256.Int).AddOverflow(stake, amount)
	if overflow {
		return models.ErrOverflow
	}
	newTotal, overflow := new(uint256.Int).AddOverflow(&campaign.TotalPledged, amount)
	if overflow {
		return models.ErrOverflow
	}

	// inbound transfer first: a stake is only credited for funds actually received
	if err := s.ledger.TransferFrom(ctx, campaign.SellAsset, pledger, s.escrow, amount); err != nil {
		return transferError(err)
	}

	if stake.IsZero() {
		campaign.ActivePledgers++
	}
	campaign.TotalPledged.Set(newTotal)

	if err := s.repo.SaveCampaign(ctx, campaign, contribution(id, pledger, newStake)); err != nil {
		if rerr := s.ledger.Transfer(ctx, campaign.SellAsset, pledger, amount); rerr != nil {
			return fmt.Errorf("failed to record contribution: %w (returning funds failed: %v)", err, rerr)
		}
		return fmt.Errorf("failed to record contribution: %w", err)
	}
	return nil
}

// Refund returns the pledger's full stake once the campaign expired unexecuted
func (s *Engine) Refund(ctx context.Context, id uint64, pledger string) (*uint256.Int, error) {
	pledger, err := models.ValidatePledger(pledger)
	if err != nil {
		return nil, err
	}

	ctx, campaign, release, err := s.open(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	if campaign.Executed {
		return nil, models.ErrAlreadyExecuted
	}
	if !s.now().After(campaign.Deadline) {
		return nil, models.ErrCampaignActive
	}

	stake, err := s.repo.GetStake(ctx, id, pledger)
	if err != nil {
		return nil, fmt.Errorf("failed to load stake: %w", err)
	}
	if stake.IsZero() {
		return nil, models.ErrNoStake
	}

	prev := campaign.Clone()
	campaign.TotalPledged.Sub(&campaign.TotalPledged, stake)
	campaign.ActivePledgers--

	// the stake is consumed before the outbound transfer can hand control to anyone
	if err := s.repo.SaveCampaign(ctx, campaign, contribution(id, pledger, nil)); err != nil {
		return nil, fmt.Errorf("failed to record refund: %w", err)
	}
	if err := s.ledger.Transfer(ctx, campaign.SellAsset, pledger, stake); err != nil {
		return nil, s.restore(ctx, transferError(err), prev, contribution(id, pledger, stake))
	}
	return stake, nil
}

// Dust sweeps the rounding residue of the buy asset to the dust recipient.
// It is only allowed once every pledger has claimed.
func (s *Engine) Dust(ctx context.Context, id uint64) (*uint256.Int, error) {
	ctx, campaign, release, err := s.open(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	if !campaign.Executed {
		if s.now().After(campaign.Deadline) {
			return nil, models.ErrNotExecuted
		}
		return nil, models.ErrCampaignActive
	}
	if campaign.ActivePledgers > 0 {
		return nil, fmt.Errorf("%w: %d pledgers have not claimed", models.ErrCampaignActive, campaign.ActivePledgers)
	}

	residue := campaign.Unclaimed()
	if residue.IsZero() {
		return residue, nil
	}

	prev := campaign.Clone()
	campaign.TotalDust.Add(&campaign.TotalDust, residue)

	if err := s.repo.SaveCampaign(ctx, campaign); err != nil {
		return nil, fmt.Errorf("failed to record dust sweep: %w", err)
	}
	if err := s.ledger.Transfer(ctx, campaign.BuyAsset, campaign.DustRecipient, residue); err != nil {
		return nil, s.restore(ctx, transferError(err), prev)
	}
	return residue, nil
}
