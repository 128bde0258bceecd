package service

import (
	"context"
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/models"
)

// Create validates the terms against the clock and the venue's token ordering
// and registers a new campaign with zeroed aggregates.
func (s *Engine) Create(ctx context.Context, terms models.Terms) (uint64, error) {
	if err := terms.Validate(); err != nil {
		return 0, err
	}

	now := s.now()
	if !terms.Deadline.After(now) {
		return 0, fmt.Errorf("%w: %s is not after %s", models.ErrInvalidDeadline,
			terms.Deadline.UTC().Format(time.RFC3339), now.UTC().Format(time.RFC3339))
	}

	if err := s.validateOrdering(ctx, terms); err != nil {
		return 0, err
	}

	id, err := s.repo.CreateCampaign(ctx, models.NewCampaign(terms, now))
	if err != nil {
		return 0, fmt.Errorf("failed to create campaign: %w", err)
	}
	return id, nil
}

// validateOrdering checks the supplied indices against the venue's coins
func (s *Engine) validateOrdering(ctx context.Context, terms models.Terms) error {
	if terms.SellAsset == terms.BuyAsset {
		return fmt.Errorf("%w: sell and buy asset are both %s", models.ErrInvalidTokenOrdering, terms.SellAsset)
	}

	coins, err := s.venue.Coins(ctx, terms.VenueID)
	if err != nil {
		return fmt.Errorf("%w: venue %s: %w", models.ErrInvalidTerms, terms.VenueID, err)
	}

	if terms.SellIndex < 0 || terms.SellIndex >= len(coins) || coins[terms.SellIndex] != terms.SellAsset {
		return fmt.Errorf("%w: sell_index %d", models.ErrInvalidTokenOrdering, terms.SellIndex)
	}
	if terms.BuyIndex < 0 || terms.BuyIndex >= len(coins) || coins[terms.BuyIndex] != terms.BuyAsset {
		return fmt.Errorf("%w: buy_index %d", models.ErrInvalidTokenOrdering, terms.BuyIndex)
	}
	return nil
}

// Campaign returns the current state of a campaign
func (s *Engine) Campaign(ctx context.Context, id uint64) (*models.Campaign, error) {
	return s.repo.GetCampaign(ctx, id)
}

// Count returns the number of campaigns ever created
func (s *Engine) Count(ctx context.Context) (uint64, error) {
	return s.repo.CountCampaigns(ctx)
}

// Stake returns the pledger's current stake, zero when none
func (s *Engine) Stake(ctx context.Context, id uint64, pledger string) (*uint256.Int, error) {
	if _, err := s.repo.GetCampaign(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.GetStake(ctx, id, pledger)
}

// Contributions lists every nonzero stake in the campaign
func (s *Engine) Contributions(ctx context.Context, id uint64) ([]models.Contribution, error) {
	if _, err := s.repo.GetCampaign(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListContributions(ctx, id)
}
