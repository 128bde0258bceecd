package models

import (
	"fmt"
	"time"

	"github.com/holiman/uint256"
)

// ErrorResponse represents error response format
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewErrorResponse creates a new error response
func NewErrorResponse(message string) ErrorResponse {
	return ErrorResponse{Error: message}
}

// CampaignSnapshot is the wire and cache representation of a campaign.
// Amounts are base-10 strings so 256-bit values survive JSON.
type CampaignSnapshot struct {
	ID                 uint64        `json:"id"`
	Creator            string        `json:"creator"`
	VenueID            string        `json:"venue_id"`
	Deadline           time.Time     `json:"deadline"`
	SellAsset          string        `json:"sell_asset"`
	BuyAsset           string        `json:"buy_asset"`
	SellIndex          int           `json:"sell_index"`
	BuyIndex           int           `json:"buy_index"`
	MinBuy             string        `json:"min_buy"`
	PriceLimit         string        `json:"price_limit"`
	DustRecipient      string        `json:"dust_recipient"`
	TotalPledged       string        `json:"total_pledged"`
	TotalBought        string        `json:"total_bought"`
	TotalClaimed       string        `json:"total_claimed"`
	TotalDust          string        `json:"total_dust"`
	PledgedAtExecution string        `json:"pledged_at_execution"`
	ActivePledgers     uint64        `json:"active_pledgers"`
	Executed           bool          `json:"executed"`
	State              CampaignState `json:"state,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	ExecutedAt         *time.Time    `json:"executed_at,omitempty"`
}

// Snapshot converts the campaign, deriving its state at now
func (c *Campaign) Snapshot(now time.Time) CampaignSnapshot {
	s := CampaignSnapshot{
		ID:                 c.ID,
		Creator:            c.Creator,
		VenueID:            c.VenueID,
		Deadline:           c.Deadline,
		SellAsset:          c.SellAsset,
		BuyAsset:           c.BuyAsset,
		SellIndex:          c.SellIndex,
		BuyIndex:           c.BuyIndex,
		MinBuy:             c.MinBuy.Dec(),
		PriceLimit:         c.PriceLimit.Dec(),
		DustRecipient:      c.DustRecipient,
		TotalPledged:       c.TotalPledged.Dec(),
		TotalBought:        c.TotalBought.Dec(),
		TotalClaimed:       c.TotalClaimed.Dec(),
		TotalDust:          c.TotalDust.Dec(),
		PledgedAtExecution: c.PledgedAtExecution.Dec(),
		ActivePledgers:     c.ActivePledgers,
		Executed:           c.Executed,
		CreatedAt:          c.CreatedAt,
	}
	if !now.IsZero() {
		s.State = c.State(now)
	}
	if !c.ExecutedAt.IsZero() {
		executedAt := c.ExecutedAt
		s.ExecutedAt = &executedAt
	}
	return s
}

// ToCampaign parses a snapshot back into a campaign
func (s CampaignSnapshot) ToCampaign() (*Campaign, error) {
	c := &Campaign{
		ID:             s.ID,
		Creator:        s.Creator,
		VenueID:        s.VenueID,
		Deadline:       s.Deadline,
		SellAsset:      s.SellAsset,
		BuyAsset:       s.BuyAsset,
		SellIndex:      s.SellIndex,
		BuyIndex:       s.BuyIndex,
		DustRecipient:  s.DustRecipient,
		ActivePledgers: s.ActivePledgers,
		Executed:       s.Executed,
		CreatedAt:      s.CreatedAt,
	}
	if s.ExecutedAt != nil {
		c.ExecutedAt = *s.ExecutedAt
	}

	amounts := []struct {
		name string
		src  string
		dst  *uint256.Int
	}{
		{"min_buy", s.MinBuy, &c.MinBuy},
		{"price_limit", s.PriceLimit, &c.PriceLimit},
		{"total_pledged", s.TotalPledged, &c.TotalPledged},
		{"total_bought", s.TotalBought, &c.TotalBought},
		{"total_claimed", s.TotalClaimed, &c.TotalClaimed},
		{"total_dust", s.TotalDust, &c.TotalDust},
		{"pledged_at_execution", s.PledgedAtExecution, &c.PledgedAtExecution},
	}
	for _, a := range amounts {
		v, err := ParseAmount(a.src)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", a.name, err)
		}
		a.dst.Set(v)
	}

	return c, nil
}

// StakeResponse reports a single pledger's stake
type StakeResponse struct {
	CampaignID uint64 `json:"campaign_id"`
	Pledger    string `json:"pledger"`
	Amount     string `json:"amount"`
}

// ToResponse converts Contribution to StakeResponse
func (c Contribution) ToResponse() StakeResponse {
	return StakeResponse{
		CampaignID: c.CampaignID,
		Pledger:    c.Pledger,
		Amount:     c.Amount.Dec(),
	}
}
