package models

import (
	"time"

	"github.com/holiman/uint256"
)

// Campaign is one pooled pledge: contributors pledge SellAsset until the deadline,
// a single swap converts the pool into BuyAsset, and contributors claim their
// share of the proceeds. Terms are fixed at creation; the aggregates change as
// contributions, claims and refunds are applied.
type Campaign struct {
	ID            uint64
	Creator       string
	VenueID       string
	Deadline      time.Time
	SellAsset     string
	BuyAsset      string
	SellIndex     int
	BuyIndex      int
	MinBuy        uint256.Int
	PriceLimit    uint256.Int
	DustRecipient string

	TotalPledged uint256.Int
	TotalBought  uint256.Int
	TotalClaimed uint256.Int
	TotalDust    uint256.Int

	// PledgedAtExecution freezes the pool size at swap time; claims divide by it
	// so payouts do not depend on claim order.
	PledgedAtExecution uint256.Int

	ActivePledgers uint64
	Executed       bool
	CreatedAt      time.Time
	ExecutedAt     time.Time
}

// CampaignState is the lifecycle position of a campaign at a given instant
type CampaignState string

// enum values for CampaignState
const (
	StateActive   CampaignState = "ACTIVE"
	StateExecuted CampaignState = "EXECUTED"
	StateClosed   CampaignState = "CLOSED"
	StateExpired  CampaignState = "EXPIRED"
)

// State derives the lifecycle state. Executed campaigns close once every
// pledger has claimed; unexecuted campaigns expire once the deadline passes.
func (c *Campaign) State(now time.Time) CampaignState {
	switch {
	case c.Executed && c.ActivePledgers == 0:
		return StateClosed
	case c.Executed:
		return StateExecuted
	case now.After(c.Deadline):
		return StateExpired
	default:
		return StateActive
	}
}

// IsActive returns true while the campaign still accepts contributions
func (c *Campaign) IsActive(now time.Time) bool {
	return c.State(now) == StateActive
}

// Unclaimed returns the buy asset not yet handed out as claims or dust
func (c *Campaign) Unclaimed() *uint256.Int {
	out := new(uint256.Int).Sub(&c.TotalBought, &c.TotalClaimed)
	return out.Sub(out, &c.TotalDust)
}

// Clone returns a deep copy. uint256.Int is a fixed array so a value copy suffices.
func (c *Campaign) Clone() *Campaign {
	cp := *c
	return &cp
}

// Terms are the immutable parameters supplied when creating a campaign
type Terms struct {
	Creator       string
	VenueID       string
	Deadline      time.Time
	SellAsset     string
	BuyAsset      string
	SellIndex     int
	BuyIndex      int
	MinBuy        uint256.Int
	PriceLimit    uint256.Int
	DustRecipient string
}

// NewCampaign builds a campaign with zeroed aggregates from the given terms
func NewCampaign(terms Terms, createdAt time.Time) *Campaign {
	recipient := terms.DustRecipient
	if recipient == "" {
		recipient = terms.Creator
	}
	return &Campaign{
		Creator:       terms.Creator,
		VenueID:       terms.VenueID,
		Deadline:      terms.Deadline.UTC(),
		SellAsset:     terms.SellAsset,
		BuyAsset:      terms.BuyAsset,
		SellIndex:     terms.SellIndex,
		BuyIndex:      terms.BuyIndex,
		MinBuy:        terms.MinBuy,
		PriceLimit:    terms.PriceLimit,
		DustRecipient: recipient,
		CreatedAt:     createdAt.UTC(),
	}
}

// Contribution is a single pledger's current stake in a campaign
type Contribution struct {
	CampaignID uint64
	Pledger    string
	Amount     uint256.Int
}

// SwapOrder is what the engine hands the swap venue at execution
type SwapOrder struct {
	VenueID      string
	SellIndex    int
	BuyIndex     int
	AmountIn     uint256.Int
	MinAmountOut uint256.Int
	PriceLimit   uint256.Int
}
