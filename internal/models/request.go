package models

import (
	"fmt"
	"strings"
	"time"
)

// CreatePledgeRequest represents an incoming campaign creation
type CreatePledgeRequest struct {
	Creator       string `json:"creator" validate:"required"`
	VenueID       string `json:"venue_id" validate:"required"`
	Deadline      string `json:"deadline" validate:"required"`
	SellAsset     string `json:"sell_asset" validate:"required"`
	BuyAsset      string `json:"buy_asset" validate:"required"`
	SellIndex     int    `json:"sell_index"`
	BuyIndex      int    `json:"buy_index"`
	MinBuy        string `json:"min_buy"`
	PriceLimit    string `json:"price_limit"`
	DustRecipient string `json:"dust_recipient"`
}

// Normalize trims identifiers so lookups are stable
func (r *CreatePledgeRequest) Normalize() {
	r.Creator = strings.TrimSpace(r.Creator)
	r.VenueID = strings.TrimSpace(r.VenueID)
	r.Deadline = strings.TrimSpace(r.Deadline)
	r.SellAsset = strings.TrimSpace(r.SellAsset)
	r.BuyAsset = strings.TrimSpace(r.BuyAsset)
	r.DustRecipient = strings.TrimSpace(r.DustRecipient)
}

// ToTerms parses the request into campaign terms. Deadlines are RFC 3339.
func (r *CreatePledgeRequest) ToTerms() (Terms, error) {
	r.Normalize()

	if r.Deadline == "" {
		return Terms{}, fmt.Errorf("%w: missing deadline", ErrInvalidDeadline)
	}
	deadline, err := time.Parse(time.RFC3339, r.Deadline)
	if err != nil {
		return Terms{}, fmt.Errorf("%w: %v", ErrInvalidDeadline, err)
	}
	minBuy, err := ParseAmount(r.MinBuy)
	if err != nil {
		return Terms{}, fmt.Errorf("%w: min_buy: %v", ErrInvalidTerms, err)
	}
	priceLimit, err := ParseAmount(r.PriceLimit)
	if err != nil {
		return Terms{}, fmt.Errorf("%w: price_limit: %v", ErrInvalidTerms, err)
	}

	return Terms{
		Creator:       r.Creator,
		VenueID:       r.VenueID,
		Deadline:      deadline,
		SellAsset:     r.SellAsset,
		BuyAsset:      r.BuyAsset,
		SellIndex:     r.SellIndex,
		BuyIndex:      r.BuyIndex,
		MinBuy:        *minBuy,
		PriceLimit:    *priceLimit,
		DustRecipient: r.DustRecipient,
	}, nil
}

// Validate checks the terms for missing identifiers. Deadline and venue
// ordering depend on the clock and venue, so the engine checks those.
func (t Terms) Validate() error {
	if strings.TrimSpace(t.Creator) == "" {
		return fmt.Errorf("%w: missing creator", ErrInvalidTerms)
	}
	if strings.TrimSpace(t.VenueID) == "" {
		return fmt.Errorf("%w: missing venue", ErrInvalidTerms)
	}
	if strings.TrimSpace(t.SellAsset) == "" || strings.TrimSpace(t.BuyAsset) == "" {
		return fmt.Errorf("%w: missing asset", ErrInvalidTerms)
	}
	return nil
}

// ContributeRequest represents a pledge of sell asset into a campaign
type ContributeRequest struct {
	Pledger string `json:"pledger"`
	Amount  string `json:"amount"`
}

// PledgerRequest identifies the pledger claiming or refunding
type PledgerRequest struct {
	Pledger string `json:"pledger"`
}

// ValidatePledger returns the trimmed pledger or ErrInvalidPledger
func ValidatePledger(pledger string) (string, error) {
	pledger = strings.TrimSpace(pledger)
	if pledger == "" {
		return "", ErrInvalidPledger
	}
	return pledger, nil
}
