package endpoint

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/holiman/uint256"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/models"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/service"
)

// PledgeEndpoints holds all endpoints for the pledge service
type PledgeEndpoints struct {
	CreateEndpoint        endpoint.Endpoint
	CountEndpoint         endpoint.Endpoint
	CampaignEndpoint      endpoint.Endpoint
	ContributionsEndpoint endpoint.Endpoint
	StakeEndpoint         endpoint.Endpoint
	ContributeEndpoint    endpoint.Endpoint
	ExecuteEndpoint       endpoint.Endpoint
	ClaimEndpoint         endpoint.Endpoint
	RefundEndpoint        endpoint.Endpoint
	DustEndpoint          endpoint.Endpoint
}

// MakePledgeEndpoints creates endpoints for the pledge service
func MakePledgeEndpoints(s service.PledgeService) PledgeEndpoints {
	return makePledgeEndpoints(s, time.Now)
}

func makePledgeEndpoints(s service.PledgeService, now func() time.Time) PledgeEndpoints {
	return PledgeEndpoints{
		CreateEndpoint:        makeCreateEndpoint(s),
		CountEndpoint:         makeCountEndpoint(s),
		CampaignEndpoint:      makeCampaignEndpoint(s, now),
		ContributionsEndpoint: makeContributionsEndpoint(s),
		StakeEndpoint:         makeStakeEndpoint(s),
		ContributeEndpoint:    makeContributeEndpoint(s),
		ExecuteEndpoint:       makeExecuteEndpoint(s),
		ClaimEndpoint:         makeClaimEndpoint(s),
		RefundEndpoint:        makeRefundEndpoint(s),
		DustEndpoint:          makeDustEndpoint(s),
	}
}

// CreateRequest carries a new campaign's terms as received on the wire
type CreateRequest struct {
	Pledge models.CreatePledgeRequest
}

// CreateResponse returns the id assigned to a new campaign
type CreateResponse struct {
	ID  uint64 `json:"id"`
	Err error  `json:"-"`
}

// Failed implements the endpoint.Failer interface
func (r CreateResponse) Failed() error { return r.Err }

// CountRequest asks for the number of campaigns ever created
type CountRequest struct{}

// CountResponse reports the campaign count
type CountResponse struct {
	Count uint64 `json:"count"`
	Err   error  `json:"-"`
}

// Failed implements the endpoint.Failer interface
func (r CountResponse) Failed() error { return r.Err }

// CampaignRequest identifies a campaign
type CampaignRequest struct {
	ID uint64
}

// CampaignResponse returns a campaign snapshot
type CampaignResponse struct {
	Campaign *models.CampaignSnapshot `json:"campaign,omitempty"`
	Err      error                    `json:"-"`
}

// Failed implements the endpoint.Failer interface
func (r CampaignResponse) Failed() error { return r.Err }

// ContributionsResponse lists the current stakes of a campaign
type ContributionsResponse struct {
	Stakes []models.StakeResponse `json:"stakes"`
	Err    error                  `json:"-"`
}

// Failed implements the endpoint.Failer interface
func (r ContributionsResponse) Failed() error { return r.Err }

// PledgerRequest identifies a pledger within a campaign
type PledgerRequest struct {
	ID      uint64
	Pledger string
}

// ContributeRequest pledges Amount of the sell asset
type ContributeRequest struct {
	ID         uint64
	Contribute models.ContributeRequest
}

// AmountResponse reports the amount moved, or the stake held, by an operation
type AmountResponse struct {
	CampaignID uint64 `json:"campaign_id"`
	Pledger    string `json:"pledger,omitempty"`
	Amount     string `json:"amount"`
	Err        error  `json:"-"`
}

// Failed implements the endpoint.Failer interface
func (r AmountResponse) Failed() error { return r.Err }

func makeCreateEndpoint(s service.PledgeService) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(CreateRequest)
		terms, err := req.Pledge.ToTerms()
		if err != nil {
			return CreateResponse{Err: err}, nil
		}
		id, err := s.Create(ctx, terms)
		return CreateResponse{ID: id, Err: err}, nil
	}
}

func makeCountEndpoint(s service.PledgeService) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		count, err := s.Count(ctx)
		return CountResponse{Count: count, Err: err}, nil
	}
}

func makeCampaignEndpoint(s service.PledgeService, now func() time.Time) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(CampaignRequest)
		campaign, err := s.Campaign(ctx, req.ID)
		if err != nil {
			return CampaignResponse{Err: err}, nil
		}
		snapshot := campaign.Snapshot(now())
		return CampaignResponse{Campaign: &snapshot}, nil
	}
}

func makeContributionsEndpoint(s service.PledgeService) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(CampaignRequest)
		contributions, err := s.Contributions(ctx, req.ID)
		if err != nil {
			return ContributionsResponse{Err: err}, nil
		}
		stakes := make([]models.StakeResponse, 0, len(contributions))
		for _, c := range contributions {
			stakes = append(stakes, c.ToResponse())
		}
		return ContributionsResponse{Stakes: stakes}, nil
	}
}

func makeStakeEndpoint(s service.PledgeService) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(PledgerRequest)
		stake, err := s.Stake(ctx, req.ID, req.Pledger)
		return amountResponse(req.ID, req.Pledger, stake, err), nil
	}
}

func makeContributeEndpoint(s service.PledgeService) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(ContributeRequest)
		pledger := req.Contribute.Pledger
		amount, err := models.ParseAmount(req.Contribute.Amount)
		if err != nil {
			return AmountResponse{CampaignID: req.ID, Pledger: pledger, Err: fmt.Errorf("%w: %v", models.ErrInvalidAmount, err)}, nil
		}
		if err := s.Contribute(ctx, req.ID, pledger, amount); err != nil {
			return AmountResponse{CampaignID: req.ID, Pledger: pledger, Err: err}, nil
		}
		// report the resulting stake rather than the increment
		stake, err := s.Stake(ctx, req.ID, pledger)
		return amountResponse(req.ID, pledger, stake, err), nil
	}
}

func makeExecuteEndpoint(s service.PledgeService) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(CampaignRequest)
		bought, err := s.Execute(ctx, req.ID)
		return amountResponse(req.ID, "", bought, err), nil
	}
}

func makeClaimEndpoint(s service.PledgeService) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(PledgerRequest)
		share, err := s.Claim(ctx, req.ID, req.Pledger)
		return amountResponse(req.ID, req.Pledger, share, err), nil
	}
}

func makeRefundEndpoint(s service.PledgeService) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(PledgerRequest)
		refund, err := s.Refund(ctx, req.ID, req.Pledger)
		return amountResponse(req.ID, req.Pledger, refund, err), nil
	}
}

func makeDustEndpoint(s service.PledgeService) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(CampaignRequest)
		residue, err := s.Dust(ctx, req.ID)
		return amountResponse(req.ID, "", residue, err), nil
	}
}

func amountResponse(id uint64, pledger string, amount *uint256.Int, err error) AmountResponse {
	resp := AmountResponse{CampaignID: id, Pledger: pledger, Err: err}
	if err == nil && amount != nil {
		resp.Amount = amount.Dec()
	}
	return resp
}

// Campaign is a helper method to call the campaign endpoint
func (e PledgeEndpoints) Campaign(ctx context.Context, id uint64) (*models.CampaignSnapshot, error) {
	response, err := e.CampaignEndpoint(ctx, CampaignRequest{ID: id})
	if err != nil {
		return nil, err
	}
	resp := response.(CampaignResponse)
	return resp.Campaign, resp.Err
}
