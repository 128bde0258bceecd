package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/holiman/uint256"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/metrics"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/models"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/service"
)

// serviceMetricsMiddleware implements metrics collection for PledgeService
type serviceMetricsMiddleware struct {
	metrics *metrics.Metrics
	next    service.PledgeService
}

// NewServiceMetricsMiddleware creates a new service metrics middleware
func NewServiceMetricsMiddleware(metrics *metrics.Metrics) func(service.PledgeService) service.PledgeService {
	return func(next service.PledgeService) service.PledgeService {
		return &serviceMetricsMiddleware{
			metrics: metrics,
			next:    next,
		}
	}
}

var resultLabels = []struct {
	err   error
	label string
}{
	{models.ErrNotFound, "not_found"},
	{models.ErrInvalidDeadline, "invalid_deadline"},
	{models.ErrInvalidTokenOrdering, "invalid_token_ordering"},
	{models.ErrInvalidTerms, "invalid_terms"},
	{models.ErrInvalidAmount, "invalid_amount"},
	{models.ErrInvalidPledger, "invalid_pledger"},
	{models.ErrExpired, "expired"},
	{models.ErrNotExecuted, "not_executed"},
	{models.ErrAlreadyExecuted, "already_executed"},
	{models.ErrCampaignActive, "campaign_active"},
	{models.ErrNoStake, "no_stake"},
	{models.ErrEmptyPool, "empty_pool"},
	{models.ErrBelowMinimum, "below_minimum"},
	{models.ErrInsufficientLiquidity, "insufficient_liquidity"},
	{models.ErrPriceLimit, "price_limit"},
	{models.ErrTransferFailed, "transfer_failed"},
	{models.ErrOverflow, "overflow"},
	{models.ErrReentrant, "reentrant"},
}

// resultLabel maps an operation error to a bounded metric label
func resultLabel(err error) string {
	if err == nil {
		return "success"
	}
	for _, r := range resultLabels {
		if errors.Is(err, r.err) {
			return r.label
		}
	}
	return "internal"
}

func (mw *serviceMetricsMiddleware) record(operation string, begin time.Time, err error, amount *uint256.Int) {
	mw.metrics.RecordOperation(operation, resultLabel(err), time.Since(begin).Seconds())
	if err == nil && amount != nil && !amount.IsZero() {
		mw.metrics.RecordAmount(operation, models.AmountFloat(amount))
	}
}

// Create implements service.PledgeService
func (mw *serviceMetricsMiddleware) Create(ctx context.Context, terms models.Terms) (id uint64, err error) {
	defer func(begin time.Time) {
		mw.record("create", begin, err, nil)
		if err == nil {
			mw.metrics.RecordCampaignCreated()
		}
	}(time.Now())

	return mw.next.Create(ctx, terms)
}

// Contribute implements service.PledgeService
func (mw *serviceMetricsMiddleware) Contribute(ctx context.Context, id uint64, pledger string, amount *uint256.Int) (err error) {
	defer func(begin time.Time) { mw.record("contribute", begin, err, amount) }(time.Now())
	return mw.next.Contribute(ctx, id, pledger, amount)
}

// Execute implements service.PledgeService
func (mw *serviceMetricsMiddleware) Execute(ctx context.Context, id uint64) (bought *uint256.Int, err error) {
	defer func(begin time.Time) { mw.record("execute", begin, err, bought) }(time.Now())
	return mw.next.Execute(ctx, id)
}

// Claim implements service.PledgeService
func (mw *serviceMetricsMiddleware) Claim(ctx context.Context, id uint64, pledger string) (share *uint256.Int, err error) {
	defer func(begin time.Time) { mw.record("claim", begin, err, share) }(time.Now())
	return mw.next.Claim(ctx, id, pledger)
}

// Refund implements service.PledgeService
func (mw *serviceMetricsMiddleware) Refund(ctx context.Context, id uint64, pledger string) (refund *uint256.Int, err error) {
	defer func(begin time.Time) { mw.record("refund", begin, err, refund) }(time.Now())
	return mw.next.Refund(ctx, id, pledger)
}

// Dust implements service.PledgeService
func (mw *serviceMetricsMiddleware) Dust(ctx context.Context, id uint64) (residue *uint256.Int, err error) {
	defer func(begin time.Time) { mw.record("dust", begin, err, residue) }(time.Now())
	return mw.next.Dust(ctx, id)
}

// Campaign implements service.PledgeService. Reads are not counted.
func (mw *serviceMetricsMiddleware) Campaign(ctx context.Context, id uint64) (*models.Campaign, error) {
	return mw.next.Campaign(ctx, id)
}

// Stake implements service.PledgeService
func (mw *serviceMetricsMiddleware) Stake(ctx context.Context, id uint64, pledger string) (*uint256.Int, error) {
	return mw.next.Stake(ctx, id, pledger)
}

// Contributions implements service.PledgeService
func (mw *serviceMetricsMiddleware) Contributions(ctx context.Context, id uint64) ([]models.Contribution, error) {
	return mw.next.Contributions(ctx, id)
}

// Count implements service.PledgeService
func (mw *serviceMetricsMiddleware) Count(ctx context.Context) (uint64, error) {
	return mw.next.Count(ctx)
}
