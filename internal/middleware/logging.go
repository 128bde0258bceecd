package middleware

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/holiman/uint256"
	reqcontext "github.com/prajwalbharadwajbm/pledgeswap/internal/context"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/models"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/service"
)

// loggingMiddleware implements logging middleware for PledgeService
type loggingMiddleware struct {
	logger log.Logger
	next   service.PledgeService
}

// NewLoggingMiddleware creates a new logging middleware
func NewLoggingMiddleware(logger log.Logger) func(service.PledgeService) service.PledgeService {
	return func(next service.PledgeService) service.PledgeService {
		return &loggingMiddleware{
			logger: logger,
			next:   next,
		}
	}
}

// log writes one line per call. Mutations log at info, reads at debug; failures at warn.
func (mw *loggingMiddleware) log(ctx context.Context, method string, mutation bool, begin time.Time, err error, fields ...interface{}) {
	logFields := []interface{}{
		"method", method,
		"request_id", reqcontext.GetRequestID(ctx),
	}
	logFields = append(logFields, fields...)
	logFields = append(logFields, "took", time.Since(begin))

	if remoteAddr := reqcontext.GetRemoteAddr(ctx); remoteAddr != "" {
		logFields = append(logFields, "remote_addr", remoteAddr)
	}

	logger := level.Debug(mw.logger)
	if mutation {
		logger = level.Info(mw.logger)
	}
	if err != nil {
		logger = level.Warn(mw.logger)
		logFields = append(logFields, "error", err.Error(), "success", false)
	} else {
		logFields = append(logFields, "success", true)
	}

	logger.Log(logFields...)
}

// Create implements service.PledgeService
func (mw *loggingMiddleware) Create(ctx context.Context, terms models.Terms) (id uint64, err error) {
	defer func(begin time.Time) {
		mw.log(ctx, "Create", true, begin, err,
			"campaign_id", id,
			"creator", terms.Creator,
			"venue", terms.VenueID,
			"sell_asset", terms.SellAsset,
			"buy_asset", terms.BuyAsset,
			"deadline", terms.Deadline.UTC().Format(time.RFC3339),
		)
	}(time.Now())

	return mw.next.Create(ctx, terms)
}

// Contribute implements service.PledgeService
func (mw *loggingMiddleware) Contribute(ctx context.Context, id uint64, pledger string, amount *uint256.Int) (err error) {
	defer func(begin time.Time) {
		mw.log(ctx, "Contribute", true, begin, err,
			"campaign_id", id,
			"pledger", pledger,
			"amount", models.FormatAmount(amount),
		)
	}(time.Now())

	return mw.next.Contribute(ctx, id, pledger, amount)
}

// Execute implements service.PledgeService
func (mw *loggingMiddleware) Execute(ctx context.Context, id uint64) (bought *uint256.Int, err error) {
	defer func(begin time.Time) {
		mw.log(ctx, "Execute", true, begin, err, "campaign_id", id, "bought", models.FormatAmount(bought))
	}(time.Now())

	return mw.next.Execute(ctx, id)
}

// Claim implements service.PledgeService
func (mw *loggingMiddleware) Claim(ctx context.Context, id uint64, pledger string) (share *uint256.Int, err error) {
	defer func(begin time.Time) {
		mw.log(ctx, "Claim", true, begin, err, "campaign_id", id, "pledger", pledger, "share", models.FormatAmount(share))
	}(time.Now())

	return mw.next.Claim(ctx, id, pledger)
}

// Refund implements service.PledgeService
func (mw *loggingMiddleware) Refund(ctx context.Context, id uint64, pledger string) (refund *uint256.Int, err error) {
	defer func(begin time.Time) {
		mw.log(ctx, "Refund", true, begin, err, "campaign_id", id, "pledger", pledger, "refund", models.FormatAmount(refund))
	}(time.Now())

	return mw.next.Refund(ctx, id, pledger)
}

// Dust implements service.PledgeService
func (mw *loggingMiddleware) Dust(ctx context.Context, id uint64) (residue *uint256.Int, err error) {
	defer func(begin time.Time) {
		mw.log(ctx, "Dust", true, begin, err, "campaign_id", id, "residue", models.FormatAmount(residue))
	}(time.Now())

	return mw.next.Dust(ctx, id)
}

// Campaign implements service.PledgeService
func (mw *loggingMiddleware) Campaign(ctx context.Context, id uint64) (campaign *models.Campaign, err error) {
	defer func(begin time.Time) {
		mw.log(ctx, "Campaign", false, begin, err, "campaign_id", id)
	}(time.Now())

	return mw.next.Campaign(ctx, id)
}

// Stake implements service.PledgeService
func (mw *loggingMiddleware) Stake(ctx context.Context, id uint64, pledger string) (stake *uint256.Int, err error) {
	defer func(begin time.Time) {
		mw.log(ctx, "Stake", false, begin, err, "campaign_id", id, "pledger", pledger)
	}(time.Now())

	return mw.next.Stake(ctx, id, pledger)
}

// Contributions implements service.PledgeService
func (mw *loggingMiddleware) Contributions(ctx context.Context, id uint64) (contributions []models.Contribution, err error) {
	defer func(begin time.Time) {
		mw.log(ctx, "Contributions", false, begin, err, "campaign_id", id, "pledgers", len(contributions))
	}(time.Now())

	return mw.next.Contributions(ctx, id)
}

// Count implements service.PledgeService
func (mw *loggingMiddleware) Count(ctx context.Context) (count uint64, err error) {
	defer func(begin time.Time) {
		mw.log(ctx, "Count", false, begin, err, "count", count)
	}(time.Now())

	return mw.next.Count(ctx)
}
