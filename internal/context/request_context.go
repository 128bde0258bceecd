package context

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RequestContextKey represents keys used in request context
type RequestContextKey string

const (
	// RequestInfoKey carries the RequestInfo of an inbound call
	RequestInfoKey RequestContextKey = "request_info"
	// CampaignGuardKey marks campaigns whose operation is in progress on this call chain
	CampaignGuardKey RequestContextKey = "campaign_guard"
)

// RequestInfo holds information about the current request
type RequestInfo struct {
	ID         string    `json:"request_id"`
	StartTime  time.Time `json:"start_time"`
	UserAgent  string    `json:"user_agent,omitempty"`
	RemoteAddr string    `json:"remote_addr,omitempty"`
}

// NewRequestContext starts a request with a fresh id and the current time
func NewRequestContext(ctx context.Context, userAgent, remoteAddr string) context.Context {
	return WithRequestInfo(ctx, RequestInfo{
		ID:         uuid.New().String(),
		StartTime:  time.Now(),
		UserAgent:  userAgent,
		RemoteAddr: remoteAddr,
	})
}

// WithRequestInfo stores info, replacing any earlier value
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, RequestInfoKey, info)
}

// GetRequestInfo returns the stored info, or the zero value
func GetRequestInfo(ctx context.Context) RequestInfo {
	info, _ := ctx.Value(RequestInfoKey).(RequestInfo)
	return info
}

// WithRequestID overrides the request id, keeping the rest of the info
func WithRequestID(ctx context.Context, requestID string) context.Context {
	info := GetRequestInfo(ctx)
	info.ID = requestID
	return WithRequestInfo(ctx, info)
}

func GetRequestID(ctx context.Context) string {
	return GetRequestInfo(ctx).ID
}

func GetStartTime(ctx context.Context) time.Time {
	return GetRequestInfo(ctx).StartTime
}

func GetUserAgent(ctx context.Context) string {
	return GetRequestInfo(ctx).UserAgent
}

func GetRemoteAddr(ctx context.Context) string {
	return GetRequestInfo(ctx).RemoteAddr
}

// campaignGuard is an immutable linked set so nested entries never mutate a parent context
type campaignGuard struct {
	id     uint64
	parent *campaignGuard
}

// EnterCampaign marks the campaign as being operated on for everything called with the returned context
func EnterCampaign(ctx context.Context, campaignID uint64) context.Context {
	parent, _ := ctx.Value(CampaignGuardKey).(*campaignGuard)
	return context.WithValue(ctx, CampaignGuardKey, &campaignGuard{id: campaignID, parent: parent})
}

// InCampaign reports whether ctx descends from an operation on the campaign
func InCampaign(ctx context.Context, campaignID uint64) bool {
	guard, _ := ctx.Value(CampaignGuardKey).(*campaignGuard)
	for ; guard != nil; guard = guard.parent {
		if guard.id == campaignID {
			return true
		}
	}
	return false
}
