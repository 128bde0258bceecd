package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-kit/kit/endpoint"
	kittransport "github.com/go-kit/kit/transport"
	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gorilla/mux"
	pledgeendpoint "github.com/prajwalbharadwajbm/pledgeswap/internal/endpoint"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/ledger"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/models"
)

// ErrBadRequest marks requests the transport could not decode
var ErrBadRequest = errors.New("malformed request")

// NewHTTPHandler creates HTTP handlers for the pledge service
func NewHTTPHandler(endpoints pledgeendpoint.PledgeEndpoints, logger log.Logger, opts ...Option) *mux.Router {
	o := handlerOptions{
		service: "pledgeswap",
		version: "dev",
	}
	for _, opt := range opts {
		opt(&o)
	}

	options := []httptransport.ServerOption{
		httptransport.ServerErrorEncoder(encodeError),
		httptransport.ServerErrorHandler(kittransport.NewLogErrorHandler(level.Error(logger))),
	}

	r := mux.NewRouter()
	r.Use(o.middlewares...)

	r.Handle("/v1/pledges", httptransport.NewServer(
		endpoints.CreateEndpoint, decodeCreateRequest, encodeCreatedResponse, options...,
	)).Methods(http.MethodPost)
	r.Handle("/v1/pledges/count", httptransport.NewServer(
		endpoints.CountEndpoint, decodeCountRequest, encodeResponse, options...,
	)).Methods(http.MethodGet)
	r.Handle("/v1/pledges/{id:[0-9]+}", httptransport.NewServer(
		endpoints.CampaignEndpoint, decodeCampaignRequest, encodeResponse, options...,
	)).Methods(http.MethodGet)
	r.Handle("/v1/pledges/{id:[0-9]+}/stakes", httptransport.NewServer(
		endpoints.ContributionsEndpoint, decodeCampaignRequest, encodeResponse, options...,
	)).Methods(http.MethodGet)
	r.Handle("/v1/pledges/{id:[0-9]+}/stakes/{pledger}", httptransport.NewServer(
		endpoints.StakeEndpoint, decodeStakeRequest, encodeResponse, options...,
	)).Methods(http.MethodGet)
	r.Handle("/v1/pledges/{id:[0-9]+}/contributions", httptransport.NewServer(
		endpoints.ContributeEndpoint, decodeContributeRequest, encodeResponse, options...,
	)).Methods(http.MethodPost)
	r.Handle("/v1/pledges/{id:[0-9]+}/execute", httptransport.NewServer(
		endpoints.ExecuteEndpoint, decodeCampaignRequest, encodeResponse, options...,
	)).Methods(http.MethodPost)
	r.Handle("/v1/pledges/{id:[0-9]+}/claims", httptransport.NewServer(
		endpoints.ClaimEndpoint, decodePledgerRequest, encodeResponse, options...,
	)).Methods(http.MethodPost)
	r.Handle("/v1/pledges/{id:[0-9]+}/refunds", httptransport.NewServer(
		endpoints.RefundEndpoint, decodePledgerRequest, encodeResponse, options...,
	)).Methods(http.MethodPost)
	r.Handle("/v1/pledges/{id:[0-9]+}/dust", httptransport.NewServer(
		endpoints.DustEndpoint, decodeCampaignRequest, encodeResponse, options...,
	)).Methods(http.MethodPost)

	if o.ledger != nil {
		r.Handle("/v1/ledger/mint", httptransport.NewServer(
			o.ledger.MintEndpoint, decodeMintRequest, encodeResponse, options...,
		)).Methods(http.MethodPost)
		r.Handle("/v1/ledger/approve", httptransport.NewServer(
			o.ledger.ApproveEndpoint, decodeApproveRequest, encodeResponse, options...,
		)).Methods(http.MethodPost)
		r.Handle("/v1/ledger/{asset}/{holder}", httptransport.NewServer(
			o.ledger.BalanceEndpoint, decodeBalanceRequest, encodeResponse, options...,
		)).Methods(http.MethodGet)
	}

	r.HandleFunc("/health", o.healthHandler).Methods(http.MethodGet)

	return r
}

func decodeCreateRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var req models.CreatePledgeRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	return pledgeendpoint.CreateRequest{Pledge: req}, nil
}

func decodeCountRequest(_ context.Context, _ *http.Request) (interface{}, error) {
	return pledgeendpoint.CountRequest{}, nil
}

func decodeCampaignRequest(_ context.Context, r *http.Request) (interface{}, error) {
	id, err := campaignID(r)
	if err != nil {
		return nil, err
	}
	return pledgeendpoint.CampaignRequest{ID: id}, nil
}

func decodeStakeRequest(_ context.Context, r *http.Request) (interface{}, error) {
	id, err := campaignID(r)
	if err != nil {
		return nil, err
	}
	return pledgeendpoint.PledgerRequest{ID: id, Pledger: mux.Vars(r)["pledger"]}, nil
}

// decodeContributeRequest trusts the pledger named in the body. Authenticating the
// caller and binding it to that name is left to the gateway in front of this handler.
func decodeContributeRequest(_ context.Context, r *http.Request) (interface{}, error) {
	id, err := campaignID(r)
	if err != nil {
		return nil, err
	}
	var req models.ContributeRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	return pledgeendpoint.ContributeRequest{ID: id, Contribute: req}, nil
}

func decodePledgerRequest(_ context.Context, r *http.Request) (interface{}, error) {
	id, err := campaignID(r)
	if err != nil {
		return nil, err
	}
	var req models.PledgerRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	return pledgeendpoint.PledgerRequest{ID: id, Pledger: req.Pledger}, nil
}

func decodeMintRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var req pledgeendpoint.MintRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	return req, nil
}

func decodeApproveRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var req pledgeendpoint.ApproveRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	return req, nil
}

func decodeBalanceRequest(_ context.Context, r *http.Request) (interface{}, error) {
	vars := mux.Vars(r)
	return pledgeendpoint.BalanceRequest{Asset: vars["asset"], Holder: vars["holder"]}, nil
}

// campaignID reads the {id} route variable. The route pattern guarantees
// digits, so only values beyond uint64 fail here.
func campaignID(r *http.Request) (uint64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: campaign id %q", ErrBadRequest, raw)
	}
	return id, nil
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

// encodeResponse writes successful responses as JSON and routes failures to encodeError
func encodeResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	return writeJSON(ctx, w, http.StatusOK, response)
}

func encodeCreatedResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	return writeJSON(ctx, w, http.StatusCreated, response)
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, response interface{}) error {
	if f, ok := response.(endpoint.Failer); ok && f.Failed() != nil {
		encodeError(ctx, f.Failed(), w)
		return nil
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(response)
}

// encodeError encodes error to HTTP response
func encodeError(_ context.Context, err error, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode(err))
	json.NewEncoder(w).Encode(models.NewErrorResponse(err.Error()))
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, ledger.ErrInvalidAccount),
		models.IsValidationError(err):
		return http.StatusBadRequest
	case models.IsStateError(err):
		return http.StatusConflict
	case models.IsSettlementError(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
