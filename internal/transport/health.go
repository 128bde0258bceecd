package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"

	"github.com/gorilla/mux"
	pledgeendpoint "github.com/prajwalbharadwajbm/pledgeswap/internal/endpoint"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/metrics"
)

// HealthCheck checks one dependency of the service
type HealthCheck func(ctx context.Context) error

// Option configures NewHTTPHandler
type Option func(*handlerOptions)

type handlerOptions struct {
	service     string
	version     string
	checks      map[string]HealthCheck
	metrics     *metrics.Metrics
	ledger      *pledgeendpoint.LedgerEndpoints
	middlewares []mux.MiddlewareFunc
}

// WithServiceInfo sets the name and version reported by /health
func WithServiceInfo(service, version string) Option {
	return func(o *handlerOptions) {
		o.service = service
		o.version = version
	}
}

// WithHealthCheck adds a named dependency check to /health
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(o *handlerOptions) {
		if o.checks == nil {
			o.checks = make(map[string]HealthCheck)
		}
		o.checks[name] = check
	}
}

// WithHealthMetrics exports health check results as gauges
func WithHealthMetrics(m *metrics.Metrics) Option {
	return func(o *handlerOptions) {
		o.metrics = m
	}
}

// WithLedger serves the development ledger under /v1/ledger
func WithLedger(endpoints pledgeendpoint.LedgerEndpoints) Option {
	return func(o *handlerOptions) {
		o.ledger = &endpoints
	}
}

// WithMiddleware applies router middleware to every route
func WithMiddleware(mw ...mux.MiddlewareFunc) Option {
	return func(o *handlerOptions) {
		o.middlewares = append(o.middlewares, mw...)
	}
}

type healthResponse struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// healthHandler handles health check requests
func (o *handlerOptions) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := healthResponse{
		Status:  "healthy",
		Service: o.service,
		Version: o.version,
	}
	status := http.StatusOK

	names := make([]string, 0, len(o.checks))
	for name := range o.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if response.Checks == nil {
			response.Checks = make(map[string]string, len(names))
		}
		err := o.checks[name](r.Context())
		if o.metrics != nil {
			o.metrics.SetHealthCheckStatus(name, err == nil)
		}
		if err != nil {
			response.Checks[name] = err.Error()
			response.Status = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		response.Checks[name] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}
