package main

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/config"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/endpoint"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/middleware"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/transport"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Routes(app *application) *mux.Router {
	opts := []transport.Option{
		transport.WithServiceInfo("pledgeswap", VERSION),
		transport.WithHealthMetrics(app.metrics),
		transport.WithMiddleware(
			middleware.NewRequestIDMiddleware().Middleware,
			middleware.NewMetricsMiddleware(app.metrics).Middleware,
		),
	}
	for name, check := range app.checks {
		opts = append(opts, transport.WithHealthCheck(name, check))
	}
	// the faucet mints tokens freely, so it never leaves development
	if app.cfg.GeneralConfig.IsDev() {
		opts = append(opts, transport.WithLedger(endpoint.MakeLedgerEndpoints(app.ledger)))
	}

	router := transport.NewHTTPHandler(endpoint.MakePledgeEndpoints(app.service), app.logger, opts...)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	if app.cache != nil {
		router.HandleFunc("/health/cache", app.cacheHealthHandler).Methods(http.MethodGet)
	}

	return router
}

func (app *application) cacheHealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(config.GetCacheHealth(app.cache))
}
