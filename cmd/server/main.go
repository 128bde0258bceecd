package main

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-kit/log/level"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/config"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/logger"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/metrics"
)

const VERSION = "1.0.0"

func main() {
	if err := config.LoadConfigs(); err != nil {
		stdlog.Fatalf("failed to load config: %v", err)
	}
	cfg := config.AppConfigInstance

	log := logger.New(logger.Config{
		Service: "pledgeswap",
		Version: VERSION,
		Level:   cfg.GeneralConfig.LogLevel,
	})

	if len(os.Args) > 2 && os.Args[1] == "migrate" {
		if err := runMigrate(cfg.DatabaseConfig, log, os.Args[2]); err != nil {
			level.Error(log).Log("msg", "migration failed", "err", err)
			os.Exit(1)
		}
		return
	}

	app, err := newApplication(cfg, log, metrics.NewPrometheusMetrics())
	if err != nil {
		level.Error(log).Log("msg", "failed to initialize application", "err", err)
		os.Exit(1)
	}
	defer app.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.GeneralConfig.Port),
		Handler:      Routes(app),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		level.Info(log).Log("msg", "starting server", "port", cfg.GeneralConfig.Port,
			"storage", cfg.EngineConfig.Storage, "escrow", cfg.EngineConfig.EscrowAccount)
		errs <- srv.ListenAndServe()
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errs:
		if !errors.Is(err, http.ErrServerClosed) {
			level.Error(log).Log("msg", "failed to serve http server", "err", err)
		}
	case s := <-sig:
		level.Info(log).Log("msg", "shutting down", "signal", s.String())
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			level.Error(log).Log("msg", "graceful shutdown failed", "err", err)
		}
	}
}
