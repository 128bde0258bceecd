package main

import (
	"context"
	"fmt"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/holiman/uint256"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/cache"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/config"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/database"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/ledger"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/metrics"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/middleware"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/models"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/repository"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/service"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/transport"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/venue"
)

// application holds the wired service and the resources it owns
type application struct {
	cfg     config.AppConfig
	logger  kitlog.Logger
	metrics *metrics.Metrics
	service service.PledgeService
	ledger  *ledger.MemoryLedger
	cache   *cache.HybridCache
	checks  map[string]transport.HealthCheck
	closers []func()
}

func newApplication(cfg config.AppConfig, logger kitlog.Logger, m *metrics.Metrics) (_ *application, err error) {
	app := &application{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		checks:  make(map[string]transport.HealthCheck),
	}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	repo, err := app.newRepository()
	if err != nil {
		return nil, err
	}
	repo = repository.NewInstrumentedRepository(repo, m)

	cacheCfg := config.GetCacheConfig()
	if cacheCfg.EnableMemory || cacheCfg.EnableRedis {
		hc, err := cache.NewHybridCache(cacheCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize cache: %w", err)
		}
		app.cache = hc
		app.closers = append(app.closers, func() { hc.Close() })
		if cacheCfg.EnableRedis {
			app.checks["cache"] = hc.HealthCheck
		}
		repo = cache.NewCachedRepository(repo, hc, cacheCfg.DefaultTTL, cache.WithMetrics(m))
	}

	escrow := cfg.EngineConfig.EscrowAccount
	app.ledger = ledger.NewMemoryLedger()
	v, err := newVenue(app.ledger, escrow, cfg.VenueConfig)
	if err != nil {
		return nil, err
	}

	var svc service.PledgeService = service.NewEngine(repo, app.ledger.Account(escrow), v, escrow)
	svc = middleware.NewServiceMetricsMiddleware(m)(svc)
	svc = middleware.NewLoggingMiddleware(logger)(svc)
	app.service = svc

	return app, nil
}

func (app *application) newRepository() (service.CampaignRepository, error) {
	switch app.cfg.EngineConfig.Storage {
	case config.StoragePostgres:
		db, cleanup, err := database.Initialize(app.cfg.DatabaseConfig, app.logger)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, cleanup)
		app.checks["database"] = db.HealthCheck
		return repository.NewPostgresRepository(db), nil
	default:
		level.Warn(app.logger).Log("msg", "campaign state is held in memory and lost on restart")
		return repository.NewMemoryRepository(), nil
	}
}

// newVenue seeds the configured pool and mints its liquidity
func newVenue(l *ledger.MemoryLedger, trader string, cfg config.VenueConfig) (*venue.MemoryVenue, error) {
	pool := venue.Pool{
		ID:     cfg.PoolID,
		Coins:  cfg.Coins,
		Prices: make([]uint256.Int, len(cfg.Prices)),
	}
	for i, raw := range cfg.Prices {
		price, err := models.ParseAmount(raw)
		if err != nil {
			return nil, fmt.Errorf("VENUE_PRICES[%d]: %w", i, err)
		}
		pool.Prices[i] = *price
	}
	liquidity, err := models.ParseAmount(cfg.Liquidity)
	if err != nil {
		return nil, fmt.Errorf("VENUE_LIQUIDITY: %w", err)
	}

	v := venue.NewMemoryVenue(l, trader)
	if err := v.AddPool(pool); err != nil {
		return nil, err
	}
	for _, coin := range pool.Coins {
		if err := l.Mint(context.Background(), coin, pool.ID, liquidity); err != nil {
			return nil, fmt.Errorf("failed to seed %s liquidity: %w", coin, err)
		}
	}
	return v, nil
}

// Close releases resources in reverse order of acquisition
func (app *application) Close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		app.closers[i]()
	}
	app.closers = nil
}
