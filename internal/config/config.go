package config

import (
	"fmt"
	"log"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage backends for campaign state
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type GeneralConfig struct {
	Env      string `env:"APP_ENV" envDefault:"dev"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	Port     int    `env:"PORT" envDefault:"8080"`
}

type DatabaseConfig struct {
	Host            string `env:"DB_HOST" envDefault:"localhost"`
	Port            int    `env:"DB_PORT" envDefault:"5432"`
	User            string `env:"DB_USER" envDefault:"postgres"`
	Password        string `env:"DB_PASSWORD"`
	DBName          string `env:"DB_NAME" envDefault:"pledgeswap"`
	SSLMode         string `env:"DB_SSLMODE" envDefault:"disable"`
	MaxOpenConns    int    `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int    `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime int    `env:"DB_CONN_MAX_LIFETIME" envDefault:"5"`
	ConnMaxIdleTime int    `env:"DB_CONN_MAX_IDLE_TIME" envDefault:"1"`
}

// DSN returns the lib/pq connection string for the configured database
func (c DatabaseConfig) DSN() string {
	return c.dsn(c.DBName)
}

func (c DatabaseConfig) dsn(dbName string) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, dbName, c.SSLMode)
}

// AdminDSN connects to the server's postgres database, used to create DBName
func (c DatabaseConfig) AdminDSN() string {
	return c.dsn("postgres")
}

// EngineConfig selects the escrow identity and the storage backend
type EngineConfig struct {
	EscrowAccount string `env:"ESCROW_ACCOUNT" envDefault:"pledgeswap-escrow"`
	Storage       string `env:"STORAGE" envDefault:"memory"`
}

// VenueConfig seeds the development swap pool. Prices are scaled by 1e18.
type VenueConfig struct {
	PoolID    string   `env:"VENUE_POOL_ID" envDefault:"usdc-weth"`
	Coins     []string `env:"VENUE_COINS" envDefault:"USDC,WETH" envSeparator:","`
	Prices    []string `env:"VENUE_PRICES" envDefault:"1000000000000000000,2000000000000000000" envSeparator:","`
	Liquidity string   `env:"VENUE_LIQUIDITY" envDefault:"1000000000000000000000000"`
}

// AppConfig is the complete service configuration
type AppConfig struct {
	GeneralConfig  GeneralConfig
	DatabaseConfig DatabaseConfig
	CacheConfig    CacheConfig
	EngineConfig   EngineConfig
	VenueConfig    VenueConfig
}

var AppConfigInstance AppConfig

// LoadConfigs loads the configurations from the .env file and environment variables
func LoadConfigs() error {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Warning: Error loading .env files: %v", err)
	}

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	AppConfigInstance = cfg
	return nil
}

// IsDev reports whether development-only surfaces should be served
func (c GeneralConfig) IsDev() bool {
	return c.Env == "dev"
}

func (c AppConfig) validate() error {
	switch c.EngineConfig.Storage {
	case StorageMemory, StoragePostgres:
	default:
		return fmt.Errorf("invalid STORAGE %q: want %s or %s", c.EngineConfig.Storage, StorageMemory, StoragePostgres)
	}
	if c.EngineConfig.EscrowAccount == "" {
		return fmt.Errorf("ESCROW_ACCOUNT must not be empty")
	}
	if len(c.VenueConfig.Coins) != len(c.VenueConfig.Prices) {
		return fmt.Errorf("VENUE_COINS has %d entries but VENUE_PRICES has %d",
			len(c.VenueConfig.Coins), len(c.VenueConfig.Prices))
	}
	return nil
}
