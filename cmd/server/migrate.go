package main

import (
	"fmt"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/config"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/database"
)

// runMigrate handles `server migrate up|down|version` against the configured database
func runMigrate(cfg config.DatabaseConfig, logger kitlog.Logger, action string) error {
	manager := database.NewMigrationManager(cfg, logger)

	switch action {
	case "up":
		if err := database.EnsureDatabase(cfg, logger); err != nil {
			return err
		}
		return manager.Up()
	case "down":
		return manager.Down()
	case "version":
		version, dirty, err := manager.Version()
		if err != nil {
			return err
		}
		level.Info(logger).Log("msg", "schema version", "version", version, "dirty", dirty)
		return nil
	default:
		return fmt.Errorf("unknown migrate action %q: want up, down or version", action)
	}
}
