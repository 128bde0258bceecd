package database

import (
	"io/fs"
	"testing"

	kitlog "github.com/go-kit/log"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/prajwalbharadwajbm/pledgeswap/internal/config"
	"github.com/prajwalbharadwajbm/pledgeswap/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	files, err := fs.Glob(migrations.FS, "*.sql")
	require.NoError(t, err)
	assert.Contains(t, files, "000001_create_campaigns.up.sql")
	assert.Contains(t, files, "000001_create_campaigns.down.sql")

	source, err := iofs.New(migrations.FS, ".")
	require.NoError(t, err)
	defer source.Close()

	first, err := source.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	_, err = source.Next(uint(migrations.Version))
	assert.Error(t, err, "no migration beyond the expected version")
}

func TestEnsureDatabase_RejectsUnsafeName(t *testing.T) {
	cfg := config.DatabaseConfig{DBName: "pledges; DROP TABLE campaigns"}

	err := EnsureDatabase(cfg, kitlog.NewNopLogger())
	assert.ErrorContains(t, err, "invalid database name")
}
