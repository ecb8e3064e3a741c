package database

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func TestConfigNormalizeDefaults(t *testing.T) {
	cfg := Config{Host: "db", Name: "goals", User: "bot", Password: "p@ss"}
	require.NoError(t, cfg.Normalize())
	require.Equal(t, "5432", cfg.Port)
	require.Equal(t, "disable", cfg.SSLMode)
	require.Equal(t, 5, cfg.MaxConnections)
	require.Empty(t, cfg.MigrationsPath)

	require.Equal(t, "user=bot password=p@ss host=db port=5432 dbname=goals sslmode=disable", cfg.KeywordDSN())
	require.Equal(t, "postgres://bot:p%40ss@db:5432/goals?sslmode=disable", cfg.URLDSN())
}

func TestConfigNormalizeRequiresHostAndName(t *testing.T) {
	require.Error(t, (&Config{Name: "goals"}).Normalize())
	require.Error(t, (&Config{Host: "db"}).Normalize())
}

func TestAppliedMigrationSelection(t *testing.T) {
	fsys := fstest.MapFS{
		"0003_indexes.up.sql":    {},
		"0001_init.up.sql":       {},
		"0001_init.down.sql":     {},
		"0002_tg_users.up.sql":   {},
		"readme.up.sql":          {},
		"0004_notes.sql.example": {},
	}
	files, err := listMigrations(fsys)
	require.NoError(t, err)
	require.Equal(t, []migrationFile{
		{Version: 1, Name: "0001_init.up.sql"},
		{Version: 2, Name: "0002_tg_users.up.sql"},
		{Version: 3, Name: "0003_indexes.up.sql"},
	}, files)

	require.Equal(t, []string{"0002_tg_users.up.sql", "0003_indexes.up.sql"}, appliedBetween(files, 1, 3))
	require.Empty(t, appliedBetween(files, 3, 3))
}

func TestEmbeddedMigrationsAreDefault(t *testing.T) {
	fsys, origin, err := migrationSource("")
	require.NoError(t, err)
	require.Equal(t, "embedded", origin)

	files, err := listMigrations(fsys)
	require.NoError(t, err)
	require.Equal(t, []migrationFile{
		{Version: 1, Name: "0001_goals.up.sql"},
		{Version: 2, Name: "0002_tg_users.up.sql"},
	}, files)

	_, origin, err = migrationSource("migrations")
	require.NoError(t, err)
	require.NotEqual(t, "embedded", origin)
}
