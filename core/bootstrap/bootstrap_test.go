package bootstrap

import (
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/goalbot/core/config"
	coredatabase "github.com/m3rciful/goalbot/core/database"
)

func TestRunOrdersStages(t *testing.T) {
	var steps []string
	res, err := Run(Options{
		Config:     &coreconfig.Config{},
		LoggerInit: func(*coreconfig.Config) error { steps = append(steps, "logger"); return nil },
		Migrate:    func(coredatabase.Config) error { steps = append(steps, "migrate"); return nil },
		Connect: func(coredatabase.Config) (*sqlx.DB, error) {
			steps = append(steps, "connect")
			return nil, nil
		},
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Equal(t, []string{"logger", "migrate", "connect"}, steps)
}

func TestRunSkipsStages(t *testing.T) {
	var steps []string
	_, err := Run(Options{
		Config:         &coreconfig.Config{},
		SkipMigrations: true,
		SkipConnect:    true,
		LoggerInit:     func(*coreconfig.Config) error { steps = append(steps, "logger"); return nil },
		Migrate:        func(coredatabase.Config) error { steps = append(steps, "migrate"); return nil },
	})
	require.NoError(t, err)
	require.Equal(t, []string{"logger"}, steps)
}

func TestRunStopsOnFailure(t *testing.T) {
	connected := false
	_, err := Run(Options{
		Config:     &coreconfig.Config{},
		LoggerInit: func(*coreconfig.Config) error { return nil },
		Migrate:    func(coredatabase.Config) error { return errors.New("dirty schema") },
		Connect: func(coredatabase.Config) (*sqlx.DB, error) {
			connected = true
			return nil, nil
		},
	})
	require.ErrorContains(t, err, "migrations failed")
	require.False(t, connected)

	_, err = Run(Options{})
	require.Error(t, err)
}
