package bootstrap

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/goalbot/core/config"
	coredatabase "github.com/m3rciful/goalbot/core/database"
	"github.com/m3rciful/goalbot/core/logger"
)

// Options control the bootstrap pipeline: logger, database, migrations.
type Options struct {
	Config   *coreconfig.Config
	Database coredatabase.Config

	// SkipConnect stops after migrations; used by the migrate command.
	SkipConnect bool
	// SkipMigrations assumes the schema is already current.
	SkipMigrations bool

	LoggerInit func(*coreconfig.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(coredatabase.Config) error
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	DB *sqlx.DB
}

// Run initializes the logger, applies migrations, and connects to the database.
func Run(opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	if !opts.SkipMigrations {
		migrate := opts.Migrate
		if migrate == nil {
			migrate = coredatabase.RunMigrations
		}
		start := time.Now()
		if err := migrate(opts.Database); err != nil {
			return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
		}
		logStage("migrate", start)
	}

	if opts.SkipConnect {
		return &Result{}, nil
	}

	connect := opts.Connect
	if connect == nil {
		connect = coredatabase.Connect
	}
	start := time.Now()
	db, err := connect(opts.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}
	logStage("connect", start)

	return &Result{DB: db}, nil
}

func logStage(stage string, start time.Time) {
	logger.L.With("component", "app").Info("bootstrap stage",
		slog.String("event", "bootstrap"),
		slog.String("stage", stage),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
}
