package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/m3rciful/goalbot/core/logger"
	"github.com/m3rciful/goalbot/migrations"
)

// migrationFile is one *.up.sql file with its numeric version prefix.
type migrationFile struct {
	Version uint64
	Name    string
}

// RunMigrations waits for the server and applies every pending up migration.
// An empty MigrationsPath uses the schema embedded in the binary.
func RunMigrations(cfg Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), readyTimeout)
	defer cancel()
	if err := WaitReady(ctx, cfg.KeywordDSN(), readyInterval); err != nil {
		logger.MIG.Error("db not ready",
			slog.String("event", "db.migrate"),
			slog.String("err", err.Error()),
		)
		return err
	}

	fsys, origin, err := migrationSource(cfg.MigrationsPath)
	if err != nil {
		return err
	}
	files, err := listMigrations(fsys)
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	logger.MIG.Debug("migrations resolved",
		slog.String("event", "resolve"),
		slog.String("source", origin),
		slog.Int("files_total", len(files)),
	)

	src, err := iofs.New(fsys, ".")
	if err != nil {
		return fmt.Errorf("open migration source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, cfg.URLDSN())
	if err != nil {
		logger.MIG.Error("init failed",
			slog.String("event", "db.migrate"),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("init migrations: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	from, _, _ := m.Version()
	start := time.Now()
	upErr := m.Up()
	took := time.Since(start)
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		logger.MIG.Error("migration failed",
			slog.String("event", "apply"),
			slog.Uint64("from_ver", uint64(from)),
			slog.String("err", upErr.Error()),
			slog.Duration("duration", logger.RoundMS(took)),
		)
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	to, _, _ := m.Version()

	applied := appliedBetween(files, uint64(from), uint64(to))
	attrs := []any{
		slog.String("event", "summary"),
		slog.Uint64("from_ver", uint64(from)),
		slog.Uint64("to_ver", uint64(to)),
		slog.Int("files", len(applied)),
		slog.Duration("duration", logger.RoundMS(took)),
	}
	if preview, truncated := logger.SummarizeStrings(applied, 6); preview != "" {
		attrs = append(attrs, slog.String("files_preview", preview), slog.Bool("files_truncated", truncated))
	}
	logger.MIG.Info("migrations summary", attrs...)
	return nil
}

func migrationSource(path string) (fs.FS, string, error) {
	if strings.TrimSpace(path) == "" {
		return migrations.FS, "embedded", nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, "", fmt.Errorf("resolve migrations path: %w", err)
	}
	return os.DirFS(abs), abs, nil
}

func listMigrations(fsys fs.FS) ([]migrationFile, error) {
	names, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return nil, err
	}
	files := make([]migrationFile, 0, len(names))
	for _, name := range names {
		prefix, _, _ := strings.Cut(name, "_")
		v, err := strconv.ParseUint(prefix, 10, 64)
		if err != nil {
			continue
		}
		files = append(files, migrationFile{Version: v, Name: name})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Version < files[j].Version })
	return files, nil
}

// appliedBetween names the files with from < version <= to.
func appliedBetween(files []migrationFile, from, to uint64) []string {
	var out []string
	for _, f := range files {
		if f.Version > from && f.Version <= to {
			out = append(out, f.Name)
		}
	}
	return out
}
