package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/celerix-dev/celerix-records/pkg/records"
)

// Backend names.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Options selects and tunes a storage backend.
type Options struct {
	Backend         string
	DSN             string
	DataDir         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open builds the Provider described by opts.
func Open(ctx context.Context, opts Options, logger *zap.Logger) (records.Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch opts.Backend {
	case BackendMemory:
		return NewMemStore(nil, nil, logger), nil

	case BackendFile:
		p, err := NewPersistence(opts.DataDir, logger)
		if err != nil {
			return nil, fmt.Errorf("init persistence: %w", err)
		}
		initial, err := p.LoadAll()
		if err != nil {
			return nil, fmt.Errorf("load collections: %w", err)
		}
		logger.Info("Loaded collections from disk",
			zap.String("data_dir", opts.DataDir), zap.Int("collections", len(initial)))
		return NewMemStore(initial, p, logger), nil

	case BackendSQLite, BackendPostgres:
		return openSQL(ctx, opts, logger)
	}
	return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
}

func openSQL(ctx context.Context, opts Options, logger *zap.Logger) (*SQLStore, error) {
	d, err := lookupDialect(opts.Backend)
	if err != nil {
		return nil, err
	}
	if opts.DSN == "" {
		return nil, fmt.Errorf("storage backend %s requires a dsn", opts.Backend)
	}

	db, err := sql.Open(d.driver, opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", opts.Backend, err)
	}

	maxOpen, maxIdle, lifetime := opts.MaxOpenConns, opts.MaxIdleConns, opts.ConnMaxLifetime
	if maxOpen == 0 && opts.Backend == BackendSQLite {
		// SQLite has a single writer.
		maxOpen = 1
	}
	if opts.Backend == BackendSQLite && inMemorySQLite(opts.DSN) {
		// The database lives and dies with its only connection.
		if lifetime > 0 {
			logger.Warn("Ignoring conn_max_lifetime for in-memory SQLite", zap.Duration("conn_max_lifetime", lifetime))
		}
		maxOpen, maxIdle, lifetime = 1, 1, 0
	}
	db.SetMaxOpenConns(maxOpen)
	if maxIdle > 0 {
		db.SetMaxIdleConns(maxIdle)
	}
	db.SetConnMaxLifetime(lifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect %s: %w", opts.Backend, err)
	}
	logger.Info("Connected to database", zap.String("backend", opts.Backend))

	return NewSQLStore(db, opts.Backend, logger)
}

// inMemorySQLite reports whether dsn names a private in-memory database.
func inMemorySQLite(dsn string) bool {
	return dsn == ":memory:" ||
		strings.HasPrefix(dsn, "file::memory:") ||
		strings.Contains(dsn, "mode=memory")
}
