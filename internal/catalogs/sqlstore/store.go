// Package sqlstore provides a SQL-backed bill catalog. SQLite is the
// default for local use; PostgreSQL is reached through the pgx driver.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "github.com/mattn/go-sqlite3"    // registers the "sqlite3" driver

	"github.com/agentstation/legisync/pkg/catalogs"
	"github.com/agentstation/legisync/pkg/constants"
	"github.com/agentstation/legisync/pkg/errors"
	"github.com/agentstation/legisync/pkg/logging"
)

var _ catalogs.Store = (*Store)(nil)

// Supported drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// Config selects and tunes the database.
type Config struct {
	// Driver is DriverSQLite or DriverPostgres.
	Driver string
	// DSN is a file path for SQLite or a connection URL for PostgreSQL.
	DSN string

	MaxOpenConns    int
	ConnMaxLifetime time.Duration

	// AutoMigrate applies pending migrations when the store is opened.
	AutoMigrate bool
}

// Store is a SQL catalogs.Store.
type Store struct {
	db     *sql.DB
	config Config
}

// Open connects to the database described by cfg.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Driver == "" {
		cfg.Driver = DriverSQLite
	}
	dsn, err := dataSourceName(cfg)
	if err != nil {
		return nil, err
	}
	cfg.DSN = dsn

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, errors.NewConfigError("database", "failed to open", err)
	}

	switch cfg.Driver {
	case DriverSQLite:
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
	default:
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.NewConfigError("database", "failed to connect", err)
	}

	s := &Store{db: db, config: cfg}
	logging.FromContext(ctx).Debug().Str("driver", cfg.Driver).Msg("Opened catalog database")

	if cfg.AutoMigrate {
		if err := s.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

func dataSourceName(cfg Config) (string, error) {
	switch cfg.Driver {
	case DriverSQLite:
		path := cfg.DSN
		if path == "" {
			path = constants.DefaultDatabasePath
		}
		if strings.HasPrefix(path, "~/") {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", errors.NewConfigError("database", "cannot resolve home directory", err)
			}
			path = filepath.Join(home, path[2:])
		}
		if strings.Contains(path, "?") {
			return path, nil
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
				return "", errors.WrapIO("create", dir, err)
			}
		}
		return path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON", nil
	case DriverPostgres:
		if cfg.DSN == "" {
			return "", errors.NewConfigError("database", "dsn is required for postgres", nil)
		}
		return cfg.DSN, nil
	default:
		return "", errors.NewValidationError("driver", cfg.Driver,
			fmt.Sprintf("must be %q or %q", DriverSQLite, DriverPostgres))
	}
}

// Driver returns the database driver name.
func (s *Store) Driver() string {
	return s.config.Driver
}

// InTx implements catalogs.Store.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx catalogs.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WrapResource("begin", "transaction", "", err)
	}

	if err := fn(ctx, &tx{tx: sqlTx, driver: s.config.Driver}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			logging.FromContext(ctx).Warn().Err(rbErr).Msg("Rollback failed")
		}
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return errors.WrapResource("commit", "transaction", "", err)
	}
	return nil
}

// Close implements catalogs.Store.
func (s *Store) Close() error {
	return s.db.Close()
}
