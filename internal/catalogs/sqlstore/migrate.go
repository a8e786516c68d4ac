package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	stderrors "errors"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/agentstation/legisync/pkg/errors"
	"github.com/agentstation/legisync/pkg/logging"
)

//go:embed migrations
var migrations embed.FS

// MigrationStatus describes the schema version of a database.
type MigrationStatus struct {
	Version uint `json:"version" yaml:"version"`
	Dirty   bool `json:"dirty" yaml:"dirty"`
}

// Migrate applies every pending schema migration.
func (s *Store) Migrate(ctx context.Context) error {
	m, err := s.migrator()
	if err != nil {
		return err
	}
	defer closeMigrator(ctx, m)

	if err := m.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return errors.WrapResource("migrate", "schema", s.config.Driver, err)
	}

	status, err := migrationStatus(m)
	if err != nil {
		return err
	}
	logging.FromContext(ctx).Info().
		Uint("version", status.Version).
		Bool("dirty", status.Dirty).
		Msg("Catalog schema is up to date")
	return nil
}

// MigrationStatus reports the current schema version.
func (s *Store) MigrationStatus(ctx context.Context) (*MigrationStatus, error) {
	m, err := s.migrator()
	if err != nil {
		return nil, err
	}
	defer closeMigrator(ctx, m)
	return migrationStatus(m)
}

func migrationStatus(m *migrate.Migrate) (*MigrationStatus, error) {
	version, dirty, err := m.Version()
	if stderrors.Is(err, migrate.ErrNilVersion) {
		return &MigrationStatus{}, nil
	}
	if err != nil {
		return nil, errors.WrapResource("version", "schema", "", err)
	}
	return &MigrationStatus{Version: version, Dirty: dirty}, nil
}

// migrator builds a migrate instance over its own connection pool. The
// database drivers close the pool they are given, so the store's pool is
// never handed over.
func (s *Store) migrator() (*migrate.Migrate, error) {
	src, err := iofs.New(migrations, "migrations/"+s.config.Driver)
	if err != nil {
		return nil, errors.WrapResource("load", "migrations", s.config.Driver, err)
	}

	db, err := sql.Open(s.config.Driver, s.config.DSN)
	if err != nil {
		return nil, errors.NewConfigError("database", "failed to open", err)
	}

	var driver database.Driver
	switch s.config.Driver {
	case DriverPostgres:
		driver, err = migratepgx.WithInstance(db, &migratepgx.Config{})
	default:
		driver, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
	}
	if err != nil {
		_ = db.Close()
		return nil, errors.WrapResource("open", "migration driver", s.config.Driver, err)
	}

	m, err := migrate.NewWithInstance("iofs", src, s.config.Driver, driver)
	if err != nil {
		_ = driver.Close()
		return nil, errors.WrapResource("create", "migrator", s.config.Driver, err)
	}
	return m, nil
}

func closeMigrator(ctx context.Context, m *migrate.Migrate) {
	srcErr, dbErr := m.Close()
	if srcErr != nil || dbErr != nil {
		logging.FromContext(ctx).Warn().
			AnErr("source_error", srcErr).
			AnErr("database_error", dbErr).
			Msg("Failed to close migrator")
	}
}
