// Package store persists app settings and material profiles in SQLite.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/Faultbox/provelslice/internal/config"
	"github.com/Faultbox/provelslice/internal/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is an open settings database.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// Open opens (creating if needed) the database at path, applies pending
// migrations and seeds missing defaults.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	// One writer keeps SQLite from reporting SQLITE_BUSY between our own
	// connections.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, log: logger.Named("store")}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.seed(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("seeding defaults: %w", err)
	}
	s.log.Debug("settings store ready", zap.String("path", path))
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Version returns the applied schema version.
func (s *Store) Version() (uint, error) {
	m, err := s.newMigrate()
	if err != nil {
		return 0, err
	}
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if dirty {
		return v, fmt.Errorf("schema version %d is dirty", v)
	}
	return v, nil
}

func (s *Store) migrateUp() error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	// m is not closed: that would close the shared *sql.DB.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

func (s *Store) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = &migrateLogger{log: s.log}
	return m, nil
}

// migrateLogger implements migrate.Logger on top of zap.
type migrateLogger struct {
	log *zap.Logger
}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	l.log.Sugar().Debugf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool {
	return false
}

func (s *Store) seed(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, kv := range defaultSettings() {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO app_settings (name, value) VALUES (?, ?)`,
			kv.name, kv.value); err != nil {
			return err
		}
	}

	p := config.DefaultProfile()
	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO material_profiles
		(name, nozzle_temp, cup_temp, shrink_factor, output_factor, feedrate,
		 grams_per_revolution, density, seconds_per_layer)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.NozzleTemp, p.CupTemp, p.ShrinkFactor, p.OutputFactor, p.Feedrate,
		p.GramsPerRevolution, p.Density, p.SecondsPerLayer); err != nil {
		return err
	}
	return tx.Commit()
}
