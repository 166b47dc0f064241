package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/spacetraveling/internal/config"
)

// pingTimeout bounds the connectivity check done when the pool is opened
const pingTimeout = 5 * time.Second

// DB is the postgres pool holding pages and build jobs
type DB struct {
	*sql.DB
	log zerolog.Logger
}

// New opens the pool and fails unless postgres answers within pingTimeout
func New(cfg *config.DatabaseConfig, log zerolog.Logger) (*DB, error) {
	pool, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("opening page store: %w", err)
	}
	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(cfg.MaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("page store at %s:%s unreachable: %w", cfg.Host, cfg.Port, err)
	}

	db := &DB{DB: pool, log: log.With().Str("component", "database").Logger()}
	db.log.Info().
		Str("host", cfg.Host).
		Str("database", cfg.Name).
		Int("max_open_conns", cfg.MaxOpenConns).
		Msg("Page store connection established")

	return db, nil
}

// RunMigrations brings the pages and build_jobs schema up to date from the
// migration files in dir
func (db *DB) RunMigrations(dir string) error {
	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		return fmt.Errorf("loading migrations from %s: %w", dir, err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if dirty {
		return fmt.Errorf("schema version %d is dirty", version)
	}

	db.log.Info().Str("dir", dir).Uint("version", version).Msg("Schema up to date")
	return nil
}
