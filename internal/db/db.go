package db

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

var (
	DB *sqlx.DB
)

// pool sizing for an embedded player box: the daemon is the only local
// client, a handful of connections is plenty
const (
	maxOpenConns    = 4
	maxIdleConns    = 2
	connMaxLifetime = 30 * time.Minute
)

// Init opens the PostgreSQL pool and assigns it to DB. The database
// usually comes up alongside the player, so connection failures are
// retried before giving up.
func Init(databaseURL string) error {
	const maxRetries = 10
	const retryInterval = 2 * time.Second

	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		DB, err = sqlx.Connect("postgres", databaseURL)
		if err == nil {
			DB.SetMaxOpenConns(maxOpenConns)
			DB.SetMaxIdleConns(maxIdleConns)
			DB.SetConnMaxLifetime(connMaxLifetime)
			log.Info().Msg("connected to database")
			return nil
		}

		log.Error().Err(err).
			Int("attempt", attempt).
			Msgf("failed to connect to database, retrying in %s", retryInterval)

		time.Sleep(retryInterval)
	}

	return fmt.Errorf("could not connect to database after %d attempts: %w", maxRetries, err)
}

func Close() error {
	if DB == nil {
		return nil
	}
	return DB.Close()
}

// RunMigrations applies every "*.up.sql" file under migrationsPath in
// name order. Each file runs in its own transaction, so a failure
// leaves the schema at the previous file's state instead of
// half-applied. "*.down.sql" files are ignored.
func RunMigrations(migrationsPath string) error {
	files, err := filepath.Glob(filepath.Join(migrationsPath, "*.up.sql"))
	if err != nil {
		return fmt.Errorf("failed to glob migrations: %w", err)
	}
	if len(files) == 0 {
		// nothing to do
		return nil
	}

	sort.Strings(files)

	for _, file := range files {
		raw, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("could not read migration %q: %w", file, err)
		}
		stmt := string(raw)
		if stmt == "" {
			continue
		}
		if err := applyMigration(file, stmt); err != nil {
			return err
		}
	}
	return nil
}

func applyMigration(file, stmt string) error {
	tx, err := DB.Beginx()
	if err != nil {
		return fmt.Errorf("could not begin transaction for %q: %w", file, err)
	}
	if _, err := tx.Exec(stmt); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("error executing migration %q: %w", file, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit migration %q: %w", file, err)
	}
	log.Debug().Str("file", filepath.Base(file)).Msg("migration applied")
	return nil
}
