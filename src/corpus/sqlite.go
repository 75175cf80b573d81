// Package corpus is the local document store that grounds agent answers. It
// backs the corpus_query tool and the orchestrator's retrieval hook.
package corpus

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	_ "modernc.org/sqlite"
)

//go:embed migrations/sqlite/001_initial_schema.sql
var initialSchema string

// Store wraps the corpus database.
type Store struct {
	path   string
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the corpus database at path and runs
// pending migrations.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	store := &Store{path: path, db: db, logger: logger.With("component", "corpus")}

	if err := store.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// DB exposes the underlying handle for callers that need raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

// runMigrations applies pending schema migrations.
func (s *Store) runMigrations() error {
	createMigrationsTable := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	if _, err := s.db.Exec(createMigrationsTable); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var appliedVersions []int
	rows, err := s.db.Query("SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		appliedVersions = append(appliedVersions, version)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, extractUpMigration(initialSchema)},
	}

	for _, migration := range migrations {
		if slices.Contains(appliedVersions, migration.version) {
			continue
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		if _, err := tx.Exec(migration.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", migration.version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", migration.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.version, err)
		}
	}

	return nil
}

// extractUpMigration extracts the UP migration from goose format.
func extractUpMigration(content string) string {
	lines := strings.Split(content, "\n")
	var upMigration []string
	inUp := false
	inStatement := false

	for _, line := range lines {
		if strings.Contains(line, "-- +goose Up") {
			inUp = true
			continue
		}
		if strings.Contains(line, "-- +goose Down") {
			break
		}
		if strings.Contains(line, "-- +goose StatementBegin") {
			inStatement = true
			continue
		}
		if strings.Contains(line, "-- +goose StatementEnd") {
			inStatement = false
			continue
		}
		if inUp && inStatement {
			upMigration = append(upMigration, line)
		}
	}

	return strings.Join(upMigration, "\n")
}
