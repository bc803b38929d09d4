package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// Repository is the sqlite-backed store for book records, the append-only
// change log and crawl state.
type Repository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewRepository opens (or creates) the database file at storagePath and
// performs the initial schema migration.
func NewRepository(ctx context.Context, log *slog.Logger, storagePath string) (*Repository, error) {
	dtb, err := sql.Open("sqlite3", fmt.Sprintf("%s?_pragma=foreign_keys(1)", storagePath))
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err = dtb.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("unable to establish connection to database: %w", err)
	}

	if err = initSchema(ctx, dtb); err != nil {
		return nil, fmt.Errorf("DB schema initialization error: %w", err)
	}

	return &Repository{db: dtb, log: log}, nil
}

// NewForTest wraps an existing connection, letting tests inject a mocked DB.
func NewForTest(db *sql.DB) *Repository {
	return &Repository{db: db, log: slog.Default()}
}

// initSchema creates the necessary tables if they don't already exist.
func initSchema(ctx context.Context, dtb *sql.DB) error {
	const migrationQuery = `
	CREATE TABLE IF NOT EXISTS books (
		source_url TEXT PRIMARY KEY NOT NULL,
		name TEXT,
		description TEXT,
		category TEXT,
		price_incl_tax REAL,
		price_excl_tax REAL,
		availability TEXT,
		num_reviews INTEGER,
		rating INTEGER,
		image_url TEXT,
		raw_html TEXT NOT NULL DEFAULT '',
		content_hash TEXT NOT NULL,
		crawl_timestamp TIMESTAMP NOT NULL,
		first_seen_at TIMESTAMP NOT NULL,
		last_seen_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_books_category ON books (category);
	CREATE INDEX IF NOT EXISTS idx_books_price_incl_tax ON books (price_incl_tax);

	CREATE TABLE IF NOT EXISTS changes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_url TEXT NOT NULL,
		change_type TEXT NOT NULL,
		changed_fields TEXT NOT NULL,
		old_snapshot TEXT,
		new_snapshot TEXT NOT NULL,
		detected_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_changes_detected_at ON changes (detected_at);

	CREATE TABLE IF NOT EXISTS crawl_state (
		key TEXT PRIMARY KEY NOT NULL,
		value TEXT NOT NULL
	);
	`
	_, err := dtb.ExecContext(ctx, migrationQuery)
	if err != nil {
		return fmt.Errorf("failed to execute migration query: %w", err)
	}

	return nil
}

// Close closes the connection to the database.
func (r *Repository) Close() error {
	if err := r.db.Close(); err != nil {
		r.log.Error("failed to close the database", "op", "repository.sqlite.Close", "error", err)
		return fmt.Errorf("failed to close the database: %w", err)
	}

	return nil
}

// DB is a getter for database handler.
func (r *Repository) DB() *sql.DB {
	return r.db
}
