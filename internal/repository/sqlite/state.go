package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Houeta/bookwatch/internal/repository"
)

// GetState returns the value stored under key, or repository.ErrStateNotFound
// when the key has never been written.
func (r *Repository) GetState(ctx context.Context, key string) (string, error) {
	const opn = "repository.sqlite.GetState"

	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM crawl_state WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", repository.ErrStateNotFound
		}
		return "", fmt.Errorf("%s: failed to get state %q: %w", opn, key, err)
	}

	return value, nil
}

// SetState creates or overwrites the value stored under key. Keys are never
// deleted by the pipeline.
func (r *Repository) SetState(ctx context.Context, key, value string) error {
	const opn = "repository.sqlite.SetState"

	_, err := r.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO crawl_state (key, value) VALUES (?, ?)", key, value)
	if err != nil {
		return fmt.Errorf("%s: failed to set state %q: %w", opn, key, err)
	}

	return nil
}
