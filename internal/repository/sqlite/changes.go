package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Houeta/bookwatch/internal/models"
)

// AppendChange inserts one immutable change record. The autoincrement id
// preserves insertion order for records sharing a detection instant.
func (r *Repository) AppendChange(ctx context.Context, change *models.ChangeRecord) error {
	const opn = "repository.sqlite.AppendChange"

	changedFields, err := json.Marshal(change.ChangedFields)
	if err != nil {
		return fmt.Errorf("%s: failed to encode changed fields: %w", opn, err)
	}

	oldSnapshot, err := marshalSnapshot(change.OldSnapshot)
	if err != nil {
		return fmt.Errorf("%s: failed to encode old snapshot: %w", opn, err)
	}

	newSnapshot, err := marshalSnapshot(change.NewSnapshot)
	if err != nil {
		return fmt.Errorf("%s: failed to encode new snapshot: %w", opn, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO changes (source_url, change_type, changed_fields, old_snapshot, new_snapshot, detected_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		change.SourceURL, string(change.Kind), string(changedFields),
		oldSnapshot, newSnapshot, change.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: failed to insert change for %s: %w", opn, change.SourceURL, err)
	}

	return nil
}

// marshalSnapshot encodes a snapshot, keeping NULL for the absent old
// snapshot of "new" records.
func marshalSnapshot(book *models.Book) (any, error) {
	if book == nil {
		return nil, nil
	}

	encoded, err := json.Marshal(book)
	if err != nil {
		return nil, err
	}

	return string(encoded), nil
}
