// Package reports writes the per-cycle change batch as date-named JSON and
// CSV files for offline review.
package reports

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Houeta/bookwatch/internal/models"
)

// Writer writes change reports into a directory, one pair of files per day.
type Writer struct {
	log *slog.Logger
	dir string
}

func NewWriter(log *slog.Logger, dir string) *Writer {
	return &Writer{log: log, dir: dir}
}

// Write persists the batch as {date}-changes.json, plus a {date}-changes.csv
// summary when the batch is non-empty. An empty batch still writes the empty
// JSON file so "nothing changed today" is recorded. Returns the JSON path.
func (w *Writer) Write(changes []models.ChangeRecord) (string, error) {
	const opn = "reports.Write"

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("%s: failed to create report directory: %w", opn, err)
	}

	date := time.Now().UTC().Format("2006-01-02")
	jsonPath := filepath.Join(w.dir, date+"-changes.json")

	if changes == nil {
		changes = []models.ChangeRecord{}
	}

	encoded, err := json.MarshalIndent(changes, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%s: failed to encode changes: %w", opn, err)
	}
	if err = os.WriteFile(jsonPath, encoded, 0o644); err != nil {
		return "", fmt.Errorf("%s: failed to write JSON report: %w", opn, err)
	}

	if len(changes) == 0 {
		return jsonPath, nil
	}

	csvPath := filepath.Join(w.dir, date+"-changes.csv")
	if err = w.writeCSV(csvPath, changes); err != nil {
		return "", fmt.Errorf("%s: %w", opn, err)
	}

	w.log.Debug("reports written", "json", jsonPath, "csv", csvPath, "changes", len(changes))

	return jsonPath, nil
}

func (w *Writer) writeCSV(path string, changes []models.ChangeRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV report: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err = writer.Write([]string{"detected_at", "source_url", "change_type", "changed_fields"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, rec := range changes {
		fields, encErr := json.Marshal(rec.ChangedFields)
		if encErr != nil {
			return fmt.Errorf("failed to encode changed fields for %s: %w", rec.SourceURL, encErr)
		}

		row := []string{
			rec.DetectedAt.UTC().Format(time.RFC3339),
			rec.SourceURL,
			string(rec.Kind),
			string(fields),
		}
		if err = writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	return writer.Error()
}
