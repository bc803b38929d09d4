package reports_test

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Houeta/bookwatch/internal/models"
	"github.com/Houeta/bookwatch/internal/reports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWriter(t *testing.T) (*reports.Writer, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "reports")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return reports.NewWriter(logger, dir), dir
}

func TestWrite_NonEmptyBatchProducesJSONAndCSV(t *testing.T) {
	writer, dir := newWriter(t)

	detectedAt := time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC)
	batch := []models.ChangeRecord{
		{
			SourceURL:     "https://books.example.com/catalogue/a_1/index.html",
			Kind:          models.ChangeNew,
			ChangedFields: models.CreationMarker(),
			DetectedAt:    detectedAt,
		},
		{
			SourceURL: "https://books.example.com/catalogue/b_2/index.html",
			Kind:      models.ChangeUpdate,
			ChangedFields: map[string]models.FieldChange{
				"price_including_tax": {Old: 10.99, New: 8.99},
			},
			DetectedAt: detectedAt,
		},
	}

	jsonPath, err := writer.Write(batch)
	require.NoError(t, err)

	date := time.Now().UTC().Format("2006-01-02")
	assert.Equal(t, filepath.Join(dir, date+"-changes.json"), jsonPath)

	raw, err := os.ReadFile(jsonPath)
	require.NoError(t, err)

	var decoded []models.ChangeRecord
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, batch[0].SourceURL, decoded[0].SourceURL)
	assert.Equal(t, models.ChangeUpdate, decoded[1].Kind)

	csvFile, err := os.Open(filepath.Join(dir, date+"-changes.csv"))
	require.NoError(t, err)
	defer csvFile.Close()

	rows, err := csv.NewReader(csvFile).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"detected_at", "source_url", "change_type", "changed_fields"}, rows[0])
	assert.Equal(t, "2026-08-15T12:00:00Z", rows[1][0])
	assert.Equal(t, "new", rows[1][2])
	assert.Contains(t, rows[2][3], "price_including_tax")
}

func TestWrite_EmptyBatchWritesEmptyJSONOnly(t *testing.T) {
	writer, dir := newWriter(t)

	jsonPath, err := writer.Write(nil)
	require.NoError(t, err)

	raw, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(raw))

	date := time.Now().UTC().Format("2006-01-02")
	_, err = os.Stat(filepath.Join(dir, date+"-changes.csv"))
	assert.True(t, os.IsNotExist(err), "an empty batch must not leave a CSV file behind")
}

func TestWrite_SameDayOverwrites(t *testing.T) {
	writer, _ := newWriter(t)

	first := []models.ChangeRecord{{SourceURL: "https://a.example.com", Kind: models.ChangeNew,
		ChangedFields: models.CreationMarker(), DetectedAt: time.Now().UTC()}}
	_, err := writer.Write(first)
	require.NoError(t, err)

	jsonPath, err := writer.Write(nil)
	require.NoError(t, err)

	raw, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(raw), "a later cycle on the same day replaces the report")
}
