// Package detector re-visits every stored record, detects field-level drift
// against the live page and flags alert-worthy changes.
package detector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Houeta/bookwatch/internal/fetcher"
	"github.com/Houeta/bookwatch/internal/fingerprint"
	"github.com/Houeta/bookwatch/internal/metrics"
	"github.com/Houeta/bookwatch/internal/models"
	"github.com/Houeta/bookwatch/internal/parser"
	"github.com/Houeta/bookwatch/internal/repository"
)

// Detector performs the change-detection pass. The fetch session is handed
// into Detect by the orchestrator, which owns its lifetime.
type Detector struct {
	log          *slog.Logger
	repo         repository.Interface
	parser       parser.BookParser
	metrics      *metrics.Metrics
	thresholdPct float64
}

func New(
	log *slog.Logger,
	repo repository.Interface,
	bookParser parser.BookParser,
	mtr *metrics.Metrics,
	alertThresholdPct float64,
) *Detector {
	return &Detector{log: log, repo: repo, parser: bookParser, metrics: mtr, thresholdPct: alertThresholdPct}
}

// itemResult tags the outcome of re-checking one stored record.
type itemResult struct {
	record    *models.ChangeRecord
	unchanged bool
	skipped   string
}

// Detect enumerates a snapshot of all stored records, re-fetches and
// re-fingerprints each one, and produces an "update" change record per
// drifted item. Per-item failures are logged and skipped; the pass itself
// only fails if the repository cannot be enumerated.
func (d *Detector) Detect(ctx context.Context, fetch fetcher.Fetcher) ([]models.ChangeRecord, error) {
	const opn = "detector.Detect"
	log := d.log.With("op", opn)

	books, err := d.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to enumerate books: %w", opn, err)
	}
	log.InfoContext(ctx, "Starting detection pass", "books", len(books))

	var records []models.ChangeRecord
	unchangedCount, skippedCount := 0, 0

	for i := range books {
		res := d.processBook(ctx, fetch, &books[i])
		switch {
		case res.record != nil:
			records = append(records, *res.record)
		case res.unchanged:
			unchangedCount++
		default:
			skippedCount++
			d.metrics.IncSkipped(metrics.PhaseDetection, res.skipped)
		}
	}

	log.InfoContext(ctx, "Detection pass complete",
		"changed", len(records), "unchanged", unchangedCount, "skipped", skippedCount)

	return records, nil
}

// processBook re-checks one stored record. On any failure the stored record
// is left untouched, last-seen included, so the item is retried next cycle.
func (d *Detector) processBook(ctx context.Context, fetch fetcher.Fetcher, old *models.Book) itemResult {
	log := d.log.With("url", old.SourceURL)
	log.DebugContext(ctx, "Checking book")

	html, err := fetch.Fetch(ctx, old.SourceURL)
	if err != nil {
		log.ErrorContext(ctx, "Failed to fetch book page, skipping", "error", err)
		return itemResult{skipped: "fetch_failed"}
	}
	d.metrics.IncPageFetched(metrics.PhaseDetection)

	candidate, err := d.parser.ParseBook(html, old.SourceURL)
	if err != nil {
		log.ErrorContext(ctx, "Failed to parse book page, skipping", "error", err)
		return itemResult{skipped: "parse_failed"}
	}

	newHash, err := fingerprint.Book(candidate)
	if err != nil {
		log.ErrorContext(ctx, "Failed to fingerprint book, skipping", "error", err)
		return itemResult{skipped: "fingerprint_failed"}
	}

	now := time.Now().UTC()

	if newHash == old.ContentHash {
		refreshed := *old
		refreshed.CrawlTimestamp = now
		refreshed.Meta.LastSeenAt = now
		if err = d.repo.Upsert(ctx, &refreshed); err != nil {
			log.ErrorContext(ctx, "Failed to refresh last-seen timestamp", "error", err)
			return itemResult{skipped: "storage_failed"}
		}
		return itemResult{unchanged: true}
	}

	candidate.ContentHash = newHash
	candidate.CrawlTimestamp = now
	candidate.Meta = models.Meta{FirstSeenAt: old.Meta.FirstSeenAt, LastSeenAt: now}

	oldSnapshot := *old
	record := models.ChangeRecord{
		SourceURL:     old.SourceURL,
		Kind:          models.ChangeUpdate,
		ChangedFields: diffFields(old, candidate),
		OldSnapshot:   &oldSnapshot,
		NewSnapshot:   candidate,
		DetectedAt:    now,
	}

	if err = d.repo.AppendChange(ctx, &record); err != nil {
		// Leave the stored fingerprint alone so this change is re-detected
		// next cycle instead of silently vanishing from the audit log.
		log.ErrorContext(ctx, "Failed to append change record, skipping update", "error", err)
		return itemResult{skipped: "change_append_failed"}
	}

	if err = d.repo.Upsert(ctx, candidate); err != nil {
		log.ErrorContext(ctx, "Failed to store updated book", "error", err)
	}

	record.Alerts = d.evaluateAlerts(ctx, old, candidate)
	d.metrics.ChangesDetected.Inc()

	return itemResult{record: &record}
}

// diffFields compares the fixed diff set, which mirrors the fingerprinter's
// tracked fields. A nil-to-value transition counts as a change.
func diffFields(oldBook, newBook *models.Book) map[string]models.FieldChange {
	diff := make(map[string]models.FieldChange)
	addDiff(diff, "name", oldBook.Name, newBook.Name)
	addDiff(diff, "price_including_tax", oldBook.PriceInclTax, newBook.PriceInclTax)
	addDiff(diff, "price_excluding_tax", oldBook.PriceExclTax, newBook.PriceExclTax)
	addDiff(diff, "availability", oldBook.Availability, newBook.Availability)
	addDiff(diff, "num_reviews", oldBook.NumReviews, newBook.NumReviews)
	addDiff(diff, "rating", oldBook.Rating, newBook.Rating)
	return diff
}

func addDiff[T comparable](diff map[string]models.FieldChange, field string, oldV, newV *T) {
	if ptrEqual(oldV, newV) {
		return
	}
	diff[field] = models.FieldChange{Old: ptrValue(oldV), New: ptrValue(newV)}
}

func ptrEqual[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func ptrValue[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

// evaluateAlerts runs the pure alert decision logic for one persisted
// change: a price drop meeting the threshold, and any availability change.
func (d *Detector) evaluateAlerts(ctx context.Context, oldBook, newBook *models.Book) []models.Alert {
	var alerts []models.Alert

	oldPrice, newPrice := oldBook.PriceInclTax, newBook.PriceInclTax
	if oldPrice != nil && newPrice != nil && *oldPrice > 0 && *newPrice > 0 {
		pct := (*oldPrice - *newPrice) / *oldPrice * 100
		if pct >= d.thresholdPct {
			alerts = append(alerts, models.Alert{
				Kind:    models.AlertPriceDrop,
				PctDrop: pct,
				Message: fmt.Sprintf("price dropped %.2f%%: %.2f -> %.2f", pct, *oldPrice, *newPrice),
			})
			d.log.WarnContext(ctx, "PRICE DROP ALERT",
				"url", newBook.SourceURL, "pct", pct, "old", *oldPrice, "new", *newPrice)
		}
	}

	if !ptrEqual(oldBook.Availability, newBook.Availability) {
		alerts = append(alerts, models.Alert{
			Kind: models.AlertAvailability,
			Message: fmt.Sprintf("availability changed: %q -> %q",
				strValue(oldBook.Availability), strValue(newBook.Availability)),
		})
		d.log.WarnContext(ctx, "AVAILABILITY CHANGED",
			"url", newBook.SourceURL,
			"old", strValue(oldBook.Availability), "new", strValue(newBook.Availability))
	}

	return alerts
}

func strValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
