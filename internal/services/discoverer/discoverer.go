// Package discoverer walks the catalog's paginated index and inserts
// records for items the repository has never seen.
package discoverer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Houeta/bookwatch/internal/fetcher"
	"github.com/Houeta/bookwatch/internal/fingerprint"
	"github.com/Houeta/bookwatch/internal/metrics"
	"github.com/Houeta/bookwatch/internal/models"
	"github.com/Houeta/bookwatch/internal/parser"
	"github.com/Houeta/bookwatch/internal/repository"
)

// LastPageStateKey records how many index pages the previous discovery pass
// walked, so operators can spot a suspiciously early termination.
const LastPageStateKey = "discovery:last_page"

// Discoverer finds new catalog entries. The fetch session is passed into
// Discover by the orchestrator, which owns its lifetime.
type Discoverer struct {
	log     *slog.Logger
	repo    repository.Interface
	parser  parser.BookParser
	metrics *metrics.Metrics
	baseURL string
}

func New(
	log *slog.Logger,
	repo repository.Interface,
	bookParser parser.BookParser,
	mtr *metrics.Metrics,
	baseURL string,
) *Discoverer {
	return &Discoverer{log: log, repo: repo, parser: bookParser, metrics: mtr, baseURL: baseURL}
}

// itemResult tags the outcome of processing one detail link, so the page
// loop continues on skips instead of relying on error propagation.
type itemResult struct {
	record  *models.ChangeRecord
	skipped string
}

// Discover walks index pages starting at page 1 until a page yields no
// detail links, inserting a record and appending a "new" change record for
// every unknown URL. A failure to fetch an index page itself aborts the
// pass: without the page there is no way to know whether more items exist.
// Records produced before the abort are still returned.
func (d *Discoverer) Discover(ctx context.Context, fetch fetcher.Fetcher) ([]models.ChangeRecord, error) {
	const opn = "discoverer.Discover"
	log := d.log.With("op", opn)

	var records []models.ChangeRecord
	skippedCount := 0
	page := 1

	for {
		pageURL := d.pageURL(page)
		log.InfoContext(ctx, "Discovering index page", "page", page, "url", pageURL)

		html, err := fetch.Fetch(ctx, pageURL)
		if err != nil {
			return records, fmt.Errorf("%s: failed to fetch index page %d: %w", opn, page, err)
		}
		d.metrics.IncPageFetched(metrics.PhaseDiscovery)

		links, err := d.parser.ExtractBookLinks(html, pageURL)
		if err != nil {
			return records, fmt.Errorf("%s: failed to extract links from page %d: %w", opn, page, err)
		}

		if len(links) == 0 {
			if d.parser.IsNotFoundPage(html) {
				log.InfoContext(ctx, "Reached end of catalog", "pages_walked", page-1)
			} else {
				// A rendered page without links is indistinguishable from a
				// transient render failure; stop anyway but say so.
				log.WarnContext(ctx, "Index page yielded no links, terminating pass with uncertain end-of-catalog",
					"page", page)
			}
			break
		}

		for _, link := range links {
			res := d.processLink(ctx, fetch, link)
			if res.record != nil {
				records = append(records, *res.record)
				continue
			}
			if res.skipped != "already_known" {
				skippedCount++
			}
			d.metrics.IncSkipped(metrics.PhaseDiscovery, res.skipped)
		}

		page++
	}

	if err := d.repo.SetState(ctx, LastPageStateKey, strconv.Itoa(page-1)); err != nil {
		log.WarnContext(ctx, "Failed to persist discovery page state", "error", err)
	}

	log.InfoContext(ctx, "Discovery pass complete", "new", len(records), "skipped", skippedCount)

	return records, nil
}

// processLink handles one detail-page URL. Any per-item failure is logged
// and reported as a skip; discovery never mutates existing records.
func (d *Discoverer) processLink(ctx context.Context, fetch fetcher.Fetcher, link string) itemResult {
	log := d.log.With("url", link)

	_, err := d.repo.FindByURL(ctx, link)
	if err == nil {
		return itemResult{skipped: "already_known"}
	}
	if !errors.Is(err, repository.ErrBookNotFound) {
		log.ErrorContext(ctx, "Failed to look up book, skipping", "error", err)
		return itemResult{skipped: "lookup_failed"}
	}

	log.InfoContext(ctx, "New book found")

	html, err := fetch.Fetch(ctx, link)
	if err != nil {
		log.ErrorContext(ctx, "Failed to fetch detail page, skipping", "error", err)
		return itemResult{skipped: "fetch_failed"}
	}
	d.metrics.IncPageFetched(metrics.PhaseDiscovery)

	book, err := d.parser.ParseBook(html, link)
	if err != nil {
		log.ErrorContext(ctx, "Failed to parse detail page, skipping", "error", err)
		return itemResult{skipped: "parse_failed"}
	}

	hash, err := fingerprint.Book(book)
	if err != nil {
		log.ErrorContext(ctx, "Failed to fingerprint book, skipping", "error", err)
		return itemResult{skipped: "fingerprint_failed"}
	}

	now := time.Now().UTC()
	book.ContentHash = hash
	book.CrawlTimestamp = now
	book.Meta = models.Meta{FirstSeenAt: now, LastSeenAt: now}

	if err = d.repo.Upsert(ctx, book); err != nil {
		log.ErrorContext(ctx, "Failed to store new book, skipping", "error", err)
		return itemResult{skipped: "storage_failed"}
	}

	record := models.ChangeRecord{
		SourceURL:     link,
		Kind:          models.ChangeNew,
		ChangedFields: models.CreationMarker(),
		OldSnapshot:   nil,
		NewSnapshot:   book,
		DetectedAt:    now,
	}

	if err = d.repo.AppendChange(ctx, &record); err != nil {
		// The book row is in; only the audit entry is lost for this cycle.
		log.ErrorContext(ctx, "Failed to append change record for new book", "error", err)
		return itemResult{skipped: "change_append_failed"}
	}

	d.metrics.BooksDiscovered.Inc()

	return itemResult{record: &record}
}

// pageURL maps a 1-based page number onto the catalog's pagination scheme.
func (d *Discoverer) pageURL(page int) string {
	if page == 1 {
		return d.baseURL
	}
	return fmt.Sprintf("%s/catalogue/page-%d.html", d.baseURL, page)
}
