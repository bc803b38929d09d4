package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Houeta/bookwatch/internal/models"
	"github.com/Houeta/bookwatch/internal/repository"
)

const bookColumns = `source_url, name, description, category, price_incl_tax, price_excl_tax,
	availability, num_reviews, rating, image_url, raw_html, content_hash,
	crawl_timestamp, first_seen_at, last_seen_at`

// FindByURL returns the record stored for the source URL, or
// repository.ErrBookNotFound.
func (r *Repository) FindByURL(ctx context.Context, sourceURL string) (*models.Book, error) {
	const opn = "repository.sqlite.FindByURL"

	row := r.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM books WHERE source_url = ?", bookColumns), sourceURL)

	book, err := scanBook(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrBookNotFound
		}
		return nil, fmt.Errorf("%s: failed to scan book: %w", opn, err)
	}

	return book, nil
}

// Upsert atomically creates or replaces the record keyed by SourceURL.
// The ON CONFLICT clause deliberately leaves first_seen_at alone: once a
// record has been seen, that instant is immutable no matter what the caller
// passes in.
func (r *Repository) Upsert(ctx context.Context, book *models.Book) error {
	const opn = "repository.sqlite.Upsert"

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO books (`+bookColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_url) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			category = excluded.category,
			price_incl_tax = excluded.price_incl_tax,
			price_excl_tax = excluded.price_excl_tax,
			availability = excluded.availability,
			num_reviews = excluded.num_reviews,
			rating = excluded.rating,
			image_url = excluded.image_url,
			raw_html = excluded.raw_html,
			content_hash = excluded.content_hash,
			crawl_timestamp = excluded.crawl_timestamp,
			last_seen_at = excluded.last_seen_at`,
		book.SourceURL, book.Name, book.Description, book.Category,
		book.PriceInclTax, book.PriceExclTax, book.Availability,
		book.NumReviews, book.Rating, book.ImageURL, book.RawHTML,
		book.ContentHash, book.CrawlTimestamp,
		book.Meta.FirstSeenAt, book.Meta.LastSeenAt,
	)
	if err != nil {
		return fmt.Errorf("%s: failed to upsert book %s: %w", opn, book.SourceURL, err)
	}

	return nil
}

// ListAll returns a snapshot of every stored record in first-seen order, so
// a detection pass visits records in the order they entered the catalog.
func (r *Repository) ListAll(ctx context.Context) ([]models.Book, error) {
	const opn = "repository.sqlite.ListAll"

	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM books ORDER BY first_seen_at, source_url", bookColumns))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to query books: %w", opn, err)
	}
	defer rows.Close()

	var books []models.Book
	for rows.Next() {
		book, scanErr := scanBook(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("%s: failed to scan book: %w", opn, scanErr)
		}
		books = append(books, *book)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows iteration error: %w", opn, err)
	}

	return books, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanBook(s scanner) (*models.Book, error) {
	var (
		book         models.Book
		name         sql.NullString
		description  sql.NullString
		category     sql.NullString
		priceInclTax sql.NullFloat64
		priceExclTax sql.NullFloat64
		availability sql.NullString
		numReviews   sql.NullInt64
		rating       sql.NullInt64
		imageURL     sql.NullString
	)

	err := s.Scan(
		&book.SourceURL, &name, &description, &category, &priceInclTax,
		&priceExclTax, &availability, &numReviews, &rating, &imageURL,
		&book.RawHTML, &book.ContentHash, &book.CrawlTimestamp,
		&book.Meta.FirstSeenAt, &book.Meta.LastSeenAt,
	)
	if err != nil {
		return nil, err
	}

	book.Name = fromNullString(name)
	book.Description = fromNullString(description)
	book.Category = fromNullString(category)
	book.PriceInclTax = fromNullFloat(priceInclTax)
	book.PriceExclTax = fromNullFloat(priceExclTax)
	book.Availability = fromNullString(availability)
	book.NumReviews = fromNullInt(numReviews)
	book.Rating = fromNullInt(rating)
	book.ImageURL = fromNullString(imageURL)

	return &book, nil
}

func fromNullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func fromNullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func fromNullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
