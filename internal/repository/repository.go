// Package repository declares the durable-store contracts consumed by the
// crawl pipeline, together with their sentinel errors.
package repository

import (
	"context"
	"errors"

	"github.com/Houeta/bookwatch/internal/models"
)

// ErrBookNotFound is returned when no record exists for a source URL.
var ErrBookNotFound = errors.New("book not found")

// ErrStateNotFound is returned when a crawl-state key has never been set.
var ErrStateNotFound = errors.New("state key not found")

// BookRepository stores one record per source URL.
type BookRepository interface {
	// FindByURL returns the record for the URL or ErrBookNotFound.
	FindByURL(ctx context.Context, sourceURL string) (*models.Book, error)
	// Upsert atomically creates or fully replaces the record keyed by
	// book.SourceURL. FirstSeenAt is never overwritten once set.
	Upsert(ctx context.Context, book *models.Book) error
	// ListAll returns a snapshot of every stored record, in first-seen order.
	ListAll(ctx context.Context) ([]models.Book, error)
}

// ChangeRepository appends immutable change records.
type ChangeRepository interface {
	AppendChange(ctx context.Context, change *models.ChangeRecord) error
}

// StateRepository is the key/value store for cross-cycle bookkeeping.
type StateRepository interface {
	// GetState returns the stored value or ErrStateNotFound.
	GetState(ctx context.Context, key string) (string, error)
	SetState(ctx context.Context, key, value string) error
}

// Interface is the full store the pipeline is wired with.
type Interface interface {
	BookRepository
	ChangeRepository
	StateRepository
}
