package models

import "time"

// Meta holds cross-cycle bookkeeping for a book record.
type Meta struct {
	FirstSeenAt time.Time `json:"first_seen_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}

// Book is a single catalog entry, identified by its source URL.
// Optional fields are pointers: nil means the value was absent on the page,
// which is distinct from a present zero value.
type Book struct {
	SourceURL      string    `json:"source_url"`
	Name           *string   `json:"name"`
	Description    *string   `json:"description"`
	Category       *string   `json:"category"`
	PriceInclTax   *float64  `json:"price_including_tax"`
	PriceExclTax   *float64  `json:"price_excluding_tax"`
	Availability   *string   `json:"availability"`
	NumReviews     *int      `json:"num_reviews"`
	Rating         *int      `json:"rating"`
	ImageURL       *string   `json:"image_url"`
	RawHTML        string    `json:"raw_html,omitempty"`
	ContentHash    string    `json:"content_hash"`
	CrawlTimestamp time.Time `json:"crawl_timestamp"`
	Meta           Meta      `json:"meta"`
}

// StrPtr returns a pointer to s. Helper for building records and tests.
func StrPtr(s string) *string { return &s }

// FloatPtr returns a pointer to f.
func FloatPtr(f float64) *float64 { return &f }

// IntPtr returns a pointer to i.
func IntPtr(i int) *int { return &i }
