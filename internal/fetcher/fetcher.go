// Package fetcher defines the rendered-page fetch contract and its headless
// Chrome implementation. A Session is an exclusive resource: it must not be
// used from more than one logical operation at a time, and the caller is
// responsible for closing it on every exit path.
package fetcher

import (
	"context"
	"fmt"
)

// Fetcher returns the rendered HTML for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// Session is a Fetcher bound to one browser instance.
type Session interface {
	Fetcher
	Close() error
}

// Factory creates fresh sessions. The orchestrator acquires one per phase so
// a failure in one phase cannot poison the other phase's browser state.
type Factory interface {
	NewSession(ctx context.Context) (Session, error)
}

// FetchError wraps any failure to produce rendered HTML for a URL: timeouts,
// navigation failures and unavailable resources alike.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
