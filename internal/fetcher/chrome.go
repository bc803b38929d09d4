package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/chromedp/chromedp"
	"golang.org/x/time/rate"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36"

// ErrRobotsDisallowed marks a URL the target's robots.txt forbids.
var ErrRobotsDisallowed = errors.New("url disallowed by robots.txt")

// Options configures browser sessions created by the factory.
type Options struct {
	Headless        bool
	PageLoadTimeout time.Duration
	// SettleDelay is waited after navigation so dynamically loaded content
	// is present before extraction.
	SettleDelay   time.Duration
	RatePerSecond float64
	RateBurst     int
	RespectRobots bool
	UserAgent     string
}

// ChromeFactory builds headless Chrome sessions.
type ChromeFactory struct {
	log  *slog.Logger
	opts Options
}

func NewChromeFactory(log *slog.Logger, opts Options) *ChromeFactory {
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 1
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 1
	}
	return &ChromeFactory{log: log, opts: opts}
}

// NewSession launches a browser and returns a session bound to it. The
// session owns the browser process until Close is called.
func (f *ChromeFactory) NewSession(ctx context.Context) (Session, error) {
	const opn = "fetcher.ChromeFactory.NewSession"

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", f.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(f.opts.UserAgent),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// Start the browser eagerly so an unlaunchable Chrome fails the phase
	// here instead of on the first page.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("%s: failed to launch browser: %w", opn, err)
	}

	var gate *RobotsGate
	if f.opts.RespectRobots {
		gate = NewRobotsGate(http.DefaultClient, f.opts.UserAgent)
	}

	f.log.Debug("browser session started", "headless", f.opts.Headless)

	return &ChromeSession{
		log:           f.log,
		browserCtx:    browserCtx,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
		limiter:       rate.NewLimiter(rate.Limit(f.opts.RatePerSecond), f.opts.RateBurst),
		robots:        gate,
		timeout:       f.opts.PageLoadTimeout,
		settle:        f.opts.SettleDelay,
	}, nil
}

// ChromeSession fetches pages through one shared browser, one tab per fetch.
// Not safe for concurrent use.
type ChromeSession struct {
	log           *slog.Logger
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
	limiter       *rate.Limiter
	robots        *RobotsGate
	timeout       time.Duration
	settle        time.Duration
}

// Fetch navigates to the URL in a fresh tab, waits the settle delay and
// returns the rendered document.
func (s *ChromeSession) Fetch(ctx context.Context, pageURL string) (string, error) {
	if s.robots != nil && !s.robots.Allowed(pageURL) {
		return "", &FetchError{URL: pageURL, Err: ErrRobotsDisallowed}
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", &FetchError{URL: pageURL, Err: err}
	}

	tabCtx, cancelTab := chromedp.NewContext(s.browserCtx)
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, s.timeout)
	defer cancelTimeout()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(pageURL),
		chromedp.Sleep(s.settle),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", &FetchError{URL: pageURL, Err: err}
	}

	s.log.Debug("fetched page", "url", pageURL, "bytes", len(html))

	return html, nil
}

// Close releases the browser and its allocator.
func (s *ChromeSession) Close() error {
	s.cancelBrowser()
	s.cancelAlloc()
	return nil
}
