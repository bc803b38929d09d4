package fetcher

import (
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

const robotsCacheTTL = time.Hour

// RobotsGate caches robots.txt rules per host and answers whether a URL may
// be fetched. Unreachable or unparsable robots.txt permits the request.
type RobotsGate struct {
	client    *http.Client
	userAgent string

	mu     sync.Mutex
	rules  map[string]*robotstxt.RobotsData
	expiry map[string]time.Time
}

func NewRobotsGate(client *http.Client, userAgent string) *RobotsGate {
	return &RobotsGate{
		client:    client,
		userAgent: userAgent,
		rules:     make(map[string]*robotstxt.RobotsData),
		expiry:    make(map[string]time.Time),
	}
}

// Allowed reports whether robots.txt permits fetching rawURL.
func (g *RobotsGate) Allowed(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	data := g.rulesFor(u.Scheme + "://" + u.Host)
	if data == nil {
		return true
	}

	return data.FindGroup(g.userAgent).Test(u.Path)
}

func (g *RobotsGate) rulesFor(origin string) *robotstxt.RobotsData {
	g.mu.Lock()
	defer g.mu.Unlock()

	if data, ok := g.rules[origin]; ok && time.Now().Before(g.expiry[origin]) {
		return data
	}

	data := g.fetchRules(origin)
	g.rules[origin] = data
	g.expiry[origin] = time.Now().Add(robotsCacheTTL)

	return data
}

func (g *RobotsGate) fetchRules(origin string) *robotstxt.RobotsData {
	resp, err := g.client.Get(origin + "/robots.txt")
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil
	}

	return data
}
