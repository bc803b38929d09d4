package fetcher_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Houeta/bookwatch/internal/fetcher"
	"github.com/stretchr/testify/assert"
)

func TestRobotsGate_DisallowedPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	gate := fetcher.NewRobotsGate(srv.Client(), "bookwatch")

	assert.True(t, gate.Allowed(srv.URL+"/catalogue/page-1.html"))
	assert.False(t, gate.Allowed(srv.URL+"/private/admin.html"))
}

func TestRobotsGate_MissingRobotsPermits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	gate := fetcher.NewRobotsGate(srv.Client(), "bookwatch")

	assert.True(t, gate.Allowed(srv.URL+"/anything.html"))
}

func TestRobotsGate_CachesRules(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			hits++
			_, _ = w.Write([]byte("User-agent: *\nDisallow:\n"))
		}
	}))
	defer srv.Close()

	gate := fetcher.NewRobotsGate(srv.Client(), "bookwatch")

	assert.True(t, gate.Allowed(srv.URL+"/a.html"))
	assert.True(t, gate.Allowed(srv.URL+"/b.html"))
	assert.Equal(t, 1, hits)
}
