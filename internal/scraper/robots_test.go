package scraper

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestRobotsTxtAuditor_IsAllowed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(`
User-agent: *
Disallow: /admin/
Allow: /admin/public/

User-agent: BadBot
Disallow: /
		`))
	})

	ts := httptest.NewServer(mux)
	defer ts.Close()

	fetcher, _ := NewFetcher(FetchConfig{Timeout: 5 * time.Second}, nil)
	auditor := NewRobotsTxtAuditor(fetcher, slog.Default())
	ctx := context.Background()

	allowed, err := auditor.IsAllowed(ctx, ts.URL+"/public-page", "GoodBot")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed {
		t.Errorf("expected /public-page to be allowed")
	}

	if allowed, _ = auditor.IsAllowed(ctx, ts.URL+"/admin/secret", "GoodBot"); allowed {
		t.Errorf("expected /admin/secret to be disallowed")
	}

	if allowed, _ = auditor.IsAllowed(ctx, ts.URL+"/admin/public/index.html", "GoodBot"); !allowed {
		t.Errorf("expected /admin/public/index.html to be allowed")
	}

	if allowed, _ = auditor.IsAllowed(ctx, ts.URL+"/public-page", "BadBot"); allowed {
		t.Errorf("expected /public-page to be disallowed for BadBot")
	}
}

func TestRobotsTxtAuditor_MissingRobots(t *testing.T) {
	hits := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusNotFound)
	})

	ts := httptest.NewServer(mux)
	defer ts.Close()

	fetcher, _ := NewFetcher(FetchConfig{Timeout: 5 * time.Second}, nil)
	auditor := NewRobotsTxtAuditor(fetcher, slog.Default())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := auditor.IsAllowed(ctx, ts.URL+"/anything", "Bot")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !allowed {
			t.Errorf("expected missing robots.txt to default to allowed")
		}
	}
	if hits != 1 {
		t.Errorf("expected robots.txt to be fetched once, got %d", hits)
	}
}

func TestRobotsTxtAuditor_TransientFailureNotCached(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /private\n"))
	})

	ts := httptest.NewServer(mux)
	defer ts.Close()

	fetcher, _ := NewFetcher(FetchConfig{Timeout: 5 * time.Second}, nil)
	auditor := NewRobotsTxtAuditor(fetcher, slog.Default())
	ctx := context.Background()

	allowed, err := auditor.IsAllowed(ctx, ts.URL+"/private", "Bot")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed {
		t.Errorf("expected a 503 robots.txt to allow the request")
	}

	if allowed, _ = auditor.IsAllowed(ctx, ts.URL+"/private", "Bot"); allowed {
		t.Errorf("expected robots.txt to be refetched and /private disallowed")
	}
	if allowed, _ = auditor.IsAllowed(ctx, ts.URL+"/private", "Bot"); allowed {
		t.Errorf("expected cached rules to disallow /private")
	}
	if n := hits.Load(); n != 2 {
		t.Errorf("expected 2 robots.txt fetches, got %d", n)
	}
}

func TestRobotsTxtAuditor_CancelledContextNotCached(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /\n"))
	})

	ts := httptest.NewServer(mux)
	defer ts.Close()

	fetcher, _ := NewFetcher(FetchConfig{Timeout: 5 * time.Second}, nil)
	auditor := NewRobotsTxtAuditor(fetcher, slog.Default())

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if allowed, _ := auditor.IsAllowed(cancelled, ts.URL+"/page", "Bot"); !allowed {
		t.Errorf("expected a failed robots.txt fetch to allow the request")
	}

	if allowed, _ := auditor.IsAllowed(context.Background(), ts.URL+"/page", "Bot"); allowed {
		t.Errorf("expected the failed fetch not to be cached")
	}
}

func TestFetcher_RespectRobots(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /blocked\n"))
	})
	mux.HandleFunc("/allowed", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/blocked", func(w http.ResponseWriter, r *http.Request) {
		t.Error("requested /blocked but should be forbidden by robots.txt")
	})

	ts := httptest.NewServer(mux)
	defer ts.Close()

	fetcher, _ := NewFetcher(FetchConfig{Timeout: 5 * time.Second, RespectRobots: true}, nil)
	ctx := context.Background()

	if _, err := fetcher.Fetch(ctx, KindPage, ts.URL+"/allowed"); err != nil {
		t.Errorf("unexpected error for /allowed: %v", err)
	}
	if _, err := fetcher.Fetch(ctx, KindPage, ts.URL+"/blocked"); !errors.Is(err, ErrDisallowed) {
		t.Errorf("expected ErrDisallowed for /blocked, got %v", err)
	}
}
