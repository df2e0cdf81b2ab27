package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetcher_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "TestBrowser/1.0" {
			t.Errorf("expected fixed User-Agent, got %q", got)
		}
		w.Header().Set("X-Test", "true")
		_, _ = w.Write([]byte("ok"))
	}))
	defer ts.Close()

	fetcher, err := NewFetcher(FetchConfig{Timeout: 5 * time.Second, UserAgent: "TestBrowser/1.0"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	page, err := fetcher.Fetch(context.Background(), KindPage, ts.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", page.StatusCode)
	}
	if string(page.Body) != "ok" {
		t.Errorf("expected body 'ok', got %s", string(page.Body))
	}
	if page.Header.Get("X-Test") != "true" {
		t.Errorf("expected X-Test header 'true', got %v", page.Header["X-Test"])
	}
	if page.Duration == 0 {
		t.Errorf("expected non-zero duration")
	}
}

func TestFetcher_DefaultUserAgent(t *testing.T) {
	var got string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
	}))
	defer ts.Close()

	fetcher, _ := NewFetcher(FetchConfig{}, nil)
	if _, err := fetcher.Fetch(context.Background(), KindPage, ts.URL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != DefaultUserAgent {
		t.Errorf("expected default User-Agent, got %q", got)
	}
}

func TestFetcher_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
	}))
	defer ts.Close()

	fetcher, _ := NewFetcher(FetchConfig{Timeout: 10 * time.Millisecond}, nil)
	if _, err := fetcher.Fetch(context.Background(), KindPage, ts.URL); err == nil {
		t.Error("expected timeout error")
	}
}

func TestFetcher_StatusAndChallenge(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/challenge", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", "cloudflare")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("Attention Required! | Cloudflare"))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	fetcher, _ := NewFetcher(FetchConfig{Timeout: 5 * time.Second}, nil)
	ctx := context.Background()

	if _, err := fetcher.Fetch(ctx, KindPage, ts.URL+"/missing"); !errors.Is(err, ErrHTTPStatus) {
		t.Errorf("expected ErrHTTPStatus, got %v", err)
	}
	if _, err := fetcher.Fetch(ctx, KindPage, ts.URL+"/challenge"); !errors.Is(err, ErrBlocked) {
		t.Errorf("expected ErrBlocked, got %v", err)
	}
}

func TestFetcher_Document(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><h1>Ranking</h1></body></html>`))
	}))
	defer ts.Close()

	fetcher, _ := NewFetcher(FetchConfig{}, nil)
	doc, err := fetcher.Document(context.Background(), KindLanding, ts.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := doc.Find("h1").Text(); got != "Ranking" {
		t.Errorf("expected h1 'Ranking', got %q", got)
	}
}
