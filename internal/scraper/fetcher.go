package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/FranksOps/rankwatch/internal/bypass"
	"github.com/FranksOps/rankwatch/internal/fingerprint"
	"github.com/FranksOps/rankwatch/internal/metrics"
	"github.com/FranksOps/rankwatch/pkg/httpclient"
	"github.com/PuerkitoBio/goquery"
)

// DefaultUserAgent identifies every request unless configured otherwise.
const DefaultUserAgent = "Mozilla/5.0 (X11; CrOS x86_64 12871.102.0) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/81.0.4044.141 Safari/537.36"

// Fetch kinds, used as the metrics label.
const (
	KindLanding = "landing"
	KindPage    = "page"
	KindRobots  = "robots"
)

var (
	// ErrHTTPStatus is returned for responses with a status of 400 or above.
	ErrHTTPStatus = errors.New("unexpected http status")
	// ErrBlocked is returned when the response is a bot-protection challenge.
	ErrBlocked = errors.New("blocked by bot protection")
	// ErrDisallowed is returned when robots.txt forbids the URL.
	ErrDisallowed = errors.New("disallowed by robots.txt")
)

// FetchConfig configures the document fetcher.
type FetchConfig struct {
	Timeout      time.Duration
	MaxRedirects int
	// UserAgent is the fixed identifying header sent with every request.
	UserAgent     string
	Fingerprint   fingerprint.Profile
	RespectRobots bool
}

// Page is a fetched document.
type Page struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
	FetchedAt  time.Time
}

// Fetcher performs sequential GET requests with a fixed header set.
type Fetcher struct {
	config  FetchConfig
	client  *httpclient.Client
	logger  *slog.Logger
	auditor *RobotsTxtAuditor
}

// NewFetcher initializes a new Fetcher with the given configuration.
func NewFetcher(cfg FetchConfig, logger *slog.Logger) (*Fetcher, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Fingerprint == "" {
		cfg.Fingerprint = fingerprint.ProfileGo
	}
	if logger == nil {
		logger = slog.Default()
	}

	transport, err := fingerprint.Transport(cfg.Fingerprint)
	if err != nil {
		return nil, fmt.Errorf("failed to setup transport: %w", err)
	}

	header := http.Header{}
	header.Set("User-Agent", cfg.UserAgent)
	header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	header.Set("Accept-Language", "en-US,en;q=0.5")

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		UseCookieJar: true,
		Header:       header,
		Transport:    transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	f := &Fetcher{
		config: cfg,
		client: client,
		logger: logger,
	}
	if cfg.RespectRobots {
		f.auditor = NewRobotsTxtAuditor(f, logger)
	}
	return f, nil
}

// Fetch retrieves targetURL. Transport failures, statuses of 400 and above,
// bot challenges and robots.txt refusals are all returned as errors.
func (f *Fetcher) Fetch(ctx context.Context, kind, targetURL string) (*Page, error) {
	if f.auditor != nil {
		allowed, err := f.auditor.IsAllowed(ctx, targetURL, f.config.UserAgent)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("%s: %w", targetURL, ErrDisallowed)
		}
	}

	page, err := f.get(ctx, kind, targetURL)
	if err != nil {
		return nil, err
	}

	if vendor, ok := bypass.Detect(&bypass.Response{
		StatusCode: page.StatusCode,
		Header:     page.Header,
		Body:       page.Body,
	}, bypass.DefaultDetectors()); ok {
		return nil, fmt.Errorf("%s: %w (%s)", targetURL, ErrBlocked, vendor)
	}
	if page.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%s: %w %d", targetURL, ErrHTTPStatus, page.StatusCode)
	}
	return page, nil
}

// Document fetches targetURL and parses it as HTML.
func (f *Fetcher) Document(ctx context.Context, kind, targetURL string) (*goquery.Document, error) {
	page, err := f.Fetch(ctx, kind, targetURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", targetURL, err)
	}
	return doc, nil
}

// get performs the request without robots or status policy.
func (f *Fetcher) get(ctx context.Context, kind, targetURL string) (*Page, error) {
	start := time.Now()
	f.logger.Debug("fetching", "url", targetURL, "kind", kind)

	resp, err := f.client.Get(ctx, targetURL)
	if err != nil {
		metrics.RecordFetch(kind, 0, time.Since(start))
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	duration := time.Since(start)
	metrics.RecordFetch(kind, resp.StatusCode, duration)
	if err != nil {
		return nil, fmt.Errorf("failed to read body of %s: %w", targetURL, err)
	}

	return &Page{
		URL:        targetURL,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		Duration:   duration,
		FetchedAt:  start.UTC(),
	}, nil
}
