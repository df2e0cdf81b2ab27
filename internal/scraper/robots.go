package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// RobotsTxtAuditor fetches and caches robots.txt per host.
type RobotsTxtAuditor struct {
	fetcher *Fetcher
	logger  *slog.Logger
	mu      sync.Mutex
	cache   map[string]*robotstxt.RobotsData
}

// NewRobotsTxtAuditor creates a new instance.
func NewRobotsTxtAuditor(fetcher *Fetcher, logger *slog.Logger) *RobotsTxtAuditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RobotsTxtAuditor{
		fetcher: fetcher,
		logger:  logger,
		cache:   make(map[string]*robotstxt.RobotsData),
	}
}

// IsAllowed reports whether userAgent may fetch targetURL. A robots.txt that
// cannot be fetched or parsed allows everything.
func (r *RobotsTxtAuditor) IsAllowed(ctx context.Context, targetURL string, userAgent string) (bool, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false, fmt.Errorf("invalid url: %w", err)
	}

	data := r.rules(ctx, u.Scheme+"://"+u.Host)
	if data == nil {
		return true, nil
	}

	path := u.EscapedPath()
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return data.FindGroup(userAgent).Test(path), nil
}

func (r *RobotsTxtAuditor) rules(ctx context.Context, host string) *robotstxt.RobotsData {
	r.mu.Lock()
	defer r.mu.Unlock()

	if data, ok := r.cache[host]; ok {
		return data
	}

	// Only definitive answers are cached: a parsed file or a 4xx status.
	// Transport errors and 5xx allow this request and are retried next time.
	page, err := r.fetcher.get(ctx, KindRobots, host+"/robots.txt")
	switch {
	case err != nil:
		r.logger.Debug("robots.txt fetch failed, allowing for now", "host", host, "err", err)
		return nil
	case page.StatusCode >= http.StatusInternalServerError:
		r.logger.Debug("robots.txt server error, allowing for now", "host", host, "status", page.StatusCode)
		return nil
	case page.StatusCode >= http.StatusBadRequest:
		r.logger.Debug("no robots.txt, defaulting to allow", "host", host, "status", page.StatusCode)
		r.cache[host] = nil
		return nil
	}

	data, err := robotstxt.FromBytes(page.Body)
	if err != nil {
		r.logger.Warn("robots.txt unparsable, defaulting to allow", "host", host, "err", err)
		data = nil
	}
	r.cache[host] = data
	return data
}
