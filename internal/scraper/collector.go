package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/FranksOps/rankwatch/internal/ranking"
)

// DefaultBaseURL is the world ranking statistics section of transfermarkt.
const DefaultBaseURL = "https://www.transfermarkt.com/statistik/weltrangliste/statistik/stat"

// Site builds the URLs of the ranking pages.
type Site struct {
	// BaseURL is the statistics section, without trailing slash.
	BaseURL string
	// LandingURL lists the available ranking dates. Empty derives it from BaseURL.
	LandingURL string
}

// Landing returns the landing page URL.
func (s Site) Landing() string {
	if s.LandingURL != "" {
		return s.LandingURL
	}
	return s.base() + "/plus/0/galerie/0?datum=1994-03-15"
}

// PageURL returns the URL of page n of the snapshot id.
func (s Site) PageURL(id string, n int) string {
	return s.base() + "/datum/" + url.PathEscape(id) + "/plus/0/galerie/0/page/" + strconv.Itoa(n)
}

func (s Site) base() string {
	if s.BaseURL == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(s.BaseURL, "/")
}

// CollectorConfig configures a Collector.
type CollectorConfig struct {
	Site Site
	// DiscardSinglePage drops snapshots that span exactly one page, the way
	// the first generation of the dataset was collected.
	DiscardSinglePage bool
}

// Collector enumerates ranking snapshots and walks their pages.
type Collector struct {
	cfg     CollectorConfig
	fetcher *Fetcher
	logger  *slog.Logger
}

// NewCollector creates a Collector fetching through fetcher.
func NewCollector(cfg CollectorConfig, fetcher *Fetcher, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		cfg:     cfg,
		fetcher: fetcher,
		logger:  logger,
	}
}

// Snapshots returns the snapshot identifiers listed on the landing page. A
// landing page without a date selector yields no identifiers and no error.
func (c *Collector) Snapshots(ctx context.Context) ([]string, error) {
	landing := c.cfg.Site.Landing()
	doc, err := c.fetcher.Document(ctx, KindLanding, landing)
	if err != nil {
		return nil, fmt.Errorf("landing page: %w", err)
	}

	ids := ranking.SnapshotIDs(doc)
	if len(ids) == 0 {
		c.logger.Warn("no ranking date selector found", "url", landing)
	}
	return ids, nil
}
