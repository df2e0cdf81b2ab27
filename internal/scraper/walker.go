package scraper

import (
	"context"
	"fmt"

	"github.com/FranksOps/rankwatch/internal/metrics"
	"github.com/FranksOps/rankwatch/internal/ranking"
	"github.com/PuerkitoBio/goquery"
)

// Snapshot fetches every page of the ranking published as id and returns the
// concatenated table with each record stamped with id. Any failed page fetch
// aborts the snapshot so that nothing partial is stored.
func (c *Collector) Snapshot(ctx context.Context, id string) (*ranking.Table, error) {
	first, err := c.fetcher.Document(ctx, KindPage, c.cfg.Site.PageURL(id, 1))
	if err != nil {
		return nil, fmt.Errorf("snapshot %s page 1: %w", id, err)
	}

	pages := ranking.PageCount(first)
	logger := c.logger.With("snapshot", id, "pages", pages)

	if pages == 1 && c.cfg.DiscardSinglePage {
		logger.Info("discarding single-page snapshot")
		return ranking.NewTable(), nil
	}

	out := ranking.NewTable()
	for n := 1; n <= pages; n++ {
		doc := first
		if n > 1 {
			doc, err = c.fetcher.Document(ctx, KindPage, c.cfg.Site.PageURL(id, n))
			if err != nil {
				return nil, fmt.Errorf("snapshot %s page %d: %w", id, n, err)
			}
		}

		table := c.extract(doc)
		if table == nil {
			logger.Warn("page has no ranking table, skipping", "page", n)
			continue
		}
		logger.Debug("parsed page", "page", n, "rows", table.Len())
		out.Append(table)
	}

	out.Stamp(ranking.FieldRankDate, id)
	return out, nil
}

func (c *Collector) extract(doc *goquery.Document) *ranking.Table {
	table, found := ranking.ExtractTable(doc)
	if !found {
		return nil
	}
	metrics.PagesParsedTotal.Inc()
	return table
}
