package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/FranksOps/rankwatch/internal/metrics"
	"github.com/FranksOps/rankwatch/internal/ranking"
	"github.com/FranksOps/rankwatch/internal/report"
	"github.com/FranksOps/rankwatch/internal/storage"
	"github.com/google/uuid"
)

// Source lists the published ranking snapshots and collects one of them.
// *scraper.Collector is the production implementation.
type Source interface {
	Snapshots(ctx context.Context) ([]string, error)
	Snapshot(ctx context.Context, id string) (*ranking.Table, error)
}

// Pipeline brings the stored dataset up to date with the snapshots the
// source publishes. Each new snapshot is appended as soon as it is collected.
type Pipeline struct {
	Source  Source
	Backend storage.Backend
	Logger  *slog.Logger

	// Out receives the one-line headline. Nil discards it.
	Out io.Writer
	// Output names the dataset in the headline and summary.
	Output string
}

// Pending returns the enumerated identifiers not present in persisted, in
// enumeration order and without duplicates.
func Pending(enumerated, persisted []string) []string {
	done := make(map[string]bool, len(persisted))
	for _, id := range persisted {
		done[storage.CanonicalID(id)] = true
	}

	var out []string
	for _, id := range enumerated {
		id = storage.CanonicalID(id)
		if id == "" || done[id] {
			continue
		}
		done[id] = true
		out = append(out, id)
	}
	return out
}

// Run executes one collection pass. A snapshot that fails to fetch is
// counted in the summary and skipped; the next run retries it. Run only
// returns an error when nothing can be enumerated, the dataset cannot be
// written, or ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context) (summary report.Summary, err error) {
	if p.Source == nil {
		return report.Summary{}, errors.New("pipeline: source is nil")
	}
	if p.Backend == nil {
		return report.Summary{}, errors.New("pipeline: backend is nil")
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	out := p.Out
	if out == nil {
		out = io.Discard
	}

	summary = report.Summary{
		RunID:     uuid.NewString(),
		Output:    p.Output,
		StartTime: time.Now(),
	}
	defer func() {
		summary.EndTime = time.Now()
		summary.Duration = summary.EndTime.Sub(summary.StartTime)
	}()
	logger = logger.With("run_id", summary.RunID)

	persisted, err := p.Backend.SnapshotIDs(ctx)
	if err != nil {
		logger.Warn("could not read stored ranking dates, starting fresh; rows may be duplicated", "err", err)
		persisted = nil
	}

	enumerated, err := p.Source.Snapshots(ctx)
	if err != nil {
		return summary, fmt.Errorf("enumerate snapshots: %w", err)
	}

	pending := Pending(enumerated, persisted)
	summary.Enumerated = len(enumerated)
	summary.Persisted = len(persisted)
	summary.Pending = len(pending)

	fmt.Fprintln(out, report.Headline(p.Output, len(pending)))
	logger.Info("computed pending snapshots",
		"enumerated", summary.Enumerated, "persisted", summary.Persisted, "pending", summary.Pending)

	for i, id := range pending {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		log := logger.With("snapshot", id, "progress", fmt.Sprintf("%d/%d", i+1, len(pending)))

		table, err := p.Source.Snapshot(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			log.Error("snapshot failed, will retry on next run", "err", err)
			summary.Failed++
			summary.FailedIDs = append(summary.FailedIDs, id)
			metrics.RecordSnapshot(metrics.OutcomeFailed, 0)
			continue
		}

		if table.Empty() {
			log.Warn("snapshot has no rows, nothing appended")
			summary.Empty++
			metrics.RecordSnapshot(metrics.OutcomeEmpty, 0)
			continue
		}

		if err := p.Backend.Append(ctx, table); err != nil {
			return summary, fmt.Errorf("append snapshot %s: %w", id, err)
		}
		summary.Appended++
		summary.RowsAppended += table.Len()
		metrics.RecordSnapshot(metrics.OutcomeAppended, table.Len())
		log.Info("appended snapshot", "rows", table.Len())
	}

	return summary, nil
}
