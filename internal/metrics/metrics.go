package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FetchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rankwatch_fetch_requests_total",
			Help: "Total number of page fetches, by page kind and outcome",
		},
		[]string{"kind", "status"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rankwatch_fetch_duration_seconds",
			Help:    "Duration of page fetches in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"kind"},
	)

	PagesParsedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rankwatch_pages_parsed_total",
			Help: "Total number of ranking table pages parsed",
		},
	)

	SnapshotsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rankwatch_snapshots_total",
			Help: "Total number of snapshots processed, by outcome",
		},
		[]string{"outcome"},
	)

	RowsAppendedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rankwatch_rows_appended_total",
			Help: "Total number of ranking rows appended to the dataset",
		},
	)
)

// Snapshot outcomes.
const (
	OutcomeAppended = "appended"
	OutcomeEmpty    = "empty"
	OutcomeFailed   = "failed"
)

// RecordFetch observes one fetch. status is the HTTP status code, or 0 when
// the request failed before a response arrived.
func RecordFetch(kind string, status int, d time.Duration) {
	label := strconv.Itoa(status)
	if status == 0 {
		label = "error"
	}
	FetchRequestsTotal.WithLabelValues(kind, label).Inc()
	FetchDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// RecordSnapshot counts a finished snapshot and the rows it contributed.
func RecordSnapshot(outcome string, rows int) {
	SnapshotsTotal.WithLabelValues(outcome).Inc()
	if rows > 0 {
		RowsAppendedTotal.Add(float64(rows))
	}
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on the specified port and exposes /metrics.
func Start(port int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", srv.Addr, "err", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
