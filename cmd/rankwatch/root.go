package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/FranksOps/rankwatch/internal/config"
	"github.com/FranksOps/rankwatch/internal/metrics"
	"github.com/FranksOps/rankwatch/internal/pipeline"
	"github.com/FranksOps/rankwatch/internal/report"
	"github.com/FranksOps/rankwatch/internal/scraper"
	"github.com/FranksOps/rankwatch/internal/storage"
	"github.com/FranksOps/rankwatch/internal/storage/csvbackend"
	"github.com/FranksOps/rankwatch/internal/storage/jsonbackend"
	"github.com/FranksOps/rankwatch/internal/storage/postgres"
	"github.com/FranksOps/rankwatch/internal/storage/sqlite"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// errSnapshotsFailed makes the process exit 1 after a run that skipped
// snapshots. The summary already lists them.
var errSnapshotsFailed = errors.New("some ranking dates could not be collected")

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"output":                     config.KeyOutput,
	"backend":                    config.KeyBackend,
	"dsn":                        config.KeyDSN,
	"base-url":                   config.KeyBaseURL,
	"landing-url":                config.KeyLandingURL,
	"user-agent":                 config.KeyUserAgent,
	"timeout":                    config.KeyTimeout,
	"max-redirects":              config.KeyMaxRedirects,
	"fingerprint":                config.KeyFingerprint,
	"respect-robots":             config.KeyRespectRobots,
	"legacy-single-page-discard": config.KeyLegacySinglePageDiscard,
	"metrics-port":               config.KeyMetricsPort,
	"log-level":                  config.KeyLogLevel,
	"log-format":                 config.KeyLogFormat,
	"summary-format":             config.KeySummaryFormat,
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	v := config.New()
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "rankwatch",
		Short: "Collect new FIFA world ranking dates into a local dataset",
		Long: `rankwatch lists the ranking dates published on the site, skips the ones
already present in the dataset and appends every new ranking table, one date
at a time. Rerunning is safe: dates are only marked done once appended.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ReadFile(v, cfgFile); err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, stdout, newLogger(cfg, stderr))
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./rankwatch.yaml when present)")
	flags.String("output", v.GetString(config.KeyOutput), "dataset path for the csv, json and sqlite backends")
	flags.String("backend", v.GetString(config.KeyBackend), "storage backend: csv, json, sqlite or postgres")
	flags.String("dsn", "", "database DSN for the sqlite and postgres backends")
	flags.String("base-url", "", "ranking statistics base URL (default "+scraper.DefaultBaseURL+")")
	flags.String("landing-url", "", "page listing the ranking dates (default derived from --base-url)")
	flags.String("user-agent", "", "User-Agent header sent with every request")
	flags.Duration("timeout", v.GetDuration(config.KeyTimeout), "per-request timeout")
	flags.Int("max-redirects", v.GetInt(config.KeyMaxRedirects), "redirects to follow, negative disables")
	flags.String("fingerprint", v.GetString(config.KeyFingerprint), "TLS fingerprint: go, chrome, firefox, safari or random")
	flags.Bool("respect-robots", false, "skip URLs disallowed by robots.txt")
	flags.Bool("legacy-single-page-discard", false, "drop ranking dates that span a single page")
	flags.Int("metrics-port", 0, "serve Prometheus metrics on this port during the run, 0 disables")
	flags.String("log-level", v.GetString(config.KeyLogLevel), "log level: debug, info, warn or error")
	flags.String("log-format", v.GetString(config.KeyLogFormat), "log format: text or json")
	flags.String("summary-format", v.GetString(config.KeySummaryFormat), "run summary format: text, json or html")

	for name, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %q: %v", name, err))
		}
	}

	return cmd
}

func newLogger(cfg config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// run executes one collection pass with the metrics server alongside it.
func run(ctx context.Context, cfg config.Config, stdout io.Writer, logger *slog.Logger) error {
	fetcher, err := scraper.NewFetcher(scraper.FetchConfig{
		Timeout:       cfg.Timeout,
		MaxRedirects:  cfg.MaxRedirects,
		UserAgent:     cfg.UserAgent,
		Fingerprint:   cfg.Fingerprint,
		RespectRobots: cfg.RespectRobots,
	}, logger)
	if err != nil {
		return err
	}

	collector := scraper.NewCollector(scraper.CollectorConfig{
		Site:              scraper.Site{BaseURL: cfg.BaseURL, LandingURL: cfg.LandingURL},
		DiscardSinglePage: cfg.LegacySinglePageDiscard,
	}, fetcher, logger)

	backend, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Error("failed to close storage", "err", err)
		}
	}()

	p := &pipeline.Pipeline{
		Source:  collector,
		Backend: backend,
		Logger:  logger,
		Out:     stdout,
		Output:  cfg.StorageTarget(),
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(runCtx)

	var server *metrics.Server
	if cfg.MetricsPort > 0 {
		server = metrics.Start(cfg.MetricsPort, logger)
		logger.Info("serving metrics", "port", cfg.MetricsPort)
	}
	g.Go(func() error {
		<-gCtx.Done()
		return server.Stop(context.Background())
	})

	var summary report.Summary
	g.Go(func() error {
		defer cancel()
		var runErr error
		summary, runErr = p.Run(gCtx)
		return runErr
	})

	runErr := g.Wait()

	if summary.RunID != "" {
		if err := report.Write(stdout, cfg.SummaryFormat, summary); err != nil {
			logger.Error("failed to write summary", "err", err)
		}
	}
	if runErr != nil {
		return runErr
	}
	if summary.Failed > 0 {
		return errSnapshotsFailed
	}
	return nil
}

func openBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage.Backend, error) {
	switch cfg.Backend {
	case config.BackendCSV:
		return csvbackend.New(cfg.Output, logger)
	case config.BackendJSON:
		return jsonbackend.New(cfg.Output)
	case config.BackendSQLite:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = cfg.Output
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
		}
		return sqlite.New(dsn)
	case config.BackendPostgres:
		return postgres.New(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
