package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/FranksOps/rankwatch/internal/ranking"
	"github.com/FranksOps/rankwatch/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ensure postgresBackend implements storage.Backend
var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS rankings (
	position BIGSERIAL PRIMARY KEY,
	rank_date TEXT NOT NULL,
	rank TEXT,
	previous_position TEXT,
	trend TEXT,
	nation TEXT,
	nation_full_name TEXT,
	nation_url TEXT,
	flag_url TEXT,
	confederation TEXT,
	points TEXT,
	extra JSONB
);
CREATE INDEX IF NOT EXISTS rankings_rank_date ON rankings (rank_date);
`

var insertQuery = func() string {
	params := make([]string, len(storage.KnownColumns)+1)
	for i := range params {
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf(`INSERT INTO rankings (%s, extra) VALUES (%s)`,
		strings.Join(storage.KnownColumns, ", "), strings.Join(params, ", "))
}()

// New creates a new Postgres-backed storage.Backend.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) SnapshotIDs(ctx context.Context) ([]string, error) {
	rows, err := b.pool.Query(ctx,
		`SELECT rank_date FROM rankings GROUP BY rank_date ORDER BY MIN(position)`)
	if err != nil {
		return nil, fmt.Errorf("query snapshot ids: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan snapshot ids: %w", err)
	}

	out := ids[:0]
	for _, id := range ids {
		if id = storage.CanonicalID(id); id != "" {
			out = append(out, id)
		}
	}
	return out, nil
}

// Append queues every record of the snapshot in one batch inside a single
// transaction.
func (b *postgresBackend) Append(ctx context.Context, table *ranking.Table) error {
	if table.Empty() {
		return nil
	}

	batch := &pgx.Batch{}
	for _, rec := range table.Records {
		values, extra, err := storage.Row(rec)
		if err != nil {
			return err
		}
		var extraArg any
		if extra != nil {
			extraArg = string(extra)
		}
		batch.Queue(insertQuery, append(values, extraArg)...)
	}

	err := pgx.BeginFunc(ctx, b.pool, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
