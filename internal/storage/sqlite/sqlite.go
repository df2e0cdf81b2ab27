package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/FranksOps/rankwatch/internal/ranking"
	"github.com/FranksOps/rankwatch/internal/storage"
	_ "modernc.org/sqlite"
)

// ensure sqliteBackend implements storage.Backend
var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS rankings (
	position INTEGER PRIMARY KEY AUTOINCREMENT,
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
	extra TEXT
);
CREATE INDEX IF NOT EXISTS rankings_rank_date ON rankings (rank_date);
`

var insertQuery = fmt.Sprintf(
	`INSERT INTO rankings (%s, extra) VALUES (%s?)`,
	strings.Join(storage.KnownColumns, ", "),
	strings.Repeat("?, ", len(storage.KnownColumns)),
)

// New creates a new SQLite-backed storage.Backend.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) SnapshotIDs(ctx context.Context) ([]string, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT rank_date FROM rankings GROUP BY rank_date ORDER BY MIN(position)`)
	if err != nil {
		return nil, fmt.Errorf("query snapshot ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan snapshot id: %w", err)
		}
		if id = storage.CanonicalID(id); id != "" {
			ids = append(ids, id)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot ids: %w", err)
	}
	return ids, nil
}

// Append inserts the snapshot in a single transaction so a partially
// written snapshot is never visible.
func (b *sqliteBackend) Append(ctx context.Context, table *ranking.Table) error {
	if table.Empty() {
		return nil
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insertQuery)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range table.Records {
		values, extra, err := storage.Row(rec)
		if err != nil {
			return err
		}
		var extraArg any
		if extra != nil {
			extraArg = string(extra)
		}
		if _, err := stmt.ExecContext(ctx, append(values, extraArg)...); err != nil {
			return fmt.Errorf("insert record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
