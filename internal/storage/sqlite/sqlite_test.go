package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/FranksOps/rankwatch/internal/ranking"
	"github.com/google/go-cmp/cmp"
)

func snapshot(id string, nations ...string) *ranking.Table {
	t := ranking.NewTable(ranking.FieldRank, ranking.FieldNation, "matches")
	for i, n := range nations {
		t.Records = append(t.Records, ranking.Record{
			ranking.FieldRank:   strconv.Itoa(i + 1),
			ranking.FieldNation: n,
			"matches":           "10",
		})
	}
	t.Stamp(ranking.FieldRankDate, id)
	return t
}

func TestSQLiteBackend(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "rankings.db")
	b, err := New(dsn)
	if err != nil {
		t.Fatalf("Failed to create SQLite backend: %v", err)
	}
	defer b.Close()

	ctx := context.Background()

	ids, err := b.SnapshotIDs(ctx)
	if err != nil {
		t.Fatalf("Failed to query empty backend: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("Expected no ids, got %v", ids)
	}

	if err := b.Append(ctx, snapshot("2024-04-04", "Argentina", "France")); err != nil {
		t.Fatalf("Failed to append: %v", err)
	}
	if err := b.Append(ctx, snapshot("2024-02-15", "Argentina")); err != nil {
		t.Fatalf("Failed to append: %v", err)
	}
	if err := b.Append(ctx, ranking.NewTable()); err != nil {
		t.Fatalf("Empty append should be a no-op: %v", err)
	}

	ids, err = b.SnapshotIDs(ctx)
	if err != nil {
		t.Fatalf("Failed to query ids: %v", err)
	}
	if diff := cmp.Diff([]string{"2024-04-04", "2024-02-15"}, ids); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}

	db := b.(*sqliteBackend).db
	rows, err := db.QueryContext(ctx, `SELECT rank_date, rank, nation, trend, extra FROM rankings ORDER BY position`)
	if err != nil {
		t.Fatalf("Failed to query rows: %v", err)
	}
	defer rows.Close()

	type row struct {
		Date, Rank, Nation string
		Trend, Extra       sql.NullString
	}
	var got []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.Date, &r.Rank, &r.Nation, &r.Trend, &r.Extra); err != nil {
			t.Fatalf("scan: %v", err)
		}
		got = append(got, r)
	}

	extra := sql.NullString{String: `{"matches":"10"}`, Valid: true}
	want := []row{
		{Date: "2024-04-04", Rank: "1", Nation: "Argentina", Extra: extra},
		{Date: "2024-04-04", Rank: "2", Nation: "France", Extra: extra},
		{Date: "2024-02-15", Rank: "1", Nation: "Argentina", Extra: extra},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLiteBackend_Reopen(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "rankings.db")
	ctx := context.Background()

	b, err := New(dsn)
	if err != nil {
		t.Fatalf("Failed to create SQLite backend: %v", err)
	}
	if err := b.Append(ctx, snapshot("A", "X")); err != nil {
		t.Fatalf("append: %v", err)
	}
	b.Close()

	b, err = New(dsn)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer b.Close()

	ids, err := b.SnapshotIDs(ctx)
	if err != nil {
		t.Fatalf("ids: %v", err)
	}
	if diff := cmp.Diff([]string{"A"}, ids); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
}
