package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/FranksOps/rankwatch/internal/ranking"
)

// Backend is the persisted ranking dataset. It is append-only: whole
// snapshots are added, existing rows are never rewritten.
type Backend interface {
	// SnapshotIDs returns the distinct snapshot identifiers already stored.
	SnapshotIDs(ctx context.Context) ([]string, error)
	// Append stores every record of table after the existing data.
	Append(ctx context.Context, table *ranking.Table) error
	Close() error
}

// KnownColumns are the fields the SQL backends store in dedicated columns,
// in table order.
var KnownColumns = []string{
	ranking.FieldRankDate,
	ranking.FieldRank,
	ranking.FieldPreviousPosition,
	ranking.FieldTrend,
	ranking.FieldNation,
	ranking.FieldNationFullName,
	ranking.FieldNationURL,
	ranking.FieldFlagURL,
	ranking.FieldConfederation,
	ranking.FieldPoints,
}

var known = func() map[string]bool {
	m := make(map[string]bool, len(KnownColumns))
	for _, c := range KnownColumns {
		m[c] = true
	}
	return m
}()

// CanonicalID normalizes a snapshot identifier read back from storage so it
// compares equal to the value the site publishes.
func CanonicalID(id string) string {
	return strings.TrimSpace(id)
}

// Row splits rec into values for KnownColumns and a JSON object of the
// remaining fields. Absent fields become nil, an empty extras set becomes nil.
func Row(rec ranking.Record) (values []any, extra []byte, err error) {
	values = make([]any, len(KnownColumns))
	for i, c := range KnownColumns {
		if v, ok := rec[c]; ok {
			values[i] = v
		}
	}

	rest := map[string]string{}
	for k, v := range rec {
		if !known[k] {
			rest[k] = v
		}
	}
	if len(rest) == 0 {
		return values, nil, nil
	}
	extra, err = json.Marshal(rest)
	if err != nil {
		return nil, nil, fmt.Errorf("encode extra fields: %w", err)
	}
	return values, extra, nil
}
