// Package ranking decodes transfermarkt world ranking pages into sparse tables.
package ranking

// Canonical field names produced by the extractor.
const (
	FieldRank             = "rank"
	FieldPreviousPosition = "previous_position"
	FieldTrend            = "trend"
	FieldNation           = "nation"
	FieldNationURL        = "nation_url"
	FieldFlagURL          = "flag_url"
	FieldNationFullName   = "nation_full_name"
	FieldConfederation    = "confederation"
	FieldPoints           = "points"
	FieldRankDate         = "rank_date"
)

// Trend values derived from the arrow marker in the rank cell.
const (
	TrendUp     = "up"
	TrendDown   = "down"
	TrendStable = "stable"
)

// Record is one table row. A field that the page did not provide is absent
// from the map, which is distinct from a present empty string.
type Record map[string]string

// Get returns the value of field and whether it was set.
func (r Record) Get(field string) (string, bool) {
	v, ok := r[field]
	return v, ok
}

// Table is an ordered set of records sharing a column list.
type Table struct {
	Columns []string
	Records []Record
}

// NewTable returns an empty table with the given columns.
func NewTable(columns ...string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// Len returns the number of records. A nil table has zero.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// Empty reports whether the table is nil or has no records.
func (t *Table) Empty() bool {
	return t.Len() == 0
}

// AddColumn appends name to Columns unless it is already present.
func (t *Table) AddColumn(name string) {
	for _, c := range t.Columns {
		if c == name {
			return
		}
	}
	t.Columns = append(t.Columns, name)
}

// Append concatenates other onto t. Columns are merged in first-seen order
// and records keep their relative order.
func (t *Table) Append(other *Table) {
	if other == nil {
		return
	}
	for _, c := range other.Columns {
		t.AddColumn(c)
	}
	t.Records = append(t.Records, other.Records...)
}

// Stamp sets field to value on every record and registers it as a column.
func (t *Table) Stamp(field, value string) {
	t.AddColumn(field)
	for _, rec := range t.Records {
		rec[field] = value
	}
}

// Concat joins tables in order into a new table.
func Concat(tables ...*Table) *Table {
	out := NewTable()
	for _, t := range tables {
		out.Append(t)
	}
	return out
}
