package ranking

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	tableSelector = "table.items"

	previousPositionPrefix = "Previous position:"
	upClass                = "green-arrow-ten"
	downClass              = "red-arrow-ten"
)

// column decodes one positional cell of every row into a record.
type column struct {
	fields []string
	decode func(cell *goquery.Selection, rec Record)
}

// headerFields maps lowercased header labels to canonical field names.
var headerFields = map[string]string{
	"#":             FieldRank,
	"nation":        FieldNation,
	"confederation": FieldConfederation,
	"points":        FieldPoints,
}

// FieldName normalizes a header label to its canonical field name. Unknown
// labels are lowercased and used as is.
func FieldName(header string) string {
	lower := strings.ToLower(strings.TrimSpace(header))
	if f, ok := headerFields[lower]; ok {
		return f
	}
	return lower
}

// newColumn picks the decoding strategy for a canonical field name. It
// returns nil for an empty name; such columns are skipped.
func newColumn(name string) *column {
	switch name {
	case "":
		return nil
	case FieldRank:
		return &column{
			fields: []string{FieldRank, FieldPreviousPosition, FieldTrend},
			decode: decodeRank,
		}
	case FieldNation:
		return &column{
			fields: []string{FieldNation, FieldNationURL, FieldFlagURL, FieldNationFullName},
			decode: decodeNation,
		}
	default:
		return &column{
			fields: []string{name},
			decode: func(cell *goquery.Selection, rec Record) {
				rec[name] = strings.TrimSpace(cell.Text())
			},
		}
	}
}

// ExtractTable decodes the ranking table of a page. The boolean is false when
// the page has no ranking table at all; a table with no body rows is returned
// as an empty, non-nil table.
func ExtractTable(doc *goquery.Document) (*Table, bool) {
	table := doc.Find(tableSelector).First()
	if table.Length() == 0 {
		return nil, false
	}

	// Header order is captured once and reused for every row.
	var columns []*column
	table.ChildrenFiltered("thead").Find("th").Each(func(_ int, th *goquery.Selection) {
		columns = append(columns, newColumn(FieldName(th.Text())))
	})

	out := NewTable()
	for _, col := range columns {
		if col == nil {
			continue
		}
		for _, f := range col.fields {
			out.AddColumn(f)
		}
	}

	table.ChildrenFiltered("tbody").ChildrenFiltered("tr").Each(func(_ int, tr *goquery.Selection) {
		rec := Record{}
		tr.ChildrenFiltered("td").Each(func(i int, td *goquery.Selection) {
			if i >= len(columns) || columns[i] == nil {
				return
			}
			columns[i].decode(td, rec)
		})
		out.Records = append(out.Records, rec)
	})

	return out, true
}

// decodeRank reads the rank number, the previous position and the trend
// arrow. Each part is looked up independently of the others.
func decodeRank(cell *goquery.Selection, rec Record) {
	if tokens := strings.Fields(cell.Text()); len(tokens) > 0 {
		rec[FieldRank] = tokens[0]
	}

	rec[FieldTrend] = TrendStable

	marker := cell.Find("span[title]").First()
	if marker.Length() == 0 {
		marker = cell.Find("span").First()
	}
	if marker.Length() == 0 {
		return
	}

	if title, ok := marker.Attr("title"); ok && strings.Contains(title, previousPositionPrefix) {
		rec[FieldPreviousPosition] = strings.TrimSpace(strings.ReplaceAll(title, previousPositionPrefix, ""))
	}

	switch {
	case marker.HasClass(upClass):
		rec[FieldTrend] = TrendUp
	case marker.HasClass(downClass):
		rec[FieldTrend] = TrendDown
	}
}

// decodeNation reads the nation link and the flag image.
func decodeNation(cell *goquery.Selection, rec Record) {
	if link := cell.Find("a").First(); link.Length() > 0 {
		rec[FieldNation] = strings.TrimSpace(link.Text())
		if href, ok := link.Attr("href"); ok {
			rec[FieldNationURL] = href
		}
	}

	if img := cell.Find("img").First(); img.Length() > 0 {
		if src, ok := img.Attr("src"); ok {
			rec[FieldFlagURL] = src
		}
		if title, ok := img.Attr("title"); ok {
			rec[FieldNationFullName] = title
		}
	}
}
