package ranking

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SnapshotIDs lists the ranking dates offered by the date selector on a
// landing page, in document order. When the page has no "datum" selector the
// first select element is used; with no select at all the result is empty.
func SnapshotIDs(doc *goquery.Document) []string {
	sel := doc.Find(`select[name="datum"]`).First()
	if sel.Length() == 0 {
		sel = doc.Find("select").First()
	}
	if sel.Length() == 0 {
		return nil
	}

	var ids []string
	sel.Find("option").Each(func(_ int, opt *goquery.Selection) {
		v, ok := opt.Attr("value")
		if !ok {
			// An option without a value submits its text.
			v = opt.Text()
		}
		if v = strings.TrimSpace(v); v != "" {
			ids = append(ids, v)
		}
	})
	return ids
}
