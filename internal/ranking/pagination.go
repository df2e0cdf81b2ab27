package ranking

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	lastPageSelector = "li.tm-pagination__list-item--icon-last-page a[href]"
	pageLinkSelector = ".tm-pagination__list-item a[href]"
)

// PageCount returns how many pages the ranking table on doc spans. It prefers
// the "last page" control, then the highest numbered page link, and assumes a
// single page when the document has no pagination.
func PageCount(doc *goquery.Document) int {
	if last := doc.Find(lastPageSelector).First(); last.Length() > 0 {
		href, _ := last.Attr("href")
		if n, ok := pageNumber(href); ok {
			return n
		}
	}

	total := 0
	doc.Find(pageLinkSelector).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if n, ok := pageNumber(href); ok && n > total {
			total = n
		}
	})
	if total > 0 {
		return total
	}
	return 1
}

// pageNumber reads the page number from the last path segment of href.
func pageNumber(href string) (int, bool) {
	if i := strings.IndexAny(href, "?#"); i >= 0 {
		href = href[:i]
	}
	seg := href[strings.LastIndex(href, "/")+1:]
	n, err := strconv.Atoi(seg)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
