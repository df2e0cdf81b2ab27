// Package sitetest serves a fake world ranking site for tests.
package sitetest

import (
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
)

// BasePath is the path prefix of the fake statistics section.
const BasePath = "/statistik/weltrangliste/statistik/stat"

// Row is one rendered ranking row.
type Row struct {
	Rank     int
	Previous int // 0 renders no previous position title
	Arrow    string
	Nation   string
	FullName string
	Confed   string
	Points   string
}

// NewRow returns a row with plausible values for rank.
func NewRow(rank int) Row {
	return Row{
		Rank:     rank,
		Previous: rank + 1,
		Arrow:    "green-arrow-ten",
		Nation:   "Nation " + strconv.Itoa(rank),
		FullName: "Republic of Nation " + strconv.Itoa(rank),
		Confed:   "UEFA",
		Points:   strconv.Itoa(2000-rank) + ".15",
	}
}

// Rows returns n rows ranked from start.
func Rows(start, n int) []Row {
	rows := make([]Row, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, NewRow(start+i))
	}
	return rows
}

// NationHref is the link rendered in the nation cell of r.
func (r Row) NationHref() string {
	return "/nation/startseite/verein/" + strconv.Itoa(r.Rank)
}

// FlagSrc is the image rendered in the nation cell of r.
func (r Row) FlagSrc() string {
	return "https://img.example/flagge/" + strconv.Itoa(r.Rank) + ".png"
}

// Landing renders a landing page with a date selector listing ids.
func Landing(ids []string) string {
	var b strings.Builder
	b.WriteString(`<html><body><form><select name="datum">`)
	for _, id := range ids {
		fmt.Fprintf(&b, `<option value="%s">%s</option>`, html.EscapeString(id), html.EscapeString(id))
	}
	b.WriteString(`</select></form></body></html>`)
	return b.String()
}

// Page renders one table page. pages > 1 renders a pagination control; when
// lastControl is set it includes the "last page" item.
func Page(snapshot string, rows []Row, pages int, lastControl bool) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="responsive-table"><table class="items">`)
	b.WriteString(`<thead><tr><th>#</th><th>Nation</th><th>Confederation</th><th>Points</th></tr></thead><tbody>`)
	for _, r := range rows {
		b.WriteString(`<tr><td class="zentriert">`)
		b.WriteString(strconv.Itoa(r.Rank))
		if r.Arrow != "" || r.Previous > 0 {
			title := ""
			if r.Previous > 0 {
				title = ` title="Previous position: ` + strconv.Itoa(r.Previous) + `"`
			}
			fmt.Fprintf(&b, ` <span class="%s"%s></span>`, r.Arrow, title)
		}
		b.WriteString(`</td><td class="hauptlink">`)
		fmt.Fprintf(&b, `<img src="%s" title="%s" class="flaggenrahmen"> <a href="%s">%s</a>`,
			r.FlagSrc(), html.EscapeString(r.FullName), r.NationHref(), html.EscapeString(r.Nation))
		fmt.Fprintf(&b, `</td><td>%s</td><td class="zentriert">%s</td></tr>`,
			html.EscapeString(r.Confed), html.EscapeString(r.Points))
	}
	b.WriteString(`</tbody></table></div>`)
	if pages > 1 {
		b.WriteString(`<ul class="tm-pagination">`)
		for i := 1; i <= pages; i++ {
			fmt.Fprintf(&b, `<li class="tm-pagination__list-item"><a href="%s">%d</a></li>`, PagePath(snapshot, i), i)
		}
		if lastControl {
			fmt.Fprintf(&b, `<li class="tm-pagination__list-item tm-pagination__list-item--icon-last-page"><a href="%s">&raquo;</a></li>`, PagePath(snapshot, pages))
		}
		b.WriteString(`</ul>`)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

// SnapshotPath is the first page path of a snapshot.
func SnapshotPath(snapshot string) string {
	return BasePath + "/datum/" + snapshot
}

// PagePath is the path of page n of a snapshot.
func PagePath(snapshot string, n int) string {
	return SnapshotPath(snapshot) + "/plus/0/galerie/0/page/" + strconv.Itoa(n)
}

// Site is an httptest server rendering a landing page and paged snapshots.
type Site struct {
	*httptest.Server

	// LandingHTML overrides the rendered landing page when non-empty.
	LandingHTML string
	// PerPage is the number of rows per page, 25 if zero.
	PerPage int
	// FailPages answers these paths with 500.
	FailPages map[string]bool

	mu        sync.Mutex
	ids       []string
	snapshots map[string][]Row
	hits      map[string]int
}

// NewSite starts a site serving the given snapshots in ids order.
func NewSite(ids []string, snapshots map[string][]Row) *Site {
	s := &Site{
		ids:       ids,
		snapshots: snapshots,
		FailPages: map[string]bool{},
		hits:      map[string]int{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// BaseURL is the statistics base URL of the site.
func (s *Site) BaseURL() string {
	return s.URL + BasePath
}

// LandingURL is the landing page URL of the site.
func (s *Site) LandingURL() string {
	return s.BaseURL() + "/plus/0/galerie/0?datum=1994-03-15"
}

// Publish adds a snapshot, making it visible on the landing page.
func (s *Site) Publish(id string, rows []Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, id)
	s.snapshots[id] = rows
}

// SetFailing toggles whether path is answered with 500 while the site runs.
func (s *Site) SetFailing(path string, fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FailPages[path] = fail
}

// Hits returns how often path was requested.
func (s *Site) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// SnapshotHits returns the number of requests made under any snapshot path.
func (s *Site) SnapshotHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for p, c := range s.hits {
		if strings.HasPrefix(p, BasePath+"/datum/") {
			n += c
		}
	}
	return n
}

func (s *Site) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	fail := s.FailPages[r.URL.Path]
	landing := s.LandingHTML
	ids := append([]string(nil), s.ids...)
	s.mu.Unlock()

	if fail {
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	path := r.URL.Path
	if path == BasePath+"/plus/0/galerie/0" {
		if landing == "" {
			landing = Landing(ids)
		}
		_, _ = w.Write([]byte(landing))
		return
	}

	rest, ok := strings.CutPrefix(path, BasePath+"/datum/")
	if !ok {
		http.NotFound(w, r)
		return
	}

	id, pageStr, paged := strings.Cut(rest, "/plus/0/galerie/0/page/")
	page := 1
	if paged {
		n, err := strconv.Atoi(pageStr)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		page = n
	}

	s.mu.Lock()
	rows, known := s.snapshots[id]
	perPage := s.PerPage
	s.mu.Unlock()
	if !known {
		http.NotFound(w, r)
		return
	}
	if perPage <= 0 {
		perPage = 25
	}

	pages := (len(rows) + perPage - 1) / perPage
	if pages == 0 {
		pages = 1
	}
	from := (page - 1) * perPage
	to := from + perPage
	if from > len(rows) {
		from = len(rows)
	}
	if to > len(rows) {
		to = len(rows)
	}
	_, _ = w.Write([]byte(Page(id, rows[from:to], pages, pages > 2)))
}
