package ranking

import (
	"testing"

	"github.com/FranksOps/rankwatch/internal/sitetest"
)

func TestPageCount(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   int
	}{
		{
			name:   "last page control",
			markup: sitetest.Page("2020-01-01", nil, 8, true),
			want:   8,
		},
		{
			name:   "max of page links",
			markup: sitetest.Page("2020-01-01", nil, 2, false),
			want:   2,
		},
		{
			name:   "no pagination",
			markup: sitetest.Page("2020-01-01", nil, 1, false),
			want:   1,
		},
		{
			name: "last control without number falls back to links",
			markup: `<ul>
<li class="tm-pagination__list-item"><a href="/x/page/3">3</a></li>
<li class="tm-pagination__list-item"><a href="/x/page/4?foo=1">4</a></li>
<li class="tm-pagination__list-item"><a href="/x/page/next">next</a></li>
<li class="tm-pagination__list-item tm-pagination__list-item--icon-last-page"><a href="/x/page/last">last</a></li>
</ul>`,
			want: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PageCount(mustDoc(t, tt.markup)); got != tt.want {
				t.Errorf("PageCount() = %d, want %d", got, tt.want)
			}
		})
	}
}
