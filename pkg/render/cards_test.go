package render

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/gabrielmiguelok/cardgrid/pkg/content"
	"github.com/gabrielmiguelok/cardgrid/pkg/dom"
)

func TestCards_Structure(t *testing.T) {
	page := dom.NewPage()
	grid, _ := page.Container()

	cards := []content.Card{
		{ID: "7", Section: "News", Title: "First", Tagline: "tag", Points: []string{"a", "b"}},
		{Title: "Second"},
	}

	st := Cards(grid, cards)
	if st.Len() != 2 {
		t.Fatalf("expected 2 cards, got %d", st.Len())
	}
	if st.Container != grid {
		t.Error("expected state to reference the container")
	}

	articles := page.Find("#grid > article.card")
	if articles.Length() != 2 {
		t.Fatalf("expected 2 article elements, got %d", articles.Length())
	}

	first := articles.Eq(0)
	checks := map[string]string{
		".card-header":      "News",
		"h2.card-title":     "First",
		"p.card-tagline":    "tag",
		".card-footer span": "7" + FooterHint,
		".card-footer-hint": FooterHint,
	}
	for sel, want := range checks {
		if got := first.Find(sel).Text(); got != want {
			t.Errorf("%s: expected %q, got %q", sel, want, got)
		}
	}

	var points []string
	first.Find("ul.card-list li").Each(func(_ int, s *goquery.Selection) {
		points = append(points, s.Text())
	})
	if strings.Join(points, ",") != "a,b" {
		t.Errorf("expected points a,b, got %v", points)
	}

	second := articles.Eq(1)
	if second.Find(".card-header").Text() != "" || second.Find(".card-footer span").First().Text() != "" {
		t.Error("expected absent fields to render empty")
	}
	if second.Find("ul.card-list li").Length() != 0 {
		t.Error("expected an empty list")
	}
	if idx, _ := second.Attr(IndexAttr); idx != "1" {
		t.Errorf("expected index 1, got %q", idx)
	}
}

func TestCards_PartOrder(t *testing.T) {
	el := Card(content.Card{Title: "x"})

	var classes []string
	for _, c := range dom.Children(el) {
		v, _ := dom.Attr(c, "class")
		classes = append(classes, c.Data+"."+v)
	}

	want := "div.card-header h2.card-title p.card-tagline ul.card-list div.card-footer"
	if got := strings.Join(classes, " "); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestCards_RerenderReplaces(t *testing.T) {
	page := dom.NewPage()
	grid, _ := page.Container()
	dom.ShowMessage(grid, "stale")

	cards := []content.Card{{Title: "a"}, {Title: "b"}, {Title: "c"}}
	Cards(grid, cards)
	st := Cards(grid, cards)

	if n := len(dom.Children(grid)); n != 3 {
		t.Errorf("expected 3 children after re-render, got %d", n)
	}
	if st.Len() != 3 {
		t.Errorf("expected 3 cards in state, got %d", st.Len())
	}
	if page.Find("#grid > p").Length() != 0 {
		t.Error("expected previous content to be removed")
	}
}

func TestCards_Empty(t *testing.T) {
	page := dom.NewPage()
	grid, _ := page.Container()

	st := Cards(grid, nil)
	if st.Len() != 0 || grid.FirstChild != nil {
		t.Error("expected an empty container")
	}
}

func TestCards_TextOnly(t *testing.T) {
	page := dom.NewPage()
	grid, _ := page.Container()

	Cards(grid, []content.Card{{Title: "<script>alert(1)</script>", Points: []string{"<i>x</i>"}}})

	if page.Find("#grid script, #grid i").Length() != 0 {
		t.Error("expected record fields to render as text")
	}
	if got := page.Find(".card-title").Text(); got != "<script>alert(1)</script>" {
		t.Errorf("unexpected title text %q", got)
	}
}
