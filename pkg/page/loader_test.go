package page

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gabrielmiguelok/cardgrid/pkg/content"
	"github.com/gabrielmiguelok/cardgrid/pkg/dom"
	"github.com/gabrielmiguelok/cardgrid/pkg/metrics"
	"github.com/gabrielmiguelok/cardgrid/pkg/textutil"
)

// stubSource parses a fixed body and counts fetches.
type stubSource struct {
	body  string
	err   error
	calls int
}

func (s *stubSource) Fetch(ctx context.Context) (*content.Document, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return content.Parse([]byte(s.body))
}

func (s *stubSource) Location() string { return "stub" }

const announcements = `{
	"meta": {
		"title": "最新公告 ｜ https://example.com/news",
		"subtitle": "https://example.com/only-a-link",
		"colorPalette": {"primary": "#123456", "cardBackground": "#fff"},
		"styles": {"cardTitle": {"color": "@primary"}}
	},
	"cards": [
		{"id": 1, "section": "公告", "title": "A", "points": ["p1"]},
		{"id": 2, "title": "B"}
	]
}`

func TestLoad_Success(t *testing.T) {
	src := &stubSource{body: announcements}
	p := dom.NewPage()

	res, err := NewLoader(src).Load(context.Background(), p, 1024)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if res.State.Len() != 2 {
		t.Errorf("expected 2 cards, got %d", res.State.Len())
	}
	if got := p.Find(dom.TitleSelector).Text(); got != "最新公告" {
		t.Errorf("expected cleaned title, got %q", got)
	}
	if p.Title() != "最新公告" {
		t.Errorf("expected document title to follow page title, got %q", p.Title())
	}
	if href, _ := p.Find(dom.TitleSelector).Attr("data-href"); href != "https://example.com/news" {
		t.Errorf("expected title click target, got %q", href)
	}

	// Nothing but a URL: the raw text is kept.
	if got := p.Find(dom.SubtitleSelector).Text(); got != "https://example.com/only-a-link" {
		t.Errorf("unexpected subtitle %q", got)
	}
	if res.Subtitle.URL != "https://example.com/only-a-link" {
		t.Errorf("unexpected subtitle url %q", res.Subtitle.URL)
	}

	wantCSS := ".card{background:#fff;}.card-title{color:#123456;}"
	if res.Stylesheet != wantCSS {
		t.Errorf("expected stylesheet %q, got %q", wantCSS, res.Stylesheet)
	}
	if styles := p.Styles(); len(styles) != 1 || styles[0] != wantCSS {
		t.Errorf("expected one style element, got %v", styles)
	}

	if res.Accordion.Narrow() {
		t.Error("expected wide viewport")
	}
}

func TestLoad_NarrowViewport(t *testing.T) {
	p := dom.NewPage()
	res, err := NewLoader(&stubSource{body: announcements}).Load(context.Background(), p, 375)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Accordion.Attached() {
		t.Fatal("expected accordion to be attached on a narrow viewport")
	}
	if err := res.Accordion.Click(1); err != nil {
		t.Fatal(err)
	}
	if p.Find("article.card.is-open").Length() != 1 {
		t.Error("expected one open card in the page")
	}
}

func TestLoad_MissingCards(t *testing.T) {
	p := dom.NewPage()
	title, _ := p.QueryOne(dom.TitleSelector)
	dom.SetText(title, "unchanged")

	src := &stubSource{body: `{"meta": {"title": "New"}}`}
	_, err := NewLoader(src).Load(context.Background(), p, 1024)
	if !errors.Is(err, content.ErrMissingCards) {
		t.Fatalf("expected ErrMissingCards, got %v", err)
	}

	grid := p.Find(dom.ContainerSelector)
	if grid.Children().Length() != 1 || grid.Find("p").Text() != ErrorMessage {
		t.Errorf("expected only the error message, got %q", grid.Text())
	}
	if p.Find(dom.TitleSelector).Text() != "unchanged" {
		t.Error("expected title to be left alone on failure")
	}
	if len(p.Styles()) != 0 {
		t.Error("expected no stylesheet on failure")
	}
}

func TestLoad_FetchError(t *testing.T) {
	p := dom.NewPage()
	boom := errors.New("network down")

	_, err := NewLoader(&stubSource{err: boom}).Load(context.Background(), p, 1024)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped fetch error, got %v", err)
	}
	if got := p.Find("#grid > p").Text(); got != ErrorMessage {
		t.Errorf("expected error message, got %q", got)
	}
}

func TestLoad_NoContainer(t *testing.T) {
	p, err := dom.ParsePage(strings.NewReader(`<h1 class="page-title"></h1>`))
	if err != nil {
		t.Fatal(err)
	}
	src := &stubSource{body: announcements}

	if _, err := NewLoader(src).Load(context.Background(), p, 1024); !errors.Is(err, ErrNoContainer) {
		t.Fatalf("expected ErrNoContainer, got %v", err)
	}
	if src.calls != 0 {
		t.Errorf("expected no fetch, got %d", src.calls)
	}
	if p.Find("p").Length() != 0 {
		t.Error("expected no error message")
	}
}

func TestLoad_ReloadReplacesCards(t *testing.T) {
	p := dom.NewPage()
	ld := NewLoader(&stubSource{body: announcements})

	for range 3 {
		if _, err := ld.Load(context.Background(), p, 1024); err != nil {
			t.Fatal(err)
		}
	}
	if n := p.Find("#grid > article.card").Length(); n != 2 {
		t.Errorf("expected 2 cards after reloads, got %d", n)
	}
}

func TestLoad_NoMeta(t *testing.T) {
	p := dom.NewPage()
	res, err := NewLoader(&stubSource{body: `{"cards": [{"title": "x"}]}`}).Load(context.Background(), p, 1024)
	if err != nil {
		t.Fatal(err)
	}
	if res.Stylesheet != "" || len(p.Styles()) != 0 {
		t.Error("expected no stylesheet without meta")
	}
	if p.Title() != "" {
		t.Errorf("expected title untouched, got %q", p.Title())
	}
}

func TestLoad_CustomSeparators(t *testing.T) {
	p := dom.NewPage()
	src := &stubSource{body: `{"meta": {"title": "News / https://x.test"}, "cards": []}`}

	ld := NewLoader(src, WithCleaner(textutil.NewCleaner("/")), WithBreakpoint(900))
	res, err := ld.Load(context.Background(), p, 800)
	if err != nil {
		t.Fatal(err)
	}
	if res.Title.Text != "News" {
		t.Errorf("expected 'News', got %q", res.Title.Text)
	}
	if !res.Accordion.Narrow() {
		t.Error("expected custom breakpoint to make 800px narrow")
	}
}

func TestLoad_Metrics(t *testing.T) {
	m := metrics.New()
	ld := NewLoader(&stubSource{body: announcements}, WithMetrics(m))
	if _, err := ld.Load(context.Background(), dom.NewPage(), 1024); err != nil {
		t.Fatal(err)
	}

	failing := NewLoader(&stubSource{err: errors.New("down")}, WithMetrics(m))
	failing.Load(context.Background(), dom.NewPage(), 1024)

	if m.Loads.Value() != 2 || m.LoadFailures.Value() != 1 {
		t.Errorf("expected 2 loads and 1 failure, got %v and %v", m.Loads.Value(), m.LoadFailures.Value())
	}
}
