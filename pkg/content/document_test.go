package content

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gabrielmiguelok/cardgrid/pkg/retry"
)

const sampleDocument = `{
	"meta": {
		"title": "公告｜https://example.com/news",
		"subtitle": 7,
		"colorPalette": {"primary": "#112233", "background": "#fafafa", "unused": 0},
		"styles": {"pageTitle": {"color": "@primary"}}
	},
	"cards": [
		{"id": 1, "title": "A"},
		{"id": "b-2", "title": "B", "points": ["x", "y"]},
		{"section": "S", "tagline": "T", "points": "not a list"}
	]
}`

func TestParse_Document(t *testing.T) {
	doc, err := Parse([]byte(sampleDocument))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(doc.Cards) != 3 {
		t.Fatalf("expected 3 cards, got %d", len(doc.Cards))
	}

	first := doc.Cards[0]
	if first.ID != "1" || first.Title != "A" {
		t.Errorf("unexpected first card: %+v", first)
	}
	if len(first.Points) != 0 {
		t.Errorf("expected no points, got %v", first.Points)
	}

	second := doc.Cards[1]
	if second.ID != "b-2" {
		t.Errorf("expected id 'b-2', got %q", second.ID)
	}
	if len(second.Points) != 2 || second.Points[0] != "x" || second.Points[1] != "y" {
		t.Errorf("expected points [x y], got %v", second.Points)
	}

	third := doc.Cards[2]
	if third.Section != "S" || third.Tagline != "T" || third.ID != "" {
		t.Errorf("unexpected third card: %+v", third)
	}
	if third.Points != nil {
		t.Errorf("expected non-array points to be dropped, got %v", third.Points)
	}

	if doc.Meta == nil || doc.Meta.Title == nil {
		t.Fatal("expected meta title")
	}
	if *doc.Meta.Title != "公告｜https://example.com/news" {
		t.Errorf("unexpected title %q", *doc.Meta.Title)
	}
	if doc.Meta.Subtitle != nil {
		t.Error("expected non-string subtitle to be ignored")
	}
	if doc.Palette()["primary"] != "#112233" {
		t.Errorf("unexpected palette %v", doc.Palette())
	}
	if _, ok := doc.Palette()["unused"]; ok {
		t.Error("expected falsy palette entry to be dropped")
	}
	if doc.Meta.Styles == nil || doc.Meta.Styles.PageTitle == nil {
		t.Error("expected pageTitle style")
	}
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"not json", `{"cards": [`, ErrMalformed},
		{"no cards", `{"meta": {"title": "x"}}`, ErrMissingCards},
		{"cards object", `{"cards": {"0": {}}}`, ErrMissingCards},
		{"cards string", `{"cards": "[]"}`, ErrMissingCards},
		{"cards null", `{"cards": null}`, ErrMissingCards},
		{"root array", `[{"cards": []}]`, ErrMissingCards},
		{"root null", `null`, ErrMissingCards},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse([]byte(tt.data))
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if doc != nil {
				t.Error("expected no document on error")
			}
		})
	}
}

func TestParse_EmptyCards(t *testing.T) {
	doc, err := Parse([]byte(`{"cards": []}`))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(doc.Cards) != 0 {
		t.Errorf("expected no cards, got %d", len(doc.Cards))
	}
	if doc.Meta != nil {
		t.Error("expected nil meta")
	}
	if doc.Palette() == nil {
		t.Error("expected non-nil empty palette")
	}
}

func TestParse_NonObjectCard(t *testing.T) {
	doc, err := Parse([]byte(`{"cards": [null, 3, {"title": "ok"}]}`))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(doc.Cards) != 3 {
		t.Fatalf("expected 3 cards, got %d", len(doc.Cards))
	}
	if doc.Cards[0].Title != "" || doc.Cards[2].Title != "ok" {
		t.Errorf("unexpected cards %+v", doc.Cards)
	}
}

func TestParse_PointValues(t *testing.T) {
	doc, err := Parse([]byte(`{"cards": [{"points": ["a", 0, 2.5, false, null]}]}`))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	want := []string{"a", "0", "2.5", "false", ""}
	got := doc.Cards[0].Points
	if len(got) != len(want) {
		t.Fatalf("expected %d points, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("point %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestDecode_TooLarge(t *testing.T) {
	big := strings.NewReader(`{"cards": []}` + strings.Repeat(" ", MaxDocumentSize))
	if _, err := Decode(big); !errors.Is(err, ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultName)
	if err := os.WriteFile(path, []byte(sampleDocument), 0o644); err != nil {
		t.Fatal(err)
	}

	src := NewSource(path, 0)
	if src.Location() != path {
		t.Errorf("expected location %q, got %q", path, src.Location())
	}

	doc, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(doc.Cards) != 3 {
		t.Errorf("expected 3 cards, got %d", len(doc.Cards))
	}

	missing := FileSource{Path: filepath.Join(dir, "missing.json")}
	if _, err := missing.Fetch(context.Background()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/" + DefaultName:
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(sampleDocument))
		case "/broken.json":
			w.Write([]byte(`{"cards": 1}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()

	doc, err := NewSource(srv.URL+"/"+DefaultName, 0).Fetch(ctx)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(doc.Cards) != 3 {
		t.Errorf("expected 3 cards, got %d", len(doc.Cards))
	}

	if _, err := NewSource(srv.URL+"/missing.json", 0).Fetch(ctx); !errors.Is(err, ErrStatus) {
		t.Errorf("expected ErrStatus, got %v", err)
	}

	if _, err := NewSource(srv.URL+"/broken.json", 0).Fetch(ctx); !errors.Is(err, ErrMissingCards) {
		t.Errorf("expected ErrMissingCards, got %v", err)
	}
}

func TestHTTPSource_Retry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/flaky.json":
			if calls.Add(1) < 3 {
				http.Error(w, "busy", http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte(sampleDocument))
		case "/broken.json":
			calls.Add(1)
			w.Write([]byte(`not json`))
		default:
			calls.Add(1)
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	fast := &retry.Config{MaxRetries: 3, InitialDelay: time.Millisecond, Multiplier: 1}
	ctx := context.Background()

	doc, err := NewSource(srv.URL+"/flaky.json", 0, WithRetry(fast)).Fetch(ctx)
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if len(doc.Cards) != 3 || calls.Load() != 3 {
		t.Errorf("expected 3 cards after 3 calls, got %d cards, %d calls", len(doc.Cards), calls.Load())
	}

	for _, path := range []string{"/missing.json", "/broken.json"} {
		calls.Store(0)
		if _, err := NewSource(srv.URL+path, 0, WithRetry(fast)).Fetch(ctx); err == nil {
			t.Errorf("%s: expected error", path)
		}
		if n := calls.Load(); n != 1 {
			t.Errorf("%s: permanent failures must not be retried, got %d calls", path, n)
		}
	}
}
