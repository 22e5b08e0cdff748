package textutil

import (
	"testing"
)

func TestExtractURL(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    string
		wantHit bool
	}{
		{"empty", "", "", false},
		{"no url", "公告", "", false},
		{"space separated", "公告 https://example.com/x", "https://example.com/x", true},
		{"fullwidth bar", "公告｜https://example.com/x", "https://example.com/x", true},
		{"plain http", "see http://a.b/c?d=1 now", "http://a.b/c?d=1", true},
		{"first of two", "a https://one.example b https://two.example", "https://one.example", true},
		{"bare scheme", "https:// nothing", "", false},
		{"bare scheme then url", "https:// then http://x.y", "http://x.y", true},
		{"scheme inside word", "xhttps://inner.example", "https://inner.example", true},
		{"ideographic space ends url", "https://a.example　尾", "https://a.example", true},
		{"uppercase scheme ignored", "HTTPS://example.com", "", false},
		{"ftp ignored", "ftp://example.com", "", false},
		{"byte order mark ends url", "https://a.example\uFEFF尾", "https://a.example", true},
		{"next line does not end url", "a https://x.com\u0085b", "https://x.com\u0085b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractURL(tt.text)
			if ok != tt.wantHit {
				t.Errorf("ExtractURL(%q) found = %v, want %v", tt.text, ok, tt.wantHit)
			}
			if got != tt.want {
				t.Errorf("ExtractURL(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestRemoveURLFromText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"empty", "", ""},
		{"no url", "  公告  ", "公告"},
		{"fullwidth bar", "公告｜https://example.com/x", "公告"},
		{"ascii bar", "News | https://example.com", "News"},
		{"colon", "Docs: https://example.com", "Docs"},
		{"fullwidth colon", "文件：https://example.com", "文件"},
		{"hyphen run", "Site - https://example.com", "Site"},
		{"url only", "https://example.com", ""},
		{"leading url", "https://example.com 標題", "標題"},
		{"all urls removed", "a https://x.example b https://y.example", "a  b"},
		{"inner separators kept", "A-B | https://x.example", "A-B"},
		{"byte order mark trimmed", "\uFEFF公告 https://x.example", "公告"},
		{"next line not trimmed", "\u0085公告\u0085", "\u0085公告\u0085"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RemoveURLFromText(tt.text); got != tt.want {
				t.Errorf("RemoveURLFromText(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestCleaner_CustomSeparators(t *testing.T) {
	c := NewCleaner("/")

	if got := c.RemoveURL("Home / https://example.com"); got != "Home" {
		t.Errorf("expected 'Home', got %q", got)
	}

	// "|" is not a separator for this cleaner.
	if got := c.RemoveURL("Home | https://example.com"); got != "Home |" {
		t.Errorf("expected 'Home |', got %q", got)
	}

	if c.Separators() != "/" {
		t.Errorf("expected separators '/', got %q", c.Separators())
	}
}

func TestSplitLabel(t *testing.T) {
	l := SplitLabel("公告｜https://example.com/x")
	if l.Text != "公告" {
		t.Errorf("expected text '公告', got %q", l.Text)
	}
	if l.URL != "https://example.com/x" {
		t.Errorf("expected url, got %q", l.URL)
	}
	if !l.HasURL() {
		t.Error("expected HasURL to be true")
	}

	// Nothing but a URL: the raw text stays visible.
	raw := "https://example.com"
	l = SplitLabel(raw)
	if l.Text != raw {
		t.Errorf("expected raw text fallback %q, got %q", raw, l.Text)
	}

	l = SplitLabel("Plain title")
	if l.HasURL() {
		t.Errorf("expected no url, got %q", l.URL)
	}
}

func TestStringify(t *testing.T) {
	tests := []struct {
		in       any
		want     string
		isTruthy bool
	}{
		{nil, "", false},
		{"", "", false},
		{"x", "x", true},
		{false, "", false},
		{true, "true", true},
		{float64(0), "", false},
		{float64(42), "42", true},
		{float64(1.5), "1.5", true},
		{[]any{"a"}, `["a"]`, true},
	}

	for _, tt := range tests {
		got, ok := Stringify(tt.in)
		if got != tt.want || ok != tt.isTruthy {
			t.Errorf("Stringify(%#v) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.isTruthy)
		}
	}
}
