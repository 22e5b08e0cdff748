// Package textutil pulls links out of display labels.
//
// A label such as "公告｜https://example.com/x" carries both the text shown to
// the reader and the target opened when the label is clicked. ExtractURL and
// RemoveURLFromText are two independent passes over the same input; callers
// that need both must call both.
package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultSeparators are the punctuation runes trimmed from the end of a label
// after its URL has been removed. Whitespace is always trimmed as well.
const DefaultSeparators = "｜|:：-"

// schemes are tried in order at every candidate position.
var schemes = [...]string{"https://", "http://"}

// isURLSpace reports whether r terminates a URL. The class is Unicode
// whitespace plus the byte order mark, less NEL (U+0085).
func isURLSpace(r rune) bool {
	return r != '\u0085' && (unicode.IsSpace(r) || r == '\uFEFF')
}

// nextURL returns the byte span [start, end) of the first URL in s at or after
// from. A URL is a scheme followed by one or more non-space runes. It returns
// -1, -1 when there is none.
func nextURL(s string, from int) (int, int) {
	for i := from; i < len(s); i++ {
		if s[i] != 'h' {
			continue
		}
		n := schemeLen(s[i:])
		if n == 0 {
			continue
		}
		end := i + n
		for end < len(s) {
			r, size := utf8.DecodeRuneInString(s[end:])
			if isURLSpace(r) {
				break
			}
			end += size
		}
		if end == i+n {
			continue
		}
		return i, end
	}
	return -1, -1
}

func schemeLen(s string) int {
	for _, scheme := range schemes {
		if strings.HasPrefix(s, scheme) {
			return len(scheme)
		}
	}
	return 0
}

// ExtractURL returns the first http or https URL in text.
func ExtractURL(text string) (string, bool) {
	start, end := nextURL(text, 0)
	if start < 0 {
		return "", false
	}
	return text[start:end], true
}

// Cleaner strips URLs from labels and trims the separators left behind.
type Cleaner struct {
	separators string
}

// NewCleaner returns a Cleaner that trims the given separator runes (plus
// whitespace) from the end of a label.
func NewCleaner(separators string) Cleaner {
	return Cleaner{separators: separators}
}

// Separators returns the configured separator runes.
func (c Cleaner) Separators() string {
	return c.separators
}

func (c Cleaner) isSeparator(r rune) bool {
	return isURLSpace(r) || strings.ContainsRune(c.separators, r)
}

// RemoveURL removes every URL from text, then the trailing run of separators,
// then surrounding whitespace.
func (c Cleaner) RemoveURL(text string) string {
	if text == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text))
	pos := 0
	for {
		start, end := nextURL(text, pos)
		if start < 0 {
			break
		}
		b.WriteString(text[pos:start])
		pos = end
	}
	b.WriteString(text[pos:])

	cleaned := strings.TrimRightFunc(b.String(), c.isSeparator)
	return strings.TrimFunc(cleaned, isURLSpace)
}

// Label is a display string together with the link embedded in it.
type Label struct {
	Text string
	URL  string
}

// HasURL reports whether the label carries a link.
func (l Label) HasURL() bool {
	return l.URL != ""
}

// Split runs both passes over raw. When nothing but a URL and separators
// remain, the raw text is kept as the display text.
func (c Cleaner) Split(raw string) Label {
	url, _ := ExtractURL(raw)
	text := c.RemoveURL(raw)
	if text == "" {
		text = raw
	}
	return Label{Text: text, URL: url}
}

var defaultCleaner = NewCleaner(DefaultSeparators)

// DefaultCleaner returns the Cleaner that trims DefaultSeparators.
func DefaultCleaner() Cleaner {
	return defaultCleaner
}

// RemoveURLFromText removes all URLs from text using DefaultSeparators.
func RemoveURLFromText(text string) string {
	return defaultCleaner.RemoveURL(text)
}

// SplitLabel splits raw using DefaultSeparators.
func SplitLabel(raw string) Label {
	return defaultCleaner.Split(raw)
}
