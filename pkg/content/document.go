// Package content decodes the card content document.
package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/gabrielmiguelok/cardgrid/pkg/textutil"
	"github.com/gabrielmiguelok/cardgrid/pkg/theme"
)

// DefaultName is the well-known file name of the content document.
const DefaultName = "content.json"

// MaxDocumentSize bounds how much of a response is read.
const MaxDocumentSize = 8 << 20

// Document errors. Any of them rejects the whole document.
var (
	ErrMalformed    = errors.New("content document is not valid JSON")
	ErrMissingCards = errors.New("content document has no cards array")
	ErrTooLarge     = errors.New("content document too large")
)

// Document is the parsed content document. It is not modified after Decode.
type Document struct {
	Meta  *Meta
	Cards []Card
}

// Meta holds the optional page-level settings.
type Meta struct {
	// Title and Subtitle are nil unless the document gives them as strings.
	Title    *string
	Subtitle *string

	ColorPalette theme.Palette
	Styles       *theme.StyleOptions
}

// Palette returns the color palette, never nil.
func (d *Document) Palette() theme.Palette {
	if d.Meta == nil || d.Meta.ColorPalette == nil {
		return theme.Palette{}
	}
	return d.Meta.ColorPalette
}

// Card is one card record. Absent fields are empty strings.
type Card struct {
	ID      string
	Section string
	Title   string
	Tagline string
	Points  []string
}

// Decode reads and parses a content document.
func Decode(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading content document: %w", err)
	}
	if len(data) > MaxDocumentSize {
		return nil, ErrTooLarge
	}
	return Parse(data)
}

// Parse parses a content document held in memory.
func Parse(data []byte) (*Document, error) {
	if !json.Valid(data) {
		return nil, ErrMalformed
	}

	var root map[string]json.RawMessage
	if err := json.Unmarshal(data, &root); err != nil {
		// Valid JSON that is not an object has no cards.
		return nil, ErrMissingCards
	}

	rawCards, ok := root["cards"]
	if !ok || !isKind(rawCards, '[') {
		return nil, ErrMissingCards
	}

	var items []json.RawMessage
	if err := json.Unmarshal(rawCards, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingCards, err)
	}

	doc := &Document{Cards: make([]Card, 0, len(items))}
	for _, item := range items {
		doc.Cards = append(doc.Cards, decodeCard(item))
	}

	if rawMeta, ok := root["meta"]; ok && isKind(rawMeta, '{') {
		doc.Meta = decodeMeta(rawMeta)
	}

	return doc, nil
}

func isKind(raw json.RawMessage, open byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == open
}

func decodeMeta(raw json.RawMessage) *Meta {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}

	m := &Meta{}
	m.Title = stringField(fields["title"])
	m.Subtitle = stringField(fields["subtitle"])

	if p, ok := fields["colorPalette"]; ok && isKind(p, '{') {
		var values map[string]any
		if err := json.Unmarshal(p, &values); err == nil {
			m.ColorPalette = make(theme.Palette, len(values))
			for k, v := range values {
				if s, ok := textutil.Stringify(v); ok {
					m.ColorPalette[k] = s
				}
			}
		}
	}

	if s, ok := fields["styles"]; ok && isKind(s, '{') {
		var styles theme.StyleOptions
		if err := json.Unmarshal(s, &styles); err == nil {
			m.Styles = &styles
		}
	}

	return m
}

// stringField returns the value only when raw is a JSON string.
func stringField(raw json.RawMessage) *string {
	if !isKind(raw, '"') {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return &s
}

// decodeCard never fails: anything that is not an object is a card with all
// fields absent.
func decodeCard(raw json.RawMessage) Card {
	var fields map[string]any
	if !isKind(raw, '{') || json.Unmarshal(raw, &fields) != nil {
		return Card{}
	}

	c := Card{
		ID:      text(fields["id"]),
		Section: text(fields["section"]),
		Title:   text(fields["title"]),
		Tagline: text(fields["tagline"]),
	}

	if points, ok := fields["points"].([]any); ok {
		c.Points = make([]string, 0, len(points))
		for _, pt := range points {
			c.Points = append(c.Points, pointText(pt))
		}
	}

	return c
}

func text(v any) string {
	s, _ := textutil.Stringify(v)
	return s
}

// pointText differs from text only in that falsy numbers and booleans are
// still shown: a point is written as-is, not tested for presence.
func pointText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case bool:
		if val {
			return "true"
		}
		return "false"
	case float64:
		if val == 0 {
			return "0"
		}
	}
	return text(v)
}
