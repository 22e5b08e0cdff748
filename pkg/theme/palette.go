// Package theme turns palette tokens and style options into a stylesheet.
package theme

import "strings"

// TokenPrefix marks a color value as a palette reference.
const TokenPrefix = "@"

// Well-known palette entries that produce global rules.
const (
	BackgroundToken     = "background"
	CardBackgroundToken = "cardBackground"
)

// Palette maps token names (without the "@" prefix) to concrete colors.
type Palette map[string]string

// Lookup returns the color for token when it is set and non-empty.
func (p Palette) Lookup(token string) (string, bool) {
	if p == nil {
		return "", false
	}
	v, ok := p[token]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// ResolveColor resolves a palette reference. Non-string values are returned
// unchanged. A token missing from the palette resolves to the original value,
// "@" included, so the marker stays visible in the output.
func ResolveColor(value any, p Palette) any {
	s, ok := value.(string)
	if !ok {
		return value
	}
	return ResolveColorString(s, p)
}

// ResolveColorString is ResolveColor for values already known to be strings.
func ResolveColorString(value string, p Palette) string {
	token, ok := strings.CutPrefix(value, TokenPrefix)
	if !ok {
		return value
	}
	if color, ok := p.Lookup(token); ok {
		return color
	}
	return value
}
