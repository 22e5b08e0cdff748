package theme

import (
	"strings"

	"github.com/gabrielmiguelok/cardgrid/pkg/textutil"
)

// Selectors targeted by each style option key.
const (
	SelectorBody          = "body"
	SelectorPageTitle     = ".page-title"
	SelectorPageSubtitle  = ".page-subtitle"
	SelectorCardSection   = ".card-header"
	SelectorCardTitle     = ".card-title"
	SelectorCardTagline   = ".card-tagline"
	SelectorCardPoint     = ".card-list li"
	SelectorCardContainer = ".card"
)

type property struct {
	name  string
	value func(*Declarations) any
	color bool
	// solid adds border-style:solid after the declaration.
	solid bool
}

var (
	fontSize        = property{name: "font-size", value: func(d *Declarations) any { return d.FontSize }}
	color           = property{name: "color", value: func(d *Declarations) any { return d.Color }, color: true}
	fontFamily      = property{name: "font-family", value: func(d *Declarations) any { return d.FontFamily }}
	backgroundColor = property{name: "background-color", value: func(d *Declarations) any { return d.BackgroundColor }, color: true}
	borderColor     = property{name: "border-color", value: func(d *Declarations) any { return d.BorderColor }, color: true}
	borderWidth     = property{name: "border-width", value: func(d *Declarations) any { return d.BorderWidth }, solid: true}
	borderRadius    = property{name: "border-radius", value: func(d *Declarations) any { return d.BorderRadius }}
	boxShadow       = property{name: "box-shadow", value: func(d *Declarations) any { return d.BoxShadow }}
)

type target struct {
	selector string
	options  func(*StyleOptions) *Declarations
	props    []property
}

var textProps = []property{fontSize, color, fontFamily}

// targets are written in this order.
var targets = []target{
	{SelectorPageTitle, func(s *StyleOptions) *Declarations { return s.PageTitle }, textProps},
	{SelectorPageSubtitle, func(s *StyleOptions) *Declarations { return s.PageSubtitle }, textProps},
	{SelectorCardSection, func(s *StyleOptions) *Declarations { return s.CardSection },
		[]property{fontSize, color, backgroundColor, fontFamily, borderColor, borderWidth}},
	{SelectorCardTitle, func(s *StyleOptions) *Declarations { return s.CardTitle }, textProps},
	{SelectorCardTagline, func(s *StyleOptions) *Declarations { return s.CardTagline }, textProps},
	{SelectorCardPoint, func(s *StyleOptions) *Declarations { return s.CardPoint }, textProps},
	{SelectorCardContainer, func(s *StyleOptions) *Declarations { return s.CardContainer },
		[]property{borderColor, borderWidth, borderRadius, boxShadow}},
}

// Synthesize writes the stylesheet for styles and palette. It returns "" when
// there is nothing to write. The output is compact: selector{prop:value;}.
func Synthesize(styles *StyleOptions, p Palette) string {
	var b strings.Builder

	if bg, ok := p.Lookup(BackgroundToken); ok {
		writeRule(&b, SelectorBody, "background", bg)
	}
	if bg, ok := p.Lookup(CardBackgroundToken); ok {
		writeRule(&b, SelectorCardContainer, "background", bg)
	}

	if styles == nil {
		return b.String()
	}

	for _, t := range targets {
		d := t.options(styles)
		if d == nil {
			continue
		}
		b.WriteString(t.selector)
		b.WriteByte('{')
		for _, prop := range t.props {
			v := prop.value(d)
			if prop.color {
				v = ResolveColor(v, p)
			}
			text, ok := textutil.Stringify(v)
			if !ok {
				continue
			}
			writeDeclaration(&b, prop.name, text)
			if prop.solid {
				writeDeclaration(&b, "border-style", "solid")
			}
		}
		b.WriteByte('}')
	}

	return b.String()
}

func writeRule(b *strings.Builder, selector, prop, value string) {
	b.WriteString(selector)
	b.WriteByte('{')
	writeDeclaration(b, prop, value)
	b.WriteByte('}')
}

func writeDeclaration(b *strings.Builder, prop, value string) {
	b.WriteString(prop)
	b.WriteByte(':')
	b.WriteString(value)
	b.WriteByte(';')
}
