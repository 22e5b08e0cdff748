// Package dom holds the in-memory page a session renders into.
//
// A Page is an x/net/html document. Lookups go through goquery; nodes are
// built directly with x/net/html so they can be created before they are
// attached.
package dom

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Well-known selectors of the page shell.
const (
	ContainerSelector = "#grid"
	TitleSelector     = ".page-title"
	SubtitleSelector  = ".page-subtitle"
)

// ErrNoHead is returned by operations that need a <head> the page lacks.
var ErrNoHead = errors.New("page has no head element")

// DefaultShell is the page used when no shell file is configured.
const DefaultShell = `<!DOCTYPE html>
<html lang="zh-Hant">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title></title>
<link rel="stylesheet" href="/_live/cardgrid.css">
</head>
<body>
<header class="page-header">
<h1 class="page-title"></h1>
<p class="page-subtitle"></p>
</header>
<main id="grid" class="grid"></main>
<script src="/_live/cardgrid.js" defer></script>
</body>
</html>
`

// Page is a parsed HTML document. It is not safe for concurrent use.
type Page struct {
	doc *goquery.Document
}

// NewPage returns a page built from DefaultShell.
func NewPage() *Page {
	p, err := ParsePage(strings.NewReader(DefaultShell))
	if err != nil {
		// The shell is a constant; html.Parse only fails on reader errors.
		panic(err)
	}
	return p
}

// ParsePage parses a page shell. Missing html/head/body elements are
// synthesized by the HTML parser, so only read errors are returned.
func ParsePage(r io.Reader) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}
	return &Page{doc: doc}, nil
}

// ParsePageBytes is ParsePage over an in-memory shell.
func ParsePageBytes(shell []byte) (*Page, error) {
	return ParsePage(bytes.NewReader(shell))
}

// Document exposes the goquery document for read-only queries.
func (p *Page) Document() *goquery.Document {
	return p.doc
}

// Find runs a CSS selector against the whole page.
func (p *Page) Find(selector string) *goquery.Selection {
	return p.doc.Find(selector)
}

// QueryOne returns the first node matching selector.
func (p *Page) QueryOne(selector string) (*html.Node, bool) {
	sel := p.doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, false
	}
	return sel.Nodes[0], true
}

// Container returns the grid container.
func (p *Page) Container() (*html.Node, bool) {
	return p.QueryOne(ContainerSelector)
}

// Head returns the <head> element.
func (p *Page) Head() (*html.Node, bool) {
	return p.QueryOne("head")
}

// AppendStyle adds a new <style> element holding css to the head. Every call
// adds another element.
func (p *Page) AppendStyle(css string) (*html.Node, error) {
	head, ok := p.Head()
	if !ok {
		return nil, ErrNoHead
	}
	style := Element("style", "")
	SetAttr(style, "data-cardgrid", "")
	// Style content is raw text; the renderer does not escape it.
	style.AppendChild(&html.Node{Type: html.TextNode, Data: css})
	head.AppendChild(style)
	return style, nil
}

// Styles returns the text of every <style> element in the head, in order.
func (p *Page) Styles() []string {
	var out []string
	p.doc.Find("head style").Each(func(_ int, s *goquery.Selection) {
		out = append(out, s.Text())
	})
	return out
}

// SetTitle sets the document title, creating <title> when missing.
func (p *Page) SetTitle(title string) error {
	n, ok := p.QueryOne("head title")
	if !ok {
		head, ok := p.Head()
		if !ok {
			return ErrNoHead
		}
		n = Element("title", "")
		head.AppendChild(n)
	}
	SetText(n, title)
	return nil
}

// Title returns the document title.
func (p *Page) Title() string {
	return p.doc.Find("head title").First().Text()
}

// Render writes the page markup to w.
func (p *Page) Render(w io.Writer) error {
	return html.Render(w, p.doc.Nodes[0])
}

// HTML returns the page markup.
func (p *Page) HTML() (string, error) {
	var buf bytes.Buffer
	if err := p.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Element returns a detached element. class may be empty.
func Element(tag, class string) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
	if class != "" {
		n.Attr = append(n.Attr, html.Attribute{Key: "class", Val: class})
	}
	return n
}
