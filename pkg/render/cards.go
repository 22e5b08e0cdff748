// Package render builds card elements inside the grid container.
package render

import (
	"strconv"

	"golang.org/x/net/html"

	"github.com/gabrielmiguelok/cardgrid/pkg/content"
	"github.com/gabrielmiguelok/cardgrid/pkg/dom"
)

// FooterHint is the static hint shown at the bottom of every card.
const FooterHint = "點一下展開 / 收合"

// Class names written by the renderer.
const (
	ClassCard    = "card"
	ClassHeader  = "card-header"
	ClassTitle   = "card-title"
	ClassTagline = "card-tagline"
	ClassList    = "card-list"
	ClassFooter  = "card-footer"
	ClassHint    = "card-footer-hint"
)

// IndexAttr carries the position of a card in its render pass.
const IndexAttr = "data-index"

// State is the result of one render pass. Cards are in document order.
type State struct {
	Container *html.Node
	Cards     []*html.Node
}

// Len returns the number of rendered cards.
func (s State) Len() int {
	return len(s.Cards)
}

// Cards clears container and appends one card element per record.
func Cards(container *html.Node, cards []content.Card) State {
	dom.Clear(container)

	st := State{Container: container, Cards: make([]*html.Node, 0, len(cards))}
	for i, c := range cards {
		el := Card(c)
		dom.SetAttr(el, IndexAttr, strconv.Itoa(i))
		container.AppendChild(el)
		st.Cards = append(st.Cards, el)
	}
	return st
}

// Card builds the detached element for one record.
func Card(c content.Card) *html.Node {
	article := dom.Element("article", ClassCard)

	header := dom.Element("div", ClassHeader)
	dom.SetText(header, c.Section)

	title := dom.Element("h2", ClassTitle)
	dom.SetText(title, c.Title)

	tagline := dom.Element("p", ClassTagline)
	dom.SetText(tagline, c.Tagline)

	list := dom.Element("ul", ClassList)
	for _, pt := range c.Points {
		li := dom.Element("li", "")
		dom.SetText(li, pt)
		list.AppendChild(li)
	}

	footer := dom.Element("div", ClassFooter)
	id := dom.Element("span", "")
	dom.SetText(id, c.ID)
	hint := dom.Element("span", ClassHint)
	dom.SetText(hint, FooterHint)
	dom.Append(footer, id, hint)

	dom.Append(article, header, title, tagline, list, footer)
	return article
}
