package dom

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Select wraps n in a selection. n does not need to be attached to a page.
func Select(n *html.Node) *goquery.Selection {
	return goquery.NewDocumentFromNode(n).Selection
}

// SetText replaces the children of n with a single text node. s is never
// interpreted as markup.
func SetText(n *html.Node, s string) {
	Clear(n)
	if s == "" {
		return
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: s})
}

// Text returns the combined text of n and its descendants.
func Text(n *html.Node) string {
	return Select(n).Text()
}

// Clear removes every child of n.
func Clear(n *html.Node) {
	Select(n).Empty()
}

// Append attaches children to parent in order.
func Append(parent *html.Node, children ...*html.Node) {
	for _, c := range children {
		parent.AppendChild(c)
	}
}

// Children returns the element children of n.
func Children(n *html.Node) []*html.Node {
	return Select(n).Children().Nodes
}

// AddClass appends class to the class attribute if it is not already present.
func AddClass(n *html.Node, class string) {
	Select(n).AddClass(class)
}

// RemoveClass drops class from the class attribute.
func RemoveClass(n *html.Node, class string) {
	Select(n).RemoveClass(class)
}

// HasClass reports whether the class attribute contains class.
func HasClass(n *html.Node, class string) bool {
	return Select(n).HasClass(class)
}

// SetAttr sets or replaces an attribute.
func SetAttr(n *html.Node, key, val string) {
	Select(n).SetAttr(key, val)
}

// Attr returns an attribute value.
func Attr(n *html.Node, key string) (string, bool) {
	return Select(n).Attr(key)
}

// SetClickTarget marks n as opening url in a new tab when clicked. The live
// client performs the navigation; the page only records the target.
func SetClickTarget(n *html.Node, url string) {
	SetAttr(n, "data-href", url)
	SetAttr(n, "role", "link")
	SetStyleProperty(n, "cursor", "pointer")
}

// ClickTarget returns the url recorded by SetClickTarget.
func ClickTarget(n *html.Node) (string, bool) {
	return Attr(n, "data-href")
}

// SetStyleProperty sets one declaration in the inline style of n, keeping
// the others.
func SetStyleProperty(n *html.Node, prop, value string) {
	current, _ := Attr(n, "style")

	var decls []string
	for _, d := range strings.Split(current, ";") {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		name, _, _ := strings.Cut(d, ":")
		if strings.EqualFold(strings.TrimSpace(name), prop) {
			continue
		}
		decls = append(decls, d)
	}
	decls = append(decls, prop+":"+value)

	SetAttr(n, "style", strings.Join(decls, ";"))
}

// ShowMessage replaces the content of container with one paragraph holding
// msg.
func ShowMessage(container *html.Node, msg string) {
	Clear(container)
	p := Element("p", "")
	SetText(p, msg)
	container.AppendChild(p)
}
