package extract

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
)

// Node is a single element returned by a Document query.
type Node interface {
	Attr(name string) (string, bool)
	Text() string
}

// Document is the read-only page capability the extractor works against.
type Document interface {
	// Title returns the document title.
	Title() string
	// Find returns the elements matching sel in document order.
	Find(sel cascadia.Selector) []Node
	// Text returns the visible body text.
	Text() string
}

// hiddenSelector matches elements whose text is never rendered.
var hiddenSelector = cascadia.MustCompile("script, style, noscript, template")

// HTMLDocument is a Document over a parsed HTML tree.
type HTMLDocument struct {
	doc  *goquery.Document
	text string
}

// NewHTMLDocument parses r as HTML.
func NewHTMLDocument(r io.Reader) (*HTMLDocument, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, eris.Wrap(err, "extract: parse html")
	}
	return newHTMLDocument(doc), nil
}

// ParseHTML parses an HTML string.
func ParseHTML(s string) (*HTMLDocument, error) {
	return NewHTMLDocument(strings.NewReader(s))
}

func newHTMLDocument(doc *goquery.Document) *HTMLDocument {
	return &HTMLDocument{doc: doc, text: visibleText(doc.Find("body"))}
}

// Title returns the text of the first <title> element.
func (d *HTMLDocument) Title() string {
	return strings.TrimSpace(d.doc.Find("title").First().Text())
}

// Find returns the elements matching sel in document order.
func (d *HTMLDocument) Find(sel cascadia.Selector) []Node {
	var nodes []Node
	d.doc.FindMatcher(sel).Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, selectionNode{s})
	})
	return nodes
}

// Text returns the visible body text with hidden elements removed.
func (d *HTMLDocument) Text() string {
	return d.text
}

type selectionNode struct {
	s *goquery.Selection
}

func (n selectionNode) Attr(name string) (string, bool) {
	return n.s.Attr(name)
}

func (n selectionNode) Text() string {
	return visibleText(n.s)
}

// visibleText concatenates the text nodes under s, skipping hidden elements
// and separating block boundaries with a newline so adjacent tokens (an
// email in one cell, a phone in the next) are not glued together.
func visibleText(s *goquery.Selection) string {
	var b strings.Builder
	for _, n := range s.Nodes {
		walkText(n, &b)
	}
	return collapseSpace(b.String())
}

func walkText(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		if hiddenSelector.Match(n) {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkText(c, b)
	}
	if n.Type == html.ElementNode && isBlock(n.Data) {
		b.WriteByte('\n')
	}
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "br", "li", "tr", "td", "th", "h1", "h2", "h3", "h4", "h5", "h6",
		"section", "article", "header", "footer", "nav", "address", "table", "ul", "ol":
		return true
	}
	return false
}

// collapseSpace trims each line and drops blank ones.
func collapseSpace(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
