// Package dom is an in-memory document model over golang.org/x/net/html:
// fragment parsing, queries, mutation, serialization, and synthetic events
// with capture-order dispatch. It stands in for the browser DOM so
// compiled binding programs run under plain Go tests.
package dom

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is one detached tree plus its listener table. The root element
// is a synthetic container standing in for a shadow root; serialization
// covers its children only.
type Document struct {
	root      *html.Node
	listeners map[*html.Node][]*listener
}

func NewDocument() *Document {
	return &Document{
		root:      &html.Node{Type: html.ElementNode, DataAtom: atom.Div, Data: "div"},
		listeners: map[*html.Node][]*listener{},
	}
}

func (d *Document) Root() *html.Node { return d.root }

// SetContent replaces the document's children with the parsed markup.
func (d *Document) SetContent(markup string) error {
	for c := d.root.FirstChild; c != nil; {
		next := c.NextSibling
		d.root.RemoveChild(c)
		c = next
	}
	nodes, err := ParseFragment(markup)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		d.root.AppendChild(n)
	}
	return nil
}

// HTML serializes the document's content.
func (d *Document) HTML() string {
	return InnerHTML(d.root)
}
