package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Render serializes one node, the node itself included.
func Render(n *html.Node) string {
	var sb strings.Builder
	if err := html.Render(&sb, n); err != nil {
		return ""
	}
	return sb.String()
}

// InnerHTML serializes a node's children.
func InnerHTML(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&sb, c); err != nil {
			return ""
		}
	}
	return sb.String()
}

// TextContent concatenates the subtree's text nodes.
func TextContent(n *html.Node) string {
	var sb strings.Builder
	Walk(n, func(m *html.Node) bool {
		if m.Type == html.TextNode {
			sb.WriteString(m.Data)
		}
		return true
	})
	return sb.String()
}
