package dom

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var firstTagRe = regexp.MustCompile(`<([a-zA-Z][a-zA-Z0-9-]*)`)

// Some tags only parse inside the right ancestor; fragment parsing in a
// plain div context would silently drop them.
var fragmentContexts = map[string]atom.Atom{
	"tr":       atom.Tbody,
	"td":       atom.Tr,
	"th":       atom.Tr,
	"tbody":    atom.Table,
	"thead":    atom.Table,
	"tfoot":    atom.Table,
	"caption":  atom.Table,
	"colgroup": atom.Table,
	"col":      atom.Colgroup,
	"li":       atom.Ul,
	"option":   atom.Select,
	"optgroup": atom.Select,
}

// ParseFragment parses markup into detached root nodes, picking the
// parsing context from the first tag so table and list fragments survive.
func ParseFragment(markup string) ([]*html.Node, error) {
	a := atom.Div
	if m := firstTagRe.FindStringSubmatch(markup); m != nil {
		if ctx, ok := fragmentContexts[strings.ToLower(m[1])]; ok {
			a = ctx
		}
	}
	ctx := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	return html.ParseFragment(strings.NewReader(markup), ctx)
}

func NewElement(tag string) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: atom.Lookup([]byte(tag)), Data: tag}
}

func NewText(data string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: data}
}

func NewComment(data string) *html.Node {
	return &html.Node{Type: html.CommentNode, Data: data}
}

// Clone deep-copies a subtree; the copy is detached.
func Clone(n *html.Node) *html.Node {
	c := &html.Node{Type: n.Type, DataAtom: n.DataAtom, Data: n.Data, Namespace: n.Namespace}
	if len(n.Attr) > 0 {
		c.Attr = append([]html.Attribute(nil), n.Attr...)
	}
	for k := n.FirstChild; k != nil; k = k.NextSibling {
		c.AppendChild(Clone(k))
	}
	return c
}

// Walk visits the subtree depth-first. Returning false stops the walk.
func Walk(root *html.Node, fn func(*html.Node) bool) bool {
	if !fn(root) {
		return false
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if !Walk(c, fn) {
			return false
		}
	}
	return true
}

// FindByAttr returns the first element in document order carrying the
// attribute value, nil when absent.
func FindByAttr(root *html.Node, key, val string) *html.Node {
	var found *html.Node
	Walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			if v, ok := Attr(n, key); ok && v == val {
				found = n
				return false
			}
		}
		return true
	})
	return found
}

// FindComment returns the first comment node whose data matches exactly.
func FindComment(root *html.Node, data string) *html.Node {
	var found *html.Node
	Walk(root, func(n *html.Node) bool {
		if n.Type == html.CommentNode && n.Data == data {
			found = n
			return false
		}
		return true
	})
	return found
}

func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func SetAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func RemoveAttr(n *html.Node, key string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

// InsertAfter inserts n as the sibling following ref.
func InsertAfter(ref, n *html.Node) {
	ref.Parent.InsertBefore(n, ref.NextSibling)
}

// Remove detaches n from its parent. Detached nodes are a no-op.
func Remove(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// ReplaceWith swaps old for the given nodes, preserving position. The
// replacement nodes must be detached.
func ReplaceWith(old *html.Node, repl ...*html.Node) {
	parent := old.Parent
	for _, n := range repl {
		parent.InsertBefore(n, old)
	}
	parent.RemoveChild(old)
}
