package template

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/loomkit/loom/expr"
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

func fragmentContext(markup string) *html.Node {
	a := atom.Div
	if m := firstTagRe.FindStringSubmatch(markup); m != nil {
		if ctx, ok := fragmentContexts[strings.ToLower(m[1])]; ok {
			a = ctx
		}
	}
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
}

// Parse parses one render body. Malformed markup never fails: the HTML5
// recovery algorithm produces a best-effort tree and unparseable syntax
// degrades to literal text.
func Parse(body string) (*Parsed, error) {
	masked, slots := mask(body)
	rewritten := rewriteDirectives(masked, slots)

	ctx := fragmentContext(rewritten)
	nodes, err := html.ParseFragment(strings.NewReader(rewritten), ctx)
	if err != nil {
		// Unreachable with an in-memory reader; kept for contract clarity.
		return &Parsed{Body: body}, fmt.Errorf("parse render body: %w", err)
	}

	w := &walker{slots: slots, ctx: ctx, out: &Parsed{Body: body, Roots: nodes}}
	for _, n := range nodes {
		w.walk(n)
	}
	return w.out, nil
}

type walker struct {
	slots []*slot
	ctx   *html.Node
	out   *Parsed
}

func (w *walker) slotByID(id int) *slot {
	if id < 0 || id >= len(w.slots) {
		return nil
	}
	return w.slots[id]
}

// ownerOf maps a node's parent to the binding owner, nil at fragment root.
func (w *walker) ownerOf(n *html.Node) *html.Node {
	if n.Parent == nil || n.Parent == w.ctx {
		return nil
	}
	return n.Parent
}

func (w *walker) warnf(format string, args ...any) {
	w.out.Warnings = append(w.out.Warnings, fmt.Sprintf(format, args...))
}

func (w *walker) walk(n *html.Node) {
	switch n.Type {
	case html.ElementNode:
		w.visitElement(n)
	case html.TextNode:
		w.visitText(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

func (w *walker) visitElement(n *html.Node) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		switch {
		case a.Key == "data-loom-when":
			w.addWhen(n, a.Val)
			kept = append(kept, a)
		case strings.HasPrefix(a.Key, "data-loom-event-"):
			w.addEvent(n, a.Val)
			kept = append(kept, a)
		case strings.Contains(a.Key, slotPrefix):
			w.warnf("expression in unsupported position on <%s>: dropped", n.Data)
		case strings.Contains(a.Val, slotPrefix):
			w.addAttr(n, a)
			kept = append(kept, a)
		default:
			kept = append(kept, a)
		}
	}
	n.Attr = kept
}

func (w *walker) addWhen(n *html.Node, val string) {
	id, err := strconv.Atoi(val)
	s := w.slotByID(id)
	if err != nil || s == nil {
		return
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(s.Body, "when("), ")")
	b := Binding{Kind: KindWhen, El: n, Slot: id, Span: s.span(), Expr: strings.TrimSpace(inner)}
	if _, perr := expr.Parse(b.Expr); perr != nil {
		b.Broken = fmt.Sprintf("condition does not parse: %v", perr)
	}
	w.out.Bindings = append(w.out.Bindings, b)
}

func (w *walker) addEvent(n *html.Node, val string) {
	name, idText, ok := strings.Cut(val, " ")
	if !ok {
		return
	}
	id, err := strconv.Atoi(idText)
	s := w.slotByID(id)
	if err != nil || s == nil {
		return
	}
	parts := strings.Split(name, ".")
	b := Binding{
		Kind:      KindEvent,
		El:        n,
		Slot:      id,
		Span:      s.span(),
		Expr:      s.Body,
		Event:     parts[0],
		Modifiers: parts[1:],
	}
	w.out.Bindings = append(w.out.Bindings, b)
}

func (w *walker) addAttr(n *html.Node, a html.Attribute) {
	matches := slotRe.FindAllStringSubmatchIndex(a.Val, -1)
	if len(matches) == 0 {
		return
	}
	b := Binding{Kind: KindAttribute, El: n, AttrName: a.Key}
	if a.Key == "style" {
		b.Kind = KindStyle
	}
	last := 0
	for _, m := range matches {
		id, _ := strconv.Atoi(a.Val[m[2]:m[3]])
		s := w.slotByID(id)
		if s == nil {
			continue
		}
		b.Quasis = append(b.Quasis, a.Val[last:m[0]])
		b.Exprs = append(b.Exprs, s.Body)
		b.Slots = append(b.Slots, id)
		last = m[1]
	}
	b.Quasis = append(b.Quasis, a.Val[last:])
	if len(b.Slots) == 0 {
		return
	}
	b.Expr = b.Exprs[0]
	b.Slot = b.Slots[0]
	first := w.slotByID(b.Slots[0])
	lastSlot := w.slotByID(b.Slots[len(b.Slots)-1])
	b.Span = Span{Start: first.span().Start, End: lastSlot.span().End}
	w.out.Bindings = append(w.out.Bindings, b)
}

func (w *walker) visitText(n *html.Node) {
	for _, m := range slotRe.FindAllStringSubmatchIndex(n.Data, -1) {
		id, _ := strconv.Atoi(n.Data[m[2]:m[3]])
		s := w.slotByID(id)
		if s == nil {
			continue
		}
		w.out.Bindings = append(w.out.Bindings, w.classifySlot(n, s))
	}
}

// classifySlot decides whether a text-position hole is a block combinator
// or plain interpolation, by the shape of its parsed expression.
func (w *walker) classifySlot(n *html.Node, s *slot) Binding {
	b := Binding{Kind: KindText, El: w.ownerOf(n), Node: n, Slot: s.ID, Span: s.span(), Expr: s.Body}

	ast, err := expr.Parse(s.Body)
	if err != nil {
		// Leave it as interpolation; resolution happens at runtime.
		return b
	}
	call, ok := ast.(*expr.Call)
	if !ok {
		return b
	}
	callee, ok := call.Callee.(*expr.Ident)
	if !ok {
		return b
	}

	switch callee.Name {
	case "repeat":
		return w.repeatBinding(b, call)
	case "whenElse":
		return w.whenElseBinding(b, call)
	}
	return b
}

func (w *walker) repeatBinding(b Binding, call *expr.Call) Binding {
	b.Kind = KindRepeat
	args := callArgTexts(b.Expr)
	if len(call.Args) < 2 || len(args) < 2 {
		b.Broken = "repeat needs an array expression and an item template"
		return b
	}
	b.Expr = args[0]

	arrow, ok := call.Args[1].(*expr.Arrow)
	if !ok || len(arrow.Params) == 0 {
		b.Broken = "repeat item template must be an arrow function"
		return b
	}
	body, ok := arrow.Body.(*expr.TaggedTemplate)
	if !ok || !isHTMLTag(body.Tag) {
		b.Broken = "repeat item template must return an html tagged literal"
		return b
	}
	b.ItemParam = arrow.Params[0]
	b.ItemBody = body.Raw

	if len(call.Args) >= 3 {
		if empty, ok := call.Args[2].(*expr.TaggedTemplate); ok && isHTMLTag(empty.Tag) {
			b.EmptyBody = empty.Raw
		}
	}
	return b
}

func (w *walker) whenElseBinding(b Binding, call *expr.Call) Binding {
	b.Kind = KindWhenElse
	args := callArgTexts(b.Expr)
	if len(call.Args) < 3 || len(args) < 3 {
		b.Broken = "whenElse needs a condition and two branch templates"
		return b
	}
	b.Expr = args[0]

	then, ok := call.Args[1].(*expr.TaggedTemplate)
	if !ok || !isHTMLTag(then.Tag) {
		b.Broken = "whenElse branches must be html tagged literals"
		return b
	}
	els, ok := call.Args[2].(*expr.TaggedTemplate)
	if !ok || !isHTMLTag(els.Tag) {
		b.Broken = "whenElse branches must be html tagged literals"
		return b
	}
	b.ThenBody = then.Raw
	b.ElseBody = els.Raw
	return b
}

// callArgTexts slices the top-level argument texts out of a call
// expression's source, so emitted code preserves authored spelling.
func callArgTexts(callSrc string) []string {
	open := strings.Index(callSrc, "(")
	end := strings.LastIndex(callSrc, ")")
	if open < 0 || end <= open {
		return nil
	}
	return expr.SplitArgs(callSrc[open+1 : end])
}

func isHTMLTag(tag expr.Node) bool {
	id, ok := tag.(*expr.Ident)
	return ok && id.Name == "html"
}
