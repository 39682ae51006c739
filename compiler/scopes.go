package compiler

import (
	"fmt"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/loomkit/loom/expr"
	"github.com/loomkit/loom/template"
)

// buildContext carries one component's anchor counters and collectors
// across every render body its template pulls in. Counters never reset
// between nested bodies, so anchors stay unique component-wide.
type buildContext struct {
	c      *Compiler
	def    *componentDef
	fc     *foldedClass
	source string

	diags    []Diagnostic
	handlers []HandlerEntry

	nb, nt, na, ne int
}

func (bc *buildContext) nextB() string { id := fmt.Sprintf("b%d", bc.nb); bc.nb++; return id }
func (bc *buildContext) nextT() string { id := fmt.Sprintf("t%d", bc.nt); bc.nt++; return id }
func (bc *buildContext) nextA() string { id := fmt.Sprintf("a%d", bc.na); bc.na++; return id }
func (bc *buildContext) nextE() string { id := fmt.Sprintf("e%d", bc.ne); bc.ne++; return id }

// treeBuild is the per-render-body walk state: the binding lookup tables
// for one parsed tree and the repeat item parameters in scope around it.
type treeBuild struct {
	bc         *buildContext
	off        int
	itemParams []string

	whenOf  map[*html.Node]*template.Binding
	slotOf  map[*html.Node]map[int]*template.Binding
	attrsOf map[*html.Node][]*template.Binding
	evtsOf  map[*html.Node][]*template.Binding
}

// buildTree compiles one render body into the given scope, returning the
// body's static markup. The scope receives the body's leaf bindings and
// child scopes; off is the body's byte offset in the module source, or -1
// when the body text cannot be located (it only degrades diagnostics).
func (bc *buildContext) buildTree(body string, off int, itemParams []string, into *Scope) string {
	parsed, err := template.Parse(body)
	if err != nil {
		bc.diags = append(bc.diags, Diagnostic{Path: bc.def.Path, Message: err.Error()})
		return template.SweepTokens(body)
	}
	for _, w := range parsed.Warnings {
		bc.diags = append(bc.diags, bc.treeDiag(off, 0, "%s", w))
	}

	tb := &treeBuild{
		bc:         bc,
		off:        off,
		itemParams: itemParams,
		whenOf:     map[*html.Node]*template.Binding{},
		slotOf:     map[*html.Node]map[int]*template.Binding{},
		attrsOf:    map[*html.Node][]*template.Binding{},
		evtsOf:     map[*html.Node][]*template.Binding{},
	}
	for i := range parsed.Bindings {
		b := &parsed.Bindings[i]
		switch b.Kind {
		case template.KindWhen:
			tb.whenOf[b.El] = b
		case template.KindText, template.KindRepeat, template.KindWhenElse:
			m := tb.slotOf[b.Node]
			if m == nil {
				m = map[int]*template.Binding{}
				tb.slotOf[b.Node] = m
			}
			m[b.Slot] = b
		case template.KindAttribute, template.KindStyle:
			tb.attrsOf[b.El] = append(tb.attrsOf[b.El], b)
		case template.KindEvent:
			tb.evtsOf[b.El] = append(tb.evtsOf[b.El], b)
		}
	}

	container := &html.Node{Type: html.ElementNode, DataAtom: atom.Div, Data: "div"}
	for _, root := range parsed.Roots {
		container.AppendChild(root)
	}
	tb.walkChildren(container, into)
	return renderChildren(container)
}

// treeDiag locates a diagnostic inside the current body when its offset in
// the module source is known.
func (bc *buildContext) treeDiag(off, at int, format string, args ...any) Diagnostic {
	if off >= 0 {
		return diagAt(bc.source, bc.def.Path, off+at, format, args...)
	}
	return Diagnostic{Path: bc.def.Path, Message: fmt.Sprintf(format, args...)}
}

func (tb *treeBuild) diagf(span template.Span, format string, args ...any) {
	tb.bc.diags = append(tb.bc.diags, tb.bc.treeDiag(tb.off, span.Start, format, args...))
}

func (tb *treeBuild) walkChildren(n *html.Node, scope *Scope) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		tb.walkNode(c, scope)
		c = next
	}
}

func (tb *treeBuild) walkNode(n *html.Node, scope *Scope) {
	switch n.Type {
	case html.ElementNode:
		if wb := tb.whenOf[n]; wb != nil {
			tb.buildConditional(n, wb, scope)
			return
		}
		tb.processElement(n, scope)
		tb.walkChildren(n, scope)
	case html.TextNode:
		tb.processText(n, scope)
	}
}

// buildConditional turns an element carrying a when directive into an if
// scope. A condition with no reactive dependencies is folded away at
// compile time; a statically-true initial state leaves the content element
// in the template so setup never performs a redundant first toggle.
func (tb *treeBuild) buildConditional(n *html.Node, wb *template.Binding, scope *Scope) {
	dropAttr(n, "data-loom-when")
	if wb.Broken != "" {
		tb.diagf(wb.Span, "when on <%s> dropped: %s", n.Data, wb.Broken)
		tb.processElement(n, scope)
		tb.walkChildren(n, scope)
		return
	}
	condAST, err := expr.Parse(wb.Expr)
	if err != nil {
		tb.diagf(wb.Span, "when condition does not parse: %v", err)
		tb.processElement(n, scope)
		tb.walkChildren(n, scope)
		return
	}

	deps, itemDeps := dependencies(condAST, tb.itemParams, tb.bc.fc)
	if len(deps) == 0 && len(itemDeps) == 0 {
		if v, err := tb.bc.eval(condAST, tb.bc.fc.constEnv()); err == nil {
			if v.Truthy() {
				tb.processElement(n, scope)
				tb.walkChildren(n, scope)
			} else {
				n.Parent.RemoveChild(n)
			}
			return
		}
	}

	child := &Scope{
		Kind:     ScopeIfExpr,
		Anchor:   tb.bc.nextB(),
		Cond:     wb.Expr,
		CondAST:  condAST,
		Deps:     deps,
		ItemDeps: itemDeps,
	}
	if len(deps)+len(itemDeps) == 1 && singleSignalRead(condAST) {
		child.Kind = ScopeIf
	}
	if len(itemDeps) == 0 {
		if v, err := tb.bc.eval(condAST, tb.bc.fc.initialEnv()); err == nil {
			child.InitialKnown = true
			child.InitialShown = v.Truthy()
		}
	}

	tb.processElement(n, child)
	tb.walkChildren(n, child)
	tb.finalizeConditional(n, child)
	scope.Children = append(scope.Children, child)
}

// finalizeConditional renders the content fragment and decides what the
// static template shows: the content element itself when the initial state
// is known to be truthy, otherwise the inert placeholder.
func (tb *treeBuild) finalizeConditional(n *html.Node, child *Scope) {
	shown := child.InitialKnown && child.InitialShown
	if shown {
		switch {
		case attrVal(n, "id") != "":
			child.ContentAttr, child.ContentVal = "id", attrVal(n, "id")
		case attrVal(n, "data-loom-id") != "":
			child.ContentAttr, child.ContentVal = "data-loom-id", attrVal(n, "data-loom-id")
		default:
			n.Attr = append(n.Attr, html.Attribute{Key: "data-loom-id", Val: child.Anchor})
			child.ContentAttr, child.ContentVal = "data-loom-id", child.Anchor
		}
	}
	child.HTML = renderNode(n)
	if !shown {
		n.Parent.InsertBefore(placeholderNode(child.Anchor), n)
		n.Parent.RemoveChild(n)
	}
}

// processElement records the element's attribute and event bindings and
// rewrites its attributes to their shipped form.
func (tb *treeBuild) processElement(n *html.Node, scope *Scope) {
	for _, eb := range tb.evtsOf[n] {
		tb.buildEvent(n, eb, scope)
	}
	for _, ab := range tb.attrsOf[n] {
		tb.buildAttr(n, ab, scope)
	}
}

// eventModifiers is every modifier the dispatcher understands: guards
// first, then the key aliases, then the flow controls.
var eventModifiers = map[string]bool{
	"self": true, "prevent": true, "stop": true,
	"enter": true, "esc": true, "space": true, "tab": true,
	"up": true, "down": true, "left": true, "right": true, "delete": true,
}

func (tb *treeBuild) buildEvent(n *html.Node, eb *template.Binding, scope *Scope) {
	dropAttr(n, fmt.Sprintf("data-loom-event-%d", eb.Slot))
	ast, err := expr.Parse(eb.Expr)
	if err != nil {
		tb.diagf(eb.Span, "@%s handler does not parse: %v", eb.Event, err)
		return
	}
	for _, m := range eb.Modifiers {
		if !eventModifiers[m] {
			tb.diagf(eb.Span, "@%s: unknown modifier %q", eb.Event, m)
		}
	}

	id := tb.bc.nextE()
	val := id
	if len(eb.Modifiers) > 0 {
		val += ":" + strings.Join(eb.Modifiers, ":")
	}
	n.Attr = append(n.Attr, html.Attribute{Key: "data-evt-" + eb.Event, Val: val})

	if len(tb.itemParams) > 0 {
		_, itemDeps := dependencies(ast, tb.itemParams, tb.bc.fc)
		scope.Events = append(scope.Events, EventBinding{
			ID:        id,
			Event:     eb.Event,
			Modifiers: eb.Modifiers,
			Handler:   eb.Expr,
			AST:       ast,
			ItemDeps:  itemDeps,
		})
		return
	}
	tb.bc.handlers = append(tb.bc.handlers, HandlerEntry{
		ID:        id,
		Event:     eb.Event,
		Modifiers: eb.Modifiers,
		Handler:   eb.Expr,
		AST:       ast,
	})
}

func (tb *treeBuild) buildAttr(n *html.Node, ab *template.Binding, scope *Scope) {
	setAttr(n, ab.AttrName, strings.Join(ab.Quasis, ""))

	asts := make([]expr.Node, 0, len(ab.Exprs))
	var deps, itemDeps []string
	for _, src := range ab.Exprs {
		ast, err := expr.Parse(src)
		if err != nil {
			tb.diagf(ab.Span, "%s binding on <%s> dropped: %v", ab.AttrName, n.Data, err)
			return
		}
		asts = append(asts, ast)
		d, id := dependencies(ast, tb.itemParams, tb.bc.fc)
		deps = mergeNames(deps, d)
		itemDeps = mergeNames(itemDeps, id)
	}

	scope.Attrs = append(scope.Attrs, AttrBinding{
		Owner:    tb.ownerID(n),
		Name:     ab.AttrName,
		Style:    ab.Kind == template.KindStyle,
		Quasis:   ab.Quasis,
		Exprs:    ab.Exprs,
		ASTs:     asts,
		Deps:     deps,
		ItemDeps: itemDeps,
	})
}

// ownerID tags the element for attribute lookup, reusing an already
// injected tag so elements carrying several bound attributes share one.
func (tb *treeBuild) ownerID(n *html.Node) string {
	if id := attrVal(n, "data-loom-id"); id != "" {
		return id
	}
	id := tb.bc.nextA()
	n.Attr = append(n.Attr, html.Attribute{Key: "data-loom-id", Val: id})
	return id
}

// processText splits a text node around its expression holes, leaving a
// comment marker per interpolation and a placeholder per block combinator.
func (tb *treeBuild) processText(n *html.Node, scope *Scope) {
	parts, slots := template.SplitTokens(n.Data)
	if len(slots) == 0 {
		return
	}

	var repl []*html.Node
	for i, part := range parts {
		if part != "" {
			repl = append(repl, &html.Node{Type: html.TextNode, Data: part})
		}
		if i >= len(slots) {
			continue
		}
		b := tb.slotOf[n][slots[i]]
		if b == nil {
			continue
		}
		repl = append(repl, tb.buildSlot(b, scope)...)
	}
	for _, r := range repl {
		n.Parent.InsertBefore(r, n)
	}
	n.Parent.RemoveChild(n)
}

func (tb *treeBuild) buildSlot(b *template.Binding, scope *Scope) []*html.Node {
	if b.Broken != "" {
		tb.diagf(b.Span, "%s dropped: %s", b.Kind, b.Broken)
		return nil
	}
	switch b.Kind {
	case template.KindText:
		return tb.buildText(b, scope)
	case template.KindRepeat:
		return tb.buildRepeat(b, scope)
	case template.KindWhenElse:
		return tb.buildWhenElse(b, scope)
	}
	return nil
}

func (tb *treeBuild) buildText(b *template.Binding, scope *Scope) []*html.Node {
	bind := TextBinding{Anchor: tb.bc.nextT(), Expr: b.Expr}
	ast, err := expr.Parse(b.Expr)
	if err != nil {
		// Unparseable interpolations still ship, evaluated verbatim at
		// setup with no subscriptions.
		tb.diagf(b.Span, "interpolation left for runtime: %v", err)
	} else {
		bind.AST = ast
		bind.Deps, bind.ItemDeps = dependencies(ast, tb.itemParams, tb.bc.fc)
	}
	scope.Texts = append(scope.Texts, bind)
	return []*html.Node{{Type: html.CommentNode, Data: bind.Anchor}}
}

func (tb *treeBuild) buildRepeat(b *template.Binding, scope *Scope) []*html.Node {
	arrayAST, err := expr.Parse(b.Expr)
	if err != nil {
		tb.diagf(b.Span, "repeat array does not parse: %v", err)
		return nil
	}

	child := &Scope{
		Kind:      ScopeRepeat,
		Anchor:    tb.bc.nextB(),
		Array:     b.Expr,
		ArrayAST:  arrayAST,
		ItemParam: b.ItemParam,
	}
	if len(tb.itemParams) > 0 {
		child.Kind = ScopeNestedRepeat
	}
	child.Deps, child.ItemDeps = dependencies(arrayAST, tb.itemParams, tb.bc.fc)

	itemParams := append(append([]string{}, tb.itemParams...), b.ItemParam)
	child.HTML = tb.bc.buildTree(b.ItemBody, tb.bc.offsetOf(b.ItemBody), itemParams, child)
	if b.EmptyBody != "" {
		child.EmptyHTML = tb.bc.staticOnly(b.EmptyBody)
	}

	scope.Children = append(scope.Children, child)
	return []*html.Node{placeholderNode(child.Anchor)}
}

// buildWhenElse desugars into two complementary if-expr scopes over the
// same condition, each with its own placeholder and branch fragment.
func (tb *treeBuild) buildWhenElse(b *template.Binding, scope *Scope) []*html.Node {
	condAST, err := expr.Parse(b.Expr)
	if err != nil {
		tb.diagf(b.Span, "whenElse condition does not parse: %v", err)
		return nil
	}
	deps, itemDeps := dependencies(condAST, tb.itemParams, tb.bc.fc)

	build := func(body string, negate bool) *Scope {
		branch := &Scope{
			Kind:     ScopeIfExpr,
			Anchor:   tb.bc.nextB(),
			Cond:     b.Expr,
			CondAST:  condAST,
			Negate:   negate,
			Deps:     deps,
			ItemDeps: itemDeps,
		}
		branch.HTML = tb.bc.buildBranch(body, tb.itemParams, branch)
		scope.Children = append(scope.Children, branch)
		return branch
	}
	then := build(b.ThenBody, false)
	els := build(b.ElseBody, true)
	return []*html.Node{placeholderNode(then.Anchor), placeholderNode(els.Anchor)}
}

// buildBranch compiles a branch body whose content must collapse to one
// element for presence toggling. Multi-root and bare-text branches get a
// non-rendering wrapper.
func (bc *buildContext) buildBranch(body string, itemParams []string, branch *Scope) string {
	markup := bc.buildTree(body, bc.offsetOf(body), itemParams, branch)
	if singleElementFragment(markup) {
		return markup
	}
	return `<div style="display:contents">` + markup + `</div>`
}

// staticOnly renders a body that carries no live bindings, such as a
// repeat empty state. Any expressions inside are swept.
func (bc *buildContext) staticOnly(body string) string {
	parsed, err := template.Parse(body)
	if err != nil {
		return template.SweepTokens(body)
	}
	if len(parsed.Bindings) > 0 {
		bc.diags = append(bc.diags, bc.treeDiag(bc.offsetOf(body), 0,
			"empty-state template is rendered statically; its %d binding(s) are ignored", len(parsed.Bindings)))
	}
	container := &html.Node{Type: html.ElementNode, DataAtom: atom.Div, Data: "div"}
	for _, root := range parsed.Roots {
		stripDirectiveAttrs(root)
		container.AppendChild(root)
	}
	return renderChildren(container)
}

// offsetOf locates a nested body's text in the module source for
// diagnostics. Duplicate bodies resolve to the first occurrence, which
// only skews line numbers, never correctness.
func (bc *buildContext) offsetOf(body string) int {
	if body == "" {
		return -1
	}
	return strings.Index(bc.source, body)
}

func (bc *buildContext) eval(n expr.Node, env expr.Env) (expr.Value, error) {
	return expr.NewInterp(env, bc.c.budget).Eval(n)
}

// dependencies collects the reactive inputs of an expression: signal reads
// (zero-argument calls of a signal field or a bare cell reference) and the
// enclosing repeat item parameters it closes over. Arrow parameters shadow
// both. Results are sorted for deterministic generation.
func dependencies(n expr.Node, itemParams []string, fc *foldedClass) (deps, itemDeps []string) {
	inScope := map[string]bool{}
	for _, p := range itemParams {
		inScope[p] = true
	}
	depSet := mapset.NewThreadUnsafeSet[string]()
	itemSet := mapset.NewThreadUnsafeSet[string]()

	var visit func(n expr.Node, shadow map[string]bool)
	visit = func(n expr.Node, shadow map[string]bool) {
		switch x := n.(type) {
		case nil:
			return
		case *expr.Ident:
			if inScope[x.Name] && !shadow[x.Name] {
				itemSet.Add(x.Name)
			}
		case *expr.Call:
			if len(x.Args) == 0 {
				switch callee := x.Callee.(type) {
				case *expr.Member:
					if base, ok := callee.X.(*expr.Ident); ok && base.Name == "this" && fc.signals[callee.Name] {
						depSet.Add("this." + callee.Name)
						return
					}
				case *expr.Ident:
					if callee.Name != "this" && !inScope[callee.Name] && !shadow[callee.Name] && !expr.IsGlobal(callee.Name) {
						depSet.Add(callee.Name)
						return
					}
					visit(x.Callee, shadow)
					return
				}
			}
			visit(x.Callee, shadow)
			for _, a := range x.Args {
				visit(a, shadow)
			}
		case *expr.Member:
			visit(x.X, shadow)
		case *expr.Index:
			visit(x.X, shadow)
			visit(x.Key, shadow)
		case *expr.Unary:
			visit(x.X, shadow)
		case *expr.Binary:
			visit(x.X, shadow)
			visit(x.Y, shadow)
		case *expr.Conditional:
			visit(x.Cond, shadow)
			visit(x.Then, shadow)
			visit(x.Else, shadow)
		case *expr.TemplateLit:
			for _, e := range x.Exprs {
				visit(e, shadow)
			}
		case *expr.ArrayLit:
			for _, e := range x.Elems {
				visit(e, shadow)
			}
		case *expr.ObjectLit:
			for _, p := range x.Props {
				if p.Shorthand {
					visit(&expr.Ident{Name: p.Key}, shadow)
					continue
				}
				visit(p.Value, shadow)
			}
		case *expr.Arrow:
			inner := map[string]bool{}
			for k := range shadow {
				inner[k] = true
			}
			for _, p := range x.Params {
				inner[p] = true
			}
			visit(x.Body, inner)
		}
	}
	visit(n, map[string]bool{})

	return sortedSet(depSet), sortedSet(itemSet)
}

// singleSignalRead reports whether a condition is exactly one signal read,
// optionally under a single logical not.
func singleSignalRead(n expr.Node) bool {
	if u, ok := n.(*expr.Unary); ok && u.Op == "!" {
		n = u.X
	}
	call, ok := n.(*expr.Call)
	if !ok || len(call.Args) != 0 {
		return false
	}
	switch callee := call.Callee.(type) {
	case *expr.Ident:
		return true
	case *expr.Member:
		base, ok := callee.X.(*expr.Ident)
		return ok && base.Name == "this"
	}
	return false
}

func sortedNames(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func sortedSet(set mapset.Set[string]) []string {
	if set.Cardinality() == 0 {
		return nil
	}
	return mapset.Sorted(set)
}

func mergeNames(into, names []string) []string {
	for _, n := range names {
		found := false
		for _, have := range into {
			if have == n {
				found = true
				break
			}
		}
		if !found {
			into = append(into, n)
		}
	}
	sort.Strings(into)
	return into
}

func placeholderNode(anchor string) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Template,
		Data:     "template",
		Attr:     []html.Attribute{{Key: "id", Val: anchor}},
	}
}

func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func dropAttr(n *html.Node, key string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != key {
			kept = append(kept, a)
		}
	}
	n.Attr = kept
}

// stripDirectiveAttrs clears leftover directive attributes from subtrees
// rendered without binding compilation.
func stripDirectiveAttrs(n *html.Node) {
	if n.Type == html.ElementNode {
		kept := n.Attr[:0]
		for _, a := range n.Attr {
			if a.Key == "data-loom-when" || strings.HasPrefix(a.Key, "data-loom-event-") {
				continue
			}
			kept = append(kept, a)
		}
		n.Attr = kept
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		stripDirectiveAttrs(c)
	}
}

func renderNode(n *html.Node) string {
	var sb strings.Builder
	if err := html.Render(&sb, n); err != nil {
		return ""
	}
	return template.SweepTokens(sb.String())
}

func renderChildren(container *html.Node) string {
	var sb strings.Builder
	for c := container.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&sb, c); err != nil {
			return ""
		}
	}
	return template.SweepTokens(sb.String())
}

// singleElementFragment reports whether markup is exactly one element.
// Top-level text, comment markers and block placeholders all need the
// wrapper so presence toggling moves them together with the content.
func singleElementFragment(markup string) bool {
	trimmed := strings.TrimSpace(markup)
	if !strings.HasPrefix(trimmed, "<") || !strings.HasSuffix(trimmed, ">") {
		return false
	}
	container := fragmentNode(trimmed)
	elements := 0
	for c := container.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.ElementNode:
			if c.DataAtom == atom.Template {
				return false
			}
			elements++
		case html.CommentNode:
			return false
		case html.TextNode:
			if strings.TrimSpace(c.Data) != "" {
				return false
			}
		}
	}
	return elements == 1
}

func fragmentNode(markup string) *html.Node {
	ctx := &html.Node{Type: html.ElementNode, DataAtom: atom.Div, Data: "div"}
	roots, err := html.ParseFragment(strings.NewReader(markup), ctx)
	if err != nil {
		return ctx
	}
	for _, r := range roots {
		ctx.AppendChild(r)
	}
	return ctx
}
