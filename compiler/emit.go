package compiler

import (
	"fmt"
	"strings"

	"github.com/loomkit/loom/expr"
)

// emitter prints the initializeBindings body from a scope tree. Bindings
// print in nesting order: a region's setup lives inside its parent's
// initializer closure, so hidden regions defer their own wiring until
// first shown.
type emitter struct {
	sb      strings.Builder
	uses    map[string]bool
	renames map[string]string
	params  []string
}

// emitSetup returns the method body text and the sorted runtime primitive
// names it calls.
func emitSetup(root *Scope, handlers []HandlerEntry) (string, []string) {
	e := &emitter{uses: map[string]bool{}, renames: map[string]string{}}
	e.scopeBody(root, "__root", "    ")
	e.delegation(handlers, "    ")
	return strings.TrimRight(e.sb.String(), "\n"), sortedNames(e.uses)
}

func (e *emitter) linef(indent, format string, args ...any) {
	e.sb.WriteString(indent)
	fmt.Fprintf(&e.sb, format, args...)
	e.sb.WriteByte('\n')
}

func (e *emitter) use(name string) string {
	e.uses[name] = true
	return name
}

// scopeBody prints one scope's leaf bindings and child regions against the
// given lookup root: the shadow root at top level, a rendered node array
// inside region initializers.
func (e *emitter) scopeBody(s *Scope, root, indent string) {
	for _, t := range s.Texts {
		e.linef(indent, "%s(%s, %s, %s, () => %s);",
			e.use("__bindText"), root, jsString(t.Anchor), e.subs(t.Deps, t.ItemDeps), e.exprText(t.AST, t.Expr))
	}
	for _, a := range s.Attrs {
		if a.Style {
			e.linef(indent, "%s(%s, %s, %s, () => %s);",
				e.use("__bindStyle"), root, jsString(a.Owner), e.subs(a.Deps, a.ItemDeps), e.attrValue(a))
			continue
		}
		e.linef(indent, "%s(%s, %s, %s, %s, () => %s);",
			e.use("__bindAttr"), root, jsString(a.Owner), jsString(a.Name), e.subs(a.Deps, a.ItemDeps), e.attrValue(a))
	}
	for _, c := range s.Children {
		e.child(c, root, indent)
	}
	e.itemEvents(s, root, indent)
}

func (e *emitter) child(s *Scope, root, indent string) {
	inner := indent + "  "
	switch s.Kind {
	case ScopeIf:
		e.linef(indent, "%s(%s, %s, %s, %s, () => %s, (__nodes) => {",
			e.use("__bindIf"), root, jsString(s.Anchor), e.condOptions(s), e.singleSub(s.Deps, s.ItemDeps), e.condText(s))
		e.scopeBody(s, "__nodes", inner)
		e.linef(indent, "});")
	case ScopeIfExpr:
		e.linef(indent, "%s(%s, %s, %s, %s, () => %s, (__nodes) => {",
			e.use("__bindIfExpr"), root, jsString(s.Anchor), e.condOptions(s), e.subs(s.Deps, s.ItemDeps), e.condText(s))
		e.scopeBody(s, "__nodes", inner)
		e.linef(indent, "});")
	case ScopeRepeat:
		e.linef(indent, "%s(%s, %s, %s, %s, () => %s, (__item_%s, __nodes) => {",
			e.use("__bindRepeat"), root, jsString(s.Anchor), e.repeatOptions(s), e.singleSub(s.Deps, s.ItemDeps),
			e.exprText(s.ArrayAST, s.Array), s.ItemParam)
		e.itemBody(s, inner)
		e.linef(indent, "});")
	case ScopeNestedRepeat:
		parent := e.params[len(e.params)-1]
		e.linef(indent, "%s(%s, %s, %s, __item_%s, () => %s, (__item_%s, __nodes) => {",
			e.use("__bindNestedRepeat"), root, jsString(s.Anchor), e.repeatOptions(s), parent,
			e.exprText(s.ArrayAST, s.Array), s.ItemParam)
		e.itemBody(s, inner)
		e.linef(indent, "});")
	}
}

// itemBody prints a repeat scope's per-row initializer with the item
// parameter rebound to its per-item signal.
func (e *emitter) itemBody(s *Scope, indent string) {
	prev, had := e.renames[s.ItemParam]
	e.renames[s.ItemParam] = "__item_" + s.ItemParam + "()"
	e.params = append(e.params, s.ItemParam)

	e.scopeBody(s, "__nodes", indent)

	e.params = e.params[:len(e.params)-1]
	if had {
		e.renames[s.ItemParam] = prev
	} else {
		delete(e.renames, s.ItemParam)
	}
}

// itemEvents prints the direct listeners of rows and regions inside repeat
// item templates, grouped by event type.
func (e *emitter) itemEvents(s *Scope, root, indent string) {
	if len(s.Events) == 0 {
		return
	}
	byType := map[string][]EventBinding{}
	var types []string
	for _, ev := range s.Events {
		if len(byType[ev.Event]) == 0 {
			types = append(types, ev.Event)
		}
		byType[ev.Event] = append(byType[ev.Event], ev)
	}
	for _, typ := range types {
		var entries []string
		for _, ev := range byType[typ] {
			entries = append(entries, fmt.Sprintf("%s: (__ev) => (%s)(__ev)", jsString(ev.ID), e.exprText(ev.AST, ev.Handler)))
		}
		e.linef(indent, "%s(%s, %s, { %s });",
			e.use("__bindItemEvents"), root, jsString(typ), strings.Join(entries, ", "))
	}
}

// delegation prints the shadow-root capture listeners, one table per event
// type, after every region is wired.
func (e *emitter) delegation(handlers []HandlerEntry, indent string) {
	byType := map[string][]HandlerEntry{}
	var types []string
	for _, h := range handlers {
		if len(byType[h.Event]) == 0 {
			types = append(types, h.Event)
		}
		byType[h.Event] = append(byType[h.Event], h)
	}
	for _, typ := range types {
		var entries []string
		for _, h := range byType[typ] {
			entries = append(entries, fmt.Sprintf("%s: (__ev) => (%s)(__ev)", jsString(h.ID), e.exprText(h.AST, h.Handler)))
		}
		e.linef(indent, "%s(__root, %s, { %s });",
			e.use("__setupEventDelegation"), jsString(typ), strings.Join(entries, ", "))
	}
}

func (e *emitter) condOptions(s *Scope) string {
	var sb strings.Builder
	shown := s.InitialKnown && s.InitialShown && s.ContentVal != ""
	fmt.Fprintf(&sb, "{ html: %s, shown: %t", jsString(s.HTML), shown)
	if shown {
		fmt.Fprintf(&sb, ", content: %s", jsString(fmt.Sprintf("[%s=%q]", s.ContentAttr, s.ContentVal)))
	}
	sb.WriteString(" }")
	return sb.String()
}

func (e *emitter) repeatOptions(s *Scope) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "{ html: %s", jsString(s.HTML))
	if s.EmptyHTML != "" {
		fmt.Fprintf(&sb, ", empty: %s", jsString(s.EmptyHTML))
	}
	sb.WriteString(" }")
	return sb.String()
}

// condText prints a conditional getter, negating the shared condition for
// the else branch of a two-branch conditional.
func (e *emitter) condText(s *Scope) string {
	text := e.exprText(s.CondAST, s.Cond)
	if s.Negate {
		return "!(" + text + ")"
	}
	return text
}

// subs prints the subscription closure array for an expression's reactive
// inputs: signal reads first, then enclosing item parameters.
func (e *emitter) subs(deps, itemDeps []string) string {
	var closures []string
	for _, d := range deps {
		closures = append(closures, subClosure(d))
	}
	for _, p := range itemDeps {
		closures = append(closures, subClosure("__item_"+p))
	}
	return "[" + strings.Join(closures, ", ") + "]"
}

// singleSub prints the one-signal subscribe argument of __bindIf and
// __bindRepeat. Multiple inputs collapse into one closure with a combined
// unsubscribe; none yields a closure that never fires.
func (e *emitter) singleSub(deps, itemDeps []string) string {
	var targets []string
	for _, d := range deps {
		targets = append(targets, d)
	}
	for _, p := range itemDeps {
		targets = append(targets, "__item_"+p)
	}
	switch len(targets) {
	case 0:
		return "(__cb) => () => {}"
	case 1:
		return subClosure(targets[0])
	}
	var subs []string
	for _, t := range targets {
		subs = append(subs, t+".subscribe(__cb, true)")
	}
	return fmt.Sprintf("(__cb) => { const __u = [%s]; return () => { for (const f of __u) f(); }; }",
		strings.Join(subs, ", "))
}

func subClosure(target string) string {
	return fmt.Sprintf("(__cb) => %s.subscribe(__cb, true)", target)
}

// exprText prints an expression with item parameters rewritten to their
// per-item signal reads. Expressions that never parsed ship verbatim.
func (e *emitter) exprText(ast expr.Node, raw string) string {
	if ast == nil {
		return strings.TrimSpace(raw)
	}
	return expr.PrintRenamed(ast, e.renames)
}

// attrValue prints an attribute getter: the bare expression for a fully
// dynamic value, a template literal when static runs interleave.
func (e *emitter) attrValue(a AttrBinding) string {
	if len(a.ASTs) == 1 && len(a.Quasis) == 2 && a.Quasis[0] == "" && a.Quasis[1] == "" {
		return e.exprText(a.ASTs[0], a.Exprs[0])
	}
	var sb strings.Builder
	sb.WriteByte('`')
	for i, q := range a.Quasis {
		sb.WriteString(escapeTemplateText(q))
		if i < len(a.ASTs) {
			sb.WriteString("${")
			sb.WriteString(e.exprText(a.ASTs[i], a.Exprs[i]))
			sb.WriteByte('}')
		}
	}
	sb.WriteByte('`')
	return sb.String()
}

func escapeTemplateText(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "`", "\\`")
	s = strings.ReplaceAll(s, "${", "\\${")
	return s
}

// jsString renders a double-quoted string literal for generated module
// source.
func jsString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&sb, `\u%04x`, r)
			} else {
				sb.WriteRune(r)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
