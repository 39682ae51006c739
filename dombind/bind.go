// Package dombind executes compiled binding programs against the
// in-memory document: the same ordered call sequence the generated
// initializeBindings source performs in the browser, driven by real
// signals so the runtime semantics are testable end to end.
package dombind

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/loomkit/loom/compiler"
	"github.com/loomkit/loom/dom"
	"github.com/loomkit/loom/expr"
	"github.com/loomkit/loom/signals"
)

// cleanups collects the unsubscribes and teardown hooks of one region
// owner: the mounted root or a single repeat row.
type cleanups struct {
	fns []func()
}

func (c *cleanups) add(fn func()) { c.fns = append(c.fns, fn) }

func (c *cleanups) run() {
	for _, fn := range c.fns {
		fn()
	}
	c.fns = nil
}

// frame is the instantiation context of one region: the expression
// environment, the repeat parameters in scope (innermost last), and the
// sink collecting cleanups.
type frame struct {
	env    expr.Env
	items  map[string]*signals.Signal[expr.Value]
	params []string
	sink   *cleanups
}

// withItem opens a row context: the parameter shadows outer bindings
// and cleanups switch to the row's own list.
func (f frame) withItem(name string, sig *signals.Signal[expr.Value], sink *cleanups) frame {
	items := make(map[string]*signals.Signal[expr.Value], len(f.items)+1)
	for k, v := range f.items {
		items[k] = v
	}
	items[name] = sig
	params := make([]string, 0, len(f.params)+1)
	params = append(params, f.params...)
	params = append(params, name)
	return frame{
		env:    &itemEnv{parent: f.env, name: name, sig: sig},
		items:  items,
		params: params,
		sink:   sink,
	}
}

type binder struct {
	doc *dom.Document
	env *Env
	err error
}

// Instantiate executes prog's binding program inside root: text,
// attribute and style bindings, conditional and repeat regions, and the
// delegated event tables. The returned cleanup unsubscribes everything
// the mount registered. A missing anchor in the static tree reports an
// error; the first one wins.
func Instantiate(doc *dom.Document, root *html.Node, prog *compiler.Program, env *Env) (cleanup func(), err error) {
	b := &binder{doc: doc, env: env}
	sink := &cleanups{}
	f := frame{env: env, sink: sink}
	b.bindScope(prog.Root, []*html.Node{root}, f)
	for _, typ := range prog.EventTypes() {
		b.delegate(root, typ, prog.HandlersFor(typ), f)
	}
	return sink.run, b.err
}

func (b *binder) errf(format string, args ...any) {
	if b.err == nil {
		b.err = fmt.Errorf(format, args...)
	}
}

// bindScope wires one region's bindings into its rendered nodes in the
// generated order: texts, attributes, child regions, then row events.
func (b *binder) bindScope(s *compiler.Scope, roots []*html.Node, f frame) {
	for i := range s.Texts {
		b.bindText(&s.Texts[i], roots, f)
	}
	for i := range s.Attrs {
		b.bindAttr(&s.Attrs[i], roots, f)
	}
	for _, c := range s.Children {
		switch c.Kind {
		case compiler.ScopeIf, compiler.ScopeIfExpr:
			b.bindConditional(c, roots, f)
		case compiler.ScopeRepeat, compiler.ScopeNestedRepeat:
			b.bindRepeat(c, roots, f)
		}
	}
	b.bindRowEvents(s, roots, f)
}

// eval runs one expression under the runtime budget. A failed
// evaluation reports not-ok instead of tearing the binding down.
func (b *binder) eval(f frame, ast expr.Node) (expr.Value, bool) {
	if ast == nil {
		return expr.Undefined, false
	}
	v, err := expr.NewInterp(f.env, expr.DefaultBudget()).Eval(ast)
	if err != nil {
		return expr.Undefined, false
	}
	return v, true
}

// subscribeAll re-runs fn when any named dependency fires. Component
// deps resolve through the instance, item deps through the row chain.
func (b *binder) subscribeAll(f frame, deps, itemDeps []string, fn func()) {
	for _, d := range deps {
		if sig := b.env.Signal(d); sig != nil {
			f.sink.add(sig.Subscribe(func(expr.Value) { fn() }, true))
		}
	}
	for _, p := range itemDeps {
		if sig := f.items[p]; sig != nil {
			f.sink.add(sig.Subscribe(func(expr.Value) { fn() }, true))
		}
	}
}

// bindText keeps a dedicated text node right after the comment marker,
// so static text following the marker is never clobbered.
func (b *binder) bindText(t *compiler.TextBinding, roots []*html.Node, f frame) {
	anchor := findComment(roots, t.Anchor)
	if anchor == nil {
		b.errf("text anchor %q not in rendered tree", t.Anchor)
		return
	}
	txt := dom.NewText("")
	dom.InsertAfter(anchor, txt)
	render := func() {
		if v, ok := b.eval(f, t.AST); ok {
			txt.Data = expr.ToString(v)
		}
	}
	render()
	b.subscribeAll(f, t.Deps, t.ItemDeps, render)
}

// bindAttr re-renders the whole attribute value from its literal runs
// and expression holes. Style bindings are attribute bindings with the
// name fixed to style.
func (b *binder) bindAttr(a *compiler.AttrBinding, roots []*html.Node, f frame) {
	owner := findByAttr(roots, "data-loom-id", a.Owner)
	if owner == nil {
		b.errf("attribute owner %q not in rendered tree", a.Owner)
		return
	}
	render := func() {
		var sb strings.Builder
		for i, q := range a.Quasis {
			sb.WriteString(q)
			if i < len(a.ASTs) {
				if v, ok := b.eval(f, a.ASTs[i]); ok {
					sb.WriteString(expr.ToString(v))
				}
			}
		}
		dom.SetAttr(owner, a.Name, sb.String())
	}
	render()
	b.subscribeAll(f, a.Deps, a.ItemDeps, render)
}

func findComment(roots []*html.Node, data string) *html.Node {
	for _, r := range roots {
		if n := dom.FindComment(r, data); n != nil {
			return n
		}
	}
	return nil
}

func findByAttr(roots []*html.Node, key, val string) *html.Node {
	for _, r := range roots {
		if n := dom.FindByAttr(r, key, val); n != nil {
			return n
		}
	}
	return nil
}
