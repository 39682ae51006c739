package dombind

import (
	"golang.org/x/net/html"

	"github.com/loomkit/loom/compiler"
	"github.com/loomkit/loom/dom"
	"github.com/loomkit/loom/expr"
	"github.com/loomkit/loom/signals"
)

// managedItem is one rendered row: its value signal, its nodes, and the
// cleanups of everything bound inside it.
type managedItem struct {
	sig      *signals.Signal[expr.Value]
	nodes    []*html.Node
	cleanups *cleanups
}

// repeater drives one repeat region. Reconciliation is positional and
// non-keyed: common-prefix value writes, tail shrink with cleanup, tail
// grow with fresh rows. A swap therefore reaches the DOM as two value
// mutations, not a move.
type repeater struct {
	b     *binder
	scope *compiler.Scope
	f     frame

	anchor     *html.Node
	items      []*managedItem
	empty      []*html.Node
	emptyShown bool
}

func (b *binder) bindRepeat(s *compiler.Scope, roots []*html.Node, f frame) {
	anchor := findByAttr(roots, "id", s.Anchor)
	if anchor == nil {
		b.errf("repeat anchor %q not in rendered tree", s.Anchor)
		return
	}
	r := &repeater{b: b, scope: s, f: f, anchor: anchor}

	if vals, ok := r.evalArray(); ok {
		r.reconcile(vals)
	}
	rerun := func() {
		if vals, ok := r.evalArray(); ok {
			r.reconcile(vals)
		}
	}

	if s.Kind == compiler.ScopeNestedRepeat && len(f.params) > 0 {
		// The nested array derives from the enclosing row's value, so
		// the enclosing item signal is the sole driver.
		if sig := f.items[f.params[len(f.params)-1]]; sig != nil {
			f.sink.add(sig.Subscribe(func(expr.Value) { rerun() }, true))
		}
	} else {
		b.subscribeAll(f, s.Deps, s.ItemDeps, rerun)
	}

	// When the region's owner goes away its current rows go with it.
	f.sink.add(r.teardown)
}

func (r *repeater) evalArray() ([]expr.Value, bool) {
	v, ok := r.b.eval(r.f, r.scope.ArrayAST)
	if !ok || v.Kind() != expr.KindArray {
		return nil, false
	}
	return v.Arr().Elems, true
}

func (r *repeater) reconcile(vals []expr.Value) {
	// Common prefix: the signal drops equal writes, so only rows whose
	// value actually changed notify their subscriptions.
	n := len(vals)
	if len(r.items) < n {
		n = len(r.items)
	}
	for i := 0; i < n; i++ {
		r.items[i].sig.Set(vals[i])
	}

	for i := len(r.items) - 1; i >= len(vals); i-- {
		it := r.items[i]
		it.cleanups.run()
		for _, nd := range it.nodes {
			dom.Remove(nd)
		}
	}
	if len(vals) < len(r.items) {
		r.items = r.items[:len(vals)]
	}

	if len(vals) > 0 {
		r.hideEmpty()
	}
	for i := len(r.items); i < len(vals); i++ {
		r.items = append(r.items, r.addRow(vals[i]))
	}
	if len(vals) == 0 {
		r.showEmpty()
	}
}

// addRow renders one fresh row before the anchor and initializes its
// bindings with the item parameter bound to the row's own signal.
func (r *repeater) addRow(v expr.Value) *managedItem {
	it := &managedItem{
		sig:      signals.NewFunc(r.b.env.sched, v, expr.StrictEquals),
		cleanups: &cleanups{},
	}
	nodes, err := dom.ParseFragment(r.scope.HTML)
	if err != nil {
		return it
	}
	it.nodes = nodes
	for _, nd := range nodes {
		r.anchor.Parent.InsertBefore(nd, r.anchor)
	}
	r.b.bindScope(r.scope, nodes, r.f.withItem(r.scope.ItemParam, it.sig, it.cleanups))
	return it
}

func (r *repeater) showEmpty() {
	if r.scope.EmptyHTML == "" || r.emptyShown {
		return
	}
	if r.empty == nil {
		nodes, err := dom.ParseFragment(r.scope.EmptyHTML)
		if err != nil {
			return
		}
		r.empty = nodes
	}
	for _, nd := range r.empty {
		r.anchor.Parent.InsertBefore(nd, r.anchor)
	}
	r.emptyShown = true
}

func (r *repeater) hideEmpty() {
	if !r.emptyShown {
		return
	}
	for _, nd := range r.empty {
		dom.Remove(nd)
	}
	r.emptyShown = false
}

func (r *repeater) teardown() {
	for _, it := range r.items {
		it.cleanups.run()
	}
}
