package dombind

import (
	"golang.org/x/net/html"

	"github.com/loomkit/loom/compiler"
	"github.com/loomkit/loom/dom"
)

// conditional is one show/hide region. Content nodes are created once
// and retained across toggles, so subscriptions made by the nested
// initializer stay valid; hiding swaps in a fresh placeholder and never
// tears nested bindings down.
type conditional struct {
	b     *binder
	scope *compiler.Scope
	f     frame

	placeholder *html.Node
	content     []*html.Node
	showing     bool
	initialized bool
}

func (b *binder) bindConditional(s *compiler.Scope, roots []*html.Node, f frame) {
	c := &conditional{b: b, scope: s, f: f}

	if s.InitialKnown && s.InitialShown && s.ContentVal != "" {
		// The static template rendered the content element directly.
		el := findByAttr(roots, s.ContentAttr, s.ContentVal)
		if el == nil {
			b.errf("conditional content %s=%q not in rendered tree", s.ContentAttr, s.ContentVal)
			return
		}
		c.content = []*html.Node{el}
		c.showing = true
		c.init()
	} else {
		ph := findByAttr(roots, "id", s.Anchor)
		if ph == nil {
			b.errf("conditional anchor %q not in rendered tree", s.Anchor)
			return
		}
		c.placeholder = ph
	}

	// The static tree already encodes the initial state; this toggles
	// only when the condition disagrees with it.
	c.toggle(c.eval())
	b.subscribeAll(f, s.Deps, s.ItemDeps, func() { c.toggle(c.eval()) })
}

// eval returns the region's target state. An evaluation failure keeps
// the current state.
func (c *conditional) eval() bool {
	v, ok := c.b.eval(c.f, c.scope.CondAST)
	if !ok {
		return c.showing
	}
	shown := v.Truthy()
	if c.scope.Negate {
		shown = !shown
	}
	return shown
}

func (c *conditional) toggle(shown bool) {
	if shown == c.showing {
		return
	}
	if shown {
		c.show()
	} else {
		c.hide()
	}
}

func (c *conditional) show() {
	if c.content == nil {
		nodes, err := dom.ParseFragment(c.scope.HTML)
		if err != nil || len(nodes) == 0 {
			return
		}
		c.content = nodes
	}
	dom.ReplaceWith(c.placeholder, c.content...)
	c.placeholder = nil
	c.showing = true
	c.init()
}

func (c *conditional) hide() {
	ph := placeholderFor(c.scope.Anchor)
	dom.ReplaceWith(c.content[0], ph)
	for _, n := range c.content[1:] {
		dom.Remove(n)
	}
	c.placeholder = ph
	c.showing = false
}

// init runs the nested initializer at most once per binding instance.
// Later shows reattach the same nodes with their bindings still live.
func (c *conditional) init() {
	if c.initialized {
		return
	}
	c.initialized = true
	c.b.bindScope(c.scope, c.content, c.f)
}

func placeholderFor(id string) *html.Node {
	ph := dom.NewElement("template")
	dom.SetAttr(ph, "id", id)
	return ph
}
