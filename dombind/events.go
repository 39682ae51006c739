package dombind

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/loomkit/loom/compiler"
	"github.com/loomkit/loom/dom"
	"github.com/loomkit/loom/expr"
)

// keyNames maps authored key modifiers to DOM key values.
var keyNames = map[string]string{
	"enter":  "Enter",
	"esc":    "Escape",
	"space":  " ",
	"tab":    "Tab",
	"up":     "ArrowUp",
	"down":   "ArrowDown",
	"left":   "ArrowLeft",
	"right":  "ArrowRight",
	"delete": "Delete",
}

// splitHandlerRef parses an element's handler attribute, id:mod1:mod2.
func splitHandlerRef(val string) (string, []string) {
	parts := strings.Split(val, ":")
	return parts[0], parts[1:]
}

// applyModifiers runs the modifier chain for one matched element: the
// rejecting checks first (self, key names), then the prevent and stop
// effects. False means the dispatch walk keeps climbing. Modifiers the
// compiler passed through unrecognized are inert here too.
func applyModifiers(e *dom.Event, el *html.Node, mods []string) bool {
	for _, m := range mods {
		if m == "self" {
			if e.Target != el {
				return false
			}
			continue
		}
		if key, ok := keyNames[m]; ok && e.Key != key {
			return false
		}
	}
	for _, m := range mods {
		switch m {
		case "prevent":
			e.PreventDefault()
		case "stop":
			e.StopPropagation()
		}
	}
	return true
}

// delegate installs the one capture listener an event type gets at the
// root boundary. Dispatch walks target to root; the first element whose
// handler reference is registered and whose modifiers accept the event
// wins.
func (b *binder) delegate(root *html.Node, event string, entries []compiler.HandlerEntry, f frame) {
	table := make(map[string]expr.Node, len(entries))
	for _, h := range entries {
		table[h.ID] = h.AST
	}
	attr := "data-evt-" + event
	remove := b.doc.AddListener(root, event, true, func(e *dom.Event) {
		for n := e.Target; n != nil; n = n.Parent {
			if n.Type == html.ElementNode {
				if val, ok := dom.Attr(n, attr); ok {
					id, mods := splitHandlerRef(val)
					if ast, registered := table[id]; registered && applyModifiers(e, n, mods) {
						b.invokeHandler(f, ast, e)
						return
					}
				}
			}
			if n == root {
				return
			}
		}
	})
	f.sink.add(remove)
}

// bindRowEvents attaches the direct listeners of handlers that close
// over row values; they cannot live in the root delegation table.
func (b *binder) bindRowEvents(s *compiler.Scope, roots []*html.Node, f frame) {
	for i := range s.Events {
		ev := &s.Events[i]
		el := findHandlerOwner(roots, "data-evt-"+ev.Event, ev.ID)
		if el == nil {
			continue
		}
		owner, ast, mods := el, ev.AST, ev.Modifiers
		remove := b.doc.AddListener(el, ev.Event, false, func(e *dom.Event) {
			if applyModifiers(e, owner, mods) {
				b.invokeHandler(f, ast, e)
			}
		})
		f.sink.add(remove)
	}
}

// findHandlerOwner locates the element whose handler attribute carries
// the given id, modifiers stripped.
func findHandlerOwner(roots []*html.Node, attr, id string) *html.Node {
	for _, r := range roots {
		var found *html.Node
		dom.Walk(r, func(n *html.Node) bool {
			if n.Type == html.ElementNode {
				if val, ok := dom.Attr(n, attr); ok {
					if ref, _ := splitHandlerRef(val); ref == id {
						found = n
						return false
					}
				}
			}
			return true
		})
		if found != nil {
			return found
		}
	}
	return nil
}

// invokeHandler evaluates the handler expression in the region's
// environment and calls the result with the synthetic event. A handler
// that does not evaluate to a callable is dropped.
func (b *binder) invokeHandler(f frame, ast expr.Node, e *dom.Event) {
	v, ok := b.eval(f, ast)
	if !ok || v.Kind() != expr.KindFunc {
		return
	}
	_, _ = v.Fn().Call([]expr.Value{eventValue(e)})
}

// eventValue is the authored-surface view of a synthetic event.
func eventValue(e *dom.Event) expr.Value {
	o := expr.NewObject()
	o.Set("type", expr.String(e.Type))
	o.Set("key", expr.String(e.Key))
	o.Set("preventDefault", nativeEffect(e.PreventDefault))
	o.Set("stopPropagation", nativeEffect(e.StopPropagation))
	return expr.ObjectOf(o)
}

func nativeEffect(fn func()) expr.Value {
	return expr.FuncOf(&expr.Func{Call: func([]expr.Value) (expr.Value, error) {
		fn()
		return expr.Undefined, nil
	}})
}
