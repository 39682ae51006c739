package compiler

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/net/html"

	"github.com/loomkit/loom/expr"
)

// Definition is one registered component: the record a template-level
// component call resolves against.
type Definition struct {
	Name     string
	Selector string
	Kind     DefKind
}

// Registry maps component names to their definitions. It is rebuilt fully
// at the start of each build; transforms running on a worker pool only
// re-register what the pre-scan already saw, so the lock is uncontended in
// practice.
type Registry struct {
	mu    sync.RWMutex
	defs  map[string]Definition
	order []string
}

func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

// Add records a definition. A name registered twice keeps the latest
// record, matching source order within a build.
func (r *Registry) Add(def Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.defs[def.Name]; !ok {
		r.order = append(r.order, def.Name)
	}
	r.defs[def.Name] = def
}

// AddSource scans source for definition calls and registers each one.
// The scan is the same one the transform uses, so the registry and the
// compiled output can never disagree about what exists.
func (r *Registry) AddSource(source, path string) int {
	if !strings.Contains(source, "component(") && !strings.Contains(source, "page(") {
		return 0
	}
	defs, _ := scanDefinitions(source, path)
	for _, d := range defs {
		r.Add(Definition{Name: d.Name, Selector: d.Selector, Kind: d.Kind})
	}
	return len(defs)
}

// Lookup resolves a component name.
func (r *Registry) Lookup(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	return def, ok
}

// Names returns the registered names sorted, for stable reporting.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	sort.Strings(names)
	return names
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}

// RenderStatic produces the host-element markup for a component with the
// given props, identical at compile time and runtime: the selector as tag
// name and each prop serialized to an attribute. Props that cannot live
// in an attribute (functions, undefined) reject the render.
func (r *Registry) RenderStatic(name string, props *expr.Object) (string, error) {
	def, ok := r.Lookup(name)
	if !ok {
		return "", fmt.Errorf("component %s is not registered", name)
	}

	var b strings.Builder
	b.WriteString("<")
	b.WriteString(def.Selector)
	if props != nil {
		for _, key := range props.Keys {
			val, _ := props.Get(key)
			text, err := attrText(val)
			if err != nil {
				return "", fmt.Errorf("prop %s of %s: %w", key, name, err)
			}
			b.WriteString(" ")
			b.WriteString(strings.ToLower(key))
			b.WriteString("=\"")
			b.WriteString(html.EscapeString(text))
			b.WriteString("\"")
		}
	}
	b.WriteString("></")
	b.WriteString(def.Selector)
	b.WriteString(">")
	return b.String(), nil
}

func attrText(v expr.Value) (string, error) {
	switch v.Kind() {
	case expr.KindString:
		return v.Str(), nil
	case expr.KindNumber, expr.KindBool:
		return expr.ToString(v), nil
	case expr.KindNull:
		return "", nil
	case expr.KindArray, expr.KindObject:
		return expr.JSONString(v), nil
	default:
		return "", fmt.Errorf("%s value cannot be serialized to an attribute", v.Kind())
	}
}
