package dombind

import (
	"fmt"
	"sort"
	"sync"

	"github.com/loomkit/loom/compiler"
	"github.com/loomkit/loom/dom"
	"github.com/loomkit/loom/styles"
)

// Component is the contract a concrete component type satisfies: the
// markup placed into its root and the style text adopted next to it.
// Factories produce values of this interface; nothing subclasses a base
// type.
type Component interface {
	ProduceMarkup() string
	ProduceStyles() string
}

// Bindable is satisfied by components whose bindings were compiled ahead
// of time. MountComponent runs the program after placing the markup.
type Bindable interface {
	Component
	BindingProgram() *compiler.Program
}

// Compiled adapts one compiler output to the component contract.
type Compiled struct {
	Prog *compiler.Program
	CSS  string
}

func (c Compiled) ProduceMarkup() string             { return c.Prog.Static }
func (c Compiled) ProduceStyles() string             { return c.CSS }
func (c Compiled) BindingProgram() *compiler.Program { return c.Prog }

var _ Bindable = Compiled{}

// Elements maps selectors to component factories, the host-side mirror
// of custom-element definition. A selector defined twice keeps the
// latest factory.
type Elements struct {
	mu        sync.RWMutex
	factories map[string]func() Component
}

func NewElements() *Elements {
	return &Elements{factories: make(map[string]func() Component)}
}

// Define registers a factory for selector. The factory is generic over
// the concrete component type; registration erases it to the interface.
func Define[T Component](e *Elements, selector string, factory func() T) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.factories[selector] = func() Component { return factory() }
}

// New instantiates the component registered for selector.
func (e *Elements) New(selector string) (Component, bool) {
	e.mu.RLock()
	factory, ok := e.factories[selector]
	e.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return factory(), true
}

// Selectors lists the registered selectors, sorted.
func (e *Elements) Selectors() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.factories))
	for sel := range e.factories {
		out = append(out, sel)
	}
	sort.Strings(out)
	return out
}

// MountComponent instantiates the element registered for selector into a
// fresh document: markup placed, styles registered and adopted, and the
// binding program run when the instance carries one.
func MountComponent(e *Elements, selector string, env *Env, reg *styles.Registry) (*Host, error) {
	c, ok := e.New(selector)
	if !ok {
		return nil, fmt.Errorf("mount %s: no element registered", selector)
	}
	doc := dom.NewDocument()
	if err := doc.SetContent(c.ProduceMarkup()); err != nil {
		return nil, fmt.Errorf("mount %s: %w", selector, err)
	}
	host := &Host{Doc: doc, Env: env, cleanup: func() {}}
	if reg != nil {
		if css := c.ProduceStyles(); css != "" {
			reg.Adopt(doc, reg.Register(css))
		}
	}
	if b, ok := c.(Bindable); ok {
		prog := b.BindingProgram()
		cleanup, err := Instantiate(doc, doc.Root(), prog, env)
		if err != nil {
			return nil, fmt.Errorf("mount %s: %w", selector, err)
		}
		host.prog = prog
		host.cleanup = cleanup
	}
	return host, nil
}
