package compiler

import (
	"sort"

	"github.com/loomkit/loom/expr"
)

// ScopeKind is the flavor of a dynamic region.
type ScopeKind int

const (
	// ScopeRoot is the component's own template, always live.
	ScopeRoot ScopeKind = iota
	// ScopeIf guards a region on a single signal read.
	ScopeIf
	// ScopeIfExpr guards a region on a compound expression, re-evaluated
	// whenever any dependency fires.
	ScopeIfExpr
	// ScopeRepeat renders one region per array element.
	ScopeRepeat
	// ScopeNestedRepeat is a repeat inside another repeat's item template;
	// its anchor is found by searching the parent item's nodes.
	ScopeNestedRepeat
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeRoot:
		return "root"
	case ScopeIf:
		return "if"
	case ScopeIfExpr:
		return "if-expr"
	case ScopeRepeat:
		return "repeat"
	case ScopeNestedRepeat:
		return "nested-repeat"
	}
	return "unknown"
}

// TextBinding subscribes a text slot to the signals its expression reads.
type TextBinding struct {
	Anchor   string
	Expr     string
	AST      expr.Node
	Deps     []string
	ItemDeps []string
}

// AttrBinding re-renders one attribute from its quasis and expressions.
type AttrBinding struct {
	Owner    string
	Name     string
	Style    bool
	Quasis   []string
	Exprs    []string
	ASTs     []expr.Node
	Deps     []string
	ItemDeps []string
}

// EventBinding is an item-scoped handler, attached directly to each
// rendered row because its expression closes over the item value.
type EventBinding struct {
	ID        string
	Event     string
	Modifiers []string
	Handler   string
	AST       expr.Node
	ItemDeps  []string
}

// HandlerEntry is one row of the root delegation table.
type HandlerEntry struct {
	ID        string
	Event     string
	Modifiers []string
	Handler   string
	AST       expr.Node
}

// Scope is one node of the region tree overlaid on a parsed template.
// The zero anchors ("b0", "b1", …) are assigned in document order, so
// identical input always yields identical ids.
type Scope struct {
	Kind   ScopeKind
	Anchor string

	// Conditional scopes. Negate marks the else branch of a two-branch
	// conditional: the region shows when the condition is falsy.
	Cond    string
	CondAST expr.Node
	Negate  bool

	// Repeat scopes.
	Array     string
	ArrayAST  expr.Node
	ItemParam string
	EmptyHTML string

	// Deps are signal field names; ItemDeps are enclosing repeat item
	// parameters the driving expression closes over.
	Deps     []string
	ItemDeps []string

	// HTML is the region's fragment markup. For conditionals whose initial
	// state is statically known to be shown, the content element sits
	// directly in the static template and ContentAttr/ContentVal locate it.
	HTML         string
	ContentAttr  string
	ContentVal   string
	InitialKnown bool
	InitialShown bool

	Texts    []TextBinding
	Attrs    []AttrBinding
	Events   []EventBinding
	Children []*Scope
}

// Program is one compiled component: the static shadow markup, the scope
// tree the setup source is printed from, and the delegation tables.
type Program struct {
	Name        string
	Selector    string
	Kind        DefKind
	Static      string
	Setup       string
	Uses        []string
	Root        *Scope
	Handlers    []HandlerEntry
	Fingerprint uint64
}

// EventTypes lists the delegated event types, sorted.
func (p *Program) EventTypes() []string {
	seen := map[string]bool{}
	var types []string
	for _, h := range p.Handlers {
		if !seen[h.Event] {
			seen[h.Event] = true
			types = append(types, h.Event)
		}
	}
	sort.Strings(types)
	return types
}

// HandlersFor returns the delegation entries for one event type in
// document order.
func (p *Program) HandlersFor(event string) []HandlerEntry {
	var out []HandlerEntry
	for _, h := range p.Handlers {
		if h.Event == event {
			out = append(out, h)
		}
	}
	return out
}

// ScopeCount reports the number of dynamic regions, the root excluded.
func (p *Program) ScopeCount() int {
	count := -1
	var walk func(*Scope)
	walk = func(s *Scope) {
		count++
		for _, c := range s.Children {
			walk(c)
		}
	}
	walk(p.Root)
	return count
}

// BindingCount reports the total number of leaf bindings.
func (p *Program) BindingCount() int {
	count := len(p.Handlers)
	var walk func(*Scope)
	walk = func(s *Scope) {
		count += len(s.Texts) + len(s.Attrs) + len(s.Events)
		for _, c := range s.Children {
			walk(c)
		}
	}
	walk(p.Root)
	return count
}
