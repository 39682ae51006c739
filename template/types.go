// Package template parses one component render body (the text of an
// html-tagged template literal) into an element tree plus a flat list of
// typed bindings with exact source spans.
//
// Parsing is three passes, in the order preprocess-then-walk compilers use:
// expression holes are masked into opaque slot tokens, directive syntax is
// normalized into well-formed data attributes, and the result is parsed
// with the HTML5 fragment algorithm, which recovers from any malformed
// markup instead of failing. The tree walk then lifts slot tokens back out
// as bindings.
package template

import "golang.org/x/net/html"

type BindingKind int

const (
	KindText BindingKind = iota
	KindAttribute
	KindStyle
	KindWhen
	KindWhenElse
	KindRepeat
	KindEvent
)

func (k BindingKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindAttribute:
		return "attribute"
	case KindStyle:
		return "style"
	case KindWhen:
		return "when"
	case KindWhenElse:
		return "whenElse"
	case KindRepeat:
		return "repeat"
	case KindEvent:
		return "event"
	}
	return "unknown"
}

// Span is a half-open byte range into the original template body.
type Span struct {
	Start int
	End   int
}

// Binding is one directive occurrence found in the template.
type Binding struct {
	Kind BindingKind

	// El is the owning element, nil when the binding sits at the fragment
	// root. Node is the exact text node holding the slot for Text, Repeat
	// and WhenElse bindings.
	El   *html.Node
	Node *html.Node

	// Slot is the mask token number, used to locate the hole inside
	// Node.Data or an attribute value during generation.
	Slot int

	// Span addresses the directive in the original body: the ${…} hole for
	// text and block bindings, the full quoted pseudo-attribute for when,
	// and the full @event=${…} run for events.
	Span Span

	// Expr is the driving expression text: the interpolation for Text, the
	// condition for When, the array expression for Repeat, the condition
	// for WhenElse, the handler for Event.
	Expr string

	// Attribute and style bindings: the attribute name and the composite
	// value split around its holes. Quasis always has one more element than
	// Exprs.
	AttrName string
	Quasis   []string
	Exprs    []string
	Slots    []int

	// Event bindings.
	Event     string
	Modifiers []string

	// Repeat: the item parameter name, the raw item template body, and the
	// optional raw empty-state template body.
	ItemParam string
	ItemBody  string
	EmptyBody string

	// WhenElse: raw branch template bodies.
	ThenBody string
	ElseBody string

	// Broken is a non-empty reason when the directive was recognized but
	// its shape is unusable; the classifier reports it and emits nothing.
	Broken string
}

// Parsed is the parse result for one render body.
type Parsed struct {
	Body     string
	Roots    []*html.Node
	Bindings []Binding
	Warnings []string
}

// BindingsOf returns the bindings of one kind, in document order.
func (p *Parsed) BindingsOf(kind BindingKind) []Binding {
	var out []Binding
	for _, b := range p.Bindings {
		if b.Kind == kind {
			out = append(out, b)
		}
	}
	return out
}
