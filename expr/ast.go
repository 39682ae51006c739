// Package expr parses and evaluates the expression dialect that appears
// inside template holes: literals, template literals, unary/binary/logical
// operators, member access, indexing, calls, object and array construction,
// and arrow functions. Evaluation runs under a hard step/depth/time budget
// against an explicit environment, so it is usable both as the compile-time
// constant folder and as the host-side runtime evaluator.
package expr

// Node is one parsed expression node.
type Node interface {
	node()
}

type (
	// Ident is a bare identifier reference, including `this`.
	Ident struct {
		Name string
	}

	// NumberLit is a numeric literal.
	NumberLit struct {
		Value float64
	}

	// StringLit is a quoted string literal, already unescaped.
	StringLit struct {
		Value string
	}

	// BoolLit is true or false.
	BoolLit struct {
		Value bool
	}

	// NullLit is the null literal.
	NullLit struct{}

	// UndefinedLit is the undefined literal.
	UndefinedLit struct{}

	// TemplateLit is an untagged template literal. Quasis has exactly one
	// more element than Exprs; the pieces interleave Quasis[0], Exprs[0],
	// Quasis[1], ….
	TemplateLit struct {
		Quasis []string
		Exprs  []Node
	}

	// TaggedTemplate is tag`…`, e.g. the html-tagged render body of a
	// repeat callback.
	TaggedTemplate struct {
		Tag   Node
		Quasi *TemplateLit
		// Raw is the unparsed body text between the backticks, preserved
		// because template bodies are compiled by the markup pipeline, not
		// evaluated as expressions.
		Raw string
	}

	// Unary is !x, -x, +x or typeof x.
	Unary struct {
		Op string
		X  Node
	}

	// Binary covers arithmetic, comparison, equality and the
	// short-circuiting &&, || and ?? operators.
	Binary struct {
		Op   string
		X, Y Node
	}

	// Conditional is cond ? then : else.
	Conditional struct {
		Cond, Then, Else Node
	}

	// Member is x.name or x?.name.
	Member struct {
		X        Node
		Name     string
		Optional bool
	}

	// Index is x[key].
	Index struct {
		X   Node
		Key Node
	}

	// Call is callee(args…) or callee?.(args…).
	Call struct {
		Callee   Node
		Args     []Node
		Optional bool
	}

	// ArrayLit is [elems…].
	ArrayLit struct {
		Elems []Node
	}

	// ObjectProp is one key: value entry; Shorthand marks {name}.
	ObjectProp struct {
		Key       string
		Value     Node
		Shorthand bool
	}

	// ObjectLit is {props…}.
	ObjectLit struct {
		Props []ObjectProp
	}

	// Arrow is params => body, expression-bodied only.
	Arrow struct {
		Params []string
		Body   Node
	}
)

func (*Ident) node()          {}
func (*NumberLit) node()      {}
func (*StringLit) node()      {}
func (*BoolLit) node()        {}
func (*NullLit) node()        {}
func (*UndefinedLit) node()   {}
func (*TemplateLit) node()    {}
func (*TaggedTemplate) node() {}
func (*Unary) node()          {}
func (*Binary) node()         {}
func (*Conditional) node()    {}
func (*Member) node()         {}
func (*Index) node()          {}
func (*Call) node()           {}
func (*ArrayLit) node()       {}
func (*ObjectLit) node()      {}
func (*Arrow) node()          {}

// Walk calls fn for n and every child, depth-first. fn returning false
// prunes the subtree.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch x := n.(type) {
	case *TemplateLit:
		for _, e := range x.Exprs {
			Walk(e, fn)
		}
	case *TaggedTemplate:
		Walk(x.Tag, fn)
		Walk(x.Quasi, fn)
	case *Unary:
		Walk(x.X, fn)
	case *Binary:
		Walk(x.X, fn)
		Walk(x.Y, fn)
	case *Conditional:
		Walk(x.Cond, fn)
		Walk(x.Then, fn)
		Walk(x.Else, fn)
	case *Member:
		Walk(x.X, fn)
	case *Index:
		Walk(x.X, fn)
		Walk(x.Key, fn)
	case *Call:
		Walk(x.Callee, fn)
		for _, a := range x.Args {
			Walk(a, fn)
		}
	case *ArrayLit:
		for _, e := range x.Elems {
			Walk(e, fn)
		}
	case *ObjectLit:
		for _, p := range x.Props {
			Walk(p.Value, fn)
		}
	case *Arrow:
		Walk(x.Body, fn)
	}
}
