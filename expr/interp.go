package expr

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrBudget reports that evaluation exceeded its step, depth or time
	// budget.
	ErrBudget = errors.New("evaluation budget exceeded")
	// ErrOutsideSandbox reports a reference to anything not provided by the
	// environment or the safe builtin subset.
	ErrOutsideSandbox = errors.New("reference outside sandbox")
	// ErrType reports an operation applied to a value that cannot support
	// it, such as calling a non-function.
	ErrType = errors.New("type error")
)

// Env resolves bare identifiers.
type Env interface {
	Lookup(name string) (Value, bool)
}

// MapEnv is the basic environment.
type MapEnv map[string]Value

func (e MapEnv) Lookup(name string) (Value, bool) {
	v, ok := e[name]
	return v, ok
}

type scopeEnv struct {
	parent Env
	vars   map[string]Value
}

func (e *scopeEnv) Lookup(name string) (Value, bool) {
	if v, ok := e.vars[name]; ok {
		return v, true
	}
	if e.parent == nil {
		return Undefined, false
	}
	return e.parent.Lookup(name)
}

// Scope returns an environment that resolves vars first and falls back to
// parent.
func Scope(parent Env, vars map[string]Value) Env {
	return &scopeEnv{parent: parent, vars: vars}
}

// Budget bounds one evaluation. Zero fields mean unlimited, which only the
// tests use; production callers pass DefaultBudget or tighter.
type Budget struct {
	MaxSteps int
	MaxDepth int
	Timeout  time.Duration
}

func DefaultBudget() Budget {
	return Budget{MaxSteps: 100000, MaxDepth: 64, Timeout: 50 * time.Millisecond}
}

// Interp evaluates parsed expressions against an environment. An Interp is
// single-goroutine, like everything downstream of a scheduler.
type Interp struct {
	env      Env
	budget   Budget
	steps    int
	depth    int
	deadline time.Time
}

func NewInterp(env Env, budget Budget) *Interp {
	return &Interp{env: env, budget: budget}
}

// Eval evaluates n from a fresh budget.
func (in *Interp) Eval(n Node) (Value, error) {
	in.steps = 0
	in.depth = 0
	in.deadline = time.Time{}
	if in.budget.Timeout > 0 {
		in.deadline = time.Now().Add(in.budget.Timeout)
	}
	return in.eval(n)
}

// EvalString parses and evaluates src.
func (in *Interp) EvalString(src string) (Value, error) {
	n, err := Parse(src)
	if err != nil {
		return Undefined, err
	}
	return in.Eval(n)
}

func (in *Interp) step() error {
	in.steps++
	if in.budget.MaxSteps > 0 && in.steps > in.budget.MaxSteps {
		return fmt.Errorf("%w: %d steps", ErrBudget, in.steps)
	}
	if !in.deadline.IsZero() && in.steps%128 == 0 && time.Now().After(in.deadline) {
		return fmt.Errorf("%w: timeout", ErrBudget)
	}
	return nil
}

func (in *Interp) eval(n Node) (Value, error) {
	if err := in.step(); err != nil {
		return Undefined, err
	}
	switch x := n.(type) {
	case *Ident:
		v, ok := in.env.Lookup(x.Name)
		if !ok {
			return Undefined, fmt.Errorf("%w: %q", ErrOutsideSandbox, x.Name)
		}
		return v, nil

	case *NumberLit:
		return Number(x.Value), nil
	case *StringLit:
		return String(x.Value), nil
	case *BoolLit:
		return Bool(x.Value), nil
	case *NullLit:
		return Null, nil
	case *UndefinedLit:
		return Undefined, nil

	case *TemplateLit:
		return in.evalTemplate(x)

	case *TaggedTemplate:
		// Tagged templates are markup, compiled by the template pipeline;
		// they have no value here.
		return Undefined, fmt.Errorf("%w: tagged template", ErrOutsideSandbox)

	case *Unary:
		return in.evalUnary(x)

	case *Binary:
		return in.evalBinary(x)

	case *Conditional:
		cond, err := in.eval(x.Cond)
		if err != nil {
			return Undefined, err
		}
		if cond.Truthy() {
			return in.eval(x.Then)
		}
		return in.eval(x.Else)

	case *Member:
		recv, err := in.eval(x.X)
		if err != nil {
			return Undefined, err
		}
		if x.Optional && recv.IsNullish() {
			return Undefined, nil
		}
		return in.member(recv, x.Name)

	case *Index:
		return in.evalIndex(x)

	case *Call:
		return in.evalCall(x)

	case *ArrayLit:
		elems := make([]Value, 0, len(x.Elems))
		for _, e := range x.Elems {
			v, err := in.eval(e)
			if err != nil {
				return Undefined, err
			}
			elems = append(elems, v)
		}
		return NewArray(elems...), nil

	case *ObjectLit:
		obj := NewObject()
		for _, p := range x.Props {
			v, err := in.eval(p.Value)
			if err != nil {
				return Undefined, err
			}
			obj.Set(p.Key, v)
		}
		return ObjectOf(obj), nil

	case *Arrow:
		return in.closure(x), nil
	}
	return Undefined, fmt.Errorf("%w: unsupported expression %T", ErrOutsideSandbox, n)
}

// closure captures the defining environment; invoking it binds parameters
// in a child scope and shares the interpreter's budget.
func (in *Interp) closure(a *Arrow) Value {
	captured := in.env
	return FuncOf(&Func{
		Name: "anonymous",
		Call: func(args []Value) (Value, error) {
			if in.budget.MaxDepth > 0 && in.depth >= in.budget.MaxDepth {
				return Undefined, fmt.Errorf("%w: call depth %d", ErrBudget, in.depth)
			}
			vars := make(map[string]Value, len(a.Params))
			for i, p := range a.Params {
				if i < len(args) {
					vars[p] = args[i]
				} else {
					vars[p] = Undefined
				}
			}
			saved := in.env
			in.env = Scope(captured, vars)
			in.depth++
			v, err := in.eval(a.Body)
			in.depth--
			in.env = saved
			return v, err
		},
	})
}

func (in *Interp) evalTemplate(t *TemplateLit) (Value, error) {
	var b []byte
	for i, q := range t.Quasis {
		b = append(b, q...)
		if i < len(t.Exprs) {
			v, err := in.eval(t.Exprs[i])
			if err != nil {
				return Undefined, err
			}
			b = append(b, ToString(v)...)
		}
	}
	return String(string(b)), nil
}

func (in *Interp) evalUnary(u *Unary) (Value, error) {
	v, err := in.eval(u.X)
	if err != nil {
		if u.Op == "typeof" && errors.Is(err, ErrOutsideSandbox) {
			// typeof of an unresolvable name is "undefined", as in the host
			// language.
			return String("undefined"), nil
		}
		return Undefined, err
	}
	switch u.Op {
	case "!":
		return Bool(!v.Truthy()), nil
	case "-":
		return Number(-ToNumber(v)), nil
	case "+":
		return Number(ToNumber(v)), nil
	case "typeof":
		return String(v.TypeOf()), nil
	}
	return Undefined, fmt.Errorf("%w: unary %q", ErrOutsideSandbox, u.Op)
}

func (in *Interp) evalBinary(b *Binary) (Value, error) {
	switch b.Op {
	case "&&":
		l, err := in.eval(b.X)
		if err != nil || !l.Truthy() {
			return l, err
		}
		return in.eval(b.Y)
	case "||":
		l, err := in.eval(b.X)
		if err != nil || l.Truthy() {
			return l, err
		}
		return in.eval(b.Y)
	case "??":
		l, err := in.eval(b.X)
		if err != nil || !l.IsNullish() {
			return l, err
		}
		return in.eval(b.Y)
	}

	l, err := in.eval(b.X)
	if err != nil {
		return Undefined, err
	}
	r, err := in.eval(b.Y)
	if err != nil {
		return Undefined, err
	}
	return binaryOp(b.Op, l, r)
}

func binaryOp(op string, l, r Value) (Value, error) {
	switch op {
	case "+":
		if l.Kind() == KindString || r.Kind() == KindString {
			return String(ToString(l) + ToString(r)), nil
		}
		return Number(ToNumber(l) + ToNumber(r)), nil
	case "-":
		return Number(ToNumber(l) - ToNumber(r)), nil
	case "*":
		return Number(ToNumber(l) * ToNumber(r)), nil
	case "/":
		return Number(ToNumber(l) / ToNumber(r)), nil
	case "%":
		return Number(math.Mod(ToNumber(l), ToNumber(r))), nil
	case "**":
		return Number(math.Pow(ToNumber(l), ToNumber(r))), nil
	case "===":
		return Bool(StrictEquals(l, r)), nil
	case "!==":
		return Bool(!StrictEquals(l, r)), nil
	case "==":
		return Bool(LooseEquals(l, r)), nil
	case "!=":
		return Bool(!LooseEquals(l, r)), nil
	case "<", ">", "<=", ">=":
		return compare(op, l, r), nil
	}
	return Undefined, fmt.Errorf("%w: operator %q", ErrOutsideSandbox, op)
}

func compare(op string, l, r Value) Value {
	if l.Kind() == KindString && r.Kind() == KindString {
		switch op {
		case "<":
			return Bool(l.Str() < r.Str())
		case ">":
			return Bool(l.Str() > r.Str())
		case "<=":
			return Bool(l.Str() <= r.Str())
		default:
			return Bool(l.Str() >= r.Str())
		}
	}
	ln, rn := ToNumber(l), ToNumber(r)
	if math.IsNaN(ln) || math.IsNaN(rn) {
		return False
	}
	switch op {
	case "<":
		return Bool(ln < rn)
	case ">":
		return Bool(ln > rn)
	case "<=":
		return Bool(ln <= rn)
	default:
		return Bool(ln >= rn)
	}
}

func (in *Interp) evalIndex(x *Index) (Value, error) {
	recv, err := in.eval(x.X)
	if err != nil {
		return Undefined, err
	}
	key, err := in.eval(x.Key)
	if err != nil {
		return Undefined, err
	}
	switch recv.Kind() {
	case KindArray:
		i := int(ToNumber(key))
		if i < 0 || i >= len(recv.Arr().Elems) {
			return Undefined, nil
		}
		return recv.Arr().Elems[i], nil
	case KindObject:
		if v, ok := recv.Obj().Get(ToString(key)); ok {
			return v, nil
		}
		return Undefined, nil
	case KindString:
		i := int(ToNumber(key))
		if i < 0 || i >= len(recv.Str()) {
			return Undefined, nil
		}
		return String(recv.Str()[i : i+1]), nil
	}
	return Undefined, fmt.Errorf("%w: cannot index %s", ErrType, recv.Kind())
}

func (in *Interp) evalCall(c *Call) (Value, error) {
	callee, err := in.eval(c.Callee)
	if err != nil {
		return Undefined, err
	}
	if c.Optional && callee.IsNullish() {
		return Undefined, nil
	}
	if callee.Kind() != KindFunc {
		return Undefined, fmt.Errorf("%w: %s is not callable", ErrType, callee.Kind())
	}
	args := make([]Value, 0, len(c.Args))
	for _, a := range c.Args {
		v, err := in.eval(a)
		if err != nil {
			return Undefined, err
		}
		args = append(args, v)
	}
	return callee.Fn().Call(args)
}
