package dombind

import (
	"strings"

	"github.com/loomkit/loom/expr"
	"github.com/loomkit/loom/signals"
)

// Env is the live instance a compiled program runs against: signal
// fields and module cells bound to real signals, plus plain members the
// host registers (constants and native methods). It doubles as the
// expression environment for every evaluator the program carries.
type Env struct {
	sched   *signals.Scheduler
	fields  map[string]*signals.Signal[expr.Value]
	cells   map[string]*signals.Signal[expr.Value]
	this    *expr.Object
	vars    map[string]expr.Value
	globals expr.MapEnv
}

func NewEnv(sched *signals.Scheduler) *Env {
	return &Env{
		sched:   sched,
		fields:  map[string]*signals.Signal[expr.Value]{},
		cells:   map[string]*signals.Signal[expr.Value]{},
		this:    expr.NewObject(),
		vars:    map[string]expr.Value{},
		globals: expr.Globals(),
	}
}

func (e *Env) Scheduler() *signals.Scheduler { return e.sched }

// DefineSignal declares a signal field reachable as this.<name> in
// authored expressions.
func (e *Env) DefineSignal(name string, initial expr.Value) *signals.Signal[expr.Value] {
	sig := signals.NewFunc(e.sched, initial, expr.StrictEquals)
	e.fields[name] = sig
	e.this.Set(name, Accessor(sig))
	return sig
}

// DefineCell declares a module-level signal reachable as a bare
// identifier.
func (e *Env) DefineCell(name string, initial expr.Value) *signals.Signal[expr.Value] {
	sig := signals.NewFunc(e.sched, initial, expr.StrictEquals)
	e.cells[name] = sig
	e.vars[name] = Accessor(sig)
	return sig
}

// DefineMember installs a plain instance member: a constant field or a
// native method event handlers may call.
func (e *Env) DefineMember(name string, v expr.Value) {
	e.this.Set(name, v)
}

// Signal resolves a dependency target, "this.<field>" or a bare cell
// name, to its live signal. Nil when the target was never defined.
func (e *Env) Signal(target string) *signals.Signal[expr.Value] {
	if field, ok := strings.CutPrefix(target, "this."); ok {
		return e.fields[field]
	}
	return e.cells[target]
}

// Lookup implements expr.Env. Bare cells shadow globals; this is the
// instance object.
func (e *Env) Lookup(name string) (expr.Value, bool) {
	if name == "this" {
		return expr.ObjectOf(e.this), true
	}
	if v, ok := e.vars[name]; ok {
		return v, true
	}
	return e.globals.Lookup(name)
}

// Accessor wraps a signal in its authored surface: calling with no
// arguments reads, calling with one (or .set) writes and returns the
// stored value.
func Accessor(sig *signals.Signal[expr.Value]) expr.Value {
	write := func(args []expr.Value) (expr.Value, error) {
		if len(args) == 0 {
			return expr.Undefined, nil
		}
		return sig.Set(args[0]), nil
	}
	get := &expr.Func{
		Name: "signal",
		Call: func(args []expr.Value) (expr.Value, error) {
			if len(args) > 0 {
				return write(args)
			}
			return sig.Get(), nil
		},
	}
	get.Props = map[string]expr.Value{
		"set": expr.FuncOf(&expr.Func{Name: "set", Call: write}),
	}
	return expr.FuncOf(get)
}

// itemEnv resolves one repeat parameter to its row signal's current
// value; everything else falls through to the enclosing scope.
type itemEnv struct {
	parent expr.Env
	name   string
	sig    *signals.Signal[expr.Value]
}

func (e *itemEnv) Lookup(name string) (expr.Value, bool) {
	if name == e.name {
		return e.sig.Get(), true
	}
	return e.parent.Lookup(name)
}
