package compiler

import (
	"errors"
	"strings"

	"github.com/loomkit/loom/expr"
)

var errNotProps = errors.New("props argument is not an object")

// foldedClass is the compile-time view of one component class: every
// non-signal field that resolves to a constant, the initial value of every
// signal field whose constructor argument resolves, and the initial value
// of every module-level cell in the file.
type foldedClass struct {
	signals  map[string]bool
	consts   map[string]expr.Value
	initials map[string]expr.Value
	cells    map[string]expr.Value
}

// foldClass fixed-points the class's field initializers. Fields whose
// initializer cannot be reduced stay unresolved; resolution failure is
// never an error, it just narrows what later passes may fold.
func foldClass(def *componentDef, budget expr.Budget) *foldedClass {
	fc := &foldedClass{
		signals:  def.signalFields(),
		consts:   map[string]expr.Value{},
		initials: map[string]expr.Value{},
		cells:    map[string]expr.Value{},
	}

	// A this member that is a signal accessor or a method is not a value
	// the sandbox can represent; any initializer touching one stays
	// unresolved instead of folding to undefined.
	barred := make(map[string]bool, len(fc.signals)+len(def.Methods))
	for name := range fc.signals {
		barred[name] = true
	}
	for _, m := range def.Methods {
		barred[m] = true
	}

	type pendingField struct {
		name string
		ast  expr.Node
	}
	var pending []pendingField
	for _, f := range def.Fields {
		if f.IsSignal || f.Init == "" {
			continue
		}
		ast, err := expr.Parse(f.Init)
		if err != nil || readsBarred(ast, barred) {
			continue
		}
		pending = append(pending, pendingField{f.Name, ast})
	}

	for changed := true; changed && len(pending) > 0; {
		changed = false
		var next []pendingField
		for _, p := range pending {
			v, err := expr.NewInterp(fc.constEnv(), budget).Eval(p.ast)
			if err != nil {
				next = append(next, p)
				continue
			}
			fc.consts[p.name] = v
			changed = true
		}
		pending = next
	}

	for _, f := range def.Fields {
		if !f.IsSignal || f.SignalInit == "" {
			continue
		}
		ast, err := expr.Parse(f.SignalInit)
		if err != nil || readsBarred(ast, barred) {
			continue
		}
		if v, err := expr.NewInterp(fc.constEnv(), budget).Eval(ast); err == nil {
			fc.initials[f.Name] = v
		}
	}
	return fc
}

// readsBarred reports whether an expression reads a this member from the
// barred set.
func readsBarred(n expr.Node, barred map[string]bool) bool {
	found := false
	expr.Walk(n, func(m expr.Node) bool {
		if x, ok := m.(*expr.Member); ok {
			if id, isIdent := x.X.(*expr.Ident); isIdent && id.Name == "this" && barred[x.Name] {
				found = true
				return false
			}
		}
		return !found
	})
	return found
}

// constEnv resolves this.field for resolved constant fields only. Signal
// fields are deliberately absent: an expression touching one cannot be a
// compile-time constant.
func (fc *foldedClass) constEnv() expr.Env {
	obj := expr.NewObject()
	for name, v := range fc.consts {
		obj.Set(name, v)
	}
	return expr.Scope(expr.Globals(), map[string]expr.Value{"this": expr.ObjectOf(obj)})
}

// initialEnv additionally exposes each resolved signal field and module
// cell as a zero-arg read returning its initial value, which is what
// condition expressions see on first evaluation.
func (fc *foldedClass) initialEnv() expr.Env {
	obj := expr.NewObject()
	for name, v := range fc.consts {
		obj.Set(name, v)
	}
	for name, v := range fc.initials {
		obj.Set(name, initialRead(name, v))
	}
	vars := map[string]expr.Value{"this": expr.ObjectOf(obj)}
	for name, v := range fc.cells {
		vars[name] = initialRead(name, v)
	}
	return expr.Scope(expr.Globals(), vars)
}

func initialRead(name string, v expr.Value) expr.Value {
	return expr.FuncOf(&expr.Func{
		Name: name,
		Call: func(args []expr.Value) (expr.Value, error) {
			return v, nil
		},
	})
}

// foldCells resolves the initial values of file-level signal cells, so a
// condition over one can fold its starting state.
func (fc *foldedClass) foldCells(cells map[string]string, budget expr.Budget) {
	for name, init := range cells {
		ast, err := expr.Parse(init)
		if err != nil {
			continue
		}
		if v, err := expr.NewInterp(fc.constEnv(), budget).Eval(ast); err == nil {
			fc.cells[name] = v
		}
	}
}

// moduleSignals finds const/let/var declarations initialized with the
// signal constructor at any brace depth of the file. Class fields are not
// declarations and never match.
func moduleSignals(source string) map[string]string {
	out := map[string]string{}
	for i := 0; i < len(source); i++ {
		if !identAt(source, i, "signal") {
			continue
		}
		open := skipSpace(source, i+len("signal"))
		if open >= len(source) || source[open] != '(' {
			continue
		}
		end := matchDelim(source, open)
		if end < 0 {
			break
		}
		if name, ok := declNameBefore(source, i); ok {
			out[name] = strings.TrimSpace(source[open+1 : end])
		}
		i = end
	}
	return out
}

// declNameBefore walks left from a signal constructor, accepting only the
// `const name =` / `let name =` / `var name =` shapes.
func declNameBefore(source string, at int) (string, bool) {
	j := at - 1
	back := func() {
		for j >= 0 {
			switch source[j] {
			case ' ', '\t', '\n', '\r':
				j--
			default:
				return
			}
		}
	}
	back()
	if j < 0 || source[j] != '=' {
		return "", false
	}
	j--
	back()
	nameEnd := j + 1
	for j >= 0 && isIdentByte(source[j]) {
		j--
	}
	name := source[j+1 : nameEnd]
	if name == "" {
		return "", false
	}
	back()
	for _, kw := range []string{"const", "let", "var"} {
		start := j + 1 - len(kw)
		if start < 0 || source[start:j+1] != kw {
			continue
		}
		if start > 0 && isIdentByte(source[start-1]) {
			continue
		}
		return name, true
	}
	return "", false
}

// inlineComponentCalls replaces every template hole holding a nested
// component call with fully-constant props by that component's static
// markup. Anything that fails to resolve is left untouched for runtime;
// the skip is reported as an advisory diagnostic. bodyOff is the body's
// byte offset in source, or -1 when unknown (nested repeat bodies).
func (c *Compiler) inlineComponentCalls(source, body string, bodyOff int, fc *foldedClass, def *componentDef) (string, []Diagnostic) {
	if c.registry.Len() == 0 {
		return body, nil
	}
	holes := expr.ScanHoles(body)
	if len(holes) == 0 {
		return body, nil
	}

	var diags []Diagnostic
	out := body
	for i := len(holes) - 1; i >= 0; i-- {
		h := holes[i]
		name, props, ok := componentCall(h.Body, c.registry)
		if !ok {
			continue
		}
		markup, err := c.foldCall(name, props, fc)
		if err != nil {
			msg := "left " + name + " call for runtime: " + err.Error()
			if bodyOff >= 0 {
				diags = append(diags, diagAt(source, def.Path, bodyOff+h.Start, "%s", msg))
			} else {
				diags = append(diags, Diagnostic{Path: def.Path, Message: msg})
			}
			continue
		}
		out = out[:h.Start] + markup + out[h.End:]
	}
	return out, diags
}

// componentCall recognizes Name({…}) holes whose callee is a registered
// component.
func componentCall(body string, reg *Registry) (string, expr.Node, bool) {
	ast, err := expr.Parse(strings.TrimSpace(body))
	if err != nil {
		return "", nil, false
	}
	call, ok := ast.(*expr.Call)
	if !ok {
		return "", nil, false
	}
	callee, ok := call.Callee.(*expr.Ident)
	if !ok {
		return "", nil, false
	}
	if _, registered := reg.Lookup(callee.Name); !registered {
		return "", nil, false
	}
	if len(call.Args) == 0 {
		return callee.Name, nil, true
	}
	return callee.Name, call.Args[0], true
}

// foldCall evaluates the props argument in the constant sandbox and asks
// the registry for the call's static markup. Function-valued and
// unresolvable props reject the fold.
func (c *Compiler) foldCall(name string, propsArg expr.Node, fc *foldedClass) (string, error) {
	var props *expr.Object
	if propsArg != nil {
		v, err := expr.NewInterp(fc.constEnv(), c.budget).Eval(propsArg)
		if err != nil {
			return "", err
		}
		if v.Kind() != expr.KindObject {
			return "", errNotProps
		}
		props = v.Obj()
	}
	return c.registry.RenderStatic(name, props)
}
