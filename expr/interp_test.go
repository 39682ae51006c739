package expr_test

import (
	"testing"
	"time"

	"github.com/loomkit/loom/expr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evalIn(t *testing.T, env expr.Env, src string) expr.Value {
	t.Helper()
	in := expr.NewInterp(env, expr.DefaultBudget())
	v, err := in.EvalString(src)
	require.NoError(t, err, "eval %q", src)
	return v
}

func eval(t *testing.T, src string) expr.Value {
	return evalIn(t, expr.Globals(), src)
}

func TestArithmeticAndConcat(t *testing.T) {
	assert.Equal(t, 7.0, eval(t, "1 + 2 * 3").Num())
	assert.Equal(t, "total: 7", eval(t, "'total: ' + 7").Str())
	assert.Equal(t, 1.0, eval(t, "7 % 3").Num())
}

func TestTemplateLiteralInterpolation(t *testing.T) {
	env := expr.Scope(expr.Globals(), map[string]expr.Value{"n": expr.Number(3)})
	v := evalIn(t, env, "`count: ${n}`")
	assert.Equal(t, "count: 3", v.Str())
}

func TestShortCircuit(t *testing.T) {
	env := expr.Scope(expr.Globals(), map[string]expr.Value{
		"a": expr.Null,
		"b": expr.String("fallback"),
	})
	assert.Equal(t, "fallback", evalIn(t, env, "a ?? b").Str())
	assert.Equal(t, "fallback", evalIn(t, env, "a || b").Str())
	// The right side of a short-circuited && is never evaluated, even when
	// it would fail.
	assert.False(t, evalIn(t, env, "a && missing()").Truthy())
}

func TestMemberAccess(t *testing.T) {
	user := expr.NewObject()
	user.Set("name", expr.String("ada"))
	this := expr.NewObject()
	this.Set("user", expr.ObjectOf(user))
	env := expr.Scope(expr.Globals(), map[string]expr.Value{"this": expr.ObjectOf(this)})

	assert.Equal(t, "ada", evalIn(t, env, "this.user.name").Str())
	assert.Equal(t, expr.KindUndefined, evalIn(t, env, "this.user.missing").Kind())
	assert.Equal(t, expr.KindUndefined, evalIn(t, env, "this.nothing?.name").Kind())
}

func TestFuncPropertyAccess(t *testing.T) {
	stored := 1.0
	get := &expr.Func{
		Name: "count",
		Call: func([]expr.Value) (expr.Value, error) { return expr.Number(stored), nil },
		Props: map[string]expr.Value{
			"set": expr.FuncOf(&expr.Func{Name: "set", Call: func(args []expr.Value) (expr.Value, error) {
				stored = args[0].Num()
				return args[0], nil
			}}),
		},
	}
	this := expr.NewObject()
	this.Set("count", expr.FuncOf(get))
	env := expr.Scope(expr.Globals(), map[string]expr.Value{"this": expr.ObjectOf(this)})

	assert.Equal(t, 1.0, evalIn(t, env, "this.count()").Num())
	assert.Equal(t, 5.0, evalIn(t, env, "this.count.set(this.count() + 4)").Num())
	assert.Equal(t, 5.0, stored)
	assert.Equal(t, expr.KindUndefined, evalIn(t, env, "this.count.missing").Kind())
}

func TestEqualitySemantics(t *testing.T) {
	assert.True(t, eval(t, "1 == '1'").BoolVal())
	assert.False(t, eval(t, "1 === '1'").BoolVal())
	assert.True(t, eval(t, "null == undefined").BoolVal())
	assert.False(t, eval(t, "null === undefined").BoolVal())
}

func TestStrictEqualsIsReferenceIdentityForArrays(t *testing.T) {
	a := expr.NewArray(expr.Number(1))
	b := expr.NewArray(expr.Number(1))
	assert.False(t, expr.StrictEquals(a, b))
	assert.True(t, expr.StrictEquals(a, a))
}

func TestBuiltins(t *testing.T) {
	assert.Equal(t, 2.0, eval(t, "Math.min(3, 2, 5)").Num())
	assert.Equal(t, 5.0, eval(t, "Math.max(3, 2, 5)").Num())
	assert.Equal(t, 4.0, eval(t, "Math.round(3.6)").Num())
	assert.Equal(t, "ABC", eval(t, "'abc'.toUpperCase()").Str())
	assert.Equal(t, "a-b", eval(t, "'a,b'.split(',').join('-')").Str())
	assert.Equal(t, `{"id":1,"name":"x"}`, eval(t, "JSON.stringify({id: 1, name: 'x'})").Str())
	assert.Equal(t, "42", eval(t, "String(42)").Str())
	assert.Equal(t, 42.0, eval(t, "Number('42')").Num())
}

func TestArrowAndArrayMethods(t *testing.T) {
	v := eval(t, "[1, 2, 3].map(x => x * 2).join(',')")
	assert.Equal(t, "2,4,6", v.Str())

	v = eval(t, "[1, 2, 3, 4].filter(x => x % 2 === 0).length")
	assert.Equal(t, 2.0, v.Num())
}

func TestTypeofUnresolvableIsUndefined(t *testing.T) {
	assert.Equal(t, "undefined", eval(t, "typeof nothingHere").Str())
}

func TestUnknownIdentifierIsOutsideSandbox(t *testing.T) {
	in := expr.NewInterp(expr.Globals(), expr.DefaultBudget())
	_, err := in.EvalString("window.location")
	assert.ErrorIs(t, err, expr.ErrOutsideSandbox)
}

func TestStepBudget(t *testing.T) {
	in := expr.NewInterp(expr.Globals(), expr.Budget{MaxSteps: 3})
	_, err := in.EvalString("1 + 2 + 3 + 4 + 5")
	assert.ErrorIs(t, err, expr.ErrBudget)
}

func TestRunawayRecursionHitsBudget(t *testing.T) {
	in := expr.NewInterp(expr.Globals(), expr.Budget{
		MaxSteps: 10000,
		MaxDepth: 32,
		Timeout:  time.Second,
	})
	done := make(chan error, 1)
	go func() {
		_, err := in.EvalString("(f => f(f))(f => f(f))")
		done <- err
	}()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, expr.ErrBudget)
	case <-time.After(5 * time.Second):
		t.Fatal("evaluation did not terminate")
	}
}

func TestCallingNonFunctionFails(t *testing.T) {
	env := expr.Scope(expr.Globals(), map[string]expr.Value{"x": expr.Number(1)})
	in := expr.NewInterp(env, expr.DefaultBudget())
	_, err := in.EvalString("x()")
	assert.ErrorIs(t, err, expr.ErrType)
}
