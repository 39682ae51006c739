package expr

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// member resolves recv.name: object props, or the builtin method/property
// surface for arrays, strings and numbers. Methods return bound closures.
func (in *Interp) member(recv Value, name string) (Value, error) {
	switch recv.Kind() {
	case KindObject:
		if v, ok := recv.Obj().Get(name); ok {
			return v, nil
		}
		return Undefined, nil

	case KindArray:
		return arrayMember(recv.Arr(), name)

	case KindString:
		return stringMember(recv.Str(), name)

	case KindNumber:
		if name == "toFixed" {
			n := recv.Num()
			return native("toFixed", func(args []Value) (Value, error) {
				digits := 0
				if len(args) > 0 {
					digits = int(ToNumber(args[0]))
				}
				return String(strconv.FormatFloat(n, 'f', digits, 64)), nil
			}), nil
		}
		return Undefined, nil

	case KindFunc:
		if v, ok := recv.Fn().Props[name]; ok {
			return v, nil
		}
		return Undefined, nil

	case KindUndefined, KindNull:
		return Undefined, fmt.Errorf("%w: cannot read %q of %s", ErrType, name, recv.Kind())
	}
	return Undefined, nil
}

func native(name string, call func(args []Value) (Value, error)) Value {
	return FuncOf(&Func{Name: name, Call: call})
}

func arg(args []Value, i int) Value {
	if i < len(args) {
		return args[i]
	}
	return Undefined
}

func arrayMember(a *Array, name string) (Value, error) {
	switch name {
	case "length":
		return Number(float64(len(a.Elems))), nil
	case "join":
		return native("join", func(args []Value) (Value, error) {
			sep := ","
			if len(args) > 0 {
				sep = ToString(args[0])
			}
			parts := make([]string, len(a.Elems))
			for i, e := range a.Elems {
				if e.IsNullish() {
					continue
				}
				parts[i] = ToString(e)
			}
			return String(strings.Join(parts, sep)), nil
		}), nil
	case "includes":
		return native("includes", func(args []Value) (Value, error) {
			want := arg(args, 0)
			for _, e := range a.Elems {
				if StrictEquals(e, want) {
					return True, nil
				}
			}
			return False, nil
		}), nil
	case "indexOf":
		return native("indexOf", func(args []Value) (Value, error) {
			want := arg(args, 0)
			for i, e := range a.Elems {
				if StrictEquals(e, want) {
					return Number(float64(i)), nil
				}
			}
			return Number(-1), nil
		}), nil
	case "slice":
		return native("slice", func(args []Value) (Value, error) {
			start, end := sliceBounds(len(a.Elems), args)
			out := append([]Value(nil), a.Elems[start:end]...)
			return NewArray(out...), nil
		}), nil
	case "concat":
		return native("concat", func(args []Value) (Value, error) {
			out := append([]Value(nil), a.Elems...)
			for _, v := range args {
				if v.Kind() == KindArray {
					out = append(out, v.Arr().Elems...)
				} else {
					out = append(out, v)
				}
			}
			return NewArray(out...), nil
		}), nil
	case "map":
		return native("map", func(args []Value) (Value, error) {
			fn := arg(args, 0)
			if fn.Kind() != KindFunc {
				return Undefined, fmt.Errorf("%w: map callback is not callable", ErrType)
			}
			out := make([]Value, 0, len(a.Elems))
			for i, e := range a.Elems {
				v, err := fn.Fn().Call([]Value{e, Number(float64(i))})
				if err != nil {
					return Undefined, err
				}
				out = append(out, v)
			}
			return NewArray(out...), nil
		}), nil
	case "filter":
		return native("filter", func(args []Value) (Value, error) {
			fn := arg(args, 0)
			if fn.Kind() != KindFunc {
				return Undefined, fmt.Errorf("%w: filter callback is not callable", ErrType)
			}
			var out []Value
			for i, e := range a.Elems {
				v, err := fn.Fn().Call([]Value{e, Number(float64(i))})
				if err != nil {
					return Undefined, err
				}
				if v.Truthy() {
					out = append(out, e)
				}
			}
			return NewArray(out...), nil
		}), nil
	}
	return Undefined, nil
}

func stringMember(s string, name string) (Value, error) {
	switch name {
	case "length":
		return Number(float64(len(s))), nil
	case "toUpperCase":
		return native("toUpperCase", func([]Value) (Value, error) {
			return String(strings.ToUpper(s)), nil
		}), nil
	case "toLowerCase":
		return native("toLowerCase", func([]Value) (Value, error) {
			return String(strings.ToLower(s)), nil
		}), nil
	case "trim":
		return native("trim", func([]Value) (Value, error) {
			return String(strings.TrimSpace(s)), nil
		}), nil
	case "slice":
		return native("slice", func(args []Value) (Value, error) {
			start, end := sliceBounds(len(s), args)
			return String(s[start:end]), nil
		}), nil
	case "split":
		return native("split", func(args []Value) (Value, error) {
			sep := ToString(arg(args, 0))
			parts := strings.Split(s, sep)
			out := make([]Value, len(parts))
			for i, p := range parts {
				out[i] = String(p)
			}
			return NewArray(out...), nil
		}), nil
	case "includes":
		return native("includes", func(args []Value) (Value, error) {
			return Bool(strings.Contains(s, ToString(arg(args, 0)))), nil
		}), nil
	case "startsWith":
		return native("startsWith", func(args []Value) (Value, error) {
			return Bool(strings.HasPrefix(s, ToString(arg(args, 0)))), nil
		}), nil
	case "endsWith":
		return native("endsWith", func(args []Value) (Value, error) {
			return Bool(strings.HasSuffix(s, ToString(arg(args, 0)))), nil
		}), nil
	case "charAt":
		return native("charAt", func(args []Value) (Value, error) {
			i := int(ToNumber(arg(args, 0)))
			if i < 0 || i >= len(s) {
				return String(""), nil
			}
			return String(s[i : i+1]), nil
		}), nil
	}
	return Undefined, nil
}

// sliceBounds clamps optional start/end arguments the way slice does,
// including negative offsets from the end.
func sliceBounds(n int, args []Value) (int, int) {
	norm := func(v Value, def int) int {
		if v.Kind() == KindUndefined {
			return def
		}
		i := int(ToNumber(v))
		if i < 0 {
			i += n
		}
		if i < 0 {
			i = 0
		}
		if i > n {
			i = n
		}
		return i
	}
	start := norm(arg(args, 0), 0)
	end := norm(arg(args, 1), n)
	if end < start {
		end = start
	}
	return start, end
}

// Globals returns the safe builtin environment shared by compile-time
// folding and host-side evaluation: Math, JSON.stringify and the primitive
// conversion functions. Nothing here can reach I/O.
func Globals() MapEnv {
	mathObj := NewObject()
	math1 := func(name string, f func(float64) float64) {
		mathObj.Set(name, native(name, func(args []Value) (Value, error) {
			return Number(f(ToNumber(arg(args, 0)))), nil
		}))
	}
	math1("abs", math.Abs)
	math1("floor", math.Floor)
	math1("ceil", math.Ceil)
	math1("round", math.Round)
	mathObj.Set("min", native("min", func(args []Value) (Value, error) {
		out := math.Inf(1)
		for _, a := range args {
			out = math.Min(out, ToNumber(a))
		}
		return Number(out), nil
	}))
	mathObj.Set("max", native("max", func(args []Value) (Value, error) {
		out := math.Inf(-1)
		for _, a := range args {
			out = math.Max(out, ToNumber(a))
		}
		return Number(out), nil
	}))

	jsonObj := NewObject()
	jsonObj.Set("stringify", native("stringify", func(args []Value) (Value, error) {
		return String(JSONString(arg(args, 0))), nil
	}))

	return MapEnv{
		"Math": ObjectOf(mathObj),
		"JSON": ObjectOf(jsonObj),
		"String": native("String", func(args []Value) (Value, error) {
			return String(ToString(arg(args, 0))), nil
		}),
		"Number": native("Number", func(args []Value) (Value, error) {
			return Number(ToNumber(arg(args, 0))), nil
		}),
		"Boolean": native("Boolean", func(args []Value) (Value, error) {
			return Bool(arg(args, 0).Truthy()), nil
		}),
		"NaN":      Number(math.NaN()),
		"Infinity": Number(math.Inf(1)),
	}
}

var globalNames = map[string]bool{
	"Math": true, "JSON": true, "String": true, "Number": true,
	"Boolean": true, "NaN": true, "Infinity": true,
}

// IsGlobal reports whether name is bound in the builtin environment.
func IsGlobal(name string) bool { return globalNames[name] }
