package expr

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

type Kind int

const (
	KindUndefined Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
	KindFunc
)

func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindFunc:
		return "function"
	}
	return "unknown"
}

// Array boxes element storage so two Values are strictly equal only when
// they share the same box, mirroring reference identity.
type Array struct {
	Elems []Value
}

// Object preserves key insertion order so serialized output is
// deterministic.
type Object struct {
	Props map[string]Value
	Keys  []string
}

func NewObject() *Object {
	return &Object{Props: map[string]Value{}}
}

func (o *Object) Set(key string, v Value) {
	if _, ok := o.Props[key]; !ok {
		o.Keys = append(o.Keys, key)
	}
	o.Props[key] = v
}

func (o *Object) Get(key string) (Value, bool) {
	v, ok := o.Props[key]
	return v, ok
}

// Func is a callable value: a native builtin or an arrow closure. Props
// carries function-object properties, so a callable can expose members
// the way a signal accessor exposes set and subscribe.
type Func struct {
	Name  string
	Call  func(args []Value) (Value, error)
	Props map[string]Value
}

// Value is one dynamic value flowing through evaluation, the per-item
// signals of list rendering, and CTFE prop resolution.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	arr  *Array
	obj  *Object
	fn   *Func
}

var (
	Undefined = Value{kind: KindUndefined}
	Null      = Value{kind: KindNull}
	True      = Value{kind: KindBool, b: true}
	False     = Value{kind: KindBool}
)

func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

func Number(f float64) Value   { return Value{kind: KindNumber, n: f} }
func String(s string) Value    { return Value{kind: KindString, s: s} }
func ArrayOf(a *Array) Value   { return Value{kind: KindArray, arr: a} }
func ObjectOf(o *Object) Value { return Value{kind: KindObject, obj: o} }
func FuncOf(f *Func) Value     { return Value{kind: KindFunc, fn: f} }

func NewArray(elems ...Value) Value {
	return ArrayOf(&Array{Elems: elems})
}

func (v Value) Kind() Kind      { return v.kind }
func (v Value) BoolVal() bool   { return v.b }
func (v Value) Num() float64    { return v.n }
func (v Value) Str() string     { return v.s }
func (v Value) Arr() *Array     { return v.arr }
func (v Value) Obj() *Object    { return v.obj }
func (v Value) Fn() *Func       { return v.fn }
func (v Value) IsNullish() bool { return v.kind == KindUndefined || v.kind == KindNull }

// Truthy follows the host language's coercion: false, 0, NaN, "", null and
// undefined are falsy; everything else is truthy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindUndefined, KindNull:
		return false
	case KindBool:
		return v.b
	case KindNumber:
		return v.n != 0 && !math.IsNaN(v.n)
	case KindString:
		return v.s != ""
	}
	return true
}

func (v Value) TypeOf() string {
	switch v.kind {
	case KindUndefined:
		return "undefined"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindFunc:
		return "function"
	}
	return "object"
}

// StrictEquals is the === check: same kind and same primitive value, or the
// same array/object/function reference.
func StrictEquals(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindUndefined, KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		return a.n == b.n
	case KindString:
		return a.s == b.s
	case KindArray:
		return a.arr == b.arr
	case KindObject:
		return a.obj == b.obj
	case KindFunc:
		return a.fn == b.fn
	}
	return false
}

// LooseEquals is the == check: strict equality plus null == undefined and
// number/string/bool coercion.
func LooseEquals(a, b Value) bool {
	if a.kind == b.kind {
		return StrictEquals(a, b)
	}
	if a.IsNullish() && b.IsNullish() {
		return true
	}
	if a.IsNullish() || b.IsNullish() {
		return false
	}
	na, aok := coerceNumber(a)
	nb, bok := coerceNumber(b)
	return aok && bok && na == nb
}

func coerceNumber(v Value) (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.n, true
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	case KindString:
		return stringToNumber(v.s), true
	}
	return 0, false
}

func stringToNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// ToNumber converts v the way arithmetic does.
func ToNumber(v Value) float64 {
	switch v.kind {
	case KindNumber:
		return v.n
	case KindBool:
		if v.b {
			return 1
		}
		return 0
	case KindString:
		return stringToNumber(v.s)
	case KindNull:
		return 0
	}
	return math.NaN()
}

// ToString converts v the way text interpolation does.
func ToString(v Value) string {
	switch v.kind {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindNumber:
		return numberToString(v.n)
	case KindString:
		return v.s
	case KindArray:
		parts := make([]string, len(v.arr.Elems))
		for i, e := range v.arr.Elems {
			if e.IsNullish() {
				parts[i] = ""
				continue
			}
			parts[i] = ToString(e)
		}
		return strings.Join(parts, ",")
	case KindObject:
		return "[object Object]"
	case KindFunc:
		return "function " + v.fn.Name
	}
	return ""
}

func numberToString(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// JSONString serializes v as compact JSON. Functions and undefined inside
// arrays serialize as null; object props holding them are dropped, matching
// the host serializer.
func JSONString(v Value) string {
	var b strings.Builder
	writeJSON(&b, v)
	return b.String()
}

func writeJSON(b *strings.Builder, v Value) {
	switch v.kind {
	case KindUndefined, KindFunc:
		b.WriteString("null")
	case KindNull:
		b.WriteString("null")
	case KindBool:
		if v.b {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case KindNumber:
		if math.IsNaN(v.n) || math.IsInf(v.n, 0) {
			b.WriteString("null")
			return
		}
		b.WriteString(numberToString(v.n))
	case KindString:
		b.WriteString(strconv.Quote(v.s))
	case KindArray:
		b.WriteByte('[')
		for i, e := range v.arr.Elems {
			if i > 0 {
				b.WriteByte(',')
			}
			writeJSON(b, e)
		}
		b.WriteByte(']')
	case KindObject:
		b.WriteByte('{')
		first := true
		for _, k := range v.obj.Keys {
			pv := v.obj.Props[k]
			if pv.kind == KindUndefined || pv.kind == KindFunc {
				continue
			}
			if !first {
				b.WriteByte(',')
			}
			first = false
			b.WriteString(strconv.Quote(k))
			b.WriteByte(':')
			writeJSON(b, pv)
		}
		b.WriteByte('}')
	}
}

// SortedKeys returns an object's keys in lexical order, for displays that
// should not depend on authoring order.
func SortedKeys(o *Object) []string {
	keys := append([]string(nil), o.Keys...)
	sort.Strings(keys)
	return keys
}
