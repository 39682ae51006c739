package expr

import (
	"strings"
)

// Precedence levels used for minimal re-parenthesization. They mirror the
// parser's binding strengths; a child prints inside parentheses whenever
// its own level is below what its position requires.
const (
	precArrow = iota
	precConditional
	precNullish // also ||
	precAnd
	precEquality
	precRelational
	precAdditive
	precMultiplicative
	precExponent
	precUnary
	precPostfix
	precPrimary
)

// Print renders n back to source text. The output reparses to the same
// tree, which is what code emission relies on.
func Print(n Node) string {
	p := printer{}
	var b strings.Builder
	p.print(&b, n, precArrow)
	return b.String()
}

// PrintRenamed renders n with every occurrence of an identifier found in
// rename replaced by its mapped text. Arrow parameters shadow: under an
// arrow whose parameter list contains a renamed name, that substitution
// is suspended for the body.
func PrintRenamed(n Node, rename map[string]string) string {
	p := printer{rename: rename, shadow: map[string]int{}}
	var b strings.Builder
	p.print(&b, n, precArrow)
	return b.String()
}

type printer struct {
	rename map[string]string
	shadow map[string]int
}

func (p *printer) print(b *strings.Builder, n Node, min int) {
	if prec(n) < min {
		b.WriteString("(")
		p.print(b, n, precArrow)
		b.WriteString(")")
		return
	}
	switch x := n.(type) {
	case *Ident:
		if p.rename != nil && p.shadow[x.Name] == 0 {
			if to, ok := p.rename[x.Name]; ok {
				b.WriteString(to)
				return
			}
		}
		b.WriteString(x.Name)
	case *NumberLit:
		b.WriteString(numberToString(x.Value))
	case *StringLit:
		b.WriteString(quoteString(x.Value))
	case *BoolLit:
		if x.Value {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case *NullLit:
		b.WriteString("null")
	case *UndefinedLit:
		b.WriteString("undefined")
	case *TemplateLit:
		p.printTemplate(b, x)
	case *TaggedTemplate:
		p.print(b, x.Tag, precPostfix)
		b.WriteString("`")
		b.WriteString(x.Raw)
		b.WriteString("`")
	case *Unary:
		b.WriteString(x.Op)
		if x.Op == "typeof" {
			b.WriteString(" ")
		}
		// -(-x) would otherwise print as --x.
		if inner, ok := x.X.(*Unary); ok && signOp(x.Op) && signOp(inner.Op) {
			p.print(b, x.X, precPrimary)
		} else {
			p.print(b, x.X, precUnary)
		}
	case *Binary:
		lv := binaryPrintPrec(x.Op)
		p.print(b, x.X, lv)
		b.WriteString(" ")
		b.WriteString(x.Op)
		b.WriteString(" ")
		p.print(b, x.Y, lv+1)
	case *Conditional:
		p.print(b, x.Cond, precNullish)
		b.WriteString(" ? ")
		p.print(b, x.Then, precConditional)
		b.WriteString(" : ")
		p.print(b, x.Else, precConditional)
	case *Member:
		p.print(b, x.X, precPostfix)
		if x.Optional {
			b.WriteString("?.")
		} else {
			b.WriteString(".")
		}
		b.WriteString(x.Name)
	case *Index:
		p.print(b, x.X, precPostfix)
		b.WriteString("[")
		p.print(b, x.Key, precArrow)
		b.WriteString("]")
	case *Call:
		p.print(b, x.Callee, precPostfix)
		if x.Optional {
			b.WriteString("?.")
		}
		b.WriteString("(")
		for i, a := range x.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			p.print(b, a, precArrow)
		}
		b.WriteString(")")
	case *ArrayLit:
		b.WriteString("[")
		for i, e := range x.Elems {
			if i > 0 {
				b.WriteString(", ")
			}
			p.print(b, e, precArrow)
		}
		b.WriteString("]")
	case *ObjectLit:
		b.WriteString("{")
		for i, prop := range x.Props {
			if i > 0 {
				b.WriteString(", ")
			}
			p.printProp(b, prop)
		}
		b.WriteString("}")
	case *Arrow:
		if len(x.Params) == 1 {
			b.WriteString(x.Params[0])
		} else {
			b.WriteString("(")
			b.WriteString(strings.Join(x.Params, ", "))
			b.WriteString(")")
		}
		b.WriteString(" => ")
		for _, name := range x.Params {
			p.pushShadow(name)
		}
		// An object-literal body reads as a block without the parens.
		if _, ok := x.Body.(*ObjectLit); ok {
			b.WriteString("(")
			p.print(b, x.Body, precArrow)
			b.WriteString(")")
		} else {
			p.print(b, x.Body, precArrow)
		}
		for _, name := range x.Params {
			p.popShadow(name)
		}
	}
}

func (p *printer) printProp(b *strings.Builder, prop ObjectProp) {
	if prop.Shorthand {
		// Shorthand survives only while the name is not being rewritten.
		if id, ok := prop.Value.(*Ident); ok && id.Name == prop.Key {
			if p.rename == nil || p.shadow[prop.Key] > 0 {
				b.WriteString(prop.Key)
				return
			}
			if _, renamed := p.rename[prop.Key]; !renamed {
				b.WriteString(prop.Key)
				return
			}
		}
	}
	if isIdentText(prop.Key) {
		b.WriteString(prop.Key)
	} else {
		b.WriteString(quoteString(prop.Key))
	}
	b.WriteString(": ")
	p.print(b, prop.Value, precArrow)
}

func (p *printer) printTemplate(b *strings.Builder, t *TemplateLit) {
	b.WriteString("`")
	for i, q := range t.Quasis {
		b.WriteString(escapeQuasi(q))
		if i < len(t.Exprs) {
			b.WriteString("${")
			p.print(b, t.Exprs[i], precArrow)
			b.WriteString("}")
		}
	}
	b.WriteString("`")
}

func (p *printer) pushShadow(name string) {
	if p.shadow != nil {
		p.shadow[name]++
	}
}

func (p *printer) popShadow(name string) {
	if p.shadow != nil {
		p.shadow[name]--
	}
}

func prec(n Node) int {
	switch x := n.(type) {
	case *Arrow:
		return precArrow
	case *Conditional:
		return precConditional
	case *Binary:
		return binaryPrintPrec(x.Op)
	case *Unary:
		return precUnary
	case *Member, *Index, *Call, *TaggedTemplate:
		return precPostfix
	default:
		return precPrimary
	}
}

func binaryPrintPrec(op string) int {
	switch op {
	case "??", "||":
		return precNullish
	case "&&":
		return precAnd
	case "===", "!==", "==", "!=":
		return precEquality
	case "<", ">", "<=", ">=":
		return precRelational
	case "+", "-":
		return precAdditive
	case "*", "/", "%":
		return precMultiplicative
	case "**":
		return precExponent
	}
	return precPrimary
}

func signOp(op string) bool {
	return op == "-" || op == "+"
}

func quoteString(s string) string {
	var b strings.Builder
	b.WriteString("\"")
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString("\\\"")
		case '\\':
			b.WriteString("\\\\")
		case '\n':
			b.WriteString("\\n")
		case '\t':
			b.WriteString("\\t")
		case '\r':
			b.WriteString("\\r")
		default:
			b.WriteRune(r)
		}
	}
	b.WriteString("\"")
	return b.String()
}

func escapeQuasi(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "`", "\\`")
	s = strings.ReplaceAll(s, "${", "\\${")
	return s
}

func isIdentText(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		alpha := r == '_' || r == '$' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if !alpha && (i == 0 || r < '0' || r > '9') {
			return false
		}
	}
	return true
}
