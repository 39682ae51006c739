package expr

import (
	"fmt"
	"strconv"
)

// Parser turns one expression string into an AST. It is a conventional
// recursive-descent parser with precedence climbing for binary operators.
type Parser struct {
	lx  *lexer
	tok Token
	err error
}

// Parse parses src as a single expression. Trailing input after the
// expression is an error.
func Parse(src string) (Node, error) {
	p := &Parser{lx: newLexer(src)}
	p.advance()
	if p.err != nil {
		return nil, p.err
	}
	n := p.parseExpr()
	if p.err != nil {
		return nil, p.err
	}
	if p.tok.Kind != TokenEOF {
		return nil, fmt.Errorf("unexpected %s %q at offset %d", p.tok.Kind, p.tok.Text, p.tok.Pos)
	}
	return n, nil
}

func (p *Parser) advance() {
	if p.err != nil {
		return
	}
	tok, err := p.lx.next()
	if err != nil {
		p.err = err
		p.tok = Token{Kind: TokenEOF, Pos: p.lx.pos}
		return
	}
	p.tok = tok
}

func (p *Parser) fail(format string, args ...any) {
	if p.err == nil {
		p.err = fmt.Errorf(format, args...)
	}
}

func (p *Parser) isPunct(text string) bool {
	return p.tok.Kind == TokenPunct && p.tok.Text == text
}

func (p *Parser) expectPunct(text string) {
	if !p.isPunct(text) {
		p.fail("expected %q, got %q at offset %d", text, p.tok.Text, p.tok.Pos)
		return
	}
	p.advance()
}

// save/restore let the parser look ahead across an arbitrary token run,
// which is how `(a, b) => …` is told apart from a parenthesized expression.
type parserState struct {
	pos int
	tok Token
}

func (p *Parser) save() parserState {
	return parserState{pos: p.lx.pos, tok: p.tok}
}

func (p *Parser) restore(s parserState) {
	p.lx.pos = s.pos
	p.tok = s.tok
	p.err = nil
}

func (p *Parser) parseExpr() Node {
	if p.err != nil {
		return &UndefinedLit{}
	}
	if n, ok := p.tryParseArrow(); ok {
		return n
	}
	return p.parseConditional()
}

// tryParseArrow recognizes `ident => body` and `(a, b) => body`. On any
// mismatch the parser rewinds and the caller proceeds as a normal
// expression.
func (p *Parser) tryParseArrow() (Node, bool) {
	st := p.save()

	var params []string
	switch {
	case p.tok.Kind == TokenIdent && !isKeywordLit(p.tok.Text):
		params = []string{p.tok.Text}
		p.advance()
	case p.isPunct("("):
		p.advance()
		for !p.isPunct(")") {
			if p.tok.Kind != TokenIdent {
				p.restore(st)
				return nil, false
			}
			params = append(params, p.tok.Text)
			p.advance()
			if p.isPunct(",") {
				p.advance()
			} else if !p.isPunct(")") {
				p.restore(st)
				return nil, false
			}
		}
		p.advance()
	default:
		return nil, false
	}

	if !p.isPunct("=>") {
		p.restore(st)
		return nil, false
	}
	p.advance()
	body := p.parseExpr()
	return &Arrow{Params: params, Body: body}, true
}

func (p *Parser) parseConditional() Node {
	cond := p.parseBinary(0)
	if !p.isPunct("?") {
		return cond
	}
	p.advance()
	then := p.parseExpr()
	p.expectPunct(":")
	els := p.parseExpr()
	return &Conditional{Cond: cond, Then: then, Else: els}
}

// binaryPrec returns the precedence for an infix operator, or -1.
func binaryPrec(op string) int {
	switch op {
	case "??", "||":
		return 1
	case "&&":
		return 2
	case "==", "!=", "===", "!==":
		return 3
	case "<", ">", "<=", ">=":
		return 4
	case "+", "-":
		return 5
	case "*", "/", "%":
		return 6
	case "**":
		return 7
	}
	return -1
}

func (p *Parser) parseBinary(minPrec int) Node {
	left := p.parseUnary()
	for p.tok.Kind == TokenPunct {
		prec := binaryPrec(p.tok.Text)
		if prec < 0 || prec < minPrec {
			break
		}
		op := p.tok.Text
		p.advance()
		right := p.parseBinary(prec + 1)
		left = &Binary{Op: op, X: left, Y: right}
	}
	return left
}

func (p *Parser) parseUnary() Node {
	if p.tok.Kind == TokenPunct && (p.tok.Text == "!" || p.tok.Text == "-" || p.tok.Text == "+") {
		op := p.tok.Text
		p.advance()
		return &Unary{Op: op, X: p.parseUnary()}
	}
	if p.tok.Kind == TokenIdent && p.tok.Text == "typeof" {
		p.advance()
		return &Unary{Op: "typeof", X: p.parseUnary()}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() Node {
	n := p.parsePrimary()
	for p.err == nil {
		switch {
		case p.isPunct("."):
			p.advance()
			if p.tok.Kind != TokenIdent {
				p.fail("expected property name at offset %d", p.tok.Pos)
				return n
			}
			n = &Member{X: n, Name: p.tok.Text}
			p.advance()
		case p.isPunct("?."):
			p.advance()
			if p.isPunct("(") {
				n = p.parseCall(n, true)
				continue
			}
			if p.tok.Kind != TokenIdent {
				p.fail("expected property name at offset %d", p.tok.Pos)
				return n
			}
			n = &Member{X: n, Name: p.tok.Text, Optional: true}
			p.advance()
		case p.isPunct("["):
			p.advance()
			key := p.parseExpr()
			p.expectPunct("]")
			n = &Index{X: n, Key: key}
		case p.isPunct("("):
			n = p.parseCall(n, false)
		case p.tok.Kind == TokenTemplate:
			quasi := p.templateNode(p.tok.Text)
			n = &TaggedTemplate{Tag: n, Quasi: quasi, Raw: p.tok.Text}
			p.advance()
		default:
			return n
		}
	}
	return n
}

func (p *Parser) parseCall(callee Node, optional bool) Node {
	p.expectPunct("(")
	var args []Node
	for p.err == nil && !p.isPunct(")") {
		args = append(args, p.parseExpr())
		if p.isPunct(",") {
			p.advance()
		} else {
			break
		}
	}
	p.expectPunct(")")
	return &Call{Callee: callee, Args: args, Optional: optional}
}

func isKeywordLit(name string) bool {
	switch name {
	case "true", "false", "null", "undefined", "typeof":
		return true
	}
	return false
}

func (p *Parser) parsePrimary() Node {
	tok := p.tok
	switch tok.Kind {
	case TokenNumber:
		f, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			p.fail("bad number %q at offset %d", tok.Text, tok.Pos)
			return &NumberLit{}
		}
		p.advance()
		return &NumberLit{Value: f}

	case TokenString:
		p.advance()
		return &StringLit{Value: tok.Text}

	case TokenTemplate:
		p.advance()
		return p.templateNode(tok.Text)

	case TokenIdent:
		p.advance()
		switch tok.Text {
		case "true":
			return &BoolLit{Value: true}
		case "false":
			return &BoolLit{Value: false}
		case "null":
			return &NullLit{}
		case "undefined":
			return &UndefinedLit{}
		}
		return &Ident{Name: tok.Text}

	case TokenPunct:
		switch tok.Text {
		case "(":
			p.advance()
			n := p.parseExpr()
			p.expectPunct(")")
			return n
		case "[":
			p.advance()
			var elems []Node
			for p.err == nil && !p.isPunct("]") {
				elems = append(elems, p.parseExpr())
				if p.isPunct(",") {
					p.advance()
				} else {
					break
				}
			}
			p.expectPunct("]")
			return &ArrayLit{Elems: elems}
		case "{":
			return p.parseObject()
		}
	}
	p.fail("unexpected %s %q at offset %d", tok.Kind, tok.Text, tok.Pos)
	return &UndefinedLit{}
}

func (p *Parser) parseObject() Node {
	p.expectPunct("{")
	var props []ObjectProp
	for p.err == nil && !p.isPunct("}") {
		var key string
		switch p.tok.Kind {
		case TokenIdent, TokenString, TokenNumber:
			key = p.tok.Text
		default:
			p.fail("expected object key at offset %d", p.tok.Pos)
			return &ObjectLit{Props: props}
		}
		p.advance()
		if p.isPunct(":") {
			p.advance()
			props = append(props, ObjectProp{Key: key, Value: p.parseExpr()})
		} else {
			props = append(props, ObjectProp{Key: key, Value: &Ident{Name: key}, Shorthand: true})
		}
		if p.isPunct(",") {
			p.advance()
		} else {
			break
		}
	}
	p.expectPunct("}")
	return &ObjectLit{Props: props}
}

// templateNode parses the raw body of a template literal into its quasi
// pieces and sub-expressions.
func (p *Parser) templateNode(raw string) *TemplateLit {
	quasis, bodies := SplitTemplate(raw)
	t := &TemplateLit{Quasis: make([]string, len(quasis))}
	for i, q := range quasis {
		t.Quasis[i] = unescape(q)
	}
	for _, b := range bodies {
		sub, err := Parse(b)
		if err != nil {
			p.fail("in template hole: %v", err)
			sub = &UndefinedLit{}
		}
		t.Exprs = append(t.Exprs, sub)
	}
	return t
}
