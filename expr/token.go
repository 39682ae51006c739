package expr

import (
	"fmt"
	"strings"
)

type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenIdent
	TokenNumber
	TokenString   // quoted; Text holds the decoded value
	TokenTemplate // backtick literal; Text holds the raw body
	TokenPunct    // operator or punctuation; Text holds the spelling
)

func (k TokenKind) String() string {
	switch k {
	case TokenEOF:
		return "end of expression"
	case TokenIdent:
		return "identifier"
	case TokenNumber:
		return "number"
	case TokenString:
		return "string"
	case TokenTemplate:
		return "template literal"
	case TokenPunct:
		return "punctuation"
	}
	return "unknown token"
}

type Token struct {
	Kind TokenKind
	Text string
	Pos  int
}

// multi-character operators, longest first so maximal munch works.
var punctuators = []string{
	"===", "!==", "**", "=>", "?.", "??", "&&", "||", "==", "!=", "<=", ">=",
	"(", ")", "[", "]", "{", "}", ",", ":", ".", "?", "+", "-", "*", "/",
	"%", "!", "<", ">",
}

type lexer struct {
	src string
	pos int
}

func newLexer(src string) *lexer {
	return &lexer{src: src}
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func (lx *lexer) next() (Token, error) {
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			lx.pos++
			continue
		}
		break
	}
	if lx.pos >= len(lx.src) {
		return Token{Kind: TokenEOF, Pos: lx.pos}, nil
	}

	start := lx.pos
	c := lx.src[lx.pos]

	switch {
	case isIdentStart(c):
		for lx.pos < len(lx.src) && isIdentPart(lx.src[lx.pos]) {
			lx.pos++
		}
		return Token{Kind: TokenIdent, Text: lx.src[start:lx.pos], Pos: start}, nil

	case isDigit(c) || (c == '.' && lx.pos+1 < len(lx.src) && isDigit(lx.src[lx.pos+1])):
		lx.pos++
		for lx.pos < len(lx.src) && (isDigit(lx.src[lx.pos]) || lx.src[lx.pos] == '.' || lx.src[lx.pos] == 'e' || lx.src[lx.pos] == 'E' ||
			((lx.src[lx.pos] == '+' || lx.src[lx.pos] == '-') && (lx.src[lx.pos-1] == 'e' || lx.src[lx.pos-1] == 'E'))) {
			lx.pos++
		}
		return Token{Kind: TokenNumber, Text: lx.src[start:lx.pos], Pos: start}, nil

	case c == '\'' || c == '"':
		i := lx.pos + 1
		for i < len(lx.src) && lx.src[i] != c {
			if lx.src[i] == '\\' {
				i++
			}
			i++
		}
		if i >= len(lx.src) {
			return Token{}, fmt.Errorf("unterminated string at offset %d", start)
		}
		decoded := unescape(lx.src[start+1 : i])
		lx.pos = i + 1
		return Token{Kind: TokenString, Text: decoded, Pos: start}, nil

	case c == '`':
		i := lx.pos + 1
		for i < len(lx.src) && lx.src[i] != '`' {
			switch lx.src[i] {
			case '\\':
				i++
			case '$':
				if i+1 < len(lx.src) && lx.src[i+1] == '{' {
					i = scanHoleEnd(lx.src, i+2) - 1
				}
			}
			i++
		}
		if i >= len(lx.src) {
			return Token{}, fmt.Errorf("unterminated template literal at offset %d", start)
		}
		raw := lx.src[start+1 : i]
		lx.pos = i + 1
		return Token{Kind: TokenTemplate, Text: raw, Pos: start}, nil
	}

	for _, p := range punctuators {
		if strings.HasPrefix(lx.src[lx.pos:], p) {
			lx.pos += len(p)
			return Token{Kind: TokenPunct, Text: p, Pos: start}, nil
		}
	}
	return Token{}, fmt.Errorf("unexpected character %q at offset %d", c, start)
}

func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
