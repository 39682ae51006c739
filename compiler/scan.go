// Package compiler turns authored component modules into compiled ones:
// it scans component definitions out of source text, classifies the
// bindings of each render template into an anchor-annotated scope tree,
// folds compile-time-constant subexpressions, and emits the static markup
// plus the bindings-setup source that gets spliced back into the module.
package compiler

import "strings"

// skipQuoted advances past a single- or double-quoted string starting at
// src[i]. An unterminated string runs to the end of the source.
func skipQuoted(src string, i int) int {
	quote := src[i]
	for i++; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case quote:
			return i + 1
		}
	}
	return len(src)
}

// skipTemplate advances past a backtick template starting at src[i],
// honoring escaped backticks and nested ${…} holes.
func skipTemplate(src string, i int) int {
	for i++; i < len(src); {
		switch src[i] {
		case '\\':
			i += 2
		case '`':
			return i + 1
		case '$':
			if i+1 < len(src) && src[i+1] == '{' {
				end := matchDelim(src, i+1)
				if end < 0 {
					return len(src)
				}
				i = end + 1
			} else {
				i++
			}
		default:
			i++
		}
	}
	return len(src)
}

func skipLineComment(src string, i int) int {
	for ; i < len(src); i++ {
		if src[i] == '\n' {
			return i
		}
	}
	return len(src)
}

func skipBlockComment(src string, i int) int {
	end := strings.Index(src[i+2:], "*/")
	if end < 0 {
		return len(src)
	}
	return i + 2 + end + 2
}

// matchDelim returns the index of the delimiter closing the one at
// src[open], or -1 when the source ends first. Strings, templates and
// comments are skipped atomically so their content never unbalances the
// count.
func matchDelim(src string, open int) int {
	opener := src[open]
	var closer byte
	switch opener {
	case '(':
		closer = ')'
	case '[':
		closer = ']'
	case '{':
		closer = '}'
	default:
		return -1
	}
	depth := 0
	for i := open; i < len(src); {
		switch c := src[i]; c {
		case opener:
			depth++
			i++
		case closer:
			depth--
			if depth == 0 {
				return i
			}
			i++
		case '\'', '"':
			i = skipQuoted(src, i)
		case '`':
			i = skipTemplate(src, i)
		case '/':
			switch {
			case i+1 < len(src) && src[i+1] == '/':
				i = skipLineComment(src, i)
			case i+1 < len(src) && src[i+1] == '*':
				i = skipBlockComment(src, i)
			default:
				i++
			}
		default:
			i++
		}
	}
	return -1
}

// skipSpace advances past whitespace and comments.
func skipSpace(src string, i int) int {
	for i < len(src) {
		switch c := src[i]; {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			i = skipLineComment(src, i)
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			i = skipBlockComment(src, i)
		default:
			return i
		}
	}
	return i
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// scanIdent reads an identifier starting at i; an empty result means the
// position does not start one.
func scanIdent(src string, i int) string {
	start := i
	for i < len(src) && isIdentByte(src[i]) {
		if i == start && src[i] >= '0' && src[i] <= '9' {
			return ""
		}
		i++
	}
	return src[start:i]
}

// identAt reports whether the identifier word occurs at src[i] on its own,
// not as a fragment of a longer name or a member access.
func identAt(src string, i int, word string) bool {
	if !strings.HasPrefix(src[i:], word) {
		return false
	}
	if i > 0 && (isIdentByte(src[i-1]) || src[i-1] == '.') {
		return false
	}
	after := i + len(word)
	return after >= len(src) || !isIdentByte(src[after])
}

// readStringLit reads a quoted literal at i and returns its value and the
// index past the closing quote. ok is false when i does not start one.
func readStringLit(src string, i int) (val string, end int, ok bool) {
	if i >= len(src) || (src[i] != '"' && src[i] != '\'') {
		return "", i, false
	}
	quote := src[i]
	var b strings.Builder
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			if j+1 < len(src) {
				j++
				b.WriteByte(src[j])
			}
		case quote:
			return b.String(), j + 1, true
		default:
			b.WriteByte(src[j])
		}
	}
	return "", i, false
}
