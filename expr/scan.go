package expr

import "strings"

// Hole is one ${…} occurrence inside template-literal text. Start is the
// offset of the dollar sign, End the offset just past the closing brace, and
// Body the expression text between the braces.
type Hole struct {
	Start int
	End   int
	Body  string
}

// ScanHoles finds every top-level ${…} in text. Nesting is honored: braces,
// quoted strings and nested backtick templates inside a hole do not
// terminate it. An unterminated hole runs to the end of text. The scanner
// never fails; markup that is not hole syntax passes through untouched.
func ScanHoles(text string) []Hole {
	var holes []Hole
	i := 0
	for i < len(text) {
		if text[i] == '\\' && i+1 < len(text) {
			i += 2
			continue
		}
		if text[i] == '$' && i+1 < len(text) && text[i+1] == '{' {
			end := scanHoleEnd(text, i+2)
			holes = append(holes, Hole{Start: i, End: end, Body: text[i+2 : end-1]})
			i = end
			continue
		}
		i++
	}
	return holes
}

// scanHoleEnd returns the offset just past the brace closing a hole whose
// body starts at `start`. Unterminated input returns len(text).
func scanHoleEnd(text string, start int) int {
	depth := 1
	i := start
	for i < len(text) {
		c := text[i]
		switch c {
		case '\\':
			i += 2
			continue
		case '\'', '"':
			i = scanQuoted(text, i)
			continue
		case '`':
			i = scanBacktick(text, i+1)
			continue
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
		i++
	}
	return len(text)
}

// scanQuoted consumes a single- or double-quoted string starting at the
// opening quote and returns the offset just past the closing quote.
func scanQuoted(text string, start int) int {
	q := text[start]
	i := start + 1
	for i < len(text) {
		if text[i] == '\\' {
			i += 2
			continue
		}
		if text[i] == q {
			return i + 1
		}
		i++
	}
	return len(text)
}

// scanBacktick consumes a nested template literal body starting just past
// its opening backtick, honoring holes inside it, and returns the offset
// just past the closing backtick.
func scanBacktick(text string, start int) int {
	i := start
	for i < len(text) {
		switch text[i] {
		case '\\':
			i += 2
			continue
		case '$':
			if i+1 < len(text) && text[i+1] == '{' {
				i = scanHoleEnd(text, i+2)
				continue
			}
		case '`':
			return i + 1
		}
		i++
	}
	return len(text)
}

// SplitArgs splits the argument list of a call such as "repeat(xs, x => …)"
// into top-level argument texts. src is the text between the call's
// parentheses. Commas inside nested parens, brackets, braces, strings and
// template literals do not split.
func SplitArgs(src string) []string {
	var args []string
	depth := 0
	start := 0
	i := 0
	for i < len(src) {
		switch src[i] {
		case '\\':
			i += 2
			continue
		case '\'', '"':
			i = scanQuoted(src, i)
			continue
		case '`':
			i = scanBacktick(src, i+1)
			continue
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(src[start:i]))
				start = i + 1
			}
		}
		i++
	}
	if tail := strings.TrimSpace(src[start:]); tail != "" || len(args) > 0 {
		args = append(args, tail)
	}
	return args
}

// SplitTemplate splits raw template-literal body text into its literal
// quasi pieces and the hole bodies between them. Quasis always has exactly
// one more element than exprs.
func SplitTemplate(raw string) (quasis []string, exprs []string) {
	holes := ScanHoles(raw)
	last := 0
	for _, h := range holes {
		quasis = append(quasis, raw[last:h.Start])
		exprs = append(exprs, h.Body)
		last = h.End
	}
	quasis = append(quasis, raw[last:])
	return quasis, exprs
}
