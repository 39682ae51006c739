package compiler

import (
	"strings"
)

// DefKind distinguishes routable pages from plain components.
type DefKind string

const (
	KindComponent DefKind = "component"
	KindPage      DefKind = "page"
)

// field is one class-body property with its initializer source. Signal
// fields record the constructor argument separately so initial values can
// be folded without treating the cell itself as a constant.
type field struct {
	Name       string
	Init       string
	IsSignal   bool
	SignalInit string
}

// componentDef is one component("sel", class Name {…}) occurrence, with
// the splice points the transform needs.
type componentDef struct {
	Name     string
	Selector string
	Kind     DefKind
	Path     string

	Fields  []field
	Methods []string

	// Selector literal span, including quotes.
	SelStart int
	SelEnd   int

	// html`…` span inside produceMarkup: MarkupStart is the h of html,
	// MarkupEnd is just past the closing backtick, and the body sits at
	// [BodyStart, BodyEnd).
	MarkupStart int
	MarkupEnd   int
	BodyStart   int
	BodyEnd     int

	// InsertAt is where initializeBindings goes: just past the closing
	// brace of produceMarkup.
	InsertAt int

	HasStyles bool
}

func (d *componentDef) templateBody(src string) string {
	return src[d.BodyStart:d.BodyEnd]
}

func (d *componentDef) signalFields() map[string]bool {
	out := make(map[string]bool, len(d.Fields))
	for _, f := range d.Fields {
		if f.IsSignal {
			out[f.Name] = true
		}
	}
	return out
}

// scanDefinitions finds every component/page definition call in source.
// Definitions whose shape cannot be understood are skipped with a
// diagnostic rather than failing the file.
func scanDefinitions(source, path string) ([]*componentDef, []Diagnostic) {
	var defs []*componentDef
	var diags []Diagnostic

	for i := 0; i < len(source); {
		switch source[i] {
		case '\'', '"':
			i = skipQuoted(source, i)
			continue
		case '`':
			i = skipTemplate(source, i)
			continue
		case '/':
			if i+1 < len(source) && source[i+1] == '/' {
				i = skipLineComment(source, i)
				continue
			}
			if i+1 < len(source) && source[i+1] == '*' {
				i = skipBlockComment(source, i)
				continue
			}
		}

		var kind DefKind
		switch {
		case identAt(source, i, "component"):
			kind = KindComponent
		case identAt(source, i, "page"):
			kind = KindPage
		default:
			i++
			continue
		}

		open := skipSpace(source, i+len(string(kind)))
		if open >= len(source) || source[open] != '(' {
			i += len(string(kind))
			continue
		}
		callEnd := matchDelim(source, open)
		if callEnd < 0 {
			diags = append(diags, diagAt(source, path, i, "unterminated %s(…) definition call", kind))
			break
		}

		def, ok := scanDefinition(source, path, kind, open, callEnd, &diags)
		if ok {
			defs = append(defs, def)
		}
		i = callEnd + 1
	}
	return defs, diags
}

func scanDefinition(source, path string, kind DefKind, open, callEnd int, diags *[]Diagnostic) (*componentDef, bool) {
	selStart := skipSpace(source, open+1)
	selector, afterSel, ok := readStringLit(source, selStart)
	if !ok {
		*diags = append(*diags, diagAt(source, path, open, "%s definition needs a selector string literal", kind))
		return nil, false
	}

	i := skipSpace(source, afterSel)
	if i >= len(source) || source[i] != ',' {
		*diags = append(*diags, diagAt(source, path, open, "%s definition needs a class argument", kind))
		return nil, false
	}
	i = skipSpace(source, i+1)
	if !identAt(source, i, "class") {
		*diags = append(*diags, diagAt(source, path, i, "%s definition argument must be a class expression", kind))
		return nil, false
	}
	i = skipSpace(source, i+len("class"))

	name := scanIdent(source, i)
	if name != "" {
		i = skipSpace(source, i+len(name))
	}
	// extends Base clauses are tolerated and ignored.
	if identAt(source, i, "extends") {
		i = skipSpace(source, i+len("extends"))
		for i < len(source) && (isIdentByte(source[i]) || source[i] == '.') {
			i++
		}
		i = skipSpace(source, i)
	}
	if i >= len(source) || source[i] != '{' {
		*diags = append(*diags, diagAt(source, path, i, "class %s has no body", name))
		return nil, false
	}
	bodyEnd := matchDelim(source, i)
	if bodyEnd < 0 || bodyEnd > callEnd {
		*diags = append(*diags, diagAt(source, path, i, "class %s body is unterminated", name))
		return nil, false
	}

	def := &componentDef{
		Name:     name,
		Selector: selector,
		Kind:     kind,
		Path:     path,
		SelStart: selStart,
		SelEnd:   afterSel,
	}
	if name == "" {
		def.Name = selector
	}
	scanMembers(source, path, def, i+1, bodyEnd, diags)

	if def.MarkupStart == 0 {
		*diags = append(*diags, diagAt(source, path, i, "class %s has no produceMarkup html template", def.Name))
		return nil, false
	}
	return def, true
}

// scanMembers walks the top-level members of a class body span.
func scanMembers(source, path string, def *componentDef, start, end int, diags *[]Diagnostic) {
	i := start
	for {
		i = skipSpace(source, i)
		if i >= end {
			return
		}
		if source[i] == ';' {
			i++
			continue
		}

		for _, mod := range []string{"static", "readonly", "public", "private", "protected", "async"} {
			if identAt(source, i, mod) {
				i = skipSpace(source, i+len(mod))
			}
		}

		name := scanIdent(source, i)
		if name == "" {
			// Not a recognizable member; resync at the next semicolon or
			// closing brace at this level.
			i = resyncMember(source, i, end)
			continue
		}
		i = skipSpace(source, i+len(name))

		// Optional ? and a type annotation.
		if i < end && source[i] == '?' {
			i = skipSpace(source, i+1)
		}
		if i < end && source[i] == ':' {
			i = skipAnnotation(source, i+1, end)
		}

		switch {
		case i < end && source[i] == '=':
			init, next := scanInitializer(source, i+1, end)
			def.Fields = append(def.Fields, makeField(name, init))
			i = next
		case i < end && source[i] == '(':
			i = scanMethod(source, path, def, name, i, end, diags)
		default:
			// Bare declaration.
			def.Fields = append(def.Fields, field{Name: name})
		}
	}
}

func resyncMember(source string, i, end int) int {
	for i < end {
		switch source[i] {
		case ';':
			return i + 1
		case '\'', '"':
			i = skipQuoted(source, i)
		case '`':
			i = skipTemplate(source, i)
		case '{', '(', '[':
			closed := matchDelim(source, i)
			if closed < 0 {
				return end
			}
			i = closed + 1
		default:
			i++
		}
	}
	return end
}

func skipAnnotation(source string, i, end int) int {
	for i < end {
		switch source[i] {
		case '=', ';', '(':
			return i
		case '{', '[':
			closed := matchDelim(source, i)
			if closed < 0 {
				return end
			}
			i = closed + 1
		case '\n':
			// Annotations do not span lines in the authored dialect.
			return i
		default:
			i++
		}
	}
	return end
}

// scanInitializer reads an initializer expression up to its terminating
// semicolon or newline at member level.
func scanInitializer(source string, i, end int) (init string, next int) {
	i = skipSpace(source, i)
	start := i
	for i < end {
		switch source[i] {
		case ';':
			return strings.TrimSpace(source[start:i]), i + 1
		case '\n':
			// A newline ends the member unless a delimiter is still open,
			// which the delimiter arms below have already consumed.
			return strings.TrimSpace(source[start:i]), i + 1
		case '\'', '"':
			i = skipQuoted(source, i)
		case '`':
			i = skipTemplate(source, i)
		case '{', '(', '[':
			closed := matchDelim(source, i)
			if closed < 0 {
				return strings.TrimSpace(source[start:]), end
			}
			i = closed + 1
		default:
			i++
		}
	}
	return strings.TrimSpace(source[start:min(i, end)]), end
}

func makeField(name, init string) field {
	f := field{Name: name, Init: init}
	if strings.HasPrefix(init, "signal(") || strings.HasPrefix(init, "signal (") {
		open := strings.Index(init, "(")
		closed := matchDelim(init, open)
		if closed > open {
			f.IsSignal = true
			f.SignalInit = strings.TrimSpace(init[open+1 : closed])
		}
	}
	return f
}

func scanMethod(source, path string, def *componentDef, name string, parenAt, end int, diags *[]Diagnostic) int {
	closeParen := matchDelim(source, parenAt)
	if closeParen < 0 || closeParen >= end {
		return end
	}
	i := skipSpace(source, closeParen+1)
	if i < end && source[i] == ':' {
		i = skipAnnotation(source, i+1, end)
		i = skipSpace(source, i)
	}
	if i >= end || source[i] != '{' {
		return i
	}
	bodyEnd := matchDelim(source, i)
	if bodyEnd < 0 || bodyEnd > end {
		return end
	}

	switch name {
	case "produceMarkup":
		findMarkupTemplate(source, path, def, i+1, bodyEnd, diags)
		def.InsertAt = bodyEnd + 1
	case "produceStyles":
		def.HasStyles = true
		def.Methods = append(def.Methods, name)
	default:
		def.Methods = append(def.Methods, name)
	}
	return bodyEnd + 1
}

func findMarkupTemplate(source, path string, def *componentDef, start, end int, diags *[]Diagnostic) {
	for i := start; i < end; i++ {
		if source[i] == '`' && i >= len("html") && identAt(source, i-len("html"), "html") {
			tplEnd := skipTemplate(source, i)
			if tplEnd > end {
				*diags = append(*diags, diagAt(source, path, i, "unterminated html template in %s", def.Name))
				return
			}
			def.MarkupStart = i - len("html")
			def.MarkupEnd = tplEnd
			def.BodyStart = i + 1
			def.BodyEnd = tplEnd - 1
			return
		}
		switch source[i] {
		case '\'', '"':
			i = skipQuoted(source, i) - 1
		case '/':
			if i+1 < end && source[i+1] == '/' {
				i = skipLineComment(source, i) - 1
			} else if i+1 < end && source[i+1] == '*' {
				i = skipBlockComment(source, i) - 1
			}
		}
	}
	*diags = append(*diags, diagAt(source, path, start, "produceMarkup in %s returns no html template", def.Name))
}
