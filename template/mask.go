package template

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/loomkit/loom/expr"
)

// slot is one masked expression hole. Orig is the ${…} span in the original
// body; Override widens it when directive rewriting claims surrounding
// syntax (the quotes of a when pseudo-attribute, the @event= prefix).
type slot struct {
	ID       int
	Body     string
	Orig     Span
	Override *Span
}

func (s *slot) span() Span {
	if s.Override != nil {
		return *s.Override
	}
	return s.Orig
}

const slotPrefix = "__loom_e"

var (
	slotRe      = regexp.MustCompile(`__loom_e(\d+)__`)
	whenAttrRe  = regexp.MustCompile(`(\s)"__loom_e(\d+)__"`)
	eventAttrRe = regexp.MustCompile(`@([a-zA-Z][a-zA-Z0-9]*(?:\.[a-zA-Z][a-zA-Z0-9-]*)*)=(")?__loom_e(\d+)__(")?`)
)

func slotToken(id int) string {
	return fmt.Sprintf("%s%d__", slotPrefix, id)
}

// mask replaces every expression hole in body with an opaque slot token and
// returns the masked text plus the slot table indexed by slot id.
func mask(body string) (string, []*slot) {
	holes := expr.ScanHoles(body)
	if len(holes) == 0 {
		return body, nil
	}
	var b strings.Builder
	b.Grow(len(body))
	slots := make([]*slot, 0, len(holes))
	last := 0
	for i, h := range holes {
		b.WriteString(body[last:h.Start])
		b.WriteString(slotToken(i))
		slots = append(slots, &slot{ID: i, Body: strings.TrimSpace(h.Body), Orig: Span{Start: h.Start, End: h.End}})
		last = h.End
	}
	b.WriteString(body[last:])
	return b.String(), slots
}

// rewriteDirectives normalizes conditional pseudo-attributes and event
// attributes in masked text into data attributes the fragment parser
// accepts. Span overrides are recorded so each binding's span covers the
// directive syntax it came from, not just the hole.
func rewriteDirectives(masked string, slots []*slot) string {
	masked = whenAttrRe.ReplaceAllStringFunc(masked, func(m string) string {
		sub := whenAttrRe.FindStringSubmatch(m)
		id := slotNum(sub[2])
		s := slots[id]
		if !strings.HasPrefix(s.Body, "when(") {
			return m
		}
		// The pseudo-attribute span includes its surrounding quotes.
		s.Override = &Span{Start: s.Orig.Start - 1, End: s.Orig.End + 1}
		return fmt.Sprintf(`%sdata-loom-when="%d"`, sub[1], id)
	})

	masked = eventAttrRe.ReplaceAllStringFunc(masked, func(m string) string {
		sub := eventAttrRe.FindStringSubmatch(m)
		id := slotNum(sub[3])
		s := slots[id]
		tokenAt := strings.Index(m, slotPrefix)
		start := s.Orig.Start - tokenAt
		end := s.Orig.End
		if sub[4] == `"` {
			end++
		}
		s.Override = &Span{Start: start, End: end}
		// The slot id suffix keeps keys distinct; the HTML parser drops
		// duplicate attribute keys, which would lose every handler after
		// the first on an element with several event directives.
		return fmt.Sprintf(`data-loom-event-%d="%s %d"`, id, sub[1], id)
	})

	return masked
}

func slotNum(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}

// SplitTokens breaks text from a parsed tree around its slot tokens. Parts
// interleave with slot ids: parts[0], slots[0], parts[1], …; len(parts) is
// always len(slots)+1. Text without tokens comes back as a single part.
func SplitTokens(text string) (parts []string, slots []int) {
	matches := slotRe.FindAllStringSubmatchIndex(text, -1)
	last := 0
	for _, m := range matches {
		parts = append(parts, text[last:m[0]])
		slots = append(slots, slotNum(text[m[2]:m[3]]))
		last = m[1]
	}
	parts = append(parts, text[last:])
	return parts, slots
}

// SweepTokens removes any slot tokens remaining in generated markup, so
// degraded directives leave no trace in the output.
func SweepTokens(markup string) string {
	return slotRe.ReplaceAllString(markup, "")
}
