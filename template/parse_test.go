package template

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func parseBody(t *testing.T, body string) *Parsed {
	t.Helper()
	p, err := Parse(body)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return p
}

func kinds(p *Parsed) []string {
	out := make([]string, len(p.Bindings))
	for i, b := range p.Bindings {
		out[i] = b.Kind.String()
	}
	return out
}

func TestParseTextInterpolation(t *testing.T) {
	body := `<p>Count: ${this.count()}</p>`
	p := parseBody(t, body)

	if len(p.Bindings) != 1 {
		t.Fatalf("got %d bindings, want 1", len(p.Bindings))
	}
	b := p.Bindings[0]
	if b.Kind != KindText {
		t.Fatalf("kind = %s, want text", b.Kind)
	}
	if b.Expr != "this.count()" {
		t.Errorf("Expr = %q", b.Expr)
	}
	if b.El == nil || b.El.Data != "p" {
		t.Errorf("owner should be the <p> element")
	}
	if got := body[b.Span.Start:b.Span.End]; got != "${this.count()}" {
		t.Errorf("span addresses %q, want the hole", got)
	}
}

func TestParseAttributeBinding(t *testing.T) {
	p := parseBody(t, `<div class="btn ${this.kind()}">x</div>`)

	b := p.BindingsOf(KindAttribute)
	if len(b) != 1 {
		t.Fatalf("got %d attribute bindings, want 1", len(b))
	}
	if b[0].AttrName != "class" {
		t.Errorf("AttrName = %q", b[0].AttrName)
	}
	if diff := cmp.Diff([]string{"btn ", ""}, b[0].Quasis); diff != "" {
		t.Errorf("quasis (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"this.kind()"}, b[0].Exprs); diff != "" {
		t.Errorf("exprs (-want +got):\n%s", diff)
	}
}

func TestParseStyleBinding(t *testing.T) {
	p := parseBody(t, `<div style="color: ${this.color()}">x</div>`)

	b := p.BindingsOf(KindStyle)
	if len(b) != 1 {
		t.Fatalf("got %d style bindings, want 1", len(b))
	}
	if b[0].AttrName != "style" {
		t.Errorf("AttrName = %q", b[0].AttrName)
	}
}

func TestParseWhenPseudoAttribute(t *testing.T) {
	body := `<div id="x" "${when(this.open())}">A</div>`
	p := parseBody(t, body)

	b := p.BindingsOf(KindWhen)
	if len(b) != 1 {
		t.Fatalf("got %d when bindings, want 1", len(b))
	}
	if b[0].Expr != "this.open()" {
		t.Errorf("Expr = %q", b[0].Expr)
	}
	if b[0].El == nil || b[0].El.Data != "div" {
		t.Error("when binding must own the guarded element")
	}
	// The span covers exactly the quoted pseudo-attribute syntax.
	if got := body[b[0].Span.Start:b[0].Span.End]; got != `"${when(this.open())}"` {
		t.Errorf("span addresses %q", got)
	}
}

func TestParseEventDirective(t *testing.T) {
	body := `<button @click.stop.prevent=${this.save}>Go</button>`
	p := parseBody(t, body)

	b := p.BindingsOf(KindEvent)
	if len(b) != 1 {
		t.Fatalf("got %d event bindings, want 1", len(b))
	}
	if b[0].Event != "click" {
		t.Errorf("Event = %q", b[0].Event)
	}
	if diff := cmp.Diff([]string{"stop", "prevent"}, b[0].Modifiers); diff != "" {
		t.Errorf("modifiers (-want +got):\n%s", diff)
	}
	if b[0].Expr != "this.save" {
		t.Errorf("Expr = %q", b[0].Expr)
	}
	if got := body[b[0].Span.Start:b[0].Span.End]; got != "@click.stop.prevent=${this.save}" {
		t.Errorf("span addresses %q", got)
	}
}

func TestParseSeveralEventsOnOneElement(t *testing.T) {
	body := "<input @input=${this.change} @keydown.enter=${this.commit}>"
	p := parseBody(t, body)

	b := p.BindingsOf(KindEvent)
	if len(b) != 2 {
		t.Fatalf("got %d event bindings, want 2", len(b))
	}
	if b[0].Event != "input" || b[1].Event != "keydown" {
		t.Errorf("events = %q, %q", b[0].Event, b[1].Event)
	}
	if diff := cmp.Diff([]string{"enter"}, b[1].Modifiers); diff != "" {
		t.Errorf("second event modifiers (-want +got):\n%s", diff)
	}
}

func TestSplitTokens(t *testing.T) {
	p := parseBody(t, "<p>a ${this.x()} b ${this.y()}</p>")

	text := p.Roots[0].FirstChild
	parts, slots := SplitTokens(text.Data)
	if diff := cmp.Diff([]string{"a ", " b ", ""}, parts); diff != "" {
		t.Errorf("parts (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{0, 1}, slots); diff != "" {
		t.Errorf("slots (-want +got):\n%s", diff)
	}

	parts, slots = SplitTokens("plain")
	if len(parts) != 1 || len(slots) != 0 {
		t.Errorf("plain text split into %d parts, %d slots", len(parts), len(slots))
	}
}

func TestParseRepeat(t *testing.T) {
	p := parseBody(t, "<ul>${repeat(this.items(), item => html`<li>${item}</li>`)}</ul>")

	b := p.BindingsOf(KindRepeat)
	if len(b) != 1 {
		t.Fatalf("got %d repeat bindings, want 1", len(b))
	}
	r := b[0]
	if r.Broken != "" {
		t.Fatalf("unexpected Broken: %s", r.Broken)
	}
	if r.Expr != "this.items()" {
		t.Errorf("array expr = %q", r.Expr)
	}
	if r.ItemParam != "item" {
		t.Errorf("ItemParam = %q", r.ItemParam)
	}
	if r.ItemBody != "<li>${item}</li>" {
		t.Errorf("ItemBody = %q", r.ItemBody)
	}
	if r.El == nil || r.El.Data != "ul" {
		t.Error("repeat should be owned by the <ul>")
	}
}

func TestParseRepeatWithEmptyState(t *testing.T) {
	p := parseBody(t, "<div>${repeat(this.rows(), r => html`<p>${r}</p>`, html`<p>empty</p>`)}</div>")

	b := p.BindingsOf(KindRepeat)
	if len(b) != 1 || b[0].Broken != "" {
		t.Fatalf("repeat did not parse cleanly: %+v", b)
	}
	if b[0].EmptyBody != "<p>empty</p>" {
		t.Errorf("EmptyBody = %q", b[0].EmptyBody)
	}
}

func TestParseRepeatWithoutCallbackDegrades(t *testing.T) {
	p := parseBody(t, "<ul>${repeat(this.items())}</ul>")

	b := p.BindingsOf(KindRepeat)
	if len(b) != 1 {
		t.Fatalf("got %d repeat bindings, want 1", len(b))
	}
	if b[0].Broken == "" {
		t.Error("repeat without an item template must be marked broken")
	}
}

func TestParseWhenElse(t *testing.T) {
	p := parseBody(t, "<div>${whenElse(this.on(), html`<b>on</b>`, html`<i>off</i>`)}</div>")

	b := p.BindingsOf(KindWhenElse)
	if len(b) != 1 {
		t.Fatalf("got %d whenElse bindings, want 1", len(b))
	}
	w := b[0]
	if w.Expr != "this.on()" || w.ThenBody != "<b>on</b>" || w.ElseBody != "<i>off</i>" {
		t.Errorf("whenElse payload wrong: %+v", w)
	}
}

func TestParseRecoversFromMalformedMarkup(t *testing.T) {
	// Unclosed and stray tags parse to a best-effort tree; the sibling
	// binding is still found.
	p := parseBody(t, `<div><p>unclosed</div></span><span>${this.ok()}</span>`)

	if len(p.Roots) == 0 {
		t.Fatal("no roots parsed")
	}
	if got := p.BindingsOf(KindText); len(got) != 1 || got[0].Expr != "this.ok()" {
		t.Errorf("sibling binding lost: %+v", got)
	}
}

func TestParseTableRowKeepsContext(t *testing.T) {
	p := parseBody(t, `<tr><td>${this.cell()}</td></tr>`)

	if len(p.Roots) == 0 || p.Roots[0].Data != "tr" {
		t.Fatalf("tr root dropped: %+v", p.Roots)
	}
	if len(p.BindingsOf(KindText)) != 1 {
		t.Error("cell binding lost")
	}
}

func TestParseTopLevelTextOwnerIsNil(t *testing.T) {
	p := parseBody(t, `${this.greeting()} <b>!</b>`)

	b := p.BindingsOf(KindText)
	if len(b) != 1 {
		t.Fatalf("got %d text bindings, want 1", len(b))
	}
	if b[0].El != nil {
		t.Error("fragment-root interpolation must have nil owner")
	}
}

func TestParseSpansNeverOverlapAtSameLevel(t *testing.T) {
	body := `<p>${a} and ${b}</p><div class="c ${d}" @click=${e}>x</div>`
	p := parseBody(t, body)

	var spans []Span
	for _, b := range p.Bindings {
		spans = append(spans, b.Span)
	}
	for i := 0; i < len(spans); i++ {
		for j := i + 1; j < len(spans); j++ {
			a, b := spans[i], spans[j]
			if a.Start < b.End && b.Start < a.End {
				t.Errorf("spans %v and %v overlap", a, b)
			}
		}
	}
}

func TestParseDeterministic(t *testing.T) {
	body := "<div \"${when(this.a())}\"><p>${this.b()}</p>${repeat(this.c(), x => html`<i>${x}</i>`)}</div>"
	p1 := parseBody(t, body)
	p2 := parseBody(t, body)

	if diff := cmp.Diff(kinds(p1), kinds(p2)); diff != "" {
		t.Errorf("binding order differs between runs:\n%s", diff)
	}
	if !strings.Contains(strings.Join(kinds(p1), ","), "when") {
		t.Error("when binding missing")
	}
}
