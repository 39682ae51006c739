package compiler

import (
	"strings"
	"testing"

	"github.com/loomkit/loom/expr"
)

func foldFixture(t *testing.T, src string) *foldedClass {
	t.Helper()
	defs, diags := scanDefinitions(src, "fold.ts")
	if len(diags) != 0 {
		t.Fatalf("scan diagnostics: %v", diags)
	}
	if len(defs) != 1 {
		t.Fatalf("got %d definitions, want 1", len(defs))
	}
	fc := foldClass(defs[0], expr.DefaultBudget())
	fc.foldCells(moduleSignals(src), expr.DefaultBudget())
	return fc
}

func TestFoldClassFixedPoint(t *testing.T) {
	fc := foldFixture(t, "component(\"x-t\", class T {\n"+
		"  size = this.base.width + this.pad;\n"+
		"  base = { width: 2 };\n"+
		"  pad = 3;\n"+
		"  produceMarkup(): string { return html`<i>x</i>`; }\n"+
		"});\n")

	// size cannot resolve until base has, so it takes a second pass.
	if v, ok := fc.consts["size"]; !ok || v.Num() != 5 {
		t.Errorf("size = %v %v, want 5", v, ok)
	}
	if v, ok := fc.consts["pad"]; !ok || v.Num() != 3 {
		t.Errorf("pad = %v %v, want 3", v, ok)
	}
	if v, ok := fc.consts["base"]; !ok || v.Kind() != expr.KindObject {
		t.Errorf("base = %v %v, want an object", v, ok)
	}
}

func TestFoldClassSignalInitial(t *testing.T) {
	fc := foldFixture(t, "component(\"x-t\", class T {\n"+
		"  start = 4;\n"+
		"  count = signal(this.start + 1);\n"+
		"  produceMarkup(): string { return html`<i>x</i>`; }\n"+
		"});\n")

	if !fc.signals["count"] {
		t.Fatalf("count should be tracked as a signal field")
	}
	if _, ok := fc.consts["count"]; ok {
		t.Errorf("a signal field must never appear as a constant")
	}
	if v, ok := fc.initials["count"]; !ok || v.Num() != 5 {
		t.Errorf("initial of count = %v %v, want 5", v, ok)
	}
}

func TestFoldClassBarredMembers(t *testing.T) {
	fc := foldFixture(t, "component(\"x-t\", class T {\n"+
		"  count = signal(0);\n"+
		"  label = this.count ? \"on\" : \"off\";\n"+
		"  double = this.scale();\n"+
		"  tag = \"b\";\n"+
		"  scale() { return 2; }\n"+
		"  produceMarkup(): string { return html`<i>x</i>`; }\n"+
		"});\n")

	// An initializer touching a signal accessor or a method must stay
	// unresolved rather than fold against an undefined member.
	if _, ok := fc.consts["label"]; ok {
		t.Errorf("label reads a signal accessor and must not fold")
	}
	if _, ok := fc.consts["double"]; ok {
		t.Errorf("double calls a method and must not fold")
	}
	if v, ok := fc.consts["tag"]; !ok || v.Str() != "b" {
		t.Errorf("tag = %v %v, want \"b\"", v, ok)
	}
}

func TestInitialEnvSeesFirstValues(t *testing.T) {
	fc := foldFixture(t, "const visible = signal(true);\n"+
		"component(\"x-t\", class T {\n"+
		"  count = signal(4 + 1);\n"+
		"  produceMarkup(): string { return html`<i>x</i>`; }\n"+
		"});\n")

	eval := func(src string, env expr.Env) (expr.Value, error) {
		ast, err := expr.Parse(src)
		if err != nil {
			t.Fatalf("parse %q: %v", src, err)
		}
		return expr.NewInterp(env, expr.DefaultBudget()).Eval(ast)
	}

	if v, err := eval("this.count() > 3", fc.initialEnv()); err != nil || !v.Truthy() {
		t.Errorf("this.count() > 3 under initialEnv = %v, %v", v, err)
	}
	if v, err := eval("visible()", fc.initialEnv()); err != nil || !v.BoolVal() {
		t.Errorf("visible() under initialEnv = %v, %v", v, err)
	}
	// The constant env deliberately has no signal reads.
	if _, err := eval("this.count() > 3", fc.constEnv()); err == nil {
		t.Errorf("constEnv must reject a signal read")
	}
}

func TestFoldCellsSkipsUnresolvable(t *testing.T) {
	fc := foldFixture(t, "const w = signal(window.innerWidth);\n"+
		"const n = signal(2 * 3);\n"+
		"component(\"x-t\", class T {\n"+
		"  produceMarkup(): string { return html`<i>x</i>`; }\n"+
		"});\n")

	if _, ok := fc.cells["w"]; ok {
		t.Errorf("w depends on the host environment and must not fold")
	}
	if v, ok := fc.cells["n"]; !ok || v.Num() != 6 {
		t.Errorf("n = %v %v, want 6", v, ok)
	}
}

const chipSource = "component(\"x-chip\", class Chip {\n" +
	"  produceMarkup(): string { return html`<span></span>`; }\n" +
	"});\n"

func TestInlineComponentCallConstantProps(t *testing.T) {
	hostSrc := "component(\"x-host\", class Host {\n" +
		"  kind = \"dark\";\n" +
		"  produceMarkup(): string { return html`<div>${Chip({ label: \"hi\", kind: this.kind })}</div>`; }\n" +
		"});\n"

	c := NewCompiler(Options{})
	c.AddSource(chipSource, "chip.ts")
	c.AddSource(hostSrc, "host.ts")

	defs, _ := scanDefinitions(hostSrc, "host.ts")
	def := defs[0]
	fc := foldClass(def, expr.DefaultBudget())
	body, diags := c.inlineComponentCalls(hostSrc, def.templateBody(hostSrc), def.BodyStart, fc, def)

	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	want := `<div><x-chip label="hi" kind="dark"></x-chip></div>`
	if body != want {
		t.Errorf("inlined body = %q\nwant %q", body, want)
	}
}

func TestInlineComponentCallDynamicPropSkips(t *testing.T) {
	hostSrc := "component(\"x-host\", class Host {\n" +
		"  n = signal(1);\n" +
		"  produceMarkup(): string { return html`<div>${Chip({ label: this.n() })}</div>`; }\n" +
		"});\n"

	c := NewCompiler(Options{})
	c.AddSource(chipSource, "chip.ts")
	c.AddSource(hostSrc, "host.ts")

	defs, _ := scanDefinitions(hostSrc, "host.ts")
	def := defs[0]
	fc := foldClass(def, expr.DefaultBudget())
	body, diags := c.inlineComponentCalls(hostSrc, def.templateBody(hostSrc), def.BodyStart, fc, def)

	if !strings.Contains(body, "Chip({") {
		t.Errorf("dynamic-prop call must be left for runtime, got %q", body)
	}
	if len(diags) != 1 || !strings.Contains(diags[0].Message, "left Chip call for runtime") {
		t.Errorf("diags = %v, want one runtime-fallback advisory", diags)
	}
	if diags[0].Line == 0 {
		t.Errorf("advisory should carry the hole's line number")
	}
}
