package expr

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// Printing and reparsing must reproduce the same tree, otherwise emitted
// closures would drift from the authored expressions they stand in for.
func TestPrintRoundTrip(t *testing.T) {
	sources := []string{
		"this.count()",
		"1 + 2 * 3",
		"(1 + 2) * 3",
		"a ? b : c ? d : e",
		"(a ? b : c) ? d : e",
		"!this.open()",
		"-x ** 2",
		"a ?? b",
		"a && b || c",
		"typeof x === \"number\"",
		"this.items().length > 0",
		"item.name.toUpperCase()",
		"xs.map(x => x * 2).filter(x => x > 1)",
		"{id: 1, label: \"hi\", nested: {ok: true}}",
		"[1, \"two\", [3]]",
		"`count: ${this.count()} of ${total}`",
		"fn?.(1)?.value",
		"obj?.field ?? \"fallback\"",
		"user[key].name",
		"(a, b) => a + b",
	}
	for _, src := range sources {
		first, err := Parse(src)
		if err != nil {
			t.Fatalf("Parse(%q): %v", src, err)
		}
		printed := Print(first)
		second, err := Parse(printed)
		if err != nil {
			t.Fatalf("reparse of %q (printed from %q): %v", printed, src, err)
		}
		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("round trip of %q via %q changed the tree (-first +second):\n%s", src, printed, diff)
		}
	}
}

func TestPrintRenamed(t *testing.T) {
	cases := []struct {
		src    string
		rename map[string]string
		want   string
	}{
		{"item", map[string]string{"item": "__item()"}, "__item()"},
		{"item.name", map[string]string{"item": "__item()"}, "__item().name"},
		{"item.done ? \"x\" : \"\"", map[string]string{"item": "__item()"}, "__item().done ? \"x\" : \"\""},
		{"this.remove(item)", map[string]string{"item": "__item()"}, "this.remove(__item())"},
		// A nested arrow parameter shadows the outer name.
		{"xs.map(item => item.id)", map[string]string{"item": "__item()"}, "xs.map(item => item.id)"},
		{"xs.map(x => x + item.n)", map[string]string{"item": "__item()"}, "xs.map(x => x + __item().n)"},
		// Shorthand object props expand when the name is rewritten.
		{"{item}", map[string]string{"item": "__item()"}, "{item: __item()}"},
		{"{other}", map[string]string{"item": "__item()"}, "{other}"},
		// Member names are not identifiers.
		{"config.item", map[string]string{"item": "__item()"}, "config.item"},
	}
	for _, tc := range cases {
		n, err := Parse(tc.src)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.src, err)
		}
		got := PrintRenamed(n, tc.rename)
		if got != tc.want {
			t.Errorf("PrintRenamed(%q) = %q, want %q", tc.src, got, tc.want)
		}
	}
}

func TestPrintTemplateEscapes(t *testing.T) {
	n, err := Parse("`a \\` ${x}`")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	printed := Print(n)
	reparsed, err := Parse(printed)
	if err != nil {
		t.Fatalf("reparse of %q: %v", printed, err)
	}
	if diff := cmp.Diff(n, reparsed); diff != "" {
		t.Errorf("escape round trip drifted:\n%s", diff)
	}
}
