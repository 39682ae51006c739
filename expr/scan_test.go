package expr

import "testing"

func TestScanHoles(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"plain text", "<p>hello</p>", nil},
		{"single hole", "<p>${this.name()}</p>", []string{"this.name()"}},
		{"two holes", "${a} and ${b}", []string{"a", "b"}},
		{"nested braces", "${ {id: 1} }", []string{" {id: 1} "}},
		{"brace in string", `${"}"}`, []string{`"}"`}},
		{"nested template", "${repeat(xs, x => html`<li>${x}</li>`)}", []string{"repeat(xs, x => html`<li>${x}</li>`)"}},
		{"escaped dollar", `\${nope}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			holes := ScanHoles(tt.text)
			if len(holes) != len(tt.want) {
				t.Fatalf("got %d holes, want %d", len(holes), len(tt.want))
			}
			for i, h := range holes {
				if h.Body != tt.want[i] {
					t.Errorf("hole %d: got %q, want %q", i, h.Body, tt.want[i])
				}
				if tt.text[h.Start:h.Start+2] != "${" {
					t.Errorf("hole %d: Start %d does not point at ${", i, h.Start)
				}
				if tt.text[h.End-1] != '}' {
					t.Errorf("hole %d: End %d does not point past }", i, h.End)
				}
			}
		})
	}
}

func TestScanHolesUnterminated(t *testing.T) {
	holes := ScanHoles("<p>${this.name(")
	if len(holes) != 1 {
		t.Fatalf("got %d holes, want 1", len(holes))
	}
	if holes[0].End != len("<p>${this.name(") {
		t.Errorf("unterminated hole must run to end of text, got End=%d", holes[0].End)
	}
}

func TestSplitTemplate(t *testing.T) {
	quasis, exprs := SplitTemplate("a${x}b${y}c")
	if len(quasis) != 3 || len(exprs) != 2 {
		t.Fatalf("got %d quasis and %d exprs, want 3 and 2", len(quasis), len(exprs))
	}
	for i, want := range []string{"a", "b", "c"} {
		if quasis[i] != want {
			t.Errorf("quasi %d: got %q, want %q", i, quasis[i], want)
		}
	}
	for i, want := range []string{"x", "y"} {
		if exprs[i] != want {
			t.Errorf("expr %d: got %q, want %q", i, exprs[i], want)
		}
	}
}
