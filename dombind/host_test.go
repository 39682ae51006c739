package dombind_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/loomkit/loom/compiler"
	"github.com/loomkit/loom/dom"
	"github.com/loomkit/loom/dombind"
	"github.com/loomkit/loom/expr"
	"github.com/loomkit/loom/signals"
	"github.com/loomkit/loom/styles"
)

// mountApp compiles a one-component module and mounts the result against
// an instance the setup callback populates.
func mountApp(t *testing.T, fields, body string, setup func(*dombind.Env)) *dombind.Host {
	t.Helper()
	source := "component(\"x-app\", class App {\n" +
		fields +
		"  produceMarkup(): string {\n" +
		"    return html`" + body + "`;\n" +
		"  }\n" +
		"});\n"
	c := compiler.NewCompiler(compiler.Options{})
	_, err := c.Transform(source, "app.ts")
	require.NoError(t, err)
	progs := c.Programs("app.ts")
	require.Len(t, progs, 1)

	env := dombind.NewEnv(signals.NewScheduler())
	if setup != nil {
		setup(env)
	}
	host, err := dombind.Mount(progs[0], env)
	require.NoError(t, err)
	return host
}

func findAll(root *html.Node, key, val string) []*html.Node {
	var out []*html.Node
	dom.Walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			if v, ok := dom.Attr(n, key); ok && v == val {
				out = append(out, n)
			}
		}
		return true
	})
	return out
}

const counterFields = "  count = signal(0);\n"
const counterBody = `<div class="counter"><p>Count: ${this.count()}</p><button @click=${() => this.count(this.count() + 1)}>+1</button></div>`

func TestCounterClickEndToEnd(t *testing.T) {
	host := mountApp(t, counterFields, counterBody, func(env *dombind.Env) {
		env.DefineSignal("count", expr.Number(0))
	})

	want := `<div class="counter"><p>Count: <!--t0-->0</p><button data-evt-click="e0">+1</button></div>`
	assert.Equal(t, want, host.HTML())

	btn := dom.FindByAttr(host.Doc.Root(), "data-evt-click", "e0")
	require.NotNil(t, btn)
	host.Dispatch(dom.NewEvent("click", btn))
	host.Dispatch(dom.NewEvent("click", btn))

	assert.Contains(t, host.HTML(), "Count: <!--t0-->2")
	assert.Equal(t, 2.0, host.Env.Signal("this.count").Get().Num())
}

func TestTextAndAttributeUpdates(t *testing.T) {
	host := mountApp(t,
		"  label = signal(\"chip\");\n",
		`<div class="chip ${this.label()}">${this.label()}</div>`,
		func(env *dombind.Env) {
			env.DefineSignal("label", expr.String("chip"))
		})

	assert.Equal(t, `<div class="chip chip" data-loom-id="a0"><!--t0-->chip</div>`, host.HTML())

	host.Env.Signal("this.label").Set(expr.String("big"))
	host.Flush()

	assert.Equal(t, `<div class="chip big" data-loom-id="a0"><!--t0-->big</div>`, host.HTML())
}

func TestBatchedWritesFlushOnce(t *testing.T) {
	host := mountApp(t, counterFields, counterBody, func(env *dombind.Env) {
		env.DefineSignal("count", expr.Number(0))
	})
	sig := host.Env.Signal("this.count")

	host.Env.Scheduler().Batch(func() {
		sig.Set(expr.Number(1))
		sig.Set(expr.Number(2))
		sig.Set(expr.Number(3))
		// Notifications stay queued until the batch closes.
		assert.Contains(t, host.HTML(), "Count: <!--t0-->0")
	})

	assert.Contains(t, host.HTML(), "Count: <!--t0-->3")
}

func TestUnmountStopsBindings(t *testing.T) {
	host := mountApp(t, counterFields, counterBody, func(env *dombind.Env) {
		env.DefineSignal("count", expr.Number(0))
	})
	sig := host.Env.Signal("this.count")
	require.Equal(t, 1, sig.SubscriberCount())

	host.Unmount()

	assert.Zero(t, sig.SubscriberCount())

	// The delegated listener is gone too: a click no longer reaches the
	// handler.
	btn := dom.FindByAttr(host.Doc.Root(), "data-evt-click", "e0")
	require.NotNil(t, btn)
	host.Dispatch(dom.NewEvent("click", btn))
	assert.Zero(t, sig.Get().Num())
}

func TestStyleAdoption(t *testing.T) {
	host := mountApp(t, counterFields, counterBody, func(env *dombind.Env) {
		env.DefineSignal("count", expr.Number(0))
	})

	reg := styles.NewRegistry()
	id := host.AdoptStyles(reg, ".counter { color: red }")
	again := host.AdoptStyles(reg, ".counter { color: red }")

	assert.Equal(t, id, again)
	assert.Equal(t, 1, reg.Len())
	assert.ElementsMatch(t, []uint64{id}, reg.AdoptedBy(host.Doc))
}
