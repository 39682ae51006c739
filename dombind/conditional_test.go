package dombind_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomkit/loom/dombind"
	"github.com/loomkit/loom/expr"
)

const toggleFields = "  visible = signal(load());\n  n = signal(5);\n"
const toggleBody = `<main><div "${when(this.visible())}">n=${this.n()}</div></main>`

func TestConditionalShowHideReshow(t *testing.T) {
	host := mountApp(t, toggleFields, toggleBody, func(env *dombind.Env) {
		env.DefineSignal("visible", expr.False)
		env.DefineSignal("n", expr.Number(5))
	})
	visible := host.Env.Signal("this.visible")
	n := host.Env.Signal("this.n")

	// Hidden start: the placeholder from the static template stays put.
	assert.Equal(t, `<main><template id="b0"></template></main>`, host.HTML())

	visible.Set(expr.True)
	host.Flush()
	assert.Equal(t, `<main><div>n=<!--t0-->5</div></main>`, host.HTML())
	require.Equal(t, 1, n.SubscriberCount())

	// Hiding removes the content but keeps its subscriptions.
	visible.Set(expr.False)
	host.Flush()
	assert.Equal(t, `<main><template id="b0"></template></main>`, host.HTML())
	assert.Equal(t, 1, n.SubscriberCount())

	// A write while hidden lands in the detached content.
	n.Set(expr.Number(9))
	host.Flush()

	// Re-show reattaches the same nodes without re-initializing.
	visible.Set(expr.True)
	host.Flush()
	assert.Equal(t, `<main><div>n=<!--t0-->9</div></main>`, host.HTML())
	assert.Equal(t, 1, n.SubscriberCount(), "re-show must not duplicate the nested bindings")
}

func TestConditionalShowsWhenTrueAtMount(t *testing.T) {
	// The compile-time initial state is unknown, so the static template
	// holds the placeholder; the mount evaluation corrects it.
	host := mountApp(t, toggleFields, toggleBody, func(env *dombind.Env) {
		env.DefineSignal("visible", expr.True)
		env.DefineSignal("n", expr.Number(5))
	})

	assert.Equal(t, `<main><div>n=<!--t0-->5</div></main>`, host.HTML())
}

func TestConditionalInitiallyShownRendersContent(t *testing.T) {
	host := mountApp(t,
		"  ready = signal(true);\n",
		`<main><div id="x" "${when(this.ready())}">A</div></main>`,
		func(env *dombind.Env) {
			env.DefineSignal("ready", expr.True)
		})
	ready := host.Env.Signal("this.ready")

	// Statically known truthy: the content element is in the static
	// template, no placeholder round-trip at mount.
	assert.Equal(t, `<main><div id="x">A</div></main>`, host.HTML())

	ready.Set(expr.False)
	host.Flush()
	assert.Equal(t, `<main><template id="b0"></template></main>`, host.HTML())

	ready.Set(expr.True)
	host.Flush()
	assert.Equal(t, `<main><div id="x">A</div></main>`, host.HTML())
}

func TestWhenElseSwitchesBranches(t *testing.T) {
	host := mountApp(t,
		"  on = signal(true);\n",
		"<main>${whenElse(this.on(), html`<b>yes</b>`, html`<i>no</i>`)}</main>",
		func(env *dombind.Env) {
			env.DefineSignal("on", expr.True)
		})
	on := host.Env.Signal("this.on")

	assert.Equal(t, `<main><b>yes</b><template id="b1"></template></main>`, host.HTML())

	on.Set(expr.False)
	host.Flush()
	assert.Equal(t, `<main><template id="b0"></template><i>no</i></main>`, host.HTML())

	on.Set(expr.True)
	host.Flush()
	assert.Equal(t, `<main><b>yes</b><template id="b1"></template></main>`, host.HTML())
}
