package dom_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/loomkit/loom/dom"
)

func eventFixture(t *testing.T) (*dom.Document, *html.Node) {
	t.Helper()
	doc := dom.NewDocument()
	require.NoError(t, doc.SetContent(`<section id="s"><button id="b">go</button></section>`))
	btn := dom.FindByAttr(doc.Root(), "id", "b")
	require.NotNil(t, btn)
	return doc, btn
}

func TestDispatchCaptureThenBubble(t *testing.T) {
	doc, btn := eventFixture(t)

	var order []string
	doc.AddListener(doc.Root(), "click", true, func(*dom.Event) { order = append(order, "root-capture") })
	doc.AddListener(doc.Root(), "click", false, func(*dom.Event) { order = append(order, "root-bubble") })
	doc.AddListener(btn, "click", true, func(*dom.Event) { order = append(order, "target-capture") })
	doc.AddListener(btn, "click", false, func(*dom.Event) { order = append(order, "target-bubble") })

	doc.Dispatch(dom.NewEvent("click", btn))

	assert.Equal(t, []string{"root-capture", "target-capture", "target-bubble", "root-bubble"}, order)
}

func TestDispatchSetsTargets(t *testing.T) {
	doc, btn := eventFixture(t)

	var current, target *html.Node
	doc.AddListener(doc.Root(), "click", true, func(e *dom.Event) {
		current = e.CurrentTarget
		target = e.Target
	})

	doc.Dispatch(dom.NewEvent("click", btn))

	assert.Same(t, doc.Root(), current)
	assert.Same(t, btn, target)
}

func TestStopPropagationHaltsWalk(t *testing.T) {
	doc, btn := eventFixture(t)

	var order []string
	doc.AddListener(doc.Root(), "click", true, func(e *dom.Event) {
		order = append(order, "root")
		e.StopPropagation()
	})
	doc.AddListener(btn, "click", true, func(*dom.Event) { order = append(order, "target") })

	evt := dom.NewEvent("click", btn)
	doc.Dispatch(evt)

	assert.Equal(t, []string{"root"}, order)
	assert.True(t, evt.PropagationStopped())
}

func TestPreventDefaultFlag(t *testing.T) {
	doc, btn := eventFixture(t)

	doc.AddListener(doc.Root(), "click", true, func(e *dom.Event) { e.PreventDefault() })

	evt := dom.NewEvent("click", btn)
	doc.Dispatch(evt)

	assert.True(t, evt.DefaultPrevented())
	assert.False(t, evt.PropagationStopped())
}

func TestListenerTypeFilter(t *testing.T) {
	doc, btn := eventFixture(t)

	calls := 0
	doc.AddListener(doc.Root(), "click", true, func(*dom.Event) { calls++ })

	doc.Dispatch(dom.NewEvent("keyup", btn))
	assert.Zero(t, calls)

	doc.Dispatch(dom.NewEvent("click", btn))
	assert.Equal(t, 1, calls)
}

func TestRemoveListener(t *testing.T) {
	doc, btn := eventFixture(t)

	calls := 0
	remove := doc.AddListener(doc.Root(), "click", true, func(*dom.Event) { calls++ })

	doc.Dispatch(dom.NewEvent("click", btn))
	remove()
	remove()
	doc.Dispatch(dom.NewEvent("click", btn))

	assert.Equal(t, 1, calls)
}

func TestListenerRemovingItselfKeepsSiblings(t *testing.T) {
	doc, btn := eventFixture(t)

	first, second := 0, 0
	var removeFirst func()
	removeFirst = doc.AddListener(btn, "click", false, func(*dom.Event) {
		first++
		removeFirst()
	})
	doc.AddListener(btn, "click", false, func(*dom.Event) { second++ })

	doc.Dispatch(dom.NewEvent("click", btn))
	doc.Dispatch(dom.NewEvent("click", btn))

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}
