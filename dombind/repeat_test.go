package dombind_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/loomkit/loom/dom"
	"github.com/loomkit/loom/dombind"
	"github.com/loomkit/loom/expr"
)

func strArray(vals ...string) expr.Value {
	elems := make([]expr.Value, len(vals))
	for i, s := range vals {
		elems[i] = expr.String(s)
	}
	return expr.NewArray(elems...)
}

func rowsOf(list *html.Node) []*html.Node {
	var rows []*html.Node
	for c := list.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "li" {
			rows = append(rows, c)
		}
	}
	return rows
}

const listFields = "  items = signal([\"a\", \"b\", \"c\"]);\n  suffix = signal(\"!\");\n"
const listBody = "<ul>${repeat(this.items(), (item) => html`<li>${item}${this.suffix()}</li>`)}</ul>"

func TestRepeatRendersAndAppends(t *testing.T) {
	host := mountApp(t, listFields, listBody, func(env *dombind.Env) {
		env.DefineSignal("items", strArray("a", "b", "c"))
		env.DefineSignal("suffix", expr.String("!"))
	})

	want := `<ul>` +
		`<li><!--t0-->a<!--t1-->!</li>` +
		`<li><!--t0-->b<!--t1-->!</li>` +
		`<li><!--t0-->c<!--t1-->!</li>` +
		`<template id="b0"></template></ul>`
	assert.Equal(t, want, host.HTML())

	list := host.Doc.Root().FirstChild
	before := rowsOf(list)
	require.Len(t, before, 3)

	host.Env.Signal("this.items").Set(strArray("a", "b", "c", "d"))
	host.Flush()

	after := rowsOf(list)
	require.Len(t, after, 4)
	for i := range before {
		assert.Same(t, before[i], after[i], "append must leave existing rows in place")
	}
	assert.Contains(t, dom.Render(after[3]), "d")
}

func TestRepeatShrinkRunsCleanups(t *testing.T) {
	host := mountApp(t, listFields, listBody, func(env *dombind.Env) {
		env.DefineSignal("items", strArray("a", "b", "c"))
		env.DefineSignal("suffix", expr.String("!"))
	})
	suffix := host.Env.Signal("this.suffix")
	require.Equal(t, 3, suffix.SubscriberCount(), "each row subscribes once")

	host.Env.Signal("this.items").Set(strArray("a"))
	host.Flush()

	assert.Equal(t, 1, suffix.SubscriberCount(), "removed rows must release their subscriptions")
	assert.Equal(t, `<ul><li><!--t0-->a<!--t1-->!</li><template id="b0"></template></ul>`, host.HTML())
}

func TestRepeatPrefixWriteUpdatesRowInPlace(t *testing.T) {
	host := mountApp(t, listFields, listBody, func(env *dombind.Env) {
		env.DefineSignal("items", strArray("a", "b"))
		env.DefineSignal("suffix", expr.String("!"))
	})
	list := host.Doc.Root().FirstChild
	before := rowsOf(list)
	require.Len(t, before, 2)

	host.Env.Signal("this.items").Set(strArray("a", "B"))
	host.Flush()

	after := rowsOf(list)
	require.Len(t, after, 2)
	assert.Same(t, before[0], after[0])
	assert.Same(t, before[1], after[1], "a changed value mutates the row, it does not rebuild it")
	assert.Contains(t, dom.Render(after[1]), "B")
}

func TestRepeatEmptyState(t *testing.T) {
	host := mountApp(t,
		"  items = signal([]);\n",
		"<ul>${repeat(this.items(), (item) => html`<li>${item}</li>`, html`<p>none</p>`)}</ul>",
		func(env *dombind.Env) {
			env.DefineSignal("items", strArray())
		})
	items := host.Env.Signal("this.items")

	assert.Equal(t, `<ul><p>none</p><template id="b0"></template></ul>`, host.HTML())

	items.Set(strArray("x"))
	host.Flush()
	assert.Equal(t, `<ul><li><!--t0-->x</li><template id="b0"></template></ul>`, host.HTML())

	items.Set(strArray())
	host.Flush()
	assert.Equal(t, `<ul><p>none</p><template id="b0"></template></ul>`, host.HTML())
}

func group(name string, items ...string) expr.Value {
	o := expr.NewObject()
	o.Set("name", expr.String(name))
	elems := make([]expr.Value, len(items))
	for i, s := range items {
		elems[i] = expr.String(s)
	}
	o.Set("items", expr.NewArray(elems...))
	return expr.ObjectOf(o)
}

func TestNestedRepeatScopedToOwnRow(t *testing.T) {
	g1 := group("g1", "x", "y")
	g2 := group("g2", "p")
	host := mountApp(t,
		"  groups = signal([]);\n",
		"<section>${repeat(this.groups(), (g) => html`<div><h3>${g.name}</h3><ul>${repeat(g.items, (i) => html`<li>${i}</li>`)}</ul></div>`)}</section>",
		func(env *dombind.Env) {
			env.DefineSignal("groups", expr.NewArray(g1, g2))
		})

	want := `<section>` +
		`<div><h3><!--t0-->g1</h3><ul><li><!--t1-->x</li><li><!--t1-->y</li><template id="b1"></template></ul></div>` +
		`<div><h3><!--t0-->g2</h3><ul><li><!--t1-->p</li><template id="b1"></template></ul></div>` +
		`<template id="b0"></template></section>`
	assert.Equal(t, want, host.HTML())

	section := host.Doc.Root().FirstChild
	firstRow := section.FirstChild

	// Replacing only the second group re-renders only its own subtree.
	host.Env.Signal("this.groups").Set(expr.NewArray(g1, group("g2", "p", "q")))
	host.Flush()

	want = `<section>` +
		`<div><h3><!--t0-->g1</h3><ul><li><!--t1-->x</li><li><!--t1-->y</li><template id="b1"></template></ul></div>` +
		`<div><h3><!--t0-->g2</h3><ul><li><!--t1-->p</li><li><!--t1-->q</li><template id="b1"></template></ul></div>` +
		`<template id="b0"></template></section>`
	assert.Equal(t, want, host.HTML())
	assert.Same(t, firstRow, section.FirstChild, "untouched group keeps its nodes")
}

func TestRowEventHandlersReadCurrentValue(t *testing.T) {
	host := mountApp(t,
		"  items = signal([\"a\", \"b\"]);\n  log = signal(\"\");\n",
		"<ul>${repeat(this.items(), (item) => html`<li><button @click=${() => this.log.set(item)}>x</button></li>`)}</ul>",
		func(env *dombind.Env) {
			env.DefineSignal("items", strArray("a", "b"))
			env.DefineSignal("log", expr.String(""))
		})
	log := host.Env.Signal("this.log")

	buttons := findAll(host.Doc.Root(), "data-evt-click", "e0")
	require.Len(t, buttons, 2)

	host.Dispatch(dom.NewEvent("click", buttons[1]))
	assert.Equal(t, "b", log.Get().Str())

	// After a prefix write the same row's handler sees the new value.
	host.Env.Signal("this.items").Set(strArray("a", "B"))
	host.Flush()
	host.Dispatch(dom.NewEvent("click", buttons[1]))
	assert.Equal(t, "B", log.Get().Str())
}
