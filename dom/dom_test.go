package dom_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/loomkit/loom/dom"
)

func mustParse(t *testing.T, markup string) []*html.Node {
	t.Helper()
	nodes, err := dom.ParseFragment(markup)
	require.NoError(t, err)
	require.NotEmpty(t, nodes)
	return nodes
}

func TestParseFragmentListContext(t *testing.T) {
	nodes := mustParse(t, "<li>a</li><li>b</li>")

	require.Len(t, nodes, 2)
	assert.Equal(t, "li", nodes[0].Data)
	assert.Equal(t, "li", nodes[1].Data)
	assert.Nil(t, nodes[0].Parent, "parsed roots must come back detached")
}

func TestParseFragmentTableContext(t *testing.T) {
	nodes := mustParse(t, "<tr><td>x</td></tr>")

	require.Len(t, nodes, 1)
	assert.Equal(t, "tr", nodes[0].Data)
	assert.Equal(t, "<tr><td>x</td></tr>", dom.Render(nodes[0]))
}

func TestFindByAttrAndComment(t *testing.T) {
	root := mustParse(t, `<div><p data-loom-id="a0">hi <!--t0--></p><template id="b0"></template></div>`)[0]

	owner := dom.FindByAttr(root, "data-loom-id", "a0")
	require.NotNil(t, owner)
	assert.Equal(t, "p", owner.Data)

	ph := dom.FindByAttr(root, "id", "b0")
	require.NotNil(t, ph)
	assert.Equal(t, "template", ph.Data)

	c := dom.FindComment(root, "t0")
	require.NotNil(t, c)
	assert.Equal(t, html.CommentNode, c.Type)

	assert.Nil(t, dom.FindByAttr(root, "id", "zzz"))
	assert.Nil(t, dom.FindComment(root, "t9"))
}

func TestInsertAfterComment(t *testing.T) {
	root := mustParse(t, "<p>Count: <!--t0--></p>")[0]
	c := dom.FindComment(root, "t0")
	require.NotNil(t, c)

	txt := dom.NewText("5")
	dom.InsertAfter(c, txt)
	assert.Equal(t, "<p>Count: <!--t0-->5</p>", dom.Render(root))

	txt.Data = "6"
	assert.Equal(t, "<p>Count: <!--t0-->6</p>", dom.Render(root))
}

func TestReplaceWithAndBack(t *testing.T) {
	root := mustParse(t, `<main><template id="b0"></template></main>`)[0]
	ph := dom.FindByAttr(root, "id", "b0")
	require.NotNil(t, ph)

	content := mustParse(t, "<div>on</div>")
	dom.ReplaceWith(ph, content...)
	assert.Equal(t, "<main><div>on</div></main>", dom.Render(root))

	fresh := dom.NewElement("template")
	dom.SetAttr(fresh, "id", "b0")
	dom.ReplaceWith(content[0], fresh)
	assert.Equal(t, `<main><template id="b0"></template></main>`, dom.Render(root))
}

func TestRemoveDetaches(t *testing.T) {
	root := mustParse(t, "<ul><li>a</li><li>b</li></ul>")[0]

	dom.Remove(root.FirstChild)
	assert.Equal(t, "<ul><li>b</li></ul>", dom.Render(root))

	// Removing an already detached node is a no-op.
	loose := dom.NewElement("li")
	dom.Remove(loose)
	assert.Nil(t, loose.Parent)
}

func TestSetAttrAndRemoveAttr(t *testing.T) {
	el := dom.NewElement("div")

	_, ok := dom.Attr(el, "class")
	assert.False(t, ok)

	dom.SetAttr(el, "class", "a")
	dom.SetAttr(el, "class", "b")
	v, ok := dom.Attr(el, "class")
	assert.True(t, ok)
	assert.Equal(t, "b", v)
	assert.Len(t, el.Attr, 1, "overwrite must not duplicate the attribute")

	dom.SetAttr(el, "style", "color: red")
	dom.RemoveAttr(el, "class")
	assert.Equal(t, `<div style="color: red"></div>`, dom.Render(el))
}

func TestCloneIsDetachedDeepCopy(t *testing.T) {
	root := mustParse(t, `<ul><li class="x">a</li></ul>`)[0]

	c := dom.Clone(root)
	assert.Nil(t, c.Parent)

	dom.SetAttr(c.FirstChild, "class", "y")
	assert.Equal(t, `<ul><li class="y">a</li></ul>`, dom.Render(c))
	assert.Equal(t, `<ul><li class="x">a</li></ul>`, dom.Render(root))
}

func TestTextContent(t *testing.T) {
	root := mustParse(t, "<div>a<b>b</b><!--t0-->c</div>")[0]
	assert.Equal(t, "abc", dom.TextContent(root))
}

func TestDocumentContent(t *testing.T) {
	doc := dom.NewDocument()

	require.NoError(t, doc.SetContent("<p>hi</p><p>bye</p>"))
	assert.Equal(t, "<p>hi</p><p>bye</p>", doc.HTML())

	require.NoError(t, doc.SetContent("<span>x</span>"))
	assert.Equal(t, "<span>x</span>", doc.HTML())
}
