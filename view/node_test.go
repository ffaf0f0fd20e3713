package view

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func renderNode(t *testing.T, n *html.Node) string {
	t.Helper()
	var sb strings.Builder
	require.NoError(t, Render(&sb, n))
	return sb.String()
}

func TestElement(t *testing.T) {
	n := Element("div", Attr("class", "wrapper", "id"),
		Element("h1", nil, "Title"),
		nil,
		"",
		42,
		Fragment("a", Element("br", nil)),
	)
	require.Equal(t, `<div class="wrapper"><h1>Title</h1>42a<br/></div>`, renderNode(t, n))
}

func TestAppend_ClonesAttachedNodes(t *testing.T) {
	shared := Element("span", nil, "x")
	first := Element("p", nil, shared)
	second := Element("p", nil, shared)

	require.Same(t, first, shared.Parent)
	require.NotSame(t, second.FirstChild, shared)
	require.Equal(t, `<p><span>x</span></p>`, renderNode(t, second))
}

func TestAppend_MovesFragmentChildren(t *testing.T) {
	frag := Fragment(Element("i", nil), Element("b", nil))
	dst := Element("div", nil, frag)

	require.Nil(t, frag.FirstChild)
	require.Equal(t, `<div><i></i><b></b></div>`, renderNode(t, dst))

	dst = Element("div", nil, []*html.Node{Text("a"), Text("b")})
	require.Equal(t, `<div>ab</div>`, renderNode(t, dst))
}

func TestRender_Nil(t *testing.T) {
	require.Equal(t, "", renderNode(t, nil))
}

func TestRegistryAndChain(t *testing.T) {
	header := ComponentFunc(func(s Scope) (any, error) { return "header", nil })
	footer := ComponentFunc(func(s Scope) (any, error) { return "footer", nil })
	failing := ImporterFunc(func(name string) (Component, error) {
		if name == "broken" {
			return nil, errors.New("boom")
		}
		return nil, ErrComponentNotFound
	})

	imp := Chain(nil, Registry{"header": header}, failing, Registry{"footer": footer, "broken": footer})

	c, err := imp.Import("footer")
	require.NoError(t, err)
	out, err := c.Render(NewBaseScope(nil))
	require.NoError(t, err)
	require.Equal(t, "footer", out)

	_, err = imp.Import("broken")
	require.EqualError(t, err, "boom")

	_, err = imp.Import("missing")
	require.ErrorIs(t, err, ErrComponentNotFound)

	_, err = Registry{"nil": nil}.Import("nil")
	require.ErrorIs(t, err, ErrComponentNotFound)
}

type disposable struct {
	err      error
	disposed bool
}

func (d *disposable) Render(Scope) (any, error) { return nil, nil }

func (d *disposable) Dispose() error {
	d.disposed = true
	return d.err
}

func TestDispose(t *testing.T) {
	a := &disposable{}
	b := &disposable{err: errors.New("close b")}
	plain := ComponentFunc(func(Scope) (any, error) { return nil, nil })

	err := Dispose(a, plain, b)
	require.EqualError(t, err, "close b")
	require.True(t, a.disposed)
	require.True(t, b.disposed)
}
