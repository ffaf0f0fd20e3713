package view

import (
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html"
)

// ComponentError reports a template failure together with the location of the offending node.
type ComponentError struct {
	// Component is the name of the template.
	Component string

	// Path is the slash separated list of element names leading to the node.
	Path string

	Err error

	doc *etree.Element
}

func newComponentError(compName string, n *html.Node, err error) *ComponentError {
	return &ComponentError{
		Component: compName,
		Path:      nodePath(n),
		Err:       err,
		doc:       buildErrorContext(n),
	}
}

func (e *ComponentError) Error() string {
	return e.Component + ": " + e.Path + ": " + e.Err.Error()
}

func (e *ComponentError) Unwrap() error {
	return e.Err
}

// HTMLContext renders the failing node with up to two siblings around it and its parent
// element, for error pages and logs.
func (e *ComponentError) HTMLContext() string {
	return renderErrorContext(e.doc)
}

func nodePath(n *html.Node) string {
	var parts []string
	for ; n != nil; n = n.Parent {
		if n.Type == html.ElementNode {
			parts = append(parts, n.Data)
		}
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return "/" + strings.Join(parts, "/")
}

// errorContextBuilder is a type to organize helper functions for building error context trees.
type errorContextBuilder struct{}

func (b errorContextBuilder) addPrevSiblings(doc *etree.Element, n *html.Node) {
	var prev []*html.Node
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if isWhitespaceText(s) {
			continue
		}
		if len(prev) == 2 {
			doc.AddChild(etree.NewText("..."))
			break
		}
		prev = append(prev, s)
	}
	for i := len(prev) - 1; i >= 0; i-- {
		b.addToken(doc, prev[i])
	}
}

func (b errorContextBuilder) addNextSiblings(doc *etree.Element, n *html.Node) {
	c := 0
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if isWhitespaceText(s) {
			continue
		}
		if c == 2 {
			doc.AddChild(etree.NewText("..."))
			break
		}
		b.addToken(doc, s)
		c++
	}
}

func (b errorContextBuilder) addToken(doc *etree.Element, n *html.Node) {
	switch n.Type {
	case html.ElementNode:
		clone := etree.NewElement(n.Data)
		for _, a := range n.Attr {
			clone.CreateAttr(a.Key, a.Val)
		}
		if hasElementChild(n) {
			clone.AddChild(etree.NewText("..."))
		} else if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			clone.SetText(n.FirstChild.Data)
		}
		doc.AddChild(clone)
	case html.TextNode:
		if !isWhitespaceText(n) {
			doc.AddChild(etree.NewText(n.Data))
		}
	}
}

func (b errorContextBuilder) wrapParent(doc *etree.Element, n *html.Node) *etree.Element {
	parent := n.Parent
	if parent == nil || parent.Type != html.ElementNode {
		return doc // do not wrap the root element
	}

	doc.Tag = parent.Data
	for _, a := range parent.Attr {
		doc.CreateAttr(a.Key, a.Val)
	}

	wrapper := &etree.Element{}
	wrapper.AddChild(doc)

	return wrapper
}

// buildErrorContext creates a tree around the node n to provide context for an error.
func buildErrorContext(n *html.Node) *etree.Element {
	doc := &etree.Element{}
	if n == nil {
		return doc
	}
	b := errorContextBuilder{}
	b.addPrevSiblings(doc, n)
	b.addToken(doc, n)
	b.addNextSiblings(doc, n)
	return b.wrapParent(doc, n)
}

func renderErrorContext(doc *etree.Element) string {
	dst := &html.Node{Type: html.DocumentNode}

	// traverse the etree.Element and build the html.Node
	var render func(*html.Node, *etree.Element)
	render = func(dst *html.Node, src *etree.Element) {
		for _, c := range src.Child {
			switch t := c.(type) {
			case *etree.Element:
				n := &html.Node{Type: html.ElementNode, Data: t.FullTag()}
				for _, a := range t.Attr {
					n.Attr = append(n.Attr, html.Attribute{Key: a.FullKey(), Val: a.Value})
				}
				dst.AppendChild(n)
				render(n, t)
			case *etree.CharData:
				dst.AppendChild(&html.Node{Type: html.TextNode, Data: t.Data})
			}
		}
	}

	render(dst, doc)

	var buf strings.Builder
	_ = html.Render(&buf, dst)

	return buf.String()
}

func isWhitespaceText(n *html.Node) bool {
	return n.Type == html.TextNode && strings.TrimSpace(n.Data) == ""
}

func hasElementChild(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return true
		}
	}
	return false
}
