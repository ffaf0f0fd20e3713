package view

import (
	"fmt"
	"io"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Element creates an element node with the given attributes (key, value pairs) and children.
// Children are appended with Append.
func Element(tag string, attrs []html.Attribute, children ...any) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Lookup([]byte(tag)),
		Data:     tag,
		Attr:     attrs,
	}
	for _, c := range children {
		Append(n, c)
	}
	return n
}

// Attr is a shorthand for a list of attributes given as key, value pairs.
func Attr(kv ...string) []html.Attribute {
	attrs := make([]html.Attribute, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		attrs = append(attrs, html.Attribute{Key: kv[i], Val: kv[i+1]})
	}
	return attrs
}

func Text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// Fragment groups nodes without a wrapping element. It is represented by a document node whose
// children are spliced into the parent when appended.
func Fragment(children ...any) *html.Node {
	n := &html.Node{Type: html.DocumentNode}
	for _, c := range children {
		Append(n, c)
	}
	return n
}

// Append appends a component output to parent. Fragment children are moved into parent, leaving
// the fragment empty. Strings become text, nil is skipped and other values are formatted with
// fmt. Nodes which already belong to another tree are cloned.
func Append(parent *html.Node, v any) {
	switch c := v.(type) {
	case nil:
	case *html.Node:
		if c == nil {
			return
		}
		if c.Type == html.DocumentNode {
			for child := c.FirstChild; child != nil; {
				next := child.NextSibling
				c.RemoveChild(child)
				Append(parent, child)
				child = next
			}
			return
		}
		if c.Parent != nil || c.PrevSibling != nil || c.NextSibling != nil {
			c = cloneTree(c)
		}
		parent.AppendChild(c)
	case []*html.Node:
		for _, n := range c {
			Append(parent, n)
		}
	case string:
		if c != "" {
			parent.AppendChild(Text(c))
		}
	default:
		parent.AppendChild(Text(fmt.Sprint(c)))
	}
}

// Render writes the HTML serialization of n to w. A nil node renders nothing.
func Render(w io.Writer, n *html.Node) error {
	if n == nil {
		return nil
	}
	return html.Render(w, n)
}

func cloneTree(src *html.Node) *html.Node {
	dst := &html.Node{
		Type:      src.Type,
		DataAtom:  src.DataAtom,
		Data:      src.Data,
		Namespace: src.Namespace,
	}
	if len(src.Attr) > 0 {
		dst.Attr = make([]html.Attribute, len(src.Attr))
		copy(dst.Attr, src.Attr)
	}
	for c := src.FirstChild; c != nil; c = c.NextSibling {
		dst.AppendChild(cloneTree(c))
	}
	return dst
}
