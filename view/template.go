package view

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// TemplateExt is the file extension of template components.
const TemplateExt = ".chtml"

const (
	attrIf  = "c:if"
	attrFor = "c:for"
)

var identifierRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Template is a component built from an HTML fragment. Text nodes and attribute values may
// contain ${expr} placeholders evaluated against the scope variables (by snake_case name).
// Two directives are supported on elements:
//
//	c:for="item in expr" or c:for="i, item in expr" repeats the element for every element of a
//	slice, array or map (maps are iterated in key order).
//	c:if="expr" renders the element only when expr is truthy. Combined with c:for, the
//	condition is evaluated for every iteration.
//
// A Template is immutable after parsing and can be rendered concurrently.
type Template struct {
	name  string
	root  *html.Node
	texts map[*html.Node]*interpol
	attrs map[*html.Node][]attrExpr
	conds map[*html.Node]*vm.Program
	loops map[*html.Node]*loop
}

var _ Component = (*Template)(nil)

type attrExpr struct {
	attr html.Attribute
	val  *interpol // nil for plain values
}

// ParseTemplate parses the HTML fragment from r.
func ParseTemplate(name string, r io.Reader) (*Template, error) {
	nodes, err := html.ParseFragment(r, &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Body,
		Data:     "body",
	})
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	t := &Template{
		name:  name,
		root:  &html.Node{Type: html.DocumentNode},
		texts: map[*html.Node]*interpol{},
		attrs: map[*html.Node][]attrExpr{},
		conds: map[*html.Node]*vm.Program{},
		loops: map[*html.Node]*loop{},
	}
	for _, n := range nodes {
		t.root.AppendChild(n)
	}
	if err := t.compile(t.root); err != nil {
		return nil, err
	}
	return t, nil
}

// MustParseTemplate is like ParseTemplate for a string source but panics on error.
func MustParseTemplate(name, src string) *Template {
	t, err := ParseTemplate(name, strings.NewReader(src))
	if err != nil {
		panic(err)
	}
	return t
}

// ParseFile parses the template at p in fsys. A missing file is reported as ErrComponentNotFound.
func ParseFile(fsys fs.FS, p string) (*Template, error) {
	f, err := fsys.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrComponentNotFound
		}
		return nil, err
	}
	defer f.Close()

	return ParseTemplate(strings.TrimSuffix(path.Base(p), TemplateExt), f)
}

// FSImporter resolves a component name to the file name+".chtml" in the first directory of
// searchPath that has it. The default search path is the root of fsys.
func FSImporter(fsys fs.FS, searchPath ...string) Importer {
	if len(searchPath) == 0 {
		searchPath = []string{"."}
	}
	return ImporterFunc(func(name string) (Component, error) {
		for _, dir := range searchPath {
			t, err := ParseFile(fsys, path.Join(dir, name+TemplateExt))
			if errors.Is(err, ErrComponentNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			return t, nil
		}
		return nil, ErrComponentNotFound
	})
}

func (t *Template) Name() string {
	return t.name
}

func (t *Template) compile(n *html.Node) error {
	switch n.Type {
	case html.TextNode:
		ip, err := newInterpol(n.Data)
		if err != nil {
			return newComponentError(t.name, n, err)
		}
		if ip != nil {
			t.texts[n] = ip
		}
	case html.ElementNode:
		var attrs []attrExpr
		for _, a := range n.Attr {
			switch a.Key {
			case attrIf:
				prog, err := compileExpr(a.Val)
				if err != nil {
					return newComponentError(t.name, n, fmt.Errorf("compile %s: %w", attrIf, err))
				}
				t.conds[n] = prog
			case attrFor:
				lp, err := parseLoop(a.Val)
				if err != nil {
					return newComponentError(t.name, n, err)
				}
				t.loops[n] = lp
			default:
				ip, err := newInterpol(a.Val)
				if err != nil {
					return newComponentError(t.name, n, fmt.Errorf("attr %q: %w", a.Key, err))
				}
				attrs = append(attrs, attrExpr{attr: a, val: ip})
			}
		}
		t.attrs[n] = attrs
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := t.compile(c); err != nil {
			return err
		}
	}
	return nil
}

// Render evaluates the template against the scope variables and returns a fragment.
func (t *Template) Render(s Scope) (any, error) {
	env := make(map[string]any, len(s.Vars()))
	for k, v := range s.Vars() {
		env[toSnakeCase(k)] = v
	}

	dst := &html.Node{Type: html.DocumentNode}
	if err := t.renderChildren(dst, t.root, env); err != nil {
		return nil, err
	}
	return dst, nil
}

func (t *Template) renderChildren(dst, src *html.Node, env map[string]any) error {
	for c := src.FirstChild; c != nil; c = c.NextSibling {
		if err := t.render(dst, c, env); err != nil {
			return err
		}
	}
	return nil
}

func (t *Template) render(dst, n *html.Node, env map[string]any) error {
	lp, ok := t.loops[n]
	if !ok {
		return t.renderIf(dst, n, env)
	}
	err := lp.each(env, func(env map[string]any) error {
		return t.renderIf(dst, n, env)
	})
	var ce *ComponentError
	if err != nil && !errors.As(err, &ce) {
		err = newComponentError(t.name, n, err)
	}
	return err
}

func (t *Template) renderIf(dst, n *html.Node, env map[string]any) error {
	if prog, ok := t.conds[n]; ok {
		v, err := expr.Run(prog, env)
		if err != nil {
			return newComponentError(t.name, n, fmt.Errorf("eval %s: %w", attrIf, err))
		}
		if !isTruthy(v) {
			return nil
		}
	}

	switch n.Type {
	case html.TextNode:
		return t.renderText(dst, n, env)
	case html.ElementNode:
		return t.renderElement(dst, n, env)
	case html.CommentNode:
		dst.AppendChild(&html.Node{Type: html.CommentNode, Data: n.Data})
	}
	return nil
}

func (t *Template) renderText(dst, n *html.Node, env map[string]any) error {
	ip := t.texts[n]
	if ip == nil {
		dst.AppendChild(Text(n.Data))
		return nil
	}

	vals, err := ip.values(env)
	if err != nil {
		return newComponentError(t.name, n, fmt.Errorf("eval text: %w", err))
	}
	for _, v := range vals {
		if hn, ok := v.(*html.Node); ok && hn != nil {
			Append(dst, cloneTree(hn))
			continue
		}
		Append(dst, v)
	}
	return nil
}

func (t *Template) renderElement(dst, n *html.Node, env map[string]any) error {
	clone := &html.Node{
		Type:      html.ElementNode,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}

	for _, a := range t.attrs[n] {
		if a.val == nil {
			clone.Attr = append(clone.Attr, a.attr)
			continue
		}
		vals, err := a.val.values(env)
		if err != nil {
			return newComponentError(t.name, n, fmt.Errorf("eval attr %q: %w", a.attr.Key, err))
		}
		// a single expression evaluating to false drops the attribute (checked, disabled, ...)
		if a.val.single() && vals[0] == false {
			continue
		}
		var sb strings.Builder
		for _, v := range vals {
			switch v.(type) {
			case nil, *html.Node:
			default:
				sb.WriteString(fmt.Sprint(v))
			}
		}
		clone.Attr = append(clone.Attr, html.Attribute{
			Namespace: a.attr.Namespace,
			Key:       a.attr.Key,
			Val:       sb.String(),
		})
	}

	if err := t.renderChildren(clone, n, env); err != nil {
		return err
	}
	dst.AppendChild(clone)
	return nil
}

// loop is a compiled c:for directive.
type loop struct {
	index string // optional
	value string
	prog  *vm.Program
}

func parseLoop(s string) (*loop, error) {
	lhs, rhs, ok := strings.Cut(s, " in ")
	if !ok || strings.TrimSpace(rhs) == "" {
		return nil, fmt.Errorf(`%s: expected "item in expr", got %q`, attrFor, s)
	}

	names := strings.Split(lhs, ",")
	if len(names) > 2 {
		return nil, fmt.Errorf("%s: too many loop variables in %q", attrFor, s)
	}
	for i := range names {
		names[i] = strings.TrimSpace(names[i])
		if !identifierRegex.MatchString(names[i]) {
			return nil, fmt.Errorf("%s: invalid loop variable %q", attrFor, names[i])
		}
	}

	prog, err := compileExpr(strings.TrimSpace(rhs))
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", attrFor, err)
	}

	lp := &loop{value: names[len(names)-1], prog: prog}
	if len(names) == 2 {
		lp.index = names[0]
	}
	return lp, nil
}

// each evaluates the loop expression and calls fn with a copy of env extended by the loop
// variables for every element.
func (lp *loop) each(env map[string]any, fn func(map[string]any) error) error {
	v, err := expr.Run(lp.prog, env)
	if err != nil {
		return fmt.Errorf("eval %s: %w", attrFor, err)
	}
	if v == nil {
		return nil
	}

	iter := func(k, v any) error {
		child := make(map[string]any, len(env)+2)
		for name, val := range env {
			child[name] = val
		}
		child[lp.value] = v
		if lp.index != "" {
			child[lp.index] = k
		}
		return fn(child)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if err := iter(i, rv.Index(i).Interface()); err != nil {
				return err
			}
		}
	case reflect.Map:
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})
		for _, k := range keys {
			if err := iter(k.Interface(), rv.MapIndex(k).Interface()); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%s: cannot iterate over %T", attrFor, v)
	}
	return nil
}

// isTruthy returns true if the value is considered truthy for conditional rendering.
func isTruthy(res any) bool {
	switch v := res.(type) {
	case bool:
		return v
	case string:
		return v != ""
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return !reflect.ValueOf(v).IsZero()
	case nil:
		return false
	default:
		rv := reflect.ValueOf(res)
		switch rv.Kind() {
		case reflect.Slice, reflect.Map:
			return rv.Len() > 0
		case reflect.Pointer:
			return !rv.IsNil()
		}
		return true
	}
}
