package view

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/jsremote/dashboard/route"
)

const (
	eof        rune = -1
	leftDelim       = "${"
	rightDelim      = "}"
)

// exprOptions returns the options every template expression is compiled with. Variables are
// resolved at run time from the component scope, so undefined names evaluate to nil.
func exprOptions() []expr.Option {
	return []expr.Option{
		expr.AllowUndefinedVariables(),
		expr.Function("path", pathFunction),
	}
}

func pathFunction(params ...any) (any, error) {
	elems := make([]string, 0, len(params))
	for _, p := range params {
		if p == nil {
			continue
		}
		elems = append(elems, fmt.Sprint(p))
	}
	if len(elems) == 0 {
		return "/", nil
	}
	return route.Join(elems[0], elems[1:]...), nil
}

// compileExpr compiles a single expression.
func compileExpr(s string) (*vm.Program, error) {
	return expr.Compile(s, exprOptions()...)
}

// interpol is a string with ${}-style placeholders split into literal text and compiled
// expressions.
type interpol struct {
	parts []interpolPart
}

type interpolPart struct {
	text string
	prog *vm.Program
}

// newInterpol parses s. If s has no placeholders, it returns (nil, nil).
func newInterpol(s string) (*interpol, error) {
	l := &lexer{input: s}
	for state := lexText; state != nil; {
		state = state(l)
	}

	ip := &interpol{}
	hasExpr := false
	for _, it := range l.items {
		switch it.typ {
		case itemError:
			return nil, fmt.Errorf("interpolate %q: %s", s, it.val)
		case itemText:
			ip.parts = append(ip.parts, interpolPart{text: it.val})
		case itemExpr:
			prog, err := compileExpr(it.val)
			if err != nil {
				return nil, fmt.Errorf("compile ${%s}: %w", it.val, err)
			}
			ip.parts = append(ip.parts, interpolPart{prog: prog})
			hasExpr = true
		}
	}
	if !hasExpr {
		return nil, nil
	}
	return ip, nil
}

// values evaluates the parts in order. Literal parts are returned as strings.
func (ip *interpol) values(env map[string]any) ([]any, error) {
	vals := make([]any, 0, len(ip.parts))
	for _, p := range ip.parts {
		if p.prog == nil {
			vals = append(vals, p.text)
			continue
		}
		v, err := expr.Run(p.prog, env)
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	return vals, nil
}

// single reports whether the interpolation consists of exactly one expression.
func (ip *interpol) single() bool {
	return len(ip.parts) == 1 && ip.parts[0].prog != nil
}

// Implementation of the lexer based on https://go.dev/talks/2011/lex.slide

// lexer holds the state of the scanner.
type lexer struct {
	input       string // the string being scanned
	start       int    // start position of this item.
	pos         int    // current position in the input.
	width       int    // width of last rune read from input.
	bracesDepth int    // nesting depth of braces {}
	items       []item
}

type itemType int

const (
	itemError itemType = iota
	itemEOF
	itemText
	itemExpr
)

type item struct {
	typ itemType
	val string
}

// stateFn represents the state of the scanner as a function that returns the next state.
type stateFn func(*lexer) stateFn

func (l *lexer) emit(t itemType) stateFn {
	l.items = append(l.items, item{t, l.input[l.start:l.pos]})
	l.start = l.pos
	return nil
}

func (l *lexer) errorf(format string, args ...any) stateFn {
	l.items = append(l.items, item{itemError, fmt.Sprintf(format, args...)})
	return nil
}

func (l *lexer) next() rune {
	if l.pos >= len(l.input) {
		l.width = 0
		return eof
	}
	r, w := utf8.DecodeRuneInString(l.input[l.pos:])
	l.width = w
	l.pos += w
	return r
}

// scanString skips a quoted string so braces inside it are not counted. It reports false on an
// unterminated string.
func (l *lexer) scanString(quote rune) bool {
	for ch := l.next(); ch != quote; ch = l.next() {
		if ch == '\n' || ch == eof {
			return false
		}
		if ch == '\\' {
			l.next()
		}
	}
	return true
}

func (l *lexer) atRightDelim() bool {
	return l.bracesDepth == 0 && strings.HasPrefix(l.input[l.pos:], rightDelim)
}

func lexText(l *lexer) stateFn {
	if x := strings.Index(l.input[l.pos:], leftDelim); x >= 0 {
		if x > 0 {
			l.pos += x
			l.emit(itemText)
		}
		return lexLeftDelim
	}
	l.pos = len(l.input)
	if l.pos > l.start {
		l.emit(itemText)
	}
	return l.emit(itemEOF)
}

func lexLeftDelim(l *lexer) stateFn {
	l.pos += len(leftDelim)
	l.start = l.pos
	return lexExpr
}

func lexRightDelim(l *lexer) stateFn {
	l.pos += len(rightDelim)
	l.start = l.pos
	return lexText
}

func lexExpr(l *lexer) stateFn {
	if l.atRightDelim() {
		if strings.TrimSpace(l.input[l.start:l.pos]) == "" {
			return l.errorf("empty expression")
		}
		l.emit(itemExpr)
		return lexRightDelim
	}
	switch r := l.next(); r {
	case eof:
		return l.errorf("unclosed action")
	case '\'', '"', '`':
		if !l.scanString(r) {
			return l.errorf("unterminated string")
		}
	case '{':
		l.bracesDepth++
	case '}':
		l.bracesDepth--
	}
	return lexExpr
}
