package view

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/fatih/camelcase"
)

// Scope holds the arguments of a component. Scopes form a tree: a component passes arguments to
// its children by spawning child scopes, and a child can ask the root to re-render via Touch.
type Scope interface {
	// Spawn creates a new child scope initialized with vars.
	Spawn(vars map[string]any) Scope

	// Vars provides access to variables stored in the scope.
	Vars() map[string]any

	// Touch marks the component as changed. The owner of the root scope should re-render
	// when this method is called.
	Touch()
}

// BaseScope is a base implementation of the Scope interface. For extra functionality, this type
// can be embedded in a custom scope implementation.
type BaseScope struct {
	vars    map[string]any
	touched chan struct{}
}

var _ Scope = (*BaseScope)(nil)

func NewBaseScope(vars map[string]any) *BaseScope {
	if vars == nil {
		vars = map[string]any{}
	}
	return &BaseScope{
		vars:    vars,
		touched: make(chan struct{}, 1),
	}
}

func (s *BaseScope) Spawn(vars map[string]any) Scope {
	if vars == nil {
		vars = map[string]any{}
	}
	return &BaseScope{
		vars:    vars,
		touched: s.touched, // all children share the same channel to notify root scope
	}
}

func (s *BaseScope) Vars() map[string]any {
	return s.vars
}

func (s *BaseScope) Touch() {
	select {
	case s.touched <- struct{}{}:
	default:
	}
}

// Touched is signalled, without blocking the caller of Touch, at least once after any Touch.
func (s *BaseScope) Touched() <-chan struct{} {
	return s.touched
}

// DecodeError is returned by UnmarshalScope when a variable has an incompatible type.
type DecodeError struct {
	Key string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Key, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// UnmarshalScope copies scope variables into target, which must be a pointer to a struct or to
// a map with string keys. Struct fields are matched by their snake_case name; variables that
// have no matching field are ignored.
func UnmarshalScope(s Scope, target any) error {
	tv := reflect.ValueOf(target)
	if tv.Kind() != reflect.Pointer || tv.IsNil() {
		return errors.New("target must be a non-nil pointer")
	}
	te := tv.Elem()

	vars := make(map[string]any, len(s.Vars()))
	for k, v := range s.Vars() {
		vars[toSnakeCase(k)] = v
	}

	switch te.Kind() {
	case reflect.Struct:
		for i := 0; i < te.NumField(); i++ {
			field := te.Type().Field(i)
			if !field.IsExported() {
				continue
			}
			name := toSnakeCase(field.Name)
			v, ok := vars[name]
			if !ok || v == nil {
				continue
			}
			rv, err := convertValue(reflect.ValueOf(v), field.Type)
			if err != nil {
				return &DecodeError{Key: name, Err: err}
			}
			te.Field(i).Set(rv)
		}
	case reflect.Map:
		if te.Type().Key().Kind() != reflect.String {
			return errors.New("map key must be a string")
		}
		if te.IsNil() {
			te.Set(reflect.MakeMap(te.Type()))
		}
		for k, v := range vars {
			var rv reflect.Value
			if v == nil {
				rv = reflect.Zero(te.Type().Elem())
			} else {
				var err error
				if rv, err = convertValue(reflect.ValueOf(v), te.Type().Elem()); err != nil {
					return &DecodeError{Key: k, Err: err}
				}
			}
			te.SetMapIndex(reflect.ValueOf(k).Convert(te.Type().Key()), rv)
		}
	default:
		return fmt.Errorf("unsupported target type %s", te.Type())
	}
	return nil
}

// convertValue converts from to type to. Values are taken by address when to is a pointer to
// the type of from.
func convertValue(from reflect.Value, to reflect.Type) (reflect.Value, error) {
	switch {
	case from.Type().AssignableTo(to):
		return from, nil
	case to.Kind() == reflect.Pointer && from.Type().AssignableTo(to.Elem()):
		p := reflect.New(to.Elem())
		p.Elem().Set(from)
		return p, nil
	case from.Kind() == reflect.Pointer && !from.IsNil() && from.Elem().Type().AssignableTo(to):
		return from.Elem(), nil
	case from.Kind() != reflect.String && from.Type().ConvertibleTo(to) && to.Kind() != reflect.String:
		return from.Convert(to), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot convert %s to %s", from.Type(), to)
}

// toSnakeCase converts camelCase and kebab-case names to snake_case, keeping digit runs attached
// to the preceding word ("deviceID2" -> "device_id2").
func toSnakeCase(s string) string {
	s = strings.ReplaceAll(s, "-", "_")

	blocks := strings.Split(s, "_")
	for i, block := range blocks {
		if block == "" {
			continue
		}
		var words []string
		for _, w := range camelcase.Split(block) {
			if isDigits(w) && len(words) > 0 {
				words[len(words)-1] += w
				continue
			}
			words = append(words, strings.ToLower(w))
		}
		blocks[i] = strings.Join(words, "_")
	}
	return strings.Join(blocks, "_")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
