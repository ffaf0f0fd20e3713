package view

import (
	"errors"
)

// ErrComponentNotFound is returned by an Importer that does not know the requested component.
var ErrComponentNotFound = errors.New("component not found")

type Component interface {
	// Render transforms the input data from the scope into another data object, typically
	// an HTML tree (*html.Node) that is appended to the parent component output.
	Render(s Scope) (any, error)
}

// ComponentFunc is an adapter to allow the use of ordinary functions as components.
type ComponentFunc func(s Scope) (any, error)

func (f ComponentFunc) Render(s Scope) (any, error) {
	return f(s)
}

// Disposable is an optional interface for components that hold resources (subscriptions,
// goroutines) which must be released when the component is no longer rendered.
type Disposable interface {
	Dispose() error
}

// Dispose calls Dispose on every component implementing Disposable and joins the errors.
func Dispose(comps ...Component) error {
	var errs []error
	for _, c := range comps {
		if d, ok := c.(Disposable); ok {
			errs = append(errs, d.Dispose())
		}
	}
	return errors.Join(errs...)
}

// Importer acts as a factory for components referenced by name.
type Importer interface {
	Import(name string) (Component, error)
}

// ImporterFunc is an adapter to allow the use of ordinary functions as importers.
type ImporterFunc func(name string) (Component, error)

func (f ImporterFunc) Import(name string) (Component, error) {
	return f(name)
}

// Registry is an Importer over a fixed set of named components.
type Registry map[string]Component

func (r Registry) Import(name string) (Component, error) {
	if c, ok := r[name]; ok && c != nil {
		return c, nil
	}
	return nil, ErrComponentNotFound
}

// Chain returns an Importer that asks each importer in turn. An importer failing with anything
// other than ErrComponentNotFound stops the lookup.
func Chain(importers ...Importer) Importer {
	return ImporterFunc(func(name string) (Component, error) {
		for _, imp := range importers {
			if imp == nil {
				continue
			}
			c, err := imp.Import(name)
			if err == nil || !errors.Is(err, ErrComponentNotFound) {
				return c, err
			}
		}
		return nil, ErrComponentNotFound
	})
}
