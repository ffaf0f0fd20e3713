package dashboard

import (
	"net/http"

	"github.com/jsremote/dashboard/view"
)

// scope wraps view.BaseScope to carry request globals shared by all spawned scopes.
type scope struct {
	*view.BaseScope
	globals *scopeGlobals
}

type scopeGlobals struct {
	req      *http.Request
	location string
}

var _ view.Scope = (*scope)(nil)
var _ Locator = (*scope)(nil)

func newScope(vars map[string]any, req *http.Request, location string) *scope {
	return &scope{
		BaseScope: view.NewBaseScope(vars),
		globals: &scopeGlobals{
			req:      req,
			location: location,
		},
	}
}

func (s *scope) Spawn(vars map[string]any) view.Scope {
	return &scope{
		BaseScope: s.BaseScope.Spawn(vars).(*view.BaseScope),
		globals:   s.globals,
	}
}

// Location returns the URL path the shell is rendered for.
func (s *scope) Location() string {
	return s.globals.location
}

// Request returns the HTTP request that started the render.
func (s *scope) Request() *http.Request {
	return s.globals.req
}

func (s *scope) setLocation(location string) {
	s.globals.location = location
}
