// Package dashboard renders the device dashboard shell: header and footer chrome around the
// overview or device view selected for the current URL.
package dashboard

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"golang.org/x/net/html"

	"github.com/jsremote/dashboard/route"
	"github.com/jsremote/dashboard/view"
)

// Names of the components resolved by LoadShell.
const (
	HeaderComponent   = "header"
	FooterComponent   = "footer"
	OverviewComponent = "overview"
	DeviceComponent   = "device"
	NotFoundComponent = "not-found"
)

// DeviceParam is the path parameter naming the device in the device view route.
const DeviceParam = "device"

// matchProp is the scope variable holding the NavigationMatch.
const matchProp = "match"

// NavigationMatch describes the route the shell is mounted at. It is produced by the router and
// only read by the shell.
type NavigationMatch struct {
	// Path is the base path pattern, e.g. "/devices" or "/labs/:lab".
	Path string `expr:"path"`

	// URL is the part of the current URL matched by Path.
	URL string `expr:"url"`

	IsExact bool              `expr:"is_exact"`
	Params  map[string]string `expr:"params"`
}

// Props is the input of the shell. Match is required. Extra is forwarded to the Header as is.
type Props struct {
	Match *NavigationMatch
	Extra map[string]any
}

// MissingPropError reports a required property that was not provided.
type MissingPropError struct {
	Component string
	Name      string
}

func (e *MissingPropError) Error() string {
	return fmt.Sprintf("%s: required property %q is missing", e.Component, e.Name)
}

// Validate checks the required properties.
func (p Props) Validate() error {
	if p.Match == nil {
		return &MissingPropError{Component: "shell", Name: matchProp}
	}
	return nil
}

// vars returns all properties as scope variables, the form the Header receives them in.
func (p Props) vars() map[string]any {
	vars := make(map[string]any, len(p.Extra)+1)
	for k, v := range p.Extra {
		vars[k] = v
	}
	if p.Match != nil {
		vars[matchProp] = p.Match
	}
	return vars
}

// PropsFromVars splits scope variables into the match and the remaining properties. A match of
// an unexpected type is reported as an error and left unset.
func PropsFromVars(vars map[string]any) (Props, error) {
	p := Props{Extra: make(map[string]any, len(vars))}
	for k, v := range vars {
		if k != matchProp {
			p.Extra[k] = v
		}
	}

	// decoded JSON
	if m, ok := vars[matchProp].(map[string]any); ok {
		match, err := matchFromMap(m)
		p.Match = match
		return p, err
	}

	var in struct{ Match *NavigationMatch }
	if err := view.UnmarshalScope(view.NewBaseScope(map[string]any{matchProp: vars[matchProp]}), &in); err != nil {
		return p, err
	}
	p.Match = in.Match
	return p, nil
}

func matchFromMap(m map[string]any) (*NavigationMatch, error) {
	nm := &NavigationMatch{}
	var ok bool
	if nm.Path, ok = m["path"].(string); !ok {
		return nil, &view.DecodeError{Key: matchProp + ".path", Err: fmt.Errorf("expected string, got %T", m["path"])}
	}
	nm.URL, _ = m["url"].(string)
	nm.IsExact, _ = m["is_exact"].(bool)
	switch params := m["params"].(type) {
	case map[string]string:
		nm.Params = params
	case map[string]any:
		nm.Params = make(map[string]string, len(params))
		for k, v := range params {
			nm.Params[k] = fmt.Sprint(v)
		}
	}
	return nm, nil
}

// Locator is implemented by scopes that know the current URL path.
type Locator interface {
	Location() string
}

// Result is the output of a shell render.
type Result struct {
	// HTML is the container element holding header, view and footer.
	HTML *html.Node

	// Matched reports whether one of the view routes matched the location.
	Matched bool

	// View is the name of the rendered view component, empty when none was rendered.
	View string

	// Route is the pattern of the selected route.
	Route string

	Params route.Params
}

// Shell renders the page chrome around the view selected for the current location:
//
//	<div class="wrapper"> Header, Overview | Device, Footer </div>
//
// Overview is selected when the location equals the base path exactly, Device when the location
// is below it; the first matching route wins. The shell has no state of its own; its output only
// depends on the properties and the location.
type Shell struct {
	Header   view.Component
	Footer   view.Component
	Overview view.Component
	Device   view.Component

	// NotFound, if set, is rendered in place of the view when no route matches. It receives the
	// location as "location".
	NotFound view.Component

	// Class is the class of the container element. Defaults to "wrapper".
	Class string

	// Logger receives property validation warnings.
	Logger *slog.Logger
}

var _ view.Component = (*Shell)(nil)
var _ view.Disposable = (*Shell)(nil)

// LoadShell imports the shell components by name. The not-found view is optional.
func LoadShell(imp view.Importer, logger *slog.Logger) (*Shell, error) {
	sh := &Shell{Logger: logger}
	for name, dst := range map[string]*view.Component{
		HeaderComponent:   &sh.Header,
		FooterComponent:   &sh.Footer,
		OverviewComponent: &sh.Overview,
		DeviceComponent:   &sh.Device,
		NotFoundComponent: &sh.NotFound,
	} {
		c, err := imp.Import(name)
		if errors.Is(err, view.ErrComponentNotFound) && name == NotFoundComponent {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("import %s: %w", name, err)
		}
		*dst = c
	}
	return sh, nil
}

// CheckBasePath reports a base path the view routes cannot be built on: the device parameter
// name is reserved for the device view.
func CheckBasePath(p route.Pattern) error {
	if slices.Contains(p.ParamNames(), DeviceParam) {
		return &route.PatternError{
			Pattern: p.String(),
			Reason:  fmt.Sprintf("parameter %q is reserved for the device view", DeviceParam),
		}
	}
	return nil
}

// Routes returns the view routes for the given match, in evaluation order.
func (sh *Shell) Routes(match NavigationMatch) ([]route.Rule[view.Component], error) {
	overview, err := route.Compile(match.Path)
	if err != nil {
		return nil, err
	}
	if err := CheckBasePath(overview); err != nil {
		return nil, err
	}
	device, err := route.Compile(route.Join(match.Path, ":"+DeviceParam))
	if err != nil {
		return nil, err
	}
	return []route.Rule[view.Component]{
		{Pattern: overview, Exact: true, Target: sh.Overview},
		{Pattern: device, Target: sh.Device},
	}, nil
}

// Render implements view.Component. The properties are read from the scope variables, the
// location from the scope if it implements Locator, otherwise the matched URL is used. Header
// receives the scope variables as they are; the decoded match only selects the view.
func (sh *Shell) Render(s view.Scope) (any, error) {
	vars := s.Vars()
	props, err := PropsFromVars(vars)
	if err != nil {
		sh.logger().Warn("Decode shell properties", "error", err)
	}

	location := ""
	if l, ok := s.(Locator); ok {
		location = l.Location()
	} else if props.Match != nil {
		location = props.Match.URL
	}

	res, err := sh.renderWith(s, props, vars, location)
	if err != nil {
		return nil, err
	}
	return res.HTML, nil
}

// RenderProps renders the shell for location.
func (sh *Shell) RenderProps(props Props, location string) (*Result, error) {
	return sh.render(view.NewBaseScope(nil), props, location)
}

func (sh *Shell) render(s view.Scope, props Props, location string) (*Result, error) {
	return sh.renderWith(s, props, props.vars(), location)
}

// renderWith renders the shell with headerVars as the Header scope.
func (sh *Shell) renderWith(s view.Scope, props Props, headerVars map[string]any, location string) (*Result, error) {
	if err := props.Validate(); err != nil {
		sh.logger().Warn("Invalid shell properties", "error", err)
	}

	class := sh.Class
	if class == "" {
		class = "wrapper"
	}
	res := &Result{HTML: view.Element("div", view.Attr("class", class))}

	if err := renderChild(res.HTML, sh.Header, s.Spawn(headerVars)); err != nil {
		return nil, err
	}

	if props.Match != nil {
		rules, err := sh.Routes(*props.Match)
		if err != nil {
			return nil, err
		}

		if sel, ok := route.Select(rules, location); ok {
			res.Matched = true
			res.Route = sel.Rule.Pattern.String()
			res.Params = sel.Match.Params

			vars := map[string]any{}
			res.View = OverviewComponent
			if sel.Index > 0 {
				res.View = DeviceComponent
				for k, v := range sel.Match.Params {
					vars[k] = v
				}
			}
			if err := renderChild(res.HTML, sel.Rule.Target, s.Spawn(vars)); err != nil {
				return nil, err
			}
		} else if sh.NotFound != nil {
			res.View = NotFoundComponent
			if err := renderChild(res.HTML, sh.NotFound, s.Spawn(map[string]any{"location": location})); err != nil {
				return nil, err
			}
		}
	}

	if err := renderChild(res.HTML, sh.Footer, s.Spawn(nil)); err != nil {
		return nil, err
	}
	return res, nil
}

// renderChild renders c into parent. Errors are returned unchanged.
func renderChild(parent *html.Node, c view.Component, s view.Scope) error {
	if c == nil {
		return nil
	}
	out, err := c.Render(s)
	if err != nil {
		return err
	}
	view.Append(parent, out)
	return nil
}

// Dispose releases the child components.
func (sh *Shell) Dispose() error {
	return view.Dispose(sh.Header, sh.Footer, sh.Overview, sh.Device, sh.NotFound)
}

func (sh *Shell) logger() *slog.Logger {
	if sh.Logger != nil {
		return sh.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
