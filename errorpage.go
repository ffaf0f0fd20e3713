package dashboard

import (
	"errors"

	"golang.org/x/net/html"

	"github.com/jsremote/dashboard/view"
)

// ErrorComponent is the name of the optional error page component.
const ErrorComponent = "error"

// ErrorDetail describes one error passed to the error page.
type ErrorDetail struct {
	Message string `expr:"message"`

	// Component, Path and Context are set for template errors.
	Component string `expr:"component"`
	Path      string `expr:"path"`
	Context   string `expr:"context"`
}

// ErrorDetails splits err into its joined errors and extracts the template location of every
// component error.
func ErrorDetails(err error) []ErrorDetail {
	if err == nil {
		return nil
	}

	errs := []error{err}
	if multierr, ok := err.(interface{ Unwrap() []error }); ok {
		errs = multierr.Unwrap()
	}

	details := make([]ErrorDetail, 0, len(errs))
	for _, err := range errs {
		d := ErrorDetail{Message: err.Error()}
		var ce *view.ComponentError
		if errors.As(err, &ce) {
			d.Component = ce.Component
			d.Path = ce.Path
			d.Context = ce.HTMLContext()
		}
		details = append(details, d)
	}
	return details
}

// renderErrorPage renders page with the details of err as "errors".
func renderErrorPage(page view.Component, s view.Scope, err error) (*html.Node, error) {
	out, rerr := page.Render(s.Spawn(map[string]any{
		"errors": ErrorDetails(err),
	}))
	if rerr != nil {
		return nil, rerr
	}
	doc := view.Fragment()
	view.Append(doc, out)
	return doc, nil
}
