package dashboard

import (
	"embed"
	"io/fs"
)

//go:embed views/*.chtml
var viewsFS embed.FS

// DefaultViews returns the built-in header, footer and view templates.
func DefaultViews() fs.FS {
	sub, err := fs.Sub(viewsFS, "views")
	if err != nil {
		panic(err) // the directory is embedded at build time
	}
	return sub
}
