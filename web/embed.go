// Package web holds the bundled views and static assets of every tenant.
package web

import (
	"embed"
	"io/fs"
	"os"
)

//go:embed views static
var bundled embed.FS

// Views returns the bundled view tree laid out as <namespace>/<name>.html.
func Views() (fs.FS, error) {
	return fs.Sub(bundled, "views")
}

// Root returns the bundled tree that tenant static roots are relative to.
func Root() fs.FS {
	return bundled
}

// FromDir serves views and static files from a directory on disk instead of
// the bundle. The directory must contain views/ and static/.
func FromDir(dir string) (root fs.FS, views fs.FS, err error) {
	root = os.DirFS(dir)
	views, err = fs.Sub(root, "views")
	if err != nil {
		return nil, nil, err
	}
	return root, views, nil
}
