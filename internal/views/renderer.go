package views

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

// SharedNamespace holds views available to every tenant.
const SharedNamespace = "shared"

var ErrViewNotFound = errors.New("view not found")

// Renderer executes html/template views parsed once from an fs.FS laid out
// as <namespace>/<name>.html.
type Renderer struct {
	templates map[string]*template.Template
}

func New(fsys fs.FS) (*Renderer, error) {
	if fsys == nil {
		return nil, fmt.Errorf("views filesystem is required")
	}
	r := &Renderer{templates: map[string]*template.Template{}}
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".html" {
			return nil
		}
		key := strings.TrimSuffix(p, ".html")
		if strings.Count(key, "/") != 1 {
			return nil
		}
		tmpl, err := template.New(path.Base(p)).ParseFS(fsys, p)
		if err != nil {
			return fmt.Errorf("parsing view %s: %w", p, err)
		}
		r.templates[key] = tmpl
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(r.templates) == 0 {
		return nil, fmt.Errorf("no views found")
	}
	return r, nil
}

// Has reports whether namespace or the shared namespace defines name.
func (r *Renderer) Has(namespace, name string) bool {
	_, ok := r.lookup(namespace, name)
	return ok
}

// Render writes the view to w. Output is buffered so a failing template
// leaves w untouched.
func (r *Renderer) Render(w http.ResponseWriter, status int, namespace, name string, data any) error {
	tmpl, ok := r.lookup(namespace, name)
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrViewNotFound, namespace, name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("rendering view %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func (r *Renderer) lookup(namespace, name string) (*template.Template, bool) {
	if tmpl, ok := r.templates[namespace+"/"+name]; ok {
		return tmpl, true
	}
	tmpl, ok := r.templates[SharedNamespace+"/"+name]
	return tmpl, ok
}
