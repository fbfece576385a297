// Package view renders html/template files from the application's views
// directory. Names use slashes and no extension: "errors/404" resolves to
// resources/views/errors/404.html.
package view

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"
)

// ErrNotFound is returned when a named template does not exist.
var ErrNotFound = errors.New("view: template not found")

// Engine holds the template source and, when caching, the parsed sets.
type Engine struct {
	fsys  fs.FS
	ext   string
	cache bool
	funcs template.FuncMap

	mu     sync.RWMutex
	parsed map[string]*template.Template
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache keeps parsed templates. Leave it off in local development so
// edits show up without a restart.
func WithCache(on bool) Option {
	return func(e *Engine) { e.cache = on }
}

// WithFuncs adds template functions available to every view.
func WithFuncs(funcs template.FuncMap) Option {
	return func(e *Engine) {
		for k, v := range funcs {
			e.funcs[k] = v
		}
	}
}

// New serves templates from dir with extension ext (".html" when empty).
func New(dir, ext string, opts ...Option) *Engine {
	return NewFS(os.DirFS(dir), ext, opts...)
}

// NewFS serves templates from fsys, for embedded views and tests.
func NewFS(fsys fs.FS, ext string, opts ...Option) *Engine {
	if ext == "" {
		ext = ".html"
	}
	e := &Engine{
		fsys:   fsys,
		ext:    ext,
		funcs:  template.FuncMap{"upper": strings.ToUpper, "lower": strings.ToLower},
		parsed: make(map[string]*template.Template),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) file(name string) (string, bool) {
	name = strings.TrimPrefix(path.Clean("/"+strings.ReplaceAll(name, ".", "/")), "/")
	if name == "" {
		return "", false
	}
	return name + e.ext, true
}

// Exists reports whether the named template is present.
func (e *Engine) Exists(name string) bool {
	file, ok := e.file(name)
	if !ok {
		return false
	}
	_, err := fs.Stat(e.fsys, file)
	return err == nil
}

// Render executes the named template into w.
//
//	engine.Render(w, "users.show", map[string]any{"user": u})
func (e *Engine) Render(w io.Writer, name string, data any) error {
	tmpl, err := e.load(name)
	if err != nil {
		return err
	}
	return tmpl.Execute(w, data)
}

// RenderWithLayout parses layout together with name and executes the layout,
// which pulls the view in with {{template "content" .}}.
func (e *Engine) RenderWithLayout(w io.Writer, layout, name string, data any) error {
	tmpl, err := e.load(layout, name)
	if err != nil {
		return err
	}
	return tmpl.Execute(w, data)
}

func (e *Engine) load(names ...string) (*template.Template, error) {
	key := strings.Join(names, "|")
	if e.cache {
		e.mu.RLock()
		tmpl, ok := e.parsed[key]
		e.mu.RUnlock()
		if ok {
			return tmpl, nil
		}
	}

	files := make([]string, 0, len(names))
	for _, n := range names {
		file, ok := e.file(n)
		if !ok || !e.Exists(n) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, n)
		}
		files = append(files, file)
	}

	tmpl, err := template.New(path.Base(files[0])).Funcs(e.funcs).ParseFS(e.fsys, files...)
	if err != nil {
		return nil, fmt.Errorf("view: parse %s: %w", key, err)
	}

	if e.cache {
		e.mu.Lock()
		e.parsed[key] = tmpl
		e.mu.Unlock()
	}
	return tmpl, nil
}
