package bootstrap

import (
	"slices"

	"github.com/km-arc/h3ravel/framework/http"
	"github.com/km-arc/h3ravel/framework/routing"
)

// Middleware records changes to the global stack and the route middleware
// aliases and groups. Global changes wrap the framework defaults
// (request id, request log, metrics).
//
//	// Laravel: ->withMiddleware(function (Middleware $middleware) { ... })
type Middleware struct {
	prepend []http.Middleware
	append  []http.Middleware
	replace []http.Middleware
	useOnly bool

	resolver []func(*routing.MiddlewareResolver)
}

// Prepend runs mw before the default global middleware.
func (m *Middleware) Prepend(mw ...http.Middleware) *Middleware {
	m.prepend = append(m.prepend, mw...)
	return m
}

// Append runs mw after the default global middleware.
func (m *Middleware) Append(mw ...http.Middleware) *Middleware {
	m.append = append(m.append, mw...)
	return m
}

// Use replaces the default global middleware entirely.
func (m *Middleware) Use(mw ...http.Middleware) *Middleware {
	m.replace = mw
	m.useOnly = true
	return m
}

// Alias names a middleware for routes.
func (m *Middleware) Alias(name string, target any) *Middleware {
	m.resolver = append(m.resolver, func(r *routing.MiddlewareResolver) { r.Alias(name, target) })
	return m
}

// Group defines or replaces a middleware group.
func (m *Middleware) Group(name string, mw ...any) *Middleware {
	m.resolver = append(m.resolver, func(r *routing.MiddlewareResolver) { r.Group(name, mw...) })
	return m
}

// Web appends to the "web" group.
func (m *Middleware) Web(mw ...any) *Middleware {
	m.resolver = append(m.resolver, func(r *routing.MiddlewareResolver) { r.AppendToGroup("web", mw...) })
	return m
}

// API appends to the "api" group.
func (m *Middleware) API(mw ...any) *Middleware {
	m.resolver = append(m.resolver, func(r *routing.MiddlewareResolver) { r.AppendToGroup("api", mw...) })
	return m
}

func (m *Middleware) global(defaults []http.Middleware) []http.Middleware {
	base := defaults
	if m.useOnly {
		base = m.replace
	}
	return slices.Concat(m.prepend, base, m.append)
}

func (m *Middleware) apply(r *routing.MiddlewareResolver) {
	for _, fn := range m.resolver {
		fn(r)
	}
}
