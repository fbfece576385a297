package http

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"sync"

	"github.com/km-arc/h3ravel/framework/container"
	"github.com/km-arc/h3ravel/framework/foundation"
)

// Context is the per-request bundle handed to middleware and actions.
type Context struct {
	App      *foundation.Application
	Request  *Request
	Response *Response
	Event    *Event

	mu     sync.RWMutex
	values map[string]any
	params map[string]string
	models map[string]any
}

func newContext(app *foundation.Application, ev *Event) *Context {
	c := &Context{
		App:      app,
		Event:    ev,
		Response: NewResponse(ev.Writer),
		values:   make(map[string]any),
		params:   make(map[string]string),
		models:   make(map[string]any),
	}
	ev.Request = ev.Request.WithContext(withContext(ev.Request.Context(), c))
	c.Request = NewRequest(ev.Request)
	return c
}

// Context returns the request's context.Context.
func (c *Context) Context() context.Context { return c.Request.Raw().Context() }

// SetRawRequest swaps the underlying *http.Request, e.g. after the router
// attached its route context. The Context itself stays reachable from r.
func (c *Context) SetRawRequest(r *http.Request) {
	if _, ok := FromRequest(r); !ok {
		r = r.WithContext(withContext(r.Context(), c))
	}
	c.Request.raw = r
	c.Event.Request = r
}

// ── Values ───────────────────────────────────────────────────────────────────

// Set stores a request-scoped value.
func (c *Context) Set(key string, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = v
}

// Get reads a request-scoped value.
func (c *Context) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

// ── Route parameters & bound models ─────────────────────────────────────────

// SetParams replaces the matched route parameters.
func (c *Context) SetParams(params map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.params = maps.Clone(params)
	if c.params == nil {
		c.params = make(map[string]string)
	}
}

// Param returns a route parameter, or "".
//
//	// Laravel: $request->route('user')
func (c *Context) Param(name string) string {
	c.mu.RLock()
	v, ok := c.params[name]
	c.mu.RUnlock()
	if ok {
		return v
	}
	return c.Request.RouteParam(name)
}

// Params returns a copy of the route parameters.
func (c *Context) Params() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.params)
}

// SetModel records the model bound to a route parameter.
func (c *Context) SetModel(param string, model any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.models[param] = model
}

// Model returns the model bound to param by route-model binding.
func (c *Context) Model(param string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.models[param]
	return m, ok
}

// BoundModel is the typed form of Context.Model.
//
//	user, err := http.BoundModel[*models.User](ctx, "user")
func BoundModel[T any](c *Context, param string) (T, error) {
	var zero T
	m, ok := c.Model(param)
	if !ok {
		return zero, fmt.Errorf("no model bound to route parameter %q", param)
	}
	t, ok := m.(T)
	if !ok {
		return zero, fmt.Errorf("model bound to %q is %T", param, m)
	}
	return t, nil
}

// ── Container access ────────────────────────────────────────────────────────

// Make resolves key from the application container.
func (c *Context) Make(key string) (any, error) {
	if c.App == nil {
		return nil, &container.BindingResolutionError{Abstract: key, Err: container.ErrNotBound}
	}
	return c.App.Make(key)
}

// View renders the named template with status 200.
//
//	return ctx.View("users/show", map[string]any{"user": user})
func (c *Context) View(name string, data any) (*Response, error) {
	views, err := c.views()
	if err != nil {
		return c.Response, err
	}
	return c.Response.View(views, name, data)
}

func (c *Context) views() (ViewRenderer, error) {
	if c.App == nil {
		return nil, &container.BindingResolutionError{Abstract: "view", Err: container.ErrNotBound}
	}
	return container.Resolve[ViewRenderer](c.App.Container, "view")
}
