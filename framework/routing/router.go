package routing

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/km-arc/h3ravel/framework/container"
	"github.com/km-arc/h3ravel/framework/foundation"
	"github.com/km-arc/h3ravel/framework/http"
)

// Router registers routes with Laravel-style helpers and dispatches matched
// requests through their route middleware. Matching is done by chi.
//
// Group, Prefix, Middleware and Name return routers that share the same
// route table and differ only in the attributes applied to new routes.
type Router struct {
	*table

	prefix     string
	middleware []any
	namePrefix string
}

// table is shared by a router and every router derived from it.
type table struct {
	app      *foundation.Application
	resolver *MiddlewareResolver

	mu       sync.RWMutex
	mux      *chi.Mux
	routes   []*Route
	index    map[string]int // "get /users/{id}" → position in routes
	names    map[string]*Route
	bindings map[string]Binder
}

// New creates a Router. app may be nil when no controller or middleware
// needs resolving from the container.
func New(app *foundation.Application) *Router {
	var c *container.Container
	if app != nil {
		c = app.Container
	}
	r := &Router{table: &table{
		app:      app,
		resolver: NewMiddlewareResolver(c),
		mux:      chi.NewRouter(),
		index:    make(map[string]int),
		names:    make(map[string]*Route),
		bindings: make(map[string]Binder),
	}}
	r.resolver.Alias("bindings", SubstituteBindings(r))
	return r
}

// Resolver returns the middleware resolver holding aliases and groups.
func (r *Router) Resolver() *MiddlewareResolver { return r.resolver }

func (t *table) container() *container.Container {
	if t.app == nil {
		return nil
	}
	return t.app.Container
}

// ── HTTP verbs ───────────────────────────────────────────────────────────────

// Actions are HandlerFunc, func(*http.Context) (any, error), Uses(...), or a
// net/http handler.
func (r *Router) Get(path string, action any) *Route     { return r.add("GET", path, action) }
func (r *Router) Post(path string, action any) *Route    { return r.add("POST", path, action) }
func (r *Router) Put(path string, action any) *Route     { return r.add("PUT", path, action) }
func (r *Router) Patch(path string, action any) *Route   { return r.add("PATCH", path, action) }
func (r *Router) Delete(path string, action any) *Route  { return r.add("DELETE", path, action) }
func (r *Router) Options(path string, action any) *Route { return r.add("OPTIONS", path, action) }

var (
	anyMethods   = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	probeMethods = []string{"GET", "HEAD", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
)

// Any registers the action for all common HTTP methods.
func (r *Router) Any(path string, action any) []*Route {
	return r.Match(anyMethods, path, action)
}

// Match registers the action for each method, like Route::match(['get','post'], ...).
func (r *Router) Match(methods []string, path string, action any) []*Route {
	routes := make([]*Route, 0, len(methods))
	for _, m := range methods {
		routes = append(routes, r.add(strings.ToUpper(m), path, action))
	}
	return routes
}

func (r *Router) add(method, path string, action any) *Route {
	full := joinPath(r.prefix, path)
	rt := &Route{
		Method:     strings.ToLower(method),
		Path:       full,
		pattern:    "/" + strings.TrimPrefix(full, "/"),
		middleware: append([]any(nil), r.middleware...),
		router:     r,
	}
	rt.setAction(action)

	r.mu.Lock()
	defer r.mu.Unlock()

	key := routeKey(rt.Method, rt.pattern)
	if i, ok := r.index[key]; ok {
		r.routes[i] = rt
		return rt
	}
	r.mux.MethodFunc(method, rt.pattern, noop)
	r.index[key] = len(r.routes)
	r.routes = append(r.routes, rt)
	return rt
}

// The matcher only answers "which pattern"; the table owns the actions.
func noop(nethttp.ResponseWriter, *nethttp.Request) {}

func routeKey(method, pattern string) string {
	return strings.ToLower(method) + " " + pattern
}

func joinPath(prefix, path string) string {
	if prefix == "" {
		return path
	}
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return prefix
	}
	return strings.TrimSuffix(prefix, "/") + "/" + path
}

// ── Groups & Prefixes ────────────────────────────────────────────────────────

// Group runs fn with a router carrying the current attributes
// (Laravel: Route::group([], fn)).
func (r *Router) Group(fn func(r *Router)) {
	fn(r.derive())
}

// Prefix runs fn with a router whose routes live under prefix
// (Laravel: Route::prefix('/api')->group(fn)).
func (r *Router) Prefix(prefix string, fn func(r *Router)) {
	child := r.derive()
	child.prefix = joinPath(r.prefix, strings.TrimSuffix(prefix, "/"))
	fn(child)
}

// Middleware returns a router that adds mw to every route it registers.
//
//	r.Middleware("auth", "throttle:60,1").Group(func(r *routing.Router) { ... })
func (r *Router) Middleware(mw ...any) *Router {
	child := r.derive()
	child.middleware = append(child.middleware, mw...)
	return child
}

// Name returns a router that prefixes route names, e.g. Name("admin.").
func (r *Router) Name(prefix string) *Router {
	child := r.derive()
	child.namePrefix += prefix
	return child
}

func (r *Router) derive() *Router {
	return &Router{
		table:      r.table,
		prefix:     r.prefix,
		middleware: append([]any(nil), r.middleware...),
		namePrefix: r.namePrefix,
	}
}

// ── Resource routes ──────────────────────────────────────────────────────────

// Resource registers the RESTful routes of a resource controller bound in the
// container under controller:
//
//	GET    /photos          → index    photos.index
//	POST   /photos          → store    photos.store
//	GET    /photos/{id}     → show     photos.show
//	PUT    /photos/{id}     → update   photos.update
//	PATCH  /photos/{id}     → update   photos.update
//	DELETE /photos/{id}     → destroy  photos.destroy
func (r *Router) Resource(path, controller string) []*Route {
	name := strings.ReplaceAll(strings.Trim(path, "/"), "/", ".")
	item := strings.TrimSuffix(path, "/") + "/{id}"

	return []*Route{
		r.Get(path, Uses(controller, "index")).Named(name + ".index"),
		r.Post(path, Uses(controller, "store")).Named(name + ".store"),
		r.Get(item, Uses(controller, "show")).Named(name + ".show"),
		r.Put(item, Uses(controller, "update")).Named(name + ".update"),
		r.Patch(item, Uses(controller, "update")),
		r.Delete(item, Uses(controller, "destroy")).Named(name + ".destroy"),
	}
}

// ── Static files ─────────────────────────────────────────────────────────────

// Static serves a directory at the given prefix.
// e.g. router.Static("/public", "./public")
func (r *Router) Static(prefix, dir string) *Route {
	full := "/" + strings.Trim(joinPath(r.prefix, prefix), "/")
	fs := nethttp.StripPrefix(full, nethttp.FileServer(nethttp.Dir(dir)))
	return r.Get(strings.TrimSuffix(prefix, "/")+"/*", fs)
}

// Mount exposes a plain net/http handler on GET path, e.g. /metrics.
func (r *Router) Mount(path string, h nethttp.Handler) *Route {
	return r.Get(path, h)
}

// ── Route table ──────────────────────────────────────────────────────────────

// Routes returns the route table in registration order.
func (r *Router) Routes() []*Route {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Route(nil), r.routes...)
}

// RefreshNameLookups rebuilds the name index. Names set after registration
// are only visible to ByName and URL once this has run. When two routes share
// a name the first one keeps it and ErrDuplicateRouteName is returned.
func (r *Router) RefreshNameLookups() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	r.names = make(map[string]*Route, len(r.routes))
	for _, rt := range r.routes {
		if rt.Name == "" {
			continue
		}
		if prev, taken := r.names[rt.Name]; taken {
			errs = append(errs, fmt.Errorf("%w: [%s] on %s %s and %s %s", ErrDuplicateRouteName,
				rt.Name, strings.ToUpper(prev.Method), prev.Path, strings.ToUpper(rt.Method), rt.Path))
			continue
		}
		r.names[rt.Name] = rt
	}
	return errors.Join(errs...)
}

// ByName looks a route up by name.
func (r *Router) ByName(name string) (*Route, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.names[name]
	return rt, ok
}

// URL builds the path of a named route. Parameters not in the path are
// appended as a query string.
//
//	router.URL("users.show", map[string]string{"id": "5"}) // "/users/5"
func (r *Router) URL(name string, params map[string]string) (string, error) {
	rt, ok := r.ByName(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrRouteNotFound, name)
	}

	path := rt.pattern
	used := make(map[string]bool)
	for _, p := range rt.Parameters() {
		v, ok := params[p]
		if !ok {
			return "", fmt.Errorf("%w: %q for route %s", ErrMissingParameter, p, name)
		}
		path = replacePlaceholder(path, p, url.PathEscape(v))
		used[p] = true
	}

	var extra []string
	for k := range params {
		if !used[k] {
			extra = append(extra, k)
		}
	}
	if len(extra) == 0 {
		return path, nil
	}
	sort.Strings(extra)
	q := url.Values{}
	for _, k := range extra {
		q.Set(k, params[k])
	}
	return path + "?" + q.Encode(), nil
}

func replacePlaceholder(path, param, value string) string {
	start := strings.Index(path, "{"+param)
	if start < 0 {
		return path
	}
	end := strings.IndexByte(path[start:], '}')
	if end < 0 {
		return path
	}
	return path[:start] + value + path[start+end+1:]
}

// ── Params ───────────────────────────────────────────────────────────────────

// Param extracts a URL param (Laravel: $request->route('id')).
func Param(r *nethttp.Request, key string) string {
	return chi.URLParam(r, key)
}

// ── Dispatch ─────────────────────────────────────────────────────────────────

// Current returns the route matched for ctx.
func Current(ctx *http.Context) (*Route, bool) {
	v, ok := ctx.Get(currentRouteKey)
	if !ok {
		return nil, false
	}
	rt, ok := v.(*Route)
	return rt, ok
}

const currentRouteKey = "routing.route"

// Dispatch matches ctx's request and runs the route middleware and action.
// It is the kernel's terminal handler. No match is a 404 HTTPError; a path
// that matches under other methods is a 405 with an Allow header.
func (r *Router) Dispatch(ctx *http.Context) (any, error) {
	req := ctx.Request.Raw()
	path := req.URL.RawPath
	if path == "" {
		path = req.URL.Path
	}

	rctx := chi.NewRouteContext()
	rt := r.match(rctx, req.Method, path)
	if rt == nil && req.Method == nethttp.MethodHead {
		rctx = chi.NewRouteContext()
		rt = r.match(rctx, nethttp.MethodGet, path)
	}
	if rt == nil {
		if allowed := r.allowed(path); len(allowed) > 0 {
			ctx.Response.SetHeader("Allow", strings.Join(allowed, ", "))
			return nil, http.NewHTTPError(nethttp.StatusMethodNotAllowed, "")
		}
		return nil, http.NewHTTPError(nethttp.StatusNotFound, "")
	}

	rctx.RouteMethod = req.Method
	ctx.SetRawRequest(req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx)))

	params := make(map[string]string, len(rctx.URLParams.Keys))
	for i, k := range rctx.URLParams.Keys {
		params[k] = rctx.URLParams.Values[i]
	}
	ctx.SetParams(params)
	ctx.Set(currentRouteKey, rt)

	pipeline, err := rt.resolvedPipeline()
	if err != nil {
		return nil, err
	}
	return pipeline.Then(ctx, rt.run)
}

func (r *Router) match(rctx *chi.Context, method, path string) *Route {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.mux.Match(rctx, method, path) || len(rctx.RoutePatterns) == 0 {
		return nil
	}
	pattern := rctx.RoutePatterns[len(rctx.RoutePatterns)-1]
	i, ok := r.index[routeKey(method, pattern)]
	if !ok {
		return nil
	}
	return r.routes[i]
}

func (r *Router) allowed(path string) []string {
	var methods []string
	for _, m := range probeMethods {
		if r.match(chi.NewRouteContext(), m, path) != nil {
			methods = append(methods, m)
		}
	}
	return methods
}

// ── Serve ────────────────────────────────────────────────────────────────────

// ServeHTTP runs the router behind a bare kernel with no global middleware.
// Applications normally go through http.Kernel with Dispatch as terminal.
func (r *Router) ServeHTTP(w nethttp.ResponseWriter, req *nethttp.Request) {
	http.NewKernel(r.app, nil).Handler(r.Dispatch).ServeHTTP(w, req)
}

// Handler returns the router as an http.Handler.
func (r *Router) Handler() nethttp.Handler {
	return r
}
