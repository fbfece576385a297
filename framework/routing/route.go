package routing

import (
	"fmt"
	nethttp "net/http"
	"strings"
	"sync"

	"github.com/km-arc/h3ravel/framework/http"
)

// HandlerFunc is a route action.
type HandlerFunc func(ctx *http.Context) (any, error)

// Controller exposes its actions by name. Uses("UserController", "show")
// resolves "UserController" from the container and calls Actions()["show"].
//
//	func (c *UserController) Actions() map[string]routing.HandlerFunc {
//	    return map[string]routing.HandlerFunc{"index": c.Index, "show": c.Show}
//	}
type Controller interface {
	Actions() map[string]HandlerFunc
}

// ControllerAction references a controller method by container key and
// action name.
type ControllerAction struct {
	Controller string
	Method     string
}

// Uses builds a controller action (Laravel: [UserController::class, 'index']).
func Uses(controller, method string) ControllerAction {
	return ControllerAction{Controller: controller, Method: method}
}

// MissingFunc handles a failed route-model lookup (Laravel: ->missing(fn)).
type MissingFunc func(ctx *http.Context, err *ModelNotFoundError) (any, error)

// closureSignature is what route:list shows for inline actions.
const closureSignature = "Closure"

// Route is one entry of the route table.
type Route struct {
	Method    string // lower-case, e.g. "get"
	Path      string
	Name      string
	Signature [2]string

	pattern    string
	handler    HandlerFunc
	controller *ControllerAction
	middleware []any
	bindings   map[string]Binder
	missing    MissingFunc

	router   *Router
	once     sync.Once
	pipeline *http.Pipeline
	err      error
}

// Named sets the route name. Call Router.RefreshNameLookups once the routes
// are registered.
func (rt *Route) Named(name string) *Route {
	rt.Name = rt.router.namePrefix + name
	return rt
}

// WithMiddleware appends route middleware: instances or "name[:params]"
// references.
func (rt *Route) WithMiddleware(mw ...any) *Route {
	rt.middleware = append(rt.middleware, mw...)
	return rt
}

// Bind declares an implicit model binding for a path parameter.
func (rt *Route) Bind(param string, binder Binder) *Route {
	if rt.bindings == nil {
		rt.bindings = make(map[string]Binder)
	}
	rt.bindings[param] = binder
	return rt
}

// Missing sets the handler used when a bound model is not found.
func (rt *Route) Missing(fn MissingFunc) *Route {
	rt.missing = fn
	return rt
}

// MissingHandler returns the route's missing handler, if any.
func (rt *Route) MissingHandler() MissingFunc { return rt.missing }

// Middleware returns the route's middleware references, group ones first.
func (rt *Route) Middleware() []any { return append([]any(nil), rt.middleware...) }

// Binder returns the implicit binding declared for param.
func (rt *Route) Binder(param string) (Binder, bool) {
	b, ok := rt.bindings[param]
	return b, ok
}

// Pattern is the path as registered on the matcher, always rooted.
func (rt *Route) Pattern() string { return rt.pattern }

// Parameters lists the {placeholders} in the path, in order.
func (rt *Route) Parameters() []string {
	var params []string
	rest := rt.Path
	for {
		start := strings.IndexByte(rest, '{')
		if start < 0 {
			return params
		}
		end := strings.IndexByte(rest[start:], '}')
		if end < 0 {
			return params
		}
		name := rest[start+1 : start+end]
		if i := strings.IndexByte(name, ':'); i >= 0 {
			name = name[:i]
		}
		params = append(params, name)
		rest = rest[start+end+1:]
	}
}

// MiddlewareNames renders the middleware list for display.
func (rt *Route) MiddlewareNames() []string {
	names := make([]string, 0, len(rt.middleware))
	for _, mw := range rt.middleware {
		names = append(names, middlewareName(mw))
	}
	return names
}

// resolvedPipeline resolves the route middleware once per route.
func (rt *Route) resolvedPipeline() (*http.Pipeline, error) {
	rt.once.Do(func() {
		mw, err := rt.router.resolver.Resolve(rt.middleware...)
		if err != nil {
			rt.err = fmt.Errorf("route %s %s: %w", strings.ToUpper(rt.Method), rt.Path, err)
			return
		}
		rt.pipeline = http.NewPipeline(mw...)
	})
	return rt.pipeline, rt.err
}

// run invokes the action.
func (rt *Route) run(ctx *http.Context) (any, error) {
	if rt.handler != nil {
		return rt.handler(ctx)
	}

	action := rt.controller
	c := rt.router.container()
	if c == nil {
		return nil, fmt.Errorf("route %s: no container to resolve %s", rt.Path, action.Controller)
	}
	instance, err := c.Make(action.Controller)
	if err != nil {
		return nil, err
	}
	ctrl, ok := instance.(Controller)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T", ErrNotController, action.Controller, instance)
	}
	fn, ok := ctrl.Actions()[action.Method]
	if !ok || fn == nil {
		return nil, fmt.Errorf("%w: %s@%s", ErrActionNotFound, action.Controller, action.Method)
	}
	return fn(ctx)
}

// setAction normalises the accepted action shapes. An unsupported action is
// a programming error and panics at registration, like an invalid pattern.
func (rt *Route) setAction(action any) {
	switch a := action.(type) {
	case ControllerAction:
		rt.controller = &a
		rt.Signature = [2]string{a.Controller, a.Method}
		return
	case *ControllerAction:
		rt.controller = a
		rt.Signature = [2]string{a.Controller, a.Method}
		return
	case HandlerFunc:
		rt.handler = a
	case func(*http.Context) (any, error):
		rt.handler = a
	case http.Next:
		rt.handler = HandlerFunc(a)
	case nethttp.Handler:
		rt.handler = serveWith(a)
	case func(nethttp.ResponseWriter, *nethttp.Request):
		rt.handler = serveWith(nethttp.HandlerFunc(a))
	default:
		panic(fmt.Sprintf("routing: unsupported action %T for %s", action, rt.Path))
	}
	rt.Signature = [2]string{closureSignature, ""}
}

// serveWith runs a net/http handler as an action.
func serveWith(h nethttp.Handler) HandlerFunc {
	return func(ctx *http.Context) (any, error) {
		h.ServeHTTP(ctx.Response.Raw(), ctx.Request.Raw())
		return ctx.Response, nil
	}
}

func middlewareName(mw any) string {
	switch m := mw.(type) {
	case string:
		return m
	case fmt.Stringer:
		return m.String()
	default:
		return fmt.Sprintf("%T", mw)
	}
}
