package http

// Next continues the middleware chain. It may be called at most once per
// middleware per request.
type Next func(ctx *Context) (any, error)

// Middleware wraps request handling.
//
//	func (m *Auth) Handle(ctx *http.Context, next http.Next) (any, error) {
//	    if ctx.Request.BearerToken() == "" {
//	        return nil, http.NewHTTPError(401, "Unauthenticated.")
//	    }
//	    return next(ctx)
//	}
type Middleware interface {
	Handle(ctx *Context, next Next) (any, error)
}

// MiddlewareFunc adapts a function to Middleware.
type MiddlewareFunc func(ctx *Context, next Next) (any, error)

func (f MiddlewareFunc) Handle(ctx *Context, next Next) (any, error) { return f(ctx, next) }

// ParameterizedMiddleware is middleware configured from a "name:a,b"
// reference, e.g. "throttle:60,1".
type ParameterizedMiddleware interface {
	Middleware
	WithParams(params ...string) (Middleware, error)
}

// Pipeline runs a fixed middleware list around a terminal handler.
type Pipeline struct {
	middleware []Middleware
}

// NewPipeline freezes mw into a pipeline.
func NewPipeline(mw ...Middleware) *Pipeline {
	return &Pipeline{middleware: append([]Middleware(nil), mw...)}
}

// Middleware returns the pipeline's middleware in order.
func (p *Pipeline) Middleware() []Middleware {
	return append([]Middleware(nil), p.middleware...)
}

// Then sends ctx through the middleware and finally into terminal.
//
// The runner remembers the highest index it has entered. Calling next again
// from a middleware that already called it returns ErrNextCalledMultipleTimes
// and nothing downstream runs a second time.
func (p *Pipeline) Then(ctx *Context, terminal Next) (any, error) {
	index := -1

	var dispatch func(i int, c *Context) (any, error)
	dispatch = func(i int, c *Context) (any, error) {
		if i <= index {
			return nil, ErrNextCalledMultipleTimes
		}
		index = i

		if i == len(p.middleware) {
			return terminal(c)
		}
		return p.middleware[i].Handle(c, func(c *Context) (any, error) {
			return dispatch(i+1, c)
		})
	}
	return dispatch(0, ctx)
}
