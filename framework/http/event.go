package http

import (
	"context"
	"net/http"
	"sync"

	"github.com/km-arc/h3ravel/framework/foundation"
)

// Event is one inbound transport exchange. It owns the request's Context:
// Init on the same event always returns the same *Context, so Request and
// Response wrappers are built once per request.
type Event struct {
	Writer  *ResponseWriter
	Request *http.Request

	once sync.Once
	ctx  *Context
}

// NewEvent wraps a net/http exchange.
func NewEvent(w http.ResponseWriter, r *http.Request) *Event {
	return &Event{Writer: NewResponseWriter(w), Request: r}
}

// Init returns the event's Context, creating it on first use.
//
//	// h3ravel: HttpContext.init({ app, request, response }, event)
func Init(app *foundation.Application, ev *Event) *Context {
	ev.once.Do(func() {
		ev.ctx = newContext(app, ev)
	})
	return ev.ctx
}

type contextKey struct{}

// FromRequest returns the Context travelling inside r, if any. Handlers
// mounted on the chi mux use it to get back to the framework Context.
func FromRequest(r *http.Request) (*Context, bool) {
	c, ok := r.Context().Value(contextKey{}).(*Context)
	return c, ok
}

func withContext(ctx context.Context, c *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}
