package middleware

import (
	"github.com/google/uuid"

	"github.com/km-arc/h3ravel/framework/http"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// RequestID reuses the caller's X-Request-ID or generates a UUID, stores it on
// the context and echoes it on the response.
func RequestID() http.Middleware {
	return http.MiddlewareFunc(func(ctx *http.Context, next http.Next) (any, error) {
		id := ctx.Request.Header(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		ctx.Set(requestIDKey, id)
		ctx.Response.SetHeader(RequestIDHeader, id)
		return next(ctx)
	})
}

// RequestIDFrom returns the id set by RequestID, or "".
func RequestIDFrom(ctx *http.Context) string {
	v, _ := ctx.Get(requestIDKey)
	id, _ := v.(string)
	return id
}
