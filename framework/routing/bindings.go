package routing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	nethttp "net/http"

	"github.com/km-arc/h3ravel/framework/http"
)

// Binder loads the model a path parameter refers to. Lookups that find
// nothing return sql.ErrNoRows or ErrModelNotFound (wrapped or not).
type Binder interface {
	Bind(ctx context.Context, value string) (any, error)
}

// BinderFunc adapts a function to Binder.
type BinderFunc func(ctx context.Context, value string) (any, error)

func (f BinderFunc) Bind(ctx context.Context, value string) (any, error) { return f(ctx, value) }

// ModelNotFoundError reports a failed route-model lookup. It renders as 404.
type ModelNotFoundError struct {
	Param string
	Value string
	Err   error
}

func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("no query results for [%s] %s", e.Param, e.Value)
}

func (e *ModelNotFoundError) Unwrap() error   { return e.Err }
func (e *ModelNotFoundError) StatusCode() int { return nethttp.StatusNotFound }

func (e *ModelNotFoundError) Is(target error) bool { return target == ErrModelNotFound }

// Model registers an explicit binding for param on every route
// (Laravel: Route::model('user', User::class)).
func (r *Router) Model(param string, binder Binder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[param] = binder
}

// Bind registers an explicit binding from a function (Laravel: Route::bind).
func (r *Router) Bind(param string, fn func(ctx context.Context, value string) (any, error)) {
	r.Model(param, BinderFunc(fn))
}

func (r *Router) explicitBinder(param string) (Binder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bindings[param]
	return b, ok
}

// SubstituteBindings replaces bound path parameters with their models once a
// route has matched. Route bindings win over router-wide ones. A lookup that
// finds nothing goes to the route's Missing handler when set, otherwise a
// *ModelNotFoundError is returned.
//
// The router registers it under the "bindings" alias.
func SubstituteBindings(r *Router) http.Middleware {
	return http.MiddlewareFunc(func(ctx *http.Context, next http.Next) (any, error) {
		rt, ok := Current(ctx)
		if !ok {
			return next(ctx)
		}

		for _, param := range rt.Parameters() {
			value := ctx.Param(param)
			if value == "" {
				continue
			}
			binder, ok := rt.Binder(param)
			if !ok {
				if binder, ok = r.explicitBinder(param); !ok {
					continue
				}
			}

			model, err := binder.Bind(ctx.Context(), value)
			if err != nil {
				if !errors.Is(err, ErrModelNotFound) && !errors.Is(err, sql.ErrNoRows) {
					return nil, err
				}
				var notFound *ModelNotFoundError
				if !errors.As(err, &notFound) {
					notFound = &ModelNotFoundError{Param: param, Value: value, Err: err}
				}
				if missing := rt.MissingHandler(); missing != nil {
					return missing(ctx, notFound)
				}
				return nil, notFound
			}
			ctx.SetModel(param, model)
		}
		return next(ctx)
	})
}
