// Package middleware holds the application's route middleware.
package middleware

import (
	nethttp "net/http"

	"github.com/km-arc/h3ravel/framework/http"
)

// Authenticate rejects requests without a bearer token.
//
//	r.Post("/users", ...).WithMiddleware("auth")
type Authenticate struct{}

func (Authenticate) Handle(ctx *http.Context, next http.Next) (any, error) {
	if ctx.Request.BearerToken() == "" {
		return nil, http.NewHTTPError(nethttp.StatusUnauthorized, "Unauthenticated.")
	}
	return next(ctx)
}
