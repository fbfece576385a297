// Package routes declares the application's web and API routes.
package routes

import (
	"github.com/km-arc/h3ravel/framework/foundation"
	"github.com/km-arc/h3ravel/framework/http"
	"github.com/km-arc/h3ravel/framework/routing"
)

// Web runs inside the "web" middleware group.
func Web(r *routing.Router) {
	r.Get("/", func(ctx *http.Context) (any, error) {
		return ctx.View("welcome", map[string]any{
			"version": foundation.Version,
		})
	}).Named("home")

	r.Get("/profile", func(ctx *http.Context) (any, error) {
		return map[string]any{"user": "authenticated"}, nil
	}).Named("profile").WithMiddleware("auth")
}
