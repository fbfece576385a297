package routes

import (
	"github.com/km-arc/h3ravel/framework/http"
	"github.com/km-arc/h3ravel/framework/http/validation"
	"github.com/km-arc/h3ravel/framework/routing"
)

// API runs inside the "api" middleware group under the /api prefix.
func API(r *routing.Router) {
	r.Name("users.").Group(func(r *routing.Router) {
		r.Get("/users", routing.Uses("UserController", "index")).Named("index")
		r.Get("/users/{user}", routing.Uses("UserController", "show")).Named("show")
		r.Post("/users", routing.Uses("UserController", "store")).Named("store").WithMiddleware("auth")
	})

	// Rule strings for payloads without a struct.
	r.Post("/newsletter", func(ctx *http.Context) (any, error) {
		v := ctx.Request.Validate(validation.Rules{
			"email": "required|email",
			"age":   "required|numeric|gte:18",
		})
		if v.Fails() {
			return nil, v.Errors()
		}
		return ctx.Response.Created(map[string]any{"email": ctx.Request.Input("email")})
	}).Named("newsletter.subscribe")
}
