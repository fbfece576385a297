// Package routing maps requests to actions.
//
//	r := routing.New(app)
//	r.Resolver().Group("api", "throttle:60,1", "bindings")
//
//	r.Prefix("/api", func(r *routing.Router) {
//	    api := r.Middleware("api")
//	    api.Get("/users/{user}", routing.Uses("UserController", "show")).
//	        Named("users.show").
//	        Bind("user", users.Binder())
//	})
//	if err := r.RefreshNameLookups(); err != nil {
//	    return err // two routes share a name
//	}
//
// The router is the HTTP kernel's terminal handler: Dispatch matches the
// request, stores the route parameters on the context and runs the route
// middleware, then the action.
package routing
