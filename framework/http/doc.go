// Package http is the framework's request layer: the per-request Context,
// Laravel-style Request and Response helpers, the middleware Pipeline, the
// HTTP Kernel and the exception handler.
//
// # Context
//
// Every inbound exchange becomes an Event; Init returns the event's Context,
// creating it once:
//
//	ev  := http.NewEvent(w, r)
//	ctx := http.Init(app, ev) // same ev → same ctx
//
// Actions and middleware receive the Context:
//
//	func (c *UserController) Show(ctx *http.Context) (any, error) {
//	    user, err := http.BoundModel[*models.User](ctx, "user")
//	    if err != nil {
//	        return nil, err
//	    }
//	    return user, nil // plain data → application/json; charset=UTF-8
//	}
//
// # Request
//
//	var payload struct {
//	    Name string `json:"name" validate:"required,min=2"`
//	}
//	if err := ctx.Request.Validated(&payload); err != nil { ... } // 422 bag
//
//	name  := ctx.Request.Input("name", "default")
//	page  := ctx.Request.Query("page", "1")
//	token := ctx.Request.BearerToken()
//	ctx.Request.ExpectsJSON() // Accept mentions json, or ajax without text/html
//
// # Response
//
// Response helpers write immediately and return the *Response, which tells
// the kernel not to touch the response again:
//
//	return ctx.Response.JSON(200, data)
//	return ctx.Response.Success(data)         // 200 {"data": ...}
//	return ctx.Response.Created(data)         // 201 {"data": ...}
//	return ctx.Response.NoContent()           // 204
//	return ctx.Response.NotFound()            // 404 {"message": "Not found."}
//	return ctx.Response.RedirectTo("/home")   // 302
//	return ctx.View("home", data)             // text/html via the "view" binding
//
// # Kernel
//
//	kernel := http.NewKernel(app, exceptions, middleware.LogRequests(logger))
//	srv    := http.NewServer(":8000", kernel.Handler(router.Dispatch), logger)
//
// Each middleware may call next at most once; a second call returns
// ErrNextCalledMultipleTimes.
package http
