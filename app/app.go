// Package app wires the application: its providers, routes and middleware.
// Both entry points (the HTTP server in main.go and cmd/musket) start here.
package app

import (
	"github.com/km-arc/h3ravel/app/http/middleware"
	"github.com/km-arc/h3ravel/app/providers"
	"github.com/km-arc/h3ravel/framework/bootstrap"
	"github.com/km-arc/h3ravel/framework/foundation"
	"github.com/km-arc/h3ravel/routes"
)

// Configure returns the application builder rooted at basePath.
//
//	application, err := app.Configure(".").Create(ctx)
func Configure(basePath string, opts ...foundation.Option) *bootstrap.Builder {
	return bootstrap.Configure(basePath, opts...).
		WithProviders(&providers.AppServiceProvider{}).
		WithRouting(bootstrap.Routes{
			Web: routes.Web,
			API: routes.API,
		}).
		WithMiddleware(func(m *bootstrap.Middleware) {
			m.Alias("auth", middleware.Authenticate{})
		})
}
