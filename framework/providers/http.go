package providers

import (
	"context"
	nethttp "net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/km-arc/h3ravel/framework/container"
	"github.com/km-arc/h3ravel/framework/foundation"
	"github.com/km-arc/h3ravel/framework/http"
	"github.com/km-arc/h3ravel/framework/http/middleware"
	"github.com/km-arc/h3ravel/framework/routing"
)

// HttpServiceProvider wires the HTTP kernel in front of the router.
//
// Bound abstracts:
//   - "http.exceptions" → *http.ExceptionHandler
//   - "http.middleware" → []http.Middleware (global, in order)
//   - "http.kernel"     → *http.Kernel
//   - "http.handler"    → net/http.Handler serving /up, /metrics and the kernel
//
// Extend "http.middleware" or "http.exceptions" before first resolution to
// customize them; bootstrap.Builder does this for WithMiddleware and
// WithExceptions.
type HttpServiceProvider struct {
	foundation.BaseProvider
}

func (p *HttpServiceProvider) Name() string { return "http" }

func (p *HttpServiceProvider) Register(_ context.Context, app *foundation.Application) error {
	app.Singleton("http.exceptions", func(*container.Container) (any, error) {
		return http.NewExceptionHandler(app), nil
	})

	app.Singleton("http.middleware", func(c *container.Container) (any, error) {
		cfg, err := appConfig(c)
		if err != nil {
			return nil, err
		}
		global := []http.Middleware{
			middleware.RequestID(),
			middleware.LogRequests(appLogger(c)),
		}
		if cfg.Metrics.Enabled {
			m, err := container.Resolve[*middleware.Metrics](c, "metrics")
			if err != nil {
				return nil, err
			}
			global = append(global, m)
		}
		return global, nil
	})

	app.Singleton("http.kernel", func(c *container.Container) (any, error) {
		exceptions, err := container.Resolve[*http.ExceptionHandler](c, "http.exceptions")
		if err != nil {
			return nil, err
		}
		global, err := container.Resolve[[]http.Middleware](c, "http.middleware")
		if err != nil {
			return nil, err
		}
		return http.NewKernel(app, exceptions, global...), nil
	})

	app.Singleton("http.handler", func(c *container.Container) (any, error) {
		cfg, err := appConfig(c)
		if err != nil {
			return nil, err
		}
		kernel, err := container.Resolve[*http.Kernel](c, "http.kernel")
		if err != nil {
			return nil, err
		}
		router, err := container.Resolve[*routing.Router](c, "router")
		if err != nil {
			return nil, err
		}

		mux := chi.NewRouter()
		mux.Use(chimw.RealIP, chimw.Heartbeat("/up"))
		if cfg.Metrics.Enabled {
			m, err := container.Resolve[*middleware.Metrics](c, "metrics")
			if err != nil {
				return nil, err
			}
			mux.Method(nethttp.MethodGet, cfg.Metrics.Path, m.Handler())
		}
		mux.Handle("/*", kernel.Handler(router.Dispatch))
		return nethttp.Handler(mux), nil
	})

	p.RegisterCommands(serveCommand(app))
	return nil
}
