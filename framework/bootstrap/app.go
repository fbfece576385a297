// Package bootstrap builds a ready Application from a base path, the Go
// counterpart of Laravel's bootstrap/app.php:
//
//	app, err := bootstrap.Configure(".").
//	    WithProviders(&providers.AppServiceProvider{}).
//	    WithRouting(bootstrap.Routes{Web: routes.Web, API: routes.API}).
//	    WithMiddleware(func(m *bootstrap.Middleware) {
//	        m.Alias("admin", &middleware.EnsureAdmin{})
//	    }).
//	    WithExceptions(func(e *http.ExceptionHandler) {
//	        e.DontReport(sql.ErrNoRows)
//	    }).
//	    Create(ctx)
package bootstrap

import (
	"context"
	nethttp "net/http"

	"github.com/km-arc/h3ravel/framework/console"
	"github.com/km-arc/h3ravel/framework/container"
	"github.com/km-arc/h3ravel/framework/foundation"
	"github.com/km-arc/h3ravel/framework/http"
	"github.com/km-arc/h3ravel/framework/providers"
	"github.com/km-arc/h3ravel/framework/routing"
)

// Routes are the application's route files. Web routes get the "web" group,
// API routes the "api" group under APIPrefix ("api" when empty).
type Routes struct {
	Web       func(r *routing.Router)
	API       func(r *routing.Router)
	APIPrefix string
}

// Builder collects the application's configuration until Create.
type Builder struct {
	basePath   string
	opts       []foundation.Option
	catalog    foundation.Catalog
	deny       []string
	providers  []foundation.ServiceProvider
	routes     []Routes
	middleware []func(*Middleware)
	exceptions []func(*http.ExceptionHandler)
}

// Configure starts a builder for the application rooted at basePath. The
// framework catalog is discovered by default.
func Configure(basePath string, opts ...foundation.Option) *Builder {
	return &Builder{basePath: basePath, opts: opts, catalog: providers.Catalog()}
}

// WithProviders adds application providers alongside the discovered ones.
func (b *Builder) WithProviders(ps ...foundation.ServiceProvider) *Builder {
	b.providers = append(b.providers, ps...)
	return b
}

// WithCatalog discovers a package's providers in addition to the framework's.
func (b *Builder) WithCatalog(c foundation.Catalog) *Builder {
	b.catalog = b.catalog.Merge(c)
	return b
}

// WithoutProviders skips discovered providers by name.
func (b *Builder) WithoutProviders(names ...string) *Builder {
	b.deny = append(b.deny, names...)
	return b
}

// WithRouting registers route files once every provider has booted.
func (b *Builder) WithRouting(routes Routes) *Builder {
	b.routes = append(b.routes, routes)
	return b
}

// WithMiddleware customizes global middleware, aliases and groups.
func (b *Builder) WithMiddleware(fn func(m *Middleware)) *Builder {
	b.middleware = append(b.middleware, fn)
	return b
}

// WithExceptions customizes reporting and rendering.
func (b *Builder) WithExceptions(fn func(e *http.ExceptionHandler)) *Builder {
	b.exceptions = append(b.exceptions, fn)
	return b
}

// Create builds, registers and boots the application. A provider failure
// is returned as *foundation.ProviderError and no application is returned.
func (b *Builder) Create(ctx context.Context) (*foundation.Application, error) {
	app := foundation.New(b.basePath, b.opts...)
	app.Discover(b.catalog, b.deny...)
	if err := app.AddProviders(ctx, b.providers...); err != nil {
		return nil, err
	}

	if err := b.extend(app); err != nil {
		return nil, err
	}
	for _, routes := range b.routes {
		app.Booted(routes.load)
	}

	if err := app.Bootstrap(ctx); err != nil {
		return nil, err
	}
	return app, nil
}

func (b *Builder) extend(app *foundation.Application) error {
	if len(b.middleware) > 0 {
		m := &Middleware{}
		for _, fn := range b.middleware {
			fn(m)
		}
		if err := app.Extend("http.middleware", func(inst any, _ *container.Container) (any, error) {
			return m.global(inst.([]http.Middleware)), nil
		}); err != nil {
			return err
		}
		if err := app.Extend("router", func(inst any, _ *container.Container) (any, error) {
			r := inst.(*routing.Router)
			m.apply(r.Resolver())
			return r, nil
		}); err != nil {
			return err
		}
	}

	if len(b.exceptions) > 0 {
		return app.Extend("http.exceptions", func(inst any, _ *container.Container) (any, error) {
			h := inst.(*http.ExceptionHandler)
			for _, fn := range b.exceptions {
				fn(h)
			}
			return h, nil
		})
	}
	return nil
}

func (rs Routes) load(_ context.Context, app *foundation.Application) error {
	r, err := container.Resolve[*routing.Router](app.Container, "router")
	if err != nil {
		return err
	}
	if rs.Web != nil {
		r.Middleware("web").Group(rs.Web)
	}
	if rs.API != nil {
		prefix := rs.APIPrefix
		if prefix == "" {
			prefix = "api"
		}
		r.Middleware("api").Prefix(prefix, rs.API)
	}
	return r.RefreshNameLookups()
}

// Handler returns the application's HTTP entry point.
func Handler(app *foundation.Application) (nethttp.Handler, error) {
	return container.Resolve[nethttp.Handler](app.Container, "http.handler")
}

// Console returns a musket runner holding every provider's commands.
func Console(app *foundation.Application, opts ...console.MusketOption) *console.Musket {
	m := console.NewMusket("musket", app.Version(), opts...)
	m.Register(app.Commands()...)
	return m
}
