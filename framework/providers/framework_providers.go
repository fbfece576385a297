// Package providers holds the framework's service providers. Catalog lists
// them for discovery; applications opt out of any by name.
package providers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/km-arc/h3ravel/framework/config"
	"github.com/km-arc/h3ravel/framework/container"
	"github.com/km-arc/h3ravel/framework/foundation"
	"github.com/km-arc/h3ravel/framework/http/middleware"
	"github.com/km-arc/h3ravel/framework/logging"
	"github.com/km-arc/h3ravel/framework/routing"
	"github.com/km-arc/h3ravel/framework/view"
)

// ── ConfigServiceProvider ─────────────────────────────────────────────────────

// ConfigServiceProvider loads the application configuration.
//
// Bound abstracts:
//   - "config"            → *config.Config (environment)
//   - "config.repository" → *config.Repository (config/*.yaml)
//
// Laravel equivalent:
//
//	// Illuminate\Foundation\Bootstrap\LoadConfiguration
//	$app->singleton('config', fn() => new Repository($items));
type ConfigServiceProvider struct {
	foundation.BaseProvider
	EnvFiles []string
}

func (p *ConfigServiceProvider) Name() string  { return "config" }
func (p *ConfigServiceProvider) Priority() int { return 100 }

func (p *ConfigServiceProvider) Register(_ context.Context, app *foundation.Application) error {
	envFiles := p.EnvFiles
	if len(envFiles) == 0 {
		envFiles = []string{app.BasePath(".env")}
	}
	app.Singleton("config", func(*container.Container) (any, error) {
		return config.Load(envFiles...), nil
	})
	app.Alias("config", "configuration")

	app.Singleton("config.repository", func(*container.Container) (any, error) {
		return config.LoadDir(app.Path(foundation.PathConfig))
	})
	return nil
}

// ── LogServiceProvider ────────────────────────────────────────────────────────

// LogServiceProvider binds "log" → *zap.Logger, JSON in production and
// console output elsewhere.
type LogServiceProvider struct {
	foundation.BaseProvider
}

func (p *LogServiceProvider) Name() string  { return "log" }
func (p *LogServiceProvider) Priority() int { return 90 }

func (p *LogServiceProvider) Register(_ context.Context, app *foundation.Application) error {
	app.Singleton("log", func(c *container.Container) (any, error) {
		cfg, err := appConfig(c)
		if err != nil {
			return nil, err
		}
		return logging.New(cfg.App.Env, cfg.Log.Level)
	})
	return nil
}

func (p *LogServiceProvider) Boot(_ context.Context, app *foundation.Application) error {
	// Fail the boot on a bad LOG_LEVEL instead of on the first request.
	_, err := container.Resolve[*zap.Logger](app.Container, "log")
	return err
}

// ── RoutingServiceProvider ────────────────────────────────────────────────────

// RoutingServiceProvider registers the HTTP router and the stock middleware
// aliases and groups.
//
// Bound abstracts:
//   - "router"              → *routing.Router
//   - "middleware.throttle" → *middleware.Throttle (60 per minute)
//
// Aliases: throttle, bindings, request_id. Groups: web, api.
//
// Laravel equivalent:
//
//	// Illuminate\Routing\RoutingServiceProvider
//	$app->singleton('router', fn($app) => new Router($app['events'], $app));
type RoutingServiceProvider struct {
	foundation.BaseProvider
}

func (p *RoutingServiceProvider) Name() string { return "routing" }

func (p *RoutingServiceProvider) Register(_ context.Context, app *foundation.Application) error {
	app.Bind("middleware.throttle", func(*container.Container) (any, error) {
		return middleware.NewThrottle(60, time.Minute), nil
	})
	app.Singleton("router", func(*container.Container) (any, error) {
		r := routing.New(app)
		res := r.Resolver()
		res.Alias("throttle", "middleware.throttle")
		res.Alias("request_id", middleware.RequestID())
		res.Group("web", "bindings")
		res.Group("api", "throttle:60,1", "bindings")
		return r, nil
	})

	p.RegisterCommands(routeListCommand(app))
	return nil
}

// ── ViewServiceProvider ───────────────────────────────────────────────────────

// ViewServiceProvider registers the template engine over resources/views.
// Templates are cached unless APP_DEBUG is on.
//
// Bound abstracts:
//   - "view" → *view.Engine
//
// Laravel equivalent:
//
//	// Illuminate\View\ViewServiceProvider
//	$app->singleton('view', fn($app) => new Factory(...));
type ViewServiceProvider struct {
	foundation.BaseProvider
	Dir string // default: resources/views
	Ext string // default: ".html"
}

func (p *ViewServiceProvider) Name() string { return "view" }

func (p *ViewServiceProvider) Register(_ context.Context, app *foundation.Application) error {
	dir := p.Dir
	if dir == "" {
		dir = app.Path(foundation.PathViews)
	}
	ext := p.Ext

	app.Singleton("view", func(*container.Container) (any, error) {
		return view.New(dir, ext, view.WithCache(!app.IsDebug())), nil
	})
	return nil
}

func appConfig(c *container.Container) (*config.Config, error) {
	return container.Resolve[*config.Config](c, "config")
}

func appLogger(c *container.Container) *zap.Logger {
	if l, err := container.Resolve[*zap.Logger](c, "log"); err == nil {
		return l
	}
	return zap.NewNop()
}
