package providers

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/km-arc/h3ravel/framework/cache"
	"github.com/km-arc/h3ravel/framework/config"
	"github.com/km-arc/h3ravel/framework/container"
	"github.com/km-arc/h3ravel/framework/database"
	"github.com/km-arc/h3ravel/framework/foundation"
	"github.com/km-arc/h3ravel/framework/hashing"
	"github.com/km-arc/h3ravel/framework/http/middleware"
	"github.com/km-arc/h3ravel/framework/scheduling"
)

// ── DatabaseServiceProvider ───────────────────────────────────────────────────

// DatabaseServiceProvider is deferred: nothing connects until "db" or
// "db.manager" is first resolved.
//
// Bound abstracts:
//   - "db.manager" → *database.Manager (connection "default" from DB_*)
//   - "db"         → *sqlx.DB for the default connection
type DatabaseServiceProvider struct {
	foundation.BaseProvider
}

func (p *DatabaseServiceProvider) Name() string       { return "database" }
func (p *DatabaseServiceProvider) IsDeferred() bool   { return true }
func (p *DatabaseServiceProvider) Provides() []string { return []string{"db.manager", "db"} }

func (p *DatabaseServiceProvider) Register(ctx context.Context, app *foundation.Application) error {
	app.Singleton("db.manager", func(c *container.Container) (any, error) {
		cfg, err := appConfig(c)
		if err != nil {
			return nil, err
		}
		cc, err := database.FromConfig(cfg.DB, app.BasePath())
		if err != nil {
			return nil, err
		}
		return database.NewManager("default", map[string]database.ConnectionConfig{"default": cc}), nil
	})
	app.Singleton("db", func(c *container.Container) (any, error) {
		m, err := container.Resolve[*database.Manager](c, "db.manager")
		if err != nil {
			return nil, err
		}
		return m.Connection(context.WithoutCancel(ctx))
	})
	return nil
}

// ── CacheServiceProvider ──────────────────────────────────────────────────────

// CacheServiceProvider binds "cache" → *cache.Repository for CACHE_DRIVER
// (memory or redis) and adds cache:clear.
type CacheServiceProvider struct {
	foundation.BaseProvider
}

func (p *CacheServiceProvider) Name() string { return "cache" }

func (p *CacheServiceProvider) Register(ctx context.Context, app *foundation.Application) error {
	app.Singleton("cache", func(c *container.Container) (any, error) {
		cfg, err := appConfig(c)
		if err != nil {
			return nil, err
		}
		return cache.Open(context.WithoutCancel(ctx), cfg.Cache, cfg.Redis)
	})
	p.RegisterCommands(cacheClearCommand(app))
	return nil
}

// ── HashServiceProvider ───────────────────────────────────────────────────────

// HashServiceProvider binds "hash" → *hashing.Hasher with BCRYPT_ROUNDS.
type HashServiceProvider struct {
	foundation.BaseProvider
}

func (p *HashServiceProvider) Name() string       { return "hash" }
func (p *HashServiceProvider) IsDeferred() bool   { return true }
func (p *HashServiceProvider) Provides() []string { return []string{"hash"} }

func (p *HashServiceProvider) Register(_ context.Context, app *foundation.Application) error {
	app.Singleton("hash", func(c *container.Container) (any, error) {
		cfg, err := appConfig(c)
		if err != nil {
			return nil, err
		}
		return hashing.New(cfg.Hash.Rounds), nil
	})
	return nil
}

// ── MetricsServiceProvider ────────────────────────────────────────────────────

// MetricsServiceProvider binds "metrics" → *middleware.Metrics on its own
// registry, with Go runtime and process collectors. The HTTP provider only
// installs it when METRICS_ENABLED is true.
type MetricsServiceProvider struct {
	foundation.BaseProvider
}

func (p *MetricsServiceProvider) Name() string { return "metrics" }

func (p *MetricsServiceProvider) Register(_ context.Context, app *foundation.Application) error {
	app.Singleton("metrics", func(c *container.Container) (any, error) {
		cfg, err := appConfig(c)
		if err != nil {
			return nil, err
		}
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		return middleware.NewMetrics(metricNamespace(cfg.App.Name), reg), nil
	})
	return nil
}

var invalidMetricChars = regexp.MustCompile(`[^a-z0-9_]+`)

// metricNamespace turns an app name into a valid Prometheus namespace.
func metricNamespace(name string) string {
	ns := strings.Trim(invalidMetricChars.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if ns == "" || (ns[0] >= '0' && ns[0] <= '9') {
		ns = "app_" + ns
	}
	return strings.TrimSuffix(ns, "_")
}

// ── ScheduleServiceProvider ───────────────────────────────────────────────────

// ScheduleServiceProvider only loads under musket. It binds "schedule" →
// *scheduling.Schedule; application providers add events in Boot:
//
//	if s, err := container.Resolve[*scheduling.Schedule](app.Container, "schedule"); err == nil {
//	    s.Call("prune", prune).Daily()
//	}
type ScheduleServiceProvider struct {
	foundation.BaseProvider
}

func (p *ScheduleServiceProvider) Name() string        { return "schedule" }
func (p *ScheduleServiceProvider) RunsInConsole() bool { return true }

func (p *ScheduleServiceProvider) Register(_ context.Context, app *foundation.Application) error {
	app.Singleton("schedule", func(c *container.Container) (any, error) {
		loc, err := time.LoadLocation(config.Get("APP_TIMEZONE", "UTC"))
		if err != nil {
			return nil, err
		}
		return scheduling.New(appLogger(c), loc), nil
	})
	p.RegisterCommands(scheduleCommands(app)...)
	return nil
}
