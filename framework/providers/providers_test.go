package providers_test

import (
	"bytes"
	"context"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/h3ravel/framework/cache"
	"github.com/km-arc/h3ravel/framework/console"
	"github.com/km-arc/h3ravel/framework/container"
	"github.com/km-arc/h3ravel/framework/database"
	"github.com/km-arc/h3ravel/framework/foundation"
	"github.com/km-arc/h3ravel/framework/hashing"
	"github.com/km-arc/h3ravel/framework/http"
	"github.com/km-arc/h3ravel/framework/providers"
	"github.com/km-arc/h3ravel/framework/routing"
	"github.com/km-arc/h3ravel/framework/scheduling"
)

func testEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "testing")
	t.Setenv("APP_NAME", "Test App")
	t.Setenv("APP_DEBUG", "false")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("CACHE_DRIVER", "memory")
	t.Setenv("METRICS_ENABLED", "true")
	t.Setenv("BCRYPT_ROUNDS", "4")
}

func boot(t *testing.T, opts ...foundation.Option) *foundation.Application {
	t.Helper()
	app := foundation.New(t.TempDir(), opts...)
	app.Discover(providers.Catalog())
	require.NoError(t, app.Bootstrap(context.Background()))
	return app
}

func TestCatalog(t *testing.T) {
	assert.Equal(t, []string{
		"config", "log", "routing", "http", "view", "metrics",
		"database", "cache", "hash", "schedule", "console",
	}, providers.Catalog().Names())
}

func TestProviders_BootOrderAndConsoleFilter(t *testing.T) {
	testEnv(t)
	app := boot(t)

	var names []string
	for _, p := range app.Providers.Providers() {
		names = append(names, foundation.NameOf(p))
	}
	// config and log carry priorities; database and hash are deferred;
	// schedule and console only load under musket.
	assert.Equal(t, []string{"config", "log", "routing", "http", "view", "metrics", "cache"}, names)
	assert.ElementsMatch(t, []string{"db.manager", "db", "hash"}, keys(app.Providers.Deferred()))
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestHttpServiceProvider_Handler(t *testing.T) {
	testEnv(t)
	app := boot(t)

	router := container.MustResolve[*routing.Router](app.Container, "router")
	router.Get("/users/{id}", func(ctx *http.Context) (any, error) {
		return map[string]string{"id": ctx.Param("id")}, nil
	})

	handler := container.MustResolve[nethttp.Handler](app.Container, "http.handler")
	serve := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(nethttp.MethodGet, path, nil)
		req.Header.Set("Accept", "application/json")
		handler.ServeHTTP(rec, req)
		return rec
	}

	up := serve("/up")
	assert.Equal(t, nethttp.StatusOK, up.Code)

	rec := serve("/users/7")
	assert.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Equal(t, http.ContentTypeJSON, rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":"7"}`, rec.Body.String())
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)

	assert.Equal(t, nethttp.StatusNotFound, serve("/nope").Code)

	metrics := serve("/metrics")
	require.Equal(t, nethttp.StatusOK, metrics.Code)
	body, _ := io.ReadAll(metrics.Body)
	assert.Contains(t, string(body), `test_app_http_requests_total{method="GET",path="/users/{id}",status="200"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestRoutingServiceProvider_DefaultMiddleware(t *testing.T) {
	testEnv(t)
	app := boot(t)
	router := container.MustResolve[*routing.Router](app.Container, "router")

	groups := router.Resolver().Groups()
	assert.Equal(t, []any{"bindings"}, groups["web"])
	assert.Equal(t, []any{"throttle:60,1", "bindings"}, groups["api"])

	mws, err := router.Resolver().Resolve("api")
	require.NoError(t, err)
	assert.Len(t, mws, 2)
}

func TestLogServiceProvider_InvalidLevelFailsBoot(t *testing.T) {
	testEnv(t)
	t.Setenv("LOG_LEVEL", "loud")

	app := foundation.New(t.TempDir())
	app.Discover(providers.Catalog())
	err := app.Bootstrap(context.Background())

	var perr *foundation.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "log", perr.Provider)
	assert.Equal(t, foundation.PhaseBoot, perr.Phase)
}

func TestDeferredServices(t *testing.T) {
	testEnv(t)
	t.Setenv("DB_CONNECTION", "sqlite")
	t.Setenv("DB_DATABASE", "database/app.sqlite")
	app := boot(t)

	h := container.MustResolve[*hashing.Hasher](app.Container, "hash")
	assert.Equal(t, 4, h.Rounds())

	m := container.MustResolve[*database.Manager](app.Container, "db.manager")
	assert.Equal(t, "default", m.DefaultName())
	assert.Equal(t, []string{"default"}, m.Names())

	c := container.MustResolve[*cache.Repository](app.Container, "cache")
	require.NoError(t, c.Put(context.Background(), "k", 1, 0))
}

// ── Commands ──────────────────────────────────────────────────────────────────

func musket(app *foundation.Application, out *bytes.Buffer) *console.Musket {
	m := console.NewMusket("musket", app.Version(), console.WithStreams(&bytes.Buffer{}, out, out), console.WithoutColor())
	m.Register(app.Commands()...)
	return m
}

// run executes one musket invocation; flags do not leak between runs.
func run(app *foundation.Application, args ...string) (int, string) {
	var out bytes.Buffer
	code := musket(app, &out).Run(context.Background(), args)
	return code, out.String()
}

func TestCommands_Registered(t *testing.T) {
	testEnv(t)
	app := boot(t, foundation.WithConsole(true))
	m := musket(app, &bytes.Buffer{})

	assert.Equal(t, []string{
		"about", "cache:clear", "key:generate", "route:list",
		"schedule:list", "schedule:run", "schedule:work", "serve",
	}, m.Names())
}

func TestRouteList(t *testing.T) {
	testEnv(t)
	app := boot(t, foundation.WithConsole(true))
	router := container.MustResolve[*routing.Router](app.Container, "router")
	router.Get("/users/{id}", routing.Uses("UserController", "show")).Named("users.show").WithMiddleware("api")
	router.Post("/login", func(*http.Context) (any, error) { return nil, nil })

	code, out := run(app, "route:list")
	require.Equal(t, console.ExitSuccess, code)
	assert.Contains(t, out, "GET")
	assert.Contains(t, out, "/users/{id}")
	assert.Contains(t, out, "users.show")
	assert.Contains(t, out, "UserController@show")
	assert.Contains(t, out, "Closure")

	code, out = run(app, "route:list", "--method=post")
	require.Equal(t, console.ExitSuccess, code)
	assert.NotContains(t, out, "/users/{id}")
	assert.Contains(t, out, "/login")
}

func TestKeyGenerate(t *testing.T) {
	testEnv(t)
	t.Setenv("APP_KEY", "")
	app := boot(t, foundation.WithConsole(true))

	code, out := run(app, "key:generate", "--show")
	require.Equal(t, console.ExitSuccess, code)
	assert.Regexp(t, `^base64:[A-Za-z0-9+/]{43}=\n$`, out)
	assert.NoFileExists(t, filepath.Join(app.BasePath(), ".env"))

	code, _ = run(app, "key:generate")
	require.Equal(t, console.ExitSuccess, code)
	env, err := godotenv.Read(filepath.Join(app.BasePath(), ".env"))
	require.NoError(t, err)
	assert.Regexp(t, `^base64:`, env["APP_KEY"])
}

func TestKeyGenerate_ProductionNeedsForce(t *testing.T) {
	testEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("APP_KEY", "")
	app := boot(t, foundation.WithConsole(true))

	code, out := run(app, "key:generate", "--no-interaction")
	require.Equal(t, console.ExitSuccess, code)
	assert.Contains(t, out, "Command cancelled.")
	assert.NoFileExists(t, filepath.Join(app.BasePath(), ".env"))

	code, _ = run(app, "key:generate", "--force")
	require.Equal(t, console.ExitSuccess, code)
	assert.FileExists(t, filepath.Join(app.BasePath(), ".env"))
}

func TestCacheClear(t *testing.T) {
	testEnv(t)
	app := boot(t, foundation.WithConsole(true))
	c := container.MustResolve[*cache.Repository](app.Container, "cache")
	require.NoError(t, c.Put(context.Background(), "k", "v", 0))

	code, out := run(app, "cache:clear")
	require.Equal(t, console.ExitSuccess, code)
	assert.Contains(t, out, "Application cache cleared successfully.")

	ok, err := c.Has(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestScheduleCommands(t *testing.T) {
	testEnv(t)
	app := boot(t, foundation.WithConsole(true))
	s := container.MustResolve[*scheduling.Schedule](app.Container, "schedule")

	ran := 0
	s.Call("prune-tokens", func(context.Context) error { ran++; return nil }).Describe("Delete expired tokens")

	code, out := run(app, "schedule:list")
	require.Equal(t, console.ExitSuccess, code)
	assert.Contains(t, out, "prune-tokens")
	assert.Contains(t, out, "Delete expired tokens")

	code, _ = run(app, "schedule:run")
	require.Equal(t, console.ExitSuccess, code)
	assert.Equal(t, 1, ran)
}

func TestAbout(t *testing.T) {
	testEnv(t)
	app := boot(t, foundation.WithConsole(true))

	code, out := run(app, "about", "-q")
	require.Equal(t, console.ExitSuccess, code)
	assert.Empty(t, out)

	code, out = run(app, "about")
	require.Equal(t, console.ExitSuccess, code)
	assert.Contains(t, out, "Test App")
	assert.Contains(t, out, "testing")
	assert.Contains(t, out, foundation.Version)
}

func TestUnknownCommandExitsWithFailure(t *testing.T) {
	testEnv(t)
	app := boot(t, foundation.WithConsole(true))

	code, out := run(app, "migrate:fresh")
	assert.Equal(t, console.ExitFailure, code)
	assert.Contains(t, out, "unknown command")
}
