package bootstrap_test

import (
	"context"
	"errors"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/h3ravel/framework/bootstrap"
	"github.com/km-arc/h3ravel/framework/container"
	"github.com/km-arc/h3ravel/framework/foundation"
	"github.com/km-arc/h3ravel/framework/http"
	"github.com/km-arc/h3ravel/framework/routing"
)

func testEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "testing")
	t.Setenv("APP_DEBUG", "false")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("CACHE_DRIVER", "memory")
	t.Setenv("METRICS_ENABLED", "false")
}

var errTeapot = errors.New("short and stout")

type tagMiddleware string

func (m tagMiddleware) Handle(ctx *http.Context, next http.Next) (any, error) {
	ctx.Response.SetHeader("X-Tag", ctx.Response.Header().Get("X-Tag")+string(m))
	return next(ctx)
}

type bootProvider struct {
	foundation.BaseProvider
	booted bool
}

func (p *bootProvider) Register(context.Context, *foundation.Application) error { return nil }
func (p *bootProvider) Boot(context.Context, *foundation.Application) error {
	p.booted = true
	return nil
}

func get(t *testing.T, app *foundation.Application, path string) *httptest.ResponseRecorder {
	t.Helper()
	h, err := bootstrap.Handler(app)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(nethttp.MethodGet, path, nil)
	req.Header.Set("Accept", "application/json")
	h.ServeHTTP(rec, req)
	return rec
}

func TestConfigure_CreatesBootedApplication(t *testing.T) {
	testEnv(t)
	p := &bootProvider{}

	app, err := bootstrap.Configure(t.TempDir()).
		WithProviders(p).
		WithRouting(bootstrap.Routes{
			Web: func(r *routing.Router) {
				r.Get("/", func(*http.Context) (any, error) { return "home", nil }).Named("home")
			},
			API: func(r *routing.Router) {
				r.Get("/users/{id}", func(ctx *http.Context) (any, error) {
					return map[string]string{"id": ctx.Param("id")}, nil
				}).Named("api.users.show")
			},
		}).
		Create(context.Background())
	require.NoError(t, err)

	assert.True(t, app.IsBooted())
	assert.True(t, p.booted)

	rec := get(t, app, "/api/users/9")
	assert.Equal(t, nethttp.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"9"}`, rec.Body.String())
	assert.Equal(t, "60", rec.Header().Get("X-RateLimit-Limit"))

	home := get(t, app, "/")
	assert.Equal(t, "home", home.Body.String())
	assert.Empty(t, home.Header().Get("X-RateLimit-Limit"))

	router := container.MustResolve[*routing.Router](app.Container, "router")
	url, err := router.URL("api.users.show", map[string]string{"id": "3"})
	require.NoError(t, err)
	assert.Equal(t, "/api/users/3", url)
}

func TestConfigure_Middleware(t *testing.T) {
	testEnv(t)

	app, err := bootstrap.Configure(t.TempDir()).
		WithMiddleware(func(m *bootstrap.Middleware) {
			m.Prepend(tagMiddleware("a")).Append(tagMiddleware("c"))
			m.Alias("tag-b", tagMiddleware("b"))
			m.Web("tag-b")
		}).
		WithRouting(bootstrap.Routes{Web: func(r *routing.Router) {
			r.Get("/tagged", func(*http.Context) (any, error) { return "ok", nil })
		}}).
		Create(context.Background())
	require.NoError(t, err)

	global := container.MustResolve[[]http.Middleware](app.Container, "http.middleware")
	require.Len(t, global, 4)
	assert.Equal(t, tagMiddleware("a"), global[0])
	assert.Equal(t, tagMiddleware("c"), global[3])

	rec := get(t, app, "/tagged")
	assert.Equal(t, "acb", rec.Header().Get("X-Tag"))
}

func TestConfigure_UseReplacesGlobalMiddleware(t *testing.T) {
	testEnv(t)

	app, err := bootstrap.Configure(t.TempDir()).
		WithMiddleware(func(m *bootstrap.Middleware) { m.Use(tagMiddleware("only")) }).
		Create(context.Background())
	require.NoError(t, err)

	global := container.MustResolve[[]http.Middleware](app.Container, "http.middleware")
	assert.Equal(t, []http.Middleware{tagMiddleware("only")}, global)
}

func TestConfigure_Exceptions(t *testing.T) {
	testEnv(t)

	app, err := bootstrap.Configure(t.TempDir()).
		WithExceptions(func(e *http.ExceptionHandler) {
			e.Render(func(ctx *http.Context, err error) (any, bool) {
				if !errors.Is(err, errTeapot) {
					return nil, false
				}
				res, _ := ctx.Response.JSON(nethttp.StatusTeapot, map[string]string{"error": "teapot"})
				return res, true
			})
		}).
		WithRouting(bootstrap.Routes{Web: func(r *routing.Router) {
			r.Get("/brew", func(*http.Context) (any, error) { return nil, errTeapot })
		}}).
		Create(context.Background())
	require.NoError(t, err)

	rec := get(t, app, "/brew")
	assert.Equal(t, nethttp.StatusTeapot, rec.Code)
	assert.JSONEq(t, `{"error":"teapot"}`, rec.Body.String())
}

func TestConfigure_WithoutProviders(t *testing.T) {
	testEnv(t)

	_, err := bootstrap.Configure(t.TempDir()).
		WithoutProviders("routing").
		WithRouting(bootstrap.Routes{Web: func(*routing.Router) {}}).
		Create(context.Background())
	require.ErrorIs(t, err, container.ErrBindingResolution)
}

func TestConfigure_ProviderErrorAborts(t *testing.T) {
	testEnv(t)
	t.Setenv("LOG_LEVEL", "shouting")

	app, err := bootstrap.Configure(t.TempDir()).Create(context.Background())
	assert.Nil(t, app)

	var perr *foundation.ProviderError
	require.ErrorAs(t, err, &perr)
}

func TestConsole(t *testing.T) {
	testEnv(t)

	app, err := bootstrap.Configure(t.TempDir(), foundation.WithConsole(true)).Create(context.Background())
	require.NoError(t, err)

	m := bootstrap.Console(app)
	assert.Contains(t, m.Names(), "route:list")
	assert.Contains(t, m.Names(), "schedule:work")
}
