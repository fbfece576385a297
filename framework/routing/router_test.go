package routing_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/h3ravel/framework/container"
	"github.com/km-arc/h3ravel/framework/foundation"
	gohttp "github.com/km-arc/h3ravel/framework/http"
	"github.com/km-arc/h3ravel/framework/routing"
)

type userController struct{}

func (c *userController) Actions() map[string]routing.HandlerFunc {
	return map[string]routing.HandlerFunc{
		"index": func(ctx *gohttp.Context) (any, error) {
			return map[string]string{"user": ctx.Param("user"), "name": ctx.Param("name")}, nil
		},
		"show": func(ctx *gohttp.Context) (any, error) {
			return map[string]string{"id": ctx.Param("id")}, nil
		},
	}
}

func newApp(t *testing.T) *foundation.Application {
	t.Helper()
	app := foundation.New(t.TempDir())
	app.Singleton("Controller", func(*container.Container) (any, error) {
		return &userController{}, nil
	})
	return app
}

func get(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(method, target, nil)
	r.Header.Set("Accept", "application/json")
	h.ServeHTTP(rec, r)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestRouter_ControllerRouteTable(t *testing.T) {
	r := routing.New(newApp(t))
	r.Get("path/{user}/{name}", routing.Uses("Controller", "index"))

	routes := r.Routes()
	require.Len(t, routes, 1)
	assert.Equal(t, "get", routes[0].Method)
	assert.Equal(t, "path/{user}/{name}", routes[0].Path)
	assert.Equal(t, [2]string{"Controller", "index"}, routes[0].Signature)
	assert.Equal(t, []string{"user", "name"}, routes[0].Parameters())

	rec := get(t, r, http.MethodGet, "/path/7/ada")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"user": "7", "name": "ada"}, decode(t, rec))
}

func TestRouter_ClosureSignature(t *testing.T) {
	r := routing.New(nil)
	rt := r.Post("/hooks", func(*gohttp.Context) (any, error) { return nil, nil })

	assert.Equal(t, "post", rt.Method)
	assert.Equal(t, [2]string{"Closure", ""}, rt.Signature)
	assert.Equal(t, http.StatusNoContent, get(t, r, http.MethodPost, "/hooks").Code)
}

func TestRouter_DuplicateMethodPathReplaces(t *testing.T) {
	r := routing.New(nil)
	r.Get("/ping", func(*gohttp.Context) (any, error) { return "first", nil })
	r.Get("/ping", func(*gohttp.Context) (any, error) { return "second", nil })
	r.Post("/ping", func(*gohttp.Context) (any, error) { return "post", nil })

	assert.Len(t, r.Routes(), 2)
	assert.Equal(t, "second", get(t, r, http.MethodGet, "/ping").Body.String())
}

func TestRouter_NotFoundAndMethodNotAllowed(t *testing.T) {
	r := routing.New(nil)
	r.Get("/users", func(*gohttp.Context) (any, error) { return []string{}, nil })
	r.Delete("/users", func(*gohttp.Context) (any, error) { return nil, nil })

	rec := get(t, r, http.MethodGet, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", decode(t, rec)["message"])

	rec = get(t, r, http.MethodPut, "/users")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET, DELETE", rec.Header().Get("Allow"))
}

func TestRouter_HeadFallsBackToGet(t *testing.T) {
	r := routing.New(nil)
	r.Get("/health", func(*gohttp.Context) (any, error) { return map[string]bool{"ok": true}, nil })

	assert.Equal(t, http.StatusOK, get(t, r, http.MethodHead, "/health").Code)
}

func TestRouter_GroupsPrefixesAndNames(t *testing.T) {
	var order []string
	mark := func(name string) gohttp.Middleware {
		return gohttp.MiddlewareFunc(func(ctx *gohttp.Context, next gohttp.Next) (any, error) {
			order = append(order, name)
			return next(ctx)
		})
	}

	r := routing.New(nil)
	r.Prefix("/api", func(r *routing.Router) {
		r.Middleware(mark("api")).Name("api.").Group(func(r *routing.Router) {
			r.Prefix("v1", func(r *routing.Router) {
				r.Get("/users/{id}", func(ctx *gohttp.Context) (any, error) {
					return map[string]string{"id": ctx.Param("id")}, nil
				}).Named("users.show").WithMiddleware(mark("route"))
			})
		})
	})
	r.Get("/", func(*gohttp.Context) (any, error) { return "home", nil })

	routes := r.Routes()
	require.Len(t, routes, 2)
	assert.Equal(t, "/api/v1/users/{id}", routes[0].Path)
	assert.Equal(t, "api.users.show", routes[0].Name)
	assert.Len(t, routes[0].Middleware(), 2)
	assert.Empty(t, routes[1].Middleware())

	rec := get(t, r, http.MethodGet, "/api/v1/users/42")
	assert.Equal(t, map[string]any{"id": "42"}, decode(t, rec))
	assert.Equal(t, []string{"api", "route"}, order)
}

func TestRouter_NameLookupsRefreshExplicitly(t *testing.T) {
	r := routing.New(nil)
	r.Get("/users/{id}/posts/{post}", func(*gohttp.Context) (any, error) { return nil, nil }).Named("posts.show")

	_, ok := r.ByName("posts.show")
	assert.False(t, ok)

	require.NoError(t, r.RefreshNameLookups())
	rt, ok := r.ByName("posts.show")
	require.True(t, ok)
	assert.Equal(t, "/users/{id}/posts/{post}", rt.Path)

	u, err := r.URL("posts.show", map[string]string{"id": "5", "post": "hello world", "page": "2"})
	require.NoError(t, err)
	assert.Equal(t, "/users/5/posts/hello%20world?page=2", u)

	_, err = r.URL("posts.show", map[string]string{"id": "5"})
	require.ErrorIs(t, err, routing.ErrMissingParameter)

	_, err = r.URL("nope", nil)
	require.ErrorIs(t, err, routing.ErrRouteNotFound)
}

func TestRouter_DuplicateNamesAreReported(t *testing.T) {
	r := routing.New(nil)
	noop := func(*gohttp.Context) (any, error) { return nil, nil }
	r.Get("/users", noop).Named("users.index")
	r.Get("/members", noop).Named("users.index")
	r.Post("/users", noop).Named("users.store")

	err := r.RefreshNameLookups()
	require.ErrorIs(t, err, routing.ErrDuplicateRouteName)
	assert.Contains(t, err.Error(), "[users.index] on GET /users and GET /members")

	rt, ok := r.ByName("users.index")
	require.True(t, ok)
	assert.Equal(t, "/users", rt.Path)
	_, ok = r.ByName("users.store")
	assert.True(t, ok)
}

func TestRouter_Resource(t *testing.T) {
	app := newApp(t)
	r := routing.New(app)
	r.Resource("/photos", "Controller")
	require.NoError(t, r.RefreshNameLookups())

	routes := r.Routes()
	require.Len(t, routes, 6)
	assert.Equal(t, [2]string{"Controller", "show"}, routes[2].Signature)

	_, ok := r.ByName("photos.destroy")
	assert.True(t, ok)

	rec := get(t, r, http.MethodGet, "/photos/3")
	assert.Equal(t, map[string]any{"id": "3"}, decode(t, rec))

	rec = get(t, r, http.MethodPost, "/photos")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRouter_ControllerResolutionErrors(t *testing.T) {
	app := foundation.New(t.TempDir())
	app.Instance("NotAController", "just a string")
	r := routing.New(app)
	r.Get("/a", routing.Uses("NotAController", "index"))
	r.Get("/b", routing.Uses("Unbound", "index"))

	assert.Equal(t, http.StatusInternalServerError, get(t, r, http.MethodGet, "/a").Code)
	assert.Equal(t, http.StatusInternalServerError, get(t, r, http.MethodGet, "/b").Code)
}

func TestRouter_StaticAndMount(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.css"), []byte("body{}"), 0o644))

	r := routing.New(nil)
	r.Static("/assets", dir)
	r.Mount("/metrics", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("up 1"))
	}))

	rec := get(t, r, http.MethodGet, "/assets/app.css")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "body{}", rec.Body.String())

	rec = get(t, r, http.MethodGet, "/metrics")
	assert.Equal(t, "up 1", rec.Body.String())
}

func TestRouter_CurrentRoute(t *testing.T) {
	r := routing.New(nil)
	var seen *routing.Route
	rt := r.Get("/here", func(ctx *gohttp.Context) (any, error) {
		seen, _ = routing.Current(ctx)
		return nil, nil
	})

	get(t, r, http.MethodGet, "/here")
	assert.Same(t, rt, seen)
}

func TestRouter_AsKernelTerminal(t *testing.T) {
	r := routing.New(nil)
	r.Get("/users/{id}", func(ctx *gohttp.Context) (any, error) {
		return map[string]string{"id": routing.Param(ctx.Request.Raw(), "id")}, nil
	})

	h := gohttp.NewKernel(nil, nil).Handler(r.Dispatch)
	rec := get(t, h, http.MethodGet, "/users/9")

	assert.Equal(t, gohttp.ContentTypeJSON, rec.Header().Get("Content-Type"))
	assert.Equal(t, map[string]any{"id": "9"}, decode(t, rec))
}

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func TestRouter_Verbs(t *testing.T) {
	r := routing.New(nil)
	r.Get("/hello", okHandler)
	r.Post("/users", okHandler)
	r.Put("/users/{id}", okHandler)
	r.Patch("/users/{id}", okHandler)
	r.Delete("/users/{id}", okHandler)
	r.Options("/users", okHandler)
	r.Any("/ping", okHandler)

	tests := []struct{ method, path string }{
		{http.MethodGet, "/hello"},
		{http.MethodPost, "/users"},
		{http.MethodPut, "/users/1"},
		{http.MethodPatch, "/users/1"},
		{http.MethodDelete, "/users/1"},
		{http.MethodOptions, "/users"},
		{http.MethodGet, "/ping"},
		{http.MethodPost, "/ping"},
		{http.MethodDelete, "/ping"},
	}
	for _, tt := range tests {
		rec := get(t, r, tt.method, tt.path)
		assert.Equal(t, http.StatusOK, rec.Code, "%s %s", tt.method, tt.path)
		assert.Equal(t, "ok", rec.Body.String())
	}
}

func TestRouter_ParamFromNetHTTPHandler(t *testing.T) {
	r := routing.New(nil)
	r.Get("/users/{id}", func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte(routing.Param(req, "id")))
	})

	rec := get(t, r, http.MethodGet, "/users/42")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "42", rec.Body.String())
	assert.Equal(t, http.StatusNotFound, get(t, r, http.MethodGet, "/users").Code)
}
