package routing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/h3ravel/framework/container"
	gohttp "github.com/km-arc/h3ravel/framework/http"
	"github.com/km-arc/h3ravel/framework/http/middleware"
	"github.com/km-arc/h3ravel/framework/routing"
)

type named string

func (n named) Handle(ctx *gohttp.Context, next gohttp.Next) (any, error) { return next(ctx) }
func (n named) String() string                                            { return string(n) }

func names(entries []routing.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func TestParseName(t *testing.T) {
	tests := []struct {
		ref, name, params string
	}{
		{"auth", "auth", ""},
		{"throttle:60,1", "throttle", "60,1"},
		{"role:admin:write", "role", "admin:write"},
		{"can:", "can", ""},
	}
	for _, tt := range tests {
		name, params := routing.ParseName(tt.ref)
		assert.Equal(t, tt.name, name, tt.ref)
		assert.Equal(t, tt.params, params, tt.ref)
	}
}

func TestResolver_ExpandAliasesAndFallback(t *testing.T) {
	m := routing.NewMiddlewareResolver(nil)
	m.Alias("auth", "App.Authenticate")
	m.Alias("log", named("log"))

	entries, err := m.Expand("auth:api", "log", "Custom.Middleware", named("inline"))
	require.NoError(t, err)

	assert.Equal(t, []string{"App.Authenticate:api", "log", "Custom.Middleware", "inline"}, names(entries))
	assert.Equal(t, "App.Authenticate", entries[0].Key)
	assert.Equal(t, []string{"api"}, entries[0].Params)
	assert.Equal(t, "Custom.Middleware", entries[2].Key)
	assert.NotNil(t, entries[3].Middleware)
}

func TestResolver_GroupsExpandInOrderWithoutDedup(t *testing.T) {
	m := routing.NewMiddlewareResolver(nil)
	m.Group("web", named("session"), named("csrf"))
	m.Group("admin", "web", named("auth"), named("session"))
	m.AppendToGroup("admin", named("audit"))
	m.PrependToGroup("admin", named("first"))

	entries, err := m.Expand("admin", named("last"))
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "session", "csrf", "auth", "session", "audit", "last"}, names(entries))

	again, err := m.Expand("web", "web")
	require.NoError(t, err)
	assert.Len(t, again, 4)
}

func TestResolver_GroupCycle(t *testing.T) {
	m := routing.NewMiddlewareResolver(nil)
	m.Group("self", named("a"), "self")
	m.Group("ping", "pong")
	m.Group("pong", "ping")

	_, err := m.Expand("self")
	require.ErrorIs(t, err, routing.ErrMiddlewareGroupCycle)

	_, err = m.Expand("ping")
	require.ErrorIs(t, err, routing.ErrMiddlewareGroupCycle)
}

func TestResolver_AliasToGroup(t *testing.T) {
	m := routing.NewMiddlewareResolver(nil)
	m.Group("api", named("a"), named("b"))
	m.Alias("everything", "api")

	entries, err := m.Expand("everything")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names(entries))
}

func TestResolver_ResolveFromContainer(t *testing.T) {
	c := container.New()
	c.Singleton("App.Authenticate", func(*container.Container) (any, error) {
		return named("authenticate"), nil
	})
	c.Instance("NotMiddleware", 42)

	m := routing.NewMiddlewareResolver(c)
	m.Alias("auth", "App.Authenticate")

	mw, err := m.Resolve("auth")
	require.NoError(t, err)
	require.Len(t, mw, 1)
	assert.Equal(t, named("authenticate"), mw[0])

	_, err = m.Resolve("NotMiddleware")
	require.ErrorIs(t, err, routing.ErrInvalidMiddleware)

	_, err = m.Resolve("Missing")
	require.ErrorIs(t, err, container.ErrBindingResolution)

	_, err = m.Resolve("auth:admin")
	require.ErrorIs(t, err, routing.ErrInvalidMiddleware)

	_, err = m.Resolve(3.14)
	require.ErrorIs(t, err, routing.ErrInvalidMiddleware)
}

func TestResolver_ParameterizedMiddleware(t *testing.T) {
	m := routing.NewMiddlewareResolver(nil)
	m.Alias("throttle", middleware.NewThrottle(60, time.Minute))

	mw, err := m.Resolve("throttle:5,2")
	require.NoError(t, err)
	require.Len(t, mw, 1)

	th := mw[0].(*middleware.Throttle)
	assert.Equal(t, 5, th.MaxAttempts)
	assert.Equal(t, 2*time.Minute, th.Decay)

	_, err = m.Resolve("throttle:lots")
	require.Error(t, err)
}

func TestResolver_UnknownWithoutContainer(t *testing.T) {
	_, err := routing.NewMiddlewareResolver(nil).Resolve("auth")
	require.ErrorIs(t, err, routing.ErrUnknownMiddleware)
}
