package http_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/km-arc/h3ravel/framework/container"
	"github.com/km-arc/h3ravel/framework/foundation"
	gohttp "github.com/km-arc/h3ravel/framework/http"
	"github.com/km-arc/h3ravel/framework/http/validation"
)

// fakeViews knows a fixed set of templates and renders "<name>:<data>".
type fakeViews map[string]bool

func (v fakeViews) Exists(name string) bool { return v[name] }

func (v fakeViews) Render(w io.Writer, name string, data any) error {
	_, err := fmt.Fprintf(w, "%s:%v", name, data.(map[string]any)["message"])
	return err
}

func handle(h *gohttp.ExceptionHandler, app *foundation.Application, accept string, err error) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/boom", nil)
	if accept != "" {
		r.Header.Set("Accept", accept)
	}
	h.Handle(gohttp.Init(app, gohttp.NewEvent(rec, r)), err)
	return rec
}

func loggedApp(t *testing.T) (*foundation.Application, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	app := foundation.New(t.TempDir())
	app.Instance("log", zap.New(core))
	return app, logs
}

func TestExceptions_JSON(t *testing.T) {
	h := gohttp.NewExceptionHandler(nil)

	rec := handle(h, nil, "application/json", gohttp.NewHTTPError(http.StatusNotFound, ""))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"Not Found"}`, rec.Body.String())

	rec = handle(h, nil, "application/json", errors.New("db password leaked"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"message":"Server Error"}`, rec.Body.String())
}

func TestExceptions_ValidationBag(t *testing.T) {
	bag := &validation.Errors{}
	bag.Add("email", "The email field is required.")

	rec := handle(gohttp.NewExceptionHandler(nil), nil, "application/json", bag)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t, `{"message":"The email field is required.","errors":{"email":["The email field is required."]}}`, rec.Body.String())
}

func TestExceptions_HTMLFallback(t *testing.T) {
	rec := handle(gohttp.NewExceptionHandler(nil), nil, "text/html", gohttp.NewHTTPError(http.StatusForbidden, "<nope>"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "text/html; charset=UTF-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<h1>403</h1>")
	assert.Contains(t, rec.Body.String(), "&lt;nope&gt;")
}

func TestExceptions_HTMLErrorView(t *testing.T) {
	app := foundation.New(t.TempDir())
	app.Instance("view", gohttp.ViewRenderer(fakeViews{"errors/404": true}))
	h := gohttp.NewExceptionHandler(app)

	rec := handle(h, app, "", gohttp.NewHTTPError(http.StatusNotFound, "Gone"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "errors/404:Gone", rec.Body.String())

	rec = handle(h, app, "", gohttp.NewHTTPError(http.StatusGone, ""))
	assert.Contains(t, rec.Body.String(), "<h1>410</h1>")
}

func TestExceptions_DebugExposesError(t *testing.T) {
	t.Setenv("APP_DEBUG", "true")
	app := foundation.New(t.TempDir())

	rec := handle(gohttp.NewExceptionHandler(app), app, "application/json", errors.New("query failed"))

	assert.JSONEq(t, `{"message":"query failed","exception":"*errors.errorString","error":"query failed"}`, rec.Body.String())
}

func TestExceptions_Reporting(t *testing.T) {
	app, logs := loggedApp(t)
	h := gohttp.NewExceptionHandler(app).DontReport(sql.ErrNoRows)

	handle(h, app, "application/json", gohttp.NewHTTPError(http.StatusBadRequest, "bad"))
	handle(h, app, "application/json", fmt.Errorf("find user: %w", sql.ErrNoRows))
	assert.Zero(t, logs.FilterMessage("unhandled error").Len())

	handle(h, app, "application/json", errors.New("boom"))
	assert.Equal(t, 1, logs.FilterMessage("unhandled error").Len())

	assert.False(t, h.ShouldReport(gohttp.NewHTTPError(http.StatusUnauthorized, "")))
	assert.True(t, h.ShouldReport(errors.New("x")))
}

func TestExceptions_ReporterCanStopLogging(t *testing.T) {
	app, logs := loggedApp(t)
	var reported []error
	h := gohttp.NewExceptionHandler(app).Report(func(_ context.Context, err error) bool {
		reported = append(reported, err)
		return false
	})

	handle(h, app, "application/json", errors.New("boom"))

	require.Len(t, reported, 1)
	assert.Zero(t, logs.FilterMessage("unhandled error").Len())
}

func TestExceptions_MapAndRender(t *testing.T) {
	errNotOwner := errors.New("not owner")
	h := gohttp.NewExceptionHandler(nil).
		Map(func(err error) error {
			if errors.Is(err, errNotOwner) {
				return gohttp.NewHTTPError(http.StatusForbidden, "").Wrap(err)
			}
			return nil
		}).
		Render(func(ctx *gohttp.Context, err error) (any, bool) {
			if gohttp.StatusOf(err) != http.StatusForbidden {
				return nil, false
			}
			return map[string]string{"reason": "ownership"}, true
		})

	rec := handle(h, nil, "application/json", errNotOwner)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"reason":"ownership"}`, rec.Body.String())

	rec = handle(h, nil, "application/json", gohttp.NewHTTPError(http.StatusTeapot, "short and stout"))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestExceptions_NothingRenderedAfterWrite(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx := gohttp.Init(nil, gohttp.NewEvent(rec, httptest.NewRequest(http.MethodGet, "/", nil)))
	_, err := ctx.Response.Text(http.StatusOK, "partial")
	require.NoError(t, err)

	gohttp.NewExceptionHandler(nil).Handle(ctx, errors.New("late"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "partial", rec.Body.String())
}

func TestExceptions_LoggerFromContainer(t *testing.T) {
	app, logs := loggedApp(t)
	_, err := container.Resolve[*zap.Logger](app.Container, "log")
	require.NoError(t, err)

	handle(gohttp.NewExceptionHandler(app), app, "", errors.New("boom"))
	assert.Equal(t, 1, logs.FilterMessage("unhandled error").Len())
}
