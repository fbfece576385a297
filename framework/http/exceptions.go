package http

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/km-arc/h3ravel/framework/container"
	"github.com/km-arc/h3ravel/framework/foundation"
	"github.com/km-arc/h3ravel/framework/http/validation"
)

// ReportFunc receives reportable errors. Returning false stops the default
// log entry (Laravel's ->stop()).
type ReportFunc func(ctx context.Context, err error) bool

// RenderFunc may turn an error into a result. ok=false falls through to the
// next renderer and finally to the default rendering.
type RenderFunc func(ctx *Context, err error) (result any, ok bool)

// ExceptionHandler is the top-level catch for errors surfaced by middleware
// and actions: it maps, reports, then renders them.
//
//	// Laravel: ->withExceptions(function (Exceptions $exceptions) { ... })
//	handler.DontReport(sql.ErrNoRows)
//	handler.Render(func(ctx *http.Context, err error) (any, bool) { ... })
type ExceptionHandler struct {
	app *foundation.Application

	mu         sync.RWMutex
	dontReport []error
	reporters  []ReportFunc
	mappers    []func(error) error
	renderers  []RenderFunc
}

// NewExceptionHandler creates a handler reporting through app's logger.
func NewExceptionHandler(app *foundation.Application) *ExceptionHandler {
	return &ExceptionHandler{app: app}
}

// ── Configuration ────────────────────────────────────────────────────────────

// DontReport silences errors matching any target (errors.Is).
func (h *ExceptionHandler) DontReport(targets ...error) *ExceptionHandler {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dontReport = append(h.dontReport, targets...)
	return h
}

// Report adds a reporter, run in registration order.
func (h *ExceptionHandler) Report(fn ReportFunc) *ExceptionHandler {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reporters = append(h.reporters, fn)
	return h
}

// Map rewrites errors before they are reported and rendered.
func (h *ExceptionHandler) Map(fn func(error) error) *ExceptionHandler {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.mappers = append(h.mappers, fn)
	return h
}

// Render adds a custom renderer, tried in registration order.
func (h *ExceptionHandler) Render(fn RenderFunc) *ExceptionHandler {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.renderers = append(h.renderers, fn)
	return h
}

// ── Handling ─────────────────────────────────────────────────────────────────

// Handle maps, reports and renders err. Nothing is rendered once headers
// have been sent.
func (h *ExceptionHandler) Handle(ctx *Context, err error) {
	err = h.mapError(err)
	h.report(ctx, err)

	if ctx.Response.Written() {
		return
	}
	h.render(ctx, err)
}

// ShouldReport is false for client errors (status below 500) and for
// anything registered with DontReport.
func (h *ExceptionHandler) ShouldReport(err error) bool {
	if StatusOf(err) < http.StatusInternalServerError {
		return false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, target := range h.dontReport {
		if errors.Is(err, target) {
			return false
		}
	}
	return true
}

func (h *ExceptionHandler) mapError(err error) error {
	h.mu.RLock()
	mappers := append([]func(error) error(nil), h.mappers...)
	h.mu.RUnlock()

	for _, fn := range mappers {
		if mapped := fn(err); mapped != nil {
			err = mapped
		}
	}
	return err
}

func (h *ExceptionHandler) report(ctx *Context, err error) {
	if !h.ShouldReport(err) {
		return
	}

	h.mu.RLock()
	reporters := append([]ReportFunc(nil), h.reporters...)
	h.mu.RUnlock()

	for _, fn := range reporters {
		if !fn(ctx.Context(), err) {
			return
		}
	}

	h.logger().Error("unhandled error",
		zap.Error(err),
		zap.String("method", ctx.Request.Method()),
		zap.String("path", ctx.Request.Path()),
		zap.Int("status", StatusOf(err)),
	)
}

func (h *ExceptionHandler) render(ctx *Context, err error) {
	h.mu.RLock()
	renderers := append([]RenderFunc(nil), h.renderers...)
	h.mu.RUnlock()

	for _, fn := range renderers {
		result, ok := fn(ctx, err)
		if !ok {
			continue
		}
		rerr := Respond(ctx, result)
		if rerr == nil {
			return
		}
		h.logger().Warn("custom error renderer failed", zap.Error(rerr))
		if ctx.Response.Written() {
			return
		}
		break
	}

	status := StatusOf(err)
	if ctx.Request.ExpectsJSON() {
		h.renderJSON(ctx, err, status)
		return
	}
	h.renderHTML(ctx, err, status)
}

func (h *ExceptionHandler) renderJSON(ctx *Context, err error, status int) {
	var bag *validation.Errors
	if errors.As(err, &bag) {
		_, _ = ctx.Response.ValidationError(bag)
		return
	}

	body := envelope{"message": h.message(err, status)}
	if h.debug() && status >= http.StatusInternalServerError {
		body["exception"] = fmt.Sprintf("%T", err)
		body["error"] = err.Error()
	}
	_, _ = ctx.Response.JSON(status, body)
}

func (h *ExceptionHandler) renderHTML(ctx *Context, err error, status int) {
	msg := h.message(err, status)

	name := "errors/" + strconv.Itoa(status)
	if views, verr := ctx.views(); verr == nil && views.Exists(name) {
		data := map[string]any{"status": status, "message": msg}
		if _, rerr := ctx.Response.Status(status).View(views, name, data); rerr == nil {
			return
		}
	}

	page := fmt.Sprintf(
		"<!doctype html>\n<html><head><title>%d %s</title></head><body><h1>%d</h1><p>%s</p></body></html>\n",
		status, html.EscapeString(http.StatusText(status)), status, html.EscapeString(msg),
	)
	_, _ = ctx.Response.HTML(status, page)
}

// message is what the client sees: the HTTPError message, the validation
// summary, or for server errors a generic text unless APP_DEBUG is on.
func (h *ExceptionHandler) message(err error, status int) string {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.Message != "" {
		return httpErr.Message
	}
	if status >= http.StatusInternalServerError && !h.debug() {
		return "Server Error"
	}
	return err.Error()
}

func (h *ExceptionHandler) debug() bool {
	return h.app != nil && h.app.IsDebug()
}

func (h *ExceptionHandler) logger() *zap.Logger {
	if h.app == nil {
		return zap.NewNop()
	}
	if h.app.Bound("log") {
		if l, err := container.Resolve[*zap.Logger](h.app.Container, "log"); err == nil {
			return l
		}
	}
	return h.app.Logger()
}
