package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/km-arc/h3ravel/framework/http/validation"
)

// ContentTypeJSON is set on every JSON response, including plain data
// returned from an action.
const ContentTypeJSON = "application/json; charset=UTF-8"

const contentTypeHTML = "text/html; charset=UTF-8"

// ViewRenderer renders named templates; the "view" binding implements it.
type ViewRenderer interface {
	Exists(name string) bool
	Render(w io.Writer, name string, data any) error
}

// Responder lets a value returned from an action write itself.
type Responder interface {
	Respond(ctx *Context) error
}

// ── Response ─────────────────────────────────────────────────────────────────

// Response wraps the event's writer with Laravel-style helpers. Returning it
// from an action tells the kernel the response is already taken care of.
//
//	return ctx.Response.Success(user)
type Response struct {
	w      *ResponseWriter
	status int
}

// NewResponse wraps a ResponseWriter.
func NewResponse(w http.ResponseWriter) *Response {
	return &Response{w: NewResponseWriter(w), status: http.StatusOK}
}

// Raw returns the underlying ResponseWriter.
func (res *Response) Raw() http.ResponseWriter { return res.w }

// Header returns the response headers.
func (res *Response) Header() http.Header { return res.w.Header() }

// SetHeader sets a header and returns the response for chaining.
func (res *Response) SetHeader(key, value string) *Response {
	res.w.Header().Set(key, value)
	return res
}

// Status sets the status used by the next body written without an explicit
// status (plain data, strings, Send).
func (res *Response) Status(code int) *Response {
	res.status = code
	return res
}

// StatusCode returns the status sent, or the pending one.
func (res *Response) StatusCode() int {
	if res.w.Written() {
		return res.w.Status()
	}
	return res.status
}

// Written reports whether headers have been sent.
func (res *Response) Written() bool { return res.w.Written() }

// Send writes the pending status if nothing has been written yet.
func (res *Response) Send() error {
	if !res.w.Written() {
		res.w.WriteHeader(res.status)
	}
	return nil
}

// ── JSON responses ────────────────────────────────────────────────────────────

// JSON sends a JSON response.
//
//	return ctx.Response.JSON(http.StatusOK, map[string]any{"message": "ok"})
func (res *Response) JSON(status int, data any) (*Response, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		return res, err
	}
	res.w.Header().Set("Content-Type", ContentTypeJSON)
	res.w.WriteHeader(status)
	_, err := res.w.Write(buf.Bytes())
	return res, err
}

// Success sends 200 JSON: {"data": v}
func (res *Response) Success(v any) (*Response, error) {
	return res.JSON(http.StatusOK, envelope{"data": v})
}

// Created sends 201 JSON: {"data": v}
func (res *Response) Created(v any) (*Response, error) {
	return res.JSON(http.StatusCreated, envelope{"data": v})
}

// NoContent sends 204 with no body.
func (res *Response) NoContent() (*Response, error) {
	res.w.WriteHeader(http.StatusNoContent)
	return res, nil
}

// Error sends a JSON error response.
//
//	return ctx.Response.Error(http.StatusNotFound, "Resource not found")
func (res *Response) Error(status int, message string) (*Response, error) {
	return res.JSON(status, envelope{"message": message})
}

// Unauthorized sends 401.
func (res *Response) Unauthorized(message ...string) (*Response, error) {
	return res.Error(http.StatusUnauthorized, first(message, "Unauthenticated."))
}

// Forbidden sends 403.
func (res *Response) Forbidden(message ...string) (*Response, error) {
	return res.Error(http.StatusForbidden, first(message, "This action is unauthorized."))
}

// NotFound sends 404.
func (res *Response) NotFound(message ...string) (*Response, error) {
	return res.Error(http.StatusNotFound, first(message, "Not found."))
}

// ServerError sends 500.
func (res *Response) ServerError(message ...string) (*Response, error) {
	return res.Error(http.StatusInternalServerError, first(message, "Server Error."))
}

// ValidationError sends 422 with the standard Laravel error bag.
func (res *Response) ValidationError(errors *validation.Errors) (*Response, error) {
	return res.JSON(http.StatusUnprocessableEntity, errors)
}

// ── Text / HTML ──────────────────────────────────────────────────────────────

// HTML sends an HTML body.
func (res *Response) HTML(status int, body string) (*Response, error) {
	return res.body(status, contentTypeHTML, []byte(body))
}

// Text sends a plain-text body.
func (res *Response) Text(status int, body string) (*Response, error) {
	return res.body(status, "text/plain; charset=UTF-8", []byte(body))
}

// Bytes sends raw bytes; the content type is sniffed unless already set.
func (res *Response) Bytes(status int, body []byte) (*Response, error) {
	ct := res.w.Header().Get("Content-Type")
	if ct == "" {
		ct = http.DetectContentType(body)
	}
	return res.body(status, ct, body)
}

func (res *Response) body(status int, contentType string, body []byte) (*Response, error) {
	res.w.Header().Set("Content-Type", contentType)
	res.w.WriteHeader(status)
	_, err := res.w.Write(body)
	return res, err
}

// View renders a template through views with the pending status.
func (res *Response) View(views ViewRenderer, name string, data any) (*Response, error) {
	var buf bytes.Buffer
	if err := views.Render(&buf, name, data); err != nil {
		return res, err
	}
	return res.body(res.status, contentTypeHTML, buf.Bytes())
}

// ── Redirects ────────────────────────────────────────────────────────────────

// Redirect performs an HTTP redirect with the given status.
//
//	return ctx.Response.Redirect(http.StatusMovedPermanently, "/new")
func (res *Response) Redirect(status int, url string) (*Response, error) {
	res.w.Header().Set("Location", url)
	res.w.WriteHeader(status)
	return res, nil
}

// RedirectTo performs a 302 redirect.
func (res *Response) RedirectTo(url string) (*Response, error) {
	return res.Redirect(http.StatusFound, url)
}

// RedirectBack redirects to the Referer header (or fallback URL).
func (res *Response) RedirectBack(r *http.Request, fallback string) (*Response, error) {
	ref := r.Referer()
	if ref == "" {
		ref = fallback
	}
	return res.Redirect(http.StatusFound, ref)
}

// ── Helpers ──────────────────────────────────────────────────────────────────

type envelope map[string]any

func first(ss []string, fallback string) string {
	if len(ss) > 0 && ss[0] != "" {
		return ss[0]
	}
	return fallback
}
