package http

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/km-arc/h3ravel/framework/http/validation"
)

const maxMemory = 32 << 20 // 32 MB

// ErrEmptyBody is returned by Bind for a JSON request without a body.
var ErrEmptyBody = errors.New("empty request body")

// Request wraps *http.Request with Laravel-style helpers.
type Request struct {
	raw *http.Request
}

// NewRequest wraps a standard *http.Request.
func NewRequest(r *http.Request) *Request {
	return &Request{raw: r}
}

// Raw returns the underlying *http.Request.
func (req *Request) Raw() *http.Request { return req.raw }

// ── Binding ──────────────────────────────────────────────────────────────────

// Bind decodes the request body into v: JSON by `json` tags, urlencoded and
// multipart forms by the same tags after flattening single values.
func (req *Request) Bind(v any) error {
	ct := req.ContentType()

	switch {
	case strings.Contains(ct, "application/json"):
		return req.bindJSON(v)
	case strings.Contains(ct, "multipart/form-data"):
		if err := req.raw.ParseMultipartForm(maxMemory); err != nil {
			return NewHTTPError(http.StatusBadRequest, "Malformed multipart body.").Wrap(err)
		}
		return bindForm(req.raw.MultipartForm.Value, v)
	default:
		if err := req.raw.ParseForm(); err != nil {
			return NewHTTPError(http.StatusBadRequest, "Malformed form body.").Wrap(err)
		}
		return bindForm(req.raw.PostForm, v)
	}
}

// Validated binds the body into v and checks its `validate` tags. A failed
// check returns *validation.Errors, which renders as 422.
func (req *Request) Validated(v any) error {
	if err := req.Bind(v); err != nil {
		return err
	}
	return validation.Struct(v)
}

// Validate checks the flat input against Laravel-style rules.
//
//	v := req.Validate(validation.Rules{"email": "required|email"})
//	if v.Fails() { return nil, v.Errors() }
func (req *Request) Validate(rules validation.Rules) *validation.Validator {
	return validation.Make(req.All(), rules)
}

func (req *Request) bindJSON(v any) error {
	defer req.raw.Body.Close()
	body, err := io.ReadAll(req.raw.Body)
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return NewHTTPError(http.StatusBadRequest, ErrEmptyBody.Error()).Wrap(ErrEmptyBody)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return NewHTTPError(http.StatusBadRequest, "Malformed JSON body.").Wrap(err)
	}
	return nil
}

// bindForm maps form values onto v through a JSON round trip, so the same
// `json` tags serve both encodings.
func bindForm(values map[string][]string, v any) error {
	m := make(map[string]any, len(values))
	for k, vals := range values {
		if len(vals) == 1 {
			m[k] = vals[0]
		} else {
			m[k] = vals
		}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// ── Input helpers ────────────────────────────────────────────────────────────

// Input returns a single input value (query string OR post body).
func (req *Request) Input(key string, fallback ...string) string {
	_ = req.raw.ParseForm()
	v := req.raw.FormValue(key)
	if v == "" && len(fallback) > 0 {
		return fallback[0]
	}
	return v
}

// Query returns a query-string value.
func (req *Request) Query(key string, fallback ...string) string {
	v := req.raw.URL.Query().Get(key)
	if v == "" && len(fallback) > 0 {
		return fallback[0]
	}
	return v
}

// All returns all input as a flat map (query + post).
func (req *Request) All() map[string]string {
	_ = req.raw.ParseForm()
	out := make(map[string]string, len(req.raw.Form))
	for k, v := range req.raw.Form {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

// Has returns true if the key is present and non-empty.
func (req *Request) Has(key string) bool {
	return req.Input(key) != ""
}

// RouteParam returns a URL route parameter matched by chi.
func (req *Request) RouteParam(key string) string {
	return chi.URLParam(req.raw, key)
}

// Header returns a request header value.
func (req *Request) Header(key string) string {
	return req.raw.Header.Get(key)
}

// BearerToken extracts the token from Authorization: Bearer <token>.
func (req *Request) BearerToken() string {
	token, ok := strings.CutPrefix(req.raw.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	return token
}

// IP returns the client IP without the port (respects chi's RealIP).
func (req *Request) IP() string {
	if host, _, err := net.SplitHostPort(req.raw.RemoteAddr); err == nil {
		return host
	}
	return req.raw.RemoteAddr
}

func (req *Request) Method() string { return req.raw.Method }
func (req *Request) Path() string   { return req.raw.URL.Path }

// URL returns the request URL without the query string.
func (req *Request) URL() string {
	scheme := "http"
	if req.raw.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + req.raw.Host + req.raw.URL.Path
}

// ContentType returns the Content-Type header value.
func (req *Request) ContentType() string {
	return req.raw.Header.Get("Content-Type")
}

// IsJSON reports whether the request body is JSON.
func (req *Request) IsJSON() bool {
	return strings.Contains(req.ContentType(), "json")
}

// Ajax reports an XMLHttpRequest.
func (req *Request) Ajax() bool {
	return req.raw.Header.Get("X-Requested-With") == "XMLHttpRequest"
}

// ExpectsJSON reports whether the client wants a JSON response: an Accept
// header naming json, or an ajax request that does not ask for HTML.
func (req *Request) ExpectsJSON() bool {
	accept := req.raw.Header.Get("Accept")
	if strings.Contains(accept, "json") {
		return true
	}
	return req.Ajax() && !strings.Contains(accept, "text/html")
}

// ── File uploads ─────────────────────────────────────────────────────────────

// File returns an uploaded file by field name.
func (req *Request) File(key string) (*multipart.FileHeader, error) {
	if err := req.raw.ParseMultipartForm(maxMemory); err != nil {
		return nil, err
	}
	_, fh, err := req.raw.FormFile(key)
	return fh, err
}

// Files returns all uploaded files for a field.
func (req *Request) Files(key string) ([]*multipart.FileHeader, error) {
	if err := req.raw.ParseMultipartForm(maxMemory); err != nil {
		return nil, err
	}
	if req.raw.MultipartForm == nil {
		return nil, http.ErrNotMultipart
	}
	return req.raw.MultipartForm.File[key], nil
}
