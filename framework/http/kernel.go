package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/km-arc/h3ravel/framework/foundation"
)

// Kernel threads every request through the global middleware to a terminal
// handler (normally the router) and turns the result into a response.
type Kernel struct {
	app        *foundation.Application
	pipeline   *Pipeline
	exceptions *ExceptionHandler
}

// NewKernel builds the global pipeline once. A nil exceptions handler gets
// the default one.
//
//	// Laravel: protected $middleware = [...]
func NewKernel(app *foundation.Application, exceptions *ExceptionHandler, middleware ...Middleware) *Kernel {
	if exceptions == nil {
		exceptions = NewExceptionHandler(app)
	}
	return &Kernel{
		app:        app,
		pipeline:   NewPipeline(middleware...),
		exceptions: exceptions,
	}
}

// Middleware returns the global middleware in execution order.
func (k *Kernel) Middleware() []Middleware { return k.pipeline.Middleware() }

// Exceptions returns the kernel's exception handler.
func (k *Kernel) Exceptions() *ExceptionHandler { return k.exceptions }

// Handle runs ev through the global middleware and terminal. Plain data
// results get a JSON content type on the transport response; a *Response
// result is left untouched.
func (k *Kernel) Handle(ev *Event, terminal Next) (any, error) {
	ctx := Init(k.app, ev)

	result, err := k.pipeline.Then(ctx, terminal)
	if err == nil && IsPlainData(result) && !ev.Writer.Written() {
		ev.Writer.Header().Set("Content-Type", ContentTypeJSON)
	}
	return result, err
}

// Handler adapts the kernel to net/http. Errors and panics from middleware
// or terminal go to the exception handler.
func (k *Kernel) Handler(terminal Next) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ev := NewEvent(w, r)
		ctx := Init(k.app, ev)

		result, err := k.safeHandle(ev, terminal)
		if err == nil {
			err = Respond(ctx, result)
		}
		if err != nil {
			k.exceptions.Handle(ctx, err)
		}
	})
}

func (k *Kernel) safeHandle(ev *Event, terminal Next) (result any, err error) {
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		if rec == http.ErrAbortHandler {
			panic(rec)
		}
		k.logger().Error("panic while handling request",
			zap.Any("panic", rec),
			zap.ByteString("stack", debug.Stack()),
		)
		if e, ok := rec.(error); ok {
			err = fmt.Errorf("panic: %w", e)
		} else {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return k.Handle(ev, terminal)
}

func (k *Kernel) logger() *zap.Logger {
	if k.app == nil {
		return zap.NewNop()
	}
	return k.app.Logger()
}

// Respond writes an action result:
//
//	nil          204 unless something was already written
//	*Response    sends its pending status if nothing was written
//	Responder    writes itself
//	error        returned for the exception handler
//	string       text/html
//	[]byte       sniffed content type
//	plain data   JSON (maps, slices, arrays, structs and pointers to them)
//	other        fmt.Sprint as text/plain
func Respond(ctx *Context, result any) error {
	res := ctx.Response

	switch v := result.(type) {
	case *Response:
		return v.Send()
	case Responder:
		return v.Respond(ctx)
	case error:
		return v
	}

	if res.Written() {
		return nil
	}

	switch v := result.(type) {
	case nil:
		_, err := res.Status(http.StatusNoContent).NoContent()
		return err
	case string:
		_, err := res.HTML(res.StatusCode(), v)
		return err
	case []byte:
		_, err := res.Bytes(res.StatusCode(), v)
		return err
	}

	if IsPlainData(result) {
		_, err := res.JSON(res.StatusCode(), result)
		return err
	}
	_, err := res.Text(res.StatusCode(), fmt.Sprint(result))
	return err
}

var (
	responseType  = reflect.TypeOf((*Response)(nil))
	responderType = reflect.TypeOf((*Responder)(nil)).Elem()
	errorType     = reflect.TypeOf((*error)(nil)).Elem()
	rawJSONType   = reflect.TypeOf(json.RawMessage(nil))
)

// IsPlainData reports whether v is serialisable data rather than a response:
// a map, slice, array or struct, or a non-nil pointer to one. Byte slices,
// *Response, Responder and error values are not plain data.
func IsPlainData(v any) bool {
	if v == nil {
		return false
	}
	t := reflect.TypeOf(v)
	if t == responseType || t.Implements(responderType) || t.Implements(errorType) {
		return false
	}
	if t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 && t != rawJSONType {
		return false
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return true
	}
	return false
}
