// Package middleware holds the framework's stock HTTP middleware.
package middleware

import (
	"time"

	"go.uber.org/zap"

	"github.com/km-arc/h3ravel/framework/http"
)

type logRequests struct {
	logger *zap.Logger
}

// LogRequests logs one line per request once the rest of the chain returns.
func LogRequests(logger *zap.Logger) http.Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &logRequests{logger: logger}
}

func (m *logRequests) Handle(ctx *http.Context, next http.Next) (any, error) {
	start := time.Now()
	result, err := next(ctx)

	status := ctx.Response.StatusCode()
	if err != nil {
		status = http.StatusOf(err)
	}

	fields := []zap.Field{
		zap.String("method", ctx.Request.Method()),
		zap.String("path", ctx.Request.Path()),
		zap.Int("status", status),
		zap.Duration("duration", time.Since(start)),
		zap.String("ip", ctx.Request.IP()),
	}
	if id := RequestIDFrom(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}

	switch {
	case status >= 500:
		m.logger.Error("request", fields...)
	case status >= 400:
		m.logger.Warn("request", fields...)
	default:
		m.logger.Info("request", fields...)
	}
	return result, err
}
