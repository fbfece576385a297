package middleware

import (
	"fmt"
	"math"
	nethttp "net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/km-arc/h3ravel/framework/http"
)

const maxTrackedClients = 10000

// Throttle limits each client IP to MaxAttempts requests per Decay window.
// As a route middleware alias it takes "throttle:<attempts>,<minutes>".
type Throttle struct {
	MaxAttempts int
	Decay       time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewThrottle allows maxAttempts per decay.
func NewThrottle(maxAttempts int, decay time.Duration) *Throttle {
	return &Throttle{
		MaxAttempts: maxAttempts,
		Decay:       decay,
		limiters:    make(map[string]*rate.Limiter),
	}
}

// WithParams builds a new Throttle from "attempts[,minutes]".
func (t *Throttle) WithParams(params ...string) (http.Middleware, error) {
	attempts, decay := t.MaxAttempts, t.Decay
	if len(params) > 0 && strings.TrimSpace(params[0]) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(params[0]))
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("throttle: invalid max attempts %q", params[0])
		}
		attempts = n
	}
	if len(params) > 1 && strings.TrimSpace(params[1]) != "" {
		mins, err := strconv.ParseFloat(strings.TrimSpace(params[1]), 64)
		if err != nil || mins <= 0 {
			return nil, fmt.Errorf("throttle: invalid decay minutes %q", params[1])
		}
		decay = time.Duration(mins * float64(time.Minute))
	}
	return NewThrottle(attempts, decay), nil
}

func (t *Throttle) Handle(ctx *http.Context, next http.Next) (any, error) {
	limiter := t.limiter(ctx.Request.IP())

	ctx.Response.SetHeader("X-RateLimit-Limit", strconv.Itoa(t.MaxAttempts))
	if !limiter.Allow() {
		retry := time.Duration(float64(t.Decay) / float64(t.MaxAttempts))
		ctx.Response.SetHeader("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
		ctx.Response.SetHeader("X-RateLimit-Remaining", "0")
		return nil, http.NewHTTPError(nethttp.StatusTooManyRequests, "Too Many Attempts.")
	}
	remaining := int(math.Max(0, math.Floor(limiter.Tokens())))
	ctx.Response.SetHeader("X-RateLimit-Remaining", strconv.Itoa(remaining))
	return next(ctx)
}

func (t *Throttle) limiter(key string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.limiters == nil || len(t.limiters) > maxTrackedClients {
		t.limiters = make(map[string]*rate.Limiter)
	}
	l, ok := t.limiters[key]
	if !ok {
		every := t.Decay / time.Duration(t.MaxAttempts)
		l = rate.NewLimiter(rate.Every(every), t.MaxAttempts)
		t.limiters[key] = l
	}
	return l
}
