package routing

import (
	"fmt"
	"strings"
	"sync"

	"github.com/km-arc/h3ravel/framework/container"
	"github.com/km-arc/h3ravel/framework/http"
)

// Entry is one middleware reference after alias and group expansion.
type Entry struct {
	// Name is the reference as resolved, e.g. "throttle:60,1".
	Name string
	// Middleware is set for inline middleware and aliases bound to an instance.
	Middleware http.Middleware
	// Key is the container key for aliases bound to a key.
	Key    string
	Params []string
}

// MiddlewareResolver turns middleware references into middleware.
// A reference is an http.Middleware, or a string "name" / "name:a,b" naming
// an alias, a group or a container key.
//
//	resolver.Alias("throttle", middleware.NewThrottle(60, time.Minute))
//	resolver.Group("api", "throttle:60,1", "bindings")
type MiddlewareResolver struct {
	container *container.Container

	mu      sync.RWMutex
	aliases map[string]any
	groups  map[string][]any
}

// NewMiddlewareResolver creates a resolver falling back to c for unknown
// names. c may be nil.
func NewMiddlewareResolver(c *container.Container) *MiddlewareResolver {
	return &MiddlewareResolver{
		container: c,
		aliases:   make(map[string]any),
		groups:    make(map[string][]any),
	}
}

// Alias maps name to an http.Middleware, a container key or a group name.
func (m *MiddlewareResolver) Alias(name string, target any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aliases[name] = target
}

// Group defines (or replaces) a middleware group.
func (m *MiddlewareResolver) Group(name string, mw ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups[name] = append([]any(nil), mw...)
}

// AppendToGroup adds mw to the end of a group, creating it if needed.
func (m *MiddlewareResolver) AppendToGroup(name string, mw ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups[name] = append(m.groups[name], mw...)
}

// PrependToGroup adds mw to the start of a group, creating it if needed.
func (m *MiddlewareResolver) PrependToGroup(name string, mw ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups[name] = append(append([]any(nil), mw...), m.groups[name]...)
}

// Aliases returns a copy of the alias map.
func (m *MiddlewareResolver) Aliases() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]any, len(m.aliases))
	for k, v := range m.aliases {
		out[k] = v
	}
	return out
}

// Groups returns a copy of the group definitions.
func (m *MiddlewareResolver) Groups() map[string][]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]any, len(m.groups))
	for k, v := range m.groups {
		out[k] = append([]any(nil), v...)
	}
	return out
}

// ParseName splits a reference on its first ':' into the base name and the
// parameter string: "throttle:60,1" → ("throttle", "60,1").
func ParseName(ref string) (name, params string) {
	name, params, _ = strings.Cut(ref, ":")
	return name, params
}

// Expand flattens refs in order. Groups expand recursively and duplicates are
// kept. A group that contains itself, directly or through another group,
// returns ErrMiddlewareGroupCycle.
func (m *MiddlewareResolver) Expand(refs ...any) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.expand(refs, nil)
}

func (m *MiddlewareResolver) expand(refs []any, path []string) ([]Entry, error) {
	var out []Entry
	for _, ref := range refs {
		switch r := ref.(type) {
		case http.Middleware:
			out = append(out, Entry{Name: middlewareName(r), Middleware: r})
		case string:
			entries, err := m.expandName(r, path)
			if err != nil {
				return nil, err
			}
			out = append(out, entries...)
		default:
			return nil, fmt.Errorf("%w: %T", ErrInvalidMiddleware, ref)
		}
	}
	return out, nil
}

func (m *MiddlewareResolver) expandName(ref string, path []string) ([]Entry, error) {
	if group, ok := m.groups[ref]; ok {
		for _, seen := range path {
			if seen == ref {
				return nil, fmt.Errorf("%w: %s -> %s", ErrMiddlewareGroupCycle, strings.Join(path, " -> "), ref)
			}
		}
		return m.expand(group, append(path, ref))
	}

	name, params := ParseName(ref)
	var args []string
	if params != "" {
		args = strings.Split(params, ",")
	}

	target, ok := m.aliases[name]
	if !ok {
		return []Entry{{Name: ref, Key: name, Params: args}}, nil
	}

	switch t := target.(type) {
	case http.Middleware:
		return []Entry{{Name: ref, Middleware: t, Params: args}}, nil
	case string:
		if _, isGroup := m.groups[t]; isGroup && params == "" {
			return m.expandName(t, path)
		}
		resolved := t
		if params != "" {
			resolved += ":" + params
		}
		return []Entry{{Name: resolved, Key: t, Params: args}}, nil
	default:
		return nil, fmt.Errorf("%w: alias %q is %T", ErrInvalidMiddleware, name, target)
	}
}

// Resolve expands refs and instantiates each entry: container keys are made,
// and entries with parameters must implement http.ParameterizedMiddleware.
func (m *MiddlewareResolver) Resolve(refs ...any) ([]http.Middleware, error) {
	entries, err := m.Expand(refs...)
	if err != nil {
		return nil, err
	}

	out := make([]http.Middleware, 0, len(entries))
	for _, e := range entries {
		mw, err := m.instantiate(e)
		if err != nil {
			return nil, err
		}
		out = append(out, mw)
	}
	return out, nil
}

func (m *MiddlewareResolver) instantiate(e Entry) (http.Middleware, error) {
	mw := e.Middleware
	if mw == nil {
		if m.container == nil {
			return nil, fmt.Errorf("middleware %q: %w", e.Name, ErrUnknownMiddleware)
		}
		v, err := m.container.Make(e.Key)
		if err != nil {
			return nil, fmt.Errorf("middleware %q: %w", e.Name, err)
		}
		var ok bool
		if mw, ok = v.(http.Middleware); !ok {
			return nil, fmt.Errorf("%w: %q resolved to %T", ErrInvalidMiddleware, e.Name, v)
		}
	}

	if len(e.Params) == 0 {
		return mw, nil
	}
	pm, ok := mw.(http.ParameterizedMiddleware)
	if !ok {
		return nil, fmt.Errorf("%w: %q takes no parameters", ErrInvalidMiddleware, e.Name)
	}
	configured, err := pm.WithParams(e.Params...)
	if err != nil {
		return nil, fmt.Errorf("middleware %q: %w", e.Name, err)
	}
	return configured, nil
}
