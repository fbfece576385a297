package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Repository holds nested configuration addressed with dot keys, the way
// Laravel's config('app.name') does. Each file config/<name>.yaml becomes
// the top-level key <name>.
type Repository struct {
	mu    sync.RWMutex
	items map[string]any
}

// NewRepository creates a repository seeded with items.
func NewRepository(items map[string]any) *Repository {
	if items == nil {
		items = make(map[string]any)
	}
	return &Repository{items: items}
}

// LoadDir reads every *.yaml / *.yml file in dir. A missing directory yields
// an empty repository; a malformed file is an error.
func LoadDir(dir string) (*Repository, error) {
	r := NewRepository(nil)

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read dir %s: %w", dir, err)
	}

	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", e.Name(), err)
		}
		data = []byte(os.ExpandEnv(string(data)))

		var items map[string]any
		if err := yaml.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", e.Name(), err)
		}
		r.items[strings.TrimSuffix(e.Name(), ext)] = items
	}
	return r, nil
}

// Get returns the value at key, or fallback when the key is absent.
//
//	repo.Get("app.name", "H3ravel")
func (r *Repository) Get(key string, fallback any) any {
	if v, ok := r.lookup(key); ok {
		return v
	}
	return fallback
}

// Has reports whether key is present.
func (r *Repository) Has(key string) bool {
	_, ok := r.lookup(key)
	return ok
}

// String returns key as a string, or fallback.
func (r *Repository) String(key, fallback string) string {
	v, ok := r.lookup(key)
	if !ok || v == nil {
		return fallback
	}
	return fmt.Sprint(v)
}

// Int returns key as an int, or fallback when absent or not numeric.
func (r *Repository) Int(key string, fallback int) int {
	v, ok := r.lookup(key)
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i
		}
	}
	return fallback
}

// Bool returns key as a bool, or fallback.
func (r *Repository) Bool(key string, fallback bool) bool {
	v, ok := r.lookup(key)
	if !ok {
		return fallback
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		if parsed, err := strconv.ParseBool(b); err == nil {
			return parsed
		}
	}
	return fallback
}

// Required returns the value at key or a *ConfigError naming it.
func (r *Repository) Required(key string) (any, error) {
	v, ok := r.lookup(key)
	if !ok || v == nil || v == "" {
		return nil, &ConfigError{Key: key, Source: "config"}
	}
	return v, nil
}

// Set stores value at key, creating intermediate maps.
func (r *Repository) Set(key string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	parts := strings.Split(key, ".")
	m := r.items
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[p] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = value
}

// All returns the top-level items.
func (r *Repository) All() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]any, len(r.items))
	for k, v := range r.items {
		out[k] = v
	}
	return out
}

func (r *Repository) lookup(key string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var cur any = r.items
	for _, p := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[p]; !ok {
			return nil, false
		}
	}
	return cur, true
}
