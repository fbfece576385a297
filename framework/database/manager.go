package database

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jmoiron/sqlx"
)

var (
	ErrUnsupportedDriver = errors.New("database: unsupported driver")
	ErrUnknownConnection = errors.New("database: connection not configured")
)

// OpenFunc opens a connection; Open is the default.
type OpenFunc func(ctx context.Context, cc ConnectionConfig) (*sqlx.DB, error)

// Manager opens named connections lazily and keeps them for the lifetime of
// the application (Laravel: DB::connection('name')).
type Manager struct {
	defaultName string
	open        OpenFunc

	mu      sync.Mutex
	configs map[string]ConnectionConfig
	conns   map[string]*sqlx.DB
}

// NewManager creates a manager whose default connection is defaultName.
func NewManager(defaultName string, configs map[string]ConnectionConfig) *Manager {
	m := &Manager{
		defaultName: defaultName,
		open:        Open,
		configs:     make(map[string]ConnectionConfig, len(configs)),
		conns:       make(map[string]*sqlx.DB),
	}
	for name, cc := range configs {
		m.configs[name] = cc
	}
	return m
}

// WithOpener replaces how connections are opened.
func (m *Manager) WithOpener(fn OpenFunc) *Manager {
	m.open = fn
	return m
}

// DefaultName is the connection used when none is named.
func (m *Manager) DefaultName() string { return m.defaultName }

// Extend adds or replaces a connection config. An open connection under the
// same name is kept until Purge.
func (m *Manager) Extend(name string, cc ConnectionConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configs[name] = cc
}

// Set installs an already open connection, e.g. a sqlmock in tests.
func (m *Manager) Set(name string, db *sqlx.DB) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conns[name] = db
}

// Connection returns the named connection, opening it on first use. With no
// name the default connection is returned.
func (m *Manager) Connection(ctx context.Context, name ...string) (*sqlx.DB, error) {
	n := m.defaultName
	if len(name) > 0 && name[0] != "" {
		n = name[0]
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if db, ok := m.conns[n]; ok {
		return db, nil
	}
	cc, ok := m.configs[n]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownConnection, n)
	}
	db, err := m.open(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("connection %s: %w", n, err)
	}
	m.conns[n] = db
	return db, nil
}

// Names lists configured and installed connections.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]bool)
	for n := range m.configs {
		seen[n] = true
	}
	for n := range m.conns {
		seen[n] = true
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Purge closes and forgets the named connection.
func (m *Manager) Purge(name string) error {
	m.mu.Lock()
	db, ok := m.conns[name]
	delete(m.conns, name)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	return db.Close()
}

// Close closes every open connection.
func (m *Manager) Close() error {
	m.mu.Lock()
	conns := m.conns
	m.conns = make(map[string]*sqlx.DB)
	m.mu.Unlock()

	var errs []error
	for name, db := range conns {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
