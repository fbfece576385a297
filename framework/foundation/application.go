package foundation

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/km-arc/h3ravel/framework/config"
	"github.com/km-arc/h3ravel/framework/console"
	"github.com/km-arc/h3ravel/framework/container"
)

// Version is the framework version reported by Application.Version.
const Version = "0.1.0"

// Application is the top-level application container.
// It embeds the IoC Container and a ProviderRegistry so user code can
// call app.Bind(), app.Singleton() and app.Make() directly, like $app in
// Laravel's bootstrap/app.php.
type Application struct {
	*container.Container
	Providers *ProviderRegistry

	basePath         string
	paths            map[PathKind]string
	runningInConsole bool
	logger           *zap.Logger

	mu           sync.Mutex
	pending      []ServiceProvider
	bootstrapped bool
	bootErr      error
	booting      []BootedFunc
	booted       []BootedFunc
}

// Option configures an Application at construction.
type Option func(*Application)

// WithConsole marks the application as running under the musket entry point.
// It must be set before discovery so console-only providers survive it.
func WithConsole(console bool) Option {
	return func(a *Application) { a.runningInConsole = console }
}

// WithLogger sets the logger used before the log provider has booted.
func WithLogger(l *zap.Logger) Option {
	return func(a *Application) { a.logger = l }
}

// WithPath overrides where a path kind points.
func WithPath(kind PathKind, path string) Option {
	return func(a *Application) { a.paths[kind] = path }
}

// New creates the application rooted at basePath and loads basePath/.env
// into the process environment. Nothing is registered until Bootstrap.
func New(basePath string, opts ...Option) *Application {
	if basePath == "" {
		basePath, _ = os.Getwd()
	}
	if abs, err := filepath.Abs(basePath); err == nil {
		basePath = abs
	}

	a := &Application{
		Container: container.New(),
		basePath:  basePath,
		paths:     make(map[PathKind]string),
		logger:    zap.NewNop(),
	}
	a.Providers = NewProviderRegistry(a)
	for _, opt := range opts {
		opt(a)
	}

	config.LoadEnv(filepath.Join(basePath, ".env"))

	a.Instance("app", a)
	a.Alias("app", "foundation.app")
	a.Instance("path.base", basePath)
	return a
}

// ── Providers ─────────────────────────────────────────────────────────────────

// AddProviders queues providers for the next Bootstrap. Calling it after the
// application has booted registers and boots them immediately.
func (a *Application) AddProviders(ctx context.Context, providers ...ServiceProvider) error {
	a.mu.Lock()
	if !a.bootstrapped {
		a.pending = append(a.pending, providers...)
		a.mu.Unlock()
		return nil
	}
	a.mu.Unlock()

	for _, p := range SortProviders(providers) {
		if err := a.Providers.Register(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Discover instantiates every catalog entry not named in deny and queues it.
// Console-only providers are dropped unless the application runs in console.
func (a *Application) Discover(catalog Catalog, deny ...string) {
	for _, entry := range catalog {
		if slices.Contains(deny, entry.Name) {
			continue
		}
		p := entry.New()
		if isConsoleOnly(p) && !a.runningInConsole {
			continue
		}
		a.mu.Lock()
		a.pending = append(a.pending, p)
		a.mu.Unlock()
	}
}

// Pending returns the providers queued for Bootstrap, in boot order.
func (a *Application) Pending() []ServiceProvider {
	a.mu.Lock()
	defer a.mu.Unlock()
	return SortProviders(a.pending)
}

// Bootstrap sorts the queued providers, registers all of them, then boots all
// of them. Any error aborts the sequence and is returned as *ProviderError;
// the application is left unusable and later calls return the same error.
// A second call after success is a no-op.
func (a *Application) Bootstrap(ctx context.Context) error {
	a.mu.Lock()
	if a.bootstrapped {
		err := a.bootErr
		a.mu.Unlock()
		return err
	}
	a.bootstrapped = true
	providers := SortProviders(a.pending)
	a.pending = nil
	a.mu.Unlock()

	err := a.bootstrap(ctx, providers)

	a.mu.Lock()
	a.bootErr = err
	a.mu.Unlock()
	return err
}

func (a *Application) bootstrap(ctx context.Context, providers []ServiceProvider) error {
	for _, p := range providers {
		if err := a.Providers.Register(ctx, p); err != nil {
			return err
		}
	}

	if err := a.run(ctx, a.booting); err != nil {
		return err
	}
	if err := a.Providers.Boot(ctx); err != nil {
		return err
	}
	if err := a.run(ctx, a.booted); err != nil {
		return err
	}

	a.Logger().Debug("application booted",
		zap.Int("providers", len(a.Providers.Providers())),
		zap.String("env", a.Environment()),
	)
	return nil
}

func (a *Application) run(ctx context.Context, callbacks []BootedFunc) error {
	for _, fn := range callbacks {
		if err := fn(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// Booting queues fn to run after registration, before any provider boots.
func (a *Application) Booting(fn BootedFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.booting = append(a.booting, fn)
}

// Booted queues fn to run once every provider has booted.
//
//	// Laravel: $app->booted(fn($app) => ...)
func (a *Application) Booted(fn BootedFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.booted = append(a.booted, fn)
}

// Commands collects the musket commands of every registered provider, in
// provider order.
func (a *Application) Commands() []*console.Command {
	var cmds []*console.Command
	for _, p := range a.Providers.Providers() {
		if c, ok := p.(Commandable); ok {
			cmds = append(cmds, c.Commands()...)
		}
	}
	return cmds
}

// ── Flags ─────────────────────────────────────────────────────────────────────

// IsBooted reports whether every provider has booted.
func (a *Application) IsBooted() bool { return a.Providers.Booted() }

// HasBeenBootstrapped reports whether Bootstrap has started.
func (a *Application) HasBeenBootstrapped() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.bootstrapped
}

// RunningInConsole reports whether the musket entry point created the app.
func (a *Application) RunningInConsole() bool { return a.runningInConsole }

// Environment returns APP_ENV, then GO_ENV, defaulting to "local".
func (a *Application) Environment() string {
	return config.Get("APP_ENV", config.Get("GO_ENV", "local"))
}

func (a *Application) IsLocal() bool      { return a.Environment() == "local" }
func (a *Application) IsProduction() bool { return a.Environment() == "production" }
func (a *Application) IsTesting() bool    { return a.Environment() == "testing" }
func (a *Application) IsDebug() bool      { return config.GetBool("APP_DEBUG", false) }
func (a *Application) Version() string    { return Version }

// Bound reports whether abstract is bound, counting abstracts a deferred
// provider has yet to register.
//
//	// Laravel: $app->bound('reports')
func (a *Application) Bound(abstract string) bool {
	return a.Container.Bound(abstract) || a.Providers.IsDeferredService(abstract)
}

// Logger returns the "log" binding when available, otherwise the bootstrap logger.
func (a *Application) Logger() *zap.Logger {
	if a.Bound("log") {
		if l, err := container.Resolve[*zap.Logger](a.Container, "log"); err == nil {
			return l
		}
	}
	return a.logger
}
