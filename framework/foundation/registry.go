package foundation

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ProviderState is a provider's position in its lifecycle.
// Constructed → Registered → Booted; Booted is terminal.
type ProviderState int

const (
	StateConstructed ProviderState = iota
	StateRegistered
	StateBooted
)

func (s ProviderState) String() string {
	switch s {
	case StateRegistered:
		return "registered"
	case StateBooted:
		return "booted"
	}
	return "constructed"
}

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry manages registration and booting of ServiceProviders,
// including deferred (lazy) providers.
//
// It mirrors the behaviour of Laravel's Application::registerConfiguredProviders
// and Application::bootProviders.
type ProviderRegistry struct {
	app *Application

	mu       sync.Mutex
	eager    []ServiceProvider
	deferred map[string]ServiceProvider // abstract → provider
	states   map[ServiceProvider]ProviderState
	loading  map[ServiceProvider]*deferredLoad
	booted   bool
}

// deferredLoad remembers the outcome of loading a deferred provider.
type deferredLoad struct {
	once sync.Once
	err  error
}

// NewProviderRegistry creates a registry bound to app.
func NewProviderRegistry(app *Application) *ProviderRegistry {
	r := &ProviderRegistry{
		app:      app,
		deferred: make(map[string]ServiceProvider),
		states:   make(map[ServiceProvider]ProviderState),
		loading:  make(map[ServiceProvider]*deferredLoad),
	}
	app.Container.OnMissing(r.resolveDeferred)
	return r
}

// Register calls the provider's Register (unless deferred). A provider
// registered after Boot is booted immediately. Registering the same instance
// twice is a no-op.
//
//	// Laravel: $app->register(new AppServiceProvider($app))
func (r *ProviderRegistry) Register(ctx context.Context, provider ServiceProvider) error {
	r.mu.Lock()
	if _, seen := r.states[provider]; seen {
		r.mu.Unlock()
		return nil
	}
	r.states[provider] = StateConstructed

	if isDeferred(provider) {
		for _, abstract := range provider.(Deferrable).Provides() {
			r.deferred[abstract] = provider
		}
		r.loading[provider] = new(deferredLoad)
		r.mu.Unlock()
		return nil
	}
	booted := r.booted
	r.mu.Unlock()

	name := NameOf(provider)
	r.app.Logger().Debug("registering provider", zap.String("provider", name))
	if err := provider.Register(ctx, r.app); err != nil {
		return &ProviderError{Provider: name, Phase: PhaseRegister, Err: err}
	}

	r.mu.Lock()
	r.states[provider] = StateRegistered
	r.eager = append(r.eager, provider)
	r.mu.Unlock()

	if booted {
		return r.bootProvider(ctx, provider)
	}
	return nil
}

// resolveDeferred is the container's missing-binding resolver. When a
// deferred provider offers abstract, it is registered (and, once the app is
// booted, booted) so Make can retry against the binding it installed.
// Concurrent callers wait on the same load.
func (r *ProviderRegistry) resolveDeferred(abstract string) error {
	r.mu.Lock()
	provider, ok := r.deferred[abstract]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	if err := r.loadDeferred(context.Background(), provider); err != nil {
		return err
	}
	if !r.app.Container.Bound(abstract) {
		return fmt.Errorf("deferred provider %s did not bind [%s]", NameOf(provider), abstract)
	}
	return nil
}

// IsDeferredService reports whether abstract is still waiting on a deferred
// provider.
func (r *ProviderRegistry) IsDeferredService(abstract string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.deferred[abstract]
	return ok
}

func (r *ProviderRegistry) loadDeferred(ctx context.Context, provider ServiceProvider) error {
	r.mu.Lock()
	load := r.loading[provider]
	r.mu.Unlock()

	load.once.Do(func() {
		name := NameOf(provider)
		r.app.Logger().Debug("loading deferred provider", zap.String("provider", name))
		if err := provider.Register(ctx, r.app); err != nil {
			load.err = &ProviderError{Provider: name, Phase: PhaseRegister, Err: err}
			return
		}

		r.mu.Lock()
		for _, abstract := range provider.(Deferrable).Provides() {
			delete(r.deferred, abstract)
		}
		r.states[provider] = StateRegistered
		r.eager = append(r.eager, provider)
		booted := r.booted
		r.mu.Unlock()

		if booted {
			load.err = r.bootProvider(ctx, provider)
		}
	})
	return load.err
}

// Boot calls Boot on every eager provider, in registration order, draining
// each provider's booted callbacks right after its own Boot. The first error
// aborts the sequence.
//
//	// Laravel: $app->boot()
func (r *ProviderRegistry) Boot(ctx context.Context) error {
	r.mu.Lock()
	if r.booted {
		r.mu.Unlock()
		return nil
	}
	r.booted = true
	providers := append([]ServiceProvider(nil), r.eager...)
	r.mu.Unlock()

	for _, provider := range providers {
		if err := r.bootProvider(ctx, provider); err != nil {
			return err
		}
	}
	return nil
}

func (r *ProviderRegistry) bootProvider(ctx context.Context, provider ServiceProvider) error {
	r.mu.Lock()
	if r.states[provider] == StateBooted {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	name := NameOf(provider)
	r.app.Logger().Debug("booting provider", zap.String("provider", name))
	if err := provider.Boot(ctx, r.app); err != nil {
		return &ProviderError{Provider: name, Phase: PhaseBoot, Err: err}
	}
	if cb, ok := provider.(BootedCallbacks); ok {
		if err := cb.CallBootedCallbacks(ctx, r.app); err != nil {
			return &ProviderError{Provider: name, Phase: PhaseBooted, Err: err}
		}
	}

	r.mu.Lock()
	r.states[provider] = StateBooted
	r.mu.Unlock()
	return nil
}

// Booted returns true if Boot() has been called.
func (r *ProviderRegistry) Booted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.booted
}

// Providers returns the eager providers in registration order. Deferred
// providers appear once they have been loaded.
func (r *ProviderRegistry) Providers() []ServiceProvider {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ServiceProvider(nil), r.eager...)
}

// Deferred returns the abstracts still waiting on a deferred provider.
func (r *ProviderRegistry) Deferred() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string, len(r.deferred))
	for abstract, p := range r.deferred {
		out[abstract] = NameOf(p)
	}
	return out
}

// State reports where provider is in its lifecycle.
func (r *ProviderRegistry) State(provider ServiceProvider) ProviderState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states[provider]
}
