package container

import (
	"fmt"
	"reflect"
	"slices"
	"sync"
)

// ── Binding types ─────────────────────────────────────────────────────────────

// Factory builds a concrete value from the container. The container passed in
// is scoped to the current resolution, so nested Make calls see contextual
// bindings and circular dependencies are reported instead of deadlocking.
type Factory func(c *Container) (any, error)

// Extender wraps an already-resolved instance with decorator logic.
type Extender func(instance any, c *Container) (any, error)

// binding holds a registered factory and whether it is a singleton.
type binding struct {
	factory   Factory
	singleton bool

	// build serializes singleton construction so the factory runs once.
	build sync.Mutex
}

// state is shared by every scoped view of one container.
type state struct {
	mu sync.RWMutex

	// abstract → binding
	bindings map[string]*binding

	// abstract → resolved singleton instance
	instances map[string]any

	// alias → abstract (may itself be an alias)
	aliases map[string]string

	extenders map[string][]Extender

	// tag → []abstract
	tags map[string][]string

	// contextual: when[concrete][abstract] = factory
	contextual map[string]map[string]Factory

	reboundCallbacks map[string][]func(any)

	// abstract → callbacks fired on every fresh resolution of that abstract
	resolvingCallbacks map[string][]func(any)

	// callbacks fired on every fresh resolution of any abstract
	globalResolving []func(string, any)

	// abstracts resolved at least once
	resolved map[string]bool

	// consulted by Make before it gives up on an unbound abstract
	missing func(abstract string) error
}

// ── Container ─────────────────────────────────────────────────────────────────

// Container is the IoC container. It mirrors Laravel's Illuminate\Container\Container.
//
// It supports:
//   - Bind / Singleton / Instance / Alias
//   - Make / Resolve / Build (generic)
//   - Tags (group multiple abstractions under one tag)
//   - Extend (decorate / wrap resolved instances)
//   - Contextual binding (when A needs B, give it C)
//   - Rebound and after-resolving callbacks
type Container struct {
	*state

	// abstracts currently being built by this resolution chain
	stack []string
}

// New creates an empty container.
func New() *Container {
	c := &Container{state: &state{
		bindings:           make(map[string]*binding),
		instances:          make(map[string]any),
		aliases:            make(map[string]string),
		extenders:          make(map[string][]Extender),
		tags:               make(map[string][]string),
		contextual:         make(map[string]map[string]Factory),
		reboundCallbacks:   make(map[string][]func(any)),
		resolvingCallbacks: make(map[string][]func(any)),
		resolved:           make(map[string]bool),
	}}
	// Laravel: $this->instance('container', $this)
	c.Instance("container", c)
	return c
}

// ── Registration ──────────────────────────────────────────────────────────────

// Bind registers a transient (new instance each Make) factory.
//
//	// Laravel: $app->bind(UserRepository::class, fn($app) => new EloquentUserRepository($app))
//	c.Bind("UserRepository", func(c *container.Container) (any, error) {
//	    db, err := container.Resolve[*sqlx.DB](c, "db")
//	    if err != nil {
//	        return nil, err
//	    }
//	    return &SQLUserRepository{DB: db}, nil
//	})
func (c *Container) Bind(abstract string, factory Factory) {
	c.register(abstract, factory, false)
}

// Singleton registers a factory whose result is cached after first resolution.
//
//	// Laravel: $app->singleton('cache', fn($app) => new CacheManager($app))
//	c.Singleton("cache", func(c *container.Container) (any, error) {
//	    return cache.NewMemory(), nil
//	})
func (c *Container) Singleton(abstract string, factory Factory) {
	c.register(abstract, factory, true)
}

// Instance registers a pre-built value as a singleton.
//
//	// Laravel: $app->instance(Config::class, $config)
//	c.Instance("config", cfg)
func (c *Container) Instance(abstract string, instance any) {
	c.mu.Lock()
	key := c.canonicalLocked(abstract)
	delete(c.bindings, key)
	c.instances[key] = instance
	c.resolved[key] = true
	cbs := slices.Clone(c.reboundCallbacks[key])
	c.mu.Unlock()

	for _, cb := range cbs {
		cb(instance)
	}
}

func (c *Container) register(abstract string, factory Factory, singleton bool) {
	c.mu.Lock()
	key := c.canonicalLocked(abstract)
	wasResolved := c.resolved[key]

	// Drop the cached instance so it is rebuilt with the new factory.
	delete(c.instances, key)
	c.bindings[key] = &binding{factory: factory, singleton: singleton}
	hasRebound := len(c.reboundCallbacks[key]) > 0
	c.mu.Unlock()

	if wasResolved && hasRebound {
		if instance, err := c.Make(key); err == nil {
			c.fireRebound(key, instance)
		}
	}
}

// Alias registers an alternative name for an abstract. Aliases may point at
// other aliases; chains are followed on resolution.
//
//	// Laravel: $app->alias('events', 'app.events')
//	c.Alias("events", "app.events")
func (c *Container) Alias(abstract, alias string) {
	if abstract == alias {
		panic(fmt.Sprintf("container: [%s] is aliased to itself", abstract))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aliases[alias] = abstract
}

// ── Contextual Binding ────────────────────────────────────────────────────────

// When starts a contextual binding chain.
//
//	// Laravel: $app->when(PhotoController::class)->needs(Filesystem::class)->give(fn() => new S3)
//	c.When("PhotoController").Needs("Filesystem").Give(func(c *container.Container) (any, error) {
//	    return filesystem.NewS3(), nil
//	})
func (c *Container) When(concrete string) *ContextualBuilder {
	return &ContextualBuilder{container: c, concrete: concrete}
}

func (c *Container) getContextual(concrete, abstract, key string) Factory {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.contextual[concrete]
	if !ok {
		return nil
	}
	if f, ok := m[abstract]; ok {
		return f
	}
	return m[key]
}

// ── Extend ────────────────────────────────────────────────────────────────────

// Extend decorates the resolved instance of an abstract. An already-resolved
// singleton is decorated in place.
//
//	// Laravel: $app->extend(Logger::class, fn($logger, $app) => new TimestampLogger($logger))
//	c.Extend("log", func(instance any, c *container.Container) (any, error) {
//	    return instance.(*zap.Logger).Named("app"), nil
//	})
func (c *Container) Extend(abstract string, fn Extender) error {
	c.mu.Lock()
	key := c.canonicalLocked(abstract)
	c.extenders[key] = append(c.extenders[key], fn)
	inst, ok := c.instances[key]
	c.mu.Unlock()

	if !ok {
		return nil
	}
	extended, err := fn(inst, c)
	if err != nil {
		return &BindingResolutionError{Abstract: abstract, Err: err}
	}
	c.mu.Lock()
	c.instances[key] = extended
	c.mu.Unlock()
	c.fireRebound(key, extended)
	return nil
}

// ── Tags ──────────────────────────────────────────────────────────────────────

// Tag associates multiple abstracts under a named group.
//
//	// Laravel: $app->tag([CpuReport::class, MemoryReport::class], 'reports')
//	c.Tag([]string{"CpuReport", "MemoryReport"}, "reports")
func (c *Container) Tag(abstracts []string, tag string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tags[tag] = append(c.tags[tag], abstracts...)
}

// Tagged resolves all abstracts registered under a tag, in tagging order.
func (c *Container) Tagged(tag string) ([]any, error) {
	c.mu.RLock()
	abstracts := slices.Clone(c.tags[tag])
	c.mu.RUnlock()

	result := make([]any, 0, len(abstracts))
	for _, abs := range abstracts {
		v, err := c.Make(abs)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, nil
}

// ── Resolution ────────────────────────────────────────────────────────────────

// Make resolves an abstract from the container.
//
//	// Laravel: $app->make(UserRepository::class)
//	repo, err := c.Make("UserRepository")
func (c *Container) Make(abstract string) (any, error) {
	c.mu.RLock()
	key, err := c.canonical(abstract)
	c.mu.RUnlock()
	if err != nil {
		return nil, &BindingResolutionError{Abstract: abstract, Err: err}
	}

	if slices.Contains(c.stack, key) {
		return nil, &BindingResolutionError{
			Abstract: abstract,
			Err:      fmt.Errorf("%w: %v -> %s", ErrCircularDependency, c.stack, key),
		}
	}

	// Contextual binding for whatever is currently being built.
	if n := len(c.stack); n > 0 {
		if f := c.getContextual(c.stack[n-1], abstract, key); f != nil {
			return c.build(key, f, false)
		}
	}

	c.mu.RLock()
	inst, cached := c.instances[key]
	b, bound := c.bindings[key]
	c.mu.RUnlock()

	if cached {
		return inst, nil
	}
	if !bound {
		return c.makeMissing(abstract, key)
	}
	if !b.singleton {
		return c.build(key, b.factory, false)
	}

	b.build.Lock()
	defer b.build.Unlock()

	// Another goroutine may have finished while we waited.
	c.mu.RLock()
	inst, cached = c.instances[key]
	c.mu.RUnlock()
	if cached {
		return inst, nil
	}
	return c.build(key, b.factory, true)
}

// MustMake is like Make but panics when the abstract cannot be resolved.
func (c *Container) MustMake(abstract string) any {
	v, err := c.Make(abstract)
	if err != nil {
		panic(err)
	}
	return v
}

// build executes a factory in a scope that records key on the build stack.
func (c *Container) build(key string, f Factory, singleton bool) (any, error) {
	scope := &Container{state: c.state, stack: append(slices.Clone(c.stack), key)}

	instance, err := f(scope)
	if err != nil {
		return nil, &BindingResolutionError{Abstract: key, Err: err}
	}

	c.mu.RLock()
	exts := slices.Clone(c.extenders[key])
	c.mu.RUnlock()
	for _, ext := range exts {
		if instance, err = ext(instance, scope); err != nil {
			return nil, &BindingResolutionError{Abstract: key, Err: err}
		}
	}

	c.mu.Lock()
	if singleton {
		c.instances[key] = instance
	}
	c.resolved[key] = true
	c.mu.Unlock()

	c.fireResolving(key, instance)
	return instance, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// OnMissing installs fn as the resolver Make consults when an abstract has
// neither a binding nor an instance. fn may bind it; Make retries only if the
// abstract is bound afterwards.
//
//	// Laravel: Application::loadDeferredProviderIfNeeded
func (c *Container) OnMissing(fn func(abstract string) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.missing = fn
}

func (c *Container) makeMissing(abstract, key string) (any, error) {
	c.mu.RLock()
	fn := c.missing
	c.mu.RUnlock()
	if fn == nil {
		return nil, &BindingResolutionError{Abstract: abstract, Err: ErrNotBound}
	}
	if err := fn(key); err != nil {
		return nil, &BindingResolutionError{Abstract: abstract, Err: err}
	}

	c.mu.RLock()
	_, cached := c.instances[key]
	_, bound := c.bindings[key]
	c.mu.RUnlock()
	if !cached && !bound {
		return nil, &BindingResolutionError{Abstract: abstract, Err: ErrNotBound}
	}
	return c.Make(abstract)
}

// Bound returns true if an abstract has been registered.
//
//	// Laravel: $app->bound(UserRepository::class)
func (c *Container) Bound(abstract string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key, err := c.canonical(abstract)
	if err != nil {
		return false
	}
	_, hasBinding := c.bindings[key]
	_, hasInstance := c.instances[key]
	return hasBinding || hasInstance
}

// Resolved returns true if the abstract has been resolved at least once.
//
//	// Laravel: $app->resolved(Cache::class)
func (c *Container) Resolved(abstract string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key, err := c.canonical(abstract)
	if err != nil {
		return false
	}
	return c.resolved[key]
}

// IsShared reports whether the abstract resolves to a shared instance.
func (c *Container) IsShared(abstract string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key, err := c.canonical(abstract)
	if err != nil {
		return false
	}
	if _, ok := c.instances[key]; ok {
		return true
	}
	b, ok := c.bindings[key]
	return ok && b.singleton
}

// Forget removes all registrations for an abstract (binding + instance).
//
//	// Laravel: $app->forgetInstance(Cache::class)
func (c *Container) Forget(abstract string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := c.canonicalLocked(abstract)
	delete(c.bindings, key)
	delete(c.instances, key)
	delete(c.resolved, key)
}

// Flush resets the entire container.
func (c *Container) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindings = make(map[string]*binding)
	c.instances = make(map[string]any)
	c.aliases = make(map[string]string)
	c.extenders = make(map[string][]Extender)
	c.tags = make(map[string][]string)
	c.contextual = make(map[string]map[string]Factory)
	c.resolvingCallbacks = make(map[string][]func(any))
	c.globalResolving = nil
	c.resolved = make(map[string]bool)
}

// Bindings returns all registered abstract keys (for debugging).
func (c *Container) Bindings() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.bindings)+len(c.instances))
	for k := range c.bindings {
		out = append(out, k)
	}
	for k := range c.instances {
		if _, already := c.bindings[k]; !already {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}

// canonical follows the alias chain to its canonical key (must hold mu).
func (c *Container) canonical(abstract string) (string, error) {
	key := abstract
	var seen map[string]bool
	for {
		target, ok := c.aliases[key]
		if !ok {
			return key, nil
		}
		if seen == nil {
			seen = map[string]bool{abstract: true}
		}
		if seen[target] {
			return "", fmt.Errorf("%w: [%s] -> [%s]", ErrAliasCycle, key, target)
		}
		seen[target] = true
		key = target
	}
}

// canonicalLocked is canonical for registration paths, where a cyclic alias
// just leaves the key as written.
func (c *Container) canonicalLocked(abstract string) string {
	key, err := c.canonical(abstract)
	if err != nil {
		return abstract
	}
	return key
}

// ── Callbacks ─────────────────────────────────────────────────────────────────

// Rebinding registers a callback to be called whenever an abstract is re-bound.
//
//	// Laravel: $app->rebinding('request', fn($app, $request) => ...)
func (c *Container) Rebinding(abstract string, cb func(any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := c.canonicalLocked(abstract)
	c.reboundCallbacks[key] = append(c.reboundCallbacks[key], cb)
}

// AfterResolving registers a callback fired each time abstract is freshly
// built. Cache hits on a singleton do not fire it.
//
//	// Laravel: $app->afterResolving(ExceptionHandler::class, fn($handler) => ...)
func (c *Container) AfterResolving(abstract string, cb func(instance any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := c.canonicalLocked(abstract)
	c.resolvingCallbacks[key] = append(c.resolvingCallbacks[key], cb)
}

// AfterResolvingAny registers a callback fired after any abstract is freshly built.
func (c *Container) AfterResolvingAny(cb func(abstract string, instance any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.globalResolving = append(c.globalResolving, cb)
}

func (c *Container) fireRebound(key string, instance any) {
	c.mu.RLock()
	cbs := slices.Clone(c.reboundCallbacks[key])
	c.mu.RUnlock()
	for _, cb := range cbs {
		cb(instance)
	}
}

func (c *Container) fireResolving(key string, instance any) {
	c.mu.RLock()
	cbs := slices.Clone(c.resolvingCallbacks[key])
	global := slices.Clone(c.globalResolving)
	c.mu.RUnlock()
	for _, cb := range cbs {
		cb(instance)
	}
	for _, cb := range global {
		cb(key, instance)
	}
}

// ── Reflect helpers ───────────────────────────────────────────────────────────

// TypeKey returns the package-qualified type name of v, useful as a stable
// abstract key when working with interfaces.
//
//	key := container.TypeKey((*UserRepository)(nil))  // "example.com/app.UserRepository"
func TypeKey(v any) string {
	return typeKey(reflect.TypeOf(v))
}

// KeyOf is the generic form of TypeKey.
//
//	c.Singleton(container.KeyOf[hashing.Hasher](), factory)
func KeyOf[T any]() string {
	return typeKey(reflect.TypeFor[T]())
}

func typeKey(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

// ── Generics helpers ──────────────────────────────────────────────────────────

// Resolve calls Make and type-asserts the result.
//
//	// Instead of: v, _ := c.Make("db"); db := v.(*sqlx.DB)
//	// Write:      db, err := container.Resolve[*sqlx.DB](c, "db")
func Resolve[T any](c *Container, abstract string) (T, error) {
	var zero T
	instance, err := c.Make(abstract)
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, &BindingResolutionError{
			Abstract: abstract,
			Err:      fmt.Errorf("%w: want %T, got %T", ErrTypeMismatch, zero, instance),
		}
	}
	return typed, nil
}

// MustResolve is like Resolve but panics on failure.
func MustResolve[T any](c *Container, abstract string) T {
	v, err := Resolve[T](c, abstract)
	if err != nil {
		panic(err)
	}
	return v
}

// Build resolves T by its type key. When nothing is bound under that key and
// T is a pointer to a struct, a fresh zero value is returned, the Go reading
// of "a class with no required constructor arguments". Anything else fails.
//
//	// Laravel: $app->make(Mailer::class)  // auto-built when unbound
//	m, err := container.Build[*Mailer](c)
func Build[T any](c *Container) (T, error) {
	var zero T
	key := KeyOf[T]()
	if c.Bound(key) {
		return Resolve[T](c, key)
	}

	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		return zero, &BindingResolutionError{Abstract: key, Err: ErrNotInstantiable}
	}
	v := reflect.New(t.Elem()).Interface().(T)

	c.mu.Lock()
	c.resolved[key] = true
	c.mu.Unlock()
	c.fireResolving(key, v)
	return v, nil
}
