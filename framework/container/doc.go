// Package container provides a Laravel-compatible IoC (Inversion of Control)
// container for Go.
//
// # Overview
//
// The container manages the instantiation and lifecycle of your application's
// dependencies. It supports transient bindings, singletons, pre-built instances,
// aliases, tags, contextual bindings, extension (decoration) and resolution
// callbacks.
//
// Go has no constructor reflection worth relying on, so auto-wiring is replaced
// by explicit factory functions. A factory receives the container and resolves
// whatever it needs lazily; nothing is resolved at registration time.
//
// # Bindings
//
//	// Transient: new instance every Make()
//	// Laravel: $app->bind(Foo::class, fn($app) => new Foo)
//	c.Bind("Foo", func(c *container.Container) (any, error) { return &Foo{}, nil })
//
//	// Singleton: created once, reused
//	// Laravel: $app->singleton('hash', fn($app) => new BcryptHasher)
//	c.Singleton("hash", func(c *container.Container) (any, error) {
//	    return hashing.NewBcrypt(hashing.DefaultCost), nil
//	})
//
//	// Pre-built value
//	// Laravel: $app->instance(Config::class, $config)
//	c.Instance("config", cfg)
//
//	// Alias
//	// Laravel: $app->alias('events', 'app.events')
//	c.Alias("events", "app.events")
//
// # Resolving
//
//	raw, err := c.Make("cache")
//	store, err := container.Resolve[cache.Store](c, "cache")
//	mailer, err := container.Build[*Mailer](c) // zero value when unbound
//
// Failures are *BindingResolutionError values; errors.Is(err,
// container.ErrBindingResolution) matches all of them.
//
// # Contextual Binding
//
//	c.When("PhotoController").
//	    Needs("Filesystem").
//	    Give(func(c *container.Container) (any, error) { return &S3Filesystem{}, nil })
//
// # Tags
//
//	c.Tag([]string{"CpuReport", "MemReport"}, "reports")
//	reports, err := c.Tagged("reports")
//
// # Callbacks
//
//	// Fired on fresh resolutions only; a cached singleton does not refire.
//	c.AfterResolving("exceptions", func(v any) { v.(*http.ExceptionHandler).DontReport(...) })
package container
