package container

// ContextualBuilder implements the fluent contextual binding API.
//
//	// Laravel: $app->when(PhotoController::class)->needs(Filesystem::class)->give(...)
//	c.When("PhotoController").Needs("Filesystem").Give(func(c *container.Container) (any, error) {
//	    return filesystem.NewS3(), nil
//	})
type ContextualBuilder struct {
	container *Container
	concrete  string
	needs     string
}

// Needs specifies which abstract the concrete type depends on.
func (b *ContextualBuilder) Needs(abstract string) *ContextualBuilder {
	b.needs = abstract
	return b
}

// Give provides the factory used when the concrete type resolves the
// abstract named in Needs.
func (b *ContextualBuilder) Give(factory Factory) {
	c := b.container
	c.mu.Lock()
	defer c.mu.Unlock()

	concrete := c.canonicalLocked(b.concrete)
	if _, ok := c.contextual[concrete]; !ok {
		c.contextual[concrete] = make(map[string]Factory)
	}
	c.contextual[concrete][b.needs] = factory
}

// GiveValue is a shorthand for Give when the value is pre-built.
//
//	// Laravel: ->give('/tmp/photos')
//	c.When("PhotoController").Needs("storagePath").GiveValue("/tmp/photos")
func (b *ContextualBuilder) GiveValue(value any) {
	b.Give(func(_ *Container) (any, error) { return value, nil })
}
