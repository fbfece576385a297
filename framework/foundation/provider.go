package foundation

import (
	"context"
	"reflect"

	"github.com/km-arc/h3ravel/framework/console"
)

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider mirrors Laravel's Illuminate\Support\ServiceProvider.
//
// Register binds services into the container and must not assume other
// providers' bindings exist yet: resolve lazily inside factories. Boot runs
// after every provider has registered, so it may resolve anything.
//
//	type AppServiceProvider struct{ foundation.BaseProvider }
//
//	func (p *AppServiceProvider) Register(_ context.Context, app *foundation.Application) error {
//	    app.Singleton("reports", func(c *container.Container) (any, error) {
//	        return reports.New(), nil
//	    })
//	    return nil
//	}
type ServiceProvider interface {
	Register(ctx context.Context, app *Application) error
	Boot(ctx context.Context, app *Application) error
}

// ── Capabilities ──────────────────────────────────────────────────────────────
//
// Providers opt into behaviour by implementing these narrow interfaces.
// BaseProvider supplies defaults for all of them.

// Prioritized providers are registered earlier the higher their priority.
type Prioritized interface {
	Priority() int
}

// Ordered providers declare "before:Name" or "after:Name" relative to
// another provider.
type Ordered interface {
	Order() string
}

// ConsoleOnly providers are dropped at discovery unless the application runs
// under the console entry point.
type ConsoleOnly interface {
	RunsInConsole() bool
}

// Deferrable providers are registered lazily, on the first Make of one of
// the abstracts they provide.
//
//	// Laravel: class HeavyProvider extends ServiceProvider implements DeferrableProvider
type Deferrable interface {
	IsDeferred() bool
	Provides() []string
}

// Named providers choose the name used by ordering constraints and deny-lists.
type Named interface {
	Name() string
}

// Commandable providers contribute musket commands.
type Commandable interface {
	Commands() []*console.Command
}

// BootedCallbacks is implemented by providers that queue work via Booted.
type BootedCallbacks interface {
	CallBootedCallbacks(ctx context.Context, app *Application) error
}

// BootedFunc is queued with Booted and run after the provider's own Boot.
type BootedFunc func(ctx context.Context, app *Application) error

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider is an embeddable struct with no-op implementations of Boot
// and every capability. Embed it and override what you need.
//
//	type MyProvider struct{ foundation.BaseProvider }
//	func (p *MyProvider) Register(ctx context.Context, app *foundation.Application) error { ... }
//	func (p *MyProvider) Priority() int { return 10 }
type BaseProvider struct {
	bootedCallbacks []BootedFunc
	commands        []*console.Command
}

func (p *BaseProvider) Boot(context.Context, *Application) error { return nil }
func (p *BaseProvider) Priority() int                            { return 0 }
func (p *BaseProvider) Order() string                            { return "" }
func (p *BaseProvider) RunsInConsole() bool                      { return false }
func (p *BaseProvider) IsDeferred() bool                         { return false }
func (p *BaseProvider) Provides() []string                       { return nil }

// Booted queues fn to run right after this provider's Boot.
//
//	// Laravel: $this->booted(fn() => ...)
func (p *BaseProvider) Booted(fn BootedFunc) {
	p.bootedCallbacks = append(p.bootedCallbacks, fn)
}

// CallBootedCallbacks drains the booted queue in FIFO order. Callbacks queued
// while draining run in the same pass.
func (p *BaseProvider) CallBootedCallbacks(ctx context.Context, app *Application) error {
	for len(p.bootedCallbacks) > 0 {
		fn := p.bootedCallbacks[0]
		p.bootedCallbacks = p.bootedCallbacks[1:]
		if err := fn(ctx, app); err != nil {
			return err
		}
	}
	return nil
}

// RegisterCommands adds musket commands owned by this provider.
//
//	// Laravel: $this->commands([InstallCommand::class])
func (p *BaseProvider) RegisterCommands(cmds ...*console.Command) {
	p.commands = append(p.commands, cmds...)
}

// Commands returns the commands registered so far.
func (p *BaseProvider) Commands() []*console.Command { return p.commands }

// ── Introspection helpers ─────────────────────────────────────────────────────

// NameOf returns the provider's Name, or its type name when it has none.
func NameOf(p ServiceProvider) string {
	if n, ok := p.(Named); ok {
		return n.Name()
	}
	t := reflect.TypeOf(p)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

// PriorityOf returns the provider's priority, 0 when it declares none.
func PriorityOf(p ServiceProvider) int {
	if pr, ok := p.(Prioritized); ok {
		return pr.Priority()
	}
	return 0
}

// OrderOf returns the provider's ordering constraint, "" when it has none.
func OrderOf(p ServiceProvider) string {
	if o, ok := p.(Ordered); ok {
		return o.Order()
	}
	return ""
}

func isConsoleOnly(p ServiceProvider) bool {
	co, ok := p.(ConsoleOnly)
	return ok && co.RunsInConsole()
}

func isDeferred(p ServiceProvider) bool {
	d, ok := p.(Deferrable)
	return ok && d.IsDeferred() && len(d.Provides()) > 0
}
