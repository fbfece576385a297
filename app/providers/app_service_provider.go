// Package providers holds the application's own service providers.
package providers

import (
	"context"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/km-arc/h3ravel/app/http/controllers"
	"github.com/km-arc/h3ravel/app/models"
	"github.com/km-arc/h3ravel/framework/cache"
	"github.com/km-arc/h3ravel/framework/container"
	"github.com/km-arc/h3ravel/framework/database"
	"github.com/km-arc/h3ravel/framework/foundation"
	"github.com/km-arc/h3ravel/framework/routing"
	"github.com/km-arc/h3ravel/framework/scheduling"
)

// AppServiceProvider registers the application's controllers, route
// bindings and scheduled tasks.
type AppServiceProvider struct {
	foundation.BaseProvider
}

func (p *AppServiceProvider) Name() string { return "app" }

func (p *AppServiceProvider) Register(_ context.Context, app *foundation.Application) error {
	app.Bind("UserController", func(*container.Container) (any, error) {
		return controllers.NewUserController(app), nil
	})
	return nil
}

func (p *AppServiceProvider) Boot(_ context.Context, app *foundation.Application) error {
	router, err := container.Resolve[*routing.Router](app.Container, "router")
	if err != nil {
		return err
	}

	// {user} resolves "db" on first use so routes load without a database.
	router.Bind("user", func(ctx context.Context, value string) (any, error) {
		db, err := container.Resolve[*sqlx.DB](app.Container, "db")
		if err != nil {
			return nil, err
		}
		return database.BinderFor[models.User](db).Bind(ctx, value)
	})

	if app.Bound("schedule") {
		schedule, err := container.Resolve[*scheduling.Schedule](app.Container, "schedule")
		if err != nil {
			return err
		}
		schedule.Call("cache:prune", func(ctx context.Context) error {
			store, err := container.Resolve[*cache.Repository](app.Container, "cache")
			if err != nil {
				return err
			}
			app.Logger().Info("pruning application cache", zap.String("env", app.Environment()))
			return store.Flush(ctx)
		}).Daily().Describe("Flush the application cache")
	}
	return nil
}
