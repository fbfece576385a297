package providers

import (
	"context"
	"errors"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/km-arc/h3ravel/framework/cache"
	"github.com/km-arc/h3ravel/framework/console"
	"github.com/km-arc/h3ravel/framework/container"
	"github.com/km-arc/h3ravel/framework/database"
	"github.com/km-arc/h3ravel/framework/foundation"
	"github.com/km-arc/h3ravel/framework/http"
	"github.com/km-arc/h3ravel/framework/routing"
	"github.com/km-arc/h3ravel/framework/scheduling"
)

func routeListCommand(app *foundation.Application) *console.Command {
	return &console.Command{
		Name:        "route:list",
		Description: "List all registered routes",
		Args:        cobra.NoArgs,
		Flags: func(fs *pflag.FlagSet) {
			fs.String("method", "", "Filter the routes by method")
			fs.String("name", "", "Filter the routes by name")
			fs.String("path", "", "Only show routes matching the given path prefix")
		},
		Handle: func(_ context.Context, in *console.Input, out *console.Output) error {
			router, err := container.Resolve[*routing.Router](app.Container, "router")
			if err != nil {
				return err
			}

			method := strings.ToLower(in.String("method"))
			name := in.String("name")
			path := "/" + strings.TrimPrefix(in.String("path"), "/")

			var rows [][]string
			for _, rt := range router.Routes() {
				if method != "" && rt.Method != method {
					continue
				}
				if name != "" && !strings.Contains(rt.Name, name) {
					continue
				}
				if !strings.HasPrefix(rt.Pattern(), path) {
					continue
				}
				rows = append(rows, []string{
					strings.ToUpper(rt.Method),
					rt.Pattern(),
					rt.Name,
					actionName(rt),
					strings.Join(rt.MiddlewareNames(), ","),
				})
			}
			if len(rows) == 0 {
				out.Warn("Your application doesn't have any routes matching the given criteria.")
				return nil
			}
			out.Table([]string{"METHOD", "URI", "NAME", "ACTION", "MIDDLEWARE"}, rows)
			return nil
		},
	}
}

func actionName(rt *routing.Route) string {
	if rt.Signature[1] == "" {
		return rt.Signature[0]
	}
	return rt.Signature[0] + "@" + rt.Signature[1]
}

func serveCommand(app *foundation.Application) *console.Command {
	return &console.Command{
		Name:        "serve",
		Description: "Serve the application over HTTP",
		Args:        cobra.NoArgs,
		Flags: func(fs *pflag.FlagSet) {
			fs.String("addr", "", "The address to listen on (default \":APP_PORT\")")
		},
		Handle: func(ctx context.Context, in *console.Input, out *console.Output) error {
			cfg, err := appConfig(app.Container)
			if err != nil {
				return err
			}
			addr := in.String("addr")
			if addr == "" {
				addr = ":" + cfg.App.Port
			}

			handler, err := container.Resolve[nethttp.Handler](app.Container, "http.handler")
			if err != nil {
				return err
			}
			srv := http.NewServer(addr, handler, app.Logger())
			srv.OnShutdown = append(srv.OnShutdown, func(context.Context) error { return closeResolved(app) })

			out.Info("Server running on [%s].", addr)
			out.Line("  Press Ctrl+C to stop the server")
			return srv.Run(ctx)
		},
	}
}

// closeResolved releases the database and cache if anything used them.
func closeResolved(app *foundation.Application) error {
	var errs []error
	if app.Resolved("db.manager") {
		if m, err := container.Resolve[*database.Manager](app.Container, "db.manager"); err == nil {
			errs = append(errs, m.Close())
		}
	}
	if app.Resolved("cache") {
		if c, err := container.Resolve[*cache.Repository](app.Container, "cache"); err == nil {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

func cacheClearCommand(app *foundation.Application) *console.Command {
	return &console.Command{
		Name:        "cache:clear",
		Description: "Flush the application cache",
		Args:        cobra.NoArgs,
		Handle: func(ctx context.Context, _ *console.Input, out *console.Output) error {
			c, err := container.Resolve[*cache.Repository](app.Container, "cache")
			if err != nil {
				return err
			}
			if err := c.Flush(ctx); err != nil {
				return err
			}
			out.Success("Application cache cleared successfully.")
			return nil
		},
	}
}

func scheduleCommands(app *foundation.Application) []*console.Command {
	schedule := func() (*scheduling.Schedule, error) {
		return container.Resolve[*scheduling.Schedule](app.Container, "schedule")
	}

	return []*console.Command{
		{
			Name:        "schedule:list",
			Description: "List all scheduled tasks",
			Args:        cobra.NoArgs,
			Handle: func(_ context.Context, _ *console.Input, out *console.Output) error {
				s, err := schedule()
				if err != nil {
					return err
				}
				events := s.Events()
				if len(events) == 0 {
					out.Info("No scheduled tasks have been defined.")
					return nil
				}

				now := time.Now().In(s.Location())
				rows := make([][]string, 0, len(events))
				for _, ev := range events {
					next := "invalid"
					if t, err := ev.Next(now); err == nil {
						next = t.Format(time.DateTime)
					}
					rows = append(rows, []string{ev.Expression(), ev.Name(), next, ev.Description()})
				}
				out.Table([]string{"EXPRESSION", "TASK", "NEXT DUE", "DESCRIPTION"}, rows)
				return nil
			},
		},
		{
			Name:        "schedule:run",
			Description: "Run the scheduled tasks that are due now",
			Args:        cobra.NoArgs,
			Handle: func(ctx context.Context, _ *console.Input, out *console.Output) error {
				s, err := schedule()
				if err != nil {
					return err
				}
				n, err := s.RunDue(ctx, time.Now())
				if n == 0 && err == nil {
					out.Info("No scheduled tasks are ready to run.")
				} else {
					out.Verbose(console.VerbosityVerbose, "Ran %d scheduled task(s).", n)
				}
				return err
			},
		},
		{
			Name:        "schedule:work",
			Description: "Start the schedule worker",
			Args:        cobra.NoArgs,
			Handle: func(ctx context.Context, _ *console.Input, out *console.Output) error {
				s, err := schedule()
				if err != nil {
					return err
				}
				out.Info("Running scheduled tasks every minute.")
				return s.Run(ctx)
			},
		},
	}
}
