// Command musket is the application's console: php artisan for h3ravel.
//
//	go run ./cmd/musket route:list
//	go run ./cmd/musket key:generate --show
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/km-arc/h3ravel/app"
	"github.com/km-arc/h3ravel/framework/bootstrap"
	"github.com/km-arc/h3ravel/framework/console"
	"github.com/km-arc/h3ravel/framework/foundation"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.Configure(".", foundation.WithConsole(true)).Create(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return console.ExitFailure
	}
	return bootstrap.Console(application).Run(ctx, os.Args[1:])
}
