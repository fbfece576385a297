package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/km-arc/h3ravel/app"
	"github.com/km-arc/h3ravel/framework/bootstrap"
	"github.com/km-arc/h3ravel/framework/config"
	"github.com/km-arc/h3ravel/framework/http"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.Configure(".").Create(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bootstrap:", err)
		os.Exit(1)
	}
	logger := application.Logger()
	defer func() { _ = logger.Sync() }()

	handler, err := bootstrap.Handler(application)
	if err != nil {
		logger.Fatal("resolve http handler", zap.Error(err))
	}

	addr := ":" + config.Get("APP_PORT", "8000")
	if err := http.NewServer(addr, handler, logger).Run(ctx); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
