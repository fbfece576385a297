package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Server runs an http.Handler until the context is cancelled or the process
// receives SIGINT/SIGTERM, then shuts down gracefully.
type Server struct {
	Addr            string
	Handler         http.Handler
	Logger          *zap.Logger
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration

	// OnShutdown hooks run after the listener closed (close DB pools etc.).
	OnShutdown []func(ctx context.Context) error

	ready chan net.Addr
}

// NewServer creates a Server for handler on addr.
func NewServer(addr string, handler http.Handler, logger *zap.Logger) *Server {
	return &Server{
		Addr:    addr,
		Handler: handler,
		Logger:  logger,
		ready:   make(chan net.Addr, 1),
	}
}

// Ready yields the bound address once the listener is up. It is nil for a
// Server not built by NewServer.
func (s *Server) Ready() <-chan net.Addr { return s.ready }

// Run blocks until shutdown. It returns nil on a clean shutdown.
func (s *Server) Run(ctx context.Context) error {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := s.ShutdownTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	readTimeout := s.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 15 * time.Second
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           s.Handler,
		ReadHeaderTimeout: readTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	if s.ready != nil {
		select {
		case s.ready <- ln.Addr():
		default:
		}
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()

	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	for _, hook := range s.OnShutdown {
		if err := hook(shutdownCtx); err != nil {
			logger.Error("shutdown hook failed", zap.Error(err))
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	logger.Info("shutdown completed")
	return nil
}
