package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/droqlabs/toolnode/internal/http/health"
)

const (
	defaultReadTimeout = 15 * time.Second
	defaultIdleTimeout = 60 * time.Second
)

// App controls the HTTP server lifecycle.
type App struct {
	server          *http.Server
	health          *health.Handler
	logger          *zap.Logger
	shutdownTimeout time.Duration
}

// New initializes the HTTP server with the gateway mounted at the root
// and probe endpoints alongside it.
func New(baseCtx context.Context, addr string, handler http.Handler, healthHandler *health.Handler, logger *zap.Logger, shutdownTimeout time.Duration) (*App, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler is nil")
	}
	if baseCtx == nil {
		return nil, fmt.Errorf("base context is nil")
	}
	if healthHandler == nil {
		healthHandler = health.New()
	}
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthHandler.Healthz)
	mux.HandleFunc("/readyz", healthHandler.Readyz)
	mux.Handle("/", handler)

	// No write timeout: execute responses may legitimately hold the
	// connection until the tool deadline expires.
	srv := &http.Server{
		Addr:        addr,
		Handler:     mux,
		ReadTimeout: defaultReadTimeout,
		IdleTimeout: defaultIdleTimeout,
		BaseContext: func(net.Listener) context.Context { return baseCtx },
	}

	return &App{
		server:          srv,
		health:          healthHandler,
		logger:          logger,
		shutdownTimeout: shutdownTimeout,
	}, nil
}

// Run starts the HTTP server and blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.health.SetReady()
		if a.logger != nil {
			a.logger.Info("http server started", zap.String("addr", a.server.Addr))
		}
		errCh <- a.server.ListenAndServe()
	}()

	for {
		select {
		case <-ctx.Done():
			if a.logger != nil {
				a.logger.Info("shutdown requested")
			}
			return a.shutdown()
		case err := <-errCh:
			if err == nil || errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			if a.logger != nil {
				a.logger.Error("http server error", zap.Error(err))
			}
			return err
		}
	}
}

func (a *App) shutdown() error {
	a.health.SetNotReady()
	// The base context is already canceled by the time shutdown is
	// requested; the grace period needs its own context.
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
