// Package server exposes the public menu over HTTP. Each browser session,
// identified by the session cookie, owns one menu view that is re-mounted on
// navigation, and its carts live under the session's key namespace.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/menugr/menugr/config"
	"github.com/menugr/menugr/pkg/logger"
)

const (
	shutdownGrace = 10 * time.Second
	sweepInterval = 5 * time.Minute
)

// Start serves handler on APP_PORT until ctx is cancelled, then drains
// in-flight requests. The hub's idle sweep runs for the server's lifetime.
func Start(ctx context.Context, hub *Hub, handler http.Handler) error {
	srv := &http.Server{
		Addr:              ":" + config.AppPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go hub.Run(sweepCtx, sweepInterval)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server: listening", "addr", srv.Addr, "env", config.AppEnv())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info("server: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	logger.Info("server: stopped")
	return nil
}
