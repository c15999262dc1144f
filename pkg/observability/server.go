package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const (
	readHeaderTimeout = 5 * time.Second
	adminShutdownWait = 5 * time.Second
)

// AdminOptions configures the admin mux.
type AdminOptions struct {
	// Metrics serves /metrics. Nil leaves the route unregistered.
	Metrics http.Handler

	// Checks back the /readyz endpoint.
	Checks []NamedCheck

	// RED records request metrics. Nil disables them.
	RED *REDMetrics
}

// AdminHandler returns the admin mux: /healthz, /readyz and optionally /metrics,
// each wrapped in HTTPMiddleware.
func AdminHandler(providers Providers, opts AdminOptions) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /healthz", HealthHandler())
	mux.Handle("GET /readyz", ReadyHandler(opts.Checks...))

	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}

	return HTTPMiddleware(providers.Tracer, opts.RED, mux)
}

// ServeAdmin listens on addr and serves handler until ctx is cancelled, then
// shuts the server down gracefully. It returns nil on a clean shutdown.
func ServeAdmin(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	lc := net.ListenConfig{}

	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	return serveListener(ctx, ln, handler, logger)
}

func serveListener(ctx context.Context, ln net.Listener, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- srv.Serve(ln)
	}()

	logger.InfoContext(ctx, "admin server listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("admin server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), adminShutdownWait)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("admin server shutdown: %w", err)
	}

	return nil
}
