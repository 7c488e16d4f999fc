package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/samber/oops"

	slogctx "github.com/veqryn/slog-context"

	"github.com/property360/usersession/internal/config"
	"github.com/property360/usersession/internal/usersession"
)

// newHandler routes the session API. Every route runs behind the trace
// middleware and sees the facade through usersession.FromContext.
func newHandler(cfg *config.Config, facade *usersession.Facade) http.Handler {
	mux := http.NewServeMux()

	routes := []struct {
		pattern   string
		operation string
		handler   http.Handler
	}{
		{"GET /ping", "Ping", http.HandlerFunc(pingHandler)},
		{"GET /v1/session", "GetSession", facadeHandler(getSession)},
		{"PUT /v1/session/user", "PutCurrentUser", facadeHandler(putCurrentUser)},
		{"POST /v1/session/logout", "Logout", facadeHandler(postLogout)},
		{"POST /v1/recently-viewed", "RecordView", facadeHandler(postRecentlyViewed)},
		{"PUT /v1/shortlist", "AddToShortlist", facadeHandler(putShortlist)},
		{"GET /v1/shortlist/{id}", "IsShortlisted", facadeHandler(getShortlisted)},
		{"DELETE /v1/shortlist/{id}", "RemoveFromShortlist", facadeHandler(deleteShortlisted)},
	}

	for _, route := range routes {
		mux.Handle(route.pattern, traceMiddleware(cfg, route.operation, route.handler))
	}

	return usersession.Middleware(facade)(mux)
}

func createHTTPServer(cfg *config.Config, facade *usersession.Facade) *http.Server {
	return &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: newHandler(cfg, facade),
	}
}

// StartHTTPServer serves the session API until ctx is done and then shuts
// the server down gracefully.
func StartHTTPServer(ctx context.Context, cfg *config.Config, facade *usersession.Facade) error {
	if err := initMeters(ctx, cfg); err != nil {
		return err
	}

	server := createHTTPServer(cfg, facade)

	slogctx.Info(ctx, "Starting a listener", "address", server.Addr)

	// An address of the form network://address selects the network, e.g.
	// unix:///run/usersession.sock. Anything else is tcp.
	network := "tcp"
	if idx := strings.Index(server.Addr, "://"); idx > 0 {
		network = server.Addr[:idx]
		server.Addr = server.Addr[idx+3:]
	}

	listener, err := new(net.ListenConfig).Listen(ctx, network, server.Addr)
	if err != nil {
		return oops.In("HTTP Server").
			WithContext(ctx).
			Wrapf(err, "Failed to create a listener")
	}

	slogctx.Info(ctx, "A listener started", "address", listener.Addr().String())

	go func() {
		err := server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogctx.Error(ctx, "Failed to serve an HTTP server", "error", err)
		}

		slogctx.Info(ctx, "Stopped an HTTP server")
	}()

	<-ctx.Done()

	shutdownCtx, shutdownRelease := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
	defer shutdownRelease()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return oops.In("HTTP Server").
			WithContext(ctx).
			Wrapf(err, "Failed shutting down HTTP server")
	}

	slogctx.Info(ctx, "Completed graceful shutdown of HTTP server")

	return nil
}
