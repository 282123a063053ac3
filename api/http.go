// Package api serves the local status and control API. It replaces an
// interactive interface: scripts and launchers query and steer the client
// through it on localhost.
package api

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/pocketrelay/client/config"
	"github.com/pocketrelay/client/hosts"
	"github.com/pocketrelay/client/lookup"
	"github.com/pocketrelay/client/mgr"
)

// API is the local HTTP API server.
type API struct {
	mgr      *mgr.Manager
	instance instance

	httpServer         *http.Server
	httpServerListener net.Listener

	handlers *http.ServeMux
}

// instance is an interface subset of inst.Ance.
type instance interface {
	Version() string
	Config() *config.Config
	Lookup() *lookup.Target
	HostsGuard() *hosts.Guard
}

// New returns a new local API server.
func New(instance instance) *API {
	api := &API{
		mgr:      mgr.New("api"),
		instance: instance,
		handlers: http.NewServeMux(),
	}
	// The write timeout bounds whole handlers. Connect resolves the host
	// and contacts the server before it can reply, so it needs headroom
	// well beyond the resolver timeout.
	api.httpServer = &http.Server{
		Handler:      api,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	api.registerEndpoints()

	return api
}

// Manager returns the module manager.
func (api *API) Manager() *mgr.Manager {
	return api.mgr
}

// Start starts the API server.
func (api *API) Start() error {
	ln, err := net.Listen("tcp", api.instance.Config().APIListen.String())
	if err != nil {
		return err
	}
	api.httpServerListener = ln

	api.mgr.Go("http server", api.httpServerWorker)
	return nil
}

// Addr returns the address the API server is listening on.
// It is only valid after Start.
func (api *API) Addr() net.Addr {
	if api.httpServerListener == nil {
		return nil
	}
	return api.httpServerListener.Addr()
}

// Stop stops the API server.
func (api *API) Stop() error {
	if err := api.httpServer.Close(); err != nil {
		api.mgr.Error("failed to stop http server", "err", err)
	}
	return nil
}

// Handle registers the handler for the given pattern. If a handler already exists for pattern, Handle panics.
func (api *API) Handle(pattern string, handler http.Handler) {
	api.handlers.Handle(pattern, handler)
}

// HandleFunc registers the handler function for the given pattern.
func (api *API) HandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	api.handlers.HandleFunc(pattern, handler)
}

func (api *API) httpServerWorker(w *mgr.WorkerCtx) error {
	// Configure server.
	api.httpServer.ErrorLog = slog.NewLogLogger(w.Logger().Handler(), slog.LevelWarn)

	// Start serving.
	err := api.httpServer.Serve(api.httpServerListener)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ServeHTTP implements the HTTP server handler.
func (api *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = api.mgr.Do("request", func(wkr *mgr.WorkerCtx) error {
		api.handleRequest(wkr, w, r)
		return nil
	})
}

func (api *API) handleRequest(wkr *mgr.WorkerCtx, w http.ResponseWriter, r *http.Request) {
	// Set retrievable request context.
	r = r.WithContext(wkr.AddToCtx(wkr.Ctx()))

	// Capture status code for logging.
	statusCodeWriter := NewStatusCodeWriter(w, r)

	// Log request.
	started := time.Now()
	defer func() {
		wkr.Debug(
			"request",
			"method", r.Method,
			"status", statusCodeWriter.Status,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
			"time", time.Since(started),
		)
	}()

	// The API is bound to localhost, but browsers can still be tricked
	// into firing cross-origin requests at it. Deny anything foreign.
	origin := r.Header.Get("Origin")
	if origin != "" && !localOrigin(origin, r.Host) {
		http.Error(w, "Cross-Origin Request Denied.", http.StatusForbidden)
		wkr.Warn(
			"request denied: origin not allowed",
			"origin", origin,
			"host", r.Host,
			"remote", r.RemoteAddr,
		)
		return
	}

	// Handle with registered handler.
	api.handlers.ServeHTTP(statusCodeWriter, r)
}

func localOrigin(origin, host string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	switch {
	case u.Host == host:
		// Origin (with port) matches Host.
		return true
	case u.Hostname() == host:
		// Origin (without port) matches Host.
		return true
	case u.Hostname() == "localhost", u.Hostname() == "127.0.0.1", u.Hostname() == "::1":
		return true
	}
	return false
}
