// Package httpproxy serves the game's plain HTTP traffic (in-game store,
// galaxy at war) by forwarding it onto the connected server.
package httpproxy

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/pocketrelay/client/config"
	"github.com/pocketrelay/client/lookup"
	"github.com/pocketrelay/client/mgr"
)

// Proxy is the local HTTP proxy server.
type Proxy struct {
	mgr      *mgr.Manager
	instance instance

	server   *http.Server
	listener net.Listener
}

// instance is an interface subset of inst.Ance.
type instance interface {
	Config() *config.Config
	Lookup() *lookup.Target
	HTTPClient() *http.Client
}

// New returns a new HTTP proxy server.
func New(instance instance) *Proxy {
	p := &Proxy{
		mgr:      mgr.New("http-proxy"),
		instance: instance,
	}
	p.server = &http.Server{
		Handler:     p,
		ReadTimeout: 10 * time.Second,
	}
	return p
}

// Manager returns the module manager.
func (p *Proxy) Manager() *mgr.Manager {
	return p.mgr
}

// Start starts the HTTP proxy server.
func (p *Proxy) Start() error {
	listenAddr := fmt.Sprintf("0.0.0.0:%d", p.instance.Config().Servers.HTTPProxyPort)
	ln, err := net.Listen("tcp4", listenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddr, err)
	}
	p.listener = ln

	p.mgr.Go("http server", p.serverWorker)
	return nil
}

// Stop stops the HTTP proxy server.
func (p *Proxy) Stop() error {
	if err := p.server.Close(); err != nil {
		p.mgr.Error("failed to stop http server", "err", err)
	}
	return nil
}

func (p *Proxy) serverWorker(w *mgr.WorkerCtx) error {
	p.server.ErrorLog = slog.NewLogLogger(w.Logger().Handler(), slog.LevelWarn)

	err := p.server.Serve(p.listener)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ServeHTTP implements the HTTP server handler.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = p.mgr.Do("request", func(wkr *mgr.WorkerCtx) error {
		p.handleRequest(wkr, w, r)
		return nil
	})
}

func (p *Proxy) handleRequest(wkr *mgr.WorkerCtx, w http.ResponseWriter, r *http.Request) {
	data, err := p.instance.Lookup().Get()
	if err != nil {
		http.Error(w, "no server connected", http.StatusServiceUnavailable)
		return
	}

	started := time.Now()
	status, headersSent, err := p.forward(wkr, w, r, data)
	if err != nil {
		wkr.Warn(
			"failed to forward request",
			"method", r.Method,
			"path", r.URL.Path,
			"err", err,
		)
		// Once the reply has started, an error page would corrupt the
		// already mirrored response.
		if !headersSent {
			http.Error(w, "failed to reach server", http.StatusBadGateway)
		}
		return
	}

	wkr.Debug(
		"forwarded request",
		"method", r.Method,
		"status", status,
		"path", r.URL.Path,
		"remote", r.RemoteAddr,
		"time", time.Since(started),
	)
}

// forward replays the request onto the server and mirrors the response.
// headersSent reports whether the reply to the game was already started
// when an error occurred.
func (p *Proxy) forward(
	wkr *mgr.WorkerCtx, w http.ResponseWriter, r *http.Request, data *lookup.Data,
) (status int, headersSent bool, err error) {
	target := data.URL(r.URL.Path)
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	req, err := http.NewRequestWithContext(wkr.Ctx(), r.Method, target, r.Body)
	if err != nil {
		return 0, false, err
	}
	for key, values := range r.Header {
		req.Header[key] = values
	}

	resp, err := p.instance.HTTPClient().Do(req)
	if err != nil {
		return 0, false, err
	}
	defer func() { _ = resp.Body.Close() }()

	hdr := w.Header()
	for key, values := range resp.Header {
		hdr[key] = values
	}
	w.WriteHeader(resp.StatusCode)
	_, err = io.Copy(w, resp.Body)
	return resp.StatusCode, true, err
}
