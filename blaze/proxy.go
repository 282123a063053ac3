package blaze

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"

	"github.com/pocketrelay/client/lookup"
	"github.com/pocketrelay/client/mgr"
)

// upgradeEndpoint is the server endpoint game connections are upgraded on.
const upgradeEndpoint = "api/server/upgrade"

// Headers the server uses to route the upgraded stream.
const (
	headerScheme    = "x-pocket-relay-scheme"
	headerHost      = "x-pocket-relay-host"
	headerPort      = "x-pocket-relay-port"
	headerLocalHTTP = "x-pocket-relay-local-http"
)

// Proxy pipes game connections to the current server over an upgraded HTTP
// connection. The redirector sends the game here instead of to the official
// blaze servers.
type Proxy struct {
	mgr      *mgr.Manager
	instance instance

	listener net.Listener
}

// NewProxy returns a new game proxy server.
func NewProxy(instance instance) *Proxy {
	return &Proxy{
		mgr:      mgr.New("blaze-proxy"),
		instance: instance,
	}
}

// Manager returns the module manager.
func (p *Proxy) Manager() *mgr.Manager {
	return p.mgr
}

// Start starts the game proxy server.
func (p *Proxy) Start() error {
	listenAddr := fmt.Sprintf("0.0.0.0:%d", p.instance.Config().Servers.BlazeProxyPort)
	ln, err := net.Listen("tcp4", listenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddr, err)
	}
	p.listener = ln

	p.mgr.Go("listener", p.listenWorker)
	return nil
}

// Stop stops the game proxy server.
func (p *Proxy) Stop() error {
	if p.listener != nil {
		if err := p.listener.Close(); err != nil {
			p.mgr.Error("failed to close listener", "err", err)
		}
	}
	return nil
}

func (p *Proxy) listenWorker(w *mgr.WorkerCtx) error {
	for {
		conn, err := p.listener.Accept()
		if err != nil {
			if w.IsDone() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		p.mgr.Go("connection", func(w *mgr.WorkerCtx) error {
			defer conn.Close() //nolint:errcheck
			return p.handleConn(w, conn)
		})
	}
}

func (p *Proxy) handleConn(w *mgr.WorkerCtx, conn net.Conn) error {
	data, err := p.instance.Lookup().Get()
	if err != nil {
		w.Warn("dropping game connection, no server connected", "remote", conn.RemoteAddr())
		return nil
	}

	stream, err := p.upgrade(w, data)
	if err != nil {
		w.Warn("failed to open server stream", "server", data.Host, "err", err)
		return nil
	}
	defer stream.Close() //nolint:errcheck

	w.Debug("proxying game connection", "remote", conn.RemoteAddr(), "server", data.Host)

	// Copy both ways until either side closes.
	done := make(chan struct{}, 2)
	go func() {
		_, _ = io.Copy(stream, conn)
		done <- struct{}{}
	}()
	go func() {
		_, _ = io.Copy(conn, stream)
		done <- struct{}{}
	}()

	select {
	case <-done:
	case <-w.Done():
	}
	// Closing both ends unblocks the remaining copy.
	_ = conn.Close()
	return nil
}

// upgrade opens a raw byte stream to the server by upgrading an HTTP
// connection on the server's upgrade endpoint.
func (p *Proxy) upgrade(w *mgr.WorkerCtx, data *lookup.Data) (io.ReadWriteCloser, error) {
	req, err := http.NewRequestWithContext(w.Ctx(), http.MethodGet, data.URL(upgradeEndpoint), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "blaze")
	// The routing headers point at the local HTTP proxy, not at the server
	// itself. Older servers hand this address to the game for the in-game
	// store and galaxy at war, which must go through the local proxy.
	req.Header.Set(headerScheme, "http")
	req.Header.Set(headerHost, "127.0.0.1")
	req.Header.Set(headerPort, strconv.Itoa(int(p.instance.Config().Servers.HTTPProxyPort)))
	req.Header.Set(headerLocalHTTP, "true")

	resp, err := p.instance.HTTPClient().Do(req) //nolint:bodyclose
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusSwitchingProtocols {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("server did not upgrade connection: %s", resp.Status)
	}

	stream, ok := resp.Body.(io.ReadWriteCloser)
	if !ok {
		_ = resp.Body.Close()
		return nil, errors.New("upgraded connection is not writable")
	}
	return stream, nil
}
