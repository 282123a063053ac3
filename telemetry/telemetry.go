// Package telemetry accepts the game's telemetry connections, decodes the
// messages and forwards them to the connected server.
package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/pocketrelay/client/config"
	"github.com/pocketrelay/client/lookup"
	"github.com/pocketrelay/client/mgr"
)

// forwardEndpoint is the server endpoint telemetry messages are posted to.
const forwardEndpoint = "api/server/telemetry"

// Server is the local telemetry server.
type Server struct {
	mgr      *mgr.Manager
	instance instance

	listener net.Listener
}

// instance is an interface subset of inst.Ance.
type instance interface {
	Config() *config.Config
	Lookup() *lookup.Target
	HTTPClient() *http.Client
}

// New returns a new telemetry server.
func New(instance instance) *Server {
	return &Server{
		mgr:      mgr.New("telemetry"),
		instance: instance,
	}
}

// Manager returns the module manager.
func (s *Server) Manager() *mgr.Manager {
	return s.mgr
}

// Start starts the telemetry server.
func (s *Server) Start() error {
	if s.instance.Config().Servers.DisableTelemetry {
		s.mgr.Info("telemetry server is disabled")
		return nil
	}

	listenAddr := fmt.Sprintf("0.0.0.0:%d", s.instance.Config().Servers.TelemetryPort)
	ln, err := net.Listen("tcp4", listenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddr, err)
	}
	s.listener = ln

	s.mgr.Go("listener", s.listenWorker)
	return nil
}

// Stop stops the telemetry server.
func (s *Server) Stop() error {
	if s.listener != nil {
		if err := s.listener.Close(); err != nil {
			s.mgr.Error("failed to close listener", "err", err)
		}
	}
	return nil
}

func (s *Server) listenWorker(w *mgr.WorkerCtx) error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if w.IsDone() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		s.mgr.Go("connection", func(w *mgr.WorkerCtx) error {
			defer conn.Close() //nolint:errcheck
			return s.handleConn(w, conn)
		})
	}
}

func (s *Server) handleConn(w *mgr.WorkerCtx, conn net.Conn) error {
	for {
		message, err := ReadMessage(conn)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
			return nil
		default:
			w.Debug("closing telemetry connection", "err", err)
			return nil
		}

		// Losing telemetry is never fatal, just log and go on.
		if err := s.forward(w, message); err != nil {
			w.Warn("failed to forward telemetry message", "err", err)
		}
	}
}

// forward posts the decoded message to the connected server.
func (s *Server) forward(w *mgr.WorkerCtx, message *Message) error {
	data, err := s.instance.Lookup().Get()
	if err != nil {
		return err
	}

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(
		w.Ctx(), http.MethodPost,
		data.URL(forwardEndpoint), bytes.NewReader(body),
	)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.instance.HTTPClient().Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("server replied with %s", resp.Status)
	}
	return nil
}
