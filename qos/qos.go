// Package qos answers the game's quality of service probes with the public
// address it is seen with.
package qos

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"

	"github.com/pocketrelay/client/config"
	"github.com/pocketrelay/client/mgr"
	"github.com/pocketrelay/client/storage"
)

// Probe message sizes: a request heading and the response carrying the
// heading plus the probed address.
const (
	requestSize  = 20
	responseSize = 30
)

// Server is the local quality of service server.
type Server struct {
	mgr      *mgr.Manager
	instance instance

	conn *net.UDPConn
}

// instance is an interface subset of inst.Ance.
type instance interface {
	Config() *config.Config
	Storage() storage.Storage
	HTTPClient() *http.Client
}

// New returns a new quality of service server.
func New(instance instance) *Server {
	return &Server{
		mgr:      mgr.New("qos"),
		instance: instance,
	}
}

// Manager returns the module manager.
func (s *Server) Manager() *mgr.Manager {
	return s.mgr
}

// Start starts the quality of service server.
func (s *Server) Start() error {
	if s.instance.Config().Servers.DisableQOS {
		s.mgr.Info("qos server is disabled")
		return nil
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{
		Port: int(s.instance.Config().Servers.QOSPort),
	})
	if err != nil {
		return fmt.Errorf("listen on udp port %d: %w", s.instance.Config().Servers.QOSPort, err)
	}
	s.conn = conn

	s.mgr.Go("responder", s.responderWorker)
	return nil
}

// Stop stops the quality of service server.
func (s *Server) Stop() error {
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.mgr.Error("failed to close udp socket", "err", err)
		}
	}
	return nil
}

func (s *Server) responderWorker(w *mgr.WorkerCtx) error {
	buf := make([]byte, requestSize)
	for {
		n, remote, err := s.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if w.IsDone() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("read probe: %w", err)
		}
		if n < requestSize {
			w.Debug("dropping short probe", "remote", remote, "size", n)
			continue
		}

		addr, err := s.probedAddress(w, remote)
		if err != nil {
			w.Warn("failed to answer probe", "remote", remote, "err", err)
			continue
		}

		response := buildResponse(buf, addr, remote.Port())
		if _, err := s.conn.WriteToUDPAddrPort(response, remote); err != nil {
			w.Warn("failed to send probe response", "remote", remote, "err", err)
		}
	}
}

// probedAddress returns the address the requester is publicly seen with.
// Loopback and private sources get the machine's public address instead.
func (s *Server) probedAddress(w *mgr.WorkerCtx, remote netip.AddrPort) (netip.Addr, error) {
	addr := remote.Addr().Unmap()
	if !addr.Is4() {
		return netip.Addr{}, errors.New("not an IPv4 source")
	}

	if addr.IsLoopback() || addr.IsPrivate() {
		if public, err := s.PublicAddress(w); err == nil {
			return public, nil
		}
	}
	return addr, nil
}

// buildResponse echoes the request heading followed by the probed address
// and source port, padded with four zero bytes.
func buildResponse(heading []byte, addr netip.Addr, port uint16) []byte {
	response := make([]byte, responseSize)
	copy(response[:requestSize], heading)

	ip := addr.As4()
	copy(response[20:24], ip[:])
	binary.BigEndian.PutUint16(response[24:26], port)
	return response
}
