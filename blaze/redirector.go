package blaze

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"time"

	"github.com/pocketrelay/client/config"
	"github.com/pocketrelay/client/lookup"
	"github.com/pocketrelay/client/mgr"
)

// Redirector protocol identifiers.
const (
	componentRedirector      uint16 = 0x5
	commandGetServerInstance uint16 = 0x1
)

// idleTimeout is how long a game connection may stay silent before it is
// dropped. The game connects, asks once and leaves.
const idleTimeout = 60 * time.Second

// Redirector answers the game's server instance lookup with the address of
// the local game proxy. It stands in for the official gosredirector service
// the hosts entry points at this machine.
type Redirector struct {
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

// NewRedirector returns a new redirector server.
func NewRedirector(instance instance) *Redirector {
	return &Redirector{
		mgr:      mgr.New("redirector"),
		instance: instance,
	}
}

// Manager returns the module manager.
func (r *Redirector) Manager() *mgr.Manager {
	return r.mgr
}

// Start starts the redirector server.
func (r *Redirector) Start() error {
	listenAddr := fmt.Sprintf("0.0.0.0:%d", r.instance.Config().Servers.RedirectorPort)
	ln, err := net.Listen("tcp4", listenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddr, err)
	}
	r.listener = ln

	r.mgr.Go("listener", r.listenWorker)
	return nil
}

// Stop stops the redirector server.
func (r *Redirector) Stop() error {
	if r.listener != nil {
		if err := r.listener.Close(); err != nil {
			r.mgr.Error("failed to close listener", "err", err)
		}
	}
	return nil
}

func (r *Redirector) listenWorker(w *mgr.WorkerCtx) error {
	for {
		conn, err := r.listener.Accept()
		if err != nil {
			if w.IsDone() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		r.mgr.Go("connection", func(w *mgr.WorkerCtx) error {
			defer conn.Close() //nolint:errcheck
			return r.handleConn(w, conn)
		})
	}
}

func (r *Redirector) handleConn(w *mgr.WorkerCtx, conn net.Conn) error {
	w.Debug("game connected", "remote", conn.RemoteAddr())

	for {
		if err := conn.SetReadDeadline(time.Now().Add(idleTimeout)); err != nil {
			return fmt.Errorf("set deadline: %w", err)
		}

		packet, err := ReadPacket(conn)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
			return nil
		case errors.Is(err, io.ErrUnexpectedEOF):
			return nil
		default:
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				w.Debug("closing idle game connection", "remote", conn.RemoteAddr())
				return nil
			}
			return fmt.Errorf("read packet: %w", err)
		}

		response := r.handlePacket(w, packet)
		if err := WritePacket(conn, response); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
}

func (r *Redirector) handlePacket(w *mgr.WorkerCtx, packet *Packet) *Packet {
	if packet.Header.Component == componentRedirector &&
		packet.Header.Command == commandGetServerInstance {
		w.Debug("answering server instance request")
		return packet.Response(r.instanceAddress())
	}

	// Anything else gets an empty acknowledgement.
	return packet.ResponseEmpty()
}

// instanceAddress encodes the local game proxy address the way the game
// expects it from the official redirector.
func (r *Redirector) instanceAddress() []byte {
	host := netip.MustParseAddr(config.HostValue).As4()
	port := r.instance.Config().Servers.BlazeProxyPort

	e := new(Encoder)
	e.WriteUnion("ADDR", 0x0, func(e *Encoder) {
		e.WriteGroup("VALU", func(e *Encoder) {
			e.WriteUint("IP", uint64(binary.BigEndian.Uint32(host[:])))
			e.WriteUint("PORT", uint64(port))
		})
	})
	e.WriteBool("SECU", false)
	e.WriteUint("XDNS", 0)
	return e.Bytes()
}
