// Package tunnel carries the game's peer-to-peer UDP traffic to the server
// over a TCP side channel when direct connectivity is not possible.
package tunnel

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/pocketrelay/client/config"
	"github.com/pocketrelay/client/lookup"
	"github.com/pocketrelay/client/mgr"
)

// targetPollInterval is how often the tunnel checks for a connected server
// before it can come up.
const targetPollInterval = 5 * time.Second

// Tunnel is the optional packet tunnel module.
type Tunnel struct {
	mgr      *mgr.Manager
	instance instance

	lock   sync.Mutex
	conn   net.Conn
	device *Device
}

// instance is an interface subset of inst.Ance.
type instance interface {
	Config() *config.Config
	Lookup() *lookup.Target
}

// New returns a new tunnel module.
func New(instance instance) *Tunnel {
	return &Tunnel{
		mgr:      mgr.New("tunnel"),
		instance: instance,
	}
}

// Manager returns the module manager.
func (t *Tunnel) Manager() *mgr.Manager {
	return t.mgr
}

// Start starts the tunnel if it is enabled.
func (t *Tunnel) Start() error {
	if !t.instance.Config().Tunnel.Enabled {
		return nil
	}

	t.mgr.Go("tunnel", t.tunnelWorker)
	return nil
}

// Stop tears the tunnel down.
func (t *Tunnel) Stop() error {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.conn != nil {
		_ = t.conn.Close()
	}
	if t.device != nil {
		_ = t.device.Close()
	}
	return nil
}

func (t *Tunnel) tunnelWorker(w *mgr.WorkerCtx) error {
	data, ok := t.waitForTarget(w)
	if !ok {
		return nil
	}

	addr, conn, err := t.connect(w, data)
	if err != nil {
		return fmt.Errorf("connect tunnel: %w", err)
	}

	device, err := CreateDevice(t.instance.Config().Tunnel.Name, addr)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("create tunnel interface: %w", err)
	}

	t.lock.Lock()
	t.conn = conn
	t.device = device
	t.lock.Unlock()

	w.Info(
		"tunnel is up",
		"server", data.Host,
		"interface", t.instance.Config().Tunnel.Name,
		"address", addr,
	)

	t.mgr.Go("device reader", func(w *mgr.WorkerCtx) error {
		return t.deviceReader(w, device, conn)
	})
	t.mgr.Go("server reader", func(w *mgr.WorkerCtx) error {
		return t.serverReader(w, device, conn)
	})
	return nil
}

// waitForTarget blocks until a server is connected or the module stops.
func (t *Tunnel) waitForTarget(w *mgr.WorkerCtx) (*lookup.Data, bool) {
	ticker := time.NewTicker(targetPollInterval)
	defer ticker.Stop()

	for {
		if data, err := t.instance.Lookup().Get(); err == nil {
			return data, true
		}
		select {
		case <-ticker.C:
		case <-w.Done():
			return nil, false
		}
	}
}

// connect dials the server's tunnel port and receives the assigned virtual
// address.
func (t *Tunnel) connect(w *mgr.WorkerCtx, data *lookup.Data) (netip.Addr, net.Conn, error) {
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	endpoint := net.JoinHostPort(
		data.Addr.String(),
		fmt.Sprintf("%d", t.instance.Config().Tunnel.Port),
	)
	conn, err := dialer.DialContext(w.Ctx(), "tcp", endpoint)
	if err != nil {
		return netip.Addr{}, nil, err
	}

	var octets [4]byte
	if _, err := io.ReadFull(conn, octets[:]); err != nil {
		_ = conn.Close()
		return netip.Addr{}, nil, fmt.Errorf("read virtual address: %w", err)
	}
	return netip.AddrFrom4(octets), conn, nil
}

// deviceReader forwards UDP packets from the tun interface to the server.
func (t *Tunnel) deviceReader(w *mgr.WorkerCtx, device *Device, conn net.Conn) error {
	buf := make([]byte, deviceMTU)
	for {
		packet, err := device.ReadPacket(buf)
		if err != nil {
			if w.IsDone() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("read from interface: %w", err)
		}

		frame, ok := parseUDPPacket(packet)
		if !ok {
			continue
		}

		if err := WriteFrame(conn, frame); err != nil {
			if w.IsDone() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("send frame: %w", err)
		}
	}
}

// serverReader injects UDP packets from the server into the tun interface.
func (t *Tunnel) serverReader(w *mgr.WorkerCtx, device *Device, conn net.Conn) error {
	for {
		frame, err := ReadFrame(conn)
		if err != nil {
			if w.IsDone() || errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("receive frame: %w", err)
		}

		if err := device.WritePacket(buildUDPPacket(frame)); err != nil {
			if w.IsDone() {
				return nil
			}
			return fmt.Errorf("write to interface: %w", err)
		}
	}
}
