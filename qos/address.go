package qos

import (
	"errors"
	"io"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/pocketrelay/client/mgr"
)

// publicAddressCacheTTL is how long a fetched public address stays valid.
const publicAddressCacheTTL = 2 * time.Hour

// publicAddressServices answer a GET with the caller's public IPv4 address.
var publicAddressServices = []string{
	"https://api.ipify.org/",
	"https://ipv4.icanhazip.com/",
}

// ErrNoPublicAddress means the public address could not be determined.
var ErrNoPublicAddress = errors.New("failed to determine public address")

// PublicAddress returns the machine's public IPv4 address, served from the
// state cache when possible. Without internet access the primary local
// interface address is used instead.
func (s *Server) PublicAddress(w *mgr.WorkerCtx) (netip.Addr, error) {
	if addr, err := s.instance.Storage().GetPublicAddress(); err == nil {
		return addr, nil
	}

	addr, err := s.fetchPublicAddress(w)
	if err != nil {
		// Likely no internet, fall back to the local interface address.
		addr, err = localAddress()
		if err != nil {
			return netip.Addr{}, ErrNoPublicAddress
		}
	}

	if err := s.instance.Storage().SavePublicAddress(addr, time.Now().Add(publicAddressCacheTTL)); err != nil {
		w.Warn("failed to cache public address", "err", err)
	}
	return addr, nil
}

func (s *Server) fetchPublicAddress(w *mgr.WorkerCtx) (netip.Addr, error) {
	for _, service := range publicAddressServices {
		addr, err := s.queryAddressService(w, service)
		if err != nil {
			w.Debug("public address service failed", "service", service, "err", err)
			continue
		}
		return addr, nil
	}
	return netip.Addr{}, ErrNoPublicAddress
}

func (s *Server) queryAddressService(w *mgr.WorkerCtx, service string) (netip.Addr, error) {
	req, err := http.NewRequestWithContext(w.Ctx(), http.MethodGet, service, nil)
	if err != nil {
		return netip.Addr{}, err
	}

	resp, err := s.instance.HTTPClient().Do(req)
	if err != nil {
		return netip.Addr{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		return netip.Addr{}, err
	}

	addr, err := netip.ParseAddr(strings.TrimSpace(string(body)))
	if err != nil {
		return netip.Addr{}, err
	}
	if !addr.Is4() {
		return netip.Addr{}, errors.New("not an IPv4 address")
	}
	return addr, nil
}

// localAddress returns the preferred outbound IPv4 address of the machine.
// The connection is never actually established.
func localAddress() (netip.Addr, error) {
	conn, err := net.Dial("udp4", "8.8.8.8:80")
	if err != nil {
		return netip.Addr{}, err
	}
	defer func() { _ = conn.Close() }()

	udpAddr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return netip.Addr{}, errors.New("no local udp address")
	}
	addr, ok := netip.AddrFromSlice(udpAddr.IP.To4())
	if !ok {
		return netip.Addr{}, errors.New("no local IPv4 address")
	}
	return addr, nil
}
