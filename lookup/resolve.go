package lookup

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/miekg/dns"
	"golang.org/x/exp/slices"
)

// ErrNoAddress means the domain resolved, but returned no usable address.
var ErrNoAddress = errors.New("domain did not resolve to any address")

// Resolver resolves domain-form connection strings to addresses.
// It queries the configured name servers directly instead of going through
// the OS, so results cannot be shadowed by the very hosts entry this client
// manages.
type Resolver struct {
	servers []string
	client  *dns.Client
}

// NewResolver returns a resolver using the system name server config.
// Without usable system config it falls back to the net.Resolver.
func NewResolver() *Resolver {
	return &Resolver{
		servers: systemNameServers(),
		client: &dns.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// NewResolverWithServers returns a resolver using the given name servers
// in host:port form.
func NewResolverWithServers(servers ...string) *Resolver {
	r := NewResolver()
	r.servers = servers
	return r
}

// Resolve resolves the host of the given address.
// IP literals are returned as-is without any network activity.
func (r *Resolver) Resolve(ctx context.Context, a *Address) (netip.Addr, error) {
	if ip, err := netip.ParseAddr(a.Host); err == nil {
		return ip, nil
	}
	return r.resolveDomain(ctx, a.Host)
}

func (r *Resolver) resolveDomain(ctx context.Context, domain string) (netip.Addr, error) {
	// Query the name servers directly when we know any.
	var lastErr error
	for _, server := range r.servers {
		ip, err := r.query(ctx, domain, server)
		if err == nil {
			return ip, nil
		}
		lastErr = err
	}

	// Fall back to the stdlib resolver.
	ip, err := fallbackResolve(ctx, domain)
	if err == nil {
		return ip, nil
	}
	if lastErr != nil {
		return netip.Addr{}, fmt.Errorf("resolve %s: %w", domain, lastErr)
	}
	return netip.Addr{}, fmt.Errorf("resolve %s: %w", domain, err)
}

func (r *Resolver) query(ctx context.Context, domain string, server string) (netip.Addr, error) {
	q := new(dns.Msg)
	q.SetQuestion(dns.Fqdn(domain), dns.TypeA)

	reply, _, err := r.client.ExchangeContext(ctx, q, server)
	if err != nil {
		return netip.Addr{}, err
	}
	if reply.Rcode != dns.RcodeSuccess {
		return netip.Addr{}, fmt.Errorf("name server replied with %s", dns.RcodeToString[reply.Rcode])
	}

	for _, rr := range reply.Answer {
		if a, ok := rr.(*dns.A); ok {
			ip, ok := netip.AddrFromSlice(a.A)
			if ok {
				return ip.Unmap(), nil
			}
		}
	}
	return netip.Addr{}, ErrNoAddress
}

func fallbackResolve(ctx context.Context, domain string) (netip.Addr, error) {
	ips, err := net.DefaultResolver.LookupNetIP(ctx, "ip4", domain)
	if err != nil {
		return netip.Addr{}, err
	}
	if len(ips) == 0 {
		return netip.Addr{}, ErrNoAddress
	}
	return ips[0].Unmap(), nil
}

func systemNameServers() []string {
	conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil {
		return nil
	}

	servers := make([]string, 0, len(conf.Servers))
	for _, server := range conf.Servers {
		hostPort := net.JoinHostPort(server, conf.Port)
		if !slices.Contains(servers, hostPort) {
			servers = append(servers, hostPort)
		}
	}
	return servers
}
