// Package client assembles the Pocket Relay client: the hosts file guard,
// the local game-facing servers and the supporting modules.
package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/pocketrelay/client/api"
	"github.com/pocketrelay/client/blaze"
	"github.com/pocketrelay/client/config"
	"github.com/pocketrelay/client/hosts"
	"github.com/pocketrelay/client/httpproxy"
	"github.com/pocketrelay/client/lookup"
	"github.com/pocketrelay/client/mgr"
	"github.com/pocketrelay/client/qos"
	"github.com/pocketrelay/client/storage"
	"github.com/pocketrelay/client/telemetry"
	"github.com/pocketrelay/client/tunnel"
	"github.com/pocketrelay/client/update"
)

// Instance is an instance of the Pocket Relay client.
type Instance struct {
	*mgr.Group

	version    string
	config     *config.Config
	httpClient *http.Client

	storage    storage.Storage
	hostsGuard *hosts.Guard
	target     *lookup.Target

	redirector *blaze.Redirector
	blazeProxy *blaze.Proxy
	httpProxy  *httpproxy.Proxy
	telemetry  *telemetry.Server
	qos        *qos.Server
	tunnel     *tunnel.Tunnel

	updater *update.Updater
	api     *api.API
}

// New returns a new client instance.
func New(version string, c *config.Config) (*Instance, error) {
	// Create instance to pass it to modules.
	instance := &Instance{
		version: version,
		config:  c,
	}

	// Create the HTTP client shared by all modules. No global timeout,
	// the game proxy holds upgraded connections open indefinitely.
	instance.httpClient = &http.Client{
		Transport: &userAgentTransport{
			agent: "PocketRelayClient/v" + strings.TrimPrefix(version, "v"),
			next:  http.DefaultTransport,
		},
	}

	// Load storage.
	var err error
	switch {
	case c.System.StatePath == "":
		instance.storage = storage.NewMemStorage()
	case strings.HasSuffix(c.System.StatePath, ".json"):
		instance.storage, err = storage.NewJSONFileStorage(c.System.StatePath)
		if err != nil {
			return nil, fmt.Errorf("load state: %w", err)
		}
	case strings.HasSuffix(c.System.StatePath, ".cbor"):
		instance.storage, err = storage.NewCBORFileStorage(c.System.StatePath)
		if err != nil {
			return nil, fmt.Errorf("load state: %w", err)
		}
	default:
		return nil, errors.New("unknown state file type")
	}

	// Create modules.
	instance.hostsGuard = hosts.NewGuard(instance)
	instance.target = lookup.New(instance)
	instance.redirector = blaze.NewRedirector(instance)
	instance.blazeProxy = blaze.NewProxy(instance)
	instance.httpProxy = httpproxy.New(instance)
	instance.telemetry = telemetry.New(instance)
	instance.qos = qos.New(instance)
	instance.tunnel = tunnel.New(instance)
	instance.updater = update.New(instance)
	instance.api = api.New(instance)

	// Add all modules to instance group.
	// The hosts entry goes in first and comes out last, the game must
	// never resolve the official hostname while the servers are down.
	instance.Group = mgr.NewGroup(
		instance.storage,
		instance.hostsGuard,
		instance.target,

		instance.redirector,
		instance.blazeProxy,
		instance.httpProxy,
		instance.telemetry,
		instance.qos,
		instance.tunnel,

		instance.updater,
		instance.api,
	)

	return instance, nil
}

// Version returns the version.
func (i *Instance) Version() string {
	return i.version
}

// Config returns the config.
func (i *Instance) Config() *config.Config {
	return i.config
}

// HTTPClient returns the shared HTTP client.
func (i *Instance) HTTPClient() *http.Client {
	return i.httpClient
}

/////

// Storage returns the storage.
func (i *Instance) Storage() storage.Storage {
	return i.storage
}

// HostsGuard returns the hosts file guard.
func (i *Instance) HostsGuard() *hosts.Guard {
	return i.hostsGuard
}

// Lookup returns the server lookup target.
func (i *Instance) Lookup() *lookup.Target {
	return i.target
}

/////

// Redirector returns the local redirector server.
func (i *Instance) Redirector() *blaze.Redirector {
	return i.redirector
}

// BlazeProxy returns the local game proxy server.
func (i *Instance) BlazeProxy() *blaze.Proxy {
	return i.blazeProxy
}

// HTTPProxy returns the local HTTP proxy server.
func (i *Instance) HTTPProxy() *httpproxy.Proxy {
	return i.httpProxy
}

// Telemetry returns the local telemetry server.
func (i *Instance) Telemetry() *telemetry.Server {
	return i.telemetry
}

// QOS returns the local quality of service server.
func (i *Instance) QOS() *qos.Server {
	return i.qos
}

// Tunnel returns the packet tunnel.
func (i *Instance) Tunnel() *tunnel.Tunnel {
	return i.tunnel
}

/////

// Updater returns the updater.
func (i *Instance) Updater() *update.Updater {
	return i.updater
}

// API returns the local http API.
func (i *Instance) API() *api.API {
	return i.api
}

// userAgentTransport sets the client user agent on all requests.
type userAgentTransport struct {
	agent string
	next  http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if r.Header.Get("User-Agent") == "" {
		r.Header.Set("User-Agent", t.agent)
	}
	return t.next.RoundTrip(r)
}
