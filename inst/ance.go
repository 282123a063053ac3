// Package inst provides the full instance interface.
package inst

import (
	"net/http"

	"github.com/pocketrelay/client/api"
	"github.com/pocketrelay/client/blaze"
	"github.com/pocketrelay/client/config"
	"github.com/pocketrelay/client/hosts"
	"github.com/pocketrelay/client/httpproxy"
	"github.com/pocketrelay/client/lookup"
	"github.com/pocketrelay/client/qos"
	"github.com/pocketrelay/client/storage"
	"github.com/pocketrelay/client/telemetry"
	"github.com/pocketrelay/client/tunnel"
	"github.com/pocketrelay/client/update"
)

// Ance (inst.Ance) is an interface to access global attributes of a client instance.
type Ance interface {
	Version() string
	Config() *config.Config
	HTTPClient() *http.Client

	Storage() storage.Storage
	HostsGuard() *hosts.Guard
	Lookup() *lookup.Target

	Redirector() *blaze.Redirector
	BlazeProxy() *blaze.Proxy
	HTTPProxy() *httpproxy.Proxy
	Telemetry() *telemetry.Server
	QOS() *qos.Server
	Tunnel() *tunnel.Tunnel

	Updater() *update.Updater
	API() *api.API
}

// AnceStub (inst.AnceStub) is a stub to easily create an inst.Ance.
type AnceStub struct {
	VersionStub    string
	ConfigStub     *config.Config
	HTTPClientStub *http.Client

	StorageStub    storage.Storage
	HostsGuardStub *hosts.Guard
	LookupStub     *lookup.Target

	RedirectorStub *blaze.Redirector
	BlazeProxyStub *blaze.Proxy
	HTTPProxyStub  *httpproxy.Proxy
	TelemetryStub  *telemetry.Server
	QOSStub        *qos.Server
	TunnelStub     *tunnel.Tunnel

	UpdaterStub *update.Updater
	APIStub     *api.API
}

var _ Ance = &AnceStub{}

// Version returns the version.
func (stub *AnceStub) Version() string {
	return stub.VersionStub
}

// Config returns the config.
func (stub *AnceStub) Config() *config.Config {
	return stub.ConfigStub
}

// HTTPClient returns the shared HTTP client.
func (stub *AnceStub) HTTPClient() *http.Client {
	return stub.HTTPClientStub
}

// Storage returns the storage.
func (stub *AnceStub) Storage() storage.Storage {
	return stub.StorageStub
}

// HostsGuard returns the hosts file guard.
func (stub *AnceStub) HostsGuard() *hosts.Guard {
	return stub.HostsGuardStub
}

// Lookup returns the server lookup target.
func (stub *AnceStub) Lookup() *lookup.Target {
	return stub.LookupStub
}

// Redirector returns the local redirector server.
func (stub *AnceStub) Redirector() *blaze.Redirector {
	return stub.RedirectorStub
}

// BlazeProxy returns the local game proxy server.
func (stub *AnceStub) BlazeProxy() *blaze.Proxy {
	return stub.BlazeProxyStub
}

// HTTPProxy returns the local HTTP proxy server.
func (stub *AnceStub) HTTPProxy() *httpproxy.Proxy {
	return stub.HTTPProxyStub
}

// Telemetry returns the local telemetry server.
func (stub *AnceStub) Telemetry() *telemetry.Server {
	return stub.TelemetryStub
}

// QOS returns the local quality of service server.
func (stub *AnceStub) QOS() *qos.Server {
	return stub.QOSStub
}

// Tunnel returns the packet tunnel.
func (stub *AnceStub) Tunnel() *tunnel.Tunnel {
	return stub.TunnelStub
}

// Updater returns the updater.
func (stub *AnceStub) Updater() *update.Updater {
	return stub.UpdaterStub
}

// API returns the local http API.
func (stub *AnceStub) API() *api.API {
	return stub.APIStub
}
