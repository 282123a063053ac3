package config

import (
	"github.com/mitchellh/copystructure"
)

// Store holds all configuration in a storable format.
type Store struct {
	// ConnectionURL is the connection string of the server to connect to on
	// start. It accepts a bare IP or domain with an optional port, as well
	// as a full http(s) URL.
	ConnectionURL string `json:"connectionUrl,omitempty" yaml:"connectionUrl,omitempty"`

	System  System  `json:"system,omitempty"  yaml:"system,omitempty"`
	Servers Servers `json:"servers,omitempty" yaml:"servers,omitempty"`
	Update  Update  `json:"update,omitempty"  yaml:"update,omitempty"`
	Tunnel  Tunnel  `json:"tunnel,omitempty"  yaml:"tunnel,omitempty"`
}

// System defines all configuration regarding the system.
type System struct { //nolint:maligned
	// HostsPath overrides the location of the system hosts file.
	HostsPath string `json:"hostsPath,omitempty" yaml:"hostsPath,omitempty"`

	// DisableHostsEntry disables management of the hosts file redirect
	// entry. The game will then only find the local redirector if the
	// mapping is maintained by other means.
	DisableHostsEntry bool `json:"disableHostsEntry,omitempty" yaml:"disableHostsEntry,omitempty"`

	// StatePath is where the client persists local state between runs.
	// Supports .json and .cbor files.
	StatePath string `json:"statePath,omitempty" yaml:"statePath,omitempty"`

	// APIListen is the listen address of the local status/control API.
	APIListen string `json:"apiListen,omitempty" yaml:"apiListen,omitempty"`
}

// Servers defines all configuration regarding the local game-facing servers.
type Servers struct { //nolint:maligned
	// RedirectorPort is the port of the local redirector server.
	// The game expects it on the official port, only change for testing.
	RedirectorPort uint16 `json:"redirectorPort,omitempty" yaml:"redirectorPort,omitempty"`

	// BlazeProxyPort is the port of the local blaze proxy server.
	BlazeProxyPort uint16 `json:"blazeProxyPort,omitempty" yaml:"blazeProxyPort,omitempty"`

	// HTTPProxyPort is the port of the local http proxy server.
	HTTPProxyPort uint16 `json:"httpProxyPort,omitempty" yaml:"httpProxyPort,omitempty"`

	// TelemetryPort is the port of the local telemetry server.
	TelemetryPort uint16 `json:"telemetryPort,omitempty" yaml:"telemetryPort,omitempty"`

	// QOSPort is the port of the local quality of service server.
	QOSPort uint16 `json:"qosPort,omitempty" yaml:"qosPort,omitempty"`

	// DisableQOS disables the local quality of service server.
	DisableQOS bool `json:"disableQos,omitempty" yaml:"disableQos,omitempty"`

	// DisableTelemetry disables the local telemetry server.
	// Telemetry messages are then dropped by the game instead of decoded
	// and forwarded to the server.
	DisableTelemetry bool `json:"disableTelemetry,omitempty" yaml:"disableTelemetry,omitempty"`
}

// Update defines all configuration regarding the self-updater.
type Update struct { //nolint:maligned
	// Disable disables the update check on start.
	Disable bool `json:"disable,omitempty" yaml:"disable,omitempty"`

	// Apply downloads and applies available updates automatically.
	// Without it, available updates are only reported in the log.
	Apply bool `json:"apply,omitempty" yaml:"apply,omitempty"`

	// Endpoint overrides the release lookup endpoint.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
}

// Tunnel defines all configuration regarding the optional packet tunnel.
type Tunnel struct { //nolint:maligned
	// Enabled brings up the tunnel interface when a server is connected.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`

	// Name is the tunnel interface name.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Port is the tunnel port on the server.
	Port uint16 `json:"port,omitempty" yaml:"port,omitempty"`
}

// Clone returns a full copy of the store.
func (s Store) Clone() (Store, error) {
	copied, err := copystructure.Copy(s)
	if err != nil {
		return Store{}, err
	}
	return copied.(Store), nil //nolint:forcetypeassert
}
