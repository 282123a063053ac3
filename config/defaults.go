package config

// HostKey is the official server hostname redirected in the hosts file.
const HostKey = "gosredirector.ea.com"

// HostValue is the address the official hostname is redirected to.
const HostValue = "127.0.0.1"

// Default local server ports. The redirector port is fixed by the game,
// the others just follow it to keep a recognizable block.
const (
	DefaultRedirectorPort uint16 = 42127
	DefaultBlazeProxyPort uint16 = 42128
	DefaultTelemetryPort  uint16 = 42129
	DefaultQOSPort        uint16 = 42130
	DefaultHTTPProxyPort  uint16 = 42131
)

// DefaultAPIListen is the default listen address of the local API.
const DefaultAPIListen = "127.0.0.1:42132"

// DefaultTunnelPort is the default tunnel port on the server.
const DefaultTunnelPort uint16 = 9887

// DefaultTunnelName is the default tunnel interface name.
const DefaultTunnelName = "pocket-relay"

// ServerIdent is the identifier a server must report to be accepted.
const ServerIdent = "POCKET_RELAY_SERVER"

// MinServerVersion is the minimum server version this client can talk to.
const MinServerVersion = "v0.5.0"

// DefaultUpdateEndpoint is the release lookup endpoint of the updater.
const DefaultUpdateEndpoint = "https://api.github.com/repos/PocketRelay/Client/releases/latest"
