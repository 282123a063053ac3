package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	t.Parallel()

	c, err := Store{}.Parse()
	require.NoError(t, err, "empty store must parse")

	assert.Equal(t, DefaultRedirectorPort, c.Servers.RedirectorPort)
	assert.Equal(t, DefaultBlazeProxyPort, c.Servers.BlazeProxyPort)
	assert.Equal(t, DefaultHTTPProxyPort, c.Servers.HTTPProxyPort)
	assert.Equal(t, DefaultTelemetryPort, c.Servers.TelemetryPort)
	assert.Equal(t, DefaultQOSPort, c.Servers.QOSPort)
	assert.Equal(t, DefaultAPIListen, c.APIListen.String())
	assert.Equal(t, DefaultHostsPath, c.HostsFilePath())
	assert.Equal(t, DefaultUpdateEndpoint, c.UpdateEndpoint())
	assert.Equal(t, DefaultTunnelName, c.Tunnel.Name)
	assert.Equal(t, DefaultTunnelPort, c.Tunnel.Port)
}

func TestParseChecks(t *testing.T) {
	t.Parallel()

	_, err := Store{
		System: System{APIListen: "localhost:1234"},
	}.Parse()
	assert.Error(t, err, "api listen must be an IP and port")

	_, err = Store{
		System: System{StatePath: "/var/lib/pocket-relay/state.toml"},
	}.Parse()
	assert.Error(t, err, "state path must be json or cbor")

	_, err = Store{
		System: System{StatePath: "state.json"},
	}.Parse()
	assert.Error(t, err, "state path must be absolute")

	_, err = Store{
		Update: Update{Endpoint: "not a url\x00"},
	}.Parse()
	assert.Error(t, err, "update endpoint must be a valid URL")

	c, err := Store{
		ConnectionURL: "https://relay.example.com:8080",
		System: System{
			StatePath: "/var/lib/pocket-relay/state.cbor",
			APIListen: "127.0.0.1:9000",
		},
	}.Parse()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", c.APIListen.String())
}

func TestStoreClone(t *testing.T) {
	t.Parallel()

	s := Store{
		ConnectionURL: "relay.example.com",
		Servers:       Servers{QOSPort: 10000},
	}
	cloned, err := s.Clone()
	require.NoError(t, err)

	cloned.Servers.QOSPort = 20000
	assert.Equal(t, uint16(10000), s.Servers.QOSPort, "clone must not share state")
}

func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := Store{
		ConnectionURL: "relay.example.com:8080",
		System: System{
			APIListen: "127.0.0.1:9000",
		},
		Update: Update{Disable: true},
	}

	for _, name := range []string{"config.json", "config.yaml"} {
		filename := filepath.Join(dir, name)
		require.NoError(t, s.SaveTo(filename), name)

		c, err := LoadConfig(filename)
		require.NoError(t, err, name)
		assert.Equal(t, s.ConnectionURL, c.ConnectionURL, name)
		assert.True(t, c.Update.Disable, name)
		assert.Equal(t, "127.0.0.1:9000", c.APIListen.String(), name)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Parallel()

	c, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err, "missing config file must not be an error")
	assert.Equal(t, "", c.ConnectionURL)
}
