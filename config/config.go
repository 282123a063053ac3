package config

import (
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

// Config holds initialized configuration.
type Config struct {
	Store

	APIListen netip.AddrPort

	started time.Time
}

// Parse parses a config definition and returns an initialized config.
func (s Store) Parse() (*Config, error) {
	return s.parse(false)
}

// MakeTestConfig parses and returns the given config store with loosened checks.
// If anything fails, it panics.
func MakeTestConfig(s Store) *Config {
	c, err := s.parse(true)
	if err != nil {
		panic("test config invalid: " + err.Error())
	}
	return c
}

func (s Store) parse(test bool) (*Config, error) {
	c := &Config{
		Store:   s,
		started: time.Now(),
	}

	// Basic field checks.
	if c.ConnectionURL != "" {
		if _, err := url.Parse(c.ConnectionURL); err != nil {
			return nil, fmt.Errorf("connectionUrl %q is invalid: %w", c.ConnectionURL, err)
		}
	}
	if !test && c.System.HostsPath != "" && !filepath.IsAbs(c.System.HostsPath) {
		return nil, errors.New("system.hostsPath must be an absolute path")
	}
	if !test && c.System.StatePath != "" && !filepath.IsAbs(c.System.StatePath) {
		return nil, errors.New("system.statePath must be an absolute path")
	}
	if c.System.StatePath != "" &&
		!strings.HasSuffix(c.System.StatePath, ".json") &&
		!strings.HasSuffix(c.System.StatePath, ".cbor") {
		return nil, errors.New("system.statePath must be a .json or .cbor file")
	}

	// Parse API listen address.
	apiListen := c.System.APIListen
	if apiListen == "" {
		apiListen = DefaultAPIListen
	}
	var err error
	c.APIListen, err = netip.ParseAddrPort(apiListen)
	if err != nil {
		return nil, errors.New("system.apiListen is not a valid IP and port")
	}

	// Check update endpoint.
	if c.Update.Endpoint != "" {
		u, err := url.Parse(c.Update.Endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("update.endpoint %q is not a valid URL", c.Update.Endpoint)
		}
	}

	// Apply server port defaults.
	if c.Servers.RedirectorPort == 0 {
		c.Servers.RedirectorPort = DefaultRedirectorPort
	}
	if c.Servers.BlazeProxyPort == 0 {
		c.Servers.BlazeProxyPort = DefaultBlazeProxyPort
	}
	if c.Servers.HTTPProxyPort == 0 {
		c.Servers.HTTPProxyPort = DefaultHTTPProxyPort
	}
	if c.Servers.TelemetryPort == 0 {
		c.Servers.TelemetryPort = DefaultTelemetryPort
	}
	if c.Servers.QOSPort == 0 {
		c.Servers.QOSPort = DefaultQOSPort
	}

	// Apply tunnel defaults.
	if c.Tunnel.Name == "" {
		c.Tunnel.Name = DefaultTunnelName
	}
	if c.Tunnel.Port == 0 {
		c.Tunnel.Port = DefaultTunnelPort
	}

	return c, nil
}

// HostsFilePath returns the configured or platform default hosts file path.
func (c *Config) HostsFilePath() string {
	if c.System.HostsPath != "" {
		return c.System.HostsPath
	}
	return DefaultHostsPath
}

// UpdateEndpoint returns the configured or default release lookup endpoint.
func (c *Config) UpdateEndpoint() string {
	if c.Update.Endpoint != "" {
		return c.Update.Endpoint
	}
	return DefaultUpdateEndpoint
}

// Started returns the time when the client was started.
// Measured by when the config was created.
func (c *Config) Started() time.Time {
	return c.started
}

// Uptime returns the time since the client was started.
// Measured by when the config was created.
func (c *Config) Uptime() time.Duration {
	return time.Since(c.started)
}
