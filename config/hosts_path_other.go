//go:build !windows

package config

// DefaultHostsPath is the location of the system hosts file.
const DefaultHostsPath = "/etc/hosts"
