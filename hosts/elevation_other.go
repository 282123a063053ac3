//go:build !windows

package hosts

import "os"

const permissionRemedy = "run the client as root or via sudo"

// Elevated reports whether the process runs with root rights.
func Elevated() bool {
	return os.Geteuid() == 0
}
