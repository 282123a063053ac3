//go:build !linux && !windows

package tunnel

import (
	"errors"
	"net/netip"
)

// initInterface sets the virtual address on the interface.
func (d *Device) initInterface(prefix netip.Prefix) error {
	return errors.ErrUnsupported
}

// startInterface brings the interface online.
func (d *Device) startInterface() error {
	return errors.ErrUnsupported
}
