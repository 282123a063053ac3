package tunnel

import (
	"fmt"
	"net/netip"

	"github.com/vishvananda/netlink"
	"go4.org/netipx"
)

func (d *Device) netLink() (netlink.Link, error) {
	// Get link by index and check if the name matches.
	nl, err := netlink.LinkByIndex(d.linkIndex)
	if err == nil && nl.Attrs().Name == d.linkName {
		return nl, nil
	}

	// Otherwise, get link by name and save the index.
	nl, err = netlink.LinkByName(d.linkName)
	if err != nil {
		return nil, fmt.Errorf("failed to get link %q by name: %w", d.linkName, err)
	}
	d.linkIndex = nl.Attrs().Index

	return nl, nil
}

// initInterface sets the virtual address on the interface.
func (d *Device) initInterface(prefix netip.Prefix) error {
	nl, err := d.netLink()
	if err != nil {
		return err
	}

	err = netlink.AddrReplace(nl, &netlink.Addr{
		IPNet: netipx.PrefixIPNet(prefix),
	})
	if err != nil {
		return fmt.Errorf("failed to set address: %w", err)
	}

	return nil
}

// startInterface brings the interface online.
func (d *Device) startInterface() error {
	nl, err := d.netLink()
	if err != nil {
		return err
	}

	if err := netlink.LinkSetUp(nl); err != nil {
		return fmt.Errorf("failed to set link to up: %w", err)
	}
	return nil
}
