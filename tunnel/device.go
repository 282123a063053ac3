package tunnel

import (
	"fmt"
	"net/netip"

	"golang.zx2c4.com/wireguard/tun"
)

// Tunnel interface parameters. The /16 matches the virtual address block
// the server assigns from.
const (
	deviceMTU        = 1500
	devicePrefixBits = 16
)

// writeOffset is the headroom wireguard needs in front of written packets.
// On Linux it holds the virtio-net header and writes with less are rejected.
const writeOffset = 10

// Device is the tun interface carrying the game's virtual peer traffic.
type Device struct {
	linkName  string
	linkIndex int

	tun     tun.Device
	address netip.Prefix
}

// CreateDevice creates a tun device with the given virtual address and
// brings it online.
func CreateDevice(linkName string, addr netip.Addr) (*Device, error) {
	address := netip.PrefixFrom(addr, devicePrefixBits)
	if !address.IsValid() {
		return nil, fmt.Errorf("virtual address %v is invalid", addr)
	}

	t, err := tun.CreateTUN(linkName, deviceMTU)
	if err != nil {
		return nil, fmt.Errorf("create tun device: %w", err)
	}

	d := &Device{
		linkName: linkName,
		tun:      t,
		address:  address,
	}

	if err := d.initInterface(address); err != nil {
		_ = t.Close()
		return nil, fmt.Errorf("failed to set address %v: %w", address, err)
	}
	if err := d.startInterface(); err != nil {
		_ = t.Close()
		return nil, err
	}

	return d, nil
}

// Address returns the virtual interface address.
func (d *Device) Address() netip.Prefix {
	return d.address
}

// ReadPacket reads a single raw packet from the device.
func (d *Device) ReadPacket(buf []byte) ([]byte, error) {
	sizes := make([]int, 1)
	_, err := d.tun.Read([][]byte{buf}, sizes, 0)
	if err != nil {
		return nil, err
	}
	return buf[:sizes[0]], nil
}

// WritePacket writes a single raw packet to the device.
func (d *Device) WritePacket(packet []byte) error {
	buf := make([]byte, writeOffset+len(packet))
	copy(buf[writeOffset:], packet)
	_, err := d.tun.Write([][]byte{buf}, writeOffset)
	return err
}

// Close closes the device.
func (d *Device) Close() error {
	return d.tun.Close()
}
