package tunnel

import (
	"net/netip"

	"golang.org/x/sys/windows"
	"golang.zx2c4.com/wireguard/tun"
	"golang.zx2c4.com/wireguard/windows/tunnel/winipcfg"
)

// interfaceGUID keeps the adapter stable across restarts.
var interfaceGUID = windows.GUID{
	Data1: 0x706f636b,
	Data2: 0x6574,
	Data3: 0x7231,
	Data4: [8]byte{0x74, 0x75, 0x6e, 0x6e, 0x65, 0x6c, 0x30, 0x31},
}

func init() {
	tun.WintunTunnelType = "Pocket Relay"
	tun.WintunStaticRequestedGUID = &interfaceGUID
}

func (d *Device) luid() (winipcfg.LUID, error) {
	return winipcfg.LUIDFromGUID(&interfaceGUID)
}

// initInterface sets the virtual address on the interface.
func (d *Device) initInterface(prefix netip.Prefix) error {
	luid, err := d.luid()
	if err != nil {
		return err
	}
	return luid.AddIPAddress(prefix)
}

// startInterface brings the interface online.
// Windows interfaces come up with the adapter.
func (d *Device) startInterface() error {
	return nil
}
