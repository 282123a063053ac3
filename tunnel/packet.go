package tunnel

import (
	"encoding/binary"
	"net/netip"
)

// IPv4 header constants for the packets crossing the tun interface.
const (
	ipv4HeaderSize = 20
	udpHeaderSize  = 8
	protocolUDP    = 17
	defaultTTL     = 64
)

// parseUDPPacket extracts the UDP addressing and payload from a raw IPv4
// packet. Anything that is not plain IPv4/UDP is reported as not ok.
func parseUDPPacket(packet []byte) (*Frame, bool) {
	if len(packet) < ipv4HeaderSize+udpHeaderSize {
		return nil, false
	}
	if packet[0]>>4 != 4 {
		return nil, false
	}

	headerLen := int(packet[0]&0x0F) * 4
	if headerLen < ipv4HeaderSize || len(packet) < headerLen+udpHeaderSize {
		return nil, false
	}
	if packet[9] != protocolUDP {
		return nil, false
	}

	udp := packet[headerLen:]
	return &Frame{
		Src:     netip.AddrFrom4([4]byte(packet[12:16])),
		Dst:     netip.AddrFrom4([4]byte(packet[16:20])),
		SrcPort: binary.BigEndian.Uint16(udp[0:2]),
		DstPort: binary.BigEndian.Uint16(udp[2:4]),
		Payload: udp[udpHeaderSize:],
	}, true
}

// buildUDPPacket assembles a raw IPv4/UDP packet from a tunnel frame.
func buildUDPPacket(f *Frame) []byte {
	total := ipv4HeaderSize + udpHeaderSize + len(f.Payload)
	packet := make([]byte, total)

	// IPv4 header.
	packet[0] = 4<<4 | ipv4HeaderSize/4
	binary.BigEndian.PutUint16(packet[2:4], uint16(total))
	packet[8] = defaultTTL
	packet[9] = protocolUDP
	src, dst := f.Src.As4(), f.Dst.As4()
	copy(packet[12:16], src[:])
	copy(packet[16:20], dst[:])
	binary.BigEndian.PutUint16(packet[10:12], headerChecksum(packet[:ipv4HeaderSize]))

	// UDP header. The checksum is optional over IPv4 and left zero.
	udp := packet[ipv4HeaderSize:]
	binary.BigEndian.PutUint16(udp[0:2], f.SrcPort)
	binary.BigEndian.PutUint16(udp[2:4], f.DstPort)
	binary.BigEndian.PutUint16(udp[4:6], uint16(udpHeaderSize+len(f.Payload)))
	copy(udp[udpHeaderSize:], f.Payload)

	return packet
}

// headerChecksum computes the IPv4 header checksum with the checksum field
// itself zeroed.
func headerChecksum(header []byte) uint16 {
	var sum uint32
	for i := 0; i < len(header); i += 2 {
		if i == 10 {
			continue
		}
		sum += uint32(binary.BigEndian.Uint16(header[i : i+2]))
	}
	for sum > 0xFFFF {
		sum = sum>>16 + sum&0xFFFF
	}
	return ^uint16(sum)
}
