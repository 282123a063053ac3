// Package blaze implements the small part of the blaze protocol the local
// game-facing servers need: the packet framing, a minimal tagged value
// encoding and the redirector handshake.
package blaze

import (
	"encoding/binary"
	"fmt"
	"io"
)

// PacketType is the type of a packet.
type PacketType uint8

// The different types of packets.
const (
	// TypeRequest are ID counted request packets (0x00).
	TypeRequest PacketType = 0x00
	// TypeResponse are packets responding to requests (0x10).
	TypeResponse PacketType = 0x10
	// TypeNotify are unique packets coming from the server (0x20).
	TypeNotify PacketType = 0x20
	// TypeError are error packets (0x30).
	TypeError PacketType = 0x30
)

// optionExtendedLength marks a packet with content larger than 64KiB.
const optionExtendedLength = 0x10

// headerSize is the size of the packet header on the wire.
const headerSize = 12

// maxPacketSize is the sanity limit for packet contents read from a client.
const maxPacketSize = 1 << 20

// Header identifies a packet and comes before the packet content.
type Header struct {
	// Component is the component of this packet.
	Component uint16
	// Command is the command of this packet.
	Command uint16
	// Error is a possible error this packet carries (zero is none).
	Error uint16
	// Type is the type of this packet.
	Type PacketType
	// ID is the unique ID of this packet (zero for notify packets).
	ID uint16
}

// Packet is a single blaze packet: a header plus encoded contents.
type Packet struct {
	Header   Header
	Contents []byte
}

// Response returns a response packet to this packet with the given contents.
func (p *Packet) Response(contents []byte) *Packet {
	header := p.Header
	header.Type = TypeResponse
	return &Packet{
		Header:   header,
		Contents: contents,
	}
}

// ResponseEmpty returns a response packet to this packet without contents.
func (p *Packet) ResponseEmpty() *Packet {
	return p.Response(nil)
}

// WritePacket writes the packet to the given writer.
func WritePacket(w io.Writer, p *Packet) error {
	length := len(p.Contents)
	extended := length > 0xFFFF

	buf := make([]byte, 0, headerSize+2+length)
	buf = binary.BigEndian.AppendUint16(buf, uint16(length))
	buf = binary.BigEndian.AppendUint16(buf, p.Header.Component)
	buf = binary.BigEndian.AppendUint16(buf, p.Header.Command)
	buf = binary.BigEndian.AppendUint16(buf, p.Header.Error)
	buf = append(buf, byte(p.Header.Type))
	if extended {
		buf = append(buf, optionExtendedLength)
	} else {
		buf = append(buf, 0x00)
	}
	buf = binary.BigEndian.AppendUint16(buf, p.Header.ID)
	if extended {
		buf = binary.BigEndian.AppendUint16(buf, uint16(length>>16))
	}
	buf = append(buf, p.Contents...)

	_, err := w.Write(buf)
	return err
}

// ReadPacket reads a single packet from the given reader.
func ReadPacket(r io.Reader) (*Packet, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	length := int(binary.BigEndian.Uint16(header[0:2]))
	p := &Packet{
		Header: Header{
			Component: binary.BigEndian.Uint16(header[2:4]),
			Command:   binary.BigEndian.Uint16(header[4:6]),
			Error:     binary.BigEndian.Uint16(header[6:8]),
			Type:      PacketType(header[8]),
			ID:        binary.BigEndian.Uint16(header[10:12]),
		},
	}

	// Packets larger than 64KiB carry two extra length bytes.
	if header[9] == optionExtendedLength {
		ext := make([]byte, 2)
		if _, err := io.ReadFull(r, ext); err != nil {
			return nil, err
		}
		length |= int(binary.BigEndian.Uint16(ext)) << 16
	}

	if length > maxPacketSize {
		return nil, fmt.Errorf("packet content of %d bytes exceeds limit", length)
	}

	if length > 0 {
		p.Contents = make([]byte, length)
		if _, err := io.ReadFull(r, p.Contents); err != nil {
			return nil, err
		}
	}
	return p, nil
}
