package tunnel

import (
	"encoding/binary"
	"fmt"
	"io"
	"net/netip"
)

// frameHeaderSize is the fixed frame header: source and destination
// address, source and destination port.
const frameHeaderSize = 12

// maxFramePayload is the largest UDP payload a frame can carry.
const maxFramePayload = 65507

// Frame is one UDP payload crossing the tunnel, addressed with the virtual
// tunnel addresses.
type Frame struct {
	Src     netip.Addr
	Dst     netip.Addr
	SrcPort uint16
	DstPort uint16
	Payload []byte
}

// WriteFrame writes a length-prefixed frame to the given writer.
func WriteFrame(w io.Writer, f *Frame) error {
	if len(f.Payload) > maxFramePayload {
		return fmt.Errorf("frame payload of %d bytes exceeds limit", len(f.Payload))
	}
	if !f.Src.Is4() || !f.Dst.Is4() {
		return fmt.Errorf("frame addresses must be IPv4: %s -> %s", f.Src, f.Dst)
	}

	buf := make([]byte, 0, 2+frameHeaderSize+len(f.Payload))
	buf = binary.BigEndian.AppendUint16(buf, uint16(frameHeaderSize+len(f.Payload)))
	src, dst := f.Src.As4(), f.Dst.As4()
	buf = append(buf, src[:]...)
	buf = append(buf, dst[:]...)
	buf = binary.BigEndian.AppendUint16(buf, f.SrcPort)
	buf = binary.BigEndian.AppendUint16(buf, f.DstPort)
	buf = append(buf, f.Payload...)

	_, err := w.Write(buf)
	return err
}

// ReadFrame reads a single length-prefixed frame from the given reader.
func ReadFrame(r io.Reader) (*Frame, error) {
	lenBuf := make([]byte, 2)
	if _, err := io.ReadFull(r, lenBuf); err != nil {
		return nil, err
	}
	length := int(binary.BigEndian.Uint16(lenBuf))
	if length < frameHeaderSize {
		return nil, fmt.Errorf("frame of %d bytes is too short", length)
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}

	return &Frame{
		Src:     netip.AddrFrom4([4]byte(buf[0:4])),
		Dst:     netip.AddrFrom4([4]byte(buf[4:8])),
		SrcPort: binary.BigEndian.Uint16(buf[8:10]),
		DstPort: binary.BigEndian.Uint16(buf[10:12]),
		Payload: buf[frameHeaderSize:],
	}, nil
}
