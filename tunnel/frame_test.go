package tunnel

import (
	"bytes"
	"encoding/binary"
	"io"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundtrip(t *testing.T) {
	t.Parallel()

	frames := []*Frame{
		{
			Src:     netip.MustParseAddr("10.40.0.2"),
			Dst:     netip.MustParseAddr("10.40.0.5"),
			SrcPort: 3659,
			DstPort: 3659,
			Payload: []byte("game data"),
		},
		{
			// No payload.
			Src: netip.MustParseAddr("10.40.0.2"),
			Dst: netip.MustParseAddr("10.40.0.3"),
		},
	}

	var buf bytes.Buffer
	for _, f := range frames {
		require.NoError(t, WriteFrame(&buf, f))
	}

	for i, expected := range frames {
		read, err := ReadFrame(&buf)
		require.NoError(t, err, "frame %d", i)
		assert.Equal(t, expected.Src, read.Src, "frame %d", i)
		assert.Equal(t, expected.Dst, read.Dst, "frame %d", i)
		assert.Equal(t, expected.SrcPort, read.SrcPort, "frame %d", i)
		assert.Equal(t, expected.DstPort, read.DstPort, "frame %d", i)
		assert.Equal(t, len(expected.Payload), len(read.Payload), "frame %d", i)
	}

	_, err := ReadFrame(&buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestFrameRejectsIPv6(t *testing.T) {
	t.Parallel()

	err := WriteFrame(io.Discard, &Frame{
		Src: netip.MustParseAddr("::1"),
		Dst: netip.MustParseAddr("10.40.0.5"),
	})
	assert.Error(t, err)
}

func TestUDPPacketRoundtrip(t *testing.T) {
	t.Parallel()

	frame := &Frame{
		Src:     netip.MustParseAddr("10.40.0.2"),
		Dst:     netip.MustParseAddr("10.40.0.9"),
		SrcPort: 3659,
		DstPort: 17000,
		Payload: []byte("peer to peer payload"),
	}

	packet := buildUDPPacket(frame)
	require.Len(t, packet, ipv4HeaderSize+udpHeaderSize+len(frame.Payload))

	// Header sanity: version 4, protocol UDP, valid checksum.
	assert.Equal(t, byte(4), packet[0]>>4)
	assert.Equal(t, byte(protocolUDP), packet[9])
	sum := binary.BigEndian.Uint16(packet[10:12])
	assert.Equal(t, headerChecksum(packet[:ipv4HeaderSize]), sum)

	parsed, ok := parseUDPPacket(packet)
	require.True(t, ok)
	assert.Equal(t, frame.Src, parsed.Src)
	assert.Equal(t, frame.Dst, parsed.Dst)
	assert.Equal(t, frame.SrcPort, parsed.SrcPort)
	assert.Equal(t, frame.DstPort, parsed.DstPort)
	assert.Equal(t, frame.Payload, parsed.Payload)
}

func TestParseUDPPacketRejectsOther(t *testing.T) {
	t.Parallel()

	// Too short.
	_, ok := parseUDPPacket([]byte{0x45})
	assert.False(t, ok)

	// IPv6.
	packet := buildUDPPacket(&Frame{
		Src: netip.MustParseAddr("10.40.0.2"),
		Dst: netip.MustParseAddr("10.40.0.9"),
	})
	packet[0] = 6 << 4
	_, ok = parseUDPPacket(packet)
	assert.False(t, ok)

	// TCP.
	packet = buildUDPPacket(&Frame{
		Src: netip.MustParseAddr("10.40.0.2"),
		Dst: netip.MustParseAddr("10.40.0.9"),
	})
	packet[9] = 6
	_, ok = parseUDPPacket(packet)
	assert.False(t, ok)
}
