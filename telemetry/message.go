package telemetry

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// messageHeaderSize is the size of the telemetry message header. The
// big-endian total message length sits in its last two bytes.
const messageHeaderSize = 12

// tlm3Key deciphers TLM3 telemetry lines.
var tlm3Key = []byte("The truth is back in style.")

// Message is a decoded telemetry message: key value pairs in wire order.
type Message struct {
	Values [][2]string `json:"values"`
}

// ReadMessage reads and decodes a single telemetry message.
func ReadMessage(r io.Reader) (*Message, error) {
	header := make([]byte, messageHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	// The length includes the header itself.
	length := int(binary.BigEndian.Uint16(header[10:12]))
	length = max(length-messageHeaderSize, 0)

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("read message body: %w", err)
	}

	return decodeMessage(body), nil
}

// decodeMessage splits the message body into key value lines and deciphers
// the TLM3 payload line.
func decodeMessage(body []byte) *Message {
	message := &Message{}
	for _, line := range bytes.Split(body, []byte{'\n'}) {
		key, value, found := bytes.Cut(line, []byte{'='})
		if !found {
			continue
		}

		if string(key) == "TLM3" {
			message.Values = append(message.Values, [2]string{"TLM3", decipherTLM3(value)})
			continue
		}
		message.Values = append(message.Values, [2]string{string(key), string(value)})
	}
	return message
}

// decipherTLM3 deciphers the TLM3 value: everything after the first dash is
// run through the xor cipher.
func decipherTLM3(value []byte) string {
	_, payload, found := bytes.Cut(value, []byte{'-'})
	if !found {
		return string(value)
	}
	return string(xorCipher(payload, tlm3Key))
}

// xorCipher is its own inverse for bytes below 0x80, which is all the
// telemetry line contains.
func xorCipher(input, key []byte) []byte {
	out := make([]byte, len(input))
	for i, b := range input {
		out[i] = (b ^ key[i%len(key)]) % 0x80
	}
	return out
}
