package blaze

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// Tagged value types used on the wire.
const (
	typeVarInt uint8 = 0x0
	typeString uint8 = 0x1
	typeGroup  uint8 = 0x3
	typeUnion  uint8 = 0x6
)

// groupTerm ends the fields of a group.
const groupTerm = 0x00

// Encoder encodes tagged values into the blaze wire encoding.
// Only the handful of types the redirector response needs are supported.
type Encoder struct {
	buf bytes.Buffer
}

// Bytes returns the encoded bytes.
func (e *Encoder) Bytes() []byte {
	return e.buf.Bytes()
}

// WriteUint writes a tagged unsigned integer.
func (e *Encoder) WriteUint(label string, value uint64) {
	e.writeTag(label, typeVarInt)
	e.writeVarInt(value)
}

// WriteBool writes a tagged bool as integer 0 or 1.
func (e *Encoder) WriteBool(label string, value bool) {
	if value {
		e.WriteUint(label, 1)
	} else {
		e.WriteUint(label, 0)
	}
}

// WriteString writes a tagged string.
func (e *Encoder) WriteString(label string, value string) {
	e.writeTag(label, typeString)
	e.writeVarInt(uint64(len(value) + 1))
	e.buf.WriteString(value)
	e.buf.WriteByte(0x00)
}

// WriteGroup writes a tagged group with the fields written by fn.
func (e *Encoder) WriteGroup(label string, fn func(e *Encoder)) {
	e.writeTag(label, typeGroup)
	fn(e)
	e.buf.WriteByte(groupTerm)
}

// WriteUnion writes a tagged union with the given key. fn must write
// exactly one tagged value.
func (e *Encoder) WriteUnion(label string, key uint8, fn func(e *Encoder)) {
	e.writeTag(label, typeUnion)
	e.buf.WriteByte(key)
	fn(e)
}

// writeTag writes a 4 byte tag: the 6 bit packed label and the value type.
// Labels are up to four characters of A-Z, 0-9 and space.
func (e *Encoder) writeTag(label string, typ uint8) {
	packed := packLabel(label)
	e.buf.Write(packed[:])
	e.buf.WriteByte(typ)
}

// writeVarInt writes the blaze variable length integer encoding:
// six value bits in the first byte, seven in every following byte,
// the high bit marking continuation.
func (e *Encoder) writeVarInt(value uint64) {
	if value < 0x40 {
		e.buf.WriteByte(byte(value))
		return
	}

	e.buf.WriteByte(byte(value&0x3F) | 0x80)
	value >>= 6
	for value >= 0x80 {
		e.buf.WriteByte(byte(value&0x7F) | 0x80)
		value >>= 7
	}
	e.buf.WriteByte(byte(value))
}

// packLabel packs up to four label characters into three bytes,
// six bits per character. Short labels are zero padded.
func packLabel(label string) [3]byte {
	var chars [4]byte
	copy(chars[:], label)

	var enc [4]byte
	for i, c := range chars {
		enc[i] = c & 0x3F
	}

	return [3]byte{
		enc[0]<<2 | enc[1]>>4,
		enc[1]<<4 | enc[2]>>2,
		enc[2]<<6 | enc[3],
	}
}

// unpackLabel is the reverse of packLabel.
func unpackLabel(packed [3]byte) string {
	enc := [4]byte{
		packed[0] >> 2,
		(packed[0]&0x3)<<4 | packed[1]>>4,
		(packed[1]&0xF)<<2 | packed[2]>>6,
		packed[2] & 0x3F,
	}

	label := make([]byte, 0, 4)
	for _, v := range enc {
		switch {
		case v == 0:
			// Padding.
		case v < 0x20:
			label = append(label, v|0x40)
		default:
			label = append(label, v)
		}
	}
	return string(label)
}

// Decoder decodes the subset of tagged values the Encoder writes.
type Decoder struct {
	r *bytes.Reader
}

// NewDecoder returns a decoder reading from the given bytes.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{r: bytes.NewReader(data)}
}

// ReadTag reads the next tag, returning its label and value type.
func (d *Decoder) ReadTag() (label string, typ uint8, err error) {
	var tag [4]byte
	if _, err := io.ReadFull(d.r, tag[:]); err != nil {
		return "", 0, err
	}
	return unpackLabel([3]byte(tag[:3])), tag[3], nil
}

// ReadVarInt reads a variable length integer value.
func (d *Decoder) ReadVarInt() (uint64, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		return 0, err
	}
	value := uint64(b & 0x3F)
	if b&0x80 == 0 {
		return value, nil
	}

	shift := 6
	for {
		b, err = d.r.ReadByte()
		if err != nil {
			return 0, err
		}
		value |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			return value, nil
		}
		shift += 7
		if shift > 63 {
			return 0, errors.New("varint too long")
		}
	}
}

// ReadString reads a string value.
func (d *Decoder) ReadString() (string, error) {
	length, err := d.ReadVarInt()
	if err != nil {
		return "", err
	}
	if length == 0 {
		return "", errors.New("string without terminator")
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(d.r, data); err != nil {
		return "", err
	}
	if data[length-1] != 0x00 {
		return "", fmt.Errorf("string not terminated: %q", data)
	}
	return string(data[:length-1]), nil
}

// ReadUnionKey reads the key of a union value.
func (d *Decoder) ReadUnionKey() (uint8, error) {
	return d.r.ReadByte()
}

// ReadGroupTerm reads and checks a group terminator.
func (d *Decoder) ReadGroupTerm() error {
	b, err := d.r.ReadByte()
	if err != nil {
		return err
	}
	if b != groupTerm {
		return fmt.Errorf("expected group terminator, got 0x%02x", b)
	}
	return nil
}
