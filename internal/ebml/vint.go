package ebml

import (
	"errors"
	"fmt"
	"math/bits"
)

// UnknownSize is the decoded value of an all-ones size field. It marks an
// element whose extent runs to the end of its parent.
const UnknownSize int64 = -1

const maxVarIntLength = 8

var (
	// ErrIncomplete means the buffer ended inside a VarInt. It is never fatal:
	// the caller should retry once more bytes are available.
	ErrIncomplete = errors.New("ebml: incomplete input")
	// ErrUnrepresentableLength is returned for a first byte of 0x00, whose
	// length marker would sit beyond the eighth byte.
	ErrUnrepresentableLength = errors.New("ebml: unrepresentable varint length")
	ErrVarIntOverflow        = errors.New("ebml: value does not fit varint width")
)

type VarInt struct {
	Value  int64
	Length int
}

// varIntLength returns the encoded width announced by the marker bit of first.
//
//	1xxxxxxx                                  -> 1
//	01xxxxxx xxxxxxxx                         -> 2
//	...
//	00000001 xxxxxxxx ... xxxxxxxx            -> 8
func varIntLength(first byte) int {
	return bits.LeadingZeros8(first) + 1
}

// ReadVarInt decodes the size-style VarInt at off, with the marker bit removed.
func ReadVarInt(buf []byte, off int) (VarInt, error) {
	if off >= len(buf) {
		return VarInt{}, ErrIncomplete
	}
	first := buf[off]
	length := varIntLength(first)
	if length > maxVarIntLength {
		return VarInt{}, fmt.Errorf("%w: first byte 0x%02X at offset %d", ErrUnrepresentableLength, first, off)
	}
	if off+length > len(buf) {
		return VarInt{}, ErrIncomplete
	}

	value := uint64(first & (0xFF >> uint(length)))
	for i := 1; i < length; i++ {
		value = value<<8 | uint64(buf[off+i])
	}
	if value == reservedValue(length) {
		return VarInt{Value: UnknownSize, Length: length}, nil
	}
	return VarInt{Value: int64(value), Length: length}, nil
}

// ReadElementID decodes an element ID. IDs keep their marker bit, so 0x1A45DFA3
// reads back as 0x1A45DFA3.
func ReadElementID(buf []byte, off int) (uint64, int, error) {
	if off >= len(buf) {
		return 0, 0, ErrIncomplete
	}
	length := varIntLength(buf[off])
	if length > maxVarIntLength {
		return 0, 0, fmt.Errorf("%w: first byte 0x00 at offset %d", ErrUnrepresentableLength, off)
	}
	if off+length > len(buf) {
		return 0, 0, ErrIncomplete
	}
	var id uint64
	for i := 0; i < length; i++ {
		id = id<<8 | uint64(buf[off+i])
	}
	return id, length, nil
}

// reservedValue is the all-ones payload for a VarInt of the given width.
func reservedValue(length int) uint64 {
	return uint64(1)<<(7*uint(length)) - 1
}

// VarIntLength returns the smallest width able to carry v.
func VarIntLength(v uint64) int {
	for length := 1; length <= maxVarIntLength; length++ {
		if v < reservedValue(length) {
			return length
		}
	}
	return 0
}

// EncodeVarInt writes v using exactly length bytes.
func EncodeVarInt(v uint64, length int) ([]byte, error) {
	if length < 1 || length > maxVarIntLength {
		return nil, fmt.Errorf("%w: width %d", ErrUnrepresentableLength, length)
	}
	if v >= reservedValue(length) {
		return nil, fmt.Errorf("%w: %d in %d bytes", ErrVarIntOverflow, v, length)
	}
	out := make([]byte, length)
	for i := length - 1; i >= 0; i-- {
		out[i] = byte(v)
		v >>= 8
	}
	out[0] |= 0x80 >> uint(length-1)
	return out, nil
}

// EncodeUnknownSize returns the reserved "size unknown" marker of the given width.
func EncodeUnknownSize(length int) []byte {
	if length < 1 || length > maxVarIntLength {
		length = maxVarIntLength
	}
	out := make([]byte, length)
	for i := range out {
		out[i] = 0xFF
	}
	out[0] = 0xFF >> uint(length-1)
	return out
}
