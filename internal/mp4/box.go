// Package mp4 repairs fragmented ISO-BMFF (MP4) chunks.
package mp4

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	TypeFtyp = "ftyp"
	TypeMoov = "moov"
	TypeMoof = "moof"
	TypeMdat = "mdat"
)

var (
	errIncompleteHeader = errors.New("mp4: incomplete box header")
	errInvalidSize      = errors.New("mp4: invalid box size")
)

// BoxHeader locates one box inside a buffer.
type BoxHeader struct {
	Type       string
	Offset     int64
	Size       int64
	HeaderSize int64
}

func (h BoxHeader) End() int64 { return h.Offset + h.Size }

// ReadBoxHeader reads the box header at offset. A 32-bit size of 1 means a
// 64-bit size follows the type; a size of 0 means the box runs to the end
// of buf.
func ReadBoxHeader(buf []byte, offset int64) (BoxHeader, error) {
	if offset < 0 || offset+8 > int64(len(buf)) {
		return BoxHeader{}, errIncompleteHeader
	}
	size32 := binary.BigEndian.Uint32(buf[offset : offset+4])
	h := BoxHeader{
		Type:       string(buf[offset+4 : offset+8]),
		Offset:     offset,
		HeaderSize: 8,
	}
	switch {
	case size32 == 0:
		h.Size = int64(len(buf)) - offset
	case size32 == 1:
		if offset+16 > int64(len(buf)) {
			return BoxHeader{}, errIncompleteHeader
		}
		size64 := binary.BigEndian.Uint64(buf[offset+8 : offset+16])
		if size64 < 16 || size64 > 1<<62 {
			return BoxHeader{}, fmt.Errorf("%w: %d for %q at offset %d", errInvalidSize, size64, h.Type, offset)
		}
		h.Size = int64(size64)
		h.HeaderSize = 16
	case size32 < 8:
		return BoxHeader{}, fmt.Errorf("%w: %d for %q at offset %d", errInvalidSize, size32, h.Type, offset)
	default:
		h.Size = int64(size32)
	}
	return h, nil
}

// readChildren lists the boxes directly inside payload. Listing stops at
// the first header that does not fit.
func readChildren(payload []byte) []BoxHeader {
	var children []BoxHeader
	var off int64
	for off < int64(len(payload)) {
		h, err := ReadBoxHeader(payload, off)
		if err != nil || h.End() > int64(len(payload)) {
			break
		}
		children = append(children, h)
		off = h.End()
	}
	return children
}
