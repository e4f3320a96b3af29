// Package ebmltest builds small WebM byte streams for tests.
package ebmltest

import (
	"encoding/binary"

	"github.com/autobrr/go-mediafix/internal/ebml"
)

const (
	IDDocType       = 0x4282
	IDInfo          = 0x1549A966
	IDTimecodeScale = 0x2AD7B1
	IDMuxingApp     = 0x4D80
	IDTracks        = 0x1654AE6B
	IDTrackEntry    = 0xAE
	IDTrackNumber   = 0xD7
	IDTrackType     = 0x83
	IDCodecID       = 0x86
)

func ID(id uint64) []byte {
	switch {
	case id <= 0xFF:
		return []byte{byte(id)}
	case id <= 0xFFFF:
		return []byte{byte(id >> 8), byte(id)}
	case id <= 0xFFFFFF:
		return []byte{byte(id >> 16), byte(id >> 8), byte(id)}
	default:
		return []byte{byte(id >> 24), byte(id >> 16), byte(id >> 8), byte(id)}
	}
}

// Size encodes n with the smallest VarInt width.
func Size(n uint64) []byte {
	out, err := ebml.EncodeVarInt(n, ebml.VarIntLength(n))
	if err != nil {
		panic(err)
	}
	return out
}

func Uint(v uint64) []byte {
	out := []byte{byte(v)}
	for v >>= 8; v > 0; v >>= 8 {
		out = append([]byte{byte(v)}, out...)
	}
	return out
}

func Element(id uint64, payload ...[]byte) []byte {
	body := concat(payload...)
	out := append(ID(id), Size(uint64(len(body)))...)
	return append(out, body...)
}

// UnknownSizeElement encodes a master whose size field is the one-byte
// "unknown" marker.
func UnknownSizeElement(id uint64, payload ...[]byte) []byte {
	out := append(ID(id), ebml.EncodeUnknownSize(1)...)
	return append(out, concat(payload...)...)
}

// EBMLHeader is an EBML header declaring a webm document.
func EBMLHeader() []byte {
	return Element(ebml.IDEBML,
		Element(0x4286, Uint(1)),
		Element(0x42F7, Uint(1)),
		Element(0x42F2, Uint(4)),
		Element(0x42F3, Uint(8)),
		Element(IDDocType, []byte("webm")),
		Element(0x4287, Uint(4)),
		Element(0x4285, Uint(2)),
	)
}

func Info() []byte {
	return Element(IDInfo,
		Element(IDTimecodeScale, Uint(1000000)),
		Element(IDMuxingApp, []byte("ebmltest")),
	)
}

// Tracks declares a single Opus audio track with number 1.
func Tracks() []byte {
	return Element(IDTracks,
		Element(IDTrackEntry,
			Element(IDTrackNumber, Uint(1)),
			Element(IDTrackType, Uint(2)),
			Element(IDCodecID, []byte("A_OPUS")),
		),
	)
}

func SimpleBlock(track uint64, timecode int16, keyframe bool, frame []byte) []byte {
	flags := byte(0)
	if keyframe {
		flags |= 0x80
	}
	body := Size(track)
	body = binary.BigEndian.AppendUint16(body, uint16(timecode))
	body = append(body, flags)
	body = append(body, frame...)
	return Element(ebml.IDSimpleBlock, body)
}

// Cluster is a sized cluster holding a Timecode and the given children.
func Cluster(timecode uint64, children ...[]byte) []byte {
	return Element(ebml.IDCluster, append([][]byte{Element(ebml.IDTimecode, Uint(timecode))}, children...)...)
}

// LiveCluster is an unknown-size cluster, as written by live recorders.
func LiveCluster(timecode uint64, children ...[]byte) []byte {
	return UnknownSizeElement(ebml.IDCluster, append([][]byte{Element(ebml.IDTimecode, Uint(timecode))}, children...)...)
}

// Recording is a complete live stream: EBML header and an unknown-size
// Segment with Info, Tracks and the given clusters.
func Recording(clusters ...[]byte) []byte {
	segment := UnknownSizeElement(ebml.IDSegment, append([][]byte{Info(), Tracks()}, clusters...)...)
	return append(EBMLHeader(), segment...)
}

// Blocks returns n keyframe SimpleBlocks on track 1, step apart starting at
// first.
func Blocks(n int, first, step int16) [][]byte {
	out := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, SimpleBlock(1, first+int16(i)*step, true, []byte{0xF8, 0xFF, 0xFE}))
	}
	return out
}

func concat(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
