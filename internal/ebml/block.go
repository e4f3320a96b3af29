package ebml

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/icza/bitio"
)

var errShortBlock = errors.New("ebml: block header truncated")

// ParseBlock decomposes a Block or SimpleBlock payload.
//
//	track number   varint
//	timecode       int16, relative to the cluster timecode
//	flags          1 byte
//	frame data     rest
//
// SimpleBlock flags are keyframe(1) reserved(3) invisible(1) lacing(2)
// discardable(1). Block flags are reserved(4) invisible(1) lacing(2) reserved(1).
func ParseBlock(data []byte, simple bool) (*Block, error) {
	track, err := ReadVarInt(data, 0)
	if err != nil {
		return nil, fmt.Errorf("track number: %w", err)
	}
	if track.Value == UnknownSize {
		return nil, fmt.Errorf("track number: %w", ErrVarIntOverflow)
	}
	n := track.Length
	if len(data) < n+3 {
		return nil, errShortBlock
	}

	block := &Block{
		Track:       uint64(track.Value),
		TrackLength: n,
		Timecode:    int16(binary.BigEndian.Uint16(data[n : n+2])),
		Payload:     data[n+3:],
	}

	r := bitio.NewReader(bytes.NewReader(data[n+2 : n+3]))
	if simple {
		keyframe, err := r.ReadBits(1)
		if err != nil {
			return nil, err
		}
		block.Keyframe = keyframe == 1
		if _, err := r.ReadBits(3); err != nil {
			return nil, err
		}
	} else {
		if _, err := r.ReadBits(4); err != nil {
			return nil, err
		}
	}

	invisible, err := r.ReadBits(1)
	if err != nil {
		return nil, err
	}
	block.Invisible = invisible == 1

	lacing, err := r.ReadBits(2)
	if err != nil {
		return nil, err
	}
	block.Lacing = uint8(lacing)

	last, err := r.ReadBits(1)
	if err != nil {
		return nil, err
	}
	if simple {
		block.Discardable = last == 1
	}
	return block, nil
}

// timecodeOffset is the offset of the relative timecode inside the payload.
func (b *Block) timecodeOffset() int {
	return b.TrackLength
}
