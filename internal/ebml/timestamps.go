package ebml

import (
	"encoding/binary"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/autobrr/go-mediafix/internal/media"
)

// DefaultTimestampDelta is the assumed interval between blocks, in timecode
// units, before the stream has shown its own cadence.
const DefaultTimestampDelta = 60

// timestampFixer rewrites Timecode and block timecodes so time keeps moving
// forward across a splice. Block bookkeeping is in absolute time (cluster
// timecode plus relative block timecode); the bytes written stay relative.
//
// Elements starting before preserveBefore are never rewritten. Their raw
// values calibrate the fixer instead.
type timestampFixer struct {
	log            logrus.FieldLogger
	clamp          bool
	preserveBefore int

	isFirstBlock    bool
	firstBlockDelay int64
	lastTimecode    int64
	lastTimestamp   int64
	delta           int64
}

func newTimestampFixer(opts media.Options) *timestampFixer {
	return &timestampFixer{
		log:          opts.Log(),
		clamp:        opts.ClampTimestampJumps,
		isFirstBlock: true,
		delta:        DefaultTimestampDelta,
	}
}

func (f *timestampFixer) timecode(d *Decoder, el *Element) {
	if !el.Value.Valid || len(el.Data) > 8 {
		return
	}
	if el.Start < f.preserveBefore {
		raw := int64(el.Value.Uint)
		f.lastTimecode, f.lastTimestamp, f.firstBlockDelay = raw, raw, 0
		return
	}

	corrected := f.lastTimestamp
	if !f.isFirstBlock {
		corrected += f.delta
	}
	if corrected < 0 {
		corrected = 0
	}
	f.lastTimecode, f.lastTimestamp, f.firstBlockDelay = corrected, corrected, 0

	if uint64(corrected) == el.Value.Uint && len(el.Data) > 0 {
		return
	}
	if err := d.writeUnsigned(el, uint64(corrected)); err != nil {
		f.log.WithError(err).WithField("offset", el.Start).Warn("timecode left unchanged")
	}
}

func (f *timestampFixer) block(el *Element) {
	b := el.Block
	raw := int64(b.Timecode)
	if el.Start < f.preserveBefore {
		f.isFirstBlock = false
		abs := f.lastTimecode + raw
		f.delta = abs - f.lastTimestamp
		f.lastTimestamp = abs
		return
	}

	if f.isFirstBlock {
		f.firstBlockDelay = raw - f.lastTimecode
		f.isFirstBlock = false
	}
	rel := raw - f.firstBlockDelay
	abs := f.lastTimecode + rel
	if f.clamp && abs-f.lastTimestamp > 2*DefaultTimestampDelta {
		abs = f.lastTimestamp + DefaultTimestampDelta
		rel = abs - f.lastTimecode
	}
	f.delta = abs - f.lastTimestamp
	f.lastTimestamp = abs

	if rel == raw {
		return
	}
	if rel < math.MinInt16 || rel > math.MaxInt16 {
		f.log.WithFields(logrus.Fields{
			"offset":   el.Start,
			"timecode": rel,
		}).Warn("block timecode out of range, left unchanged")
		return
	}
	off := b.timecodeOffset()
	binary.BigEndian.PutUint16(el.Data[off:off+2], uint16(int16(rel)))
	b.Timecode = int16(rel)
}
