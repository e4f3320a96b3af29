package mp4

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/autobrr/go-mediafix/internal/media"
)

// Fix prefixes broken with the ftyp and moov of prev and with whatever prev
// left unpaired or incomplete at its end.
func Fix(prev, broken []byte, opts media.Options) ([]byte, error) {
	log := opts.Log().WithField("format", media.FormatMP4.String())

	prevFile := Parse(prev)
	_, diverted := pairChunks(prevFile.Chunks)
	carry := leftover(diverted, prevFile.Rest)

	joined := make([]byte, 0, len(carry)+len(broken))
	joined = append(joined, carry...)
	joined = append(joined, broken...)
	current := Parse(joined)

	data, rest, err := BuildFile(current, prevFile)
	if err != nil {
		return nil, err
	}
	if opts.Debug {
		log.WithFields(logrus.Fields{
			"carry_over": len(carry),
			"chunks":     len(current.Chunks),
			"skipped":    len(current.Skipped),
			"rest":       len(rest),
			"bytes":      len(data),
		}).Debug("fixed chunk")
		if err := Display(opts.DebugWriter(), data); err != nil {
			return nil, err
		}
	}
	if current.Invalid {
		log.Warn("broken chunk contains an invalid box header, data after it was dropped")
	}
	return data, nil
}

// Merge concatenates chunks and checks that the result parses as a complete
// fragmented file. Findings are logged, not corrected.
func Merge(chunks [][]byte, opts media.Options) ([]byte, error) {
	var merged []byte
	for _, c := range chunks {
		merged = append(merged, c...)
	}

	log := opts.Log().WithFields(logrus.Fields{
		"format": media.FormatMP4.String(),
		"chunks": len(chunks),
	})
	f := Parse(merged)
	if f.Ftyp == nil {
		log.Warn("merged file has no ftyp box")
	}
	if f.Moov == nil {
		log.Warn("merged file has no moov box")
	}
	if _, diverted := pairChunks(f.Chunks); len(diverted) > 0 {
		log.WithField("boxes", len(diverted)).Warn("moof and mdat boxes do not alternate")
	}
	if len(f.Rest) > 0 {
		log.WithField("rest", len(f.Rest)).Warn("merged file ends with an incomplete box")
	}
	if f.Invalid {
		log.Warn("merged file contains an invalid box header")
	}
	return merged, nil
}

// Display lists the top-level boxes of buf with a short summary, and the
// children of moov and moof.
func Display(w io.Writer, buf []byte) error {
	bw := bufio.NewWriter(w)
	var off int64
	for off < int64(len(buf)) {
		h, err := ReadBoxHeader(buf, off)
		if err != nil {
			fmt.Fprintf(bw, "rest: %d bytes (%v)\n", int64(len(buf))-off, err)
			break
		}
		if h.End() > int64(len(buf)) {
			fmt.Fprintf(bw, "rest: %s box, %d of %d bytes\n", h.Type, int64(len(buf))-off, h.Size)
			break
		}

		payload := buf[off+h.HeaderSize : h.End()]
		line := fmt.Sprintf("box: %s, size %d", h.Type, h.Size)
		switch h.Type {
		case TypeFtyp:
			line += " - " + describeFtyp(payload)
		case TypeMdat:
			line += fmt.Sprintf(" - %d bytes of data", len(payload))
		}
		fmt.Fprintln(bw, line)
		if h.Type == TypeMoov || h.Type == TypeMoof {
			for _, child := range readChildren(payload) {
				fmt.Fprintf(bw, "  box: %s, size %d\n", child.Type, child.Size)
			}
		}
		off = h.End()
	}
	return bw.Flush()
}

func describeFtyp(payload []byte) string {
	if len(payload) < 8 {
		return "truncated"
	}
	var brands []string
	for i := 8; i+4 <= len(payload); i += 4 {
		brands = append(brands, string(payload[i:i+4]))
	}
	return fmt.Sprintf("major brand %s, minor version %d, compatible brands %s",
		payload[0:4], binary.BigEndian.Uint32(payload[4:8]), strings.Join(brands, ","))
}
