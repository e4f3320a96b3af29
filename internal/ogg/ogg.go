package ogg

import (
	"bufio"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/autobrr/go-mediafix/internal/media"
)

// Fix completes broken with the metadata pages of prev. A page prev left
// incomplete is finished with the start of broken.
func Fix(prev, broken []byte, opts media.Options) ([]byte, error) {
	log := opts.Log().WithField("format", media.FormatOGG.String())

	prevFile := Parse(prev)
	joined := make([]byte, 0, len(prevFile.Rest)+len(broken))
	joined = append(joined, prevFile.Rest...)
	joined = append(joined, broken...)
	current := Parse(joined)

	// The leftover of prev is already at the front of current.
	context := *prevFile
	context.Rest = nil

	data, rest, err := BuildFile(current, &context)
	if err != nil {
		return nil, err
	}
	if opts.Debug {
		log.WithFields(logrus.Fields{
			"carry_over": len(prevFile.Rest),
			"pages":      len(current.Pages),
			"rest":       len(rest),
			"bytes":      len(data),
		}).Debug("fixed chunk")
		if err := Display(opts.DebugWriter(), data); err != nil {
			return nil, err
		}
	}
	if current.Invalid {
		log.Warn("broken chunk contains bytes that are not an OGG page, data after them was dropped")
	}
	return data, nil
}

// Merge concatenates chunks and checks that the result is a sequence of
// whole pages starting with metadata. Findings are logged, not corrected.
func Merge(chunks [][]byte, opts media.Options) ([]byte, error) {
	var merged []byte
	for _, c := range chunks {
		merged = append(merged, c...)
	}

	log := opts.Log().WithFields(logrus.Fields{
		"format": media.FormatOGG.String(),
		"chunks": len(chunks),
	})
	f := Parse(merged)
	if len(f.Metadata()) == 0 {
		log.Warn("merged file has no metadata pages")
	}
	if f.Incomplete {
		log.WithField("rest", len(f.Rest)).Warn("merged file ends with an incomplete page")
	}
	if f.Invalid {
		log.Warn("merged file contains bytes that are not an OGG page")
	}
	return merged, nil
}

// Display writes one line per page.
func Display(w io.Writer, buf []byte) error {
	bw := bufio.NewWriter(w)
	f := Parse(buf)
	for i, p := range f.Pages {
		h := p.Header
		flags := ""
		if h.BeginOfStr {
			flags += " bos"
		}
		if h.EndOfStr {
			flags += " eos"
		}
		if h.Continued {
			flags += " continued"
		}
		fmt.Fprintf(bw, "page %d: %s, serial %d, sequence %d, granule %d, size %d%s\n",
			i, p.Type, h.Serial, h.Sequence, h.Granule, h.Size, flags)
	}
	if f.Incomplete {
		fmt.Fprintf(bw, "rest: %d bytes\n", len(f.Rest))
	}
	if f.Invalid {
		fmt.Fprintln(bw, "invalid: scan stopped at bytes that are not an OGG page")
	}
	return bw.Flush()
}
