// Package repair dispatches repair operations to the container package that
// handles a format.
package repair

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/autobrr/go-mediafix/internal/media"
	"github.com/autobrr/go-mediafix/internal/mp4"
	"github.com/autobrr/go-mediafix/internal/ogg"
	"github.com/autobrr/go-mediafix/internal/webm"
)

// Fix repairs broken using prev, the chunk received right before it. With
// media.FormatAuto the format is detected on prev, because broken chunks
// usually lost their magic.
func Fix(format media.Format, prev, broken []byte, opts media.Options) ([]byte, error) {
	format, err := media.Resolve(format, prev)
	if err != nil {
		return nil, fmt.Errorf("detect format of previous chunk: %w", err)
	}
	opts.Log().WithFields(logrus.Fields{
		"format": format.String(),
		"prev":   len(prev),
		"broken": len(broken),
	}).Debug("repairing chunk")

	switch format {
	case media.FormatWebM:
		return webm.Fix(prev, broken, opts)
	case media.FormatMP4:
		return mp4.Fix(prev, broken, opts)
	case media.FormatOGG:
		return ogg.Fix(prev, broken, opts)
	}
	return nil, fmt.Errorf("%w: %s", media.ErrUnknownFormat, format)
}

// Merge joins chunks of one recording. The format is detected on the first
// chunk when format is media.FormatAuto. Problems found in the merged stream
// are logged as warnings and the merged bytes are returned either way.
func Merge(format media.Format, chunks [][]byte, opts media.Options) ([]byte, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	format, err := media.Resolve(format, chunks[0])
	if err != nil {
		return nil, fmt.Errorf("detect format of first chunk: %w", err)
	}

	switch format {
	case media.FormatWebM:
		merged, _, err := webm.Merge(chunks, opts)
		return merged, err
	case media.FormatMP4:
		return mp4.Merge(chunks, opts)
	case media.FormatOGG:
		return ogg.Merge(chunks, opts)
	}
	return nil, fmt.Errorf("%w: %s", media.ErrUnknownFormat, format)
}

// Display writes a human readable structure dump of buf.
func Display(w io.Writer, format media.Format, buf []byte, opts media.Options) error {
	format, err := media.Resolve(format, buf)
	if err != nil {
		return err
	}

	switch format {
	case media.FormatWebM:
		return webm.Display(w, buf, opts)
	case media.FormatMP4:
		return mp4.Display(w, buf)
	case media.FormatOGG:
		return ogg.Display(w, buf)
	}
	return fmt.Errorf("%w: %s", media.ErrUnknownFormat, format)
}

// HasHeader reports whether buf carries the structures a player needs to
// start decoding: an EBML header for WebM, ftyp and moov boxes for MP4 and
// metadata pages for OGG. Such chunks need no repair and can serve as the
// previous chunk of the next repair.
func HasHeader(format media.Format, buf []byte) bool {
	format, err := media.Resolve(format, buf)
	if err != nil {
		return false
	}
	switch format {
	case media.FormatWebM:
		detected, err := media.Detect(buf)
		return err == nil && detected == media.FormatWebM
	case media.FormatMP4:
		f := mp4.Parse(buf)
		return f.Ftyp != nil && f.Moov != nil
	case media.FormatOGG:
		return len(ogg.Parse(buf).Metadata()) > 0
	}
	return false
}
