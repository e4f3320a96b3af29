// Package webm repairs WebM chunks that lost their container framing.
package webm

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/autobrr/go-mediafix/internal/ebml"
	"github.com/autobrr/go-mediafix/internal/media"
)

// Fix rebuilds a playable stream from broken, a chunk without its own
// header, using prev, the last chunk known to be sane. The result is the
// header of prev, the last top-level element of prev that began before it
// ended, and broken, with timecodes rewritten so time keeps increasing
// across the joins. The header bytes are copied unchanged.
func Fix(prev, broken []byte, opts media.Options) ([]byte, error) {
	log := opts.Log().WithField("format", media.FormatWebM.String())

	prevRes, err := ebml.Decode(prev, media.Options{Logger: opts.Logger})
	if err != nil {
		return nil, fmt.Errorf("decode previous chunk: %w", err)
	}
	header := prevRes.Header()
	carry := prevRes.CarryOver()
	if len(header) == 0 {
		log.Warn("previous chunk has no header, output will not be playable on its own")
	}

	joined := make([]byte, 0, len(header)+len(carry)+len(broken))
	joined = append(joined, header...)
	joined = append(joined, carry...)
	joined = append(joined, broken...)

	d := ebml.NewDecoder(media.Options{
		Debug:               opts.Debug,
		FixTimestamps:       true,
		ClampTimestampJumps: opts.ClampTimestampJumps,
		Logger:              opts.Logger,
	})
	d.PreserveBefore(len(header))
	if err := d.Feed(joined); err != nil {
		return nil, fmt.Errorf("decode repaired stream: %w", err)
	}
	res := d.Result()

	if opts.Debug {
		log.WithFields(logrus.Fields{
			"header":         len(header),
			"carry_over":     len(carry),
			"bytes":          len(res.Buffer),
			"pending":        res.Pending,
			"last_timestamp": res.LastTimestamp,
		}).Debug("fixed chunk")
		if err := ebml.Display(opts.DebugWriter(), res.Events); err != nil {
			return nil, err
		}
	}
	return res.Buffer, nil
}

// Display decodes buf as a whole stream and writes its element trace to w.
// Elements decoded before a fatal error are still written.
func Display(w io.Writer, buf []byte, opts media.Options) error {
	res, decodeErr := ebml.DecodeComplete(buf, media.Options{Logger: opts.Logger})
	if err := ebml.Display(w, res.Events); err != nil {
		return err
	}
	if decodeErr != nil {
		return decodeErr
	}
	if res.Incomplete {
		opts.Log().WithFields(logrus.Fields{
			"open":    res.Open,
			"pending": res.Pending,
		}).Info("stream ends inside an element")
	}
	return nil
}
