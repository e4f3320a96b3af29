package webm

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/autobrr/go-mediafix/internal/ebml"
	"github.com/autobrr/go-mediafix/internal/media"
)

// MergeReport describes what a decode of the merged stream found. Merge
// reports problems, it does not correct them.
type MergeReport struct {
	Chunks      int
	Bytes       int
	Headers     int
	Clusters    int
	Blocks      int
	Open        int
	Pending     int
	Regressions int
	Problems    []string
}

func (r *MergeReport) problem(format string, args ...any) {
	r.Problems = append(r.Problems, fmt.Sprintf(format, args...))
}

// OK reports whether the merged stream decoded without findings.
func (r *MergeReport) OK() bool {
	return len(r.Problems) == 0
}

// Merge concatenates chunks in order and validates the result. With
// FixTimestamps set the returned stream carries the fixer's rewrites.
func Merge(chunks [][]byte, opts media.Options) ([]byte, *MergeReport, error) {
	size := 0
	for _, c := range chunks {
		size += len(c)
	}
	merged := make([]byte, 0, size)
	for _, c := range chunks {
		merged = append(merged, c...)
	}

	res, err := ebml.DecodeComplete(merged, media.Options{
		FixTimestamps:       opts.FixTimestamps,
		ClampTimestampJumps: opts.ClampTimestampJumps,
		Logger:              opts.Logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("decode merged stream: %w", err)
	}

	report := inspect(res)
	report.Chunks = len(chunks)

	log := opts.Log().WithFields(logrus.Fields{
		"format": media.FormatWebM.String(),
		"chunks": report.Chunks,
		"bytes":  report.Bytes,
	})
	for _, p := range report.Problems {
		log.Warn(p)
	}
	if opts.Debug {
		if err := ebml.Display(opts.DebugWriter(), res.Events); err != nil {
			return nil, nil, err
		}
	}
	return res.Buffer, report, nil
}

func inspect(res *ebml.Result) *MergeReport {
	report := &MergeReport{
		Bytes:   len(res.Buffer),
		Open:    res.Open,
		Pending: res.Pending,
	}

	lastTimecode := int64(-1)
	for _, ev := range res.Events {
		el := ev.Element
		switch {
		case ev.Kind == ebml.EventStart && el.Special == ebml.SpecialEBML:
			report.Headers++
			if report.Headers > 1 {
				report.problem("extra EBML header at offset %d", el.Start)
			}
		case ev.Kind == ebml.EventStart && el.Special == ebml.SpecialCluster:
			report.Clusters++
		case ev.Kind == ebml.EventTag && el.Special == ebml.SpecialTimecode:
			tc := int64(el.Value.Uint)
			if tc < lastTimecode {
				report.Regressions++
				report.problem("cluster timecode goes back at offset %d: %d after %d", el.Start, tc, lastTimecode)
			}
			lastTimecode = tc
		case ev.Kind == ebml.EventTag && el.Block != nil:
			report.Blocks++
		}
	}

	if report.Headers == 0 {
		report.problem("no EBML header")
	}
	if report.Pending > 0 {
		report.problem("%d trailing bytes form an incomplete element", report.Pending)
	} else if report.Open > 0 {
		report.problem("%d elements left open", report.Open)
	}
	return report
}
