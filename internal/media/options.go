package media

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Options configures a decode or repair call. The zero value is valid:
// no debug output, no timestamp fixing, no clamping.
type Options struct {
	// Debug logs the decoded event trace and repair diagnostics.
	Debug bool
	// FixTimestamps enables the timestamp continuity fixer during decoding.
	FixTimestamps bool
	// ClampTimestampJumps limits a corrected block jump larger than twice the
	// default delta to exactly the default delta.
	ClampTimestampJumps bool
	// Logger receives debug output. Nil means logrus.StandardLogger().
	Logger logrus.FieldLogger
}

func (o Options) Log() logrus.FieldLogger {
	if o.Logger != nil {
		return o.Logger
	}
	return logrus.StandardLogger()
}

// DebugWriter returns a writer that forwards lines to the debug log, or
// io.Discard when Debug is off.
func (o Options) DebugWriter() io.Writer {
	if !o.Debug {
		return io.Discard
	}
	return debugWriter{log: o.Log()}
}

type debugWriter struct {
	log logrus.FieldLogger
}

func (w debugWriter) Write(p []byte) (int, error) {
	start := 0
	for i, b := range p {
		if b == '\n' {
			if i > start {
				w.log.Debug(string(p[start:i]))
			}
			start = i + 1
		}
	}
	if start < len(p) {
		w.log.Debug(string(p[start:]))
	}
	return len(p), nil
}
