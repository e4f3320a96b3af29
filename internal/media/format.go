package media

import (
	"bytes"
	"fmt"
	"strings"
)

// Format identifies a container family handled by the repair tools.
type Format int

const (
	FormatAuto Format = iota
	FormatWebM
	FormatMP4
	FormatOGG
)

var (
	ebmlMagic = []byte{0x1A, 0x45, 0xDF, 0xA3}
	oggMagic  = []byte("OggS")
)

func (f Format) String() string {
	switch f {
	case FormatWebM:
		return "webm"
	case FormatMP4:
		return "mp4"
	case FormatOGG:
		return "ogg"
	default:
		return "auto"
	}
}

// Extension returns the file extension used when storing chunks of this format.
func (f Format) Extension() string {
	if f == FormatAuto {
		return "bin"
	}
	return f.String()
}

// ParseFormat accepts a format name, a file extension or a MIME type.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.TrimPrefix(normalized, ".")
	switch {
	case normalized == "" || normalized == "auto":
		return FormatAuto, nil
	case normalized == "webm" || normalized == "mkv" || strings.Contains(normalized, "webm") || strings.Contains(normalized, "matroska"):
		return FormatWebM, nil
	case normalized == "mp4" || normalized == "m4a" || strings.Contains(normalized, "mp4"):
		return FormatMP4, nil
	case normalized == "ogg" || normalized == "opus" || normalized == "oga" || strings.Contains(normalized, "ogg"):
		return FormatOGG, nil
	}
	return FormatAuto, fmt.Errorf("%w: %q", ErrUnknownFormat, value)
}

// Detect guesses the container format from the first bytes of a chunk.
// Chunks that lost their framing usually carry no magic, so callers detect on
// the previous (sane) chunk.
func Detect(buf []byte) (Format, error) {
	if bytes.HasPrefix(buf, ebmlMagic) {
		return FormatWebM, nil
	}
	if bytes.HasPrefix(buf, oggMagic) {
		return FormatOGG, nil
	}
	if len(buf) >= 8 {
		switch string(buf[4:8]) {
		case "ftyp", "styp", "moov", "moof":
			return FormatMP4, nil
		}
	}
	return FormatAuto, ErrUnknownFormat
}

// Resolve returns format unless it is FormatAuto, in which case the format is
// detected from sample.
func Resolve(format Format, sample []byte) (Format, error) {
	if format != FormatAuto {
		return format, nil
	}
	return Detect(sample)
}
