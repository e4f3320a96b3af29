package mediafix

import (
	"io"

	"github.com/autobrr/go-mediafix/internal/ebml"
	"github.com/autobrr/go-mediafix/internal/media"
	"github.com/autobrr/go-mediafix/internal/repair"
	"github.com/autobrr/go-mediafix/internal/webm"
)

// Types
type Format = media.Format
type Options = media.Options
type MissingStructureError = media.MissingStructureError
type MergeReport = webm.MergeReport
type Decoder = ebml.Decoder
type Result = ebml.Result
type Event = ebml.Event
type Element = ebml.Element

// Constants
const (
	FormatAuto = media.FormatAuto
	FormatWebM = media.FormatWebM
	FormatMP4  = media.FormatMP4
	FormatOGG  = media.FormatOGG
)

// Errors
var (
	ErrMissingStructure      = media.ErrMissingStructure
	ErrUnknownFormat         = media.ErrUnknownFormat
	ErrUnrepresentableLength = ebml.ErrUnrepresentableLength
)

// Functions
func Fix(format Format, prev, broken []byte, opts Options) ([]byte, error) {
	return repair.Fix(format, prev, broken, opts)
}

func Merge(format Format, chunks [][]byte, opts Options) ([]byte, error) {
	return repair.Merge(format, chunks, opts)
}

func MergeWebM(chunks [][]byte, opts Options) ([]byte, *MergeReport, error) {
	return webm.Merge(chunks, opts)
}

func Display(w io.Writer, format Format, buf []byte, opts Options) error {
	return repair.Display(w, format, buf, opts)
}

func HasHeader(format Format, buf []byte) bool {
	return repair.HasHeader(format, buf)
}

func Detect(buf []byte) (Format, error) {
	return media.Detect(buf)
}

func ParseFormat(value string) (Format, error) {
	return media.ParseFormat(value)
}

// Decoding
func NewDecoder(opts Options) *Decoder {
	return ebml.NewDecoder(opts)
}

func Decode(buf []byte, opts Options) (*Result, error) {
	return ebml.Decode(buf, opts)
}

func DecodeComplete(buf []byte, opts Options) (*Result, error) {
	return ebml.DecodeComplete(buf, opts)
}

func FormatVersion(version string) string {
	return media.FormatVersion(version)
}

func SetAppVersion(version string) {
	media.SetAppVersion(version)
}
