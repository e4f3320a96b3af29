package cli

import (
	"fmt"
	"io"
)

const (
	FixHelp = `Rebuild a playable file from a chunk that lost its header.

PREV is the chunk recorded right before BROKEN. For WebM the header and the
unfinished cluster of PREV are put in front of BROKEN and timestamps are
rewritten to keep increasing. For MP4 the ftyp and moov boxes are copied,
for OGG the metadata pages.`

	MergeHelp = `Concatenate chunks of one recording in the given order and check the
result. Problems are reported on stderr, the merged file is written anyway.`

	DisplayHelp = `Print the structure of each file: the element tree for WebM, the box list
for MP4 and the page list for OGG.`

	ServeHelp = `Accept chunks over HTTP and WebSocket, store them per session and answer
repair requests against the last chunk that carried a header.`
)

// HelpFormats lists the values accepted by --format.
func HelpFormats(stdout io.Writer) {
	fmt.Fprintln(stdout, "--format=auto|webm|mp4|ogg")
	fmt.Fprintln(stdout, "                    Container of the input files (default auto)")
	fmt.Fprintln(stdout, "")
	fmt.Fprintln(stdout, "auto                Detect from the first bytes of the first file:")
	fmt.Fprintln(stdout, "                    EBML magic for webm, OggS for ogg, ftyp/moov/moof box for mp4")
	fmt.Fprintln(stdout, "webm, mkv           Matroska/WebM EBML stream")
	fmt.Fprintln(stdout, "mp4, m4a            Fragmented ISO-BMFF")
	fmt.Fprintln(stdout, "ogg, opus, oga      OGG pages")
	fmt.Fprintln(stdout, "")
	fmt.Fprintln(stdout, "MIME types such as \"audio/webm;codecs=opus\" are accepted too.")
}
