// Package ogg repairs OGG chunks that lost their metadata pages.
package ogg

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/icza/bitio"
)

// HeaderSize is the fixed part of a page header, up to and including the
// segment count.
const HeaderSize = 27

var (
	magic = []byte("OggS")

	errIncompletePage = errors.New("ogg: incomplete page")
	errBadMagic       = errors.New("ogg: page does not start with OggS")
)

type PageType int

const (
	PageUnknown PageType = iota
	PageOpusHead
	PageOpusTags
	PageVorbisIdentification
	PageVorbisComment
	PageVorbisSetup
	PageTheoraIdentification
	PageTheoraComment
	PageTheoraSetup
	PageSpeex
)

var pageSignatures = []struct {
	prefix string
	typ    PageType
}{
	{"OpusHead", PageOpusHead},
	{"OpusTags", PageOpusTags},
	{"\x01vorbis", PageVorbisIdentification},
	{"\x03vorbis", PageVorbisComment},
	{"\x05vorbis", PageVorbisSetup},
	{"\x01theora", PageTheoraIdentification},
	{"\x03theora", PageTheoraComment},
	{"\x05theora", PageTheoraSetup},
	{"Speex ", PageSpeex},
}

func (t PageType) String() string {
	switch t {
	case PageOpusHead:
		return "Opus Head"
	case PageOpusTags:
		return "Opus Tags"
	case PageVorbisIdentification:
		return "Vorbis Identification Header"
	case PageVorbisComment:
		return "Vorbis Comment Header"
	case PageVorbisSetup:
		return "Vorbis Setup Header"
	case PageTheoraIdentification:
		return "Theora Identification Header"
	case PageTheoraComment:
		return "Theora Comment Header"
	case PageTheoraSetup:
		return "Theora Setup Header"
	case PageSpeex:
		return "Speex Audio"
	default:
		return "Unknown"
	}
}

// IsMetadata reports whether pages of this type carry codec headers.
func (t PageType) IsMetadata() bool {
	return t != PageUnknown
}

func classify(packet []byte) PageType {
	for _, sig := range pageSignatures {
		if bytes.HasPrefix(packet, []byte(sig.prefix)) {
			return sig.typ
		}
	}
	return PageUnknown
}

// PageHeader is the decoded fixed header of a page.
type PageHeader struct {
	Version    uint8
	Continued  bool
	BeginOfStr bool
	EndOfStr   bool
	Granule    int64
	Serial     uint32
	Sequence   uint32
	Checksum   uint32
	Segments   uint8
	// Size is the whole page: header, segment table and body.
	Size int
	// BodyOffset is where the first packet starts, from the page start.
	BodyOffset int
}

// ReadPageHeader decodes the page header at off.
func ReadPageHeader(buf []byte, off int) (PageHeader, error) {
	if off+HeaderSize > len(buf) {
		return PageHeader{}, errIncompletePage
	}
	p := buf[off:]
	if !bytes.Equal(p[:4], magic) {
		return PageHeader{}, errBadMagic
	}

	h := PageHeader{
		Version:  p[4],
		Granule:  int64(binary.LittleEndian.Uint64(p[6:14])),
		Serial:   binary.LittleEndian.Uint32(p[14:18]),
		Sequence: binary.LittleEndian.Uint32(p[18:22]),
		Checksum: binary.LittleEndian.Uint32(p[22:26]),
		Segments: p[26],
	}
	if err := h.readFlags(p[5]); err != nil {
		return PageHeader{}, err
	}

	h.BodyOffset = HeaderSize + int(h.Segments)
	if off+h.BodyOffset > len(buf) {
		return PageHeader{}, errIncompletePage
	}
	h.Size = h.BodyOffset
	for _, lacing := range p[HeaderSize:h.BodyOffset] {
		h.Size += int(lacing)
	}
	return h, nil
}

// readFlags decodes the header type byte: five unused bits, then
// end of stream, begin of stream and continued packet.
func (h *PageHeader) readFlags(flags byte) error {
	r := bitio.NewReader(bytes.NewReader([]byte{flags}))
	if _, err := r.ReadBits(5); err != nil {
		return err
	}
	eos, err := r.ReadBits(1)
	if err != nil {
		return err
	}
	bos, err := r.ReadBits(1)
	if err != nil {
		return err
	}
	continued, err := r.ReadBits(1)
	if err != nil {
		return err
	}
	h.EndOfStr = eos == 1
	h.BeginOfStr = bos == 1
	h.Continued = continued == 1
	return nil
}
