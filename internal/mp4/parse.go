package mp4

import (
	"errors"

	"github.com/autobrr/go-mediafix/internal/media"
)

// Chunk is one moof or mdat box, header included.
type Chunk struct {
	Type string
	Data []byte
}

// File is the top-level layout of an MP4 buffer.
type File struct {
	Ftyp   []byte
	Moov   []byte
	Chunks []Chunk
	// Rest holds a trailing box that is not complete yet.
	Rest []byte
	// Skipped lists complete boxes that are neither ftyp, moov, moof nor mdat.
	Skipped []BoxHeader
	// Invalid is set when a box header announced an impossible size. The scan
	// stops there and those bytes are dropped.
	Invalid bool
}

// Parse walks the top-level boxes of buf. The returned slices alias buf.
func Parse(buf []byte) *File {
	f := &File{}
	var off int64
	for off < int64(len(buf)) {
		h, err := ReadBoxHeader(buf, off)
		if errors.Is(err, errIncompleteHeader) {
			f.Rest = buf[off:]
			break
		}
		if err != nil {
			f.Invalid = true
			break
		}
		if h.End() > int64(len(buf)) {
			f.Rest = buf[off:]
			break
		}

		data := buf[off:h.End()]
		switch h.Type {
		case TypeFtyp:
			f.Ftyp = data
		case TypeMoov:
			f.Moov = data
		case TypeMoof, TypeMdat:
			f.Chunks = append(f.Chunks, Chunk{Type: h.Type, Data: data})
		default:
			f.Skipped = append(f.Skipped, h)
		}
		off = h.End()
	}
	return f
}

// pairChunks splits chunks at the first place where the strict moof, mdat
// alternation breaks.
func pairChunks(chunks []Chunk) (paired, diverted []Chunk) {
	for i := 0; i < len(chunks); i += 2 {
		if chunks[i].Type != TypeMoof || i+1 >= len(chunks) || chunks[i+1].Type != TypeMdat {
			return chunks[:i], chunks[i:]
		}
	}
	return chunks, nil
}

// BuildFile assembles ftyp, moov and the paired fragments of current. Boxes
// missing from current are taken from context. Fragments from the first
// pairing break on are returned in rest, ahead of the incomplete tail.
func BuildFile(current, context *File) (data, rest []byte, err error) {
	ftyp, moov := current.Ftyp, current.Moov
	if context != nil {
		if ftyp == nil {
			ftyp = context.Ftyp
		}
		if moov == nil {
			moov = context.Moov
		}
	}
	if ftyp == nil {
		return nil, nil, media.MissingStructure(media.FormatMP4, "ftyp box")
	}
	if moov == nil {
		return nil, nil, media.MissingStructure(media.FormatMP4, "moov box")
	}

	paired, diverted := pairChunks(current.Chunks)

	size := len(ftyp) + len(moov)
	for _, c := range paired {
		size += len(c.Data)
	}
	data = make([]byte, 0, size)
	data = append(data, ftyp...)
	data = append(data, moov...)
	for _, c := range paired {
		data = append(data, c.Data...)
	}
	return data, leftover(diverted, current.Rest), nil
}

func leftover(diverted []Chunk, tail []byte) []byte {
	var rest []byte
	for _, c := range diverted {
		rest = append(rest, c.Data...)
	}
	return append(rest, tail...)
}
