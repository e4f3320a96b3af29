package ogg

import (
	"errors"

	"github.com/autobrr/go-mediafix/internal/media"
)

type Page struct {
	Header     PageHeader
	Type       PageType
	IsMetadata bool
	// Content is the whole page, header included.
	Content []byte
}

// File is the page layout of an OGG buffer.
type File struct {
	Pages []Page
	// Rest is a trailing page that is not complete yet.
	Rest       []byte
	Incomplete bool
	// Invalid is set when the scan met bytes that are not a page. Those bytes
	// are dropped, they are not part of Rest.
	Invalid bool
}

// Parse splits buf into pages. The returned slices alias buf.
func Parse(buf []byte) *File {
	f := &File{}
	pos := 0
	for pos < len(buf) {
		h, err := ReadPageHeader(buf, pos)
		if errors.Is(err, errIncompletePage) {
			// A short tail that cannot even hold the magic is judged on what
			// is there.
			if n := min(len(buf)-pos, len(magic)); string(buf[pos:pos+n]) != string(magic[:n]) {
				f.Invalid = true
				return f
			}
			f.Rest = buf[pos:]
			f.Incomplete = true
			return f
		}
		if err != nil {
			f.Invalid = true
			return f
		}
		if pos+h.Size > len(buf) {
			f.Rest = buf[pos:]
			f.Incomplete = true
			return f
		}

		content := buf[pos : pos+h.Size]
		typ := classify(content[h.BodyOffset:])
		f.Pages = append(f.Pages, Page{
			Header:     h,
			Type:       typ,
			IsMetadata: typ.IsMetadata(),
			Content:    content,
		})
		pos += h.Size
	}
	return f
}

// Metadata returns the metadata pages of f in order.
func (f *File) Metadata() []Page {
	var out []Page
	for _, p := range f.Pages {
		if p.IsMetadata {
			out = append(out, p)
		}
	}
	return out
}

// BuildFile writes the metadata pages of context and current, the leftover
// bytes of context, then the data pages of current. The incomplete tail of
// current is returned as rest.
func BuildFile(current, context *File) (data, rest []byte, err error) {
	var metadata []Page
	var contextRest []byte
	if context != nil {
		metadata = append(metadata, context.Metadata()...)
		contextRest = context.Rest
	}
	metadata = append(metadata, current.Metadata()...)
	if len(metadata) == 0 {
		return nil, nil, media.MissingStructure(media.FormatOGG, "metadata pages")
	}

	for _, p := range metadata {
		data = append(data, p.Content...)
	}
	data = append(data, contextRest...)
	for _, p := range current.Pages {
		if !p.IsMetadata {
			data = append(data, p.Content...)
		}
	}
	return data, current.Rest, nil
}
