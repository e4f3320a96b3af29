package ebml

import (
	"errors"
	"fmt"

	"github.com/autobrr/go-mediafix/internal/media"
)

// MaxDepth bounds the element stack.
const MaxDepth = 64

var ErrTooDeep = errors.New("ebml: element nesting too deep")

type state uint8

const (
	stateTag state = iota
	stateSize
	stateContent
)

// Decoder is the state of one incremental decode pass. Bytes are supplied
// with Feed; a pass that runs out of input simply pauses, keeping the stack
// and the partially read element so the next Feed resumes where it stopped.
//
// A Decoder is not safe for concurrent use. It owns a copy of every byte fed
// to it, so callers' buffers are never modified.
type Decoder struct {
	opts media.Options

	buf    []byte
	cursor int
	state  state
	stack  []*Element
	events []Event

	lastStart   int
	collecting  bool
	endOfHeader int

	ts  *timestampFixer
	err error
}

func NewDecoder(opts media.Options) *Decoder {
	d := &Decoder{opts: opts}
	if opts.FixTimestamps {
		d.ts = newTimestampFixer(opts)
	}
	return d
}

// PreserveBefore keeps the timestamp fixer from rewriting elements that start
// before offset. Their values are taken as they are.
func (d *Decoder) PreserveBefore(offset int) {
	if d.ts != nil {
		d.ts.preserveBefore = offset
	}
}

// Feed appends p and decodes as far as the input allows. Running out of
// input is not an error. A fatal error sticks: later calls return it again.
func (d *Decoder) Feed(p []byte) error {
	if d.err != nil {
		return d.err
	}
	d.buf = append(d.buf, p...)
	for {
		progressed, err := d.step()
		if err != nil {
			d.err = err
			return err
		}
		if !progressed {
			return nil
		}
	}
}

// Flush marks the end of the stream. Open unknown-size elements are closed
// at the cursor, but only when no element is half read: a truncated element
// leaves everything open.
func (d *Decoder) Flush() {
	if d.err != nil || d.state != stateTag || d.cursor != len(d.buf) {
		return
	}
	for len(d.stack) > 0 {
		top := d.stack[len(d.stack)-1]
		if top.End >= 0 {
			if top.End > d.cursor {
				return
			}
		} else {
			top.End = d.cursor
			top.DataSize = int64(d.cursor - top.DataStart)
		}
		d.pop()
		d.emit(EventEnd, top)
	}
}

func (d *Decoder) step() (bool, error) {
	switch d.state {
	case stateTag:
		return d.readTag()
	case stateSize:
		return d.readSize()
	default:
		return d.readContent()
	}
}

func (d *Decoder) readTag() (bool, error) {
	if d.cursor >= len(d.buf) {
		return false, nil
	}
	id, n, err := ReadElementID(d.buf, d.cursor)
	if errors.Is(err, ErrIncomplete) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	entry := Lookup(id)
	d.closeUnknownSize(entry.Level)
	d.closeFinished()

	if len(d.stack) >= MaxDepth {
		return false, fmt.Errorf("%w: %s at offset %d", ErrTooDeep, entry.Name, d.cursor)
	}
	if d.isTopLevel() {
		d.lastStart = d.cursor
	}

	d.stack = append(d.stack, &Element{
		ID:        id,
		Type:      entry.Type,
		Name:      entry.Name,
		Special:   entry.Special(),
		Level:     entry.Level,
		Start:     d.cursor,
		DataStart: d.cursor + n,
		End:       d.cursor + n,
	})
	d.cursor += n
	d.state = stateSize
	return true, nil
}

func (d *Decoder) readSize() (bool, error) {
	el := d.stack[len(d.stack)-1]
	size, err := ReadVarInt(d.buf, d.cursor)
	if errors.Is(err, ErrIncomplete) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s size: %w", el.Name, err)
	}

	el.SizeLength = size.Length
	el.DataStart = d.cursor + size.Length
	if size.Value == UnknownSize {
		el.DataSize = UnknownSize
		el.End = -1
	} else {
		el.DataSize = size.Value
		el.End = el.DataStart + int(size.Value)
	}
	d.cursor = el.DataStart
	d.state = stateContent
	return true, nil
}

func (d *Decoder) readContent() (bool, error) {
	el := d.stack[len(d.stack)-1]
	if el.IsMaster() {
		d.emit(EventStart, el)
		d.state = stateTag
		d.closeFinished()
		return true, nil
	}

	// Unknown-size leaves have no end to wait for.
	if el.End < 0 || el.End > len(d.buf) {
		return false, nil
	}
	el.Data = d.buf[el.DataStart:el.End:el.End]
	d.interpret(el)
	d.cursor = el.DataStart + int(el.DataSize)

	d.pop()
	d.emit(EventTag, el)
	d.state = stateTag
	d.closeFinished()
	return true, nil
}

func (d *Decoder) interpret(el *Element) {
	el.Value = Interpret(el.Type, el.Data)
	switch el.Special {
	case SpecialBlock, SpecialSimpleBlock:
		block, err := ParseBlock(el.Data, el.Special == SpecialSimpleBlock)
		if err != nil {
			d.opts.Log().WithError(err).WithField("offset", el.Start).Debug("unreadable block header")
			return
		}
		el.Block = block
		if d.ts != nil {
			d.ts.block(el)
		}
	case SpecialTimecode:
		if d.ts != nil {
			d.ts.timecode(d, el)
		}
	}
}

// isTopLevel reports whether an element starting now is a root element or a
// direct child of a Segment.
func (d *Decoder) isTopLevel() bool {
	if len(d.stack) == 0 {
		return true
	}
	return len(d.stack) == 1 && d.stack[0].ID == IDSegment
}

// closeUnknownSize ends open unknown-size masters that cannot contain an
// element of the given schema level. Global elements close nothing.
func (d *Decoder) closeUnknownSize(level int) {
	if level < 0 {
		return
	}
	for len(d.stack) > 0 {
		top := d.stack[len(d.stack)-1]
		if top.End >= 0 || top.Level < 0 || top.Level < level {
			return
		}
		top.End = d.cursor
		top.DataSize = int64(d.cursor - top.DataStart)
		d.pop()
		d.emit(EventEnd, top)
	}
}

// closeFinished ends every open element whose extent has been consumed.
func (d *Decoder) closeFinished() {
	for len(d.stack) > 0 {
		top := d.stack[len(d.stack)-1]
		if top.End < 0 || top.End > d.cursor {
			return
		}
		d.pop()
		d.emit(EventEnd, top)
	}
}

func (d *Decoder) pop() {
	d.stack[len(d.stack)-1] = nil
	d.stack = d.stack[:len(d.stack)-1]
}

func (d *Decoder) emit(kind EventKind, el *Element) {
	d.events = append(d.events, Event{Kind: kind, Element: el})
	switch {
	case kind == EventStart && el.Special == SpecialEBML:
		d.collecting = true
	case kind == EventEnd && el.Special == SpecialCluster && d.collecting:
		if el.End > d.endOfHeader {
			d.endOfHeader = el.End
		}
		d.collecting = false
	}
}

// writeUnsigned stores v in the payload of the leaf el, widening the element
// when v does not fit.
func (d *Decoder) writeUnsigned(el *Element, v uint64) error {
	width := 1
	for width < 8 && v >= uint64(1)<<(8*uint(width)) {
		width++
	}
	if width <= len(el.Data) {
		for i := len(el.Data) - 1; i >= 0; i-- {
			el.Data[i] = byte(v)
			v >>= 8
		}
		el.Value.Uint = uintValue(el.Data)
		return nil
	}

	data := make([]byte, width)
	for i, x := width-1, v; i >= 0; i-- {
		data[i] = byte(x)
		x >>= 8
	}
	if err := d.resizeLeaf(el, data); err != nil {
		return err
	}
	el.Value.Uint = v
	return nil
}

// resizeLeaf replaces the payload of the leaf on top of the stack and grows
// every sized ancestor to match. Nothing is changed unless all of the size
// fields involved can hold their new value at their current width.
func (d *Decoder) resizeLeaf(el *Element, data []byte) error {
	growth := len(data) - len(el.Data)
	sizeField, err := EncodeVarInt(uint64(len(data)), el.SizeLength)
	if err != nil {
		return fmt.Errorf("%s: %w", el.Name, err)
	}

	type patch struct {
		at    int
		field []byte
	}
	ancestors := d.stack[:len(d.stack)-1]
	patches := make([]patch, 0, len(ancestors))
	for _, a := range ancestors {
		if a.End < 0 {
			continue
		}
		field, err := EncodeVarInt(uint64(a.DataSize)+uint64(growth), a.SizeLength)
		if err != nil {
			return fmt.Errorf("%s: %w", a.Name, err)
		}
		patches = append(patches, patch{at: a.Start + a.idLength(), field: field})
	}
	for _, p := range patches {
		copy(d.buf[p.at:], p.field)
	}

	idEnd := el.Start + el.idLength()
	out := make([]byte, 0, len(d.buf)+growth)
	out = append(out, d.buf[:idEnd]...)
	out = append(out, sizeField...)
	dataStart := len(out)
	out = append(out, data...)
	out = append(out, d.buf[el.End:]...)
	d.buf = out

	el.DataStart = dataStart
	el.DataSize = int64(len(data))
	el.End = dataStart + len(data)
	el.Data = out[dataStart:el.End:el.End]
	for _, a := range ancestors {
		if a.End < 0 {
			continue
		}
		a.End += growth
		a.DataSize += int64(growth)
	}
	return nil
}

func uintValue(data []byte) uint64 {
	var v uint64
	for _, b := range data {
		v = v<<8 | uint64(b)
	}
	return v
}

// Result snapshots the pass so far. Its slices stay valid after further
// Feed calls but do not see them.
func (d *Decoder) Result() *Result {
	pendingFrom := d.cursor
	if d.state != stateTag && len(d.stack) > 0 {
		pendingFrom = d.stack[len(d.stack)-1].Start
	}

	headerEnd := d.endOfHeader
	if d.collecting {
		for _, el := range d.stack {
			if el.Special == SpecialCluster && el.Start > headerEnd {
				headerEnd = el.Start
				break
			}
		}
	}

	r := &Result{
		Events:    d.events[:len(d.events):len(d.events)],
		Buffer:    d.buf[:len(d.buf):len(d.buf)],
		HeaderEnd: headerEnd,
		LastStart: d.lastStart,
		Open:      len(d.stack),
		Pending:   len(d.buf) - pendingFrom,
	}
	r.Incomplete = r.Open > 0 || r.Pending > 0
	if d.ts != nil {
		r.LastTimestamp = d.ts.lastTimestamp
	}
	return r
}

// Result is the outcome of a decode pass.
type Result struct {
	Events []Event
	// Buffer holds every byte decoded, including timestamp rewrites.
	Buffer []byte
	// HeaderEnd is the end of the replayable preamble: the EBML header and
	// everything up to the end of the first Cluster.
	HeaderEnd int
	// LastStart is the offset of the last top-level element begun.
	LastStart int
	// Open is the number of elements still open when the pass stopped.
	Open int
	// Pending counts trailing bytes of an element that could not be read yet.
	Pending    int
	Incomplete bool
	// LastTimestamp is the fixer's last absolute block time.
	LastTimestamp int64
}

func (r *Result) Header() []byte {
	return r.Buffer[:r.HeaderEnd]
}

// CarryOver is the tail starting at the last top-level boundary. It never
// overlaps Header.
func (r *Result) CarryOver() []byte {
	return r.Buffer[max(r.LastStart, r.HeaderEnd):]
}

// Decode runs a single pass over buf without closing unknown-size elements
// at the end, leaving them open for a following chunk.
func Decode(buf []byte, opts media.Options) (*Result, error) {
	d := NewDecoder(opts)
	if err := d.Feed(buf); err != nil {
		return d.Result(), err
	}
	return d.Result(), nil
}

// DecodeComplete decodes buf as a whole stream.
func DecodeComplete(buf []byte, opts media.Options) (*Result, error) {
	d := NewDecoder(opts)
	if err := d.Feed(buf); err != nil {
		return d.Result(), err
	}
	d.Flush()
	return d.Result(), nil
}
