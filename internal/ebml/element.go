package ebml

import (
	"math"
	"time"
)

type EventKind uint8

const (
	EventStart EventKind = iota
	EventEnd
	EventTag
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventEnd:
		return "end"
	case EventTag:
		return "tag"
	default:
		return "invalid"
	}
}

// Event is one entry of the flat decode trace. Masters produce a start and an
// end event, leaves a single tag event.
type Event struct {
	Kind    EventKind
	Element *Element
}

// Element is one parsed unit. Offsets are relative to Result.Buffer.
type Element struct {
	ID      uint64
	Type    ElementType
	Name    string
	Special Special
	Level   int

	Start      int
	SizeLength int
	DataStart  int
	// End is -1 while the size is unknown.
	End      int
	DataSize int64

	Data  []byte
	Value Value
	Block *Block
}

func (e *Element) IsMaster() bool { return e.Type == TypeMaster }

// idLength is the encoded width of the element ID.
func (e *Element) idLength() int {
	return e.DataStart - e.SizeLength - e.Start
}

// Value is the decoded payload of a leaf element. Only the field matching
// Type is meaningful. Valid is false when the payload could not be
// interpreted for its type (bad width, invalid UTF-8).
type Value struct {
	Type  ElementType
	Valid bool
	Uint  uint64
	Int   int64
	Float float64
	Str   string
	// Hex carries unsigned values wider than six bytes.
	Hex  string
	Time time.Time
}

func invalidFloat() Value {
	return Value{Type: TypeFloat, Float: math.NaN()}
}

// Block is the decomposed header of a Block or SimpleBlock payload.
type Block struct {
	Track       uint64
	TrackLength int
	Timecode    int16
	Keyframe    bool
	Invisible   bool
	Lacing      uint8
	Discardable bool
	Payload     []byte
}
