package ebml

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"math"
	"time"
	"unicode/utf8"
)

// Interpret decodes data according to typ. It never fails: payloads that do
// not fit their type produce a Value with Valid unset.
func Interpret(typ ElementType, data []byte) Value {
	switch typ {
	case TypeUnsigned:
		return readUnsigned(data)
	case TypeSigned:
		return readSigned(data)
	case TypeFloat:
		return readFloat(data)
	case TypeString:
		return Value{Type: typ, Valid: true, Str: string(bytes.TrimRight(data, "\x00"))}
	case TypeUTF8:
		trimmed := bytes.TrimRight(data, "\x00")
		if !utf8.Valid(trimmed) {
			return Value{Type: typ}
		}
		return Value{Type: typ, Valid: true, Str: string(trimmed)}
	case TypeDate:
		return readDate(data)
	default:
		return Value{Type: typ, Valid: true}
	}
}

func readUnsigned(data []byte) Value {
	v := Value{Type: TypeUnsigned, Valid: true}
	switch len(data) {
	case 1:
		v.Uint = uint64(data[0])
	case 2:
		v.Uint = uint64(binary.BigEndian.Uint16(data))
	case 4:
		v.Uint = uint64(binary.BigEndian.Uint32(data))
	default:
		if len(data) > 8 {
			v.Hex = hex.EncodeToString(data)
			return v
		}
		for _, b := range data {
			v.Uint = v.Uint<<8 | uint64(b)
		}
		if len(data) > 6 {
			v.Hex = hex.EncodeToString(data)
		}
	}
	return v
}

func readSigned(data []byte) Value {
	v := Value{Type: TypeSigned, Valid: true}
	switch len(data) {
	case 1:
		v.Int = int64(int8(data[0]))
	case 2:
		v.Int = int64(int16(binary.BigEndian.Uint16(data)))
	case 4:
		v.Int = int64(int32(binary.BigEndian.Uint32(data)))
	default:
		return Value{Type: TypeSigned}
	}
	return v
}

func readFloat(data []byte) Value {
	switch len(data) {
	case 4:
		return Value{Type: TypeFloat, Valid: true, Float: float64(math.Float32frombits(binary.BigEndian.Uint32(data)))}
	case 8:
		return Value{Type: TypeFloat, Valid: true, Float: math.Float64frombits(binary.BigEndian.Uint64(data))}
	default:
		return invalidFloat()
	}
}

// readDate treats the payload as milliseconds since the Unix epoch. This is
// an approximation: Matroska dates are nanoseconds since 2001-01-01.
func readDate(data []byte) Value {
	var ms int64
	switch len(data) {
	case 1:
		ms = int64(data[0])
	case 2:
		ms = int64(binary.BigEndian.Uint16(data))
	case 4:
		ms = int64(binary.BigEndian.Uint32(data))
	case 8:
		ms = int64(binary.BigEndian.Uint64(data))
	default:
		return Value{Type: TypeDate, Time: time.UnixMilli(0).UTC()}
	}
	return Value{Type: TypeDate, Valid: true, Time: time.UnixMilli(ms).UTC()}
}
