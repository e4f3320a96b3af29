package ebml

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Display writes one line per event, indenting the children of masters by
// two spaces:
//
//	start: Cluster
//	  tag: Timecode - timestamp 00:00:01.000000000
//	  tag: SimpleBlock - track number 1, timestamp 00:00:01.020000000
//	end: Cluster
func Display(w io.Writer, events []Event) error {
	bw := bufio.NewWriter(w)
	depth := 0
	var clusterTime int64
	for _, ev := range events {
		el := ev.Element
		if ev.Kind == EventEnd && depth > 0 {
			depth--
		}

		line := strings.Repeat("  ", depth) + ev.Kind.String() + ": " + el.Name
		if ev.Kind == EventTag {
			var info string
			switch {
			case el.Special == SpecialTimecode:
				clusterTime = int64(el.Value.Uint)
				info = "timestamp " + FormatTimestamp(clusterTime)
			case el.Block != nil:
				info = fmt.Sprintf("track number %d, timestamp %s", el.Block.Track, FormatTimestamp(clusterTime+int64(el.Block.Timecode)))
			default:
				info = describeValue(el)
			}
			if info != "" {
				line += " - " + info
			}
		}
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return err
		}

		if ev.Kind == EventStart {
			depth++
		}
	}
	return bw.Flush()
}

// Render is Display into a string.
func Render(events []Event) string {
	var sb strings.Builder
	_ = Display(&sb, events)
	return sb.String()
}

// FormatTimestamp formats milliseconds as HH:MM:SS.nnnnnnnnn.
func FormatTimestamp(ms int64) string {
	sign := ""
	if ms < 0 {
		sign = "-"
		ms = -ms
	}
	d := time.Duration(ms) * time.Millisecond
	hours := int64(d / time.Hour)
	minutes := int64(d/time.Minute) % 60
	seconds := int64(d/time.Second) % 60
	nanos := int64(d % time.Second)
	return fmt.Sprintf("%s%02d:%02d:%02d.%09d", sign, hours, minutes, seconds, nanos)
}

func describeValue(el *Element) string {
	v := el.Value
	if !v.Valid {
		if el.Type == TypeUnknown || el.Type == TypeBinary {
			return strconv.Itoa(len(el.Data)) + " bytes"
		}
		return "invalid " + el.Type.String()
	}
	switch v.Type {
	case TypeUnsigned:
		if v.Hex != "" {
			return "0x" + v.Hex
		}
		return strconv.FormatUint(v.Uint, 10)
	case TypeSigned:
		return strconv.FormatInt(v.Int, 10)
	case TypeFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case TypeString, TypeUTF8:
		return strconv.Quote(v.Str)
	case TypeDate:
		return v.Time.Format(time.RFC3339Nano)
	default:
		return strconv.Itoa(len(el.Data)) + " bytes"
	}
}
