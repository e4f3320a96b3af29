package mp4

import (
	"io"
	"testing"
)

const fuzzMaxBytes = 1 << 20 // 1 MiB

func FuzzParseAndBuild(f *testing.F) {
	f.Add([]byte{}, []byte{})
	f.Add(concat(ftyp, moov, moof1, mdat1, moof2), concat(mdat2))
	f.Add(largeBox(TypeMdat, []byte{1}), []byte{0, 0, 0, 1, 'm', 'o', 'o', 'f'})
	f.Add([]byte{0, 0, 0, 0, 'f', 't', 'y', 'p'}, []byte{0, 0, 0, 7})

	f.Fuzz(func(t *testing.T, prev, broken []byte) {
		if len(prev) > fuzzMaxBytes {
			prev = prev[:fuzzMaxBytes]
		}
		if len(broken) > fuzzMaxBytes {
			broken = broken[:fuzzMaxBytes]
		}
		parsed := Parse(prev)
		total := len(parsed.Ftyp) + len(parsed.Moov) + len(parsed.Rest)
		for _, c := range parsed.Chunks {
			total += len(c.Data)
		}
		if total > len(prev) {
			t.Fatalf("parsed %d bytes out of %d", total, len(prev))
		}
		_, _ = Fix(prev, broken, quietOptions())
		_ = Display(io.Discard, prev)
	})
}
