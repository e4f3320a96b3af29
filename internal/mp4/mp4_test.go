package mp4

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/go-mediafix/internal/media"
)

func box(typ string, payload []byte) []byte {
	out := binary.BigEndian.AppendUint32(nil, uint32(8+len(payload)))
	out = append(out, typ...)
	return append(out, payload...)
}

func largeBox(typ string, payload []byte) []byte {
	out := binary.BigEndian.AppendUint32(nil, 1)
	out = append(out, typ...)
	out = binary.BigEndian.AppendUint64(out, uint64(16+len(payload)))
	return append(out, payload...)
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

var (
	ftyp  = box(TypeFtyp, []byte("iso5\x00\x00\x02\x00iso5iso6mp41"))
	moov  = box(TypeMoov, concat(box("mvhd", make([]byte, 100)), box("trak", box("tkhd", make([]byte, 84)))))
	moof1 = box(TypeMoof, box("mfhd", []byte{0, 0, 0, 0, 0, 0, 0, 1}))
	mdat1 = box(TypeMdat, []byte{0xDE, 0xAD})
	moof2 = box(TypeMoof, box("mfhd", []byte{0, 0, 0, 0, 0, 0, 0, 2}))
	mdat2 = box(TypeMdat, []byte{0xBE, 0xEF})
)

func quietOptions() media.Options {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return media.Options{Logger: logger}
}

func TestParseDivertsTrailingMoof(t *testing.T) {
	f := Parse(concat(ftyp, moov, moof1, mdat1, moof2))
	require.Equal(t, ftyp, f.Ftyp)
	require.Equal(t, moov, f.Moov)
	require.Len(t, f.Chunks, 3)
	require.Empty(t, f.Rest)

	data, rest, err := BuildFile(f, nil)
	require.NoError(t, err)
	require.Equal(t, concat(ftyp, moov, moof1, mdat1), data)
	require.Equal(t, moof2, rest)
}

func TestParseIncompleteTrailingBox(t *testing.T) {
	buf := concat(ftyp, moov, moof1, mdat1, moof2[:5])
	f := Parse(buf)
	require.Len(t, f.Chunks, 2)
	require.Equal(t, moof2[:5], f.Rest)

	buf = concat(ftyp, moov, moof1, mdat1[:len(mdat1)-1])
	f = Parse(buf)
	require.Len(t, f.Chunks, 1)
	require.Equal(t, mdat1[:len(mdat1)-1], f.Rest)

	data, rest, err := BuildFile(f, nil)
	require.NoError(t, err)
	require.Equal(t, concat(ftyp, moov), data)
	require.Equal(t, concat(moof1, mdat1[:len(mdat1)-1]), rest)
}

func TestParseLargeSize(t *testing.T) {
	big := largeBox(TypeMdat, []byte{1, 2, 3})
	f := Parse(concat(ftyp, moov, moof1, big))
	require.Len(t, f.Chunks, 2)
	require.Equal(t, big, f.Chunks[1].Data)

	f = Parse(big[:12])
	require.Equal(t, big[:12], f.Rest)
}

func TestParseSizeZeroRunsToEnd(t *testing.T) {
	open := append([]byte{0, 0, 0, 0}, TypeMdat...)
	open = append(open, 9, 9, 9)
	f := Parse(concat(moof1, open))
	require.Len(t, f.Chunks, 2)
	require.Equal(t, open, f.Chunks[1].Data)
}

func TestParseInvalidSizeStops(t *testing.T) {
	bad := append([]byte{0, 0, 0, 4}, TypeMoof...)
	f := Parse(concat(ftyp, bad, moov))
	require.True(t, f.Invalid)
	require.Nil(t, f.Moov)
	require.Empty(t, f.Rest)
}

func TestParseSkipsOtherBoxes(t *testing.T) {
	f := Parse(concat(ftyp, box("free", nil), moov, box("styp", []byte("msdh")), moof1, mdat1))
	require.Len(t, f.Skipped, 2)
	require.Equal(t, "free", f.Skipped[0].Type)
	require.Len(t, f.Chunks, 2)
}

func TestBuildFileUsesContext(t *testing.T) {
	ctx := Parse(concat(ftyp, moov, moof1, mdat1))
	current := Parse(concat(moof2, mdat2))

	data, rest, err := BuildFile(current, ctx)
	require.NoError(t, err)
	require.Equal(t, concat(ftyp, moov, moof2, mdat2), data)
	require.Empty(t, rest)
}

func TestBuildFileMissingBoxes(t *testing.T) {
	_, _, err := BuildFile(Parse(concat(moof1, mdat1)), nil)
	require.ErrorIs(t, err, media.ErrMissingStructure)
	require.ErrorContains(t, err, "ftyp")

	_, _, err = BuildFile(Parse(concat(moof1, mdat1)), Parse(ftyp))
	var missing *media.MissingStructureError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, "moov box", missing.Structure)
}

func TestBuildFileDivertsFromFirstBreak(t *testing.T) {
	f := Parse(concat(ftyp, moov, moof1, mdat1, mdat2, moof2, mdat2))
	data, rest, err := BuildFile(f, nil)
	require.NoError(t, err)
	require.Equal(t, concat(ftyp, moov, moof1, mdat1), data)
	require.Equal(t, concat(mdat2, moof2, mdat2), rest)
}

func TestFixCarriesUnpairedMoof(t *testing.T) {
	prev := concat(ftyp, moov, moof1, mdat1, moof2)
	broken := concat(mdat2, moof1, mdat1)

	fixed, err := Fix(prev, broken, quietOptions())
	require.NoError(t, err)
	require.Equal(t, concat(ftyp, moov, moof2, mdat2, moof1, mdat1), fixed)
}

func TestFixCarriesIncompleteBox(t *testing.T) {
	prev := concat(ftyp, moov, moof1, mdat1, moof2[:6])
	broken := concat(moof2[6:], mdat2)

	fixed, err := Fix(prev, broken, quietOptions())
	require.NoError(t, err)
	require.Equal(t, concat(ftyp, moov, moof2, mdat2), fixed)
}

func TestFixWithoutHeaderFails(t *testing.T) {
	_, err := Fix(concat(moof1, mdat1), concat(moof2, mdat2), quietOptions())
	require.ErrorIs(t, err, media.ErrMissingStructure)
}

func TestMergeConcatenates(t *testing.T) {
	merged, err := Merge([][]byte{concat(ftyp, moov), concat(moof1, mdat1)}, quietOptions())
	require.NoError(t, err)
	require.Equal(t, concat(ftyp, moov, moof1, mdat1), merged)
}

func TestDisplayListsBoxes(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Display(&out, concat(ftyp, moov, moof1, mdat1, moof2[:4])))
	require.Equal(t, "box: ftyp, size 28 - major brand iso5, minor version 512, compatible brands iso5,iso6,mp41\n"+
		"box: moov, size 216\n"+
		"  box: mvhd, size 108\n"+
		"  box: trak, size 100\n"+
		"box: moof, size 24\n"+
		"  box: mfhd, size 16\n"+
		"box: mdat, size 10 - 2 bytes of data\n"+
		"rest: 4 bytes (mp4: incomplete box header)\n", out.String())
}
