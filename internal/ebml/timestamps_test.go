package ebml_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/autobrr/go-mediafix/internal/ebml"
	"github.com/autobrr/go-mediafix/internal/ebml/ebmltest"
	"github.com/autobrr/go-mediafix/internal/media"
)

// timeline returns the cluster timecodes and the absolute block times of a
// stream as they are stored.
func timeline(t *testing.T, buf []byte) (clusters, blocks []int64) {
	t.Helper()
	res, err := ebml.DecodeComplete(buf, media.Options{})
	require.NoError(t, err)
	var current int64
	for _, ev := range res.Events {
		el := ev.Element
		switch {
		case el.Special == ebml.SpecialTimecode:
			current = int64(el.Value.Uint)
			clusters = append(clusters, current)
		case el.Block != nil:
			blocks = append(blocks, current+int64(el.Block.Timecode))
		}
	}
	return clusters, blocks
}

func TestFixTimestampsContinuesRestartedCluster(t *testing.T) {
	buf := ebmltest.Recording(
		ebmltest.LiveCluster(0, ebmltest.Blocks(3, 0, 20)...),
		ebmltest.LiveCluster(0, ebmltest.Blocks(3, 0, 20)...),
	)
	res, err := ebml.Decode(buf, media.Options{FixTimestamps: true})
	require.NoError(t, err)
	require.Equal(t, int64(100), res.LastTimestamp)

	clusters, blocks := timeline(t, res.Buffer)
	require.Equal(t, []int64{0, 60}, clusters)
	require.Equal(t, []int64{0, 20, 40, 60, 80, 100}, blocks)
}

func TestFixTimestampsRemovesFirstBlockDelay(t *testing.T) {
	buf := ebmltest.Recording(
		ebmltest.LiveCluster(1000, ebmltest.Blocks(3, 30, 20)...),
	)
	res, err := ebml.Decode(buf, media.Options{FixTimestamps: true})
	require.NoError(t, err)
	require.Len(t, res.Buffer, len(buf))

	clusters, blocks := timeline(t, res.Buffer)
	require.Equal(t, []int64{0}, clusters)
	require.Equal(t, []int64{0, 20, 40}, blocks)
}

func TestFixTimestampsWidensTimecode(t *testing.T) {
	buf := ebmltest.Recording(
		ebmltest.Cluster(0, ebmltest.Blocks(3, 0, 100)...),
		ebmltest.Cluster(0, ebmltest.Blocks(2, 0, 100)...),
	)
	res, err := ebml.Decode(buf, media.Options{FixTimestamps: true})
	require.NoError(t, err)
	require.Len(t, res.Buffer, len(buf)+1)

	fixed, err := ebml.DecodeComplete(res.Buffer, media.Options{})
	require.NoError(t, err)
	require.False(t, fixed.Incomplete)
	requireBalanced(t, fixed.Events)

	clusters, blocks := timeline(t, res.Buffer)
	require.Equal(t, []int64{0, 300}, clusters)
	require.Equal(t, []int64{0, 100, 200, 300, 400}, blocks)
}

func TestFixTimestampsClampsJumps(t *testing.T) {
	buf := ebmltest.Recording(
		ebmltest.LiveCluster(0,
			ebmltest.SimpleBlock(1, 0, true, nil),
			ebmltest.SimpleBlock(1, 20, true, nil),
			ebmltest.SimpleBlock(1, 500, true, nil),
		),
	)

	res, err := ebml.Decode(buf, media.Options{FixTimestamps: true})
	require.NoError(t, err)
	_, blocks := timeline(t, res.Buffer)
	require.Equal(t, []int64{0, 20, 500}, blocks)

	res, err = ebml.Decode(buf, media.Options{FixTimestamps: true, ClampTimestampJumps: true})
	require.NoError(t, err)
	_, blocks = timeline(t, res.Buffer)
	require.Equal(t, []int64{0, 20, 20 + ebml.DefaultTimestampDelta}, blocks)
}

func TestFixTimestampsPreservesPrefix(t *testing.T) {
	first := ebmltest.LiveCluster(1000, ebmltest.Blocks(3, 0, 20)...)
	header := ebmltest.Recording(first)
	buf := append(append([]byte(nil), header...), ebmltest.LiveCluster(0, ebmltest.Blocks(2, 0, 20)...)...)

	d := ebml.NewDecoder(media.Options{FixTimestamps: true})
	d.PreserveBefore(len(header))
	require.NoError(t, d.Feed(buf))
	res := d.Result()

	require.Equal(t, header, res.Buffer[:len(header)])
	clusters, blocks := timeline(t, res.Buffer)
	require.Equal(t, []int64{1000, 1060}, clusters)
	require.Equal(t, []int64{1000, 1020, 1040, 1060, 1080}, blocks)
}
