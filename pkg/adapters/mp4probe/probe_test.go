package mp4probe

import (
	"bytes"
	"testing"
	"time"

	"github.com/Eyevinn/mp4ff/av1"
	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/moviereader/pkg/ports"
)

// buildClip assembles a fragmented av01 file with n one-byte samples.
func buildClip(t *testing.T, width, height uint16, timescale, dur uint32, n int, highBitDepth bool) []byte {
	t.Helper()

	init := mp4.CreateEmptyInit()
	init.AddEmptyTrack(timescale, "video", "en")
	trak := init.Moov.Trak

	var hbd byte
	if highBitDepth {
		hbd = 1
	}
	av1C := &mp4.Av1CBox{CodecConfRec: av1.CodecConfRec{
		Version:            1,
		SeqLevelIdx0:       8,
		HighBitdepth:       hbd,
		ChromaSubsamplingX: 1,
		ChromaSubsamplingY: 1,
	}}
	trak.Mdia.Minf.Stbl.Stsd.AddChild(mp4.CreateVisualSampleEntryBox("av01", width, height, av1C))

	frag, err := mp4.CreateFragment(1, trak.Tkhd.TrackID)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		flags := mp4.NonSyncSampleFlags
		if i == 0 {
			flags = mp4.SyncSampleFlags
		}
		frag.AddFullSample(mp4.FullSample{
			Sample:     mp4.Sample{Flags: flags, Size: 1, Dur: dur},
			DecodeTime: uint64(i) * uint64(dur),
			Data:       []byte{byte(i)},
		})
	}

	var buf bytes.Buffer
	require.NoError(t, mp4.NewFtyp("isom", 0x200, []string{"isom", "av01"}).Encode(&buf))
	require.NoError(t, init.Moov.Encode(&buf))
	require.NoError(t, frag.Encode(&buf))
	return buf.Bytes()
}

func TestProbeReader_FragmentedAV1(t *testing.T) {
	data := buildClip(t, 320, 180, 24000, 1000, 12, false)

	res, err := ProbeReader(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, res.Streams, 1)

	s := res.Streams[0]
	assert.Equal(t, 0, s.Index)
	assert.Equal(t, CodecAV1, s.Codec)
	assert.Equal(t, 320, s.Width)
	assert.Equal(t, 180, s.Height)
	assert.Equal(t, 12, s.FrameCount)
	assert.Equal(t, 1, s.FirstFrame)
	assert.Equal(t, ports.Rational{Num: 24, Den: 1}, s.FrameRate)
	assert.Equal(t, 8, s.BitDepth)
	assert.Equal(t, "yuv420p", s.PixelFormat)
	assert.True(t, s.Default)

	assert.Equal(t, "mp4", res.Info.Format)
	assert.Equal(t, 500*time.Millisecond, res.Info.Duration)
}

func TestProbeReader_HighBitDepth(t *testing.T) {
	data := buildClip(t, 64, 64, 30000, 1001, 2, true)

	res, err := ProbeReader(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, res.Streams, 1)
	assert.Equal(t, 10, res.Streams[0].BitDepth)
	assert.Equal(t, "yuv420p10le", res.Streams[0].PixelFormat)
	assert.Equal(t, ports.Rational{Num: 30000, Den: 1001}, res.Streams[0].FrameRate)
}

func TestProbeReader_NotMP4(t *testing.T) {
	_, err := ProbeReader(bytes.NewReader([]byte("definitely not a movie")))
	assert.Error(t, err)
}

func TestProbeFile_Missing(t *testing.T) {
	_, err := ProbeFile("/nonexistent/clip.mp4")
	assert.Error(t, err)
}

func TestRateOf(t *testing.T) {
	assert.Equal(t, ports.Rational{Num: 25, Den: 1}, rateOf(90000, 3600))
	assert.True(t, rateOf(0, 10).IsZero())
	assert.True(t, rateOf(1000, 0).IsZero())
}
