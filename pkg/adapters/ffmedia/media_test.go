package ffmedia

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/moviereader/pkg/ports"
)

const probeJSON = `{
  "streams": [
    {"index": 0, "codec_name": "aac", "codec_type": "audio"},
    {"index": 1, "codec_name": "prores", "codec_type": "video", "pix_fmt": "yuv422p10le",
     "width": 1920, "height": 1080, "sample_aspect_ratio": "1:1",
     "avg_frame_rate": "24/1", "start_time": "0.000000", "duration": "4.000000",
     "nb_frames": "96", "disposition": {"default": 1}},
    {"index": 2, "codec_name": "mjpeg", "codec_type": "video", "width": 300, "height": 300,
     "avg_frame_rate": "0/0", "disposition": {"attached_pic": 1}},
    {"index": 3, "codec_name": "h264", "codec_type": "video", "pix_fmt": "yuv420p",
     "width": 640, "height": 360, "sample_aspect_ratio": "4:3",
     "avg_frame_rate": "30000/1001", "duration": "2.002000", "bits_per_raw_sample": "8"}
  ],
  "format": {"filename": "clip.mov", "format_name": "mov,mp4,m4a,3gp,3g2,mj2",
             "duration": "4.000000", "size": "1048576"}
}`

func TestParseProbeJSON(t *testing.T) {
	res, err := ParseProbeJSON([]byte(probeJSON))
	require.NoError(t, err)

	assert.Equal(t, "mov,mp4,m4a,3gp,3g2,mj2", res.Info.Format)
	assert.Equal(t, 4*time.Second, res.Info.Duration)
	assert.Equal(t, int64(1048576), res.Info.Size)

	require.Len(t, res.Streams, 2, "audio and cover art are skipped")

	prores := res.Streams[0]
	assert.Equal(t, 1, prores.Index)
	assert.Equal(t, "prores", prores.Codec)
	assert.Equal(t, 10, prores.BitDepth)
	assert.Equal(t, 96, prores.FrameCount)
	assert.Equal(t, 1, prores.FirstFrame)
	assert.True(t, prores.Default)
	assert.Equal(t, 1.0, prores.PixelAspect)

	h264 := res.Streams[1]
	assert.Equal(t, 3, h264.Index)
	assert.Equal(t, 8, h264.BitDepth)
	assert.InDelta(t, 4.0/3.0, h264.PixelAspect, 1e-9)
	assert.Equal(t, 60, h264.FrameCount, "derived from duration")
	assert.False(t, h264.Default)
	assert.Empty(t, res.Guessed)
}

func TestParseProbeJSON_Invalid(t *testing.T) {
	_, err := ParseProbeJSON([]byte("{"))
	assert.Error(t, err)
}

func TestFrameCount(t *testing.T) {
	tests := []struct {
		name     string
		nb       int
		duration float64
		fps      float64
		want     int
		guessed  bool
	}{
		{"container count wins", 10, 100, 24, 10, false},
		{"exact multiple does not round up", 0, 1.0, 24, 24, false},
		{"partial frame rounds up", 0, 1.01, 24, 25, false},
		{"no duration guesses one", 0, 0, 24, 1, true},
		{"no rate guesses one", 0, 3, 0, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, guessed := frameCount(tt.nb, tt.duration, tt.fps)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.guessed, guessed)
		})
	}
}

func TestBitDepth(t *testing.T) {
	assert.Equal(t, 12, bitDepth("12", "yuv420p"))
	assert.Equal(t, 10, bitDepth("", "yuv420p10le"))
	assert.Equal(t, 16, bitDepth("", "rgba64be"))
	assert.Equal(t, 8, bitDepth("", "yuv420p"))
}

func TestSeekTime(t *testing.T) {
	sd := ports.StreamDescriptor{FirstFrame: 1, FrameRate: ports.Rational{Num: 25, Den: 1}}
	assert.Equal(t, time.Duration(0), seekTime(sd, 1))
	assert.InDelta(t, float64(30*time.Millisecond), float64(seekTime(sd, 2)), float64(time.Microsecond))
	assert.Equal(t, time.Duration(0), seekTime(ports.StreamDescriptor{}, 5))
}

func TestClassify(t *testing.T) {
	base := errors.New("exit status 1")
	tests := []struct {
		stderr string
		want   error
	}{
		{"clip.mov: No such file or directory", ports.ErrMediaNotFound},
		{"clip.mov: Permission denied", ports.ErrMediaUnreadable},
		{"Resource temporarily unavailable", ports.ErrBusy},
		{"clip.mov: Invalid data found when processing input", ports.ErrCodecFailure},
		{"Stream map '0:7' matches no streams.", ports.ErrStreamNotFound},
		{"something else entirely", ports.ErrMediaUnreadable},
	}
	for _, tt := range tests {
		err := classify([]byte(tt.stderr), base, ports.ErrMediaUnreadable)
		assert.ErrorIs(t, err, tt.want, tt.stderr)
	}
}

// fakeTools writes placeholder executables so tool lookup succeeds.
func fakeTools(t *testing.T) (ffmpeg, ffprobe string) {
	t.Helper()
	dir := t.TempDir()
	ffmpeg = filepath.Join(dir, "ffmpeg")
	ffprobe = filepath.Join(dir, "ffprobe")
	require.NoError(t, os.WriteFile(ffmpeg, nil, 0755))
	require.NoError(t, os.WriteFile(ffprobe, nil, 0755))
	return ffmpeg, ffprobe
}

func writeClip(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mov")
	require.NoError(t, os.WriteFile(path, []byte("movie"), 0644))
	return path
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA64(image.Rect(0, 0, w, h))
	img.SetNRGBA64(0, 0, color.NRGBA64{R: 0xffff, A: 0xffff})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type call struct {
	name string
	args []string
}

func TestOpenAndDecode(t *testing.T) {
	ffmpeg, ffprobe := fakeTools(t)
	path := writeClip(t)
	frame := pngBytes(t, 4, 2)

	var calls []call
	run := func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		calls = append(calls, call{name, args})
		if name == ffprobe {
			return []byte(probeJSON), nil, nil
		}
		return frame, nil, nil
	}

	o := New(Options{FFmpegPath: ffmpeg, FFprobePath: ffprobe, Run: run})
	h, err := o.Open(context.Background(), path)
	require.NoError(t, err)
	defer h.Close()

	require.Len(t, h.Streams(), 2)
	assert.Equal(t, "mov,mp4,m4a,3gp,3g2,mj2", h.Info().Format)

	raw, err := h.Decode(context.Background(), 1, 25)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 2), raw.Image.Bounds())
	assert.Equal(t, 25, raw.Frame)
	assert.Equal(t, "yuv422p10le", raw.PixelFormat)

	require.Len(t, calls, 2)
	args := strings.Join(calls[1].args, " ")
	assert.Contains(t, args, "-ss 0.989583")
	assert.Contains(t, args, "-map 0:1")
	assert.Contains(t, args, "-pix_fmt rgba64be")
}

func TestOpenMissingFile(t *testing.T) {
	o := New(Options{Backend: BackendNative})
	_, err := o.Open(context.Background(), filepath.Join(t.TempDir(), "nope.mov"))
	assert.ErrorIs(t, err, ports.ErrMediaNotFound)
}

func TestOpenNativeUnreadable(t *testing.T) {
	o := New(Options{Backend: BackendNative})
	_, err := o.Open(context.Background(), writeClip(t))
	assert.ErrorIs(t, err, ports.ErrMediaUnreadable)
}

func TestDecodeErrors(t *testing.T) {
	ffmpeg, ffprobe := fakeTools(t)
	path := writeClip(t)

	var decodeOut []byte
	var decodeErr []byte
	var decodeFail error
	run := func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		if name == ffprobe {
			return []byte(probeJSON), nil, nil
		}
		return decodeOut, decodeErr, decodeFail
	}
	o := New(Options{FFmpegPath: ffmpeg, FFprobePath: ffprobe, Run: run})
	h, err := o.Open(context.Background(), path)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = h.Decode(ctx, 9, 1)
	assert.ErrorIs(t, err, ports.ErrStreamNotFound)

	_, err = h.Decode(ctx, 1, 97)
	assert.ErrorIs(t, err, ports.ErrFrameNotFound)

	_, err = h.Decode(ctx, 1, 5)
	assert.ErrorIs(t, err, ports.ErrFrameNotFound, "empty output")

	decodeErr = []byte("Resource temporarily unavailable")
	decodeFail = errors.New("exit status 1")
	_, err = h.Decode(ctx, 1, 5)
	assert.ErrorIs(t, err, ports.ErrBusy)

	decodeErr, decodeFail = nil, nil
	decodeOut = []byte("not a png")
	_, err = h.Decode(ctx, 1, 5)
	assert.ErrorIs(t, err, ports.ErrCodecFailure)

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))
	_, err = h.Decode(ctx, 1, 5)
	assert.ErrorIs(t, err, ports.ErrStale)

	require.NoError(t, h.Close())
	_, err = h.Decode(ctx, 1, 5)
	assert.Error(t, err)
}
