package moviereader

import (
	"bytes"
	"context"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/moviereader/pkg/adapters/s3store"
	"github.com/user/moviereader/pkg/config"
	"github.com/user/moviereader/pkg/mocks"
	"github.com/user/moviereader/pkg/pipeline"
	"github.com/user/moviereader/pkg/ports"
)

func TestConfigBuilder_Defaults(t *testing.T) {
	cfg := NewConfigBuilder().Build()

	assert.Equal(t, "linear", cfg.WorkingSpace)
	assert.Equal(t, "sRGB", cfg.DisplaySpace)
	assert.Equal(t, "Cineon", cfg.LogSpace)
	assert.Equal(t, int64(512<<20), cfg.CacheBytes)
	assert.Equal(t, "auto", cfg.ProbeBackend)
	assert.False(t, cfg.S3Enabled())
	assert.Empty(t, cfg.DebugDir)
}

func TestConfigBuilder_Constraints(t *testing.T) {
	cfg := NewConfigBuilder().
		WithCacheBytes(-1).
		WithDecodeRetries(-2).
		WithWorkers(0).
		WithSheetColumns(0).
		WithThumbWidth(4).
		WithJPEGQuality(300).
		WithProbeBackend("gstreamer").
		Build()

	assert.Equal(t, int64(0), cfg.CacheBytes)
	assert.Equal(t, 0, cfg.DecodeRetries)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, 1, cfg.SheetColumns)
	assert.Equal(t, 16, cfg.ThumbWidth)
	assert.Equal(t, 90, cfg.JPEGQuality)
	assert.Equal(t, "auto", cfg.ProbeBackend)
}

func TestConfigBuilder_ColorSpacesKeepEmpty(t *testing.T) {
	cfg := NewConfigBuilder().WithColorSpaces("ACEScg", "", "").Build()
	assert.Equal(t, "ACEScg", cfg.WorkingSpace)
	assert.Equal(t, "sRGB", cfg.DisplaySpace)
}

func TestNewConfigBuilderFrom(t *testing.T) {
	fc := config.Defaults()
	fc.DisplaySpace = "rec709"
	fc.RevalidateAfter = 3 * time.Second
	fc.S3.Region = "eu-central-1"
	fc.Sheet.LabelColor = "#ff0000"
	fc.Debug = true
	fc.DebugDir = "/tmp/mr-debug"

	cfg := NewConfigBuilderFrom(fc).Build()

	assert.Equal(t, "rec709", cfg.DisplaySpace)
	assert.Equal(t, 3*time.Second, cfg.RevalidateAfter)
	assert.True(t, cfg.S3Enabled())
	assert.Equal(t, color.RGBA{R: 255, A: 255}, cfg.LabelColor)
	assert.Equal(t, "/tmp/mr-debug", cfg.DebugDir)

	fc.Debug = false
	assert.Empty(t, NewConfigBuilderFrom(fc).Build().DebugDir, "debug_dir alone does not enable debug output")
}

func newClient(t *testing.T) (*Client, *mocks.Media, *mocks.FileSystem) {
	t.Helper()
	locator := mocks.NewLocator()
	locator.Set("/shots/clip.mov", ports.Signature{ModTime: 1, Size: 1})
	opener := mocks.NewMediaOpener()
	movie := mocks.NewMovie(32, 18, 24)
	opener.Add("/shots/clip.mov", movie)
	fs := mocks.NewFileSystem()

	c := NewWithDependencies(NewConfigBuilder().WithSheetColumns(4).WithThumbWidth(64).Build(), Dependencies{
		Opener:  opener,
		Locator: locator,
		FS:      fs,
	})
	t.Cleanup(func() { c.Close() })
	return c, movie, fs
}

func TestClient_WriteFrame(t *testing.T) {
	c, _, fs := newClient(t)
	ctx := context.Background()

	img, err := c.WriteFrame(ctx, pipeline.ReadRequest{Path: "/shots/clip.mov", Frame: 100, Stream: pipeline.BestStream, Missing: pipeline.MissingHold}, "out/frame.png")
	require.NoError(t, err)
	assert.Equal(t, 24, img.Frame)
	assert.Equal(t, "linear", img.ColorSpace)

	data, err := fs.ReadFile("out/frame.png")
	require.NoError(t, err)
	decoded, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 32, decoded.Bounds().Dx())

	// Frame 24 is grey level 24 in sRGB; the round trip through linear
	// returns it within 16-bit precision.
	r, _, _, a := decoded.At(5, 5).RGBA()
	assert.InDelta(t, 24*0x101, float64(r), 0x101)
	assert.Equal(t, uint32(0xffff), a)
}

func TestClient_EncodeFrame_Black(t *testing.T) {
	c, movie, _ := newClient(t)

	data, img, err := c.EncodeFrame(context.Background(), pipeline.ReadRequest{
		Path:  "/shots/clip.mov",
		Frame: 1,
		Mask:  pipeline.MaskConfig{StartMode: pipeline.MaskBlackOutside, Start: 5, End: 10},
	}, ports.FormatPNG)
	require.NoError(t, err)
	assert.True(t, img.Black)
	assert.Zero(t, movie.DecodeCount())

	decoded, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	r, g, b, _ := decoded.At(0, 0).RGBA()
	assert.Equal(t, []uint32{0, 0, 0}, []uint32{r, g, b})
}

func TestClient_ContactSheet(t *testing.T) {
	c, movie, fs := newClient(t)

	result, err := c.WriteContactSheet(context.Background(), pipeline.SheetInput{
		Path: "/shots/clip.mov", Stream: pipeline.BestStream, First: 1, Last: 24, Step: 3,
	}, "sheet.jpg")
	require.NoError(t, err)

	assert.Equal(t, []int{1, 4, 7, 10, 13, 16, 19, 22}, result.Frames)
	assert.Empty(t, result.Failed)
	assert.Equal(t, 8, movie.DecodeCount())
	// 4 columns of 64px thumbnails.
	assert.Equal(t, 16*2+4*64+3*8, result.Image.Bounds().Dx())

	ok, err := fs.Exists("sheet.jpg")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClient_ProbeInvalidateStats(t *testing.T) {
	c, _, _ := newClient(t)
	ctx := context.Background()

	res, err := c.Probe(ctx, "/shots/clip.mov", 0)
	require.NoError(t, err)
	assert.Equal(t, 24, res.Streams[0].FrameCount)

	_, err = c.ReadFrame(ctx, pipeline.ReadRequest{Path: "/shots/clip.mov", Frame: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, c.Stats().Cache.Entries)
	assert.Equal(t, 1, c.Stats().Resources)

	assert.Equal(t, 1, c.Invalidate("/shots/clip.mov"))
	assert.Zero(t, c.Stats().Resources)
}

func TestNew_WithS3(t *testing.T) {
	cfg := NewConfigBuilder().WithS3(s3store.Config{
		Region:          "us-east-1",
		Endpoint:        "http://localhost:4566",
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
		CacheDir:        t.TempDir(),
	}).Build()

	c, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.NotNil(t, c)
	require.NoError(t, c.Close())
}
