package colorspace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/moviereader/pkg/pipeline"
)

func newTestResolver() *Resolver {
	return NewResolver(Roles{Display: "Display", Log: "Log"})
}

func TestResolve_DPXBranchesOnDataType(t *testing.T) {
	r := newTestResolver()

	got, err := r.Resolve("Automatic", "dpx", "uint16", "Working")
	require.NoError(t, err)
	assert.Equal(t, "Display", got)

	got, err = r.Resolve("Automatic", "dpx", "uint10", "Working")
	require.NoError(t, err)
	assert.Equal(t, "Log", got)
}

func TestResolve_ExplicitOverrideWins(t *testing.T) {
	r := newTestResolver()
	got, err := r.Resolve("ACEScg", "not-a-format", "", "Working")
	require.NoError(t, err)
	assert.Equal(t, "ACEScg", got)
}

func TestResolve_EmptyOverrideIsAutomatic(t *testing.T) {
	r := newTestResolver()
	got, err := r.Resolve("", "openexr", "half", "scene_linear")
	require.NoError(t, err)
	assert.Equal(t, "scene_linear", got, "linear entries resolve to the injected working space")
}

func TestResolve_Table(t *testing.T) {
	r := newTestResolver()
	tests := []struct {
		format, dataType, want string
	}{
		{"png", "uint8", "Display"},
		{"cineon", "uint10", "Log"},
		{"exr", "float", "Working"},
		{"fits", "uint8", "Display"},
		{"fits", "double", "Working"},
		{"tiff", "uint16", "Display"},
		{"tiff", "float", "Working"},
		{"tiff", "int16", "Working"},
		{"TIF", "uint8", "Display"},
		{"zfile", "float", "Working"},
		{"h264", "uint8", "Display"},
		{"prores", "uint10", "Display"},
		{"mjpeg", "uint8", "Display"},
	}
	for _, tt := range tests {
		got, err := r.Resolve(Automatic, tt.format, tt.dataType, "Working")
		require.NoError(t, err, "%s/%s", tt.format, tt.dataType)
		assert.Equal(t, tt.want, got, "%s/%s", tt.format, tt.dataType)
	}
}

func TestResolve_UnknownFormat(t *testing.T) {
	r := newTestResolver()

	_, err := r.Resolve(Automatic, "gifv", "uint8", "Working")
	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrUnknownFormat)

	var cerr *pipeline.ColorSpaceError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "gifv", cerr.Format)

	_, err = r.Resolve(Automatic, "dpx", "float", "Working")
	assert.ErrorIs(t, err, pipeline.ErrUnknownFormat, "dpx has no float branch")
}

func TestDataTypeOf(t *testing.T) {
	tests := []struct {
		pixFmt string
		depth  int
		want   string
	}{
		{"yuv420p", 0, "uint8"},
		{"yuv420p10le", 0, "uint10"},
		{"gbrp12le", 0, "uint12"},
		{"rgb48le", 0, "uint16"},
		{"rgba64be", 0, "uint16"},
		{"gray16le", 0, "uint16"},
		{"gbrpf32le", 0, "float"},
		{"gbrapf16le", 0, "half"},
		{"yuv444p", 10, "uint10"},
		{"", 32, "uint32"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DataTypeOf(tt.pixFmt, tt.depth), "%s/%d", tt.pixFmt, tt.depth)
	}
}

func TestStage_UsesInjectedFunc(t *testing.T) {
	var calls int
	stage := NewStage(func(override, format, dataType, working string) (string, error) {
		calls++
		return working + "-" + format, nil
	})

	got, err := stage.Execute(context.Background(), Input{Format: "dpx", Working: "lin"})
	require.NoError(t, err)
	assert.Equal(t, "lin-dpx", got)
	assert.Equal(t, 1, calls)
}

func TestIsAutomatic(t *testing.T) {
	assert.True(t, IsAutomatic(""))
	assert.True(t, IsAutomatic("automatic"))
	assert.False(t, IsAutomatic("sRGB"))
}
