package probe

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/moviereader/pkg/adapters/logger"
	"github.com/user/moviereader/pkg/mocks"
	"github.com/user/moviereader/pkg/pipeline"
	"github.com/user/moviereader/pkg/ports"
)

func setup() (*mocks.Locator, *mocks.MediaOpener, *mocks.DebugSink) {
	loc := mocks.NewLocator()
	loc.Set("clip.mov", ports.Signature{ModTime: 1, Size: 100})
	opener := mocks.NewMediaOpener()
	opener.Add("clip.mov", mocks.NewMovie(64, 36, 48))
	return loc, opener, mocks.NewDebugSink(true)
}

func TestExecute(t *testing.T) {
	loc, opener, sink := setup()
	stage := New(loc, opener, sink, logger.NewNoop())

	res, err := stage.Execute(context.Background(), pipeline.ProbeInput{Path: "clip.mov", RefreshCount: 2})
	require.NoError(t, err)

	assert.Equal(t, pipeline.ResourceID{Path: "clip.mov", Signature: ports.Signature{ModTime: 1, Size: 100}, Refresh: 2}, res.ID)
	assert.Equal(t, "clip.mov", res.LocalPath)
	require.Len(t, res.Streams, 1)
	assert.Equal(t, 48, res.Streams[0].FrameCount)
	assert.False(t, res.ProbedAt.IsZero())

	assert.Equal(t, 1, opener.CloseCount("clip.mov"), "Execute releases the handle")

	data, ok := sink.Probe("clip.mov")
	require.True(t, ok)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "Streams")
}

func TestOpenKeepsHandle(t *testing.T) {
	loc, opener, sink := setup()
	stage := New(loc, opener, sink, logger.NewNoop())

	_, h, err := stage.Open(context.Background(), pipeline.ProbeInput{Path: "clip.mov"})
	require.NoError(t, err)
	assert.Zero(t, opener.CloseCount("clip.mov"))

	raw, err := h.Decode(context.Background(), 0, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, raw.Frame)
	require.NoError(t, h.Close())
}

func TestNotFound(t *testing.T) {
	loc, opener, sink := setup()
	stage := New(loc, opener, sink, logger.NewNoop())

	_, err := stage.Execute(context.Background(), pipeline.ProbeInput{Path: "missing.mov"})

	var pe *pipeline.ProbeError
	require.ErrorAs(t, err, &pe)
	assert.ErrorIs(t, err, pipeline.ErrNotFound)
	assert.ErrorIs(t, err, ports.ErrMediaNotFound)
	assert.Equal(t, "missing.mov", pe.Path)
}

func TestUnreadable(t *testing.T) {
	loc, opener, sink := setup()
	opener.OpenFunc = func(ctx context.Context, path string) (ports.MediaHandle, error) {
		return nil, errors.Join(ports.ErrMediaUnreadable, errors.New("moov atom not found"))
	}
	stage := New(loc, opener, sink, logger.NewNoop())

	_, err := stage.Execute(context.Background(), pipeline.ProbeInput{Path: "clip.mov"})
	assert.ErrorIs(t, err, pipeline.ErrUnreadable)
}

func TestNoVideoStream(t *testing.T) {
	loc, opener, sink := setup()
	audioOnly := mocks.NewMovie(0, 0, 0)
	audioOnly.Streams = nil
	opener.Add("clip.mov", audioOnly)
	stage := New(loc, opener, sink, logger.NewNoop())

	_, err := stage.Execute(context.Background(), pipeline.ProbeInput{Path: "clip.mov"})
	assert.ErrorIs(t, err, pipeline.ErrNoVideoStream)
	assert.Equal(t, 1, opener.CloseCount("clip.mov"))
}

func TestLocalizeFailure(t *testing.T) {
	loc, opener, sink := setup()
	loc.LocalizeFunc = func(ctx context.Context, path string) (string, error) {
		return "", context.Canceled
	}
	stage := New(loc, opener, sink, logger.NewNoop())

	_, err := stage.Execute(context.Background(), pipeline.ProbeInput{Path: "clip.mov"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, opener.OpenCount("clip.mov"))
}
