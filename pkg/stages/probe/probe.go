// Package probe implements the probing stage: it locates a media resource,
// opens it and describes its video streams.
package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/user/moviereader/pkg/pipeline"
	"github.com/user/moviereader/pkg/ports"
)

// Stage probes media resources.
type Stage struct {
	locator ports.Locator
	opener  ports.MediaOpener
	sink    ports.DebugSink
	logger  ports.Logger
	now     func() time.Time
}

// New creates a new probe stage.
func New(locator ports.Locator, opener ports.MediaOpener, sink ports.DebugSink, logger ports.Logger) *Stage {
	return &Stage{
		locator: locator,
		opener:  opener,
		sink:    sink,
		logger:  logger.WithComponent("probe"),
		now:     time.Now,
	}
}

// Execute probes the resource and releases the media handle.
func (s *Stage) Execute(ctx context.Context, input pipeline.ProbeInput) (*pipeline.MediaResource, error) {
	res, h, err := s.Open(ctx, input)
	if err != nil {
		return nil, err
	}
	if err := h.Close(); err != nil {
		s.logger.Warn("Failed to close decoder: %s", err)
	}
	return res, nil
}

// Open probes the resource and returns the open handle along with it, so a
// caller that is about to decode does not open the file twice. The caller
// owns the handle.
func (s *Stage) Open(ctx context.Context, input pipeline.ProbeInput) (*pipeline.MediaResource, ports.MediaHandle, error) {
	s.logger.Debug("Probing %s", input.Path)

	sig, err := s.locator.Stat(ctx, input.Path)
	if err != nil {
		return nil, nil, probeError(input.Path, err)
	}
	local, err := s.locator.Localize(ctx, input.Path)
	if err != nil {
		return nil, nil, probeError(input.Path, err)
	}

	h, err := s.opener.Open(ctx, local)
	if err != nil {
		return nil, nil, probeError(input.Path, err)
	}

	streams := h.Streams()
	if len(streams) == 0 {
		h.Close()
		return nil, nil, &pipeline.ProbeError{Kind: pipeline.ErrNoVideoStream, Path: input.Path}
	}

	info := h.Info()
	res := &pipeline.MediaResource{
		ID: pipeline.ResourceID{
			Path:      input.Path,
			Signature: sig,
			Refresh:   input.RefreshCount,
		},
		LocalPath: local,
		Format:    info.Format,
		Duration:  info.Duration,
		Size:      info.Size,
		Streams:   streams,
		ProbedAt:  s.now(),
	}

	s.logger.Debug("Probed %s: %s, %d video streams", input.Path, res.Format, len(streams))
	for _, st := range streams {
		s.logger.Debug("Stream %d: %s %dx%d, %d frames", st.Index, st.Codec, st.Width, st.Height, st.FrameCount)
	}

	if s.sink.Enabled() {
		if data, err := json.MarshalIndent(res, "", "  "); err == nil {
			if err := s.sink.SaveProbeJSON(input.Path, data); err != nil {
				s.logger.Warn("Failed to save debug output: %s", err)
			}
		}
	}

	return res, h, nil
}

func probeError(path string, err error) error {
	kind := pipeline.ErrUnreadable
	switch {
	case errors.Is(err, ports.ErrMediaNotFound):
		kind = pipeline.ErrNotFound
	case errors.Is(err, ports.ErrStreamNotFound):
		kind = pipeline.ErrNoVideoStream
	}
	return &pipeline.ProbeError{Kind: kind, Path: path, Err: fmt.Errorf("probe: %w", err)}
}
