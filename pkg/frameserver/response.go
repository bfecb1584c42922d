package frameserver

import (
	"github.com/user/moviereader/pkg/pipeline"
)

type probeResponse struct {
	Path       string           `json:"path"`
	Format     string           `json:"format"`
	DurationMS int64            `json:"duration_ms"`
	Size       int64            `json:"size"`
	ETag       string           `json:"etag,omitempty"`
	Refresh    int              `json:"refresh"`
	Streams    []streamResponse `json:"streams"`
}

type streamResponse struct {
	Index       int     `json:"index"`
	Default     bool    `json:"default"`
	Codec       string  `json:"codec"`
	PixelFormat string  `json:"pixel_format"`
	BitDepth    int     `json:"bit_depth"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	PixelAspect float64 `json:"pixel_aspect"`
	FrameRate   string  `json:"frame_rate,omitempty"`
	FirstFrame  int     `json:"first_frame"`
	LastFrame   int     `json:"last_frame"`
	FrameCount  int     `json:"frame_count"`
}

func newProbeResponse(res *pipeline.MediaResource) probeResponse {
	out := probeResponse{
		Path:       res.ID.Path,
		Format:     res.Format,
		DurationMS: res.Duration.Milliseconds(),
		Size:       res.Size,
		ETag:       res.ID.Signature.ETag,
		Refresh:    res.ID.Refresh,
		Streams:    make([]streamResponse, 0, len(res.Streams)),
	}
	for _, s := range res.Streams {
		sr := streamResponse{
			Index:       s.Index,
			Default:     s.Default,
			Codec:       s.Codec,
			PixelFormat: s.PixelFormat,
			BitDepth:    s.BitDepth,
			Width:       s.Width,
			Height:      s.Height,
			PixelAspect: s.PixelAspect,
			FirstFrame:  s.FirstFrame,
			LastFrame:   pipeline.FrameRangeOf(s).Last(),
			FrameCount:  s.FrameCount,
		}
		if !s.FrameRate.IsZero() {
			sr.FrameRate = s.FrameRate.String()
		}
		out.Streams = append(out.Streams, sr)
	}
	return out
}
