// Package summarizer builds human readable probe reports.
package summarizer

import (
	"time"

	"github.com/user/moviereader/pkg/pipeline"
	"github.com/user/moviereader/pkg/ports"
	"github.com/user/moviereader/pkg/stages/colorspace"
)

// Summary contains everything known about a probed resource.
type Summary struct {
	// Metadata
	GeneratedAt time.Time

	// Resource information
	Media MediaInfo

	// Video streams
	Streams []StreamInfo

	// Pipeline settings the report was produced with
	Settings Settings
}

// MediaInfo describes the container.
type MediaInfo struct {
	Path      string
	LocalPath string
	Format    string
	Duration  time.Duration
	Size      int64
	ModTime   time.Time
	ETag      string
	Refresh   int
}

// StreamInfo describes one video stream.
type StreamInfo struct {
	Index       int
	Default     bool
	Codec       string
	PixelFormat string
	BitDepth    int
	Width       int
	Height      int
	PixelAspect float64
	FrameRate   ports.Rational
	FirstFrame  int
	FrameCount  int

	// ColorSpace is the automatic input space, or empty with ColorSpaceError
	// set when it cannot be resolved.
	ColorSpace      string
	ColorSpaceError string
}

// LastFrame returns the last available frame number.
func (s StreamInfo) LastFrame() int {
	return s.FirstFrame + s.FrameCount - 1
}

// Settings contains the color configuration of the pipeline.
type Settings struct {
	WorkingSpace string
	DisplaySpace string
	LogSpace     string
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithResource fills media and stream information from a probed resource.
func (b *Builder) WithResource(res *pipeline.MediaResource) *Builder {
	b.summary.Media = MediaInfo{
		Path:      res.ID.Path,
		LocalPath: res.LocalPath,
		Format:    res.Format,
		Duration:  res.Duration,
		Size:      res.Size,
		ETag:      res.ID.Signature.ETag,
		Refresh:   res.ID.Refresh,
	}
	if res.ID.Signature.ModTime != 0 {
		b.summary.Media.ModTime = time.Unix(0, res.ID.Signature.ModTime).UTC()
	}

	b.summary.Streams = make([]StreamInfo, len(res.Streams))
	for i, s := range res.Streams {
		b.summary.Streams[i] = StreamInfo{
			Index:       s.Index,
			Default:     s.Default,
			Codec:       s.Codec,
			PixelFormat: s.PixelFormat,
			BitDepth:    s.BitDepth,
			Width:       s.Width,
			Height:      s.Height,
			PixelAspect: s.PixelAspect,
			FrameRate:   s.FrameRate,
			FirstFrame:  s.FirstFrame,
			FrameCount:  s.FrameCount,
		}
	}
	return b
}

// WithColorSpaces resolves the automatic input space of every stream added
// so far.
func (b *Builder) WithColorSpaces(resolve colorspace.Func, settings Settings) *Builder {
	b.summary.Settings = settings
	for i := range b.summary.Streams {
		s := &b.summary.Streams[i]
		space, err := resolve("", s.Codec, colorspace.DataTypeOf(s.PixelFormat, s.BitDepth), settings.WorkingSpace)
		if err != nil {
			s.ColorSpaceError = err.Error()
			continue
		}
		s.ColorSpace = space
	}
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}
