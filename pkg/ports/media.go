package ports

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"
)

// Errors reported by media adapters. Callers match them with errors.Is.
var (
	// ErrMediaNotFound is returned when the resource does not exist.
	ErrMediaNotFound = errors.New("media: not found")

	// ErrMediaUnreadable is returned when the resource exists but cannot be
	// opened or demuxed.
	ErrMediaUnreadable = errors.New("media: unreadable")

	// ErrStreamNotFound is returned when a stream index does not name a video stream.
	ErrStreamNotFound = errors.New("media: stream not found")

	// ErrFrameNotFound is returned when the decoder produced no picture for a frame.
	ErrFrameNotFound = errors.New("media: frame not found")

	// ErrCodecFailure is returned when the decoder rejects the stream data.
	ErrCodecFailure = errors.New("media: codec failure")

	// ErrBusy is returned for transient contention on an external resource.
	// A single retry is expected to succeed.
	ErrBusy = errors.New("media: resource busy")

	// ErrStale is returned when the resource changed after the handle was opened.
	ErrStale = errors.New("media: resource changed since open")

	// ErrUnknownColorSpace is returned by converters for unregistered space names.
	ErrUnknownColorSpace = errors.New("color: unknown color space")
)

// Rational is a frame rate or aspect expressed as Num/Den.
type Rational struct {
	Num int
	Den int
}

// Float returns the rational as a float64, or 0 when undefined.
func (r Rational) Float() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// IsZero reports whether the rational is undefined.
func (r Rational) IsZero() bool {
	return r.Num == 0 || r.Den == 0
}

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// StreamDescriptor describes one video stream of a media resource.
// Frames are numbered from FirstFrame and are contiguous.
type StreamDescriptor struct {
	Index       int
	Codec       string
	PixelFormat string
	BitDepth    int
	Width       int
	Height      int
	PixelAspect float64
	FrameRate   Rational
	StartTime   time.Duration
	FirstFrame  int
	FrameCount  int
	Default     bool
}

// ContainerInfo describes the container of a media resource.
type ContainerInfo struct {
	Format   string
	Duration time.Duration
	Size     int64
}

// RawFrame is a decoded picture before color conversion.
type RawFrame struct {
	Image       image.Image
	Stream      int
	Frame       int
	PixelFormat string
	BitDepth    int
}

// MediaHandle is an open media resource. Implementations are not required to
// be safe for concurrent Decode calls.
type MediaHandle interface {
	// Info returns container level metadata.
	Info() ContainerInfo

	// Streams lists the video streams of the resource.
	Streams() []StreamDescriptor

	// Decode decodes one frame of one stream.
	Decode(ctx context.Context, stream, frame int) (RawFrame, error)

	// Close releases the handle.
	Close() error
}

// MediaOpener opens local media files.
type MediaOpener interface {
	Open(ctx context.Context, path string) (MediaHandle, error)
}
