package pipeline

import (
	"errors"
	"fmt"
)

// Error kinds. Every typed error below carries one of these as its Kind and
// matches it with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrUnreadable        = errors.New("unreadable")
	ErrNoVideoStream     = errors.New("no video stream")
	ErrStreamNotFound    = errors.New("stream not found")
	ErrFrameNotFound     = errors.New("frame not found")
	ErrCodecFailure      = errors.New("codec failure")
	ErrUnknownFormat     = errors.New("unknown format")
	ErrUnknownColorSpace = errors.New("unknown color space")
	ErrInvalidRequest    = errors.New("invalid request")
)

// ProbeError reports a failure to open or describe a resource.
// Kind is ErrNotFound, ErrUnreadable or ErrNoVideoStream.
type ProbeError struct {
	Kind error
	Path string
	Err  error
}

func (e *ProbeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("probe %s: %v: %v", e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("probe %s: %v", e.Path, e.Kind)
}

func (e *ProbeError) Unwrap() []error { return unwrapPair(e.Kind, e.Err) }

// DecodeError reports a failure to produce a frame.
// Kind is ErrStreamNotFound, ErrFrameNotFound or ErrCodecFailure.
type DecodeError struct {
	Kind   error
	Stream int
	Frame  int
	Err    error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("decode stream %d frame %d: %v", e.Stream, e.Frame, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() []error { return unwrapPair(e.Kind, e.Err) }

// ColorSpaceError reports a failed color-space resolution or conversion.
// Kind is ErrUnknownFormat or ErrUnknownColorSpace.
type ColorSpaceError struct {
	Kind     error
	Format   string
	DataType string
	Space    string
	Err      error
}

func (e *ColorSpaceError) Error() string {
	if e.Space != "" {
		return fmt.Sprintf("color space %q: %v", e.Space, e.Kind)
	}
	return fmt.Sprintf("color space for %s (%s): %v", e.Format, e.DataType, e.Kind)
}

func (e *ColorSpaceError) Unwrap() []error { return unwrapPair(e.Kind, e.Err) }

// ReadError wraps the error of the first failing state of a frame read.
type ReadError struct {
	State State
	Path  string
	Frame int
	Err   error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s frame %d: %s: %v", e.Path, e.Frame, e.State, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

func unwrapPair(kind, err error) []error {
	if err == nil {
		return []error{kind}
	}
	return []error{kind, err}
}
