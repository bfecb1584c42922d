package mocks

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/user/moviereader/pkg/ports"
)

// DecodeCall records one Decode invocation.
type DecodeCall struct {
	Stream int
	Frame  int
}

// Media is an in-memory movie served by MediaOpener.
type Media struct {
	Info    ports.ContainerInfo
	Streams []ports.StreamDescriptor

	// DecodeFunc overrides the default decoder, which paints each frame a
	// grey level equal to frame%256.
	DecodeFunc func(ctx context.Context, stream, frame int) (ports.RawFrame, error)

	mu      sync.Mutex
	decodes []DecodeCall
}

// NewMovie creates a single stream movie with frames numbered from 1.
func NewMovie(width, height, frames int) *Media {
	return &Media{
		Info: ports.ContainerInfo{Format: "mov,mp4,m4a,3gp,3g2,mj2"},
		Streams: []ports.StreamDescriptor{{
			Index:       0,
			Codec:       "h264",
			PixelFormat: "yuv420p",
			BitDepth:    8,
			Width:       width,
			Height:      height,
			PixelAspect: 1,
			FrameRate:   ports.Rational{Num: 24, Den: 1},
			FirstFrame:  1,
			FrameCount:  frames,
			Default:     true,
		}},
	}
}

func (m *Media) decode(ctx context.Context, stream, frame int) (ports.RawFrame, error) {
	m.mu.Lock()
	m.decodes = append(m.decodes, DecodeCall{Stream: stream, Frame: frame})
	fn := m.DecodeFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, stream, frame)
	}

	var sd *ports.StreamDescriptor
	for i := range m.Streams {
		if m.Streams[i].Index == stream {
			sd = &m.Streams[i]
		}
	}
	if sd == nil {
		return ports.RawFrame{}, fmt.Errorf("%w: %d", ports.ErrStreamNotFound, stream)
	}
	if frame < sd.FirstFrame || frame >= sd.FirstFrame+sd.FrameCount {
		return ports.RawFrame{}, fmt.Errorf("%w: %d", ports.ErrFrameNotFound, frame)
	}
	return ports.RawFrame{
		Image:       GreyFrame(sd.Width, sd.Height, frame),
		Stream:      stream,
		Frame:       frame,
		PixelFormat: sd.PixelFormat,
		BitDepth:    sd.BitDepth,
	}, nil
}

// Decodes returns the recorded decode calls.
func (m *Media) Decodes() []DecodeCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]DecodeCall, len(m.decodes))
	copy(out, m.decodes)
	return out
}

// DecodeCount returns the number of decode calls.
func (m *Media) DecodeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.decodes)
}

// GreyFrame returns an opaque image whose pixels all have grey level frame%256.
func GreyFrame(width, height, frame int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	c := color.RGBA{R: uint8(frame), G: uint8(frame), B: uint8(frame), A: 255}
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
	return img
}

// MediaOpener is a mock implementation of ports.MediaOpener serving
// registered Media by path.
type MediaOpener struct {
	OpenFunc func(ctx context.Context, path string) (ports.MediaHandle, error)

	mu     sync.Mutex
	media  map[string]*Media
	opens  map[string]int
	closes map[string]int
}

// NewMediaOpener creates an empty opener.
func NewMediaOpener() *MediaOpener {
	return &MediaOpener{
		media:  make(map[string]*Media),
		opens:  make(map[string]int),
		closes: make(map[string]int),
	}
}

// Add registers media under path, replacing any previous entry.
func (m *MediaOpener) Add(path string, media *Media) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.media[path] = media
}

func (m *MediaOpener) Open(ctx context.Context, path string) (ports.MediaHandle, error) {
	m.mu.Lock()
	m.opens[path]++
	media, ok := m.media[path]
	fn := m.OpenFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, path)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrMediaNotFound, path)
	}
	return &MediaHandle{media: media, onClose: func() {
		m.mu.Lock()
		m.closes[path]++
		m.mu.Unlock()
	}}, nil
}

// OpenCount returns how many times path was opened.
func (m *MediaOpener) OpenCount(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens[path]
}

// CloseCount returns how many handles of path were closed.
func (m *MediaOpener) CloseCount(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes[path]
}

var _ ports.MediaOpener = (*MediaOpener)(nil)

// MediaHandle is a handle on a Media.
type MediaHandle struct {
	media   *Media
	onClose func()

	mu     sync.Mutex
	closed bool
}

func (h *MediaHandle) Info() ports.ContainerInfo { return h.media.Info }

func (h *MediaHandle) Streams() []ports.StreamDescriptor {
	out := make([]ports.StreamDescriptor, len(h.media.Streams))
	copy(out, h.media.Streams)
	return out
}

func (h *MediaHandle) Decode(ctx context.Context, stream, frame int) (ports.RawFrame, error) {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return ports.RawFrame{}, fmt.Errorf("%w: handle closed", ports.ErrMediaUnreadable)
	}
	return h.media.decode(ctx, stream, frame)
}

func (h *MediaHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed && h.onClose != nil {
		h.onClose()
	}
	h.closed = true
	return nil
}

var _ ports.MediaHandle = (*MediaHandle)(nil)
