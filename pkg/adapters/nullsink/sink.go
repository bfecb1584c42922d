// Package nullsink provides the debug sink used when debug output is off.
package nullsink

import (
	"image"

	"github.com/user/moviereader/pkg/ports"
)

// Sink discards probe JSON, decoded frames and contact sheets.
type Sink struct{}

// New creates a new Sink.
func New() *Sink {
	return &Sink{}
}

// Enabled reports false so callers can skip encoding debug images at all.
func (*Sink) Enabled() bool { return false }

func (*Sink) SaveProbeJSON(string, []byte) error { return nil }

func (*Sink) SaveDecodedFrame(string, int, image.Image) error { return nil }

func (*Sink) SaveContactSheet(string, image.Image) error { return nil }

var _ ports.DebugSink = (*Sink)(nil)
