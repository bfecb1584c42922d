package ports

import (
	"image"
)

// DebugSink abstracts debug output for intermediate results.
type DebugSink interface {
	// Enabled returns true if debug output is enabled.
	Enabled() bool

	// SaveProbeJSON saves the probed metadata of a resource.
	SaveProbeJSON(name string, data []byte) error

	// SaveDecodedFrame saves a frame as it came out of the decoder.
	SaveDecodedFrame(name string, frame int, img image.Image) error

	// SaveContactSheet saves a rendered contact sheet.
	SaveContactSheet(name string, img image.Image) error
}
