package mocks

import (
	"image"
	"sync"

	"github.com/user/moviereader/pkg/ports"
)

// DebugSink is a mock implementation of ports.DebugSink.
type DebugSink struct {
	mu sync.RWMutex

	enabled bool

	ProbeJSON     map[string][]byte
	DecodedFrames map[string]map[int]image.Image
	ContactSheets map[string]image.Image
}

// NewDebugSink creates a new mock DebugSink.
func NewDebugSink(enabled bool) *DebugSink {
	return &DebugSink{
		enabled:       enabled,
		ProbeJSON:     make(map[string][]byte),
		DecodedFrames: make(map[string]map[int]image.Image),
		ContactSheets: make(map[string]image.Image),
	}
}

func (m *DebugSink) Enabled() bool {
	return m.enabled
}

func (m *DebugSink) SaveProbeJSON(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ProbeJSON[name] = data
	return nil
}

func (m *DebugSink) SaveDecodedFrame(name string, frame int, img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DecodedFrames[name] == nil {
		m.DecodedFrames[name] = make(map[int]image.Image)
	}
	m.DecodedFrames[name][frame] = img
	return nil
}

func (m *DebugSink) SaveContactSheet(name string, img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ContactSheets[name] = img
	return nil
}

// Probe returns the saved probe JSON for name.
func (m *DebugSink) Probe(name string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.ProbeJSON[name]
	return data, ok
}

// DecodedCount returns how many frames were saved for name.
func (m *DebugSink) DecodedCount(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.DecodedFrames[name])
}

var _ ports.DebugSink = (*DebugSink)(nil)

// NullSink is a no-op implementation of ports.DebugSink.
type NullSink struct{}

func (m *NullSink) Enabled() bool                                                  { return false }
func (m *NullSink) SaveProbeJSON(name string, data []byte) error                   { return nil }
func (m *NullSink) SaveDecodedFrame(name string, frame int, img image.Image) error { return nil }
func (m *NullSink) SaveContactSheet(name string, img image.Image) error            { return nil }

var _ ports.DebugSink = (*NullSink)(nil)
