package mocks

import (
	"context"
	"image"
	"sync"

	"github.com/user/moviereader/pkg/ports"
)

// ConvertCall records one Convert invocation.
type ConvertCall struct {
	From, To string
}

// ColorConverter is a mock implementation of ports.ColorConverter. By default
// every space is known and images pass through unchanged.
type ColorConverter struct {
	ConvertFunc func(ctx context.Context, img image.Image, from, to string) (image.Image, error)
	KnownFunc   func(space string) bool

	mu    sync.Mutex
	Calls []ConvertCall
}

func (m *ColorConverter) Convert(ctx context.Context, img image.Image, from, to string) (image.Image, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, ConvertCall{From: from, To: to})
	m.mu.Unlock()
	if m.ConvertFunc != nil {
		return m.ConvertFunc(ctx, img, from, to)
	}
	return img, nil
}

func (m *ColorConverter) Known(space string) bool {
	if m.KnownFunc != nil {
		return m.KnownFunc(space)
	}
	return true
}

// CallCount returns the number of Convert calls.
func (m *ColorConverter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

var _ ports.ColorConverter = (*ColorConverter)(nil)
