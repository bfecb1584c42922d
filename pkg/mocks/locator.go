package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/user/moviereader/pkg/ports"
)

// Locator is a mock implementation of ports.Locator backed by a map of
// signatures. Localize returns the path unchanged.
type Locator struct {
	StatFunc     func(ctx context.Context, path string) (ports.Signature, error)
	LocalizeFunc func(ctx context.Context, path string) (string, error)

	mu    sync.Mutex
	sigs  map[string]ports.Signature
	stats int
}

// NewLocator creates an empty locator.
func NewLocator() *Locator {
	return &Locator{sigs: make(map[string]ports.Signature)}
}

// Set registers or updates the signature of path.
func (m *Locator) Set(path string, sig ports.Signature) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sigs[path] = sig
}

// Delete removes path.
func (m *Locator) Delete(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sigs, path)
}

func (m *Locator) Stat(ctx context.Context, path string) (ports.Signature, error) {
	m.mu.Lock()
	m.stats++
	sig, ok := m.sigs[path]
	fn := m.StatFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, path)
	}
	if !ok {
		return ports.Signature{}, fmt.Errorf("%w: %s", ports.ErrMediaNotFound, path)
	}
	return sig, nil
}

func (m *Locator) Localize(ctx context.Context, path string) (string, error) {
	if m.LocalizeFunc != nil {
		return m.LocalizeFunc(ctx, path)
	}
	return path, nil
}

// StatCount returns the number of Stat calls.
func (m *Locator) StatCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

var _ ports.Locator = (*Locator)(nil)
