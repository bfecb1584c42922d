// Package filesink provides a file-based debug sink implementation.
package filesink

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/user/moviereader/pkg/ports"
)

// Sink saves debug output to files under baseDir, one subdirectory per
// resource name.
type Sink struct {
	baseDir  string
	fs       ports.FileSystem
	renderer ports.Renderer
}

// New creates a new FileSink.
func New(baseDir string, fs ports.FileSystem, renderer ports.Renderer) *Sink {
	return &Sink{
		baseDir:  baseDir,
		fs:       fs,
		renderer: renderer,
	}
}

// Enabled returns true as this sink saves output.
func (s *Sink) Enabled() bool {
	return true
}

// SaveProbeJSON saves the probed metadata of a resource.
func (s *Sink) SaveProbeJSON(name string, data []byte) error {
	dir, err := s.dir(name)
	if err != nil {
		return err
	}
	return s.fs.WriteFile(filepath.Join(dir, "probe.json"), data)
}

// SaveDecodedFrame saves a decoded frame as PNG.
func (s *Sink) SaveDecodedFrame(name string, frame int, img image.Image) error {
	dir, err := s.dir(name)
	if err != nil {
		return err
	}
	dir = filepath.Join(dir, "frames")
	if err := s.fs.MkdirAll(dir); err != nil {
		return err
	}
	data, err := s.renderer.EncodeImage(img, ports.FormatPNG, 0)
	if err != nil {
		return fmt.Errorf("encode decoded frame: %w", err)
	}
	return s.fs.WriteFile(filepath.Join(dir, fmt.Sprintf("frame-%06d.png", frame)), data)
}

// SaveContactSheet saves a rendered contact sheet.
func (s *Sink) SaveContactSheet(name string, img image.Image) error {
	dir, err := s.dir(name)
	if err != nil {
		return err
	}
	data, err := s.renderer.EncodeImage(img, ports.FormatPNG, 0)
	if err != nil {
		return fmt.Errorf("encode contact sheet: %w", err)
	}
	return s.fs.WriteFile(filepath.Join(dir, "contact.png"), data)
}

func (s *Sink) dir(name string) (string, error) {
	dir := filepath.Join(s.baseDir, safeName(name))
	if err := s.fs.MkdirAll(dir); err != nil {
		return "", err
	}
	return dir, nil
}

// safeName flattens a media path into a single directory name.
func safeName(name string) string {
	name = strings.TrimPrefix(name, "s3://")
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_")
	name = strings.Trim(r.Replace(name), "_.")
	if name == "" {
		return "media"
	}
	return name
}

// Ensure Sink implements ports.DebugSink
var _ ports.DebugSink = (*Sink)(nil)
