// Package moviereader provides a high-level API for reading movie frames.
package moviereader

import (
	"image/color"
	"time"

	"github.com/user/moviereader/pkg/adapters/s3store"
	"github.com/user/moviereader/pkg/config"
)

// Config represents the configuration of a Client.
type Config struct {
	// Color
	WorkingSpace string // space of every returned image
	DisplaySpace string // space of written files and contact sheets
	LogSpace     string // space assigned to log-encoded formats

	// Pipeline
	CacheBytes      int64         // frame cache budget (0 = no caching)
	DecodeRetries   int           // retries of busy decodes
	RevalidateAfter time.Duration // how long a signature is trusted (0 = every read)
	Workers         int           // contact sheet readers

	// Media tools
	FFmpegPath   string
	FFprobePath  string
	ProbeBackend string // auto, ffprobe or native

	// Remote media; S3 is used when Region or Endpoint is set
	S3 s3store.Config

	// Contact sheet
	SheetColumns    int
	ThumbWidth      int
	BackgroundColor color.Color
	BorderColor     color.Color
	LabelColor      color.Color
	FontPath        string

	// Output
	JPEGQuality int

	// Debug output directory (empty = disabled)
	DebugDir string
}

// S3Enabled reports whether s3:// paths can be resolved.
func (c Config) S3Enabled() bool {
	return c.S3.Region != "" || c.S3.Endpoint != ""
}

// ConfigBuilder provides a fluent interface for building Config.
type ConfigBuilder struct {
	config Config
}

// NewConfigBuilder creates a new ConfigBuilder with default values.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{config: defaults()}
}

// NewConfigBuilderFrom creates a ConfigBuilder from a loaded configuration file.
func NewConfigBuilderFrom(c config.Config) *ConfigBuilder {
	b := NewConfigBuilder().
		WithColorSpaces(c.WorkingSpace, c.DisplaySpace, c.LogSpace).
		WithCacheBytes(c.CacheBytes).
		WithDecodeRetries(c.DecodeRetries).
		WithRevalidateAfter(c.RevalidateAfter).
		WithWorkers(c.Workers).
		WithFFmpegPath(c.FFmpegPath).
		WithFFprobePath(c.FFprobePath).
		WithProbeBackend(c.ProbeBackend).
		WithS3(s3store.Config{
			Region:          c.S3.Region,
			Endpoint:        c.S3.Endpoint,
			AccessKeyID:     c.S3.AccessKeyID,
			SecretAccessKey: c.S3.SecretAccessKey,
			CacheDir:        c.S3.CacheDir,
		}).
		WithSheetColumns(c.Sheet.Columns).
		WithThumbWidth(c.Sheet.ThumbWidth).
		WithFontPath(c.Sheet.FontPath)

	if c.Sheet.BackgroundColor != "" {
		b.WithBackgroundColor(config.ParseColor(c.Sheet.BackgroundColor))
	}
	if c.Sheet.BorderColor != "" {
		b.WithBorderColor(config.ParseColor(c.Sheet.BorderColor))
	}
	if c.Sheet.LabelColor != "" {
		b.WithLabelColor(config.ParseColor(c.Sheet.LabelColor))
	}
	if c.Debug {
		b.WithDebugDir(c.DebugDir)
	}
	return b
}

func defaults() Config {
	return Config{
		// Color
		WorkingSpace: "linear",
		DisplaySpace: "sRGB",
		LogSpace:     "Cineon",

		// Pipeline
		CacheBytes:    512 << 20,
		DecodeRetries: 1,
		Workers:       4,

		// Media tools
		ProbeBackend: "auto",

		// Contact sheet
		SheetColumns:    6,
		ThumbWidth:      192,
		BackgroundColor: color.RGBA{R: 24, G: 24, B: 24, A: 255},    // #181818
		BorderColor:     color.RGBA{R: 80, G: 80, B: 80, A: 255},    // #505050
		LabelColor:      color.RGBA{R: 220, G: 220, B: 220, A: 255}, // #dcdcdc

		// Output
		JPEGQuality: 90,
	}
}

// Build returns the final Config, applying constraints.
func (b *ConfigBuilder) Build() Config {
	cfg := b.config

	if cfg.CacheBytes < 0 {
		cfg.CacheBytes = 0
	}
	if cfg.DecodeRetries < 0 {
		cfg.DecodeRetries = 0
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.SheetColumns < 1 {
		cfg.SheetColumns = 1
	}
	if cfg.ThumbWidth < 16 {
		cfg.ThumbWidth = 16
	}
	if cfg.JPEGQuality < 1 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = 90
	}
	switch cfg.ProbeBackend {
	case "auto", "ffprobe", "native":
	default:
		cfg.ProbeBackend = "auto"
	}

	return cfg
}

// WithColorSpaces sets the working, display and log spaces. Empty names keep
// the current value.
func (b *ConfigBuilder) WithColorSpaces(working, display, log string) *ConfigBuilder {
	if working != "" {
		b.config.WorkingSpace = working
	}
	if display != "" {
		b.config.DisplaySpace = display
	}
	if log != "" {
		b.config.LogSpace = log
	}
	return b
}

// WithCacheBytes sets the frame cache budget in bytes.
func (b *ConfigBuilder) WithCacheBytes(n int64) *ConfigBuilder {
	b.config.CacheBytes = n
	return b
}

// WithDecodeRetries sets how often a busy decode is retried.
func (b *ConfigBuilder) WithDecodeRetries(n int) *ConfigBuilder {
	b.config.DecodeRetries = n
	return b
}

// WithRevalidateAfter sets how long a resource signature is trusted.
func (b *ConfigBuilder) WithRevalidateAfter(d time.Duration) *ConfigBuilder {
	b.config.RevalidateAfter = d
	return b
}

// WithWorkers sets the number of contact sheet readers.
// Values below 1 will be forced to 1.
func (b *ConfigBuilder) WithWorkers(n int) *ConfigBuilder {
	b.config.Workers = n
	return b
}

// WithFFmpegPath sets the ffmpeg executable.
func (b *ConfigBuilder) WithFFmpegPath(path string) *ConfigBuilder {
	b.config.FFmpegPath = path
	return b
}

// WithFFprobePath sets the ffprobe executable.
func (b *ConfigBuilder) WithFFprobePath(path string) *ConfigBuilder {
	b.config.FFprobePath = path
	return b
}

// WithProbeBackend selects auto, ffprobe or native probing.
func (b *ConfigBuilder) WithProbeBackend(backend string) *ConfigBuilder {
	b.config.ProbeBackend = backend
	return b
}

// WithS3 enables s3:// paths.
func (b *ConfigBuilder) WithS3(cfg s3store.Config) *ConfigBuilder {
	b.config.S3 = cfg
	return b
}

// WithSheetColumns sets the default contact sheet column count.
func (b *ConfigBuilder) WithSheetColumns(n int) *ConfigBuilder {
	b.config.SheetColumns = n
	return b
}

// WithThumbWidth sets the default contact sheet thumbnail width.
func (b *ConfigBuilder) WithThumbWidth(w int) *ConfigBuilder {
	b.config.ThumbWidth = w
	return b
}

// WithBackgroundColor sets the contact sheet background color.
func (b *ConfigBuilder) WithBackgroundColor(c color.Color) *ConfigBuilder {
	b.config.BackgroundColor = c
	return b
}

// WithBorderColor sets the thumbnail border color.
func (b *ConfigBuilder) WithBorderColor(c color.Color) *ConfigBuilder {
	b.config.BorderColor = c
	return b
}

// WithLabelColor sets the label text color.
func (b *ConfigBuilder) WithLabelColor(c color.Color) *ConfigBuilder {
	b.config.LabelColor = c
	return b
}

// WithFontPath sets a TrueType font for labels.
func (b *ConfigBuilder) WithFontPath(path string) *ConfigBuilder {
	b.config.FontPath = path
	return b
}

// WithJPEGQuality sets the quality of JPEG output (1-100).
func (b *ConfigBuilder) WithJPEGQuality(q int) *ConfigBuilder {
	b.config.JPEGQuality = q
	return b
}

// WithDebugDir enables debug output into dir.
func (b *ConfigBuilder) WithDebugDir(dir string) *ConfigBuilder {
	b.config.DebugDir = dir
	return b
}
