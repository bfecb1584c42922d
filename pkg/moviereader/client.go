package moviereader

import (
	"context"
	"fmt"
	"image"
	"path/filepath"

	"github.com/user/moviereader/pkg/adapters/colorconvert"
	"github.com/user/moviereader/pkg/adapters/ffmedia"
	"github.com/user/moviereader/pkg/adapters/filesink"
	"github.com/user/moviereader/pkg/adapters/ggrenderer"
	"github.com/user/moviereader/pkg/adapters/logger"
	"github.com/user/moviereader/pkg/adapters/nullsink"
	"github.com/user/moviereader/pkg/adapters/osfilesystem"
	"github.com/user/moviereader/pkg/adapters/s3store"
	"github.com/user/moviereader/pkg/framecache"
	"github.com/user/moviereader/pkg/pipeline"
	"github.com/user/moviereader/pkg/ports"
	"github.com/user/moviereader/pkg/reader"
	"github.com/user/moviereader/pkg/stages/colorspace"
	"github.com/user/moviereader/pkg/stages/contactsheet"
	"github.com/user/moviereader/pkg/stages/probe"
)

// Dependencies overrides the adapters a Client is built from. Nil fields
// get the default adapter.
type Dependencies struct {
	Opener    ports.MediaOpener
	Locator   ports.Locator
	FS        ports.FileSystem
	Renderer  ports.Renderer
	Converter ports.ColorConverter
	Sink      ports.DebugSink
	Logger    ports.Logger
}

// Client reads frames, probes media and renders contact sheets.
// It is safe for concurrent use.
type Client struct {
	cfg       Config
	fs        ports.FileSystem
	renderer  ports.Renderer
	converter ports.ColorConverter
	logger    ports.Logger
	reader    *reader.Reader
	sheets    *contactsheet.Stage
}

// New creates a Client with the default adapters: local files, S3 when
// configured, and the ffmpeg tools.
func New(ctx context.Context, cfg Config, log ports.Logger) (*Client, error) {
	deps := Dependencies{Logger: log}
	if cfg.S3Enabled() {
		store, err := s3store.New(ctx, cfg.S3, osfilesystem.New())
		if err != nil {
			return nil, fmt.Errorf("s3: %w", err)
		}
		deps.Locator = store
	}
	return NewWithDependencies(cfg, deps), nil
}

// NewWithDependencies creates a Client from explicit adapters.
func NewWithDependencies(cfg Config, deps Dependencies) *Client {
	log := deps.Logger
	if log == nil {
		log = logger.NewNoop()
	}
	fs := deps.FS
	if fs == nil {
		fs = osfilesystem.New()
	}
	locator := deps.Locator
	if locator == nil {
		locator = osfilesystem.New()
	}
	renderer := deps.Renderer
	if renderer == nil {
		renderer = ggrenderer.New()
	}
	converter := deps.Converter
	if converter == nil {
		converter = colorconvert.New(cfg.WorkingSpace)
	}
	opener := deps.Opener
	if opener == nil {
		opener = ffmedia.New(ffmedia.Options{
			FFmpegPath:  cfg.FFmpegPath,
			FFprobePath: cfg.FFprobePath,
			Backend:     ffmedia.Backend(cfg.ProbeBackend),
			Logger:      log,
		})
	}
	sink := deps.Sink
	if sink == nil {
		if cfg.DebugDir != "" {
			sink = filesink.New(cfg.DebugDir, fs, renderer)
		} else {
			sink = nullsink.New()
		}
	}

	resolver := colorspace.NewResolver(colorspace.Roles{Display: cfg.DisplaySpace, Log: cfg.LogSpace})
	r := reader.New(
		reader.Config{
			WorkingSpace:    cfg.WorkingSpace,
			ColorSpace:      resolver.Func(),
			DecodeRetries:   cfg.DecodeRetries,
			RevalidateAfter: cfg.RevalidateAfter,
		},
		probe.New(locator, opener, sink, log),
		locator,
		converter,
		framecache.New(cfg.CacheBytes, log),
		sink,
		log,
	)

	sheets := contactsheet.NewStage(r, converter, renderer, sink, log, contactsheet.Options{
		DisplaySpace: cfg.DisplaySpace,
		Workers:      cfg.Workers,
		Theme: pipeline.SheetTheme{
			BackgroundColor: cfg.BackgroundColor,
			BorderColor:     cfg.BorderColor,
			LabelColor:      cfg.LabelColor,
			ErrorColor:      pipeline.DefaultSheetTheme().ErrorColor,
			FontPath:        cfg.FontPath,
		},
	})

	return &Client{
		cfg:       cfg,
		fs:        fs,
		renderer:  renderer,
		converter: converter,
		logger:    log,
		reader:    r,
		sheets:    sheets,
	}
}

// Config returns the client's configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// Probe returns the probed description of path.
func (c *Client) Probe(ctx context.Context, path string, refresh int) (*pipeline.MediaResource, error) {
	c.logger.Info("Probing %s", path)
	return c.reader.Probe(ctx, path, refresh)
}

// ReadFrame reads one frame in the working space.
func (c *Client) ReadFrame(ctx context.Context, req pipeline.ReadRequest) (*pipeline.Image, error) {
	return c.reader.ReadFrame(ctx, req)
}

// DisplayImage converts a frame from its space to the display space.
func (c *Client) DisplayImage(ctx context.Context, img *pipeline.Image) (image.Image, error) {
	if img.Black {
		return img.Pixels, nil
	}
	return c.converter.Convert(ctx, img.Pixels, img.ColorSpace, c.cfg.DisplaySpace)
}

// EncodeFrame reads a frame and encodes it for display.
func (c *Client) EncodeFrame(ctx context.Context, req pipeline.ReadRequest, format ports.ImageFormat) ([]byte, *pipeline.Image, error) {
	img, err := c.reader.ReadFrame(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	display, err := c.DisplayImage(ctx, img)
	if err != nil {
		return nil, img, err
	}
	data, err := c.renderer.EncodeImage(display, format, c.cfg.JPEGQuality)
	if err != nil {
		return nil, img, err
	}
	return data, img, nil
}

// WriteFrame reads a frame and writes it to outPath; the extension picks
// PNG or JPEG.
func (c *Client) WriteFrame(ctx context.Context, req pipeline.ReadRequest, outPath string) (*pipeline.Image, error) {
	c.logger.Info("Reading frame %d of %s", req.Frame, req.Path)
	data, img, err := c.EncodeFrame(ctx, req, ports.ParseImageFormat(outPath))
	if err != nil {
		return img, err
	}
	if err := c.write(outPath, data); err != nil {
		return img, err
	}
	c.logger.Info("Frame written to %s", outPath)
	return img, nil
}

// ContactSheet renders a contact sheet. Zero Columns and ThumbWidth use the
// configured defaults.
func (c *Client) ContactSheet(ctx context.Context, input pipeline.SheetInput) (pipeline.SheetResult, error) {
	if input.Columns <= 0 {
		input.Columns = c.cfg.SheetColumns
	}
	if input.ThumbWidth <= 0 {
		input.ThumbWidth = c.cfg.ThumbWidth
	}
	return c.sheets.Execute(ctx, input)
}

// WriteContactSheet renders a contact sheet into outPath.
func (c *Client) WriteContactSheet(ctx context.Context, input pipeline.SheetInput, outPath string) (pipeline.SheetResult, error) {
	result, err := c.ContactSheet(ctx, input)
	if err != nil {
		return result, err
	}
	data, err := c.renderer.EncodeImage(result.Image, ports.ParseImageFormat(outPath), c.cfg.JPEGQuality)
	if err != nil {
		return result, err
	}
	if err := c.write(outPath, data); err != nil {
		return result, err
	}
	c.logger.Info("Contact sheet written to %s", outPath)
	return result, nil
}

func (c *Client) write(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := c.fs.MkdirAll(dir); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := c.fs.WriteFile(path, data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Invalidate forgets path and its cached frames.
func (c *Client) Invalidate(path string) int {
	return c.reader.Invalidate(path)
}

// Stats returns the reader's statistics.
func (c *Client) Stats() reader.Stats {
	return c.reader.Stats()
}

// Close releases every decoder and the frame cache.
func (c *Client) Close() error {
	return c.reader.Close()
}
