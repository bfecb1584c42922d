// Package main provides the CLI entry point for moviereader.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/ideamans/go-l10n"

	"github.com/user/moviereader/pkg/adapters/logger"
	"github.com/user/moviereader/pkg/adapters/osfilesystem"
	"github.com/user/moviereader/pkg/config"
	"github.com/user/moviereader/pkg/frameserver"
	"github.com/user/moviereader/pkg/moviereader"
	"github.com/user/moviereader/pkg/pipeline"
	"github.com/user/moviereader/pkg/ports"
	"github.com/user/moviereader/pkg/stages/colorspace"
	"github.com/user/moviereader/pkg/summarizer"
)

// Globals are flags shared by every subcommand.
type Globals struct {
	Config   string `short:"c" type:"path" help:"Configuration file (YAML)."`
	LogLevel string `short:"l" help:"Log level (debug, info, warn, error, quiet)."`
	Debug    bool   `short:"d" help:"Enable debug output."`
	DebugDir string `help:"Directory for debug output."`
}

// CLI defines the command-line interface with subcommands.
type CLI struct {
	Globals

	Probe   ProbeCmd   `cmd:"" help:"Print the streams and color spaces of a movie."`
	Read    ReadCmd    `cmd:"" help:"Read one frame and write it as PNG or JPEG."`
	Contact ContactCmd `cmd:"" help:"Render a contact sheet of a frame range."`
	Serve   ServeCmd   `cmd:"" help:"Serve frames over HTTP."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// ProbeCmd defines the probe subcommand.
type ProbeCmd struct {
	Path    string `arg:"" help:"Movie path or s3:// URL."`
	Format  string `short:"f" default:"text" enum:"markdown,md,text,txt" help:"Report format (markdown, text)."`
	Output  string `short:"o" help:"Write the report to a file instead of stdout."`
	Refresh int    `help:"Refresh count; a new value forces a re-probe."`
}

// ReadCmd defines the read subcommand.
type ReadCmd struct {
	Path   string `arg:"" help:"Movie path or s3:// URL."`
	Output string `short:"o" required:"" help:"Output image path (.png, .jpg)."`

	Frame      int    `short:"f" required:"" help:"Frame number."`
	Stream     int    `short:"s" default:"-1" help:"Video stream index (-1 = best)."`
	StartMode  string `default:"none" help:"Policy before the start frame (none, blackOutside, clampToFrame)."`
	Start      int    `help:"First valid frame."`
	EndMode    string `default:"none" help:"Policy after the end frame (none, blackOutside, clampToFrame)."`
	End        int    `help:"Last valid frame."`
	Missing    string `default:"error" help:"Missing frame policy (error, black, hold)."`
	ColorSpace string `name:"colorspace" default:"Automatic" help:"Input color space (Automatic resolves from the codec)."`
	Refresh    int    `help:"Refresh count; a new value forces a re-probe."`
}

// ContactCmd defines the contact subcommand.
type ContactCmd struct {
	Path   string `arg:"" help:"Movie path or s3:// URL."`
	Output string `short:"o" required:"" help:"Output image path (.png, .jpg)."`

	First      int    `help:"First frame (default: first frame of the stream)."`
	Last       int    `help:"Last frame (default: last frame of the stream)."`
	Step       int    `default:"1" help:"Frame step."`
	Stream     int    `short:"s" default:"-1" help:"Video stream index (-1 = best)."`
	Columns    int    `help:"Number of columns (default from config)."`
	ThumbWidth int    `help:"Thumbnail width in pixels (default from config)."`
	Missing    string `default:"black" help:"Missing frame policy (error, black, hold)."`
	ColorSpace string `name:"colorspace" default:"Automatic" help:"Input color space (Automatic resolves from the codec)."`
}

// ServeCmd defines the serve subcommand.
type ServeCmd struct {
	Addr string `short:"a" help:"Listen address (default from config)."`
}

// VersionCmd shows version information.
type VersionCmd struct{}

var version = "dev"

func main() {
	cli := CLI{}

	ctx := kong.Parse(&cli,
		kong.Name("moviereader"),
		kong.Description(l10n.T("Read frames of movie files through a cached decoding pipeline.")),
		kong.UsageOnError(),
	)

	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}

// loadConfig builds the effective configuration: file, environment, then flags.
func (g *Globals) loadConfig(ctx context.Context) (config.Config, error) {
	cfg, err := config.Load(ctx, g.Config)
	if err != nil {
		return cfg, err
	}
	if g.LogLevel != "" {
		cfg.LogLevel = g.LogLevel
	}
	if g.Debug {
		cfg.Debug = true
	}
	if g.DebugDir != "" {
		cfg.DebugDir = g.DebugDir
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg config.Config) ports.Logger {
	level := ports.ParseLogLevel(cfg.LogLevel)
	if level == ports.LevelQuiet {
		return logger.NewNoop()
	}
	return logger.NewConsole(level)
}

// session holds what every subcommand needs.
type session struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    config.Config
	log    ports.Logger
	client *moviereader.Client
}

func (g *Globals) open() (*session, error) {
	ctx, cancel := context.WithCancel(context.Background())

	cfg, err := g.loadConfig(ctx)
	if err != nil {
		cancel()
		return nil, err
	}
	log := newLogger(cfg)

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			log.Warn("Interrupted, shutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	if cfg.Debug {
		if err := osfilesystem.New().MkdirAll(cfg.DebugDir); err != nil {
			cancel()
			return nil, fmt.Errorf("create debug directory: %w", err)
		}
	}

	client, err := moviereader.New(ctx, moviereader.NewConfigBuilderFrom(cfg).Build(), log)
	if err != nil {
		cancel()
		return nil, err
	}
	return &session{ctx: ctx, cancel: cancel, cfg: cfg, log: log, client: client}, nil
}

func (s *session) close() {
	_ = s.client.Close()
	s.cancel()
}

// Run executes the probe command.
func (cmd *ProbeCmd) Run(g *Globals) error {
	s, err := g.open()
	if err != nil {
		return err
	}
	defer s.close()

	res, err := s.client.Probe(s.ctx, cmd.Path, cmd.Refresh)
	if err != nil {
		s.log.Error("Failed to probe: %s", err.Error())
		return err
	}

	cfg := s.client.Config()
	resolver := colorspace.NewResolver(colorspace.Roles{Display: cfg.DisplaySpace, Log: cfg.LogSpace})
	summary := summarizer.NewBuilder().
		WithResource(res).
		WithColorSpaces(resolver.Func(), summarizer.Settings{
			WorkingSpace: cfg.WorkingSpace,
			DisplaySpace: cfg.DisplaySpace,
			LogSpace:     cfg.LogSpace,
		}).
		Build()

	formatter, err := summarizer.FormatterFor(cmd.Format,
		summarizer.WithTranslator(l10n.T),
		summarizer.WithVersion(version),
	)
	if err != nil {
		return err
	}
	writer := summarizer.NewWriter(formatter, osfilesystem.New())

	if cmd.Output == "" {
		return writer.WriteTo(os.Stdout, summary)
	}
	if err := writer.Write(cmd.Output, summary); err != nil {
		return err
	}
	s.log.Info("Report written to %s", cmd.Output)
	return nil
}

// Run executes the read command.
func (cmd *ReadCmd) Run(g *Globals) error {
	req, err := cmd.request()
	if err != nil {
		return err
	}

	s, err := g.open()
	if err != nil {
		return err
	}
	defer s.close()

	img, err := s.client.WriteFrame(s.ctx, req, cmd.Output)
	if err != nil {
		s.log.Error("Failed to read frame: %s", err.Error())
		return err
	}
	if img.Frame != cmd.Frame {
		s.log.Info("Frame %d resolved to %d", cmd.Frame, img.Frame)
	}
	return nil
}

func (cmd *ReadCmd) request() (pipeline.ReadRequest, error) {
	req := pipeline.ReadRequest{
		Path:         cmd.Path,
		Frame:        cmd.Frame,
		Stream:       cmd.Stream,
		ColorSpace:   cmd.ColorSpace,
		RefreshCount: cmd.Refresh,
		Mask:         pipeline.MaskConfig{Start: cmd.Start, End: cmd.End},
	}
	var err error
	if req.Mask.StartMode, err = pipeline.ParseMaskMode(cmd.StartMode); err != nil {
		return req, err
	}
	if req.Mask.EndMode, err = pipeline.ParseMaskMode(cmd.EndMode); err != nil {
		return req, err
	}
	if req.Missing, err = pipeline.ParseMissingFrameMode(cmd.Missing); err != nil {
		return req, err
	}
	return req, req.Mask.Validate()
}

// Run executes the contact command.
func (cmd *ContactCmd) Run(g *Globals) error {
	missing, err := pipeline.ParseMissingFrameMode(cmd.Missing)
	if err != nil {
		return err
	}

	s, err := g.open()
	if err != nil {
		return err
	}
	defer s.close()

	result, err := s.client.WriteContactSheet(s.ctx, pipeline.SheetInput{
		Path:       cmd.Path,
		Stream:     cmd.Stream,
		First:      cmd.First,
		Last:       cmd.Last,
		Step:       cmd.Step,
		Columns:    cmd.Columns,
		ThumbWidth: cmd.ThumbWidth,
		Missing:    missing,
		ColorSpace: cmd.ColorSpace,
	}, cmd.Output)
	if err != nil {
		return err
	}
	if len(result.Failed) > 0 {
		s.log.Warn("%d of %d frames could not be read: %v", len(result.Failed), len(result.Frames), result.Failed)
	}
	return nil
}

// Run executes the serve command.
func (cmd *ServeCmd) Run(g *Globals) error {
	s, err := g.open()
	if err != nil {
		return err
	}
	defer s.close()

	addr := s.cfg.Server.Addr
	if cmd.Addr != "" {
		addr = cmd.Addr
	}
	srv := frameserver.New(s.client, frameserver.Options{
		Addr:           addr,
		AllowedOrigins: s.cfg.Server.AllowedOrigins,
	}, s.log)
	return srv.ListenAndServe(s.ctx)
}

// Run executes the version command.
func (cmd *VersionCmd) Run(g *Globals) error {
	fmt.Println(l10n.F("moviereader version %s", version))
	return nil
}
