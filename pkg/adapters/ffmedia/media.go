// Package ffmedia opens movie files through the ffmpeg command line tools.
// Metadata comes from a single ffprobe JSON call (or a native MP4 parse when
// ffprobe is missing) and each frame is decoded by one ffmpeg invocation
// that writes a 16-bit PNG to stdout.
package ffmedia

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"io/fs"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/user/moviereader/pkg/adapters/logger"
	"github.com/user/moviereader/pkg/adapters/mp4probe"
	"github.com/user/moviereader/pkg/ports"
)

// Backend selects how metadata is probed.
type Backend string

const (
	BackendAuto    Backend = "auto"
	BackendFFprobe Backend = "ffprobe"
	BackendNative  Backend = "native"
)

// Runner executes an external command and returns its captured output.
type Runner func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

// Options configures the opener.
type Options struct {
	FFmpegPath  string
	FFprobePath string
	Backend     Backend
	Logger      ports.Logger

	// Run replaces process execution, mainly for tests.
	Run Runner
}

// Opener implements ports.MediaOpener.
type Opener struct {
	opts Options
	run  Runner
	log  ports.Logger

	once    sync.Once
	ffprobe string
	ffmpeg  string
}

var _ ports.MediaOpener = (*Opener)(nil)

// New creates an opener. Tool paths are resolved lazily on first Open.
func New(opts Options) *Opener {
	if opts.Backend == "" {
		opts.Backend = BackendAuto
	}
	run := opts.Run
	if run == nil {
		run = execRunner
	}
	o := &Opener{opts: opts, run: run, log: opts.Logger}
	if o.log == nil {
		o.log = logger.NewNoop()
	}
	return o
}

func (o *Opener) resolveTools() {
	o.once.Do(func() {
		if o.opts.Backend != BackendNative {
			if p, err := findTool("ffprobe", o.opts.FFprobePath); err == nil {
				o.ffprobe = p
				o.log.Debug("Using ffprobe at %s", p)
			} else {
				o.log.Debug("ffprobe not found, using native mp4 probe")
			}
		}
		if p, err := findTool("ffmpeg", o.opts.FFmpegPath); err == nil {
			o.ffmpeg = p
		}
	})
}

// Open probes path and returns a handle that decodes its frames.
func (o *Opener) Open(ctx context.Context, path string) (ports.MediaHandle, error) {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", ports.ErrMediaNotFound, path)
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ports.ErrMediaUnreadable, err)
	case info.IsDir():
		return nil, fmt.Errorf("%w: %s is a directory", ports.ErrMediaUnreadable, path)
	}

	o.resolveTools()

	res, err := o.probe(ctx, path)
	if err != nil {
		return nil, err
	}
	for _, idx := range res.Guessed {
		o.log.Warn("Guessing frame count of stream %d", idx)
	}
	if res.Info.Size == 0 {
		res.Info.Size = info.Size()
	}

	return &handle{
		path:    path,
		modTime: info.ModTime(),
		size:    info.Size(),
		info:    res.Info,
		streams: res.Streams,
		ffmpeg:  o.ffmpeg,
		run:     o.run,
		log:     o.log,
	}, nil
}

func (o *Opener) probe(ctx context.Context, path string) (*ProbeResult, error) {
	useNative := o.opts.Backend == BackendNative || (o.opts.Backend == BackendAuto && o.ffprobe == "")
	if useNative {
		r, err := mp4probe.ProbeFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ports.ErrMediaUnreadable, err)
		}
		return &ProbeResult{Info: r.Info, Streams: r.Streams}, nil
	}
	if o.ffprobe == "" {
		return nil, fmt.Errorf("%w: ffprobe", ErrToolNotFound)
	}

	stdout, stderr, err := o.run(ctx, o.ffprobe,
		"-v", "error",
		"-print_format", "json",
		"-show_format", "-show_streams",
		path,
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, classify(stderr, err, ports.ErrMediaUnreadable)
	}
	res, err := ParseProbeJSON(stdout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrMediaUnreadable, err)
	}
	return res, nil
}

// handle is one opened resource. Decodes are serialized by mu.
type handle struct {
	path    string
	modTime time.Time
	size    int64
	info    ports.ContainerInfo
	streams []ports.StreamDescriptor
	ffmpeg  string
	run     Runner
	log     ports.Logger

	mu     sync.Mutex
	closed bool
}

func (h *handle) Info() ports.ContainerInfo { return h.info }

func (h *handle) Streams() []ports.StreamDescriptor {
	out := make([]ports.StreamDescriptor, len(h.streams))
	copy(out, h.streams)
	return out
}

// Decode extracts one frame as a 16-bit RGBA image.
func (h *handle) Decode(ctx context.Context, stream, frame int) (ports.RawFrame, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ports.RawFrame{}, fmt.Errorf("%w: handle closed", ports.ErrMediaUnreadable)
	}

	sd, ok := h.find(stream)
	if !ok {
		return ports.RawFrame{}, fmt.Errorf("%w: %d", ports.ErrStreamNotFound, stream)
	}
	if frame < sd.FirstFrame || frame >= sd.FirstFrame+sd.FrameCount {
		return ports.RawFrame{}, fmt.Errorf("%w: %d", ports.ErrFrameNotFound, frame)
	}

	if info, err := os.Stat(h.path); err != nil || !info.ModTime().Equal(h.modTime) || info.Size() != h.size {
		return ports.RawFrame{}, fmt.Errorf("%w: %s", ports.ErrStale, h.path)
	}

	if h.ffmpeg == "" {
		return ports.RawFrame{}, fmt.Errorf("%w: %v", ports.ErrCodecFailure, ErrToolNotFound)
	}

	at := seekTime(sd, frame)
	h.log.Debug("Decoding frame %d of stream %d at %s", frame, stream, at)

	stdout, stderr, err := h.run(ctx, h.ffmpeg,
		"-v", "error",
		"-nostdin",
		"-ss", strconv.FormatFloat(at.Seconds(), 'f', 6, 64),
		"-i", h.path,
		"-map", "0:"+strconv.Itoa(sd.Index),
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-pix_fmt", "rgba64be",
		"-",
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ports.RawFrame{}, ctxErr
		}
		return ports.RawFrame{}, classify(stderr, err, ports.ErrCodecFailure)
	}
	if len(stdout) == 0 {
		return ports.RawFrame{}, fmt.Errorf("%w: %d", ports.ErrFrameNotFound, frame)
	}

	img, err := png.Decode(bytes.NewReader(stdout))
	if err != nil {
		return ports.RawFrame{}, fmt.Errorf("%w: decode png: %v", ports.ErrCodecFailure, err)
	}

	return ports.RawFrame{
		Image:       img,
		Stream:      sd.Index,
		Frame:       frame,
		PixelFormat: sd.PixelFormat,
		BitDepth:    sd.BitDepth,
	}, nil
}

func (h *handle) find(stream int) (ports.StreamDescriptor, bool) {
	for _, s := range h.streams {
		if s.Index == stream {
			return s, true
		}
	}
	return ports.StreamDescriptor{}, false
}

func (h *handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

// seekTime positions the input a quarter frame before the target so that the
// first picture ffmpeg emits is the requested one despite timestamp rounding.
func seekTime(sd ports.StreamDescriptor, frame int) time.Duration {
	fps := sd.FrameRate.Float()
	if fps <= 0 {
		return 0
	}
	t := (float64(frame-sd.FirstFrame) - 0.25) / fps
	if t < 0 {
		return 0
	}
	return time.Duration(t * float64(time.Second))
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}
