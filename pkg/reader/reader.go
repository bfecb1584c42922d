// Package reader answers "give me frame N of this movie" with masking,
// color-space resolution, decoding and caching applied.
package reader

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/user/moviereader/pkg/framecache"
	"github.com/user/moviereader/pkg/pipeline"
	"github.com/user/moviereader/pkg/ports"
	"github.com/user/moviereader/pkg/stages/colorspace"
	"github.com/user/moviereader/pkg/stages/mask"
)

var errClosed = errors.New("reader: closed")

// Prober probes a resource and hands over its open decoder.
type Prober interface {
	Open(ctx context.Context, input pipeline.ProbeInput) (*pipeline.MediaResource, ports.MediaHandle, error)
}

// Config contains the reader's policy.
type Config struct {
	// WorkingSpace names the space every returned image is converted to.
	WorkingSpace string

	// ColorSpace resolves the input space of decoded frames.
	ColorSpace colorspace.Func

	// DecodeRetries bounds retries of decodes that failed with ports.ErrBusy.
	DecodeRetries int

	// RevalidateAfter is how long a probed signature is trusted before the
	// resource is stat'ed again. Zero stats on every read.
	RevalidateAfter time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		WorkingSpace:  "linear",
		ColorSpace:    colorspace.NewResolver(colorspace.DefaultRoles()).Func(),
		DecodeRetries: 1,
	}
}

// Reader is the frame read pipeline. It is safe for concurrent use.
type Reader struct {
	cfg       Config
	prober    Prober
	locator   ports.Locator
	converter ports.ColorConverter
	cache     *framecache.Cache
	masks     pipeline.Stage[mask.Input, pipeline.Decision]
	spaces    pipeline.Stage[colorspace.Input, string]
	sink      ports.DebugSink
	logger    ports.Logger
	now       func() time.Time

	mu        sync.Mutex
	resources map[string]*resource
	probing   map[string]*probeCall
	closed    bool
}

// New creates a Reader.
func New(
	cfg Config,
	prober Prober,
	locator ports.Locator,
	converter ports.ColorConverter,
	cache *framecache.Cache,
	sink ports.DebugSink,
	logger ports.Logger,
) *Reader {
	if cfg.ColorSpace == nil {
		cfg.ColorSpace = DefaultConfig().ColorSpace
	}
	if cfg.DecodeRetries < 0 {
		cfg.DecodeRetries = 0
	}
	return &Reader{
		cfg:       cfg,
		prober:    prober,
		locator:   locator,
		converter: converter,
		cache:     cache,
		masks:     mask.NewStage(),
		spaces:    colorspace.NewStage(cfg.ColorSpace),
		sink:      sink,
		logger:    logger.WithComponent("reader"),
		now:       time.Now,
		resources: make(map[string]*resource),
		probing:   make(map[string]*probeCall),
	}
}

// stageError tags an error with the state that produced it, so the state
// survives the trip through the cache.
type stageError struct {
	state pipeline.State
	err   error
}

func (e *stageError) Error() string { return e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

// ReadFrame returns one frame with the request's policy applied.
func (r *Reader) ReadFrame(ctx context.Context, req pipeline.ReadRequest) (*pipeline.Image, error) {
	img, err := r.readFrame(ctx, req, true)
	if err != nil {
		r.logger.Debug("%s frame %d: %s", req.Path, req.Frame, pipeline.StateFailed)
	}
	return img, err
}

func (r *Reader) readFrame(ctx context.Context, req pipeline.ReadRequest, retryStale bool) (*pipeline.Image, error) {
	fail := func(state pipeline.State, err error) (*pipeline.Image, error) {
		var se *stageError
		if errors.As(err, &se) {
			state, err = se.state, se.err
		}
		return nil, &pipeline.ReadError{State: state, Path: req.Path, Frame: req.Frame, Err: err}
	}
	if req.Path == "" {
		return fail(pipeline.StateProbing, fmt.Errorf("%w: empty path", pipeline.ErrInvalidRequest))
	}

	r.transition(req, pipeline.StateProbing)
	e, err := r.acquire(ctx, req.Path, req.RefreshCount)
	if err != nil {
		return fail(pipeline.StateProbing, err)
	}
	defer r.release(e)

	r.transition(req, pipeline.StateMasking)
	sd, err := e.res.Stream(req.Stream)
	if err != nil {
		return fail(pipeline.StateMasking, err)
	}
	decision, err := r.masks.Execute(ctx, mask.Input{
		Frame:     req.Frame,
		Mask:      req.Mask,
		Available: pipeline.FrameRangeOf(sd),
		Missing:   req.Missing,
	})
	if err != nil {
		return fail(pipeline.StateMasking, err)
	}

	switch decision.Kind {
	case pipeline.DecideError:
		return fail(pipeline.StateMasking, &pipeline.DecodeError{Kind: pipeline.ErrFrameNotFound, Stream: sd.Index, Frame: req.Frame})
	case pipeline.DecideBlack:
		r.transition(req, pipeline.StateDone)
		return r.black(sd, decision.Frame), nil
	}

	space, err := r.resolveSpace(ctx, req.ColorSpace, sd)
	if err != nil {
		return fail(pipeline.StateColorConverting, err)
	}

	r.transition(req, pipeline.StateCacheLookup)
	key := pipeline.CacheKey{Resource: e.res.ID, Stream: sd.Index, Frame: decision.Frame, ColorSpace: space}
	img, err := r.cache.Get(ctx, key, func(ctx context.Context) (*pipeline.Image, error) {
		return r.compute(ctx, req, e, sd, decision.Frame, space)
	})
	if err != nil {
		if retryStale && errors.Is(err, ports.ErrStale) {
			r.retire(e)
			return r.readFrame(ctx, req, false)
		}
		return fail(pipeline.StateCacheLookup, err)
	}

	r.transition(req, pipeline.StateDone)
	return img, nil
}

func (r *Reader) transition(req pipeline.ReadRequest, s pipeline.State) {
	r.logger.Debug("%s frame %d: %s", req.Path, req.Frame, s)
}

func (r *Reader) resolveSpace(ctx context.Context, override string, sd ports.StreamDescriptor) (string, error) {
	space, err := r.spaces.Execute(ctx, colorspace.Input{
		Override: override,
		Format:   sd.Codec,
		DataType: colorspace.DataTypeOf(sd.PixelFormat, sd.BitDepth),
		Working:  r.cfg.WorkingSpace,
	})
	if err != nil {
		return "", err
	}
	if !r.converter.Known(space) {
		return "", &pipeline.ColorSpaceError{Kind: pipeline.ErrUnknownColorSpace, Space: space}
	}
	return space, nil
}

// compute decodes and converts one frame. It runs detached from any single
// caller; ctx is cancelled once every waiter has gone.
func (r *Reader) compute(ctx context.Context, req pipeline.ReadRequest, e *resource, sd ports.StreamDescriptor, frame int, space string) (*pipeline.Image, error) {
	r.transition(req, pipeline.StateDecoding)
	raw, err := r.decode(ctx, e, sd.Index, frame)
	if err != nil && errors.Is(err, ports.ErrFrameNotFound) {
		r.logger.Warn("Frame %d missing from %s, applying %s", frame, req.Path, req.Missing)
		switch req.Missing {
		case pipeline.MissingBlack:
			return r.black(sd, frame), nil
		case pipeline.MissingHold:
			if prev, ok := pipeline.FrameRangeOf(sd).Floor(frame - 1); ok {
				raw, err = r.decode(ctx, e, sd.Index, prev)
			}
		}
	}
	if err != nil {
		return nil, &stageError{state: pipeline.StateDecoding, err: decodeFailure(sd.Index, frame, err)}
	}

	if r.sink.Enabled() {
		if err := r.sink.SaveDecodedFrame(req.Path, raw.Frame, raw.Image); err != nil {
			r.logger.Warn("Failed to save debug output: %s", err)
		}
	}

	r.transition(req, pipeline.StateColorConverting)
	pixels, err := r.converter.Convert(ctx, raw.Image, space, r.cfg.WorkingSpace)
	if err != nil {
		if isContextErr(err) {
			return nil, &stageError{state: pipeline.StateColorConverting, err: err}
		}
		return nil, &stageError{state: pipeline.StateColorConverting, err: &pipeline.ColorSpaceError{Kind: pipeline.ErrUnknownColorSpace, Space: space, Err: err}}
	}

	window := raw.Image.Bounds()
	return &pipeline.Image{
		Pixels:        pixels,
		DataWindow:    window,
		DisplayWindow: displayWindow(sd, window),
		PixelAspect:   pixelAspect(sd),
		ColorSpace:    r.cfg.WorkingSpace,
		SourceSpace:   space,
		Stream:        sd.Index,
		Frame:         raw.Frame,
	}, nil
}

// decode runs one decode behind the resource's serialization point, retrying
// transient contention.
func (r *Reader) decode(ctx context.Context, e *resource, stream, frame int) (ports.RawFrame, error) {
	for attempt := 0; ; attempt++ {
		raw, err := r.decodeOnce(ctx, e, stream, frame)
		if err == nil || !errors.Is(err, ports.ErrBusy) || attempt >= r.cfg.DecodeRetries {
			return raw, err
		}
		r.logger.Warn("Retrying decode of frame %d (%d/%d): %s", frame, attempt+1, r.cfg.DecodeRetries, err)
	}
}

func (r *Reader) decodeOnce(ctx context.Context, e *resource, stream, frame int) (ports.RawFrame, error) {
	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		return ports.RawFrame{}, ctx.Err()
	}
	defer func() { <-e.sem }()
	return e.handle.Decode(ctx, stream, frame)
}

func decodeFailure(stream, frame int, err error) error {
	if isContextErr(err) {
		return err
	}
	kind := pipeline.ErrCodecFailure
	switch {
	case errors.Is(err, ports.ErrStreamNotFound):
		kind = pipeline.ErrStreamNotFound
	case errors.Is(err, ports.ErrFrameNotFound):
		kind = pipeline.ErrFrameNotFound
	}
	return &pipeline.DecodeError{Kind: kind, Stream: stream, Frame: frame, Err: err}
}

func (r *Reader) black(sd ports.StreamDescriptor, frame int) *pipeline.Image {
	window := image.Rect(0, 0, sd.Width, sd.Height)
	return pipeline.NewBlackImage(window, pixelAspect(sd), r.cfg.WorkingSpace, sd.Index, frame)
}

// displayWindow is the stream's nominal frame, which may differ from the
// decoded data window for cropped or padded streams.
func displayWindow(sd ports.StreamDescriptor, data image.Rectangle) image.Rectangle {
	if sd.Width > 0 && sd.Height > 0 {
		return image.Rect(0, 0, sd.Width, sd.Height)
	}
	return data
}

func pixelAspect(sd ports.StreamDescriptor) float64 {
	if sd.PixelAspect > 0 {
		return sd.PixelAspect
	}
	return 1
}

// Probe returns the current resource for path, probing it when needed.
func (r *Reader) Probe(ctx context.Context, path string, refresh int) (*pipeline.MediaResource, error) {
	e, err := r.acquire(ctx, path, refresh)
	if err != nil {
		return nil, err
	}
	defer r.release(e)
	return e.res, nil
}

// Invalidate forgets path and drops its cached frames. It returns the number
// of cache entries removed.
func (r *Reader) Invalidate(path string) int {
	r.mu.Lock()
	if e, ok := r.resources[path]; ok {
		delete(r.resources, path)
		r.retireLocked(e)
	}
	r.mu.Unlock()
	return r.cache.InvalidatePath(path)
}

// Stats describes the reader's state.
type Stats struct {
	Resources int              `json:"resources"`
	Cache     framecache.Stats `json:"cache"`
}

// Stats returns a snapshot of the reader's state.
func (r *Reader) Stats() Stats {
	r.mu.Lock()
	n := len(r.resources)
	r.mu.Unlock()
	return Stats{Resources: n, Cache: r.cache.Stats()}
}

// Close retires every resource and clears the cache. Reads in flight finish;
// new reads fail.
func (r *Reader) Close() error {
	r.mu.Lock()
	r.closed = true
	for path, e := range r.resources {
		delete(r.resources, path)
		r.retireLocked(e)
	}
	r.mu.Unlock()
	r.cache.Clear()
	return nil
}
