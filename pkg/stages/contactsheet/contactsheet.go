// Package contactsheet renders a grid of thumbnails for a frame range.
package contactsheet

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/user/moviereader/pkg/pipeline"
	"github.com/user/moviereader/pkg/ports"
	"github.com/user/moviereader/pkg/stages/layout"
)

// FrameReader is the part of the reader pipeline a contact sheet needs.
type FrameReader interface {
	Probe(ctx context.Context, path string, refresh int) (*pipeline.MediaResource, error)
	ReadFrame(ctx context.Context, req pipeline.ReadRequest) (*pipeline.Image, error)
}

// Options configures a Stage.
type Options struct {
	DisplaySpace string
	Theme        pipeline.SheetTheme
	Workers      int
}

// Stage reads frames through the pipeline and composes them into a sheet.
type Stage struct {
	reader    FrameReader
	grid      pipeline.Stage[pipeline.GridInput, pipeline.GridResult]
	converter ports.ColorConverter
	renderer  ports.Renderer
	sink      ports.DebugSink
	logger    ports.Logger
	opts      Options
}

// NewStage creates a new contact sheet stage.
func NewStage(reader FrameReader, converter ports.ColorConverter, renderer ports.Renderer, sink ports.DebugSink, logger ports.Logger, opts Options) *Stage {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Theme.BackgroundColor == nil {
		opts.Theme = pipeline.DefaultSheetTheme()
	}
	return &Stage{
		reader:    reader,
		grid:      layout.NewStage(),
		converter: converter,
		renderer:  renderer,
		sink:      sink,
		logger:    logger.WithComponent("contactsheet"),
		opts:      opts,
	}
}

// thumb is one read frame scaled for its cell.
type thumb struct {
	index int
	frame int
	image image.Image
	err   error
}

// Execute renders the sheet. Frames that fail to read are drawn as error
// cells; cancellation and probe failures abort the sheet.
func (s *Stage) Execute(ctx context.Context, input pipeline.SheetInput) (pipeline.SheetResult, error) {
	res, err := s.reader.Probe(ctx, input.Path, input.Refresh)
	if err != nil {
		return pipeline.SheetResult{}, err
	}
	sd, err := res.Stream(input.Stream)
	if err != nil {
		return pipeline.SheetResult{}, err
	}

	first, last := input.First, input.Last
	if first == 0 && last == 0 {
		first, last = sd.FirstFrame, sd.FirstFrame+sd.FrameCount-1
	}
	frames := layout.Frames(first, last, input.Step)
	if len(frames) == 0 {
		return pipeline.SheetResult{}, fmt.Errorf("%w: empty frame range %d-%d", pipeline.ErrInvalidRequest, first, last)
	}

	grid := pipeline.DefaultGridInput()
	grid.Count = len(frames)
	if input.Columns > 0 {
		grid.Columns = input.Columns
	}
	if input.ThumbWidth > 0 {
		grid.ThumbWidth = input.ThumbWidth
	}
	grid.ThumbHeight = layout.ThumbHeight(sd.Width, sd.Height, sd.PixelAspect, grid.ThumbWidth)
	g, err := s.grid.Execute(ctx, grid)
	if err != nil {
		return pipeline.SheetResult{}, err
	}

	s.logger.Debug("Reading %d frames with %d workers", len(frames), s.opts.Workers)
	thumbs, err := s.readAll(ctx, input, sd.Index, frames, grid.ThumbWidth, grid.ThumbHeight)
	if err != nil {
		return pipeline.SheetResult{}, err
	}

	result := s.compose(input, res, g, thumbs)
	s.logger.Debug("Contact sheet rendered: %dx%d", g.Canvas.Width, g.Canvas.Height)

	if s.sink.Enabled() {
		if err := s.sink.SaveContactSheet(input.Path, result.Image); err != nil {
			s.logger.Warn("Failed to save debug output: %s", err)
		}
	}
	return result, nil
}

// readAll reads frames on a fixed worker pool and returns them in order.
func (s *Stage) readAll(ctx context.Context, input pipeline.SheetInput, stream int, frames []int, w, h int) ([]thumb, error) {
	jobs := make(chan int, len(frames))
	results := make(chan thumb, len(frames))

	var wg sync.WaitGroup
	for i := 0; i < s.opts.Workers; i++ {
		wg.Add(1)
		go s.worker(ctx, &wg, input, stream, frames, w, h, jobs, results)
	}

	for i := range frames {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	thumbs := make([]thumb, 0, len(frames))
	for t := range results {
		thumbs = append(thumbs, t)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, t := range thumbs {
		if t.err != nil && isContextErr(t.err) {
			return nil, t.err
		}
	}

	sort.Slice(thumbs, func(i, j int) bool {
		return thumbs[i].index < thumbs[j].index
	})
	return thumbs, nil
}

// worker reads the frames of jobs until they run out or ctx is done.
func (s *Stage) worker(
	ctx context.Context,
	wg *sync.WaitGroup,
	input pipeline.SheetInput,
	stream int,
	frames []int,
	w, h int,
	jobs <-chan int,
	results chan<- thumb,
) {
	defer wg.Done()

	for idx := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}
		results <- s.readThumb(ctx, input, stream, idx, frames[idx], w, h)
	}
}

func (s *Stage) readThumb(ctx context.Context, input pipeline.SheetInput, stream, idx, frame, w, h int) thumb {
	t := thumb{index: idx, frame: frame}
	img, err := s.reader.ReadFrame(ctx, pipeline.ReadRequest{
		Path:         input.Path,
		Frame:        frame,
		Stream:       stream,
		Mask:         input.Mask,
		Missing:      input.Missing,
		ColorSpace:   input.ColorSpace,
		RefreshCount: input.Refresh,
	})
	if err != nil {
		t.err = err
		return t
	}

	pixels := img.Pixels
	if !img.Black {
		pixels, err = s.converter.Convert(ctx, pixels, img.ColorSpace, s.opts.DisplaySpace)
		if err != nil {
			t.err = err
			return t
		}
	}
	t.image = s.renderer.ResizeImage(pixels, w, h)
	return t
}

func (s *Stage) compose(input pipeline.SheetInput, res *pipeline.MediaResource, g pipeline.GridResult, thumbs []thumb) pipeline.SheetResult {
	theme := s.opts.Theme
	canvas := s.renderer.CreateCanvas(g.Canvas.Width, g.Canvas.Height, theme.BackgroundColor)

	if g.Header.Height > 0 {
		title := fmt.Sprintf("%s  %d-%d", filepath.Base(res.ID.Path), thumbs[0].frame, thumbs[len(thumbs)-1].frame)
		canvas.DrawText(title, g.Header.X, g.Header.Y+g.Header.Height/2, ports.TextStyle{
			FontSize: float64(g.Header.Height) * 0.6,
			FontPath: theme.FontPath,
			Color:    theme.LabelColor,
		})
	}

	result := pipeline.SheetResult{Frames: make([]int, 0, len(thumbs))}
	for _, t := range thumbs {
		cell := g.Cells[t.index]
		result.Frames = append(result.Frames, t.frame)

		label := fmt.Sprintf("%d", t.frame)
		if t.err != nil {
			result.Failed = append(result.Failed, t.frame)
			s.logger.Warn("Failed to read frame: %s", t.err)
			canvas.DrawRect(cell.Thumb.X, cell.Thumb.Y, cell.Thumb.Width, cell.Thumb.Height, theme.ErrorColor)
			label += " !"
		} else {
			canvas.DrawImage(t.image, cell.Thumb.X, cell.Thumb.Y)
		}
		canvas.DrawRectStroke(cell.Thumb.X, cell.Thumb.Y, cell.Thumb.Width, cell.Thumb.Height, theme.BorderColor, 1)

		if cell.Label.Height > 0 {
			canvas.DrawText(label, cell.Label.X+cell.Label.Width/2, cell.Label.Y+cell.Label.Height/2, ports.TextStyle{
				FontSize: float64(cell.Label.Height) * 0.7,
				FontPath: theme.FontPath,
				Color:    theme.LabelColor,
				Align:    ports.AlignCenter,
			})
		}
	}

	result.Image = canvas.ToImage()
	return result
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
