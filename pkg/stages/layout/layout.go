// Package layout implements the contact sheet grid calculation stage.
package layout

import (
	"context"
	"math"

	"github.com/user/moviereader/pkg/pipeline"
)

// Stage calculates the contact sheet grid.
// This is a pure function with no external dependencies.
type Stage struct{}

// NewStage creates a new layout stage.
func NewStage() *Stage {
	return &Stage{}
}

// Execute calculates the grid for input.
func (s *Stage) Execute(ctx context.Context, input pipeline.GridInput) (pipeline.GridResult, error) {
	return ComputeGrid(input), nil
}

// ComputeGrid places input.Count thumbnails row by row.
//
// Positions are absolute canvas coordinates:
// - cell.x = padding + col * (thumbWidth + gap)
// - cell.y = padding + header + row * (thumbHeight + labelHeight + gap)
// A sheet with fewer thumbnails than columns shrinks to one row of Count cells.
func ComputeGrid(input pipeline.GridInput) pipeline.GridResult {
	columns := input.Columns
	if columns <= 0 {
		columns = 1
	}
	if input.Count > 0 && input.Count < columns {
		columns = input.Count
	}
	rows := 0
	if input.Count > 0 {
		rows = (input.Count + columns - 1) / columns
	}

	cellHeight := input.ThumbHeight + input.LabelHeight
	width := input.Padding*2 + columns*input.ThumbWidth + input.Gap*(columns-1)
	height := input.Padding*2 + input.HeaderHeight + rows*cellHeight
	if rows > 1 {
		height += input.Gap * (rows - 1)
	}

	cells := make([]pipeline.Cell, input.Count)
	for i := range cells {
		col := i % columns
		row := i / columns
		x := input.Padding + col*(input.ThumbWidth+input.Gap)
		y := input.Padding + input.HeaderHeight + row*(cellHeight+input.Gap)

		cells[i] = pipeline.Cell{
			Thumb: pipeline.Rectangle{X: x, Y: y, Width: input.ThumbWidth, Height: input.ThumbHeight},
			Label: pipeline.Rectangle{X: x, Y: y + input.ThumbHeight, Width: input.ThumbWidth, Height: input.LabelHeight},
		}
	}

	header := pipeline.Rectangle{}
	if input.HeaderHeight > 0 {
		header = pipeline.Rectangle{
			X:      input.Padding,
			Y:      input.Padding,
			Width:  width - input.Padding*2,
			Height: input.HeaderHeight,
		}
	}

	return pipeline.GridResult{
		Canvas: pipeline.Dimension{Width: width, Height: height},
		Header: header,
		Cells:  cells,
	}
}

// ThumbHeight returns the thumbnail height that keeps a frame's display
// aspect at thumbWidth, honoring non-square pixels.
func ThumbHeight(frameWidth, frameHeight int, pixelAspect float64, thumbWidth int) int {
	if frameWidth <= 0 || frameHeight <= 0 || thumbWidth <= 0 {
		return thumbWidth * 9 / 16
	}
	if pixelAspect <= 0 {
		pixelAspect = 1
	}
	h := int(math.Round(float64(thumbWidth) * float64(frameHeight) / (float64(frameWidth) * pixelAspect)))
	if h < 1 {
		h = 1
	}
	return h
}

// Frames lists the frames of [first, last] taken every step.
func Frames(first, last, step int) []int {
	if step <= 0 {
		step = 1
	}
	if last < first {
		return nil
	}
	out := make([]int, 0, (last-first)/step+1)
	for f := first; f <= last; f += step {
		out = append(out, f)
	}
	return out
}
