// Package mask implements frame mask resolution: deciding whether a requested
// frame is decoded, replaced by black, or rejected.
package mask

import (
	"context"

	"github.com/user/moviereader/pkg/pipeline"
)

// Input contains everything mask resolution depends on.
type Input struct {
	Frame     int
	Mask      pipeline.MaskConfig
	Available pipeline.FrameRange
	Missing   pipeline.MissingFrameMode
}

// Stage resolves mask decisions. It is a pure function with no dependencies.
type Stage struct{}

// NewStage creates a new mask stage.
func NewStage() *Stage {
	return &Stage{}
}

// Execute resolves the decision for input.
func (s *Stage) Execute(ctx context.Context, input Input) (pipeline.Decision, error) {
	if err := input.Mask.Validate(); err != nil {
		return pipeline.Fail(), err
	}
	return Resolve(input.Frame, input.Mask, input.Available, input.Missing), nil
}

// Resolve applies the mask modes, then the missing-frame policy.
//
// Frames before Start use StartMode, frames after End use EndMode. The bounds
// themselves are in range. MaskNone leaves the frame unmasked, so only the
// availability check applies to it.
func Resolve(frame int, cfg pipeline.MaskConfig, available pipeline.FrameRange, missing pipeline.MissingFrameMode) pipeline.Decision {
	effective := frame

	switch {
	case frame < cfg.Start && cfg.StartMode != pipeline.MaskNone:
		if cfg.StartMode == pipeline.MaskBlackOutside {
			return pipeline.Black(cfg.Start)
		}
		effective = cfg.Start
	case frame > cfg.End && cfg.EndMode != pipeline.MaskNone:
		if cfg.EndMode == pipeline.MaskBlackOutside {
			return pipeline.Black(cfg.End)
		}
		effective = cfg.End
	}

	if available.Contains(effective) {
		return pipeline.Decode(effective)
	}
	return ResolveMissing(effective, available, missing)
}

// ResolveMissing applies the missing-frame policy to a frame the resource
// does not have.
func ResolveMissing(frame int, available pipeline.FrameRange, missing pipeline.MissingFrameMode) pipeline.Decision {
	switch missing {
	case pipeline.MissingHold:
		if held, ok := available.Floor(frame); ok {
			return pipeline.Decode(held)
		}
		if !available.Empty() {
			return pipeline.Decode(available.First)
		}
		return pipeline.Fail()
	case pipeline.MissingBlack:
		return pipeline.Black(available.Clamp(frame))
	default:
		return pipeline.Fail()
	}
}
