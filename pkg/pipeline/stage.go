// Package pipeline holds the domain types shared by every step of a frame
// read: requests, probed resources, mask decisions, images, states and the
// typed error taxonomy.
package pipeline

import (
	"context"
)

// Stage is one step of a frame read or contact sheet render. Mask
// resolution, color space resolution, probing and grid layout are stages;
// the reader sequences them and tags failures with the State they ran in.
type Stage[In, Out any] interface {
	Execute(ctx context.Context, input In) (Out, error)
}
