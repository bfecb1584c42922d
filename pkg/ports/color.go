package ports

import (
	"context"
	"image"
)

// ColorConverter converts pixels between named color spaces.
type ColorConverter interface {
	// Convert returns img converted from one space to another.
	// Identical names return img unchanged.
	Convert(ctx context.Context, img image.Image, from, to string) (image.Image, error)

	// Known reports whether the space name is registered.
	Known(space string) bool
}
