// Package colorconvert converts decoded frames between named color spaces
// using per-channel transfer curves through a linear intermediate.
package colorconvert

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"math"
	"strings"
	"sync"

	"github.com/user/moviereader/pkg/ports"
)

// Curve maps encoded values to linear light and back. Both functions work on
// normalized values; ToLinear may return values above 1 for log encodings.
type Curve struct {
	ToLinear   func(v float64) float64
	FromLinear func(v float64) float64
}

// Converter implements ports.ColorConverter with 16-bit lookup tables built
// lazily per (from, to) pair.
type Converter struct {
	mu     sync.RWMutex
	curves map[string]Curve
	luts   sync.Map // pairKey -> *[65536]uint16
}

type pairKey struct{ from, to string }

var _ ports.ColorConverter = (*Converter)(nil)

// New creates a converter with the builtin curves registered. working names
// the linear working space and is registered as an alias of "linear".
func New(working string) *Converter {
	c := &Converter{curves: make(map[string]Curve)}
	c.Register("linear", Linear)
	c.Register("sRGB", SRGB)
	c.Register("rec709", Rec709)
	c.Register("Cineon", Cineon)
	c.Register("gamma22", Gamma(2.2))
	c.Register("gamma18", Gamma(1.8))
	if working != "" {
		c.Register(working, Linear)
	}
	return c
}

// Register adds or replaces a named curve. Names are matched case-insensitively.
func (c *Converter) Register(name string, curve Curve) {
	c.mu.Lock()
	c.curves[normalize(name)] = curve
	c.mu.Unlock()

	// Drop tables that may reference the old curve.
	c.luts.Range(func(k, _ any) bool {
		p := k.(pairKey)
		if p.from == normalize(name) || p.to == normalize(name) {
			c.luts.Delete(k)
		}
		return true
	})
}

// Known reports whether space is registered.
func (c *Converter) Known(space string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.curves[normalize(space)]
	return ok
}

// Convert returns img re-encoded from one space to another. Alpha is left
// untouched. The result is always a new *image.RGBA64 unless the spaces are
// identical, in which case img is returned as is.
func (c *Converter) Convert(ctx context.Context, img image.Image, from, to string) (image.Image, error) {
	if normalize(from) == normalize(to) {
		return img, nil
	}
	lut, err := c.table(from, to)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	dst := image.NewRGBA64(b)
	switch src := img.(type) {
	case *image.RGBA64:
		copy(dst.Pix, src.Pix)
	case *image.NRGBA64:
		// Curves apply to straight color, so premultiplication is deferred.
		return convertNRGBA64(ctx, src, lut)
	default:
		draw.Draw(dst, b, img, b.Min, draw.Src)
	}

	for y := 0; y < b.Dy(); y++ {
		if y%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row := dst.Pix[y*dst.Stride : y*dst.Stride+b.Dx()*8]
		for i := 0; i < len(row); i += 8 {
			a := uint32(row[i+6])<<8 | uint32(row[i+7])
			if a == 0 {
				continue
			}
			for ch := 0; ch < 6; ch += 2 {
				v := uint32(row[i+ch])<<8 | uint32(row[i+ch+1])
				// Unpremultiply, map, premultiply.
				s := v * 0xffff / a
				if s > 0xffff {
					s = 0xffff
				}
				m := uint32(lut[s]) * a / 0xffff
				row[i+ch] = uint8(m >> 8)
				row[i+ch+1] = uint8(m)
			}
		}
	}
	return dst, nil
}

func convertNRGBA64(ctx context.Context, src *image.NRGBA64, lut *[65536]uint16) (image.Image, error) {
	b := src.Bounds()
	dst := image.NewNRGBA64(b)
	for y := 0; y < b.Dy(); y++ {
		if y%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		in := src.Pix[(y)*src.Stride : (y)*src.Stride+b.Dx()*8]
		out := dst.Pix[y*dst.Stride : y*dst.Stride+b.Dx()*8]
		for i := 0; i < len(in); i += 8 {
			for ch := 0; ch < 6; ch += 2 {
				v := lut[uint16(in[i+ch])<<8|uint16(in[i+ch+1])]
				out[i+ch] = uint8(v >> 8)
				out[i+ch+1] = uint8(v)
			}
			out[i+6] = in[i+6]
			out[i+7] = in[i+7]
		}
	}
	return dst, nil
}

func (c *Converter) table(from, to string) (*[65536]uint16, error) {
	key := pairKey{normalize(from), normalize(to)}
	if v, ok := c.luts.Load(key); ok {
		return v.(*[65536]uint16), nil
	}

	c.mu.RLock()
	src, okFrom := c.curves[key.from]
	dst, okTo := c.curves[key.to]
	c.mu.RUnlock()
	if !okFrom {
		return nil, fmt.Errorf("%w: %q", ports.ErrUnknownColorSpace, from)
	}
	if !okTo {
		return nil, fmt.Errorf("%w: %q", ports.ErrUnknownColorSpace, to)
	}

	lut := new([65536]uint16)
	for i := range lut {
		v := dst.FromLinear(src.ToLinear(float64(i) / 0xffff))
		lut[i] = quantize(v)
	}
	actual, _ := c.luts.LoadOrStore(key, lut)
	return actual.(*[65536]uint16), nil
}

func quantize(v float64) uint16 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= 1:
		return 0xffff
	}
	return uint16(math.Round(v * 0xffff))
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
