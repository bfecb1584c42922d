package ggrenderer

import (
	"image"
	"image/color"
	"testing"

	"github.com/user/moviereader/pkg/ports"
)

var (
	sheetBackground = color.RGBA{R: 24, G: 24, B: 24, A: 255}
	errorCell       = color.RGBA{R: 160, G: 32, B: 32, A: 255}
)

// grey returns a frame filled with one 16-bit grey level, like a decoded
// frame of a test pattern.
func grey(w, h int, level uint16) *image.RGBA64 {
	img := image.NewRGBA64(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA64(x, y, color.RGBA64{R: level, G: level, B: level, A: 0xffff})
		}
	}
	return img
}

func TestRenderer_CreateCanvas(t *testing.T) {
	canvas := New().CreateCanvas(424, 268, sheetBackground)

	img := canvas.ToImage()
	if b := img.Bounds(); b.Dx() != 424 || b.Dy() != 268 {
		t.Fatalf("expected 424x268 sheet, got %v", b)
	}
	if r, _, _, _ := img.At(0, 0).RGBA(); r>>8 != 24 {
		t.Errorf("expected background level 24, got %d", r>>8)
	}
}

func TestRenderer_EncodeDecode(t *testing.T) {
	tests := []struct {
		name    string
		format  ports.ImageFormat
		quality int
	}{
		{"png", ports.FormatPNG, 0},
		{"jpeg", ports.FormatJPEG, 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()
			data, err := r.EncodeImage(grey(64, 36, 0x8080), tt.format, tt.quality)
			if err != nil {
				t.Fatalf("EncodeImage failed: %v", err)
			}
			decoded, err := r.DecodeImage(data, tt.format)
			if err != nil {
				t.Fatalf("DecodeImage failed: %v", err)
			}
			if b := decoded.Bounds(); b.Dx() != 64 || b.Dy() != 36 {
				t.Errorf("expected 64x36, got %v", b)
			}
		})
	}
}

func TestRenderer_EncodePNGKeeps16Bit(t *testing.T) {
	r := New()

	img := image.NewRGBA64(image.Rect(0, 0, 4, 4))
	img.SetRGBA64(1, 1, color.RGBA64{R: 0x1234, G: 0x5678, B: 0x9abc, A: 0xffff})

	data, err := r.EncodeImage(img, ports.FormatPNG, 0)
	if err != nil {
		t.Fatalf("EncodeImage failed: %v", err)
	}
	decoded, err := r.DecodeImage(data, ports.FormatPNG)
	if err != nil {
		t.Fatalf("DecodeImage failed: %v", err)
	}

	if got, _, _, _ := decoded.At(1, 1).RGBA(); got != 0x1234 {
		t.Errorf("expected 16-bit red 0x1234, got %#x", got)
	}
}

func TestRenderer_ResizeImage(t *testing.T) {
	tests := []struct {
		name         string
		srcW, srcH   int
		dstW, dstH   int
		wantW, wantH int
	}{
		{"frame to thumbnail", 960, 540, 192, 108, 192, 108},
		{"upscale", 32, 18, 64, 36, 64, 36},
		{"zero width", 10, 10, 0, 5, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resized := New().ResizeImage(grey(tt.srcW, tt.srcH, 0x4000), tt.dstW, tt.dstH)
			if b := resized.Bounds(); b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Errorf("expected %dx%d, got %v", tt.wantW, tt.wantH, b)
			}
		})
	}
}

func TestRenderer_ResizeKeepsLevel(t *testing.T) {
	resized := New().ResizeImage(grey(320, 180, 0x8000), 32, 18)

	r, _, _, _ := resized.At(16, 9).RGBA()
	if r < 0x7f00 || r > 0x8100 {
		t.Errorf("expected flat grey to stay near 0x8000 after scaling, got %#x", r)
	}
}

func TestCanvas_ThumbnailCell(t *testing.T) {
	canvas := New().CreateCanvas(100, 80, sheetBackground)

	canvas.DrawImage(grey(40, 24, 0xffff), 10, 10)
	canvas.DrawRectStroke(10, 10, 40, 24, color.Black, 1)
	canvas.DrawRect(60, 10, 30, 24, errorCell)

	img := canvas.ToImage()
	if r, _, _, _ := img.At(30, 20).RGBA(); r>>8 != 255 {
		t.Errorf("expected white thumbnail pixel, got %d", r>>8)
	}
	if r, g, _, _ := img.At(75, 20).RGBA(); r>>8 != 160 || g>>8 != 32 {
		t.Errorf("expected error cell color, got %d,%d", r>>8, g>>8)
	}
	if _, _, _, a := img.At(10, 10).RGBA(); a == 0 {
		t.Error("expected opaque border pixel")
	}
	if r, _, _, _ := img.At(5, 5).RGBA(); r>>8 != 24 {
		t.Errorf("expected background outside cells, got %d", r>>8)
	}
}

func TestCanvas_MeasureText(t *testing.T) {
	canvas := New().CreateCanvas(200, 50, color.White)

	style := ports.TextStyle{FontSize: 12, FontPath: "/nonexistent/font.ttf", Color: color.Black}
	short, _ := canvas.MeasureText("12", style)
	long, h := canvas.MeasureText("1001 !", style)

	if long <= short {
		t.Errorf("expected longer label to measure wider: %v <= %v", long, short)
	}
	if h <= 0 {
		t.Errorf("expected positive height, got %v", h)
	}
}

func TestCanvas_DrawLabel(t *testing.T) {
	canvas := New().CreateCanvas(200, 50, color.White)

	canvas.DrawText("shot010.mov  1-48", 100, 25, ports.TextStyle{
		FontSize: 14,
		Color:    color.Black,
		Align:    ports.AlignCenter,
	})

	img := canvas.ToImage()
	dark := false
	for x := 20; x < 180 && !dark; x++ {
		for y := 15; y < 35; y++ {
			if r, _, _, _ := img.At(x, y).RGBA(); r < 0x8000 {
				dark = true
				break
			}
		}
	}
	if !dark {
		t.Error("expected label pixels on canvas")
	}
}
