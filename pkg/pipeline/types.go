package pipeline

import (
	"fmt"
	"image"
	"image/color"
	"strings"
	"time"

	"github.com/user/moviereader/pkg/ports"
)

// =============================================================================
// Common Types
// =============================================================================

// Dimension represents width and height.
type Dimension struct {
	Width  int
	Height int
}

// Rectangle represents a rectangular area.
type Rectangle struct {
	X      int
	Y      int
	Width  int
	Height int
}

// =============================================================================
// Resources
// =============================================================================

// BestStream selects the default video stream of a resource.
const BestStream = -1

// ResourceID identifies one probed version of a media resource. Keys built from
// an older ResourceID never match a newer one.
type ResourceID struct {
	Path      string
	Signature ports.Signature
	Refresh   int
}

func (id ResourceID) String() string {
	return fmt.Sprintf("%s@%d/%d#%d", id.Path, id.Signature.ModTime, id.Signature.Size, id.Refresh)
}

// ProbeInput is the input of the probe stage.
type ProbeInput struct {
	Path         string
	RefreshCount int
}

// MediaResource is the immutable result of probing a resource. A refresh
// installs a new value; existing holders keep using the old one.
type MediaResource struct {
	ID        ResourceID
	LocalPath string
	Format    string
	Duration  time.Duration
	Size      int64
	Streams   []ports.StreamDescriptor
	ProbedAt  time.Time
}

// Stream returns the descriptor for a stream index, or the best stream for
// BestStream. The best stream is the first one flagged default, else the first.
func (r *MediaResource) Stream(index int) (ports.StreamDescriptor, error) {
	if len(r.Streams) == 0 {
		return ports.StreamDescriptor{}, &DecodeError{Kind: ErrStreamNotFound, Stream: index}
	}
	if index == BestStream {
		for _, s := range r.Streams {
			if s.Default {
				return s, nil
			}
		}
		return r.Streams[0], nil
	}
	for _, s := range r.Streams {
		if s.Index == index {
			return s, nil
		}
	}
	return ports.StreamDescriptor{}, &DecodeError{Kind: ErrStreamNotFound, Stream: index}
}

// FrameRangeOf returns the available frames of a stream.
func FrameRangeOf(s ports.StreamDescriptor) FrameRange {
	return FrameRange{First: s.FirstFrame, Count: s.FrameCount}
}

// FrameRange is a contiguous run of available frame numbers.
type FrameRange struct {
	First int
	Count int
}

// Empty reports whether no frame is available.
func (r FrameRange) Empty() bool { return r.Count <= 0 }

// Last returns the last available frame. Undefined for an empty range.
func (r FrameRange) Last() int { return r.First + r.Count - 1 }

// Contains reports whether frame is available.
func (r FrameRange) Contains(frame int) bool {
	return !r.Empty() && frame >= r.First && frame <= r.Last()
}

// Floor returns the nearest available frame at or before frame.
func (r FrameRange) Floor(frame int) (int, bool) {
	if r.Empty() || frame < r.First {
		return 0, false
	}
	if frame > r.Last() {
		return r.Last(), true
	}
	return frame, true
}

// Clamp returns frame limited to the range. Empty ranges return frame unchanged.
func (r FrameRange) Clamp(frame int) int {
	if r.Empty() {
		return frame
	}
	if frame < r.First {
		return r.First
	}
	if frame > r.Last() {
		return r.Last()
	}
	return frame
}

// =============================================================================
// Masking
// =============================================================================

// MaskMode is the policy for frames outside the configured valid range.
type MaskMode int

const (
	MaskNone MaskMode = iota
	MaskBlackOutside
	MaskClampToFrame
)

var maskModeNames = map[MaskMode]string{
	MaskNone:         "none",
	MaskBlackOutside: "blackOutside",
	MaskClampToFrame: "clampToFrame",
}

var maskModeByName = map[string]MaskMode{
	"none":         MaskNone,
	"blackoutside": MaskBlackOutside,
	"black":        MaskBlackOutside,
	"clamptoframe": MaskClampToFrame,
	"clamp":        MaskClampToFrame,
}

func (m MaskMode) String() string {
	if n, ok := maskModeNames[m]; ok {
		return n
	}
	return fmt.Sprintf("MaskMode(%d)", int(m))
}

// ParseMaskMode parses a mask mode name. Empty means none.
func ParseMaskMode(s string) (MaskMode, error) {
	if s == "" {
		return MaskNone, nil
	}
	if m, ok := maskModeByName[strings.ToLower(s)]; ok {
		return m, nil
	}
	return MaskNone, fmt.Errorf("%w: unknown mask mode %q", ErrInvalidRequest, s)
}

// MissingFrameMode is the fallback when a frame is absent from the resource.
type MissingFrameMode int

const (
	MissingError MissingFrameMode = iota
	MissingBlack
	MissingHold
)

var missingModeNames = map[MissingFrameMode]string{
	MissingError: "error",
	MissingBlack: "black",
	MissingHold:  "hold",
}

func (m MissingFrameMode) String() string {
	if n, ok := missingModeNames[m]; ok {
		return n
	}
	return fmt.Sprintf("MissingFrameMode(%d)", int(m))
}

// ParseMissingFrameMode parses a missing-frame mode name. Empty means error.
func ParseMissingFrameMode(s string) (MissingFrameMode, error) {
	if s == "" {
		return MissingError, nil
	}
	for m, n := range missingModeNames {
		if strings.EqualFold(n, s) {
			return m, nil
		}
	}
	return MissingError, fmt.Errorf("%w: unknown missing frame mode %q", ErrInvalidRequest, s)
}

// MaskConfig is the per-request valid frame range. Start and End are inclusive.
type MaskConfig struct {
	StartMode MaskMode
	Start     int
	EndMode   MaskMode
	End       int
}

// Validate rejects ranges whose bounds are inverted while a mode is active.
func (c MaskConfig) Validate() error {
	if (c.StartMode != MaskNone || c.EndMode != MaskNone) && c.Start > c.End {
		return fmt.Errorf("%w: mask start %d is after end %d", ErrInvalidRequest, c.Start, c.End)
	}
	return nil
}

// DecisionKind is the outcome of mask resolution.
type DecisionKind int

const (
	DecideDecode DecisionKind = iota
	DecideBlack
	DecideError
)

func (k DecisionKind) String() string {
	switch k {
	case DecideDecode:
		return "decode"
	case DecideBlack:
		return "black"
	default:
		return "error"
	}
}

// Decision tells the reader what to do with a requested frame. Frame is the
// effective frame for Decode and the reference frame for Black.
type Decision struct {
	Kind  DecisionKind
	Frame int
}

// Decode returns a decode decision.
func Decode(frame int) Decision { return Decision{Kind: DecideDecode, Frame: frame} }

// Black returns a black decision referencing frame.
func Black(frame int) Decision { return Decision{Kind: DecideBlack, Frame: frame} }

// Fail returns an error decision.
func Fail() Decision { return Decision{Kind: DecideError} }

func (d Decision) String() string {
	if d.Kind == DecideError {
		return "error"
	}
	return fmt.Sprintf("%s(%d)", d.Kind, d.Frame)
}

// =============================================================================
// Images
// =============================================================================

// Image is a decoded frame in the working color space. Values are shared
// between cache users and must not be mutated.
type Image struct {
	Pixels        image.Image
	DataWindow    image.Rectangle
	DisplayWindow image.Rectangle
	PixelAspect   float64
	ColorSpace    string // space of Pixels
	SourceSpace   string // space the frame was decoded in
	Stream        int
	Frame         int
	Black         bool
}

// SizeBytes estimates the memory held by the pixel buffer.
func (img *Image) SizeBytes() int64 {
	if img == nil || img.Pixels == nil {
		return 0
	}
	switch p := img.Pixels.(type) {
	case *image.RGBA64:
		return int64(len(p.Pix))
	case *image.NRGBA64:
		return int64(len(p.Pix))
	case *image.RGBA:
		return int64(len(p.Pix))
	case *image.NRGBA:
		return int64(len(p.Pix))
	case *image.Gray16:
		return int64(len(p.Pix))
	case *image.Gray:
		return int64(len(p.Pix))
	case *Solid:
		return 0
	}
	b := img.Pixels.Bounds()
	return int64(b.Dx()) * int64(b.Dy()) * 8
}

// NewBlackImage synthesizes an opaque black frame with the given window.
func NewBlackImage(window image.Rectangle, pixelAspect float64, space string, stream, frame int) *Image {
	return &Image{
		Pixels:        NewSolid(window, color.RGBA64{A: 0xffff}),
		DataWindow:    window,
		DisplayWindow: window,
		PixelAspect:   pixelAspect,
		ColorSpace:    space,
		SourceSpace:   space,
		Stream:        stream,
		Frame:         frame,
		Black:         true,
	}
}

// Solid is a bounded single-color image that holds no pixel buffer.
type Solid struct {
	rect image.Rectangle
	c    color.RGBA64
}

// NewSolid returns a Solid image covering rect.
func NewSolid(rect image.Rectangle, c color.RGBA64) *Solid {
	return &Solid{rect: rect, c: c}
}

func (s *Solid) ColorModel() color.Model { return color.RGBA64Model }

func (s *Solid) Bounds() image.Rectangle { return s.rect }

func (s *Solid) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}).In(s.rect) {
		return color.RGBA64{}
	}
	return s.c
}

// RGBA64At implements image.RGBA64Image.
func (s *Solid) RGBA64At(x, y int) color.RGBA64 {
	if !(image.Point{X: x, Y: y}).In(s.rect) {
		return color.RGBA64{}
	}
	return s.c
}

// =============================================================================
// Requests
// =============================================================================

// ReadRequest asks for one frame of one stream with the full policy applied.
type ReadRequest struct {
	Path         string
	Frame        int
	Stream       int
	Mask         MaskConfig
	Missing      MissingFrameMode
	ColorSpace   string // explicit name, or "" / "Automatic"
	RefreshCount int
}

// CacheKey identifies a decoded, converted frame. Frame is the effective
// frame after masking, so requests that resolve to the same frame share it.
type CacheKey struct {
	Resource   ResourceID
	Stream     int
	Frame      int
	ColorSpace string
}

// State is a step of the per-request read state machine.
type State int

const (
	StateProbing State = iota
	StateMasking
	StateCacheLookup
	StateDecoding
	StateColorConverting
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateProbing:         "probing",
	StateMasking:         "masking",
	StateCacheLookup:     "cache lookup",
	StateDecoding:        "decoding",
	StateColorConverting: "color converting",
	StateDone:            "done",
	StateFailed:          "failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// =============================================================================
// Contact Sheet Types
// =============================================================================

// GridInput contains parameters for contact sheet layout.
type GridInput struct {
	Count        int // number of thumbnails
	Columns      int
	ThumbWidth   int
	ThumbHeight  int
	Gap          int
	Padding      int
	LabelHeight  int // space below each thumbnail for its frame number
	HeaderHeight int
}

// DefaultGridInput returns a GridInput with default values.
func DefaultGridInput() GridInput {
	return GridInput{
		Columns:      6,
		ThumbWidth:   192,
		ThumbHeight:  108,
		Gap:          8,
		Padding:      16,
		LabelHeight:  18,
		HeaderHeight: 28,
	}
}

// Cell is one thumbnail slot of the grid.
type Cell struct {
	Thumb Rectangle
	Label Rectangle
}

// GridResult contains the calculated contact sheet layout.
type GridResult struct {
	Canvas Dimension
	Header Rectangle
	Cells  []Cell
}

// SheetInput describes the frames of a contact sheet.
type SheetInput struct {
	Path       string
	Stream     int
	First      int
	Last       int
	Step       int
	Columns    int
	ThumbWidth int
	Mask       MaskConfig
	Missing    MissingFrameMode
	ColorSpace string
	Refresh    int
}

// SheetTheme holds contact sheet colors.
type SheetTheme struct {
	BackgroundColor color.Color
	BorderColor     color.Color
	LabelColor      color.Color
	ErrorColor      color.Color
	FontPath        string
}

// DefaultSheetTheme returns the default contact sheet colors.
func DefaultSheetTheme() SheetTheme {
	return SheetTheme{
		BackgroundColor: color.RGBA{R: 24, G: 24, B: 24, A: 255},
		BorderColor:     color.RGBA{R: 80, G: 80, B: 80, A: 255},
		LabelColor:      color.RGBA{R: 220, G: 220, B: 220, A: 255},
		ErrorColor:      color.RGBA{R: 200, G: 40, B: 40, A: 255},
	}
}

// SheetResult is a rendered contact sheet.
type SheetResult struct {
	Image  image.Image
	Frames []int
	Failed []int // frames that could not be read and were drawn as errors
}
