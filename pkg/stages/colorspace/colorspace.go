// Package colorspace resolves the input color space of a decoded frame, either
// from an explicit override or from a per-format default table.
package colorspace

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/user/moviereader/pkg/pipeline"
)

// Automatic is the override value that requests table lookup. The empty
// string means the same.
const Automatic = "Automatic"

// IsAutomatic reports whether override requests table lookup.
func IsAutomatic(override string) bool {
	return override == "" || strings.EqualFold(override, Automatic)
}

// Func resolves the color space for a frame of the given format and data
// type. working is the name of the working (linear) space.
type Func func(override, format, dataType, working string) (string, error)

// Roles names the configured spaces the default table refers to.
type Roles struct {
	Display string // color picking role
	Log     string // compositing log role
}

// DefaultRoles returns the role names used when none are configured.
func DefaultRoles() Roles {
	return Roles{Display: "sRGB", Log: "Cineon"}
}

type target int

const (
	toDisplay target = iota
	toLog
	toLinear
)

// entry is a table row. Formats with a single destination leave byType nil.
type entry struct {
	all    target
	byType map[string]target
}

func fixed(t target) entry { return entry{all: t} }

var defaultTable = map[string]entry{
	"bmp":    fixed(toDisplay),
	"cineon": fixed(toLog),
	"dds":    fixed(toDisplay),
	"dpx": {byType: map[string]target{
		"uint8":  toDisplay,
		"uint16": toDisplay,
		"uint10": toLog,
		"uint12": toLog,
	}},
	"fits": {byType: map[string]target{
		"uint8":  toDisplay,
		"uint16": toDisplay,
		"uint32": toLinear,
		"float":  toLinear,
		"double": toLinear,
	}},
	"ico":       fixed(toDisplay),
	"iff":       fixed(toDisplay),
	"jpeg":      fixed(toDisplay),
	"jpeg2000":  fixed(toDisplay),
	"openexr":   fixed(toLinear),
	"png":       fixed(toDisplay),
	"pnm":       fixed(toDisplay),
	"psd":       fixed(toDisplay),
	"raw":       fixed(toLinear),
	"rla":       fixed(toDisplay),
	"sgi":       fixed(toDisplay),
	"softimage": fixed(toDisplay),
	"targa":     fixed(toDisplay),
	"tiff": {byType: map[string]target{
		"uint8":  toDisplay,
		"uint16": toDisplay,
		"uint32": toLinear,
		"float":  toLinear,
		"half":   toLinear,
		"int8":   toLinear,
		"int16":  toLinear,
		"int":    toLinear,
	}},
	"zfile": fixed(toLinear),
}

// Delivery codecs carry display-referred pictures.
var movieCodecs = []string{
	"h264", "hevc", "av1", "vp8", "vp9", "mpeg1video", "mpeg2video", "mpeg4",
	"prores", "dnxhd", "qtrle", "ffv1", "theora", "huffyuv", "rawvideo",
	"gif", "webp", "cinepak", "svq3", "vc1", "wmv3",
}

// Container and decoder names that differ from the table keys.
var aliases = map[string]string{
	"exr":         "openexr",
	"jpg":         "jpeg",
	"mjpeg":       "jpeg",
	"jp2":         "jpeg2000",
	"j2k":         "jpeg2000",
	"libopenjpeg": "jpeg2000",
	"tif":         "tiff",
	"tga":         "targa",
	"ppm":         "pnm",
	"pgm":         "pnm",
	"pbm":         "pnm",
	"pam":         "pnm",
	"rgb":         "sgi",
	"cin":         "cineon",
	"pic":         "softimage",
}

// Resolver maps (override, format, data type) to a color space name.
type Resolver struct {
	roles Roles
	table map[string]entry
}

// NewResolver creates a Resolver with the default table.
func NewResolver(roles Roles) *Resolver {
	table := make(map[string]entry, len(defaultTable)+len(movieCodecs))
	for k, v := range defaultTable {
		table[k] = v
	}
	for _, c := range movieCodecs {
		table[c] = fixed(toDisplay)
	}
	return &Resolver{roles: roles, table: table}
}

// Resolve returns override when it names a space; otherwise it looks up the
// format (and, for formats that need it, the data type) in the table.
func (r *Resolver) Resolve(override, format, dataType, working string) (string, error) {
	if !IsAutomatic(override) {
		return override, nil
	}

	name := normalizeFormat(format)
	e, ok := r.table[name]
	if !ok {
		return "", &pipeline.ColorSpaceError{Kind: pipeline.ErrUnknownFormat, Format: format, DataType: dataType}
	}

	t := e.all
	if e.byType != nil {
		t, ok = e.byType[dataType]
		if !ok {
			return "", &pipeline.ColorSpaceError{Kind: pipeline.ErrUnknownFormat, Format: format, DataType: dataType}
		}
	}

	switch t {
	case toLog:
		return r.roles.Log, nil
	case toLinear:
		return working, nil
	default:
		return r.roles.Display, nil
	}
}

// Func returns Resolve as an injectable function.
func (r *Resolver) Func() Func {
	return r.Resolve
}

// Formats lists every format the table accepts, aliases excluded.
func (r *Resolver) Formats() []string {
	out := make([]string, 0, len(r.table))
	for k := range r.table {
		out = append(out, k)
	}
	return out
}

func normalizeFormat(format string) string {
	name := strings.ToLower(strings.TrimSpace(format))
	if a, ok := aliases[name]; ok {
		return a
	}
	return name
}

var (
	rePlanarDepth = regexp.MustCompile(`p(\d+)(le|be)?$`)
	reGrayDepth   = regexp.MustCompile(`^gray(\d+)`)
	rePackedDepth = regexp.MustCompile(`^(rgb|bgr)(48|64)|^(rgba|bgra)64`)
)

// DataTypeOf names the per-channel sample type of a pixel format, using
// bitDepth when the decoder reported one.
func DataTypeOf(pixelFormat string, bitDepth int) string {
	pf := strings.ToLower(pixelFormat)
	switch {
	case strings.Contains(pf, "f32"):
		return "float"
	case strings.Contains(pf, "f16"):
		return "half"
	case strings.Contains(pf, "f64"):
		return "double"
	}

	if bitDepth <= 0 {
		bitDepth = depthOf(pf)
	}
	switch {
	case bitDepth <= 8:
		return "uint8"
	case bitDepth == 10:
		return "uint10"
	case bitDepth == 12:
		return "uint12"
	case bitDepth <= 16:
		return "uint16"
	default:
		return "uint32"
	}
}

func depthOf(pf string) int {
	if m := rePlanarDepth.FindStringSubmatch(pf); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	if m := reGrayDepth.FindStringSubmatch(pf); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	if rePackedDepth.MatchString(pf) {
		return 16
	}
	return 8
}

// Input is the input of the color-space stage.
type Input struct {
	Override string
	Format   string
	DataType string
	Working  string
}

// Stage wraps a Func as a pipeline stage.
type Stage struct {
	resolve Func
}

// NewStage creates a stage around resolve.
func NewStage(resolve Func) *Stage {
	return &Stage{resolve: resolve}
}

// Execute resolves the color space for input.
func (s *Stage) Execute(ctx context.Context, input Input) (string, error) {
	return s.resolve(input.Override, input.Format, input.DataType, input.Working)
}
