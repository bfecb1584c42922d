package ffmedia

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/user/moviereader/pkg/ports"
)

// ProbeResult is the parsed output of one ffprobe call.
type ProbeResult struct {
	Info    ports.ContainerInfo
	Streams []ports.StreamDescriptor

	// Guessed lists stream indices whose frame count could not be derived
	// from the container and was set to 1.
	Guessed []int
}

// ParseProbeJSON converts raw ffprobe JSON output into a ProbeResult.
// Only video streams are kept. Attached pictures (cover art) are skipped.
func ParseProbeJSON(data []byte) (*ProbeResult, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse ffprobe JSON: %w", err)
	}

	res := &ProbeResult{
		Info: ports.ContainerInfo{
			Format:   raw.Format.FormatName,
			Duration: seconds(parseFloat(raw.Format.Duration)),
			Size:     parseInt64(raw.Format.Size),
		},
	}
	formatDuration := parseFloat(raw.Format.Duration)

	for i := range raw.Streams {
		s := &raw.Streams[i]
		if s.CodecType != "video" || s.Disposition["attached_pic"] == 1 {
			continue
		}
		sd, guessed := convertVideo(s, formatDuration)
		if guessed {
			res.Guessed = append(res.Guessed, sd.Index)
		}
		res.Streams = append(res.Streams, sd)
	}
	return res, nil
}

// --- ffprobe JSON wire types ---

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
}

type ffprobeStream struct {
	Index             int            `json:"index"`
	CodecName         string         `json:"codec_name"`
	CodecType         string         `json:"codec_type"`
	PixFmt            string         `json:"pix_fmt"`
	Width             int            `json:"width"`
	Height            int            `json:"height"`
	SampleAspectRatio string         `json:"sample_aspect_ratio"`
	AvgFrameRate      string         `json:"avg_frame_rate"`
	RFrameRate        string         `json:"r_frame_rate"`
	StartTime         string         `json:"start_time"`
	Duration          string         `json:"duration"`
	NbFrames          string         `json:"nb_frames"`
	BitsPerRawSample  string         `json:"bits_per_raw_sample"`
	Disposition       map[string]int `json:"disposition"`
}

func convertVideo(s *ffprobeStream, formatDuration float64) (ports.StreamDescriptor, bool) {
	rate := parseRational(s.AvgFrameRate, "/")
	if rate.IsZero() {
		rate = parseRational(s.RFrameRate, "/")
	}

	sd := ports.StreamDescriptor{
		Index:       s.Index,
		Codec:       s.CodecName,
		PixelFormat: s.PixFmt,
		BitDepth:    bitDepth(s.BitsPerRawSample, s.PixFmt),
		Width:       s.Width,
		Height:      s.Height,
		PixelAspect: 1,
		FrameRate:   rate,
		StartTime:   seconds(parseFloat(s.StartTime)),
		FirstFrame:  1,
		Default:     s.Disposition["default"] == 1,
	}
	if sar := parseRational(s.SampleAspectRatio, ":"); !sar.IsZero() {
		sd.PixelAspect = sar.Float()
	}

	duration := parseFloat(s.Duration)
	if duration <= 0 {
		duration = formatDuration
	}
	count, guessed := frameCount(parseInt(s.NbFrames), duration, rate.Float())
	sd.FrameCount = count
	return sd, guessed
}

// frameCount prefers the container's frame count, then derives one from the
// duration. The microsecond is subtracted so that a duration that is an exact
// multiple of the frame period does not round up to an extra frame.
func frameCount(nbFrames int, duration, fps float64) (int, bool) {
	if nbFrames > 0 {
		return nbFrames, false
	}
	if duration > 0 && fps > 0 {
		if n := int(math.Ceil((duration - 1e-6) * fps)); n > 0 {
			return n, false
		}
	}
	return 1, true
}

var reDepthSuffix = regexp.MustCompile(`p(9|10|12|14|16)(le|be)$`)

func bitDepth(raw, pixFmt string) int {
	if n := parseInt(raw); n > 0 {
		return n
	}
	if m := reDepthSuffix.FindStringSubmatch(pixFmt); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	switch {
	case strings.HasPrefix(pixFmt, "rgba64"), strings.HasPrefix(pixFmt, "rgb48"), strings.HasPrefix(pixFmt, "gray16"):
		return 16
	case strings.HasPrefix(pixFmt, "gbrpf32"), strings.HasPrefix(pixFmt, "grayf32"):
		return 32
	}
	return 8
}

// --- Numeric parsing helpers (ffprobe returns numbers as strings) ---

func parseRational(s, sep string) ports.Rational {
	num, den, ok := strings.Cut(strings.TrimSpace(s), sep)
	if !ok {
		return ports.Rational{}
	}
	return ports.Rational{Num: parseInt(num), Den: parseInt(den)}
}

func parseInt64(s string) int64 {
	n, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return n
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func parseInt(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}
