// Package mp4probe reads video stream metadata from MP4/MOV containers without
// external tools. It is the fallback prober when ffprobe is unavailable.
package mp4probe

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/moviereader/pkg/ports"
)

// Codec names match the ones ffprobe reports.
const (
	CodecH264    = "h264"
	CodecHEVC    = "hevc"
	CodecAV1     = "av1"
	CodecUnknown = "unknown"
)

// Result holds the probed container and its video streams.
type Result struct {
	Info    ports.ContainerInfo
	Streams []ports.StreamDescriptor
}

// ProbeFile probes an MP4 file on disk.
func ProbeFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	res, err := ProbeReader(f)
	if err != nil {
		return nil, err
	}
	if st, err := f.Stat(); err == nil {
		res.Info.Size = st.Size()
	}
	return res, nil
}

// ProbeReader probes MP4 data from an io.ReadSeeker.
func ProbeReader(reader io.ReadSeeker) (*Result, error) {
	mp4File, err := mp4.DecodeFile(reader)
	if err != nil {
		return nil, fmt.Errorf("decode mp4: %w", err)
	}
	if _, err := reader.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek: %w", err)
	}

	moov := mp4File.Moov
	if mp4File.IsFragmented() && mp4File.Init != nil && mp4File.Init.Moov != nil {
		moov = mp4File.Init.Moov
	}
	if moov == nil {
		return nil, fmt.Errorf("no moov box")
	}

	res := &Result{Info: ports.ContainerInfo{Format: "mp4"}}
	for idx, trak := range moov.Traks {
		sd, ok := describeTrack(idx, trak)
		if !ok {
			continue
		}
		if mp4File.IsFragmented() {
			countFragmentSamples(mp4File, moov, trak, &sd)
		}
		if len(res.Streams) == 0 {
			sd.Default = true
		}
		res.Streams = append(res.Streams, sd)
	}

	for _, s := range res.Streams {
		if d := streamDuration(s); d > res.Info.Duration {
			res.Info.Duration = d
		}
	}
	return res, nil
}

func describeTrack(idx int, trak *mp4.TrakBox) (ports.StreamDescriptor, bool) {
	if trak.Mdia == nil || trak.Mdia.Hdlr == nil || trak.Mdia.Hdlr.HandlerType != "vide" {
		return ports.StreamDescriptor{}, false
	}
	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
		return ports.StreamDescriptor{}, false
	}

	sd := ports.StreamDescriptor{
		Index:       idx,
		Codec:       CodecUnknown,
		BitDepth:    8,
		PixelAspect: 1,
		FirstFrame:  1,
	}

	stbl := trak.Mdia.Minf.Stbl
	for _, child := range stbl.Stsd.Children {
		switch child.Type() {
		case "avc1", "avc3":
			sd.Codec = CodecH264
		case "hvc1", "hev1":
			sd.Codec = CodecHEVC
		case "av01":
			sd.Codec = CodecAV1
		default:
			continue
		}
		if vse, ok := child.(*mp4.VisualSampleEntryBox); ok {
			sd.Width = int(vse.Width)
			sd.Height = int(vse.Height)
			sd.BitDepth = bitDepthOf(vse)
		}
		break
	}
	sd.PixelFormat = pixelFormatFor(sd.BitDepth)

	var timescale uint32
	if trak.Mdia.Mdhd != nil {
		timescale = trak.Mdia.Mdhd.Timescale
	}
	if stbl.Stsz != nil {
		sd.FrameCount = int(stbl.Stsz.SampleNumber)
	}
	if stbl.Stts != nil && len(stbl.Stts.SampleTimeDelta) > 0 {
		sd.FrameRate = rateOf(timescale, stbl.Stts.SampleTimeDelta[0])
	}
	return sd, true
}

func countFragmentSamples(f *mp4.File, moov *mp4.MoovBox, trak *mp4.TrakBox, sd *ports.StreamDescriptor) {
	trackID := trak.Tkhd.TrackID
	var trex *mp4.TrexBox
	if moov.Mvex != nil {
		for _, t := range moov.Mvex.Trexs {
			if t.TrackID == trackID {
				trex = t
				break
			}
		}
	}

	var timescale uint32
	if trak.Mdia.Mdhd != nil {
		timescale = trak.Mdia.Mdhd.Timescale
	}

	count := 0
	for _, seg := range f.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil {
				continue
			}
			samples, err := frag.GetFullSamples(trex)
			if err != nil {
				continue
			}
			for _, s := range samples {
				if sd.FrameRate.IsZero() && s.Dur > 0 {
					sd.FrameRate = rateOf(timescale, s.Dur)
				}
				count++
			}
		}
	}
	sd.FrameCount += count
}

func bitDepthOf(vse *mp4.VisualSampleEntryBox) int {
	for _, c := range vse.Children {
		if av1c, ok := c.(*mp4.Av1CBox); ok {
			switch {
			case av1c.TwelveBit != 0:
				return 12
			case av1c.HighBitdepth != 0:
				return 10
			}
		}
	}
	return 8
}

func pixelFormatFor(depth int) string {
	switch depth {
	case 10:
		return "yuv420p10le"
	case 12:
		return "yuv420p12le"
	}
	return "yuv420p"
}

func rateOf(timescale, delta uint32) ports.Rational {
	if timescale == 0 || delta == 0 {
		return ports.Rational{}
	}
	g := gcd(timescale, delta)
	return ports.Rational{Num: int(timescale / g), Den: int(delta / g)}
}

func gcd(a, b uint32) uint32 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func streamDuration(s ports.StreamDescriptor) time.Duration {
	fps := s.FrameRate.Float()
	if fps == 0 {
		return 0
	}
	return time.Duration(float64(s.FrameCount) / fps * float64(time.Second))
}
