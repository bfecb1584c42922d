package summarizer

import (
	"fmt"
	"strings"
	"time"
)

// TextFormatter renders a Summary as aligned plain text for terminals.
type TextFormatter struct {
	options
}

// NewTextFormatter creates a new TextFormatter.
func NewTextFormatter(opts ...Option) *TextFormatter {
	return &TextFormatter{options: newOptions(opts)}
}

// Format implements Formatter.
func (f *TextFormatter) Format(s *Summary) string {
	t := f.translate
	var b strings.Builder
	line := func(indent, k, v string) { fmt.Fprintf(&b, "%s%-14s %s\n", indent, t(k)+":", v) }

	line("", "Path", s.Media.Path)
	line("", "Format", orNA(s.Media.Format))
	line("", "Duration", formatDuration(s.Media.Duration))
	line("", "Size", formatBytes(s.Media.Size))
	if !s.Media.ModTime.IsZero() {
		line("", "Modified", s.Media.ModTime.Format(time.RFC3339))
	}

	if len(s.Streams) == 0 {
		fmt.Fprintf(&b, "%s\n", t("No video streams"))
	}
	for _, st := range s.Streams {
		fmt.Fprintf(&b, "%s %s\n", t("Stream"), streamLabel(st, t))
		line("  ", "Codec", st.Codec)
		line("  ", "Pixel Format", pixelFormat(st))
		line("  ", "Size", fmt.Sprintf("%dx%d @ %.3g", st.Width, st.Height, st.PixelAspect))
		line("  ", "Frame Rate", frameRate(st))
		line("  ", "Frames", fmt.Sprintf("%d-%d (%d)", st.FirstFrame, st.LastFrame(), st.FrameCount))
		if st.ColorSpaceError != "" {
			line("  ", "Color Space", st.ColorSpaceError)
		} else {
			line("  ", "Color Space", colorSpace(st, t))
		}
	}
	return b.String()
}
