package summarizer

import (
	"fmt"
	"strings"
	"time"
)

// Translator maps a label to its localized form.
type Translator func(key string) string

// Option configures a formatter.
type Option func(*options)

type options struct {
	translate Translator
	version   string
}

// WithTranslator localizes labels.
func WithTranslator(t Translator) Option {
	return func(o *options) { o.translate = t }
}

// WithVersion adds the tool version to the footer.
func WithVersion(v string) Option {
	return func(o *options) { o.version = v }
}

func newOptions(opts []Option) options {
	o := options{translate: func(key string) string { return key }}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// MarkdownFormatter renders a Summary as Markdown.
type MarkdownFormatter struct {
	options
}

// NewMarkdownFormatter creates a new MarkdownFormatter.
func NewMarkdownFormatter(opts ...Option) *MarkdownFormatter {
	return &MarkdownFormatter{options: newOptions(opts)}
}

// Format implements Formatter.
func (f *MarkdownFormatter) Format(s *Summary) string {
	t := f.translate
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", t("Media Report"))

	fmt.Fprintf(&b, "## %s\n\n", t("Resource"))
	fmt.Fprintf(&b, "| %s | %s |\n|---|---|\n", t("Item"), t("Value"))
	row := func(k, v string) { fmt.Fprintf(&b, "| %s | %s |\n", t(k), v) }
	row("Path", s.Media.Path)
	if s.Media.LocalPath != "" && s.Media.LocalPath != s.Media.Path {
		row("Local Path", s.Media.LocalPath)
	}
	row("Format", orNA(s.Media.Format))
	row("Duration", formatDuration(s.Media.Duration))
	row("Size", formatBytes(s.Media.Size))
	if !s.Media.ModTime.IsZero() {
		row("Modified", s.Media.ModTime.Format(time.RFC3339))
	}
	if s.Media.ETag != "" {
		row("ETag", s.Media.ETag)
	}
	if s.Media.Refresh != 0 {
		row("Refresh", fmt.Sprintf("%d", s.Media.Refresh))
	}

	fmt.Fprintf(&b, "\n## %s\n\n", t("Video Streams"))
	if len(s.Streams) == 0 {
		fmt.Fprintf(&b, "%s\n", t("No video streams"))
	} else {
		headers := []string{"Stream", "Codec", "Pixel Format", "Size", "Pixel Aspect", "Frame Rate", "Frames", "Color Space"}
		for i, h := range headers {
			headers[i] = t(h)
		}
		fmt.Fprintf(&b, "| %s |\n|%s\n", strings.Join(headers, " | "), strings.Repeat("---|", len(headers)))
		for _, st := range s.Streams {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s |\n",
				streamLabel(st, t),
				st.Codec,
				pixelFormat(st),
				fmt.Sprintf("%dx%d", st.Width, st.Height),
				fmt.Sprintf("%.3g", st.PixelAspect),
				frameRate(st),
				fmt.Sprintf("%d-%d (%d)", st.FirstFrame, st.LastFrame(), st.FrameCount),
				colorSpace(st, t),
			)
		}
	}

	if s.Settings.WorkingSpace != "" {
		fmt.Fprintf(&b, "\n## %s\n\n", t("Color Settings"))
		fmt.Fprintf(&b, "| %s | %s |\n|---|---|\n", t("Item"), t("Value"))
		row("Working Space", s.Settings.WorkingSpace)
		row("Display Space", s.Settings.DisplaySpace)
		row("Log Space", s.Settings.LogSpace)
	}

	fmt.Fprintf(&b, "\n---\n%s %s", t("Generated at"), s.GeneratedAt.Format(time.RFC3339))
	if f.version != "" {
		fmt.Fprintf(&b, " (moviereader %s)", f.version)
	}
	b.WriteString("\n")
	return b.String()
}

func streamLabel(st StreamInfo, t Translator) string {
	if st.Default {
		return fmt.Sprintf("%d (%s)", st.Index, t("default"))
	}
	return fmt.Sprintf("%d", st.Index)
}

func pixelFormat(st StreamInfo) string {
	if st.PixelFormat == "" {
		return "N/A"
	}
	return fmt.Sprintf("%s (%d bit)", st.PixelFormat, st.BitDepth)
}

func frameRate(st StreamInfo) string {
	if st.FrameRate.IsZero() {
		return "N/A"
	}
	return fmt.Sprintf("%.3f fps (%s)", st.FrameRate.Float(), st.FrameRate)
}

func colorSpace(st StreamInfo, t Translator) string {
	if st.ColorSpace != "" {
		return st.ColorSpace
	}
	if st.ColorSpaceError != "" {
		return t("unresolved")
	}
	return "N/A"
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// formatDuration formats a duration as h:mm:ss.mmm.
func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "N/A"
	}
	ms := d.Milliseconds()
	return fmt.Sprintf("%d:%02d:%02d.%03d", ms/3600000, ms/60000%60, ms/1000%60, ms%1000)
}

// formatBytes formats bytes into human-readable format.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
