package ffmedia

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/user/moviereader/pkg/ports"
)

// ErrToolNotFound is returned when ffmpeg is required but cannot be located.
var ErrToolNotFound = errors.New("ffmedia: ffmpeg not found")

// Pre-compiled regexes for classifying ffmpeg/ffprobe stderr output.
var (
	reNotFound = regexp.MustCompile(`(?i)No such file or directory`)

	rePermission = regexp.MustCompile(`(?i)Permission denied`)

	reBusy = regexp.MustCompile(
		`(?i)Resource temporarily unavailable|Device or resource busy|` +
			`Too many open files|Text file busy`)

	reCodecFailure = regexp.MustCompile(
		`(?i)Invalid data found when processing input|` +
			`Error while decoding stream|` +
			`Decoder \(codec .*\) not found|` +
			`Failed to open codec|` +
			`corrupt|missing picture in access unit`)

	reNoVideo = regexp.MustCompile(
		`(?i)Stream map '.*' matches no streams|Output file #0 does not contain any stream`)
)

// classify maps a failed tool run to a ports error, using fallback when no
// pattern matches. The first stderr line is kept for diagnostics.
func classify(stderr []byte, err, fallback error) error {
	msg := strings.TrimSpace(string(stderr))
	var kind error
	switch {
	case reNotFound.MatchString(msg):
		kind = ports.ErrMediaNotFound
	case rePermission.MatchString(msg):
		kind = ports.ErrMediaUnreadable
	case reBusy.MatchString(msg):
		kind = ports.ErrBusy
	case reNoVideo.MatchString(msg):
		kind = ports.ErrStreamNotFound
	case reCodecFailure.MatchString(msg):
		kind = ports.ErrCodecFailure
	default:
		kind = fallback
	}
	if msg == "" {
		return fmt.Errorf("%w: %v", kind, err)
	}
	return fmt.Errorf("%w: %v: %s", kind, err, firstLine(msg))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
