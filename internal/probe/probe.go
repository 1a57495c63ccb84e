package probe

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"hevc-shrink/internal/logging"
)

// Field selects the scalar a probe returns.
type Field int

const (
	// VideoCodec is the codec name of the first video stream.
	VideoCodec Field = iota
	// VideoBitrate is the bitrate of the first video stream.
	VideoBitrate
	// FormatBitrate is the container-level bitrate.
	FormatBitrate
	// AudioBitrate is the bitrate of the first audio stream.
	AudioBitrate
)

func (f Field) String() string {
	switch f {
	case VideoCodec:
		return "video codec"
	case VideoBitrate:
		return "video bitrate"
	case FormatBitrate:
		return "format bitrate"
	case AudioBitrate:
		return "audio bitrate"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

// args returns the ffprobe stream selector and entry for f.
func (f Field) args() (selector, entry string) {
	switch f {
	case VideoCodec:
		return "v:0", "stream=codec_name"
	case VideoBitrate:
		return "v:0", "stream=bit_rate"
	case FormatBitrate:
		return "v:0", "format=bit_rate"
	case AudioBitrate:
		return "a:0", "stream=bit_rate"
	default:
		return "", ""
	}
}

// Prober returns the raw scalar ffprobe prints for a field.
type Prober interface {
	Probe(ctx context.Context, path string, field Field) (string, error)
}

// Error is a failed probe invocation.
type Error struct {
	Path   string
	Field  Field
	Output string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("ffprobe %s of %s: %v", e.Field, e.Path, e.Err)
	if e.Output != "" {
		msg += " - " + e.Output
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// FFprobe runs the ffprobe binary.
type FFprobe struct {
	// Binary is the ffprobe executable; defaults to "ffprobe".
	Binary string
	// Timeout bounds a single query; zero means no limit beyond ctx.
	Timeout time.Duration
}

// NewFFprobe returns an FFprobe using binary (or "ffprobe" if empty).
func NewFFprobe(binary string) *FFprobe {
	if binary == "" {
		binary = "ffprobe"
	}
	return &FFprobe{Binary: binary, Timeout: 2 * time.Minute}
}

// Args returns the ffprobe arguments for a query.
func Args(path string, field Field) []string {
	selector, entry := field.args()
	return []string{
		"-v", "error",
		"-select_streams", selector,
		"-show_entries", entry,
		"-of", "default=nw=1:nk=1",
		path,
	}
}

// Probe implements Prober.
func (p *FFprobe) Probe(ctx context.Context, path string, field Field) (string, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	args := Args(path, field)
	logging.Debug("Running %s %s", p.Binary, strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, p.Binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", &Error{
			Path:   path,
			Field:  field,
			Output: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}

	return firstLine(stdout.String()), nil
}

// firstLine returns the first non-empty trimmed line of s.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// Bitrate is a bits-per-second value that may be unknown.
type Bitrate struct {
	bps   int64
	known bool
}

// Unknown is the bitrate ffprobe could not report.
var Unknown = Bitrate{}

// BitsPerSecond returns a known bitrate.
func BitsPerSecond(bps int64) Bitrate {
	if bps <= 0 {
		return Unknown
	}
	return Bitrate{bps: bps, known: true}
}

// Known reports whether the bitrate was reported.
func (b Bitrate) Known() bool { return b.known }

// BPS returns the bitrate in bits per second, or 0 if unknown.
func (b Bitrate) BPS() int64 { return b.bps }

func (b Bitrate) String() string {
	if !b.known {
		return "N/A"
	}
	return strconv.FormatInt(b.bps, 10)
}

// ParseBitrate converts ffprobe output to a Bitrate. "N/A", empty output,
// non-numeric text and non-positive values are Unknown. Fractional values
// are truncated.
func ParseBitrate(raw string) Bitrate {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "N/A") {
		return Unknown
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return BitsPerSecond(n)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || f < 1 || f > 1e15 {
		return Unknown
	}
	return BitsPerSecond(int64(f))
}

// Codec probes the video codec name, lower-cased. An empty result means the
// file has no video stream.
func Codec(ctx context.Context, p Prober, path string) (string, error) {
	raw, err := p.Probe(ctx, path, VideoCodec)
	if err != nil {
		return "", err
	}
	return strings.ToLower(raw), nil
}

// BitrateOf probes a bitrate field.
func BitrateOf(ctx context.Context, p Prober, path string, field Field) (Bitrate, error) {
	raw, err := p.Probe(ctx, path, field)
	if err != nil {
		return Unknown, err
	}
	b := ParseBitrate(raw)
	if !b.Known() {
		logging.Debug("%s not available for %s (got %q)", field, path, raw)
	}
	return b, nil
}

// SourceBitrate resolves the bitrate used for scaling: the video stream
// bitrate if known, otherwise the container bitrate. The returned field
// tells which one was used.
func SourceBitrate(ctx context.Context, p Prober, path string) (Bitrate, Field, error) {
	stream, err := BitrateOf(ctx, p, path, VideoBitrate)
	if err != nil {
		return Unknown, VideoBitrate, err
	}
	if stream.Known() {
		return stream, VideoBitrate, nil
	}

	format, err := BitrateOf(ctx, p, path, FormatBitrate)
	if err != nil {
		return Unknown, FormatBitrate, err
	}
	return format, FormatBitrate, nil
}
