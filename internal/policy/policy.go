package policy

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"hevc-shrink/internal/mediatypes"
)

const bytesPerGB = 1024 * 1024 * 1024

// DefaultAudioQuality is the AAC VBR quality used when a legacy container's
// audio bitrate is unknown.
const DefaultAudioQuality = 2

// Options are the raw inputs to [New].
type Options struct {
	Accel HWAccel
	// TargetCodec is the ffprobe codec name of already-converted files.
	TargetCodec string
	// MinSizeGB: files at or below this size are skipped.
	MinSizeGB float64
	// ScaleFactors maps legacy codec names to bitrate scale factors.
	ScaleFactors map[string]float64
	// InputExts are the extensions considered for conversion.
	InputExts []string
	// AcceptableExts are containers that may be kept for the output.
	AcceptableExts []string
	// PreferredExt is the output container for everything else.
	PreferredExt string
	// LegacyAudioExts are containers whose audio must be re-encoded to AAC.
	LegacyAudioExts []string
	// AudioQuality is the AAC -q:a value used when audio bitrate is unknown.
	AudioQuality int
	// VerifyOutput probes the encoded file's codec before the swap.
	VerifyOutput bool
}

// DefaultOptions returns the built-in conversion policy.
func DefaultOptions() Options {
	return Options{
		Accel:       AccelNVIDIA,
		TargetCodec: "hevc",
		MinSizeGB:   4,
		ScaleFactors: map[string]float64{
			"h264": 0.5,
			"wmv2": 0.5,
			"vc1":  0.5,
		},
		InputExts: []string{
			mediatypes.ExtMP4, mediatypes.ExtMKV, mediatypes.ExtWMV,
			mediatypes.ExtMOV, mediatypes.ExtAVI,
		},
		AcceptableExts:  []string{mediatypes.ExtMP4, mediatypes.ExtMKV, mediatypes.ExtMOV},
		PreferredExt:    mediatypes.ExtMP4,
		LegacyAudioExts: []string{mediatypes.ExtWMV, mediatypes.ExtAVI},
		AudioQuality:    DefaultAudioQuality,
		VerifyOutput:    true,
	}
}

// Policy is the immutable conversion configuration shared by every job.
type Policy struct {
	accel           HWAccel
	targetCodec     string
	minSizeGB       float64
	thresholdBytes  int64
	scaleFactors    map[string]float64
	inputExts       mediatypes.ExtSet
	acceptableExts  mediatypes.ExtSet
	preferredExt    string
	legacyAudioExts mediatypes.ExtSet
	audioQuality    int
	verifyOutput    bool
}

// Validation errors returned by New.
var (
	ErrInvalidAccel       = errors.New("invalid hardware accelerator")
	ErrInvalidThreshold   = errors.New("size threshold must be a non-negative number")
	ErrInvalidScaleFactor = errors.New("scale factor must be in (0, 1]")
	ErrNoInputExts        = errors.New("no input extensions configured")
)

// New validates opts and builds a Policy. Maps and slices are copied.
func New(opts Options) (*Policy, error) {
	if !opts.Accel.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccel, opts.Accel)
	}
	if math.IsNaN(opts.MinSizeGB) || math.IsInf(opts.MinSizeGB, 0) || opts.MinSizeGB < 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidThreshold, opts.MinSizeGB)
	}

	targetCodec := strings.ToLower(strings.TrimSpace(opts.TargetCodec))
	if targetCodec == "" {
		return nil, errors.New("target codec must not be empty")
	}

	factors := make(map[string]float64, len(opts.ScaleFactors))
	for codec, f := range opts.ScaleFactors {
		codec = strings.ToLower(strings.TrimSpace(codec))
		if codec == "" {
			return nil, errors.New("scale table contains an empty codec name")
		}
		if codec == targetCodec {
			return nil, fmt.Errorf("scale table must not contain the target codec %q", codec)
		}
		if math.IsNaN(f) || f <= 0 || f > 1 {
			return nil, fmt.Errorf("%w: %s=%v", ErrInvalidScaleFactor, codec, f)
		}
		factors[codec] = f
	}

	inputExts := mediatypes.NewExtSet(opts.InputExts...)
	if inputExts.Len() == 0 {
		return nil, ErrNoInputExts
	}

	preferred := mediatypes.NormalizeExt(opts.PreferredExt)
	if preferred == "" {
		return nil, errors.New("preferred output extension must not be empty")
	}
	acceptable := mediatypes.NewExtSet(opts.AcceptableExts...)
	if !acceptable.Has(preferred) {
		return nil, fmt.Errorf("preferred extension %s is not an acceptable container", preferred)
	}

	audioQuality := opts.AudioQuality
	if audioQuality <= 0 {
		audioQuality = DefaultAudioQuality
	}

	return &Policy{
		accel:           opts.Accel,
		targetCodec:     targetCodec,
		minSizeGB:       opts.MinSizeGB,
		thresholdBytes:  int64(opts.MinSizeGB * bytesPerGB),
		scaleFactors:    factors,
		inputExts:       inputExts,
		acceptableExts:  acceptable,
		preferredExt:    preferred,
		legacyAudioExts: mediatypes.NewExtSet(opts.LegacyAudioExts...),
		audioQuality:    audioQuality,
		verifyOutput:    opts.VerifyOutput,
	}, nil
}

// Accel returns the configured hardware accelerator.
func (p *Policy) Accel() HWAccel { return p.accel }

// Encoder returns the ffmpeg encoder identifier for the accelerator.
func (p *Policy) Encoder() string { return p.accel.Encoder() }

// TargetCodec returns the codec name of already-converted files.
func (p *Policy) TargetCodec() string { return p.targetCodec }

// MinSizeGB returns the configured size threshold in GB.
func (p *Policy) MinSizeGB() float64 { return p.minSizeGB }

// ThresholdBytes returns the size a file must exceed to be converted.
func (p *Policy) ThresholdBytes() int64 { return p.thresholdBytes }

// AudioQuality returns the AAC VBR quality used when audio bitrate is unknown.
func (p *Policy) AudioQuality() int { return p.audioQuality }

// VerifyOutput reports whether encoded files are re-probed before the swap.
func (p *Policy) VerifyOutput() bool { return p.verifyOutput }

// IsTargetCodec reports whether codec is already the target codec.
func (p *Policy) IsTargetCodec(codec string) bool {
	return strings.EqualFold(strings.TrimSpace(codec), p.targetCodec)
}

// ScaleFactor returns the bitrate factor for a legacy codec.
func (p *Policy) ScaleFactor(codec string) (float64, bool) {
	f, ok := p.scaleFactors[strings.ToLower(strings.TrimSpace(codec))]
	return f, ok
}

// TargetBitrate returns floor(source × factor(codec)). ok is false if the
// codec is not in the scale table or source is not positive.
func (p *Policy) TargetBitrate(codec string, source int64) (target int64, ok bool) {
	f, known := p.ScaleFactor(codec)
	if !known || source <= 0 {
		return 0, false
	}
	return int64(math.Floor(float64(source) * f)), true
}

// LegacyCodecs returns the codecs in the scale table, sorted.
func (p *Policy) LegacyCodecs() []string {
	out := make([]string, 0, len(p.scaleFactors))
	for c := range p.scaleFactors {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// SupportsInput reports whether files with ext are considered at all.
func (p *Policy) SupportsInput(ext string) bool { return p.inputExts.Has(ext) }

// IsAcceptableContainer reports whether ext can be kept for the output.
func (p *Policy) IsAcceptableContainer(ext string) bool { return p.acceptableExts.Has(ext) }

// OutputExt returns the output extension for an input extension. Acceptable
// containers keep their original spelling.
func (p *Policy) OutputExt(inputExt string) string {
	if p.acceptableExts.Has(inputExt) {
		return inputExt
	}
	return p.preferredExt
}

// NeedsAudioReencode reports whether ext is a legacy container whose audio
// cannot be copied into the output container.
func (p *Policy) NeedsAudioReencode(ext string) bool { return p.legacyAudioExts.Has(ext) }

// String summarises the policy for startup logs.
func (p *Policy) String() string {
	factors := make([]string, 0, len(p.scaleFactors))
	for _, c := range p.LegacyCodecs() {
		factors = append(factors, fmt.Sprintf("%s=%g", c, p.scaleFactors[c]))
	}
	return fmt.Sprintf("accel=%s encoder=%s target=%s min=%gGB scale=[%s] inputs=[%s] keep=[%s] preferred=%s legacy-audio=[%s]",
		p.accel, p.Encoder(), p.targetCodec, p.minSizeGB, strings.Join(factors, " "),
		p.inputExts, p.acceptableExts, p.preferredExt, p.legacyAudioExts)
}
