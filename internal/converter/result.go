package converter

import (
	"fmt"
	"time"

	"code.cloudfoundry.org/bytefmt"

	"hevc-shrink/internal/history"
	"hevc-shrink/internal/probe"
	"hevc-shrink/internal/transcoder"
)

// Status is the outcome of processing one file.
type Status int

const (
	// StatusConverted means the original was replaced by a smaller encode.
	StatusConverted Status = iota
	// StatusAlreadyTarget means the file already uses the target codec.
	StatusAlreadyTarget
	// StatusSkipped means the file is not a candidate.
	StatusSkipped
	// StatusFailed means the file was a candidate but could not be converted.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusConverted:
		return history.StatusConverted
	case StatusAlreadyTarget:
		return history.StatusAlreadyTarget
	case StatusSkipped:
		return history.StatusSkipped
	case StatusFailed:
		return history.StatusFailed
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// SkipReason explains why a file is not a candidate.
type SkipReason string

const (
	SkipNotRegular       SkipReason = "not_regular_file"
	SkipUnsupportedExt   SkipReason = "unsupported_extension"
	SkipUnsupportedCodec SkipReason = "unsupported_codec"
	SkipBelowThreshold   SkipReason = "below_threshold"
	SkipBitrateUnknown   SkipReason = "bitrate_unknown"
	SkipKnownNoGain      SkipReason = "known_no_gain"
)

// FailureKind classifies a per-file failure.
type FailureKind string

const (
	FailProbe         FailureKind = "probe"
	FailEncode        FailureKind = "encode"
	FailVerify        FailureKind = "verify"
	FailNoImprovement FailureKind = history.ReasonNoImprovement
	FailIO            FailureKind = "io"
)

// Asset is what the pipeline knows about one input file.
type Asset struct {
	Path  string
	Ext   string
	Codec string
	// Bitrate is the source bitrate used for scaling; BitrateField tells
	// whether it came from the video stream or the container.
	Bitrate      probe.Bitrate
	BitrateField probe.Field
	AudioBitrate probe.Bitrate
	Size         int64
	ModTime      time.Time
}

// Job is a planned conversion.
type Job struct {
	Input         string
	TempPath      string
	FinalPath     string
	TargetBitrate int64
	Audio         transcoder.AudioPlan
}

// Request builds the encoder request for the job.
func (j *Job) Request(encoder string) transcoder.Request {
	return transcoder.Request{
		Input:        j.Input,
		Output:       j.TempPath,
		Encoder:      encoder,
		VideoBitrate: j.TargetBitrate,
		Audio:        j.Audio,
	}
}

// Result is the outcome for one file.
type Result struct {
	Path   string
	Status Status
	// Reason is set when Status is StatusSkipped.
	Reason SkipReason
	// Kind and Err are set when Status is StatusFailed.
	Kind FailureKind
	Err  error

	Codec         string
	InputSize     int64
	OutputSize    int64
	ModTime       time.Time
	TargetBitrate int64
	TempPath      string
	FinalPath     string
	Duration      time.Duration
}

// Success reports whether the file counts as handled correctly. Skips and
// files already in the target codec are successes.
func (r Result) Success() bool {
	return r.Status != StatusFailed
}

// Saved returns the bytes saved by a conversion.
func (r Result) Saved() int64 {
	if r.Status != StatusConverted {
		return 0
	}
	return r.InputSize - r.OutputSize
}

func (r Result) String() string {
	switch r.Status {
	case StatusConverted:
		return fmt.Sprintf("%s: converted to %s (%s -> %s)", r.Path, r.FinalPath,
			bytefmt.ByteSize(uint64(r.InputSize)), bytefmt.ByteSize(uint64(r.OutputSize)))
	case StatusSkipped:
		return fmt.Sprintf("%s: skipped (%s)", r.Path, r.Reason)
	case StatusFailed:
		return fmt.Sprintf("%s: failed (%s): %v", r.Path, r.Kind, r.Err)
	default:
		return fmt.Sprintf("%s: %s", r.Path, r.Status)
	}
}

func (r Result) entry(encoder string) history.Entry {
	e := history.Entry{
		Path:          r.Path,
		Codec:         r.Codec,
		Status:        r.Status.String(),
		InputSize:     r.InputSize,
		OutputSize:    r.OutputSize,
		ModTime:       r.ModTime,
		TargetBitrate: r.TargetBitrate,
		FinalPath:     r.FinalPath,
		Duration:      r.Duration,
	}
	switch r.Status {
	case StatusSkipped:
		e.Reason = string(r.Reason)
	case StatusFailed:
		e.Reason = string(r.Kind)
		if r.Err != nil {
			e.Error = r.Err.Error()
		}
	}
	if r.TargetBitrate > 0 {
		e.Encoder = encoder
	}
	return e
}
