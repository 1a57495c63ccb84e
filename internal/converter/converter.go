package converter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"code.cloudfoundry.org/bytefmt"

	"hevc-shrink/internal/filesystem"
	"hevc-shrink/internal/history"
	"hevc-shrink/internal/logging"
	"hevc-shrink/internal/mediatypes"
	"hevc-shrink/internal/metrics"
	"hevc-shrink/internal/policy"
	"hevc-shrink/internal/probe"
	"hevc-shrink/internal/transcoder"
)

var (
	// ErrNoImprovement is returned when the encode is not smaller than the
	// original.
	ErrNoImprovement = errors.New("output is not smaller than the original")
	// ErrOutputMissing is returned when the encoder succeeded but left no
	// output file.
	ErrOutputMissing = errors.New("encoder reported success but produced no output")
	// ErrWrongCodec is returned when the output does not probe as the target
	// codec.
	ErrWrongCodec = errors.New("output is not in the target codec")
)

// Journal records outcomes and remembers files that gave no gain.
// *history.DB implements it.
type Journal interface {
	Record(ctx context.Context, e history.Entry) error
	KnownNoGain(ctx context.Context, path string, size int64, modTime time.Time) (bool, error)
}

// Options configures optional behaviour of a Converter.
type Options struct {
	// Journal is optional.
	Journal Journal
	// SkipKnownNoGain skips files the journal marks as previously not
	// improved. Ignored without a Journal.
	SkipKnownNoGain bool
	Retry           filesystem.RetryConfig
}

// Converter runs the per-file pipeline.
type Converter struct {
	policy  *policy.Policy
	prober  probe.Prober
	encoder transcoder.Encoder
	opts    Options

	mu       sync.Mutex
	reserved map[string]struct{}
}

// New creates a Converter. A zero Options.Retry uses the default retry
// configuration.
func New(p *policy.Policy, prober probe.Prober, encoder transcoder.Encoder, opts Options) *Converter {
	if opts.Retry == (filesystem.RetryConfig{}) {
		opts.Retry = filesystem.DefaultRetryConfig()
	}
	return &Converter{
		policy:   p,
		prober:   timedProber{prober},
		encoder:  encoder,
		opts:     opts,
		reserved: make(map[string]struct{}),
	}
}

// Policy returns the conversion policy.
func (c *Converter) Policy() *policy.Policy { return c.policy }

// Process runs the full pipeline for one file and records the outcome.
func (c *Converter) Process(ctx context.Context, path string) Result {
	start := time.Now()
	r := c.process(ctx, path)
	r.Duration = time.Since(start)

	c.observe(r)
	c.record(ctx, r)
	return r
}

func (c *Converter) process(ctx context.Context, path string) Result {
	asset, res, done := c.inspect(ctx, path)
	if done {
		return res
	}

	job, res, done := c.plan(ctx, asset)
	if done {
		return res
	}
	defer c.release(job.TempPath, job.FinalPath)

	return c.execute(ctx, asset, job)
}

// inspect runs the eligibility gates. It returns done=true with a final
// Result when the file is not a conversion candidate.
func (c *Converter) inspect(ctx context.Context, path string) (*Asset, Result, bool) {
	r := Result{Path: path}

	info, err := filesystem.Stat(path, c.opts.Retry)
	if err != nil {
		// A dangling symlink exists but names nothing.
		if errors.Is(err, os.ErrNotExist) {
			if _, lerr := filesystem.Lstat(path, c.opts.Retry); lerr == nil {
				return nil, skipped(r, SkipNotRegular), true
			}
		}
		return nil, failed(r, FailIO, fmt.Errorf("stat: %w", err)), true
	}
	if !info.Mode().IsRegular() {
		return nil, skipped(r, SkipNotRegular), true
	}

	asset := &Asset{
		Path:    path,
		Ext:     mediatypes.Ext(path),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
	r.InputSize = asset.Size
	r.ModTime = asset.ModTime

	if !c.policy.SupportsInput(asset.Ext) {
		return nil, skipped(r, SkipUnsupportedExt), true
	}

	codec, err := probe.Codec(ctx, c.prober, path)
	if err != nil {
		return nil, failed(r, FailProbe, err), true
	}
	asset.Codec = codec
	r.Codec = codec

	if c.policy.IsTargetCodec(codec) {
		r.Status = StatusAlreadyTarget
		return nil, r, true
	}
	if _, ok := c.policy.ScaleFactor(codec); !ok {
		return nil, skipped(r, SkipUnsupportedCodec), true
	}
	if asset.Size <= c.policy.ThresholdBytes() {
		return nil, skipped(r, SkipBelowThreshold), true
	}

	if c.opts.Journal != nil && c.opts.SkipKnownNoGain {
		known, err := c.opts.Journal.KnownNoGain(ctx, path, asset.Size, asset.ModTime)
		if err != nil {
			logging.Warn("History lookup failed for %s: %v", path, err)
		} else if known {
			return nil, skipped(r, SkipKnownNoGain), true
		}
	}

	return asset, r, false
}

// plan resolves bitrates and the audio plan and reserves output paths.
func (c *Converter) plan(ctx context.Context, asset *Asset) (*Job, Result, bool) {
	r := Result{
		Path:      asset.Path,
		Codec:     asset.Codec,
		InputSize: asset.Size,
		ModTime:   asset.ModTime,
	}

	source, field, err := probe.SourceBitrate(ctx, c.prober, asset.Path)
	if err != nil {
		return nil, failed(r, FailProbe, err), true
	}
	asset.Bitrate = source
	asset.BitrateField = field
	if !source.Known() {
		return nil, skipped(r, SkipBitrateUnknown), true
	}
	target, ok := c.policy.TargetBitrate(asset.Codec, source.BPS())
	if !ok || target <= 0 {
		return nil, skipped(r, SkipBitrateUnknown), true
	}
	r.TargetBitrate = target

	audio := transcoder.AudioPlan{Mode: transcoder.AudioCopy}
	if c.policy.NeedsAudioReencode(asset.Ext) {
		ab, err := probe.BitrateOf(ctx, c.prober, asset.Path, probe.AudioBitrate)
		if err != nil {
			return nil, failed(r, FailProbe, err), true
		}
		asset.AudioBitrate = ab
		audio = audioPlan(ab, c.policy.AudioQuality())
	}

	paths, err := c.reserve(asset.Path)
	if err != nil {
		return nil, failed(r, FailIO, err), true
	}

	return &Job{
		Input:         asset.Path,
		TempPath:      paths.Temp,
		FinalPath:     paths.Final,
		TargetBitrate: target,
		Audio:         audio,
	}, r, false
}

// audioPlan matches the source audio bitrate when known and falls back to a
// quality setting otherwise.
func audioPlan(b probe.Bitrate, quality int) transcoder.AudioPlan {
	if b.Known() {
		if kbps := b.BPS() / 1000; kbps >= 1 {
			return transcoder.AudioPlan{Mode: transcoder.AudioMatchBitrate, BitrateKbps: kbps}
		}
	}
	return transcoder.AudioPlan{Mode: transcoder.AudioQuality, Quality: quality}
}

// reserve allocates temp and final paths that neither exist on disk nor are
// held by another running job.
func (c *Converter) reserve(input string) (Paths, error) {
	stem, ext := mediatypes.SplitExt(input)
	outExt := c.policy.OutputExt(ext)

	c.mu.Lock()
	defer c.mu.Unlock()

	paths, err := allocatePaths(input, stem, outExt, func(p string) (bool, error) {
		if _, held := c.reserved[p]; held {
			return true, nil
		}
		return filesystem.Exists(p, c.opts.Retry)
	})
	if err != nil {
		return paths, err
	}
	c.reserved[paths.Temp] = struct{}{}
	c.reserved[paths.Final] = struct{}{}
	return paths, nil
}

func (c *Converter) release(paths ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range paths {
		delete(c.reserved, p)
	}
}

// execute encodes, validates, and swaps.
func (c *Converter) execute(ctx context.Context, asset *Asset, job *Job) Result {
	r := Result{
		Path:          asset.Path,
		Codec:         asset.Codec,
		InputSize:     asset.Size,
		ModTime:       asset.ModTime,
		TargetBitrate: job.TargetBitrate,
		TempPath:      job.TempPath,
	}

	logging.Info("Converting %s (%s, %s, %s %s -> %d bps, audio %s) to %s",
		asset.Path, asset.Codec, bytefmt.ByteSize(uint64(asset.Size)),
		asset.BitrateField, asset.Bitrate, job.TargetBitrate, job.Audio.Mode, job.FinalPath)

	metrics.EncodesInProgress.Inc()
	encStart := time.Now()
	err := c.encoder.Encode(ctx, job.Request(c.policy.Encoder()))
	metrics.EncodeDuration.Observe(time.Since(encStart).Seconds())
	metrics.EncodesInProgress.Dec()

	if err != nil {
		c.discard(job.TempPath)
		return failed(r, FailEncode, err)
	}

	outSize, err := filesystem.Size(job.TempPath, c.opts.Retry)
	if errors.Is(err, os.ErrNotExist) {
		return failed(r, FailVerify, ErrOutputMissing)
	}
	if err != nil {
		c.discard(job.TempPath)
		return failed(r, FailIO, fmt.Errorf("stat output: %w", err))
	}
	r.OutputSize = outSize

	if c.policy.VerifyOutput() {
		if err := c.verify(ctx, job.TempPath); err != nil {
			c.discard(job.TempPath)
			return failed(r, FailVerify, err)
		}
	}

	if outSize >= asset.Size {
		c.discard(job.TempPath)
		return failed(r, FailNoImprovement, fmt.Errorf("%w: %s >= %s", ErrNoImprovement,
			bytefmt.ByteSize(uint64(outSize)), bytefmt.ByteSize(uint64(asset.Size))))
	}

	if err := c.swap(asset.Path, job.TempPath, job.FinalPath); err != nil {
		return failed(r, FailIO, err)
	}

	r.Status = StatusConverted
	r.FinalPath = job.FinalPath
	return r
}

func (c *Converter) verify(ctx context.Context, path string) error {
	codec, err := probe.Codec(ctx, c.prober, path)
	if err != nil {
		return fmt.Errorf("probe output: %w", err)
	}
	if !c.policy.IsTargetCodec(codec) {
		return fmt.Errorf("%w: got %q", ErrWrongCodec, codec)
	}
	return nil
}

// swap deletes the original and moves the smaller encode into place.
func (c *Converter) swap(original, temp, final string) error {
	if err := filesystem.Remove(original, c.opts.Retry); err != nil {
		c.discard(temp)
		return fmt.Errorf("remove original: %w", err)
	}
	if err := filesystem.Rename(temp, final, c.opts.Retry); err != nil {
		logging.Error("Original %s was removed but %s could not be renamed; the encode remains at %s", original, final, temp)
		return fmt.Errorf("rename %s to %s (encode kept at %s): %w", temp, final, temp, err)
	}
	return nil
}

func (c *Converter) discard(temp string) {
	if err := filesystem.Remove(temp, c.opts.Retry); err != nil {
		logging.Warn("Failed to remove temp file %s: %v", temp, err)
	}
}

func (c *Converter) observe(r Result) {
	metrics.FilesTotal.WithLabelValues(r.Status.String()).Inc()
	switch r.Status {
	case StatusConverted:
		metrics.InputBytesTotal.Add(float64(r.InputSize))
		metrics.OutputBytesTotal.Add(float64(r.OutputSize))
		metrics.BytesSavedTotal.Add(float64(r.Saved()))
		logging.Info("Converted %s -> %s, saved %s in %s", r.Path, r.FinalPath,
			bytefmt.ByteSize(uint64(r.Saved())), r.Duration.Round(time.Second))
	case StatusAlreadyTarget:
		logging.Debug("Already %s: %s", c.policy.TargetCodec(), r.Path)
	case StatusSkipped:
		metrics.SkipsTotal.WithLabelValues(string(r.Reason)).Inc()
		logging.Debug("Skipped %s: %s", r.Path, r.Reason)
	case StatusFailed:
		metrics.FailuresTotal.WithLabelValues(string(r.Kind)).Inc()
		logging.Error("Failed %s (%s): %v", r.Path, r.Kind, r.Err)
	}
}

func (c *Converter) record(ctx context.Context, r Result) {
	if c.opts.Journal == nil {
		return
	}
	// Record even when the batch is being cancelled.
	if err := c.opts.Journal.Record(context.WithoutCancel(ctx), r.entry(c.policy.Encoder())); err != nil {
		logging.Warn("Failed to record history for %s: %v", r.Path, err)
	}
}

func skipped(r Result, reason SkipReason) Result {
	r.Status = StatusSkipped
	r.Reason = reason
	return r
}

func failed(r Result, kind FailureKind, err error) Result {
	r.Status = StatusFailed
	r.Kind = kind
	r.Err = err
	return r
}

// timedProber records probe durations.
type timedProber struct {
	probe.Prober
}

func (t timedProber) Probe(ctx context.Context, path string, field probe.Field) (string, error) {
	start := time.Now()
	out, err := t.Prober.Probe(ctx, path, field)
	metrics.ProbeDuration.WithLabelValues(field.String()).Observe(time.Since(start).Seconds())
	return out, err
}
