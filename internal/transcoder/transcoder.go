package transcoder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"hevc-shrink/internal/logging"
)

// AudioMode selects how the audio stream is handled.
type AudioMode int

const (
	// AudioCopy copies the audio stream unchanged.
	AudioCopy AudioMode = iota
	// AudioMatchBitrate re-encodes to AAC at the source bitrate.
	AudioMatchBitrate
	// AudioQuality re-encodes to AAC with a VBR quality target.
	AudioQuality
)

func (m AudioMode) String() string {
	switch m {
	case AudioCopy:
		return "copy"
	case AudioMatchBitrate:
		return "aac-bitrate"
	case AudioQuality:
		return "aac-quality"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// AudioPlan describes the audio arguments for one job.
type AudioPlan struct {
	Mode AudioMode
	// BitrateKbps is used with AudioMatchBitrate.
	BitrateKbps int64
	// Quality is the -q:a value used with AudioQuality.
	Quality int
}

// Request is one encode invocation.
type Request struct {
	Input        string
	Output       string
	Encoder      string
	VideoBitrate int64
	Audio        AudioPlan
}

// Encoder re-encodes a file. A nil error means ffmpeg exited with status 0.
type Encoder interface {
	Encode(ctx context.Context, req Request) error
}

// ExitError is returned when ffmpeg exits non-zero or cannot be started.
type ExitError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExitError) Error() string {
	if e.ExitCode >= 0 {
		return fmt.Sprintf("ffmpeg exited with status %d", e.ExitCode)
	}
	return fmt.Sprintf("ffmpeg failed: %v", e.Err)
}

func (e *ExitError) Unwrap() error { return e.Err }

// waitDelay bounds how long Wait blocks on ffmpeg's stderr after the process
// was killed.
const waitDelay = 10 * time.Second

// stderrTailSize is how much of ffmpeg's stderr is kept for diagnostics.
const stderrTailSize = 64 * 1024

// FFmpeg runs the ffmpeg binary.
type FFmpeg struct {
	binary string
	// progress, if set, also receives ffmpeg's stderr as it is written.
	progress io.Writer

	processes map[string]*exec.Cmd
	processMu sync.Mutex
}

// New creates an FFmpeg encoder using binary (or "ffmpeg" if empty).
// progress may be nil.
func New(binary string, progress io.Writer) *FFmpeg {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpeg{
		binary:    binary,
		progress:  progress,
		processes: make(map[string]*exec.Cmd),
	}
}

// BuildArgs returns the ffmpeg arguments for req.
func BuildArgs(req Request) []string {
	args := []string{
		"-nostdin",
		"-hide_banner",
		// never overwrite; the output path is allocated as non-existent
		"-n",
		"-hwaccel", "auto",
		"-i", req.Input,
		"-c:v", req.Encoder,
		"-b:v", strconv.FormatInt(req.VideoBitrate, 10),
	}

	switch req.Audio.Mode {
	case AudioMatchBitrate:
		args = append(args, "-c:a", "aac", "-b:a", strconv.FormatInt(req.Audio.BitrateKbps, 10)+"k")
	case AudioQuality:
		args = append(args, "-c:a", "aac", "-q:a", strconv.Itoa(req.Audio.Quality))
	default:
		args = append(args, "-c:a", "copy")
	}

	return append(args, req.Output)
}

// Encode implements Encoder.
func (f *FFmpeg) Encode(ctx context.Context, req Request) error {
	args := BuildArgs(req)
	logging.Debug("Running %s %s", f.binary, strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, f.binary, args...)
	cmd.WaitDelay = waitDelay
	stderr := &tailBuffer{limit: stderrTailSize}
	if f.progress != nil {
		cmd.Stderr = io.MultiWriter(stderr, f.progress)
	} else {
		cmd.Stderr = stderr
	}

	if err := cmd.Start(); err != nil {
		return &ExitError{ExitCode: -1, Err: fmt.Errorf("failed to start ffmpeg: %w", err)}
	}

	f.processMu.Lock()
	f.processes[req.Input] = cmd
	f.processMu.Unlock()

	defer func() {
		f.processMu.Lock()
		delete(f.processes, req.Input)
		f.processMu.Unlock()
	}()

	start := time.Now()
	err := cmd.Wait()
	if err == nil {
		logging.Debug("ffmpeg finished %s in %v", req.Input, time.Since(start).Round(time.Second))
		return nil
	}

	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	if ctx.Err() != nil {
		err = fmt.Errorf("%w (%v)", ctx.Err(), err)
	}
	return &ExitError{ExitCode: exitCode, Stderr: stderr.String(), Err: err}
}

// Active returns the number of running ffmpeg processes.
func (f *FFmpeg) Active() int {
	f.processMu.Lock()
	defer f.processMu.Unlock()
	return len(f.processes)
}

// Cleanup kills all running ffmpeg processes.
func (f *FFmpeg) Cleanup() {
	f.processMu.Lock()
	defer f.processMu.Unlock()

	for path, cmd := range f.processes {
		if cmd.Process != nil {
			logging.Info("Killing ffmpeg process for: %s", path)
			if err := cmd.Process.Kill(); err != nil {
				logging.Warn("failed to kill ffmpeg process for %s: %v", path, err)
			}
		}
	}
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	buf   []byte
	limit int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(p)
	if len(p) >= t.limit {
		t.buf = append(t.buf[:0], p[len(p)-t.limit:]...)
		return n, nil
	}
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return n, nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
