package startup

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"hevc-shrink/internal/logging"
)

// ErrToolMissing is returned by Preflight when a required tool is absent or
// does not run.
var ErrToolMissing = errors.New("required tool is not available")

// ToolChecker runs a tool's version command and returns its first output
// line.
type ToolChecker interface {
	Check(ctx context.Context, name string, args ...string) (string, error)
}

// ExecChecker runs tools from PATH.
type ExecChecker struct {
	Timeout time.Duration
}

// Check implements ToolChecker.
func (e ExecChecker) Check(ctx context.Context, name string, args ...string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s not found in PATH", name)
	}
	logging.Debug("  %s path: %s", name, path)

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	output, err := exec.CommandContext(ctx, path, args...).Output()
	if err != nil {
		return "", fmt.Errorf("failed to run %s %s: %w", name, strings.Join(args, " "), err)
	}

	first, _, _ := strings.Cut(string(output), "\n")
	return strings.TrimSpace(first), nil
}

// Preflight verifies that ffmpeg and ffprobe run and, for accelerators that
// need one, that the vendor toolkit is installed. Nothing is touched on disk
// before it passes.
func Preflight(ctx context.Context, cfg *Config, checker ToolChecker) error {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("PREFLIGHT")
	logging.Info("------------------------------------------------------------")

	type tool struct {
		name string
		args []string
	}
	tools := []tool{
		{cfg.FFmpegPath, []string{"-version"}},
		{cfg.FFprobePath, []string{"-version"}},
	}
	if toolkit := cfg.Policy.Accel().Toolkit(); toolkit != "" {
		tools = append(tools, tool{toolkit, []string{"--version"}})
	}

	var missing []error
	for _, t := range tools {
		version, err := checker.Check(ctx, t.name, t.args...)
		if err != nil {
			logging.Error("  [FAIL] %s: %v", t.name, err)
			missing = append(missing, fmt.Errorf("%w: %s: %v", ErrToolMissing, t.name, err))
			continue
		}
		logging.Info("  [OK] %s: %s", t.name, version)
	}

	return errors.Join(missing...)
}
