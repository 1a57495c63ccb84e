// Package startup handles configuration loading, tool preflight checks,
// and startup/shutdown logging for hevc-shrink.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig].
// The following environment variables are supported:
//
//   - HW_ACCEL: nvidia, intel, amd or cpu (default: nvidia)
//   - MIN_SIZE_GB: files must be strictly larger than this (default: 4)
//   - TRANSCODE_WORKERS: concurrent conversions, an integer or "auto" (default: 1)
//   - HISTORY_DB: path of the SQLite history journal (default: disabled)
//   - SKIP_KNOWN_NO_GAIN: skip files the journal shows gave no saving (default: true)
//   - VERIFY_OUTPUT: probe the encode's codec before replacing the original (default: true)
//   - METRICS_ENABLED: serve /metrics, /status and /healthz during the batch (default: false)
//   - METRICS_PORT: metrics server port (default: 9090)
//   - FFMPEG_PATH / FFPROBE_PATH: tool names or paths (default: from PATH)
//   - LOG_LEVEL: debug, info, warn, error (default: info)
//
// # Preflight
//
// [Preflight] runs each required tool's version command through a
// [ToolChecker]. ffmpeg and ffprobe are always required; the NVIDIA
// accelerator additionally requires nvcc. A failed preflight is fatal.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo]:
//   - Version: Application version
//   - Commit: Git commit hash
//   - BuildTime: Build timestamp
//   - GoVersion: Go compiler version
//
// # Example Usage
//
//	config, err := startup.LoadConfig()
//	if err != nil {
//	    startup.LogFatal("Configuration error: %v", err)
//	}
//	if err := startup.Preflight(ctx, config, startup.ExecChecker{}); err != nil {
//	    startup.LogFatal("Preflight failed: %v", err)
//	}
package startup
