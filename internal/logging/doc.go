// Package logging provides the leveled logger used throughout hevc-shrink.
//
// Levels, from most to least verbose:
//   - DEBUG: ffprobe/ffmpeg command lines, path allocation details
//   - INFO: per-file decisions and batch summaries
//   - WARN: recoverable problems (cleanup failures, retries)
//   - ERROR: per-file failures
//   - FATAL: startup failures that terminate the process
//
// The level is read once from the DEBUG or LOG_LEVEL environment variables
// and may be overridden with [SetLevel].
package logging
