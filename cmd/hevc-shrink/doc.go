// Command hevc-shrink re-encodes large videos to HEVC and replaces each
// original only when the result is smaller.
//
// Usage:
//
//	hevc-shrink <file-or-directory>...
//
// Directories are searched recursively. For every supported video
// (.mp4 .mkv .wmv .mov .avi) whose codec has a scale factor (h264, wmv2,
// vc1) and whose size exceeds MIN_SIZE_GB, the video is encoded at half its
// source bitrate with the encoder for HW_ACCEL. The encode is written to a
// temporary file next to the original. If it is smaller, the original is
// deleted and the encode takes its place (legacy containers become .mp4);
// otherwise the encode is discarded.
//
// Exit status:
//
//	0  every file was converted or did not need converting
//	1  at least one file failed, or startup failed
//	2  usage error
//
// When a single argument was given (for example by dropping a folder onto
// the executable), the run failed, and stdin is a terminal, the program
// waits for Enter before exiting so the log stays visible.
//
// Environment variables are documented in package startup.
//
// # Signals
//
// SIGINT and SIGTERM stop dispatching new files and kill running ffmpeg
// processes. Interrupted encodes are discarded and their originals are left
// untouched.
package main
