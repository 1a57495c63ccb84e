/*
Package filesystem provides the file operations used by the convert-and-swap
pipeline, with automatic retry for NFS stale file handle errors.

# Purpose

Video libraries frequently live on network shares. A conversion job stats,
removes and renames multi-gigabyte files, sometimes minutes after the
directory was listed, and NFS can answer with ESTALE in the meantime. Each
operation here wraps the corresponding os call and retries only on ESTALE
with exponential backoff; every other error is returned immediately.

# Usage

	cfg := filesystem.DefaultRetryConfig()

	exists, err := filesystem.Exists("/nfs/videos/movie_temp_1.mp4", cfg)
	info, err := filesystem.Stat("/nfs/videos/movie.avi", cfg)
	err = filesystem.Remove("/nfs/videos/movie.avi", cfg)
	err = filesystem.Rename("/nfs/videos/movie_temp_1.mp4", "/nfs/videos/movie.mp4", cfg)

# Retry Behavior

Defaults: 3 retries, 50ms initial backoff doubling up to 500ms.

# Metrics

Retry activity is reported through the package-level [Observer], set once at
startup with [SetObserver]. The metrics package provides the Prometheus
implementation. With no observer set, nothing is recorded.
*/
package filesystem
