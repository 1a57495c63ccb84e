/*
Package workers sizes the transcode worker pool.

# Overview

When running in containers, the number of available CPUs may be limited by
cgroup constraints. Go 1.19+ sets GOMAXPROCS from those limits, while
runtime.NumCPU() still returns the host's CPU count, so worker counts are
derived from GOMAXPROCS:

	// Wrong: Returns 64 (host CPUs), ignores container limit
	workers := runtime.NumCPU()

	// Correct: Returns 2 (respects container limit in Go 1.19+)
	workers := runtime.GOMAXPROCS(0)

# Configuration

The pool size comes from the TRANSCODE_WORKERS environment variable:

  - unset or empty: 1 worker (fully sequential, the default)
  - "auto": one worker per available CPU, capped by the caller's limit
  - a positive integer: that many workers, capped by the caller's limit

Hardware encoders usually accept only a few concurrent sessions, and
software x265 already uses every core, so more than one worker mostly helps
batches dominated by probing and small files.

	n, err := workers.Parse(os.Getenv(workers.EnvVar), 4)
*/
package workers
