package workers

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

// EnvVar overrides the automatic worker count.
const EnvVar = "TRANSCODE_WORKERS"

// Auto is the TRANSCODE_WORKERS value that sizes the pool from the CPU count.
const Auto = "auto"

// Count returns the optimal number of workers for a given task type.
// It respects container CPU limits via GOMAXPROCS (Go 1.19+).
//
// The multiplier adjusts for task characteristics:
//   - 1.0 for CPU-bound tasks
//   - 0.5 for tasks that start their own multi-threaded processes
//
// The limit parameter caps the worker count to prevent resource exhaustion.
// Use 0 for no limit.
func Count(multiplier float64, limit int) int {
	// GOMAXPROCS is automatically set to container CPU limit in Go 1.19+
	available := runtime.GOMAXPROCS(0)

	workers := int(float64(available) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForCPU returns worker count for CPU-bound tasks (1 per CPU).
// The limit parameter caps the maximum number of workers.
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// Parse interprets a TRANSCODE_WORKERS value. Empty means one worker,
// "auto" means ForCPU(limit), and anything else must be a positive integer,
// which is capped at limit when limit > 0.
func Parse(value string, limit int) (int, error) {
	value = strings.TrimSpace(value)
	switch strings.ToLower(value) {
	case "":
		return 1, nil
	case Auto:
		return ForCPU(limit), nil
	}

	count, err := strconv.Atoi(value)
	if err != nil || count < 1 {
		return 0, fmt.Errorf("invalid %s value %q: want a positive integer or %q", EnvVar, value, Auto)
	}
	if limit > 0 && count > limit {
		return limit, nil
	}
	return count, nil
}
