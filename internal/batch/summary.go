package batch

import (
	"sort"
	"time"

	"code.cloudfoundry.org/bytefmt"

	"hevc-shrink/internal/converter"
	"hevc-shrink/internal/logging"
)

// Summary aggregates the results of one batch.
type Summary struct {
	Converted     int
	AlreadyTarget int
	Skipped       int
	Failed        int
	// SkipReasons counts skipped files per reason.
	SkipReasons map[converter.SkipReason]int
	InputBytes  int64
	OutputBytes int64
	Failures    []converter.Result
	Workers     int
	Duration    time.Duration
	// Interrupted is set when cancellation left files undispatched or
	// unprocessed. Cancelling during the last encode fails that file but
	// does not set it.
	Interrupted bool
}

// Add folds one result into the summary.
func (s *Summary) Add(r converter.Result) {
	switch r.Status {
	case converter.StatusConverted:
		s.Converted++
		s.InputBytes += r.InputSize
		s.OutputBytes += r.OutputSize
	case converter.StatusAlreadyTarget:
		s.AlreadyTarget++
	case converter.StatusSkipped:
		s.Skipped++
		if s.SkipReasons == nil {
			s.SkipReasons = make(map[converter.SkipReason]int)
		}
		s.SkipReasons[r.Reason]++
	case converter.StatusFailed:
		s.Failed++
		s.Failures = append(s.Failures, r)
	}
}

// Total returns the number of files seen.
func (s Summary) Total() int {
	return s.Converted + s.AlreadyTarget + s.Skipped + s.Failed
}

// BytesSaved returns the total size reduction.
func (s Summary) BytesSaved() int64 {
	return s.InputBytes - s.OutputBytes
}

// OK reports whether every file succeeded. Skips and files already in the
// target codec count as success; an interrupted batch is never OK.
func (s Summary) OK() bool {
	return s.Failed == 0 && !s.Interrupted
}

// Log writes the summary in the startup log style.
func (s Summary) Log() {
	logging.Info("----------------------------------------")
	logging.Info("Batch Summary")
	logging.Info("----------------------------------------")
	logging.Info("  Files:          %d", s.Total())
	logging.Info("  Converted:      %d", s.Converted)
	logging.Info("  Already target: %d", s.AlreadyTarget)
	logging.Info("  Skipped:        %d", s.Skipped)

	reasons := make([]string, 0, len(s.SkipReasons))
	for reason := range s.SkipReasons {
		reasons = append(reasons, string(reason))
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		logging.Info("    %-22s %d", reason+":", s.SkipReasons[converter.SkipReason(reason)])
	}

	logging.Info("  Failed:         %d", s.Failed)
	if s.Converted > 0 {
		logging.Info("  Saved:          %s (%s -> %s)",
			bytefmt.ByteSize(uint64(s.BytesSaved())),
			bytefmt.ByteSize(uint64(s.InputBytes)),
			bytefmt.ByteSize(uint64(s.OutputBytes)))
	}
	logging.Info("  Duration:       %s", s.Duration.Round(time.Second))
	if s.Interrupted {
		logging.Warn("  Batch was interrupted; remaining files were not processed")
	}
	logging.Info("----------------------------------------")

	for _, f := range s.Failures {
		logging.Error("  %s", f)
	}
}
