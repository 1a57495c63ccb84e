// Package metrics provides Prometheus instrumentation for hevc-shrink.
//
// All metrics are prefixed with "hevc_shrink_" and registered with the
// default registry through promauto. They are served by the optional metrics
// server (METRICS_ENABLED=true) while a batch runs.
//
// # Metric Categories
//
// ## Conversion Metrics
//   - FilesTotal: files processed by outcome status
//   - SkipsTotal: skipped files by reason
//   - FailuresTotal: failed files by failure kind
//   - InputBytesTotal / OutputBytesTotal / BytesSavedTotal: sizes of committed conversions
//   - EncodeDuration: ffmpeg run time
//   - ProbeDuration: ffprobe run time by field
//   - EncodesInProgress: running ffmpeg processes
//
// ## Batch Metrics
//   - BatchRunning, BatchLastDuration, BatchLastTimestamp, BatchWorkers
//
// ## Filesystem Metrics
//   - FilesystemRetry*: NFS stale handle retries by operation
//
// ## History Metrics
//   - HistoryConversions, HistoryBytesSaved: totals from the history database,
//     refreshed by the [Collector]
//
// # Recording Metrics
//
//	metrics.FilesTotal.WithLabelValues("converted").Inc()
//	metrics.EncodeDuration.Observe(elapsed.Seconds())
//
// Call [InitializeMetrics] once at startup so every label combination is
// exported from the first scrape.
package metrics
