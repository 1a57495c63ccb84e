package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values shared with the converter. Kept here so InitializeMetrics can
// pre-populate them without importing the converter.
var (
	StatusLabels      = []string{"converted", "already_target", "skipped", "failed"}
	SkipReasonLabels  = []string{"not_regular_file", "unsupported_extension", "unsupported_codec", "below_threshold", "bitrate_unknown", "known_no_gain"}
	FailureKindLabels = []string{"probe", "encode", "verify", "no_improvement", "io"}
	ProbeFieldLabels  = []string{"video codec", "video bitrate", "format bitrate", "audio bitrate"}
	FilesystemOps     = []string{"stat", "lstat", "readdir", "remove", "rename"}
)

// Conversion metrics
var (
	FilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hevc_shrink_files_total",
			Help: "Total number of files processed, by outcome status",
		},
		[]string{"status"},
	)

	SkipsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hevc_shrink_skips_total",
			Help: "Total number of skipped files, by reason",
		},
		[]string{"reason"},
	)

	FailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hevc_shrink_failures_total",
			Help: "Total number of failed files, by failure kind",
		},
		[]string{"kind"},
	)

	InputBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hevc_shrink_input_bytes_total",
			Help: "Total size of originals replaced by a conversion",
		},
	)

	OutputBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hevc_shrink_output_bytes_total",
			Help: "Total size of committed conversions",
		},
	)

	BytesSavedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hevc_shrink_bytes_saved_total",
			Help: "Total bytes saved by committed conversions",
		},
	)

	EncodeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hevc_shrink_encode_duration_seconds",
			Help:    "ffmpeg encode duration in seconds",
			Buckets: []float64{10, 30, 60, 120, 300, 600, 1200, 1800, 3600, 7200},
		},
	)

	ProbeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hevc_shrink_probe_duration_seconds",
			Help:    "ffprobe query duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"field"},
	)

	EncodesInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hevc_shrink_encodes_in_progress",
			Help: "Number of ffmpeg encodes currently running",
		},
	)
)

// Batch metrics
var (
	BatchRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hevc_shrink_batch_running",
			Help: "Whether a batch is currently running (1 = running, 0 = idle)",
		},
	)

	BatchLastDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hevc_shrink_batch_last_duration_seconds",
			Help: "Duration of the last batch in seconds",
		},
	)

	BatchLastTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hevc_shrink_batch_last_timestamp",
			Help: "Unix timestamp of the last batch completion",
		},
	)

	BatchWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hevc_shrink_batch_workers",
			Help: "Number of conversion workers",
		},
	)
)

// Filesystem metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hevc_shrink_filesystem_retry_attempts_total",
			Help: "Total filesystem retry attempts after stale file handles",
		},
		[]string{"operation"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hevc_shrink_filesystem_retry_success_total",
			Help: "Total filesystem operations that succeeded after a retry",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hevc_shrink_filesystem_retry_failures_total",
			Help: "Total filesystem operations that failed after all retries",
		},
		[]string{"operation"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hevc_shrink_filesystem_stale_errors_total",
			Help: "Total ESTALE errors seen",
		},
		[]string{"operation"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hevc_shrink_filesystem_operation_duration_seconds",
			Help:    "Filesystem operation duration including retries",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		},
		[]string{"operation"},
	)
)

// History metrics
var (
	HistoryConversions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hevc_shrink_history_conversions",
			Help: "Conversions recorded in the history database, by status",
		},
		[]string{"status"},
	)

	HistoryBytesSaved = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hevc_shrink_history_bytes_saved",
			Help: "Bytes saved by all conversions recorded in the history database",
		},
	)
)

// AppInfo exposes build and policy information as labels.
var AppInfo = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "hevc_shrink_app_info",
		Help: "Application information",
	},
	[]string{"version", "commit", "accel", "encoder"},
)

// SetAppInfo sets the app info gauge.
func SetAppInfo(version, commit, accel, encoder string) {
	AppInfo.WithLabelValues(version, commit, accel, encoder).Set(1)
}
