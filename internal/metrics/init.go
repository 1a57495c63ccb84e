package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
func InitializeMetrics() {
	for _, s := range StatusLabels {
		FilesTotal.WithLabelValues(s)
		HistoryConversions.WithLabelValues(s)
	}
	for _, r := range SkipReasonLabels {
		SkipsTotal.WithLabelValues(r)
	}
	for _, k := range FailureKindLabels {
		FailuresTotal.WithLabelValues(k)
	}
	for _, f := range ProbeFieldLabels {
		ProbeDuration.WithLabelValues(f)
	}
	for _, op := range FilesystemOps {
		FilesystemRetryAttempts.WithLabelValues(op)
		FilesystemRetrySuccess.WithLabelValues(op)
		FilesystemRetryFailures.WithLabelValues(op)
		FilesystemStaleErrors.WithLabelValues(op)
		FilesystemRetryDuration.WithLabelValues(op)
	}
}
