package metrics

// Variants lists the media variant labels used across metric families.
var Variants = []string{"avatar", "image", "video", "original"}

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, v := range Variants {
		for _, result := range []string{"hit", "miss_new", "miss_pending", "empty", "rejected"} {
			RequestsTotal.WithLabelValues(v, result)
		}
		for _, status := range []string{"success", "expired", "error"} {
			GenerationsTotal.WithLabelValues(v, status)
		}
		GenerationDuration.WithLabelValues(v)
	}

	for _, reason := range []string{"cost", "age", "clear", "remove"} {
		Evictions.WithLabelValues(reason)
	}

	for _, kind := range []string{"loaded", "failed"} {
		EventsPublished.WithLabelValues(kind)
	}

	for _, op := range []string{"stat", "open"} {
		FilesystemOperationDuration.WithLabelValues(op)
		FilesystemOperationErrors.WithLabelValues(op)
		FilesystemRetryAttempts.WithLabelValues(op)
		FilesystemRetrySuccess.WithLabelValues(op)
		FilesystemRetryFailures.WithLabelValues(op)
		FilesystemStaleErrors.WithLabelValues(op)
	}

	for _, format := range []string{"jpeg", "png", "gif", "webp", "bmp", "tiff", "unknown"} {
		ImageDecodeByFormat.WithLabelValues(format)
	}
}
