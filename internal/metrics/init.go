package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, mode := range []string{"full", "incremental"} {
		ScanRunsTotal.WithLabelValues(mode)
		ScanDuration.WithLabelValues(mode)
	}

	for _, class := range []string{"added", "modified", "deleted"} {
		ChangesDetected.WithLabelValues(class)
	}

	for _, kind := range []string{"metadata", "thumbnail", "categorize"} {
		EnrichmentsTotal.WithLabelValues(kind, "success")
		EnrichmentsTotal.WithLabelValues(kind, "error")
		EnrichmentDuration.WithLabelValues(kind)
	}

	for _, op := range []string{"stat", "open", "readdir"} {
		FilesystemRetryAttempts.WithLabelValues(op)
		FilesystemRetrySuccess.WithLabelValues(op)
		FilesystemRetryFailures.WithLabelValues(op)
		FilesystemStaleErrors.WithLabelValues(op)
	}

	for _, op := range []string{"initialize_schema", "create_library", "list_libraries",
		"get_library", "save_library", "delete_library", "touch_library",
		"create_media", "save_media", "delete_media", "media_by_library",
		"media_by_relative_path", "media_by_id", "media_exists"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}
}
