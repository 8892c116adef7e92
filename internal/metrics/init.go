package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, op := range []string{"get_active", "get_archived", "get", "insert", "update",
		"remove", "reorder_batch", "clear_all", "count", "upgrade_records"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, outcome := range []string{"commit", "rollback"} {
		DBTransactionDuration.WithLabelValues(outcome)
	}

	for _, backend := range []string{"imaging", "vips"} {
		ThumbnailGenerationDuration.WithLabelValues(backend)
		for _, status := range []string{"success", "error_decode", "error_encode"} {
			ThumbnailGenerationsTotal.WithLabelValues(backend, status)
		}
	}

	for _, outcome := range []string{"hit", "miss", "error"} {
		DisplayRenditionsTotal.WithLabelValues(outcome)
	}

	for _, op := range []string{"load", "load_archived", "add", "delete", "archive",
		"unarchive", "delete_archived", "reorder", "archive_oldest"} {
		StoreOperationsTotal.WithLabelValues(op, "success")
		StoreOperationsTotal.WithLabelValues(op, "error")
	}

	for _, op := range []string{"delete", "archive", "reorder", "archive_oldest"} {
		StorePersistFailures.WithLabelValues(op)
	}

	for _, state := range []string{"active", "archived"} {
		PhotosTotal.WithLabelValues(state)
	}

	for _, result := range []string{"duplicate", "unique"} {
		DuplicateChecksTotal.WithLabelValues(result)
	}

	for _, source := range []string{"upload", "inbox", "cli"} {
		for _, outcome := range []string{"added", "duplicate", "capacity", "failed"} {
			ImportResultsTotal.WithLabelValues(source, outcome)
		}
	}

	for _, reason := range []string{"type", "size", "read"} {
		UploadRejectionsTotal.WithLabelValues(reason)
	}

	for _, status := range []string{"clean", "fallback"} {
		HardResetsTotal.WithLabelValues(status)
	}
}
