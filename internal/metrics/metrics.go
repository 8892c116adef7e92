package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_wallet_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_wallet_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_wallet_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	UploadRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_wallet_upload_rejections_total",
			Help: "Files rejected by the upload contract before reaching the photo store",
		},
		[]string{"reason"}, // "type", "size", "read"
	)
)

// Record store metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_wallet_db_queries_total",
			Help: "Total number of record store queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_wallet_db_query_duration_seconds",
			Help:    "Record store query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_wallet_db_transaction_duration_seconds",
			Help:    "Record store transaction duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"outcome"}, // "commit", "rollback"
	)

	DBRecordsUpgraded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_wallet_db_records_upgraded_total",
			Help: "Records upgraded from an older schema version at open",
		},
		[]string{"from_version"},
	)

	DBSizeBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_wallet_db_content_bytes",
			Help: "Bytes of original and thumbnail content held by the record store",
		},
	)
)

// Thumbnail metrics
var (
	ThumbnailGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_wallet_thumbnail_generations_total",
			Help: "Total number of thumbnail generations",
		},
		[]string{"backend", "status"},
	)

	ThumbnailGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_wallet_thumbnail_generation_duration_seconds",
			Help:    "Thumbnail generation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"backend"},
	)

	DisplayRenditionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_wallet_display_renditions_total",
			Help: "Viewer renditions served, by cache outcome",
		},
		[]string{"outcome"}, // "hit", "miss", "error"
	)
)

// Photo store metrics
var (
	StoreOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_wallet_store_operations_total",
			Help: "Photo store operations by name and outcome",
		},
		[]string{"operation", "status"},
	)

	StorePersistFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_wallet_store_persist_failures_total",
			Help: "Persistence failures absorbed by the optimistic policy",
		},
		[]string{"operation"},
	)

	PhotosTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "photo_wallet_photos",
			Help: "Number of photos by state",
		},
		[]string{"state"}, // "active", "archived"
	)

	CapacityTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_wallet_capacity",
			Help: "Configured capacity ceiling for active photos",
		},
	)

	DuplicateChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_wallet_duplicate_checks_total",
			Help: "Duplicate detector calls by result",
		},
		[]string{"result"}, // "duplicate", "unique"
	)

	ImportResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_wallet_import_results_total",
			Help: "Import queue outcomes per file",
		},
		[]string{"source", "outcome"},
	)

	ImportQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_wallet_import_queue_depth",
			Help: "Uploads waiting in the import queue",
		},
	)

	// Inbox watcher metrics
	InboxEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_wallet_inbox_events_total",
			Help: "File system events seen in the inbox directory",
		},
		[]string{"event"}, // "create", "write", "remove", "rename", "chmod"
	)

	InboxWatcherErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_wallet_inbox_watcher_errors_total",
			Help: "Errors reported by the inbox watcher",
		},
	)

	HardResetsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_wallet_hard_resets_total",
			Help: "Hard reset runs by outcome",
		},
		[]string{"status"}, // "clean", "fallback"
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_wallet_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the configured memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_wallet_memory_paused",
			Help: "1 while imports are held back by memory pressure",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_wallet_memory_gc_pauses_total",
			Help: "Times imports were paused and a GC forced by memory pressure",
		},
	)
)

// Filesystem retry metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_wallet_filesystem_retry_attempts_total",
			Help: "Retries of filesystem operations after a stale file handle",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_wallet_filesystem_retry_failures_total",
			Help: "Filesystem operations that still failed after all retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_wallet_filesystem_stale_errors_total",
			Help: "Stale file handle errors seen by filesystem operations",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_wallet_filesystem_operation_duration_seconds",
			Help:    "Duration of filesystem operations including retries",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"operation", "volume"},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "photo_wallet_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
