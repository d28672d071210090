package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scan metrics
var (
	ScanRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_scan_runs_total",
			Help: "Total number of library scans by mode",
		},
		[]string{"mode"}, // "full", "incremental"
	)

	ScanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_catalog_scan_duration_seconds",
			Help:    "Library scan duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"mode"},
	)

	ScanErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_catalog_scan_errors_total",
			Help: "Total number of scans that failed to establish a baseline",
		},
	)

	ScanOverlapSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_catalog_scan_overlap_skipped_total",
			Help: "Scan requests skipped because a scan was already running for the library",
		},
	)

	ScansActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_catalog_scans_active",
			Help: "Number of library scans currently running",
		},
	)

	ChangesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_changes_detected_total",
			Help: "File changes detected by class",
		},
		[]string{"class"}, // "added", "modified", "deleted"
	)

	ItemFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_catalog_scan_item_failures_total",
			Help: "Per-file processing failures swallowed at the scan boundary",
		},
	)

	HashComputations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_catalog_hash_computations_total",
			Help: "Total number of content hash computations",
		},
	)

	HashDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_catalog_hash_duration_seconds",
			Help:    "Content hash computation duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15},
		},
	)
)

// Enrichment metrics
var (
	EnrichmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_enrichments_total",
			Help: "Enrichment outcomes by kind",
		},
		[]string{"kind", "status"}, // kind: "metadata", "thumbnail", "categorize"
	)

	EnrichmentDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_catalog_enrichment_duration_seconds",
			Help:    "Enrichment duration in seconds by kind",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		},
		[]string{"kind"},
	)

	ThumbnailOrphansRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_catalog_thumbnail_orphans_removed_total",
			Help: "Orphaned thumbnail files removed by the cleanup task",
		},
	)
)

// Scheduler metrics
var (
	SchedulerJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_catalog_scheduler_jobs",
			Help: "Number of installed recurring triggers",
		},
	)

	SchedulerTriggersTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_catalog_scheduler_triggers_total",
			Help: "Total number of trigger firings",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_catalog_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_catalog_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Filesystem retry metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_fs_retry_attempts_total",
			Help: "Filesystem operation retries after stale NFS handles",
		},
		[]string{"operation"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_fs_retry_success_total",
			Help: "Filesystem operations that succeeded after retrying",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_fs_retry_failures_total",
			Help: "Filesystem operations that failed after exhausting retries",
		},
		[]string{"operation"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_fs_stale_errors_total",
			Help: "ESTALE errors observed per operation",
		},
		[]string{"operation"},
	)
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_catalog_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_catalog_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)
