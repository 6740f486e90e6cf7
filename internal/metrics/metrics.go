package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mpv_remote_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mpv_remote_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mpv_remote_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)
)

// Instance manager metrics
var (
	InstancesActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mpv_remote_instances_active",
			Help: "Number of mpv instances currently tracked",
		},
	)

	InstancesCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mpv_remote_instances_created_total",
			Help: "Total instance creation attempts by outcome",
		},
		[]string{"outcome"}, // "running", "ipc_failed", "spawn_failed"
	)

	IPCCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mpv_remote_ipc_commands_total",
			Help: "Total IPC commands sent to mpv instances by outcome",
		},
		[]string{"outcome"}, // "ok", "timeout", "channel_error"
	)

	IPCCommandDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mpv_remote_ipc_command_duration_seconds",
			Help:    "Round-trip duration of IPC commands",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		},
	)

	InstancesReclaimedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mpv_remote_instances_reclaimed_total",
			Help: "Total dead instances removed by the periodic sweep",
		},
	)
)

// Scanner metrics
var (
	ScannerRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mpv_remote_scanner_runs_total",
			Help: "Total full share scans by outcome",
		},
		[]string{"outcome"}, // "completed", "already_scanning", "error"
	)

	ScannerRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mpv_remote_scanner_run_duration_seconds",
			Help:    "Duration of full share scans",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		},
	)

	ScannerWatchEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mpv_remote_scanner_watch_events_total",
			Help: "Total live filesystem watch events by kind",
		},
		[]string{"kind"}, // "file_found", "file_removed", "directory_found"
	)
)

// Thumbnail pipeline metrics
var (
	ThumbnailJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mpv_remote_thumbnail_jobs_total",
			Help: "Total thumbnail jobs by outcome",
		},
		[]string{"outcome"}, // "success", "cached", "deduplicated", "failed", "timeout"
	)

	ThumbnailJobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mpv_remote_thumbnail_job_duration_seconds",
			Help:    "Duration of thumbnail generation jobs",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	ThumbnailQueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mpv_remote_thumbnail_queue_size",
			Help: "Number of thumbnail jobs queued or in flight",
		},
	)
)

// Media cache metrics
var (
	CacheTracks = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mpv_remote_cache_tracks",
			Help: "Number of tracks indexed per share",
		},
		[]string{"share"},
	)

	CacheDirectories = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mpv_remote_cache_directories",
			Help: "Number of directories indexed per share",
		},
		[]string{"share"},
	)

	CacheSavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mpv_remote_cache_saves_total",
			Help: "Total snapshot saves by outcome",
		},
		[]string{"outcome"}, // "ok", "error"
	)
)

// InitializeMetrics pre-populates expected label combinations so every
// metric is exported from the first Prometheus scrape.
func InitializeMetrics() {
	for _, outcome := range []string{"running", "ipc_failed", "spawn_failed"} {
		InstancesCreatedTotal.WithLabelValues(outcome)
	}
	for _, outcome := range []string{"ok", "timeout", "channel_error"} {
		IPCCommandsTotal.WithLabelValues(outcome)
	}
	for _, outcome := range []string{"completed", "already_scanning", "error"} {
		ScannerRunsTotal.WithLabelValues(outcome)
	}
	for _, kind := range []string{"file_found", "file_removed", "directory_found"} {
		ScannerWatchEventsTotal.WithLabelValues(kind)
	}
	for _, outcome := range []string{"success", "cached", "deduplicated", "failed", "timeout"} {
		ThumbnailJobsTotal.WithLabelValues(outcome)
	}
	for _, outcome := range []string{"ok", "error"} {
		CacheSavesTotal.WithLabelValues(outcome)
	}
}
