// Package metrics defines the Prometheus metrics exported by the server:
// HTTP request metrics, mpv instance lifecycle counters, scanner and
// thumbnail pipeline activity, and media cache sizes. All metrics are
// registered with promauto at package init and served from /metrics.
package metrics
