package handlers

import (
	"net/http"
	"runtime"

	"mpv-remote/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusScanning = "scanning"
)

// HealthResponse contains the health check response.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Scanning bool   `json:"scanning"`

	Instances int `json:"instances"`
	Tracks    int `json:"tracks"`
	Shares    int `json:"shares"`

	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck reports service health. Scans in progress are healthy
// but surfaced so probes and dashboards can tell the phases apart.
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	stats := h.library.GetStats()

	response := HealthResponse{
		Status:       statusHealthy,
		Version:      startup.Version,
		Instances:    len(h.manager.GetAllInstances()),
		Shares:       len(stats.Shares),
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}
	for _, share := range stats.Shares {
		response.Tracks += share.Tracks
		if share.Scanning {
			response.Scanning = true
		}
	}
	if response.Scanning {
		response.Status = statusScanning
	}

	writeJSON(w, response)
}

// LivenessCheck is a simple liveness probe.
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers.
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{"status": "alive"})
	}
}
