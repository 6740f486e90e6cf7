// Package workers determines worker pool sizes for the thumbnail
// pipeline. GOMAXPROCS is used rather than runtime.NumCPU so container
// CPU limits are respected (Go 1.19+ sets GOMAXPROCS from cgroup limits).
package workers

import (
	"os"
	"runtime"
	"strconv"
)

// Count returns a worker count scaled by multiplier and capped at limit
// (0 means no cap). The THUMBNAIL_WORKERS environment variable overrides
// the computed value.
func Count(multiplier float64, limit int) int {
	if override := os.Getenv("THUMBNAIL_WORKERS"); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			if limit > 0 && count > limit {
				return limit
			}
			return count
		}
	}

	available := runtime.GOMAXPROCS(0)

	workers := int(float64(available) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForExternalTools returns the worker count for jobs that spawn external
// processes (ffmpeg/ffprobe). Each job forks a full process, so the pool
// stays small regardless of available CPUs unless explicitly overridden.
func ForExternalTools(limit int) int {
	if limit <= 0 {
		limit = 1
	}
	return Count(1.0, limit)
}
