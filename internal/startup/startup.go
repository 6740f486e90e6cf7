package startup

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"mpv-remote/internal/logging"

	"github.com/gorilla/mux"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all application configuration
type Config struct {
	// MediaShares maps share names to their root directories.
	MediaShares map[string]string

	Port            string
	MPVPath         string
	SocketDir       string
	CacheFile       string
	ThumbnailDir    string
	SweepInterval   time.Duration
	LogHealthChecks bool
	MetricsEnabled  bool

	// ThumbnailsEnabled is false when the thumbnail directory cannot be
	// created or written; indexing still works, listings fall back to the
	// default thumbnail.
	ThumbnailsEnabled bool
}

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to determine working directory: %w", err)
	}

	sharesSpec := getEnv("MEDIA_SHARES", "")
	port := getEnv("PORT", "8080")
	mpvPath := getEnv("MPV_PATH", "mpv")
	socketDir := getEnv("SOCKET_DIR", os.TempDir())
	cacheFile := getEnv("CACHE_FILE", filepath.Join(cwd, "media-cache.json"))
	thumbnailDir := getEnv("THUMBNAIL_DIR", filepath.Join(cwd, "thumbnails"))
	sweepIntervalStr := getEnv("SWEEP_INTERVAL", "5m")
	logHealthChecks := getEnvBool("LOG_HEALTH_CHECKS", true)
	metricsEnabled := getEnvBool("METRICS_ENABLED", true)

	logging.Info("  MEDIA_SHARES:      %s", sharesSpec)
	logging.Info("  PORT:              %s", port)
	logging.Info("  MPV_PATH:          %s", mpvPath)
	logging.Info("  SOCKET_DIR:        %s", socketDir)
	logging.Info("  CACHE_FILE:        %s", cacheFile)
	logging.Info("  THUMBNAIL_DIR:     %s", thumbnailDir)
	logging.Info("  SWEEP_INTERVAL:    %s", sweepIntervalStr)
	logging.Info("  LOG_HEALTH_CHECKS: %v", logHealthChecks)
	logging.Info("  METRICS_ENABLED:   %v", metricsEnabled)
	logging.Info("  LOG_LEVEL:         %s", logging.GetLevel())

	shares, err := ParseShares(sharesSpec)
	if err != nil {
		return nil, fmt.Errorf("invalid MEDIA_SHARES: %w", err)
	}
	if len(shares) == 0 {
		logging.Warn("  No media shares configured (set MEDIA_SHARES=name=/path[,name=/path...])")
	}

	sweepInterval, err := time.ParseDuration(sweepIntervalStr)
	if err != nil {
		logging.Warn("  Invalid SWEEP_INTERVAL, using default: 5m")
		sweepInterval = 5 * time.Minute
	}

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	for name, root := range shares {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve share %q path: %w", name, err)
		}
		shares[name] = abs
		if info, err := os.Stat(abs); err != nil || !info.IsDir() {
			logging.Warn("  Share %q root missing or not a directory: %s", name, abs)
		} else {
			logging.Info("  Share %q: %s", name, abs)
		}
	}

	config := &Config{
		MediaShares:     shares,
		Port:            port,
		MPVPath:         mpvPath,
		SocketDir:       socketDir,
		CacheFile:       cacheFile,
		ThumbnailDir:    thumbnailDir,
		SweepInterval:   sweepInterval,
		LogHealthChecks: logHealthChecks,
		MetricsEnabled:  metricsEnabled,
	}

	config.ThumbnailsEnabled = setupOptionalDir(thumbnailDir, "thumbnails")

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Thumbnails: %s", enabledString(config.ThumbnailsEnabled))
	logging.Info("    Metrics:    %s", enabledString(config.MetricsEnabled))

	return config, nil
}

// ParseShares parses a "name=/path,name=/path" specification into a map.
// Empty input yields an empty map; a malformed entry is an error.
func ParseShares(spec string) (map[string]string, error) {
	shares := make(map[string]string)
	if strings.TrimSpace(spec) == "" {
		return shares, nil
	}

	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, root, ok := strings.Cut(entry, "=")
		name = strings.TrimSpace(name)
		root = strings.TrimSpace(root)
		if !ok || name == "" || root == "" {
			return nil, fmt.Errorf("malformed share entry %q (want name=/path)", entry)
		}
		if _, dup := shares[name]; dup {
			return nil, fmt.Errorf("duplicate share name %q", name)
		}
		shares[name] = root
	}

	return shares, nil
}

func setupOptionalDir(path, name string) bool {
	logging.Debug("  Setting up %s directory: %s", name, path)

	if err := os.MkdirAll(path, 0o755); err != nil {
		logging.Warn("    Failed to create %s directory: %v", name, err)
		logging.Warn("    %s will be disabled", name)
		return false
	}

	testFile := filepath.Join(path, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		logging.Warn("    %s directory is not writable: %v", name, err)
		logging.Warn("    %s will be disabled", name)
		return false
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("    failed to remove test file %s: %v", testFile, err)
	}

	logging.Debug("    [OK] %s directory ready", name)
	return true
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

func printBanner() {
	logging.Printf("============================================================")
	logging.Printf("  mpv-remote %s (%s)", Version, Commit)
	logging.Printf("============================================================")
}

func logSystemInfo() {
	logging.Info("  Go:   %s", GoVersion)
	logging.Info("  OS:   %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs: %d (GOMAXPROCS %d)", runtime.NumCPU(), runtime.GOMAXPROCS(0))
	logging.Info("")
}

// LogToolAvailability logs whether the external tools the server shells
// out to (mpv, ffmpeg, ffprobe) can be found on PATH. Missing tools are
// warnings: the corresponding feature degrades at call time.
func LogToolAvailability(mpvPath string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("EXTERNAL TOOLS")
	logging.Info("------------------------------------------------------------")

	for _, tool := range []string{mpvPath, "ffmpeg", "ffprobe"} {
		if path, err := exec.LookPath(tool); err != nil {
			logging.Warn("  [MISSING] %s (%v)", tool, err)
		} else {
			logging.Info("  [OK] %s -> %s", tool, path)
		}
	}
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		name := route.GetName()

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   name,
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if !logging.IsDebugEnabled() {
		return
	}

	routes, err := GetRoutes(router)
	if err != nil {
		logging.Warn("error walking routes: %v", err)
	}

	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path != routes[j].Path {
			return routes[i].Path < routes[j].Path
		}
		return routes[i].Method < routes[j].Method
	})

	logging.Debug("  Registered routes (%d total):", len(routes))
	for _, route := range routes {
		logging.Debug("    %-6s %s", route.Method, route.Path)
	}
}

// LogServerStarted logs successful server start
func LogServerStarted(port string, metricsEnabled bool, startupDuration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time: %v", startupDuration)
	logging.Info("  Application:  http://localhost:%s", port)
	if metricsEnabled {
		logging.Info("  Metrics:      http://localhost:%s/metrics", port)
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	switch strings.ToLower(value) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
