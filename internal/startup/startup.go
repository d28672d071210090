// Package startup handles configuration loading and structured startup
// and shutdown logging for the catalog service.
package startup

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"media-catalog/internal/logging"

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

// Config holds all application configuration
type Config struct {
	DatabaseDir     string
	CacheDir        string
	Port            string
	MetricsPort     string
	ScanInterval    time.Duration
	CleanupInterval time.Duration
	LogHealthChecks bool
	MetricsEnabled  bool

	// Derived paths
	DatabasePath string
	ThumbnailDir string

	// Feature flags based on directory availability
	ThumbnailsEnabled bool
}

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	databaseDir := getEnv("DATABASE_DIR", "/database")
	cacheDir := getEnv("CACHE_DIR", "/cache")
	port := getEnv("PORT", "8080")
	metricsPort := getEnv("METRICS_PORT", "9090")
	scanIntervalStr := getEnv("SCAN_INTERVAL", "30m")
	cleanupIntervalStr := getEnv("CLEANUP_INTERVAL", "6h")
	logHealthChecks := getEnvBool("LOG_HEALTH_CHECKS", false)
	metricsEnabled := getEnvBool("METRICS_ENABLED", true)

	logging.Info("  DATABASE_DIR:      %s", databaseDir)
	logging.Info("  CACHE_DIR:         %s", cacheDir)
	logging.Info("  PORT:              %s", port)
	logging.Info("  METRICS_PORT:      %s", metricsPort)
	logging.Info("  METRICS_ENABLED:   %v", metricsEnabled)
	logging.Info("  SCAN_INTERVAL:     %s", scanIntervalStr)
	logging.Info("  CLEANUP_INTERVAL:  %s", cleanupIntervalStr)
	logging.Info("  LOG_HEALTH_CHECKS: %v", logHealthChecks)
	logging.Info("  LOG_LEVEL:         %s", logging.GetLevel())

	scanInterval, err := time.ParseDuration(scanIntervalStr)
	if err != nil {
		logging.Warn("  Invalid SCAN_INTERVAL, using default: 30m")
		scanInterval = 30 * time.Minute
	}

	cleanupInterval, err := time.ParseDuration(cleanupIntervalStr)
	if err != nil {
		logging.Warn("  Invalid CLEANUP_INTERVAL, using default: 6h")
		cleanupInterval = 6 * time.Hour
	}

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	databaseDir, err = filepath.Abs(databaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database directory path: %w", err)
	}
	logging.Info("  Database directory (absolute): %s", databaseDir)

	cacheDir, err = filepath.Abs(cacheDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cache directory path: %w", err)
	}
	logging.Info("  Cache directory (absolute): %s", cacheDir)

	config := &Config{
		DatabaseDir:     databaseDir,
		CacheDir:        cacheDir,
		Port:            port,
		MetricsPort:     metricsPort,
		ScanInterval:    scanInterval,
		CleanupInterval: cleanupInterval,
		LogHealthChecks: logHealthChecks,
		MetricsEnabled:  metricsEnabled,
		DatabasePath:    filepath.Join(databaseDir, "catalog.db"),
		ThumbnailDir:    filepath.Join(cacheDir, "thumbnails"),
	}

	// Database directory is required.
	if err := ensureDirectory(databaseDir, "database"); err != nil {
		return nil, fmt.Errorf("database directory error: %w", err)
	}

	logging.Debug("  Testing database directory write access...")
	if err := testWriteAccess(databaseDir); err != nil {
		return nil, fmt.Errorf("database directory is not writable (required for database): %w", err)
	}
	logging.Info("  [OK] Database directory is writable")

	// Thumbnail cache is optional.
	config.ThumbnailsEnabled = setupOptionalDir(config.ThumbnailDir, "thumbnails")

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Database:    ENABLED (required)")
	logging.Info("    Thumbnails:  %s", enabledString(config.ThumbnailsEnabled))
	logging.Info("    Metrics:     %s", enabledString(config.MetricsEnabled))

	return config, nil
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
		// Still return true since write succeeded
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

// LogDatabaseInit logs database initialization
func LogDatabaseInit(duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DATABASE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] Database initialized in %v", duration)
}

// LogEnrichmentInit logs enrichment setup and checks external tools
func LogEnrichmentInit(thumbnailsEnabled bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("ENRICHMENT INITIALIZATION")
	logging.Info("------------------------------------------------------------")

	if err := checkTool("ffprobe"); err != nil {
		logging.Warn("  FFprobe check failed: %v", err)
		logging.Warn("  Technical metadata (duration, codecs) will be unavailable")
	} else {
		logging.Info("  [OK] FFprobe is available")
	}

	if !thumbnailsEnabled {
		logging.Info("  Thumbnails disabled (cache directory not writable)")
		return
	}
	if err := checkTool("ffmpeg"); err != nil {
		logging.Warn("  FFmpeg check failed: %v", err)
		logging.Warn("  Thumbnail generation may not work correctly")
	} else {
		logging.Info("  [OK] FFmpeg is available")
	}
}

// LogSchedulerInit logs scheduler startup
func LogSchedulerInit(interval time.Duration, libraries int) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SCHEDULER INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Default scan interval: %v", interval)
	logging.Info("  Libraries registered:  %d", libraries)
	logging.Info("  Starting scheduler...")
}

// LogSchedulerStarted logs successful scheduler start
func LogSchedulerStarted() {
	logging.Info("  [OK] Scheduler started")
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
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
			// Route might not have methods specified
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
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
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
		logging.Debug("")
	}

	logging.Info("  HTTP logging enabled")
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    API:           http://0.0.0.0:%s/api", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
    __  ___         ___          ______      __        __
   /  |/  /__  ____/ (_)___ _   / ____/___ _/ /_____ _/ /___  ____ _
  / /|_/ / _ \/ __  / / __ '/  / /   / __ '/ __/ __ '/ / __ \/ __ '/
 / /  / /  __/ /_/ / / /_/ /  / /___/ /_/ / /_/ /_/ / / /_/ / /_/ /
/_/  /_/\___/\__,_/_/\__,_/   \____/\__,_/\__/\__,_/_/\____/\__, /
                                                           /____/
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		logging.Debug("  Goroutines:      %d", runtime.NumGoroutine())

		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}

		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
		// Don't return error since write access was confirmed
	}
	return nil
}

func checkTool(name string) error {
	path, err := exec.LookPath(name)
	if err != nil {
		return fmt.Errorf("%s not found in PATH", name)
	}
	logging.Debug("  %s path: %s", name, path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, "-version")
	output, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("failed to get %s version: %w", name, err)
	}

	lines := strings.Split(string(output), "\n")
	if len(lines) > 0 {
		logging.Debug("  %s version: %s", name, strings.TrimSpace(lines[0]))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
