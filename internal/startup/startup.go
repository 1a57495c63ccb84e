package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"hevc-shrink/internal/logging"
	"hevc-shrink/internal/policy"
	"hevc-shrink/internal/workers"
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

// maxWorkers caps TRANSCODE_WORKERS.
const maxWorkers = 8

// Config holds all application configuration
type Config struct {
	Policy          *policy.Policy
	Workers         int
	HistoryPath     string
	SkipKnownNoGain bool
	MetricsEnabled  bool
	MetricsPort     string
	FFmpegPath      string
	FFprobePath     string
}

// HistoryEnabled reports whether a history database is configured.
func (c *Config) HistoryEnabled() bool { return c.HistoryPath != "" }

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	accelStr := getEnv("HW_ACCEL", policy.AccelNVIDIA.String())
	minSizeStr := getEnv("MIN_SIZE_GB", strconv.FormatFloat(policy.DefaultOptions().MinSizeGB, 'f', -1, 64))
	workersStr := getEnv(workers.EnvVar, "1")
	historyPath := getEnv("HISTORY_DB", "")
	skipKnownNoGain := getEnvBool("SKIP_KNOWN_NO_GAIN", true)
	verifyOutput := getEnvBool("VERIFY_OUTPUT", true)
	metricsEnabled := getEnvBool("METRICS_ENABLED", false)
	metricsPort := getEnv("METRICS_PORT", "9090")
	ffmpegPath := getEnv("FFMPEG_PATH", "ffmpeg")
	ffprobePath := getEnv("FFPROBE_PATH", "ffprobe")

	logging.Info("  HW_ACCEL:            %s", accelStr)
	logging.Info("  MIN_SIZE_GB:         %s", minSizeStr)
	logging.Info("  TRANSCODE_WORKERS:   %s", workersStr)
	logging.Info("  HISTORY_DB:          %s", valueOrDisabled(historyPath))
	logging.Info("  SKIP_KNOWN_NO_GAIN:  %v", skipKnownNoGain)
	logging.Info("  VERIFY_OUTPUT:       %v", verifyOutput)
	logging.Info("  METRICS_ENABLED:     %v", metricsEnabled)
	logging.Info("  METRICS_PORT:        %s", metricsPort)
	logging.Info("  FFMPEG_PATH:         %s", ffmpegPath)
	logging.Info("  FFPROBE_PATH:        %s", ffprobePath)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	accel, err := policy.ParseHWAccel(accelStr)
	if err != nil {
		return nil, fmt.Errorf("HW_ACCEL: %w", err)
	}

	minSizeGB, err := strconv.ParseFloat(strings.TrimSpace(minSizeStr), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid MIN_SIZE_GB %q: %w", minSizeStr, err)
	}

	count, err := workers.Parse(workersStr, maxWorkers)
	if err != nil {
		return nil, err
	}

	opts := policy.DefaultOptions()
	opts.Accel = accel
	opts.MinSizeGB = minSizeGB
	opts.VerifyOutput = verifyOutput

	p, err := policy.New(opts)
	if err != nil {
		return nil, fmt.Errorf("invalid conversion policy: %w", err)
	}

	if historyPath != "" {
		historyPath, err = filepath.Abs(historyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve history database path: %w", err)
		}
	}

	config := &Config{
		Policy:          p,
		Workers:         count,
		HistoryPath:     historyPath,
		SkipKnownNoGain: skipKnownNoGain,
		MetricsEnabled:  metricsEnabled,
		MetricsPort:     metricsPort,
		FFmpegPath:      ffmpegPath,
		FFprobePath:     ffprobePath,
	}

	logPolicy(config)
	return config, nil
}

func logPolicy(c *Config) {
	p := c.Policy
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("CONVERSION POLICY")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Accelerator:     %s (encoder %s)", p.Accel(), p.Encoder())
	logging.Info("  Target codec:    %s", p.TargetCodec())
	logging.Info("  Size threshold:  > %v GB (%d bytes)", p.MinSizeGB(), p.ThresholdBytes())
	logging.Info("  Policy:          %s", p)
	logging.Info("  Workers:         %d", c.Workers)
	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    History:     %s", enabledString(c.HistoryEnabled()))
	logging.Info("    Metrics:     %s", enabledString(c.MetricsEnabled))
	logging.Info("    Verify:      %s", enabledString(p.VerifyOutput()))
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

func valueOrDisabled(v string) string {
	if v == "" {
		return "(disabled)"
	}
	return v
}

// LogHistoryInit logs history database initialization
func LogHistoryInit(path string, duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HISTORY INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] History database %s opened in %v", path, duration)
}

// LogMetricsServer logs the metrics endpoint.
func LogMetricsServer(port string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("METRICS SERVER")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Metrics:   http://localhost:%s/metrics", port)
	logging.Info("  Status:    http://localhost:%s/status", port)
	logging.Info("  Health:    http://localhost:%s/healthz", port)
}

// LogBatchStart logs the start of a batch.
func LogBatchStart(args []string, startupDuration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("BATCH STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", startupDuration)
	for _, a := range args {
		logging.Info("  Input:           %s", a)
	}
	logging.Info("  Press Ctrl+C to stop after cleaning up running encodes")
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

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
    __                        __         _       __
   / /_  ___ _   _____  _____/ /_  _____(_)___  / /__
  / __ \/ _ \ | / / __/ / ___/ __ \/ ___/ / __ \/ //_/
 / / / /  __/ |/ / /__ (__  ) / / / /  / / / / / ,<
/_/ /_/\___/|___/\___//____/_/ /_/_/  /_/_/ /_/_/|_|

------------------------------------------------------------`
	fmt.Fprintln(os.Stderr, banner)
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
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
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
