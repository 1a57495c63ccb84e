package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"

	"hevc-shrink/internal/batch"
	"hevc-shrink/internal/converter"
	"hevc-shrink/internal/filesystem"
	"hevc-shrink/internal/history"
	"hevc-shrink/internal/logging"
	"hevc-shrink/internal/metrics"
	"hevc-shrink/internal/probe"
	"hevc-shrink/internal/server"
	"hevc-shrink/internal/startup"
	"hevc-shrink/internal/transcoder"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// historyCollectInterval is how often history totals are copied into metrics.
const historyCollectInterval = 30 * time.Second

func main() {
	args := os.Args[1:]
	code := run(args)
	if shouldPause(args, code, term.IsTerminal(int(os.Stdin.Fd()))) {
		waitForEnter(os.Stdin, os.Stderr)
	}
	os.Exit(code)
}

func run(args []string) int {
	switch {
	case len(args) == 0:
		printUsage(os.Stderr)
		return exitUsage
	case len(args) == 1 && (args[0] == "-h" || args[0] == "--help"):
		printUsage(os.Stdout)
		return exitOK
	case len(args) == 1 && args[0] == "--version":
		fmt.Printf("hevc-shrink %s (%s)\n", startup.Version, startup.Commit)
		return exitOK
	}

	startTime := time.Now()

	config, err := startup.LoadConfig()
	if err != nil {
		logging.Error("Configuration error: %v", err)
		return exitFailure
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := startup.Preflight(ctx, config, startup.ExecChecker{}); err != nil {
		logging.Error("Preflight failed: %v", err)
		return exitFailure
	}

	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, startup.Commit, config.Policy.Accel().String(), config.Policy.Encoder())
	filesystem.SetObserver(metrics.NewFilesystemObserver())

	var journal converter.Journal
	if config.HistoryEnabled() {
		dbStart := time.Now()
		db, err := history.Open(ctx, config.HistoryPath)
		if err != nil {
			logging.Error("Failed to open history database: %v", err)
			return exitFailure
		}
		defer func() {
			if err := db.Close(); err != nil {
				logging.Warn("Failed to close history database: %v", err)
			}
		}()
		startup.LogHistoryInit(db.Path(), time.Since(dbStart))
		journal = db

		if config.MetricsEnabled {
			collector := metrics.NewCollector(db, historyCollectInterval)
			collector.Start()
			defer collector.Stop()
		}
	}

	// ffmpeg progress is only readable with a single encode on a terminal.
	var progress io.Writer
	if config.Workers == 1 && term.IsTerminal(int(os.Stderr.Fd())) {
		progress = os.Stderr
	}
	encoder := transcoder.New(config.FFmpegPath, progress)

	conv := converter.New(config.Policy, probe.NewFFprobe(config.FFprobePath), encoder, converter.Options{
		Journal:         journal,
		SkipKnownNoGain: config.SkipKnownNoGain,
	})
	runner := batch.New(conv, batch.Config{Workers: config.Workers})

	if config.MetricsEnabled {
		srv := server.New(":"+config.MetricsPort, runner, server.Info{
			Version: startup.Version,
			Commit:  startup.Commit,
			Accel:   config.Policy.Accel().String(),
			Encoder: config.Policy.Encoder(),
		})
		srv.TrackEncoders(encoder)
		if err := srv.Start(); err != nil {
			logging.Warn("Metrics server disabled: %v", err)
		} else {
			startup.LogMetricsServer(config.MetricsPort)
			defer func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					logging.Warn("Metrics server shutdown error: %v", err)
				}
			}()
		}
	}

	stopSignals := handleSignals(cancel, encoder)
	defer stopSignals()

	startup.LogBatchStart(args, time.Since(startTime))
	summary := runner.Run(ctx, args)
	summary.Log()

	return exitCode(summary)
}

// handleSignals cancels the batch and kills running encodes on SIGINT or
// SIGTERM. The returned function stops listening.
func handleSignals(cancel context.CancelFunc, encoder *transcoder.FFmpeg) func() {
	sigChan := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			startup.LogShutdownInitiated(sig.String())
			startup.LogShutdownStep("Cancelling batch")
			cancel()
			startup.LogShutdownStep(fmt.Sprintf("Stopping %d running encode(s)", encoder.Active()))
			encoder.Cleanup()
			startup.LogShutdownStepComplete("Encoders stopped")
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigChan)
		close(done)
	}
}

func exitCode(s batch.Summary) int {
	if s.OK() {
		return exitOK
	}
	return exitFailure
}

// shouldPause reports whether to wait for Enter before exiting: a single
// argument suggests the program was started by dropping a file onto it, and
// the console window would otherwise close before the errors can be read.
func shouldPause(args []string, code int, stdinIsTerminal bool) bool {
	return len(args) == 1 && code == exitFailure && stdinIsTerminal
}

func waitForEnter(r io.Reader, w io.Writer) {
	fmt.Fprint(w, "Conversion failed. Press Enter to exit...")
	_, _ = bufio.NewReader(r).ReadString('\n')
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "hevc-shrink - re-encode large videos to HEVC when it saves space")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage: hevc-shrink <file-or-directory>...")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  HW_ACCEL           nvidia | intel | amd | cpu (default: nvidia)")
	fmt.Fprintln(w, "  MIN_SIZE_GB        only convert files larger than this (default: 4)")
	fmt.Fprintln(w, "  TRANSCODE_WORKERS  concurrent conversions or \"auto\" (default: 1)")
	fmt.Fprintln(w, "  HISTORY_DB         SQLite history journal path (default: disabled)")
	fmt.Fprintln(w, "  SKIP_KNOWN_NO_GAIN skip files that previously gave no saving (default: true)")
	fmt.Fprintln(w, "  VERIFY_OUTPUT      probe the encode before replacing (default: true)")
	fmt.Fprintln(w, "  METRICS_ENABLED    serve Prometheus metrics during the run (default: false)")
	fmt.Fprintln(w, "  METRICS_PORT       metrics port (default: 9090)")
	fmt.Fprintln(w, "  FFMPEG_PATH        ffmpeg binary (default: ffmpeg)")
	fmt.Fprintln(w, "  FFPROBE_PATH       ffprobe binary (default: ffprobe)")
	fmt.Fprintln(w, "  LOG_LEVEL          debug | info | warn | error (default: info)")
}
