package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"golang.org/x/term"

	"hevc-shrink/internal/history"
)

const (
	// Default timeout for database operations
	defaultTimeout = 30 * time.Second
	defaultRecent  = 20
	maxRecent      = 10000
)

// journal is the read side of history.DB.
type journal interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
	Totals(ctx context.Context) (history.Totals, error)
}

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	command := os.Args[1]

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	dbPath := os.Getenv("HISTORY_DB")
	if dbPath == "" {
		fmt.Fprintln(os.Stderr, "Error: HISTORY_DB is not set")
		os.Exit(1)
	}
	if _, err := os.Stat(dbPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: history database not found: %v\n", err)
		os.Exit(1)
	}

	db, err := history.Open(ctx, dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to open history database: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}()

	human := term.IsTerminal(int(os.Stdout.Fd()))

	var ok bool
	switch command {
	case "recent":
		limit, err := parseLimit(os.Args[2:])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			ok = false
			break
		}
		ok = showRecent(ctx, db, os.Stdout, limit, human)
	case "stats":
		ok = showStats(ctx, db, os.Stdout)
	default:
		// Sanitize command input using allowlist to break taint chain
		sanitized := sanitizeCommand(command)
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", sanitized) //nolint:gosec // G705 - input is sanitized via allowlist in sanitizeCommand
		printUsage(os.Stderr)
		ok = false
	}

	if !ok {
		// Deferred Close would be skipped by os.Exit.
		_ = db.Close()
		os.Exit(1)
	}
}

// sanitizeCommand returns a safe representation of a command string for display.
// Any character that is not alphanumeric, a hyphen, or an underscore becomes '_'.
func sanitizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))
	for _, r := range cmd {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func parseLimit(args []string) (int, error) {
	if len(args) == 0 {
		return defaultRecent, nil
	}
	if len(args) > 1 {
		return 0, fmt.Errorf("recent takes at most one argument")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid count %q: must be a positive integer", sanitizeCommand(args[0]))
	}
	if n > maxRecent {
		n = maxRecent
	}
	return n, nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "hevc-shrink conversion history")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage: shrink-history <command> [args]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintf(w, "  recent [n]  - List the n most recent outcomes (default: %d)\n", defaultRecent)
	fmt.Fprintln(w, "  stats       - Show outcome counts and bytes saved")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  HISTORY_DB - Path to the history database")
}

func showRecent(ctx context.Context, db journal, w io.Writer, limit int, human bool) bool {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	entries, err := db.Recent(ctx, limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}
	if len(entries) == 0 {
		if human {
			fmt.Fprintln(w, "No conversions recorded.")
		}
		return true
	}

	if !human {
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
				e.RecordedAt.UTC().Format(time.RFC3339), e.Status, e.Reason,
				e.InputSize, e.OutputSize, e.Path)
		}
		return true
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tSTATUS\tDETAIL\tSIZE\tSAVED\tPATH")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.RecordedAt.Local().Format("2006-01-02 15:04"),
			e.Status, detail(e), humanBytes(e.InputSize), humanBytes(e.Saved()), e.Path)
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}
	return true
}

func showStats(ctx context.Context, db journal, w io.Writer) bool {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	totals, err := db.Totals(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}

	statuses := make([]string, 0, len(totals.ByStatus))
	total := 0
	for s, n := range totals.ByStatus {
		statuses = append(statuses, s)
		total += n
	}
	sort.Strings(statuses)

	fmt.Fprintf(w, "Entries:     %d\n", total)
	for _, s := range statuses {
		fmt.Fprintf(w, "  %-15s %d\n", s+":", totals.ByStatus[s])
	}
	fmt.Fprintf(w, "Input:       %s\n", humanBytes(totals.InputBytes))
	fmt.Fprintf(w, "Saved:       %s\n", humanBytes(totals.BytesSaved))
	return true
}

func detail(e history.Entry) string {
	switch {
	case e.Reason != "":
		return e.Reason
	case e.FinalPath != "" && e.FinalPath != e.Path:
		return "-> " + e.FinalPath
	default:
		return "-"
	}
}

func humanBytes(n int64) string {
	if n <= 0 {
		return "0B"
	}
	return bytefmt.ByteSize(uint64(n))
}
