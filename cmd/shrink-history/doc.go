// Command shrink-history reads the conversion journal written by
// hevc-shrink when HISTORY_DB is set.
//
// Usage:
//
//	shrink-history <command> [args]
//
// Commands:
//
//	recent [n]  List the n most recent outcomes, newest first (default 20).
//	            On a terminal the sizes are human readable; otherwise the
//	            output is tab separated with raw byte counts for scripting.
//
//	stats       Show outcome counts and the total bytes saved.
//
// Environment:
//
//	HISTORY_DB - Path to the history database (required)
package main
