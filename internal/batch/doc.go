// Package batch expands command-line arguments into files and drives the
// conversion pipeline over them.
//
// Directories are expanded depth-first with an explicit stack, visiting
// entries in lexical order. A directory reached a second time through a
// symlink is not visited again. Files are handed to a bounded pool of
// workers (one by default) and their results are aggregated into a
// [Summary] whose OK field is the logical AND of every file's success.
// Skipped files and files already in the target codec count as successes;
// nonexistent arguments count as failures.
//
// Cancelling the context stops dispatching new files. Files already being
// converted see the cancellation through their own context.
package batch
