package filesystem

import (
	"errors"
	"io/fs"
	"os"
	"syscall"
	"time"

	"hevc-shrink/internal/logging"
)

// RetryConfig configures retry behavior for filesystem operations
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns sensible defaults for NFS retry behavior
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

// sleep is replaced in tests.
var sleep = time.Sleep

// isNFSStaleError checks if an error is an NFS stale file handle error
func isNFSStaleError(err error) bool {
	if err == nil {
		return false
	}

	// ESTALE is errno 116 on Linux
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.ESTALE
	}

	return false
}

// withRetry runs fn until it succeeds, fails with a non-ESTALE error, or
// config.MaxRetries retries have been spent.
func withRetry(op, path string, config RetryConfig, fn func() error) error {
	start := time.Now()
	obs := observe()
	defer func() {
		obs.ObserveRetryDuration(op, time.Since(start).Seconds())
	}()

	var lastErr error
	backoff := config.InitialBackoff

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 0 {
				logging.Info("NFS %s succeeded on retry %d for %s", op, attempt, path)
				obs.ObserveRetrySuccess(op)
			}
			return nil
		}

		lastErr = err
		if !isNFSStaleError(err) {
			return err
		}

		obs.ObserveStaleError(op)

		// Don't sleep after the last attempt
		if attempt < config.MaxRetries {
			obs.ObserveRetryAttempt(op)
			logging.Debug("NFS %s stale file handle for %s, retrying in %v (attempt %d/%d)",
				op, path, backoff, attempt+1, config.MaxRetries)
			sleep(backoff)

			backoff *= 2
			if backoff > config.MaxBackoff {
				backoff = config.MaxBackoff
			}
		}
	}

	logging.Warn("NFS %s failed after %d retries for %s: %v", op, config.MaxRetries, path, lastErr)
	obs.ObserveRetryFailure(op)
	return lastErr
}

// Stat performs os.Stat with retry on stale file handles.
func Stat(path string, config RetryConfig) (os.FileInfo, error) {
	var info os.FileInfo
	err := withRetry("stat", path, config, func() error {
		var statErr error
		info, statErr = os.Stat(path)
		return statErr
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// Lstat is Stat without following a final symlink.
func Lstat(path string, config RetryConfig) (os.FileInfo, error) {
	var info os.FileInfo
	err := withRetry("lstat", path, config, func() error {
		var statErr error
		info, statErr = os.Lstat(path)
		return statErr
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// Exists reports whether anything (file, directory, dangling symlink) is at
// path. Errors other than "not exist" are returned so callers never treat an
// unreadable path as free.
func Exists(path string, config RetryConfig) (bool, error) {
	_, err := Lstat(path, config)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Size returns the size of the file at path.
func Size(path string, config RetryConfig) (int64, error) {
	info, err := Stat(path, config)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Remove deletes path. A path that is already gone is not an error.
func Remove(path string, config RetryConfig) error {
	err := withRetry("remove", path, config, func() error {
		return os.Remove(path)
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Rename moves oldPath to newPath.
func Rename(oldPath, newPath string, config RetryConfig) error {
	return withRetry("rename", oldPath, config, func() error {
		return os.Rename(oldPath, newPath)
	})
}

// ReadDir lists a directory, sorted by name.
func ReadDir(path string, config RetryConfig) ([]os.DirEntry, error) {
	var entries []os.DirEntry
	err := withRetry("readdir", path, config, func() error {
		var readErr error
		entries, readErr = os.ReadDir(path)
		return readErr
	})
	return entries, err
}
