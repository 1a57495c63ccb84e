package filesystem

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"
)

type countingObserver struct {
	attempts, successes, failures, stale, durations int
	ops                                             []string
}

func (c *countingObserver) ObserveRetryAttempt(string)           { c.attempts++ }
func (c *countingObserver) ObserveRetrySuccess(string)           { c.successes++ }
func (c *countingObserver) ObserveRetryFailure(string)           { c.failures++ }
func (c *countingObserver) ObserveRetryDuration(op string, _ float64) {
	c.durations++
	c.ops = append(c.ops, op)
}
func (c *countingObserver) ObserveStaleError(string)             { c.stale++ }

func withTestObserver(t *testing.T) *countingObserver {
	t.Helper()
	obs := &countingObserver{}
	SetObserver(obs)
	origSleep := sleep
	sleep = func(time.Duration) {}
	t.Cleanup(func() {
		SetObserver(nil)
		sleep = origSleep
	})
	return obs
}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", config.MaxRetries)
	}
	if config.InitialBackoff != 50*time.Millisecond {
		t.Errorf("InitialBackoff = %v, want 50ms", config.InitialBackoff)
	}
	if config.MaxBackoff != 500*time.Millisecond {
		t.Errorf("MaxBackoff = %v, want 500ms", config.MaxBackoff)
	}
}

func TestIsNFSStaleError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"ESTALE error", syscall.ESTALE, true},
		{"wrapped ESTALE", &os.PathError{Op: "stat", Path: "/x", Err: syscall.ESTALE}, true},
		{"ENOENT error", syscall.ENOENT, false},
		{"generic error", os.ErrNotExist, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNFSStaleError(tt.err); got != tt.want {
				t.Errorf("isNFSStaleError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithRetry_RecoversFromStale(t *testing.T) {
	obs := withTestObserver(t)

	calls := 0
	err := withRetry("stat", "/nfs/movie.avi", DefaultRetryConfig(), func() error {
		calls++
		if calls < 3 {
			return syscall.ESTALE
		}
		return nil
	})

	if err != nil {
		t.Fatalf("withRetry() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if obs.stale != 2 || obs.attempts != 2 || obs.successes != 1 || obs.failures != 0 {
		t.Errorf("observer = %+v", *obs)
	}
	if obs.durations != 1 {
		t.Errorf("durations observed = %d, want 1", obs.durations)
	}
}

func TestWithRetry_GivesUp(t *testing.T) {
	obs := withTestObserver(t)

	calls := 0
	config := RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
	err := withRetry("rename", "/nfs/movie.avi", config, func() error {
		calls++
		return syscall.ESTALE
	})

	if !errors.Is(err, syscall.ESTALE) {
		t.Fatalf("error = %v, want ESTALE", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if obs.failures != 1 {
		t.Errorf("failures = %d, want 1", obs.failures)
	}
}

func TestWithRetry_NoRetryOnOtherErrors(t *testing.T) {
	withTestObserver(t)

	calls := 0
	want := errors.New("permission denied")
	err := withRetry("remove", "/x", DefaultRetryConfig(), func() error {
		calls++
		return want
	})

	if !errors.Is(err, want) {
		t.Errorf("error = %v, want %v", err, want)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestBackoffCapped(t *testing.T) {
	var slept []time.Duration
	origSleep := sleep
	sleep = func(d time.Duration) { slept = append(slept, d) }
	defer func() { sleep = origSleep }()

	config := RetryConfig{MaxRetries: 4, InitialBackoff: 100 * time.Millisecond, MaxBackoff: 250 * time.Millisecond}
	_ = withRetry("stat", "/x", config, func() error { return syscall.ESTALE })

	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 250 * time.Millisecond, 250 * time.Millisecond}
	if len(slept) != len(want) {
		t.Fatalf("slept %v, want %v", slept, want)
	}
	for i := range want {
		if slept[i] != want[i] {
			t.Errorf("sleep[%d] = %v, want %v", i, slept[i], want[i])
		}
	}
}

func TestFileOperations(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultRetryConfig()
	src := filepath.Join(dir, "movie_temp_1.mp4")
	dst := filepath.Join(dir, "movie.mp4")

	if err := os.WriteFile(src, []byte("encoded"), 0o644); err != nil {
		t.Fatal(err)
	}

	exists, err := Exists(src, cfg)
	if err != nil || !exists {
		t.Fatalf("Exists(src) = (%v, %v), want (true, nil)", exists, err)
	}
	exists, err = Exists(dst, cfg)
	if err != nil || exists {
		t.Fatalf("Exists(dst) = (%v, %v), want (false, nil)", exists, err)
	}

	size, err := Size(src, cfg)
	if err != nil || size != int64(len("encoded")) {
		t.Errorf("Size() = (%d, %v)", size, err)
	}

	if err := Rename(src, dst, cfg); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	if _, err := os.Stat(dst); err != nil {
		t.Errorf("destination missing after rename: %v", err)
	}

	if err := Remove(dst, cfg); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := Remove(dst, cfg); err != nil {
		t.Errorf("Remove() of missing file should be nil, got %v", err)
	}

	if _, err := Stat(dst, cfg); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Stat() of missing file error = %v", err)
	}
}

func TestExistsDanglingSymlink(t *testing.T) {
	dir := t.TempDir()
	link := filepath.Join(dir, "movie.mp4")
	if err := os.Symlink(filepath.Join(dir, "missing"), link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	exists, err := Exists(link, DefaultRetryConfig())
	if err != nil || !exists {
		t.Errorf("Exists(dangling symlink) = (%v, %v), want (true, nil)", exists, err)
	}
}

func TestReadDirSorted(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"c.mkv", "a.mp4", "b"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := ReadDir(dir, DefaultRetryConfig())
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	if strings.Join(names, ",") != "a.mp4,b,c.mkv" {
		t.Errorf("ReadDir() order = %v", names)
	}

	if _, err := ReadDir(filepath.Join(dir, "missing"), DefaultRetryConfig()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ReadDir(missing) error = %v", err)
	}
}

func TestOperationLabels(t *testing.T) {
	obs := withTestObserver(t)
	dir := t.TempDir()
	cfg := DefaultRetryConfig()
	src := filepath.Join(dir, "a.mp4")
	dst := filepath.Join(dir, "b.mp4")
	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, _ = Stat(src, cfg)
	_, _ = Lstat(src, cfg)
	_, _ = ReadDir(dir, cfg)
	_ = Rename(src, dst, cfg)
	_ = Remove(dst, cfg)

	want := "stat,lstat,readdir,rename,remove"
	if got := strings.Join(obs.ops, ","); got != want {
		t.Errorf("ops = %s, want %s", got, want)
	}
}
