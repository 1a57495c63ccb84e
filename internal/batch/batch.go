package batch

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"hevc-shrink/internal/converter"
	"hevc-shrink/internal/filesystem"
	"hevc-shrink/internal/logging"
	"hevc-shrink/internal/metrics"
)

// Processor runs the conversion pipeline for one file.
// *converter.Converter implements it.
type Processor interface {
	Process(ctx context.Context, path string) converter.Result
}

// Config configures a Runner.
type Config struct {
	// Workers is the number of files converted concurrently. Values below
	// one mean one.
	Workers int
	Retry   filesystem.RetryConfig
}

// Runner expands arguments and drives a Processor over the files found.
type Runner struct {
	proc   Processor
	config Config

	running   atomic.Bool
	startTime atomic.Value // time.Time
	files     atomic.Int64
	converted atomic.Int64
	failed    atomic.Int64
	saved     atomic.Int64

	activeMu sync.Mutex
	active   map[string]time.Time
}

// New creates a Runner.
func New(proc Processor, config Config) *Runner {
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.Retry == (filesystem.RetryConfig{}) {
		config.Retry = filesystem.DefaultRetryConfig()
	}
	return &Runner{
		proc:   proc,
		config: config,
		active: make(map[string]time.Time),
	}
}

// Run processes every file reachable from args and returns the aggregate
// outcome. It blocks until all dispatched files have finished.
func (r *Runner) Run(ctx context.Context, args []string) Summary {
	start := time.Now()
	r.begin(start)
	defer r.finish(start)

	logging.Info("Starting batch over %d argument(s) with %d worker(s)", len(args), r.config.Workers)

	paths := make(chan string)
	results := make(chan converter.Result)

	var (
		wg       sync.WaitGroup
		dropped  atomic.Bool
		complete bool
	)
	for i := 0; i < r.config.Workers; i++ {
		wg.Add(1)
		go r.worker(ctx, paths, results, &dropped, &wg)
	}

	go func() {
		complete = r.dispatch(ctx, args, paths, results)
		close(paths)
		wg.Wait()
		close(results)
	}()

	summary := Summary{Workers: r.config.Workers}
	for res := range results {
		summary.Add(res)
		r.track(res)
	}

	summary.Duration = time.Since(start)
	// results is closed after dispatch returns, so complete is settled.
	summary.Interrupted = !complete || dropped.Load()
	return summary
}

func (r *Runner) worker(ctx context.Context, paths <-chan string, results chan<- converter.Result, dropped *atomic.Bool, wg *sync.WaitGroup) {
	defer wg.Done()
	for path := range paths {
		if ctx.Err() != nil {
			dropped.Store(true)
			continue
		}
		r.setActive(path, true)
		res := r.proc.Process(ctx, path)
		r.setActive(path, false)
		results <- res
	}
}

// dispatch walks args in order and feeds files to the workers. Directories
// that cannot be listed are reported directly as failures. It reports
// whether every argument was walked to the end.
func (r *Runner) dispatch(ctx context.Context, args []string, paths chan<- string, results chan<- converter.Result) bool {
	w := newWalker(r.config.Retry)

	send := func(path string) bool {
		select {
		case paths <- path:
			return true
		case <-ctx.Done():
			return false
		}
	}
	fail := func(path string, err error) bool {
		metrics.FilesTotal.WithLabelValues(converter.StatusFailed.String()).Inc()
		metrics.FailuresTotal.WithLabelValues(string(converter.FailIO)).Inc()
		logging.Error("Cannot expand %s: %v", path, err)
		res := converter.Result{Path: path, Status: converter.StatusFailed, Kind: converter.FailIO, Err: err}
		select {
		case results <- res:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for _, arg := range args {
		if ctx.Err() != nil {
			logging.Warn("Batch cancelled; not dispatching remaining arguments")
			return false
		}
		if !w.walk(ctx, arg, send, fail) {
			return false
		}
	}
	return true
}

func (r *Runner) begin(start time.Time) {
	r.running.Store(true)
	r.startTime.Store(start)
	r.files.Store(0)
	r.converted.Store(0)
	r.failed.Store(0)
	r.saved.Store(0)

	metrics.BatchRunning.Set(1)
	metrics.BatchWorkers.Set(float64(r.config.Workers))
}

func (r *Runner) finish(start time.Time) {
	r.running.Store(false)

	metrics.BatchRunning.Set(0)
	metrics.BatchLastDuration.Set(time.Since(start).Seconds())
	metrics.BatchLastTimestamp.Set(float64(time.Now().Unix()))
}

func (r *Runner) track(res converter.Result) {
	r.files.Add(1)
	switch res.Status {
	case converter.StatusConverted:
		r.converted.Add(1)
		r.saved.Add(res.Saved())
	case converter.StatusFailed:
		r.failed.Add(1)
	}
}

func (r *Runner) setActive(path string, on bool) {
	r.activeMu.Lock()
	defer r.activeMu.Unlock()
	if on {
		r.active[path] = time.Now()
	} else {
		delete(r.active, path)
	}
}

// Progress is a point-in-time view of a running batch.
type Progress struct {
	Running    bool      `json:"running"`
	StartTime  time.Time `json:"startTime,omitempty"`
	Workers    int       `json:"workers"`
	Files      int64     `json:"files"`
	Converted  int64     `json:"converted"`
	Failed     int64     `json:"failed"`
	BytesSaved int64     `json:"bytesSaved"`
	Active     []string  `json:"active,omitempty"`
}

// Progress returns the current batch progress.
func (r *Runner) Progress() Progress {
	p := Progress{
		Running:    r.running.Load(),
		Workers:    r.config.Workers,
		Files:      r.files.Load(),
		Converted:  r.converted.Load(),
		Failed:     r.failed.Load(),
		BytesSaved: r.saved.Load(),
	}
	if t, ok := r.startTime.Load().(time.Time); ok {
		p.StartTime = t
	}

	r.activeMu.Lock()
	for path := range r.active {
		p.Active = append(p.Active, path)
	}
	r.activeMu.Unlock()
	sort.Strings(p.Active)
	return p
}
