package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"runtime"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hevc-shrink/internal/batch"
	"hevc-shrink/internal/logging"
)

const (
	statusHealthy = "healthy"
	statusIdle    = "idle"
	statusRunning = "running"
)

// ProgressProvider reports batch progress. *batch.Runner implements it.
type ProgressProvider interface {
	Progress() batch.Progress
}

// EncoderCounter reports running encoder processes. *transcoder.FFmpeg
// implements it.
type EncoderCounter interface {
	Active() int
}

// Info describes the running binary.
type Info struct {
	Version string
	Commit  string
	Accel   string
	Encoder string
}

// Server is the metrics and status HTTP server.
type Server struct {
	srv       *http.Server
	progress  ProgressProvider
	encoders  EncoderCounter
	info      Info
	startTime time.Time
}

// New creates a server listening on addr (for example ":9090").
func New(addr string, progress ProgressProvider, info Info) *Server {
	s := &Server{
		progress:  progress,
		info:      info,
		startTime: time.Now(),
	}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           requestLogger(s.Router()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// TrackEncoders makes /status report the number of running encodes.
func (s *Server) TrackEncoders(e EncoderCounter) {
	s.encoders = e
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.HandleFunc("/healthz", s.HealthCheck).Methods("GET")
	r.HandleFunc("/status", s.Status).Methods("GET")
	return r
}

// Start binds the listener and serves in the background. Bind errors are
// returned; serve errors after that are logged.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	logging.Info("Metrics server listening on %s", ln.Addr())

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Metrics server error: %v", err)
		}
	}()
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// HealthResponse contains the health check response
type HealthResponse struct {
	Status       string `json:"status"`
	Version      string `json:"version"`
	Commit       string `json:"commit,omitempty"`
	Uptime       string `json:"uptime"`
	Accel        string `json:"accel"`
	Encoder      string `json:"encoder"`
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck reports that the process is alive.
func (s *Server) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, HealthResponse{
		Status:       statusHealthy,
		Version:      s.info.Version,
		Commit:       s.info.Commit,
		Uptime:       time.Since(s.startTime).Round(time.Second).String(),
		Accel:        s.info.Accel,
		Encoder:      s.info.Encoder,
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	})
}

// StatusResponse wraps batch progress.
type StatusResponse struct {
	Status string `json:"status"`
	// Encoders is the number of running encoder processes.
	Encoders int `json:"encoders"`
	batch.Progress
}

// Status reports the progress of the current batch.
func (s *Server) Status(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{Status: statusIdle}
	if s.progress != nil {
		resp.Progress = s.progress.Progress()
		if resp.Running {
			resp.Status = statusRunning
		}
	}
	if s.encoders != nil {
		resp.Encoders = s.encoders.Active()
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// requestLogger logs requests at debug level; scrapes are frequent.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !logging.IsDebugEnabled() {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.Debug("%s %s %d %v", r.Method, r.URL.Path, rec.statusCode, time.Since(start))
	})
}
