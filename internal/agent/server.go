// Package agent is the local HTTP service the slicer UI talks to: it slices
// uploaded meshes in the background and relays programs to the printer.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/net/netutil"

	"github.com/Faultbox/provelslice/internal/logger"
	"github.com/Faultbox/provelslice/internal/mesh"
	"github.com/Faultbox/provelslice/internal/pipeline"
	"github.com/Faultbox/provelslice/internal/printer"
	"github.com/Faultbox/provelslice/internal/report"
	"github.com/Faultbox/provelslice/internal/slicer"
	"github.com/Faultbox/provelslice/internal/store"
	"github.com/Faultbox/provelslice/pkg/formats"
)

// Settings persists the printer address between runs.
type Settings interface {
	GetSetting(ctx context.Context, name string) (string, error)
	SetSetting(ctx context.Context, name, value string) error
}

// Uploader sends a finished program to a printer.
type Uploader interface {
	Send(ctx context.Context, name string, program []byte) error
}

// Options configures a Server.
type Options struct {
	Params pipeline.Params
	// Settings may be nil; the printer address then lives in memory only.
	Settings Settings
	// PrinterIP seeds the printer address when Settings holds none.
	PrinterIP string
	// NewUploader defaults to a Duet HTTP client.
	NewUploader    func(address string) (Uploader, error)
	MaxUploadBytes int64
	MaxJobs        int
}

// Server is the agent HTTP handler.
type Server struct {
	router      chi.Router
	params      pipeline.Params
	settings    Settings
	newUploader func(address string) (Uploader, error)
	maxUpload   int64
	jobs        *jobTable
	log         *zap.Logger

	mu        sync.RWMutex
	printerIP string
}

// NewServer creates and configures the HTTP server.
func NewServer(opts Options) *Server {
	s := &Server{
		params:      opts.Params,
		settings:    opts.Settings,
		newUploader: opts.NewUploader,
		maxUpload:   opts.MaxUploadBytes,
		jobs:        newJobTable(opts.MaxJobs),
		log:         logger.Named("agent"),
		printerIP:   opts.PrinterIP,
	}
	if s.maxUpload <= 0 {
		s.maxUpload = 256 << 20
	}
	if opts.MaxJobs <= 0 {
		s.jobs.max = 32
	}
	if s.newUploader == nil {
		s.newUploader = func(address string) (Uploader, error) {
			return printer.NewDuetClient(address, "")
		}
	}
	if s.settings != nil {
		if ip, err := s.settings.GetSetting(context.Background(), store.SettingIPAddress); err == nil && ip != "" {
			s.printerIP = ip
		}
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))
	r.Use(CORS)

	r.Get("/health", s.handleHealth)
	r.Get("/printer_ip", s.handleGetPrinterIP)
	r.Post("/printer_ip", s.handleSetPrinterIP)

	r.Post("/slice", s.handleSlice)
	r.Get("/jobs", s.handleListJobs)
	r.Route("/jobs/{jobID}", func(r chi.Router) {
		r.Get("/", s.handleJobStatus)
		r.Get("/gcode", s.handleJobGCode)
		r.Get("/feedrate", s.handleJobFeedrate)
		r.Get("/profile.png", s.handleJobProfile)
		r.Post("/upload", s.handleJobUpload)
	})

	s.router = r
}

// ListenAndServe serves h on addr, accepting at most maxConns connections
// at once, until ctx is canceled.
func ListenAndServe(ctx context.Context, addr string, maxConns int, h http.Handler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	if maxConns > 0 {
		ln = netutil.LimitListener(ln, maxConns)
	}

	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	logger.Info("agent listening", zap.String("addr", ln.Addr().String()), zap.Int("max_connections", maxConns))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) currentPrinterIP() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.printerIP
}

func (s *Server) handleGetPrinterIP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"ip": s.currentPrinterIP()})
}

func (s *Server) handleSetPrinterIP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IP string `json:"ip"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	ip := strings.TrimSpace(req.IP)
	if ip == "" {
		jsonError(w, "ip is required", http.StatusBadRequest)
		return
	}
	if s.settings != nil {
		if err := s.settings.SetSetting(r.Context(), store.SettingIPAddress, ip); err != nil {
			jsonError(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	s.mu.Lock()
	s.printerIP = ip
	s.mu.Unlock()

	s.log.Info("printer address set", zap.String("ip", ip))
	writeJSON(w, http.StatusOK, map[string]string{"ip": ip})
}

func (s *Server) handleSlice(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	stl, err := formats.ReadSTL(r.Body)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			jsonError(w, fmt.Sprintf("mesh exceeds max size (%d bytes)", s.maxUpload), http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	name := sanitizeName(r.URL.Query().Get("name"))
	if name == "" {
		name = sanitizeName(stl.Name)
	}
	if name == "" {
		name = "socket"
	}

	task := pipeline.Start(mesh.FromPositions(stl.Positions), s.params)
	job := newJob(task.ID, name)
	s.jobs.add(job)
	go s.run(job, task)

	s.log.Info("slice job started",
		zap.String("job", job.id),
		zap.String("name", name),
		zap.Int("triangles", stl.Triangles()))

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   job.id,
		"status":   StatusSlicing,
		"poll_url": "/jobs/" + job.id,
	})
}

func (s *Server) run(job *Job, task *slicer.Task) {
	for msg := range task.Messages() {
		switch msg.Type {
		case slicer.MessageProgress:
			job.setProgress(msg.Fraction)
		case slicer.MessageDone:
			if msg.Err != nil {
				job.fail(msg.Err)
				continue
			}
			job.setStatus(StatusFinishing)
			res, err := pipeline.Finish(msg.Levels, msg.Center, s.params)
			if err != nil {
				job.fail(err)
				continue
			}
			job.complete(res)
		}
	}
	snap := job.Snapshot()
	s.log.Info("slice job finished",
		zap.String("job", snap.ID),
		zap.String("status", string(snap.Status)),
		zap.String("error", snap.Error))
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"jobs": s.jobs.list()})
}

func (s *Server) jobFromRequest(w http.ResponseWriter, r *http.Request) *Job {
	job := s.jobs.get(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
	}
	return job
}

// finishedResult writes an error and returns nil unless job is done.
func (s *Server) finishedResult(w http.ResponseWriter, r *http.Request) (*Job, *pipeline.Result) {
	job := s.jobFromRequest(w, r)
	if job == nil {
		return nil, nil
	}
	res := job.Result()
	if res == nil {
		jsonError(w, "job is not done", http.StatusConflict)
		return nil, nil
	}
	return job, res
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	if job := s.jobFromRequest(w, r); job != nil {
		writeJSON(w, http.StatusOK, job.Snapshot())
	}
}

func (s *Server) handleJobGCode(w http.ResponseWriter, r *http.Request) {
	job, res := s.finishedResult(w, r)
	if res == nil {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", job.name+".gcode"))
	_, _ = res.Program.WriteTo(w)
}

func (s *Server) handleJobFeedrate(w http.ResponseWriter, r *http.Request) {
	job, res := s.finishedResult(w, r)
	if res == nil {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.FeedrateChart(w, job.name+" feedrate", res.Feedrates); err != nil {
		s.log.Error("render feedrate chart", zap.Error(err))
	}
}

func (s *Server) handleJobProfile(w http.ResponseWriter, r *http.Request) {
	job, res := s.finishedResult(w, r)
	if res == nil {
		return
	}
	w.Header().Set("Content-Type", "image/png")
	err := report.WriteProfilePNG(w, job.name, res.Center, s.params.Up(),
		report.Series{Name: "raw", Levels: res.Raw},
		report.Series{Name: "final", Levels: res.Final},
	)
	if err != nil {
		s.log.Error("render profile", zap.Error(err))
	}
}

func (s *Server) handleJobUpload(w http.ResponseWriter, r *http.Request) {
	job, res := s.finishedResult(w, r)
	if res == nil {
		return
	}
	ip := s.currentPrinterIP()
	if ip == "" {
		jsonError(w, "printer address is not set", http.StatusPreconditionFailed)
		return
	}
	up, err := s.newUploader(ip)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	name := job.name + ".gcode"
	if err := up.Send(r.Context(), name, res.Program.Bytes()); err != nil {
		s.log.Warn("upload failed", zap.String("job", job.id), zap.Error(err))
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"uploaded": name, "printer": ip})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// sanitizeName keeps only the base name without extension.
func sanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.ReplaceAll(name, "..", "_")
	name = strings.TrimSpace(name)
	if name == "." || name == "/" {
		return ""
	}
	return name
}
