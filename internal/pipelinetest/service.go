// Package pipelinetest provides an in-process fake of the phylogenetics
// pipeline service for tests.
package pipelinetest

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// Defaults reproduce a successful run with request id "r1".
const (
	DefaultUploadedPath = "/uploads/a.fasta"
	DefaultAlignedPath  = "/aligned/a.fasta"
	DefaultTreePath     = "/results/r1/tree.json"
	DefaultTreeJSON     = `{"name":"root","children":[{"name":"A"},{"name":"B"}]}`
)

// Config scripts the fake's answers. Empty error fields mean success.
type Config struct {
	UploadedPath string
	AlignedPath  string
	TreePath     string
	TreeJSON     string
	TreeStatus   int

	UploadError string
	AlignError  string
	BuildError  string
	SaveError   string

	// DropPath closes the connection without a response for requests to
	// this path, simulating a transport failure.
	DropPath string
}

// Upload is one received multipart upload.
type Upload struct {
	Filename string
	Content  string
}

// SaveRequest is one received /save_tree body.
type SaveRequest struct {
	SVG       string `json:"svg"`
	RequestID string `json:"request_id"`
}

// Server is a running fake service.
type Server struct {
	*httptest.Server

	cfg Config

	mu      sync.Mutex
	calls   []string
	uploads []Upload
	aligns  []string
	builds  []string
	saves   []SaveRequest
	svgs    map[string]string
}

// NewServer starts a fake service. Callers must Close it.
func NewServer(cfg Config) *Server {
	if cfg.UploadedPath == "" {
		cfg.UploadedPath = DefaultUploadedPath
	}
	if cfg.AlignedPath == "" {
		cfg.AlignedPath = DefaultAlignedPath
	}
	if cfg.TreePath == "" {
		cfg.TreePath = DefaultTreePath
	}
	if cfg.TreeJSON == "" {
		cfg.TreeJSON = DefaultTreeJSON
	}
	s := &Server{cfg: cfg, svgs: map[string]string{}}
	s.Server = httptest.NewServer(s.routes())
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record, withRequestLogging)
	r.Post("/upload", s.handleUpload)
	r.Post("/align", s.handleAlign)
	r.Post("/build_tree", s.handleBuildTree)
	r.Post("/save_tree", s.handleSaveTree)
	r.Get("/results/{id}/tree.svg", s.handleSVG)
	r.Get("/*", s.handleTree)
	return r
}

// Calls returns "METHOD /path" for every request received, in order.
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Uploads returns the received uploads.
func (s *Server) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Upload(nil), s.uploads...)
}

// AlignRequests returns the filepaths posted to /align.
func (s *Server) AlignRequests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.aligns...)
}

// BuildRequests returns the aligned filepaths posted to /build_tree.
func (s *Server) BuildRequests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.builds...)
}

// SaveRequests returns the bodies posted to /save_tree.
func (s *Server) SaveRequests() []SaveRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SaveRequest(nil), s.saves...)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls = append(s.calls, r.Method+" "+r.URL.Path)
		s.mu.Unlock()
		if s.cfg.DropPath != "" && r.URL.Path == s.cfg.DropPath {
			dropConnection(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func dropConnection(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		panic(http.ErrAbortHandler)
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		panic(http.ErrAbortHandler)
	}
	conn.Close()
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No file part"})
		return
	}
	defer file.Close()
	content, _ := io.ReadAll(file)

	s.mu.Lock()
	s.uploads = append(s.uploads, Upload{Filename: header.Filename, Content: string(content)})
	s.mu.Unlock()

	if s.cfg.UploadError != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": s.cfg.UploadError})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "File uploaded successfully", "filepath": s.cfg.UploadedPath})
}

func (s *Server) handleAlign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Filepath string `json:"filepath"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid file path"})
		return
	}
	s.mu.Lock()
	s.aligns = append(s.aligns, req.Filepath)
	s.mu.Unlock()

	if s.cfg.AlignError != "" {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": s.cfg.AlignError, "details": "clustalo exited with status 1"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Alignment completed", "aligned_filepath": s.cfg.AlignedPath})
}

func (s *Server) handleBuildTree(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AlignedFilepath string `json:"aligned_filepath"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid aligned file path"})
		return
	}
	s.mu.Lock()
	s.builds = append(s.builds, req.AlignedFilepath)
	s.mu.Unlock()

	if s.cfg.BuildError != "" {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": s.cfg.BuildError})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message":            "Phylogenetic tree built",
		"tree_filepath":      strings.TrimSuffix(s.cfg.TreePath, ".json") + ".nwk",
		"json_tree_filepath": s.cfg.TreePath,
	})
}

func (s *Server) handleSaveTree(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request"})
		return
	}
	s.mu.Lock()
	s.saves = append(s.saves, req)
	s.mu.Unlock()

	if s.cfg.SaveError != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": s.cfg.SaveError})
		return
	}
	s.mu.Lock()
	s.svgs[req.RequestID] = req.SVG
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Tree saved", "filepath": "/results/" + req.RequestID + "/tree.svg"})
}

func (s *Server) handleSVG(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	svg, ok := s.svgs[chi.URLParam(r, "id")]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = io.WriteString(w, svg)
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/"+strings.TrimLeft(s.cfg.TreePath, "/") {
		http.NotFound(w, r)
		return
	}
	status := s.cfg.TreeStatus
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, s.cfg.TreeJSON)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type loggingResponseWriter struct {
	http.ResponseWriter
	status int
}

func (w *loggingResponseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *loggingResponseWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &loggingResponseWriter{ResponseWriter: w}
		next.ServeHTTP(rw, r)
		slog.Debug("fake service request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", r.Header.Get("X-Request-ID"),
		)
	})
}
