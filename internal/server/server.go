/**
 * HTTP Service for the Lab Report Worker
 *
 * Routes:
 *   GET  /health           liveness
 *   POST /get-lab-tests    synchronous extraction of one uploaded image
 *   POST /jobs             queue an uploaded image for background extraction
 *   GET  /jobs/{jobID}     job status and result
 */

package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/adverant/nexus/labreport-worker/internal/errors"
	"github.com/adverant/nexus/labreport-worker/internal/logging"
	"github.com/adverant/nexus/labreport-worker/internal/processor"
	"github.com/adverant/nexus/labreport-worker/internal/queue"
)

const (
	// multipart framing allowance on top of the file size limit
	formOverhead = 1 << 20
	formField    = "file"
)

// JobSubmitter queues lab report jobs
type JobSubmitter interface {
	Enqueue(ctx context.Context, payload *queue.JobPayload) (string, error)
}

// JobStatusReader looks up queued jobs
type JobStatusReader interface {
	Get(ctx context.Context, jobID string) (*queue.JobStatus, error)
}

// Config holds server dependencies. Jobs and Status are optional; the job
// routes answer 503 without them.
type Config struct {
	Addr        string
	Processor   processor.Processor
	Jobs        JobSubmitter
	Status      JobStatusReader
	MaxFileSize int64
	Logger      *logging.Logger
}

// Server serves the lab report HTTP API
type Server struct {
	router      *chi.Mux
	httpServer  *http.Server
	processor   processor.Processor
	jobs        JobSubmitter
	status      JobStatusReader
	maxFileSize int64
	logger      *logging.Logger
}

// New creates the HTTP server and its routes
func New(cfg *Config) (*Server, error) {
	if cfg == nil || cfg.Processor == nil {
		return nil, fmt.Errorf("processor is required")
	}

	if cfg.MaxFileSize <= 0 {
		return nil, fmt.Errorf("max file size must be positive")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewLogger("http")
	}

	s := &Server{
		processor:   cfg.Processor,
		jobs:        cfg.Jobs,
		status:      cfg.Status,
		maxFileSize: cfg.MaxFileSize,
		logger:      logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Post("/get-lab-tests", s.handleGetLabTests)
	r.Route("/jobs", func(r chi.Router) {
		r.Post("/", s.handleSubmitJob)
		r.Get("/{jobID}", s.handleJobStatus)
	})

	s.router = r
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler exposes the router, e.g. for httptest
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address and blocks until the server stops
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// POST /get-lab-tests
func (s *Server) handleGetLabTests(w http.ResponseWriter, r *http.Request) {
	upload, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.processor.Process(r.Context(), &processor.ProcessRequest{
		JobID:      uuid.NewString(),
		Filename:   upload.filename,
		MimeType:   upload.mimeType,
		FileBuffer: upload.data,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, processor.Envelope(result.Tests))
}

// POST /jobs
func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	if s.jobs == nil {
		writeJSON(w, http.StatusServiceUnavailable, processor.ErrorEnvelope(fmt.Errorf("job queue is disabled")))
		return
	}

	upload, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	jobID, err := s.jobs.Enqueue(r.Context(), &queue.JobPayload{
		Filename:   upload.filename,
		MimeType:   upload.mimeType,
		FileBuffer: upload.data,
		Metadata: map[string]interface{}{
			"request_id": middleware.GetReqID(r.Context()),
		},
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"is_success": true,
		"job_id":     jobID,
	})
}

// GET /jobs/{jobID}
func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	if s.status == nil {
		writeJSON(w, http.StatusServiceUnavailable, processor.ErrorEnvelope(fmt.Errorf("job queue is disabled")))
		return
	}

	status, err := s.status.Get(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

type upload struct {
	filename string
	mimeType string
	data     []byte
}

// readUpload reads the multipart "file" field, enforcing the image-only
// rule on its declared content type and the size limit
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxFileSize+formOverhead)

	file, header, err := r.FormFile(formField)
	if err != nil {
		var mbe *http.MaxBytesError
		if stderrors.As(err, &mbe) {
			return nil, errors.NewFileTooLargeError("", -1, s.maxFileSize)
		}
		return nil, badRequest(fmt.Sprintf("multipart field %q is required", formField))
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if !isImageContentType(mimeType) {
		return nil, errors.NewUnsupportedFormatError("", mimeType)
	}

	data, err := readLimited(file, s.maxFileSize)
	if err != nil {
		return nil, err
	}

	return &upload{filename: header.Filename, mimeType: mimeType, data: data}, nil
}

func readLimited(file multipart.File, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, errors.NewFileTooLargeError("", int64(len(data)), limit)
	}
	return data, nil
}

// requestError is a client error outside the processing error codes
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(msg string) error {
	return &requestError{msg: msg}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", err)
	} else {
		s.logger.Warn("Request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, processor.ErrorEnvelope(err))
}

func statusFor(err error) int {
	var re *requestError
	if stderrors.As(err, &re) {
		return http.StatusBadRequest
	}

	switch errors.CodeOf(err) {
	case errors.ErrorUnsupportedFormat, errors.ErrorInvalidImage:
		return http.StatusBadRequest
	case errors.ErrorFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case errors.ErrorJobNotFound:
		return http.StatusNotFound
	case errors.ErrorProcessingTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
