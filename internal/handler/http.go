package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/MichalMitros/evend-publisher/internal/decoder"
	"github.com/MichalMitros/evend-publisher/internal/launcher"
	"github.com/MichalMitros/evend-publisher/internal/platform"
	"github.com/MichalMitros/evend-publisher/internal/platform/models"
	"github.com/MichalMitros/evend-publisher/internal/platform/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

//go:generate mockery --name Runs --filename runs.go

const (
	defaultLogLines = 50
	maxLogLines     = 5000
	multipartMemory = 8 << 20
)

// JobLog reads per-job logs.
type JobLog interface {
	Tail(jobID string, maxLines int) ([]string, error)
	Subscribe(jobID string) (<-chan string, func())
}

// Queue lists the admission queue.
type Queue interface {
	Jobs(ctx context.Context) ([]models.QueuedJob, error)
}

// Runs reads stored runs.
type Runs interface {
	LatestRun(ctx context.Context, tenantID string) (*models.Run, error)
}

// HTTPHandler serves the publishing HTTP API.
type HTTPHandler struct {
	launcher  Launcher
	jobLog    JobLog
	queue     Queue
	runs      Runs
	uploadDir string
	maxUpload int64
	logger    *zerolog.Logger
}

// NewHTTPHandler returns new HTTPHandler storing uploaded files in uploadDir.
func NewHTTPHandler(
	launcher Launcher,
	jobLog JobLog,
	queue Queue,
	runs Runs,
	uploadDir string,
	maxUpload int64,
	logger *zerolog.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		launcher:  launcher,
		jobLog:    jobLog,
		queue:     queue,
		runs:      runs,
		uploadDir: uploadDir,
		maxUpload: maxUpload,
		logger:    logger,
	}
}

// Router returns chi router with all API routes.
func (h *HTTPHandler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Get("/queue", h.handleQueue)

	r.Route("/jobs", func(r chi.Router) {
		r.Post("/", h.handleCreateJob)
		r.Route("/{jobID}", func(r chi.Router) {
			r.Get("/", h.handleGetJob)
			r.Get("/log", h.handleLog)
			r.Get("/log/stream", h.handleLogStream)
		})
	})

	return r
}

type jobResponse struct {
	launcher.Status
	Listings int         `json:"listings,omitempty"`
	LastRun  *runPayload `json:"lastRun,omitempty"`
}

type runPayload struct {
	ID            int        `json:"id"`
	CreatedAt     time.Time  `json:"createdAt"`
	FinishedAt    *time.Time `json:"finishedAt,omitempty"`
	Success       *bool      `json:"success,omitempty"`
	StatusMessage *string    `json:"statusMessage,omitempty"`
	Total         int32      `json:"total"`
	Published     *int32     `json:"published,omitempty"`
	Unconfirmed   *int32     `json:"unconfirmed,omitempty"`
	Failed        *int32     `json:"failed,omitempty"`
	Skipped       *int32     `json:"skipped,omitempty"`
}

type queuedJobPayload struct {
	ID                   string    `json:"id"`
	Articles             int       `json:"articles"`
	EnqueuedAt           time.Time `json:"enqueuedAt"`
	Position             int       `json:"position"`
	EstimatedWaitSeconds int64     `json:"estimatedWaitSeconds"`
}

func (h *HTTPHandler) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			writeError(w, http.StatusRequestEntityTooLarge, "upload larger than %d bytes", h.maxUpload)
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form: %v", err)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	tenantID := strings.TrimSpace(r.FormValue("tenant_id"))
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "tenant_id is required")
		return
	}

	var config models.JobConfig
	if err := json.Unmarshal([]byte(r.FormValue("config")), &config); err != nil {
		writeError(w, http.StatusBadRequest, "invalid config: %v", err)
		return
	}

	path, err := h.saveUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "can't read csv_file: %v", err)
		return
	}

	handle, err := h.launcher.Launch(r.Context(), models.Job{
		ID:         tenantID,
		FilePath:   path,
		Config:     config,
		RemoveFile: true,
	})
	if err != nil {
		writeError(w, launchErrorStatus(err), "%v", err)
		return
	}

	writeJSON(w, http.StatusAccepted, jobResponse{
		Status:   h.launcher.Status(tenantID),
		Listings: handle.Listings,
	})
}

func (h *HTTPHandler) saveUpload(r *http.Request) (string, error) {
	file, _, err := r.FormFile("csv_file")
	if err != nil {
		return "", err
	}
	defer file.Close()

	path := filepath.Join(h.uploadDir, uuid.NewString()+".csv")
	out, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("can't create upload file: %w", err)
	}

	if _, err := io.Copy(out, file); err != nil {
		_ = out.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("can't save upload file: %w", err)
	}

	if err := out.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("can't save upload file: %w", err)
	}

	return path, nil
}

func (h *HTTPHandler) handleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	resp := jobResponse{Status: h.launcher.Status(jobID)}

	run, err := h.runs.LatestRun(r.Context(), jobID)
	switch {
	case errors.Is(err, storage.ErrRunNotFound):
	case err != nil:
		h.logger.Error().Err(err).Str("jobId", jobID).Msg("can't get latest run")
		writeError(w, http.StatusInternalServerError, "can't get latest run")
		return
	default:
		resp.LastRun = toRunPayload(run)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) handleLog(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	maxLines := defaultLogLines
	if raw := r.URL.Query().Get("lines"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "lines must be a non-negative number")
			return
		}
		maxLines = min(n, maxLogLines)
	}

	lines, err := h.jobLog.Tail(jobID, maxLines)
	if err != nil {
		h.logger.Error().Err(err).Str("jobId", jobID).Msg("can't read job log")
		writeError(w, http.StatusInternalServerError, "can't read job log")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"jobId": jobID, "lines": lines})
}

func (h *HTTPHandler) handleLogStream(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	lines, cancel := h.jobLog.Subscribe(jobID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", line); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (h *HTTPHandler) handleQueue(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.queue.Jobs(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("can't read admission queue")
		writeError(w, http.StatusInternalServerError, "can't read admission queue")
		return
	}

	payload := make([]queuedJobPayload, 0, len(jobs))
	for _, job := range jobs {
		payload = append(payload, queuedJobPayload{
			ID:                   job.ID,
			Articles:             job.Articles,
			EnqueuedAt:           job.EnqueuedAt,
			Position:             job.Position,
			EstimatedWaitSeconds: int64(job.EstimatedWait / time.Second),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"jobs": payload})
}

func launchErrorStatus(err error) int {
	switch {
	case errors.Is(err, platform.ErrMissingCredentials),
		errors.Is(err, decoder.ErrEmptyFile),
		errors.Is(err, decoder.ErrMissingHeader):
		return http.StatusBadRequest
	case errors.Is(err, platform.ErrAlreadyRunning):
		return http.StatusConflict
	case errors.Is(err, launcher.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, launcher.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func toRunPayload(run *models.Run) *runPayload {
	return &runPayload{
		ID:            run.ID,
		CreatedAt:     run.CreatedAt,
		FinishedAt:    run.FinishedAt,
		Success:       run.IsSuccess,
		StatusMessage: run.StatusMessage,
		Total:         run.TotalListings,
		Published:     run.PublishedListings,
		Unconfirmed:   run.UnconfirmedListings,
		Failed:        run.FailedListings,
		Skipped:       run.SkippedListings,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": strings.TrimSpace(fmt.Sprintf(format, args...)),
			"status":  status,
		},
	})
}
