package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/finsight/finsight/internal/fault"
	"github.com/finsight/finsight/internal/ingest"
	"github.com/finsight/finsight/internal/pipeline"
	"github.com/finsight/finsight/internal/storage"
)

// Analyzer runs the multi-agent document pipeline.
type Analyzer interface {
	Analyze(ctx context.Context, filePath, query string) (pipeline.Result, error)
}

// Deps holds dependencies for the HTTP API.
type Deps struct {
	Store            *storage.Store
	Scratch          *ingest.Scratch
	Analyzer         Analyzer
	Token            string
	Timeout          time.Duration
	BatchConcurrency int
	MaxUploadBytes   int64
}

// NewHandler returns the HTTP API. Analysis endpoints are open; the
// management endpoints under /analyses require the bearer token.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/", handleRoot)
	r.Get("/health", handleHealth)
	r.Post("/analyze", handleAnalyze(deps))
	r.Post("/analyze/batch", handleAnalyzeBatch(deps))

	r.Route("/analyses", func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))
		r.Get("/", handleListAnalyses(deps))
		r.Get("/{id}", handleGetAnalysis(deps))
		r.Delete("/{id}", handleDeleteAnalysis(deps))
	})

	return r
}

func handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"message":"Financial Document Analyzer API is running"}`))
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// AnalyzeResponse is the synchronous analysis result payload.
type AnalyzeResponse struct {
	Status        string                `json:"status"`
	AnalysisID    string                `json:"analysis_id"`
	Query         string                `json:"query"`
	Analysis      string                `json:"analysis"`
	FileProcessed string                `json:"file_processed"`
	DurationMs    int64                 `json:"duration_ms"`
	Steps         []pipeline.StepResult `json:"steps,omitempty"`
}

func handleAnalyze(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, deps.MaxUploadBytes)
		defer r.Body.Close()

		file, header, err := r.FormFile("file")
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "file is required: %v", err)
			return
		}
		defer file.Close()

		query := ingest.EffectiveQuery(r.FormValue("query"))

		upload, err := deps.Scratch.Save(header.Filename, file)
		if err != nil {
			writeFault(w, err, "saving upload")
			return
		}
		defer upload.Remove()

		record := storage.Analysis{
			ID:       uuid.New().String(),
			Filename: upload.OriginalName,
			Query:    query,
		}
		if err := deps.Store.SaveAnalysis(record); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save analysis: %v", err)
			return
		}
		if err := deps.Store.MarkAnalysisRunning(record.ID); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to update analysis: %v", err)
			return
		}

		ctx := r.Context()
		if deps.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, deps.Timeout)
			defer cancel()
		}

		start := time.Now()
		result, err := deps.Analyzer.Analyze(ctx, upload.Path, query)
		if err != nil {
			if failErr := deps.Store.FailAnalysis(record.ID, err.Error()); failErr != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "failed to record failure: %v", failErr)
				return
			}
			writeFault(w, err, "analyzing document")
			return
		}

		durationMs := time.Since(start).Milliseconds()
		if err := deps.Store.CompleteAnalysis(record.ID, result.Final, durationMs); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save result: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(AnalyzeResponse{
			Status:        "success",
			AnalysisID:    record.ID,
			Query:         query,
			Analysis:      result.Final,
			FileProcessed: upload.OriginalName,
			DurationMs:    durationMs,
			Steps:         result.Steps,
		})
	}
}

// BatchItem reports the queueing outcome for one uploaded file.
type BatchItem struct {
	AnalysisID string `json:"analysis_id,omitempty"`
	Filename   string `json:"filename"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

func handleAnalyzeBatch(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, deps.MaxUploadBytes)
		defer r.Body.Close()

		if err := r.ParseMultipartForm(deps.MaxUploadBytes); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid multipart body: %v", err)
			return
		}

		files := r.MultipartForm.File["files"]
		if len(files) == 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "at least one file is required")
			return
		}

		query := ingest.EffectiveQuery(r.FormValue("query"))

		items := make([]BatchItem, len(files))
		g, _ := errgroup.WithContext(r.Context())
		g.SetLimit(deps.BatchConcurrency)
		for i, fh := range files {
			g.Go(func() error {
				items[i] = enqueueUpload(deps, fh, query)
				return nil
			})
		}
		g.Wait()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]any{
			"status": "queued",
			"query":  query,
			"items":  items,
		})
	}
}

// enqueueUpload persists one batch upload to scratch, records the analysis,
// and enqueues its background job. Failures are reported per item rather
// than failing the whole batch.
func enqueueUpload(deps Deps, fh *multipart.FileHeader, query string) BatchItem {
	item := BatchItem{Filename: fh.Filename}

	file, err := fh.Open()
	if err != nil {
		item.Status = "failed"
		item.Error = fmt.Sprintf("opening upload: %v", err)
		return item
	}
	defer file.Close()

	upload, err := deps.Scratch.Save(fh.Filename, file)
	if err != nil {
		item.Status = "failed"
		item.Error = err.Error()
		return item
	}

	record := storage.Analysis{
		ID:       uuid.New().String(),
		Filename: upload.OriginalName,
		Query:    query,
	}
	if err := deps.Store.SaveAnalysis(record); err != nil {
		upload.Remove()
		item.Status = "failed"
		item.Error = fmt.Sprintf("saving analysis: %v", err)
		return item
	}

	payload, err := json.Marshal(map[string]string{
		"analysis_id": record.ID,
		"file_path":   upload.Path,
		"query":       query,
	})
	if err != nil {
		upload.Remove()
		item.Status = "failed"
		item.Error = fmt.Sprintf("building job payload: %v", err)
		return item
	}

	// Single attempt: a failed analysis is terminal and the worker removes
	// the scratch file, so a retry would have nothing to read.
	job := storage.Job{
		ID:          uuid.New().String(),
		Type:        "analyze_document",
		PayloadJSON: string(payload),
		MaxAttempts: 1,
	}
	if err := deps.Store.EnqueueJob(job); err != nil {
		upload.Remove()
		item.Status = "failed"
		item.Error = fmt.Sprintf("enqueueing job: %v", err)
		return item
	}

	item.AnalysisID = record.ID
	item.Status = "queued"
	return item
}

func handleListAnalyses(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)
		offset := parseIntParam(r, "offset", 0, 0)

		analyses, err := deps.Store.ListAnalyses(limit, offset)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list analyses: %v", err)
			return
		}

		if analyses == nil {
			analyses = []storage.Analysis{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(analyses)
	}
}

func handleGetAnalysis(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		a, err := deps.Store.GetAnalysis(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "analysis not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get analysis: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(a)
	}
}

func handleDeleteAnalysis(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		err := deps.Store.DeleteAnalysis(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "analysis not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete analysis: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})
	}
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

// writeFault maps a pipeline or ingest error to an HTTP response. Upstream
// model errors are reported generically so provider details never leak to
// callers.
func writeFault(w http.ResponseWriter, err error, action string) {
	if errors.Is(err, context.DeadlineExceeded) {
		httpError(w, http.StatusGatewayTimeout, "timeout_error", "analysis timed out")
		return
	}
	switch fault.KindOf(err) {
	case fault.Validation:
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
	case fault.ExternalService:
		httpError(w, http.StatusBadGateway, "api_error", "model provider request failed")
	default:
		httpError(w, http.StatusInternalServerError, "api_error", "%s: %v", action, err)
	}
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
