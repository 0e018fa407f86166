package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/finsight/finsight/internal/pipeline"
	"github.com/finsight/finsight/internal/storage"
)

// JobStore abstracts the queue and analysis bookkeeping operations.
type JobStore interface {
	ClaimNextJob(types []string) (*storage.Job, error)
	CompleteJob(id string) error
	FailJob(id string, errMsg string) error
	MarkAnalysisRunning(id string) error
	CompleteAnalysis(id, result string, durationMs int64) error
	FailAnalysis(id, errMsg string) error
}

// Analyzer runs the document analysis pipeline.
type Analyzer interface {
	Analyze(ctx context.Context, filePath, query string) (pipeline.Result, error)
}

// Worker processes analyze_document jobs from the SQLite job queue.
type Worker struct {
	store    JobStore
	analyzer Analyzer
	timeout  time.Duration
	poll     time.Duration
	logger   *slog.Logger
}

// NewWorker creates a Worker with the given dependencies.
// If pollInterval is <= 0, it defaults to 500ms.
func NewWorker(store JobStore, analyzer Analyzer, timeout, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Worker{
		store:    store,
		analyzer: analyzer,
		timeout:  timeout,
		poll:     pollInterval,
		logger:   slog.Default(),
	}
}

// Run polls for jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		done, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("worker iteration failed", "error", err)
		}
		if done {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// RunOnce claims and processes a single analyze_document job.
// Returns true if a job was processed (regardless of success/failure).
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.store.ClaimNextJob([]string{"analyze_document"})
	if err != nil {
		return false, fmt.Errorf("claiming job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	if err := w.processJob(ctx, job); err != nil {
		w.logger.Warn("job failed", "job_id", job.ID, "error", err)
		if failErr := w.store.FailJob(job.ID, err.Error()); failErr != nil {
			w.logger.Error("failed to mark job as failed", "job_id", job.ID, "error", failErr)
		}
		return true, nil
	}

	if err := w.store.CompleteJob(job.ID); err != nil {
		return true, fmt.Errorf("completing job %s: %w", job.ID, err)
	}
	return true, nil
}

type analyzePayload struct {
	AnalysisID string `json:"analysis_id"`
	FilePath   string `json:"file_path"`
	Query      string `json:"query"`
}

func (w *Worker) processJob(ctx context.Context, job *storage.Job) error {
	var payload analyzePayload
	if err := json.Unmarshal([]byte(job.PayloadJSON), &payload); err != nil {
		return fmt.Errorf("parsing payload: %w", err)
	}

	// The scratch file is removed no matter how the run ends. Analysis
	// failures are terminal, so jobs of this type run with a single attempt
	// and nothing will re-read the file.
	defer func() {
		if err := os.Remove(payload.FilePath); err != nil && !os.IsNotExist(err) {
			w.logger.Warn("failed to remove scratch file", "path", payload.FilePath, "error", err)
		}
	}()

	if err := w.store.MarkAnalysisRunning(payload.AnalysisID); err != nil {
		return fmt.Errorf("marking analysis %s running: %w", payload.AnalysisID, err)
	}

	runCtx := ctx
	if w.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := w.analyzer.Analyze(runCtx, payload.FilePath, payload.Query)
	if err != nil {
		if failErr := w.store.FailAnalysis(payload.AnalysisID, err.Error()); failErr != nil {
			w.logger.Error("failed to record analysis failure", "analysis_id", payload.AnalysisID, "error", failErr)
		}
		return fmt.Errorf("analyzing document: %w", err)
	}

	if err := w.store.CompleteAnalysis(payload.AnalysisID, res.Final, time.Since(start).Milliseconds()); err != nil {
		return fmt.Errorf("completing analysis %s: %w", payload.AnalysisID, err)
	}
	return nil
}
