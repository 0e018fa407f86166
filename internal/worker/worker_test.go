package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/finsight/finsight/internal/pipeline"
	"github.com/finsight/finsight/internal/storage"
)

type mockAnalyzer struct {
	analyzeFn func(ctx context.Context, filePath, query string) (pipeline.Result, error)
}

func (m *mockAnalyzer) Analyze(ctx context.Context, filePath, query string) (pipeline.Result, error) {
	return m.analyzeFn(ctx, filePath, query)
}

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func writeScratchFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("Revenue: $10 million"), 0o644); err != nil {
		t.Fatalf("writing scratch file: %v", err)
	}
	return path
}

func enqueueAnalysisJob(t *testing.T, store *storage.Store, analysisID, filePath, query string) {
	t.Helper()
	a := storage.Analysis{
		ID:       analysisID,
		Filename: filepath.Base(filePath),
		Query:    query,
	}
	if err := store.SaveAnalysis(a); err != nil {
		t.Fatalf("SaveAnalysis: %v", err)
	}
	payload, _ := json.Marshal(map[string]string{
		"analysis_id": analysisID,
		"file_path":   filePath,
		"query":       query,
	})
	job := storage.Job{
		ID:          "job-" + analysisID,
		Type:        "analyze_document",
		PayloadJSON: string(payload),
		MaxAttempts: 1,
	}
	if err := store.EnqueueJob(job); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}
}

func TestWorker_ProcessesJob(t *testing.T) {
	store := openTestStore(t)
	path := writeScratchFile(t, "doc_1.txt")
	enqueueAnalysisJob(t, store, "a1", path, "check the revenue")

	var gotPath, gotQuery atomic.Value
	w := NewWorker(store, &mockAnalyzer{
		analyzeFn: func(_ context.Context, filePath, query string) (pipeline.Result, error) {
			gotPath.Store(filePath)
			gotQuery.Store(query)
			return pipeline.Result{Final: "all clear"}, nil
		},
	}, time.Minute, 0)

	ctx := context.Background()
	didWork, err := w.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce error: %v", err)
	}
	if !didWork {
		t.Fatal("RunOnce returned false, expected true")
	}

	if gotPath.Load() != path {
		t.Errorf("analyzer got path %v, want %s", gotPath.Load(), path)
	}
	if gotQuery.Load() != "check the revenue" {
		t.Errorf("analyzer got query %v", gotQuery.Load())
	}

	a, err := store.GetAnalysis("a1")
	if err != nil {
		t.Fatalf("GetAnalysis: %v", err)
	}
	if a.Status != storage.StatusCompleted {
		t.Errorf("analysis status = %q, want completed", a.Status)
	}
	if a.Result != "all clear" {
		t.Errorf("analysis result = %q", a.Result)
	}

	job, err := store.GetJob("job-a1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != "completed" {
		t.Errorf("job status = %q, want completed", job.Status)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("scratch file should be removed after processing")
	}
}

func TestWorker_AnalysisFailure(t *testing.T) {
	store := openTestStore(t)
	path := writeScratchFile(t, "doc_2.txt")
	enqueueAnalysisJob(t, store, "a2", path, "q")

	w := NewWorker(store, &mockAnalyzer{
		analyzeFn: func(_ context.Context, _, _ string) (pipeline.Result, error) {
			return pipeline.Result{}, fmt.Errorf("model unavailable")
		},
	}, time.Minute, 0)

	didWork, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce error: %v", err)
	}
	if !didWork {
		t.Fatal("RunOnce returned false")
	}

	a, err := store.GetAnalysis("a2")
	if err != nil {
		t.Fatalf("GetAnalysis: %v", err)
	}
	if a.Status != storage.StatusFailed {
		t.Errorf("analysis status = %q, want failed", a.Status)
	}
	if a.LastError == "" {
		t.Error("analysis should record the failure")
	}

	job, err := store.GetJob("job-a2")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != "failed" {
		t.Errorf("job status = %q, want failed (single attempt)", job.Status)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("scratch file should be removed even on failure")
	}
}

func TestWorker_NoJobsDue(t *testing.T) {
	store := openTestStore(t)

	w := NewWorker(store, &mockAnalyzer{
		analyzeFn: func(_ context.Context, _, _ string) (pipeline.Result, error) {
			t.Fatal("analyzer should not be called")
			return pipeline.Result{}, nil
		},
	}, time.Minute, 0)

	didWork, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce error: %v", err)
	}
	if didWork {
		t.Error("RunOnce returned true with empty queue")
	}
}

func TestWorker_BadPayload(t *testing.T) {
	store := openTestStore(t)
	if err := store.EnqueueJob(storage.Job{
		ID:          "job-bad",
		Type:        "analyze_document",
		PayloadJSON: "{not json",
		MaxAttempts: 1,
	}); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}

	w := NewWorker(store, &mockAnalyzer{
		analyzeFn: func(_ context.Context, _, _ string) (pipeline.Result, error) {
			t.Fatal("analyzer should not be called")
			return pipeline.Result{}, nil
		},
	}, time.Minute, 0)

	didWork, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce error: %v", err)
	}
	if !didWork {
		t.Fatal("RunOnce returned false")
	}

	job, err := store.GetJob("job-bad")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != "failed" {
		t.Errorf("job status = %q, want failed", job.Status)
	}
}

func TestWorker_RunStopsOnCancel(t *testing.T) {
	store := openTestStore(t)

	w := NewWorker(store, &mockAnalyzer{
		analyzeFn: func(_ context.Context, _, _ string) (pipeline.Result, error) {
			return pipeline.Result{}, nil
		},
	}, time.Minute, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}
