package storage

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the second open does not re-apply migrations.
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	var count int
	if err := s2.db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count); err != nil {
		t.Fatalf("counting migrations: %v", err)
	}
	if count != 1 {
		t.Errorf("schema_version count = %d, want 1", count)
	}
}

func TestAnalysisLifecycle(t *testing.T) {
	s := openTestStore(t)

	a := Analysis{
		ID:       "a1",
		Filename: "report.pdf",
		Query:    "What is the revenue growth?",
	}
	if err := s.SaveAnalysis(a); err != nil {
		t.Fatalf("SaveAnalysis failed: %v", err)
	}

	got, err := s.GetAnalysis("a1")
	if err != nil {
		t.Fatalf("GetAnalysis failed: %v", err)
	}
	if got.Status != StatusQueued {
		t.Errorf("initial status = %q, want %q", got.Status, StatusQueued)
	}
	if got.Filename != "report.pdf" || got.Query != "What is the revenue growth?" {
		t.Errorf("round-trip mismatch: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set on save")
	}

	if err := s.MarkAnalysisRunning("a1"); err != nil {
		t.Fatalf("MarkAnalysisRunning failed: %v", err)
	}
	if err := s.CompleteAnalysis("a1", "final report text", 1234); err != nil {
		t.Fatalf("CompleteAnalysis failed: %v", err)
	}

	got, err = s.GetAnalysis("a1")
	if err != nil {
		t.Fatalf("GetAnalysis failed: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Errorf("status = %q, want %q", got.Status, StatusCompleted)
	}
	if got.Result != "final report text" || got.DurationMs != 1234 {
		t.Errorf("result not persisted: %+v", got)
	}
}

func TestFailAnalysis(t *testing.T) {
	s := openTestStore(t)

	if err := s.SaveAnalysis(Analysis{ID: "a1", Filename: "f", Query: "q"}); err != nil {
		t.Fatal(err)
	}
	if err := s.FailAnalysis("a1", "model call failed"); err != nil {
		t.Fatalf("FailAnalysis failed: %v", err)
	}

	got, _ := s.GetAnalysis("a1")
	if got.Status != StatusFailed || got.LastError != "model call failed" {
		t.Errorf("failure not recorded: %+v", got)
	}
}

func TestGetAnalysisNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetAnalysis("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := s.DeleteAnalysis("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteAnalysis err = %v, want ErrNotFound", err)
	}
}

func TestListAnalysesPagination(t *testing.T) {
	s := openTestStore(t)

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		a := Analysis{
			ID:        fmt.Sprintf("a%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			Filename:  fmt.Sprintf("f%d.pdf", i),
			Query:     "q",
		}
		if err := s.SaveAnalysis(a); err != nil {
			t.Fatal(err)
		}
	}

	page, err := s.ListAnalyses(2, 0)
	if err != nil {
		t.Fatalf("ListAnalyses failed: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("got %d results, want 2", len(page))
	}
	// Newest first.
	if page[0].ID != "a4" || page[1].ID != "a3" {
		t.Errorf("order = %s, %s; want a4, a3", page[0].ID, page[1].ID)
	}

	rest, err := s.ListAnalyses(10, 2)
	if err != nil {
		t.Fatalf("ListAnalyses failed: %v", err)
	}
	if len(rest) != 3 {
		t.Errorf("got %d results after offset, want 3", len(rest))
	}
}

func TestJobQueueClaimAndComplete(t *testing.T) {
	s := openTestStore(t)

	if err := s.EnqueueJob(Job{ID: "j1", Type: "analyze_document", PayloadJSON: `{"analysis_id":"a1"}`}); err != nil {
		t.Fatalf("EnqueueJob failed: %v", err)
	}

	j, err := s.ClaimNextJob([]string{"analyze_document"})
	if err != nil {
		t.Fatalf("ClaimNextJob failed: %v", err)
	}
	if j == nil {
		t.Fatal("expected a job")
	}
	if j.ID != "j1" || j.Status != "running" {
		t.Errorf("claimed job = %+v", j)
	}

	// A second claim finds nothing; the job is running.
	j2, err := s.ClaimNextJob([]string{"analyze_document"})
	if err != nil {
		t.Fatalf("second claim failed: %v", err)
	}
	if j2 != nil {
		t.Errorf("second claim returned %+v, want nil", j2)
	}

	if err := s.CompleteJob("j1"); err != nil {
		t.Fatalf("CompleteJob failed: %v", err)
	}
	got, err := s.GetJob("j1")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if got.Status != "completed" {
		t.Errorf("status = %q, want completed", got.Status)
	}
}

func TestClaimIgnoresOtherTypes(t *testing.T) {
	s := openTestStore(t)

	if err := s.EnqueueJob(Job{ID: "j1", Type: "analyze_document", PayloadJSON: "{}"}); err != nil {
		t.Fatal(err)
	}

	j, err := s.ClaimNextJob([]string{"something_else"})
	if err != nil {
		t.Fatalf("ClaimNextJob failed: %v", err)
	}
	if j != nil {
		t.Errorf("claimed job of wrong type: %+v", j)
	}
}

func TestFailJobRetriesWithBackoff(t *testing.T) {
	s := openTestStore(t)

	if err := s.EnqueueJob(Job{ID: "j1", Type: "analyze_document", PayloadJSON: "{}", MaxAttempts: 2}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ClaimNextJob([]string{"analyze_document"}); err != nil {
		t.Fatal(err)
	}

	before := time.Now().UTC()
	if err := s.FailJob("j1", "boom"); err != nil {
		t.Fatalf("FailJob failed: %v", err)
	}

	j, err := s.GetJob("j1")
	if err != nil {
		t.Fatal(err)
	}
	if j.Status != "pending" {
		t.Errorf("status after first failure = %q, want pending", j.Status)
	}
	if j.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", j.Attempts)
	}
	if !j.RunAfter.After(before) {
		t.Error("run_after should be pushed into the future for retry")
	}
	if j.LastError != "boom" {
		t.Errorf("last_error = %q, want boom", j.LastError)
	}

	// A deferred job is not claimable yet.
	claimed, err := s.ClaimNextJob([]string{"analyze_document"})
	if err != nil {
		t.Fatal(err)
	}
	if claimed != nil {
		t.Error("backed-off job should not be claimable immediately")
	}

	// Second failure exhausts max_attempts.
	if err := s.FailJob("j1", "boom again"); err != nil {
		t.Fatalf("FailJob failed: %v", err)
	}
	j, _ = s.GetJob("j1")
	if j.Status != "failed" {
		t.Errorf("status after exhausting attempts = %q, want failed", j.Status)
	}
}
