package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/finsight/finsight/internal/fault"
)

func TestSaveAndRemove(t *testing.T) {
	s := NewScratch(filepath.Join(t.TempDir(), "uploads"))

	up, err := s.Save("report.pdf", strings.NewReader("%PDF-1.4 fake"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if up.OriginalName != "report.pdf" {
		t.Errorf("OriginalName = %q, want report.pdf", up.OriginalName)
	}
	if up.Size == 0 {
		t.Error("Size should be non-zero")
	}
	if filepath.Ext(up.Path) != ".pdf" {
		t.Errorf("scratch path %q should keep the original extension", up.Path)
	}
	if _, err := os.Stat(up.Path); err != nil {
		t.Fatalf("scratch file missing: %v", err)
	}

	up.Remove()
	if _, err := os.Stat(up.Path); !os.IsNotExist(err) {
		t.Error("scratch file should be gone after Remove")
	}

	// Removing twice must not panic or complain.
	up.Remove()
}

func TestSaveCreatesScratchDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "uploads")
	s := NewScratch(dir)

	up, err := s.Save("data.csv", strings.NewReader("a,b\n1,2\n"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	defer up.Remove()

	if _, err := os.Stat(dir); err != nil {
		t.Errorf("scratch directory not created: %v", err)
	}
}

func TestSaveRejectsUnsupportedExtension(t *testing.T) {
	s := NewScratch(t.TempDir())

	_, err := s.Save("malware.exe", strings.NewReader("x"))
	if !fault.IsKind(err, fault.Validation) {
		t.Errorf("error kind = %v, want Validation", fault.KindOf(err))
	}
}

func TestSaveRejectsEmptyFile(t *testing.T) {
	dir := t.TempDir()
	s := NewScratch(dir)

	_, err := s.Save("empty.txt", strings.NewReader(""))
	if !fault.IsKind(err, fault.Validation) {
		t.Fatalf("error kind = %v, want Validation", fault.KindOf(err))
	}

	// No scratch file may be left behind.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("scratch dir should be empty, found %d entries", len(entries))
	}
}

func TestConcurrentSavesGetDistinctPaths(t *testing.T) {
	s := NewScratch(t.TempDir())

	paths := make(chan string, 10)
	for i := 0; i < 10; i++ {
		go func() {
			up, err := s.Save("report.txt", strings.NewReader("content"))
			if err != nil {
				t.Errorf("Save failed: %v", err)
				paths <- ""
				return
			}
			paths <- up.Path
		}()
	}

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		p := <-paths
		if p == "" {
			continue
		}
		if seen[p] {
			t.Fatalf("duplicate scratch path %q", p)
		}
		seen[p] = true
	}
}

func TestEffectiveQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", DefaultQuery},
		{"   ", DefaultQuery},
		{"What is the revenue growth?", "What is the revenue growth?"},
		{"  padded  ", "padded"},
	}
	for _, tt := range tests {
		if got := EffectiveQuery(tt.in); got != tt.want {
			t.Errorf("EffectiveQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
