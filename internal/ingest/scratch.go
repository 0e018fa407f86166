// Package ingest persists uploaded documents to a scratch directory for the
// lifetime of one analysis. Files get opaque unique names so concurrent
// requests never collide, and every upload is removed once its request
// finishes, success or failure.
package ingest

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/finsight/finsight/internal/fault"
)

// DefaultQuery is used when the caller supplies no query string.
const DefaultQuery = "Analyze this financial document for investment insights"

// allowedExtensions are the document types the reader tool understands.
var allowedExtensions = map[string]bool{
	".pdf": true,
	".txt": true,
	".csv": true,
}

// Upload is a scratch copy of one uploaded document.
type Upload struct {
	Path         string
	OriginalName string
	Size         int64
}

// Remove deletes the scratch file. Safe to call if the file is already gone.
func (u Upload) Remove() {
	if u.Path == "" {
		return
	}
	if err := os.Remove(u.Path); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not remove scratch file", "path", u.Path, "error", err)
	}
}

// Scratch manages the scratch directory for uploaded documents.
type Scratch struct {
	dir string
}

// NewScratch creates a Scratch rooted at dir. The directory is created on
// first save, not here.
func NewScratch(dir string) *Scratch {
	return &Scratch{dir: dir}
}

// Dir returns the scratch directory path.
func (s *Scratch) Dir() string { return s.dir }

// Save writes the uploaded stream to a uniquely named file under the scratch
// directory and returns the resulting Upload. The caller owns the file and
// must arrange for Remove on every exit path.
func (s *Scratch) Save(originalName string, r io.Reader) (Upload, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedExtensions[ext] {
		return Upload{}, fault.New(fault.Validation, "file type %q not allowed (allowed: .pdf, .txt, .csv)", ext)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Upload{}, fault.Wrap(fault.IO, err, "creating scratch directory %s", s.dir)
	}

	path := filepath.Join(s.dir, "doc_"+uuid.New().String()+ext)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return Upload{}, fault.Wrap(fault.IO, err, "creating scratch file")
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return Upload{}, fault.Wrap(fault.IO, err, "writing scratch file")
	}
	if n == 0 {
		os.Remove(path)
		return Upload{}, fault.New(fault.Validation, "empty file uploaded")
	}

	return Upload{Path: path, OriginalName: originalName, Size: n}, nil
}

// EffectiveQuery trims the supplied query and falls back to DefaultQuery
// when the caller supplied none.
func EffectiveQuery(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return DefaultQuery
	}
	return query
}
