package tool

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/finsight/finsight/internal/fault"
)

// Reader extracts plain text from financial documents (PDF, TXT, CSV).
type Reader struct{}

func (Reader) Name() string { return NameReadDocument }

func (Reader) Description() string {
	return "Read and extract text content from a financial document (PDF, TXT, or CSV)."
}

// Run reads the document at the given path and returns cleaned plain text.
func (Reader) Run(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fault.Wrap(fault.IO, err, "reading document %s", path)
	}

	var text string
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".pdf":
		text, err = extractPDF(data)
		if err != nil {
			return "", fault.Wrap(fault.IO, err, "extracting PDF text from %s", path)
		}
	case ".txt":
		text = string(data)
	case ".csv":
		text, err = renderCSV(path, data)
		if err != nil {
			return "", fault.Wrap(fault.IO, err, "parsing CSV %s", path)
		}
	default:
		return "", fault.New(fault.Validation, "unsupported document type %q", ext)
	}

	return cleanText(text), nil
}

// extractPDF pulls the plain-text stream out of a PDF held in memory.
func extractPDF(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	out, err := io.ReadAll(plain)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

const maxCSVPreviewRows = 50

// renderCSV formats CSV rows as readable lines, previewing at most 50 rows.
func renderCSV(path string, data []byte) (string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- Spreadsheet Data: %s ---\n", filepath.Base(path))
	fmt.Fprintf(&sb, "%d rows\n\n", len(rows))
	for i, row := range rows {
		if i >= maxCSVPreviewRows {
			fmt.Fprintf(&sb, "... (%d more rows)\n", len(rows)-maxCSVPreviewRows)
			break
		}
		sb.WriteString(strings.Join(row, " | "))
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

var (
	blankLines  = regexp.MustCompile(`\n\s*\n`)
	multiSpaces = regexp.MustCompile(` +`)
	nonASCII    = regexp.MustCompile(`[^\x00-\x7F]+`)
)

// cleanText normalizes extracted text: collapses blank runs, squeezes
// repeated spaces, and replaces non-ASCII sequences with a single space.
func cleanText(text string) string {
	if text == "" {
		return ""
	}
	text = blankLines.ReplaceAllString(text, "\n\n")
	text = multiSpaces.ReplaceAllString(text, " ")
	text = nonASCII.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
