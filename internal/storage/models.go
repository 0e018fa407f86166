package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Analysis status values.
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Analysis is one pipeline run over an uploaded document.
type Analysis struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Filename   string    `json:"filename"`
	Query      string    `json:"query"`
	Status     string    `json:"status"` // "queued", "running", "completed", "failed"
	Result     string    `json:"result,omitempty"`
	DurationMs int64     `json:"duration_ms,omitempty"`
	LastError  string    `json:"last_error,omitempty"`
}

// Job is a queued unit of background work.
type Job struct {
	ID          string
	Type        string
	PayloadJSON string
	Status      string // "pending", "running", "completed", "failed"
	Attempts    int
	MaxAttempts int
	RunAfter    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastError   string
}
