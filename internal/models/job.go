package models

import "time"

// Ingestion run states.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// IngestRun describes one ingestion pipeline execution for a book.
type IngestRun struct {
	ID          string     `json:"id"`
	BookID      string     `json:"book_id"`
	Title       string     `json:"title"`
	Status      string     `json:"status"`
	Step        string     `json:"step,omitempty"` // last reported step
	ChunkCount  int        `json:"chunk_count"`
	Sources     []string   `json:"sources,omitempty"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
