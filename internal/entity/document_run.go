package entity

import (
	"time"

	"github.com/google/uuid"
)

// DocumentRun is one processing attempt of one input PDF.
type DocumentRun struct {
	ID           uuid.UUID  `json:"id"`
	RunID        uuid.UUID  `json:"run_id"`
	Stem         string     `json:"stem"`
	SourcePath   string     `json:"source_path"`
	ContentHash  string     `json:"content_hash"`
	Engine       string     `json:"engine"`
	Status       string     `json:"status"`
	Pages        int        `json:"pages"`
	Images       int        `json:"images"`
	Placeholders int        `json:"placeholders"`
	Unresolved   int        `json:"unresolved"`
	MarkdownPath string     `json:"markdown_path,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// Duration is zero until the run has finished.
func (d *DocumentRun) Duration() time.Duration {
	if d.FinishedAt == nil {
		return 0
	}
	return d.FinishedAt.Sub(d.StartedAt)
}
