package core

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/mocr/constants"
	"github.com/joseph-ayodele/mocr/internal/entity"
	"github.com/joseph-ayodele/mocr/internal/ingest"
	"github.com/joseph-ayodele/mocr/internal/markdown"
	"github.com/joseph-ayodele/mocr/internal/resolve"
)

// DocumentResult is the outcome of one document.
type DocumentResult struct {
	Document     ingest.Document
	Status       constants.DocumentStatus
	MarkdownPath string
	Pages        int
	Resolved     []resolve.Resolved
	Failures     []resolve.Failure
	Audit        markdown.AuditReport
	Err          error
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Placeholders counts images that were synthesized.
func (r *DocumentResult) Placeholders() int {
	n := 0
	for _, img := range r.Resolved {
		if img.Disposition.IsPlaceholder() {
			n++
		}
	}
	return n
}

// Entities converts the result into ledger rows.
func (r *DocumentResult) Entities(runID uuid.UUID, engine string) (*entity.DocumentRun, []entity.ImageRecord) {
	finished := r.FinishedAt
	run := &entity.DocumentRun{
		ID:           uuid.New(),
		RunID:        runID,
		Stem:         r.Document.Stem,
		SourcePath:   r.Document.Path,
		ContentHash:  r.Document.HashHex,
		Engine:       engine,
		Status:       string(r.Status),
		Pages:        r.Pages,
		Images:       len(r.Resolved),
		Placeholders: r.Placeholders(),
		Unresolved:   len(r.Failures),
		MarkdownPath: r.MarkdownPath,
		StartedAt:    r.StartedAt,
		FinishedAt:   &finished,
	}
	if r.Err != nil {
		msg := r.Err.Error()
		run.ErrorMessage = &msg
	}

	images := make([]entity.ImageRecord, 0, len(r.Resolved))
	for _, img := range r.Resolved {
		images = append(images, entity.ImageRecord{
			DocumentRunID: run.ID,
			Identifier:    img.Identifier,
			Filename:      img.Filename,
			Disposition:   string(img.Disposition),
			PoolID:        img.PoolID,
			Bytes:         img.Bytes,
		})
	}
	return run, images
}

// BatchResult summarizes one pass over the input directory.
type BatchResult struct {
	RunID      uuid.UUID
	Stats      ingest.DirStats
	Documents  []DocumentResult
	StartedAt  time.Time
	FinishedAt time.Time
}

// Count returns the number of documents that ended in status.
func (b BatchResult) Count(status constants.DocumentStatus) int {
	n := 0
	for _, d := range b.Documents {
		if d.Status == status {
			n++
		}
	}
	return n
}
