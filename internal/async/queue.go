package async

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Job asks for one PDF to be processed.
type Job struct {
	Path        string
	RunID       uuid.UUID
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
