package entity

import (
	"github.com/google/uuid"
)

// ImageRecord is one resolved image of a DocumentRun.
type ImageRecord struct {
	DocumentRunID uuid.UUID `json:"document_run_id"`
	Identifier    string    `json:"identifier"`
	Filename      string    `json:"filename"`
	Disposition   string    `json:"disposition"`
	PoolID        string    `json:"pool_id,omitempty"`
	Bytes         int       `json:"bytes"`
}
