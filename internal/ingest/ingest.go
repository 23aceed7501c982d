package ingest

import (
	"time"
)

// Document is one discovered input PDF.
type Document struct {
	Path    string
	Stem    string
	HashHex string
	Size    int64
	ModTime time.Time
}

// DirStats summarizes a directory scan.
type DirStats struct {
	Scanned uint32
	Matched uint32
	Failed  uint32
}
