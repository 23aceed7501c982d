package constants

// DocumentStatus is the canonical outcome of processing one input PDF.
type DocumentStatus string

// Stable values (store these exact strings in the ledger).
const (
	DocumentStatusRunning DocumentStatus = "RUNNING" // in progress
	DocumentStatusOK      DocumentStatus = "OK"      // markdown + images written
	DocumentStatusDryRun  DocumentStatus = "DRY_RUN" // placeholder markdown written, no OCR call
	DocumentStatusSkipped DocumentStatus = "SKIPPED" // already converted (resume)
	DocumentStatusFailed  DocumentStatus = "FAILED"  // terminal failure
)
