package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/mocr/constants"
	"github.com/joseph-ayodele/mocr/internal/common"
	"github.com/joseph-ayodele/mocr/internal/export"
	"github.com/joseph-ayodele/mocr/internal/ingest"
	"github.com/joseph-ayodele/mocr/internal/markdown"
	"github.com/joseph-ayodele/mocr/internal/ocr"
	"github.com/joseph-ayodele/mocr/internal/pdfimages"
	"github.com/joseph-ayodele/mocr/internal/repository"
	"github.com/joseph-ayodele/mocr/internal/resolve"
)

// ImageExtractor pulls raster images out of a PDF into dir, best-effort.
type ImageExtractor interface {
	Extract(ctx context.Context, pdfPath, dir string) []pdfimages.Saved
}

type Options struct {
	InDir      string
	OutDir     string
	DryRun     bool
	Resume     bool
	ReportPath string
}

// Deps are the collaborators of a Processor. Engine may be nil in dry-run;
// Extractor, Runs and Reports are optional.
type Deps struct {
	Engine    ocr.Engine
	Extractor ImageExtractor
	Resolver  *resolve.Resolver
	Ingestor  *ingest.FSIngestor
	Runs      repository.DocumentRunRepository
	Reports   *export.Service
}

// Processor converts input PDFs to markdown one document at a time.
type Processor struct {
	logger *slog.Logger
	deps   Deps
	opts   Options
}

func NewProcessor(logger *slog.Logger, deps Deps, opts Options) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Ingestor == nil {
		deps.Ingestor = ingest.NewFSIngestor(logger)
	}
	if deps.Resolver == nil {
		deps.Resolver = resolve.NewResolver(nil, logger)
	}
	return &Processor{logger: logger, deps: deps, opts: opts}
}

// RunBatch processes every PDF in the input directory. Per-document failures
// are recorded in the result and never abort the batch; the returned error is
// only set when the batch itself could not run.
func (p *Processor) RunBatch(ctx context.Context) (BatchResult, error) {
	batch := BatchResult{RunID: uuid.New(), StartedAt: time.Now().UTC()}
	ctx = common.WithRunID(ctx, batch.RunID.String())

	if err := os.MkdirAll(p.opts.OutDir, 0o755); err != nil {
		return batch, fmt.Errorf("create output dir: %w", err)
	}

	docs, stats, err := p.deps.Ingestor.ScanDirectory(ctx, p.opts.InDir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return batch, fmt.Errorf("scan input: %w", err)
	}
	batch.Stats = stats
	if len(docs) == 0 {
		p.logger.Info("batch.empty", "msg", "No PDF files found in "+p.opts.InDir, "in_dir", p.opts.InDir)
		batch.FinishedAt = time.Now().UTC()
		return batch, nil
	}
	p.logger.Info("batch.start", "run_id", batch.RunID, "documents", len(docs), "dry_run", p.opts.DryRun)

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			batch.FinishedAt = time.Now().UTC()
			return batch, err
		}
		batch.Documents = append(batch.Documents, p.ProcessDocument(ctx, batch.RunID, doc))
	}
	batch.FinishedAt = time.Now().UTC()

	p.logger.Info("batch.done",
		"run_id", batch.RunID,
		"ok", batch.Count(constants.DocumentStatusOK),
		"dry_run", batch.Count(constants.DocumentStatusDryRun),
		"skipped", batch.Count(constants.DocumentStatusSkipped),
		"failed", batch.Count(constants.DocumentStatusFailed),
	)
	if err := p.writeReport(ctx, batch); err != nil {
		p.logger.Warn("batch.report.failed", "path", p.opts.ReportPath, "error", err)
	}
	return batch, nil
}

// ProcessFile describes and processes one PDF outside of a directory scan.
func (p *Processor) ProcessFile(ctx context.Context, runID uuid.UUID, path string) DocumentResult {
	doc, err := p.deps.Ingestor.Describe(path)
	if err != nil {
		now := time.Now().UTC()
		return DocumentResult{
			Document:   ingest.Document{Path: path, Stem: constants.Stem(path)},
			Status:     constants.DocumentStatusFailed,
			Err:        err,
			StartedAt:  now,
			FinishedAt: now,
		}
	}
	return p.ProcessDocument(ctx, runID, doc)
}

// ProcessDocument converts one PDF and records the outcome. It never panics
// or returns an error; failures are reported in the result.
func (p *Processor) ProcessDocument(ctx context.Context, runID uuid.UUID, doc ingest.Document) DocumentResult {
	ctx = common.WithDocument(ctx, doc.Stem)
	log := p.logger.With("document", doc.Stem, "run_id", runID)
	res := DocumentResult{Document: doc, StartedAt: time.Now().UTC()}
	log.Info("document.start", "path", doc.Path)

	err := p.process(ctx, log, doc, &res)
	res.FinishedAt = time.Now().UTC()
	switch {
	case err != nil:
		res.Status = constants.DocumentStatusFailed
		res.Err = err
		log.Error("document.failed", "error", err)
	default:
		log.Info("document.done",
			"status", string(res.Status),
			"markdown", res.MarkdownPath,
			"pages", res.Pages,
			"images", len(res.Resolved),
			"unresolved", len(res.Failures),
			"elapsed_ms", res.FinishedAt.Sub(res.StartedAt).Milliseconds(),
		)
	}

	p.record(ctx, log, runID, &res)
	return res
}

func (p *Processor) process(ctx context.Context, log *slog.Logger, doc ingest.Document, res *DocumentResult) error {
	resourceDir := filepath.Join(p.opts.OutDir, doc.Stem)
	mdPath := filepath.Join(p.opts.OutDir, doc.Stem+".md")

	if p.opts.Resume && p.deps.Runs != nil && doc.HashHex != "" {
		prev, err := p.deps.Runs.LastSuccessByHash(ctx, doc.HashHex)
		if err == nil && fileExists(prev.MarkdownPath) {
			log.Info("document.skipped", "previous_run", prev.RunID, "markdown", prev.MarkdownPath)
			res.Status = constants.DocumentStatusSkipped
			res.MarkdownPath = prev.MarkdownPath
			return nil
		}
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			log.Warn("document.resume.lookup_failed", "error", err)
		}
	}

	if err := os.MkdirAll(resourceDir, 0o755); err != nil {
		return fmt.Errorf("create resource dir: %w", err)
	}

	if p.opts.DryRun {
		name := filepath.Base(doc.Path)
		if err := os.WriteFile(mdPath, []byte(DryRunMarkdown(name)), 0o644); err != nil {
			return fmt.Errorf("write dry-run markdown: %w", err)
		}
		log.Info("document.dry_run", "markdown", mdPath)
		res.Status = constants.DocumentStatusDryRun
		res.MarkdownPath = mdPath
		return nil
	}

	if p.deps.Engine == nil {
		return common.NewAppError("CONFIG_ERROR", "no OCR engine configured", common.ErrInvalidInput)
	}
	resp, err := p.deps.Engine.Recognize(ctx, doc.Path)
	if err != nil {
		return common.WrapError(err, "ocr")
	}
	res.Pages = len(resp.Pages)

	pool, cleanup := p.extractPool(ctx, log, doc)
	defer cleanup()

	images := resolve.Discover(resp.Pages)
	resolved, failures, err := p.deps.Resolver.ResolveAll(ctx, resourceDir, images, pool)
	res.Resolved, res.Failures = resolved, failures
	if err != nil {
		return common.WrapError(err, "resolve images")
	}

	targets := make([]markdown.Target, len(resolved))
	for i, r := range resolved {
		targets[i] = r.Target()
	}
	rw := markdown.NewRewriter(doc.Stem, targets)
	pages := make([]string, len(resp.Pages))
	for i, pg := range resp.Pages {
		pages[i] = pg.Markdown
	}
	out := rw.Join(pages)

	res.Audit = markdown.Audit(doc.Stem, []byte(out))
	if len(res.Audit.Dangling) > 0 {
		log.Warn("document.audit.dangling", "count", len(res.Audit.Dangling), "refs", res.Audit.Dangling)
	}

	if err := os.WriteFile(mdPath, []byte(out), 0o644); err != nil {
		return common.WrapError(err, "write markdown")
	}
	res.Status = constants.DocumentStatusOK
	res.MarkdownPath = mdPath
	return nil
}

// extractPool runs the optional raw image extractor into a scratch directory.
// The returned cleanup removes the scratch files.
func (p *Processor) extractPool(ctx context.Context, log *slog.Logger, doc ingest.Document) (*resolve.Pool, func()) {
	noop := func() {}
	if p.deps.Extractor == nil {
		return resolve.NewPool(nil), noop
	}
	dir, err := os.MkdirTemp("", "mocr-"+doc.Stem+"-*")
	if err != nil {
		log.Warn("document.extract.scratch_failed", "error", err)
		return resolve.NewPool(nil), noop
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Debug("document.extract.cleanup_failed", "dir", dir, "error", err)
		}
	}
	found := p.deps.Extractor.Extract(ctx, doc.Path, dir)
	entries := make([]resolve.PoolEntry, len(found))
	for i, img := range found {
		entries[i] = resolve.PoolEntry{ID: img.ID, Page: img.Page, Index: img.Index, Path: img.Path}
	}
	log.Debug("document.extract.ok", "images", len(entries))
	return resolve.NewPool(entries), cleanup
}

func (p *Processor) record(ctx context.Context, log *slog.Logger, runID uuid.UUID, res *DocumentResult) {
	if p.deps.Runs == nil {
		return
	}
	run, images := res.Entities(runID, p.engineName())
	if err := p.deps.Runs.Record(ctx, run, images); err != nil {
		log.Warn("document.ledger.failed", "error", err)
	}
}

func (p *Processor) writeReport(ctx context.Context, batch BatchResult) error {
	if p.opts.ReportPath == "" {
		return nil
	}
	reports := p.deps.Reports
	if reports == nil {
		reports = export.NewService(p.deps.Runs, p.logger)
	}
	rows := make([]export.DocumentRow, 0, len(batch.Documents))
	for i := range batch.Documents {
		run, images := batch.Documents[i].Entities(batch.RunID, p.engineName())
		rows = append(rows, export.DocumentRow{Run: run, Images: images})
	}
	return reports.WriteBatchReport(ctx, p.opts.ReportPath, rows)
}

func (p *Processor) engineName() string {
	if p.opts.DryRun {
		return "dry-run"
	}
	if p.deps.Engine == nil {
		return ""
	}
	return p.deps.Engine.Name()
}

// DryRunMarkdown is the placeholder body written for each PDF in dry-run mode.
func DryRunMarkdown(filename string) string {
	return "# Dummy content for " + filename + "\n\nThis is a dry run test."
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
