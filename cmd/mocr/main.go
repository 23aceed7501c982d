package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/mocr/constants"
	"github.com/joseph-ayodele/mocr/internal/async"
	"github.com/joseph-ayodele/mocr/internal/common"
	"github.com/joseph-ayodele/mocr/internal/core"
	"github.com/joseph-ayodele/mocr/internal/export"
	"github.com/joseph-ayodele/mocr/internal/ingest"
	"github.com/joseph-ayodele/mocr/internal/ocr"
	"github.com/joseph-ayodele/mocr/internal/ocr/mistral"
	"github.com/joseph-ayodele/mocr/internal/ocr/textlayer"
	"github.com/joseph-ayodele/mocr/internal/pdfimages"
	"github.com/joseph-ayodele/mocr/internal/placeholder"
	repo "github.com/joseph-ayodele/mocr/internal/repository"
	"github.com/joseph-ayodele/mocr/internal/resolve"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout)
	stop()
	os.Exit(code)
}

type flags struct {
	dryRun           bool
	debug            bool
	extractPDFImages bool
	resume           bool
	watch            bool
	inDir            string
	outDir           string
	engine           string
	report           string
	ledger           string
	font             string
}

func parseFlags(args []string, out io.Writer) (flags, error) {
	var f flags
	fs := flag.NewFlagSet("mocr", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.BoolVar(&f.dryRun, "dry-run", false, "run without making API calls")
	fs.BoolVar(&f.debug, "debug", false, "enable debug output")
	fs.BoolVar(&f.extractPDFImages, "extract-pdf-images", false, "extract images directly from the PDF files")
	fs.BoolVar(&f.resume, "resume", false, "skip PDFs the ledger already converted")
	fs.BoolVar(&f.watch, "watch", false, "keep watching the input directory after the batch")
	fs.StringVar(&f.inDir, "in", "", "input directory (default $MOCR_IN_DIR or ./in)")
	fs.StringVar(&f.outDir, "out", "", "output directory (default $MOCR_OUT_DIR or ./out)")
	fs.StringVar(&f.engine, "engine", "", "OCR engine: mistral or textlayer")
	fs.StringVar(&f.report, "report", "", "write an XLSX batch report to this path")
	fs.StringVar(&f.ledger, "ledger", "", "run ledger DSN (sqlite path or postgres:// URL)")
	fs.StringVar(&f.font, "font", "", "TrueType font for placeholder labels")
	err := fs.Parse(args)
	return f, err
}

// applyFlags overrides environment configuration with explicit flags.
func applyFlags(cfg *common.Config, f flags) {
	if f.inDir != "" {
		cfg.Paths.InDir = f.inDir
	}
	if f.outDir != "" {
		cfg.Paths.OutDir = f.outDir
	}
	if f.engine != "" {
		cfg.OCR.Engine = f.engine
	}
	if f.report != "" {
		cfg.Report.Path = f.report
	}
	if f.ledger != "" {
		cfg.Ledger.DSN = f.ledger
	}
	if f.font != "" {
		cfg.Placeholder.FontPath = f.font
	}
	if f.extractPDFImages {
		cfg.Extract.Enabled = true
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) int {
	f, err := parseFlags(args, stdout)
	if err != nil {
		return 2
	}
	cfg := common.LoadConfig()
	applyFlags(cfg, f)

	// nothing may be printed before the configuration diagnostic
	if err := cfg.Validate(f.dryRun); err != nil {
		_, _ = fmt.Fprintln(stdout, common.UserMessage(err))
		return 1
	}

	level := slog.LevelInfo
	if f.debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	deps := core.Deps{
		Ingestor: ingest.NewFSIngestor(logger),
		Resolver: resolve.NewResolver(placeholder.NewSynthesizer(placeholder.Config{
			FontPath: cfg.Placeholder.FontPath,
			FontSize: cfg.Placeholder.FontSize,
		}, logger), logger),
	}
	if cfg.Extract.Enabled {
		deps.Extractor = pdfimages.NewExtractor(cfg.Extract.MinSide, logger)
	}
	if !f.dryRun {
		deps.Engine = newEngine(cfg, logger)
	}

	if cfg.Ledger.DSN != "" {
		db, err := repo.Open(ctx, repo.Config{
			DSN:             cfg.Ledger.DSN,
			MaxConns:        cfg.Ledger.MaxConns,
			MinConns:        cfg.Ledger.MinConns,
			MaxConnLifetime: cfg.Ledger.MaxConnLifetime,
			MaxConnIdleTime: cfg.Ledger.MaxConnIdleTime,
			DialTimeout:     cfg.Ledger.DialTimeout,
		}, logger)
		if err != nil {
			logger.Error("ledger.open.failed", "error", err)
			return 1
		}
		defer repo.Close(db, logger)
		deps.Runs = repo.NewDocumentRunRepository(db, logger)
	} else if f.resume {
		logger.Warn("resume.disabled", "reason", "no ledger configured")
	}
	deps.Reports = export.NewService(deps.Runs, logger)

	proc := core.NewProcessor(logger, deps, core.Options{
		InDir:      cfg.Paths.InDir,
		OutDir:     cfg.Paths.OutDir,
		DryRun:     f.dryRun,
		Resume:     f.resume,
		ReportPath: cfg.Report.Path,
	})

	batch, err := proc.RunBatch(ctx)
	printSummary(stdout, cfg.Paths.InDir, batch)
	if err != nil && ctx.Err() == nil {
		logger.Error("batch.failed", "error", err)
		_, _ = fmt.Fprintln(stdout, "Processing complete!")
		return 1
	}

	if f.watch && ctx.Err() == nil {
		if err := watch(ctx, proc, cfg, logger, stdout); err != nil {
			logger.Error("watch.failed", "error", err)
		}
	}

	_, _ = fmt.Fprintln(stdout, "Processing complete!")
	return 0
}

func newEngine(cfg *common.Config, logger *slog.Logger) ocr.Engine {
	switch cfg.OCR.Engine {
	case common.EngineTextLayer:
		return textlayer.NewEngine(pdfimages.NewExtractor(cfg.Extract.MinSide, logger), logger)
	default:
		client := mistral.NewClient(mistral.Config{
			APIKey:             cfg.OCR.APIKey,
			BaseURL:            cfg.OCR.BaseURL,
			Model:              cfg.OCR.Model,
			Timeout:            cfg.OCR.Timeout,
			IncludeImageBase64: cfg.OCR.IncludeImageBase64,
			SignedURLExpiry:    cfg.OCR.SignedURLExpiry,
		}, logger)
		return ocr.NewRemoteEngine(client, client.Model(), logger)
	}
}

// watch processes PDFs that appear in the input directory until ctx is done.
func watch(ctx context.Context, proc *core.Processor, cfg *common.Config, logger *slog.Logger, stdout io.Writer) error {
	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:    []string{cfg.Paths.InDir},
		Debounce: cfg.Watch.Debounce,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	q := async.NewProcessorQueue(proc, logger, async.WithResultHandler(func(res core.DocumentResult) {
		printDocument(stdout, res)
	}))
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		q.Shutdown(shutdownCtx)
	}()

	runID := uuid.New()
	logger.Info("watch.start", "dir", cfg.Paths.InDir, "debounce", cfg.Watch.Debounce.String())
	for {
		select {
		case <-ctx.Done():
			return nil
		case path, ok := <-events:
			if !ok {
				return nil
			}
			if err := q.Enqueue(ctx, async.Job{Path: path, RunID: runID}); err != nil {
				logger.Warn("watch.enqueue.failed", "path", path, "error", err)
			}
		case err, ok := <-errs:
			if ok && err != nil {
				logger.Warn("watch.error", "error", err)
			}
		}
	}
}

func printSummary(w io.Writer, inDir string, batch core.BatchResult) {
	if len(batch.Documents) == 0 {
		_, _ = fmt.Fprintf(w, "No PDF files found in %s\n", inDir)
		return
	}
	_, _ = fmt.Fprintf(w, "Found %d PDF files to process\n", len(batch.Documents))
	for _, res := range batch.Documents {
		printDocument(w, res)
	}
	_, _ = fmt.Fprintf(w, "Converted: %d  Dry run: %d  Skipped: %d  Failed: %d\n",
		batch.Count(constants.DocumentStatusOK),
		batch.Count(constants.DocumentStatusDryRun),
		batch.Count(constants.DocumentStatusSkipped),
		batch.Count(constants.DocumentStatusFailed),
	)
}

func printDocument(w io.Writer, res core.DocumentResult) {
	name := filepath.Base(res.Document.Path)
	switch res.Status {
	case constants.DocumentStatusFailed:
		_, _ = fmt.Fprintf(w, "Error processing %s: %v\n", name, res.Err)
	case constants.DocumentStatusDryRun:
		_, _ = fmt.Fprintf(w, "[DRY RUN] Created dummy output at %s\n", res.MarkdownPath)
	case constants.DocumentStatusSkipped:
		_, _ = fmt.Fprintf(w, "Skipped %s (already converted to %s)\n", name, res.MarkdownPath)
	default:
		_, _ = fmt.Fprintf(w, "Processed %s: %d pages, %d images (%d placeholders, %d unresolved) -> %s\n",
			name, res.Pages, len(res.Resolved), res.Placeholders(), len(res.Failures), res.MarkdownPath)
	}
}
