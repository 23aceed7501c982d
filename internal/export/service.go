package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/mocr/internal/entity"
	"github.com/joseph-ayodele/mocr/internal/repository"
)

const (
	documentsSheet = "Documents"
	imagesSheet    = "Images"
)

// DocumentRow is one document of a batch report with its images.
type DocumentRow struct {
	Run    *entity.DocumentRun
	Images []entity.ImageRecord
}

// Service produces XLSX batch reports, from a finished batch or from the ledger.
type Service struct {
	runs   repository.DocumentRunRepository
	logger *slog.Logger
}

// NewService accepts a nil repository when only in-memory reports are needed.
func NewService(runs repository.DocumentRunRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{runs: runs, logger: logger}
}

// BatchReportXLSX returns a workbook with a Documents sheet (one row per
// document) and an Images sheet (one row per resolved image).
func (s *Service) BatchReportXLSX(ctx context.Context, rows []DocumentRow) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func(f *excelize.File) {
		if err := f.Close(); err != nil {
			s.logger.Warn("export.xlsx.close_failed", "error", err)
		}
	}(f)

	if err := f.SetSheetName("Sheet1", documentsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(imagesSheet); err != nil {
		return nil, err
	}
	activeIndex, _ := f.GetSheetIndex(documentsSheet)
	f.SetActiveSheet(activeIndex)

	writeRow(f, documentsSheet, 1, []any{
		"Document", "Source", "Status", "Engine", "Pages", "Images",
		"Placeholders", "Unresolved", "Markdown", "Duration (ms)", "Error",
	})
	writeRow(f, imagesSheet, 1, []any{
		"Document", "Identifier", "Filename", "Disposition", "Pool Image", "Bytes",
	})

	docRow, imgRow := 2, 2
	for _, r := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		run := r.Run
		errMsg := ""
		if run.ErrorMessage != nil {
			errMsg = truncate(*run.ErrorMessage, 200)
		}
		writeRow(f, documentsSheet, docRow, []any{
			run.Stem, run.SourcePath, run.Status, run.Engine, run.Pages, run.Images,
			run.Placeholders, run.Unresolved, run.MarkdownPath, run.Duration().Milliseconds(), errMsg,
		})
		docRow++

		for _, img := range r.Images {
			writeRow(f, imagesSheet, imgRow, []any{
				run.Stem, img.Identifier, img.Filename, img.Disposition, img.PoolID, img.Bytes,
			})
			imgRow++
		}
	}

	// Widen a few columns
	_ = f.SetColWidth(documentsSheet, "A", "A", 28) // document
	_ = f.SetColWidth(documentsSheet, "B", "B", 48) // source
	_ = f.SetColWidth(documentsSheet, "C", "D", 12)
	_ = f.SetColWidth(documentsSheet, "I", "I", 40) // markdown
	_ = f.SetColWidth(documentsSheet, "K", "K", 60) // error
	_ = f.SetColWidth(imagesSheet, "A", "C", 28)
	_ = f.SetColWidth(imagesSheet, "D", "D", 26) // disposition

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"documents", len(rows),
		"images", imgRow-2,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// WriteBatchReport writes the batch report workbook to path.
func (s *Service) WriteBatchReport(ctx context.Context, path string, rows []DocumentRow) error {
	data, err := s.BatchReportXLSX(ctx, rows)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// RecentFromLedger builds report rows for the newest runs in the ledger.
func (s *Service) RecentFromLedger(ctx context.Context, limit int) ([]DocumentRow, error) {
	if s.runs == nil {
		return nil, fmt.Errorf("no ledger configured")
	}
	runs, err := s.runs.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	rows := make([]DocumentRow, 0, len(runs))
	for _, run := range runs {
		images, err := s.runs.ImagesFor(ctx, run.ID)
		if err != nil {
			return nil, fmt.Errorf("query images for %s: %w", run.Stem, err)
		}
		rows = append(rows, DocumentRow{Run: run, Images: images})
	}
	return rows, nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
