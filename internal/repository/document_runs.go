package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/mocr/constants"
	"github.com/joseph-ayodele/mocr/internal/common"
	"github.com/joseph-ayodele/mocr/internal/entity"
)

type DocumentRunRepository interface {
	Record(ctx context.Context, run *entity.DocumentRun, images []entity.ImageRecord) error
	LastSuccessByHash(ctx context.Context, contentHash string) (*entity.DocumentRun, error)
	Recent(ctx context.Context, limit int) ([]*entity.DocumentRun, error)
	ImagesFor(ctx context.Context, documentRunID uuid.UUID) ([]entity.ImageRecord, error)
}

type documentRunRepo struct {
	db  *DB
	log *slog.Logger
}

func NewDocumentRunRepository(db *DB, log *slog.Logger) DocumentRunRepository {
	if log == nil {
		log = slog.Default()
	}
	return &documentRunRepo{db: db, log: log}
}

const runColumns = `id, run_id, stem, source_path, content_hash, engine, status, pages, images,
	placeholders, unresolved, markdown_path, error_message, started_at, finished_at`

// Record stores a finished run and its images in one transaction.
func (r *documentRunRepo) Record(ctx context.Context, run *entity.DocumentRun, images []entity.ImageRecord) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	tx, err := r.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return dbError("begin ledger tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, r.db.rebind(`INSERT INTO document_runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		run.ID.String(), run.RunID.String(), run.Stem, run.SourcePath, run.ContentHash,
		run.Engine, run.Status, run.Pages, run.Images, run.Placeholders, run.Unresolved,
		run.MarkdownPath, nullString(run.ErrorMessage), formatTime(run.StartedAt), nullTime(run.FinishedAt),
	)
	if err != nil {
		r.log.Error("ledger.record.failed", "stem", run.Stem, "error", err)
		return dbError("insert document run", err)
	}

	for _, img := range images {
		_, err = tx.ExecContext(ctx, r.db.rebind(`INSERT INTO document_images
			(document_run_id, identifier, filename, disposition, pool_id, bytes)
			VALUES (?, ?, ?, ?, ?, ?)`),
			run.ID.String(), img.Identifier, img.Filename, img.Disposition, img.PoolID, img.Bytes,
		)
		if err != nil {
			r.log.Error("ledger.record.image_failed", "stem", run.Stem, "id", img.Identifier, "error", err)
			return dbError("insert document image", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return dbError("commit ledger tx", err)
	}
	r.log.Debug("ledger.record.ok", "stem", run.Stem, "status", run.Status, "images", len(images))
	return nil
}

// LastSuccessByHash returns the newest OK run for a content hash, or an error
// wrapping common.ErrNotFound.
func (r *documentRunRepo) LastSuccessByHash(ctx context.Context, contentHash string) (*entity.DocumentRun, error) {
	row := r.db.SQL.QueryRowContext(ctx, r.db.rebind(`SELECT `+runColumns+` FROM document_runs
		WHERE content_hash = ? AND status = ?
		ORDER BY started_at DESC LIMIT 1`),
		contentHash, string(constants.DocumentStatusOK),
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no successful run for hash %s: %w", contentHash, common.ErrNotFound)
	}
	if err != nil {
		return nil, dbError("query document run", err)
	}
	return run, nil
}

func (r *documentRunRepo) Recent(ctx context.Context, limit int) ([]*entity.DocumentRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.SQL.QueryContext(ctx, r.db.rebind(`SELECT `+runColumns+` FROM document_runs
		ORDER BY started_at DESC LIMIT ?`), limit)
	if err != nil {
		return nil, dbError("list document runs", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var out []*entity.DocumentRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, dbError("scan document run", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (r *documentRunRepo) ImagesFor(ctx context.Context, documentRunID uuid.UUID) ([]entity.ImageRecord, error) {
	rows, err := r.db.SQL.QueryContext(ctx, r.db.rebind(`SELECT identifier, filename, disposition, pool_id, bytes
		FROM document_images WHERE document_run_id = ? ORDER BY identifier`), documentRunID.String())
	if err != nil {
		return nil, dbError("list document images", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var out []entity.ImageRecord
	for rows.Next() {
		img := entity.ImageRecord{DocumentRunID: documentRunID}
		if err := rows.Scan(&img.Identifier, &img.Filename, &img.Disposition, &img.PoolID, &img.Bytes); err != nil {
			return nil, dbError("scan document image", err)
		}
		out = append(out, img)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*entity.DocumentRun, error) {
	var (
		run                entity.DocumentRun
		id, runID, started string
		errMsg, finished   sql.NullString
	)
	err := s.Scan(&id, &runID, &run.Stem, &run.SourcePath, &run.ContentHash, &run.Engine, &run.Status,
		&run.Pages, &run.Images, &run.Placeholders, &run.Unresolved, &run.MarkdownPath,
		&errMsg, &started, &finished)
	if err != nil {
		return nil, err
	}
	if run.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse id: %w", err)
	}
	if run.RunID, err = uuid.Parse(runID); err != nil {
		return nil, fmt.Errorf("parse run_id: %w", err)
	}
	if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if errMsg.Valid {
		run.ErrorMessage = &errMsg.String
	}
	if finished.Valid {
		t, err := time.Parse(time.RFC3339Nano, finished.String)
		if err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		run.FinishedAt = &t
	}
	return &run, nil
}

func dbError(msg string, err error) error {
	return fmt.Errorf("%s: %w: %w", msg, common.ErrDatabase, err)
}

// timeLayout keeps every stored timestamp the same width so TEXT columns
// order chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
