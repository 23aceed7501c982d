package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joseph-ayodele/mocr/constants"
)

// FSIngestor discovers input PDFs on the local filesystem.
type FSIngestor struct {
	logger     *slog.Logger
	SkipHidden bool
}

func NewFSIngestor(logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{logger: logger, SkipHidden: true}
}

// Describe hashes one file and returns its Document.
func (i *FSIngestor) Describe(path string) (Document, error) {
	var out Document

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, fmt.Errorf("abs path: %w", err)
	}
	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !AllowedExt(ext) {
		return out, fmt.Errorf("unsupported or missing extension: %q", ext)
	}

	f, err := os.Open(abs)
	if err != nil {
		return out, fmt.Errorf("open: %w", err)
	}
	defer func(f *os.File) {
		err := f.Close()
		if err != nil {
			i.logger.Warn("ingest.close.failed", "path", abs, "error", err)
		}
	}(f)

	info, err := f.Stat()
	if err != nil {
		return out, fmt.Errorf("stat: %w", err)
	}
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return out, fmt.Errorf("hash: %w", err)
	}

	return Document{
		Path:    abs,
		Stem:    constants.Stem(abs),
		HashHex: hex.EncodeToString(h.Sum(nil)),
		Size:    info.Size(),
		ModTime: info.ModTime().UTC(),
	}, nil
}

// ScanDirectory lists the PDFs directly inside root (no recursion), sorted by
// name. Files that cannot be read are counted as failed and left out.
func (i *FSIngestor) ScanDirectory(ctx context.Context, root string) ([]Document, DirStats, error) {
	var stats DirStats
	if strings.TrimSpace(root) == "" {
		return nil, stats, errors.New("input directory is required")
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, stats, fmt.Errorf("read dir %s: %w", root, err)
	}
	sort.Slice(entries, func(a, b int) bool { return entries[a].Name() < entries[b].Name() })

	var docs []Document
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return docs, stats, err
		}
		stats.Scanned++
		if e.IsDir() || (i.SkipHidden && IsHidden(e.Name())) {
			continue
		}
		if !AllowedExt(filepath.Ext(e.Name())) {
			continue
		}
		stats.Matched++

		doc, err := i.Describe(filepath.Join(root, e.Name()))
		if err != nil {
			i.logger.Warn("ingest.describe.failed", "file", e.Name(), "error", err)
			stats.Failed++
			continue
		}
		docs = append(docs, doc)
	}
	return docs, stats, nil
}
