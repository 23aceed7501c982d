// Package resolve turns OCR image descriptors into files on disk using an
// ordered fallback chain: inline data, object bytes, extracted PDF images and
// finally a synthesized placeholder.
package resolve

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/mocr/constants"
	"github.com/joseph-ayodele/mocr/internal/common"
	"github.com/joseph-ayodele/mocr/internal/markdown"
	"github.com/joseph-ayodele/mocr/internal/ocr"
	"github.com/joseph-ayodele/mocr/internal/placeholder"
)

// Synthesizer renders a placeholder image for an identifier.
type Synthesizer interface {
	Render(id string, width, height int) ([]byte, error)
}

// Resolved is the outcome for one identifier.
type Resolved struct {
	Identifier  string
	Filename    string
	Path        string
	Disposition constants.Disposition
	// PoolID names the extracted image that was claimed, if any.
	PoolID string
	Width  int
	Height int
	Bytes  int
}

// Target returns the rewrite target for this image.
func (r Resolved) Target() markdown.Target {
	return markdown.Target{Identifier: r.Identifier, Filename: r.Filename}
}

// Failure is an image that could not be resolved at all.
type Failure struct {
	Identifier string
	Err        error
}

type Resolver struct {
	synth  Synthesizer
	logger *slog.Logger
}

func NewResolver(synth Synthesizer, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{synth: synth, logger: logger}
}

// ResolveAll resolves each descriptor once, writing files into dir. Duplicate
// identifiers (by extension-less form) after the first are ignored. Images
// whose placeholder cannot be written are returned as failures and left out
// of the result.
func (r *Resolver) ResolveAll(ctx context.Context, dir string, images []ocr.ImageDescriptor, pool *Pool) ([]Resolved, []Failure, error) {
	if len(images) == 0 {
		return nil, nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create image dir %s: %w", dir, err)
	}

	log := r.logger
	if runID := common.RunIDFromContext(ctx); runID != "" {
		log = log.With("run_id", runID)
	}
	if doc := common.DocumentFromContext(ctx); doc != "" {
		log = log.With("document", doc)
	}

	seen := make(map[string]struct{}, len(images))
	var (
		resolved []Resolved
		failures []Failure
	)
	for _, d := range images {
		if err := ctx.Err(); err != nil {
			return resolved, failures, err
		}
		key := markdown.StripExt(d.ID)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		res, err := r.resolve(log, dir, d, pool)
		if err != nil {
			log.Warn("resolve.image.unresolved", "id", d.ID, "error", err)
			failures = append(failures, Failure{Identifier: d.ID, Err: err})
			continue
		}
		resolved = append(resolved, res)
	}
	return resolved, failures, nil
}

// Resolve produces exactly one saved image for d, or an error when even the
// placeholder could not be written. Failures in earlier steps fall through.
func (r *Resolver) Resolve(dir string, d ocr.ImageDescriptor, pool *Pool) (Resolved, error) {
	return r.resolve(r.logger, dir, d, pool)
}

func (r *Resolver) resolve(logger *slog.Logger, dir string, d ocr.ImageDescriptor, pool *Pool) (Resolved, error) {
	res := Resolved{
		Identifier: d.ID,
		Filename:   Filename(d.ID),
	}
	res.Path = filepath.Join(dir, res.Filename)
	log := logger.With("id", d.ID, "file", res.Filename)

	if d.HasInlineData() {
		data, err := DecodeInline(*d.InlineData)
		if err == nil {
			err = writeFile(res.Path, data)
		}
		if err == nil {
			return r.saved(log, res, constants.FromInlineData, len(data)), nil
		}
		log.Debug("resolve.inline.failed", "error", err)
	}

	if d.HasObjectBytes() {
		err := writeFile(res.Path, d.ObjectBytes)
		if err == nil {
			return r.saved(log, res, constants.FromObjectBytes, len(d.ObjectBytes)), nil
		}
		log.Debug("resolve.object_bytes.failed", "error", err)
	}

	// a box sizes the placeholder; pool reuse ignores its coordinates
	width, height := placeholder.DefaultWidth, placeholder.DefaultHeight
	if d.BBox != nil {
		w, h := d.BBox.Size()
		width, height = placeholder.ClampSide(w), placeholder.ClampSide(h)
	}
	if entry, ok := pool.Take(); ok {
		n, err := copyFile(entry.Path, res.Path)
		if err == nil {
			if src, dst := imageExt(entry.Path), imageExt(res.Filename); src != dst {
				log.Debug("resolve.pool.ext_mismatch", "pool_id", entry.ID, "pool_ext", src, "saved_ext", dst)
			}
			res.PoolID = entry.ID
			return r.saved(log, res, constants.FromExtractedPDFImage, n), nil
		}
		log.Debug("resolve.pool.copy_failed", "pool_id", entry.ID, "error", err)
	}

	if r.synth == nil {
		return Resolved{}, errors.New("no placeholder synthesizer configured")
	}
	data, err := r.synth.Render(d.ID, width, height)
	if err != nil {
		return Resolved{}, fmt.Errorf("render placeholder: %w", err)
	}
	if err := writeFile(res.Path, data); err != nil {
		return Resolved{}, fmt.Errorf("write placeholder: %w", err)
	}
	res.Width, res.Height = width, height
	return r.saved(log, res, constants.SynthesizedPlaceholder, len(data)), nil
}

func (r *Resolver) saved(log *slog.Logger, res Resolved, disp constants.Disposition, n int) Resolved {
	res.Disposition = disp
	res.Bytes = n
	log.Info("resolve.image.saved", "disposition", string(disp), "bytes", n, "pool_id", res.PoolID)
	return res
}

// DecodeInline decodes a base64 payload, accepting a data: URI prefix and
// unpadded input.
func DecodeInline(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		i := strings.Index(s, ",")
		if i < 0 {
			return nil, errors.New("malformed data URI")
		}
		s = s[i+1:]
	}
	if s == "" {
		return nil, errors.New("empty inline data")
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	}
	if err != nil {
		return nil, fmt.Errorf("decode inline data: %w", err)
	}
	return data, nil
}

// imageExt is the lower-case extension of name with jpg folded into jpeg.
func imageExt(name string) string {
	ext := constants.NormalizeExt(filepath.Ext(name))
	if ext == "jpg" {
		return "jpeg"
	}
	return ext
}

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) (int, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return 0, err
	}
	if err := writeFile(dst, data); err != nil {
		return 0, err
	}
	return len(data), nil
}
