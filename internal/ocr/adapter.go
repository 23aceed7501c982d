package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RemoteEngine adapts a hosted Client to the Engine interface:
// upload -> signed URL -> process.
type RemoteEngine struct {
	client Client
	model  string
	logger *slog.Logger
}

func NewRemoteEngine(c Client, model string, logger *slog.Logger) *RemoteEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &RemoteEngine{client: c, model: model, logger: logger}
}

func (e *RemoteEngine) Name() string { return "remote:" + e.model }

func (e *RemoteEngine) Recognize(ctx context.Context, pdfPath string) (Response, error) {
	start := time.Now()

	file, err := e.client.Upload(ctx, pdfPath)
	if err != nil {
		return Response{}, fmt.Errorf("upload: %w", err)
	}
	url, err := e.client.SignedURL(ctx, file)
	if err != nil {
		return Response{}, fmt.Errorf("signed url: %w", err)
	}
	res, err := e.client.Process(ctx, e.model, url)
	if err != nil {
		return Response{}, fmt.Errorf("process: %w", err)
	}

	e.logger.Debug("ocr.recognize.ok",
		"path", pdfPath,
		"file_id", file.ID,
		"pages", len(res.Pages),
		"images", res.ImageCount(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// ImageCount returns the number of image descriptors across all pages.
func (r Response) ImageCount() int {
	n := 0
	for _, p := range r.Pages {
		n += len(p.Images)
	}
	return n
}
