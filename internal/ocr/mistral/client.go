package mistral

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/mocr/internal/common"
	"github.com/joseph-ayodele/mocr/internal/ocr"
)

var _ ocr.Client = (*Client)(nil)

// Upload sends the PDF to the files endpoint with purpose "ocr".
func (c *Client) Upload(ctx context.Context, path string) (ocr.FileHandle, error) {
	f, err := os.Open(path)
	if err != nil {
		return ocr.FileHandle{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer func(f *os.File) {
		if err := f.Close(); err != nil {
			c.logger.Warn("ocr.upload.close_error", "path", path, "error", err)
		}
	}(f)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("purpose", "ocr"); err != nil {
		return ocr.FileHandle{}, fmt.Errorf("write purpose field: %w", err)
	}
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return ocr.FileHandle{}, fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return ocr.FileHandle{}, fmt.Errorf("copy file part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return ocr.FileHandle{}, fmt.Errorf("close multipart: %w", err)
	}

	raw, err := c.do(ctx, http.MethodPost, c.endpoint("files"), &body, mw.FormDataContentType())
	if err != nil {
		return ocr.FileHandle{}, err
	}
	var up uploadResponse
	if err := json.Unmarshal(raw, &up); err != nil {
		return ocr.FileHandle{}, fmt.Errorf("decode upload response: %w", err)
	}
	if up.ID == "" {
		return ocr.FileHandle{}, common.NewAppError("UPSTREAM_ERROR", "upload response has no file id", common.ErrUpstream)
	}
	c.logger.Info("ocr.upload.ok", "file_id", up.ID, "filename", up.Filename, "bytes", up.Bytes)
	return ocr.FileHandle{ID: up.ID, Filename: up.Filename, Bytes: up.Bytes}, nil
}

// SignedURL fetches a time-limited download URL for an uploaded file.
func (c *Client) SignedURL(ctx context.Context, file ocr.FileHandle) (string, error) {
	if file.ID == "" {
		return "", common.NewAppError("INVALID_INPUT", "file id is required", common.ErrInvalidInput)
	}
	endpoint := c.endpoint("files", url.PathEscape(file.ID), "url") + "?expiry=" + strconv.Itoa(c.cfg.SignedURLExpiry)
	raw, err := c.do(ctx, http.MethodGet, endpoint, nil, "")
	if err != nil {
		return "", err
	}
	var su signedURLResponse
	if err := json.Unmarshal(raw, &su); err != nil {
		return "", fmt.Errorf("decode signed url response: %w", err)
	}
	if su.URL == "" {
		return "", common.NewAppError("UPSTREAM_ERROR", "signed url response has no url", common.ErrUpstream)
	}
	return su.URL, nil
}

// Process runs OCR on a document URL. The body is validated against the
// response schema before any field is read.
func (c *Client) Process(ctx context.Context, model, documentURL string) (ocr.Response, error) {
	if model == "" {
		model = c.cfg.Model
	}
	reqBody := processRequest{
		Model: model,
		Document: documentPayload{
			Type:        "document_url",
			DocumentURL: documentURL,
		},
		IncludeImageBase64: c.cfg.IncludeImageBase64,
	}
	b, err := json.Marshal(reqBody)
	if err != nil {
		return ocr.Response{}, fmt.Errorf("marshal request: %w", err)
	}

	raw, err := c.do(ctx, http.MethodPost, c.endpoint("ocr"), bytes.NewReader(b), "application/json")
	if err != nil {
		return ocr.Response{}, err
	}
	if err := ocr.ValidateResponse(raw); err != nil {
		c.logger.Error("ocr.process.schema_validation_failed", "error", err, "raw_bytes", len(raw))
		return ocr.Response{}, common.NewAppError("UPSTREAM_ERROR", "unexpected ocr response shape", err)
	}
	var pr processResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return ocr.Response{}, fmt.Errorf("decode ocr response: %w", err)
	}
	res := pr.toResponse(raw)
	c.logger.Info("ocr.process.ok", "model", res.Model, "pages", len(res.Pages), "images", res.ImageCount())
	return res, nil
}

func (c *Client) endpoint(parts ...string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.Join(parts, "/")
}

func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader, contentType string) ([]byte, error) {
	reqID := uuid.New().String()
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	c.logger.Debug("ocr.http.request", "req_id", reqID, "method", method, "url", endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("ocr.http.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("mistral http error: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.logger.Warn("ocr.http.response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("ocr.http.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, common.NewAppError("UPSTREAM_ERROR",
			fmt.Sprintf("mistral status %d: %s", resp.StatusCode, truncate(string(raw), 512)), common.ErrUpstream)
	}
	return raw, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
