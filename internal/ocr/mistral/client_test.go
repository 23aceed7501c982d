package mistral

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joseph-ayodele/mocr/internal/common"
	"github.com/joseph-ayodele/mocr/internal/ocr"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFakeAPI(t *testing.T, processBody string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/files", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("files: unexpected method %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("files: unexpected auth header %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("files: parse multipart: %v", err)
		}
		if got := r.FormValue("purpose"); got != "ocr" {
			t.Errorf("files: purpose = %q", got)
		}
		_, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("files: missing file part: %v", err)
		} else if hdr.Filename != "doc.pdf" {
			t.Errorf("files: filename = %q", hdr.Filename)
		}
		_, _ = io.WriteString(w, `{"id":"file-123","object":"file","filename":"doc.pdf","bytes":17,"purpose":"ocr"}`)
	})
	mux.HandleFunc("/v1/files/file-123/url", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("expiry"); got != "24" {
			t.Errorf("signed url: expiry = %q", got)
		}
		_, _ = io.WriteString(w, `{"url":"https://files.example/doc.pdf?sig=abc"}`)
	})
	mux.HandleFunc("/v1/ocr", func(w http.ResponseWriter, r *http.Request) {
		var req processRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("ocr: decode request: %v", err)
		}
		if req.Model != "mistral-ocr-latest" || req.Document.Type != "document_url" ||
			req.Document.DocumentURL != "https://files.example/doc.pdf?sig=abc" || !req.IncludeImageBase64 {
			t.Errorf("ocr: unexpected request %+v", req)
		}
		_, _ = io.WriteString(w, processBody)
	})
	return httptest.NewServer(mux)
}

func writePDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4\n%dummy\n"), 0o644); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	return path
}

func TestRemoteEngineRecognize(t *testing.T) {
	body := `{
		"model": "mistral-ocr-latest",
		"pages": [
			{"index": 0, "markdown": "# Title\n\n![img-0.jpeg](img-0.jpeg)", "images": [
				{"id": "img-0.jpeg", "top_left_x": 10, "top_left_y": 20, "bottom_right_x": 210, "bottom_right_y": 170, "image_base64": "data:image/jpeg;base64,/9j/"},
				{"id": "img-1.jpeg", "top_left_x": null, "top_left_y": null, "bottom_right_x": null, "bottom_right_y": null, "image_base64": null}
			]},
			{"index": 1, "markdown": "second page", "images": []}
		],
		"usage_info": {"pages_processed": 2}
	}`
	srv := newFakeAPI(t, body)
	defer srv.Close()

	c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL + "/v1", IncludeImageBase64: true}, quietLogger())
	engine := ocr.NewRemoteEngine(c, c.Model(), quietLogger())

	res, err := engine.Recognize(context.Background(), writePDF(t))
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if len(res.Pages) != 2 {
		t.Fatalf("pages = %d, want 2", len(res.Pages))
	}
	imgs := res.Pages[0].Images
	if len(imgs) != 2 {
		t.Fatalf("images = %d, want 2", len(imgs))
	}
	if !imgs[0].HasInlineData() || *imgs[0].InlineData != "data:image/jpeg;base64,/9j/" {
		t.Fatalf("unexpected inline data: %+v", imgs[0])
	}
	if imgs[0].BBox == nil || imgs[0].BBox.BottomRightX != 210 {
		t.Fatalf("unexpected bbox: %+v", imgs[0].BBox)
	}
	if w, h := imgs[0].BBox.Size(); w != 200 || h != 150 {
		t.Fatalf("bbox size = %dx%d", w, h)
	}
	if imgs[1].HasInlineData() || imgs[1].BBox != nil {
		t.Fatalf("null fields should stay absent: %+v", imgs[1])
	}
	if res.ImageCount() != 2 {
		t.Fatalf("ImageCount() = %d", res.ImageCount())
	}
	if len(res.Raw) == 0 {
		t.Fatalf("raw body not kept")
	}
}

func TestProcessRejectsMalformedResponse(t *testing.T) {
	srv := newFakeAPI(t, `{"pages": [{"index": 0, "images": [{"id": ""}]}]}`)
	defer srv.Close()

	c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL + "/v1", IncludeImageBase64: true}, quietLogger())
	_, err := c.Process(context.Background(), "", "https://files.example/doc.pdf?sig=abc")
	if err == nil {
		t.Fatalf("expected schema validation error")
	}
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != "UPSTREAM_ERROR" {
		t.Fatalf("unexpected error: %v", err)
	}
	if !errors.Is(err, common.ErrValidation) {
		t.Fatalf("schema mismatch should wrap ErrValidation: %v", err)
	}
}

func TestNon2xxIsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"Unauthorized"}`)
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "bad", BaseURL: srv.URL}, quietLogger())
	_, err := c.Upload(context.Background(), writePDF(t))
	if !errors.Is(err, common.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if !strings.Contains(err.Error(), "401") {
		t.Fatalf("status missing from error: %v", err)
	}
}

func TestLegacyDataFieldIsInlineData(t *testing.T) {
	s := "aGVsbG8="
	d := wireImage{ID: "x", Data: &s}.toDescriptor()
	if !d.HasInlineData() || *d.InlineData != s {
		t.Fatalf("data field not mapped: %+v", d)
	}
}
