package resolve

import (
	"bytes"
	"context"
	"encoding/base64"
	"image/jpeg"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joseph-ayodele/mocr/constants"
	"github.com/joseph-ayodele/mocr/internal/common"
	"github.com/joseph-ayodele/mocr/internal/ocr"
	"github.com/joseph-ayodele/mocr/internal/placeholder"
)

type fakeSynth struct {
	calls []string
	sizes [][2]int
}

func (f *fakeSynth) Render(id string, w, h int) ([]byte, error) {
	f.calls = append(f.calls, id)
	f.sizes = append(f.sizes, [2]int{w, h})
	return []byte("placeholder:" + id), nil
}

func strPtr(s string) *string { return &s }

func writePoolFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatalf("write pool file: %v", err)
	}
	return p
}

func TestInlineDataIsDecodedAndSaved(t *testing.T) {
	dir := t.TempDir()
	payload := []byte{0xff, 0xd8, 0xff, 0xe0, 1, 2, 3}
	for _, enc := range []string{
		base64.StdEncoding.EncodeToString(payload),
		"data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(payload),
	} {
		r := NewResolver(&fakeSynth{}, nil)
		res, err := r.Resolve(dir, ocr.ImageDescriptor{ID: "img-0.jpeg", InlineData: strPtr(enc)}, NewPool(nil))
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if res.Disposition != constants.FromInlineData {
			t.Fatalf("Disposition = %s", res.Disposition)
		}
		got, err := os.ReadFile(filepath.Join(dir, "img-0.jpeg"))
		if err != nil {
			t.Fatalf("read saved image: %v", err)
		}
		if !bytes.Equal(got, payload) {
			t.Fatalf("saved bytes = %v, want %v", got, payload)
		}
	}
}

func TestBadInlineDataFallsThroughToObjectBytes(t *testing.T) {
	dir := t.TempDir()
	r := NewResolver(&fakeSynth{}, nil)
	res, err := r.Resolve(dir, ocr.ImageDescriptor{
		ID:          "img1",
		InlineData:  strPtr("!!not base64!!"),
		ObjectBytes: []byte("raw"),
	}, NewPool(nil))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.Disposition != constants.FromObjectBytes || res.Filename != "img1.jpeg" {
		t.Fatalf("got %+v", res)
	}
}

func TestEmptyInlineDataCountsAsAbsent(t *testing.T) {
	synth := &fakeSynth{}
	r := NewResolver(synth, nil)
	res, err := r.Resolve(t.TempDir(), ocr.ImageDescriptor{ID: "img1", InlineData: strPtr("")}, NewPool(nil))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.Disposition != constants.SynthesizedPlaceholder {
		t.Fatalf("Disposition = %s", res.Disposition)
	}
	if synth.sizes[0] != [2]int{placeholder.DefaultWidth, placeholder.DefaultHeight} {
		t.Fatalf("placeholder size = %v", synth.sizes[0])
	}
}

func TestBoundingBoxWithEmptyPoolSynthesizesClampedPlaceholder(t *testing.T) {
	dir := t.TempDir()
	r := NewResolver(placeholder.NewSynthesizer(placeholder.Config{}, nil), nil)
	cases := []struct {
		box          ocr.BoundingBox
		wantW, wantH int
	}{
		{ocr.BoundingBox{TopLeftX: 10, TopLeftY: 10, BottomRightX: 60, BottomRightY: 1210}, 100, 800},
		{ocr.BoundingBox{TopLeftX: 0, TopLeftY: 0, BottomRightX: 250, BottomRightY: 175}, 250, 175},
		{ocr.BoundingBox{TopLeftX: 500, TopLeftY: 500, BottomRightX: 100, BottomRightY: 100}, 100, 100},
	}
	for i, tc := range cases {
		box := tc.box
		res, err := r.Resolve(dir, ocr.ImageDescriptor{ID: "fig" + string(rune('a'+i)), BBox: &box}, NewPool(nil))
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if res.Disposition != constants.SynthesizedPlaceholder {
			t.Fatalf("Disposition = %s", res.Disposition)
		}
		data, err := os.ReadFile(res.Path)
		if err != nil {
			t.Fatalf("read placeholder: %v", err)
		}
		cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("decode placeholder: %v", err)
		}
		if cfg.Width != tc.wantW || cfg.Height != tc.wantH {
			t.Fatalf("case %d: size = %dx%d, want %dx%d", i, cfg.Width, cfg.Height, tc.wantW, tc.wantH)
		}
	}
}

func TestPoolFollowsPageOrder(t *testing.T) {
	pool := NewPool([]PoolEntry{
		{ID: "pdf_img_10_0", Page: 10},
		{ID: "pdf_img_2_1", Page: 2, Index: 1},
		{ID: "pdf_img_2_0", Page: 2},
	})
	var ids []string
	for {
		e, ok := pool.Take()
		if !ok {
			break
		}
		ids = append(ids, e.ID)
	}
	want := []string{"pdf_img_2_0", "pdf_img_2_1", "pdf_img_10_0"}
	if strings.Join(ids, ",") != strings.Join(want, ",") {
		t.Fatalf("take order = %v, want %v", ids, want)
	}
}

func TestPoolEntriesAreClaimedOnce(t *testing.T) {
	src := t.TempDir()
	pool := NewPool([]PoolEntry{
		{ID: "pdf_img_1_2", Page: 1, Index: 2, Path: writePoolFile(t, src, "b.png", []byte("second"))},
		{ID: "pdf_img_1_1", Page: 1, Index: 1, Path: writePoolFile(t, src, "a.png", []byte("first"))},
	})
	box := &ocr.BoundingBox{BottomRightX: 300, BottomRightY: 200}
	images := []ocr.ImageDescriptor{
		{ID: "img-0.jpeg", BBox: box},
		{ID: "img-1.jpeg"},
		{ID: "img-2.jpeg", BBox: box},
	}

	synth := &fakeSynth{}
	r := NewResolver(synth, nil)
	out := t.TempDir()
	before := pool.Len()
	var got []Resolved
	for _, d := range images {
		res, err := r.Resolve(out, d, pool)
		if err != nil {
			t.Fatalf("Resolve(%s) error = %v", d.ID, err)
		}
		if res.Disposition == constants.FromExtractedPDFImage {
			if pool.Len() != before-1 {
				t.Fatalf("pool len = %d after claim, want %d", pool.Len(), before-1)
			}
		}
		before = pool.Len()
		got = append(got, res)
	}

	if got[0].PoolID != "pdf_img_1_1" || got[1].PoolID != "pdf_img_1_2" {
		t.Fatalf("pool ids = %q, %q", got[0].PoolID, got[1].PoolID)
	}
	if got[2].Disposition != constants.SynthesizedPlaceholder {
		t.Fatalf("third image disposition = %s", got[2].Disposition)
	}
	if synth.sizes[0] != [2]int{300, 200} {
		t.Fatalf("placeholder size = %v", synth.sizes[0])
	}
	data, _ := os.ReadFile(filepath.Join(out, "img-1.jpeg"))
	if string(data) != "second" {
		t.Fatalf("img-1 bytes = %q", data)
	}
}

func TestResolveAllSkipsDuplicatesAndReportsFailures(t *testing.T) {
	out := filepath.Join(t.TempDir(), "doc")
	r := NewResolver(&fakeSynth{}, nil)
	images := []ocr.ImageDescriptor{
		{ID: "img-0.jpeg", ObjectBytes: []byte("a")},
		{ID: "img-0", ObjectBytes: []byte("b")},
		{ID: "img-1"},
	}
	res, failures, err := r.ResolveAll(context.Background(), out, images, NewPool(nil))
	if err != nil {
		t.Fatalf("ResolveAll() error = %v", err)
	}
	if len(failures) != 0 || len(res) != 2 {
		t.Fatalf("resolved %d, failures %v", len(res), failures)
	}
	if res[0].Identifier != "img-0.jpeg" || res[1].Disposition != constants.SynthesizedPlaceholder {
		t.Fatalf("unexpected results %+v", res)
	}
}

func TestPlaceholderWriteFailureIsReported(t *testing.T) {
	notADir := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(notADir, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := NewResolver(&fakeSynth{}, nil)
	if _, err := r.Resolve(notADir, ocr.ImageDescriptor{ID: "img1", ObjectBytes: []byte("x")}, NewPool(nil)); err == nil {
		t.Fatalf("expected error when nothing can be written")
	}
}

func TestFilename(t *testing.T) {
	cases := map[string]string{
		"img-0.jpeg":  "img-0.jpeg",
		"img1":        "img1.jpeg",
		"chart.png":   "chart.png",
		"pdf_img_1_2": "pdf_img_1_2.jpeg",
		"fig.1":       "fig.1.jpeg",
		"a/b":         "a_b.jpeg",
	}
	for in, want := range cases {
		if got := Filename(in); got != want {
			t.Errorf("Filename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDiscoverUsesRewritableIdentifiers(t *testing.T) {
	pages := []ocr.Page{{Markdown: `![a]( img1 ) ![b](img2 "title")`}}
	got := Discover(pages)
	if len(got) != 2 || got[0].ID != "img1" || got[1].ID != "img2" {
		t.Fatalf("Discover() = %+v", got)
	}
	if Filename(got[1].ID) != "img2.jpeg" {
		t.Fatalf("Filename(%q) = %q", got[1].ID, Filename(got[1].ID))
	}
}

func TestDiscoverUnionsReferencesAndDescriptors(t *testing.T) {
	inline := "aGk="
	pages := []ocr.Page{
		{Markdown: "![a](img-0.jpeg) ![b](img-1.jpeg) ![c](https://x.test/y.png)"},
		{
			Markdown: "![a](img-0.jpeg)",
			Images: []ocr.ImageDescriptor{
				{ID: "img-0.jpeg", InlineData: &inline},
				{ID: "img-2.jpeg"},
			},
		},
	}
	got := Discover(pages)
	ids := make([]string, len(got))
	for i, d := range got {
		ids[i] = d.ID
	}
	want := []string{"img-0.jpeg", "img-1", "img-2.jpeg"}
	if len(ids) != len(want) {
		t.Fatalf("Discover() ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("Discover() ids = %v, want %v", ids, want)
		}
	}
	if !got[0].HasInlineData() {
		t.Fatalf("descriptor data was not kept for img-0.jpeg")
	}
}

func debugLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestResolveAllLogsRunAndDocumentFromContext(t *testing.T) {
	var buf bytes.Buffer
	r := NewResolver(&fakeSynth{}, debugLogger(&buf))
	ctx := common.WithDocument(common.WithRunID(context.Background(), "run-7"), "report")
	images := []ocr.ImageDescriptor{{ID: "img-0", ObjectBytes: []byte("x")}}
	if _, _, err := r.ResolveAll(ctx, t.TempDir(), images, NewPool(nil)); err != nil {
		t.Fatalf("ResolveAll() error = %v", err)
	}
	logs := buf.String()
	if !strings.Contains(logs, `"run_id":"run-7"`) || !strings.Contains(logs, `"document":"report"`) {
		t.Fatalf("log lines missing context fields:\n%s", logs)
	}
}

func TestPoolCopyLogsExtensionMismatch(t *testing.T) {
	var buf bytes.Buffer
	src := t.TempDir()
	pool := NewPool([]PoolEntry{{ID: "pdf_img_0_0", Path: writePoolFile(t, src, "pdf_img_0_0.png", []byte("png"))}})
	r := NewResolver(&fakeSynth{}, debugLogger(&buf))
	res, err := r.Resolve(t.TempDir(), ocr.ImageDescriptor{ID: "img-1"}, pool)
	if err != nil || res.Disposition != constants.FromExtractedPDFImage {
		t.Fatalf("Resolve() = %+v, %v", res, err)
	}
	if !strings.Contains(buf.String(), "resolve.pool.ext_mismatch") {
		t.Fatalf("expected mismatch log, got:\n%s", buf.String())
	}

	buf.Reset()
	pool = NewPool([]PoolEntry{{ID: "pdf_img_0_1", Path: writePoolFile(t, src, "pdf_img_0_1.jpg", []byte("jpg"))}})
	if _, err := r.Resolve(t.TempDir(), ocr.ImageDescriptor{ID: "img-2"}, pool); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "resolve.pool.ext_mismatch") {
		t.Fatalf("jpg and jpeg must not be reported as a mismatch")
	}
}
