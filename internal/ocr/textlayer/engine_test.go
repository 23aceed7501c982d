package textlayer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestAppendImageRef(t *testing.T) {
	if got := appendImageRef("", "a.png"); got != "![a.png](a.png)" {
		t.Fatalf("appendImageRef(empty) = %q", got)
	}
	if got := appendImageRef("text", "a.png"); got != "text\n\n![a.png](a.png)" {
		t.Fatalf("appendImageRef(text) = %q", got)
	}
}

func TestRecognizeRejectsNonPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	if err := os.WriteFile(path, []byte("definitely not a pdf"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	e := NewEngine(nil, nil)
	if _, err := e.Recognize(context.Background(), path); err == nil {
		t.Fatalf("expected an error for a non-PDF input")
	}
}
