package services

import (
	"strings"
	"testing"
)

func TestNativeTextPlainText(t *testing.T) {
	text, ok := nativeText("notes.txt", "text/plain", []byte("line one\n\n\n\nline two"))
	if !ok {
		t.Fatalf("plain text must take the native path")
	}
	if !strings.Contains(text, "line one") || !strings.Contains(text, "line two") {
		t.Fatalf("unexpected text %q", text)
	}
	if strings.Contains(text, "\n\n\n") {
		t.Fatalf("runs of blank lines should collapse: %q", text)
	}
}

func TestNativeTextHTMLStripped(t *testing.T) {
	html := "<!DOCTYPE html><html><body><h1>Title</h1><p>Body text.</p></body></html>"
	text, ok := nativeText("page.html", "text/html", []byte(html))
	if !ok {
		t.Fatalf("html must take the native path")
	}
	if strings.Contains(text, "<") {
		t.Fatalf("tags should be stripped: %q", text)
	}
	if !strings.Contains(text, "Title") || !strings.Contains(text, "Body text.") {
		t.Fatalf("content lost: %q", text)
	}
}

func TestNativeTextRejectsBinary(t *testing.T) {
	binary := []byte{0x89, 0x50, 0x4E, 0x47, 0x00, 0x01, 0x02, 0x03}
	if _, ok := nativeText("image.png", "image/png", binary); ok {
		t.Fatalf("binary data must fall through to the model path")
	}
}

func TestNativeTextRejectsBrokenPDF(t *testing.T) {
	// Carries the PDF magic but no parseable body.
	broken := []byte("%PDF-1.7 garbage")
	if _, ok := nativeText("doc.pdf", "application/pdf", broken); ok {
		t.Fatalf("unparseable pdf must fall through to the model path")
	}
}
