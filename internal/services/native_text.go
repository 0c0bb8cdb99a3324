package services

import (
	"bytes"
	"io"
	"regexp"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

// nativeText is the model-free fast path: byte-sniffed plain text, HTML and
// PDF transcription. Returns ok=false for anything that needs the
// multimodal extractor.
func nativeText(name, mimeType string, data []byte) (string, bool) {
	if len(data) == 0 {
		return "", false
	}
	mt := strings.ToLower(strings.TrimSpace(mimeType))

	if isPDF(data) {
		text, err := extractPDFText(data)
		if err != nil || strings.TrimSpace(text) == "" {
			return "", false
		}
		return text, true
	}
	if looksLikeHTML(data) || mt == "text/html" {
		return stripHTML(string(data)), true
	}
	if isProbablyText(data) || strings.HasPrefix(mt, "text/") {
		return collapseWhitespace(string(data)), true
	}
	return "", false
}

func isPDF(b []byte) bool {
	return len(b) >= 5 && string(b[:5]) == "%PDF-"
}

func looksLikeHTML(b []byte) bool {
	s := strings.ToLower(strings.TrimSpace(string(b[:minInt(len(b), 2048)])))
	return strings.HasPrefix(s, "<!doctype") || strings.HasPrefix(s, "<html") ||
		(strings.Contains(s, "<html") && strings.Contains(s, "<body"))
}

// isProbablyText treats NUL-free, mostly printable bytes as plain text.
func isProbablyText(b []byte) bool {
	sample := b[:minInt(len(b), 4096)]
	good := 0
	for _, c := range sample {
		if c == 0x00 {
			return false
		}
		if c == '\n' || c == '\r' || c == '\t' || (c >= 0x20 && c <= 0x7E) || c >= 0x80 {
			good++
		}
	}
	return float64(good)/float64(len(sample)) > 0.9
}

func extractPDFText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", err
	}
	return collapseWhitespace(string(b)), nil
}

var htmlTagRe = regexp.MustCompile(`(?s)<[^>]*>`)

func stripHTML(s string) string {
	s = htmlTagRe.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	return collapseWhitespace(s)
}

func collapseWhitespace(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, strings.Join(strings.Fields(line), " "))
	}
	joined := strings.Join(out, "\n")
	for strings.Contains(joined, "\n\n\n") {
		joined = strings.ReplaceAll(joined, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(joined)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
