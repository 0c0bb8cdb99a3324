package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/studyforge/studyforge-backend/internal/pkg/apperr"
	"github.com/studyforge/studyforge-backend/internal/pkg/logger"
	"github.com/studyforge/studyforge-backend/internal/platform/llm"
	"github.com/studyforge/studyforge-backend/internal/types"
)

type ExtractResult struct {
	Text     string
	Metadata map[string]any
}

// ContentExtractor turns raw document bytes plus a declared kind into plain
// text. Natively readable formats short-circuit; everything else goes
// through one multimodal transcription call. No retry at this layer.
type ContentExtractor struct {
	log    *logger.Logger
	policy *ModelPolicy
}

func NewContentExtractor(log *logger.Logger, policy *ModelPolicy) *ContentExtractor {
	return &ContentExtractor{
		log:    log.With("service", "ContentExtractor"),
		policy: policy,
	}
}

const extractionSystemPrompt = "You are a meticulous document transcriber. Transcribe every piece of visible text from the provided material. Preserve the structure: keep headings as headings, bullets as bullets, and tables as aligned rows. Do not summarize, do not add commentary."

func extractionUserPrompt(kind types.MediaKind) string {
	switch kind {
	case types.MediaKindDocument:
		return "Transcribe all text in this document. Separate pages with a line containing only '--- page break ---'."
	case types.MediaKindSlideDeck:
		return "Transcribe all text in this slide deck. Start each slide with a line 'Slide N:' and keep slides separated by a blank line."
	case types.MediaKindImage:
		return "Transcribe all visible text in this image, top to bottom, preserving any list or table structure you can see."
	default:
		return ""
	}
}

func (e *ContentExtractor) Extract(ctx context.Context, name string, kind types.MediaKind, mimeType string, data []byte) (*ExtractResult, error) {
	switch kind {
	case types.MediaKindDocument, types.MediaKindSlideDeck, types.MediaKindImage:
	default:
		return nil, apperr.Configuration("unsupported media kind %q for %q", kind, name)
	}
	if len(data) == 0 {
		return nil, apperr.Validation("document %q has no bytes", name)
	}

	metadata := map[string]any{
		"kind":       string(kind),
		"mime_type":  mimeType,
		"size_bytes": len(data),
	}

	if kind != types.MediaKindImage {
		if text, ok := nativeText(name, mimeType, data); ok {
			metadata["native"] = true
			return &ExtractResult{Text: text, Metadata: metadata}, nil
		}
	}

	mt := strings.TrimSpace(mimeType)
	if mt == "" {
		mt = "application/octet-stream"
	}
	out, err := e.policy.Invoke(ctx, ModelSelection{Alias: AliasAuto}, "extract", llm.Request{
		System: extractionSystemPrompt,
		User:   extractionUserPrompt(kind),
		Media:  []llm.MediaInput{{MimeType: mt, Data: data}},
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindUnknown {
			return nil, apperr.ExternalService(err, "extraction call failed for %q", name)
		}
		return nil, err
	}
	text := strings.TrimSpace(out)
	if text == "" {
		return nil, apperr.Parse(fmt.Errorf("empty transcription"), "extraction produced no text for %q", name)
	}

	metadata["native"] = false
	return &ExtractResult{Text: text, Metadata: metadata}, nil
}
