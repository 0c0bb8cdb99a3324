package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/studyforge/studyforge-backend/internal/pkg/apperr"
	"github.com/studyforge/studyforge-backend/internal/pkg/ctxutil"
	"github.com/studyforge/studyforge-backend/internal/pkg/guard"
	"github.com/studyforge/studyforge-backend/internal/pkg/logger"
	"github.com/studyforge/studyforge-backend/internal/repos"
	"github.com/studyforge/studyforge-backend/internal/types"
)

// Downloader fetches the raw bytes behind a document's location reference.
// The storage mechanism itself is an external collaborator.
type Downloader interface {
	Download(ctx context.Context, locationRef string) ([]byte, error)
}

type httpDownloader struct {
	client *http.Client
}

func NewHTTPDownloader() Downloader {
	return &httpDownloader{client: &http.Client{}}
}

func (d *httpDownloader) Download(ctx context.Context, locationRef string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodGet, locationRef, nil)
	if err != nil {
		return nil, apperr.Validation("invalid location reference %q", locationRef)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, apperr.ExternalService(err, "download failed")
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperr.ExternalService(fmt.Errorf("http %d", resp.StatusCode), "download failed")
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.ExternalService(err, "download read failed")
	}
	return raw, nil
}

// ContentBlock is one document's extracted text, labeled by document name.
type ContentBlock struct {
	Name string
	Text string
}

type ExtractionService struct {
	db  *gorm.DB
	log *logger.Logger

	documents repos.DocumentRepo
	contents  repos.ExtractedContentRepo
	extractor *ContentExtractor

	downloader Downloader
	rdb        *redis.Client
	group      singleflight.Group

	downloadTimeout time.Duration
	extractTimeout  time.Duration
}

// NewExtractionService builds the get-or-extract cache over extracted
// content. rdb may be nil; the cross-process in-flight marker is then
// skipped and only in-process deduplication applies.
func NewExtractionService(
	db *gorm.DB,
	log *logger.Logger,
	documents repos.DocumentRepo,
	contents repos.ExtractedContentRepo,
	extractor *ContentExtractor,
	downloader Downloader,
	rdb *redis.Client,
	downloadTimeout time.Duration,
	extractTimeout time.Duration,
) *ExtractionService {
	return &ExtractionService{
		db:              db,
		log:             log.With("service", "ExtractionService"),
		documents:       documents,
		contents:        contents,
		extractor:       extractor,
		downloader:      downloader,
		rdb:             rdb,
		downloadTimeout: downloadTimeout,
		extractTimeout:  extractTimeout,
	}
}

// ResolveContent returns the document's extracted text, extracting and
// caching it on first use. A cache hit performs no network access.
func (s *ExtractionService) ResolveContent(ctx context.Context, doc *types.SourceDocument) (string, error) {
	cached, err := s.contents.GetByDocumentID(ctx, nil, doc.ID)
	if err != nil {
		return "", err
	}
	if cached != nil {
		return cached.Text, nil
	}

	// First-time extraction is deduplicated per document: concurrent callers
	// in this process share one flight, and a Redis marker lets other
	// replicas wait for the row instead of extracting twice.
	text, err, _ := s.group.Do(doc.ID.String(), func() (any, error) {
		return s.extractAndCache(ctx, doc)
	})
	if err != nil {
		return "", err
	}
	return text.(string), nil
}

const inflightMarkerTTLFactor = 2

func (s *ExtractionService) extractAndCache(ctx context.Context, doc *types.SourceDocument) (string, error) {
	// Re-check under the flight: a concurrent caller may have just filled
	// the row.
	cached, err := s.contents.GetByDocumentID(ctx, nil, doc.ID)
	if err != nil {
		return "", err
	}
	if cached != nil {
		return cached.Text, nil
	}

	if s.rdb != nil {
		markerKey := "extract:inflight:" + doc.ID.String()
		ttl := time.Duration(inflightMarkerTTLFactor) * (s.downloadTimeout + s.extractTimeout)
		acquired, redisErr := s.rdb.SetNX(ctx, markerKey, "1", ttl).Result()
		if redisErr != nil {
			s.log.Warn("In-flight marker unavailable, extracting without it", "document_id", doc.ID, "error", redisErr)
		} else if !acquired {
			if text, ok := s.awaitPeerExtraction(ctx, doc, ttl); ok {
				return text, nil
			}
			// Marker expired without a row; the peer failed. Fall through and
			// extract ourselves.
		} else {
			defer s.rdb.Del(context.WithoutCancel(ctx), markerKey)
		}
	}

	if doc.Status.CanTransitionTo(types.DocumentStatusProcessing) {
		if err := s.documents.UpdateStatus(ctx, nil, doc.ID, types.DocumentStatusProcessing); err != nil {
			return "", err
		}
	}

	text, err := s.extractOnce(ctx, doc)
	if err != nil {
		if statusErr := s.documents.UpdateStatus(ctx, nil, doc.ID, types.DocumentStatusError); statusErr != nil {
			s.log.Error("Failed to record document error status", "document_id", doc.ID, "error", statusErr)
		}
		return "", err
	}

	if err := s.documents.UpdateStatus(ctx, nil, doc.ID, types.DocumentStatusReady); err != nil {
		return "", err
	}
	return text, nil
}

func (s *ExtractionService) extractOnce(ctx context.Context, doc *types.SourceDocument) (string, error) {
	data, err := guard.WithTimeout(ctx, "download", s.downloadTimeout, func(ctx context.Context) ([]byte, error) {
		return s.downloader.Download(ctx, doc.LocationRef)
	})
	if err != nil {
		return "", err
	}

	kind := classifyMediaKind(doc.MediaKind, doc.MimeType, doc.OriginalName)

	result, err := guard.WithTimeout(ctx, "extraction", s.extractTimeout, func(ctx context.Context) (*ExtractResult, error) {
		return s.extractor.Extract(ctx, doc.OriginalName, kind, doc.MimeType, data)
	})
	if err != nil {
		return "", err
	}

	metadata, err := json.Marshal(result.Metadata)
	if err != nil {
		metadata = []byte("{}")
	}
	if _, err := s.contents.Upsert(ctx, nil, &types.ExtractedContent{
		DocumentID: doc.ID,
		Text:       result.Text,
		Metadata:   datatypes.JSON(metadata),
	}); err != nil {
		return "", err
	}
	return result.Text, nil
}

// awaitPeerExtraction polls the cache while another replica holds the
// in-flight marker.
func (s *ExtractionService) awaitPeerExtraction(ctx context.Context, doc *types.SourceDocument, ttl time.Duration) (string, bool) {
	deadline := time.Now().Add(ttl)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return "", false
		case <-ticker.C:
		}
		cached, err := s.contents.GetByDocumentID(ctx, nil, doc.ID)
		if err == nil && cached != nil {
			return cached.Text, true
		}
		exists, err := s.rdb.Exists(ctx, "extract:inflight:"+doc.ID.String()).Result()
		if err == nil && exists == 0 {
			return "", false
		}
	}
	return "", false
}

// ResolveAll extracts every document sequentially in the given order and
// returns text blocks labeled by document name, preserving that order.
func (s *ExtractionService) ResolveAll(ctx context.Context, docs []*types.SourceDocument) ([]ContentBlock, error) {
	blocks := make([]ContentBlock, 0, len(docs))
	for _, doc := range docs {
		text, err := s.ResolveContent(ctx, doc)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, ContentBlock{Name: doc.OriginalName, Text: text})
	}
	return blocks, nil
}

// classifyMediaKind falls back from the declared kind to mime type, then to
// the filename extension.
func classifyMediaKind(declared types.MediaKind, mimeType, name string) types.MediaKind {
	switch declared {
	case types.MediaKindDocument, types.MediaKindSlideDeck, types.MediaKindImage:
		return declared
	}

	mt := strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case strings.HasPrefix(mt, "image/"):
		return types.MediaKindImage
	case strings.Contains(mt, "presentation"), strings.Contains(mt, "powerpoint"):
		return types.MediaKindSlideDeck
	case mt != "" && mt != "application/octet-stream":
		return types.MediaKindDocument
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".heic":
		return types.MediaKindImage
	case ".ppt", ".pptx", ".key":
		return types.MediaKindSlideDeck
	default:
		return types.MediaKindDocument
	}
}
