package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/studyforge/studyforge-backend/internal/pkg/apperr"
	"github.com/studyforge/studyforge-backend/internal/pkg/logger"
	"github.com/studyforge/studyforge-backend/internal/repos"
	"github.com/studyforge/studyforge-backend/internal/types"
	"gorm.io/gorm"
)

// RegisterDocumentInput describes an uploaded document by reference. The
// bytes themselves live behind LocationRef and are fetched on demand.
type RegisterDocumentInput struct {
	OriginalName string
	LocationRef  string
	MediaKind    types.MediaKind
	MimeType     string
	SizeBytes    int64
	AssignmentID *uuid.UUID
}

type DocumentService struct {
	db        *gorm.DB
	log       *logger.Logger
	documents repos.DocumentRepo
}

func NewDocumentService(db *gorm.DB, log *logger.Logger, documents repos.DocumentRepo) *DocumentService {
	return &DocumentService{
		db:        db,
		log:       log.With("service", "DocumentService"),
		documents: documents,
	}
}

func (s *DocumentService) Register(ctx context.Context, userID uuid.UUID, input RegisterDocumentInput) (*types.SourceDocument, error) {
	if strings.TrimSpace(input.OriginalName) == "" {
		return nil, apperr.Validation("document name is required")
	}
	if strings.TrimSpace(input.LocationRef) == "" {
		return nil, apperr.Validation("document location is required")
	}
	switch input.MediaKind {
	case types.MediaKindDocument, types.MediaKindSlideDeck, types.MediaKindImage:
	case "":
		input.MediaKind = types.MediaKindDocument
	default:
		return nil, apperr.Validation("unknown media kind %q", input.MediaKind)
	}

	doc := &types.SourceDocument{
		UserID:       userID,
		AssignmentID: input.AssignmentID,
		OriginalName: input.OriginalName,
		LocationRef:  input.LocationRef,
		MediaKind:    input.MediaKind,
		MimeType:     input.MimeType,
		SizeBytes:    input.SizeBytes,
		Status:       types.DocumentStatusUploaded,
	}
	return s.documents.Create(ctx, nil, doc)
}

func (s *DocumentService) Get(ctx context.Context, userID, id uuid.UUID) (*types.SourceDocument, error) {
	return s.documents.GetByIDForUser(ctx, nil, id, userID)
}
