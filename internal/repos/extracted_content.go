package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/studyforge/studyforge-backend/internal/pkg/logger"
	"github.com/studyforge/studyforge-backend/internal/types"
)

type ExtractedContentRepo interface {
	GetByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) (*types.ExtractedContent, error)
	Upsert(ctx context.Context, tx *gorm.DB, content *types.ExtractedContent) (*types.ExtractedContent, error)
}

type extractedContentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewExtractedContentRepo(db *gorm.DB, baseLog *logger.Logger) ExtractedContentRepo {
	return &extractedContentRepo{db: db, log: baseLog.With("repo", "ExtractedContentRepo")}
}

// GetByDocumentID returns nil, nil on a cache miss so callers can branch
// without unwrapping a not-found error.
func (r *extractedContentRepo) GetByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) (*types.ExtractedContent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var content types.ExtractedContent
	if err := transaction.WithContext(ctx).
		Where("document_id = ?", documentID).
		First(&content).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &content, nil
}

// Upsert is idempotent on document_id: a concurrent first-time extraction
// overwrites rather than duplicating the row.
func (r *extractedContentRepo) Upsert(ctx context.Context, tx *gorm.DB, content *types.ExtractedContent) (*types.ExtractedContent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if content.ID == uuid.Nil {
		content.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "document_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"text", "metadata", "updated_at"}),
		}).
		Create(content).Error; err != nil {
		return nil, err
	}
	return content, nil
}
