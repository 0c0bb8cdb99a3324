package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studyforge/studyforge-backend/internal/pkg/apperr"
	"github.com/studyforge/studyforge-backend/internal/pkg/logger"
	"github.com/studyforge/studyforge-backend/internal/types"
)

type DocumentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, doc *types.SourceDocument) (*types.SourceDocument, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.SourceDocument, error)
	GetByIDForUser(ctx context.Context, tx *gorm.DB, id, userID uuid.UUID) (*types.SourceDocument, error)
	GetByIDsForUser(ctx context.Context, tx *gorm.DB, ids []uuid.UUID, userID uuid.UUID) ([]*types.SourceDocument, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status types.DocumentStatus) error
	AttachToAssignment(ctx context.Context, tx *gorm.DB, ids []uuid.UUID, assignmentID uuid.UUID) error
}

type documentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRepo {
	return &documentRepo{db: db, log: baseLog.With("repo", "DocumentRepo")}
}

func (r *documentRepo) Create(ctx context.Context, tx *gorm.DB, doc *types.SourceDocument) (*types.SourceDocument, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(doc).Error; err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *documentRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.SourceDocument, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var doc types.SourceDocument
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("document %s not found", id)
		}
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepo) GetByIDForUser(ctx context.Context, tx *gorm.DB, id, userID uuid.UUID) (*types.SourceDocument, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var doc types.SourceDocument
	if err := transaction.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("document %s not found", id)
		}
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepo) GetByIDsForUser(ctx context.Context, tx *gorm.DB, ids []uuid.UUID, userID uuid.UUID) ([]*types.SourceDocument, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var docs []*types.SourceDocument
	if len(ids) == 0 {
		return docs, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ? AND user_id = ?", ids, userID).
		Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *documentRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status types.DocumentStatus) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Model(&types.SourceDocument{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *documentRepo) AttachToAssignment(ctx context.Context, tx *gorm.DB, ids []uuid.UUID, assignmentID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(ids) == 0 {
		return nil
	}

	// Position records the order the attachments were submitted in, so the
	// solution prompt concatenates them the way the caller listed them.
	for i, id := range ids {
		if err := transaction.WithContext(ctx).
			Model(&types.SourceDocument{}).
			Where("id = ?", id).
			Updates(map[string]any{"assignment_id": assignmentID, "attached_pos": i}).Error; err != nil {
			return err
		}
	}
	return nil
}
