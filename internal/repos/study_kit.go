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

type StudyKitRepo interface {
	Create(ctx context.Context, tx *gorm.DB, kit *types.StudyKit) (*types.StudyKit, error)
	GetByIDForUser(ctx context.Context, tx *gorm.DB, id, userID uuid.UUID) (*types.StudyKit, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]any) error
	ReplaceFlashcards(ctx context.Context, tx *gorm.DB, kitID uuid.UUID, cards []*types.Flashcard) error
	ReplaceQuizQuestions(ctx context.Context, tx *gorm.DB, kitID uuid.UUID, questions []*types.QuizQuestion) error
}

type studyKitRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStudyKitRepo(db *gorm.DB, baseLog *logger.Logger) StudyKitRepo {
	return &studyKitRepo{db: db, log: baseLog.With("repo", "StudyKitRepo")}
}

func (r *studyKitRepo) Create(ctx context.Context, tx *gorm.DB, kit *types.StudyKit) (*types.StudyKit, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if kit.ID == uuid.Nil {
		kit.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(kit).Error; err != nil {
		return nil, err
	}
	return kit, nil
}

func (r *studyKitRepo) GetByIDForUser(ctx context.Context, tx *gorm.DB, id, userID uuid.UUID) (*types.StudyKit, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var kit types.StudyKit
	if err := transaction.WithContext(ctx).
		Preload("Flashcards", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("QuizQuestions", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("id = ? AND user_id = ?", id, userID).
		First(&kit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("study kit %s not found", id)
		}
		return nil, err
	}
	return &kit, nil
}

func (r *studyKitRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Model(&types.StudyKit{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *studyKitRepo) ReplaceFlashcards(ctx context.Context, tx *gorm.DB, kitID uuid.UUID, cards []*types.Flashcard) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
		if err := inner.Where("study_kit_id = ?", kitID).Delete(&types.Flashcard{}).Error; err != nil {
			return err
		}
		if len(cards) == 0 {
			return nil
		}
		for _, card := range cards {
			if card.ID == uuid.Nil {
				card.ID = uuid.New()
			}
		}
		return inner.Create(&cards).Error
	})
}

func (r *studyKitRepo) ReplaceQuizQuestions(ctx context.Context, tx *gorm.DB, kitID uuid.UUID, questions []*types.QuizQuestion) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
		if err := inner.Where("study_kit_id = ?", kitID).Delete(&types.QuizQuestion{}).Error; err != nil {
			return err
		}
		if len(questions) == 0 {
			return nil
		}
		for _, question := range questions {
			if question.ID == uuid.Nil {
				question.ID = uuid.New()
			}
		}
		return inner.Create(&questions).Error
	})
}
