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

type ExamRepo interface {
	Create(ctx context.Context, tx *gorm.DB, exam *types.Exam) (*types.Exam, error)
	GetByIDForUser(ctx context.Context, tx *gorm.DB, id, userID uuid.UUID) (*types.Exam, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]any) error
	ReplaceQuestions(ctx context.Context, tx *gorm.DB, examID uuid.UUID, questions []*types.ExamQuestion) error
	CreateAttempt(ctx context.Context, tx *gorm.DB, attempt *types.ExamAttempt) (*types.ExamAttempt, error)
	ListAttempts(ctx context.Context, tx *gorm.DB, examID, userID uuid.UUID) ([]*types.ExamAttempt, error)
}

type examRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewExamRepo(db *gorm.DB, baseLog *logger.Logger) ExamRepo {
	return &examRepo{db: db, log: baseLog.With("repo", "ExamRepo")}
}

func (r *examRepo) Create(ctx context.Context, tx *gorm.DB, exam *types.Exam) (*types.Exam, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if exam.ID == uuid.Nil {
		exam.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(exam).Error; err != nil {
		return nil, err
	}
	return exam, nil
}

func (r *examRepo) GetByIDForUser(ctx context.Context, tx *gorm.DB, id, userID uuid.UUID) (*types.Exam, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var exam types.Exam
	if err := transaction.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("id = ? AND user_id = ?", id, userID).
		First(&exam).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("exam %s not found", id)
		}
		return nil, err
	}
	return &exam, nil
}

func (r *examRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Model(&types.Exam{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// ReplaceQuestions swaps the exam's question set atomically. Question order
// is carried by the position column; readers always sort on it, so the
// persisted order and the generated order stay identical.
func (r *examRepo) ReplaceQuestions(ctx context.Context, tx *gorm.DB, examID uuid.UUID, questions []*types.ExamQuestion) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
		if err := inner.Where("exam_id = ?", examID).Delete(&types.ExamQuestion{}).Error; err != nil {
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

func (r *examRepo) CreateAttempt(ctx context.Context, tx *gorm.DB, attempt *types.ExamAttempt) (*types.ExamAttempt, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(attempt).Error; err != nil {
		return nil, err
	}
	return attempt, nil
}

func (r *examRepo) ListAttempts(ctx context.Context, tx *gorm.DB, examID, userID uuid.UUID) ([]*types.ExamAttempt, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var attempts []*types.ExamAttempt
	if err := transaction.WithContext(ctx).
		Where("exam_id = ? AND user_id = ?", examID, userID).
		Order("created_at DESC").
		Find(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}
