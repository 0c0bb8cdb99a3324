package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studyforge/studyforge-backend/internal/pkg/logger"
	"github.com/studyforge/studyforge-backend/internal/types"
)

type ModelCallLogRepo interface {
	Insert(ctx context.Context, tx *gorm.DB, entry *types.ModelCallLog) error
}

type modelCallLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewModelCallLogRepo(db *gorm.DB, baseLog *logger.Logger) ModelCallLogRepo {
	return &modelCallLogRepo{db: db, log: baseLog.With("repo", "ModelCallLogRepo")}
}

func (r *modelCallLogRepo) Insert(ctx context.Context, tx *gorm.DB, entry *types.ModelCallLog) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return transaction.WithContext(ctx).Create(entry).Error
}
