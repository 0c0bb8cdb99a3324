package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/studyforge/studyforge-backend/internal/pkg/logger"
	"github.com/studyforge/studyforge-backend/internal/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// The entity tags must not lean on postgres-only default expressions,
// otherwise sqlite rejects the generated DDL.
func TestMigrateAllEntitiesOnSQLite(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&types.SourceDocument{},
		&types.ExtractedContent{},
		&types.StudyKit{},
		&types.Flashcard{},
		&types.QuizQuestion{},
		&types.Exam{},
		&types.ExamQuestion{},
		&types.ExamAttempt{},
		&types.Assignment{},
		&types.ModelCallLog{},
	); err != nil {
		t.Fatalf("migrating: %v", err)
	}

	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	docs := NewDocumentRepo(db, log)
	doc := &types.SourceDocument{
		UserID:       uuid.New(),
		OriginalName: "notes.pdf",
		LocationRef:  "https://files.example.com/notes.pdf",
		MediaKind:    types.MediaKindDocument,
		Status:       types.DocumentStatusUploaded,
	}
	if _, err := docs.Create(context.Background(), nil, doc); err != nil {
		t.Fatalf("creating document: %v", err)
	}
	if doc.CreatedAt.IsZero() || doc.UpdatedAt.IsZero() {
		t.Fatalf("expected gorm to fill timestamps, got %v / %v", doc.CreatedAt, doc.UpdatedAt)
	}
}
