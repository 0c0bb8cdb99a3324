package repos

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/studyforge/studyforge-backend/internal/pkg/logger"
	"github.com/studyforge/studyforge-backend/internal/types"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func testDB(t *testing.T) (*gorm.DB, *logger.Logger) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&types.SourceDocument{},
		&types.ExtractedContent{},
		&types.Exam{},
		&types.ExamQuestion{},
		&types.ExamAttempt{},
	); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return db, log
}

func optionsJSON(t *testing.T, options []string) datatypes.JSON {
	t.Helper()
	raw, err := json.Marshal(options)
	if err != nil {
		t.Fatalf("marshal options: %v", err)
	}
	return datatypes.JSON(raw)
}

func TestExamQuestionsRoundTripInOrder(t *testing.T) {
	db, log := testDB(t)
	repo := NewExamRepo(db, log)
	userID := uuid.New()

	exam, err := repo.Create(context.Background(), nil, &types.Exam{
		UserID: userID,
		Title:  "Ordering",
		Status: types.ExamStatusDraft,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Insert positions out of order; preload must return them sorted.
	questions := []*types.ExamQuestion{
		{ExamID: exam.ID, Position: 2, Question: "third", Options: optionsJSON(t, []string{"a", "b", "c", "d"}), Type: types.QuestionTypeMCQ},
		{ExamID: exam.ID, Position: 0, Question: "first", Options: optionsJSON(t, []string{"a", "b", "c", "d"}), Type: types.QuestionTypeMCQ},
		{ExamID: exam.ID, Position: 1, Question: "second", Options: optionsJSON(t, []string{"a", "b", "c", "d"}), Type: types.QuestionTypeMCQ},
	}
	if err := repo.ReplaceQuestions(context.Background(), nil, exam.ID, questions); err != nil {
		t.Fatalf("ReplaceQuestions: %v", err)
	}

	loaded, err := repo.GetByIDForUser(context.Background(), nil, exam.ID, userID)
	if err != nil {
		t.Fatalf("GetByIDForUser: %v", err)
	}
	if len(loaded.Questions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(loaded.Questions))
	}
	want := []string{"first", "second", "third"}
	for i, q := range loaded.Questions {
		if q.Question != want[i] {
			t.Fatalf("position %d holds %q, want %q", i, q.Question, want[i])
		}
		if q.Position != i {
			t.Fatalf("expected contiguous positions, got %d at %d", q.Position, i)
		}
	}
}

func TestReplaceQuestionsDeletesOldRows(t *testing.T) {
	db, log := testDB(t)
	repo := NewExamRepo(db, log)
	userID := uuid.New()

	exam, err := repo.Create(context.Background(), nil, &types.Exam{
		UserID: userID,
		Title:  "Replace",
		Status: types.ExamStatusDraft,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	first := []*types.ExamQuestion{
		{ExamID: exam.ID, Position: 0, Question: "stale", Options: optionsJSON(t, []string{"a"}), Type: types.QuestionTypeShortAnswer},
	}
	if err := repo.ReplaceQuestions(context.Background(), nil, exam.ID, first); err != nil {
		t.Fatalf("first ReplaceQuestions: %v", err)
	}
	second := []*types.ExamQuestion{
		{ExamID: exam.ID, Position: 0, Question: "fresh", Options: optionsJSON(t, []string{"a"}), Type: types.QuestionTypeShortAnswer},
	}
	if err := repo.ReplaceQuestions(context.Background(), nil, exam.ID, second); err != nil {
		t.Fatalf("second ReplaceQuestions: %v", err)
	}

	loaded, err := repo.GetByIDForUser(context.Background(), nil, exam.ID, userID)
	if err != nil {
		t.Fatalf("GetByIDForUser: %v", err)
	}
	if len(loaded.Questions) != 1 || loaded.Questions[0].Question != "fresh" {
		t.Fatalf("old rows must be replaced: %+v", loaded.Questions)
	}
}

func TestGetByIDForUserEnforcesOwnership(t *testing.T) {
	db, log := testDB(t)
	repo := NewExamRepo(db, log)

	exam, err := repo.Create(context.Background(), nil, &types.Exam{
		UserID: uuid.New(),
		Title:  "Private",
		Status: types.ExamStatusDraft,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := repo.GetByIDForUser(context.Background(), nil, exam.ID, uuid.New()); err == nil {
		t.Fatalf("foreign user must not see the exam")
	}
}
