package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/studyforge/studyforge-backend/internal/pkg/logger"
	"github.com/studyforge/studyforge-backend/internal/platform/llm"
	"github.com/studyforge/studyforge-backend/internal/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	// Every pool connection to :memory: is its own database; keep the pool
	// at one connection so concurrent callers share state.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrapping sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
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
	return db
}

// fakeModelClient replays queued responses and records every request.
type fakeModelClient struct {
	mu        sync.Mutex
	provider  string
	responses []string
	errs      []error
	requests  []llm.Request
}

func (f *fakeModelClient) Complete(ctx context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	idx := len(f.requests) - 1
	if idx < len(f.errs) && f.errs[idx] != nil {
		return "", f.errs[idx]
	}
	if idx < len(f.responses) {
		return f.responses[idx], nil
	}
	return "", fmt.Errorf("fake client exhausted after %d calls", idx)
}

func (f *fakeModelClient) Provider() string {
	if f.provider == "" {
		return "openai"
	}
	return f.provider
}

func (f *fakeModelClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeModelClient) request(i int) llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[i]
}

func testPolicy(t *testing.T, client llm.Client) *ModelPolicy {
	t.Helper()
	return NewModelPolicy(testLogger(t), map[string]llm.Client{
		"openai": client,
		"google": client,
	}, nil)
}
